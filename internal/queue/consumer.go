package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// StartAuditConsumer consumes both reservation queues and appends every
// received event to logs/reservations.log as a single human-readable
// line.  One consume loop runs per queue, each with its own reconnect
// loop and capped exponential backoff, so the function never returns
// under normal operation; call it from its own goroutine.  Processing
// errors are logged and the message is rejected without requeue to
// avoid tight redelivery loops.
func StartAuditConsumer(url string, log *logrus.Logger) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	for _, name := range []string{ConfirmedQueue, CancelledQueue} {
		go consumeForever(url, name, log)
	}
}

func consumeForever(url, queueName string, log *logrus.Logger) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("audit-consumer[%s]: dial failed, retrying in %s", queueName, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, queueName, log); err != nil {
			log.WithError(err).Warnf("audit-consumer[%s]: consume loop ended, reconnecting", queueName)
		}
		_ = conn.Close()
		time.Sleep(2 * time.Second)
	}
}

func consumeLoop(conn *amqp.Connection, queueName string, log *logrus.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("audit-consumer: set QoS failed")
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := appendAuditLine(d.Body); err != nil {
			log.WithError(err).Warn("audit-consumer: handle message failed")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// auditMu serialises appends from the two per-queue loops so lines do
// not interleave inside the file.
var auditMu sync.Mutex

func appendAuditLine(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "reservations.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Reservation %s | reservation_id=%s | event_id=%s | partner_id=%s | seats=%d\n",
		ev.OccurredAt, ev.Action, ev.ReservationID, ev.EventID, ev.PartnerID, ev.Seats)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
