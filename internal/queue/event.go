// Package queue defines message payloads exchanged over the message
// broker plus the publisher and audit consumer that move them.
package queue

// ReservationEvent is published whenever a reservation is confirmed or
// cancelled.  It carries enough information for downstream consumers to
// log or trigger analytics without querying the primary database.
type ReservationEvent struct {
	ReservationID string `json:"reservation_id"`
	EventID       string `json:"event_id"`
	PartnerID     string `json:"partner_id"`
	Seats         int    `json:"seats"`
	Action        string `json:"action"` // "confirmed" or "cancelled"
	OccurredAt    string `json:"occurred_at"`
}

// Queue names used on the broker.  Both are declared durable so
// messages survive broker restarts.
const (
	ConfirmedQueue = "reservation.confirmed"
	CancelledQueue = "reservation.cancelled"
)
