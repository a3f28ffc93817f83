// Package service contains the reservation engine: the only component
// with a genuine correctness hazard.  Concurrent creates race on the
// shared event row and are serialised through the store's version guard,
// never through in-process locks, so the engine stays correct when
// several service instances share one database.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ticketboss/reservation-api/internal/model"
	"github.com/ticketboss/reservation-api/internal/repository"
)

// MaxSeatsPerReservation is the policy cap on a single booking.  The
// request layer validates it first; the engine re-checks defensively.
const MaxSeatsPerReservation = 10

// Engine error taxonomy.  All of these are returned as values and none
// are process-fatal; handlers map them onto HTTP statuses.
var (
	// ErrInvalidRequest flags a caller error (bad seat count or empty
	// partner ID).  Nothing has been mutated.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInsufficientSeats is the business rejection when the pool has
	// fewer free seats than requested.  Nothing has been mutated.
	ErrInsufficientSeats = errors.New("not enough seats left")

	// ErrConcurrencyConflict means another writer committed between our
	// read and our conditional write.  Nothing has been mutated and the
	// whole operation is safe to retry; the engine itself never retries,
	// keeping each call to at most one write.
	ErrConcurrencyConflict = errors.New("concurrency conflict, please retry")

	// ErrPartialFailure means a seat mutation committed but the paired
	// ledger write or delete did not, leaving the pool and the ledger
	// out of sync.  It is alarm-worthy and must never be swallowed.
	ErrPartialFailure = errors.New("partial failure: seat pool and ledger out of sync")
)

// EventStore is the inventory-store contract the engine requires.  Both
// conditional mutations must execute as single atomic operations inside
// the backing store; the guarantees of this engine do not hold if they
// are implemented as separate read and write calls.
type EventStore interface {
	FetchEvent(ctx context.Context, eventID string) (*model.Event, error)
	ConditionalDecrement(ctx context.Context, eventID string, expectedVersion int64, amount int) (*model.Event, error)
	ConditionalIncrement(ctx context.Context, eventID string, amount int) (*model.Event, error)
}

// ReservationLedger is the booking-record contract the engine requires.
type ReservationLedger interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, reservationID string) (*model.Reservation, error)
	Delete(ctx context.Context, reservationID string) error
	CountByEvent(ctx context.Context, eventID string) (int, error)
}

// Publisher emits reservation lifecycle events.  Publishing is
// best-effort: failures are logged and never fail the request.
type Publisher interface {
	ReservationConfirmed(ctx context.Context, res *model.Reservation)
	ReservationCancelled(ctx context.Context, res *model.Reservation)
}

// ReservationService orchestrates seat allocation against the store and
// the ledger for a single configured event.
type ReservationService struct {
	eventID string
	store   EventStore
	ledger  ReservationLedger
	pub     Publisher // may be nil
	log     *logrus.Logger
}

// NewReservationService constructs the engine for the given event.  The
// publisher may be nil when no broker is configured.
func NewReservationService(eventID string, store EventStore, ledger ReservationLedger, pub Publisher, log *logrus.Logger) *ReservationService {
	if store == nil || ledger == nil {
		panic("nil store or ledger passed to NewReservationService")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReservationService{
		eventID: eventID,
		store:   store,
		ledger:  ledger,
		pub:     pub,
		log:     log,
	}
}

// CreateReservation allocates seats from the pool and records the
// booking.  The flow is read, fast-path availability check, then a
// version-guarded conditional decrement; under contention exactly one
// racing writer commits per version value and the rest observe
// ErrConcurrencyConflict.  The ledger insert happens only after the
// decrement commits.  If the insert fails, the engine compensates with
// an increment; if the compensation also fails it returns
// ErrPartialFailure so the drift is surfaced, not hidden.
func (s *ReservationService) CreateReservation(ctx context.Context, partnerID string, seats int) (*model.Reservation, error) {
	if partnerID == "" || seats < 1 || seats > MaxSeatsPerReservation {
		return nil, ErrInvalidRequest
	}

	event, err := s.store.FetchEvent(ctx, s.eventID)
	if err != nil {
		return nil, err
	}

	// Fast-path rejection.  The conditional write below remains the
	// authoritative check.
	if event.AvailableSeats < seats {
		return nil, ErrInsufficientSeats
	}

	updated, err := s.store.ConditionalDecrement(ctx, s.eventID, event.Version, seats)
	if errors.Is(err, repository.ErrVersionMismatch) {
		return nil, ErrConcurrencyConflict
	}
	if err != nil {
		return nil, fmt.Errorf("decrement seats: %w", err)
	}

	res := &model.Reservation{
		ReservationID: uuid.NewString(),
		EventID:       s.eventID,
		PartnerID:     partnerID,
		Seats:         seats,
		Status:        model.StatusConfirmed,
	}
	if err := s.ledger.Create(ctx, res); err != nil {
		// The decrement has committed; give the seats back.  If even
		// that fails the pool has drifted from the ledger.
		if _, rerr := s.store.ConditionalIncrement(ctx, s.eventID, seats); rerr != nil {
			s.log.WithFields(logrus.Fields{
				"op":       "create",
				"event_id": s.eventID,
				"seats":    seats,
			}).WithError(rerr).Error("seat restore after failed ledger insert did not apply")
			return nil, fmt.Errorf("%w: %v", ErrPartialFailure, err)
		}
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"op":             "create",
		"event_id":       s.eventID,
		"reservation_id": res.ReservationID,
		"seats":          seats,
		"available":      updated.AvailableSeats,
		"version":        updated.Version,
	}).Info("reservation confirmed")

	if s.pub != nil {
		s.pub.ReservationConfirmed(ctx, res)
	}
	return res, nil
}

// CancelReservation releases a booking's seats back to the pool and
// removes the ledger row.  Cancelling an unknown or already-cancelled
// identifier returns repository.ErrReservationNotFound, making the
// operation idempotent from the caller's point of view.  The restore
// and the delete are two store calls, not one transaction; a delete
// failure after a committed restore surfaces as ErrPartialFailure.
func (s *ReservationService) CancelReservation(ctx context.Context, reservationID string) error {
	res, err := s.ledger.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}

	if _, err := s.store.ConditionalIncrement(ctx, res.EventID, res.Seats); err != nil {
		return fmt.Errorf("restore seats: %w", err)
	}

	if err := s.ledger.Delete(ctx, reservationID); err != nil && !errors.Is(err, repository.ErrReservationNotFound) {
		// Seats are back in the pool but the booking row survived.
		s.log.WithFields(logrus.Fields{
			"op":             "cancel",
			"event_id":       res.EventID,
			"reservation_id": reservationID,
			"seats":          res.Seats,
		}).WithError(err).Error("ledger delete failed after seat restore")
		return fmt.Errorf("%w: %v", ErrPartialFailure, err)
	}

	s.log.WithFields(logrus.Fields{
		"op":             "cancel",
		"event_id":       res.EventID,
		"reservation_id": reservationID,
		"seats":          res.Seats,
	}).Info("reservation cancelled")

	if s.pub != nil {
		s.pub.ReservationCancelled(ctx, res)
	}
	return nil
}

// GetEventSummary returns the event row together with a count of live
// reservations.  It performs no mutation and may be served from a cache
// or replica by the surrounding system.
func (s *ReservationService) GetEventSummary(ctx context.Context) (*model.EventSummary, error) {
	event, err := s.store.FetchEvent(ctx, s.eventID)
	if err != nil {
		return nil, err
	}
	count, err := s.ledger.CountByEvent(ctx, s.eventID)
	if err != nil {
		return nil, fmt.Errorf("count reservations: %w", err)
	}
	return &model.EventSummary{
		EventID:          event.EventID,
		Name:             event.Name,
		TotalSeats:       event.TotalSeats,
		AvailableSeats:   event.AvailableSeats,
		ReservationCount: count,
		Version:          event.Version,
	}, nil
}
