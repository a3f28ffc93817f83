package repository

import (
	"context"
	"database/sql"

	"github.com/ticketboss/reservation-api/internal/model"
)

// EventRepo is the inventory store for the event seat pool.  All seat
// mutations go through single conditional UPDATE statements so that the
// check and the write are one atomic operation inside MySQL.  The engine
// never issues a separate read-then-write pair against this repo.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// eventColumns is the select list shared by every query that scans a
// full event row.
const eventColumns = `event_id, name, total_seats, available_seats, version, created_at, updated_at`

// FetchEvent returns the event row for the given identifier, or
// ErrEventNotFound when it does not exist.
func (r *EventRepo) FetchEvent(ctx context.Context, eventID string) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE event_id = ?`
	var ev model.Event
	err := r.db.QueryRowContext(ctx, q, eventID).Scan(
		&ev.EventID, &ev.Name, &ev.TotalSeats, &ev.AvailableSeats,
		&ev.Version, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ConditionalDecrement atomically takes amount seats from the pool and
// bumps the version, but only while the stored version still equals
// expectedVersion.  A zero affected-row count means another writer
// committed first; the caller receives ErrVersionMismatch and nothing
// has been mutated.  On success the updated row is returned.
func (r *EventRepo) ConditionalDecrement(ctx context.Context, eventID string, expectedVersion int64, amount int) (*model.Event, error) {
	const q = `UPDATE events
	           SET available_seats = available_seats - ?, version = version + 1
	           WHERE event_id = ? AND version = ? AND available_seats >= ?`
	res, err := r.db.ExecContext(ctx, q, amount, eventID, expectedVersion, amount)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrVersionMismatch
	}
	return r.FetchEvent(ctx, eventID)
}

// ConditionalIncrement atomically returns amount seats to the pool and
// bumps the version.  The restore path is not version-guarded (an
// addition cannot underflow the pool the way a subtraction can), but it
// is bounded: the update refuses to push available_seats above
// total_seats and reports ErrCapacityExceeded instead, so a duplicated
// restore can never inflate the pool.  ErrEventNotFound is returned when
// the row does not exist at all.
func (r *EventRepo) ConditionalIncrement(ctx context.Context, eventID string, amount int) (*model.Event, error) {
	const q = `UPDATE events
	           SET available_seats = available_seats + ?, version = version + 1
	           WHERE event_id = ? AND available_seats + ? <= total_seats`
	res, err := r.db.ExecContext(ctx, q, amount, eventID, amount)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Distinguish a missing row from a bound violation.
		if _, ferr := r.FetchEvent(ctx, eventID); ferr != nil {
			return nil, ferr
		}
		return nil, ErrCapacityExceeded
	}
	return r.FetchEvent(ctx, eventID)
}

// Seed inserts the event row when it does not exist yet.  The insert is
// idempotent so the startup path can call it unconditionally; an
// already-seeded pool keeps its current availability and version.
func (r *EventRepo) Seed(ctx context.Context, eventID, name string, totalSeats int) (bool, error) {
	const q = `INSERT IGNORE INTO events (event_id, name, total_seats, available_seats, version)
	           VALUES (?, ?, ?, ?, 0)`
	res, err := r.db.ExecContext(ctx, q, eventID, name, totalSeats, totalSeats)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
