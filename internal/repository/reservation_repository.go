package repository

import (
	"context"
	"database/sql"

	"github.com/ticketboss/reservation-api/internal/model"
)

// ReservationRepo is the ledger of live bookings.  Rows are written once
// at creation and only ever removed again; there is no update path.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// Create inserts a new reservation row.  The caller supplies the
// generated reservation ID; CreatedAt is populated from the row after
// insert so the returned record matches what the database stored.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (reservation_id, event_id, partner_id, seats, status)
	           VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, res.ReservationID, res.EventID, res.PartnerID, res.Seats, res.Status); err != nil {
		return err
	}
	const sel = `SELECT created_at FROM reservations WHERE reservation_id = ?`
	return r.db.QueryRowContext(ctx, sel, res.ReservationID).Scan(&res.CreatedAt)
}

// GetByID returns the reservation with the given identifier, or
// ErrReservationNotFound when no such row exists.
func (r *ReservationRepo) GetByID(ctx context.Context, reservationID string) (*model.Reservation, error) {
	const q = `SELECT reservation_id, event_id, partner_id, seats, status, created_at
	           FROM reservations WHERE reservation_id = ?`
	var res model.Reservation
	err := r.db.QueryRowContext(ctx, q, reservationID).Scan(
		&res.ReservationID, &res.EventID, &res.PartnerID,
		&res.Seats, &res.Status, &res.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Delete removes a reservation row.  Deleting a row that has already
// been removed yields ErrReservationNotFound, which keeps cancellation
// idempotent for callers.
func (r *ReservationRepo) Delete(ctx context.Context, reservationID string) error {
	const q = `DELETE FROM reservations WHERE reservation_id = ?`
	res, err := r.db.ExecContext(ctx, q, reservationID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// CountByEvent returns the number of live reservations for an event.
func (r *ReservationRepo) CountByEvent(ctx context.Context, eventID string) (int, error) {
	const q = `SELECT COUNT(*) FROM reservations WHERE event_id = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
