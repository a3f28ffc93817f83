package model

import "time"

// StatusConfirmed is the only status a live reservation can hold.
// Cancellation deletes the row instead of flipping a flag, so there is
// no cancelled state to model.
const StatusConfirmed = "confirmed"

// Reservation records a single confirmed booking against the event's
// seat pool.  Rows are immutable after creation: seats and partner never
// change, and cancellation removes the row entirely.
//
// Fields:
//  ReservationID – globally unique identifier (UUID), generated at create.
//  EventID       – back-reference to the owning event.
//  PartnerID     – opaque caller-supplied identifier, 1+ characters.
//  Seats         – number of seats held by this booking (1..10).
//  Status        – always "confirmed" while the row exists.
//  CreatedAt     – timestamp when the booking was made.
type Reservation struct {
	ReservationID string    `json:"reservationId"` // reservations.reservation_id
	EventID       string    `json:"eventId"`       // reservations.event_id
	PartnerID     string    `json:"partnerId"`     // reservations.partner_id
	Seats         int       `json:"seats"`         // reservations.seats
	Status        string    `json:"status"`        // reservations.status
	CreatedAt     time.Time `json:"createdAt"`     // reservations.created_at
}
