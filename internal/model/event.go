package model

import "time"

// Event is the single seat pool this service manages.  There is exactly
// one row per deployment, keyed by a configured event identifier.  The
// version column implements optimistic locking: every successful change
// to AvailableSeats bumps it by one, and writers must present the
// version they read for a decrement to apply.
//
// Fields:
//  EventID        – external identifier of the event (configured).
//  Name           – display name of the event.
//  TotalSeats     – capacity of the pool, immutable after seeding.
//  AvailableSeats – seats currently free (0..TotalSeats).
//  Version        – optimistic locking counter, starts at 0.
//  CreatedAt      – timestamp when the row was created.
//  UpdatedAt      – timestamp of the last seat mutation.
type Event struct {
	EventID        string    // events.event_id
	Name           string    // events.name
	TotalSeats     int       // events.total_seats
	AvailableSeats int       // events.available_seats
	Version        int64     // events.version
	CreatedAt      time.Time // events.created_at
	UpdatedAt      time.Time // events.updated_at
}

// EventSummary is the read-only aggregation returned to clients.  It
// combines the event row with a count of live reservations.  The count is
// read-committed: it reflects completed writes but makes no freshness
// promise relative to in-flight ones.
type EventSummary struct {
	EventID          string `json:"eventId"`
	Name             string `json:"name"`
	TotalSeats       int    `json:"totalSeats"`
	AvailableSeats   int    `json:"availableSeats"`
	ReservationCount int    `json:"reservationCount"`
	Version          int64  `json:"version"`
}
