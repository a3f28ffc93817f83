// Package repository implements the persistence layer on top of MySQL.
// It exposes the two collaborators the reservation engine is built
// against: an inventory store for the event row and a ledger for the
// reservation rows.  The sentinel errors below let higher layers
// distinguish failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrEventNotFound is returned when the configured event row does not
// exist.  Since the row is seeded at startup this indicates a
// misconfiguration rather than a caller error.
var ErrEventNotFound = errors.New("event not found")

// ErrVersionMismatch is returned by ConditionalDecrement when the stored
// version no longer matches the version the caller read.  No mutation
// has taken place; the operation is safe to retry from a fresh read.
var ErrVersionMismatch = errors.New("version mismatch")

// ErrCapacityExceeded is returned by ConditionalIncrement when applying
// the restore would push available seats above the pool's total.  It
// signals a drifted pool and should never occur in normal operation.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrReservationNotFound is returned when no reservation exists for the
// requested identifier.  Handlers translate this into an HTTP 404.
var ErrReservationNotFound = errors.New("reservation not found")
