// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. The
// distinction that matters most here is ErrInsufficientSeats: by the
// time settlement runs the customer has already been charged, so losing
// the seat race must surface as its own loud error class rather than a
// generic store failure.
package repository

import "errors"

// ErrItemNotFound is returned when a bookable item does not exist. A
// verified payment can still hit this if the item was removed after the
// order was created; handlers translate it into an HTTP 404.
var ErrItemNotFound = errors.New("item not found")

// ErrInsufficientSeats is returned when a conditional seat decrement
// matches zero rows because fewer seats remain than were requested.
// Handlers translate this into an HTTP 409 so the caller can decide on
// refund or waitlist policy.
var ErrInsufficientSeats = errors.New("insufficient seats")

// ErrDuplicatePayment is returned when a booking already exists for a
// payment id. This is the idempotence backstop for retried verification
// callbacks; it is not an error the client ever sees.
var ErrDuplicatePayment = errors.New("duplicate payment id")

// ErrBookingNotFound is returned when no booking matches a lookup.
var ErrBookingNotFound = errors.New("booking not found")
