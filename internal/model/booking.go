package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking. Only
// "confirmed" is written by the checkout flow today; cancellation and
// refunds have no code path yet (seat restoration semantics are undecided)
// and the other two values exist so the column does not need migrating
// when they do.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingRefunded  BookingStatus = "refunded"
)

// Booking is the durable record of a completed purchase. PaymentID is
// unique: one successful payment produces exactly one booking, which is
// what makes re-verification of the same payment safe.
type Booking struct {
	ID          string        `json:"id"` // uuid
	UserID      string        `json:"userId"`
	ItemID      uint64        `json:"itemId"`
	ItemKind    ItemKind      `json:"itemKind"`
	ItemTitle   string        `json:"itemTitle"`
	EventDate   time.Time     `json:"date"`
	Venue       string        `json:"venue"`
	TicketCount int           `json:"ticketCount"`
	TotalPrice  float64       `json:"totalPrice"`
	PaymentID   string        `json:"paymentId"`
	OrderID     string        `json:"orderId"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
}
