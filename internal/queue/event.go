package queue

// BookingConfirmedEvent is published after a verified payment settles and
// its booking is recorded. It carries enough for downstream consumers to
// log, notify, or feed analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   string  `json:"booking_id"`
	UserID      string  `json:"user_id"`
	ItemID      uint64  `json:"item_id"`
	ItemKind    string  `json:"item_kind"`
	ItemTitle   string  `json:"item_title"`
	EventDate   string  `json:"event_date"`
	Venue       string  `json:"venue"`
	TicketCount int     `json:"ticket_count"`
	TotalPrice  float64 `json:"total_price"`
	PaymentID   string  `json:"payment_id"`
	OrderID     string  `json:"order_id"`
	ConfirmedAt string  `json:"confirmed_at"`
}
