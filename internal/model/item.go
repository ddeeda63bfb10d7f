package model

import "time"

// ItemKind tags the variant of a bookable item. The three kinds share the
// same seating and pricing shape and differ only in descriptive metadata,
// so they live in one table and one Go type rather than three near
// identical code paths.
type ItemKind string

const (
	KindMovie ItemKind = "movie"
	KindSport ItemKind = "sport"
	KindShow  ItemKind = "show"
)

// PurchasableKinds are the kinds accepted by the checkout flow. Shows are
// browsable but the payment widget only sells movie and sport tickets.
var PurchasableKinds = map[ItemKind]bool{
	KindMovie: true,
	KindSport: true,
}

// Valid reports whether k is one of the recognized kinds.
func (k ItemKind) Valid() bool {
	return k == KindMovie || k == KindSport || k == KindShow
}

// Item is a bookable event with finite seat inventory.
//
// AvailableSeats is the only mutable field in the core flow; it is written
// exclusively through the conditional decrement in the item repository so
// that 0 <= AvailableSeats <= TotalSeats holds after every settlement.
// Kind-specific metadata uses pointer fields that stay nil for the other
// variants.
type Item struct {
	ID             uint64    `json:"id"`
	Kind           ItemKind  `json:"kind"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	EventDate      time.Time `json:"date"`
	Venue          string    `json:"venue"`
	Price          float64   `json:"price"` // rupees; converted to paise at order time
	TotalSeats     int       `json:"totalSeats"`
	AvailableSeats int       `json:"availableSeats"`
	Image          string    `json:"image,omitempty"`

	// movie
	Director    *string `json:"director,omitempty"`
	Genre       *string `json:"genre,omitempty"`
	DurationMin *int    `json:"duration,omitempty"` // also used by shows

	// sport
	Teams     []string `json:"teams,omitempty"`
	SportType *string  `json:"sportType,omitempty"`

	// show
	Performers []string `json:"performers,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
