// Package payment wraps the hosted payment processor. Orders are created
// and fetched through the Gateway interface so the booking flow can be
// exercised against a scripted gateway in tests, and callback signatures
// are verified locally with the processor's shared secret.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/eventbook/ticket-booking/internal/model"
)

// ErrSignatureMismatch is returned when a payment callback fails the HMAC
// check. Handlers treat it as a potential tampering attempt: 400, logged,
// never retried.
var ErrSignatureMismatch = errors.New("payment signature mismatch")

// ErrMissingNotes is returned when a fetched order lacks the booking
// metadata stamped on it at creation time.
var ErrMissingNotes = errors.New("order notes missing booking metadata")

// OrderNotes is the metadata bag attached to every processor order. It is
// the single source of truth for what was purchased: verification reads
// it back from the processor rather than trusting anything the client
// sends alongside the callback.
type OrderNotes struct {
	ItemID      uint64
	ItemKind    model.ItemKind
	TicketCount int
}

// Order is the processor-side record of an intended charge. Amount is in
// the smallest currency unit (paise). Orders are immutable once created.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Notes    OrderNotes
}

// Gateway is the processor surface the booking flow needs.
type Gateway interface {
	// CreateOrder opens an order carrying amount, currency, receipt and
	// notes in the processor's system and returns it with the
	// processor-issued id.
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes OrderNotes) (Order, error)
	// FetchOrder retrieves the authoritative order record by id.
	FetchOrder(ctx context.Context, orderID string) (Order, error)
}

// parseNotes decodes the processor's loosely-typed notes map. The SDK
// round-trips notes through JSON, so numbers may come back as strings or
// floats depending on how they were stamped.
func parseNotes(raw map[string]interface{}) (OrderNotes, error) {
	itemID, ok := noteUint(raw["itemId"])
	if !ok {
		return OrderNotes{}, ErrMissingNotes
	}
	count, ok := noteInt(raw["ticketCount"])
	if !ok || count <= 0 {
		return OrderNotes{}, ErrMissingNotes
	}
	kindStr, ok := raw["itemType"].(string)
	if !ok || kindStr == "" {
		return OrderNotes{}, ErrMissingNotes
	}
	kind := model.ItemKind(kindStr)
	if !model.PurchasableKinds[kind] {
		return OrderNotes{}, fmt.Errorf("%w: unknown itemType %q", ErrMissingNotes, kindStr)
	}
	return OrderNotes{ItemID: itemID, ItemKind: kind, TicketCount: count}, nil
}

func noteUint(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		return n, err == nil
	case int:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case int64:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	}
	return 0, false
}

func noteInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(t)
		return n, err == nil
	case int:
		return t, true
	case int64:
		return int(t), true
	}
	return 0, false
}
