package payment

import (
	"context"
	"fmt"
	"strconv"

	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayGateway implements Gateway against the Razorpay Orders API.
type RazorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway builds a gateway from the processor key pair.
func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

// CreateOrder opens an order with automatic payment capture. Notes values
// are stamped as strings so they survive the JSON round trip unchanged.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes OrderNotes) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	data := map[string]interface{}{
		"amount":          amountPaise,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
		"notes": map[string]interface{}{
			"itemId":      strconv.FormatUint(notes.ItemID, 10),
			"ticketCount": strconv.Itoa(notes.TicketCount),
			"itemType":    string(notes.ItemKind),
		},
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return Order{}, fmt.Errorf("razorpay create order: %w", err)
	}
	return orderFromBody(body)
}

// FetchOrder retrieves the canonical order record by id.
func (g *RazorpayGateway) FetchOrder(ctx context.Context, orderID string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	body, err := g.client.Order.Fetch(orderID, nil, nil)
	if err != nil {
		return Order{}, fmt.Errorf("razorpay fetch order %s: %w", orderID, err)
	}
	return orderFromBody(body)
}

// orderFromBody maps the SDK's untyped response onto Order. Notes are
// parsed strictly; an order without complete booking metadata is useless
// to the settlement flow and is rejected here.
func orderFromBody(body map[string]interface{}) (Order, error) {
	o := Order{}
	var ok bool
	if o.ID, ok = body["id"].(string); !ok || o.ID == "" {
		return Order{}, fmt.Errorf("razorpay response missing order id")
	}
	switch a := body["amount"].(type) {
	case float64:
		o.Amount = int64(a)
	case int64:
		o.Amount = a
	case int:
		o.Amount = int64(a)
	default:
		return Order{}, fmt.Errorf("razorpay response missing amount for order %s", o.ID)
	}
	o.Currency, _ = body["currency"].(string)
	o.Receipt, _ = body["receipt"].(string)

	rawNotes, _ := body["notes"].(map[string]interface{})
	notes, err := parseNotes(rawNotes)
	if err != nil {
		return Order{}, err
	}
	o.Notes = notes
	return o, nil
}
