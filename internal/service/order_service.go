// Package service implements the booking core: order initiation against
// the payment processor, callback verification, seat settlement and
// booking record keeping. Handlers stay thin and translate the sentinel
// errors defined here and in the repository package into HTTP statuses.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/eventbook/ticket-booking/internal/metrics"
	"github.com/eventbook/ticket-booking/internal/model"
	"github.com/eventbook/ticket-booking/internal/payment"
)

// ErrValidation marks malformed or missing client input. Handlers map it
// to 400 and never retry.
var ErrValidation = errors.New("validation failed")

// vpaPattern matches a UPI virtual payment address: 2-256 chars of
// local part, "@", then a 2-64 char provider label.
var vpaPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)

// receiptMaxLen is the processor's hard cap on receipt strings.
const receiptMaxLen = 40

// OrderInput is a validated-on-entry request to open a payment order.
type OrderInput struct {
	Amount        float64 // rupees, as entered by the storefront
	Currency      string  // defaults to INR
	ItemID        uint64
	ItemType      model.ItemKind
	TicketCount   int
	PaymentMethod string // optional; only "upi" is supported
	PayeeAddress  string // optional UPI VPA
}

// UPIDetails is returned when the client requested UPI collection.
type UPIDetails struct {
	VPA          string `json:"vpa"`
	Instructions string `json:"instructions"`
}

// OrderResult is what the storefront needs to open the checkout widget.
// The processor key secret never travels through here.
type OrderResult struct {
	OrderID  string      `json:"orderId"`
	Amount   int64       `json:"amount"` // paise
	Currency string      `json:"currency"`
	UPI      *UPIDetails `json:"upi,omitempty"`
}

// OrderService validates booking requests and opens orders with the
// payment processor. It keeps no local state; the order plus its notes
// live entirely in the processor's system until verification.
type OrderService struct {
	gateway payment.Gateway
	log     *zap.Logger
}

func NewOrderService(gateway payment.Gateway, log *zap.Logger) *OrderService {
	return &OrderService{gateway: gateway, log: log}
}

// Create validates in and opens a processor order carrying the purchase
// metadata in its notes. The notes are what verification will trust
// later, so they are stamped here from validated values only.
func (s *OrderService) Create(ctx context.Context, in OrderInput) (OrderResult, error) {
	if in.ItemID == 0 || in.TicketCount == 0 || in.ItemType == "" || in.Amount == 0 {
		return OrderResult{}, fmt.Errorf("%w: amount, itemId, ticketCount and itemType are required", ErrValidation)
	}
	if !model.PurchasableKinds[in.ItemType] {
		return OrderResult{}, fmt.Errorf("%w: itemType must be 'movie' or 'sport'", ErrValidation)
	}
	if in.TicketCount < 0 {
		return OrderResult{}, fmt.Errorf("%w: ticketCount must be positive", ErrValidation)
	}
	if in.PaymentMethod != "" && in.PaymentMethod != "upi" {
		return OrderResult{}, fmt.Errorf("%w: unsupported payment method %q, only 'upi' is supported", ErrValidation, in.PaymentMethod)
	}
	if in.PayeeAddress != "" && !vpaPattern.MatchString(in.PayeeAddress) {
		return OrderResult{}, fmt.Errorf("%w: invalid UPI VPA format, expected name@provider", ErrValidation)
	}

	paise := int64(math.Round(in.Amount * 100))
	if paise <= 0 {
		return OrderResult{}, fmt.Errorf("%w: amount must be a positive number", ErrValidation)
	}

	currency := in.Currency
	if currency == "" {
		currency = "INR"
	}

	order, err := s.gateway.CreateOrder(ctx, paise, currency, buildReceipt(in.ItemID, time.Now()), payment.OrderNotes{
		ItemID:      in.ItemID,
		ItemKind:    in.ItemType,
		TicketCount: in.TicketCount,
	})
	if err != nil {
		s.log.Error("create order failed",
			zap.Uint64("item_id", in.ItemID),
			zap.Int64("amount_paise", paise),
			zap.Error(err))
		return OrderResult{}, err
	}

	metrics.OrdersCreated.Inc()
	s.log.Info("payment order created",
		zap.String("order_id", order.ID),
		zap.Uint64("item_id", in.ItemID),
		zap.String("item_type", string(in.ItemType)),
		zap.Int("ticket_count", in.TicketCount),
		zap.Int64("amount_paise", order.Amount))

	res := OrderResult{OrderID: order.ID, Amount: order.Amount, Currency: order.Currency}
	if in.PaymentMethod == "upi" && in.PayeeAddress != "" {
		res.UPI = &UPIDetails{
			VPA:          in.PayeeAddress,
			Instructions: "Complete payment using your UPI app.",
		}
	}
	return res, nil
}

// buildReceipt derives a processor receipt from a truncated item id and
// the low six digits of the current timestamp, bounded to the
// processor's 40-char limit. Two orders for the same item within the
// same millisecond window can collide; the receipt is informational only
// and the processor-issued order id is what the flow keys on.
func buildReceipt(itemID uint64, now time.Time) string {
	id := strconv.FormatUint(itemID, 10)
	if len(id) > 12 {
		id = id[:12]
	}
	ts := now.UnixMilli() % 1_000_000
	receipt := fmt.Sprintf("item_%s_%06d", id, ts)
	if len(receipt) > receiptMaxLen {
		receipt = receipt[:receiptMaxLen]
	}
	return receipt
}
