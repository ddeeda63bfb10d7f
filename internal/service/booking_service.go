package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eventbook/ticket-booking/internal/email"
	"github.com/eventbook/ticket-booking/internal/metrics"
	"github.com/eventbook/ticket-booking/internal/model"
	"github.com/eventbook/ticket-booking/internal/payment"
	"github.com/eventbook/ticket-booking/internal/queue"
	"github.com/eventbook/ticket-booking/internal/repository"
)

// ItemStore is the slice of the item repository the booking flow needs.
// DecrementSeats must be atomic: decrement only if enough seats remain.
type ItemStore interface {
	GetByID(ctx context.Context, id uint64) (model.Item, error)
	DecrementSeats(ctx context.Context, id uint64, count int) error
	IncrementSeats(ctx context.Context, id uint64, count int) error
}

// BookingStore persists bookings with payment-id uniqueness.
type BookingStore interface {
	Create(ctx context.Context, b model.Booking) (model.Booking, error)
	GetByPaymentID(ctx context.Context, paymentID string) (model.Booking, error)
}

// EventPublisher publishes booking.confirmed events. Matches
// queue.PublishBookingConfirmed.
type EventPublisher func(ctx context.Context, ev queue.BookingConfirmedEvent) error

// VerifyInput is the callback payload forwarded by the browser after the
// checkout widget completes. All of it is untrusted; UserID and Email
// only personalize the booking record and the confirmation mail, never
// what is settled.
type VerifyInput struct {
	PaymentID string
	OrderID   string
	Signature string
	UserID    string // optional, "guest" when absent
	Email     string // optional; no confirmation mail without it
}

// VerifyResult reports a completed verification. EmailSent is false both
// when no address was supplied and when the send failed; EmailErr
// distinguishes the two so handlers can attach a warning.
type VerifyResult struct {
	Booking          model.Booking
	AlreadyProcessed bool
	EmailSent        bool
	EmailErr         error
}

// BookingService drives the verified half of the checkout flow:
// authenticate the callback, recover trusted purchase metadata from the
// processor, settle seats atomically, record the booking, and notify.
type BookingService struct {
	gateway  payment.Gateway
	secret   string // processor key secret, verifies callback signatures
	items    ItemStore
	bookings BookingStore
	sender   email.Sender
	publish  EventPublisher
	log      *zap.Logger
}

func NewBookingService(gateway payment.Gateway, secret string, items ItemStore, bookings BookingStore, sender email.Sender, publish EventPublisher, log *zap.Logger) *BookingService {
	return &BookingService{
		gateway:  gateway,
		secret:   secret,
		items:    items,
		bookings: bookings,
		sender:   sender,
		publish:  publish,
		log:      log,
	}
}

// Verify authenticates a payment callback and, on success, settles seats
// and records the booking exactly once.
//
// Error mapping for callers: ErrValidation and
// payment.ErrSignatureMismatch are terminal 400s with no state change;
// repository.ErrItemNotFound and repository.ErrInsufficientSeats occur
// after the charge succeeded and are surfaced distinctly so refund
// policy can be decided upstream; anything else is a downstream failure.
func (s *BookingService) Verify(ctx context.Context, in VerifyInput) (VerifyResult, error) {
	if in.PaymentID == "" || in.OrderID == "" || in.Signature == "" {
		return VerifyResult{}, fmt.Errorf("%w: paymentId, orderId and signature are required", ErrValidation)
	}

	// Re-derive trust: the signature binds orderId and paymentId to the
	// processor secret. Nothing the client sent is believed before this.
	if err := payment.VerifySignature(s.secret, in.OrderID, in.PaymentID, in.Signature); err != nil {
		metrics.PaymentsVerified.WithLabelValues(metrics.ResultSignatureMismatch).Inc()
		s.log.Warn("payment signature mismatch",
			zap.String("order_id", in.OrderID),
			zap.String("payment_id", in.PaymentID))
		return VerifyResult{}, err
	}

	// Idempotence: a retried callback for an already-settled payment must
	// not decrement seats again.
	if existing, err := s.bookings.GetByPaymentID(ctx, in.PaymentID); err == nil {
		metrics.PaymentsVerified.WithLabelValues(metrics.ResultDuplicate).Inc()
		return VerifyResult{Booking: existing, AlreadyProcessed: true}, nil
	} else if !errors.Is(err, repository.ErrBookingNotFound) {
		return VerifyResult{}, fmt.Errorf("lookup booking by payment id: %w", err)
	}

	// Fetch the authoritative order; its notes are the single source of
	// truth for what was purchased.
	order, err := s.gateway.FetchOrder(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, payment.ErrMissingNotes) {
			metrics.PaymentsVerified.WithLabelValues(metrics.ResultError).Inc()
			return VerifyResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		metrics.PaymentsVerified.WithLabelValues(metrics.ResultError).Inc()
		return VerifyResult{}, fmt.Errorf("fetch order: %w", err)
	}
	notes := order.Notes

	item, err := s.items.GetByID(ctx, notes.ItemID)
	if err != nil {
		// The item can be gone if it was deleted between order creation
		// and payment. Money has moved; make that loud.
		if errors.Is(err, repository.ErrItemNotFound) {
			metrics.PaymentsVerified.WithLabelValues(metrics.ResultError).Inc()
			s.log.Error("verified payment references missing item",
				zap.String("payment_id", in.PaymentID),
				zap.Uint64("item_id", notes.ItemID))
		}
		return VerifyResult{}, err
	}
	if item.Kind != notes.ItemKind {
		metrics.PaymentsVerified.WithLabelValues(metrics.ResultError).Inc()
		return VerifyResult{}, fmt.Errorf("%w: order notes kind %q does not match item %d", ErrValidation, notes.ItemKind, item.ID)
	}

	// Settlement: a single conditional decrement. Two verified payments
	// racing for the last seats resolve here, in the store, not in Go.
	if err := s.items.DecrementSeats(ctx, item.ID, notes.TicketCount); err != nil {
		if errors.Is(err, repository.ErrInsufficientSeats) {
			metrics.PaymentsVerified.WithLabelValues(metrics.ResultSeatsExhausted).Inc()
			s.log.Error("payment captured but seats exhausted",
				zap.String("payment_id", in.PaymentID),
				zap.String("order_id", in.OrderID),
				zap.Uint64("item_id", item.ID),
				zap.Int("ticket_count", notes.TicketCount),
				zap.Int("available_seats", item.AvailableSeats))
		}
		return VerifyResult{}, err
	}

	userID := in.UserID
	if userID == "" {
		userID = "guest"
	}
	booking, err := s.bookings.Create(ctx, model.Booking{
		UserID:      userID,
		ItemID:      item.ID,
		ItemKind:    item.Kind,
		ItemTitle:   item.Title,
		EventDate:   item.EventDate,
		Venue:       item.Venue,
		TicketCount: notes.TicketCount,
		TotalPrice:  item.Price * float64(notes.TicketCount),
		PaymentID:   in.PaymentID,
		OrderID:     in.OrderID,
		Status:      model.BookingConfirmed,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			// Two callbacks for the same payment interleaved past the
			// lookup above and both decremented. Hand the seats back and
			// report the booking the other callback created.
			if incErr := s.items.IncrementSeats(ctx, item.ID, notes.TicketCount); incErr != nil {
				s.log.Error("seat compensation failed after duplicate payment",
					zap.String("payment_id", in.PaymentID),
					zap.Uint64("item_id", item.ID),
					zap.Error(incErr))
			}
			existing, lookErr := s.bookings.GetByPaymentID(ctx, in.PaymentID)
			if lookErr != nil {
				return VerifyResult{}, fmt.Errorf("duplicate payment lookup: %w", lookErr)
			}
			metrics.PaymentsVerified.WithLabelValues(metrics.ResultDuplicate).Inc()
			return VerifyResult{Booking: existing, AlreadyProcessed: true}, nil
		}
		s.log.Error("booking insert failed after settlement",
			zap.String("payment_id", in.PaymentID),
			zap.Uint64("item_id", item.ID),
			zap.Error(err))
		return VerifyResult{}, err
	}

	metrics.PaymentsVerified.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.BookingsConfirmed.Inc()
	s.log.Info("booking confirmed",
		zap.String("booking_id", booking.ID),
		zap.String("payment_id", booking.PaymentID),
		zap.Uint64("item_id", booking.ItemID),
		zap.Int("ticket_count", booking.TicketCount))

	res := VerifyResult{Booking: booking}
	s.notify(ctx, booking, in.Email, &res)
	return res, nil
}

// notify publishes the booking.confirmed event and attempts the
// confirmation email. Both are best effort: the payment is captured and
// the seats are gone, so failures are recorded and reported as warnings,
// never propagated.
func (s *BookingService) notify(ctx context.Context, b model.Booking, to string, res *VerifyResult) {
	if s.publish != nil {
		if err := s.publish(ctx, queue.BookingConfirmedEvent{
			BookingID:   b.ID,
			UserID:      b.UserID,
			ItemID:      b.ItemID,
			ItemKind:    string(b.ItemKind),
			ItemTitle:   b.ItemTitle,
			EventDate:   b.EventDate.UTC().Format(time.RFC3339),
			Venue:       b.Venue,
			TicketCount: b.TicketCount,
			TotalPrice:  b.TotalPrice,
			PaymentID:   b.PaymentID,
			OrderID:     b.OrderID,
			ConfirmedAt: b.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			s.log.Warn("booking event publish failed", zap.String("booking_id", b.ID), zap.Error(err))
		}
	}

	if to == "" || s.sender == nil {
		return
	}
	err := s.sender.SendConfirmation(ctx, email.Confirmation{
		To:          to,
		ItemTitle:   b.ItemTitle,
		EventDate:   b.EventDate,
		Venue:       b.Venue,
		TicketCount: b.TicketCount,
		TotalPrice:  b.TotalPrice,
		PaymentID:   b.PaymentID,
		BookedAt:    b.CreatedAt,
	})
	if err != nil {
		metrics.EmailFailures.Inc()
		s.log.Warn("confirmation email failed",
			zap.String("booking_id", b.ID),
			zap.String("to", to),
			zap.Error(err))
		res.EmailErr = err
		return
	}
	res.EmailSent = true
}
