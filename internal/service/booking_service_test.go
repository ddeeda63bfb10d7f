package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventbook/ticket-booking/internal/email"
	"github.com/eventbook/ticket-booking/internal/model"
	"github.com/eventbook/ticket-booking/internal/payment"
	"github.com/eventbook/ticket-booking/internal/queue"
	"github.com/eventbook/ticket-booking/internal/repository"
)

const testSecret = "test_key_secret"

// memItems mirrors the conditional-update semantics of the SQL item
// repository: the availability check and the decrement happen under one
// lock, so concurrent settlements observe the same all-or-nothing rule.
type memItems struct {
	mu    sync.Mutex
	items map[uint64]model.Item
}

func newMemItems(items ...model.Item) *memItems {
	m := &memItems{items: make(map[uint64]model.Item)}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *memItems) GetByID(_ context.Context, id uint64) (model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return model.Item{}, repository.ErrItemNotFound
	}
	return it, nil
}

func (m *memItems) DecrementSeats(_ context.Context, id uint64, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return repository.ErrItemNotFound
	}
	if it.AvailableSeats < count {
		return repository.ErrInsufficientSeats
	}
	it.AvailableSeats -= count
	m.items[id] = it
	return nil
}

func (m *memItems) IncrementSeats(_ context.Context, id uint64, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return repository.ErrItemNotFound
	}
	it.AvailableSeats += count
	if it.AvailableSeats > it.TotalSeats {
		it.AvailableSeats = it.TotalSeats
	}
	m.items[id] = it
	return nil
}

func (m *memItems) available(id uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].AvailableSeats
}

// memBookings enforces payment-id uniqueness like the bookings table.
type memBookings struct {
	mu        sync.Mutex
	byPayment map[string]model.Booking
}

func newMemBookings() *memBookings {
	return &memBookings{byPayment: make(map[string]model.Booking)}
}

func (m *memBookings) Create(_ context.Context, b model.Booking) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byPayment[b.PaymentID]; ok {
		return model.Booking{}, repository.ErrDuplicatePayment
	}
	b.ID = uuid.NewString()
	if b.Status == "" {
		b.Status = model.BookingConfirmed
	}
	b.CreatedAt = time.Now().UTC()
	m.byPayment[b.PaymentID] = b
	return b, nil
}

func (m *memBookings) GetByPaymentID(_ context.Context, paymentID string) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byPayment[paymentID]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	return b, nil
}

func (m *memBookings) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byPayment)
}

// stubSender records confirmations and optionally fails.
type stubSender struct {
	mu   sync.Mutex
	sent []email.Confirmation
	fail error
}

func (s *stubSender) SendConfirmation(_ context.Context, c email.Confirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, c)
	return nil
}

func (s *stubSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// testEnv wires a BookingService over in-memory collaborators.
type testEnv struct {
	gw       *captureGateway
	items    *memItems
	bookings *memBookings
	sender   *stubSender
	events   []queue.BookingConfirmedEvent
	eventsMu sync.Mutex
	svc      *BookingService
}

func newTestEnv(t *testing.T, items ...model.Item) *testEnv {
	t.Helper()
	env := &testEnv{
		gw:       &captureGateway{},
		items:    newMemItems(items...),
		bookings: newMemBookings(),
		sender:   &stubSender{},
	}
	publish := func(_ context.Context, ev queue.BookingConfirmedEvent) error {
		env.eventsMu.Lock()
		defer env.eventsMu.Unlock()
		env.events = append(env.events, ev)
		return nil
	}
	env.svc = NewBookingService(env.gw, testSecret, env.items, env.bookings,
		env.sender, publish, zap.NewNop())
	return env
}

// order opens a processor order for the item and returns a signed
// callback for a fresh payment id.
func (e *testEnv) order(t *testing.T, item model.Item, tickets int) VerifyInput {
	t.Helper()
	o, err := e.gw.CreateOrder(context.Background(),
		int64(item.Price*float64(tickets)*100), "INR", "item_test",
		payment.OrderNotes{ItemID: item.ID, ItemKind: item.Kind, TicketCount: tickets})
	require.NoError(t, err)
	paymentID := "pay_" + uuid.NewString()[:12]
	return VerifyInput{
		PaymentID: paymentID,
		OrderID:   o.ID,
		Signature: payment.SignPayload(testSecret, o.ID, paymentID),
	}
}

func movieItem(id uint64, price float64, seats int) model.Item {
	return model.Item{
		ID:             id,
		Kind:           model.KindMovie,
		Title:          "Interstellar",
		EventDate:      time.Date(2026, 10, 4, 19, 0, 0, 0, time.UTC),
		Venue:          "Galaxy Multiplex, Pune",
		Price:          price,
		TotalSeats:     seats,
		AvailableSeats: seats,
	}
}

func TestVerifyConfirmsBooking(t *testing.T) {
	// The canonical flow: 100 seats at 250.00, two tickets booked.
	item := movieItem(11, 250.00, 100)
	env := newTestEnv(t, item)

	in := env.order(t, item, 2)
	in.UserID = "user-7"
	in.Email = "fan@example.com"

	res, err := env.svc.Verify(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.AlreadyProcessed)

	// Order carried the paise total the storefront computed.
	assert.Equal(t, int64(50000), env.gw.created[0].Amount)

	// Settlement and record.
	assert.Equal(t, 98, env.items.available(11))
	b := res.Booking
	assert.Equal(t, "user-7", b.UserID)
	assert.Equal(t, uint64(11), b.ItemID)
	assert.Equal(t, "Interstellar", b.ItemTitle)
	assert.Equal(t, 2, b.TicketCount)
	assert.Equal(t, 500.00, b.TotalPrice)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, in.PaymentID, b.PaymentID)
	assert.Equal(t, in.OrderID, b.OrderID)
	assert.NotEmpty(t, b.ID)

	// Notification.
	assert.True(t, res.EmailSent)
	require.Equal(t, 1, env.sender.count())
	assert.Equal(t, "fan@example.com", env.sender.sent[0].To)
	require.Len(t, env.events, 1)
	assert.Equal(t, b.ID, env.events[0].BookingID)
}

func TestVerifyRejectsBadInput(t *testing.T) {
	item := movieItem(1, 100, 10)
	env := newTestEnv(t, item)
	in := env.order(t, item, 1)

	t.Run("missing fields", func(t *testing.T) {
		_, err := env.svc.Verify(context.Background(), VerifyInput{PaymentID: in.PaymentID})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("tampered signature", func(t *testing.T) {
		bad := in
		bad.Signature = payment.SignPayload("wrong", in.OrderID, in.PaymentID)
		_, err := env.svc.Verify(context.Background(), bad)
		assert.ErrorIs(t, err, payment.ErrSignatureMismatch)
		assert.Equal(t, 10, env.items.available(1), "no state change on auth failure")
		assert.Equal(t, 0, env.bookings.count())
	})

	t.Run("order without notes", func(t *testing.T) {
		env.gw.fetchErr = fmt.Errorf("decode: %w", payment.ErrMissingNotes)
		defer func() { env.gw.fetchErr = nil }()
		_, err := env.svc.Verify(context.Background(), in)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestVerifyIsIdempotent(t *testing.T) {
	item := movieItem(5, 150, 20)
	env := newTestEnv(t, item)
	in := env.order(t, item, 3)
	in.Email = "fan@example.com"

	first, err := env.svc.Verify(context.Background(), in)
	require.NoError(t, err)
	require.False(t, first.AlreadyProcessed)
	require.Equal(t, 17, env.items.available(5))

	// Same callback again: one booking, one decrement.
	second, err := env.svc.Verify(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
	assert.Equal(t, 17, env.items.available(5))
	assert.Equal(t, 1, env.bookings.count())
	assert.Equal(t, 1, env.sender.count(), "no second confirmation email")
}

func TestVerifySeatBoundaries(t *testing.T) {
	t.Run("exact remaining seats succeed and drain to zero", func(t *testing.T) {
		item := movieItem(2, 100, 4)
		env := newTestEnv(t, item)
		in := env.order(t, item, 4)

		_, err := env.svc.Verify(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 0, env.items.available(2))
	})

	t.Run("one more than remaining fails and leaves seats unchanged", func(t *testing.T) {
		item := movieItem(3, 100, 4)
		env := newTestEnv(t, item)
		in := env.order(t, item, 5)

		_, err := env.svc.Verify(context.Background(), in)
		assert.ErrorIs(t, err, repository.ErrInsufficientSeats)
		assert.Equal(t, 4, env.items.available(3))
		assert.Equal(t, 0, env.bookings.count())
	})

	t.Run("item deleted after order creation", func(t *testing.T) {
		item := movieItem(9, 100, 4)
		env := newTestEnv(t) // store is empty
		in := env.order(t, item, 1)

		_, err := env.svc.Verify(context.Background(), in)
		assert.ErrorIs(t, err, repository.ErrItemNotFound)
	})
}

func TestVerifyConcurrentSettlement(t *testing.T) {
	// Two verified payments each want all remaining seats: exactly one
	// may win, and inventory must never go negative.
	const seats = 5
	item := movieItem(7, 200, seats)
	env := newTestEnv(t, item)

	first := env.order(t, item, seats)
	second := env.order(t, item, seats)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, in := range []VerifyInput{first, second} {
		wg.Add(1)
		go func(i int, in VerifyInput) {
			defer wg.Done()
			_, errs[i] = env.svc.Verify(context.Background(), in)
		}(i, in)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, repository.ErrInsufficientSeats):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won, "exactly one settlement wins")
	assert.Equal(t, 1, lost, "the other loses the seat race")
	assert.Equal(t, 0, env.items.available(7))
	assert.Equal(t, 1, env.bookings.count())
}

func TestVerifyEmailFailureIsNonFatal(t *testing.T) {
	item := movieItem(4, 120, 10)
	env := newTestEnv(t, item)
	env.sender.fail = errors.New("smtp down")

	in := env.order(t, item, 2)
	in.Email = "fan@example.com"

	res, err := env.svc.Verify(context.Background(), in)
	require.NoError(t, err, "booking survives the email failure")
	assert.False(t, res.EmailSent)
	assert.Error(t, res.EmailErr)
	assert.Equal(t, 8, env.items.available(4))
	assert.Equal(t, 1, env.bookings.count())
}

func TestVerifyGuestCheckout(t *testing.T) {
	item := movieItem(6, 99, 10)
	env := newTestEnv(t, item)
	in := env.order(t, item, 1) // no user id, no email

	res, err := env.svc.Verify(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "guest", res.Booking.UserID)
	assert.False(t, res.EmailSent)
	assert.Nil(t, res.EmailErr)
	assert.Equal(t, 0, env.sender.count())
}
