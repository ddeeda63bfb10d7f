package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventbook/ticket-booking/internal/email"
	"github.com/eventbook/ticket-booking/internal/model"
	"github.com/eventbook/ticket-booking/internal/payment"
	"github.com/eventbook/ticket-booking/internal/repository"
	"github.com/eventbook/ticket-booking/internal/service"
)

const testSecret = "test_key_secret"

// stubGateway implements payment.Gateway over a local order map.
type stubGateway struct {
	mu       sync.Mutex
	orders   map[string]payment.Order
	fetchErr error
}

func newStubGateway() *stubGateway {
	return &stubGateway{orders: make(map[string]payment.Order)}
}

func (g *stubGateway) CreateOrder(_ context.Context, amountPaise int64, currency, receipt string, notes payment.OrderNotes) (payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o := payment.Order{
		ID:       fmt.Sprintf("order_stub_%d", len(g.orders)+1),
		Amount:   amountPaise,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	}
	g.orders[o.ID] = o
	return o, nil
}

func (g *stubGateway) FetchOrder(_ context.Context, orderID string) (payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return payment.Order{}, g.fetchErr
	}
	o, ok := g.orders[orderID]
	if !ok {
		return payment.Order{}, fmt.Errorf("order %s not found", orderID)
	}
	return o, nil
}

// stubItems holds at most one item.
type stubItems struct {
	mu   sync.Mutex
	item *model.Item
}

func (s *stubItems) GetByID(_ context.Context, id uint64) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.item == nil || s.item.ID != id {
		return model.Item{}, repository.ErrItemNotFound
	}
	return *s.item, nil
}

func (s *stubItems) DecrementSeats(_ context.Context, id uint64, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.item == nil || s.item.ID != id {
		return repository.ErrItemNotFound
	}
	if s.item.AvailableSeats < count {
		return repository.ErrInsufficientSeats
	}
	s.item.AvailableSeats -= count
	return nil
}

func (s *stubItems) IncrementSeats(_ context.Context, id uint64, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.item == nil || s.item.ID != id {
		return repository.ErrItemNotFound
	}
	s.item.AvailableSeats += count
	return nil
}

type stubBookings struct {
	mu        sync.Mutex
	byPayment map[string]model.Booking
}

func newStubBookings() *stubBookings {
	return &stubBookings{byPayment: make(map[string]model.Booking)}
}

func (s *stubBookings) Create(_ context.Context, b model.Booking) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPayment[b.PaymentID]; ok {
		return model.Booking{}, repository.ErrDuplicatePayment
	}
	b.ID = fmt.Sprintf("bk_%d", len(s.byPayment)+1)
	b.CreatedAt = time.Now().UTC()
	s.byPayment[b.PaymentID] = b
	return b, nil
}

func (s *stubBookings) GetByPaymentID(_ context.Context, paymentID string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byPayment[paymentID]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	return b, nil
}

type noopSender struct{ fail error }

func (n noopSender) SendConfirmation(context.Context, email.Confirmation) error { return n.fail }

type fixture struct {
	gw       *stubGateway
	items    *stubItems
	bookings *stubBookings
	ph       *PaymentHandler
	oh       *OrderHandler
}

func newFixture(item *model.Item, sender email.Sender) *fixture {
	gw := newStubGateway()
	items := &stubItems{item: item}
	store := newStubBookings()
	if sender == nil {
		sender = noopSender{}
	}
	svc := service.NewBookingService(gw, testSecret, items, store,
		sender, nil, zap.NewNop())
	orders := service.NewOrderService(gw, zap.NewNop())
	return &fixture{
		gw:       gw,
		items:    items,
		bookings: store,
		ph:       NewPaymentHandler(svc),
		oh:       NewOrderHandler(orders),
	}
}

// signedCallback opens an order through the stub gateway and returns the
// verify request body the browser would post.
func (f *fixture) signedCallback(t *testing.T, item model.Item, tickets int) map[string]string {
	t.Helper()
	o, err := f.gw.CreateOrder(context.Background(),
		int64(item.Price*float64(tickets)*100), "INR", "item_test",
		payment.OrderNotes{ItemID: item.ID, ItemKind: item.Kind, TicketCount: tickets})
	require.NoError(t, err)
	paymentID := fmt.Sprintf("pay_%s", o.ID)
	return map[string]string{
		"paymentId": paymentID,
		"orderId":   o.ID,
		"signature": payment.SignPayload(testSecret, o.ID, paymentID),
	}
}

func doJSON(t *testing.T, h echo.HandlerFunc, body any, setup ...func(echo.Context)) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(string(raw)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	for _, fn := range setup {
		fn(c)
	}
	require.NoError(t, h(c))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func sportItem(seats int) model.Item {
	return model.Item{
		ID:             21,
		Kind:           model.KindSport,
		Title:          "IND vs AUS",
		EventDate:      time.Date(2026, 11, 14, 14, 0, 0, 0, time.UTC),
		Venue:          "Wankhede Stadium, Mumbai",
		Price:          800,
		TotalSeats:     seats,
		AvailableSeats: seats,
	}
}

func TestPaymentVerifyStatusMapping(t *testing.T) {
	t.Run("success returns 200 with booking id", func(t *testing.T) {
		item := sportItem(50)
		f := newFixture(&item, nil)
		body := f.signedCallback(t, item, 2)
		body["email"] = "fan@example.com"

		rec, resp := doJSON(t, f.ph.Verify, body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "success", resp["status"])
		assert.NotEmpty(t, resp["bookingId"])
		assert.NotContains(t, resp, "warning")
	})

	t.Run("tampered signature returns 400", func(t *testing.T) {
		item := sportItem(50)
		f := newFixture(&item, nil)
		body := f.signedCallback(t, item, 2)
		body["signature"] = payment.SignPayload("wrong", body["orderId"], body["paymentId"])

		rec, resp := doJSON(t, f.ph.Verify, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, resp["error"], "invalid signature")
	})

	t.Run("missing fields return 400", func(t *testing.T) {
		item := sportItem(50)
		f := newFixture(&item, nil)

		rec, _ := doJSON(t, f.ph.Verify, map[string]string{"paymentId": "pay_x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("deleted item returns 404", func(t *testing.T) {
		item := sportItem(50)
		f := newFixture(nil, nil) // store is empty
		body := f.signedCallback(t, item, 1)

		rec, _ := doJSON(t, f.ph.Verify, body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("seat race lost returns 409", func(t *testing.T) {
		item := sportItem(1)
		f := newFixture(&item, nil)
		body := f.signedCallback(t, item, 2)

		rec, resp := doJSON(t, f.ph.Verify, body)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, resp["error"], "seats")
	})

	t.Run("processor failure returns 502", func(t *testing.T) {
		item := sportItem(50)
		f := newFixture(&item, nil)
		body := f.signedCallback(t, item, 1)
		f.gw.fetchErr = errors.New("processor unreachable")

		rec, _ := doJSON(t, f.ph.Verify, body)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("email failure still confirms with warning", func(t *testing.T) {
		item := sportItem(50)
		f := newFixture(&item, noopSender{fail: errors.New("smtp down")})
		body := f.signedCallback(t, item, 1)
		body["email"] = "fan@example.com"

		rec, resp := doJSON(t, f.ph.Verify, body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "success", resp["status"])
		assert.Contains(t, resp, "warning")
	})

	t.Run("duplicate callback returns 200 with message", func(t *testing.T) {
		item := sportItem(50)
		f := newFixture(&item, nil)
		body := f.signedCallback(t, item, 2)

		rec, first := doJSON(t, f.ph.Verify, body)
		require.Equal(t, http.StatusOK, rec.Code)
		rec, second := doJSON(t, f.ph.Verify, body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "payment already processed", second["message"])
		assert.Equal(t, first["bookingId"], second["bookingId"])
	})
}

func TestPaymentVerifyPrefersAuthenticatedUser(t *testing.T) {
	item := sportItem(50)
	f := newFixture(&item, nil)
	body := f.signedCallback(t, item, 1)
	body["userId"] = "spoofed"

	rec, _ := doJSON(t, f.ph.Verify, body, func(c echo.Context) {
		c.Set("user_id", "user-42")
	})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.bookings.GetByPaymentID(context.Background(), body["paymentId"])
	require.NoError(t, err)
	assert.Equal(t, "user-42", stored.UserID, "middleware identity wins over client-supplied id")
}

func TestOrderCreateStatusMapping(t *testing.T) {
	validBody := func() map[string]any {
		return map[string]any{
			"amount":      1600.00,
			"itemId":      21,
			"itemType":    "sport",
			"ticketCount": 2,
		}
	}

	t.Run("valid request returns 201 with order id", func(t *testing.T) {
		f := newFixture(nil, nil)
		rec, resp := doJSON(t, f.oh.Create, validBody())
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NotEmpty(t, resp["orderId"])
		assert.Equal(t, float64(160000), resp["amount"]) // paise
		assert.Equal(t, "INR", resp["currency"])
	})

	t.Run("non purchasable type returns 400", func(t *testing.T) {
		f := newFixture(nil, nil)
		body := validBody()
		body["itemType"] = "show"
		rec, _ := doJSON(t, f.oh.Create, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad upi address returns 400", func(t *testing.T) {
		f := newFixture(nil, nil)
		body := validBody()
		body["paymentMethod"] = "upi"
		body["payeeAddress"] = "not a vpa"
		rec, _ := doJSON(t, f.oh.Create, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upi details echoed back", func(t *testing.T) {
		f := newFixture(nil, nil)
		body := validBody()
		body["paymentMethod"] = "upi"
		body["payeeAddress"] = "fan@okaxis"
		rec, resp := doJSON(t, f.oh.Create, body)
		require.Equal(t, http.StatusCreated, rec.Code)
		upi, ok := resp["upi"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "fan@okaxis", upi["vpa"])
	})
}
