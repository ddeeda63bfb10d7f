package repository // repository for booking persistence

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eventbook/ticket-booking/internal/model"
)

// BookingRepo encapsulates database operations for the bookings table.
// The payment_id column carries a UNIQUE index: the lookup-then-insert in
// the service layer handles the common retry case, and the index is the
// backstop when two verifications of the same payment interleave.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo given a DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// Create inserts a confirmed booking and returns it with its generated id
// and timestamp filled in. ErrDuplicatePayment is returned when a booking
// for the same payment id already exists.
func (r *BookingRepo) Create(ctx context.Context, b model.Booking) (model.Booking, error) {
	b.ID = uuid.NewString()
	if b.Status == "" {
		b.Status = model.BookingConfirmed
	}
	b.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings
		 (id, user_id, item_id, item_kind, item_title, event_date, venue,
		  ticket_count, total_price, payment_id, order_id, status, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.ID, b.UserID, b.ItemID, string(b.ItemKind), b.ItemTitle, b.EventDate,
		b.Venue, b.TicketCount, b.TotalPrice, b.PaymentID, b.OrderID,
		string(b.Status), b.CreatedAt)
	if err != nil {
		// MySQL 1062 = duplicate entry, here only possible on payment_id.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Booking{}, ErrDuplicatePayment
		}
		return model.Booking{}, err
	}
	return b, nil
}

// GetByPaymentID fetches the booking recorded for a payment, if any. This
// is the idempotence check consulted before every settlement.
func (r *BookingRepo) GetByPaymentID(ctx context.Context, paymentID string) (model.Booking, error) {
	return r.get(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE payment_id = ? LIMIT 1`,
		paymentID)
}

// LatestByUser returns the most recent booking for a user, used by the
// confirmation page.
func (r *BookingRepo) LatestByUser(ctx context.Context, userID string) (model.Booking, error) {
	return r.get(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT 1`,
		userID)
}

const bookingColumns = `id, user_id, item_id, item_kind, item_title, event_date,
	venue, ticket_count, total_price, payment_id, order_id, status, created_at`

func (r *BookingRepo) get(ctx context.Context, query string, args ...any) (model.Booking, error) {
	var (
		b      model.Booking
		kind   string
		status string
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&b.ID, &b.UserID, &b.ItemID, &kind, &b.ItemTitle, &b.EventDate,
		&b.Venue, &b.TicketCount, &b.TotalPrice, &b.PaymentID, &b.OrderID,
		&status, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	b.ItemKind = model.ItemKind(kind)
	b.Status = model.BookingStatus(status)
	return b, nil
}
