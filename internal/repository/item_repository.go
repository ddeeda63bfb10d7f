package repository // repository for bookable item persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/eventbook/ticket-booking/internal/model"
)

// ItemRepo encapsulates database operations for the items table. All
// three item kinds share the table; list queries filter on the kind
// column and kind-specific metadata lives in nullable columns.
type ItemRepo struct {
	db *sql.DB
}

// NewItemRepo constructs an ItemRepo given a DB handle.
func NewItemRepo(db *sql.DB) *ItemRepo {
	return &ItemRepo{db: db}
}

const itemColumns = `id, kind, title, description, event_date, venue, price,
	total_seats, available_seats, image, director, genre, duration_min,
	teams, sport_type, performers, created_at, updated_at`

// GetByID fetches a single item regardless of kind.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (model.Item, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ? LIMIT 1`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return model.Item{}, ErrItemNotFound
	}
	return it, err
}

// ListByKind returns all items of one kind ordered by event date. Used by
// the browse endpoints; results are cached at the HTTP layer.
func (r *ItemRepo) ListByKind(ctx context.Context, kind model.ItemKind) ([]model.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE kind = ? ORDER BY event_date`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Create inserts a new item and returns its id. available_seats starts
// equal to total_seats; only settlement moves it afterwards.
func (r *ItemRepo) Create(ctx context.Context, it model.Item) (uint64, error) {
	teams, err := marshalList(it.Teams)
	if err != nil {
		return 0, err
	}
	performers, err := marshalList(it.Performers)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO items
		 (kind, title, description, event_date, venue, price, total_seats,
		  available_seats, image, director, genre, duration_min, teams,
		  sport_type, performers)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		string(it.Kind), it.Title, it.Description, it.EventDate, it.Venue,
		it.Price, it.TotalSeats, it.TotalSeats, it.Image,
		it.Director, it.Genre, it.DurationMin, teams, it.SportType, performers)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// DecrementSeats atomically takes count seats from an item. The WHERE
// clause carries the availability check so two concurrent settlements for
// the same item cannot both succeed when only one of them fits; the
// losing update matches zero rows. A read-then-write pair here would be a
// race.
func (r *ItemRepo) DecrementSeats(ctx context.Context, id uint64, count int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET available_seats = available_seats - ?
		 WHERE id = ? AND available_seats >= ?`,
		count, id, count)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	// Zero rows: either the item is gone or not enough seats remain.
	var exists int
	err = r.db.QueryRowContext(ctx,
		`SELECT 1 FROM items WHERE id = ? LIMIT 1`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrItemNotFound
	}
	if err != nil {
		return err
	}
	return ErrInsufficientSeats
}

// IncrementSeats returns count seats to an item, capped at total_seats.
// Used to compensate a decrement when the booking insert afterwards loses
// a duplicate-payment race, and the building block for any future
// cancellation path.
func (r *ItemRepo) IncrementSeats(ctx context.Context, id uint64, count int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE items SET available_seats = LEAST(available_seats + ?, total_seats)
		 WHERE id = ?`,
		count, id)
	return err
}

// SetAvailableSeats overwrites the seat count directly. Reserved for the
// internal admin PATCH; the checkout flow never calls it.
func (r *ItemRepo) SetAvailableSeats(ctx context.Context, id uint64, seats int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET available_seats = ?
		 WHERE id = ? AND ? BETWEEN 0 AND total_seats`,
		seats, id, seats)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a bad seat count from a missing item.
		var exists int
		if err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM items WHERE id = ? LIMIT 1`, id).Scan(&exists); err == sql.ErrNoRows {
			return ErrItemNotFound
		} else if err != nil {
			return err
		}
		return ErrInsufficientSeats
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanItem.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (model.Item, error) {
	var (
		it          model.Item
		kind        string
		description sql.NullString
		image       sql.NullString
		director    sql.NullString
		genre       sql.NullString
		duration    sql.NullInt64
		teams       sql.NullString
		sportType   sql.NullString
		performers  sql.NullString
	)
	err := s.Scan(&it.ID, &kind, &it.Title, &description, &it.EventDate,
		&it.Venue, &it.Price, &it.TotalSeats, &it.AvailableSeats, &image,
		&director, &genre, &duration, &teams, &sportType, &performers,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return model.Item{}, err
	}
	it.Kind = model.ItemKind(kind)
	it.Description = description.String
	it.Image = image.String
	if director.Valid {
		it.Director = &director.String
	}
	if genre.Valid {
		it.Genre = &genre.String
	}
	if duration.Valid {
		d := int(duration.Int64)
		it.DurationMin = &d
	}
	if sportType.Valid {
		it.SportType = &sportType.String
	}
	if it.Teams, err = unmarshalList(teams); err != nil {
		return model.Item{}, err
	}
	if it.Performers, err = unmarshalList(performers); err != nil {
		return model.Item{}, err
	}
	return it, nil
}

// marshalList stores string slices as JSON text; NULL when empty.
func marshalList(v []string) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalList(v sql.NullString) ([]string, error) {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}
