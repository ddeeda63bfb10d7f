package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/eventbook/ticket-booking/internal/utils"
)

// ErrEmailExists is returned when registration hits the unique email
// index. Handlers map it to 409.
var ErrEmailExists = errors.New("email already exists")

// User is an account row. Role is ADMIN for staff managing the item
// catalogue, CUSTOMER for everyone who books tickets.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const userColumns = "id, email, password_hash, role, is_active, created_at, updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes the password and inserts the account. Emails are
// normalized to lower case so the unique index catches case variants too.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)`,
		normalizeEmail(email), hash, role)
	if err != nil {
		// MySQL 1062 = duplicate entry, here only possible on email.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.get(ctx, "email = ?", normalizeEmail(email))
}

// GetByID resolves the account for an authenticated request, e.g. the
// confirmation email address on a logged-in checkout.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *UserRepo) get(ctx context.Context, where string, arg any) (User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
