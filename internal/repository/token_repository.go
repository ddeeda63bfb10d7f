package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo stores refresh tokens by hash. The raw token only ever lives
// in the client; a leaked table cannot be replayed.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		userID, tokenHash, exp)
	return err
}

// ValidateRefresh resolves a presented token hash to its user. Expiry and
// revocation are checked in the query so the Go side never sees a token
// that is syntactically valid but dead; a miss is sql.ErrNoRows either way,
// which keeps "expired", "revoked" and "unknown" indistinguishable to the
// client.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var userID uint64
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id FROM refresh_tokens
		 WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()
		 LIMIT 1`, tokenHash).Scan(&userID)
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// RevokeByHash retires a token on logout or rotation. Revoking an already
// revoked or unknown hash is a no-op.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ? AND revoked_at IS NULL`,
		tokenHash)
	return err
}
