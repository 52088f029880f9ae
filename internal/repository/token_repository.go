package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
)

// TokenRepo persists refresh tokens by their SHA-256 hash.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

const tokenColumns = "id, user_id, token_hash, status, created_at, expires_at, revoked_at"

// Store inserts a refresh token row.  It returns only after the row is
// committed, so a token handed to a client is always redeemable.
func (r *TokenRepo) Store(ctx context.Context, t model.RefreshToken) error {
	return insertToken(ctx, r.DB, t)
}

// GetByHash loads a token by hash regardless of its state.
func (r *TokenRepo) GetByHash(ctx context.Context, hash string) (model.RefreshToken, error) {
	var (
		t         model.RefreshToken
		status    string
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+tokenColumns+" FROM refresh_tokens WHERE token_hash=? LIMIT 1", hash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &status, &t.CreatedAt, &t.ExpiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return model.RefreshToken{}, err
	}
	t.Status = model.TokenStatus(status)
	if revokedAt.Valid {
		ts := revokedAt.Time
		t.RevokedAt = &ts
	}
	return t, nil
}

// Rotate consumes the token identified by oldHash and stores next in one
// transaction.  The conditional UPDATE only matches an Active, unexpired
// row, so of two concurrent redemptions exactly one affects a row; the
// other gets ErrTokenInactive and stores nothing.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash string, next model.RefreshToken, now time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET status=?, revoked_at=? WHERE token_hash=? AND user_id=? AND status=? AND expires_at > ?",
		string(model.TokenRevoked), now.UTC(), oldHash, next.UserID, string(model.TokenActive), now.UTC())
	if err != nil {
		return mapTxErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrTokenInactive
	}
	if err := insertToken(ctx, tx, next); err != nil {
		return mapTxErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapTxErr(err)
	}
	committed = true
	return nil
}

// Revoke marks a token as revoked.  Unknown and already revoked tokens
// are left alone without error.
func (r *TokenRepo) Revoke(ctx context.Context, hash string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET status=?, revoked_at=? WHERE token_hash=? AND status=?",
		string(model.TokenRevoked), now.UTC(), hash, string(model.TokenActive))
	return err
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET status=?, revoked_at=? WHERE user_id=? AND status=?",
		string(model.TokenRevoked), now.UTC(), userID, string(model.TokenActive))
	return err
}

func insertToken(ctx context.Context, q queryer, t model.RefreshToken) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id, user_id, token_hash, status, created_at, expires_at) VALUES (?,?,?,?,?,?)",
		t.ID, t.UserID, t.TokenHash, string(t.Status), t.CreatedAt.UTC(), t.ExpiresAt.UTC())
	return err
}
