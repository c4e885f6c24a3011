// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/flatrent/flatrent/internal/auth"
)

// RefreshTokenRepository implements auth.RefreshTokenRepository using PostgreSQL.
type RefreshTokenRepository struct {
	pool poolIface
}

// NewRefreshTokenRepository creates a new RefreshTokenRepository.
func NewRefreshTokenRepository(pool poolIface) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

// Replace stores token as the user's only refresh token. The upsert on the
// user_id unique key keeps concurrent replacements for one user from failing.
func (r *RefreshTokenRepository) Replace(ctx context.Context, token *auth.RefreshToken) error {
	_, err := execerFromCtx(ctx, r.pool).Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			id = EXCLUDED.id,
			token_hash = EXCLUDED.token_hash,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at
	`, token.ID.String(), token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return oops.Code("REFRESH_REPLACE_FAILED").
			With("operation", "upsert refresh_token").
			With("user_id", token.UserID).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a token by the hash of its plaintext.
func (r *RefreshTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	row := execerFromCtx(ctx, r.pool).QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`, tokenHash)

	var (
		idStr string
		t     auth.RefreshToken
	)
	err := row.Scan(&idStr, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("REFRESH_TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("REFRESH_SCAN_FAILED").
			With("operation", "scan refresh_token").
			Wrap(err)
	}

	t.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("REFRESH_INVALID_ID").
			With("operation", "parse refresh token id").
			With("id", idStr).
			Wrap(err)
	}
	return &t, nil
}

// Delete removes a token by ID.
func (r *RefreshTokenRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := execerFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("REFRESH_DELETE_FAILED").
			With("operation", "delete refresh_token").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("REFRESH_TOKEN_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes the user's token. Deleting nothing is not an error.
func (r *RefreshTokenRepository) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := execerFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return oops.Code("REFRESH_DELETE_BY_USER_FAILED").
			With("operation", "delete refresh_tokens by user").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all expired tokens and returns the count.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := execerFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, time.Now())
	if err != nil {
		return 0, oops.Code("REFRESH_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired refresh_tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
