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

// PasswordResetRepository implements auth.PasswordResetRepository using PostgreSQL.
type PasswordResetRepository struct {
	pool poolIface
}

// NewPasswordResetRepository creates a new PasswordResetRepository.
func NewPasswordResetRepository(pool poolIface) *PasswordResetRepository {
	return &PasswordResetRepository{pool: pool}
}

// Replace stores reset as the user's only pending reset, overwriting any
// earlier one in a single statement.
func (r *PasswordResetRepository) Replace(ctx context.Context, reset *auth.PasswordReset) error {
	_, err := execerFromCtx(ctx, r.pool).Exec(ctx, `
		INSERT INTO password_resets (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			id = EXCLUDED.id,
			token_hash = EXCLUDED.token_hash,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at
	`, reset.ID.String(), reset.UserID, reset.TokenHash, reset.ExpiresAt, reset.CreatedAt)
	if err != nil {
		return oops.Code("RESET_REPLACE_FAILED").
			With("operation", "upsert password_reset").
			With("user_id", reset.UserID).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a reset by its token hash.
func (r *PasswordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.PasswordReset, error) {
	row := execerFromCtx(ctx, r.pool).QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM password_resets
		WHERE token_hash = $1
	`, tokenHash)

	reset, err := scanReset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return reset, nil
}

// Delete removes a reset. Returns ErrNotFound if it was already consumed.
func (r *PasswordResetRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := execerFromCtx(ctx, r.pool).Exec(ctx, `
		DELETE FROM password_resets WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("RESET_DELETE_FAILED").
			With("operation", "delete password_reset").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("RESET_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes the user's pending reset.
func (r *PasswordResetRepository) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := execerFromCtx(ctx, r.pool).Exec(ctx, `
		DELETE FROM password_resets WHERE user_id = $1
	`, userID)
	if err != nil {
		return oops.Code("RESET_DELETE_BY_USER_FAILED").
			With("operation", "delete password_resets by user").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all expired resets and returns the count.
func (r *PasswordResetRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := execerFromCtx(ctx, r.pool).Exec(ctx, `
		DELETE FROM password_resets WHERE expires_at < $1
	`, time.Now())
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired password_resets").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanReset scans a single row into a PasswordReset.
// Callers are responsible for handling pgx.ErrNoRows.
func scanReset(row pgx.Row) (*auth.PasswordReset, error) {
	var (
		idStr string
		reset auth.PasswordReset
	)

	err := row.Scan(&idStr, &reset.UserID, &reset.TokenHash, &reset.ExpiresAt, &reset.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("RESET_SCAN_FAILED").
			With("operation", "scan password_reset").
			Wrap(err)
	}

	reset.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("RESET_INVALID_ID").
			With("operation", "parse reset id").
			With("id", idStr).
			Wrap(err)
	}
	return &reset, nil
}

// Compile-time interface check.
var _ auth.PasswordResetRepository = (*PasswordResetRepository)(nil)
