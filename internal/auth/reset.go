// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultResetTokenTTL is the lifetime of a password reset token.
const DefaultResetTokenTTL = time.Hour

// PasswordReset is a pending password reset. Each user has at most one.
type PasswordReset struct {
	ID        ulid.ULID
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewPasswordReset creates a PasswordReset with validated fields.
func NewPasswordReset(userID int64, tokenHash string, expiresAt time.Time) (*PasswordReset, error) {
	if userID <= 0 {
		return nil, oops.Code("RESET_INVALID").With("user_id", userID).Errorf("user id must be positive")
	}
	if tokenHash == "" {
		return nil, oops.Code("RESET_INVALID").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("RESET_INVALID").Errorf("expiry cannot be zero")
	}
	return &PasswordReset{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpiredAt reports whether the reset has expired at the given instant.
func (r *PasswordReset) IsExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// PasswordResetRepository manages password reset persistence.
type PasswordResetRepository interface {
	// Replace atomically makes reset the only pending reset for reset.UserID.
	Replace(ctx context.Context, reset *PasswordReset) error

	// GetByTokenHash retrieves a reset by the hash of its plaintext token.
	GetByTokenHash(ctx context.Context, tokenHash string) (*PasswordReset, error)

	// Delete removes a reset by ID. Returns ErrNotFound if it was already gone.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByUser removes the reset owned by a user. No error if none exists.
	DeleteByUser(ctx context.Context, userID int64) error

	// DeleteExpired removes all expired resets and returns the count.
	DeleteExpired(ctx context.Context) (int64, error)
}
