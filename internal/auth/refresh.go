// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultRefreshTokenTTL matches the lifetime of refresh tokens in the previous backend.
const DefaultRefreshTokenTTL = 7 * 24 * time.Hour

// RefreshToken is the stored half of a refresh token. Each user has at most one.
type RefreshToken struct {
	ID        ulid.ULID
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewRefreshToken creates a RefreshToken with validated fields.
func NewRefreshToken(userID int64, tokenHash string, expiresAt time.Time) (*RefreshToken, error) {
	if userID <= 0 {
		return nil, oops.Code("REFRESH_TOKEN_INVALID").With("user_id", userID).Errorf("user id must be positive")
	}
	if tokenHash == "" {
		return nil, oops.Code("REFRESH_TOKEN_INVALID").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("REFRESH_TOKEN_INVALID").Errorf("expiry cannot be zero")
	}
	return &RefreshToken{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpiredAt reports whether the token has expired at the given instant.
func (t *RefreshToken) IsExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// RefreshTokenRepository manages refresh token persistence.
type RefreshTokenRepository interface {
	// Replace atomically makes token the only token owned by token.UserID.
	// Concurrent calls for one user must all succeed, the last write wins.
	Replace(ctx context.Context, token *RefreshToken) error

	// GetByTokenHash retrieves a token by the hash of its plaintext.
	GetByTokenHash(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// Delete removes a token by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByUser removes the token owned by a user. No error if none exists.
	DeleteByUser(ctx context.Context, userID int64) error

	// DeleteExpired removes all expired tokens and returns the count.
	DeleteExpired(ctx context.Context) (int64, error)
}
