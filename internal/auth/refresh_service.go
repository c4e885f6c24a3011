// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// RefreshTokenService manages the refresh token lifecycle.
type RefreshTokenService struct {
	repo   RefreshTokenRepository
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// RefreshOption configures a RefreshTokenService.
type RefreshOption func(*RefreshTokenService)

// WithRefreshClock overrides the time source used for expiry decisions.
func WithRefreshClock(now func() time.Time) RefreshOption {
	return func(s *RefreshTokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRefreshLogger sets the logger.
func WithRefreshLogger(logger *slog.Logger) RefreshOption {
	return func(s *RefreshTokenService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRefreshTokenService creates a RefreshTokenService. A zero ttl uses DefaultRefreshTokenTTL.
func NewRefreshTokenService(repo RefreshTokenRepository, ttl time.Duration, opts ...RefreshOption) (*RefreshTokenService, error) {
	if repo == nil {
		return nil, oops.Errorf("refresh token repository is required")
	}
	if ttl < 0 {
		return nil, oops.Code("REFRESH_INVALID_TTL").With("ttl", ttl.String()).Errorf("refresh token TTL cannot be negative")
	}
	if ttl == 0 {
		ttl = DefaultRefreshTokenTTL
	}

	s := &RefreshTokenService{
		repo:   repo,
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the refresh token lifetime.
func (s *RefreshTokenService) TTL() time.Duration {
	return s.ttl
}

// Issue generates a new refresh token for the user, replacing any existing one.
// Returns the plaintext token and the stored record.
func (s *RefreshTokenService) Issue(ctx context.Context, userID int64) (string, *RefreshToken, error) {
	token, hash, err := GenerateOpaqueToken()
	if err != nil {
		return "", nil, oops.Code("REFRESH_ISSUE_FAILED").
			With("operation", "generate token").
			With("user_id", userID).
			Wrap(err)
	}

	record, err := NewRefreshToken(userID, hash, s.now().Add(s.ttl))
	if err != nil {
		return "", nil, oops.Code("REFRESH_ISSUE_FAILED").
			With("operation", "new refresh token").
			With("user_id", userID).
			Wrap(err)
	}

	if err := s.repo.Replace(ctx, record); err != nil {
		return "", nil, oops.Code("REFRESH_ISSUE_FAILED").
			With("operation", "replace refresh token").
			With("user_id", userID).
			Wrap(err)
	}

	return token, record, nil
}

// FindByToken looks up the stored record for a plaintext refresh token.
func (s *RefreshTokenService) FindByToken(ctx context.Context, token string) (*RefreshToken, error) {
	if token == "" {
		return nil, oops.Code("REFRESH_TOKEN_INVALID").Wrapf(ErrInvalidToken, "refresh token cannot be empty")
	}

	record, err := s.repo.GetByTokenHash(ctx, HashOpaqueToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("REFRESH_TOKEN_INVALID").Wrapf(ErrInvalidToken, "refresh token not found")
		}
		return nil, oops.Code("REFRESH_LOOKUP_FAILED").
			With("operation", "get refresh token by hash").
			Wrap(err)
	}
	return record, nil
}

// VerifyNotExpired returns the record if it is still live. An expired record is
// deleted before ErrTokenExpired is returned.
func (s *RefreshTokenService) VerifyNotExpired(ctx context.Context, record *RefreshToken) (*RefreshToken, error) {
	if !record.IsExpiredAt(s.now()) {
		return record, nil
	}

	if err := s.repo.Delete(ctx, record.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("REFRESH_DELETE_FAILED").
			With("operation", "delete expired refresh token").
			With("user_id", record.UserID).
			Wrap(err)
	}

	s.logger.DebugContext(ctx, "expired refresh token removed", "user_id", record.UserID)
	return nil, oops.Code("REFRESH_TOKEN_EXPIRED").
		With("user_id", record.UserID).
		With("expired_at", record.ExpiresAt).
		Wrapf(ErrTokenExpired, "refresh token has expired")
}

// Revoke deletes the user's refresh token. Revoking a user with no token succeeds.
func (s *RefreshTokenService) Revoke(ctx context.Context, userID int64) error {
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return oops.Code("REFRESH_REVOKE_FAILED").
			With("operation", "delete refresh token by user").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// PurgeExpired removes every expired refresh token.
func (s *RefreshTokenService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("REFRESH_PURGE_FAILED").
			With("operation", "delete expired refresh tokens").
			Wrap(err)
	}
	return n, nil
}
