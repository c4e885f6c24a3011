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

// PasswordResetService handles the password reset token lifecycle.
type PasswordResetService struct {
	users  UserRepository
	resets PasswordResetRepository
	hasher PasswordHasher
	tx     Transactor
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// ResetOption configures a PasswordResetService.
type ResetOption func(*PasswordResetService)

// WithResetTTL sets the reset token lifetime.
func WithResetTTL(ttl time.Duration) ResetOption {
	return func(s *PasswordResetService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithResetClock overrides the time source used for expiry decisions.
func WithResetClock(now func() time.Time) ResetOption {
	return func(s *PasswordResetService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithResetLogger sets the logger.
func WithResetLogger(logger *slog.Logger) ResetOption {
	return func(s *PasswordResetService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPasswordResetService creates a new PasswordResetService.
func NewPasswordResetService(
	users UserRepository,
	resets PasswordResetRepository,
	hasher PasswordHasher,
	tx Transactor,
	opts ...ResetOption,
) (*PasswordResetService, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if resets == nil {
		return nil, oops.Errorf("reset repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}

	s := &PasswordResetService{
		users:  users,
		resets: resets,
		hasher: hasher,
		tx:     tx,
		ttl:    DefaultResetTokenTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// InitiateResult describes a freshly issued reset token.
type InitiateResult struct {
	Token     string
	UserID    int64
	Email     string
	ExpiresAt time.Time
}

// Initiate issues a reset token for the user with the given email, replacing any
// earlier one. Fails with ErrUserNotFound when no user has that email.
func (s *PasswordResetService) Initiate(ctx context.Context, email string) (*InitiateResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("RESET_USER_NOT_FOUND").
				With("email", email).
				Wrapf(ErrUserNotFound, "no user with that email")
		}
		return nil, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, hash, err := GenerateOpaqueToken()
	if err != nil {
		return nil, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	reset, err := NewPasswordReset(user.ID, hash, s.now().Add(s.ttl))
	if err != nil {
		return nil, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "new password reset").
			Wrap(err)
	}

	if err := s.resets.Replace(ctx, reset); err != nil {
		return nil, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "replace password reset").
			With("user_id", user.ID).
			Wrap(err)
	}

	return &InitiateResult{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: reset.ExpiresAt,
	}, nil
}

// Complete sets a new password using a reset token and consumes the token.
// Returns the ID of the user whose password changed.
func (s *PasswordResetService) Complete(ctx context.Context, token, newPassword string) (int64, error) {
	if newPassword == "" {
		return 0, oops.Code("RESET_PASSWORD_EMPTY").Wrapf(ErrInvalidInput, "new password cannot be empty")
	}
	if token == "" {
		return 0, oops.Code("RESET_TOKEN_INVALID").Wrapf(ErrInvalidToken, "reset token cannot be empty")
	}

	reset, err := s.resets.GetByTokenHash(ctx, HashOpaqueToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, oops.Code("RESET_TOKEN_INVALID").Wrapf(ErrInvalidToken, "reset token not found")
		}
		return 0, oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "get reset by token hash").
			Wrap(err)
	}

	if reset.IsExpiredAt(s.now()) {
		if err := s.resets.Delete(ctx, reset.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return 0, oops.Code("RESET_DELETE_FAILED").
				With("operation", "delete expired reset").
				With("user_id", reset.UserID).
				Wrap(err)
		}
		return 0, oops.Code("RESET_TOKEN_EXPIRED").
			With("user_id", reset.UserID).
			Wrapf(ErrTokenExpired, "reset token has expired")
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return 0, oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	// Deleting first makes a concurrent second use of the same token find no row.
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.resets.Delete(ctx, reset.ID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code("RESET_TOKEN_INVALID").Wrapf(ErrInvalidToken, "reset token already used")
			}
			return oops.Code("RESET_PASSWORD_FAILED").
				With("operation", "delete used reset").
				Wrap(err)
		}
		if err := s.users.UpdatePassword(ctx, reset.UserID, hashed); err != nil {
			return oops.Code("RESET_PASSWORD_FAILED").
				With("operation", "update password").
				With("user_id", reset.UserID).
				Wrap(err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "password reset completed", "user_id", reset.UserID)
	return reset.UserID, nil
}

// PurgeExpired removes every expired reset token.
func (s *PasswordResetService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.resets.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("RESET_PURGE_FAILED").
			With("operation", "delete expired password resets").
			Wrap(err)
	}
	return n, nil
}
