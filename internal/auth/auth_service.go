// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
)

// AccessTokenSigner issues and verifies access tokens.
type AccessTokenSigner interface {
	TokenIssuer
	TokenVerifier
}

// TokenTypeBearer is the token type reported to clients.
const TokenTypeBearer = "Bearer"

// AuthResult is returned by the operations that start or extend a session.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
	UserID       int64
	Email        string
	Role         Role
}

// RegisterParams holds the fields of a new account.
type RegisterParams struct {
	Email    string
	Password string
	Name     string
	Phone    *string
	Role     Role
}

func (p RegisterParams) validate() error {
	switch {
	case strings.TrimSpace(p.Email) == "":
		return oops.Code("AUTH_INVALID_EMAIL").Wrapf(ErrInvalidInput, "email is required")
	case p.Password == "":
		return oops.Code("AUTH_INVALID_PASSWORD").Wrapf(ErrInvalidInput, "password is required")
	case strings.TrimSpace(p.Name) == "":
		return oops.Code("AUTH_INVALID_NAME").Wrapf(ErrInvalidInput, "name is required")
	case !p.Role.Valid():
		return oops.Code("AUTH_INVALID_ROLE").
			With("role", string(p.Role)).
			Wrapf(ErrInvalidInput, "role must be one of TENANT, LANDLORD, ADMIN")
	}
	return nil
}

// Service provides the authentication operations.
type Service struct {
	users     UserRepository
	hasher    PasswordHasher
	signer    AccessTokenSigner
	refresh   *RefreshTokenService
	resets    *PasswordResetService
	tx        Transactor
	publisher EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEventPublisher sets the destination for domain events.
func WithEventPublisher(p EventPublisher) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithServiceClock overrides the time source used for event timestamps.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAuthService creates a new Service.
func NewAuthService(
	users UserRepository,
	hasher PasswordHasher,
	signer AccessTokenSigner,
	refresh *RefreshTokenService,
	resets *PasswordResetService,
	tx Transactor,
	opts ...ServiceOption,
) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if signer == nil {
		return nil, oops.Errorf("token signer is required")
	}
	if refresh == nil {
		return nil, oops.Errorf("refresh token service is required")
	}
	if resets == nil {
		return nil, oops.Errorf("password reset service is required")
	}
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}

	s := &Service{
		users:     users,
		hasher:    hasher,
		signer:    signer,
		refresh:   refresh,
		resets:    resets,
		tx:        tx,
		publisher: discardPublisher{},
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// dummyPasswordHash is verified when the email is unknown so that both paths
// cost one argon2id computation. It matches no password.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates an account and starts its first session.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*AuthResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	_, err := s.users.GetByEmail(ctx, p.Email)
	switch {
	case err == nil:
		return nil, emailTaken(p.Email)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	hashed, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(p.Email, hashed, p.Name, p.Phone, p.Role)
	if err != nil {
		return nil, err
	}

	var refreshToken string
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, ErrEmailAlreadyRegistered) {
				return emailTaken(p.Email)
			}
			return oops.Code("AUTH_REGISTER_FAILED").
				With("operation", "create user").
				Wrap(err)
		}
		token, _, err := s.refresh.Issue(ctx, user.ID)
		if err != nil {
			return oops.With("operation", "issue refresh token").Wrap(err)
		}
		refreshToken = token
		return nil
	})
	if err != nil {
		return nil, err
	}

	accessToken, err := s.signer.IssueAccessToken(user.Email, user.Authorities())
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "issue access token").
			With("user_id", user.ID).
			Wrap(err)
	}

	s.publish(ctx, TopicUserRegistered, UserRegistered{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		OccurredAt: s.now(),
	})

	return s.result(user, accessToken, refreshToken), nil
}

func emailTaken(email string) error {
	return oops.Code("AUTH_EMAIL_TAKEN").
		With("email", email).
		Wrapf(ErrEmailAlreadyRegistered, "email already registered")
}

// Login verifies credentials and starts a session. Any earlier refresh token of
// the user is replaced, so only one session stays refreshable.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, lookupErr := s.users.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify so unknown emails take as long as known ones.
	valid := s.hasher.Verify(password, targetHash)
	if !userExists || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrapf(ErrInvalidCredentials, "invalid email or password")
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	accessToken, err := s.signer.IssueAccessToken(user.Email, user.Authorities())
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue access token").
			With("user_id", user.ID).
			Wrap(err)
	}

	refreshToken, _, err := s.refresh.Issue(ctx, user.ID)
	if err != nil {
		return nil, oops.With("operation", "issue refresh token").Wrap(err)
	}

	return s.result(user, accessToken, refreshToken), nil
}

// upgradeHash rehashes a legacy digest. Login succeeds even if this fails.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed",
			"user_id", user.ID,
			"operation", "hash password",
			"error", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed",
			"user_id", user.ID,
			"operation", "update password",
			"error", err)
		return
	}
	user.PasswordHash = newHash
}

// Refresh exchanges a live refresh token for a new access token and rotates the
// refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	record, err := s.refresh.FindByToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	record, err = s.refresh.VerifyNotExpired(ctx, record)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("REFRESH_TOKEN_INVALID").
				With("user_id", record.UserID).
				Wrapf(ErrInvalidToken, "refresh token owner no longer exists")
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get user by id").
			With("user_id", record.UserID).
			Wrap(err)
	}

	accessToken, err := s.signer.IssueAccessToken(user.Email, user.Authorities())
	if err != nil {
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "issue access token").
			With("user_id", user.ID).
			Wrap(err)
	}

	rotated, _, err := s.refresh.Issue(ctx, user.ID)
	if err != nil {
		return nil, oops.With("operation", "rotate refresh token").Wrap(err)
	}

	return s.result(user, accessToken, rotated), nil
}

// Logout ends the user's refreshable session. Logging out twice succeeds.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.refresh.Revoke(ctx, userID)
}

// LogoutByAccessToken resolves the user from an access token and logs them out.
// A token for an account that no longer exists is treated as already logged out.
func (s *Service) LogoutByAccessToken(ctx context.Context, accessToken string) error {
	email, err := s.signer.ExtractSubject(accessToken)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return s.Logout(ctx, user.ID)
}

// ForgotPassword issues a reset token for the account with the given email and
// hands it to the event publisher for delivery. The token is also returned.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	res, err := s.resets.Initiate(ctx, email)
	if err != nil {
		return "", err
	}

	s.publish(ctx, TopicPasswordResetRequested, PasswordResetRequested{
		UserID:     res.UserID,
		Email:      res.Email,
		ResetToken: res.Token,
		ExpiresAt:  res.ExpiresAt,
		OccurredAt: s.now(),
	})

	return res.Token, nil
}

// ResetPassword sets a new password with a reset token. The user's refresh
// token is revoked so sessions started with the old password cannot be extended.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.resets.Complete(ctx, token, newPassword)
	if err != nil {
		return err
	}

	if err := s.refresh.Revoke(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke refresh token after password reset",
			"user_id", userID,
			"operation", "revoke refresh token",
			"error", err)
	}
	return nil
}

// Authenticate verifies an access token and returns its principal. No store is
// consulted.
func (s *Service) Authenticate(_ context.Context, accessToken string) (*Principal, error) {
	claims, err := s.signer.Parse(accessToken)
	if err != nil {
		return nil, err
	}

	role, ok := RoleFromAuthorities(claims.Authorities)
	if !ok {
		return nil, oops.Code("TOKEN_MALFORMED").
			With("subject", claims.Subject).
			Wrapf(ErrTokenMalformed, "token carries no known role")
	}

	return &Principal{
		Email:       claims.Subject,
		Role:        role,
		Authorities: claims.Authorities,
	}, nil
}

// PurgeExpired removes expired refresh and reset tokens.
func (s *Service) PurgeExpired(ctx context.Context) (refreshed, resets int64, err error) {
	refreshed, err = s.refresh.PurgeExpired(ctx)
	if err != nil {
		return 0, 0, err
	}
	resets, err = s.resets.PurgeExpired(ctx)
	if err != nil {
		return refreshed, 0, err
	}
	return refreshed, resets, nil
}

func (s *Service) result(user *User, accessToken, refreshToken string) *AuthResult {
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    s.signer.TTL(),
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
	}
}

// publish sends an event. Delivery failures are logged and never fail the caller.
func (s *Service) publish(ctx context.Context, topic string, payload any) {
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"topic", topic,
			"operation", "publish event",
			"error", err)
	}
}
