// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// MinSecretLength is the minimum HMAC key length accepted by NewJWTSigner.
const MinSecretLength = 32

// DefaultAccessTokenTTL is used when no access token TTL is configured.
const DefaultAccessTokenTTL = 15 * time.Minute

// AccessClaims are the claims carried by an access token.
type AccessClaims struct {
	Authorities []string `json:"authorities"`
	jwt.RegisteredClaims
}

// TokenIssuer mints access tokens.
type TokenIssuer interface {
	IssueAccessToken(subject string, authorities []string) (string, error)
	TTL() time.Duration
}

// TokenVerifier verifies access tokens.
type TokenVerifier interface {
	Validate(token string) bool
	ExtractSubject(token string) (string, error)
	Parse(token string) (*AccessClaims, error)
}

// JWTSigner issues and verifies HS256-signed access tokens.
// It is immutable after construction and safe for concurrent use.
type JWTSigner struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// SignerOption configures a JWTSigner.
type SignerOption func(*JWTSigner)

// WithClock overrides the signer's time source.
func WithClock(now func() time.Time) SignerOption {
	return func(s *JWTSigner) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIssuer sets the iss claim on issued tokens and requires it on verification.
func WithIssuer(issuer string) SignerOption {
	return func(s *JWTSigner) {
		s.issuer = issuer
	}
}

// NewJWTSigner creates a JWTSigner from a shared secret and token lifetime.
func NewJWTSigner(secret []byte, ttl time.Duration, opts ...SignerOption) (*JWTSigner, error) {
	if len(secret) < MinSecretLength {
		return nil, oops.Code("SIGNER_INVALID_SECRET").
			With("min_length", MinSecretLength).
			Errorf("signing secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, oops.Code("SIGNER_INVALID_TTL").
			With("ttl", ttl.String()).
			Errorf("access token TTL must be positive")
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	s := &JWTSigner{
		secret: key,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *JWTSigner) TTL() time.Duration {
	return s.ttl
}

// IssueAccessToken signs a token for subject carrying the given authorities.
func (s *JWTSigner) IssueAccessToken(subject string, authorities []string) (string, error) {
	if subject == "" {
		return "", oops.Code("SIGNER_EMPTY_SUBJECT").Errorf("token subject cannot be empty")
	}

	now := s.now()
	claims := AccessClaims{
		Authorities: append([]string(nil), authorities...),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	if claims.Authorities == nil {
		claims.Authorities = []string{}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("SIGNER_SIGN_FAILED").With("subject", subject).Wrap(err)
	}
	return signed, nil
}

// Validate reports whether the token has a valid signature and has not expired.
func (s *JWTSigner) Validate(token string) bool {
	_, err := s.Parse(token)
	return err == nil
}

// ExtractSubject returns the sub claim of a verified token.
func (s *JWTSigner) ExtractSubject(token string) (string, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Parse verifies the token and returns its claims. Any failure wraps ErrTokenMalformed.
func (s *JWTSigner) Parse(token string) (*AccessClaims, error) {
	if token == "" {
		return nil, oops.Code("TOKEN_MALFORMED").Wrapf(ErrTokenMalformed, "token is empty")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, oops.Code("TOKEN_MALFORMED").
			With("reason", err.Error()).
			Wrapf(ErrTokenMalformed, "token verification failed")
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, oops.Code("TOKEN_MALFORMED").Wrapf(ErrTokenMalformed, "token has no subject")
	}
	return claims, nil
}

// Compile-time interface checks.
var (
	_ TokenIssuer   = (*JWTSigner)(nil)
	_ TokenVerifier = (*JWTSigner)(nil)
)
