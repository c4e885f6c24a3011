// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

// Package authtest provides in-memory auth stores for tests.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/flatrent/flatrent/internal/auth"
)

// Store is an in-memory implementation of the auth repositories and Transactor.
// Each repository call is atomic. InTransaction does not isolate or roll back.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*auth.User
	refresh  map[ulid.ULID]*auth.RefreshToken
	resets   map[ulid.ULID]*auth.PasswordReset
	Now      func() time.Time
	Users    *UserRepo
	Refresh  *RefreshRepo
	Resets   *ResetRepo
	TxCalls  int
	txCallMu sync.Mutex
}

// NewStore creates an empty Store.
func NewStore() *Store {
	s := &Store{
		users:   make(map[int64]*auth.User),
		refresh: make(map[ulid.ULID]*auth.RefreshToken),
		resets:  make(map[ulid.ULID]*auth.PasswordReset),
		Now:     time.Now,
	}
	s.Users = &UserRepo{s: s}
	s.Refresh = &RefreshRepo{s: s}
	s.Resets = &ResetRepo{s: s}
	return s
}

// InTransaction calls fn with ctx.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txCallMu.Lock()
	s.TxCalls++
	s.txCallMu.Unlock()
	return fn(ctx)
}

// RefreshTokensFor returns the number of refresh tokens owned by a user.
func (s *Store) RefreshTokensFor(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.refresh {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// ResetsFor returns the number of password resets owned by a user.
func (s *Store) ResetsFor(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.resets {
		if r.UserID == userID {
			n++
		}
	}
	return n
}

// ExpireAll moves the expiry of every stored token into the past.
func (s *Store) ExpireAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	past := s.Now().Add(-time.Minute)
	for _, t := range s.refresh {
		t.ExpiresAt = past
	}
	for _, r := range s.resets {
		r.ExpiresAt = past
	}
}

// UserRepo implements auth.UserRepository.
type UserRepo struct{ s *Store }

// Create stores a new user and assigns its ID.
func (r *UserRepo) Create(_ context.Context, user *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return oops.Code("USER_EMAIL_TAKEN").With("email", user.Email).Wrap(auth.ErrEmailAlreadyRegistered)
		}
	}
	r.s.nextID++
	user.ID = r.s.nextID
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(_ context.Context, id int64) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	out := *u
	return &out, nil
}

// GetByEmail retrieves a user by exact email.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = r.s.Now()
	return nil
}

// RefreshRepo implements auth.RefreshTokenRepository.
type RefreshRepo struct{ s *Store }

// Replace deletes the user's token and stores the new one.
func (r *RefreshRepo) Replace(_ context.Context, token *auth.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, t := range r.s.refresh {
		if t.UserID == token.UserID {
			delete(r.s.refresh, id)
		}
	}
	stored := *token
	r.s.refresh[token.ID] = &stored
	return nil
}

// GetByTokenHash retrieves a token by hash.
func (r *RefreshRepo) GetByTokenHash(_ context.Context, tokenHash string) (*auth.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.refresh {
		if t.TokenHash == tokenHash {
			out := *t
			return &out, nil
		}
	}
	return nil, oops.Code("REFRESH_TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// Delete removes a token by ID.
func (r *RefreshRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.refresh[id]; !ok {
		return oops.Code("REFRESH_TOKEN_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(r.s.refresh, id)
	return nil
}

// DeleteByUser removes the user's token, if any.
func (r *RefreshRepo) DeleteByUser(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, t := range r.s.refresh {
		if t.UserID == userID {
			delete(r.s.refresh, id)
		}
	}
	return nil
}

// DeleteExpired removes expired tokens.
func (r *RefreshRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	now := r.s.Now()
	for id, t := range r.s.refresh {
		if t.IsExpiredAt(now) {
			delete(r.s.refresh, id)
			n++
		}
	}
	return n, nil
}

// ResetRepo implements auth.PasswordResetRepository.
type ResetRepo struct{ s *Store }

// Replace deletes the user's reset and stores the new one.
func (r *ResetRepo) Replace(_ context.Context, reset *auth.PasswordReset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.resets {
		if existing.UserID == reset.UserID {
			delete(r.s.resets, id)
		}
	}
	stored := *reset
	r.s.resets[reset.ID] = &stored
	return nil
}

// GetByTokenHash retrieves a reset by hash.
func (r *ResetRepo) GetByTokenHash(_ context.Context, tokenHash string) (*auth.PasswordReset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.resets {
		if existing.TokenHash == tokenHash {
			out := *existing
			return &out, nil
		}
	}
	return nil, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// Delete removes a reset by ID.
func (r *ResetRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.resets[id]; !ok {
		return oops.Code("RESET_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(r.s.resets, id)
	return nil
}

// DeleteByUser removes the user's reset, if any.
func (r *ResetRepo) DeleteByUser(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.resets {
		if existing.UserID == userID {
			delete(r.s.resets, id)
		}
	}
	return nil
}

// DeleteExpired removes expired resets.
func (r *ResetRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	now := r.s.Now()
	for id, existing := range r.s.resets {
		if existing.IsExpiredAt(now) {
			delete(r.s.resets, id)
			n++
		}
	}
	return n, nil
}

// Compile-time interface checks.
var (
	_ auth.UserRepository          = (*UserRepo)(nil)
	_ auth.RefreshTokenRepository  = (*RefreshRepo)(nil)
	_ auth.PasswordResetRepository = (*ResetRepo)(nil)
	_ auth.Transactor              = (*Store)(nil)
)
