// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Role is the account type of a user.
type Role string

// Supported roles.
const (
	RoleTenant   Role = "TENANT"
	RoleLandlord Role = "LANDLORD"
	RoleAdmin    Role = "ADMIN"
)

// authorityPrefix is prepended to a role to form its granted authority.
const authorityPrefix = "ROLE_"

// ParseRole converts a role name to a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", oops.Code("AUTH_INVALID_ROLE").
			With("role", s).
			Wrapf(ErrInvalidInput, "unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTenant, RoleLandlord, RoleAdmin:
		return true
	default:
		return false
	}
}

// Authority returns the granted authority string for the role, e.g. "ROLE_TENANT".
func (r Role) Authority() string {
	return authorityPrefix + string(r)
}

// RoleFromAuthorities returns the first role found in a list of authorities.
func RoleFromAuthorities(authorities []string) (Role, bool) {
	for _, a := range authorities {
		name, ok := strings.CutPrefix(a, authorityPrefix)
		if !ok {
			continue
		}
		if r := Role(name); r.Valid() {
			return r, true
		}
	}
	return "", false
}

// User is a registered account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Phone        *string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Authorities returns the granted authorities carried in access tokens.
func (u *User) Authorities() []string {
	return []string{u.Role.Authority()}
}

// NewUser creates a User with validated fields. The ID is assigned by the repository on insert.
func NewUser(email, passwordHash, name string, phone *string, role Role) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, oops.Code("AUTH_INVALID_EMAIL").Wrapf(ErrInvalidInput, "email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_PASSWORD_HASH").Wrapf(ErrInvalidInput, "password hash cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, oops.Code("AUTH_INVALID_NAME").Wrapf(ErrInvalidInput, "name cannot be empty")
	}
	if !role.Valid() {
		return nil, oops.Code("AUTH_INVALID_ROLE").
			With("role", string(role)).
			Wrapf(ErrInvalidInput, "unknown role %q", role)
	}
	if phone != nil && strings.TrimSpace(*phone) == "" {
		phone = nil
	}

	now := time.Now()
	return &User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Phone:        phone,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user and sets its ID.
	// Returns ErrEmailAlreadyRegistered if the email is taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail retrieves a user by exact email match.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces a user's password hash.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// Transactor runs fn inside a single storage transaction. Repository calls made
// with the context passed to fn participate in that transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
