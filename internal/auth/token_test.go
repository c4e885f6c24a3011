// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatrent/flatrent/internal/auth"
	"github.com/flatrent/flatrent/pkg/errutil"
)

func TestGenerateOpaqueToken(t *testing.T) {
	t.Run("generates hex token and hash", func(t *testing.T) {
		token, hash, err := auth.GenerateOpaqueToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
		assert.Len(t, hash, 64)
		assert.NotEqual(t, token, hash)
		assert.Equal(t, auth.HashOpaqueToken(token), hash)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 100 {
			token, _, err := auth.GenerateOpaqueToken()
			require.NoError(t, err)
			assert.False(t, seen[token])
			seen[token] = true
		}
	})
}

func TestNewRefreshToken(t *testing.T) {
	expires := time.Now().Add(time.Hour)

	t.Run("valid", func(t *testing.T) {
		rt, err := auth.NewRefreshToken(7, "hash", expires)
		require.NoError(t, err)
		assert.Equal(t, int64(7), rt.UserID)
		assert.Equal(t, "hash", rt.TokenHash)
		assert.False(t, rt.ID.IsZero())
	})

	tests := []struct {
		name    string
		userID  int64
		hash    string
		expires time.Time
	}{
		{"zero user", 0, "hash", expires},
		{"empty hash", 1, "", expires},
		{"zero expiry", 1, "hash", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewRefreshToken(tt.userID, tt.hash, tt.expires)
			errutil.AssertErrorCode(t, err, "REFRESH_TOKEN_INVALID")
		})
	}
}

func TestRefreshToken_IsExpiredAt(t *testing.T) {
	expires := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rt := &auth.RefreshToken{ExpiresAt: expires}

	assert.False(t, rt.IsExpiredAt(expires.Add(-time.Second)))
	assert.False(t, rt.IsExpiredAt(expires))
	assert.True(t, rt.IsExpiredAt(expires.Add(time.Nanosecond)))
}

func TestNewPasswordReset(t *testing.T) {
	expires := time.Now().Add(time.Hour)

	reset, err := auth.NewPasswordReset(3, "hash", expires)
	require.NoError(t, err)
	assert.Equal(t, int64(3), reset.UserID)
	assert.False(t, reset.IsExpiredAt(time.Now()))
	assert.True(t, reset.IsExpiredAt(expires.Add(time.Second)))

	_, err = auth.NewPasswordReset(-1, "hash", expires)
	errutil.AssertErrorCode(t, err, "RESET_INVALID")
	_, err = auth.NewPasswordReset(1, "", expires)
	errutil.AssertErrorCode(t, err, "RESET_INVALID")
	_, err = auth.NewPasswordReset(1, "hash", time.Time{})
	errutil.AssertErrorCode(t, err, "RESET_INVALID")
}

func TestRoles(t *testing.T) {
	t.Run("parse is case-insensitive", func(t *testing.T) {
		r, err := auth.ParseRole(" landlord ")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleLandlord, r)
	})

	t.Run("parse rejects unknown", func(t *testing.T) {
		_, err := auth.ParseRole("OWNER")
		errutil.AssertErrorIs(t, err, auth.ErrInvalidInput, "AUTH_INVALID_ROLE")
	})

	t.Run("authority", func(t *testing.T) {
		assert.Equal(t, "ROLE_ADMIN", auth.RoleAdmin.Authority())
	})

	t.Run("role from authorities", func(t *testing.T) {
		r, ok := auth.RoleFromAuthorities([]string{"SCOPE_read", "ROLE_BOGUS", "ROLE_TENANT"})
		assert.True(t, ok)
		assert.Equal(t, auth.RoleTenant, r)

		_, ok = auth.RoleFromAuthorities([]string{"TENANT"})
		assert.False(t, ok)
	})
}

func TestNewUser(t *testing.T) {
	t.Run("valid with blank phone", func(t *testing.T) {
		blank := "  "
		u, err := auth.NewUser("a@x.com", "digest", "Ann", &blank, auth.RoleTenant)
		require.NoError(t, err)
		assert.Nil(t, u.Phone)
		assert.Equal(t, []string{"ROLE_TENANT"}, u.Authorities())
		assert.Zero(t, u.ID)
	})

	tests := []struct {
		name  string
		email string
		hash  string
		uname string
		role  auth.Role
		code  string
	}{
		{"empty email", "", "digest", "Ann", auth.RoleTenant, "AUTH_INVALID_EMAIL"},
		{"empty hash", "a@x.com", "", "Ann", auth.RoleTenant, "AUTH_INVALID_PASSWORD_HASH"},
		{"empty name", "a@x.com", "digest", " ", auth.RoleTenant, "AUTH_INVALID_NAME"},
		{"bad role", "a@x.com", "digest", "Ann", auth.Role("OWNER"), "AUTH_INVALID_ROLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewUser(tt.email, tt.hash, tt.uname, nil, tt.role)
			errutil.AssertErrorIs(t, err, auth.ErrInvalidInput, tt.code)
		})
	}
}

func TestPrincipal(t *testing.T) {
	p := &auth.Principal{Email: "a@x.com", Role: auth.RoleLandlord, Authorities: []string{"ROLE_LANDLORD"}}

	assert.True(t, p.HasRole(auth.RoleLandlord))
	assert.True(t, p.HasRole(auth.RoleAdmin, auth.RoleLandlord))
	assert.False(t, p.HasRole(auth.RoleTenant))

	var nilPrincipal *auth.Principal
	assert.False(t, nilPrincipal.HasRole(auth.RoleTenant))

	ctx := auth.WithPrincipal(context.Background(), p)
	got, ok := auth.PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, p, got)

	_, ok = auth.PrincipalFromContext(context.Background())
	assert.False(t, ok)
}
