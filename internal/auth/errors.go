// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package auth

import "errors"

// ErrNotFound is returned by repositories when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Typed failures surfaced by the auth services. Returned errors are oops errors
// wrapping one of these, so callers match with errors.Is.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidToken           = errors.New("invalid token")
	ErrTokenExpired           = errors.New("token expired")
	ErrTokenMalformed         = errors.New("malformed token")
	ErrInvalidInput           = errors.New("invalid input")
)
