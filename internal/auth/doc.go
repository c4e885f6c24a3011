// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

// Package auth implements account authentication and the session lifecycle for
// FlatRent: registration, login, access token issuance, refresh token rotation,
// and password reset.
//
// # Tokens
//
// Access tokens are HS256 JWTs carrying the user's email as subject and an
// "authorities" claim such as ["ROLE_TENANT"]. They are verified without a
// store lookup and cannot be revoked before they expire.
//
// Refresh and reset tokens are opaque random strings. Only their SHA-256 hash
// is stored, and each user has at most one of each: issuing a new one replaces
// the old one atomically. Expired tokens are deleted when presented.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - validates email, name, role, and password hash
//   - NewRefreshToken - validates owner, hash, and expiry
//   - NewPasswordReset - validates owner, hash, and expiry
//
// # Services
//
//   - Service - register, login, refresh, logout, forgot/reset password, authenticate
//   - RefreshTokenService - refresh token issue, lookup, expiry, revoke
//   - PasswordResetService - reset token initiate and complete
//
// Services are created with New*Service constructors that validate dependencies.
// Failures wrap one of the sentinel errors in errors.go and carry an oops code.
package auth
