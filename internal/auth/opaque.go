// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/samber/oops"
)

// OpaqueTokenBytes is the amount of randomness in refresh and reset tokens.
const OpaqueTokenBytes = 32 // 64 hex chars

// GenerateOpaqueToken creates a random token and its SHA-256 hash.
// The plaintext goes to the client; only the hash is stored.
func GenerateOpaqueToken() (token, hash string, err error) {
	b := make([]byte, OpaqueTokenBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").Wrap(err)
	}

	token = hex.EncodeToString(b)
	return token, HashOpaqueToken(token), nil
}

// HashOpaqueToken computes the hex SHA-256 of a token for storage lookups.
func HashOpaqueToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
