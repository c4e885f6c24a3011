// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

// Package redis stores refresh tokens in Redis.
//
// Three keys describe a token:
//
//	refresh:token:<hash>  JSON record
//	refresh:id:<ulid>     token hash, for deletion by ID
//	refresh:user:<id>     token hash of the user's current token
//
// All three expire together, a retention window after the token itself
// expires, so an expired token is still reported as expired rather than unknown.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/flatrent/flatrent/internal/auth"
)

// DefaultExpiredRetention is how long a token's keys outlive its expiry.
const DefaultExpiredRetention = time.Hour

// maxTxAttempts bounds optimistic-lock retries when a watched key changes.
const maxTxAttempts = 5

const keyPrefix = "refresh:"

func tokenKey(hash string) string { return keyPrefix + "token:" + hash }
func idKey(id ulid.ULID) string    { return keyPrefix + "id:" + id.String() }
func userKey(userID int64) string {
	return keyPrefix + "user:" + strconv.FormatInt(userID, 10)
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// record is the stored JSON form of a refresh token.
type record struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func toRecord(t *auth.RefreshToken) record {
	return record{
		ID:        t.ID.String(),
		UserID:    t.UserID,
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}
}

func (r record) token() (*auth.RefreshToken, error) {
	id, err := ulid.Parse(r.ID)
	if err != nil {
		return nil, oops.Code("REFRESH_INVALID_ID").With("id", r.ID).Wrap(err)
	}
	return &auth.RefreshToken{
		ID:        id,
		UserID:    r.UserID,
		TokenHash: r.TokenHash,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
	}, nil
}

// Option configures a RefreshTokenRepository.
type Option func(*RefreshTokenRepository)

// WithExpiredRetention sets how long keys are kept after the token expires.
func WithExpiredRetention(d time.Duration) Option {
	return func(r *RefreshTokenRepository) {
		if d >= 0 {
			r.retention = d
		}
	}
}

// WithClock overrides the time source used to compute key TTLs.
func WithClock(now func() time.Time) Option {
	return func(r *RefreshTokenRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// RefreshTokenRepository implements auth.RefreshTokenRepository on Redis.
type RefreshTokenRepository struct {
	client    goredis.UniversalClient
	retention time.Duration
	now       func() time.Time
}

// NewRefreshTokenRepository creates a new RefreshTokenRepository.
func NewRefreshTokenRepository(client goredis.UniversalClient, opts ...Option) *RefreshTokenRepository {
	r := &RefreshTokenRepository{
		client:    client,
		retention: DefaultExpiredRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RefreshTokenRepository) keyTTL(expiresAt time.Time) time.Duration {
	ttl := expiresAt.Sub(r.now()) + r.retention
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}

// watch runs fn under WATCH on keys, retrying when a watched key changed.
func (r *RefreshTokenRepository) watch(ctx context.Context, fn func(tx *goredis.Tx) error, keys ...string) error {
	var err error
	for range maxTxAttempts {
		err = r.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
	}
	return oops.Code("REFRESH_TX_CONFLICT").With("keys", keys).Wrap(err)
}

// Replace removes the user's current token and stores token in one MULTI/EXEC.
func (r *RefreshTokenRepository) Replace(ctx context.Context, token *auth.RefreshToken) error {
	data, err := json.Marshal(toRecord(token))
	if err != nil {
		return oops.Code("REFRESH_ENCODE_FAILED").With("user_id", token.UserID).Wrap(err)
	}
	uk := userKey(token.UserID)
	ttl := r.keyTTL(token.ExpiresAt)

	err = r.watch(ctx, func(tx *goredis.Tx) error {
		old, err := r.current(ctx, tx, uk)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if old != nil {
				pipe.Del(ctx, tokenKey(old.TokenHash), keyPrefix+"id:"+old.ID)
			}
			pipe.Set(ctx, tokenKey(token.TokenHash), data, ttl)
			pipe.Set(ctx, idKey(token.ID), token.TokenHash, ttl)
			pipe.Set(ctx, uk, token.TokenHash, ttl)
			return nil
		})
		return err
	}, uk)
	if err != nil {
		return oops.Code("REFRESH_REPLACE_FAILED").
			With("operation", "replace refresh token").
			With("user_id", token.UserID).
			Wrap(err)
	}
	return nil
}

// current loads the record the user key points at, or nil.
func (r *RefreshTokenRepository) current(ctx context.Context, c getter, uk string) (*record, error) {
	hash, err := c.Get(ctx, uk).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec, err := r.load(ctx, c, hash)
	if errors.Is(err, auth.ErrNotFound) {
		// The id key cannot be derived without the record; it expires on its own.
		return &record{TokenHash: hash}, nil
	}
	return rec, err
}

func (r *RefreshTokenRepository) load(ctx context.Context, c getter, hash string) (*record, error) {
	raw, err := c.Get(ctx, tokenKey(hash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, oops.Code("REFRESH_TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("REFRESH_GET_FAILED").With("operation", "get refresh token").Wrap(err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, oops.Code("REFRESH_DECODE_FAILED").Wrap(err)
	}
	return &rec, nil
}

// GetByTokenHash retrieves a token by the hash of its plaintext.
func (r *RefreshTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	rec, err := r.load(ctx, r.client, tokenHash)
	if err != nil {
		return nil, err
	}
	return rec.token()
}

// Delete removes a token by ID.
func (r *RefreshTokenRepository) Delete(ctx context.Context, id ulid.ULID) error {
	ik := idKey(id)
	hash, err := r.client.Get(ctx, ik).Result()
	if errors.Is(err, goredis.Nil) {
		return oops.Code("REFRESH_TOKEN_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("REFRESH_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	rec, err := r.load(ctx, r.client, hash)
	if errors.Is(err, auth.ErrNotFound) {
		if err := r.client.Del(ctx, ik).Err(); err != nil {
			return oops.Code("REFRESH_DELETE_FAILED").With("id", id.String()).Wrap(err)
		}
		return oops.Code("REFRESH_TOKEN_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return err
	}

	uk := userKey(rec.UserID)
	err = r.watch(ctx, func(tx *goredis.Tx) error {
		owner, err := tx.Get(ctx, uk).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, tokenKey(hash), ik)
			if owner == hash {
				pipe.Del(ctx, uk)
			}
			return nil
		})
		return err
	}, uk, ik)
	if err != nil {
		return oops.Code("REFRESH_DELETE_FAILED").
			With("id", id.String()).
			With("user_id", rec.UserID).
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes the token owned by a user. No error if none exists.
func (r *RefreshTokenRepository) DeleteByUser(ctx context.Context, userID int64) error {
	uk := userKey(userID)
	err := r.watch(ctx, func(tx *goredis.Tx) error {
		rec, err := r.current(ctx, tx, uk)
		if err != nil || rec == nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			keys := []string{uk, tokenKey(rec.TokenHash)}
			if rec.ID != "" {
				keys = append(keys, keyPrefix+"id:"+rec.ID)
			}
			pipe.Del(ctx, keys...)
			return nil
		})
		return err
	}, uk)
	if err != nil {
		return oops.Code("REFRESH_DELETE_BY_USER_FAILED").
			With("operation", "delete refresh token by user").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts the keys once their TTL lapses.
func (r *RefreshTokenRepository) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

// Compile-time interface check.
var _ auth.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
