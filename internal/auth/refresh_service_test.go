// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flatrent/flatrent/internal/auth"
	"github.com/flatrent/flatrent/internal/auth/mocks"
	"github.com/flatrent/flatrent/pkg/errutil"
)

func TestNewRefreshTokenService(t *testing.T) {
	t.Run("nil repository", func(t *testing.T) {
		svc, err := auth.NewRefreshTokenService(nil, time.Hour)
		require.Error(t, err)
		assert.Nil(t, svc)
		assert.Contains(t, err.Error(), "refresh token repository is required")
	})

	t.Run("negative ttl", func(t *testing.T) {
		_, err := auth.NewRefreshTokenService(mocks.NewMockRefreshTokenRepository(t), -time.Second)
		errutil.AssertErrorCode(t, err, "REFRESH_INVALID_TTL")
	})

	t.Run("zero ttl uses default", func(t *testing.T) {
		svc, err := auth.NewRefreshTokenService(mocks.NewMockRefreshTokenRepository(t), 0)
		require.NoError(t, err)
		assert.Equal(t, auth.DefaultRefreshTokenTTL, svc.TTL())
	})
}

func TestRefreshTokenService_Issue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("replaces the user's token with a hashed record", func(t *testing.T) {
		repo := mocks.NewMockRefreshTokenRepository(t)
		svc, err := auth.NewRefreshTokenService(repo, 24*time.Hour, auth.WithRefreshClock(func() time.Time { return now }))
		require.NoError(t, err)

		var stored *auth.RefreshToken
		repo.On("Replace", ctx, mock.AnythingOfType("*auth.RefreshToken")).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*auth.RefreshToken) }).
			Return(nil)

		token, record, err := svc.Issue(ctx, 42)
		require.NoError(t, err)
		assert.Len(t, token, 64)
		require.NotNil(t, stored)
		assert.Same(t, stored, record)
		assert.Equal(t, int64(42), record.UserID)
		assert.Equal(t, auth.HashOpaqueToken(token), record.TokenHash)
		assert.NotEqual(t, token, record.TokenHash)
		assert.Equal(t, now.Add(24*time.Hour), record.ExpiresAt)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := mocks.NewMockRefreshTokenRepository(t)
		svc, err := auth.NewRefreshTokenService(repo, time.Hour)
		require.NoError(t, err)

		repo.On("Replace", ctx, mock.Anything).Return(errors.New("connection reset"))

		_, _, err = svc.Issue(ctx, 42)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "REFRESH_ISSUE_FAILED")
		errutil.AssertErrorContext(t, err, "operation", "replace refresh token")
	})

	t.Run("invalid user id", func(t *testing.T) {
		repo := mocks.NewMockRefreshTokenRepository(t)
		svc, err := auth.NewRefreshTokenService(repo, time.Hour)
		require.NoError(t, err)

		_, _, err = svc.Issue(ctx, 0)
		require.Error(t, err)
		// NewRefreshToken's code is the innermost one.
		errutil.AssertErrorCode(t, err, "REFRESH_TOKEN_INVALID")
	})
}

func TestRefreshTokenService_FindByToken(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo := mocks.NewMockRefreshTokenRepository(t)
		svc, err := auth.NewRefreshTokenService(repo, time.Hour)
		require.NoError(t, err)

		record := &auth.RefreshToken{UserID: 1, TokenHash: auth.HashOpaqueToken("abc")}
		repo.On("GetByTokenHash", ctx, auth.HashOpaqueToken("abc")).Return(record, nil)

		got, err := svc.FindByToken(ctx, "abc")
		require.NoError(t, err)
		assert.Same(t, record, got)
	})

	t.Run("unknown token", func(t *testing.T) {
		repo := mocks.NewMockRefreshTokenRepository(t)
		svc, err := auth.NewRefreshTokenService(repo, time.Hour)
		require.NoError(t, err)

		repo.On("GetByTokenHash", ctx, mock.Anything).Return(nil, auth.ErrNotFound)

		_, err = svc.FindByToken(ctx, "nope")
		errutil.AssertErrorIs(t, err, auth.ErrInvalidToken, "REFRESH_TOKEN_INVALID")
	})

	t.Run("empty token skips lookup", func(t *testing.T) {
		repo := mocks.NewMockRefreshTokenRepository(t)
		svc, err := auth.NewRefreshTokenService(repo, time.Hour)
		require.NoError(t, err)

		_, err = svc.FindByToken(ctx, "")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
		repo.AssertNotCalled(t, "GetByTokenHash", mock.Anything, mock.Anything)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := mocks.NewMockRefreshTokenRepository(t)
		svc, err := auth.NewRefreshTokenService(repo, time.Hour)
		require.NoError(t, err)

		repo.On("GetByTokenHash", ctx, mock.Anything).Return(nil, errors.New("timeout"))

		_, err = svc.FindByToken(ctx, "abc")
		assert.NotErrorIs(t, err, auth.ErrInvalidToken)
		errutil.AssertErrorCode(t, err, "REFRESH_LOOKUP_FAILED")
	})
}

func TestRefreshTokenService_VerifyNotExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := auth.WithRefreshClock(func() time.Time { return now })

	t.Run("live token returned unchanged", func(t *testing.T) {
		repo := mocks.NewMockRefreshTokenRepository(t)
		svc, err := auth.NewRefreshTokenService(repo, time.Hour, clock)
		require.NoError(t, err)

		record, err := auth.NewRefreshToken(1, "hash", now.Add(time.Minute))
		require.NoError(t, err)

		got, err := svc.VerifyNotExpired(ctx, record)
		require.NoError(t, err)
		assert.Same(t, record, got)
	})

	t.Run("expired token is deleted", func(t *testing.T) {
		repo := mocks.NewMockRefreshTokenRepository(t)
		svc, err := auth.NewRefreshTokenService(repo, time.Hour, clock)
		require.NoError(t, err)

		record, err := auth.NewRefreshToken(1, "hash", now.Add(-time.Minute))
		require.NoError(t, err)
		repo.On("Delete", ctx, record.ID).Return(nil).Once()

		got, err := svc.VerifyNotExpired(ctx, record)
		assert.Nil(t, got)
		errutil.AssertErrorIs(t, err, auth.ErrTokenExpired, "REFRESH_TOKEN_EXPIRED")
	})

	t.Run("expired token already gone", func(t *testing.T) {
		repo := mocks.NewMockRefreshTokenRepository(t)
		svc, err := auth.NewRefreshTokenService(repo, time.Hour, clock)
		require.NoError(t, err)

		record, err := auth.NewRefreshToken(1, "hash", now.Add(-time.Minute))
		require.NoError(t, err)
		repo.On("Delete", ctx, record.ID).Return(auth.ErrNotFound)

		_, err = svc.VerifyNotExpired(ctx, record)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("delete failure", func(t *testing.T) {
		repo := mocks.NewMockRefreshTokenRepository(t)
		svc, err := auth.NewRefreshTokenService(repo, time.Hour, clock)
		require.NoError(t, err)

		record, err := auth.NewRefreshToken(1, "hash", now.Add(-time.Minute))
		require.NoError(t, err)
		repo.On("Delete", ctx, record.ID).Return(errors.New("db down"))

		_, err = svc.VerifyNotExpired(ctx, record)
		errutil.AssertErrorCode(t, err, "REFRESH_DELETE_FAILED")
	})
}

func TestRefreshTokenService_Revoke(t *testing.T) {
	ctx := context.Background()

	repo := mocks.NewMockRefreshTokenRepository(t)
	svc, err := auth.NewRefreshTokenService(repo, time.Hour)
	require.NoError(t, err)

	repo.On("DeleteByUser", ctx, int64(5)).Return(nil).Once()
	require.NoError(t, svc.Revoke(ctx, 5))

	repo.On("DeleteByUser", ctx, int64(6)).Return(errors.New("db down")).Once()
	err = svc.Revoke(ctx, 6)
	errutil.AssertErrorCode(t, err, "REFRESH_REVOKE_FAILED")
	errutil.AssertErrorContext(t, err, "user_id", int64(6))
}

func TestRefreshTokenService_PurgeExpired(t *testing.T) {
	ctx := context.Background()

	repo := mocks.NewMockRefreshTokenRepository(t)
	svc, err := auth.NewRefreshTokenService(repo, time.Hour)
	require.NoError(t, err)

	repo.On("DeleteExpired", ctx).Return(int64(3), nil).Once()
	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	repo.On("DeleteExpired", ctx).Return(int64(0), errors.New("db down")).Once()
	_, err = svc.PurgeExpired(ctx)
	errutil.AssertErrorCode(t, err, "REFRESH_PURGE_FAILED")
}
