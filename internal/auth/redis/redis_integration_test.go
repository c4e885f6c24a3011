// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/flatrent/flatrent/internal/auth"
	authredis "github.com/flatrent/flatrent/internal/auth/redis"
)

var testClient *goredis.Client

// TestMain starts a Redis container shared by the tests in this package.
func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		panic("failed to start redis container: " + err.Error())
	}

	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "redis")
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to get redis endpoint: " + err.Error())
	}

	client, err := authredis.Connect(ctx, endpoint, 3)
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to connect to redis: " + err.Error())
	}
	testClient = client

	code := m.Run()

	_ = client.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newToken(t *testing.T, userID int64, hash string, expiresIn time.Duration) *auth.RefreshToken {
	t.Helper()
	token, err := auth.NewRefreshToken(userID, hash, time.Now().Add(expiresIn))
	require.NoError(t, err)
	return token
}

func TestRefreshTokenRepository_ReplaceKeepsOneToken(t *testing.T) {
	ctx := context.Background()
	repo := authredis.NewRefreshTokenRepository(testClient)

	first := newToken(t, 100, "hash-100-a", time.Hour)
	require.NoError(t, repo.Replace(ctx, first))
	second := newToken(t, 100, "hash-100-b", time.Hour)
	require.NoError(t, repo.Replace(ctx, second))

	_, err := repo.GetByTokenHash(ctx, first.TokenHash)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), auth.ErrNotFound)

	got, err := repo.GetByTokenHash(ctx, second.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, int64(100), got.UserID)

	current, err := testClient.Get(ctx, "refresh:user:100").Result()
	require.NoError(t, err)
	assert.Equal(t, second.TokenHash, current)

	ttl, err := testClient.TTL(ctx, "refresh:token:"+second.TokenHash).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Hour, "keys outlive the token by the retention window")
}

func TestRefreshTokenRepository_ExpiredTokenStillReadable(t *testing.T) {
	ctx := context.Background()
	repo := authredis.NewRefreshTokenRepository(testClient)

	expired := newToken(t, 101, "hash-101", -time.Minute)
	require.NoError(t, repo.Replace(ctx, expired))

	got, err := repo.GetByTokenHash(ctx, expired.TokenHash)
	require.NoError(t, err)
	assert.True(t, got.IsExpiredAt(time.Now()))
}

func TestRefreshTokenRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := authredis.NewRefreshTokenRepository(testClient)

	token := newToken(t, 102, "hash-102", time.Hour)
	require.NoError(t, repo.Replace(ctx, token))

	require.NoError(t, repo.Delete(ctx, token.ID))
	assert.ErrorIs(t, repo.Delete(ctx, token.ID), auth.ErrNotFound)

	exists, err := testClient.Exists(ctx, "refresh:user:102", "refresh:token:hash-102").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestRefreshTokenRepository_DeleteByUser(t *testing.T) {
	ctx := context.Background()
	repo := authredis.NewRefreshTokenRepository(testClient)

	require.NoError(t, repo.DeleteByUser(ctx, 103), "no token is not an error")

	token := newToken(t, 103, "hash-103", time.Hour)
	require.NoError(t, repo.Replace(ctx, token))
	require.NoError(t, repo.DeleteByUser(ctx, 103))

	_, err := repo.GetByTokenHash(ctx, token.TokenHash)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, token.ID), auth.ErrNotFound)
}

func TestRefreshTokenRepository_ConcurrentReplace(t *testing.T) {
	ctx := context.Background()
	repo := authredis.NewRefreshTokenRepository(testClient)

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := auth.NewRefreshToken(104, fmt.Sprintf("hash-104-%d", i), time.Now().Add(time.Hour))
			if assert.NoError(t, err) {
				assert.NoError(t, repo.Replace(ctx, token))
			}
		}()
	}
	wg.Wait()

	keys, err := testClient.Keys(ctx, "refresh:token:hash-104-*").Result()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}
