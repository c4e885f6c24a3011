// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatrent/flatrent/internal/auth"
	"github.com/flatrent/flatrent/internal/auth/authtest"
)

// failingPublisher rejects every event.
type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) error {
	return errors.New("broker unavailable")
}

// failingRefreshRepo fails DeleteByUser and delegates everything else.
type failingRefreshRepo struct {
	*authtest.RefreshRepo
}

func (failingRefreshRepo) DeleteByUser(context.Context, int64) error {
	return errors.New("connection reset")
}

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func findEntry(entries []map[string]any, msg string) map[string]any {
	for _, e := range entries {
		if e["msg"] == msg {
			return e
		}
	}
	return nil
}

func TestService_LogsPublishFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store := authtest.NewStore()
	svc := newMemoryService(t, store, store.Refresh, auth.WithLogger(logger), auth.WithEventPublisher(failingPublisher{}))

	_, err := svc.Register(context.Background(), auth.RegisterParams{
		Email: "a@x.com", Password: "secret1", Name: "Ann", Role: auth.RoleTenant,
	})
	require.NoError(t, err)

	entry := findEntry(logEntries(t, &buf), "failed to publish event")
	require.NotNil(t, entry, "expected publish failure to be logged")
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, auth.TopicUserRegistered, entry["topic"])
	assert.Equal(t, "publish event", entry["operation"])
	assert.Contains(t, entry["error"], "broker unavailable")
}

func TestService_LogsRevokeFailureAfterReset(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	store := authtest.NewStore()
	svc := newMemoryService(t, store, failingRefreshRepo{store.Refresh}, auth.WithLogger(logger))
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterParams{Email: "a@x.com", Password: "secret1", Name: "Ann", Role: auth.RoleTenant})
	require.NoError(t, err)
	token, err := svc.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, token, "newpass1"))

	entry := findEntry(logEntries(t, &buf), "failed to revoke refresh token after password reset")
	require.NotNil(t, entry)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "revoke refresh token", entry["operation"])
	assert.EqualValues(t, 1, entry["user_id"])
}
