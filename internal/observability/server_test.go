// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startServer(t *testing.T, checker ReadinessChecker) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", checker, nil)
	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

func get(t *testing.T, server *Server, path string) (int, string) {
	t.Helper()
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + server.Addr() + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, nil)

	server.Metrics().RecordAuth("login", OutcomeSuccess)
	server.Metrics().RecordAuth("login", OutcomeFailure)
	server.Metrics().RecordAuth("login", OutcomeFailure)
	server.Metrics().HTTPRequests.WithLabelValues("POST", "/api/auth/login", "200").Inc()
	server.Metrics().HTTPRequestDuration.WithLabelValues("POST", "/api/auth/login").Observe(0.01)

	status, body := get(t, server, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "process_")
	assert.Contains(t, body, `flatrent_auth_operations_total{operation="login",outcome="failure"} 2`)
	assert.Contains(t, body, `flatrent_auth_operations_total{operation="login",outcome="success"} 1`)
	assert.Contains(t, body, `flatrent_http_requests_total{method="POST",route="/api/auth/login",status="200"} 1`)
	assert.Contains(t, body, "flatrent_http_request_duration_seconds_bucket")
}

func TestMetrics_RecordAuthNilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.RecordAuth("login", OutcomeSuccess) })
}

func TestServer_Liveness(t *testing.T) {
	server := startServer(t, func(context.Context) error { return errors.New("db down") })

	status, body := get(t, server, "/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok\n", body)
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name    string
		checker ReadinessChecker
		status  int
		body    string
	}{
		{"nil checker", nil, http.StatusOK, "ok\n"},
		{"ready", func(context.Context) error { return nil }, http.StatusOK, "ok\n"},
		{"not ready", func(context.Context) error { return errors.New("db down") }, http.StatusServiceUnavailable, "not ready\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, tt.checker)
			status, body := get(t, server, "/healthz/readiness")
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil)

	_, err := server.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)
	assert.NoError(t, server.Stop(context.Background()), "stopping a server that never started is a no-op")
	assert.Empty(t, server.Addr())
}

func TestServer_ListenFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = taken.Close() }()

	server := NewServer(taken.Addr().String(), nil, nil)
	_, err = server.Start()
	require.Error(t, err)

	// A failed start leaves the server startable.
	assert.NoError(t, server.Stop(context.Background()))
}

func TestServer_ErrorChannelClosesOnShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)
	errCh, err := server.Start()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	select {
	case err, ok := <-errCh:
		assert.False(t, ok, "channel should be closed without an error, got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("error channel was not closed")
	}
}

func TestPingReadiness(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	require.NoError(t, PingReadiness(map[string]Pinger{"postgres": ok, "redis": nil})(context.Background()))

	err := PingReadiness(map[string]Pinger{"postgres": ok, "redis": down})(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "connection refused"))
}
