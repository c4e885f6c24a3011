// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flatrent/flatrent/internal/auth"
	"github.com/flatrent/flatrent/internal/config"
	"github.com/flatrent/flatrent/internal/httpapi"
	"github.com/flatrent/flatrent/internal/observability"
	"github.com/flatrent/flatrent/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseConnector opens the PostgreSQL pool.
	// Default: store.Connect
	DatabaseConnector func(ctx context.Context, url string, cfg store.PoolConfig) (*pgxpool.Pool, error)

	// RefreshStoreFactory builds the refresh token backend selected by
	// auth.refresh_store.
	// Default: newRefreshStore
	RefreshStoreFactory func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (RefreshStore, error)

	// PublisherFactory builds the event publisher.
	// Default: newPublisher
	PublisherFactory func(ctx context.Context, cfg config.EventsConfig, logger *slog.Logger) (Publisher, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// APIServerFactory creates the HTTP API server.
	// Default: httpapi.New
	APIServerFactory func(svc httpapi.AuthService, cfg httpapi.Config, logger *slog.Logger, metrics *observability.Metrics) (APIServer, error)
}

// RefreshStore is a refresh token repository with its lifecycle. Ping joins
// the readiness probe when set. Close may be nil.
type RefreshStore struct {
	Repo  auth.RefreshTokenRepository
	Ping  observability.Pinger
	Close func() error
}

// Publisher is an event publisher that must be closed on shutdown.
type Publisher interface {
	auth.EventPublisher
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// APIServer interface wraps the methods used from httpapi.Server.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Status() (*store.MigrationStatus, error)
	Close() error
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory creates a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.DatabaseConnector == nil {
		out.DatabaseConnector = store.Connect
	}
	if out.RefreshStoreFactory == nil {
		out.RefreshStoreFactory = newRefreshStore
	}
	if out.PublisherFactory == nil {
		out.PublisherFactory = newPublisher
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker, logger)
		}
	}
	if out.APIServerFactory == nil {
		out.APIServerFactory = func(svc httpapi.AuthService, cfg httpapi.Config, logger *slog.Logger, metrics *observability.Metrics) (APIServer, error) {
			return httpapi.New(svc, cfg, httpapi.WithLogger(logger), httpapi.WithMetrics(metrics))
		}
	}
	return &out
}

func (d *MigrateDeps) withDefaults() *MigrateDeps {
	out := MigrateDeps{}
	if d != nil {
		out = *d
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	return &out
}
