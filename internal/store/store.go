// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

// Package store owns the PostgreSQL connection pool and the schema migrations.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	MaxConns       int32
	ConnectRetries uint64
	RetryBase      time.Duration
}

// DefaultPoolConfig returns the pool settings used when none are configured.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:       10,
		ConnectRetries: 5,
		RetryBase:      250 * time.Millisecond,
	}
}

// Connect opens a pool and waits until the database answers a ping, retrying
// with exponential backoff.
func Connect(ctx context.Context, databaseURL string, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	base := cfg.RetryBase
	if base <= 0 {
		base = DefaultPoolConfig().RetryBase
	}
	backoff := retry.WithMaxRetries(cfg.ConnectRetries, retry.WithCappedDuration(5*time.Second, retry.NewExponential(base)))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("host", poolCfg.ConnConfig.Host).
			Wrap(err)
	}
	return pool, nil
}
