// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

// Package postgres provides PostgreSQL implementations of auth repositories.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// poolIface is the subset of *pgxpool.Pool used by the repositories.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type poolIface interface {
	execer
	Begin(ctx context.Context) (pgx.Tx, error)
}

// execer abstracts query execution for both the pool and a pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txKey is the context key for the transaction opened by Transactor.
type txKey struct{}

// execerFromCtx returns the transaction stored in ctx, or pool when there is none.
func execerFromCtx(ctx context.Context, pool poolIface) execer {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}
