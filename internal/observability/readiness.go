// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package observability

import (
	"context"

	"github.com/samber/oops"
)

// Pinger is implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingReadiness builds a ReadinessChecker that pings each named dependency.
func PingReadiness(deps map[string]Pinger) ReadinessChecker {
	return func(ctx context.Context) error {
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				return oops.Code("NOT_READY").With("dependency", name).Wrap(err)
			}
		}
		return nil
	}
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }
