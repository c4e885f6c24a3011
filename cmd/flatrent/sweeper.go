// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/flatrent/flatrent/pkg/errutil"
)

// purger deletes expired refresh and reset tokens.
type purger interface {
	PurgeExpired(ctx context.Context) (refreshed, resets int64, err error)
}

// runSweeper purges expired tokens every interval until ctx is done.
// A non-positive interval disables sweeping.
func runSweeper(ctx context.Context, interval time.Duration, p purger, logger *slog.Logger) {
	if interval <= 0 {
		logger.Debug("expired token sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshed, resets, err := p.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				errutil.LogErrorContext(ctx, logger, "failed to purge expired tokens", err)
				continue
			}
			if refreshed > 0 || resets > 0 {
				logger.Info("purged expired tokens",
					"refresh_tokens", refreshed,
					"reset_tokens", resets)
			}
		}
	}
}
