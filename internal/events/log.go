// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flatrent/flatrent/internal/auth"
)

// LogPublisher writes events to the log instead of a broker. Used when no
// broker is configured. Only identifying fields are logged; reset tokens and
// email addresses never reach the log at any level.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher. A nil logger uses slog.Default().
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the event. It never fails.
func (p *LogPublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.logger.InfoContext(ctx, "event emitted", append([]any{"topic", topic}, eventAttrs(payload)...)...)
	return nil
}

// eventAttrs picks the loggable fields of a payload.
func eventAttrs(payload any) []any {
	switch e := payload.(type) {
	case auth.UserRegistered:
		return []any{"user_id", e.UserID, "role", string(e.Role)}
	case auth.PasswordResetRequested:
		return []any{"user_id", e.UserID, "expires_at", e.ExpiresAt}
	case nil:
		return nil
	default:
		return []any{"payload_type", fmt.Sprintf("%T", payload)}
	}
}

var _ auth.EventPublisher = (*LogPublisher)(nil)
