// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package auth

import (
	"context"
	"time"
)

// Event topics published by the auth service.
const (
	TopicUserRegistered         = "auth.user_registered"
	TopicPasswordResetRequested = "auth.password_reset_requested"
)

// EventPublisher delivers domain events to downstream consumers such as the mailer.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// UserRegistered is published after a successful registration.
type UserRegistered struct {
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PasswordResetRequested carries a reset token to the delivery channel.
type PasswordResetRequested struct {
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	ResetToken string    `json:"reset_token"`
	ExpiresAt  time.Time `json:"expires_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

// discardPublisher drops every event.
type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, any) error { return nil }
