// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/flatrent/flatrent/internal/auth"
)

// channel is the part of *amqp.Channel used by AMQPPublisher.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to RabbitMQ over a single channel.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	declared map[string]bool
	now      func() time.Time
	logger   *slog.Logger
}

// DialConfig controls how DialAMQP connects.
type DialConfig struct {
	URL       string
	Retries   uint64
	RetryBase time.Duration
}

// DialAMQP connects to the broker, retrying with exponential backoff.
func DialAMQP(ctx context.Context, cfg DialConfig, logger *slog.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(cfg.Retries, retry.WithCappedDuration(10*time.Second, retry.NewExponential(base)))

	var conn *amqp.Connection
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := amqp.Dial(cfg.URL)
		if err != nil {
			logger.WarnContext(ctx, "amqp dial failed, retrying", "error", err)
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, oops.Code("EVENTS_DIAL_FAILED").With("operation", "dial amqp").Wrap(err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, oops.Code("EVENTS_CHANNEL_FAILED").With("operation", "open channel").Wrap(err)
	}

	p := newAMQPPublisher(ch, logger)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch channel, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		ch:       ch,
		declared: make(map[string]bool),
		now:      time.Now,
		logger:   logger,
	}
}

// Publish sends payload as JSON to the queue named topic.
func (p *AMQPPublisher) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return oops.Code("EVENTS_ENCODE_FAILED").With("topic", topic).Wrap(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[topic] {
		if _, err := p.ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
			return oops.Code("EVENTS_DECLARE_FAILED").With("topic", topic).Wrap(err)
		}
		p.declared[topic] = true
	}

	err = p.ch.PublishWithContext(ctx, "", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Type:         topic,
		Body:         body,
	})
	if err != nil {
		return oops.Code("EVENTS_PUBLISH_FAILED").With("topic", topic).Wrap(err)
	}

	p.logger.DebugContext(ctx, "event published", "topic", topic, "bytes", len(body))
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return oops.Code("EVENTS_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

var _ auth.EventPublisher = (*AMQPPublisher)(nil)
