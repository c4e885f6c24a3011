// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

// Package config loads and validates the flatrent configuration.
//
// Sources are layered, later ones winning: built-in defaults, the YAML
// config file, a .env file, FLATRENT_* environment variables, and command
// line flags. Nested keys in environment variables use "__", so
// FLATRENT_AUTH__JWT_SECRET sets auth.jwt_secret.
package config

import (
	"errors"
	"net"
	"net/url"
	"slices"
	"time"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/flatrent/flatrent/internal/auth"
	"github.com/flatrent/flatrent/internal/logging"
)

// Refresh token backends.
const (
	RefreshStorePostgres = "postgres"
	RefreshStoreRedis    = "redis"
)

// MinSecretLength is the minimum accepted JWT secret length in bytes.
const MinSecretLength = auth.MinSecretLength

// Config is the complete flatrent configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server" yaml:"server" json:"server"`
	Database DatabaseConfig `koanf:"database" yaml:"database" json:"database"`
	Auth     AuthConfig     `koanf:"auth" yaml:"auth" json:"auth"`
	Redis    RedisConfig    `koanf:"redis" yaml:"redis" json:"redis"`
	Events   EventsConfig   `koanf:"events" yaml:"events" json:"events"`
	Log      LogConfig      `koanf:"log" yaml:"log" json:"log"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics" json:"metrics"`
	CORS     CORSConfig     `koanf:"cors" yaml:"cors" json:"cors"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr            string   `koanf:"addr" yaml:"addr" json:"addr" jsonschema:"description=HTTP API listen address"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	SweepInterval   Duration `koanf:"sweep_interval" yaml:"sweep_interval" json:"sweep_interval" jsonschema:"description=Interval between expired token sweeps; 0 disables"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL            string `koanf:"url" yaml:"url" json:"url" jsonschema:"description=PostgreSQL URL; DATABASE_URL is used when empty"`
	MaxConns       int32  `koanf:"max_conns" yaml:"max_conns" json:"max_conns" jsonschema:"minimum=0"`
	ConnectRetries uint64 `koanf:"connect_retries" yaml:"connect_retries" json:"connect_retries"`
}

// AuthConfig configures tokens and the refresh token backend.
type AuthConfig struct {
	JWTSecret        string   `koanf:"jwt_secret" yaml:"jwt_secret" json:"jwt_secret" jsonschema:"minLength=32"`
	Issuer           string   `koanf:"issuer" yaml:"issuer" json:"issuer"`
	AccessTTL        Duration `koanf:"access_ttl" yaml:"access_ttl" json:"access_ttl"`
	RefreshTTL       Duration `koanf:"refresh_ttl" yaml:"refresh_ttl" json:"refresh_ttl"`
	ResetTTL         Duration `koanf:"reset_ttl" yaml:"reset_ttl" json:"reset_ttl"`
	RefreshStore     string   `koanf:"refresh_store" yaml:"refresh_store" json:"refresh_store" jsonschema:"enum=postgres,enum=redis"`
	ExposeResetToken bool     `koanf:"expose_reset_token" yaml:"expose_reset_token" json:"expose_reset_token" jsonschema:"description=Return reset tokens in the forgot-password response (development only)"`
}

// RedisConfig configures the Redis refresh token backend.
type RedisConfig struct {
	URL              string   `koanf:"url" yaml:"url" json:"url"`
	ExpiredRetention Duration `koanf:"expired_retention" yaml:"expired_retention" json:"expired_retention"`
}

// EventsConfig configures event delivery. Events are logged when AMQPURL is empty.
type EventsConfig struct {
	AMQPURL        string `koanf:"amqp_url" yaml:"amqp_url" json:"amqp_url"`
	ConnectRetries uint64 `koanf:"connect_retries" yaml:"connect_retries" json:"connect_retries"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `koanf:"format" yaml:"format" json:"format" jsonschema:"enum=json,enum=text"`
}

// MetricsConfig configures the observability server.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr" json:"addr" jsonschema:"description=Metrics and health listen address; empty disables"`
}

// CORSConfig configures cross-origin requests.
type CORSConfig struct {
	AllowOrigins []string `koanf:"allow_origins" yaml:"allow_origins" json:"allow_origins" jsonschema:"description=Allowed origins; glob patterns such as https://*.flatrent.dev are accepted"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Database: DatabaseConfig{
			MaxConns:       10,
			ConnectRetries: 5,
		},
		Auth: AuthConfig{
			Issuer:       "flatrent",
			AccessTTL:    Duration(auth.DefaultAccessTokenTTL),
			RefreshTTL:   Duration(auth.DefaultRefreshTokenTTL),
			ResetTTL:     Duration(auth.DefaultResetTokenTTL),
			RefreshStore: RefreshStorePostgres,
		},
		Redis: RedisConfig{
			ExpiredRetention: Duration(time.Hour),
		},
		Events: EventsConfig{
			ConnectRetries: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatJSON,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9100",
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
		},
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, msg string) {
		errs = append(errs, oops.With("field", field).Errorf("%s: %s", field, msg))
	}

	if err := validateAddr(c.Server.Addr); err != nil {
		add("server.addr", err.Error())
	}
	if c.Metrics.Addr != "" {
		if err := validateAddr(c.Metrics.Addr); err != nil {
			add("metrics.addr", err.Error())
		}
		if c.Metrics.Addr == c.Server.Addr {
			add("metrics.addr", "must differ from server.addr")
		}
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("server.shutdown_timeout", "must be positive")
	}
	if c.Server.SweepInterval < 0 {
		add("server.sweep_interval", "must not be negative")
	}

	if c.Database.URL == "" {
		add("database.url", "is required (or set DATABASE_URL)")
	} else if err := validateURL(c.Database.URL, "postgres", "postgresql"); err != nil {
		add("database.url", err.Error())
	}
	if c.Database.MaxConns < 0 {
		add("database.max_conns", "must not be negative")
	}

	if len(c.Auth.JWTSecret) < MinSecretLength {
		add("auth.jwt_secret", "must be at least 32 bytes")
	}
	if c.Auth.AccessTTL <= 0 {
		add("auth.access_ttl", "must be positive")
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		add("auth.refresh_ttl", "must be longer than auth.access_ttl")
	}
	if c.Auth.ResetTTL <= 0 {
		add("auth.reset_ttl", "must be positive")
	}
	switch c.Auth.RefreshStore {
	case RefreshStorePostgres:
	case RefreshStoreRedis:
		if c.Redis.URL == "" {
			add("redis.url", "is required when auth.refresh_store is redis")
		} else if err := validateURL(c.Redis.URL, "redis", "rediss"); err != nil {
			add("redis.url", err.Error())
		}
	default:
		add("auth.refresh_store", "must be postgres or redis")
	}

	if c.Events.AMQPURL != "" {
		if err := validateURL(c.Events.AMQPURL, "amqp", "amqps"); err != nil {
			add("events.amqp_url", err.Error())
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "must be debug, info, warn, or error")
	}
	if c.Log.Format != logging.FormatJSON && c.Log.Format != logging.FormatText {
		add("log.format", "must be json or text")
	}

	if len(errs) > 0 {
		return oops.Code("CONFIG_INVALID").Wrap(errors.Join(errs...))
	}
	return nil
}

func validateAddr(addr string) error {
	if addr == "" {
		return errors.New("is required")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return errors.New("must be host:port")
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("is not a valid URL")
	}
	if !slices.Contains(schemes, u.Scheme) {
		return errors.New("has unsupported scheme " + u.Scheme)
	}
	return nil
}

// Redacted returns a copy of c with secrets masked, for display.
func (c Config) Redacted() Config {
	const mask = "[REDACTED]"
	if c.Auth.JWTSecret != "" {
		c.Auth.JWTSecret = mask
	}
	c.Database.URL = redactURL(c.Database.URL)
	c.Redis.URL = redactURL(c.Redis.URL)
	c.Events.AMQPURL = redactURL(c.Events.AMQPURL)
	c.CORS.AllowOrigins = slices.Clone(c.CORS.AllowOrigins)
	return c
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[REDACTED]"
	}
	return u.Redacted()
}

// YAML renders the configuration with secrets redacted.
func (c Config) YAML() ([]byte, error) {
	return c.Redacted().Encode()
}

// Encode renders the configuration as config file YAML, secrets included.
func (c Config) Encode() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	return out, nil
}
