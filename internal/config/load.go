// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/flatrent/flatrent/internal/xdg"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FLATRENT_"

// Flag names registered by BindFlags, mapped to their config keys.
var flagKeys = map[string]string{
	"addr":           "server.addr",
	"metrics-addr":   "metrics.addr",
	"sweep-interval": "server.sweep_interval",
	"database-url":   "database.url",
	"refresh-store":  "auth.refresh_store",
	"log-level":      "log.level",
	"log-format":     "log.format",
}

// BindFlags registers the flags that override config keys.
func BindFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String("addr", d.Server.Addr, "HTTP API listen address")
	flags.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	flags.Duration("sweep-interval", d.Server.SweepInterval.Std(), "interval between expired token sweeps (0 = disabled)")
	flags.String("database-url", "", "PostgreSQL connection URL")
	flags.String("refresh-store", d.Auth.RefreshStore, "refresh token backend (postgres or redis)")
	flags.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", d.Log.Format, "log format (json or text)")
}

// Options controls where Load reads from.
type Options struct {
	// File is the YAML config path. Empty uses the XDG default when it exists.
	File string
	// DotEnv is the .env path. Empty uses ./.env when it exists.
	DotEnv string
	// Flags are applied last. Only flags set on the command line override.
	Flags *pflag.FlagSet
}

// Load builds the configuration from all sources. It does not validate.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	path, explicit, err := configPath(opts.File)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadFile(k, path, explicit); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(opts.DotEnv); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, f.Value.String()
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	return &cfg, nil
}

// envKey maps FLATRENT_AUTH__JWT_SECRET to auth.jwt_secret.
func envKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "__", ".")
}

// configPath resolves the file to load. explicit reports whether the caller
// asked for it, in which case a missing file is an error.
func configPath(requested string) (path string, explicit bool, err error) {
	if requested != "" {
		return requested, true, nil
	}
	path, err = xdg.DefaultConfigFile()
	if err != nil {
		// No home directory: run from defaults and the environment.
		return "", false, nil
	}
	return path, false, nil
}

func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
	}
	return nil
}

func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return oops.Code("CONFIG_DOTENV_INVALID").With("path", path).Wrap(err)
	}
	// godotenv.Load never overrides variables already set in the process.
	if err := godotenv.Load(path); err != nil {
		return oops.Code("CONFIG_DOTENV_INVALID").With("path", path).Wrap(err)
	}
	return nil
}
