// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package config

import (
	"time"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
)

// Duration is a time.Duration written as a Go duration string ("15m", "168h")
// in YAML, JSON, and environment variables.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return oops.Code("CONFIG_BAD_DURATION").With("value", string(text)).Wrap(err)
	}
	*d = Duration(parsed)
	return nil
}

// durationPattern matches strings accepted by time.ParseDuration.
const durationPattern = `^-?([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$|^0$`

// JSONSchema describes Duration as a duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     durationPattern,
		Description: "Go duration string, e.g. 15m or 168h",
	}
}
