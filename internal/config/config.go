// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, and command-line flags, in that precedence order. Secrets
// (database URL, token signing secret) come from the environment so they
// never land in config files or process listings.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Environment variables for secrets.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvTokenSecret = "AUTHCORE_TOKEN_SECRET"
)

// Config holds the service configuration.
type Config struct {
	// ListenAddr is the HTTP API listen address.
	ListenAddr string `koanf:"listen_addr"`

	// ObservabilityAddr is the metrics/health listen address.
	ObservabilityAddr string `koanf:"observability_addr"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format"`

	// TokenTTL is the validity window of issued bearer tokens.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// LockoutThreshold is the failure count that locks an account.
	LockoutThreshold int `koanf:"lockout_threshold"`

	// LockoutDuration is how long a lockout lasts.
	LockoutDuration time.Duration `koanf:"lockout_duration"`

	// Argon2Time, Argon2Memory, Argon2Threads tune the password hashing
	// work factor. Zero values use the hasher's defaults.
	Argon2Time    uint32 `koanf:"argon2_time"`
	Argon2Memory  uint32 `koanf:"argon2_memory"`
	Argon2Threads uint8  `koanf:"argon2_threads"`

	// DatabaseURL and TokenSecret are environment-only; koanf never sees
	// them.
	DatabaseURL string `koanf:"-"`
	TokenSecret string `koanf:"-"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		ListenAddr:        ":8080",
		ObservabilityAddr: "127.0.0.1:9100",
		LogFormat:         "json",
		TokenTTL:          24 * time.Hour,
		LockoutThreshold:  5,
		LockoutDuration:   15 * time.Minute,
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// non-empty), then flags (if non-nil), then secrets from the environment.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").
				With("operation", "load flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			With("operation", "unmarshal config").
			Wrap(err)
	}

	cfg.DatabaseURL = os.Getenv(EnvDatabaseURL)
	cfg.TokenSecret = os.Getenv(EnvTokenSecret)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			Errorf("log_format must be \"json\" or \"text\"")
	}
	if c.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("token_ttl must be positive")
	}
	if c.LockoutThreshold <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("lockout_threshold must be positive")
	}
	if c.LockoutDuration <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("lockout_duration must be positive")
	}
	return nil
}
