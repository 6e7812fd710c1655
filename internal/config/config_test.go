// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentuma/authcore/pkg/errutil"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "127.0.0.1:9100", cfg.ObservabilityAddr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5, cfg.LockoutThreshold)
	assert.Equal(t, 15*time.Minute, cfg.LockoutDuration)
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default().ListenAddr, cfg.ListenAddr)
	assert.Equal(t, Default().LockoutThreshold, cfg.LockoutThreshold)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
listen_addr: ":9090"
log_format: text
token_ttl: 1h
lockout_threshold: 3
lockout_duration: 5m
argon2_memory: 32768
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 3, cfg.LockoutThreshold)
	assert.Equal(t, 5*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, uint32(32768), cfg.Argon2Memory)

	// Untouched keys keep their defaults.
	assert.Equal(t, "127.0.0.1:9100", cfg.ObservabilityAddr)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	path := writeConfigFile(t, `listen_addr: ":9090"`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen_addr", Default().ListenAddr, "")
	require.NoError(t, flags.Parse([]string{"--listen_addr", ":7070"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.ListenAddr)
}

func TestLoadUnsetFlagDoesNotOverrideFile(t *testing.T) {
	path := writeConfigFile(t, `listen_addr: ":9090"`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen_addr", Default().ListenAddr, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
}

func TestLoadSecretsFromEnvironment(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "postgres://localhost/authcore")
	t.Setenv(EnvTokenSecret, "super-secret-signing-key")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/authcore", cfg.DatabaseURL)
	assert.Equal(t, "super-secret-signing-key", cfg.TokenSecret)
}

func TestLoadSecretsNeverComeFromFile(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvTokenSecret, "")

	path := writeConfigFile(t, `
databaseurl: "postgres://file/leak"
tokensecret: "file-secret"
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.TokenSecret)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad log format", content: `log_format: xml`},
		{name: "negative token ttl", content: `token_ttl: -1h`},
		{name: "zero lockout threshold", content: `lockout_threshold: -2`},
		{name: "negative lockout duration", content: `lockout_duration: -5m`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := Load(path, nil)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		})
	}
}
