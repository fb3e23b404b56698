// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pinotboard/cli/internal/errors"
)

// isolate points the default config path at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8099/query/sql", cfg.Broker.URL)
	assert.Equal(t, 30*time.Second, cfg.Broker.Timeout)
	assert.Equal(t, "pinot", cfg.Store.Driver)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 256, cfg.Cache.Size)
	assert.Equal(t, ":8501", cfg.Web.Addr)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "none", cfg.Telemetry.Exporter)
}

func TestLoadLayering(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "pinotboard.yaml")
	content := `
broker:
  url: http://pinot-broker:8099/query/sql
  timeout: 5s
cache:
  ttl: 2m
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("PINOTBOARD_LOG_LEVEL", "warn")
	t.Setenv("PINOTBOARD_BROKER_QUERY_OPTIONS", "timeoutMs=1000")
	t.Setenv("PINOTBOARD_BROKER_TOKEN", "s3cret")

	cfg, err := Load(path, map[string]any{"cache.ttl": "10s"})
	require.NoError(t, err)
	assert.Equal(t, "http://pinot-broker:8099/query/sql", cfg.Broker.URL)
	assert.Equal(t, 5*time.Second, cfg.Broker.Timeout)
	assert.Equal(t, "warn", cfg.Log.Level, "env beats file")
	assert.Equal(t, 10*time.Second, cfg.Cache.TTL, "overrides beat file")
	assert.Equal(t, "timeoutMs=1000", cfg.Broker.QueryOptions)
	assert.Equal(t, "s3cret", cfg.Broker.Token)
}

func TestLoadReadsDefaultFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pinotboard"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pinotboard", "config.yaml"),
		[]byte("web:\n  addr: 127.0.0.1:9000\n"), 0o600))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Web.Addr)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ConfigInvalid))
}

func TestValidate(t *testing.T) {
	isolate(t)
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{"driver", map[string]any{"store.driver": "mysql"}},
		{"log format", map[string]any{"log.format": "xml"}},
		{"exporter", map[string]any{"telemetry.exporter": "zipkin"}},
		{"otlp endpoint", map[string]any{"telemetry.exporter": "otlp"}},
		{"ttl", map[string]any{"cache.ttl": "0s"}},
		{"broker url scheme", map[string]any{"broker.url": "ftp://broker:8099"}},
		{"broker url port", map[string]any{"broker.url": "http://broker:99999/query/sql"}},
		{"size", map[string]any{"cache.size": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("", tt.overrides)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ConfigInvalid))
		})
	}
}

func TestSaveOmitsSecrets(t *testing.T) {
	isolate(t)
	cfg, err := Load("", map[string]any{
		"broker.url":   "https://pinot.example.com/query/sql",
		"broker.token": "s3cret",
		"store.dsn":    "postgres://u:p@db/analytics",
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "config.yaml")
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")
	assert.NotContains(t, string(data), "u:p@db")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://pinot.example.com/query/sql", reloaded.Broker.URL)
	assert.Equal(t, cfg.Cache.TTL, reloaded.Cache.TTL)
	assert.Empty(t, reloaded.Broker.Token)
}
