// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads pinotboard settings. Sources are layered, later ones
// winning: built-in defaults, a YAML file, PINOTBOARD_* environment variables,
// then explicit overrides (command-line flags).
//
// Secrets are never written to the config file; the broker token and the
// Postgres DSN belong in the OS keychain or the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"pinotboard/cli/internal/dsn"
	apperrors "pinotboard/cli/internal/errors"
	"pinotboard/cli/internal/xdg"
)

// EnvPrefix prefixes every environment override. The first underscore after the
// prefix separates section from key: PINOTBOARD_WEB_GRPC_ADDR sets web.grpc_addr.
const EnvPrefix = "PINOTBOARD_"

// Config holds all settings.
type Config struct {
	Broker    BrokerConfig    `koanf:"broker"`
	Store     StoreConfig     `koanf:"store"`
	Cache     CacheConfig     `koanf:"cache"`
	Web       WebConfig       `koanf:"web"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type BrokerConfig struct {
	URL string `koanf:"url"`
	// Token is only read from the environment or keychain.
	Token        string        `koanf:"token"`
	Timeout      time.Duration `koanf:"timeout"`
	QueryOptions string        `koanf:"query_options"`
	Multistage   bool          `koanf:"multistage"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"` // pinot, postgres
	DSN    string `koanf:"dsn"`
}

type CacheConfig struct {
	TTL  time.Duration `koanf:"ttl"`
	Size int           `koanf:"size"`
}

type WebConfig struct {
	Addr     string `koanf:"addr"`
	GRPCAddr string `koanf:"grpc_addr"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text, json
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

var defaults = map[string]any{
	"broker.url":              "http://localhost:8099/query/sql",
	"broker.timeout":          "30s",
	"broker.query_options":    "",
	"broker.multistage":       false,
	"store.driver":            "pinot",
	"cache.ttl":               "60s",
	"cache.size":              256,
	"web.addr":                ":8501",
	"web.grpc_addr":           "",
	"log.level":               "info",
	"log.format":              "text",
	"telemetry.exporter":      "none",
	"telemetry.otlp_endpoint": "",
	"telemetry.otlp_insecure": false,
}

// secretKeys are dropped by Save.
var secretKeys = []string{"broker.token", "store.dsn"}

// DefaultPath returns the config file read when no path is given.
func DefaultPath() (string, error) {
	return xdg.ConfigFile()
}

// Load builds the configuration. An empty path reads the default file if it
// exists; an explicit path must exist. Overrides are keyed by dotted names.
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, err
		}
	}

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil || explicit {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, apperrors.Wrap(apperrors.ConfigInvalid, "failed to read "+path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, apperrors.Wrap(apperrors.ConfigInvalid, "failed to read environment", err)
	}

	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ConfigInvalid, "failed to decode configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
}

// Validate checks enumerated settings and ranges.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Store.Driver) {
	case "pinot":
		if err := dsn.Validate(c.Broker.URL); err != nil {
			errs = append(errs, fmt.Errorf("broker.url: %w", err))
		}
	case "postgres", "postgresql":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}
	switch strings.ToLower(c.Telemetry.Exporter) {
	case "", "none", "stdout":
	case "otlp":
		if c.Telemetry.OTLPEndpoint == "" {
			errs = append(errs, errors.New("telemetry.otlp_endpoint: required with the otlp exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("telemetry.exporter: unknown exporter %q", c.Telemetry.Exporter))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl: must be positive, got %s", c.Cache.TTL))
	}
	if c.Cache.Size <= 0 {
		errs = append(errs, fmt.Errorf("cache.size: must be positive, got %d", c.Cache.Size))
	}
	if c.Broker.Timeout < 0 {
		errs = append(errs, fmt.Errorf("broker.timeout: must not be negative, got %s", c.Broker.Timeout))
	}
	if err := errors.Join(errs...); err != nil {
		return apperrors.Wrap(apperrors.ConfigInvalid, "invalid configuration", err)
	}
	return nil
}

// Save writes the non-secret settings of c to path as YAML with 0600 permissions.
// An empty path means DefaultPath.
func Save(path string, c *Config) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	k := koanf.New(".")
	for key, v := range c.flatten() {
		if err := k.Set(key, v); err != nil {
			return err
		}
	}
	for _, key := range secretKeys {
		k.Delete(key)
	}
	b, err := k.Marshal(yaml.Parser())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func (c *Config) flatten() map[string]any {
	return map[string]any{
		"broker.url":              c.Broker.URL,
		"broker.token":            c.Broker.Token,
		"broker.timeout":          c.Broker.Timeout.String(),
		"broker.query_options":    c.Broker.QueryOptions,
		"broker.multistage":       c.Broker.Multistage,
		"store.driver":            c.Store.Driver,
		"store.dsn":               c.Store.DSN,
		"cache.ttl":               c.Cache.TTL.String(),
		"cache.size":              c.Cache.Size,
		"web.addr":                c.Web.Addr,
		"web.grpc_addr":           c.Web.GRPCAddr,
		"log.level":               c.Log.Level,
		"log.format":              c.Log.Format,
		"telemetry.exporter":      c.Telemetry.Exporter,
		"telemetry.otlp_endpoint": c.Telemetry.OTLPEndpoint,
		"telemetry.otlp_insecure": c.Telemetry.OTLPInsecure,
	}
}
