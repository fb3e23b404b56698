// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlexec executes read-only SQL against the dashboard's backing store and
// returns results as labeled tables.
//
// Two stores are supported:
//   - Apache Pinot, through the broker's SQL-over-HTTP endpoint (the default)
//   - PostgreSQL, through a pgx connection pool, for mirrors of the same tables
//
// Executors surface store failures as errors; callers decide how to present them.
package sqlexec

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperrors "pinotboard/cli/internal/errors"
	"pinotboard/cli/internal/table"
)

// Executor runs queries against one store.
type Executor interface {
	// Query executes sql and materializes every row. Column labels come from the
	// result schema, in projection order.
	Query(ctx context.Context, sql string) (*table.Table, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
	// Describe returns a short human-readable name of the store, without secrets.
	Describe() string
	// Close releases resources held by the executor.
	Close()
}

// Driver names accepted by Open.
const (
	DriverPinot    = "pinot"
	DriverPostgres = "postgres"
)

// Options selects and configures an executor.
type Options struct {
	Driver string

	// Pinot
	BrokerURL    string
	Token        string
	Timeout      time.Duration
	QueryOptions string
	Multistage   bool

	// Postgres
	DSN string

	Logger *slog.Logger
}

// Open builds the executor named by opts.Driver. An empty driver means Pinot.
func Open(ctx context.Context, opts Options) (Executor, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverPinot:
		return NewPinot(opts)
	case DriverPostgres, "postgresql":
		return NewPostgres(ctx, opts)
	default:
		return nil, apperrors.New(apperrors.ConfigInvalid, "unknown store driver "+opts.Driver)
	}
}

// preview shortens a query for log records.
func preview(sql string) string {
	s := strings.Join(strings.Fields(sql), " ")
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
