// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"pinotboard/cli/internal/dsn"
	apperrors "pinotboard/cli/internal/errors"
	"pinotboard/cli/internal/logging"
	"pinotboard/cli/internal/table"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresExecutor executes queries using a pgx connection pool.
type PostgresExecutor struct {
	// Pool is the PostgreSQL connection pool
	Pool   *pgxpool.Pool
	dsn    string
	logger *slog.Logger
}

// NewPostgres normalizes opts.DSN and opens a pool. Connections are made lazily.
func NewPostgres(ctx context.Context, opts Options) (*PostgresExecutor, error) {
	normalized, err := dsn.Parse(opts.DSN)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ConfigInvalid, "postgres dsn", err)
	}
	pool, err := pgxpool.New(ctx, normalized)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ConfigInvalid, "postgres pool", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresExecutor{Pool: pool, dsn: normalized, logger: logger}, nil
}

// Query runs a read query on a pooled connection and converts pgx values into
// plain Go values.
func (e *PostgresExecutor) Query(ctx context.Context, sql string) (*table.Table, error) {
	conn, err := e.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	res := table.New(cols...)

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			vals[i] = normalizeValue(v)
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "postgres query executed", "sql", preview(sql), "rows", res.Len())
	return res, nil
}

// normalizeValue flattens pgx-specific types (numeric, timestamps) so that the
// chart layer only deals with float64, int64, string and bool.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return v
	}
}

// Ping verifies connectivity with a short timeout.
func (e *PostgresExecutor) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := e.Pool.Ping(ctx); err != nil {
		return apperrors.Wrap(apperrors.BrokerUnreachable, "postgres ping", err)
	}
	return nil
}

// Describe returns the DSN with credentials masked.
func (e *PostgresExecutor) Describe() string {
	return "postgres " + logging.Mask(e.dsn)
}

// Close closes the pool.
func (e *PostgresExecutor) Close() { e.Pool.Close() }
