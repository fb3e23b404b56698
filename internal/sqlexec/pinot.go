// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"log/slog"

	apperrors "pinotboard/cli/internal/errors"
	"pinotboard/cli/internal/pinot"
	"pinotboard/cli/internal/table"
)

// PinotExecutor runs queries through a shared broker client, one cursor per query.
type PinotExecutor struct {
	client *pinot.Client
	logger *slog.Logger
}

// NewPinot builds a broker client from opts and wraps it.
func NewPinot(opts Options) (*PinotExecutor, error) {
	ep, user, err := pinot.ParseEndpoint(opts.BrokerURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ConfigInvalid, "broker url", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := pinot.New(ep,
		pinot.WithBasicAuth(user),
		pinot.WithToken(opts.Token),
		pinot.WithTimeout(opts.Timeout),
		pinot.WithQueryOptions(opts.QueryOptions),
		pinot.WithMultistage(opts.Multistage),
		pinot.WithLogger(logger),
	)
	return NewPinotFromClient(client, logger), nil
}

// NewPinotFromClient wraps an existing client.
func NewPinotFromClient(client *pinot.Client, logger *slog.Logger) *PinotExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PinotExecutor{client: client, logger: logger}
}

// Query executes sql on a fresh cursor.
func (e *PinotExecutor) Query(ctx context.Context, sql string) (*table.Table, error) {
	cur, err := e.client.Cursor().Execute(ctx, sql)
	if err != nil {
		return nil, err
	}
	cols, err := cur.Description()
	if err != nil {
		return nil, err
	}
	rows, err := cur.FetchAll()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	res := table.New(names...)
	res.Rows = rows

	if stats, err := cur.Stats(); err == nil {
		e.logger.DebugContext(ctx, "pinot query executed",
			"sql", preview(sql),
			"request_id", cur.RequestID(),
			"rows", len(rows),
			"segments_queried", stats.SegmentsQueried,
			"segments_matched", stats.SegmentsMatched,
			"time_used_ms", stats.TimeUsedMs)
	}
	return res, nil
}

// Ping calls the broker health endpoint.
func (e *PinotExecutor) Ping(ctx context.Context) error {
	if err := e.client.Health(ctx); err != nil {
		return apperrors.Wrap(apperrors.BrokerUnreachable, "broker health check", err)
	}
	return nil
}

// Describe returns the broker query URL.
func (e *PinotExecutor) Describe() string {
	return "pinot " + e.client.Endpoint().QueryURL()
}

// Close is a no-op; the HTTP transport is shared.
func (e *PinotExecutor) Close() {}
