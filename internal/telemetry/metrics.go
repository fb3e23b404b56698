// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QueryMetrics counts query runner activity. A nil *QueryMetrics is valid and
// records nothing.
type QueryMetrics struct {
	executions  metric.Int64Counter
	cacheHits   metric.Int64Counter
	failures    metric.Int64Counter
	segments    metric.Int64Counter
	durationsMs metric.Float64Histogram
}

// NewQueryMetrics creates the instruments on the global meter provider.
func NewQueryMetrics() (*QueryMetrics, error) {
	return NewQueryMetricsWithMeter(otel.Meter("pinotboard/runner"))
}

// NewQueryMetricsWithMeter creates the instruments on the given meter.
func NewQueryMetricsWithMeter(meter metric.Meter) (*QueryMetrics, error) {
	executions, err := meter.Int64Counter("pinotboard.queries.total",
		metric.WithDescription("Queries executed against the store"))
	if err != nil {
		return nil, err
	}
	cacheHits, err := meter.Int64Counter("pinotboard.queries.cache_hits",
		metric.WithDescription("Queries answered from the result cache"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("pinotboard.queries.failures",
		metric.WithDescription("Query executions that failed, by error category"))
	if err != nil {
		return nil, err
	}
	segments, err := meter.Int64Counter("pinotboard.segments.unavailable",
		metric.WithDescription("Unavailable segments reported by the broker"))
	if err != nil {
		return nil, err
	}
	durations, err := meter.Float64Histogram("pinotboard.queries.duration",
		metric.WithDescription("Store execution time"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &QueryMetrics{
		executions:  executions,
		cacheHits:   cacheHits,
		failures:    failures,
		segments:    segments,
		durationsMs: durations,
	}, nil
}

// RecordExecution counts one store execution and its duration.
func (m *QueryMetrics) RecordExecution(ctx context.Context, ms float64, ok bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("ok", ok))
	m.executions.Add(ctx, 1, attrs)
	m.durationsMs.Record(ctx, ms, attrs)
}

// RecordCacheHit counts a query served from the cache.
func (m *QueryMetrics) RecordCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1)
}

// RecordFailure counts a failed execution under the given category.
func (m *QueryMetrics) RecordFailure(ctx context.Context, category string) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}

// RecordUnavailableSegments counts segments named in an unavailable-segments error.
func (m *QueryMetrics) RecordUnavailableSegments(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.segments.Add(ctx, int64(n))
}
