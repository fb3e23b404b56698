// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package runner executes dashboard queries against a store and turns every outcome,
// including failures, into a table plus advisories. Identical SQL text is served
// from a short-lived cache and concurrent identical requests share one execution.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"pinotboard/cli/internal/logging"
	"pinotboard/cli/internal/querycache"
	"pinotboard/cli/internal/sqlexec"
	"pinotboard/cli/internal/table"
	"pinotboard/cli/internal/telemetry"
)

// Outcome is the result of one Run. Table is never nil; on failure it has no
// columns and no rows. Tables returned from the cache are shared and must not
// be modified.
type Outcome struct {
	Table      *table.Table  `json:"table"`
	Advisories []Advisory    `json:"advisories,omitempty"`
	Cached     bool          `json:"cached"`
	Duration   time.Duration `json:"duration_ns"`
	// Err is the store failure, if any. It is already reflected in Advisories.
	Err error `json:"-"`
}

// Failed reports whether the store rejected the query.
func (o Outcome) Failed() bool { return o.Err != nil }

// Option configures a Runner.
type Option func(*Runner)

// WithTTL sets the cache window.
func WithTTL(d time.Duration) Option { return func(r *Runner) { r.ttl = d } }

// WithCacheSize bounds the number of cached queries.
func WithCacheSize(n int) Option { return func(r *Runner) { r.size = n } }

// WithLogger sets the logger used for execution records.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records executions, cache hits and failures on m.
func WithMetrics(m *telemetry.QueryMetrics) Option { return func(r *Runner) { r.metrics = m } }

// Runner wraps one executor. It is safe for concurrent use.
type Runner struct {
	exec    sqlexec.Executor
	cache   *querycache.Cache[Outcome]
	group   singleflight.Group
	tracer  trace.Tracer
	metrics *telemetry.QueryMetrics
	logger  *slog.Logger

	ttl  time.Duration
	size int
}

// New creates a Runner over exec. The executor stays owned by the caller.
func New(exec sqlexec.Executor, opts ...Option) *Runner {
	r := &Runner{
		exec:   exec,
		tracer: otel.Tracer("pinotboard/runner"),
		logger: slog.Default(),
		ttl:    querycache.DefaultTTL,
		size:   querycache.DefaultSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cache = querycache.New[Outcome](r.size, r.ttl)
	return r
}

// TTL returns the cache window in effect.
func (r *Runner) TTL() time.Duration { return r.cache.TTL() }

// Executor returns the wrapped executor.
func (r *Runner) Executor() sqlexec.Executor { return r.exec }

// Purge drops every cached outcome.
func (r *Runner) Purge() { r.cache.Purge() }

// Run executes sql, or replays the outcome cached for the same text inside the
// cache window. It never returns an error: failures become an empty table and
// advisories.
//
// The shared execution is detached from ctx, so a caller that goes away does not
// fail the others waiting on the same text. The caller itself stops waiting when
// ctx is done and gets a failed outcome; the execution still completes and fills
// the cache.
func (r *Runner) Run(ctx context.Context, sql string) Outcome {
	if out, ok := r.cache.Get(sql); ok {
		r.metrics.RecordCacheHit(ctx)
		out.Cached = true
		return out
	}
	if err := ctx.Err(); err != nil {
		return failed(err, 0)
	}

	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(sql, func() (any, error) {
		// A concurrent caller may have filled the cache while this one waited.
		if out, ok := r.cache.Get(sql); ok {
			r.metrics.RecordCacheHit(shared)
			out.Cached = true
			return out, nil
		}
		out := r.execute(shared, sql)
		if !errors.Is(out.Err, context.Canceled) {
			r.cache.Add(sql, out)
		}
		return out, nil
	})
	select {
	case res := <-ch:
		return res.Val.(Outcome)
	case <-ctx.Done():
		return failed(ctx.Err(), 0)
	}
}

func failed(err error, elapsed time.Duration) Outcome {
	return Outcome{Table: table.Empty(), Advisories: Diagnose(err), Duration: elapsed, Err: err}
}

func (r *Runner) execute(ctx context.Context, sql string) (out Outcome) {
	ctx, span := r.tracer.Start(ctx, "pinotboard.query",
		trace.WithAttributes(
			attribute.String("db.system", r.exec.Describe()),
			attribute.String("db.statement", sql),
		))
	defer span.End()

	start := time.Now()
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		err := fmt.Errorf("query panicked: %v", v)
		span.RecordError(err)
		span.SetStatus(codes.Error, "query panicked")
		r.metrics.RecordFailure(ctx, "panic")
		r.logger.ErrorContext(ctx, "query panicked", "panic", v)
		out = failed(err, time.Since(start))
	}()

	tbl, err := r.exec.Query(ctx, sql)
	elapsed := time.Since(start)
	r.metrics.RecordExecution(ctx, float64(elapsed.Microseconds())/1000, err == nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")

		category := classify(err)
		r.metrics.RecordFailure(ctx, category.String())
		advisories := Diagnose(err)
		for _, adv := range advisories {
			if adv.Kind == SegmentsUnavailable {
				r.metrics.RecordUnavailableSegments(ctx, len(adv.Segments))
				span.SetAttributes(attribute.StringSlice("pinot.segments.unavailable", adv.Segments))
			}
		}
		r.logger.WarnContext(ctx, "query failed",
			"category", category.String(),
			"elapsed", elapsed,
			"error", logging.Mask(err.Error()))
		return Outcome{Table: table.Empty(), Advisories: advisories, Duration: elapsed, Err: err}
	}

	if tbl == nil {
		tbl = table.Empty()
	}
	out = Outcome{Table: tbl, Duration: elapsed}
	if tbl.Len() == 0 {
		out.Advisories = []Advisory{{Kind: NoData, Message: "No data returned for query: " + sql}}
	}
	span.SetAttributes(attribute.Int("db.rows", tbl.Len()))
	r.logger.DebugContext(ctx, "query executed", "rows", tbl.Len(), "elapsed", elapsed)
	return out
}
