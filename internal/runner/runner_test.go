// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinotboard/cli/internal/table"
)

// fakeExecutor answers queries from a map and counts executions.
type fakeExecutor struct {
	mu      sync.Mutex
	results map[string]*table.Table
	errs    map[string]error
	delay   time.Duration
	calls   atomic.Int32
}

func newFake() *fakeExecutor {
	return &fakeExecutor{results: map[string]*table.Table{}, errs: map[string]error{}}
}

func (f *fakeExecutor) Query(ctx context.Context, sql string) (*table.Table, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[sql]; ok {
		return nil, err
	}
	if tbl, ok := f.results[sql]; ok {
		return tbl, nil
	}
	return table.New("x"), nil
}

func (f *fakeExecutor) Ping(context.Context) error { return nil }
func (f *fakeExecutor) Describe() string           { return "fake" }
func (f *fakeExecutor) Close()                     {}

func segmentTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New("SEGMENT", "total_viewtime")
	require.NoError(t, tbl.Append("A", int64(120)))
	require.NoError(t, tbl.Append("B", int64(80)))
	return tbl
}

func TestRunReturnsProjectedColumns(t *testing.T) {
	exec := newFake()
	exec.results["q"] = segmentTable(t)
	r := New(exec)

	out := r.Run(context.Background(), "q")
	assert.False(t, out.Failed())
	assert.False(t, out.Cached)
	assert.Empty(t, out.Advisories)
	assert.Equal(t, []string{"SEGMENT", "total_viewtime"}, out.Table.Columns)
	assert.Equal(t, 2, out.Table.Len())
}

func TestRunNoData(t *testing.T) {
	exec := newFake()
	exec.results["q"] = table.New("SEGMENT", "total_viewtime")
	r := New(exec)

	out := r.Run(context.Background(), "q")
	assert.True(t, out.Table.IsEmpty())
	require.Len(t, out.Advisories, 1)
	assert.Equal(t, NoData, out.Advisories[0].Kind)
	assert.Equal(t, "No data returned for query: q", out.Advisories[0].Message)
}

func TestRunFailureReturnsEmptyTable(t *testing.T) {
	exec := newFake()
	exec.errs["q"] = errors.New("query failed: errorCode 305: 2 segments unavailable: [s1, s2]")
	r := New(exec)

	out := r.Run(context.Background(), "q")
	require.True(t, out.Failed())
	assert.Empty(t, out.Table.Columns)
	assert.Empty(t, out.Table.Rows)

	kinds := make([]AdvisoryKind, 0, len(out.Advisories))
	for _, a := range out.Advisories {
		kinds = append(kinds, a.Kind)
	}
	assert.Equal(t, []AdvisoryKind{QueryFailed, SegmentsUnavailable, SegmentsHint}, kinds)
	assert.Equal(t, []string{"s1", "s2"}, out.Advisories[1].Segments)
}

func TestRunCachesWithinWindow(t *testing.T) {
	exec := newFake()
	exec.results["q"] = segmentTable(t)
	r := New(exec, WithTTL(time.Minute))

	first := r.Run(context.Background(), "q")
	second := r.Run(context.Background(), "q")

	assert.EqualValues(t, 1, exec.calls.Load())
	assert.True(t, second.Cached)
	assert.True(t, first.Table.Equal(second.Table))
}

func TestRunReexecutesAfterWindow(t *testing.T) {
	exec := newFake()
	exec.results["q"] = segmentTable(t)
	r := New(exec, WithTTL(50*time.Millisecond))

	r.Run(context.Background(), "q")
	time.Sleep(120 * time.Millisecond)
	out := r.Run(context.Background(), "q")

	assert.EqualValues(t, 2, exec.calls.Load())
	assert.False(t, out.Cached)
}

func TestRunCachesFailures(t *testing.T) {
	exec := newFake()
	exec.errs["q"] = errors.New("broker down")
	r := New(exec)

	r.Run(context.Background(), "q")
	out := r.Run(context.Background(), "q")

	assert.EqualValues(t, 1, exec.calls.Load())
	assert.True(t, out.Cached)
	assert.True(t, out.Failed())
	require.NotEmpty(t, out.Advisories)
	assert.Equal(t, QueryFailed, out.Advisories[0].Kind)
}

func TestRunDoesNotCacheCancellation(t *testing.T) {
	exec := newFake()
	exec.errs["q"] = context.Canceled
	r := New(exec)

	out := r.Run(context.Background(), "q")
	require.True(t, out.Failed())

	delete(exec.errs, "q")
	out = r.Run(context.Background(), "q")
	assert.False(t, out.Failed())
	assert.EqualValues(t, 2, exec.calls.Load())
}

func TestRunSkipsExecutionForDoneContext(t *testing.T) {
	exec := newFake()
	r := New(exec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := r.Run(ctx, "q")
	require.True(t, out.Failed())
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.True(t, out.Table.IsEmpty())
	assert.EqualValues(t, 0, exec.calls.Load())
}

func TestRunWaiterSurvivesLeaderCancellation(t *testing.T) {
	exec := newFake()
	exec.delay = 150 * time.Millisecond
	exec.results["q"] = segmentTable(t)
	r := New(exec)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderDone := make(chan Outcome, 1)
	go func() { leaderDone <- r.Run(leaderCtx, "q") }()
	require.Eventually(t, func() bool { return exec.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	waiterDone := make(chan Outcome, 1)
	go func() { waiterDone <- r.Run(context.Background(), "q") }()
	cancelLeader()

	leader := <-leaderDone
	assert.True(t, leader.Failed())
	assert.ErrorIs(t, leader.Err, context.Canceled)

	waiter := <-waiterDone
	assert.False(t, waiter.Failed())
	assert.Empty(t, waiter.Advisories)
	assert.Equal(t, 2, waiter.Table.Len())
	assert.EqualValues(t, 1, exec.calls.Load())

	// The detached execution filled the cache.
	again := r.Run(context.Background(), "q")
	assert.True(t, again.Cached)
	assert.False(t, again.Failed())
}

// panickingExecutor fails every query with a panic.
type panickingExecutor struct{ fakeExecutor }

func (p *panickingExecutor) Query(context.Context, string) (*table.Table, error) {
	panic("boom")
}

func TestRunRecoversExecutorPanic(t *testing.T) {
	r := New(&panickingExecutor{})

	var out Outcome
	require.NotPanics(t, func() { out = r.Run(context.Background(), "q") })
	require.True(t, out.Failed())
	assert.True(t, out.Table.IsEmpty())
	require.NotEmpty(t, out.Advisories)
	assert.Equal(t, QueryFailed, out.Advisories[0].Kind)
	assert.Equal(t, "Error executing query: query panicked: boom", out.Advisories[0].Message)
}

func TestRunKeysOnLiteralText(t *testing.T) {
	exec := newFake()
	r := New(exec)

	r.Run(context.Background(), "SELECT 1")
	r.Run(context.Background(), "SELECT  1")
	assert.EqualValues(t, 2, exec.calls.Load())
}

func TestRunCoalescesConcurrentCalls(t *testing.T) {
	exec := newFake()
	exec.delay = 100 * time.Millisecond
	exec.results["q"] = segmentTable(t)
	r := New(exec)

	var wg sync.WaitGroup
	outs := make([]Outcome, 8)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i] = r.Run(context.Background(), "q")
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, exec.calls.Load())
	for _, out := range outs {
		assert.Equal(t, 2, out.Table.Len())
	}
}

func TestPurge(t *testing.T) {
	exec := newFake()
	r := New(exec)

	r.Run(context.Background(), "q")
	r.Purge()
	r.Run(context.Background(), "q")
	assert.EqualValues(t, 2, exec.calls.Load())
	assert.Equal(t, time.Minute, r.TTL())
}
