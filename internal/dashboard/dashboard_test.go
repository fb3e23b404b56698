// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dashboard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinotboard/cli/internal/runner"
	"pinotboard/cli/internal/table"
)

// scriptedExecutor answers by matching a fragment of the SQL text.
type scriptedExecutor struct {
	answers map[string]func() (*table.Table, error)
	calls   []string
}

func (s *scriptedExecutor) Query(_ context.Context, sql string) (*table.Table, error) {
	s.calls = append(s.calls, sql)
	for frag, fn := range s.answers {
		if strings.Contains(sql, frag) {
			return fn()
		}
	}
	return table.New(), nil
}

func (s *scriptedExecutor) Ping(context.Context) error { return nil }
func (s *scriptedExecutor) Describe() string           { return "scripted" }
func (s *scriptedExecutor) Close()                     {}

func rows(t *testing.T, cols []string, data ...[]any) func() (*table.Table, error) {
	t.Helper()
	tbl := table.New(cols...)
	for _, r := range data {
		require.NoError(t, tbl.Append(r...))
	}
	return func() (*table.Table, error) { return tbl, nil }
}

func TestPanels(t *testing.T) {
	panels := Panels()
	require.Len(t, panels, 4)

	ids := map[string]bool{}
	for _, p := range panels {
		assert.Contains(t, p.SQL, "FROM Aggregate5")
		assert.Equal(t, "SEGMENT", p.X)
		ids[p.ID] = true
	}
	assert.Len(t, ids, 4)
	assert.Contains(t, panels[1].SQL, "LIMIT 3")
	assert.Contains(t, panels[2].SQL, "ORDER BY total_viewtime ASC")
	assert.Equal(t, "GENDER", panels[0].Color)
	assert.Equal(t, "GENDER", panels[3].Color)
	assert.Empty(t, panels[1].Color)
}

func TestRenderLaysOutTwoByTwo(t *testing.T) {
	exec := &scriptedExecutor{answers: map[string]func() (*table.Table, error){
		"AVG(VIEWTIME)": rows(t, []string{"GENDER", "SEGMENT", "avg_viewtime"},
			[]any{"F", "premium", 41.5}, []any{"M", "premium", 30.0}),
		"LIMIT 3": rows(t, []string{"SEGMENT", "total_viewtime"},
			[]any{"premium", int64(900)}, []any{"basic", int64(400)}),
		"total_viewtime ASC": func() (*table.Table, error) {
			return nil, errors.New("query failed: errorCode 305: 1 segments unavailable: [Aggregate5__0__3]")
		},
		"COUNT(*)": rows(t, []string{"SEGMENT", "GENDER", "total_views"}),
	}}
	r := runner.New(exec)

	page := Render(context.Background(), r, Options{})
	assert.Equal(t, Title, page.Title)
	require.Len(t, page.Rows, 2)
	require.Len(t, page.Rows[0], 2)
	require.Len(t, page.Rows[1], 2)
	assert.Len(t, exec.calls, 4)

	avg := page.Rows[0][0]
	assert.True(t, avg.HasChart())
	assert.Contains(t, string(avg.SVG), "<svg")
	require.Len(t, avg.Legend, 2)
	assert.Equal(t, "F", avg.Legend[0].Name)

	top := page.Rows[0][1]
	assert.True(t, top.HasChart())
	assert.Empty(t, top.Legend)

	failed := page.Rows[1][0]
	assert.False(t, failed.HasChart())
	assert.Equal(t, NoDataText, failed.Notice)
	require.True(t, failed.Outcome.Failed())
	assert.Equal(t, runner.SegmentsUnavailable, failed.Outcome.Advisories[1].Kind)

	empty := page.Rows[1][1]
	assert.Equal(t, NoDataText, empty.Notice)
	require.Len(t, empty.Outcome.Advisories, 1)
	assert.Equal(t, runner.NoData, empty.Outcome.Advisories[0].Kind)

	assert.Len(t, page.Panels(), 4)
}

func TestRenderReportsChartFailure(t *testing.T) {
	exec := &scriptedExecutor{answers: map[string]func() (*table.Table, error){
		"LIMIT 3": rows(t, []string{"SEGMENT", "total"}, []any{"premium", int64(1)}),
	}}
	page := Render(context.Background(), runner.New(exec), Options{SkipSVG: true})

	top := page.Rows[0][1]
	assert.Equal(t, NoDataText, top.Notice)
	assert.Contains(t, top.RenderErr, "total_viewtime")
}

func TestRenderSkipSVG(t *testing.T) {
	exec := &scriptedExecutor{answers: map[string]func() (*table.Table, error){
		"LIMIT 3": rows(t, []string{"SEGMENT", "total_viewtime"}, []any{"premium", int64(1)}),
	}}
	page := Render(context.Background(), runner.New(exec), Options{SkipSVG: true})
	top := page.Rows[0][1]
	assert.True(t, top.HasChart())
	assert.Empty(t, top.SVG)
}

func TestRenderDrawsZeroValuedStack(t *testing.T) {
	exec := &scriptedExecutor{answers: map[string]func() (*table.Table, error){
		"AVG(VIEWTIME)": rows(t, []string{"GENDER", "SEGMENT", "avg_viewtime"},
			[]any{"F", "premium", 0.0}, []any{"M", "basic", 0.0}),
	}}
	page := Render(context.Background(), runner.New(exec), Options{})

	avg := page.Rows[0][0]
	require.Equal(t, "avg-viewtime", avg.Panel.ID)
	assert.True(t, avg.HasChart())
	assert.Empty(t, avg.RenderErr)
	assert.Contains(t, string(avg.SVG), "<svg")
	assert.Len(t, avg.Legend, 2)
}
