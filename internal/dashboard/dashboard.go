// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dashboard runs the fixed panel queries and lays their results out as a
// page of two rows with two charts each.
package dashboard

import (
	"context"
	"html/template"
	"log/slog"
	"time"

	"pinotboard/cli/internal/chart"
	"pinotboard/cli/internal/runner"
)

// PanelView is a rendered panel. When the query returned rows and the chart
// could be drawn, SVG holds the chart; otherwise Notice holds the text shown in
// its place.
type PanelView struct {
	Panel   Panel               `json:"panel"`
	Outcome runner.Outcome      `json:"outcome"`
	SVG     template.HTML       `json:"-"`
	Legend  []chart.LegendEntry `json:"legend,omitempty"`
	Notice  string              `json:"notice,omitempty"`
	// RenderErr is set when the table had rows but no chart could be drawn.
	RenderErr string `json:"render_error,omitempty"`
}

// HasChart reports whether the panel carries a chart.
func (v PanelView) HasChart() bool { return v.Notice == "" }

// Page is the whole dashboard.
type Page struct {
	Title      string        `json:"title"`
	Rows       [][]PanelView `json:"rows"`
	RenderedAt time.Time     `json:"rendered_at"`
}

// Panels returns every panel view in display order.
func (p Page) Panels() []PanelView {
	var out []PanelView
	for _, row := range p.Rows {
		out = append(out, row...)
	}
	return out
}

// Options tunes rendering.
type Options struct {
	// SkipSVG leaves PanelView.SVG empty, for callers that draw charts themselves.
	SkipSVG bool
	Logger  *slog.Logger
}

// Render runs each panel's query in order and builds the page. A failing panel
// never prevents the others from rendering.
func Render(ctx context.Context, r *runner.Runner, opts Options) Page {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	panels := Panels()
	views := make([]PanelView, 0, len(panels))
	for _, p := range panels {
		views = append(views, renderPanel(ctx, r, p, opts.SkipSVG, logger))
	}
	return Page{
		Title:      Title,
		Rows:       [][]PanelView{views[0:2], views[2:4]},
		RenderedAt: time.Now(),
	}
}

func renderPanel(ctx context.Context, r *runner.Runner, p Panel, skipSVG bool, logger *slog.Logger) PanelView {
	out := r.Run(ctx, p.SQL)
	view := PanelView{Panel: p, Outcome: out}
	if out.Table.IsEmpty() {
		view.Notice = NoDataText
		return view
	}

	err := chart.Validate(out.Table, p.Spec())
	var legend []chart.LegendEntry
	if err == nil {
		legend, err = chart.Legend(out.Table, p.Spec())
	}
	if err == nil && !skipSVG {
		var svg []byte
		if svg, err = chart.SVG(out.Table, p.Spec()); err == nil {
			view.SVG = template.HTML(svg) //nolint:gosec // produced by the chart renderer, not user input
		}
	}
	if err != nil {
		logger.WarnContext(ctx, "chart render failed", "panel", p.ID, "error", err)
		view.Notice = NoDataText
		view.RenderErr = err.Error()
		return view
	}
	view.Legend = legend
	return view
}
