// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package chart

import (
	"bytes"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	apperrors "pinotboard/cli/internal/errors"
	"pinotboard/cli/internal/table"
)

func fill(hex string) chart.Style {
	c := drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
	return chart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1}
}

// SVG renders tbl as a bar chart. Without a color column it draws one bar per x
// value; with one it draws stacked bars.
func SVG(tbl *table.Table, spec Spec) ([]byte, error) {
	s, err := extract(tbl, spec)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if spec.Color == "" {
		err = barChart(s, spec).Render(chart.SVG, &buf)
	} else {
		var sbc chart.StackedBarChart
		if sbc, err = stackedChart(s, spec); err == nil {
			err = sbc.Render(chart.SVG, &buf)
		}
	}
	if err != nil {
		if apperrors.KindOf(err) != "" {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.RenderFailed, "failed to render chart", err)
	}
	return buf.Bytes(), nil
}

func barChart(s *series, spec Spec) chart.BarChart {
	w, h := spec.size()
	bars := make([]chart.Value, len(s.xs))
	lo, hi := 0.0, 0.0
	for i, x := range s.xs {
		v := s.total(x)
		lo, hi = min(lo, v), max(hi, v)
		bars[i] = chart.Value{Label: x, Value: v, Style: fill(PaletteColor(0))}
	}
	if lo == hi {
		hi = lo + 1
	}
	return chart.BarChart{
		Title:      spec.Title,
		Width:      w,
		Height:     h,
		BarWidth:   barWidth(w, len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Name:  spec.Y,
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: bars,
	}
}

// stackedChart builds one stacked bar per x value. Zero components draw nothing,
// so a bar whose values are all zero is left empty.
func stackedChart(s *series, spec Spec) (chart.StackedBarChart, error) {
	w, h := spec.size()
	bars := make([]chart.StackedBar, len(s.xs))
	for i, x := range s.xs {
		values := make([]chart.Value, 0, len(s.groups))
		for gi, g := range s.groups {
			v, ok := s.values[x][g]
			if !ok {
				continue
			}
			if v < 0 {
				return chart.StackedBarChart{}, apperrors.New(apperrors.RenderFailed,
					"stacked bars need non-negative values in column "+spec.Y)
			}
			values = append(values, chart.Value{Label: g, Value: v, Style: fill(PaletteColor(gi))})
		}
		bars[i] = chart.StackedBar{Name: x, Width: barWidth(w, len(s.xs)), Values: values}
	}
	return chart.StackedBarChart{
		Title:      spec.Title,
		Width:      w,
		Height:     h,
		BarSpacing: 12,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Bars:       bars,
	}, nil
}

func barWidth(width, n int) int {
	if n == 0 {
		return 0
	}
	return max(8, min(80, (width-80)/n-12))
}
