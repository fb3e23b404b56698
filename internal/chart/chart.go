// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package chart draws bar charts from result tables, as SVG for the browser page
// and as text for the terminal dashboard.
//
// Bars follow the table's row order. When a color column is set, rows sharing an
// x value are stacked, one segment per color category, in order of first
// appearance. Repeated (x, color) pairs are summed.
package chart

import (
	"fmt"
	"math"

	apperrors "pinotboard/cli/internal/errors"
	"pinotboard/cli/internal/table"
)

// Spec selects the columns a chart is drawn from.
type Spec struct {
	Title string
	X     string
	Y     string
	// Color optionally splits each bar by the values of this column.
	Color string

	Width  int
	Height int
}

const (
	defaultWidth  = 640
	defaultHeight = 400
)

func (s Spec) size() (int, int) {
	w, h := s.Width, s.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

// Palette is the categorical color sequence used for color groups.
var Palette = []string{
	"#636EFA", "#EF553B", "#00CC96", "#AB63FA", "#FFA15A",
	"#19D3F3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52",
}

// PaletteColor returns the color for the i-th category.
func PaletteColor(i int) string { return Palette[i%len(Palette)] }

// LegendEntry names the color used for one category.
type LegendEntry struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// series is a table reduced to the cells a bar chart needs.
type series struct {
	xs     []string
	groups []string
	// values[x][group]; group is "" without a color column.
	values map[string]map[string]float64
}

func (s *series) total(x string) float64 {
	var sum float64
	for _, v := range s.values[x] {
		sum += v
	}
	return sum
}

func extract(tbl *table.Table, spec Spec) (*series, error) {
	if tbl.IsEmpty() {
		return nil, apperrors.New(apperrors.RenderFailed, "no rows to chart")
	}
	xi, ok := tbl.ColumnIndex(spec.X)
	if !ok {
		return nil, apperrors.New(apperrors.RenderFailed, fmt.Sprintf("column %q not in result", spec.X))
	}
	yi, ok := tbl.ColumnIndex(spec.Y)
	if !ok {
		return nil, apperrors.New(apperrors.RenderFailed, fmt.Sprintf("column %q not in result", spec.Y))
	}
	ci := -1
	if spec.Color != "" {
		if ci, ok = tbl.ColumnIndex(spec.Color); !ok {
			return nil, apperrors.New(apperrors.RenderFailed, fmt.Sprintf("column %q not in result", spec.Color))
		}
	}

	s := &series{values: map[string]map[string]float64{}}
	seenGroup := map[string]bool{}
	for row := 0; row < tbl.Len(); row++ {
		y, ok := tbl.Float(row, yi)
		if !ok || math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, apperrors.New(apperrors.RenderFailed,
				fmt.Sprintf("column %q row %d is not a finite number: %v", spec.Y, row, tbl.Value(row, yi)))
		}
		x := tbl.String(row, xi)
		group := ""
		if ci >= 0 {
			group = tbl.String(row, ci)
		}
		if _, ok := s.values[x]; !ok {
			s.xs = append(s.xs, x)
			s.values[x] = map[string]float64{}
		}
		if !seenGroup[group] {
			seenGroup[group] = true
			s.groups = append(s.groups, group)
		}
		s.values[x][group] += y
	}
	return s, nil
}

// Legend lists the color of each category of spec.Color, in drawing order.
// It is empty when the chart has no color column.
func Legend(tbl *table.Table, spec Spec) ([]LegendEntry, error) {
	if spec.Color == "" {
		return nil, nil
	}
	s, err := extract(tbl, spec)
	if err != nil {
		return nil, err
	}
	entries := make([]LegendEntry, len(s.groups))
	for i, g := range s.groups {
		entries[i] = LegendEntry{Name: g, Color: PaletteColor(i)}
	}
	return entries, nil
}

// Validate reports whether tbl can be drawn with spec.
func Validate(tbl *table.Table, spec Spec) error {
	_, err := extract(tbl, spec)
	return err
}
