// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package chart

import (
	"math"

	"github.com/pterm/pterm"

	apperrors "pinotboard/cli/internal/errors"
	"pinotboard/cli/internal/table"
)

var terminalColors = []pterm.Color{
	pterm.FgBlue, pterm.FgRed, pterm.FgGreen, pterm.FgMagenta, pterm.FgYellow,
	pterm.FgCyan, pterm.FgLightRed, pterm.FgLightGreen, pterm.FgLightMagenta, pterm.FgLightYellow,
}

// Terminal renders tbl as horizontal bars. With a color column each x value gets
// one bar per category, labeled "x / category".
func Terminal(tbl *table.Table, spec Spec) (string, error) {
	s, err := extract(tbl, spec)
	if err != nil {
		return "", err
	}

	var bars pterm.Bars
	for _, x := range s.xs {
		for gi, g := range s.groups {
			v, ok := s.values[x][g]
			if !ok {
				continue
			}
			label := x
			if g != "" {
				label = x + " / " + g
			}
			bars = append(bars, pterm.Bar{
				Label: label,
				Value: int(math.Round(v)),
				Style: pterm.NewStyle(terminalColors[gi%len(terminalColors)]),
			})
		}
	}

	out, err := pterm.DefaultBarChart.
		WithBars(bars).
		WithHorizontal().
		WithShowValue().
		WithWidth(40).
		Srender()
	if err != nil {
		return "", apperrors.Wrap(apperrors.RenderFailed, "failed to render chart", err)
	}
	return out, nil
}
