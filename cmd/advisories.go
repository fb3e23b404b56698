// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"io"
	"strings"

	"github.com/pterm/pterm"

	"pinotboard/cli/internal/runner"
)

// advisoryPrinter picks the pterm prefix printer for a kind.
func advisoryPrinter(kind runner.AdvisoryKind) pterm.PrefixPrinter {
	switch kind.Level() {
	case "warning":
		return pterm.Warning
	case "error":
		return pterm.Error
	default:
		return pterm.Info
	}
}

// formatAdvisories renders advisories styled by level. Messages longer than
// width are wrapped; width <= 0 disables wrapping.
func formatAdvisories(advisories []runner.Advisory, width int) string {
	var b strings.Builder
	for _, adv := range advisories {
		msg := adv.Message
		if width > 0 && len(msg) > width {
			msg = pterm.DefaultParagraph.WithMaxWidth(width).Sprint(msg)
		}
		b.WriteString(advisoryPrinter(adv.Kind).Sprintln(msg))
	}
	return b.String()
}

func printAdvisories(w io.Writer, advisories []runner.Advisory) {
	_, _ = io.WriteString(w, formatAdvisories(advisories, 0))
}
