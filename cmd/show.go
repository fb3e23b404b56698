// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pinotboard/cli/internal/chart"
	"pinotboard/cli/internal/dashboard"
	"pinotboard/cli/internal/terminal"
)

var watchInterval time.Duration

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Render the dashboard in the terminal",
	Long: `The show command runs the four dashboard queries and draws each result as a bar
chart in a two-by-two grid. Panels whose query fails or returns no rows show a notice
and any advisories instead.

With --watch the dashboard is redrawn in place at the given interval until interrupted.
Results stay cached for cache.ttl, so intervals shorter than that reuse cached data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r, closeStore, err := openRunner(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		render := func() string {
			page := dashboard.Render(ctx, r, dashboard.Options{SkipSVG: true, Logger: app.logger})
			return renderTerminalPage(page, terminal.Width())
		}

		if watchInterval <= 0 {
			pterm.Println(render())
			return nil
		}
		return watch(ctx, watchInterval, render)
	},
}

// watch redraws render's output in place until ctx is done.
func watch(ctx context.Context, every time.Duration, render func() string) error {
	cursor.Hide()
	defer cursor.Show()
	area, err := pterm.DefaultArea.Start()
	if err != nil {
		return err
	}
	defer func() { _ = area.Stop() }()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		area.Update(render())
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// renderTerminalPage lays the page out as two rows of two boxed panels.
func renderTerminalPage(page dashboard.Page, width int) string {
	var b strings.Builder
	b.WriteString(pterm.DefaultHeader.WithFullWidth().Sprint(page.Title))
	b.WriteString("\n")

	for _, row := range page.Rows {
		var cells []pterm.Panel
		for _, view := range row {
			cells = append(cells, pterm.Panel{Data: renderTerminalPanel(view, width/2-4)})
		}
		out, err := pterm.DefaultPanel.WithPanels(pterm.Panels{cells}).WithPadding(2).Srender()
		if err != nil {
			out = err.Error()
		}
		b.WriteString(out)
		b.WriteString("\n")
	}
	b.WriteString(pterm.FgGray.Sprintf("Rendered %s", page.RenderedAt.Format("15:04:05")))
	return b.String()
}

func renderTerminalPanel(view dashboard.PanelView, width int) string {
	width = max(width, 30)
	var body strings.Builder
	body.WriteString(formatAdvisories(view.Outcome.Advisories, width-12))
	if view.HasChart() {
		out, err := chart.Terminal(view.Outcome.Table, view.Panel.Spec())
		if err != nil {
			out = dashboard.NoDataText
		}
		body.WriteString(out)
	} else {
		body.WriteString(view.Notice)
	}

	content := strings.TrimRight(body.String(), "\n")
	return pterm.DefaultBox.
		WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(view.Panel.Title)).
		Sprint(content)
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().DurationVar(&watchInterval, "watch", 0, "Redraw every interval, e.g. 30s (0 draws once)")
}
