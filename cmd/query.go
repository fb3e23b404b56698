// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pinotboard/cli/internal/chart"
	"pinotboard/cli/internal/logging"
	"pinotboard/cli/internal/runner"
	"pinotboard/cli/internal/table"
)

var (
	queryJSON  bool
	queryX     string
	queryY     string
	queryColor string
)

var queryCmd = &cobra.Command{
	Use:   "query SQL",
	Short: "Run an ad-hoc SQL query against the store",
	Long: `The query command runs one SQL statement through the same path the dashboard uses
and prints the result as a table. Failures are reported with the same advisories the
dashboard shows, including the list of unavailable segments when the broker names them.

Pass "-" to read the statement from stdin. With --x and --y the result is also drawn
as a bar chart.`,
	Example: `  pinotboard query "SELECT SEGMENT, COUNT(*) AS views FROM Aggregate5 GROUP BY SEGMENT"
  pinotboard query --x SEGMENT --y views "SELECT SEGMENT, COUNT(*) AS views FROM Aggregate5 GROUP BY SEGMENT"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sql := strings.Join(args, " ")
		if sql == "-" {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			sql = string(b)
		}
		if strings.TrimSpace(sql) == "" {
			return errors.New("query text is empty")
		}

		r, closeStore, err := openRunner(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		out := r.Run(cmd.Context(), sql)
		if queryJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		return printOutcome(cmd.OutOrStdout(), out)
	},
}

func printOutcome(w io.Writer, out runner.Outcome) error {
	if out.Failed() {
		_, _ = fmt.Fprintln(w, logging.FormatQueryError(out.Err.Error()))
		// The first advisory repeats the error verbatim.
		printAdvisories(w, out.Advisories[1:])
		return reported(out.Err)
	}
	printAdvisories(w, out.Advisories)
	if out.Table.IsEmpty() {
		return nil
	}

	rendered, err := pterm.DefaultTable.WithHasHeader().WithData(tableData(out.Table)).Srender()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, rendered)
	_, _ = fmt.Fprintln(w, pterm.FgGray.Sprintf("%d rows in %s", out.Table.Len(), out.Duration))

	if queryX != "" && queryY != "" {
		bars, err := chart.Terminal(out.Table, chart.Spec{X: queryX, Y: queryY, Color: queryColor})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, bars)
	}
	return nil
}

func tableData(t *table.Table) pterm.TableData {
	data := pterm.TableData{append([]string(nil), t.Columns...)}
	for row := 0; row < t.Len(); row++ {
		cells := make([]string, len(t.Columns))
		for col := range t.Columns {
			cells[col] = t.String(row, col)
		}
		data = append(data, cells)
	}
	return data
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the outcome as JSON")
	queryCmd.Flags().StringVar(&queryX, "x", "", "Column for the chart's x axis")
	queryCmd.Flags().StringVar(&queryY, "y", "", "Numeric column for the chart's bar heights")
	queryCmd.Flags().StringVar(&queryColor, "color", "", "Column splitting each bar into stacked groups")
	queryCmd.SetIn(os.Stdin)
}
