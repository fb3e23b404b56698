// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pinotboard/cli/internal/config"
	"pinotboard/cli/internal/dsn"
	"pinotboard/cli/internal/keychain"
	"pinotboard/cli/internal/logging"
)

var brokerinfoPing bool

// brokerinfoCmd shows where queries go, with credentials masked.
var brokerinfoCmd = &cobra.Command{
	Use:   "brokerinfo",
	Short: "Show the configured store and where its secrets come from",
	Long: `The brokerinfo command prints the broker URL (or Postgres DSN) the dashboard queries,
with passwords and tokens masked, and reports whether the access token comes from the
environment or the OS keychain. With --ping it also checks that the store answers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.cfg
		tokenSource := secretSource(os.Getenv(config.EnvPrefix+"BROKER_TOKEN"), keychain.KeyBrokerToken)

		data := pterm.TableData{
			{"Setting", "Value"},
			{"store.driver", cfg.Store.Driver},
		}
		if isPostgres(cfg) {
			dsnSource := secretSource(os.Getenv(config.EnvPrefix+"STORE_DSN"), keychain.KeyStoreDSN)
			resolveSecrets(cfg)
			data = append(data, []string{"store.dsn", maskOrNone(cfg.Store.DSN) + " (" + dsnSource + ")"})
			data = append(data, endpointRows("store", cfg.Store.DSN)...)
		} else {
			data = append(data, []string{"broker.url", logging.Mask(cfg.Broker.URL)})
			data = append(data, endpointRows("broker", cfg.Broker.URL)...)
			data = append(data,
				[]string{"broker.token", tokenSource},
				[]string{"broker.timeout", cfg.Broker.Timeout.String()},
				[]string{"broker.multistage", boolString(cfg.Broker.Multistage)},
			)
			if cfg.Broker.QueryOptions != "" {
				data = append(data, []string{"broker.query_options", cfg.Broker.QueryOptions})
			}
		}
		data = append(data, []string{"cache.ttl", cfg.Cache.TTL.String()})

		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return err
		}
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Store Connection")).
			WithPadding(1).
			Println(table)

		if brokerinfoPing {
			r, closeStore, err := openRunner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := r.Executor().Ping(ctx); err != nil {
				pterm.Error.Println(logging.SummarizeStoreError("Store unreachable", err))
				return reported(err)
			}
			pterm.Success.Println("Store is reachable: " + r.Executor().Describe())
		}

		pterm.Println()
		pterm.Println("To update this connection, run: pinotboard connect")
		return nil
	},
}

// endpointRows breaks a connection string into the parts a user checks first.
// Credentials are left out.
func endpointRows(prefix, raw string) [][]string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	info, err := dsn.ParseInfo(raw)
	if err != nil {
		return [][]string{{prefix + ".parsed", "invalid: " + logging.Mask(err.Error())}}
	}
	rows := [][]string{
		{prefix + ".host", info.Host},
		{prefix + ".port", info.Port},
	}
	switch info.Type {
	case dsn.DBTypePinot:
		rows = append(rows, []string{prefix + ".path", info.Path})
	case dsn.DBTypePostgreSQL:
		rows = append(rows, []string{prefix + ".database", info.Database})
	}
	if info.User != "" {
		rows = append(rows, []string{prefix + ".user", info.User})
	}
	return rows
}

// secretSource names where a secret would be loaded from.
func secretSource(envValue, key string) string {
	if strings.TrimSpace(envValue) != "" {
		return "from environment"
	}
	km, err := keychain.GetManager()
	if err != nil {
		return "not set (keychain unavailable)"
	}
	var loadErr error
	switch key {
	case keychain.KeyBrokerToken:
		_, loadErr = km.LoadBrokerToken()
	case keychain.KeyStoreDSN:
		_, loadErr = km.LoadStoreDSN()
	}
	if loadErr != nil {
		return "not set"
	}
	return "from OS keychain"
}

func maskOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return logging.Mask(s)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func init() {
	rootCmd.AddCommand(brokerinfoCmd)
	brokerinfoCmd.Flags().BoolVar(&brokerinfoPing, "ping", false, "Also check that the store answers")
}
