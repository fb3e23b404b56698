// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pinotboard/cli/internal/config"
	"pinotboard/cli/internal/dsn"
	"pinotboard/cli/internal/httperrors"
	"pinotboard/cli/internal/keychain"
	"pinotboard/cli/internal/logging"
	"pinotboard/cli/internal/pinot"
	"pinotboard/cli/internal/sqlexec"
	"pinotboard/cli/internal/terminal"
)

var connectNoToken bool

// connectCmd prompts for a broker URL and token, verifies the broker answers,
// then saves the URL to the config file and the token to the OS keychain.
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Configure and verify the Pinot broker",
	Long: `The connect command prompts for the Pinot broker URL and an optional access token,
checks the broker's /health endpoint, and saves the settings. The URL is written to
the config file; the token is stored in the OS keychain, never in the file.

With --driver postgres it prompts for a PostgreSQL DSN instead, checks that the
database answers, and stores the DSN in the OS keychain.

Example URL: http://localhost:8099/query/sql`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reader := bufio.NewReader(os.Stdin)
		if isPostgres(app.cfg) {
			return connectPostgres(ctx, reader)
		}

		promptText := fmt.Sprintf("Enter broker URL [%s]: ", app.cfg.Broker.URL)
		fmt.Print(promptText)
		rawURL, _ := reader.ReadString('\n')
		rawURL = strings.TrimSpace(rawURL)
		// The URL may carry basic-auth credentials.
		terminal.ClearPreviousLines(len(promptText) + len(rawURL))
		if rawURL == "" {
			rawURL = app.cfg.Broker.URL
		}

		normalized, err := dsn.Parse(rawURL)
		if err != nil {
			var parseErr *dsn.ParseError
			if errors.As(err, &parseErr) {
				pterm.Error.Println(parseErr.Error())
				return reported(err)
			}
			return err
		}

		token := ""
		if !connectNoToken {
			fmt.Print("Enter broker token (leave empty for none): ")
			if token, err = terminal.ReadSecret(reader); err != nil {
				return err
			}
		}

		ep, user, err := pinot.ParseEndpoint(normalized)
		if err != nil {
			return err
		}
		client := pinot.New(ep,
			pinot.WithBasicAuth(user),
			pinot.WithToken(token),
			pinot.WithLogger(app.logger),
		)

		start := time.Now()
		stopSpinner := startInlineSpinner(os.Stdout, "verifying broker", 100*time.Millisecond)
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = client.Health(pingCtx)
		cancel()
		// Keep the spinner visible briefly so the check does not flash.
		if elapsed := time.Since(start); err == nil && elapsed < time.Second {
			time.Sleep(time.Second - elapsed)
		}
		stopSpinner()
		if err != nil {
			httperrors.Present(os.Stderr, err, ep.Host, "checking broker health")
			return reported(err)
		}

		cfg := *app.cfg
		cfg.Broker.URL = normalized
		if err := config.Save(configPath, &cfg); err != nil {
			pterm.Error.Println("Failed to save the config file.")
			return err
		}

		if token != "" {
			km, err := keychain.GetManager()
			if err != nil {
				pterm.Warning.Println("Secure storage is not available on this system; the token was not saved.")
				pterm.Info.Println("Set PINOTBOARD_BROKER_TOKEN instead.")
				return err
			}
			if err := km.SaveBrokerToken(token); err != nil {
				pterm.Error.Println("Failed to save the broker token securely.")
				return err
			}
		}

		pterm.Success.Println("Broker verified and saved!")
		pterm.Println("   You're ready to run 'pinotboard serve' or 'pinotboard show'")
		return nil
	},
}

// connectPostgres prompts for a PostgreSQL DSN, pings it, and stores it in the
// OS keychain. The config file only records the driver.
func connectPostgres(ctx context.Context, reader *bufio.Reader) error {
	fmt.Print("Enter PostgreSQL DSN (input hidden): ")
	raw, err := terminal.ReadSecret(reader)
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		raw = app.cfg.Store.DSN
	}

	normalized, err := dsn.Parse(raw)
	if err != nil {
		var parseErr *dsn.ParseError
		if errors.As(err, &parseErr) {
			pterm.Error.Println(logging.Mask(parseErr.Error()))
			return reported(err)
		}
		return err
	}

	exec, err := sqlexec.NewPostgres(ctx, sqlexec.Options{DSN: normalized, Logger: app.logger})
	if err != nil {
		return err
	}
	stopSpinner := startInlineSpinner(os.Stdout, "verifying database", 100*time.Millisecond)
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = exec.Ping(pingCtx)
	cancel()
	stopSpinner()
	exec.Close()
	if err != nil {
		pterm.Error.Println(logging.SummarizeStoreError("Database unreachable", err))
		return reported(err)
	}

	km, err := keychain.GetManager()
	if err != nil {
		pterm.Warning.Println("Secure storage is not available on this system; the DSN was not saved.")
		pterm.Info.Println("Set PINOTBOARD_STORE_DSN instead.")
		return err
	}
	if err := km.SaveStoreDSN(normalized); err != nil {
		pterm.Error.Println("Failed to save the DSN securely.")
		return err
	}

	cfg := *app.cfg
	cfg.Store.Driver = sqlexec.DriverPostgres
	if err := config.Save(configPath, &cfg); err != nil {
		pterm.Error.Println("Failed to save the config file.")
		return err
	}

	pterm.Success.Println("Database verified and saved!")
	pterm.Println("   You're ready to run 'pinotboard serve' or 'pinotboard show'")
	return nil
}

func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().BoolVar(&connectNoToken, "no-token", false, "Do not prompt for an access token")
}
