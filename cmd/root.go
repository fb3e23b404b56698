// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the pinotboard command-line interface: a browser dashboard
// server, a terminal dashboard, ad-hoc queries, and broker credential management,
// built on the Cobra CLI framework.
package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pinotboard/cli/internal/config"
	apperrors "pinotboard/cli/internal/errors"
	"pinotboard/cli/internal/keychain"
	"pinotboard/cli/internal/logging"
	"pinotboard/cli/internal/runner"
	"pinotboard/cli/internal/sqlexec"
	"pinotboard/cli/internal/telemetry"
)

var (
	showVersion bool
	configPath  string
	logLevel    string
	logFormat   string
	brokerURL   string
	storeDriver string
)

// app holds state prepared before every subcommand runs.
var app struct {
	cfg      *config.Config
	logger   *slog.Logger
	shutdown telemetry.ShutdownFunc
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pinotboard",
	Short: "Real-time page visit dashboard for Apache Pinot",
	Long: `pinotboard runs a fixed set of aggregation queries against an Apache Pinot broker
and renders the results as bar charts, either as a web page (pinotboard serve) or
directly in the terminal (pinotboard show).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app.shutdown != nil {
			return app.shutdown(context.Background())
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			printVersion()
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printFatal(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// reportedError marks an error a command has already shown to the user.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// printFatal prints err unless the failing command already did.
func printFatal(w io.Writer, err error) {
	var re *reportedError
	if errors.As(err, &re) {
		return
	}
	pterm.Error.WithWriter(w).Println(logging.Mask(err.Error()))
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/pinotboard/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&brokerURL, "broker", "", "Pinot broker URL, e.g. http://localhost:8099/query/sql")
	pf.StringVar(&storeDriver, "driver", "", "Store driver: pinot or postgres")
}

// flagOverrides maps explicitly set persistent flags to config keys.
func flagOverrides(cmd *cobra.Command) map[string]any {
	out := map[string]any{}
	set := func(flag, key, value string) {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			out[key] = value
		}
	}
	set("log-level", "log.level", logLevel)
	set("log-format", "log.format", logFormat)
	set("broker", "broker.url", brokerURL)
	set("driver", "store.driver", storeDriver)
	return out
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, flagOverrides(cmd))
	if err != nil {
		return err
	}
	app.cfg = cfg
	app.logger = telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.Init("pinotboard", Version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ConfigInvalid, "telemetry", err)
	}
	app.shutdown = shutdown
	return nil
}

// resolveSecrets fills the broker token and store DSN from the keychain when the
// environment did not provide them. A missing keychain is not an error.
func resolveSecrets(cfg *config.Config) {
	if cfg.Broker.Token != "" && (cfg.Store.DSN != "" || !isPostgres(cfg)) {
		return
	}
	km, err := keychain.GetManager()
	if err != nil {
		app.logger.Debug("keychain unavailable", "error", err)
		return
	}
	if cfg.Broker.Token == "" {
		if token, err := km.LoadBrokerToken(); err == nil {
			cfg.Broker.Token = token
		}
	}
	if cfg.Store.DSN == "" && isPostgres(cfg) {
		if dsn, err := km.LoadStoreDSN(); err == nil {
			cfg.Store.DSN = dsn
		}
	}
}

func isPostgres(cfg *config.Config) bool {
	d := strings.ToLower(cfg.Store.Driver)
	return d == sqlexec.DriverPostgres || d == "postgresql"
}

// openRunner opens the configured store and wraps it in a Runner. The returned
// func closes the store.
func openRunner(ctx context.Context) (*runner.Runner, func(), error) {
	cfg := app.cfg
	resolveSecrets(cfg)

	exec, err := sqlexec.Open(ctx, sqlexec.Options{
		Driver:       cfg.Store.Driver,
		BrokerURL:    cfg.Broker.URL,
		Token:        cfg.Broker.Token,
		Timeout:      cfg.Broker.Timeout,
		QueryOptions: cfg.Broker.QueryOptions,
		Multistage:   cfg.Broker.Multistage,
		DSN:          cfg.Store.DSN,
		Logger:       app.logger,
	})
	if err != nil {
		return nil, nil, err
	}

	metrics, err := telemetry.NewQueryMetrics()
	if err != nil {
		app.logger.Warn("query metrics disabled", "error", err)
	}
	r := runner.New(exec,
		runner.WithTTL(cfg.Cache.TTL),
		runner.WithCacheSize(cfg.Cache.Size),
		runner.WithLogger(app.logger),
		runner.WithMetrics(metrics),
	)
	return r, exec.Close, nil
}

// exitCode maps an error to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	case apperrors.Is(err, apperrors.ConfigInvalid):
		return 2
	default:
		return 1
	}
}
