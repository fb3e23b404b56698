// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pinotboard/cli/internal/web"
)

var (
	serveAddr     string
	serveGRPCAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard as a web page",
	Long: `The serve command starts an HTTP server that renders the dashboard on every page
load. Query results are cached for the configured window (cache.ttl, 60s by default),
so reloading the page within that window does not hit the broker again.

Routes:
  /             the dashboard page
  /api/panels   panel results as JSON
  /healthz      broker reachability

With --grpc-addr a standard gRPC health service is also served, reporting SERVING
while the broker answers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r, closeStore, err := openRunner(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		opts := web.Options{
			Addr:     app.cfg.Web.Addr,
			GRPCAddr: app.cfg.Web.GRPCAddr,
			Logger:   app.logger,
		}
		if cmd.Flags().Changed("addr") {
			opts.Addr = serveAddr
		}
		if cmd.Flags().Changed("grpc-addr") {
			opts.GRPCAddr = serveGRPCAddr
		}
		return web.New(r, opts).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", web.DefaultAddr, "HTTP listen address")
	serveCmd.Flags().StringVar(&serveGRPCAddr, "grpc-addr", "", "gRPC health listen address (disabled when empty)")
}
