// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package web serves the dashboard as a browser page, a JSON API, and an
// optional gRPC health endpoint.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"pinotboard/cli/internal/dashboard"
	"pinotboard/cli/internal/runner"
)

const (
	DefaultAddr = ":8501"

	healthInterval  = 15 * time.Second
	shutdownTimeout = 5 * time.Second
)

//go:embed templates/*.html static/*
var webFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").ParseFS(webFS, "templates/dashboard.html"))

// Options configures a Server.
type Options struct {
	Addr string
	// GRPCAddr enables the gRPC health service when set.
	GRPCAddr string
	Logger   *slog.Logger
}

// Server renders the dashboard on every page load.
type Server struct {
	runner *runner.Runner
	opts   Options
	logger *slog.Logger
	health *health.Server
}

// New creates a server backed by r.
func New(r *runner.Runner, opts Options) *Server {
	if strings.TrimSpace(opts.Addr) == "" {
		opts.Addr = DefaultAddr
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{runner: r, opts: opts, logger: logger, health: health.NewServer()}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	staticFS, err := fs.Sub(webFS, "static")
	if err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/panels", s.handlePanels)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page := dashboard.Render(r.Context(), s.runner, dashboard.Options{Logger: s.logger})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, page); err != nil {
		s.logger.ErrorContext(r.Context(), "page render failed", "error", err)
	}
}

func (s *Server) handlePanels(w http.ResponseWriter, r *http.Request) {
	page := dashboard.Render(r.Context(), s.runner, dashboard.Options{SkipSVG: true, Logger: s.logger})
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.runner.Executor().Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": s.runner.Executor().Describe()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// UpdateHealth pings the store and publishes the result on the gRPC health service.
func (s *Server) UpdateHealth(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.runner.Executor().Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "store ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	return status
}

// HealthServer exposes the gRPC health implementation.
func (s *Server) HealthServer() *health.Server { return s.health }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("dashboard listening", "url", "http://"+displayAddr(ln.Addr().String()))
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if s.opts.GRPCAddr != "" {
		grpcLn, err := net.Listen("tcp", s.opts.GRPCAddr)
		if err != nil {
			_ = ln.Close()
			return err
		}
		grpcServer := grpc.NewServer()
		healthpb.RegisterHealthServer(grpcServer, s.health)
		g.Go(func() error {
			s.logger.Info("grpc health listening", "addr", grpcLn.Addr().String())
			return grpcServer.Serve(grpcLn)
		})
		g.Go(func() error {
			<-ctx.Done()
			s.health.Shutdown()
			grpcServer.GracefulStop()
			return nil
		})
		g.Go(func() error {
			s.watchHealth(ctx)
			return nil
		})
	}

	return g.Wait()
}

func (s *Server) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		s.UpdateHealth(pingCtx)
		cancel()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") || strings.HasPrefix(addr, "[::]:") {
		return "localhost" + addr[strings.LastIndex(addr, ":"):]
	}
	return addr
}
