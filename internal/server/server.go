// Package server hosts the HTTP status and admin API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arbstack/flasharb/internal/server/handler"
	"github.com/arbstack/flasharb/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	APIKey       string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health     *handler.HealthHandler
	Stats      *handler.StatsHandler
	Executions *handler.ExecutionsHandler
	Admin      *handler.AdminHandler
	Attempt    *handler.AttemptHandler
}

// Server is the HTTP API server for the execution engine.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered and the middleware
// chain (auth, logging) applied.
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required once the chain splits; kept simple and
	// behind the same chain here).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Per-strategy ledger.
	mux.HandleFunc("GET /api/stats", handlers.Stats.ListStats)
	mux.HandleFunc("GET /api/stats/{kind}", handlers.Stats.GetStats)

	// Execution history.
	mux.HandleFunc("GET /api/executions/recent", handlers.Executions.ListRecent)
	mux.HandleFunc("GET /api/executions/{request_id}", handlers.Executions.GetExecution)

	// Registry administration.
	mux.HandleFunc("GET /api/venues", handlers.Admin.ListVenues)
	mux.HandleFunc("PUT /api/venues/{id}/enabled", handlers.Admin.SetVenueEnabled)
	mux.HandleFunc("GET /api/providers", handlers.Admin.ListProviders)
	mux.HandleFunc("PUT /api/providers/{id}/enabled", handlers.Admin.SetProviderEnabled)
	mux.HandleFunc("GET /api/bridges", handlers.Admin.ListBridges)
	mux.HandleFunc("PUT /api/bridges/{from}/{to}/enabled", handlers.Admin.SetBridgeEnabled)
	mux.HandleFunc("GET /api/tokens", handlers.Admin.ListTokens)
	mux.HandleFunc("POST /api/tokens/{token}", handlers.Admin.AllowToken)
	mux.HandleFunc("DELETE /api/tokens/{token}", handlers.Admin.DenyToken)

	// Ad-hoc attempt submission.
	mux.HandleFunc("POST /api/attempts", handlers.Attempt.SubmitAttempt)

	var h http.Handler = mux
	h = middleware.APIKey(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "server")),
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
