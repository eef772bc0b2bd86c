// Package core is the HTTP chassis of the recipebox API: a chi router with
// the cross-cutting middleware (recovery, request ids, logging, metrics,
// compression, CORS, authentication, preview rate limiting) that runs before
// any domain handler.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"recipebox/internal/config"
)

// MetricsCollector records API telemetry.
type MetricsCollector interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// Server holds the dependencies shared by all routes.
type Server struct {
	Config        *config.Config
	Logger        *slog.Logger
	Validator     *Validator
	Metrics       MetricsCollector
	Authenticator Authenticator
	// PreviewLimiter throttles the anonymous preview endpoints per client IP.
	// Nil disables throttling.
	PreviewLimiter RateLimitStore
	HealthProbes   []HealthProbe

	// V1RouteRegistrars mount domain handlers under /v1. Populated by main
	// so core does not import the handler packages.
	V1RouteRegistrars []func(chi.Router)

	// OnShutdown runs in order during Shutdown (pool close, flushes).
	OnShutdown []func(context.Context) error

	router *chi.Mux
}

// NewServer creates a Server. Routes are mounted separately by MountRoutes
// so tests can register their own.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router exposes the chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown runs the OnShutdown hooks, stopping at the first failure.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")
	for _, hook := range s.OnShutdown {
		if err := hook(ctx); err != nil {
			s.Logger.Error("shutdown hook failed", slog.String("error", err.Error()))
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	s.Logger.Info("server shutdown complete")
	return nil
}
