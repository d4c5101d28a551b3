// Package core provides the API chassis for the Nimbus backend. It creates
// a chi router and enforces cross-cutting concerns -- security, logging,
// error handling -- before requests reach domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"

	"nimbus/internal/config"
	"nimbus/internal/types"
)

// Authenticator resolves a session ID (from the session cookie) to an Actor.
// Implementations also return the session's CSRF token so the CSRF middleware
// can validate mutating requests.
type Authenticator interface {
	ResolveSession(ctx context.Context, sessionID string) (*types.Actor, string, error)
}

// Server encapsulates all dependencies for the Nimbus API, allowing for easy
// injection during testing and distinct configuration per environment.
type Server struct {
	Config        *config.Config
	Repos         types.RepositoryRegistry
	Logger        *slog.Logger
	Validator     *Validator
	Authenticator Authenticator // nil disables authentication (tests only)

	// HealthProbes are executed concurrently by GET /health.
	HealthProbes []HealthProbe

	// V1RouteRegistrars register domain handler routes under /v1. Populated
	// by the application entry point to avoid import cycles between core
	// and handler packages.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer initializes dependencies and prepares the server for route
// mounting. The caller is responsible for mounting routes (via MountRoutes)
// after construction; this separation allows tests to customize registration.
func NewServer(cfg *config.Config, repos types.RepositoryRegistry, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if repos == nil {
		return nil, fmt.Errorf("repository registry must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Repos:     repos,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router, wrapped with transparent
// gzip response compression.
func (s *Server) Handler() http.Handler {
	return gzhttp.GzipHandler(s.router)
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server resources, closing the
// repository registry's database pool if it supports closing.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	if closer, ok := s.Repos.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.Logger.Error("error closing repository connections", "error", err)
			return fmt.Errorf("closing repository connections: %w", err)
		}
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
