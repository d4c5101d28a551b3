// Command api runs the Nimbus HTTP server: a weather Q&A backend that
// answers natural-language questions with simulated forecasts and persists
// the exchanges as threaded conversations.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"nimbus/internal/api/handlers"
	"nimbus/internal/auth"
	"nimbus/internal/chat"
	"nimbus/internal/config"
	"nimbus/internal/core"
	"nimbus/internal/db"
	"nimbus/internal/external"
	"nimbus/internal/qna"
	"nimbus/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("starting nimbus api",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"llm_enabled", cfg.LLM.Enabled(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return fmt.Errorf("migrating schema: %w", err)
	}

	registry := db.NewRegistry(pool, logger)
	clock := types.RealClock{}

	sessionSvc := auth.NewSessionService(registry.Sessions(), nil, clock, auth.SessionConfig{
		Duration: cfg.Auth.SessionDuration,
	})
	authSvc := auth.NewService(registry.Users(), registry.Security(), sessionSvc, auth.BruteForceConfig{
		IdentifierThreshold: cfg.Security.IdentifierBlockThreshold,
		IPThreshold:         cfg.Security.IPBlockThreshold,
		Window:              cfg.Security.BlockWindow,
	}, clock, logger)

	var llm qna.LLMClient
	if cfg.LLM.Enabled() {
		base := external.NewBaseClient("openai", cfg.LLM.Timeout, logger)
		llm = external.NewOpenAIClient(cfg.LLM, base)
	}
	engine := qna.NewEngine(llm, cfg.LLM.Timeout, logger)

	chatSvc := chat.NewService(registry, registry, engine, clock, logger)

	server, err := core.NewServer(cfg, registry, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	server.Authenticator = auth.NewAuthenticator(sessionSvc, registry.Users())
	server.HealthProbes = []core.HealthProbe{
		{Name: "database", Check: registry.Ping},
	}

	cookieCfg := handlers.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Domain: cfg.Auth.CookieDomain,
		Secure: cfg.Auth.CookieSecure,
	}
	authHandler := handlers.NewAuthHandler(authSvc, server.Validator, cookieCfg, logger)
	chatHandler := handlers.NewChatHandler(chatSvc, server.Validator, logger)

	server.V1RouteRegistrars = []func(chi.Router){
		authHandler.RegisterRoutes,
		chatHandler.RegisterRoutes,
	}
	server.MountRoutes()

	return runHTTPServer(ctx, cfg, server, logger)
}

// newLogger builds the process-wide structured logger. Output is JSON for
// log aggregation; level comes from configuration.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(
		"service", cfg.Service,
		"env", cfg.Environment,
	)
}

// runHTTPServer serves traffic until the context is cancelled, then drains
// in-flight requests within the shutdown timeout before releasing server
// resources.
func runHTTPServer(ctx context.Context, cfg *config.Config, server *core.Server, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// One second past the request timeout middleware so handlers
		// finish their own timeout handling first.
		WriteTimeout: cfg.Server.RequestTimeout + time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("draining http server: %w", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
