package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/authbridge/authbridge/internal/action"
	"github.com/authbridge/authbridge/internal/config"
	"github.com/authbridge/authbridge/internal/core"
	"github.com/authbridge/authbridge/internal/core/devcore"
	"github.com/authbridge/authbridge/internal/csrf"
	"github.com/authbridge/authbridge/internal/handler"
	"github.com/authbridge/authbridge/internal/logging"
	"github.com/authbridge/authbridge/internal/server"
)

// Application aggregates the resolved configuration and the HTTP server.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger
	http   *http.Server
}

// New bootstraps config resolution, the auth core and the HTTP server.
// A missing secret in production fails here, before any request is served.
func New(ctx context.Context, cfg *config.App, authCfg *config.Auth, authCore core.Core) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	config.ResolveEnv(authCfg, nil, logger)
	if err := config.Finalize(authCfg, cfg, logger); err != nil {
		return nil, fmt.Errorf("resolve auth config: %w", err)
	}

	if authCfg.Debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	if authCore == nil {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("no auth core configured; the development core is not allowed in production")
		}
		logger.Warn().Msg("no auth core configured; using the development core")
		authCore = devcore.New(logger)
	}

	inv := core.NewInvoker(authCore, authCfg)
	handlers := handler.New(inv, logger)
	actions := action.New(inv, logger)
	issuer := csrf.New(inv)

	apiServer := server.NewHTTPServer(cfg, authCfg, logger, handlers, actions, issuer)

	return &Application{
		cfg:    cfg,
		logger: logger,
		http:   apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
