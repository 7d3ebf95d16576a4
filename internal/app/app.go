// Package app owns the lifecycle of the schema-warden HTTP service.
package app

import (
	"context"
	"log/slog"

	"github.com/sevigo/schema-warden/internal/config"
	"github.com/sevigo/schema-warden/internal/server"
)

// App holds the main application components.
type App struct {
	cfg    *config.Config
	server *server.Server
	logger *slog.Logger
}

// NewApp assembles the application from its already constructed components.
func NewApp(cfg *config.Config, srv *server.Server, logger *slog.Logger) *App {
	logger.Info("schema-warden initialized",
		"llm_provider", cfg.AI.LLMProvider,
		"generator_model", cfg.AI.GeneratorModel,
		"repository", cfg.GitHub.Owner+"/"+cfg.GitHub.Repo,
		"storage", cfg.Database.Enabled)
	return &App{cfg: cfg, server: srv, logger: logger}
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting schema-warden", "server_port", a.cfg.Server.Port)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly. Storage is closed by the injector's
// cleanup function after Stop returns.
func (a *App) Stop(ctx context.Context) error {
	a.logger.Info("shutting down schema-warden services")

	if err := a.server.Stop(ctx); err != nil {
		a.logger.Error("error during HTTP server shutdown", "error", err)
		return err
	}

	a.logger.Info("schema-warden stopped successfully")
	return nil
}
