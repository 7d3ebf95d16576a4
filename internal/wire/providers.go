package wire

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sevigo/goframe/llms"

	"github.com/sevigo/schema-warden/internal/config"
	"github.com/sevigo/schema-warden/internal/db"
	"github.com/sevigo/schema-warden/internal/github"
	"github.com/sevigo/schema-warden/internal/llm"
	"github.com/sevigo/schema-warden/internal/logger"
	"github.com/sevigo/schema-warden/internal/review"
	"github.com/sevigo/schema-warden/internal/storage"
)

// provideConfig loads the configuration and validates it once, so a missing
// setting fails before any component is built.
func provideConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func provideLogWriter(cfg *config.Config) (io.Writer, func()) {
	return logger.OpenOutput(cfg.Logging)
}

func provideSlogLogger(cfg *config.Config, writer io.Writer) *slog.Logger {
	l := logger.NewLogger(cfg.Logging, writer)
	slog.SetDefault(l)
	return l
}

// provideStore opens the database when it is enabled and falls back to a store
// that persists nothing.
func provideStore(cfg *config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	if !cfg.Database.Enabled {
		logger.Info("database disabled, reviews and deliveries are not persisted")
		return storage.NewNopStore(), func() {}, nil
	}
	conn, cleanup, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewStore(conn.DB), cleanup, nil
}

// provideGitHubClient authenticates as the App installation that posts comments.
func provideGitHubClient(cfg *config.Config, logger *slog.Logger) (github.Client, error) {
	return github.NewInstallationClient(&cfg.GitHub, logger)
}

// providePullRequestReader reads pull request files with GITHUB_TOKEN, or
// anonymously when it is unset.
func providePullRequestReader(cfg *config.Config, logger *slog.Logger) (review.PullRequestReader, error) {
	return github.NewPATClient(cfg.GitHub.Token, cfg.GitHub.APIURL, logger)
}

func provideGeneratorModel(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llms.Model, error) {
	model, err := llm.NewGeneratorModel(ctx, &cfg.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator LLM: %w", err)
	}
	return model, nil
}

func provideStreamer(model llms.Model, cfg *config.Config, logger *slog.Logger) llm.Streamer {
	return llm.NewStreamer(model, &cfg.AI, logger)
}
