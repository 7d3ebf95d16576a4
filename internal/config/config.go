// Package config loads and validates the application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sevigo/schema-warden/internal/core"
	"github.com/sevigo/schema-warden/internal/logger"
)

// Config holds the application's configuration values.
type Config struct {
	Server   ServerConfig  `mapstructure:"server"`
	Logging  logger.Config `mapstructure:"logging"`
	GitHub   GitHubConfig  `mapstructure:"github"`
	Webhook  WebhookConfig `mapstructure:"webhook"`
	AI       AIConfig      `mapstructure:"ai"`
	Review   ReviewConfig  `mapstructure:"review"`
	Database DBConfig      `mapstructure:"database"`
}

// ServerConfig configures the HTTP listener. WriteTimeout bounds a whole streamed
// review, so it is much larger than the read timeout.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GitHubConfig holds the GitHub App installation credentials and the repository
// that change-feed comments are posted to.
type GitHubConfig struct {
	AppID            int64         `mapstructure:"app_id"`
	PrivateKey       string        `mapstructure:"private_key"`
	PrivateKeyPath   string        `mapstructure:"private_key_path"`
	InstallationID   int64         `mapstructure:"installation_id"`
	Owner            string        `mapstructure:"owner"`
	Repo             string        `mapstructure:"repo"`
	Token            string        `mapstructure:"token"`
	APIURL           string        `mapstructure:"api_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	TokenRefreshSkew time.Duration `mapstructure:"token_refresh_skew"`
}

// WebhookConfig configures the change-feed receiver.
type WebhookConfig struct {
	Secret      string `mapstructure:"secret"`
	Deduplicate bool   `mapstructure:"deduplicate"`
}

// AIConfig selects and tunes the generator model.
type AIConfig struct {
	LLMProvider    string        `mapstructure:"llm_provider"`
	GeneratorModel string        `mapstructure:"generator_model"`
	GeminiAPIKey   string        `mapstructure:"gemini_api_key"`
	OllamaHost     string        `mapstructure:"ollama_host"`
	Temperature    float64       `mapstructure:"temperature"`
	StreamTimeout  time.Duration `mapstructure:"stream_timeout"`
	StreamBuffer   int           `mapstructure:"stream_buffer"`
}

// ReviewConfig configures schema file selection.
type ReviewConfig struct {
	SchemaMarkers []string `mapstructure:"schema_markers"`
}

// DBConfig configures the optional review and delivery store.
type DBConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Path            string        `mapstructure:"path"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

const envFile = ".env"

// LoadConfig reads configuration from environment variables, an optional .env file
// and an optional config.yaml, applies defaults and returns the result. Nested keys
// map to environment variables by replacing dots with underscores, so
// github.app_id is read from GITHUB_APP_ID. Validation is left to the caller
// because the CLI and the server need different sections.
func LoadConfig() (*Config, error) {
	if envMap, err := godotenv.Read(envFile); err == nil {
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Private keys pasted into a single env var usually carry literal \n sequences.
	cfg.GitHub.PrivateKey = strings.ReplaceAll(cfg.GitHub.PrivateKey, `\n`, "\n")
	cfg.Review.SchemaMarkers = splitMarkers(cfg.Review.SchemaMarkers)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("github.app_id", 0)
	v.SetDefault("github.private_key", "")
	v.SetDefault("github.private_key_path", "")
	v.SetDefault("github.installation_id", 0)
	v.SetDefault("github.owner", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.api_url", "")
	v.SetDefault("github.request_timeout", 30*time.Second)
	v.SetDefault("github.token_refresh_skew", time.Minute)

	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.deduplicate", false)

	v.SetDefault("ai.llm_provider", "ollama")
	v.SetDefault("ai.generator_model", "gemma3:latest")
	v.SetDefault("ai.gemini_api_key", "")
	v.SetDefault("ai.ollama_host", "http://localhost:11434")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.stream_timeout", 5*time.Minute)
	v.SetDefault("ai.stream_buffer", 16)

	v.SetDefault("review.schema_markers", []string{"Schemafile", "schema.rb"})

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "schema_warden")
	v.SetDefault("database.path", "schema-warden.db")
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
}

// splitMarkers normalizes markers given either as a list or as a single
// comma-separated environment value.
func splitMarkers(raw []string) []string {
	var markers []string
	for _, entry := range raw {
		for _, m := range strings.Split(entry, ",") {
			if m = strings.TrimSpace(m); m != "" {
				markers = append(markers, m)
			}
		}
	}
	return markers
}

// Validate checks the settings every entry point needs.
func (c *Config) Validate() error {
	if err := c.AI.Validate(); err != nil {
		return err
	}
	if len(c.Review.SchemaMarkers) == 0 {
		return fmt.Errorf("%w: REVIEW_SCHEMA_MARKERS must contain at least one marker", core.ErrConfigurationMissing)
	}
	if c.Database.Enabled {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	} else if c.Webhook.Deduplicate {
		// Deliveries are remembered in the database; without it every redelivery posts again.
		return fmt.Errorf("%w: WEBHOOK_DEDUPLICATE requires DATABASE_ENABLED=true", core.ErrConfigurationMissing)
	}
	return nil
}

// ValidateApp checks that the GitHub App installation credentials and the target
// repository are present. The server calls it once at startup so a missing value
// fails before any network call is attempted.
func (g *GitHubConfig) ValidateApp() error {
	var missing []string
	if g.AppID == 0 {
		missing = append(missing, "GITHUB_APP_ID")
	}
	if g.PrivateKey == "" && g.PrivateKeyPath == "" {
		missing = append(missing, "GITHUB_PRIVATE_KEY")
	}
	if g.InstallationID == 0 {
		missing = append(missing, "GITHUB_INSTALLATION_ID")
	}
	if g.Owner == "" {
		missing = append(missing, "GITHUB_OWNER")
	}
	if g.Repo == "" {
		missing = append(missing, "GITHUB_REPO")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s must be set", core.ErrConfigurationMissing, strings.Join(missing, ", "))
	}
	return nil
}

// LoadPrivateKey returns the PEM-encoded App private key, preferring the inline
// value over the key file.
func (g *GitHubConfig) LoadPrivateKey() ([]byte, error) {
	if g.PrivateKey != "" {
		return []byte(g.PrivateKey), nil
	}
	if g.PrivateKeyPath == "" {
		return nil, fmt.Errorf("%w: GITHUB_PRIVATE_KEY must be set", core.ErrConfigurationMissing)
	}
	key, err := os.ReadFile(g.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", g.PrivateKeyPath, err)
	}
	return key, nil
}

// Validate checks the generator model settings.
func (a *AIConfig) Validate() error {
	switch a.LLMProvider {
	case "gemini":
		if a.GeminiAPIKey == "" {
			return fmt.Errorf("%w: AI_GEMINI_API_KEY must be set for the gemini provider", core.ErrConfigurationMissing)
		}
	case "ollama":
		if a.OllamaHost == "" {
			return fmt.Errorf("%w: AI_OLLAMA_HOST must be set for the ollama provider", core.ErrConfigurationMissing)
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %s", a.LLMProvider)
	}
	if a.GeneratorModel == "" {
		return fmt.Errorf("%w: AI_GENERATOR_MODEL must be set", core.ErrConfigurationMissing)
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("AI_TEMPERATURE must be between 0 and 2, got %v", a.Temperature)
	}
	if a.StreamBuffer <= 0 {
		slog.Warn("non-positive stream buffer, defaulting to 1", "provided", a.StreamBuffer)
		a.StreamBuffer = 1
	}
	return nil
}

// Validate checks the store settings for the selected driver.
func (d *DBConfig) Validate() error {
	switch d.Driver {
	case "postgres":
		if d.Host == "" || d.Database == "" {
			return fmt.Errorf("%w: DATABASE_HOST and DATABASE_DATABASE must be set for postgres", core.ErrConfigurationMissing)
		}
	case "sqlite":
		if d.Path == "" {
			return fmt.Errorf("%w: DATABASE_PATH must be set for sqlite", core.ErrConfigurationMissing)
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", d.Driver)
	}
	return nil
}
