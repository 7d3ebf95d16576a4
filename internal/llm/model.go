// Package llm renders review prompts and streams completions from the configured
// generator model.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/sevigo/schema-warden/internal/config"
)

// newOllamaHTTPClient creates an HTTP client with longer timeouts for Ollama requests.
// A streamed review can run for minutes, so the overall deadline follows the stream timeout.
func newOllamaHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// NewGeneratorModel creates the appropriate LLM client based on the configured provider.
func NewGeneratorModel(ctx context.Context, cfg *config.AIConfig, logger *slog.Logger) (llms.Model, error) {
	switch cfg.LLMProvider {
	case "gemini":
		logger.Info("using Gemini LLM provider", "model", cfg.GeneratorModel)
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("AI_GEMINI_API_KEY is not set for gemini provider")
		}
		return gemini.New(ctx,
			gemini.WithModel(cfg.GeneratorModel),
			gemini.WithAPIKey(cfg.GeminiAPIKey),
		)

	case "ollama":
		logger.Info("using Ollama LLM provider", "model", cfg.GeneratorModel, "host", cfg.OllamaHost)
		return ollama.New(
			ollama.WithServerURL(cfg.OllamaHost),
			ollama.WithHTTPClient(newOllamaHTTPClient(cfg.StreamTimeout)),
			ollama.WithModel(cfg.GeneratorModel),
			ollama.WithLogger(logger),
		)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}
