package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/goframe/llms"

	"github.com/sevigo/schema-warden/internal/config"
)

// Streamer produces a completion for prompt incrementally. emit is called once per
// chunk, in order; an error from emit aborts the generation.
//
//go:generate mockgen -destination=../../mocks/mock_streamer.go -package=mocks . Streamer
type Streamer interface {
	Stream(ctx context.Context, prompt string, emit func(chunk string) error) error
	ModelName() string
}

type modelStreamer struct {
	model       llms.Model
	name        string
	provider    ModelProvider
	temperature float64
	logger      *slog.Logger
}

// NewStreamer adapts a goframe model to Streamer.
func NewStreamer(model llms.Model, cfg *config.AIConfig, logger *slog.Logger) Streamer {
	return &modelStreamer{
		model:       model,
		name:        cfg.GeneratorModel,
		provider:    ModelProvider(cfg.LLMProvider),
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

func (s *modelStreamer) ModelName() string {
	return s.name
}

func (s *modelStreamer) Stream(ctx context.Context, prompt string, emit func(chunk string) error) error {
	streamed := false
	resp, err := s.model.Call(ctx, prompt,
		llms.WithTemperature(s.temperature),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			streamed = true
			return emit(string(chunk))
		}),
	)
	if err != nil {
		s.logger.Error("model generation failed", "model", s.name, "provider", s.provider, "error", err)
		return fmt.Errorf("model generation failed: %w", err)
	}

	// Providers without streaming support only return the final text.
	if !streamed && resp != "" {
		s.logger.Debug("provider returned a single response", "model", s.name)
		return emit(resp)
	}
	return nil
}
