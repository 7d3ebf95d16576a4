// Package logger builds the application's slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds the logger configuration.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	File   string `mapstructure:"file"`
}

const defaultLogFile = "schema-warden.log"

// OpenOutput resolves cfg.Output to a writer. The returned cleanup closes the log
// file when one was opened and is a no-op otherwise. An unopenable log file falls
// back to stdout.
func OpenOutput(cfg Config) (io.Writer, func()) {
	switch cfg.Output {
	case "stderr":
		return os.Stderr, func() {}
	case "file":
		name := cfg.File
		if name == "" {
			name = defaultLogFile
		}
		f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", name, err)
			return os.Stdout, func() {}
		}
		return f, func() { _ = f.Close() }
	default:
		return os.Stdout, func() {}
	}
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger initializes a new slog logger writing to output in the configured
// format. A nil output is resolved from cfg.Output.
func NewLogger(cfg Config, output io.Writer) *slog.Logger {
	if output == nil {
		output, _ = OpenOutput(cfg)
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
