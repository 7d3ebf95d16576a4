package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		log       func(l *slog.Logger)
		checkFunc func(t *testing.T, output string)
	}{
		{
			name:   "Text Logger Info Level",
			config: Config{Level: "info", Format: "text"},
			log:    func(l *slog.Logger) { l.Info("test message", "pr", 12) },
			checkFunc: func(t *testing.T, output string) {
				if !strings.Contains(output, "level=INFO") || !strings.Contains(output, `msg="test message"`) || !strings.Contains(output, "pr=12") {
					t.Errorf("Expected text log output with info level and message, got: %s", output)
				}
			},
		},
		{
			name:   "JSON Logger Debug Level",
			config: Config{Level: "debug", Format: "json"},
			log:    func(l *slog.Logger) { l.Debug("test message") },
			checkFunc: func(t *testing.T, output string) {
				var logEntry map[string]any
				if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
					t.Fatalf("Failed to unmarshal JSON log: %v, output: %s", err, output)
				}
				if logEntry["level"] != "DEBUG" || logEntry["msg"] != "test message" {
					t.Errorf("Expected JSON log output with debug level and message, got: %v", logEntry)
				}
			},
		},
		{
			name:   "Debug suppressed at warn level",
			config: Config{Level: "warn", Format: "text"},
			log:    func(l *slog.Logger) { l.Debug("hidden"); l.Info("hidden too") },
			checkFunc: func(t *testing.T, output string) {
				if output != "" {
					t.Errorf("Expected no output at warn level, got: %s", output)
				}
			},
		},
		{
			name:   "Unknown level falls back to info",
			config: Config{Level: "verbose"},
			log:    func(l *slog.Logger) { l.Debug("hidden"); l.Info("shown") },
			checkFunc: func(t *testing.T, output string) {
				if strings.Contains(output, "hidden") || !strings.Contains(output, "shown") {
					t.Errorf("Expected only info output, got: %s", output)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewLogger(tt.config, &buf))
			tt.checkFunc(t, buf.String())
		})
	}
}

func TestOpenOutput(t *testing.T) {
	w, cleanup := OpenOutput(Config{Output: "stderr"})
	cleanup()
	if w != os.Stderr {
		t.Errorf("expected stderr writer")
	}

	name := filepath.Join(t.TempDir(), "app.log")
	w, cleanup = OpenOutput(Config{Output: "file", File: name})
	logger := NewLogger(Config{Level: "info"}, w)
	logger.Info("written to file")
	cleanup()

	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("expected log line in file, got: %s", data)
	}
}
