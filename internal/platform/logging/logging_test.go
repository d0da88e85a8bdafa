package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"attendance/internal/platform/config"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("worker lookup failed", "pin", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warn line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected json line: %v", err)
	}
	if entry["msg"] != "worker lookup failed" || entry["pin"] != float64(7) {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewWithWriterText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.Config{LogLevel: "debug", LogFormat: "text"}, &buf)
	logger.Debug("processing day", "date", "2024-03-01")

	if !strings.Contains(buf.String(), "msg=\"processing day\"") || !strings.Contains(buf.String(), "date=2024-03-01") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
	if slog.Default() != logger {
		t.Fatal("expected logger to be installed as default")
	}
}

func TestLevel(t *testing.T) {
	if Level("debug") != slog.LevelDebug || Level("error") != slog.LevelError || Level("bogus") != slog.LevelInfo {
		t.Fatal("unexpected level mapping")
	}
}
