package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"mythicforge/internal/config"
)

func TestNewProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.Config{Environment: "production", LogLevel: "warn"}, &buf)

	l.Info().Msg("hidden")
	Component(l, "engine").Warn().Str("owner", "alice").Msg("refund failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected json output: %v", err)
	}
	if entry["component"] != "engine" || entry["owner"] != "alice" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewDevelopmentIsConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.Config{Environment: "development", LogLevel: "bogus"}, &buf)
	WithRequestID(l, "req-1").Info().Msg("hello")
	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "req-1") || strings.HasPrefix(out, "{") {
		t.Fatalf("expected console output, got %q", out)
	}
}
