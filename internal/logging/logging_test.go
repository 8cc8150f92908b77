package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(FormatJSON, slog.LevelInfo, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("vault loaded", slog.Int("notes", 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["msg"] != "vault loaded" || rec["notes"] != float64(3) {
		t.Errorf("record = %v", rec)
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(FormatText, slog.LevelWarn, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("save failed", slog.String("id", "n1"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info logged at warn level: %q", out)
	}
	if !strings.Contains(out, "save failed") || !strings.Contains(out, "n1") {
		t.Errorf("output = %q", out)
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	if _, err := New("xml", slog.LevelInfo, &bytes.Buffer{}); err == nil {
		t.Error("expected error")
	}
}

func TestCharmLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want string
	}{
		{slog.LevelDebug, "debug"},
		{slog.LevelInfo, "info"},
		{slog.LevelWarn, "warn"},
		{slog.LevelError, "error"},
	}
	for _, tt := range tests {
		if got := charmLevel(tt.in).String(); got != tt.want {
			t.Errorf("charmLevel(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
