package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("hello", String(FieldComponent, "test"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if payload["msg"] != "hello" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload[FieldComponent] != "test" {
		t.Fatalf("missing component attr: %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewLogFileCreatesDirectory(t *testing.T) {
	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "pocketsync.log")
	logger, err := New(Options{Format: "console", Output: &buf, LogFile: logFile})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("persisted")
	if !strings.Contains(buf.String(), "persisted") {
		t.Fatalf("expected console output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"junk":  slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestComponentLoggerNilBase(t *testing.T) {
	logger := NewComponentLogger(nil, "scan")
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Info("ignored")
}
