package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewManager_Levels(t *testing.T) {
	var buf bytes.Buffer
	mgr, logger := newManager(Config{Level: "warn"}, &buf)
	defer mgr.Close() //nolint:errcheck

	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be disabled at warn")
	}
	if !logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("expected warn to be enabled")
	}

	mgr.SetLevel("debug")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be enabled after SetLevel")
	}
	if mgr.Level() != slog.LevelDebug {
		t.Errorf("expected debug level, got %s", mgr.Level())
	}

	// Derived loggers share the level.
	child := logger.With(slog.String("component", "test"))
	mgr.SetLevel("error")
	if child.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("expected derived logger to follow SetLevel")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestFormats(t *testing.T) {
	var buf bytes.Buffer
	mgr, logger := newManager(Config{Level: "info", Format: "json"}, &buf)
	defer mgr.Close() //nolint:errcheck

	logger.Info("hello", slog.String("mbid", "abc"))
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "hello" || rec["mbid"] != "abc" {
		t.Errorf("unexpected record: %v", rec)
	}

	buf.Reset()
	_, textLogger := newManager(Config{Level: "info", Format: "text"}, &buf)
	textLogger.Info("hello", slog.String("mbid", "abc"))
	if !strings.Contains(buf.String(), "msg=hello mbid=abc") {
		t.Errorf("unexpected text record: %q", buf.String())
	}
}

func TestManager_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "coverart.log")

	var console bytes.Buffer
	mgr, logger := newManager(Config{
		Level:         "info",
		Format:        "text",
		FilePath:      logFile,
		FileMaxSizeMB: 1,
	}, &console)

	logger.Info("written to both")
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to both") {
		t.Errorf("log file missing record: %q", data)
	}
	if !strings.Contains(console.String(), "written to both") {
		t.Errorf("console missing record: %q", console.String())
	}

	// A second Close is a no-op.
	if err := mgr.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
