package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, "json", slog.LevelInfo)).Info("hello", slog.String("component", "test"))
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"component":"test"`) {
		t.Errorf("expected json output, got %s", buf.String())
	}

	buf.Reset()
	slog.New(NewHandler(&buf, "text", slog.LevelWarn)).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info must be filtered at warn level, got %s", buf.String())
	}
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kronos.log")
	logger, closer := New(Options{Level: slog.LevelInfo, Format: "text", File: path})
	logger.Info("written to file")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("unexpected log file content: %s", data)
	}
}
