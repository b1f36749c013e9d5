package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"optimg/internal/config"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LogConfig{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer logger.Close()

	logger.Info("quiet")
	logger.Warn("loud", "file", "cat.jpg")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "cat.jpg") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "optimg.log")
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LogConfig{Level: "info", File: path}, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("batch started")
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "batch started") {
		t.Fatalf("log file missing entry: %q", data)
	}
}

func TestBadLevel(t *testing.T) {
	if _, err := NewWithWriter(config.LogConfig{Level: "chatty"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
