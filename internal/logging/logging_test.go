package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "warn", NoColors: true, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.GetLevel() != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", l.GetLevel())
	}

	l.Info("hidden")
	Component(l, "pose").Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "pose") {
		t.Errorf("expected warn line with component, got %q", out)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Options{Level: "chatty"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abhinaya.log")
	var buf bytes.Buffer
	l, err := New(Options{File: path, NoColors: true, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("to disk")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "to disk") {
		t.Errorf("log file missing message: %q", data)
	}
}
