package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{" warning ", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
		{"verbose", InfoLevel},
		{"", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWriterLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, WarnLevel)

	log.Info("hidden %d", 1)
	log.Warn("shown %d", 2)
	log.Error("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") || !strings.Contains(out, "[ERROR] shown 3") {
		t.Errorf("missing lines: %q", out)
	}
}

func TestWriterLogger_NamedSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriterLogger(&buf, ErrorLevel)
	child := root.Named("export").Named("pdf")

	child.Info("before")
	root.SetLevel(DebugLevel)
	child.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Errorf("child ignored the root level: %q", out)
	}
	if !strings.Contains(out, "[DEBUG] export.pdf: after") {
		t.Errorf("child did not pick up the new level: %q", out)
	}
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")

	log, err := NewLogger(LogConfig{Output: "file", Level: "debug", FilePath: path})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	log.Debug("written to %s", "file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "[DEBUG] written to file") {
		t.Errorf("log file content = %q", data)
	}
}

func TestNewLogger_InvalidOutput(t *testing.T) {
	if _, err := NewLogger(LogConfig{Output: "stdout"}); err == nil {
		t.Fatal("expected an error for stdout output")
	}
}
