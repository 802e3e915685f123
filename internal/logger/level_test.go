package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLogLevelFiltering verifies that messages are filtered based on log level
func TestLogLevelFiltering(t *testing.T) {
	levels := []string{"trace", "debug", "info", "warn", "error"}

	for ci, configured := range levels {
		for mi, message := range levels {
			shouldAppear := mi >= ci
			name := configured + "/" + message

			t.Run("console "+name, func(t *testing.T) {
				buf := &bytes.Buffer{}
				cl := NewConsoleLogger(buf, configured)
				logAt(cl, message, message+" msg")

				if got := strings.Contains(buf.String(), message+" msg"); got != shouldAppear {
					t.Errorf("level %s, message %s: appeared=%v, want %v", configured, message, got, shouldAppear)
				}
			})

			t.Run("file "+name, func(t *testing.T) {
				fl, err := NewFileLogger(t.TempDir(), configured)
				if err != nil {
					t.Fatalf("NewFileLogger() error = %v", err)
				}
				logAt(fl, message, message+" msg")
				fl.Close()

				data, err := os.ReadFile(fl.RunFile())
				if err != nil {
					t.Fatalf("read run log: %v", err)
				}
				if got := strings.Contains(string(data), message+" msg"); got != shouldAppear {
					t.Errorf("level %s, message %s: appeared=%v, want %v", configured, message, got, shouldAppear)
				}
			})
		}
	}
}

type leveledLogger interface {
	LogTrace(string)
	LogDebug(string)
	LogInfo(string)
	LogWarn(string)
	LogError(string)
}

func logAt(l leveledLogger, level, message string) {
	switch level {
	case "trace":
		l.LogTrace(message)
	case "debug":
		l.LogDebug(message)
	case "info":
		l.LogInfo(message)
	case "warn":
		l.LogWarn(message)
	case "error":
		l.LogError(message)
	}
}

func TestNormalizeLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "debug"},
		{"  WARN ", "warn"},
		{"", "info"},
		{"verbose", "info"},
	}
	for _, tt := range tests {
		if got := normalizeLogLevel(tt.input); got != tt.want {
			t.Errorf("normalizeLogLevel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFileLoggerLevelAppliesToSessionLogs(t *testing.T) {
	dir := t.TempDir()
	fl, err := NewFileLogger(dir, "warn")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer fl.Close()

	fl.LogSessionAnalyzed(sampleSummary(), sampleBlocks(), 0)

	entries, err := os.ReadDir(filepath.Join(dir, "sessions"))
	if err != nil {
		t.Fatalf("read sessions dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("session log written at warn level: %v", entries)
	}
}
