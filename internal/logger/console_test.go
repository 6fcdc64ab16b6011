package logger

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrison/verigate/internal/models"
)

// TestNewConsoleLogger verifies the constructor creates a ConsoleLogger with the provided writer.
func TestNewConsoleLogger(t *testing.T) {
	t.Run("with valid writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewConsoleLogger(buf, "DEBUG")

		if logger.writer != buf {
			t.Error("writer not set correctly")
		}
		if logger.logLevel != "debug" {
			t.Errorf("expected log level %q, got %q", "debug", logger.logLevel)
		}
		if logger.colorOutput {
			t.Error("a buffer is never a terminal")
		}
	})

	t.Run("with nil writer", func(t *testing.T) {
		logger := NewConsoleLogger(nil, "info")
		logger.LogInfo("dropped")
		logger.LogOutcome(models.SuccessOutcome("PASS_00000000"), time.Second)
	})
}

// TestConsoleLoggerFormat verifies the [HH:MM:SS] [LEVEL] prefix
func TestConsoleLoggerFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	logger.LogWarn("stale backup restored")

	pattern := regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\] \[WARN\] stale backup restored\n$`)
	if !pattern.MatchString(buf.String()) {
		t.Errorf("unexpected format: %q", buf.String())
	}
}

// TestConsoleLogOutcome verifies outcome lines and their level mapping
func TestConsoleLogOutcome(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		outcome  models.Outcome
		contains []string
		hidden   bool
	}{
		{
			name:     "success at info",
			level:    "info",
			outcome:  models.SuccessOutcome("PASS_ABCDEF12"),
			contains: []string{"SUCCESS", "PASS_ABCDEF12", "(1.5s)"},
		},
		{
			name:     "failed shows only first message line",
			level:    "info",
			outcome:  models.FailedOutcome(2, 3, "error: one\nerror: two"),
			contains: []string{"FAILED", "retry 2/3", " ..."},
		},
		{
			name:    "success hidden at warn",
			level:   "warn",
			outcome: models.SuccessOutcome("PASS_ABCDEF12"),
			hidden:  true,
		},
		{
			name:     "halt visible at error",
			level:    "error",
			outcome:  models.HaltOutcome(3),
			contains: []string{"HALT", "3 attempts"},
		},
		{
			name:     "error visible at error",
			level:    "error",
			outcome:  models.ErrorOutcome("snapshot", errors.New("disk full")),
			contains: []string{"ERROR", "disk full"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewConsoleLogger(buf, tt.level)
			tt.outcome.FilePath = "App/View.swift"

			logger.LogOutcome(tt.outcome, 1500*time.Millisecond)

			output := buf.String()
			if tt.hidden {
				if output != "" {
					t.Errorf("expected no output, got %q", output)
				}
				return
			}
			if !strings.Contains(output, "App/View.swift") {
				t.Errorf("expected file path in %q", output)
			}
			for _, want := range tt.contains {
				if !strings.Contains(output, want) {
					t.Errorf("expected %q in %q", want, output)
				}
			}
			if strings.Count(output, "\n") != 1 {
				t.Errorf("expected a single line, got %q", output)
			}
		})
	}
}

// TestFormatDuration verifies human-readable durations
func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{850 * time.Millisecond, "850ms"},
		{5 * time.Second, "5.0s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Minute, "2m"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{time.Hour, "1h"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := formatDuration(tt.d); got != tt.expected {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.expected)
			}
		})
	}
}

// TestConsoleLoggerConcurrent verifies lines are never interleaved
func TestConsoleLoggerConcurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.LogInfo("concurrent message")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, "[INFO] concurrent message") {
			t.Errorf("corrupted line: %q", line)
		}
	}
}

// TestNoOpLogger verifies the no-op logger satisfies Logger
func TestNoOpLogger(t *testing.T) {
	var l Logger = NewNoOpLogger()
	l.LogError("ignored")
	l.LogOutcome(models.HaltOutcome(3), 0)
}
