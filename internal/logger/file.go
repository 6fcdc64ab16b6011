package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/verigate/internal/models"
)

// FileLogger logs invocation events to a timestamped run log in logDir
// and maintains a latest.log symlink pointing to the most recent run.
// It is thread-safe and supports log level filtering.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates the log directory if needed, opens a run log
// named run-YYYYMMDD-HHMMSS.log and repoints latest.log at it.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", timestamp))

	// Several invocations in the same second share one run log
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== verigate run log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s (pid %d)\n\n", time.Now().Format(time.RFC3339), os.Getpid()))

	return logger, nil
}

// RunFile returns the path of the run log being written.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !shouldLog(fl.logLevel, strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("15:04:05"), level, message))
}

// LogOutcome writes the outcome including the full message and diagnostic,
// which the console only summarizes.
func (fl *FileLogger) LogOutcome(outcome models.Outcome, duration time.Duration) {
	if !shouldLog(fl.logLevel, outcomeLevel(outcome.Status)) {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] === %s ===\n", time.Now().Format("15:04:05"), outcome.Status))
	if outcome.FilePath != "" {
		sb.WriteString(fmt.Sprintf("File: %s\n", outcome.FilePath))
	}
	sb.WriteString(fmt.Sprintf("Duration: %s\n", formatDuration(duration)))
	if outcome.MaxRetries > 0 {
		sb.WriteString(fmt.Sprintf("Failures: %d/%d\n", outcome.Attempt, outcome.MaxRetries))
	}
	if outcome.VerificationToken != "" {
		sb.WriteString(fmt.Sprintf("Token: %s\n", outcome.VerificationToken))
	}
	if outcome.Err != nil {
		sb.WriteString(fmt.Sprintf("Error: %v\n", outcome.Err))
	}
	sb.WriteString("Message:\n")
	sb.WriteString(outcome.Message)
	sb.WriteString("\n\n")

	fl.writeRunLog(sb.String())
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
