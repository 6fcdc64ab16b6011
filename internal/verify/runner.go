// Package verify runs the external verification command and condenses its output.
package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/harrison/verigate/internal/config"
	"github.com/harrison/verigate/internal/models"
	"github.com/harrison/verigate/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// waitDelay bounds how long Run waits for output pipes after the command is killed.
const waitDelay = 5 * time.Second

// Runner executes the verification command once.
//
// A returned error means the command could not be run at all. A command that
// ran and exited non-zero is a normal result with Passed=false.
type Runner interface {
	Run(ctx context.Context) (models.VerificationResult, error)
}

// Logger is the subset of logger.Logger used by the runner.
type Logger interface {
	LogInfo(message string)
	LogDebug(message string)
}

// CommandRunner runs the configured command through sh -c.
type CommandRunner struct {
	cfg     config.VerifyConfig
	command string
	logger  Logger
	tracer  trace.Tracer
}

// NewCommandRunner creates a runner from an immutable copy of cfg.
// logger may be nil.
func NewCommandRunner(cfg config.VerifyConfig, logger Logger) *CommandRunner {
	return &CommandRunner{
		cfg:     cfg,
		command: BuildCommand(cfg),
		logger:  logger,
		tracer:  telemetry.Tracer(),
	}
}

// WithTracer replaces the tracer used for run spans.
func (r *CommandRunner) WithTracer(tracer trace.Tracer) *CommandRunner {
	r.tracer = tracer
	return r
}

// Command returns the shell command line that Run executes.
func (r *CommandRunner) Command() string {
	return r.command
}

// Run executes the command synchronously and captures combined stdout and stderr.
func (r *CommandRunner) Run(ctx context.Context) (models.VerificationResult, error) {
	ctx, span := r.tracer.Start(ctx, "verify.command", trace.WithAttributes(
		attribute.String("verify.command", r.command),
		attribute.String("verify.work_dir", r.cfg.WorkDir),
	))
	defer span.End()

	if r.logger != nil {
		r.logger.LogInfo(fmt.Sprintf("Running verification command: %s", r.command))
	}

	runCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	var output bytes.Buffer
	cmd := exec.CommandContext(runCtx, "sh", "-c", r.command)
	if r.cfg.WorkDir != "" {
		cmd.Dir = r.cfg.WorkDir
	}
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	start := time.Now()
	err := cmd.Run()
	result := models.VerificationResult{
		Command:  r.command,
		Duration: time.Since(start),
	}

	if r.logger != nil {
		r.logger.LogDebug(fmt.Sprintf("Verification command finished in %v (%d bytes of output)",
			result.Duration.Round(time.Millisecond), output.Len()))
	}

	switch {
	case err == nil:
		result.Passed = true

	case ctx.Err() != nil:
		// The caller gave up; this is not a verdict on the code.
		span.RecordError(ctx.Err())
		span.SetStatus(codes.Error, "canceled")
		return result, fmt.Errorf("verification command interrupted: %w", ctx.Err())

	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.TimedOut = true
		result.ExitCode = -1
		result.Diagnostic = timeoutDiagnostic(r.cfg.Timeout, output.String())

	default:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "start failed")
			return result, fmt.Errorf("failed to run verification command: %w", err)
		}
		result.ExitCode = exitErr.ExitCode()
		result.Diagnostic = Compact(output.String())
	}

	span.SetAttributes(
		attribute.Bool("verify.passed", result.Passed),
		attribute.Int("verify.exit_code", result.ExitCode),
		attribute.Bool("verify.timed_out", result.TimedOut),
	)
	return result, nil
}

func timeoutDiagnostic(timeout time.Duration, output string) string {
	msg := fmt.Sprintf("verification timed out after %v", timeout)
	if compact := Compact(output); strings.TrimSpace(compact) != "" {
		msg += "\n" + compact
	}
	return msg
}

// BuildCommand returns cfg.Command when set, otherwise the xcodebuild test invocation.
func BuildCommand(cfg config.VerifyConfig) string {
	if strings.TrimSpace(cfg.Command) != "" {
		return cfg.Command
	}

	destination := cfg.Destination
	if destination == "" {
		destination = config.DefaultDestination
	}

	return strings.Join([]string{
		"xcodebuild", "test",
		"-workspace", shellQuote(cfg.Workspace),
		"-scheme", shellQuote(cfg.Scheme),
		"-destination", shellQuote(destination),
		"-quiet",
	}, " ")
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_./:=,@%+-]+$`)

// shellQuote single-quotes s unless it is made only of shell-safe characters.
func shellQuote(s string) string {
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
