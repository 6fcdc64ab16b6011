package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/harrison/verigate/internal/breaker"
	"github.com/harrison/verigate/internal/config"
	"github.com/harrison/verigate/internal/gate"
	"github.com/harrison/verigate/internal/history"
	"github.com/harrison/verigate/internal/logger"
	"github.com/harrison/verigate/internal/models"
	"github.com/harrison/verigate/internal/snapshot"
	"github.com/harrison/verigate/internal/telemetry"
	"github.com/harrison/verigate/internal/verify"
	"github.com/spf13/cobra"
)

// telemetryShutdownTimeout bounds the final span flush.
const telemetryShutdownTimeout = 5 * time.Second

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply one file change and verify it",
		Long: `Read a request from stdin, write the file, run verification and
print the outcome as JSON on stdout.

Request:
  {"file_path": "App/View.swift", "new_code": "..."}

Outcome (one of):
  {"status":"SUCCESS","verification_token":"PASS_1A2B3C4D","message":"..."}
  {"status":"FAILED","message":"..."}
  {"status":"HALT","message":"..."}
  {"status":"ERROR","message":"..."}

The exit status is 0 for every outcome. Logs go to stderr and, when
log_dir is set, to a run log file.

Configuration is loaded from .verigate/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  echo '{"file_path":"a.swift","new_code":"..."}' | verigate run
  verigate run --timeout 10m --max-retries 5 < request.json
  verigate run --config ci.yaml --log-level debug < request.json`,
		Args: cobra.NoArgs,
		RunE: runCommand,
	}

	addConfigFlag(cmd)
	cmd.Flags().Int("max-retries", 0, "Consecutive failures before the breaker opens")
	cmd.Flags().String("state-file", "", "Path to the retry state file")
	cmd.Flags().String("timeout", "", "Maximum verification time (e.g., 10m, 1h)")
	cmd.Flags().String("log-dir", "", "Directory for run logs (empty disables file logging)")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")

	return cmd
}

// runCommand implements the run command logic. Every failure is reported as
// an outcome on stdout; an error is returned only when that report fails.
func runCommand(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return writeOutcome(out, models.ErrorOutcome("configuration", err))
	}

	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	var log logger.Logger = console
	if cfg.LogDir != "" {
		fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			console.LogWarn(fmt.Sprintf("File logging disabled: %v", err))
		} else {
			defer fileLog.Close()
			log = logger.NewMultiLogger(console, fileLog)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
	})
	if err != nil {
		log.LogWarn(fmt.Sprintf("Tracing disabled: %v", err))
	} else {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				log.LogWarn(fmt.Sprintf("Failed to flush traces: %v", err))
			}
		}()
	}

	req, err := models.ParseRequest(cmd.InOrStdin())
	if err != nil {
		return report(out, log, models.ErrorOutcome("request parsing", err))
	}

	lock, err := gate.AcquireLock(cfg.Breaker.StateFile)
	if err != nil {
		outcome := models.ErrorOutcome("invocation lock", err)
		outcome.FilePath = req.FilePath
		return report(out, log, outcome)
	}
	defer lock.Unlock()

	g := newGate(cfg, log)
	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.DBPath)
		if err != nil {
			log.LogWarn(fmt.Sprintf("Attempt history disabled: %v", err))
		} else {
			defer store.Close()
			g.WithRecorder(store)
		}
	}

	return writeOutcome(out, g.Invoke(ctx, req))
}

// loadRunConfig loads the configuration and applies the run flags.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	var maxRetriesPtr *int
	if cmd.Flags().Changed("max-retries") {
		v, _ := cmd.Flags().GetInt("max-retries")
		maxRetriesPtr = &v
	}

	var timeoutPtr *time.Duration
	if cmd.Flags().Changed("timeout") {
		timeoutStr, _ := cmd.Flags().GetString("timeout")
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", timeoutStr, err)
		}
		timeoutPtr = &timeout
	}

	var logDirPtr *string
	if cmd.Flags().Changed("log-dir") {
		v, _ := cmd.Flags().GetString("log-dir")
		logDirPtr = &v
	}

	var logLevelPtr *string
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		logLevelPtr = &v
	}

	cfg.MergeWithFlags(maxRetriesPtr, stateFileFlag(cmd), timeoutPtr, logDirPtr, logLevelPtr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newGate wires the breaker, verification runner and options from cfg.
func newGate(cfg *config.Config, log logger.Logger) *gate.Gate {
	store := breaker.NewFileStore(cfg.Breaker.StateFile, cfg.Breaker.LenientState)
	return gate.New(
		breaker.New(store, cfg.Breaker.MaxRetries),
		verify.NewCommandRunner(cfg.Verify, log),
		log,
		gate.Options{
			UnwrapFencedCode: cfg.Input.UnwrapFencedCode,
			RecoverOrphans:   cfg.Snapshot.RecoverOrphans,
		},
	).WithJournal(snapshot.NewJournal(gate.JournalPath(cfg.Breaker.StateFile)))
}

// report logs an outcome produced outside the gate and writes it.
func report(out io.Writer, log logger.Logger, outcome models.Outcome) error {
	log.LogOutcome(outcome, 0)
	return writeOutcome(out, outcome)
}

// writeOutcome prints the wire form of outcome as a single line.
func writeOutcome(w io.Writer, outcome models.Outcome) error {
	data, err := outcome.JSON()
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	return nil
}
