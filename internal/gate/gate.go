// Package gate runs one write-test-verify invocation behind the retry circuit breaker.
//
// An invocation moves through CHECK_BREAKER, SNAPSHOT, WRITE, VERIFY and
// RESOLVE and always ends with exactly one models.Outcome. The target file is
// either left as verified content or returned to its captured state; the
// snapshot artifact never outlives the invocation.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/harrison/verigate/internal/breaker"
	"github.com/harrison/verigate/internal/codeblock"
	"github.com/harrison/verigate/internal/filelock"
	"github.com/harrison/verigate/internal/history"
	"github.com/harrison/verigate/internal/logger"
	"github.com/harrison/verigate/internal/models"
	"github.com/harrison/verigate/internal/snapshot"
	"github.com/harrison/verigate/internal/telemetry"
	"github.com/harrison/verigate/internal/verify"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Recorder stores the outcome of each invocation.
type Recorder interface {
	Record(ctx context.Context, attempt *history.Attempt) error
}

// WriteFunc replaces the content of path.
type WriteFunc func(path string, data []byte) error

// Options toggles the optional invocation steps.
type Options struct {
	// UnwrapFencedCode writes the body of a submission that is one Markdown code fence
	UnwrapFencedCode bool

	// RecoverOrphans resolves leftover .bak/.new artifacts recorded in the
	// snapshot journal before the snapshot
	RecoverOrphans bool
}

// Gate orchestrates invocations. It holds no per-invocation state and is
// not meant to run invocations concurrently; callers serialize with AcquireLock.
type Gate struct {
	breaker  *breaker.Breaker
	runner   verify.Runner
	logger   logger.Logger
	recorder Recorder
	journal  *snapshot.Journal
	tracer   trace.Tracer
	write    WriteFunc
	token    func() string
	opts     Options
}

// New creates a Gate. log may be nil.
func New(b *breaker.Breaker, runner verify.Runner, log logger.Logger, opts Options) *Gate {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Gate{
		breaker: b,
		runner:  runner,
		logger:  log,
		tracer:  telemetry.Tracer(),
		write:   filelock.AtomicWrite,
		token:   NewToken,
		opts:    opts,
	}
}

// WithRecorder records every outcome through r.
func (g *Gate) WithRecorder(r Recorder) *Gate {
	g.recorder = r
	return g
}

// WithJournal records every snapshot in j so that a crashed invocation can be
// recovered. Without a journal nothing is ever recovered.
func (g *Gate) WithJournal(j *snapshot.Journal) *Gate {
	g.journal = j
	return g
}

// WithTracer replaces the tracer used for invocation spans.
func (g *Gate) WithTracer(t trace.Tracer) *Gate {
	g.tracer = t
	return g
}

// WithWriter replaces the function that writes the new content.
func (g *Gate) WithWriter(w WriteFunc) *Gate {
	g.write = w
	return g
}

// WithTokenSource replaces token minting.
func (g *Gate) WithTokenSource(f func() string) *Gate {
	g.token = f
	return g
}

// Invoke runs one invocation for req. Every failure mode is converted into
// an Outcome; Invoke never panics and never returns without a report.
func (g *Gate) Invoke(ctx context.Context, req models.Request) models.Outcome {
	start := time.Now()
	ctx, span := g.tracer.Start(ctx, "verigate.invoke", trace.WithAttributes(
		attribute.String("verigate.file_path", req.FilePath),
		attribute.Int("verigate.max_retries", g.breaker.Max()),
	))
	defer span.End()

	attempt := &history.Attempt{FilePath: req.FilePath}
	outcome := g.invoke(ctx, req, attempt)
	outcome.FilePath = req.FilePath
	duration := time.Since(start)

	span.SetAttributes(
		attribute.String("verigate.status", string(outcome.Status)),
		attribute.Int("verigate.failures", attempt.CountAfter),
	)
	if outcome.Status == models.StatusError {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Message)
	}

	g.logger.LogOutcome(outcome, duration)
	g.record(ctx, attempt, outcome, duration)

	return outcome
}

func (g *Gate) invoke(ctx context.Context, req models.Request, attempt *history.Attempt) models.Outcome {
	if err := req.Validate(); err != nil {
		return models.ErrorOutcome("request validation", err)
	}

	// CHECK_BREAKER
	count, open, err := g.breaker.Check()
	if err != nil {
		return models.ErrorOutcome("retry state read", err)
	}
	attempt.CountBefore, attempt.CountAfter = count, count
	if open {
		return models.HaltOutcome(g.breaker.Max())
	}
	g.logger.LogDebug(fmt.Sprintf("Breaker closed (%d/%d failures), processing %s", count, g.breaker.Max(), req.FilePath))

	// A crashed invocation may have left artifacts; they would block Capture.
	// Artifacts the journal does not know about are the user's and make
	// Capture refuse.
	if g.opts.RecoverOrphans && g.journal != nil {
		action, err := g.journal.Recover(req.FilePath)
		if err != nil {
			return models.ErrorOutcome("snapshot recovery", err)
		}
		if action != snapshot.RecoveryNone {
			g.logger.LogWarn(fmt.Sprintf("Recovered leftover snapshot for %s: %s", req.FilePath, action))
		}
	}

	// SNAPSHOT
	_, snapSpan := g.tracer.Start(ctx, "snapshot")
	snap, err := g.capture(req.FilePath)
	endSpan(snapSpan, err)
	if err != nil {
		return models.ErrorOutcome("snapshot", err)
	}
	g.logger.LogDebug(fmt.Sprintf("Captured %s snapshot at %s", snap.Kind, snap.Artifact))

	return g.apply(ctx, req, snap, count, attempt)
}

// apply runs WRITE, VERIFY and RESOLVE. Its deferred guard restores the
// snapshot on every path that did not resolve it, including panics.
func (g *Gate) apply(ctx context.Context, req models.Request, snap *snapshot.Snapshot, count int, attempt *history.Attempt) (outcome models.Outcome) {
	keep := false
	defer func() {
		if r := recover(); r != nil {
			outcome = models.ErrorOutcome("write or verification", fmt.Errorf("panic: %v", r))
		}
		if keep || snap.Consumed() {
			return
		}
		if err := snapshot.Restore(snap); err != nil {
			g.logger.LogError(fmt.Sprintf("Failed to restore %s: %v", snap.Path, err))
			if outcome.Status == models.StatusFailed {
				// The failure is counted, so the outcome stays FAILED.
				outcome = models.FailedUnrestoredOutcome(outcome.Attempt, outcome.MaxRetries, outcome.Diagnostic, err)
				return
			}
			outcome = models.ErrorOutcome("rollback", fmt.Errorf("%v (after: %s)", err, outcome.Message))
			return
		}
		g.logger.LogDebug(fmt.Sprintf("Restored %s from %s snapshot", snap.Path, snap.Kind))
	}()

	// WRITE
	content := req.NewCode
	if g.opts.UnwrapFencedCode && codeblock.ShouldUnwrap(req.FilePath) {
		if body, ok := codeblock.Unwrap(content); ok {
			g.logger.LogDebug("Submission was a single fenced code block, writing its body")
			content = body
		}
	}
	_, writeSpan := g.tracer.Start(ctx, "write", trace.WithAttributes(attribute.Int("verigate.bytes", len(content))))
	err := g.write(req.FilePath, []byte(content))
	endSpan(writeSpan, err)
	if err != nil {
		return models.ErrorOutcome("write or verification", fmt.Errorf("write %s: %w", req.FilePath, err))
	}

	// VERIFY
	verifyCtx, verifySpan := g.tracer.Start(ctx, "verify")
	result, err := g.runner.Run(verifyCtx)
	endSpan(verifySpan, err)
	if err != nil {
		return models.ErrorOutcome("write or verification", err)
	}
	attempt.ExitCode = result.ExitCode
	attempt.TimedOut = result.TimedOut

	// RESOLVE
	_, resolveSpan := g.tracer.Start(ctx, "resolve", trace.WithAttributes(attribute.Bool("verify.passed", result.Passed)))
	defer resolveSpan.End()

	if result.Passed {
		// The content verified; from here on it stays regardless of bookkeeping errors.
		keep = true
		if err := g.breaker.RecordSuccess(); err != nil {
			if derr := snapshot.Discard(snap); derr != nil {
				g.logger.LogError(fmt.Sprintf("Failed to discard snapshot: %v", derr))
			}
			return models.ErrorOutcome("retry state write", fmt.Errorf("verified content kept but %w", err))
		}
		attempt.CountAfter = 0

		if err := snapshot.Discard(snap); err != nil {
			return models.ErrorOutcome("snapshot cleanup", fmt.Errorf("verified content kept but %w; remove the artifact manually", err))
		}

		token := g.token()
		attempt.Token = token
		return models.SuccessOutcome(token)
	}

	attempt.Diagnostic = result.Diagnostic
	next, err := g.breaker.RecordFailure(count)
	if err != nil {
		return models.ErrorOutcome("retry state write", err)
	}
	attempt.CountAfter = next

	// The guard restores the file.
	return models.FailedOutcome(next, g.breaker.Max(), result.Diagnostic)
}

func (g *Gate) capture(path string) (*snapshot.Snapshot, error) {
	if g.journal != nil {
		return g.journal.Capture(path)
	}
	return snapshot.Capture(path)
}

// record stores the outcome. Failures are logged and never change the outcome.
func (g *Gate) record(ctx context.Context, attempt *history.Attempt, outcome models.Outcome, duration time.Duration) {
	if g.recorder == nil {
		return
	}
	attempt.Status = outcome.Status
	attempt.DurationMs = duration.Milliseconds()
	if outcome.Status == models.StatusError {
		attempt.Diagnostic = outcome.Message
	}
	if err := g.recorder.Record(ctx, attempt); err != nil {
		g.logger.LogWarn(fmt.Sprintf("Failed to record attempt history: %v", err))
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
