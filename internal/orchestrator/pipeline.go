package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dusk-indust/paycheck/internal/intake"
	"github.com/dusk-indust/paycheck/internal/metrics"
)

const tracerName = "github.com/dusk-indust/paycheck/internal/orchestrator"

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// Pipeline runs a Definition for one session. It keeps at most one run: a
// running or completed run is replayed on Start, a failed or aborted one is
// replaced.
type Pipeline struct {
	def      *Definition
	clock    clockwork.Clock
	recorder metrics.Recorder
	tracer   trace.Tracer
	logger   *slog.Logger
	progress *ProgressReporter

	mu        sync.Mutex
	run       *Run
	cancelled bool
	stopped   bool // set by Stop, never cleared
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used for timestamps, durations and stage timeouts.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithTracer sets the tracer used for run and stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithProgress sets the reporter that receives every appended log entry.
func WithProgress(pr *ProgressReporter) Option {
	return func(p *Pipeline) { p.progress = pr }
}

// NewPipeline creates a Pipeline for def.
func NewPipeline(def *Definition, opts ...Option) *Pipeline {
	p := &Pipeline{
		def:      def,
		clock:    clockwork.NewRealClock(),
		recorder: metrics.NoopRecorder{},
		tracer:   otel.Tracer(tracerName),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.progress == nil {
		p.progress = NewProgressReporter()
	}
	return p
}

// Definition returns the stage ordering this pipeline runs.
func (p *Pipeline) Definition() *Definition { return p.def }

// Start runs every stage in order over snap and returns the finished run.
//
// When the pipeline already holds a running run, or a completed run with a
// non-empty log, Start returns a copy of it and executes nothing. A failed
// stage yields the failed run together with a *StageError. After Stop,
// Start returns ErrAborted and a nil run without running anything.
func (p *Pipeline) Start(ctx context.Context, snap intake.Snapshot) (*Run, error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.logger.Debug("start refused, pipeline stopped")
		return nil, ErrAborted
	}
	if cur := p.run; cur != nil && (cur.Status == RunRunning || (cur.Status == RunCompleted && len(cur.Log) > 0)) {
		cached := cur.Clone()
		p.mu.Unlock()
		p.recorder.IncRunReplay()
		p.logger.Debug("replaying existing run", "run", cached.ID, "status", cached.Status)
		return cached, nil
	}
	run := &Run{
		ID:        uuid.NewString(),
		Status:    RunRunning,
		Stages:    p.def.Names(),
		StartedAt: p.clock.Now(),
	}
	p.run = run
	p.cancelled = false
	p.mu.Unlock()

	ctx, span := p.tracer.Start(ctx, "paycheck.run", trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.Int("run.stages", len(run.Stages)),
	))
	defer span.End()

	logger := p.logger.With("run", run.ID)
	logger.Info("run started", "stages", len(run.Stages))

	err := p.execute(ctx, run, snap, logger)

	p.mu.Lock()
	run.FinishedAt = p.clock.Now()
	out := run.Clone()
	p.mu.Unlock()

	p.recorder.ObserveRunDuration(out.Duration())
	p.recorder.IncRunOutcome(string(out.Status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
		logger.Warn("run ended", "status", out.Status, "stage", out.FailedStage, "error", err, "duration", out.Duration())
	} else {
		logger.Info("run ended", "status", out.Status, "duration", out.Duration())
	}
	return out, err
}

func (p *Pipeline) execute(ctx context.Context, run *Run, snap intake.Snapshot, logger *slog.Logger) error {
	stages := p.def.stages
	for i, sd := range stages {
		if p.stopRequested(ctx) {
			return p.abort(run, i)
		}

		in := StageInput{Snapshot: snap.Clone(), Findings: p.findings(run)}
		p.appendEntry(run, LogEntry{Kind: LogStart, Stage: sd.Name, Message: sd.announce(in), Severity: SeverityInfo})

		started := p.clock.Now()
		out, err := p.runStage(ctx, sd, in)
		elapsed := p.clock.Since(started)
		p.recorder.ObserveStageDuration(sd.Name, elapsed)

		if err == nil && out == nil {
			err = ErrNoOutput
		}
		if err == nil {
			err = sd.checkOwnership(out.Patch)
		}

		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				p.recorder.IncStageResult(sd.Name, metrics.ResultCanceled)
				p.appendEntry(run, LogEntry{Kind: LogComplete, Stage: sd.Name, Message: fmt.Sprintf("%s aborted", sd.label()), Severity: SeverityWarning})
				return p.abort(run, i+1)
			}
			return p.fail(run, sd, err, logger)
		}

		p.recorder.IncStageResult(sd.Name, metrics.ResultSuccess)
		summary := out.Summary
		if summary == "" {
			summary = fmt.Sprintf("%s complete", sd.label())
		}
		p.mu.Lock()
		run.Findings = run.Findings.Merge(out.Patch)
		p.mu.Unlock()
		p.appendEntry(run, LogEntry{Kind: LogComplete, Stage: sd.Name, Message: summary, Severity: SeveritySuccess})
		p.appendEntry(run, LogEntry{Kind: LogDivider})
		logger.Debug("stage complete", "stage", sd.Name, "duration", elapsed)
	}

	res, err := BuildResult(p.findings(run), p.def.cfg)
	if err != nil {
		err = fmt.Errorf("orchestrator: build result: %w", err)
		p.appendEntry(run, LogEntry{Kind: LogComplete, Message: fmt.Sprintf("Checks failed: %v", err), Severity: SeverityError, Failed: true})
		p.mu.Lock()
		run.Status = RunFailed
		run.Err = err.Error()
		p.mu.Unlock()
		return err
	}

	p.appendEntry(run, LogEntry{Kind: LogComplete, Message: completionMessage(len(stages), res), Severity: SeveritySuccess})
	p.mu.Lock()
	run.Result = res
	run.Status = RunCompleted
	p.mu.Unlock()
	return nil
}

// runStage executes one stage under its timeout. Cancellation of ctx is
// passed to the stage, which is expected to return; only the timeout stops
// the pipeline from waiting on it.
func (p *Pipeline) runStage(ctx context.Context, sd StageDescriptor, in StageInput) (*StageOutput, error) {
	ctx, span := p.tracer.Start(ctx, "paycheck.stage", trace.WithAttributes(attribute.String("stage.name", sd.Name)))
	defer span.End()

	out, err := p.waitStage(ctx, sd, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	return out, err
}

type stageReturn struct {
	out *StageOutput
	err error
}

func (p *Pipeline) waitStage(ctx context.Context, sd StageDescriptor, in StageInput) (*StageOutput, error) {
	timeout := p.def.timeout(sd)
	if timeout <= 0 {
		return sd.Stage.Execute(ctx, in)
	}

	stageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan stageReturn, 1)
	go func() {
		out, err := sd.Stage.Execute(stageCtx, in)
		done <- stageReturn{out: out, err: err}
	}()

	timer := p.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.out, r.err
	case <-timer.Chan():
		p.recorder.IncStageResult(sd.Name, metrics.ResultTimeout)
		return nil, fmt.Errorf("%w after %s", ErrStageTimeout, timeout)
	}
}

func (p *Pipeline) fail(run *Run, sd StageDescriptor, cause error, logger *slog.Logger) error {
	if !errors.Is(cause, ErrStageTimeout) {
		p.recorder.IncStageResult(sd.Name, metrics.ResultFailed)
	}
	p.appendEntry(run, LogEntry{
		Kind:     LogComplete,
		Stage:    sd.Name,
		Message:  fmt.Sprintf("%s failed: %v", sd.label(), cause),
		Severity: SeverityError,
		Failed:   true,
	})
	p.appendEntry(run, LogEntry{
		Kind:     LogComplete,
		Message:  fmt.Sprintf("Checks halted at %s", sd.label()),
		Severity: SeverityError,
		Failed:   true,
	})

	err := &StageError{Stage: sd.Name, Err: cause}
	p.mu.Lock()
	run.Status = RunFailed
	run.FailedStage = sd.Name
	run.Err = cause.Error()
	p.mu.Unlock()
	logger.Error("stage failed", "stage", sd.Name, "error", cause)
	return err
}

// abort closes the log after completed stages have finished.
func (p *Pipeline) abort(run *Run, completed int) error {
	p.appendEntry(run, LogEntry{
		Kind:     LogComplete,
		Message:  fmt.Sprintf("Checks aborted after %d of %d stages", completed, len(run.Stages)),
		Severity: SeverityWarning,
	})
	p.mu.Lock()
	run.Status = RunAborted
	p.mu.Unlock()
	return ErrAborted
}

func (p *Pipeline) appendEntry(run *Run, e LogEntry) {
	p.mu.Lock()
	e.Seq = len(run.Log) + 1
	e.Timestamp = p.clock.Now()
	run.Log = append(run.Log, e)
	p.mu.Unlock()
	p.progress.Emit(e)
}

func (p *Pipeline) findings(run *Run) Findings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return run.Findings.Clone()
}

func (p *Pipeline) stopRequested(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled || p.stopped
}

func completionMessage(n int, res *Result) string {
	switch res.Status {
	case StatusOK:
		return fmt.Sprintf("All %d checks complete: pay matches entitlement", n)
	case StatusNeedsReview:
		return fmt.Sprintf("All %d checks complete: difference of $%s needs review", n, res.Difference.Abs().StringFixed(2))
	default:
		return fmt.Sprintf("All %d checks complete: %s by $%s", n, res.Status, res.Difference.Abs().StringFixed(2))
	}
}

// Cancel asks the running run to stop before its next stage. The stage in
// flight is allowed to finish. Cancel is a no-op when nothing is running.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run != nil && p.run.Status == RunRunning {
		p.cancelled = true
	}
}

// Stop shuts the pipeline for good. A running run stops before its next
// stage, and every later Start returns ErrAborted. Unlike Cancel, Stop also
// takes effect when nothing is running yet.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.run != nil && p.run.Status == RunRunning {
		p.cancelled = true
	}
}

// Run returns a copy of the current run, or nil before the first Start.
func (p *Pipeline) Run() *Run {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run.Clone()
}

// Subscribe streams log entries as they are appended.
func (p *Pipeline) Subscribe() <-chan LogEntry {
	return p.progress.Subscribe()
}

// Close shuts down the progress reporter. Callers should invoke this when the
// pipeline is no longer needed.
func (p *Pipeline) Close() {
	p.progress.Close()
}
