package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultTimeout  ResultLabel = "timeout"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for runs, stages and sessions.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome string) // outcome: completed|failed|aborted
	IncRunReplay()
	AddOpenSessions(delta int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncRunOutcome(string)                       {}
func (NoopRecorder) IncRunReplay()                              {}
func (NoopRecorder) AddOpenSessions(int)                        {}
