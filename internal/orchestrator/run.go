package orchestrator

import (
	"slices"
	"time"
)

// RunStatus is the lifecycle state of a Run.
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunAborted   RunStatus = "aborted"
)

// IsTerminal reports whether a run in this state will never change again.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunAborted
}

// Run is one execution of the full ordered stage list over a snapshot.
// Result is set only when Status is completed; FailedStage and Err only
// when it is failed.
type Run struct {
	ID          string     `json:"id"`
	Status      RunStatus  `json:"status"`
	Stages      []string   `json:"stages"`
	Log         []LogEntry `json:"log"`
	Findings    Findings   `json:"findings"`
	Result      *Result    `json:"result,omitempty"`
	FailedStage string     `json:"failedStage,omitempty"`
	Err         string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  time.Time  `json:"finishedAt,omitzero"`
}

// Events returns the log without dividers: one start and one complete per
// stage that ran, plus the terminal entry.
func (r *Run) Events() []LogEntry {
	return Events(r.Log)
}

// Duration is the wall time of a finished run, or zero.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Clone returns a deep copy of r.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	out := *r
	out.Stages = slices.Clone(r.Stages)
	out.Log = slices.Clone(r.Log)
	out.Findings = r.Findings.Clone()
	if r.Result != nil {
		res := *r.Result
		out.Result = &res
	}
	return &out
}
