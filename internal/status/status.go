// Package status derives a per-stage timeline from a check run's log.
package status

import (
	"time"

	"github.com/dusk-indust/paycheck/internal/orchestrator"
)

// State is where one stage stands within a run.
type State string

const (
	StatePending  State = "pending"
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateFailed   State = "failed"
	StateAborted  State = "aborted"
	StateSkipped  State = "skipped"
)

// StageInfo describes the state of a single stage.
type StageInfo struct {
	Index    int           `json:"index"` // 1-based position in the run
	Name     string        `json:"name"`
	State    State         `json:"state"`
	Started  time.Time     `json:"started,omitzero"`
	Finished time.Time     `json:"finished,omitzero"`
	Duration time.Duration `json:"duration,omitempty"`
	Message  string        `json:"message,omitempty"` // latest log message for the stage
}

// RunStatus is the timeline of one run.
type RunStatus struct {
	RunID     string                 `json:"runId"`
	Status    orchestrator.RunStatus `json:"status"`
	Stages    []StageInfo            `json:"stages"`
	Completed int                    `json:"completed"`
	NextStage int                    `json:"nextStage"` // -1 when nothing is left to run
	Message   string                 `json:"message,omitempty"`
}

// Timeline folds the run log into one StageInfo per stage, in run order.
// Stages the run never reached are pending while the run is live and
// skipped once it has ended.
func Timeline(run *orchestrator.Run) []StageInfo {
	if run == nil {
		return nil
	}
	stages := make([]StageInfo, len(run.Stages))
	index := make(map[string]int, len(run.Stages))
	for i, name := range run.Stages {
		stages[i] = StageInfo{Index: i + 1, Name: name, State: StatePending}
		index[name] = i
	}

	for _, e := range run.Log {
		i, ok := index[e.Stage]
		if !ok {
			continue
		}
		s := &stages[i]
		s.Message = e.Message
		switch e.Kind {
		case orchestrator.LogStart:
			s.State = StateRunning
			s.Started = e.Timestamp
		case orchestrator.LogComplete:
			s.Finished = e.Timestamp
			s.Duration = e.Timestamp.Sub(s.Started)
			switch {
			case e.Failed:
				s.State = StateFailed
			case e.Severity == orchestrator.SeverityWarning:
				s.State = StateAborted
			default:
				s.State = StateComplete
			}
		}
	}

	if run.Status.IsTerminal() {
		for i := range stages {
			if stages[i].State == StatePending {
				stages[i].State = StateSkipped
			}
		}
	}
	return stages
}

// NextStage returns the 1-based index of the first stage that has not
// completed, or -1 when every stage has.
func NextStage(stages []StageInfo) int {
	for _, s := range stages {
		if s.State != StateComplete {
			return s.Index
		}
	}
	return -1
}

// Summarize returns the run's timeline with its headline numbers.
func Summarize(run *orchestrator.Run) RunStatus {
	if run == nil {
		return RunStatus{Status: orchestrator.RunIdle, NextStage: 1}
	}
	stages := Timeline(run)
	rs := RunStatus{
		RunID:     run.ID,
		Status:    run.Status,
		Stages:    stages,
		NextStage: NextStage(stages),
	}
	for _, s := range stages {
		if s.State == StateComplete {
			rs.Completed++
		}
	}
	if n := len(run.Log); n > 0 && run.Log[n-1].Terminal() {
		rs.Message = run.Log[n-1].Message
	}
	return rs
}
