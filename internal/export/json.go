// Package export renders a session's check run for the results display: a
// JSON report, a Mermaid stage diagram and a styled terminal log.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/paycheck/internal/orchestrator"
	"github.com/dusk-indust/paycheck/internal/status"
	"github.com/dusk-indust/paycheck/internal/wizard"
)

// Report is the top-level JSON export structure.
type Report struct {
	Session    string                 `json:"session"`
	ExportedAt string                 `json:"exportedAt"`
	Step       wizard.StepKey         `json:"step,omitempty"`
	Status     orchestrator.RunStatus `json:"status"`
	RunID      string                 `json:"runId,omitempty"`
	Result     *orchestrator.Result   `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Log        []LogLine              `json:"log"`
	Steps      []wizard.StepView      `json:"steps,omitempty"`
	Stages     []status.StageInfo     `json:"stages"`
	Findings   *orchestrator.Findings `json:"findings,omitempty"`
}

// LogLine is one user-facing log event. Dividers are left out.
type LogLine struct {
	Seq       int                   `json:"seq"`
	Timestamp time.Time             `json:"timestamp"`
	Kind      orchestrator.LogKind  `json:"kind"`
	Stage     string                `json:"stage,omitempty"`
	Message   string                `json:"message"`
	Severity  orchestrator.Severity `json:"severity"`
	Failed    bool                  `json:"failed,omitempty"`
}

// BuildReport assembles the report for a session view. A session that has
// not run its checks yet reports status idle with an empty log.
func BuildReport(view wizard.SessionView, now time.Time) *Report {
	r := &Report{
		Session:    view.ID,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Step:       view.Step,
		Status:     orchestrator.RunIdle,
		Log:        []LogLine{},
		Steps:      view.Steps,
		Stages:     []status.StageInfo{},
	}
	if view.Data.Checks == nil || view.Data.Checks.Run == nil {
		return r
	}
	return withRun(r, view.Data.Checks.Run)
}

// RunReport assembles a report for a run outside any wizard session.
func RunReport(session string, run *orchestrator.Run, now time.Time) *Report {
	r := &Report{
		Session:    session,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Status:     orchestrator.RunIdle,
		Log:        []LogLine{},
		Stages:     []status.StageInfo{},
	}
	if run == nil {
		return r
	}
	return withRun(r, run)
}

func withRun(r *Report, run *orchestrator.Run) *Report {
	r.Status = run.Status
	r.RunID = run.ID
	r.Result = run.Result
	r.Error = run.Err
	r.Stages = status.Timeline(run)
	findings := run.Findings.Clone()
	r.Findings = &findings
	for _, e := range run.Events() {
		r.Log = append(r.Log, LogLine{
			Seq:       e.Seq,
			Timestamp: e.Timestamp,
			Kind:      e.Kind,
			Stage:     e.Stage,
			Message:   e.Message,
			Severity:  e.Severity,
			Failed:    e.Failed,
		})
	}
	return r
}

// WriteJSON writes r as indented JSON followed by a newline.
func WriteJSON(w io.Writer, r *Report) error {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal report: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}
