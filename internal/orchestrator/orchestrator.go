// Package orchestrator runs a fixed, ordered list of check stages strictly
// one at a time over a frozen intake snapshot, keeping an append-only log of
// what happened and assembling the final result.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/dusk-indust/paycheck/internal/intake"
)

// Stage is one named unit of pipeline work. Implementations must honour ctx
// and must only contribute the findings their descriptor owns.
type Stage interface {
	Execute(ctx context.Context, in StageInput) (*StageOutput, error)
}

// Announcer is implemented by stages that describe what they are about to
// do. The message becomes the stage's start log entry.
type Announcer interface {
	Announce(in StageInput) string
}

// StageFunc adapts a function to Stage.
type StageFunc func(ctx context.Context, in StageInput) (*StageOutput, error)

// Execute calls f.
func (f StageFunc) Execute(ctx context.Context, in StageInput) (*StageOutput, error) {
	return f(ctx, in)
}

// StageInput is what a stage sees: the frozen intake and the findings
// contributed by the stages before it.
type StageInput struct {
	Snapshot intake.Snapshot `json:"snapshot"`
	Findings Findings        `json:"findings"`
}

// StageOutput is a stage's completion summary and its contribution.
type StageOutput struct {
	Summary string   `json:"summary"`
	Patch   Findings `json:"patch"`
}

// StageDescriptor places a Stage in the pipeline.
type StageDescriptor struct {
	// Name is unique within a pipeline (e.g. "detector").
	Name string

	// Title is the human label used in log messages.
	Title string

	// Owns lists the findings this stage may write.
	Owns []Field

	// Timeout overrides Config.StageTimeout when positive.
	Timeout time.Duration

	Stage Stage
}

func (d StageDescriptor) label() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

func (d StageDescriptor) announce(in StageInput) string {
	if a, ok := d.Stage.(Announcer); ok {
		if msg := a.Announce(in); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("%s started", d.label())
}

// checkOwnership rejects a patch that writes a finding the stage does not own.
func (d StageDescriptor) checkOwnership(patch Findings) error {
	owned := make(map[Field]bool, len(d.Owns))
	for _, f := range d.Owns {
		owned[f] = true
	}
	for _, f := range patch.Fields() {
		if !owned[f] {
			return fmt.Errorf("%w: %s wrote %q", ErrFieldNotOwned, d.Name, f)
		}
	}
	return nil
}

// Orchestrator is the per-session pipeline contract consumed by the wizard.
type Orchestrator interface {
	// Start runs every stage in order, or returns the existing run when one
	// is already running or completed.
	Start(ctx context.Context, snap intake.Snapshot) (*Run, error)

	// Cancel stops the current run before its next stage.
	Cancel()

	// Stop cancels the current run and makes every later Start return
	// ErrAborted without running a stage.
	Stop()

	// Run returns a copy of the current run, or nil.
	Run() *Run

	// Subscribe streams log entries as they are appended.
	Subscribe() <-chan LogEntry
}
