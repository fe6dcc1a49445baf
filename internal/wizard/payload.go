package wizard

import (
	"fmt"

	"github.com/dusk-indust/paycheck/internal/intake"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
)

// Payload is what a step proposes when the user moves forward. Each payload
// type belongs to exactly one step and replaces only that step's section.
type Payload interface {
	Step() StepKey
	Validate() error
	merge(Data) Data
}

// DetailsPayload completes the details step.
type DetailsPayload struct {
	Details intake.Details
}

func (DetailsPayload) Step() StepKey     { return StepDetails }
func (p DetailsPayload) Validate() error { return p.Details.Validate() }

func (p DetailsPayload) merge(d Data) Data {
	v := p.Details
	d.Details = &v
	return d
}

// DocumentsPayload completes the documents step. All three documents are
// required.
type DocumentsPayload struct {
	Documents intake.Documents
}

func (DocumentsPayload) Step() StepKey     { return StepDocuments }
func (p DocumentsPayload) Validate() error { return p.Documents.Validate() }

func (p DocumentsPayload) merge(d Data) Data {
	v := p.Documents
	d.Documents = &v
	return d
}

// ReviewPayload completes the review step.
type ReviewPayload struct {
	Review intake.Review
}

func (ReviewPayload) Step() StepKey     { return StepReview }
func (p ReviewPayload) Validate() error { return p.Review.Validate() }

func (p ReviewPayload) merge(d Data) Data {
	v := intake.Review{Fields: append([]intake.FieldReview(nil), p.Review.Fields...)}
	d.Review = &v
	return d
}

// ChecksPayload completes the checks step with a finished run. Only
// RunChecks builds it; Advance rejects it.
type ChecksPayload struct {
	Run *orchestrator.Run
}

func (ChecksPayload) Step() StepKey { return StepChecks }

func (p ChecksPayload) Validate() error {
	if p.Run == nil {
		return fmt.Errorf("no check run")
	}
	if p.Run.Status != orchestrator.RunCompleted || p.Run.Result == nil {
		return fmt.Errorf("check run is %s, not completed", p.Run.Status)
	}
	return nil
}

func (p ChecksPayload) merge(d Data) Data {
	run := p.Run.Clone()
	d.Checks = &Checks{Run: run, Result: run.Result}
	return d
}
