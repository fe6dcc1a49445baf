package wizard

import (
	"github.com/dusk-indust/paycheck/internal/intake"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
)

// Data is the record accumulated across steps. Each section belongs to one
// step and is nil until that step has been completed. A Data value is never
// modified after it is stored; merges build a new value.
type Data struct {
	Details   *intake.Details   `json:"details,omitempty"`
	Documents *intake.Documents `json:"documents,omitempty"`
	Review    *intake.Review    `json:"review,omitempty"`
	Checks    *Checks           `json:"checks,omitempty"`
}

// Checks is the checks step's section: the run and, when it completed,
// its result.
type Checks struct {
	Run    *orchestrator.Run    `json:"run"`
	Result *orchestrator.Result `json:"result,omitempty"`
}

// Snapshot freezes the intake sections for the pipeline.
func (d Data) Snapshot() (intake.Snapshot, error) {
	return intake.NewSnapshot(d.Details, d.Documents, d.Review)
}

// Clone returns a copy that shares nothing with d.
func (d Data) Clone() Data {
	var out Data
	if d.Details != nil {
		v := *d.Details
		out.Details = &v
	}
	if d.Documents != nil {
		v := *d.Documents
		out.Documents = &v
	}
	if d.Review != nil {
		v := intake.Review{Fields: append([]intake.FieldReview(nil), d.Review.Fields...)}
		out.Review = &v
	}
	if d.Checks != nil {
		out.Checks = d.Checks.clone()
	}
	return out
}

func (c *Checks) clone() *Checks {
	out := &Checks{Run: c.Run.Clone()}
	if c.Result != nil {
		r := *c.Result
		out.Result = &r
	}
	return out
}
