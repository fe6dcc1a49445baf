package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ResultStatus is the verdict shown to the user.
type ResultStatus string

const (
	StatusOK          ResultStatus = "ok"
	StatusUnderpaid   ResultStatus = "underpaid"
	StatusNeedsReview ResultStatus = "needs-review"
	StatusOverpaid    ResultStatus = "overpaid"
)

// Result is the aggregate of a completed run. Difference is always
// Paid - Entitled, so an underpayment is negative.
type Result struct {
	Status       ResultStatus
	Paid         decimal.Decimal
	Entitled     decimal.Decimal
	Difference   decimal.Decimal
	AnomalyScore int
	Confidence   float64
	Explanation  string
}

type resultJSON struct {
	Status       ResultStatus `json:"status"`
	Paid         string       `json:"paid"`
	Entitled     string       `json:"entitled"`
	Difference   string       `json:"difference"`
	AnomalyScore int          `json:"anomalyScore"`
	Confidence   float64      `json:"confidence"`
	Explanation  string       `json:"explanation,omitempty"`
}

// MarshalJSON writes money as fixed two-place decimal strings.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Status:       r.Status,
		Paid:         r.Paid.StringFixed(2),
		Entitled:     r.Entitled.StringFixed(2),
		Difference:   r.Difference.StringFixed(2),
		AnomalyScore: r.AnomalyScore,
		Confidence:   r.Confidence,
		Explanation:  r.Explanation,
	})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Result{
		Status:       raw.Status,
		AnomalyScore: raw.AnomalyScore,
		Confidence:   raw.Confidence,
		Explanation:  raw.Explanation,
	}
	for _, f := range []struct {
		name string
		in   string
		dst  *decimal.Decimal
	}{
		{"paid", raw.Paid, &out.Paid},
		{"entitled", raw.Entitled, &out.Entitled},
		{"difference", raw.Difference, &out.Difference},
	} {
		d, err := decimal.NewFromString(f.in)
		if err != nil {
			return fmt.Errorf("result: %s: %w", f.name, err)
		}
		*f.dst = d
	}
	*r = out
	return nil
}

// BuildResult aggregates the findings of a finished run and classifies it.
func BuildResult(f Findings, cfg Config) (*Result, error) {
	var missing []Field
	if f.Paid == nil {
		missing = append(missing, FieldPaid)
	}
	if f.Entitled == nil {
		missing = append(missing, FieldEntitled)
	}
	if f.AnomalyScore == nil {
		missing = append(missing, FieldAnomalyScore)
	}
	if f.Confidence == nil {
		missing = append(missing, FieldConfidence)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %v", ErrIncompleteFindings, missing)
	}

	diff := f.Paid.Sub(*f.Entitled)
	if f.Difference != nil && !f.Difference.Equal(diff) {
		return nil, fmt.Errorf("orchestrator: difference %s does not equal paid %s minus entitled %s",
			f.Difference, f.Paid, f.Entitled)
	}
	if *f.AnomalyScore < 0 || *f.AnomalyScore > 100 {
		return nil, fmt.Errorf("orchestrator: anomaly score %d outside [0,100]", *f.AnomalyScore)
	}
	if *f.Confidence < 0 || *f.Confidence > 1 {
		return nil, fmt.Errorf("orchestrator: confidence %v outside [0,1]", *f.Confidence)
	}

	res := &Result{
		Paid:         *f.Paid,
		Entitled:     *f.Entitled,
		Difference:   diff,
		AnomalyScore: *f.AnomalyScore,
		Confidence:   *f.Confidence,
	}
	if f.Explanation != nil {
		res.Explanation = *f.Explanation
	}
	res.Status = classify(diff, res.Confidence, cfg)
	return res, nil
}

func classify(diff decimal.Decimal, confidence float64, cfg Config) ResultStatus {
	switch {
	case diff.Abs().LessThanOrEqual(cfg.Tolerance):
		return StatusOK
	case confidence < cfg.ReviewThreshold:
		return StatusNeedsReview
	case diff.IsNegative():
		return StatusUnderpaid
	default:
		return StatusOverpaid
	}
}
