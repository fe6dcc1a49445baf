package intake

import "strings"

// Well-known extracted field names.
const (
	FieldGrossPay           = "gross_pay"
	FieldOrdinaryHours      = "ordinary_hours"
	FieldPublicHolidayHours = "public_holiday_hours"
)

// RequiredFields must be reviewed before a check can run.
var RequiredFields = []string{FieldGrossPay, FieldOrdinaryHours}

// Decision is the reviewer's verdict on one extracted field.
type Decision string

const (
	DecisionAccepted  Decision = "accepted"
	DecisionCorrected Decision = "corrected"
	DecisionRejected  Decision = "rejected"
)

func (d Decision) valid() bool {
	switch d {
	case DecisionAccepted, DecisionCorrected, DecisionRejected:
		return true
	}
	return false
}

// FieldReview records one extracted value and what the reviewer did with it.
type FieldReview struct {
	Field     string   `json:"field" yaml:"field"`
	Extracted string   `json:"extracted" yaml:"extracted"`
	Decision  Decision `json:"decision" yaml:"decision"`
	Corrected string   `json:"corrected,omitempty" yaml:"corrected,omitempty"`
}

// Value returns the value to use downstream and whether the field survived
// review.
func (f FieldReview) Value() (string, bool) {
	switch f.Decision {
	case DecisionAccepted:
		return strings.TrimSpace(f.Extracted), true
	case DecisionCorrected:
		return strings.TrimSpace(f.Corrected), true
	default:
		return "", false
	}
}

// Review is the third wizard step: decisions on the extracted fields.
type Review struct {
	Fields []FieldReview `json:"fields" yaml:"fields"`
}

// Validate requires a known decision for every field, a value for every
// correction, no duplicates, and every field in RequiredFields.
func (r Review) Validate() error {
	seen := make(map[string]bool, len(r.Fields))
	for _, f := range r.Fields {
		name := strings.TrimSpace(f.Field)
		if name == "" {
			return invalid("review.field", "field name required")
		}
		if seen[name] {
			return invalid("review."+name, "reviewed more than once")
		}
		seen[name] = true
		if !f.Decision.valid() {
			return invalid("review."+name, "unknown decision %q", f.Decision)
		}
		if f.Decision == DecisionCorrected && strings.TrimSpace(f.Corrected) == "" {
			return invalid("review."+name, "corrected value required")
		}
	}
	for _, name := range RequiredFields {
		if !seen[name] {
			return invalid("review."+name, "required")
		}
	}
	return nil
}

// Resolve returns the surviving field values keyed by field name.
func (r Review) Resolve() map[string]string {
	out := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		if v, ok := f.Value(); ok {
			out[strings.TrimSpace(f.Field)] = v
		}
	}
	return out
}

// Coverage is the share of reviewed fields that survived review, in [0,1].
// A review with no fields has full coverage.
func (r Review) Coverage() float64 {
	if len(r.Fields) == 0 {
		return 1
	}
	kept := 0
	for _, f := range r.Fields {
		if _, ok := f.Value(); ok {
			kept++
		}
	}
	return float64(kept) / float64(len(r.Fields))
}
