package orchestrator

import "github.com/shopspring/decimal"

// Field names one finding. Every finding is owned by exactly one stage.
type Field string

const (
	FieldClassification     Field = "classification"
	FieldAward              Field = "award"
	FieldRate               Field = "rate"
	FieldHours              Field = "hours"
	FieldPublicHolidayHours Field = "publicHolidayHours"
	FieldPaid               Field = "paid"
	FieldEntitled           Field = "entitled"
	FieldDifference         Field = "difference"
	FieldAnomalyScore       Field = "anomalyScore"
	FieldConfidence         Field = "confidence"
	FieldExplanation        Field = "explanation"
)

// Findings accumulates what the stages have established so far. A nil
// pointer means "not yet known". Stages return a Findings value holding only
// the fields they contribute.
type Findings struct {
	Classification     *string          `json:"classification,omitempty"`
	Award              *string          `json:"award,omitempty"`
	Rate               *decimal.Decimal `json:"rate,omitempty"`
	Hours              *decimal.Decimal `json:"hours,omitempty"`
	PublicHolidayHours *decimal.Decimal `json:"publicHolidayHours,omitempty"`
	Paid               *decimal.Decimal `json:"paid,omitempty"`
	Entitled           *decimal.Decimal `json:"entitled,omitempty"`
	Difference         *decimal.Decimal `json:"difference,omitempty"`
	AnomalyScore       *int             `json:"anomalyScore,omitempty"`
	Confidence         *float64         `json:"confidence,omitempty"`
	Explanation        *string          `json:"explanation,omitempty"`
}

// Fields lists the findings that are set, in declaration order.
func (f Findings) Fields() []Field {
	var out []Field
	add := func(set bool, name Field) {
		if set {
			out = append(out, name)
		}
	}
	add(f.Classification != nil, FieldClassification)
	add(f.Award != nil, FieldAward)
	add(f.Rate != nil, FieldRate)
	add(f.Hours != nil, FieldHours)
	add(f.PublicHolidayHours != nil, FieldPublicHolidayHours)
	add(f.Paid != nil, FieldPaid)
	add(f.Entitled != nil, FieldEntitled)
	add(f.Difference != nil, FieldDifference)
	add(f.AnomalyScore != nil, FieldAnomalyScore)
	add(f.Confidence != nil, FieldConfidence)
	add(f.Explanation != nil, FieldExplanation)
	return out
}

// Merge returns a copy of f with every field set in patch overwritten.
func (f Findings) Merge(patch Findings) Findings {
	out := f.Clone()
	p := patch.Clone()
	if p.Classification != nil {
		out.Classification = p.Classification
	}
	if p.Award != nil {
		out.Award = p.Award
	}
	if p.Rate != nil {
		out.Rate = p.Rate
	}
	if p.Hours != nil {
		out.Hours = p.Hours
	}
	if p.PublicHolidayHours != nil {
		out.PublicHolidayHours = p.PublicHolidayHours
	}
	if p.Paid != nil {
		out.Paid = p.Paid
	}
	if p.Entitled != nil {
		out.Entitled = p.Entitled
	}
	if p.Difference != nil {
		out.Difference = p.Difference
	}
	if p.AnomalyScore != nil {
		out.AnomalyScore = p.AnomalyScore
	}
	if p.Confidence != nil {
		out.Confidence = p.Confidence
	}
	if p.Explanation != nil {
		out.Explanation = p.Explanation
	}
	return out
}

// Clone returns a copy that shares no pointers with f.
func (f Findings) Clone() Findings {
	return Findings{
		Classification:     clonePtr(f.Classification),
		Award:              clonePtr(f.Award),
		Rate:               clonePtr(f.Rate),
		Hours:              clonePtr(f.Hours),
		PublicHolidayHours: clonePtr(f.PublicHolidayHours),
		Paid:               clonePtr(f.Paid),
		Entitled:           clonePtr(f.Entitled),
		Difference:         clonePtr(f.Difference),
		AnomalyScore:       clonePtr(f.AnomalyScore),
		Confidence:         clonePtr(f.Confidence),
		Explanation:        clonePtr(f.Explanation),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v. Stages use it to fill a patch.
func Ptr[T any](v T) *T {
	return &v
}
