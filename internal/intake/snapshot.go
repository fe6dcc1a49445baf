package intake

import (
	"fmt"
	"maps"

	"github.com/shopspring/decimal"
)

// Snapshot is the frozen intake handed to the check pipeline. It is built
// only from validated sections and is safe to share between goroutines as
// long as callers treat it as read-only; Clone gives an independent copy.
type Snapshot struct {
	Organisation  Organisation      `json:"organisation"`
	Employment    Employment        `json:"employment"`
	Jurisdiction  string            `json:"jurisdiction"`
	PublicHoliday bool              `json:"publicHoliday"`
	Period        Period            `json:"period"`
	Documents     Documents         `json:"documents"`
	Fields        map[string]string `json:"fields"`
	Coverage      float64           `json:"coverage"`
}

// NewSnapshot validates the three intake sections and freezes them. Any nil
// section or failed validation yields a *ValidationError.
func NewSnapshot(details *Details, docs *Documents, review *Review) (Snapshot, error) {
	if details == nil {
		return Snapshot{}, invalid("details", "step not completed")
	}
	if docs == nil {
		return Snapshot{}, invalid("documents", "step not completed")
	}
	if review == nil {
		return Snapshot{}, invalid("review", "step not completed")
	}
	if err := details.Validate(); err != nil {
		return Snapshot{}, err
	}
	if err := docs.Validate(); err != nil {
		return Snapshot{}, err
	}
	if err := review.Validate(); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Organisation:  details.Organisation,
		Employment:    details.Employment,
		Jurisdiction:  details.Jurisdiction,
		PublicHoliday: details.PublicHoliday,
		Period:        details.Period,
		Documents:     *docs,
		Fields:        review.Resolve(),
		Coverage:      review.Coverage(),
	}, nil
}

// Field returns a reviewed field value.
func (s Snapshot) Field(name string) (string, bool) {
	v, ok := s.Fields[name]
	return v, ok
}

// Decimal parses a reviewed field as a decimal number.
func (s Snapshot) Decimal(name string) (decimal.Decimal, error) {
	v, ok := s.Fields[name]
	if !ok {
		return decimal.Zero, fmt.Errorf("intake: field %q missing or rejected in review", name)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("intake: field %q: %q is not a number", name, v)
	}
	return d, nil
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	s.Fields = maps.Clone(s.Fields)
	return s
}
