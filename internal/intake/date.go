package intake

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the ISO calendar date layout used on the wire.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time of day or zone.
type Date struct {
	t time.Time
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("intake: parse date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// MustDate is ParseDate for literals known to be valid. It panics otherwise.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// DaysUntil returns the number of calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("intake: date must be a string: %w", err)
	}
	return d.set(s)
}

func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("intake: line %d: date must be a scalar", node.Line)
	}
	return d.set(node.Value)
}

func (d *Date) set(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Period is an inclusive pay period.
type Period struct {
	Start Date `json:"start" yaml:"start"`
	End   Date `json:"end" yaml:"end"`
}

// Validate requires both bounds and End on or after Start.
func (p Period) Validate() error {
	if p.Start.IsZero() {
		return invalid("period.start", "required")
	}
	if p.End.IsZero() {
		return invalid("period.end", "required")
	}
	if p.End.Before(p.Start) {
		return invalid("period.end", "%s is before start %s", p.End, p.Start)
	}
	return nil
}

// Days returns the number of calendar days covered, both bounds included.
func (p Period) Days() int {
	if p.Start.IsZero() || p.End.IsZero() {
		return 0
	}
	return p.Start.DaysUntil(p.End) + 1
}

func (p Period) String() string {
	return p.Start.String() + ".." + p.End.String()
}
