package intake

import "strings"

// Organisation identifies the employer.
type Organisation struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
}

// Employment describes the worker's engagement.
type Employment struct {
	Type           string `json:"type" yaml:"type"`
	Role           string `json:"role" yaml:"role"`
	Classification string `json:"classification" yaml:"classification"`
}

// Details is the first wizard step: who is employed, where, and for which
// pay period.
type Details struct {
	Organisation  Organisation `json:"organisation" yaml:"organisation"`
	Employment    Employment   `json:"employment" yaml:"employment"`
	Jurisdiction  string       `json:"jurisdiction" yaml:"jurisdiction"`
	PublicHoliday bool         `json:"publicHoliday" yaml:"publicHoliday"`
	Period        Period       `json:"period" yaml:"period"`
}

// Validate checks that every required detail is present.
func (d Details) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"organisation.type", d.Organisation.Type},
		{"organisation.name", d.Organisation.Name},
		{"employment.type", d.Employment.Type},
		{"employment.role", d.Employment.Role},
		{"employment.classification", d.Employment.Classification},
		{"jurisdiction", d.Jurisdiction},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalid(r.field, "required")
		}
	}
	return d.Period.Validate()
}
