package intake

import "strings"

// DocumentCount is the number of source documents a check needs.
const DocumentCount = 3

// Documents references the uploaded source documents by identifier.
type Documents struct {
	Contract  string `json:"contract" yaml:"contract"`
	Worksheet string `json:"worksheet" yaml:"worksheet"`
	Payslip   string `json:"payslip" yaml:"payslip"`
}

// Validate requires all three document references.
func (d Documents) Validate() error {
	for _, ref := range d.refs() {
		if ref.id == "" {
			return invalid("documents."+ref.kind, "required (%d of %d documents present)", d.Count(), DocumentCount)
		}
	}
	return nil
}

// Count returns how many document references are present.
func (d Documents) Count() int {
	n := 0
	for _, ref := range d.refs() {
		if ref.id != "" {
			n++
		}
	}
	return n
}

// IDs returns the document identifiers in contract, worksheet, payslip order.
func (d Documents) IDs() []string {
	return []string{d.Contract, d.Worksheet, d.Payslip}
}

type docRef struct {
	kind string
	id   string
}

func (d Documents) refs() []docRef {
	return []docRef{
		{"contract", strings.TrimSpace(d.Contract)},
		{"worksheet", strings.TrimSpace(d.Worksheet)},
		{"payslip", strings.TrimSpace(d.Payslip)},
	}
}
