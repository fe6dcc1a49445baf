package intake

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Form is a complete intake expressed as a file, used to drive the wizard
// non-interactively.
type Form struct {
	Details   Details   `yaml:"details"`
	Documents Documents `yaml:"documents"`
	Review    Review    `yaml:"review"`
}

// ParseForm decodes a YAML intake form. Unknown keys are rejected.
func ParseForm(data []byte) (*Form, error) {
	var f Form
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("intake: decode form: %w", err)
	}
	return &f, nil
}

// LoadForm reads and decodes a YAML intake form from path.
func LoadForm(path string) (*Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("intake: read form: %w", err)
	}
	f, err := ParseForm(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
