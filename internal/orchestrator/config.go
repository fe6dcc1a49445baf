package orchestrator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the run-wide settings of a pipeline.
type Config struct {
	// StageTimeout bounds every stage without its own Timeout. Zero means
	// no bound.
	StageTimeout time.Duration

	// Tolerance is the largest absolute difference still reported as ok.
	Tolerance decimal.Decimal

	// ReviewThreshold is the confidence below which a discrepancy is
	// reported as needs-review instead of under- or overpaid.
	ReviewThreshold float64
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		StageTimeout:    2 * time.Minute,
		Tolerance:       decimal.RequireFromString("0.01"),
		ReviewThreshold: 0.5,
	}
}

// Definition is a validated, fixed ordering of stages.
type Definition struct {
	stages []StageDescriptor
	cfg    Config
}

// NewDefinition validates stages and fixes their order. Names must be
// non-empty and unique, and every descriptor needs a Stage.
func NewDefinition(stages []StageDescriptor, cfg Config) (*Definition, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("orchestrator: no stages defined")
	}
	if cfg.ReviewThreshold < 0 || cfg.ReviewThreshold > 1 {
		return nil, fmt.Errorf("orchestrator: review threshold %v outside [0,1]", cfg.ReviewThreshold)
	}
	if cfg.Tolerance.IsNegative() {
		return nil, fmt.Errorf("orchestrator: negative tolerance %s", cfg.Tolerance)
	}

	seen := make(map[string]bool, len(stages))
	for i, sd := range stages {
		if sd.Name == "" {
			return nil, fmt.Errorf("orchestrator: stage %d has empty name", i)
		}
		if seen[sd.Name] {
			return nil, fmt.Errorf("orchestrator: duplicate stage name %q", sd.Name)
		}
		if sd.Stage == nil {
			return nil, fmt.Errorf("orchestrator: stage %q has no implementation", sd.Name)
		}
		seen[sd.Name] = true
	}

	return &Definition{
		stages: append([]StageDescriptor(nil), stages...),
		cfg:    cfg,
	}, nil
}

// Stages returns the descriptors in run order.
func (d *Definition) Stages() []StageDescriptor {
	return append([]StageDescriptor(nil), d.stages...)
}

// Names returns the stage names in run order.
func (d *Definition) Names() []string {
	names := make([]string, len(d.stages))
	for i, sd := range d.stages {
		names[i] = sd.Name
	}
	return names
}

// Config returns the run-wide settings.
func (d *Definition) Config() Config { return d.cfg }

// timeout is the stage's own bound when set, else the run-wide one. Zero
// means unbounded.
func (d *Definition) timeout(sd StageDescriptor) time.Duration {
	if sd.Timeout > 0 {
		return sd.Timeout
	}
	return d.cfg.StageTimeout
}
