// Package config loads paycheck settings from YAML over built-in defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/paycheck/internal/orchestrator"
)

//go:embed defaults.yml
var defaultsYAML []byte

// FileNames are the names Load looks for, in order.
var FileNames = []string{"paycheck.yml", "paycheck.yaml"}

// Config holds process-level settings.
type Config struct {
	LogLevel  string `yaml:"logLevel,omitempty"`
	LogFormat string `yaml:"logFormat,omitempty"`

	// StageTimeout bounds each check stage (e.g. "2m"). Zero disables it.
	StageTimeout time.Duration `yaml:"stageTimeout,omitempty"`

	// Tolerance is the largest pay difference still reported as ok.
	Tolerance decimal.Decimal `yaml:"tolerance"`

	// ReviewThreshold is the confidence below which a discrepancy needs review.
	ReviewThreshold float64 `yaml:"reviewThreshold"`

	// AnomalyScale is the percentage gap at which the anomaly score reaches
	// about 63. Larger values make the score less sensitive.
	AnomalyScale float64 `yaml:"anomalyScale"`

	// PublicHolidayLoading multiplies the base rate for public holiday hours.
	PublicHolidayLoading decimal.Decimal `yaml:"publicHolidayLoading"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `yaml:"metricsAddr,omitempty"`

	// RemoteStages maps a stage name to the A2A endpoint of a worker that
	// runs it instead of the local implementation.
	RemoteStages map[string]string `yaml:"remoteStages,omitempty"`

	Awards []Award `yaml:"awards"`
}

// Award is a pay award and its classification rates.
type Award struct {
	Code              string                     `yaml:"code"`
	Name              string                     `yaml:"name"`
	OrganisationTypes []string                   `yaml:"organisationTypes"`
	Jurisdictions     []string                   `yaml:"jurisdictions,omitempty"`
	Rates             map[string]decimal.Decimal `yaml:"rates"`
}

// Covers reports whether the award applies to an organisation type in a
// jurisdiction. An award without jurisdictions applies everywhere.
func (a Award) Covers(orgType, jurisdiction string) bool {
	if !containsFold(a.OrganisationTypes, orgType) {
		return false
	}
	return len(a.Jurisdictions) == 0 || containsFold(a.Jurisdictions, jurisdiction)
}

// Rate returns the hourly rate for a classification, ignoring case and
// surrounding space.
func (a Award) Rate(classification string) (decimal.Decimal, bool) {
	want := strings.TrimSpace(classification)
	for name, rate := range a.Rates {
		if strings.EqualFold(name, want) {
			return rate, true
		}
	}
	return decimal.Zero, false
}

// FindAward returns the first award covering orgType in jurisdiction.
func (c *Config) FindAward(orgType, jurisdiction string) (Award, bool) {
	for _, a := range c.Awards {
		if a.Covers(orgType, jurisdiction) {
			return a, true
		}
	}
	return Award{}, false
}

// Pipeline returns the run-wide orchestrator settings.
func (c *Config) Pipeline() orchestrator.Config {
	return orchestrator.Config{
		StageTimeout:    c.StageTimeout,
		Tolerance:       c.Tolerance,
		ReviewThreshold: c.ReviewThreshold,
	}
}

// Validate checks ranges and the award table.
func (c *Config) Validate() error {
	var errs []error
	if c.StageTimeout < 0 {
		errs = append(errs, fmt.Errorf("stageTimeout: must not be negative"))
	}
	if c.Tolerance.IsNegative() {
		errs = append(errs, fmt.Errorf("tolerance: must not be negative"))
	}
	if c.ReviewThreshold < 0 || c.ReviewThreshold > 1 {
		errs = append(errs, fmt.Errorf("reviewThreshold: %v outside [0,1]", c.ReviewThreshold))
	}
	if c.AnomalyScale <= 0 {
		errs = append(errs, fmt.Errorf("anomalyScale: must be positive"))
	}
	if c.PublicHolidayLoading.LessThan(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("publicHolidayLoading: %s is below 1", c.PublicHolidayLoading))
	}
	for stage, endpoint := range c.RemoteStages {
		if strings.TrimSpace(endpoint) == "" {
			errs = append(errs, fmt.Errorf("remoteStages.%s: endpoint is empty", stage))
		}
	}
	codes := make(map[string]bool, len(c.Awards))
	for i, a := range c.Awards {
		switch {
		case a.Code == "":
			errs = append(errs, fmt.Errorf("awards[%d]: code is required", i))
		case codes[a.Code]:
			errs = append(errs, fmt.Errorf("awards[%d]: duplicate code %s", i, a.Code))
		}
		codes[a.Code] = true
		if len(a.OrganisationTypes) == 0 {
			errs = append(errs, fmt.Errorf("awards[%d]: organisationTypes is empty", i))
		}
		for class, rate := range a.Rates {
			if !rate.IsPositive() {
				errs = append(errs, fmt.Errorf("awards[%d].rates.%s: %s is not positive", i, class, rate))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return &cfg
}

// Load reads paycheck.yml or paycheck.yaml from dir over the defaults.
// Returns the defaults (not an error) if no config file exists.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFile(path)
	}
	cfg := Default()
	return cfg, cfg.Validate()
}

// LoadFile reads the given file over the defaults and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func containsFold(list []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
