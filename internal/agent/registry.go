package agent

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dusk-indust/paycheck/internal/a2a"
	"github.com/dusk-indust/paycheck/internal/config"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
)

// StageFactory builds a stage from the loaded configuration.
type StageFactory func(cfg *config.Config) orchestrator.Stage

// Spec describes one registered stage.
type Spec struct {
	Name  string
	Title string
	Owns  []orchestrator.Field
	New   StageFactory
}

// ReferenceSpecs returns the ten reference stages in pipeline order.
func ReferenceSpecs() []Spec {
	return []Spec{
		{Name: StageDocumentIntake, Title: "Document intake",
			New: func(*config.Config) orchestrator.Stage { return documentIntake{} }},
		{Name: StageContractReader, Title: "Contract reader",
			Owns: []orchestrator.Field{orchestrator.FieldClassification},
			New:  func(*config.Config) orchestrator.Stage { return contractReader{} }},
		{Name: StageWorksheetReader, Title: "Worksheet reader",
			Owns: []orchestrator.Field{orchestrator.FieldHours, orchestrator.FieldPublicHolidayHours},
			New:  func(*config.Config) orchestrator.Stage { return worksheetReader{} }},
		{Name: StagePayslipReader, Title: "Payslip reader",
			Owns: []orchestrator.Field{orchestrator.FieldPaid},
			New:  func(*config.Config) orchestrator.Stage { return payslipReader{} }},
		{Name: StageAwardMatcher, Title: "Award matcher",
			Owns: []orchestrator.Field{orchestrator.FieldAward},
			New:  func(c *config.Config) orchestrator.Stage { return awardMatcher{cfg: c} }},
		{Name: StageClassificationChecker, Title: "Classification checker",
			Owns: []orchestrator.Field{orchestrator.FieldRate},
			New:  func(c *config.Config) orchestrator.Stage { return classificationChecker{cfg: c} }},
		{Name: StageEntitlementCalculator, Title: "Entitlement calculator",
			Owns: []orchestrator.Field{orchestrator.FieldEntitled},
			New:  func(c *config.Config) orchestrator.Stage { return entitlementCalculator{cfg: c} }},
		{Name: StageDetector, Title: "Underpayment detector",
			Owns: []orchestrator.Field{orchestrator.FieldDifference},
			New:  func(c *config.Config) orchestrator.Stage { return detector{cfg: c} }},
		{Name: StageAnomalyScorer, Title: "Anomaly scorer",
			Owns: []orchestrator.Field{orchestrator.FieldAnomalyScore},
			New:  func(c *config.Config) orchestrator.Stage { return anomalyScorer{cfg: c} }},
		{Name: StageExplanation, Title: "Explanation",
			Owns: []orchestrator.Field{orchestrator.FieldConfidence, orchestrator.FieldExplanation},
			New:  func(c *config.Config) orchestrator.Stage { return explanation{cfg: c} }},
	}
}

// Registry holds the stage specs in pipeline order and tracks the workers
// spawned from them.
type Registry struct {
	mu      sync.Mutex
	specs   []Spec
	spawned []*Worker
}

// NewRegistry creates a Registry pre-registered with the reference stages.
func NewRegistry() *Registry {
	return &Registry{specs: ReferenceSpecs()}
}

// Register appends a stage to the end of the pipeline order.
func (r *Registry) Register(s Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Name == "" || s.New == nil {
		return fmt.Errorf("agent: stage spec needs a name and a factory")
	}
	if slices.ContainsFunc(r.specs, func(x Spec) bool { return x.Name == s.Name }) {
		return fmt.Errorf("agent: stage %q already registered", s.Name)
	}
	r.specs = append(r.specs, s)
	return nil
}

// Names returns the registered stage names in pipeline order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.specs))
	for i, s := range r.specs {
		names[i] = s.Name
	}
	return names
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.specs {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// Descriptors builds the pipeline stages. A stage listed in
// cfg.RemoteStages runs on that worker through client instead of in
// process.
func (r *Registry) Descriptors(cfg *config.Config, client a2a.Client) ([]orchestrator.StageDescriptor, error) {
	r.mu.Lock()
	specs := slices.Clone(r.specs)
	r.mu.Unlock()

	for name := range cfg.RemoteStages {
		if !slices.ContainsFunc(specs, func(s Spec) bool { return s.Name == name }) {
			return nil, fmt.Errorf("agent: remote stage %q is not registered", name)
		}
	}
	if len(cfg.RemoteStages) > 0 && client == nil {
		return nil, fmt.Errorf("agent: remote stages configured without an A2A client")
	}

	out := make([]orchestrator.StageDescriptor, len(specs))
	for i, s := range specs {
		var stage orchestrator.Stage
		if endpoint, ok := cfg.RemoteStages[s.Name]; ok {
			stage = &orchestrator.RemoteStage{Name: s.Name, Endpoint: endpoint, Client: client}
		} else {
			stage = s.New(cfg)
		}
		out[i] = orchestrator.StageDescriptor{
			Name:  s.Name,
			Title: s.Title,
			Owns:  slices.Clone(s.Owns),
			Stage: stage,
		}
	}
	return out, nil
}

// Definition builds a validated pipeline definition from the registry.
func (r *Registry) Definition(cfg *config.Config, client a2a.Client) (*orchestrator.Definition, error) {
	stages, err := r.Descriptors(cfg, client)
	if err != nil {
		return nil, err
	}
	return orchestrator.NewDefinition(stages, cfg.Pipeline())
}

// ReferenceDefinition is NewRegistry().Definition(cfg, client).
func ReferenceDefinition(cfg *config.Config, client a2a.Client) (*orchestrator.Definition, error) {
	return NewRegistry().Definition(cfg, client)
}

// PipelineFactory returns a constructor for per-session pipelines over the
// registry's definition. opts are applied to every pipeline, so they must not
// carry per-session state such as a progress reporter.
func (r *Registry) PipelineFactory(cfg *config.Config, client a2a.Client, opts ...orchestrator.Option) (func() (orchestrator.Orchestrator, error), error) {
	def, err := r.Definition(cfg, client)
	if err != nil {
		return nil, err
	}
	return func() (orchestrator.Orchestrator, error) {
		return orchestrator.NewPipeline(def, opts...), nil
	}, nil
}

// Spawn creates a worker serving the named stage. The worker is tracked
// for StopAll but not started.
func (r *Registry) Spawn(name string, cfg *config.Config, opts ...BaseOption) (*Worker, error) {
	s, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("agent: no stage registered as %q", name)
	}
	w := NewWorker(s.Name, s.Title, s.New(cfg), opts...)

	r.mu.Lock()
	r.spawned = append(r.spawned, w)
	r.mu.Unlock()
	return w, nil
}

// StopAll gracefully stops all spawned workers in reverse order.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for i := len(r.spawned) - 1; i >= 0; i-- {
		if err := r.spawned[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.spawned = nil
	return firstErr
}
