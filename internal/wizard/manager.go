package wizard

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dusk-indust/paycheck/internal/metrics"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
)

// PipelineFactory builds a fresh pipeline for a new session.
type PipelineFactory func() (orchestrator.Orchestrator, error)

// Manager keeps independent sessions by ID. It guards only the ID map;
// sessions share no state with each other.
type Manager struct {
	factory  PipelineFactory
	steps    []Step
	recorder metrics.Recorder
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Controller
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerSteps sets the step flow for every new session.
func WithManagerSteps(steps []Step) ManagerOption {
	return func(m *Manager) { m.steps = steps }
}

// WithManagerRecorder sets the metrics recorder used for the open sessions gauge.
func WithManagerRecorder(r metrics.Recorder) ManagerOption {
	return func(m *Manager) { m.recorder = r }
}

// WithManagerLogger sets the structured logger handed to sessions.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager that gives each session its own pipeline
// from factory.
func NewManager(factory PipelineFactory, opts ...ManagerOption) *Manager {
	m := &Manager{
		factory:  factory,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		sessions: make(map[string]*Controller),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts a new session.
func (m *Manager) Open() (*Controller, error) {
	pipeline, err := m.factory()
	if err != nil {
		return nil, err
	}
	c := NewController(pipeline,
		WithID(uuid.NewString()),
		WithSteps(m.steps),
		WithControllerLogger(m.logger),
	)

	m.mu.Lock()
	m.sessions[c.ID()] = c
	m.mu.Unlock()

	m.recorder.AddOpenSessions(1)
	m.logger.Info("session opened", "session", c.ID())
	return c, nil
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Close cancels a session and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	c.Cancel()
	if closer, ok := c.pipeline.(interface{ Close() }); ok {
		closer.Close()
	}
	m.recorder.AddOpenSessions(-1)
	return nil
}

// IDs lists the open sessions in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloseAll cancels every open session.
func (m *Manager) CloseAll() {
	for _, id := range m.IDs() {
		_ = m.Close(id)
	}
}
