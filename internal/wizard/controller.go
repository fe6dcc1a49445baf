package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dusk-indust/paycheck/internal/orchestrator"
)

// Controller is one wizard session: the active step, the accumulated data
// and the session's check pipeline. All methods are safe for concurrent use;
// the session still has a single writer because every transition holds the
// controller's lock.
type Controller struct {
	id       string
	steps    []Step
	pipeline orchestrator.Orchestrator
	logger   *slog.Logger

	mu      sync.Mutex
	current int
	visited int
	data    Data
	closed  bool
	running bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithSteps replaces the reference five-step flow. An empty list is ignored.
func WithSteps(steps []Step) ControllerOption {
	return func(c *Controller) {
		if len(steps) > 0 {
			c.steps = append([]Step(nil), steps...)
		}
	}
}

// WithID sets the session ID instead of generating one.
func WithID(id string) ControllerOption {
	return func(c *Controller) { c.id = id }
}

// WithControllerLogger sets the structured logger.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// NewController opens a session on its first step. pipeline runs the
// checks step and must not be shared with another session.
func NewController(pipeline orchestrator.Orchestrator, opts ...ControllerOption) *Controller {
	c := &Controller{
		id:       uuid.NewString(),
		steps:    ReferenceSteps(),
		pipeline: pipeline,
		logger:   slog.Default(),
		current:  1,
		visited:  1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("session", c.id)
	return c
}

// ID returns the session ID.
func (c *Controller) ID() string { return c.id }

// Advance validates p against the active step, merges it and moves one step
// forward. On any error the session is unchanged. The checks step only
// completes through RunChecks.
func (c *Controller) Advance(p Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.navigable(); err != nil {
		return err
	}
	if p != nil && p.Step() == StepChecks {
		return fmt.Errorf("%w: the %s step completes through RunChecks", ErrStepMismatch, StepChecks)
	}
	return c.advanceLocked(p)
}

func (c *Controller) advanceLocked(p Payload) error {
	if c.current >= len(c.steps) {
		return ErrTerminalStep
	}
	active := c.steps[c.current-1].Key
	if p == nil || p.Step() != active {
		return fmt.Errorf("%w: active step is %s", ErrStepMismatch, active)
	}
	if err := p.Validate(); err != nil {
		c.logger.Debug("payload rejected", "step", active, "error", err)
		return &ValidationError{Step: active, Err: err}
	}

	c.data = p.merge(c.data)
	c.current = min(c.current+1, len(c.steps))
	c.visited = max(c.visited, c.current)
	c.logger.Debug("advanced", "step", c.steps[c.current-1].Key, "index", c.current)
	return nil
}

// Retreat moves one step back without discarding data. It reports whether
// the step changed; on the first step it does nothing.
func (c *Controller) Retreat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.navigable() != nil || c.current == 1 {
		return false
	}
	c.current--
	return true
}

// JumpTo moves back to step k, which must be earlier than the active step.
func (c *Controller) JumpTo(k int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.navigable(); err != nil {
		return err
	}
	if k < 1 || k >= c.current {
		return fmt.Errorf("%w: %d (active step is %d)", ErrInvalidJump, k, c.current)
	}
	c.current = k
	return nil
}

// Cancel tears the session down. Accumulated data is dropped, a running
// check run stops before its next stage, and every later call returns
// ErrSessionClosed. Cancel may be called at any time and more than once.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.data = Data{}
	c.mu.Unlock()

	c.pipeline.Stop()
	c.logger.Info("session cancelled")
}

// Closed reports whether Cancel has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// RunChecks runs the check pipeline over the accumulated intake. It is only
// valid on the checks step. A completed run is merged and the session moves
// to the next step; any other outcome leaves the session on the checks step
// with the run recorded for display. Running checks again after a completed
// run replays it, even when an earlier step was edited in between: the
// replayed run keeps the figures it was built from, and a session that
// needs fresh checks after an edit has to be reopened.
func (c *Controller) RunChecks(ctx context.Context) (*orchestrator.Run, error) {
	c.mu.Lock()
	if err := c.navigable(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if active := c.steps[c.current-1].Key; active != StepChecks {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: checks run on the %s step, active step is %s", ErrStepMismatch, StepChecks, active)
	}
	snap, err := c.data.Snapshot()
	if err != nil {
		c.mu.Unlock()
		return nil, &ValidationError{Step: StepChecks, Err: err}
	}
	c.running = true
	c.mu.Unlock()

	c.logger.Info("running checks")
	run, runErr := c.pipeline.Start(ctx, snap)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	if c.closed {
		return run, ErrSessionClosed
	}
	if run == nil {
		return nil, runErr
	}
	if run.Status == orchestrator.RunCompleted {
		if err := c.advanceLocked(ChecksPayload{Run: run}); err != nil {
			return run, err
		}
		return run, runErr
	}
	next := c.data
	next.Checks = &Checks{Run: run.Clone()}
	c.data = next
	return run, runErr
}

// Steps returns every step with its derived state.
func (c *Controller) Steps() []StepView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return viewSteps(c.steps, c.current)
}

// SessionView is a point-in-time copy of a session.
type SessionView struct {
	ID      string     `json:"id"`
	Current int        `json:"current"`
	Total   int        `json:"total"`
	Visited int        `json:"visited"`
	Step    StepKey    `json:"step"`
	Closed  bool       `json:"closed"`
	Running bool       `json:"running"`
	Data    Data       `json:"data"`
	Steps   []StepView `json:"steps"`
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SessionView{
		ID:      c.id,
		Current: c.current,
		Total:   len(c.steps),
		Visited: c.visited,
		Step:    c.steps[c.current-1].Key,
		Closed:  c.closed,
		Running: c.running,
		Data:    c.data.Clone(),
		Steps:   viewSteps(c.steps, c.current),
	}
}

// navigable reports why the session cannot move, if it cannot. Callers
// hold c.mu.
func (c *Controller) navigable() error {
	switch {
	case c.closed:
		return ErrSessionClosed
	case c.running:
		return ErrRunInProgress
	}
	return nil
}
