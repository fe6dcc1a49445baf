package agent

import (
	"context"
	"fmt"
	"net"

	"github.com/jonboulle/clockwork"

	"github.com/dusk-indust/paycheck/internal/a2a"
)

// Compile-time interface checks.
var (
	_ Agent       = (*BaseAgent)(nil)
	_ a2a.Handler = (*BaseAgent)(nil)
)

// ProcessFunc does the agent's work. It receives the task (in WORKING state)
// and the message, and returns artifacts to attach to the completed task.
type ProcessFunc func(ctx context.Context, task *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error)

// BaseAgent composes an A2A server and task store around a ProcessFunc and
// drives the task lifecycle submitted → working → completed or failed.
type BaseAgent struct {
	server  *a2a.Server
	store   *a2a.TaskStore
	card    a2a.AgentCard
	process ProcessFunc
	clock   clockwork.Clock
}

// BaseOption configures a BaseAgent.
type BaseOption func(*BaseAgent)

// WithAgentClock sets the clock used for task status timestamps.
func WithAgentClock(c clockwork.Clock) BaseOption {
	return func(b *BaseAgent) { b.clock = c }
}

// NewBaseAgent creates a BaseAgent with the given card and process function.
func NewBaseAgent(card a2a.AgentCard, process ProcessFunc, opts ...BaseOption) *BaseAgent {
	b := &BaseAgent{
		store:   a2a.NewTaskStore(),
		card:    card,
		process: process,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.server = a2a.NewServer(card, b)
	return b
}

// Card returns the agent's A2A Agent Card.
func (b *BaseAgent) Card() a2a.AgentCard {
	return b.card
}

// Server returns the underlying A2A server, e.g. to mount its routes.
func (b *BaseAgent) Server() *a2a.Server {
	return b.server
}

// HandleTask processes an A2A task with a message and returns the finished
// task. A processing error yields the failed task together with the error.
func (b *BaseAgent) HandleTask(ctx context.Context, task a2a.Task, msg a2a.Message) (*a2a.Task, error) {
	task.Status = a2a.TaskStatus{
		State:     a2a.TaskStateSubmitted,
		Timestamp: b.clock.Now(),
	}
	task.History = append(task.History, msg)
	if err := b.store.Create(task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if err := b.store.Update(task.ID, func(t *a2a.Task) {
		t.Status = a2a.TaskStatus{
			State:     a2a.TaskStateWorking,
			Timestamp: b.clock.Now(),
		}
	}); err != nil {
		return nil, fmt.Errorf("update task to working: %w", err)
	}

	artifacts, err := b.process(ctx, &task, msg)
	if err != nil {
		_ = b.store.Update(task.ID, func(t *a2a.Task) {
			t.Status = a2a.TaskStatus{
				State:     a2a.TaskStateFailed,
				Timestamp: b.clock.Now(),
				Message:   &a2a.Message{Role: a2a.RoleAgent, Parts: []a2a.Part{a2a.TextPart(err.Error())}},
			}
		})
		result, _ := b.store.Get(task.ID)
		return result, err
	}

	if err := b.store.Update(task.ID, func(t *a2a.Task) {
		t.Status = a2a.TaskStatus{
			State:     a2a.TaskStateCompleted,
			Timestamp: b.clock.Now(),
		}
		t.Artifacts = artifacts
	}); err != nil {
		return nil, fmt.Errorf("update task to completed: %w", err)
	}

	return b.store.Get(task.ID)
}

// Start launches the agent's HTTP server on the given address.
func (b *BaseAgent) Start(ctx context.Context, addr string) (net.Addr, error) {
	return b.server.Start(ctx, addr)
}

// Stop gracefully shuts down the agent.
func (b *BaseAgent) Stop(ctx context.Context) error {
	return b.server.Stop(ctx)
}

// --- a2a.Handler implementation ---

// HandleSendMessage creates a task from the incoming message and processes
// it. A task that failed is returned as such rather than as an RPC error,
// so the caller can read the reason from its status.
func (b *BaseAgent) HandleSendMessage(ctx context.Context, req a2a.SendMessageRequest) (*a2a.Task, error) {
	task := a2a.Task{
		ID:        a2a.NewTaskID(),
		ContextID: req.Message.ContextID,
	}
	result, err := b.HandleTask(ctx, task, req.Message)
	if err != nil && result != nil && result.Status.State == a2a.TaskStateFailed {
		return result, nil
	}
	return result, err
}

// HandleGetTask retrieves a task by ID from the store.
func (b *BaseAgent) HandleGetTask(_ context.Context, req a2a.GetTaskRequest) (*a2a.Task, error) {
	return b.store.Get(req.ID)
}

// HandleListTasks returns tasks matching the filter.
func (b *BaseAgent) HandleListTasks(_ context.Context, req a2a.ListTasksRequest) (*a2a.ListTasksResponse, error) {
	return b.store.List(req)
}

// HandleCancelTask cancels a task if it is not in a terminal state.
func (b *BaseAgent) HandleCancelTask(_ context.Context, req a2a.CancelTaskRequest) (*a2a.Task, error) {
	err := b.store.Update(req.ID, func(t *a2a.Task) {
		if !t.Status.State.IsTerminal() {
			t.Status = a2a.TaskStatus{
				State:     a2a.TaskStateCanceled,
				Timestamp: b.clock.Now(),
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return b.store.Get(req.ID)
}
