package a2a

import "context"

// Client sends work to remote workers.
type Client interface {
	// SendMessage submits a message. With Blocking set the returned task is
	// already terminal.
	SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error)

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, endpoint string, req GetTaskRequest) (*Task, error)

	// ListTasks pages through a worker's tasks.
	ListTasks(ctx context.Context, endpoint string, req ListTasksRequest) (*ListTasksResponse, error)

	// CancelTask cancels a task that is not yet terminal.
	CancelTask(ctx context.Context, endpoint string, req CancelTaskRequest) (*Task, error)

	// DiscoverAgent fetches a worker's card.
	DiscoverAgent(ctx context.Context, baseURL string) (*AgentCard, error)
}
