package a2a

import (
	"context"
	"net/http"
)

// Handler processes the JSON-RPC methods a worker exposes.
type Handler interface {
	HandleSendMessage(ctx context.Context, req SendMessageRequest) (*Task, error)
	HandleGetTask(ctx context.Context, req GetTaskRequest) (*Task, error)
	HandleListTasks(ctx context.Context, req ListTasksRequest) (*ListTasksResponse, error)
	HandleCancelTask(ctx context.Context, req CancelTaskRequest) (*Task, error)
}

// Server exposes a Handler over HTTP.
type Server struct {
	card    AgentCard
	handler Handler
	http    *http.Server
}

// NewServer creates a server for handler, advertising card.
func NewServer(card AgentCard, handler Handler) *Server {
	return &Server{
		card:    card,
		handler: handler,
	}
}
