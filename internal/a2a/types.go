// Package a2a is a small agent-to-agent transport: JSON-RPC 2.0 over HTTP
// carrying tasks, messages and artifacts. The check pipeline uses it to hand
// a stage to a remote worker and collect the worker's output.
package a2a

import (
	"encoding/json"
	"time"
)

// TaskState is the lifecycle state of a task on a worker.
type TaskState string

const (
	TaskStateUnspecified TaskState = ""
	TaskStateSubmitted   TaskState = "submitted"
	TaskStateWorking     TaskState = "working"
	TaskStateCompleted   TaskState = "completed"
	TaskStateFailed      TaskState = "failed"
	TaskStateCanceled    TaskState = "canceled"
)

// IsTerminal reports whether no further transitions can happen.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	}
	return false
}

// Role identifies who sent a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Task is one unit of work accepted by a worker.
type Task struct {
	ID        string          `json:"id"`
	ContextID string          `json:"contextId"`
	Status    TaskStatus      `json:"status"`
	Artifacts []Artifact      `json:"artifacts,omitempty"`
	History   []Message       `json:"history,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// TaskStatus is the current state and when it was entered.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message carries parts between caller and worker.
type Message struct {
	MessageID string          `json:"messageId"`
	ContextID string          `json:"contextId,omitempty"`
	TaskID    string          `json:"taskId,omitempty"`
	Role      Role            `json:"role"`
	Parts     []Part          `json:"parts"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Text concatenates the text parts of a message.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Text == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}

// Part is one piece of content. Exactly one of Text or Data is set.
type Part struct {
	Text      string          `json:"text,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	MediaType string          `json:"mediaType,omitempty"`
}

// TextPart creates a plain-text part.
func TextPart(text string) Part {
	return Part{Text: text, MediaType: "text/plain"}
}

// DataPart creates a part holding v encoded as JSON.
func DataPart(v any) (Part, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Part{}, err
	}
	return Part{Data: data, MediaType: "application/json"}, nil
}

// Artifact is an output a worker attaches to a completed task.
type Artifact struct {
	ArtifactID  string `json:"artifactId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parts       []Part `json:"parts"`
}

// AgentCard describes a worker and the stages it can run.
type AgentCard struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Version     string       `json:"version"`
	URL         string       `json:"url,omitempty"`
	Skills      []AgentSkill `json:"skills"`
}

// AgentSkill is one capability advertised on a card.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// SendMessageRequest starts a task on a worker.
type SendMessageRequest struct {
	Message       Message            `json:"message"`
	Configuration *SendMessageConfig `json:"configuration,omitempty"`
}

// SendMessageConfig controls how the worker answers.
type SendMessageConfig struct {
	Blocking bool `json:"blocking"`
}

// GetTaskRequest fetches a task by ID.
type GetTaskRequest struct {
	ID string `json:"id"`
}

// ListTasksRequest filters and pages through a worker's tasks.
type ListTasksRequest struct {
	ContextID string `json:"contextId,omitempty"`
	Status    string `json:"status,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

// ListTasksResponse is one page of tasks.
type ListTasksResponse struct {
	Tasks         []Task `json:"tasks"`
	TotalSize     int    `json:"totalSize"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// CancelTaskRequest asks a worker to cancel a task.
type CancelTaskRequest struct {
	ID string `json:"id"`
}
