package a2a

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// ErrTaskNotFound is returned for an unknown task ID.
var ErrTaskNotFound = errors.New("a2a: task not found")

// NewTaskID returns a random task identifier.
func NewTaskID() string {
	return uuid.NewString()
}

// TaskStore keeps a worker's tasks in memory, in insertion order.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order []string
}

// NewTaskStore returns an empty store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]*Task)}
}

// Create stores a new task. Duplicate IDs are rejected.
func (s *TaskStore) Create(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("a2a: task %q already exists", task.ID)
	}
	s.tasks[task.ID] = cloneTask(&task)
	s.order = append(s.order, task.ID)
	return nil
}

// Get returns a copy of the task.
func (s *TaskStore) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	return cloneTask(t), nil
}

// Update applies fn to the stored task under the write lock.
func (s *TaskStore) Update(id string, fn func(*Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	fn(t)
	return nil
}

// List returns matching tasks. PageToken is the ID of the last task of the
// previous page; PageSize <= 0 returns everything after it.
func (s *TaskStore) List(req ListTasksRequest) (*ListTasksResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if req.PageToken != "" {
		idx := slices.Index(s.order, req.PageToken)
		if idx < 0 {
			return nil, fmt.Errorf("a2a: invalid page token %q", req.PageToken)
		}
		start = idx + 1
	}

	resp := &ListTasksResponse{Tasks: []Task{}}
	for i, id := range s.order {
		t := s.tasks[id]
		if !matches(t, req) {
			continue
		}
		resp.TotalSize++
		if i < start {
			continue
		}
		if req.PageSize > 0 && len(resp.Tasks) == req.PageSize {
			if resp.NextPageToken == "" {
				resp.NextPageToken = resp.Tasks[len(resp.Tasks)-1].ID
			}
			continue
		}
		resp.Tasks = append(resp.Tasks, *cloneTask(t))
	}
	return resp, nil
}

func matches(t *Task, req ListTasksRequest) bool {
	if req.ContextID != "" && t.ContextID != req.ContextID {
		return false
	}
	if req.Status != "" && string(t.Status.State) != req.Status {
		return false
	}
	return true
}

func cloneTask(src *Task) *Task {
	dst := *src
	dst.Artifacts = slices.Clone(src.Artifacts)
	for i := range dst.Artifacts {
		dst.Artifacts[i].Parts = clonePart(dst.Artifacts[i].Parts)
	}
	dst.History = slices.Clone(src.History)
	for i := range dst.History {
		dst.History[i].Parts = clonePart(dst.History[i].Parts)
	}
	if src.Status.Message != nil {
		m := *src.Status.Message
		m.Parts = clonePart(m.Parts)
		dst.Status.Message = &m
	}
	dst.Metadata = slices.Clone(src.Metadata)
	return &dst
}

func clonePart(parts []Part) []Part {
	out := slices.Clone(parts)
	for i := range out {
		out[i].Data = slices.Clone(out[i].Data)
	}
	return out
}
