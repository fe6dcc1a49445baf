package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dusk-indust/paycheck/internal/a2a"
)

// RemoteStage runs a stage on an A2A worker. The input travels as a JSON
// data part and the output comes back as the completed task's first data
// artifact.
type RemoteStage struct {
	// Name is the stage name the worker serves.
	Name string

	// Endpoint is the worker's JSON-RPC URL.
	Endpoint string

	Client a2a.Client
}

// Compile-time interface checks.
var (
	_ Stage     = (*RemoteStage)(nil)
	_ Announcer = (*RemoteStage)(nil)
)

// Announce names the worker the stage is sent to.
func (r *RemoteStage) Announce(StageInput) string {
	return fmt.Sprintf("%s dispatched to %s", r.Name, r.Endpoint)
}

// Execute sends in to the worker and waits for the task to finish.
func (r *RemoteStage) Execute(ctx context.Context, in StageInput) (*StageOutput, error) {
	msg, err := EncodeStageInput(r.Name, in)
	if err != nil {
		return nil, err
	}

	task, err := r.Client.SendMessage(ctx, r.Endpoint, a2a.SendMessageRequest{
		Message:       msg,
		Configuration: &a2a.SendMessageConfig{Blocking: true},
	})
	if err != nil {
		return nil, fmt.Errorf("remote %s: %w", r.Name, err)
	}

	switch task.Status.State {
	case a2a.TaskStateCompleted:
		return DecodeStageOutput(task)
	case a2a.TaskStateFailed, a2a.TaskStateCanceled:
		reason := string(task.Status.State)
		if task.Status.Message != nil {
			if text := task.Status.Message.Text(); text != "" {
				reason = text
			}
		}
		return nil, fmt.Errorf("remote %s: task %s: %s", r.Name, task.ID, reason)
	default:
		return nil, fmt.Errorf("remote %s: task %s returned in state %q", r.Name, task.ID, task.Status.State)
	}
}

type stageMetadata struct {
	Stage string `json:"stage"`
}

// EncodeStageInput builds the message that asks a worker to run stage.
func EncodeStageInput(stage string, in StageInput) (a2a.Message, error) {
	part, err := a2a.DataPart(in)
	if err != nil {
		return a2a.Message{}, fmt.Errorf("remote %s: encode input: %w", stage, err)
	}
	meta, err := json.Marshal(stageMetadata{Stage: stage})
	if err != nil {
		return a2a.Message{}, err
	}
	return a2a.Message{
		MessageID: uuid.NewString(),
		Role:      a2a.RoleUser,
		Parts:     []a2a.Part{part},
		Metadata:  meta,
	}, nil
}

// DecodeStageInput is the worker side of EncodeStageInput. It returns the
// requested stage name and the input.
func DecodeStageInput(msg a2a.Message) (string, StageInput, error) {
	var meta stageMetadata
	if len(msg.Metadata) > 0 {
		if err := json.Unmarshal(msg.Metadata, &meta); err != nil {
			return "", StageInput{}, fmt.Errorf("decode stage metadata: %w", err)
		}
	}
	for _, p := range msg.Parts {
		if len(p.Data) == 0 {
			continue
		}
		var in StageInput
		if err := json.Unmarshal(p.Data, &in); err != nil {
			return "", StageInput{}, fmt.Errorf("decode stage input: %w", err)
		}
		return meta.Stage, in, nil
	}
	return "", StageInput{}, fmt.Errorf("decode stage input: message has no data part")
}

// EncodeStageOutput wraps out as a task artifact.
func EncodeStageOutput(stage string, out *StageOutput) (a2a.Artifact, error) {
	part, err := a2a.DataPart(out)
	if err != nil {
		return a2a.Artifact{}, fmt.Errorf("encode %s output: %w", stage, err)
	}
	return a2a.Artifact{
		ArtifactID: uuid.NewString(),
		Name:       stage,
		Parts:      []a2a.Part{part},
	}, nil
}

// DecodeStageOutput reads the first data artifact of a completed task.
func DecodeStageOutput(task *a2a.Task) (*StageOutput, error) {
	for _, a := range task.Artifacts {
		for _, p := range a.Parts {
			if len(p.Data) == 0 {
				continue
			}
			var out StageOutput
			if err := json.Unmarshal(p.Data, &out); err != nil {
				return nil, fmt.Errorf("decode task %s output: %w", task.ID, err)
			}
			return &out, nil
		}
	}
	return nil, fmt.Errorf("task %s: %w", task.ID, ErrNoOutput)
}
