package agent

import (
	"context"
	"fmt"

	"github.com/dusk-indust/paycheck/internal/a2a"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
)

// Worker serves one stage over A2A so a pipeline elsewhere can run it as an
// orchestrator.RemoteStage.
type Worker struct {
	*BaseAgent
	name  string
	stage orchestrator.Stage
}

// NewWorker wraps stage under name.
func NewWorker(name, title string, stage orchestrator.Stage, opts ...BaseOption) *Worker {
	w := &Worker{name: name, stage: stage}
	card := a2a.AgentCard{
		Name:        "paycheck-" + name,
		Description: fmt.Sprintf("Runs the %s check stage", name),
		Version:     "0.1.0",
		Skills: []a2a.AgentSkill{{
			ID:          name,
			Name:        title,
			Description: fmt.Sprintf("%s over a frozen intake snapshot", title),
			Tags:        []string{"paycheck", "stage"},
		}},
	}
	w.BaseAgent = NewBaseAgent(card, w.process, opts...)
	return w
}

// Name returns the stage this worker serves.
func (w *Worker) Name() string { return w.name }

func (w *Worker) process(ctx context.Context, _ *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error) {
	name, in, err := orchestrator.DecodeStageInput(msg)
	if err != nil {
		return nil, err
	}
	if name != "" && name != w.name {
		return nil, fmt.Errorf("worker serves %s, not %s", w.name, name)
	}

	out, err := w.stage.Execute(ctx, in)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, orchestrator.ErrNoOutput
	}
	artifact, err := orchestrator.EncodeStageOutput(w.name, out)
	if err != nil {
		return nil, err
	}
	return []a2a.Artifact{artifact}, nil
}
