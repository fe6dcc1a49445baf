package agent

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/paycheck/internal/a2a"
	"github.com/dusk-indust/paycheck/internal/config"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
)

func TestBaseAgent_Lifecycle(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC))
	var seen *a2a.Task
	b := NewBaseAgent(a2a.AgentCard{Name: "echo"}, func(_ context.Context, task *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error) {
		seen = task
		if msg.Text() == "boom" {
			return nil, errors.New("stage exploded")
		}
		return []a2a.Artifact{{ArtifactID: "a1", Parts: []a2a.Part{a2a.TextPart(msg.Text())}}}, nil
	}, WithAgentClock(clock))

	ctx := context.Background()
	msg := a2a.Message{Role: a2a.RoleUser, Parts: []a2a.Part{a2a.TextPart("hello")}}
	task, err := b.HandleSendMessage(ctx, a2a.SendMessageRequest{Message: msg})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	assert.Equal(t, clock.Now(), task.Status.Timestamp)
	require.Len(t, task.Artifacts, 1)
	assert.Len(t, task.History, 1)
	require.NotNil(t, seen)
	assert.Equal(t, task.ID, seen.ID)

	got, err := b.HandleGetTask(ctx, a2a.GetTaskRequest{ID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	// A terminal task stays as it is.
	cancelled, err := b.HandleCancelTask(ctx, a2a.CancelTaskRequest{ID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, cancelled.Status.State)

	failed, err := b.HandleSendMessage(ctx, a2a.SendMessageRequest{
		Message: a2a.Message{Role: a2a.RoleUser, Parts: []a2a.Part{a2a.TextPart("boom")}},
	})
	require.NoError(t, err, "failed tasks are returned, not raised")
	assert.Equal(t, a2a.TaskStateFailed, failed.Status.State)
	require.NotNil(t, failed.Status.Message)
	assert.Equal(t, "stage exploded", failed.Status.Message.Text())

	list, err := b.HandleListTasks(ctx, a2a.ListTasksRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Tasks, 2)

	_, err = b.HandleGetTask(ctx, a2a.GetTaskRequest{ID: "missing"})
	assert.Error(t, err)
}

func TestBaseAgent_StartServesCard(t *testing.T) {
	w := NewWorker(StageDetector, "Underpayment detector", detector{cfg: config.Default()})
	ctx := context.Background()
	addr, err := w.Start(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = w.Stop(ctx) }()

	card, err := a2a.NewHTTPClient().DiscoverAgent(ctx, "http://"+addr.String())
	require.NoError(t, err)
	assert.Equal(t, "paycheck-detector", card.Name)
	require.Len(t, card.Skills, 1)
	assert.Equal(t, StageDetector, card.Skills[0].ID)
}

func newWorkerServer(t *testing.T, name string) string {
	t.Helper()
	spec, ok := NewRegistry().Lookup(name)
	require.True(t, ok)
	w := NewWorker(spec.Name, spec.Title, spec.New(config.Default()))
	ts := httptest.NewServer(w.Server().Routes())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestWorker_RunsStageRemotely(t *testing.T) {
	url := newWorkerServer(t, StageDetector)
	remote := &orchestrator.RemoteStage{Name: StageDetector, Endpoint: url, Client: a2a.NewHTTPClient()}

	out, err := remote.Execute(context.Background(), orchestrator.StageInput{Findings: orchestrator.Findings{
		Paid: dec("540.00"), Entitled: dec("612.00"),
	}})
	require.NoError(t, err)
	assert.Equal(t, "Underpayment of $72.00 detected", out.Summary)
	assert.Equal(t, "-72.00", out.Patch.Difference.StringFixed(2))
}

func TestWorker_StageErrorFailsTask(t *testing.T) {
	url := newWorkerServer(t, StageDetector)
	remote := &orchestrator.RemoteStage{Name: StageDetector, Endpoint: url, Client: a2a.NewHTTPClient()}

	_, err := remote.Execute(context.Background(), orchestrator.StageInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finding paid not available")
}

func TestWorker_RejectsOtherStage(t *testing.T) {
	url := newWorkerServer(t, StageDetector)
	msg, err := orchestrator.EncodeStageInput(StageAnomalyScorer, orchestrator.StageInput{})
	require.NoError(t, err)

	task, err := a2a.NewHTTPClient().SendMessage(context.Background(), url, a2a.SendMessageRequest{Message: msg})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateFailed, task.Status.State)
	require.NotNil(t, task.Status.Message)
	assert.Equal(t, "worker serves detector, not anomaly-scorer", task.Status.Message.Text())
}

func TestReferenceScenario_WithRemoteStages(t *testing.T) {
	cfg := config.Default()
	cfg.RemoteStages = map[string]string{
		StageDetector:      newWorkerServer(t, StageDetector),
		StageAnomalyScorer: newWorkerServer(t, StageAnomalyScorer),
	}

	def, err := ReferenceDefinition(cfg, a2a.NewHTTPClient())
	require.NoError(t, err)
	p := orchestrator.NewPipeline(def, orchestrator.WithLogger(quietLogger()))
	defer p.Close()

	run, err := p.Start(context.Background(), fixtureSnapshot(t, "reference.yaml"))
	require.NoError(t, err)
	require.Equal(t, orchestrator.RunCompleted, run.Status)
	assert.Equal(t, "-72.00", run.Result.Difference.StringFixed(2))
	assert.Equal(t, 86, run.Result.AnomalyScore)
	assert.Equal(t, orchestrator.StatusUnderpaid, run.Result.Status)
	assert.Len(t, run.Log, 31)

	var dispatched []string
	for _, e := range run.Log {
		if e.Kind == orchestrator.LogStart && e.Message == e.Stage+" dispatched to "+cfg.RemoteStages[e.Stage] {
			dispatched = append(dispatched, e.Stage)
		}
	}
	assert.Equal(t, []string{StageDetector, StageAnomalyScorer}, dispatched)
}
