package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/paycheck/internal/intake"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
)

func detailsPayload() DetailsPayload {
	return DetailsPayload{Details: intake.Details{
		Organisation:  intake.Organisation{Type: "retail", Name: "Harbourside Grocers Pty Ltd"},
		Employment:    intake.Employment{Type: "casual", Role: "Customer service assistant", Classification: "Level 2"},
		Jurisdiction:  "NSW",
		PublicHoliday: false,
		Period:        intake.Period{Start: intake.MustDate("2025-08-01"), End: intake.MustDate("2025-08-14")},
	}}
}

func documentsPayload() DocumentsPayload {
	return DocumentsPayload{Documents: intake.Documents{
		Contract:  "doc-contract-0801",
		Worksheet: "doc-worksheet-0801",
		Payslip:   "doc-payslip-0814",
	}}
}

func reviewPayload() ReviewPayload {
	return ReviewPayload{Review: intake.Review{Fields: []intake.FieldReview{
		{Field: intake.FieldGrossPay, Extracted: "540.00", Decision: intake.DecisionAccepted},
		{Field: intake.FieldOrdinaryHours, Extracted: "24", Decision: intake.DecisionAccepted},
	}}}
}

// fakePipeline is a hand-written Orchestrator that returns a canned run.
type fakePipeline struct {
	mu      sync.Mutex
	starts  int
	cancels int
	stops   int
	snap    intake.Snapshot
	run     *orchestrator.Run
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakePipeline) Start(_ context.Context, snap intake.Snapshot) (*orchestrator.Run, error) {
	f.mu.Lock()
	f.starts++
	f.snap = snap
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.run.Clone(), f.err
}

func (f *fakePipeline) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakePipeline) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakePipeline) Run() *orchestrator.Run {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.run.Clone()
}

func (f *fakePipeline) Subscribe() <-chan orchestrator.LogEntry { return nil }

func (f *fakePipeline) counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

func completedRun() *orchestrator.Run {
	return &orchestrator.Run{
		ID:     "run-1",
		Status: orchestrator.RunCompleted,
		Stages: []string{"detector"},
		Result: &orchestrator.Result{
			Status:       orchestrator.StatusUnderpaid,
			Paid:         decimal.RequireFromString("540.00"),
			Entitled:     decimal.RequireFromString("612.00"),
			Difference:   decimal.RequireFromString("-72.00"),
			AnomalyScore: 86,
			Confidence:   0.86,
		},
	}
}

// toChecks advances a fresh session to the checks step.
func toChecks(t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.Advance(detailsPayload()))
	require.NoError(t, c.Advance(documentsPayload()))
	require.NoError(t, c.Advance(reviewPayload()))
	require.Equal(t, StepChecks, c.Snapshot().Step)
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		current, position, total int
		want                     StepState
	}{
		{1, 1, 5, StateCurrent},
		{1, 2, 5, StateUpcoming},
		{3, 1, 5, StateCompleted},
		{3, 3, 5, StateCurrent},
		{3, 5, 5, StateUpcoming},
		{5, 4, 5, StateCompleted},
		{5, 5, 5, StateCompleted},
		{1, 1, 1, StateCompleted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StateOf(tt.current, tt.position, tt.total), "current=%d position=%d total=%d", tt.current, tt.position, tt.total)
	}
}

func TestAdvance_IncrementsByOneUpToLastStep(t *testing.T) {
	f := &fakePipeline{run: completedRun()}
	c := NewController(f)
	assert.Equal(t, 1, c.Snapshot().Current)

	payloads := []Payload{detailsPayload(), documentsPayload(), reviewPayload()}
	for i, p := range payloads {
		require.NoError(t, c.Advance(p))
		assert.Equal(t, i+2, c.Snapshot().Current)
	}
	_, err := c.RunChecks(context.Background())
	require.NoError(t, err)

	err = c.Advance(reviewPayload())
	assert.ErrorIs(t, err, ErrTerminalStep)
	view := c.Snapshot()
	assert.Equal(t, 5, view.Current)
	assert.Equal(t, 5, view.Visited)
	for _, s := range view.Steps {
		assert.Equal(t, StateCompleted, s.State, s.Key)
	}
}

func TestAdvance_InvalidPayloadLeavesStateUnchanged(t *testing.T) {
	c := NewController(&fakePipeline{})
	require.NoError(t, c.Advance(detailsPayload()))
	before := c.Snapshot()

	docs := documentsPayload()
	docs.Documents.Payslip = ""
	err := c.Advance(docs)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StepDocuments, verr.Step)
	var ierr *intake.ValidationError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "documents.payslip", ierr.Field)

	assert.Equal(t, before, c.Snapshot())
}

func TestAdvance_RejectsPayloadForAnotherStep(t *testing.T) {
	c := NewController(&fakePipeline{})
	assert.ErrorIs(t, c.Advance(documentsPayload()), ErrStepMismatch)
	assert.ErrorIs(t, c.Advance(nil), ErrStepMismatch)
	assert.Equal(t, 1, c.Snapshot().Current)
}

func TestAdvance_RejectsChecksPayload(t *testing.T) {
	f := &fakePipeline{run: completedRun()}
	c := NewController(f)
	toChecks(t, c)

	err := c.Advance(ChecksPayload{Run: completedRun()})
	assert.ErrorIs(t, err, ErrStepMismatch)

	view := c.Snapshot()
	assert.Equal(t, StepChecks, view.Step)
	assert.Nil(t, view.Data.Checks)
	starts, _ := f.counts()
	assert.Equal(t, 0, starts)
}

func TestRetreat(t *testing.T) {
	c := NewController(&fakePipeline{})
	assert.False(t, c.Retreat())
	assert.Equal(t, 1, c.Snapshot().Current)

	require.NoError(t, c.Advance(detailsPayload()))
	require.NoError(t, c.Advance(documentsPayload()))
	assert.True(t, c.Retreat())

	view := c.Snapshot()
	assert.Equal(t, 2, view.Current)
	assert.Equal(t, 3, view.Visited)
	assert.NotNil(t, view.Data.Documents, "retreat keeps data")
}

func TestJumpTo(t *testing.T) {
	for k := -1; k <= 6; k++ {
		c := NewController(&fakePipeline{})
		toChecks(t, c)

		err := c.JumpTo(k)
		if k >= 1 && k < 4 {
			require.NoError(t, err, "k=%d", k)
			assert.Equal(t, k, c.Snapshot().Current)
		} else {
			require.ErrorIs(t, err, ErrInvalidJump, "k=%d", k)
			assert.Equal(t, 4, c.Snapshot().Current)
		}
	}
}

func TestReAdvanceOverwritesOnlyOwnedSection(t *testing.T) {
	c := NewController(&fakePipeline{})
	toChecks(t, c)
	before := c.Snapshot()

	require.NoError(t, c.JumpTo(1))
	changed := detailsPayload()
	changed.Details.Employment.Classification = "Level 3"
	require.NoError(t, c.Advance(changed))

	after := c.Snapshot()
	assert.Equal(t, 2, after.Current)
	assert.Equal(t, "Level 3", after.Data.Details.Employment.Classification)
	assert.Equal(t, before.Data.Documents, after.Data.Documents)
	assert.Equal(t, before.Data.Review, after.Data.Review)
	assert.Equal(t, "Level 2", before.Data.Details.Employment.Classification, "earlier views never change")
}

func TestRunChecks_CompletedRunAdvancesToResults(t *testing.T) {
	f := &fakePipeline{run: completedRun()}
	c := NewController(f)
	toChecks(t, c)

	run, err := c.RunChecks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, orchestrator.RunCompleted, run.Status)

	view := c.Snapshot()
	assert.Equal(t, StepResults, view.Step)
	require.NotNil(t, view.Data.Checks)
	assert.Equal(t, orchestrator.StatusUnderpaid, view.Data.Checks.Result.Status)

	assert.Equal(t, "doc-payslip-0814", f.snap.Documents.Payslip)
	assert.Equal(t, "540.00", f.snap.Fields[intake.FieldGrossPay])
	assert.Equal(t, 1.0, f.snap.Coverage)
}

func TestRunChecks_OnlyOnChecksStep(t *testing.T) {
	f := &fakePipeline{run: completedRun()}
	c := NewController(f)
	require.NoError(t, c.Advance(detailsPayload()))

	_, err := c.RunChecks(context.Background())
	assert.ErrorIs(t, err, ErrStepMismatch)
	starts, _ := f.counts()
	assert.Zero(t, starts)
}

func TestRunChecks_FailedRunStaysOnChecks(t *testing.T) {
	failed := &orchestrator.Run{ID: "run-2", Status: orchestrator.RunFailed, FailedStage: "payslip-reader", Err: "unreadable"}
	f := &fakePipeline{run: failed, err: &orchestrator.StageError{Stage: "payslip-reader", Err: errors.New("unreadable")}}
	c := NewController(f)
	toChecks(t, c)

	run, err := c.RunChecks(context.Background())
	var stageErr *orchestrator.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "payslip-reader", run.FailedStage)

	view := c.Snapshot()
	assert.Equal(t, StepChecks, view.Step)
	require.NotNil(t, view.Data.Checks)
	assert.Equal(t, orchestrator.RunFailed, view.Data.Checks.Run.Status)
	assert.Nil(t, view.Data.Checks.Result)
}

func TestCancel(t *testing.T) {
	f := &fakePipeline{run: completedRun()}
	c := NewController(f)
	require.NoError(t, c.Advance(detailsPayload()))

	c.Cancel()
	c.Cancel()

	assert.True(t, c.Closed())
	assert.Equal(t, Data{}, c.Snapshot().Data)
	assert.ErrorIs(t, c.Advance(documentsPayload()), ErrSessionClosed)
	assert.ErrorIs(t, c.JumpTo(1), ErrSessionClosed)
	assert.False(t, c.Retreat())
	_, err := c.RunChecks(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, stops := f.counts()
	assert.Equal(t, 1, stops)
}

func TestCancel_DuringRun(t *testing.T) {
	f := &fakePipeline{
		run:     &orchestrator.Run{ID: "run-3", Status: orchestrator.RunAborted},
		err:     orchestrator.ErrAborted,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := NewController(f)
	toChecks(t, c)

	type result struct {
		run *orchestrator.Run
		err error
	}
	done := make(chan result, 1)
	go func() {
		run, err := c.RunChecks(context.Background())
		done <- result{run, err}
	}()

	<-f.started
	assert.ErrorIs(t, c.Advance(reviewPayload()), ErrRunInProgress)
	assert.ErrorIs(t, c.JumpTo(1), ErrRunInProgress)
	assert.True(t, c.Snapshot().Running)

	c.Cancel()
	close(f.release)

	select {
	case r := <-done:
		assert.ErrorIs(t, r.err, ErrSessionClosed)
		assert.Equal(t, orchestrator.RunAborted, r.run.Status)
	case <-time.After(time.Second):
		t.Fatal("RunChecks did not return")
	}
	_, stops := f.counts()
	assert.Equal(t, 1, stops)
}

// cancelOnStart cancels its session at the last moment before the real
// pipeline starts, after RunChecks has released the controller lock.
type cancelOnStart struct {
	*orchestrator.Pipeline
	session *Controller
}

func (o *cancelOnStart) Start(ctx context.Context, snap intake.Snapshot) (*orchestrator.Run, error) {
	o.session.Cancel()
	return o.Pipeline.Start(ctx, snap)
}

func TestCancel_BeforePipelineStarts(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	stage := orchestrator.StageFunc(func(context.Context, orchestrator.StageInput) (*orchestrator.StageOutput, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return &orchestrator.StageOutput{Summary: "done"}, nil
	})
	def, err := orchestrator.NewDefinition([]orchestrator.StageDescriptor{
		{Name: "first", Stage: stage},
		{Name: "second", Stage: stage},
		{Name: "third", Stage: stage},
	}, orchestrator.DefaultConfig())
	require.NoError(t, err)
	p := orchestrator.NewPipeline(def)
	defer p.Close()

	wrapped := &cancelOnStart{Pipeline: p}
	c := NewController(wrapped)
	wrapped.session = c
	toChecks(t, c)

	run, err := c.RunChecks(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Nil(t, run)
	assert.Nil(t, p.Run(), "no run was recorded")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, calls, "no stage runs after the session is cancelled")
}

func TestRunChecks_ReplaysWithRealPipeline(t *testing.T) {
	var calls int
	stage := orchestrator.StageFunc(func(_ context.Context, in orchestrator.StageInput) (*orchestrator.StageOutput, error) {
		calls++
		paid, err := in.Snapshot.Decimal(intake.FieldGrossPay)
		if err != nil {
			return nil, err
		}
		return &orchestrator.StageOutput{Patch: orchestrator.Findings{
			Paid:         &paid,
			Entitled:     &paid,
			AnomalyScore: orchestrator.Ptr(0),
			Confidence:   orchestrator.Ptr(1.0),
		}}, nil
	})
	def, err := orchestrator.NewDefinition([]orchestrator.StageDescriptor{{
		Name:  "all",
		Owns:  []orchestrator.Field{orchestrator.FieldPaid, orchestrator.FieldEntitled, orchestrator.FieldAnomalyScore, orchestrator.FieldConfidence},
		Stage: stage,
	}}, orchestrator.DefaultConfig())
	require.NoError(t, err)
	p := orchestrator.NewPipeline(def)
	defer p.Close()

	c := NewController(p)
	toChecks(t, c)

	first, err := c.RunChecks(context.Background())
	require.NoError(t, err)
	require.True(t, c.Retreat())

	second, err := c.RunChecks(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first.Log, second.Log)
	assert.Equal(t, first.Result, second.Result)
	assert.Equal(t, StepResults, c.Snapshot().Step)
}

func TestRunChecks_ReplayKeepsFiguresAfterEdit(t *testing.T) {
	calls := 0
	stage := orchestrator.StageFunc(func(_ context.Context, in orchestrator.StageInput) (*orchestrator.StageOutput, error) {
		calls++
		paid, err := in.Snapshot.Decimal(intake.FieldGrossPay)
		if err != nil {
			return nil, err
		}
		return &orchestrator.StageOutput{Patch: orchestrator.Findings{
			Paid:         &paid,
			Entitled:     &paid,
			AnomalyScore: orchestrator.Ptr(0),
			Confidence:   orchestrator.Ptr(1.0),
		}}, nil
	})
	def, err := orchestrator.NewDefinition([]orchestrator.StageDescriptor{{
		Name:  "all",
		Owns:  []orchestrator.Field{orchestrator.FieldPaid, orchestrator.FieldEntitled, orchestrator.FieldAnomalyScore, orchestrator.FieldConfidence},
		Stage: stage,
	}}, orchestrator.DefaultConfig())
	require.NoError(t, err)
	p := orchestrator.NewPipeline(def)
	defer p.Close()

	c := NewController(p)
	toChecks(t, c)
	first, err := c.RunChecks(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.JumpTo(3))
	edited := reviewPayload()
	edited.Review.Fields[0].Extracted = "600.00"
	require.NoError(t, c.Advance(edited))

	second, err := c.RunChecks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first.ID, second.ID)

	view := c.Snapshot()
	assert.Equal(t, "600.00", view.Data.Review.Fields[0].Extracted)
	assert.Equal(t, "540.00", view.Data.Checks.Result.Paid.StringFixed(2), "the replayed run keeps its own figures")
}

func TestWithSteps_CustomFlow(t *testing.T) {
	c := NewController(&fakePipeline{}, WithSteps([]Step{
		{Key: StepDetails, Title: "Details"},
		{Key: StepResults, Title: "Done"},
	}))
	require.NoError(t, c.Advance(detailsPayload()))
	assert.ErrorIs(t, c.Advance(detailsPayload()), ErrTerminalStep)
	assert.Equal(t, []StepView{
		{Index: 1, Key: StepDetails, Title: "Details", State: StateCompleted},
		{Index: 2, Key: StepResults, Title: "Done", State: StateCompleted},
	}, c.Steps())
}
