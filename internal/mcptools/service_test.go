package mcptools

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/paycheck/internal/agent"
	"github.com/dusk-indust/paycheck/internal/config"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
	"github.com/dusk-indust/paycheck/internal/wizard"
)

func newTestService(t *testing.T) *WizardService {
	t.Helper()
	cfg := config.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := agent.NewRegistry()
	factory, err := registry.PipelineFactory(cfg, nil, orchestrator.WithLogger(logger))
	require.NoError(t, err)
	manager := wizard.NewManager(factory, wizard.WithManagerLogger(logger))
	t.Cleanup(manager.CloseAll)
	return NewWizardService(manager, registry, cfg)
}

func referenceDetails(id string) SubmitDetailsInput {
	return SubmitDetailsInput{
		SessionID:        id,
		OrganisationType: "retail",
		OrganisationName: "Harbourside Grocers Pty Ltd",
		EmploymentType:   "casual",
		Role:             "Customer service assistant",
		Classification:   "Level 2",
		Jurisdiction:     "NSW",
		PeriodStart:      "2025-08-01",
		PeriodEnd:        "2025-08-14",
	}
}

func referenceDocuments(id string) SubmitDocumentsInput {
	return SubmitDocumentsInput{
		SessionID: id,
		Contract:  "doc-contract-0801",
		Worksheet: "doc-worksheet-0801",
		Payslip:   "doc-payslip-0814",
	}
}

func referenceReview(id, grossPay string) SubmitReviewInput {
	return SubmitReviewInput{SessionID: id, Fields: []ReviewFieldInput{
		{Field: "gross_pay", Extracted: grossPay, Decision: "accepted"},
		{Field: "ordinary_hours", Extracted: "24", Decision: "accepted"},
	}}
}

// openAtChecks drives a new session through the three intake steps.
func openAtChecks(t *testing.T, svc *WizardService, grossPay string) string {
	t.Helper()
	ctx := context.Background()
	_, out, err := svc.OpenSession(ctx, nil, OpenSessionInput{})
	require.NoError(t, err)
	id := out.SessionID

	_, _, err = svc.SubmitDetails(ctx, nil, referenceDetails(id))
	require.NoError(t, err)
	_, _, err = svc.SubmitDocuments(ctx, nil, referenceDocuments(id))
	require.NoError(t, err)
	_, out, err = svc.SubmitReview(ctx, nil, referenceReview(id, grossPay))
	require.NoError(t, err)
	require.Equal(t, "checks", out.Step)
	return id
}

func TestWizardService_OpenSession(t *testing.T) {
	svc := newTestService(t)
	_, out, err := svc.OpenSession(context.Background(), nil, OpenSessionInput{})
	require.NoError(t, err)

	assert.NotEmpty(t, out.SessionID)
	assert.Equal(t, 1, out.Current)
	assert.Equal(t, 5, out.Total)
	assert.Equal(t, "details", out.Step)
	require.Len(t, out.Steps, 5)
	assert.Equal(t, "current", out.Steps[0].State)
	assert.Equal(t, "upcoming", out.Steps[4].State)
	assert.Nil(t, out.Run)
}

func TestWizardService_ReferenceFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := openAtChecks(t, svc, "540.00")

	_, out, err := svc.RunChecks(ctx, nil, SessionInput{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, "results", out.Step)
	assert.Empty(t, out.Message)
	require.NotNil(t, out.Run)
	assert.Equal(t, "completed", out.Run.Status)
	assert.Len(t, out.Run.Log, 21)
	require.NotNil(t, out.Run.Result)
	assert.Equal(t, "underpaid", out.Run.Result.Status)
	assert.Equal(t, "612.00", out.Run.Result.Entitled)
	assert.Equal(t, "-72.00", out.Run.Result.Difference)
	assert.Equal(t, 86, out.Run.Result.AnomalyScore)
	assert.Equal(t, "completed", out.Steps[4].State, "terminal step shows as completed")
	firstRun := out.Run.ID

	// Checks only run on the checks step.
	_, _, err = svc.RunChecks(ctx, nil, SessionInput{SessionID: id})
	assert.ErrorIs(t, err, wizard.ErrStepMismatch)

	// Going back and running again replays the completed run.
	_, out, err = svc.JumpToStep(ctx, nil, JumpToStepInput{SessionID: id, Step: 4})
	require.NoError(t, err)
	assert.Equal(t, "checks", out.Step)
	_, out, err = svc.RunChecks(ctx, nil, SessionInput{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, firstRun, out.Run.ID)

	_, out, err = svc.GetSession(ctx, nil, SessionInput{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, firstRun, out.Run.ID)
}

func TestWizardService_FailedRunStaysOnChecks(t *testing.T) {
	svc := newTestService(t)
	id := openAtChecks(t, svc, "-5")

	_, out, err := svc.RunChecks(context.Background(), nil, SessionInput{SessionID: id})
	require.NoError(t, err, "a failed run is reported, not raised")
	assert.Equal(t, "checks", out.Step)
	require.NotNil(t, out.Run)
	assert.Equal(t, "failed", out.Run.Status)
	assert.Equal(t, agent.StagePayslipReader, out.Run.FailedStage)
	assert.Contains(t, out.Message, "payslip-reader")
	assert.Nil(t, out.Run.Result)
	last := out.Run.Log[len(out.Run.Log)-1]
	assert.True(t, last.Failed)
	assert.Empty(t, last.Stage)
}

func TestWizardService_ValidationErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, out, err := svc.OpenSession(ctx, nil, OpenSessionInput{})
	require.NoError(t, err)
	id := out.SessionID

	_, _, err = svc.SubmitDocuments(ctx, nil, referenceDocuments(id))
	assert.ErrorIs(t, err, wizard.ErrStepMismatch)

	bad := referenceDetails(id)
	bad.PeriodEnd = "14/08/2025"
	_, _, err = svc.SubmitDetails(ctx, nil, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "periodEnd")

	bad = referenceDetails(id)
	bad.PeriodEnd = "2025-07-01"
	_, _, err = svc.SubmitDetails(ctx, nil, bad)
	var ve *wizard.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, wizard.StepDetails, ve.Step)

	_, out, err = svc.GetSession(ctx, nil, SessionInput{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Current, "rejected payloads leave the session unchanged")

	_, _, err = svc.SubmitDetails(ctx, nil, referenceDetails(id))
	require.NoError(t, err)
	docs := referenceDocuments(id)
	docs.Payslip = ""
	_, _, err = svc.SubmitDocuments(ctx, nil, docs)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "documents.payslip")

	_, _, err = svc.JumpToStep(ctx, nil, JumpToStepInput{SessionID: id, Step: 3})
	assert.ErrorIs(t, err, wizard.ErrInvalidJump)
}

func TestWizardService_GoBack(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, out, err := svc.OpenSession(ctx, nil, OpenSessionInput{})
	require.NoError(t, err)
	id := out.SessionID

	_, out, err = svc.GoBack(ctx, nil, SessionInput{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Current)
	assert.Equal(t, "already on the first step", out.Message)

	_, _, err = svc.SubmitDetails(ctx, nil, referenceDetails(id))
	require.NoError(t, err)
	_, out, err = svc.GoBack(ctx, nil, SessionInput{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Current)
	assert.Empty(t, out.Message)
}

func TestWizardService_CancelSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := openAtChecks(t, svc, "540.00")

	_, out, err := svc.CancelSession(ctx, nil, SessionInput{SessionID: id})
	require.NoError(t, err)
	assert.True(t, out.Closed)
	assert.Nil(t, out.Run)

	_, _, err = svc.GetSession(ctx, nil, SessionInput{SessionID: id})
	assert.ErrorIs(t, err, wizard.ErrSessionNotFound)
	_, _, err = svc.CancelSession(ctx, nil, SessionInput{SessionID: id})
	assert.ErrorIs(t, err, wizard.ErrSessionNotFound)
}

func TestWizardService_ListStages(t *testing.T) {
	svc := newTestService(t)
	svc.cfg.RemoteStages = map[string]string{agent.StageDetector: "http://127.0.0.1:9201"}

	_, out, err := svc.ListStages(context.Background(), nil, ListStagesInput{})
	require.NoError(t, err)
	require.Len(t, out.Stages, 10)
	assert.Equal(t, agent.StageDocumentIntake, out.Stages[0].Name)
	assert.Empty(t, out.Stages[0].Owns)

	det := out.Stages[7]
	assert.Equal(t, 8, det.Index)
	assert.Equal(t, agent.StageDetector, det.Name)
	assert.Equal(t, []string{"difference"}, det.Owns)
	assert.Equal(t, "http://127.0.0.1:9201", det.Remote)
}
