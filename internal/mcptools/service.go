package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/paycheck/internal/agent"
	"github.com/dusk-indust/paycheck/internal/config"
	"github.com/dusk-indust/paycheck/internal/intake"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
	"github.com/dusk-indust/paycheck/internal/wizard"
)

// WizardService handles MCP tool calls. Every session tool is a thin
// wrapper over one wizard.Controller operation; the controller enforces the
// step rules and this layer only translates between tool types and the
// wizard's.
type WizardService struct {
	manager  *wizard.Manager
	registry *agent.Registry
	cfg      *config.Config
}

// NewWizardService creates a WizardService over manager. registry and cfg
// describe the stages for list_stages.
func NewWizardService(manager *wizard.Manager, registry *agent.Registry, cfg *config.Config) *WizardService {
	return &WizardService{manager: manager, registry: registry, cfg: cfg}
}

// OpenSession starts a new wizard session on its first step.
func (s *WizardService) OpenSession(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ OpenSessionInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	c, err := s.manager.Open()
	if err != nil {
		return nil, SessionOutput{}, fmt.Errorf("open session: %w", err)
	}
	return nil, sessionOutput(c.Snapshot()), nil
}

// SubmitDetails completes the details step.
func (s *WizardService) SubmitDetails(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SubmitDetailsInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	var period intake.Period
	var err error
	if period.Start, err = parseDate("periodStart", input.PeriodStart); err != nil {
		return nil, SessionOutput{}, err
	}
	if period.End, err = parseDate("periodEnd", input.PeriodEnd); err != nil {
		return nil, SessionOutput{}, err
	}
	return s.advance(input.SessionID, wizard.DetailsPayload{Details: intake.Details{
		Organisation: intake.Organisation{Type: input.OrganisationType, Name: input.OrganisationName},
		Employment: intake.Employment{
			Type:           input.EmploymentType,
			Role:           input.Role,
			Classification: input.Classification,
		},
		Jurisdiction:  input.Jurisdiction,
		PublicHoliday: input.PublicHoliday,
		Period:        period,
	}})
}

func parseDate(field, s string) (intake.Date, error) {
	if s == "" {
		return intake.Date{}, nil
	}
	d, err := intake.ParseDate(s)
	if err != nil {
		return intake.Date{}, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// SubmitDocuments completes the documents step.
func (s *WizardService) SubmitDocuments(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SubmitDocumentsInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	return s.advance(input.SessionID, wizard.DocumentsPayload{Documents: intake.Documents{
		Contract:  input.Contract,
		Worksheet: input.Worksheet,
		Payslip:   input.Payslip,
	}})
}

// SubmitReview completes the review step.
func (s *WizardService) SubmitReview(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SubmitReviewInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	review := intake.Review{Fields: make([]intake.FieldReview, len(input.Fields))}
	for i, f := range input.Fields {
		review.Fields[i] = intake.FieldReview{
			Field:     f.Field,
			Extracted: f.Extracted,
			Decision:  intake.Decision(f.Decision),
			Corrected: f.Corrected,
		}
	}
	return s.advance(input.SessionID, wizard.ReviewPayload{Review: review})
}

func (s *WizardService) advance(id string, p wizard.Payload) (*mcp.CallToolResult, SessionOutput, error) {
	c, err := s.manager.Get(id)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	if err := c.Advance(p); err != nil {
		return nil, SessionOutput{}, err
	}
	return nil, sessionOutput(c.Snapshot()), nil
}

// GoBack moves the session one step back. On the first step it reports
// that nothing moved.
func (s *WizardService) GoBack(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	c, err := s.manager.Get(input.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	moved := c.Retreat()
	out := sessionOutput(c.Snapshot())
	if !moved {
		out.Message = "already on the first step"
	}
	return nil, out, nil
}

// JumpToStep moves the session back to an earlier step.
func (s *WizardService) JumpToStep(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input JumpToStepInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	c, err := s.manager.Get(input.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	if err := c.JumpTo(input.Step); err != nil {
		return nil, SessionOutput{}, err
	}
	return nil, sessionOutput(c.Snapshot()), nil
}

// RunChecks runs the check pipeline for a session on its checks step. A
// run that fails or is aborted is reported in the output rather than as a
// tool error, so the caller can show the log.
func (s *WizardService) RunChecks(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	c, err := s.manager.Get(input.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	run, err := c.RunChecks(ctx)
	if run == nil || errors.Is(err, wizard.ErrSessionClosed) {
		return nil, SessionOutput{}, err
	}
	out := sessionOutput(c.Snapshot())
	out.Run = runOutput(run)
	if err != nil {
		out.Message = err.Error()
	}
	return nil, out, nil
}

// GetSession reports where a session stands, including its last run.
func (s *WizardService) GetSession(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	c, err := s.manager.Get(input.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	return nil, sessionOutput(c.Snapshot()), nil
}

// CancelSession tears a session down and forgets it.
func (s *WizardService) CancelSession(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	c, err := s.manager.Get(input.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	if err := s.manager.Close(input.SessionID); err != nil {
		return nil, SessionOutput{}, err
	}
	out := sessionOutput(c.Snapshot())
	out.Message = "session cancelled"
	return nil, out, nil
}

// ListStages describes the configured check stages in run order.
func (s *WizardService) ListStages(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListStagesInput,
) (*mcp.CallToolResult, ListStagesOutput, error) {
	out := ListStagesOutput{Stages: []StageOutput{}}
	for i, name := range s.registry.Names() {
		spec, _ := s.registry.Lookup(name)
		so := StageOutput{
			Index:  i + 1,
			Name:   spec.Name,
			Title:  spec.Title,
			Remote: s.cfg.RemoteStages[spec.Name],
		}
		for _, f := range spec.Owns {
			so.Owns = append(so.Owns, string(f))
		}
		out.Stages = append(out.Stages, so)
	}
	return nil, out, nil
}

func sessionOutput(v wizard.SessionView) SessionOutput {
	out := SessionOutput{
		SessionID: v.ID,
		Current:   v.Current,
		Total:     v.Total,
		Step:      string(v.Step),
		Closed:    v.Closed,
		Running:   v.Running,
	}
	for _, sv := range v.Steps {
		out.Steps = append(out.Steps, StepOutput{
			Index: sv.Index,
			Key:   string(sv.Key),
			Title: sv.Title,
			State: string(sv.State),
		})
	}
	if v.Data.Checks != nil && v.Data.Checks.Run != nil {
		out.Run = runOutput(v.Data.Checks.Run)
	}
	return out
}

func runOutput(run *orchestrator.Run) *RunOutput {
	out := &RunOutput{
		ID:          run.ID,
		Status:      string(run.Status),
		FailedStage: run.FailedStage,
		Error:       run.Err,
	}
	for _, e := range run.Events() {
		out.Log = append(out.Log, LogLineOutput{
			Seq:      e.Seq,
			Kind:     string(e.Kind),
			Stage:    e.Stage,
			Message:  e.Message,
			Severity: string(e.Severity),
			Failed:   e.Failed,
		})
	}
	if res := run.Result; res != nil {
		out.Result = &ResultOutput{
			Status:       string(res.Status),
			Paid:         res.Paid.StringFixed(2),
			Entitled:     res.Entitled.StringFixed(2),
			Difference:   res.Difference.StringFixed(2),
			AnomalyScore: res.AnomalyScore,
			Confidence:   res.Confidence,
			Explanation:  res.Explanation,
		}
	}
	return out
}
