package mcptools

// --- MCP Tool Types for the wizard server mode (serve-mcp) ---
// The SDK derives each tool's JSON schema from these structs, so they carry
// only plain JSON types. Money travels as decimal strings and dates as
// YYYY-MM-DD.

// SessionInput names an open session.
type SessionInput struct {
	SessionID string `json:"sessionId" jsonschema:"session id returned by open_session"`
}

// OpenSessionInput is the input for the open_session MCP tool.
type OpenSessionInput struct{}

// SubmitDetailsInput is the input for the submit_details MCP tool.
type SubmitDetailsInput struct {
	SessionID        string `json:"sessionId" jsonschema:"session id returned by open_session"`
	OrganisationType string `json:"organisationType" jsonschema:"employer industry, e.g. retail or hospitality"`
	OrganisationName string `json:"organisationName" jsonschema:"employer legal name"`
	EmploymentType   string `json:"employmentType" jsonschema:"casual, part-time or full-time"`
	Role             string `json:"role" jsonschema:"the worker's job title"`
	Classification   string `json:"classification" jsonschema:"award classification, e.g. Level 2"`
	Jurisdiction     string `json:"jurisdiction" jsonschema:"state or territory, e.g. NSW"`
	PublicHoliday    bool   `json:"publicHoliday,omitempty" jsonschema:"whether the period includes a public holiday"`
	PeriodStart      string `json:"periodStart" jsonschema:"first day of the pay period (YYYY-MM-DD)"`
	PeriodEnd        string `json:"periodEnd" jsonschema:"last day of the pay period (YYYY-MM-DD), on or after the start"`
}

// SubmitDocumentsInput is the input for the submit_documents MCP tool.
type SubmitDocumentsInput struct {
	SessionID string `json:"sessionId" jsonschema:"session id returned by open_session"`
	Contract  string `json:"contract" jsonschema:"employment contract document id"`
	Worksheet string `json:"worksheet" jsonschema:"hours worksheet document id"`
	Payslip   string `json:"payslip" jsonschema:"payslip document id"`
}

// ReviewFieldInput is one reviewed extraction.
type ReviewFieldInput struct {
	Field     string `json:"field" jsonschema:"extracted field name, e.g. gross_pay, ordinary_hours, public_holiday_hours"`
	Extracted string `json:"extracted" jsonschema:"value as extracted from the document"`
	Decision  string `json:"decision" jsonschema:"accepted, corrected or rejected"`
	Corrected string `json:"corrected,omitempty" jsonschema:"replacement value when the decision is corrected"`
}

// SubmitReviewInput is the input for the submit_review MCP tool.
type SubmitReviewInput struct {
	SessionID string             `json:"sessionId" jsonschema:"session id returned by open_session"`
	Fields    []ReviewFieldInput `json:"fields" jsonschema:"one entry per extracted field"`
}

// JumpToStepInput is the input for the jump_to_step MCP tool.
type JumpToStepInput struct {
	SessionID string `json:"sessionId" jsonschema:"session id returned by open_session"`
	Step      int    `json:"step" jsonschema:"1-based index of an earlier step"`
}

// StepOutput is one wizard step with its derived state.
type StepOutput struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	Title string `json:"title"`
	State string `json:"state"` // "completed", "current" or "upcoming"
}

// LogLineOutput is one user-facing run log event.
type LogLineOutput struct {
	Seq      int    `json:"seq"`
	Kind     string `json:"kind"`
	Stage    string `json:"stage,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Failed   bool   `json:"failed,omitempty"`
}

// ResultOutput is a completed run's outcome.
type ResultOutput struct {
	Status       string  `json:"status"`
	Paid         string  `json:"paid"`
	Entitled     string  `json:"entitled"`
	Difference   string  `json:"difference"`
	AnomalyScore int     `json:"anomalyScore"`
	Confidence   float64 `json:"confidence"`
	Explanation  string  `json:"explanation,omitempty"`
}

// RunOutput is a check run as the wizard last saw it.
type RunOutput struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"` // "running", "completed", "failed" or "aborted"
	FailedStage string          `json:"failedStage,omitempty"`
	Error       string          `json:"error,omitempty"`
	Log         []LogLineOutput `json:"log,omitempty"`
	Result      *ResultOutput   `json:"result,omitempty"`
}

// SessionOutput is the result of every session tool: where the wizard
// stands after the call.
type SessionOutput struct {
	SessionID string       `json:"sessionId"`
	Current   int          `json:"current"`
	Total     int          `json:"total"`
	Step      string       `json:"step"`
	Closed    bool         `json:"closed,omitempty"`
	Running   bool         `json:"running,omitempty"`
	Steps     []StepOutput `json:"steps,omitempty"`
	Run       *RunOutput   `json:"run,omitempty"`
	Message   string       `json:"message,omitempty"`
}

// ListStagesInput is the input for the list_stages MCP tool.
type ListStagesInput struct{}

// StageOutput describes one configured check stage.
type StageOutput struct {
	Index  int      `json:"index"`
	Name   string   `json:"name"`
	Title  string   `json:"title"`
	Owns   []string `json:"owns,omitempty"`
	Remote string   `json:"remote,omitempty"` // A2A endpoint when the stage runs on a worker
}

// ListStagesOutput is the result of the list_stages MCP tool.
type ListStagesOutput struct {
	Stages []StageOutput `json:"stages"`
}
