// Package agent holds the reference check stages and the worker that serves
// any stage to remote pipelines over A2A.
package agent

import (
	"context"
	"net"

	"github.com/dusk-indust/paycheck/internal/a2a"
)

// Agent is a stage hosted behind an A2A server.
type Agent interface {
	// Card returns the agent's A2A Agent Card.
	Card() a2a.AgentCard

	// HandleTask processes an A2A task and returns the finished task.
	HandleTask(ctx context.Context, task a2a.Task, msg a2a.Message) (*a2a.Task, error)

	// Start launches the agent's HTTP server on the given address and
	// returns the bound address.
	Start(ctx context.Context, addr string) (net.Addr, error)

	// Stop gracefully shuts down the agent.
	Stop(ctx context.Context) error
}

// Reference stage names, in run order.
const (
	StageDocumentIntake        = "document-intake"
	StageContractReader        = "contract-reader"
	StageWorksheetReader       = "worksheet-reader"
	StagePayslipReader         = "payslip-reader"
	StageAwardMatcher          = "award-matcher"
	StageClassificationChecker = "classification-checker"
	StageEntitlementCalculator = "entitlement-calculator"
	StageDetector              = "detector"
	StageAnomalyScorer         = "anomaly-scorer"
	StageExplanation           = "explanation"
)
