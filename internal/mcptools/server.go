package mcptools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewPayCheckMCPServer creates an MCP server with the wizard tools registered.
func NewPayCheckMCPServer(svc *WizardService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "paycheck",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "open_session",
		Description: "Open a new PayCheck intake session on its first step (employment details). Returns the session id and step list.",
	}, svc.OpenSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "submit_details",
		Description: "Complete the employment details step: organisation, employment, jurisdiction, public holiday flag and pay period.",
	}, svc.SubmitDetails)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "submit_documents",
		Description: "Complete the documents step with the contract, worksheet and payslip document ids. All three are required.",
	}, svc.SubmitDocuments)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "submit_review",
		Description: "Complete the review step with a decision (accepted, corrected, rejected) for each extracted field.",
	}, svc.SubmitReview)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "go_back",
		Description: "Move the session one step back. Entered data is kept.",
	}, svc.GoBack)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "jump_to_step",
		Description: "Move the session back to an earlier step by its 1-based index.",
	}, svc.JumpToStep)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_checks",
		Description: "Run the ordered compliance checks for a session on its checks step. Returns the progressive log and, when every stage passed, the result. A completed run is replayed, not re-executed.",
	}, svc.RunChecks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_session",
		Description: "Get the current step, step states and last check run of a session.",
	}, svc.GetSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cancel_session",
		Description: "Cancel a session. Its data is discarded and a running check run stops before its next stage.",
	}, svc.CancelSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_stages",
		Description: "List the check stages in run order with the findings each one owns.",
	}, svc.ListStages)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP on addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
