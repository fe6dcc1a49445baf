package mcptools

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupServerClient wires an MCP server and client together using in-memory
// transports.
func setupServerClient(t *testing.T) *mcp.ClientSession {
	t.Helper()

	server := NewPayCheckMCPServer(newTestService(t))
	st, ct := mcp.NewInMemoryTransports()
	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

// callTool calls a tool and decodes its structured output into out.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args, out any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	if out != nil && !result.IsError {
		require.NotNil(t, result.StructuredContent, "expected structured content from %s", name)
		raw, err := json.Marshal(result.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return result
}

func TestMCPListTools(t *testing.T) {
	session := setupServerClient(t)

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)

	assert.Equal(t, []string{
		"cancel_session",
		"get_session",
		"go_back",
		"jump_to_step",
		"list_stages",
		"open_session",
		"run_checks",
		"submit_details",
		"submit_documents",
		"submit_review",
	}, names)
}

func TestMCPReferenceFlow(t *testing.T) {
	session := setupServerClient(t)

	var out SessionOutput
	callTool(t, session, "open_session", map[string]any{}, &out)
	id := out.SessionID
	require.NotEmpty(t, id)

	for _, step := range []struct {
		tool string
		args any
	}{
		{"submit_details", referenceDetails(id)},
		{"submit_documents", referenceDocuments(id)},
		{"submit_review", referenceReview(id, "540.00")},
	} {
		res := callTool(t, session, step.tool, step.args, &out)
		require.False(t, res.IsError, step.tool)
	}
	assert.Equal(t, "checks", out.Step)

	res := callTool(t, session, "run_checks", SessionInput{SessionID: id}, &out)
	require.False(t, res.IsError)
	require.NotNil(t, out.Run)
	require.NotNil(t, out.Run.Result)
	assert.Equal(t, "underpaid", out.Run.Result.Status)
	assert.Equal(t, "-72.00", out.Run.Result.Difference)
	assert.InDelta(t, 0.86, out.Run.Result.Confidence, 1e-9)
	assert.Equal(t, "results", out.Step)
}

func TestMCPStepMismatchIsToolError(t *testing.T) {
	session := setupServerClient(t)

	var out SessionOutput
	callTool(t, session, "open_session", map[string]any{}, &out)

	res := callTool(t, session, "submit_documents", referenceDocuments(out.SessionID), nil)
	assert.True(t, res.IsError, "submitting documents on the details step should fail")
}

func TestMCPListStages(t *testing.T) {
	session := setupServerClient(t)

	var out ListStagesOutput
	callTool(t, session, "list_stages", map[string]any{}, &out)
	require.Len(t, out.Stages, 10)
	assert.Equal(t, "explanation", out.Stages[9].Name)
	assert.Equal(t, []string{"confidence", "explanation"}, out.Stages[9].Owns)
}
