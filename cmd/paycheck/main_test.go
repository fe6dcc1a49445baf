package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/paycheck/internal/export"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
)

func fixture(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", "intake", name)
}

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRun_JSON(t *testing.T) {
	out, err := execute(t, "run", "--format", "json", fixture("reference.yaml"))
	require.NoError(t, err)

	var report export.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, orchestrator.RunCompleted, report.Status)
	assert.Len(t, report.Log, 21)
	assert.Len(t, report.Stages, 10)
	require.NotNil(t, report.Result)
	assert.Equal(t, orchestrator.StatusUnderpaid, report.Result.Status)
	assert.Equal(t, "-72.00", report.Result.Difference.StringFixed(2))
	assert.Equal(t, 86, report.Result.AnomalyScore)
}

func TestRun_Text(t *testing.T) {
	out, err := execute(t, "run", fixture("reference.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Receiving 3 documents")
	assert.Contains(t, out, "All 10 checks complete: underpaid by $72.00")
	assert.Contains(t, out, "entitlement-calculator")
}

func TestRun_Mermaid(t *testing.T) {
	out, err := execute(t, "run", "-f", "mermaid", fixture("public_holiday.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "flowchart LR")
	assert.Contains(t, out, `S10["10. explanation"]:::complete`)
}

func TestRun_Errors(t *testing.T) {
	_, err := execute(t, "run", "--format", "xml", fixture("reference.yaml"))
	assert.ErrorContains(t, err, `unknown format "xml"`)

	_, err = execute(t, "run", fixture("missing.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "run")
	assert.Error(t, err, "run takes exactly one intake file")
}

func TestBatch(t *testing.T) {
	out, err := execute(t, "batch", "-f", "json", "-p", "2", fixture("reference.yaml"), fixture("public_holiday.yaml"))
	require.NoError(t, err)

	var reports []export.Report
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, fixture("reference.yaml"), reports[0].Session)
	require.NotNil(t, reports[0].Result)
	assert.Equal(t, "-72.00", reports[0].Result.Difference.StringFixed(2))
	require.NotNil(t, reports[1].Result)
	assert.Equal(t, "-306.00", reports[1].Result.Difference.StringFixed(2))
}

func TestBatch_ReportsBadIntake(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("details: {}\n"), 0o600))

	out, err := execute(t, "batch", fixture("reference.yaml"), bad)
	assert.ErrorContains(t, err, "1 of 2 intakes did not complete")
	assert.Contains(t, out, "underpaid")
	assert.Contains(t, out, "bad.yaml")
}

func TestStages(t *testing.T) {
	out, err := execute(t, "stages")
	require.NoError(t, err)
	assert.Contains(t, out, "document-intake")
	assert.Contains(t, out, "Underpayment detector")
	assert.Contains(t, out, "confidence, explanation")
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paycheck.yml")
	require.NoError(t, os.WriteFile(path, []byte("remoteStages:\n  detector: http://127.0.0.1:9201\n"), 0o600))

	out, err := execute(t, "--config", path, "stages")
	require.NoError(t, err)
	assert.Contains(t, out, "http://127.0.0.1:9201")

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "nope.yml"), "stages")
	assert.Error(t, err)
}
