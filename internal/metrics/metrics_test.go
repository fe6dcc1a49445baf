package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveStageDuration("detector", 150*time.Millisecond)
	pr.IncStageResult("detector", ResultSuccess)
	pr.IncStageResult("detector", ResultSuccess)
	pr.IncStageResult("payslip-reader", ResultFailed)
	pr.ObserveRunDuration(2 * time.Second)
	pr.IncRunOutcome("completed")
	pr.IncRunReplay()
	pr.AddOpenSessions(2)
	pr.AddOpenSessions(-1)

	assert.Equal(t, 2.0, testutil.ToFloat64(pr.stageResults.WithLabelValues("detector", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.stageResults.WithLabelValues("payslip-reader", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.runOutcome.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.runReplays))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.openSessions))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestPrometheusRecorder_NilReceiver(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.ObserveStageDuration("detector", time.Second)
		pr.IncStageResult("detector", ResultSuccess)
		pr.IncRunReplay()
		pr.AddOpenSessions(1)
	})
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncRunOutcome("failed")

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `paycheck_run_outcomes_total{outcome="failed"} 1`)
}
