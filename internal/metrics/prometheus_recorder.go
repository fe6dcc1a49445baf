package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "paycheck"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	runDuration   prom.Histogram
	runOutcome    *prom.CounterVec
	runReplays    prom.Counter
	openSessions  prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual check stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total check run duration",
			Buckets:   prom.DefBuckets,
		}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Check runs by final status",
		}, []string{"outcome"}),
		runReplays: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_replays_total",
			Help:      "Start calls answered from an existing run",
		}),
		openSessions: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "open_sessions",
			Help:      "Wizard sessions currently open",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.runDuration, pr.runOutcome, pr.runReplays, pr.openSessions)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil {
		return
	}
	p.runOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncRunReplay() {
	if p == nil {
		return
	}
	p.runReplays.Inc()
}

func (p *PrometheusRecorder) AddOpenSessions(delta int) {
	if p == nil {
		return
	}
	p.openSessions.Add(float64(delta))
}
