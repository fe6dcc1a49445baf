package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/dusk-indust/paycheck/internal/a2a"
	"github.com/dusk-indust/paycheck/internal/agent"
	"github.com/dusk-indust/paycheck/internal/metrics"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
)

// newPipeline builds a pipeline over the registered stages. Stages named in
// remoteStages are dispatched over A2A.
func (g *globals) newPipeline(opts ...orchestrator.Option) (*orchestrator.Pipeline, error) {
	def, err := agent.NewRegistry().Definition(g.cfg, g.client())
	if err != nil {
		return nil, err
	}
	return orchestrator.NewPipeline(def, opts...), nil
}

// client returns an A2A client when any stage runs remotely.
func (g *globals) client() a2a.Client {
	if len(g.cfg.RemoteStages) == 0 {
		return nil
	}
	return a2a.NewHTTPClient(a2a.WithTimeout(g.cfg.StageTimeout))
}

// serveMetrics starts a Prometheus endpoint on addr and returns the recorder
// feeding it. An empty addr disables metrics. The server stops with ctx.
func serveMetrics(ctx context.Context, addr string) (metrics.Recorder, error) {
	if addr == "" {
		return metrics.NoopRecorder{}, nil
	}
	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		slog.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server", "err", err)
		}
	}()
	return recorder, nil
}
