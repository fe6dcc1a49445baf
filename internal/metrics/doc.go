// Package metrics provides observability hooks for check runs and wizard
// sessions.
//
// Components receive a Recorder through an option and default to
// NoopRecorder, so metrics collection needs no nil checks at call sites.
// PrometheusRecorder forwards to a Prometheus registry, and HTTPHandler
// serves that registry for scraping:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	pipeline := orchestrator.NewPipeline(def, orchestrator.WithRecorder(rec))
//	http.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
