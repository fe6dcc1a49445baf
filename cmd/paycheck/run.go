package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/paycheck/internal/export"
	"github.com/dusk-indust/paycheck/internal/intake"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
	"github.com/dusk-indust/paycheck/internal/status"
	"github.com/dusk-indust/paycheck/internal/wizard"
)

const (
	formatText    = "text"
	formatJSON    = "json"
	formatMermaid = "mermaid"
)

func runCmd(g *globals) *cobra.Command {
	var (
		format      string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "run <intake.yaml>",
		Short: "Run the compliance checks for one intake file",
		Long: "Load an intake file, walk it through the details, documents and review steps, " +
			"then run every check stage in order and print the log and result.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatText, formatJSON, formatMermaid:
			default:
				return fmt.Errorf("unknown format %q (want text, json or mermaid)", format)
			}
			if metricsAddr == "" {
				metricsAddr = g.cfg.MetricsAddr
			}
			recorder, err := serveMetrics(cmd.Context(), metricsAddr)
			if err != nil {
				return err
			}

			form, err := intake.LoadForm(args[0])
			if err != nil {
				return err
			}
			pipeline, err := g.newPipeline(orchestrator.WithRecorder(recorder))
			if err != nil {
				return err
			}
			defer pipeline.Close()

			c := wizard.NewController(pipeline)
			if err := wizard.SubmitForm(c, form); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			var streamed chan struct{}
			if format == formatText {
				streamed = make(chan struct{})
				go streamLog(out, pipeline.Subscribe(), streamed)
			}

			run, runErr := c.RunChecks(cmd.Context())
			if run == nil {
				return runErr
			}
			if streamed != nil {
				<-streamed
			}
			slog.Debug("checks finished", "run", run.ID, "status", run.Status, "duration", run.Duration())

			if err := writeRun(out, format, c.Snapshot(), run); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json or mermaid")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

// streamLog prints log lines as the pipeline appends them, stopping after the
// terminal entry.
func streamLog(w io.Writer, entries <-chan orchestrator.LogEntry, done chan<- struct{}) {
	defer close(done)
	for e := range entries {
		fmt.Fprintln(w, export.LogLineText(e))
		if e.Terminal() {
			return
		}
	}
}

func writeRun(w io.Writer, format string, view wizard.SessionView, run *orchestrator.Run) error {
	switch format {
	case formatJSON:
		return export.WriteJSON(w, export.BuildReport(view, time.Now()))
	case formatMermaid:
		_, err := io.WriteString(w, export.GenerateMermaid(status.Timeline(run)))
		return err
	default:
		fmt.Fprintln(w)
		fmt.Fprintln(w, export.StageTable(status.Timeline(run)))
		if run.Result != nil {
			fmt.Fprintln(w, export.ResultText(run.Result))
		}
		return nil
	}
}
