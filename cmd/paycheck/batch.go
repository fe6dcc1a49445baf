package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/paycheck/internal/export"
	"github.com/dusk-indust/paycheck/internal/intake"
	"github.com/dusk-indust/paycheck/internal/metrics"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
	"github.com/dusk-indust/paycheck/internal/wizard"
)

func batchCmd(g *globals) *cobra.Command {
	var (
		format   string
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "batch <intake.yaml>...",
		Short: "Run the compliance checks for several intake files",
		Long: "Run each intake file in its own session and pipeline, several at a time, " +
			"and print one summary row (or JSON report) per file.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatText && format != formatJSON {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			recorder, err := serveMetrics(cmd.Context(), g.cfg.MetricsAddr)
			if err != nil {
				return err
			}

			reports := make([]*export.Report, len(args))
			eg, ctx := errgroup.WithContext(cmd.Context())
			if parallel > 0 {
				eg.SetLimit(parallel)
			}
			for i, path := range args {
				eg.Go(func() error {
					r, err := g.checkFile(ctx, path, recorder)
					if err != nil {
						return err
					}
					reports[i] = r
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == formatJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(reports); err != nil {
					return fmt.Errorf("encode reports: %w", err)
				}
			} else {
				writeBatchTable(out, args, reports)
			}

			failed := 0
			for _, r := range reports {
				if r.Status != orchestrator.RunCompleted {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d intakes did not complete their checks", failed, len(reports))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text or json")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 4, "Number of intakes checked at once (0 for no limit)")
	return cmd
}

// checkFile runs one intake file through its own session. Only context
// cancellation is returned as an error; anything wrong with the file itself
// is recorded in the report so the rest of the batch still runs.
func (g *globals) checkFile(ctx context.Context, path string, recorder metrics.Recorder) (*export.Report, error) {
	logger := slog.With("file", path)
	failed := func(err error) *export.Report {
		r := export.RunReport(path, nil, time.Now())
		r.Error = err.Error()
		logger.Warn("intake skipped", "err", err)
		return r
	}

	form, err := intake.LoadForm(path)
	if err != nil {
		return failed(err), nil
	}
	pipeline, err := g.newPipeline(orchestrator.WithRecorder(recorder), orchestrator.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	defer pipeline.Close()

	c := wizard.NewController(pipeline, wizard.WithControllerLogger(logger))
	if err := wizard.SubmitForm(c, form); err != nil {
		return failed(err), nil
	}
	run, err := c.RunChecks(ctx)
	if run == nil {
		return failed(err), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return export.RunReport(path, run, time.Now()), nil
}

func writeBatchTable(w io.Writer, paths []string, reports []*export.Report) {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, len(reports))
	for i, r := range reports {
		row := []string{paths[i], string(r.Status), "", "", "", r.Error}
		if res := r.Result; res != nil {
			row[2] = string(res.Status)
			row[3] = res.Difference.StringFixed(2)
			row[4] = strconv.Itoa(res.AnomalyScore)
		}
		rows[i] = row
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("Intake", "Run", "Result", "Difference", "Score", "Error").
		Rows(rows...)
	fmt.Fprintln(w, t.String())
}
