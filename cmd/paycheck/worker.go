package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/paycheck/internal/agent"
)

func workerCmd(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "worker <stage>",
		Short: "Serve one check stage as an A2A worker",
		Long: "Run a single check stage behind an A2A endpoint so pipelines can dispatch it " +
			"remotely through remoteStages. Runs until interrupted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			registry := agent.NewRegistry()
			w, err := registry.Spawn(args[0], g.cfg)
			if err != nil {
				return err
			}
			bound, err := w.Start(ctx, addr)
			if err != nil {
				return fmt.Errorf("start worker: %w", err)
			}
			slog.Info("worker listening", "stage", w.Name(), "addr", bound.String())
			fmt.Fprintf(cmd.OutOrStdout(), "%s worker on http://%s\n", w.Name(), bound)

			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return registry.StopAll(stopCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9201", "Listen address")
	return cmd
}
