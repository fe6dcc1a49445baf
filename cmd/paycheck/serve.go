package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/paycheck/internal/agent"
	"github.com/dusk-indust/paycheck/internal/mcptools"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
	"github.com/dusk-indust/paycheck/internal/wizard"
)

func serveMCPCmd(g *globals) *cobra.Command {
	var (
		httpAddr    string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the intake wizard as MCP tools",
		Long: "Expose the wizard (open a session, submit each step, run the checks) as MCP tools. " +
			"Serves on stdio unless --http is given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if metricsAddr == "" {
				metricsAddr = g.cfg.MetricsAddr
			}
			recorder, err := serveMetrics(ctx, metricsAddr)
			if err != nil {
				return err
			}

			registry := agent.NewRegistry()
			factory, err := registry.PipelineFactory(g.cfg, g.client(), orchestrator.WithRecorder(recorder))
			if err != nil {
				return err
			}
			manager := wizard.NewManager(factory, wizard.WithManagerRecorder(recorder))
			defer manager.CloseAll()

			server := mcptools.NewPayCheckMCPServer(mcptools.NewWizardService(manager, registry, g.cfg))
			if httpAddr == "" {
				slog.Info("serving MCP on stdio")
				return mcptools.RunStdio(ctx, server)
			}
			slog.Info("serving MCP over HTTP", "addr", httpAddr)
			return mcptools.RunHTTP(ctx, server, httpAddr)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve streamable HTTP on this address instead of stdio")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}
