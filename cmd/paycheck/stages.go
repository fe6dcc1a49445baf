package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/paycheck/internal/agent"
)

func stagesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the check stages in run order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := agent.NewRegistry()
			headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
			cellStyle := lipgloss.NewStyle().Padding(0, 1)

			var rows [][]string
			for i, name := range registry.Names() {
				spec, _ := registry.Lookup(name)
				owns := make([]string, len(spec.Owns))
				for j, f := range spec.Owns {
					owns[j] = string(f)
				}
				where := "local"
				if endpoint, ok := g.cfg.RemoteStages[name]; ok {
					where = endpoint
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), name, spec.Title, strings.Join(owns, ", "), where})
			}

			t := table.New().
				Border(lipgloss.RoundedBorder()).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				}).
				Headers("#", "Stage", "Title", "Owns", "Runs").
				Rows(rows...)
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
}
