package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/paycheck/internal/status"
)

var stateClasses = []struct {
	state status.State
	style string
}{
	{status.StateComplete, "fill:#d4edda,stroke:#28a745"},
	{status.StateRunning, "fill:#cce5ff,stroke:#004085"},
	{status.StateFailed, "fill:#f8d7da,stroke:#dc3545"},
	{status.StateAborted, "fill:#fff3cd,stroke:#856404"},
	{status.StateSkipped, "fill:#e2e3e5,stroke:#6c757d,stroke-dasharray:3"},
	{status.StatePending, "fill:#ffffff,stroke:#6c757d"},
}

// GenerateMermaid produces a Mermaid flowchart of the stage timeline.
// Stages are chained in run order and each node is classed by its state.
func GenerateMermaid(stages []status.StageInfo) string {
	var sb strings.Builder
	sb.WriteString("flowchart LR\n")

	used := make(map[status.State]bool)
	for _, s := range stages {
		fmt.Fprintf(&sb, "  S%d[\"%d. %s\"]:::%s\n", s.Index, s.Index, mermaidLabel(s.Name), s.State)
		used[s.State] = true
	}
	for i := 1; i < len(stages); i++ {
		fmt.Fprintf(&sb, "  S%d --> S%d\n", stages[i-1].Index, stages[i].Index)
	}
	for _, c := range stateClasses {
		if used[c.state] {
			fmt.Fprintf(&sb, "  classDef %s %s\n", c.state, c.style)
		}
	}
	return sb.String()
}

// mermaidLabel keeps quotes from ending the node label.
func mermaidLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
