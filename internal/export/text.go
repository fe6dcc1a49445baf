package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dusk-indust/paycheck/internal/orchestrator"
	"github.com/dusk-indust/paycheck/internal/status"
)

var (
	purple = lipgloss.Color("99")
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	dim    = lipgloss.Color("243")
	faint  = lipgloss.Color("238")
)

var (
	accentStyle  = lipgloss.NewStyle().Foreground(purple)
	successStyle = lipgloss.NewStyle().Foreground(green)
	errorStyle   = lipgloss.NewStyle().Foreground(red)
	warnStyle    = lipgloss.NewStyle().Foreground(yellow)
	labelStyle   = lipgloss.NewStyle().Foreground(dim)
	faintStyle   = lipgloss.NewStyle().Foreground(faint)
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

// LogLineText renders one log entry with a coloured glyph.
func LogLineText(e orchestrator.LogEntry) string {
	switch {
	case e.Kind == orchestrator.LogDivider:
		return faintStyle.Render("  ────────")
	case e.Kind == orchestrator.LogStart:
		return "  " + accentStyle.Render("●") + " " + e.Message
	case e.Failed || e.Severity == orchestrator.SeverityError:
		return "  " + errorStyle.Render("✗") + " " + e.Message
	case e.Severity == orchestrator.SeverityWarning:
		return "  " + warnStyle.Render("!") + " " + e.Message
	default:
		return "  " + successStyle.Render("✓") + " " + e.Message
	}
}

// ResultText renders the outcome as aligned key/value lines.
func ResultText(res *orchestrator.Result) string {
	if res == nil {
		return ""
	}
	st := string(res.Status)
	switch res.Status {
	case orchestrator.StatusOK:
		st = successStyle.Render(st)
	case orchestrator.StatusNeedsReview:
		st = warnStyle.Render(st)
	default:
		st = errorStyle.Render(st)
	}
	return keyValues("  ",
		[2]string{"Status", st},
		[2]string{"Paid", "$" + res.Paid.StringFixed(2)},
		[2]string{"Entitled", "$" + res.Entitled.StringFixed(2)},
		[2]string{"Difference", "$" + res.Difference.StringFixed(2)},
		[2]string{"Anomaly score", strconv.Itoa(res.AnomalyScore) + "/100"},
		[2]string{"Confidence", strconv.FormatFloat(res.Confidence, 'f', 2, 64)},
		[2]string{"Explanation", res.Explanation},
	)
}

func keyValues(indent string, pairs ...[2]string) string {
	maxLen := 0
	for _, p := range pairs {
		maxLen = max(maxLen, len(p[0]))
	}
	var sb strings.Builder
	for _, p := range pairs {
		label := fmt.Sprintf("%-*s", maxLen+1, p[0]+":")
		sb.WriteString(indent + labelStyle.Render(label) + " " + p[1] + "\n")
	}
	return sb.String()
}

// StageTable renders the stage timeline with rounded borders.
func StageTable(stages []status.StageInfo) string {
	headerStyle := lipgloss.NewStyle().Foreground(purple).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, len(stages))
	for i, s := range stages {
		dur := ""
		if s.Duration > 0 {
			dur = s.Duration.String()
		}
		rows[i] = []string{strconv.Itoa(s.Index), s.Name, string(s.State), dur}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(faintStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(stages) {
				return cellStyle.Inherit(stateStyle(stages[row].State))
			}
			return cellStyle
		}).
		Headers("#", "Stage", "State", "Duration").
		Rows(rows...)
	return t.String()
}

func stateStyle(s status.State) lipgloss.Style {
	switch s {
	case status.StateComplete:
		return successStyle
	case status.StateFailed:
		return errorStyle
	case status.StateAborted, status.StateRunning:
		return warnStyle
	default:
		return labelStyle
	}
}

// WriteText writes the human-readable report: the progressive log, the
// stage table and, when the run completed, the result.
func WriteText(w io.Writer, run *orchestrator.Run) error {
	if run == nil {
		_, err := io.WriteString(w, "No checks have run.\n")
		return err
	}
	var sb strings.Builder
	sb.WriteString(boldStyle.Render("Checks") + " " + labelStyle.Render(run.ID) + "\n")
	for _, e := range run.Log {
		sb.WriteString(LogLineText(e) + "\n")
	}
	sb.WriteString("\n" + StageTable(status.Timeline(run)) + "\n")
	if run.Result != nil {
		sb.WriteString("\n" + ResultText(run.Result))
	} else if run.Err != "" {
		sb.WriteString("\n  " + errorStyle.Render(run.Err) + "\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
