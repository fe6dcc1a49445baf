package orchestrator

import (
	"fmt"
	"time"
)

// LogKind classifies a log entry.
type LogKind string

const (
	LogStart    LogKind = "start"
	LogComplete LogKind = "complete"
	LogDivider  LogKind = "divider"
)

// Severity is how a log entry should be presented.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// LogEntry is one line of a run's log. Entries without a Stage are
// run-level: the terminal summary.
type LogEntry struct {
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Kind      LogKind   `json:"kind"`
	Stage     string    `json:"stage,omitempty"`
	Message   string    `json:"message,omitempty"`
	Severity  Severity  `json:"severity"`
	Failed    bool      `json:"failed,omitempty"`
}

// Terminal reports whether e is the run-level closing entry.
func (e LogEntry) Terminal() bool {
	return e.Kind == LogComplete && e.Stage == ""
}

// Events returns the log without dividers.
func Events(log []LogEntry) []LogEntry {
	out := make([]LogEntry, 0, len(log))
	for _, e := range log {
		if e.Kind != LogDivider {
			out = append(out, e)
		}
	}
	return out
}

// CheckLog verifies the ordering guarantees of a run log against the stage
// order: stages start in order, each start is followed by exactly one
// complete for the same stage before anything else starts, sequence numbers
// are contiguous, and at most one terminal entry closes the log. A log that
// stops after a complete (a run still in progress) is accepted.
func CheckLog(log []LogEntry, stages []string) error {
	next := 0
	open := ""
	closed := false
	for i, e := range log {
		if e.Seq != i+1 {
			return fmt.Errorf("entry %d: seq %d, want %d", i, e.Seq, i+1)
		}
		if closed {
			return fmt.Errorf("entry %d: %s after terminal entry", i, e.Kind)
		}
		switch {
		case e.Kind == LogStart:
			if open != "" {
				return fmt.Errorf("entry %d: %s started while %s still open", i, e.Stage, open)
			}
			if next >= len(stages) || e.Stage != stages[next] {
				return fmt.Errorf("entry %d: unexpected start of %q", i, e.Stage)
			}
			open = e.Stage
			next++
		case e.Terminal():
			if open != "" {
				return fmt.Errorf("entry %d: terminal entry while %s still open", i, open)
			}
			closed = true
		case e.Kind == LogComplete:
			if e.Stage != open {
				return fmt.Errorf("entry %d: complete of %q without matching start", i, e.Stage)
			}
			open = ""
		case e.Kind == LogDivider:
			if open != "" {
				return fmt.Errorf("entry %d: divider inside %s", i, open)
			}
		default:
			return fmt.Errorf("entry %d: unknown kind %q", i, e.Kind)
		}
	}
	if open != "" && closed {
		return fmt.Errorf("stage %s never completed", open)
	}
	return nil
}

// FormatLogEntry renders an entry as a single status line.
func FormatLogEntry(e LogEntry) string {
	switch {
	case e.Kind == LogDivider:
		return "  ────────"
	case e.Kind == LogStart:
		return fmt.Sprintf("  ● %s", e.Message)
	case e.Failed:
		return fmt.Sprintf("  ✗ %s", e.Message)
	case e.Severity == SeverityWarning:
		return fmt.Sprintf("  ! %s", e.Message)
	case e.Kind == LogComplete:
		return fmt.Sprintf("  ✓ %s", e.Message)
	default:
		return fmt.Sprintf("  ? %s", e.Message)
	}
}
