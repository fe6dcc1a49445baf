// Package wizard drives the multi-step intake: which step is active, what
// each step has contributed, and when the check pipeline may run.
package wizard

// StepState is how a step is presented relative to the active one.
type StepState string

const (
	StateCompleted StepState = "completed"
	StateCurrent   StepState = "current"
	StateUpcoming  StepState = "upcoming"
)

// StateOf derives the state of the step at position (1-based) when current
// is active out of total steps. Once the terminal step is reached it shows
// as completed rather than current.
func StateOf(current, position, total int) StepState {
	switch {
	case position < current:
		return StateCompleted
	case position == current && current == total:
		return StateCompleted
	case position == current:
		return StateCurrent
	default:
		return StateUpcoming
	}
}
