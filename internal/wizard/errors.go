package wizard

import (
	"errors"
	"fmt"
)

var (
	// ErrTerminalStep is returned by Advance on the last step.
	ErrTerminalStep = errors.New("wizard: already on the final step")

	// ErrStepMismatch is returned when a payload or action belongs to a
	// different step than the active one.
	ErrStepMismatch = errors.New("wizard: payload does not belong to the active step")

	// ErrInvalidJump is returned by JumpTo for anything but an earlier step.
	ErrInvalidJump = errors.New("wizard: can only jump back to an earlier step")

	// ErrSessionClosed is returned by every call after Cancel.
	ErrSessionClosed = errors.New("wizard: session closed")

	// ErrRunInProgress is returned by navigation while checks are running.
	ErrRunInProgress = errors.New("wizard: checks are running")

	// ErrSessionNotFound is returned by Manager for unknown session IDs.
	ErrSessionNotFound = errors.New("wizard: session not found")
)

// ValidationError reports a payload the active step cannot accept. The
// session is unchanged and the step should re-prompt.
type ValidationError struct {
	Step StepKey
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("wizard: step %s: %v", e.Step, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
