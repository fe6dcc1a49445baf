package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldNotOwned is returned when a stage writes another stage's finding.
	ErrFieldNotOwned = errors.New("stage wrote a finding it does not own")

	// ErrStageTimeout is returned when a stage exceeds its timeout.
	ErrStageTimeout = errors.New("stage timed out")

	// ErrNoOutput is returned when a stage returns neither output nor error.
	ErrNoOutput = errors.New("stage returned no output")

	// ErrAborted is returned by Start when the run was cancelled or the
	// pipeline was stopped.
	ErrAborted = errors.New("run aborted")

	// ErrIncompleteFindings is returned when the stages did not produce
	// enough findings to build a result.
	ErrIncompleteFindings = errors.New("findings incomplete")
)

// StageError reports which stage halted a run and why.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("orchestrator: stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
