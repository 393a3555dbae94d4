package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline-structural failures. Stage-local issues
// (a single team's missing history, a malformed game) are recovered in
// place; these two are fatal for the run and surfaced to the orchestrator.
var (
	// ErrMissingStageInput means a stage started without its upstream
	// stage's output. This is a run-order bug, not a data condition.
	ErrMissingStageInput = errors.New("stage input missing")

	// ErrEmptyStageOutput means a stage produced zero rows from non-empty
	// input, which indicates a filtering bug rather than a legitimately
	// empty dataset.
	ErrEmptyStageOutput = errors.New("stage produced no rows from non-empty input")
)

// StageError wraps a failure with the stage that raised it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
