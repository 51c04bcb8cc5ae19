package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrStageIO is returned when a stage cannot read its inputs or write its output.
	ErrStageIO = errors.New("stage I/O failure")
	// ErrCycle is returned when stage dependencies form a cycle.
	ErrCycle = errors.New("stage dependency cycle")
	// ErrUnknownStage is returned when a stage needs a stage the pipeline does not have.
	ErrUnknownStage = errors.New("unknown stage")
)

// StageError reports the stage and artifact a failure happened in.
type StageError struct {
	Stage    string
	Artifact string
	Err      error
}

func (e *StageError) Error() string {
	if e.Artifact == "" {
		return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
	}

	return fmt.Sprintf("stage %s (%s): %v", e.Stage, e.Artifact, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func ioError(action string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStageIO, action, err)
}
