package crew

import (
	"errors"
	"fmt"
)

// ErrNoTasks is returned when a crew is kicked off without tasks.
var ErrNoTasks = errors.New("crew has no tasks")

// ErrAlreadyKickedOff is returned when a crew is run a second time.
var ErrAlreadyKickedOff = errors.New("crew already kicked off")

// PrerequisiteNotReadyError indicates a task ran before one of its prerequisites.
type PrerequisiteNotReadyError struct {
	Task         string
	Prerequisite string
}

func (e *PrerequisiteNotReadyError) Error() string {
	return fmt.Sprintf("task %q: prerequisite %q has no output yet", e.Task, e.Prerequisite)
}

// TaskError identifies the pipeline task that failed.
type TaskError struct {
	Index int
	Name  string
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("pipeline task %d (%s) failed: %v", e.Index, e.Name, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
