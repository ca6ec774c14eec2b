package crew

import (
	"context"
	"io"
	"log"
	"sync"
	"time"
)

// State is the lifecycle of a crew run.
type State string

const (
	StateCreated   State = "created"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// TaskEvent is reported to the observer after every task attempt.
type TaskEvent struct {
	Index    int
	Name     string
	Duration time.Duration
	Err      error
}

// Crew runs an ordered list of tasks strictly one after another.
// A crew is single use: construct, kick off once, discard.
type Crew struct {
	tasks    []*Task
	logger   *log.Logger
	observer func(TaskEvent)

	mu    sync.Mutex
	state State
}

// Option configures crew behaviour.
type Option func(*Crew)

// WithLogger sets the logger used for task progress.
func WithLogger(l *log.Logger) Option {
	return func(c *Crew) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers a callback invoked after each task.
func WithObserver(fn func(TaskEvent)) Option {
	return func(c *Crew) {
		c.observer = fn
	}
}

// New creates a crew. Tasks must be declared in dependency order.
func New(tasks []*Task, opts ...Option) *Crew {
	c := &Crew{
		tasks:  tasks,
		logger: log.New(io.Discard, "", 0),
		state:  StateCreated,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Crew) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Crew) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// validateOrder checks that every prerequisite is declared before its dependant
// or has already completed.
func (c *Crew) validateOrder() error {
	seen := make(map[*Task]bool, len(c.tasks))
	for i, t := range c.tasks {
		for _, p := range t.Prerequisites {
			if !seen[p] && !p.done {
				return &TaskError{Index: i, Name: t.Name, Err: &PrerequisiteNotReadyError{Task: t.Name, Prerequisite: p.Name}}
			}
		}
		seen[t] = true
	}
	return nil
}

// Kickoff executes every task in order and returns the last task's output.
// The first failing task aborts the run; later tasks are never started.
func (c *Crew) Kickoff(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state != StateCreated {
		c.mu.Unlock()
		return "", ErrAlreadyKickedOff
	}
	c.state = StateRunning
	c.mu.Unlock()

	if len(c.tasks) == 0 {
		c.setState(StateFailed)
		return "", ErrNoTasks
	}
	if err := c.validateOrder(); err != nil {
		c.setState(StateFailed)
		return "", err
	}

	var final string
	for i, t := range c.tasks {
		if err := ctx.Err(); err != nil {
			c.setState(StateFailed)
			return "", &TaskError{Index: i, Name: t.Name, Err: err}
		}
		start := time.Now()
		out, err := t.Execute(ctx)
		elapsed := time.Since(start)
		if c.observer != nil {
			c.observer(TaskEvent{Index: i, Name: t.Name, Duration: elapsed, Err: err})
		}
		if err != nil {
			c.logger.Printf("task %d (%s) failed after %s: %v", i, t.Name, elapsed, err)
			c.setState(StateFailed)
			return "", &TaskError{Index: i, Name: t.Name, Err: err}
		}
		c.logger.Printf("task %d (%s) completed in %s (%d chars)", i, t.Name, elapsed, len(out))
		final = out
	}

	c.setState(StateCompleted)
	return final, nil
}
