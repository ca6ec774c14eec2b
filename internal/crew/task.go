package crew

import (
	"context"
	"strings"
)

// Task is one unit of pipeline work owned by a single agent.
type Task struct {
	Name           string
	Description    string
	ExpectedOutput string
	Agent          *Agent
	Prerequisites  []*Task

	output string
	done   bool
}

// Output returns the recorded result and whether the task has completed.
func (t *Task) Output() (string, bool) {
	return t.output, t.done
}

// Ready reports whether every prerequisite has completed.
func (t *Task) Ready() error {
	for _, p := range t.Prerequisites {
		if !p.done {
			return &PrerequisiteNotReadyError{Task: t.Name, Prerequisite: p.Name}
		}
	}
	return nil
}

// BuildContext joins prerequisite outputs in declaration order.
func (t *Task) BuildContext() string {
	parts := make([]string, 0, len(t.Prerequisites))
	for _, p := range t.Prerequisites {
		parts = append(parts, "Previous task result: "+p.output)
	}
	return strings.Join(parts, "\n")
}

func (t *Task) instruction() string {
	if t.ExpectedOutput == "" {
		return t.Description
	}
	return t.Description + "\n\nExpected output: " + t.ExpectedOutput
}

// Execute calls the agent with the prerequisite context and records the output.
// Calling it again re-runs the agent and replaces the previous output.
func (t *Task) Execute(ctx context.Context) (string, error) {
	if err := t.Ready(); err != nil {
		return "", err
	}
	out, err := t.Agent.Execute(ctx, t.instruction(), t.BuildContext())
	if err != nil {
		return "", err
	}
	t.output = out
	t.done = true
	return out, nil
}
