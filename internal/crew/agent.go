package crew

import (
	"context"

	"github.com/mohammad-safakhou/narrator/provider"
)

// Agent is a persona bound to a text generator.
type Agent struct {
	Persona   Persona
	Generator provider.Generator
}

// NewAgent creates an agent for one pipeline run.
func NewAgent(p Persona, gen provider.Generator) *Agent {
	return &Agent{Persona: p, Generator: gen}
}

// Execute runs one task description with the given upstream context and returns the
// generator output unchanged. Errors are propagated as-is.
func (a *Agent) Execute(ctx context.Context, taskDescription, contextText string) (string, error) {
	return a.Generator.Generate(ctx, BuildSystemPrompt(a.Persona, contextText), buildInstruction(taskDescription))
}
