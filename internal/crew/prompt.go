package crew

import "strings"

// Persona describes who an agent is.
type Persona struct {
	Role      string
	Goal      string
	Backstory string
}

const completionRequest = "Complete the task described by the user. Respond with the finished result only."

// BuildSystemPrompt renders the persona header, the optional upstream context and the
// completion request. Sections are separated by a blank line.
func BuildSystemPrompt(p Persona, contextText string) string {
	var b strings.Builder
	b.WriteString("You are ")
	b.WriteString(p.Role)
	b.WriteString(". Your goal is ")
	b.WriteString(p.Goal)
	b.WriteString(". Your backstory: ")
	b.WriteString(p.Backstory)
	b.WriteString(".")
	if contextText != "" {
		b.WriteString("\n\n")
		b.WriteString(contextText)
	}
	b.WriteString("\n\n")
	b.WriteString(completionRequest)
	return b.String()
}

// buildInstruction is the user message sent alongside the system prompt.
func buildInstruction(taskDescription string) string {
	return "Task: " + taskDescription
}
