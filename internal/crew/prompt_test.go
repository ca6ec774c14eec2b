package crew

import "testing"

func TestBuildSystemPromptWithoutContext(t *testing.T) {
	p := Persona{Role: "a news historian", Goal: "explain background", Backstory: "decades in archives"}
	got := BuildSystemPrompt(p, "")
	want := "You are a news historian. Your goal is explain background. Your backstory: decades in archives.\n\n" + completionRequest
	if got != want {
		t.Fatalf("unexpected prompt:\n%q\nwant\n%q", got, want)
	}
}

func TestBuildSystemPromptWithContext(t *testing.T) {
	p := Persona{Role: "r", Goal: "g", Backstory: "b"}
	got := BuildSystemPrompt(p, "Previous task result: x")
	want := "You are r. Your goal is g. Your backstory: b.\n\nPrevious task result: x\n\n" + completionRequest
	if got != want {
		t.Fatalf("unexpected prompt:\n%q\nwant\n%q", got, want)
	}
}

func TestBuildContextJoinsPrerequisites(t *testing.T) {
	a := &Task{Name: "A", output: "one", done: true}
	b := &Task{Name: "B", output: "two", done: true}
	c := &Task{Name: "C", Prerequisites: []*Task{a, b}}

	want := "Previous task result: one\nPrevious task result: two"
	if got := c.BuildContext(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
