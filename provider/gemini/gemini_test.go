package gemini_provider

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestMissingKeyFailsOnlyAtGenerate(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	c := NewGeminiClient(Config{})
	if c.Name() != "gemini" {
		t.Fatalf("unexpected name %q", c.Name())
	}
	if _, err := c.Generate(context.Background(), "sys", "user"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close without client: %v", err)
	}
}

func TestTextOf(t *testing.T) {
	content := func(parts ...genai.Part) *genai.GenerateContentResponse {
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}}}
	}
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr error
	}{
		{"nil response", nil, "", ErrNoCandidates},
		{"no candidates", &genai.GenerateContentResponse{}, "", ErrNoCandidates},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, "", ErrNoCandidates},
		{"joins parts and trims", content(genai.Text("  Once upon "), genai.Text("a flood.\n")), "Once upon a flood.", nil},
		{"skips non-text parts", content(genai.Blob{MIMEType: "image/png"}, genai.Text("tale")), "tale", nil},
		{"blank text is not an error", content(genai.Text("   ")), "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := textOf(tt.resp)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected err %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
