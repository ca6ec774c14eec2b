package gemini_provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrMissingAPIKey is returned when no key is configured or present in GOOGLE_API_KEY.
var ErrMissingAPIKey = errors.New("gemini api key not configured (llm.gemini.api_key or GOOGLE_API_KEY)")

// ErrNoCandidates is returned when the model answers without any candidate.
var ErrNoCandidates = errors.New("no candidates in response")

type Config struct {
	APIKey string
	Model  string
}

// client implements provider.Generator on top of the Gemini SDK.
type client struct {
	cfg Config

	mu  sync.Mutex
	api *genai.Client
}

func NewGeminiClient(cfg Config) *client {
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	return &client{cfg: cfg}
}

func (c *client) Name() string { return "gemini" }

func (c *client) sdk(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return c.api, nil
	}
	key := c.cfg.APIKey
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	api, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	c.api = api
	return api, nil
}

func (c *client) Generate(ctx context.Context, systemPrompt, userInstruction string) (string, error) {
	api, err := c.sdk(ctx)
	if err != nil {
		return "", err
	}
	model := api.GenerativeModel(c.cfg.Model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))

	resp, err := model.GenerateContent(ctx, genai.Text(userInstruction))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return textOf(resp)
}

// textOf joins the text parts of the first candidate. Non-text parts are ignored.
func textOf(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return "", ErrNoCandidates
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// Close releases the SDK connection if one was opened.
func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api == nil {
		return nil
	}
	err := c.api.Close()
	c.api = nil
	return err
}
