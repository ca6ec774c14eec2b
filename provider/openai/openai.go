package openai_provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// ErrMissingAPIKey is returned when no key is configured or present in OPENAI_API_KEY.
var ErrMissingAPIKey = errors.New("openai api key not configured (llm.openai.api_key or OPENAI_API_KEY)")

// ErrNoChoices is returned when the API answers without any completion.
var ErrNoChoices = errors.New("no choices in response")

// Config configures the chat completion client
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

// client implements provider.Generator using OpenAI's chat completions.
// The SDK client is created on first use so a missing key only fails generation.
type client struct {
	cfg Config

	mu  sync.Mutex
	api *openai.Client
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg Config) *client {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	return &client{cfg: cfg}
}

func (c *client) Name() string { return "openai" }

func (c *client) sdk() (*openai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return c.api, nil
	}
	key := c.cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	oc := openai.DefaultConfig(key)
	if c.cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(c.cfg.BaseURL, "/")
	}
	if c.cfg.HTTPClient != nil {
		oc.HTTPClient = c.cfg.HTTPClient
	}
	c.api = openai.NewClientWithConfig(oc)
	return c.api, nil
}

// Generate sends one system and one user message and returns the trimmed completion.
func (c *client) Generate(ctx context.Context, systemPrompt, userInstruction string) (string, error) {
	api, err := c.sdk()
	if err != nil {
		return "", err
	}
	resp, err := api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userInstruction},
		},
		Temperature: float32(c.cfg.Temperature),
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
