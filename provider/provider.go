package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/narrator/config"
	"github.com/mohammad-safakhou/narrator/internal/telemetry"
	gemini_provider "github.com/mohammad-safakhou/narrator/provider/gemini"
	openai_provider "github.com/mohammad-safakhou/narrator/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI Client = "openai"
	Gemini Client = "gemini"
)

// Generator is the text generation contract used by agents.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userInstruction string) (string, error)
	Name() string
}

// ErrEmptyPrompt is returned when either prompt part is blank.
var ErrEmptyPrompt = errors.New("system prompt and user instruction must be non-empty")

// GenerationError reports a failed or empty completion from the upstream model.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Timeout() {
		return fmt.Sprintf("generation via %s timed out: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("generation via %s failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Timeout reports whether the call hit its deadline.
func (e *GenerationError) Timeout() bool { return errors.Is(e.Err, context.DeadlineExceeded) }

// NewProvider creates the configured generator. Credentials are not checked here;
// the backend resolves them on the first Generate call.
func NewProvider(cfg config.LLMConfig, metrics *telemetry.Metrics) (Generator, error) {
	var backend Generator
	switch Client(cfg.Provider) {
	case OpenAI:
		backend = openai_provider.NewOpenAIClient(openai_provider.Config{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
		})
	case Gemini:
		backend = gemini_provider.NewGeminiClient(gemini_provider.Config{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
	return WithRetry(Wrap(backend, cfg.Timeout, metrics), cfg.Retries, cfg.RetryBackoff), nil
}

// Wrap applies input checks, a per-call timeout, metrics and error typing to a backend.
func Wrap(backend Generator, timeout time.Duration, metrics *telemetry.Metrics) Generator {
	return &guarded{backend: backend, timeout: timeout, metrics: metrics}
}

type guarded struct {
	backend Generator
	timeout time.Duration
	metrics *telemetry.Metrics
}

func (g *guarded) Name() string { return g.backend.Name() }

func (g *guarded) Generate(ctx context.Context, systemPrompt, userInstruction string) (string, error) {
	if strings.TrimSpace(systemPrompt) == "" || strings.TrimSpace(userInstruction) == "" {
		return "", &GenerationError{Provider: g.Name(), Err: ErrEmptyPrompt}
	}
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := g.backend.Generate(callCtx, systemPrompt, userInstruction)
	g.metrics.Generation(g.Name(), err)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return "", &GenerationError{Provider: g.Name(), Err: err}
	}
	return out, nil
}
