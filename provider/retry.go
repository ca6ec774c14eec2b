package provider

import (
	"context"
	"errors"
	"time"

	gemini_provider "github.com/mohammad-safakhou/narrator/provider/gemini"
	openai_provider "github.com/mohammad-safakhou/narrator/provider/openai"
)

// WithRetry retries failed generations with exponential backoff.
// retries <= 0 returns g unchanged.
func WithRetry(g Generator, retries int, backoff time.Duration) Generator {
	if retries <= 0 {
		return g
	}
	if backoff <= 0 {
		backoff = 300 * time.Millisecond
	}
	return &retrying{Generator: g, retries: retries, backoff: backoff}
}

type retrying struct {
	Generator
	retries int
	backoff time.Duration
}

func (r *retrying) Generate(ctx context.Context, systemPrompt, userInstruction string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		out, err := r.Generator.Generate(ctx, systemPrompt, userInstruction)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if permanent(err) || ctx.Err() != nil {
			return "", err
		}
		if attempt < r.retries {
			select {
			case <-time.After(r.backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return "", lastErr
			}
		}
	}
	return "", lastErr
}

func permanent(err error) bool {
	return errors.Is(err, ErrEmptyPrompt) ||
		errors.Is(err, openai_provider.ErrMissingAPIKey) ||
		errors.Is(err, gemini_provider.ErrMissingAPIKey)
}
