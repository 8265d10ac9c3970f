package llm

import (
	"context"
	"errors"
)

// Summarizer abstracts LLM providers for text summarization. A single
// failure is surfaced directly to the caller; nothing is retried.
type Summarizer interface {
	Summarize(ctx context.Context, text string, style Style) (string, error)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm provider not configured")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Summarize returns ErrNotConfigured.
func (PlaceholderClient) Summarize(ctx context.Context, text string, style Style) (string, error) {
	_ = ctx
	_ = text
	_ = style
	return "", ErrNotConfigured
}
