package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when the model service answers without content.
	ErrEmptyResponse = errors.New("llm: empty response from model")
	// ErrNoJSON is returned when model output contains no JSON document.
	ErrNoJSON = errors.New("llm: no JSON found in model output")
)

// Embedder produces a vector embedding for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer returns a text completion for prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error)
}
