package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/forkful/recommender/internal/config"
)

// GeminiClient is a thin wrapper around the official genai client. It serves
// both embeddings and completions and is safe for concurrent use.
type GeminiClient struct {
	cli             *genai.Client
	completionModel string
	embeddingModel  string
	embeddingDim    int
	timeout         time.Duration
}

// NewGeminiClient creates a client for the Gemini API.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	slog.Info("gemini client ready",
		"completion_model", cfg.CompletionModel,
		"embedding_model", cfg.EmbeddingModel,
	)
	return &GeminiClient{
		cli:             cli,
		completionModel: cfg.CompletionModel,
		embeddingModel:  cfg.EmbeddingModel,
		embeddingDim:    cfg.EmbeddingDim,
		timeout:         cfg.RequestTimeout,
	}, nil
}

// Complete sends a single-turn prompt and returns the concatenated text parts.
func (g *GeminiClient) Complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.cli.Models.GenerateContent(ctx, g.completionModel,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(temperature),
			MaxOutputTokens: int32(maxTokens),
		},
	)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// Embed returns the retrieval-query embedding for text.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	cfg := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_QUERY"}
	if g.embeddingDim > 0 {
		cfg.OutputDimensionality = genai.Ptr(int32(g.embeddingDim))
	}

	resp, err := g.cli.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding content: %w", err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Embeddings[0].Values, nil
}

func (g *GeminiClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
