package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if c.Gemini.APIKey == "" {
		errs = append(errs, "GEMINI_API_KEY is required")
	}
	if c.Gemini.EmbeddingDim < 1 {
		errs = append(errs, fmt.Sprintf("GEMINI_EMBEDDING_DIM must be positive, got %d", c.Gemini.EmbeddingDim))
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Pipeline sizing: the selector always wants three candidates.
	p := c.Pipeline
	if p.RerankTopN < 3 {
		errs = append(errs, fmt.Sprintf("PIPELINE_RERANK_TOP_N must be at least 3, got %d", p.RerankTopN))
	}
	if p.VectorSearchTopK < p.RerankTopN {
		errs = append(errs, fmt.Sprintf("PIPELINE_VECTOR_TOP_K (%d) must be >= PIPELINE_RERANK_TOP_N (%d)", p.VectorSearchTopK, p.RerankTopN))
	}
	if p.SemanticWeight < 0 || p.ContextWeight < 0 || p.RatingWeight < 0 || p.SocialWeight < 0 || p.DistancePenalty < 0 {
		errs = append(errs, "PIPELINE_WEIGHT_* values must be non-negative")
	}
	if p.Timeout <= 0 {
		errs = append(errs, "PIPELINE_TIMEOUT must be positive")
	} else if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= p.Timeout {
		errs = append(errs, fmt.Sprintf("SERVER_WRITE_TIMEOUT (%s) must exceed PIPELINE_TIMEOUT (%s)", c.Server.WriteTimeout, p.Timeout))
	}
	if _, err := time.LoadLocation(p.TimeZone); err != nil {
		errs = append(errs, fmt.Sprintf("PIPELINE_TIMEZONE %q is not a known time zone", p.TimeZone))
	}

	if c.RateLimit.MaxRequests < 1 || c.RateLimit.WindowSec < 1 {
		errs = append(errs, "RATELIMIT_MAX_REQUESTS and RATELIMIT_WINDOW_SEC must be positive")
	}

	// NATS is optional: warn only
	if c.NATS.URL == "" {
		slog.Warn("NATS_URL is empty, recommendation events will not be published")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
