package llm

import (
	"context"
	"errors"
	"log/slog"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/forkful/recommender/internal/config"
	"github.com/forkful/recommender/internal/metrics"
)

func newBreaker[T any](name string, cfg config.BreakerConfig) *gobreaker.CircuitBreaker[T] {
	metrics.LLMBreakerOpen.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Caller cancellation says nothing about the health of the service.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("llm: circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			open := 0.0
			if to == gobreaker.StateOpen {
				open = 1
			}
			metrics.LLMBreakerOpen.WithLabelValues(name).Set(open)
		},
	})
}

// BreakerEmbedder guards an Embedder with a circuit breaker.
type BreakerEmbedder struct {
	next Embedder
	cb   *gobreaker.CircuitBreaker[[]float32]
}

// NewBreakerEmbedder wraps next.
func NewBreakerEmbedder(next Embedder, cfg config.BreakerConfig) *BreakerEmbedder {
	return &BreakerEmbedder{next: next, cb: newBreaker[[]float32]("embedding", cfg)}
}

func (b *BreakerEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return b.cb.Execute(func() ([]float32, error) {
		return b.next.Embed(ctx, text)
	})
}

// State returns the breaker state for health reporting.
func (b *BreakerEmbedder) State() string {
	return b.cb.State().String()
}

// BreakerCompleter guards a Completer with a circuit breaker.
type BreakerCompleter struct {
	next Completer
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreakerCompleter wraps next.
func NewBreakerCompleter(next Completer, cfg config.BreakerConfig) *BreakerCompleter {
	return &BreakerCompleter{next: next, cb: newBreaker[string]("completion", cfg)}
}

func (b *BreakerCompleter) Complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Complete(ctx, prompt, temperature, maxTokens)
	})
}

// State returns the breaker state for health reporting.
func (b *BreakerCompleter) State() string {
	return b.cb.State().String()
}
