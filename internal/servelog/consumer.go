package servelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/forkful/recommender/internal/nats"
)

const (
	consumerName = "recommendation-log"
	fetchBatch   = 10
)

// errMalformed marks events that will never decode; they are terminated
// instead of redelivered.
var errMalformed = errors.New("malformed event")

// Inserter persists log entries.
type Inserter interface {
	Insert(ctx context.Context, e *Entry) error
}

// Consumer reads recommendation events from JetStream and writes them to the
// recommendation log.
type Consumer struct {
	repo        Inserter
	consumerMgr *inats.ConsumerManager
}

func NewConsumer(repo Inserter, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, consumerName, inats.SubjectAllEvents)
	if err != nil {
		return err
	}

	slog.Info("recommendation log consumer started", "consumer", consumerName)

	for {
		msgs, err := consumer.Fetch(fetchBatch, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("recommendation log consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			if err := c.handle(ctx, msg.Subject(), msg.Data()); err != nil {
				slog.Error("recommendation log consumer: handling event", "error", err, "subject", msg.Subject())
				if errors.Is(err, errMalformed) {
					_ = msg.Term()
				} else {
					_ = msg.Nak()
				}
				continue
			}
			_ = msg.Ack()
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, subject string, data []byte) error {
	entry, err := decodeEntry(subject, data)
	if err != nil {
		return err
	}
	if err := c.repo.Insert(ctx, entry); err != nil {
		return err
	}
	slog.Debug("recommendation log consumer: persisted event", "kind", entry.Kind, "request_id", entry.RequestID)
	return nil
}

func decodeEntry(subject string, data []byte) (*Entry, error) {
	switch subject {
	case inats.SubjectRecommendationServed:
		var event inats.RecommendationServed
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errMalformed, subject, err)
		}
		return entryFromServed(event), nil
	case inats.SubjectPipelineDegraded:
		var event inats.PipelineDegraded
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errMalformed, subject, err)
		}
		return entryFromDegraded(event), nil
	}
	return nil, fmt.Errorf("%w: unknown subject %q", errMalformed, subject)
}

func entryFromServed(e inats.RecommendationServed) *Entry {
	return &Entry{
		RequestID:         e.RequestID,
		Kind:              KindServed,
		Language:          e.Language,
		VenueIDs:          e.VenueIDs,
		HardFilterCount:   e.HardFilterCount,
		VectorSearchCount: e.VectorSearchCount,
		RerankCount:       e.RerankCount,
		Fallback:          e.Fallback,
		DurationMs:        e.DurationMs,
		CreatedAt:         e.ServedAt,
	}
}

func entryFromDegraded(e inats.PipelineDegraded) *Entry {
	return &Entry{
		RequestID:  e.RequestID,
		Kind:       KindDegraded,
		VenueIDs:   []string{},
		Reason:     e.Reason,
		DurationMs: e.DurationMs,
		CreatedAt:  e.Timestamp,
	}
}
