package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/forkful/recommender/internal/metrics"
)

// Publisher writes recommendation events to JetStream. Each event carries its
// request ID as the message ID so a retried publish is stored once.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishRecommendationServed records a served recommendation list.
func (p *Publisher) PublishRecommendationServed(ctx context.Context, event RecommendationServed) error {
	return p.publish(ctx, SubjectRecommendationServed, event.RequestID.String(), event)
}

// PublishPipelineDegraded records a run that returned early.
func (p *Publisher) PublishPipelineDegraded(ctx context.Context, event PipelineDegraded) error {
	return p.publish(ctx, SubjectPipelineDegraded, event.RequestID.String(), event)
}

func (p *Publisher) publish(ctx context.Context, subject, msgID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	ack, err := p.js.Publish(ctx, subject, payload, jetstream.WithMsgID(msgID))
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	if ack.Duplicate {
		metrics.EventsPublishedTotal.WithLabelValues("duplicate").Inc()
		return nil
	}
	metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
	return nil
}
