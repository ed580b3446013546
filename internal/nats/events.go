package nats

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds every recommendation domain event.
const StreamEvents = "RECS_EVENTS"

// Subject constants.
const (
	SubjectRecommendationServed = "recs.events.recommendation_served"
	SubjectPipelineDegraded     = "recs.events.pipeline_degraded"

	SubjectAllEvents = "recs.events.>"
)

// RecommendationServed is published after a recommendation response is sent.
type RecommendationServed struct {
	RequestID         uuid.UUID `json:"request_id"`
	Language          string    `json:"language"`
	VenueIDs          []string  `json:"venue_ids"`
	HardFilterCount   int       `json:"hard_filter_count"`
	VectorSearchCount int       `json:"vector_search_count"`
	RerankCount       int       `json:"rerank_count"`
	Fallback          bool      `json:"fallback"`
	DurationMs        int64     `json:"duration_ms"`
	ServedAt          time.Time `json:"served_at"`
}

// PipelineDegraded is published when a run ends early because a dependency
// was unavailable or the deadline passed.
type PipelineDegraded struct {
	RequestID  uuid.UUID `json:"request_id"`
	Reason     string    `json:"reason"` // catalog_unavailable, embedding_unavailable, timeout
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
