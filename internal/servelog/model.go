package servelog

import (
	"time"

	"github.com/google/uuid"
)

// Entry kinds.
const (
	KindServed   = "served"
	KindDegraded = "degraded"
)

// Entry matches the recommendation_log table. One row per pipeline run.
type Entry struct {
	RequestID         uuid.UUID `json:"request_id"`
	Kind              string    `json:"kind"`
	Language          string    `json:"language,omitempty"`
	VenueIDs          []string  `json:"venue_ids"`
	HardFilterCount   int       `json:"hard_filter_count"`
	VectorSearchCount int       `json:"vector_search_count"`
	RerankCount       int       `json:"rerank_count"`
	Fallback          bool      `json:"fallback"`
	Reason            string    `json:"reason,omitempty"`
	DurationMs        int64     `json:"duration_ms"`
	CreatedAt         time.Time `json:"created_at"`
}

// ListParams holds pagination and filtering parameters for log queries.
type ListParams struct {
	Kind     string
	Reason   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}
