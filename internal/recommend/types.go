package recommend

import (
	"errors"

	"github.com/google/uuid"

	"github.com/forkful/recommender/internal/catalog"
)

// ErrInvalidRequest is returned when a recommendation request cannot be
// served at all: no user turn or an invalid caller location.
var ErrInvalidRequest = errors.New("invalid recommendation request")

// Error markers recorded in PipelineDebug.Error when a run ends early.
const (
	ErrorCatalogUnavailable   = "catalog_unavailable"
	ErrorEmbeddingUnavailable = "embedding_unavailable"
	ErrorTimeout              = "timeout"
)

type LocationPreference string

const (
	LocationNearby       LocationPreference = "nearby"
	LocationAnywhere     LocationPreference = "anywhere"
	LocationNamedRegion  LocationPreference = "named_region"
	LocationSpecificCity LocationPreference = "specific_city"
)

type Timing string

const (
	TimingNow      Timing = "now"
	TimingTonight  Timing = "tonight"
	TimingTomorrow Timing = "tomorrow"
	TimingWeekend  Timing = "weekend"
	TimingAnytime  Timing = "anytime"
)

// ChatMessage is one conversation turn, oldest first.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=4000"`
}

// ConversationContext is the structured intent derived from a conversation.
// SpecificCity is set only for LocationSpecificCity and MaxDistanceMeters
// only for LocationNearby.
type ConversationContext struct {
	LocationPreference LocationPreference `json:"location_preference"`
	SpecificCity       string             `json:"specific_city,omitempty"`
	Region             string             `json:"region,omitempty"`
	MaxDistanceMeters  float64            `json:"max_distance_meters,omitempty"`

	Timing       Timing `json:"timing"`
	SpecificTime *int   `json:"specific_time,omitempty"` // minutes after midnight
	SpecificDay  *int   `json:"specific_day,omitempty"`  // 0 = Sunday

	CuisinePreferences  []string `json:"cuisine_preferences"`
	Occasion            string   `json:"occasion,omitempty"`
	Vibe                []string `json:"vibe"`
	Budget              string   `json:"budget,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions"`

	ConversationText string   `json:"conversation_text"`
	Language         Language `json:"language"`
}

// HasPreferences reports whether any model-extracted slot is populated.
func (c *ConversationContext) HasPreferences() bool {
	return len(c.CuisinePreferences) > 0 || c.Occasion != "" || len(c.Vibe) > 0 ||
		c.Budget != "" || len(c.DietaryRestrictions) > 0
}

// ScoredVenue is a catalog venue annotated with semantic similarity.
// Scores are in [0,1].
type ScoredVenue struct {
	catalog.Venue
	VectorScore    float64  `json:"vector_score"`
	SummaryScore   float64  `json:"summary_score"`
	ReviewsScore   float64  `json:"reviews_score"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

// RankedVenue carries the reranker's score breakdown.
type RankedVenue struct {
	ScoredVenue
	FinalScore      float64 `json:"final_score"`
	ContextBoost    float64 `json:"context_boost"`
	RatingBoost     float64 `json:"rating_boost"`
	PopularityBoost float64 `json:"popularity_boost"`
	DistancePenalty float64 `json:"distance_penalty"`
}

// Recommendation is one of the final picks. MatchPercentage is for display
// only and always lies in [70,99].
type Recommendation struct {
	Venue           RankedVenue `json:"venue"`
	Reason          string      `json:"reason"`
	MatchPercentage int         `json:"match_percentage"`
}

// PipelineDebug is an observational trace of one run.
type PipelineDebug struct {
	Context           *ConversationContext `json:"context,omitempty"`
	HardFilterCount   int                  `json:"hard_filter_count"`
	VectorSearchCount int                  `json:"vector_search_count"`
	RerankCount       int                  `json:"rerank_count"`
	ProcessingTimeMs  int64                `json:"processing_time_ms"`
	StageTimingsMs    map[string]int64     `json:"stage_timings_ms,omitempty"`
	Fallback          bool                 `json:"fallback,omitempty"`
	Error             string               `json:"error,omitempty"`
}

// Result is the output of Pipeline.Recommend. Debug is nil when debugging is
// disabled; Trace is always populated for internal consumers.
type Result struct {
	RequestID       uuid.UUID        `json:"request_id"`
	Recommendations []Recommendation `json:"recommendations"`
	Debug           *PipelineDebug   `json:"debug,omitempty"`
	Trace           PipelineDebug    `json:"-"`
}
