package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/forkful/recommender/internal/llm"
)

const (
	summaryWeight = 0.7
	reviewsWeight = 0.3
	neutralScore  = 0.5
)

// VectorSearch scores venues by semantic similarity to the diner's request.
type VectorSearch struct {
	embedder llm.Embedder
	topK     int
}

func NewVectorSearch(embedder llm.Embedder, topK int) *VectorSearch {
	return &VectorSearch{embedder: embedder, topK: topK}
}

// Search embeds the request once and returns venues sorted by VectorScore,
// truncated to top-K. Venues without embeddings get a neutral score.
func (s *VectorSearch) Search(ctx context.Context, cc *ConversationContext, venues []ScoredVenue) ([]ScoredVenue, error) {
	if len(venues) == 0 {
		return nil, nil
	}

	query, err := s.embedder.Embed(ctx, BuildSearchText(cc))
	if err != nil {
		return nil, fmt.Errorf("embedding search text: %w", err)
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("embedding search text: %w", llm.ErrEmptyResponse)
	}

	scored := make([]ScoredVenue, len(venues))
	for i, v := range venues {
		scored[i] = scoreVenue(v, query)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].VectorScore != scored[j].VectorScore {
			return scored[i].VectorScore > scored[j].VectorScore
		}
		return scored[i].ID < scored[j].ID
	})
	if s.topK > 0 && len(scored) > s.topK {
		scored = scored[:s.topK]
	}
	return scored, nil
}

func scoreVenue(v ScoredVenue, query []float32) ScoredVenue {
	summary, hasSummary := similarity(query, v.SummaryEmbedding)
	reviews, hasReviews := similarity(query, v.ReviewsEmbedding)

	switch {
	case hasSummary && hasReviews:
		v.VectorScore = summaryWeight*summary + reviewsWeight*reviews
	case hasSummary:
		v.VectorScore = summary
	case hasReviews:
		v.VectorScore = reviews
	default:
		v.VectorScore = neutralScore
	}
	v.SummaryScore = summary
	v.ReviewsScore = reviews
	return v
}

// similarity reports the normalized similarity and whether the venue
// embedding was usable against the query.
func similarity(query, emb []float32) (float64, bool) {
	if len(emb) == 0 || len(emb) != len(query) {
		return 0, false
	}
	return NormalizedSimilarity(query, emb), true
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either is empty, zero or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(-1, math.Min(1, cos))
}

// NormalizedSimilarity maps cosine similarity onto [0,1].
func NormalizedSimilarity(a, b []float32) float64 {
	s := (CosineSimilarity(a, b) + 1) / 2
	if math.IsNaN(s) {
		return neutralScore
	}
	return math.Max(0, math.Min(1, s))
}

// BuildSearchText phrases the structured preferences as a query, falling back
// to the raw conversation when nothing was extracted.
func BuildSearchText(cc *ConversationContext) string {
	if !cc.HasPreferences() {
		return cc.ConversationText
	}

	var parts []string
	if len(cc.CuisinePreferences) > 0 {
		parts = append(parts, strings.Join(cc.CuisinePreferences, ", ")+" restaurant")
	} else {
		parts = append(parts, "restaurant")
	}
	if cc.Occasion != "" {
		parts = append(parts, "for "+cc.Occasion)
	}
	if len(cc.Vibe) > 0 {
		parts = append(parts, "with a "+strings.Join(cc.Vibe, ", ")+" atmosphere")
	}
	if cc.Budget != "" {
		parts = append(parts, cc.Budget+" prices")
	}
	if len(cc.DietaryRestrictions) > 0 {
		parts = append(parts, strings.Join(cc.DietaryRestrictions, ", ")+" options")
	}
	return strings.Join(parts, ", ")
}
