package recommend

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
)

// Weights controls how the reranker blends its signals. DistancePenalty is
// subtracted per kilometer.
type Weights struct {
	Semantic        float64
	Context         float64
	Rating          float64
	Social          float64
	DistancePenalty float64
}

// DefaultWeights are the tuned production weights.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.5, Context: 0.2, Rating: 0.15, Social: 0.15, DistancePenalty: 0.01}
}

// SocialSignals supplies per-venue friend-visit scores in [0,1].
type SocialSignals interface {
	SocialScores(ctx context.Context, venueIDs []string) (map[string]float64, error)
}

// Reranker computes the final ordering of the semantically scored venues.
type Reranker struct {
	weights       Weights
	topN          int
	diversity     bool
	diversityHead int
	social        SocialSignals
}

func NewReranker(weights Weights, topN int, diversity bool, diversityHead int, social SocialSignals) *Reranker {
	return &Reranker{
		weights:       weights,
		topN:          topN,
		diversity:     diversity,
		diversityHead: diversityHead,
		social:        social,
	}
}

// Rerank scores every venue, sorts by FinalScore and keeps the top N. With
// diversity enabled the head is reordered so equal primary categories do not
// sit next to each other; no venue is dropped by that step.
func (r *Reranker) Rerank(ctx context.Context, venues []ScoredVenue, cc *ConversationContext) []RankedVenue {
	social := r.socialScores(ctx, venues)
	keywords := contextKeywords(cc)

	ranked := make([]RankedVenue, len(venues))
	for i, v := range venues {
		ranked[i] = r.score(v, keywords, social)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		return ranked[i].ID < ranked[j].ID
	})
	if r.topN > 0 && len(ranked) > r.topN {
		ranked = ranked[:r.topN]
	}
	if r.diversity {
		ranked = diversify(ranked, r.diversityHead)
	}
	return ranked
}

func (r *Reranker) score(v ScoredVenue, keywords [][]string, social map[string]float64) RankedVenue {
	rv := RankedVenue{ScoredVenue: v}

	rv.ContextBoost = r.weights.Context * contextMatch(&v, keywords)
	rv.RatingBoost = r.weights.Rating * clamp01(v.Rating/5)
	if s, ok := social[v.ID]; ok {
		rv.PopularityBoost = r.weights.Social * clamp01(s)
	} else {
		rv.PopularityBoost = r.weights.Social * popularity(v.ReviewCount)
	}
	if v.DistanceMeters != nil {
		rv.DistancePenalty = r.weights.DistancePenalty * (*v.DistanceMeters / 1000)
	}

	rv.FinalScore = r.weights.Semantic*v.VectorScore + rv.ContextBoost + rv.RatingBoost + rv.PopularityBoost - rv.DistancePenalty
	return rv
}

func (r *Reranker) socialScores(ctx context.Context, venues []ScoredVenue) map[string]float64 {
	if r.social == nil || len(venues) == 0 {
		return nil
	}
	ids := make([]string, len(venues))
	for i, v := range venues {
		ids[i] = v.ID
	}
	scores, err := r.social.SocialScores(ctx, ids)
	if err != nil {
		slog.Warn("reranker: social signals unavailable, using review counts", "error", err)
		return nil
	}
	return scores
}

// popularity maps a review count onto [0,1]; 10k reviews saturates.
func popularity(reviews int) float64 {
	if reviews <= 0 {
		return 0
	}
	return math.Min(1, math.Log10(float64(reviews)+1)/4)
}

// contextKeywords groups the words that signal a fit. Each group counts once
// toward the match ratio.
func contextKeywords(cc *ConversationContext) [][]string {
	var groups [][]string
	if kw, ok := occasionKeywords[cc.Occasion]; ok {
		groups = append(groups, kw)
	}
	for _, c := range cc.CuisinePreferences {
		groups = append(groups, []string{c})
	}
	for _, v := range cc.Vibe {
		groups = append(groups, []string{v})
	}
	for _, d := range cc.DietaryRestrictions {
		groups = append(groups, []string{d})
	}
	return groups
}

// contextMatch is the share of keyword groups found in the venue's name,
// summary or categories.
func contextMatch(v *ScoredVenue, groups [][]string) float64 {
	if len(groups) == 0 {
		return 0
	}
	text := strings.ToLower(v.Name + " " + v.Summary + " " + strings.Join(v.Categories, " "))
	text = strings.ReplaceAll(text, "_", " ")

	hits := 0
	for _, g := range groups {
		for _, kw := range g {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(groups))
}

// diversify greedily reorders the first head entries so no two adjacent
// venues share a primary category when an alternative exists. Venues with
// no primary category never conflict.
func diversify(ranked []RankedVenue, head int) []RankedVenue {
	if head <= 0 || head > len(ranked) {
		head = len(ranked)
	}
	if head < 3 {
		return ranked
	}

	pending := make([]RankedVenue, head)
	copy(pending, ranked[:head])
	out := make([]RankedVenue, 0, len(ranked))

	last := ""
	for len(pending) > 0 {
		pick := 0
		for i, v := range pending {
			cat := v.PrimaryCategory()
			if cat == "" || cat != last {
				pick = i
				break
			}
		}
		v := pending[pick]
		pending = append(pending[:pick], pending[pick+1:]...)
		out = append(out, v)
		last = v.PrimaryCategory()
	}
	return append(out, ranked[head:]...)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
