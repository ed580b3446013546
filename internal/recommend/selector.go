package recommend

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strings"

	"github.com/forkful/recommender/internal/llm"
)

const (
	selectionCount       = 3
	selectionTemperature = 0.7
	selectionMaxTokens   = 1000

	minMatchPercentage = 70
	maxMatchPercentage = 99
)

// Selector asks the completion model for the final three picks.
type Selector struct {
	completer llm.Completer
}

func NewSelector(completer llm.Completer) *Selector {
	return &Selector{completer: completer}
}

type selection struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Select returns up to three recommendations from ranked. When the model
// fails or its answer cannot be used, the top candidates are returned with
// generic reasons and fallback is true.
func (s *Selector) Select(ctx context.Context, ranked []RankedVenue, cc *ConversationContext) (recs []Recommendation, fallback bool) {
	if len(ranked) == 0 {
		return []Recommendation{}, false
	}

	raw, err := s.completer.Complete(ctx, buildSelectionPrompt(cc.Language, ranked, cc), selectionTemperature, selectionMaxTokens)
	if err != nil {
		slog.Warn("selector: completion failed, using top candidates", "error", err)
		return fallbackSelection(ranked, cc.Language), true
	}

	picks, err := parseSelections(raw)
	if err != nil {
		slog.Warn("selector: unusable model output, using top candidates", "error", err)
		return fallbackSelection(ranked, cc.Language), true
	}

	recs = resolveSelections(ranked, picks, cc.Language)
	if len(recs) == 0 {
		slog.Warn("selector: model picked no known venues, using top candidates", "returned", len(picks))
		return fallbackSelection(ranked, cc.Language), true
	}
	return backfill(recs, ranked, cc.Language), false
}

// parseSelections accepts {"recommendations":[...]} or a bare array.
func parseSelections(raw string) ([]selection, error) {
	doc, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(doc, "[") {
		var picks []selection
		if err := json.Unmarshal([]byte(doc), &picks); err != nil {
			return nil, err
		}
		return picks, nil
	}
	var wrapped struct {
		Recommendations []selection `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(doc), &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Recommendations, nil
}

// resolveSelections maps model picks back onto candidates, dropping unknown
// and repeated ids.
func resolveSelections(ranked []RankedVenue, picks []selection, lang Language) []Recommendation {
	byID := make(map[string]int, len(ranked))
	for i, r := range ranked {
		byID[r.ID] = i
	}

	recs := make([]Recommendation, 0, selectionCount)
	used := make(map[string]bool, selectionCount)
	for _, p := range picks {
		id := strings.TrimSpace(p.ID)
		i, ok := byID[id]
		if !ok || used[id] {
			continue
		}
		used[id] = true
		reason := strings.TrimSpace(p.Reason)
		if reason == "" {
			reason = fallbackReason(lang, len(recs))
		}
		recs = append(recs, newRecommendation(ranked[i], reason))
		if len(recs) == selectionCount {
			break
		}
	}
	return recs
}

// backfill tops recs up to three from the best unselected candidates.
func backfill(recs []Recommendation, ranked []RankedVenue, lang Language) []Recommendation {
	used := make(map[string]bool, len(recs))
	for _, r := range recs {
		used[r.Venue.ID] = true
	}
	for _, v := range ranked {
		if len(recs) >= selectionCount {
			break
		}
		if used[v.ID] {
			continue
		}
		used[v.ID] = true
		recs = append(recs, newRecommendation(v, fallbackReason(lang, len(recs))))
	}
	return recs
}

func fallbackSelection(ranked []RankedVenue, lang Language) []Recommendation {
	return backfill(make([]Recommendation, 0, selectionCount), ranked, lang)
}

func newRecommendation(v RankedVenue, reason string) Recommendation {
	return Recommendation{Venue: v, Reason: reason, MatchPercentage: MatchPercentage(v.FinalScore)}
}

// MatchPercentage converts a final score into the display percentage.
func MatchPercentage(finalScore float64) int {
	if math.IsNaN(finalScore) {
		return minMatchPercentage
	}
	p := math.Round(finalScore * 100)
	if p < minMatchPercentage {
		return minMatchPercentage
	}
	if p > maxMatchPercentage {
		return maxMatchPercentage
	}
	return int(p)
}
