package recommend

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/forkful/recommender/internal/llm"
)

const (
	extractionTemperature = 0.1
	extractionMaxTokens   = 300
)

var (
	reClock12 = regexp.MustCompile(`(?i)\b(\d{1,2})(?::([0-5]\d))?\s*(am|pm)\b`)
	reClock24 = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	reAtHour  = regexp.MustCompile(`(?i)(?:\bat|\baround|בשעה|בסביבות)\s*(\d{1,2})\b\s*([\p{L}"״']*)`)
)

// quantityUnits follow a number that is a distance, duration or count rather
// than an hour of the day.
var quantityUnits = map[string]bool{
	"minutes": true, "minute": true, "min": true, "mins": true, "hours": true, "hour": true,
	"km": true, "kilometers": true, "kilometres": true, "m": true, "meters": true, "metres": true,
	"miles": true, "mile": true, "mi": true, "blocks": true, "block": true,
	"stars": true, "star": true, "people": true, "persons": true, "guests": true,
	"דקות": true, "דקה": true, "שעות": true, "ק\"מ": true, "ק״מ": true, "קמ": true,
	"מטר": true, "מטרים": true, "כוכבים": true, "אנשים": true, "סועדים": true,
}

// Extractor turns a conversation into a ConversationContext. Location and
// timing come from phrase tables; taste slots come from one completion call.
type Extractor struct {
	completer llm.Completer
}

func NewExtractor(completer llm.Completer) *Extractor {
	return &Extractor{completer: completer}
}

// Extract never fails: a model or parse error leaves the taste slots empty.
func (e *Extractor) Extract(ctx context.Context, messages []ChatMessage) *ConversationContext {
	userText := joinTurns(messages, "user")
	cc := extractRules(userText)
	cc.ConversationText = transcript(messages)

	slots, err := e.extractSlots(ctx, cc.ConversationText)
	if err != nil {
		slog.Warn("extractor: slot extraction failed, continuing without preferences", "error", err)
		return cc
	}
	slots.applyTo(cc)
	return cc
}

// extractRules fills language, location and timing from the user's words.
func extractRules(userText string) *ConversationContext {
	lang := DetectLanguage(userText)
	cc := &ConversationContext{
		Language:            lang,
		CuisinePreferences:  []string{},
		Vibe:                []string{},
		DietaryRestrictions: []string{},
	}

	// Specific city, then nearby, then a named region, then anywhere.
	if name, ok := matchCity(lang, userText); ok {
		cc.LocationPreference = LocationSpecificCity
		cc.SpecificCity = name
	} else if cat, ok := matchCategory(lang, userText, phraseWalking, phraseNearby); ok {
		cc.LocationPreference = LocationNearby
		cc.MaxDistanceMeters = nearbyRadiusMeters
		if cat == phraseWalking {
			cc.MaxDistanceMeters = walkingRadiusMeters
		}
	} else if region, ok := matchRegion(lang, userText); ok {
		cc.LocationPreference = LocationNamedRegion
		cc.Region = region
	} else if _, ok := matchCategory(lang, userText, phraseAnywhere); ok {
		cc.LocationPreference = LocationAnywhere
	} else {
		cc.LocationPreference = LocationNamedRegion
		cc.Region = defaultRegion
	}

	cc.Timing = TimingAnytime
	if cat, ok := matchCategory(lang, userText, phraseTomorrow, phraseWeekend, phraseTonight, phraseNow); ok {
		switch cat {
		case phraseTomorrow:
			cc.Timing = TimingTomorrow
		case phraseWeekend:
			cc.Timing = TimingWeekend
		case phraseTonight:
			cc.Timing = TimingTonight
		case phraseNow:
			cc.Timing = TimingNow
		}
	}
	if day, ok := matchWeekday(lang, userText); ok {
		d := int(day)
		cc.SpecificDay = &d
	}
	if minute, ok := parseSpecificTime(userText); ok {
		cc.SpecificTime = &minute
	}
	// A bare day or hour still constrains opening hours.
	if cc.Timing == TimingAnytime && (cc.SpecificDay != nil || cc.SpecificTime != nil) {
		cc.Timing = TimingTonight
	}
	return cc
}

// parseSpecificTime finds the last clock time mentioned in text and returns
// it as minutes after midnight.
func parseSpecificTime(text string) (int, bool) {
	if m := lastMatch(reClock12, text); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if h >= 1 && h <= 12 {
			h %= 12
			if strings.EqualFold(m[3], "pm") {
				h += 12
			}
			return h*60 + mm, true
		}
	}
	if m := lastMatch(reClock24, text); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return h*60 + mm, true
	}
	all := reAtHour.FindAllStringSubmatch(text, -1)
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if quantityUnits[strings.ToLower(m[2])] {
			continue
		}
		h, _ := strconv.Atoi(m[1])
		switch {
		case h >= 1 && h <= 11:
			// Without am/pm a restaurant hour is almost always evening.
			return (h + 12) * 60, true
		case h >= 12 && h <= 23:
			return h * 60, true
		}
		break
	}
	return 0, false
}

func lastMatch(re *regexp.Regexp, text string) []string {
	all := re.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

func (e *Extractor) extractSlots(ctx context.Context, conversation string) (*slotResponse, error) {
	raw, err := e.completer.Complete(ctx, buildExtractionPrompt(conversation), extractionTemperature, extractionMaxTokens)
	if err != nil {
		return nil, err
	}
	var slots slotResponse
	if err := llm.DecodeJSON(raw, &slots); err != nil {
		return nil, err
	}
	return &slots, nil
}

type slotResponse struct {
	Cuisine  stringList `json:"cuisine"`
	Occasion string     `json:"occasion"`
	Vibe     stringList `json:"vibe"`
	Budget   string     `json:"budget"`
	Dietary  stringList `json:"dietary"`
}

func (s *slotResponse) applyTo(cc *ConversationContext) {
	cc.CuisinePreferences = normalizeSlots(s.Cuisine)
	cc.Vibe = normalizeSlots(s.Vibe)
	cc.DietaryRestrictions = normalizeSlots(s.Dietary)
	if v := normalizeSlots([]string{s.Occasion}); len(v) > 0 {
		cc.Occasion = v[0]
	}
	if v := normalizeSlots([]string{s.Budget}); len(v) > 0 {
		cc.Budget = v[0]
	}
}

// stringList accepts either a JSON array of strings or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		// Numbers or objects carry nothing usable.
		*l = nil
		return nil
	}
	*l = stringList{one}
	return nil
}

var emptySlotValues = map[string]bool{"": true, "none": true, "null": true, "n/a": true, "any": true, "unknown": true}

func normalizeSlots(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if emptySlotValues[v] || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func joinTurns(messages []ChatMessage, role string) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == role {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// transcript renders the conversation as "User: ..." / "Assistant: ..." lines.
func transcript(messages []ChatMessage) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		if m.Role == "assistant" {
			b.WriteString("Assistant: ")
		} else {
			b.WriteString("User: ")
		}
		b.WriteString(strings.TrimSpace(m.Content))
	}
	return b.String()
}
