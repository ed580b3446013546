package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRules_Location(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		pref     LocationPreference
		city     string
		region   string
		distance float64
	}{
		{"walking distance", "something within walking distance", LocationNearby, "", "", 800},
		{"generic nearby", "any good place near me?", LocationNearby, "", "", 2000},
		{"city beats nearby", "near me, I'm in Haifa this week", LocationSpecificCity, "Haifa", "", 0},
		{"region", "dinner in Jaffa", LocationNamedRegion, "", "tel_aviv", 0},
		{"nearby beats region", "close by, in tel aviv", LocationNearby, "", "", 2000},
		{"anywhere", "I don't care where, just great food", LocationAnywhere, "", "", 0},
		{"region beats anywhere", "anywhere in gush dan", LocationNamedRegion, "", "gush_dan", 0},
		{"default region", "I want sushi", LocationNamedRegion, "", "tel_aviv", 0},
		{"hebrew walking", "משהו במרחק הליכה", LocationNearby, "", "", 800},
		{"hebrew city", "מסעדה בחיפה", LocationSpecificCity, "Haifa", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := extractRules(tt.text)
			assert.Equal(t, tt.pref, cc.LocationPreference)
			assert.Equal(t, tt.city, cc.SpecificCity)
			assert.Equal(t, tt.region, cc.Region)
			assert.Equal(t, tt.distance, cc.MaxDistanceMeters)
			if cc.LocationPreference == LocationSpecificCity {
				assert.NotEmpty(t, cc.SpecificCity)
			}
		})
	}
}

func TestExtractRules_Timing(t *testing.T) {
	tests := []struct {
		text   string
		timing Timing
		day    *int
		minute *int
	}{
		{"somewhere open right now", TimingNow, nil, nil},
		{"dinner tonight", TimingTonight, nil, nil},
		{"tomorrow night for two", TimingTomorrow, nil, nil},
		{"this weekend", TimingWeekend, nil, nil},
		{"sushi", TimingAnytime, nil, nil},
		{"tonight at 9pm", TimingTonight, nil, intPtr(21 * 60)},
		{"on tuesday", TimingTonight, intPtr(2), nil},
		{"lunch on tuesday at 13:00", TimingTonight, intPtr(2), intPtr(13 * 60)},
		{"מחר בערב", TimingTomorrow, nil, nil},
		{"הערב בשעה 20:30", TimingTonight, nil, intPtr(20*60 + 30)},
		{"somewhere around 5 minutes away by car, sushi please", TimingAnytime, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cc := extractRules(tt.text)
			assert.Equal(t, tt.timing, cc.Timing)
			assert.Equal(t, tt.day, cc.SpecificDay)
			assert.Equal(t, tt.minute, cc.SpecificTime)
		})
	}
}

func TestParseSpecificTime(t *testing.T) {
	tests := []struct {
		text   string
		minute int
		ok     bool
	}{
		{"at 8pm", 20 * 60, true},
		{"8:30 PM works", 20*60 + 30, true},
		{"around 12am", 0, true},
		{"noon? 12pm", 12 * 60, true},
		{"at 20:30", 20*60 + 30, true},
		{"at 8", 20 * 60, true},
		{"at 13", 13 * 60, true},
		{"בשעה 9", 21 * 60, true},
		{"table for 4 people", 0, false},
		{"10 amazing dishes", 0, false},
		{"at 7 or maybe 19:45", 19*60 + 45, true},
		{"somewhere around 5 minutes away", 0, false},
		{"at 3 km from me", 0, false},
		{"at 4 stars or more", 0, false},
		{"a table at 6 people", 0, false},
		{"בסביבות 10 דקות ממני", 0, false},
		{"בסביבות 2 ק\"מ מכאן", 0, false},
		{"at 8, around 10 minutes away", 20 * 60, true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			minute, ok := parseSpecificTime(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.minute, minute)
			}
		})
	}
}

func TestExtractor_SlotsFromModel(t *testing.T) {
	completer := &fakeCompleter{extraction: "```json\n" + `{
		"cuisine": ["Sushi", "japanese", "sushi"],
		"occasion": "Date",
		"vibe": "cozy",
		"budget": "moderate",
		"dietary": []
	}` + "\n```"}

	cc := NewExtractor(completer).Extract(context.Background(), []ChatMessage{
		{Role: "user", Content: "Looking for sushi for a date night"},
		{Role: "assistant", Content: "Where should it be?"},
		{Role: "user", Content: "walking distance please"},
	})

	assert.Equal(t, []string{"sushi", "japanese"}, cc.CuisinePreferences)
	assert.Equal(t, "date", cc.Occasion)
	assert.Equal(t, []string{"cozy"}, cc.Vibe)
	assert.Equal(t, "moderate", cc.Budget)
	assert.Empty(t, cc.DietaryRestrictions)
	assert.Equal(t, LocationNearby, cc.LocationPreference)
	assert.Equal(t, 800.0, cc.MaxDistanceMeters)
	assert.Contains(t, cc.ConversationText, "Assistant: Where should it be?")
	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "User: walking distance please")
}

func TestExtractor_ModelFailureLeavesSlotsEmpty(t *testing.T) {
	for name, c := range map[string]*fakeCompleter{
		"service error": {extractErr: errors.New("503")},
		"not json":      {extraction: "Sure! The user wants sushi."},
		"broken json":   {extraction: `{"cuisine": ["sushi"`},
	} {
		t.Run(name, func(t *testing.T) {
			cc := NewExtractor(c).Extract(context.Background(), userSays("sushi tonight in Haifa"))
			assert.False(t, cc.HasPreferences())
			assert.NotNil(t, cc.CuisinePreferences)
			assert.Equal(t, LocationSpecificCity, cc.LocationPreference)
			assert.Equal(t, TimingTonight, cc.Timing)
		})
	}
}

func TestStringList_AcceptsLooseShapes(t *testing.T) {
	var s slotResponse
	require.NoError(t, json.Unmarshal([]byte(`{"cuisine":"thai","vibe":["quiet"],"dietary":42}`), &s))
	assert.Equal(t, stringList{"thai"}, s.Cuisine)
	assert.Equal(t, stringList{"quiet"}, s.Vibe)
	assert.Nil(t, s.Dietary)
}

func TestNormalizeSlots(t *testing.T) {
	assert.Equal(t, []string{"vegan", "kosher"}, normalizeSlots([]string{" Vegan ", "none", "", "KOSHER", "vegan", "N/A"}))
}
