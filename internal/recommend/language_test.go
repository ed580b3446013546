package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, LanguageEnglish, DetectLanguage("sushi near me"))
	assert.Equal(t, LanguageHebrew, DetectLanguage("אני רוצה סושי"))
	// Exactly three Hebrew letters is not enough.
	assert.Equal(t, LanguageEnglish, DetectLanguage("pizza at אבג"))
	assert.Equal(t, LanguageHebrew, DetectLanguage("pizza at אבגד"))
	assert.Equal(t, LanguageEnglish, DetectLanguage(""))
}

func TestMatchCategory_WholeWordsInEnglish(t *testing.T) {
	_, ok := matchCategory(LanguageEnglish, "I don't know what I want", phraseNow)
	assert.False(t, ok, "'know' must not match 'now'")

	cat, ok := matchCategory(LanguageEnglish, "Something open NOW please!", phraseNow)
	assert.True(t, ok)
	assert.Equal(t, phraseNow, cat)

	cat, ok = matchCategory(LanguageEnglish, "I don’t care where", phraseAnywhere)
	assert.True(t, ok, "curly apostrophes are normalized")
	assert.Equal(t, phraseAnywhere, cat)
}

func TestMatchCategory_OrderIsSignificant(t *testing.T) {
	cat, ok := matchCategory(LanguageEnglish, "nearby, walking distance ideally", phraseWalking, phraseNearby)
	assert.True(t, ok)
	assert.Equal(t, phraseWalking, cat)
}

func TestMatchCategory_HebrewSubstrings(t *testing.T) {
	cat, ok := matchCategory(LanguageHebrew, "משהו במרחק הליכה מהבית", phraseWalking, phraseNearby)
	assert.True(t, ok)
	assert.Equal(t, phraseWalking, cat)

	cat, ok = matchCategory(LanguageHebrew, "מקום פתוח עכשיו", phraseTomorrow, phraseNow)
	assert.True(t, ok)
	assert.Equal(t, phraseNow, cat)

	// מיד is a word of its own, not a fragment of תמיד or מידע.
	_, ok = matchCategory(LanguageHebrew, "אני תמיד אוהב איטלקי", phraseNow)
	assert.False(t, ok)
	_, ok = matchCategory(LanguageHebrew, "אני רוצה מידע על מקומות טבעוניים", phraseNow)
	assert.False(t, ok)
	_, ok = matchCategory(LanguageHebrew, "משהו פתוח, מיד!", phraseNow)
	assert.True(t, ok)
	_, ok = matchCategory(LanguageHebrew, "ומייד אחרי העבודה", phraseNow)
	assert.True(t, ok, "a single attached prefix letter still matches")

	assert.Equal(t, TimingAnytime, extractRules("אני תמיד אוהב איטלקי, תמליץ לי על משהו").Timing)
	assert.Equal(t, TimingAnytime, extractRules("אני רוצה מידע על מקומות טבעוניים").Timing)
}

func TestMatchWeekday_LastMentionWins(t *testing.T) {
	day, ok := matchWeekday(LanguageEnglish, "friday, no wait, saturday")
	assert.True(t, ok)
	assert.Equal(t, time.Saturday, day)

	day, ok = matchWeekday(LanguageHebrew, "ביום שלישי בערב")
	assert.True(t, ok)
	assert.Equal(t, time.Tuesday, day)

	day, ok = matchWeekday(LanguageHebrew, "בשישי בערב")
	assert.True(t, ok)
	assert.Equal(t, time.Friday, day)

	day, ok = matchWeekday(LanguageHebrew, "אולי שישי, בעצם חמישי")
	assert.True(t, ok)
	assert.Equal(t, time.Thursday, day)

	_, ok = matchWeekday(LanguageEnglish, "whenever")
	assert.False(t, ok)
}

func TestMatchCity(t *testing.T) {
	name, ok := matchCity(LanguageEnglish, "best hummus in Ramat Gan")
	assert.True(t, ok)
	assert.Equal(t, "Ramat Gan", name)

	name, ok = matchCity(LanguageHebrew, "מסעדה טובה בירושלים")
	assert.True(t, ok)
	assert.Equal(t, "Jerusalem", name)

	_, ok = matchCity(LanguageEnglish, "somewhere in tel aviv")
	assert.False(t, ok, "tel aviv is a region, not a gazetteer city")
}

func TestCityVariantsAndRegions(t *testing.T) {
	assert.Equal(t, []string{"Jerusalem", "ירושלים"}, CityVariants("jerusalem"))
	assert.Contains(t, CityVariants("Beersheba"), "Be'er Sheva")
	assert.Equal(t, []string{"Atlantis"}, CityVariants("Atlantis"))

	assert.Contains(t, RegionCities("tel_aviv"), "Jaffa")
	assert.Contains(t, RegionCities("tel_aviv"), "תל אביב")
	assert.Equal(t, RegionCities("tel_aviv"), RegionCities("nowhere"))
	assert.Contains(t, RegionCities("gush_dan"), "Ramat Gan")
}

func TestMatchRegion_FirstTableEntryWins(t *testing.T) {
	for range 50 {
		region, ok := matchRegion(LanguageEnglish, "tel aviv or gush dan, either works")
		assert.True(t, ok)
		assert.Equal(t, "tel_aviv", region)
	}

	region, ok := matchRegion(LanguageHebrew, "משהו בת\"א")
	assert.True(t, ok)
	assert.Equal(t, "tel_aviv", region)

	_, ok = matchRegion(LanguageEnglish, "somewhere in haifa")
	assert.False(t, ok)
}
