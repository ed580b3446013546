package recommend

import (
	"strings"
	"time"
	"unicode"
)

// Language selects the phrase tables and prompt wording for a conversation.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHebrew  Language = "he"
)

// DetectLanguage returns Hebrew when text holds more than three Hebrew
// letters and English otherwise.
func DetectLanguage(text string) Language {
	n := 0
	for _, r := range text {
		if unicode.Is(unicode.Hebrew, r) {
			n++
			if n > 3 {
				return LanguageHebrew
			}
		}
	}
	return LanguageEnglish
}

type phraseCategory int

const (
	phraseWalking phraseCategory = iota
	phraseNearby
	phraseAnywhere
	phraseNow
	phraseTonight
	phraseTomorrow
	phraseWeekend
)

const (
	walkingRadiusMeters = 800
	nearbyRadiusMeters  = 2000
	defaultRegion       = "tel_aviv"
)

// lexicon is the immutable phrase table for one language.
type lexicon struct {
	// prefixes are single letters the language glues onto the next word,
	// e.g. Hebrew ב ("in") in בירושלים. A phrase still matches with one of
	// them attached.
	prefixes string
	phrases  map[phraseCategory][]string
	weekdays map[string]time.Weekday
	regions  []regionTerm
}

// regionTerm maps a phrase to a region key. Order decides which region wins
// when a text names more than one.
type regionTerm struct {
	term   string
	region string
}

var lexicons = map[Language]*lexicon{
	LanguageEnglish: {
		phrases: map[phraseCategory][]string{
			phraseWalking:  {"walking distance", "walkable", "within walking", "short walk", "on foot", "walk to", "walk there"},
			phraseNearby:   {"nearby", "near me", "near here", "close by", "close to me", "around here", "around me", "in the area", "closest", "not far"},
			phraseAnywhere: {"anywhere", "don't care where", "dont care where", "doesn't matter where", "doesnt matter where", "any area", "any location", "willing to travel", "wherever"},
			phraseNow:      {"now", "right now", "asap", "open now", "immediately", "currently open", "at the moment"},
			phraseTonight:  {"tonight", "this evening", "later today", "for dinner today"},
			phraseTomorrow: {"tomorrow"},
			phraseWeekend:  {"weekend", "saturday night", "friday night"},
		},
		weekdays: map[string]time.Weekday{
			"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
			"wednesday": time.Wednesday, "thursday": time.Thursday,
			"friday": time.Friday, "saturday": time.Saturday,
		},
		regions: []regionTerm{
			{"tel aviv", "tel_aviv"}, {"tel-aviv", "tel_aviv"}, {"jaffa", "tel_aviv"}, {"yafo", "tel_aviv"},
			{"gush dan", "gush_dan"}, {"center of the country", "gush_dan"}, {"central israel", "gush_dan"},
		},
	},
	LanguageHebrew: {
		prefixes: "בלמהוש",
		phrases: map[phraseCategory][]string{
			phraseWalking:  {"במרחק הליכה", "ברגל", "הליכה קצרה", "ללכת ברגל"},
			phraseNearby:   {"קרוב אלי", "קרוב לכאן", "קרוב למקום", "לידי", "באזור שלי", "בסביבה", "בקרבת מקום", "ליד הבית"},
			phraseAnywhere: {"לא משנה איפה", "בכל מקום", "לא אכפת לי איפה", "איפה שהוא", "לא משנה המיקום"},
			phraseNow:      {"עכשיו", "כרגע", "מיד", "מייד", "פתוח עכשיו"},
			phraseTonight:  {"הערב", "הלילה", "בערב היום"},
			phraseTomorrow: {"מחר"},
			phraseWeekend:  {"סופ\"ש", "סופש", "סוף השבוע", "סוף שבוע", "סופ״ש"},
		},
		weekdays: map[string]time.Weekday{
			"יום ראשון": time.Sunday, "יום שני": time.Monday, "יום שלישי": time.Tuesday,
			"יום רביעי": time.Wednesday, "יום חמישי": time.Thursday,
			"יום שישי": time.Friday, "שבת": time.Saturday,
			"חמישי": time.Thursday, "שישי": time.Friday,
		},
		regions: []regionTerm{
			{"תל אביב", "tel_aviv"}, {"תל-אביב", "tel_aviv"}, {"יפו", "tel_aviv"}, {"ת\"א", "tel_aviv"}, {"ת״א", "tel_aviv"},
			{"גוש דן", "gush_dan"}, {"המרכז", "gush_dan"},
		},
	},
}

func (l Language) lexicon() *lexicon {
	if lex, ok := lexicons[l]; ok {
		return lex
	}
	return lexicons[LanguageEnglish]
}

// normalizeForMatch lowercases text and rewrites it as space-separated
// tokens with a leading and trailing space, so a phrase lookup for
// " phrase " only hits whole words. Quote marks inside a token survive for
// abbreviations such as ת"א; quotes around a token are dropped.
func normalizeForMatch(text string) string {
	text = strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(' ')
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool { return !isTokenRune(r) }) {
		tok = strings.Trim(tok, "'\"-״׳")
		if tok == "" {
			continue
		}
		b.WriteString(tok)
		b.WriteByte(' ')
	}
	return b.String()
}

func isTokenRune(r rune) bool {
	switch r {
	case '\'', '"', '-', '״', '׳':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// phraseIndex returns the position of the last whole-word occurrence of
// phrase in normalized text, allowing one attached prefix letter, or -1.
func phraseIndex(lang Language, normalized, phrase string) int {
	at := strings.LastIndex(normalized, " "+phrase+" ")
	for _, p := range lang.lexicon().prefixes {
		if i := strings.LastIndex(normalized, " "+string(p)+phrase+" "); i > at {
			at = i
		}
	}
	return at
}

func containsPhrase(lang Language, normalized, phrase string) bool {
	return phraseIndex(lang, normalized, phrase) >= 0
}

// matchCategory returns the first category, in the order given, whose phrase
// set has a hit in text.
func matchCategory(lang Language, text string, order ...phraseCategory) (phraseCategory, bool) {
	norm := normalizeForMatch(text)
	lex := lang.lexicon()
	for _, cat := range order {
		for _, p := range lex.phrases[cat] {
			if containsPhrase(lang, norm, p) {
				return cat, true
			}
		}
	}
	return 0, false
}

// matchWeekday returns the weekday named in text, if any. The last mention
// wins so corrections like "friday, no saturday" work.
func matchWeekday(lang Language, text string) (time.Weekday, bool) {
	norm := normalizeForMatch(text)
	best, bestAt := time.Sunday, -1
	for name, day := range lang.lexicon().weekdays {
		if at := phraseIndex(lang, norm, name); at > bestAt {
			best, bestAt = day, at
		}
	}
	return best, bestAt >= 0
}

// matchRegion returns the region key mentioned in text.
func matchRegion(lang Language, text string) (string, bool) {
	norm := normalizeForMatch(text)
	for _, rt := range lang.lexicon().regions {
		if containsPhrase(lang, norm, rt.term) {
			return rt.region, true
		}
	}
	return "", false
}

// city is one gazetteer entry. Name is the canonical catalog spelling.
type city struct {
	Name     string
	English  []string
	Hebrew   []string
	Variants []string
}

var gazetteer = []city{
	{Name: "Jerusalem", English: []string{"jerusalem"}, Hebrew: []string{"ירושלים"}},
	{Name: "Haifa", English: []string{"haifa"}, Hebrew: []string{"חיפה"}},
	{Name: "Herzliya", English: []string{"herzliya", "herzlia"}, Hebrew: []string{"הרצליה"}},
	{Name: "Ramat Gan", English: []string{"ramat gan"}, Hebrew: []string{"רמת גן", "רמת-גן"}},
	{Name: "Givatayim", English: []string{"givatayim", "givataim"}, Hebrew: []string{"גבעתיים"}},
	{Name: "Holon", English: []string{"holon"}, Hebrew: []string{"חולון"}},
	{Name: "Bat Yam", English: []string{"bat yam"}, Hebrew: []string{"בת ים"}},
	{Name: "Netanya", English: []string{"netanya"}, Hebrew: []string{"נתניה"}},
	{Name: "Ra'anana", English: []string{"ra'anana", "raanana"}, Hebrew: []string{"רעננה"}, Variants: []string{"Raanana"}},
	{Name: "Petah Tikva", English: []string{"petah tikva", "petach tikva", "petah tiqva"}, Hebrew: []string{"פתח תקווה", "פתח תקוה"}, Variants: []string{"Petach Tikva"}},
	{Name: "Rishon LeZion", English: []string{"rishon lezion", "rishon le zion", "rishon"}, Hebrew: []string{"ראשון לציון"}, Variants: []string{"Rishon Le Zion"}},
	{Name: "Kfar Saba", English: []string{"kfar saba"}, Hebrew: []string{"כפר סבא"}},
	{Name: "Rehovot", English: []string{"rehovot"}, Hebrew: []string{"רחובות"}},
	{Name: "Ashdod", English: []string{"ashdod"}, Hebrew: []string{"אשדוד"}},
	{Name: "Beersheba", English: []string{"beersheba", "beer sheva", "be'er sheva"}, Hebrew: []string{"באר שבע"}, Variants: []string{"Be'er Sheva", "Beer Sheva"}},
	{Name: "Eilat", English: []string{"eilat"}, Hebrew: []string{"אילת"}},
	{Name: "Caesarea", English: []string{"caesarea"}, Hebrew: []string{"קיסריה"}},
	{Name: "Nazareth", English: []string{"nazareth"}, Hebrew: []string{"נצרת"}},
	{Name: "Akko", English: []string{"akko", "acco"}, Hebrew: []string{"עכו"}, Variants: []string{"Acre"}},
	{Name: "Tiberias", English: []string{"tiberias"}, Hebrew: []string{"טבריה"}},
}

// regionCities lists the catalog city spellings unioned for a named region.
var regionCities = map[string][]string{
	"tel_aviv": {"Tel Aviv", "Tel Aviv-Yafo", "Tel-Aviv", "Jaffa", "Yafo", "תל אביב", "יפו"},
	"gush_dan": {"Tel Aviv", "Tel Aviv-Yafo", "Jaffa", "Ramat Gan", "Givatayim", "Bnei Brak", "Holon", "Bat Yam", "תל אביב", "רמת גן", "גבעתיים", "חולון", "בת ים"},
}

// matchCity checks the gazetteer for a city mention and returns its
// canonical name.
func matchCity(lang Language, text string) (string, bool) {
	norm := normalizeForMatch(text)
	for _, c := range gazetteer {
		terms := c.English
		if lang == LanguageHebrew {
			terms = c.Hebrew
		}
		for _, t := range terms {
			if containsPhrase(lang, norm, t) {
				return c.Name, true
			}
		}
	}
	return "", false
}

// CityVariants returns every spelling the catalog may use for a city.
// Unknown names are returned as-is.
func CityVariants(name string) []string {
	for _, c := range gazetteer {
		if strings.EqualFold(c.Name, name) {
			out := append([]string{c.Name}, c.Variants...)
			return append(out, c.Hebrew...)
		}
	}
	return []string{name}
}

// RegionCities returns the city spellings that make up region, falling back
// to the default region.
func RegionCities(region string) []string {
	if cities, ok := regionCities[region]; ok {
		return cities
	}
	return regionCities[defaultRegion]
}

// occasionKeywords maps a normalized occasion to words that hint a venue
// suits it. Both languages are listed since venue text can be either.
var occasionKeywords = map[string][]string{
	"date":        {"romantic", "cozy", "intimate", "wine", "candle", "view", "רומנטי", "אינטימי", "יין"},
	"business":    {"quiet", "business", "professional", "meeting", "lunch", "שקט", "עסקי"},
	"family":      {"family", "kids", "children", "spacious", "casual", "משפחה", "ילדים"},
	"friends":     {"bar", "lively", "drinks", "sharing", "cocktail", "group", "בר", "קוקטייל", "חברים"},
	"celebration": {"celebration", "birthday", "festive", "champagne", "chef", "tasting", "חגיגה", "יום הולדת"},
	"casual":      {"casual", "quick", "relaxed", "street food", "counter", "קליל", "מהיר"},
	"solo":        {"bar seating", "counter", "quick", "casual", "cafe", "בר", "קפה"},
}
