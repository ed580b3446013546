package recommend

import (
	"fmt"
	"strings"
)

const summaryPromptRunes = 200

func buildExtractionPrompt(conversation string) string {
	return `You extract restaurant preferences from a conversation. The conversation may be in English or Hebrew; always answer in English.

Return ONLY a JSON object with exactly these fields:
{
  "cuisine": [list of cuisines or dishes, e.g. "sushi", "italian", "hummus"],
  "occasion": one of "date", "business", "family", "friends", "celebration", "casual", "solo" or "",
  "vibe": [atmosphere words, e.g. "cozy", "lively", "quiet", "outdoor"],
  "budget": one of "cheap", "moderate", "expensive" or "",
  "dietary": [restrictions, e.g. "vegan", "vegetarian", "kosher", "gluten-free"]
}
Use empty lists and empty strings for anything the user did not say. Do not guess.

Conversation:
` + conversation
}

func buildSelectionPrompt(lang Language, candidates []RankedVenue, cc *ConversationContext) string {
	var list strings.Builder
	for i, c := range candidates {
		list.WriteString(formatCandidate(lang, i+1, c))
		list.WriteByte('\n')
	}

	if lang == LanguageHebrew {
		return `אתה ממליץ מסעדות מקומי שמכיר היטב את העיר. בחר בדיוק 3 מסעדות מהרשימה שמתאימות ביותר למה שהמשתמש ביקש.

לכל בחירה כתוב סיבה קצרה (משפט אחד או שניים) בעברית, שמתייחסת ישירות למה שהמשתמש ביקש בשיחה. הימנע מניסוחים שיווקיים וכלליים כמו "חוויה קולינרית בלתי נשכחת".

השיחה:
` + cc.ConversationText + `

מסעדות מועמדות:
` + list.String() + `
החזר JSON בלבד, במבנה:
{"recommendations": [{"id": "<מזהה>", "reason": "<סיבה>"}]}`
	}

	return `You are a local restaurant expert who knows the city well. Pick exactly 3 restaurants from the list that best fit what the user asked for.

For each pick write a short reason (1-2 sentences) that refers to what this user specifically asked for in the conversation. Avoid generic marketing phrases like "an unforgettable culinary experience".

Conversation:
` + cc.ConversationText + `

Candidate restaurants:
` + list.String() + `
Return ONLY JSON in this shape:
{"recommendations": [{"id": "<id>", "reason": "<reason>"}]}`
}

func formatCandidate(lang Language, n int, c RankedVenue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s [id: %s]", n, c.Name, c.ID)
	if c.Rating > 0 {
		fmt.Fprintf(&b, " | rating %.1f (%d reviews)", c.Rating, c.ReviewCount)
	}
	if c.PriceLevel > 0 {
		fmt.Fprintf(&b, " | price %s", strings.Repeat("₪", c.PriceLevel))
	}
	if len(c.Categories) > 0 {
		fmt.Fprintf(&b, " | %s", strings.Join(c.Categories, ", "))
	}
	if c.DistanceMeters != nil {
		if lang == LanguageHebrew {
			fmt.Fprintf(&b, " | %s", formatDistanceHebrew(*c.DistanceMeters))
		} else {
			fmt.Fprintf(&b, " | %s away", formatDistance(*c.DistanceMeters))
		}
	}
	if c.Summary != "" {
		fmt.Fprintf(&b, "\n   %s", truncateRunes(c.Summary, summaryPromptRunes))
	}
	return b.String()
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(meters+0.5))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

func formatDistanceHebrew(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d מטר", int(meters+0.5))
	}
	return fmt.Sprintf("%.1f ק\"מ", meters/1000)
}

func truncateRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

var fallbackReasons = map[Language][]string{
	LanguageEnglish: {
		"A highly rated spot that fits what you're looking for.",
		"A strong match for your request with consistently good reviews.",
		"Well liked by diners and a good fit for your plans.",
	},
	LanguageHebrew: {
		"מקום עם דירוג גבוה שמתאים למה שחיפשת.",
		"התאמה טובה לבקשה שלך עם ביקורות טובות לאורך זמן.",
		"מקום אהוב על סועדים שמתאים לתוכניות שלך.",
	},
}

// fallbackReason returns the generic reason for the i-th fallback slot.
func fallbackReason(lang Language, i int) string {
	reasons, ok := fallbackReasons[lang]
	if !ok {
		reasons = fallbackReasons[LanguageEnglish]
	}
	return reasons[i%len(reasons)]
}
