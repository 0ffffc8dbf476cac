package review

import (
	"strings"
	"text/template"

	"github.com/room4-2/OpenFeedback/store"
	"github.com/room4-2/OpenFeedback/transcript"
)

const (
	defaultRestaurantName = "this restaurant"
	defaultFoodItems      = "various items"
)

var reviewPrompt = template.Must(template.New("review").Parse(`You are generating a punchy Google Maps review from a voice feedback transcript.

TRANSCRIPT:
{{.Transcript}}

RESTAURANT: {{.Restaurant}}
ITEMS ORDERED: {{.Items}}

INSTRUCTIONS:
- Write 80-120 words MAX (Google reviews work best when concise)
- First person, natural voice
- Lead with overall vibe, then 2-3 specific highlights
- Use short, punchy sentences - avoid overly flowery language
- Include specific items they mentioned positively
- Star rating based on sentiment:
  * 5 stars = loved it, multiple highlights, would return
  * 4 stars = really good, minor room for improvement
  * 3 stars = decent but notable issues
  * 2 stars = disappointed, multiple problems
  * 1 star = poor experience
- If they mention negatives, include them briefly but don't dwell
- End with a simple recommendation or final thought
- NO generic phrases like "hit the spot" or "from start to finish"

RESPOND WITH ONLY THIS JSON (no markdown, no extra text):
{"star_rating": 5, "review_text": "Your concise review here"}`))

var summaryPrompt = template.Must(template.New("summary").Parse(`Please provide a concise summary (2-3 sentences) of this customer review or transcript:

{{.}}

Summary:`))

type reviewPromptData struct {
	Transcript string
	Restaurant string
	Items      string
}

// BuildPrompt renders the review generation prompt for a transcript
func BuildPrompt(t transcript.Transcript, order store.OrderContext) string {
	data := reviewPromptData{
		Transcript: t.String(),
		Restaurant: defaultRestaurantName,
		Items:      defaultFoodItems,
	}
	if name := strings.TrimSpace(order.RestaurantName); name != "" {
		data.Restaurant = name
	}
	if len(order.FoodItems) > 0 {
		data.Items = strings.Join(order.FoodItems, ", ")
	}

	var b strings.Builder
	// Execute cannot fail: the data only has string fields the template uses
	_ = reviewPrompt.Execute(&b, data)
	return b.String()
}

// BuildSummaryPrompt renders the summary prompt for free text
func BuildSummaryPrompt(text string) string {
	var b strings.Builder
	_ = summaryPrompt.Execute(&b, text)
	return b.String()
}
