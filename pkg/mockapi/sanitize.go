package mockapi

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/pashagolub/flasharena/pkg/data"
)

// cardPolicy keeps the formatting a rich-text editor produces and drops
// anything executable
var cardPolicy = bluemonday.UGCPolicy().
	AllowElements("img").
	AllowAttrs("src", "alt").OnElements("img").
	AllowElements("math", "span").
	AllowAttrs("class").OnElements("span")

// sanitizeCard validates the card and cleans its question and answer
func sanitizeCard(in *data.FlashcardInput) error {
	if err := in.Validate(); err != nil {
		return badRequest("%v", err)
	}
	in.Question = cardPolicy.Sanitize(in.Question)
	in.Answer = cardPolicy.Sanitize(in.Answer)
	if strings.TrimSpace(in.Question) == "" || strings.TrimSpace(in.Answer) == "" {
		return badRequest("input is empty or unsafe")
	}
	return nil
}
