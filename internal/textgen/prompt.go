package textgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
)

// MaxPostLength is the character budget given to the model.
const MaxPostLength = 280

// Prompt is a system/user message pair.
type Prompt struct {
	System string
	User   string
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func joinOr(v []string, def string) string {
	if len(v) == 0 {
		return def
	}
	return strings.Join(v, ", ")
}

// BuildPrompt renders the profile and publication day into a chat prompt.
func BuildPrompt(meta models.ProfileMetadata, day time.Time) Prompt {
	industry := orDefault(meta.Industry, "unknown")
	lang := orDefault(meta.PostLanguage, "pl")
	date := common.FormatDate(day)

	var b strings.Builder
	fmt.Fprintf(&b, "You are a social media marketing expert specialising in the %s industry.\n\n", industry)
	b.WriteString("Profile:\n")
	line := func(label, value string) { fmt.Fprintf(&b, "- %s: %s\n", label, value) }
	line("Industry", industry)
	line("Target audience", orDefault(meta.TargetAudience, "general"))
	line("Preferred content types", joinOr(meta.ContentTypes, "various"))
	line("Tone", joinOr(meta.Tone, "neutral"))
	line("Keywords", meta.Keywords)
	line("Brand values", meta.BrandValues)
	line("Unique selling points", meta.UniqueSellingPoints)
	line("Hashtag strategy", meta.HashtagStrategy)
	line("Content length", orDefault(meta.ContentLength, "medium"))
	line("Content style", meta.ContentStyle)
	line("Call to action", meta.CallToAction)
	line("Use emoticons", orDefault(meta.Emoticons, "no"))
	line("Language style", orDefault(meta.LanguageStyle, "formal"))
	line("Competitors", meta.Competitors)
	line("Marketing goals", meta.MarketingGoals)
	line("Image style", meta.PreferredImageStyle)
	line("Post language", lang)
	fmt.Fprintf(&b, "\nWrite a short, engaging post (max %d characters) in %s, ready to publish.\n\n", MaxPostLength, lang)
	fmt.Fprintf(&b, "Publication date: %s\n\n", date)
	b.WriteString("Response format:\n")
	fmt.Fprintf(&b, "[post body in %s]\n#hashtag1 #hashtag2 #hashtag3\n", lang)

	return Prompt{
		System: b.String(),
		User:   fmt.Sprintf("Write a social media post in %s for a company in the %s industry for %s.", lang, industry, date),
	}
}

// SplitHashtags separates the post body from its hashtags. Hashtags are
// removed from the body wherever they appear; lines left empty are dropped.
func SplitHashtags(text string) (string, []string) {
	var (
		body []string
		tags []string
	)
	for _, ln := range strings.Split(strings.TrimSpace(text), "\n") {
		var kept []string
		for _, w := range strings.Fields(ln) {
			if len(w) > 1 && strings.HasPrefix(w, "#") {
				tags = append(tags, strings.TrimRight(w, ".,;:!?"))
				continue
			}
			kept = append(kept, w)
		}
		if len(kept) > 0 {
			body = append(body, strings.Join(kept, " "))
		}
	}
	return strings.Join(body, "\n"), tags
}
