package imagegen

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/socialmaster/internal/server/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// BuildPrompt renders the image prompt for a post. Diacritics are stripped
// when the post language is one of stripLangs.
func BuildPrompt(content string, meta models.ProfileMetadata, stripLangs []string) string {
	style := orDefault(meta.PreferredImageStyle, "modern")
	palette := orDefault(meta.ColorPalette, "Ocean Blue")
	lang := orDefault(meta.PostLanguage, "en")

	prompt := fmt.Sprintf(
		"Create a professional %s style image for a social media post about: %s. "+
			"Industry: %s. Brand values: %s. Color palette: %s. "+
			"Make it visually appealing and suitable for social media.",
		style, strings.TrimSpace(content), meta.Industry, meta.BrandValues, palette)

	if slices.Contains(stripLangs, lang) {
		prompt = StripDiacritics(prompt)
	}
	return prompt
}

// StripDiacritics removes combining marks after canonical decomposition.
// Letters without a decomposition (for example "ł") are left as they are.
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
