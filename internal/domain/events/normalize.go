package events

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var germanFolds = strings.NewReplacer("ß", "ss", "ẞ", "ss")

// foldDiacritics strips combining marks ("Märkte" -> "Markte"). Transformers
// carry state, so a fresh chain is built per call.
func foldDiacritics(s string) string {
	s = germanFolds.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// normalizeKey lower-cases, folds diacritics and turns every run of
// punctuation or whitespace into one space.
func normalizeKey(s string) string {
	folded := strings.ToLower(foldDiacritics(strings.TrimSpace(s)))
	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Slugify produces the URL slug used for single-event lookups.
func Slugify(title string) string {
	return strings.ReplaceAll(normalizeKey(title), " ", "-")
}

// IdentityKey is the composite dedup key: normalized title, venue and date.
func IdentityKey(e Event) string {
	return normalizeKey(e.Title) + "|" + normalizeKey(e.Venue) + "|" + strings.TrimSpace(e.Date)
}
