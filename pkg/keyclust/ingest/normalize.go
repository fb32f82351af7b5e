package ingest

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// invisibleMarks are the zero-width joiner/non-joiner and the LTR/RTL marks
// that keyword tools paste into Persian phrases.
var invisibleMarks = runes.Predicate(func(r rune) bool {
	switch r {
	case '\u200c', '\u200d', '\u200e', '\u200f':
		return true
	}
	return false
})

func isSeparator(r rune) bool {
	return r == '-' || r == '_' || r == '/'
}

// Normalize canonicalizes a raw phrase into its comparison key:
// invisible marks removed, separators turned into spaces, runs of
// whitespace collapsed, trimmed and lowercased.
//
// Normalize is total and idempotent.
func Normalize(phrase string) string {
	t := transform.Chain(
		runes.Remove(invisibleMarks),
		runes.Map(func(r rune) rune {
			if isSeparator(r) {
				return ' '
			}
			return r
		}),
	)
	cleaned, _, _ := transform.String(t, phrase)
	return strings.ToLower(strings.Join(strings.Fields(cleaned), " "))
}

// NormalizeValue coerces an arbitrary cell value to a string before
// normalizing it. A nil value normalizes to the empty string.
func NormalizeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return Normalize(val)
	default:
		return Normalize(fmt.Sprint(val))
	}
}

// Words splits a normalized phrase into its space separated words.
func Words(normalized string) []string {
	return strings.Fields(normalized)
}

// TitleCase capitalizes the first letter of every word and lowercases the
// rest. Words follow Unicode word boundaries, so digits and apostrophes stay
// inside a word: "iphone13pro" gives "Iphone13pro" and "o'reilly" gives
// "O'reilly". Scripts without case, such as Persian, pass through unchanged.
func TitleCase(s string) string {
	return cases.Title(language.Und).String(s)
}
