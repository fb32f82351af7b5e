// Package title proposes page titles for search phrases.
package title

import (
	"strings"
	"unicode/utf8"

	"github.com/cognicore/keyclust/pkg/keyclust/ingest"
)

// Placeholder marks where the phrase goes in a rule's Format.
const Placeholder = "{phrase}"

// DefaultMaxLen caps fallback titles, in characters.
const DefaultMaxLen = 60

// Rule rewrites a phrase containing Keyword. Remove, when set, is cut out of
// the phrase before it is substituted into Format.
type Rule struct {
	Keyword string
	Remove  string
	Format  string
}

// DefaultRules returns the built-in Persian title templates.
func DefaultRules() []Rule {
	return []Rule{
		{Keyword: "طرز", Remove: "طرز تهیه", Format: "طرز تهیه {phrase} در خانه"},
		{Keyword: "بهترین", Format: "{phrase} + مقایسه 1404"},
		{Keyword: "خرید", Remove: "خرید", Format: "خرید {phrase} با گارانتی"},
	}
}

// Suggester applies the first matching rule, or title-cases and truncates
// the phrase when none match.
type Suggester struct {
	rules  []Rule
	maxLen int
}

// NewSuggester creates a suggester. maxLen <= 0 uses DefaultMaxLen.
func NewSuggester(rules []Rule, maxLen int) *Suggester {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Suggester{rules: rules, maxLen: maxLen}
}

// Default creates a suggester with the built-in rules.
func Default() *Suggester {
	return NewSuggester(DefaultRules(), DefaultMaxLen)
}

// Suggest returns a title for a normalized phrase.
func (s *Suggester) Suggest(normalized string) string {
	for _, rule := range s.rules {
		if rule.Keyword == "" || !strings.Contains(normalized, rule.Keyword) {
			continue
		}
		phrase := normalized
		if rule.Remove != "" {
			phrase = strings.Join(strings.Fields(strings.ReplaceAll(phrase, rule.Remove, "")), " ")
		}
		return strings.ReplaceAll(rule.Format, Placeholder, phrase)
	}
	return truncate(ingest.TitleCase(normalized), s.maxLen)
}

// truncate keeps the first n runes and drops spaces left dangling at the
// cut, so a title never ends in a space.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimRight(string(r[:n]), " ")
}
