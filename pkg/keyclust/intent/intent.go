// Package intent labels search phrases by searcher purpose using ordered
// keyword rules with a word-count fallback.
package intent

import (
	"fmt"
	"strings"

	"github.com/cognicore/keyclust/pkg/keyclust/ingest"
	"github.com/cognicore/keyclust/pkg/keyclust/internalerr"
)

// Label is a searcher intent.
type Label string

const (
	Transactional Label = "Transactional"
	Commercial    Label = "Commercial"
	Informational Label = "Informational"
	Navigational  Label = "Navigational"
)

// Labels lists every intent in rule priority order.
var Labels = []Label{Transactional, Commercial, Informational, Navigational}

// ParseLabel validates a label read from configuration.
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: unknown intent %q", internalerr.ErrInvalidConfig, s)
}

// Rule assigns Label when the phrase contains any of Keywords.
type Rule struct {
	Label    Label
	Keywords []string
}

// Fallback decides the label from the word count when no rule matched.
type Fallback struct {
	LongMinWords  int
	Long          Label
	ShortMaxWords int
	Short         Label
	Default       Label
}

// DefaultRules returns the built-in Persian keyword rules.
func DefaultRules() []Rule {
	return []Rule{
		{Label: Transactional, Keywords: []string{"خرید", "قیمت", "ارزان", "تخفیف"}},
		{Label: Commercial, Keywords: []string{"بهترین", "مقایسه", "بررسی"}},
		{Label: Informational, Keywords: []string{"طرز", "چگونه", "آموزش"}},
	}
}

// DefaultFallback returns the built-in word-count fallback.
func DefaultFallback() Fallback {
	return Fallback{
		LongMinWords:  5,
		Long:          Informational,
		ShortMaxWords: 2,
		Short:         Navigational,
		Default:       Commercial,
	}
}

// Classifier evaluates rules in order; the first match wins.
type Classifier struct {
	rules    []Rule
	fallback Fallback
}

// NewClassifier creates a classifier from ordered rules.
func NewClassifier(rules []Rule, fallback Fallback) *Classifier {
	return &Classifier{rules: rules, fallback: fallback}
}

// Default creates a classifier with the built-in rules.
func Default() *Classifier {
	return NewClassifier(DefaultRules(), DefaultFallback())
}

// Classify labels a normalized phrase. It is total: every input, including
// the empty string, gets a label.
func (c *Classifier) Classify(normalized string) Label {
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(normalized, kw) {
				return rule.Label
			}
		}
	}

	words := len(ingest.Words(normalized))
	switch {
	case words >= c.fallback.LongMinWords:
		return c.fallback.Long
	case words <= c.fallback.ShortMaxWords:
		return c.fallback.Short
	default:
		return c.fallback.Default
	}
}
