package config

import (
	"fmt"

	"github.com/cognicore/keyclust/pkg/keyclust/aggregate"
	"github.com/cognicore/keyclust/pkg/keyclust/category"
	"github.com/cognicore/keyclust/pkg/keyclust/intent"
	"github.com/cognicore/keyclust/pkg/keyclust/merge"
	"github.com/cognicore/keyclust/pkg/keyclust/title"
)

// Loader loads the rules file and constructs components
type Loader struct {
	RulesPath string
}

// Components holds the pipeline stages built from one set of rules
type Components struct {
	Rules      *Rules
	Merger     *merge.Merger
	Classifier *intent.Classifier
	Suggester  *title.Suggester
	Assigner   *category.Assigner
	Aggregator *aggregate.Aggregator
}

// Load reads the rules file, or uses the defaults when RulesPath is empty
func (l *Loader) Load() (*Components, error) {
	rules := Default()
	if l.RulesPath != "" {
		loaded, err := LoadRules(l.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		rules = loaded
	}
	return Build(rules), nil
}

// Build constructs components from validated rules
func Build(r *Rules) *Components {
	intents := make([]intent.Rule, 0, len(r.Intents))
	for _, ir := range r.Intents {
		intents = append(intents, intent.Rule{Label: intent.Label(ir.Label), Keywords: ir.Keywords})
	}
	fallback := intent.Fallback{
		LongMinWords:  r.IntentFallback.LongMinWords,
		Long:          intent.Label(r.IntentFallback.Long),
		ShortMaxWords: r.IntentFallback.ShortMaxWords,
		Short:         intent.Label(r.IntentFallback.Short),
		Default:       intent.Label(r.IntentFallback.Default),
	}

	titles := make([]title.Rule, 0, len(r.Titles))
	for _, tr := range r.Titles {
		titles = append(titles, title.Rule{Keyword: tr.Keyword, Remove: tr.Remove, Format: tr.Format})
	}

	return &Components{
		Rules: r,
		Merger: merge.New(merge.Options{
			Threshold: r.SimilarityThreshold,
			Prefilter: r.Prefilter,
			MaxRows:   r.MaxRows,
		}),
		Classifier: intent.NewClassifier(intents, fallback),
		Suggester:  title.NewSuggester(titles, r.TitleMaxLen),
		Assigner: category.NewAssigner(category.Options{
			StripPrefixes: r.StripPrefixes,
			KeyWords:      r.StrongKey.Words,
			MinCount:      r.StrongKey.MinCount,
			CategoryWords: r.StrongKey.CategoryWords,
			NoCategory:    r.NoCategory,
		}),
		Aggregator: aggregate.New(r.PillarVolume),
	}
}
