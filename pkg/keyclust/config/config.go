package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/keyclust/pkg/keyclust/aggregate"
	"github.com/cognicore/keyclust/pkg/keyclust/category"
	"github.com/cognicore/keyclust/pkg/keyclust/intent"
	"github.com/cognicore/keyclust/pkg/keyclust/internalerr"
	"github.com/cognicore/keyclust/pkg/keyclust/merge"
	"github.com/cognicore/keyclust/pkg/keyclust/title"
)

// Rules is the YAML rules file. Every field has a built-in default, so a
// file only needs the values it changes.
type Rules struct {
	SimilarityThreshold float64        `yaml:"similarity_threshold"`
	PillarVolume        float64        `yaml:"pillar_volume"`
	MaxRows             int            `yaml:"max_rows"`
	Prefilter           bool           `yaml:"prefilter"`
	NoCategory          string         `yaml:"no_category"`
	StripPrefixes       []string       `yaml:"strip_prefixes"`
	StrongKey           StrongKey      `yaml:"strong_key"`
	Intents             []IntentRule   `yaml:"intents"`
	IntentFallback      IntentFallback `yaml:"intent_fallback"`
	Titles              []TitleRule    `yaml:"titles"`
	TitleMaxLen         int            `yaml:"title_max_len"`
	Columns             Columns        `yaml:"columns"`
}

// StrongKey tunes prefix mining.
type StrongKey struct {
	Words         int `yaml:"words"`
	MinCount      int `yaml:"min_count"`
	CategoryWords int `yaml:"category_words"`
}

// IntentRule maps keywords to an intent label.
type IntentRule struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// IntentFallback is the word-count rule used when no keyword matches.
type IntentFallback struct {
	LongMinWords  int    `yaml:"long_min_words"`
	Long          string `yaml:"long"`
	ShortMaxWords int    `yaml:"short_max_words"`
	Short         string `yaml:"short"`
	Default       string `yaml:"default"`
}

// TitleRule is a title template; Format must contain {phrase}.
type TitleRule struct {
	Keyword string `yaml:"keyword"`
	Remove  string `yaml:"remove,omitempty"`
	Format  string `yaml:"format"`
}

// Columns optionally names the phrase and volume header cells. When empty
// the first two columns are used.
type Columns struct {
	Phrase string `yaml:"phrase,omitempty"`
	Volume string `yaml:"volume,omitempty"`
}

// DefaultMaxRows bounds the quadratic merge pass.
const DefaultMaxRows = 5000

// Default returns the built-in rules.
func Default() *Rules {
	r := &Rules{
		SimilarityThreshold: merge.DefaultThreshold,
		PillarVolume:        aggregate.DefaultPillarVolume,
		MaxRows:             DefaultMaxRows,
		Prefilter:           true,
		TitleMaxLen:         title.DefaultMaxLen,
	}

	cat := category.DefaultOptions()
	r.NoCategory = cat.NoCategory
	r.StripPrefixes = cat.StripPrefixes
	r.StrongKey = StrongKey{Words: cat.KeyWords, MinCount: cat.MinCount, CategoryWords: cat.CategoryWords}

	for _, rule := range intent.DefaultRules() {
		r.Intents = append(r.Intents, IntentRule{Label: string(rule.Label), Keywords: rule.Keywords})
	}
	fb := intent.DefaultFallback()
	r.IntentFallback = IntentFallback{
		LongMinWords:  fb.LongMinWords,
		Long:          string(fb.Long),
		ShortMaxWords: fb.ShortMaxWords,
		Short:         string(fb.Short),
		Default:       string(fb.Default),
	}

	for _, rule := range title.DefaultRules() {
		r.Titles = append(r.Titles, TitleRule{Keyword: rule.Keyword, Remove: rule.Remove, Format: rule.Format})
	}
	return r
}

// LoadRules reads a YAML rules file on top of the defaults and validates
// the result.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRules(data)
}

// ParseRules decodes YAML rules on top of the defaults and validates them.
func ParseRules(data []byte) (*Rules, error) {
	r := Default()
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Marshal renders the rules as YAML.
func (r *Rules) Marshal() ([]byte, error) {
	return yaml.Marshal(r)
}

// Validate checks ranges, labels and templates.
func (r *Rules) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if r.SimilarityThreshold <= 0 || r.SimilarityThreshold > 1 {
		return invalid("similarity_threshold %v must be in (0, 1]", r.SimilarityThreshold)
	}
	if r.PillarVolume < 0 {
		return invalid("pillar_volume %v must not be negative", r.PillarVolume)
	}
	if r.MaxRows < 0 {
		return invalid("max_rows %d must not be negative", r.MaxRows)
	}
	if r.StrongKey.Words < 1 || r.StrongKey.MinCount < 1 || r.StrongKey.CategoryWords < 1 {
		return invalid("strong_key values must be positive")
	}
	if r.StrongKey.CategoryWords > r.StrongKey.Words {
		return invalid("strong_key.category_words %d exceeds words %d", r.StrongKey.CategoryWords, r.StrongKey.Words)
	}
	if strings.TrimSpace(r.NoCategory) == "" {
		return invalid("no_category must not be blank")
	}
	for i, rule := range r.Intents {
		if _, err := intent.ParseLabel(rule.Label); err != nil {
			return fmt.Errorf("intents[%d]: %w", i, err)
		}
	}
	for _, l := range []string{r.IntentFallback.Long, r.IntentFallback.Short, r.IntentFallback.Default} {
		if _, err := intent.ParseLabel(l); err != nil {
			return fmt.Errorf("intent_fallback: %w", err)
		}
	}
	if r.IntentFallback.ShortMaxWords >= r.IntentFallback.LongMinWords {
		return invalid("intent_fallback.short_max_words must be below long_min_words")
	}
	for i, rule := range r.Titles {
		if rule.Keyword == "" {
			return invalid("titles[%d] has no keyword", i)
		}
		if !strings.Contains(rule.Format, title.Placeholder) {
			return invalid("titles[%d] format %q lacks %s", i, rule.Format, title.Placeholder)
		}
	}
	if r.TitleMaxLen < 1 {
		return invalid("title_max_len must be positive")
	}
	return nil
}
