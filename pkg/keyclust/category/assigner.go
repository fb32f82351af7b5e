package category

import (
	"strings"

	"github.com/cognicore/keyclust/pkg/keyclust/ingest"
)

// DefaultNoCategory labels phrases that are empty once lead words are
// stripped.
const DefaultNoCategory = "بدون دسته"

// Options configures an Assigner.
type Options struct {
	// StripPrefixes are lead words removed before mining; the first match
	// wins and only one is removed.
	StripPrefixes []string
	// KeyWords is the length of a candidate prefix, in words.
	KeyWords int
	// MinCount is how often a prefix must occur to become a strong key.
	MinCount int
	// CategoryWords is how many words of a strong key name the category.
	CategoryWords int
	// NoCategory is the label for phrases with nothing left after stripping.
	NoCategory string
}

// DefaultOptions returns the built-in Persian configuration.
func DefaultOptions() Options {
	return Options{
		StripPrefixes: []string{"طرز تهیه", "خرید", "قیمت", "بهترین"},
		KeyWords:      3,
		MinCount:      2,
		CategoryWords: 2,
		NoCategory:    DefaultNoCategory,
	}
}

// StrongKey is a recurring prefix and the number of phrases starting with it.
type StrongKey struct {
	Key   string
	Count int
}

// Assignment is the category chosen for one phrase.
type Assignment struct {
	Stripped string
	Category string
	// Key is the strong key that decided the category, if any.
	Key string
}

// Assigner groups phrases into categories by shared prefixes.
type Assigner struct {
	opts Options
}

// NewAssigner creates an assigner; zero numeric options take the defaults.
func NewAssigner(opts Options) *Assigner {
	def := DefaultOptions()
	if opts.KeyWords <= 0 {
		opts.KeyWords = def.KeyWords
	}
	if opts.MinCount <= 0 {
		opts.MinCount = def.MinCount
	}
	if opts.CategoryWords <= 0 {
		opts.CategoryWords = def.CategoryWords
	}
	if opts.NoCategory == "" {
		opts.NoCategory = def.NoCategory
	}
	return &Assigner{opts: opts}
}

// NoCategory returns the sentinel label.
func (a *Assigner) NoCategory() string {
	return a.opts.NoCategory
}

// Strip removes the first configured lead word found at the start of the
// phrase. Lead words only match whole words.
func (a *Assigner) Strip(normalized string) string {
	for _, p := range a.opts.StripPrefixes {
		if p == "" {
			continue
		}
		if rest, ok := cutWordPrefix(normalized, p); ok {
			return strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(normalized)
}

// StrongKeys counts the KeyWords-word prefix of every stripped phrase long
// enough to have one and returns those seen at least MinCount times, in
// the order they were first seen.
func (a *Assigner) StrongKeys(stripped []string) []StrongKey {
	counts := make(map[string]int)
	var order []string
	for _, s := range stripped {
		words := ingest.Words(s)
		if len(words) < a.opts.KeyWords {
			continue
		}
		key := strings.Join(words[:a.opts.KeyWords], " ")
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	var keys []StrongKey
	for _, key := range order {
		if counts[key] >= a.opts.MinCount {
			keys = append(keys, StrongKey{Key: key, Count: counts[key]})
		}
	}
	return keys
}

// Assign chooses a category for every normalized phrase. Strong keys are
// tried in discovery order and the first key the stripped phrase starts
// with wins, so "x y z" claims "x y zz 1" when it was seen first. Otherwise
// the first word names the category.
func (a *Assigner) Assign(normalized []string) []Assignment {
	stripped := make([]string, len(normalized))
	for i, n := range normalized {
		stripped[i] = a.Strip(n)
	}
	keys := a.StrongKeys(stripped)

	out := make([]Assignment, len(normalized))
	for i, s := range stripped {
		out[i] = a.assignOne(s, keys)
	}
	return out
}

func (a *Assigner) assignOne(stripped string, keys []StrongKey) Assignment {
	for _, k := range keys {
		if strings.HasPrefix(stripped, k.Key) {
			words := ingest.Words(k.Key)
			n := min(a.opts.CategoryWords, len(words))
			return Assignment{
				Stripped: stripped,
				Category: ingest.TitleCase(strings.Join(words[:n], " ")),
				Key:      k.Key,
			}
		}
	}

	words := ingest.Words(stripped)
	if len(words) == 0 {
		return Assignment{Stripped: stripped, Category: a.opts.NoCategory}
	}
	return Assignment{Stripped: stripped, Category: ingest.TitleCase(words[0])}
}

// cutWordPrefix reports whether s starts with the whole words of prefix and
// returns what follows.
func cutWordPrefix(s, prefix string) (string, bool) {
	if s == prefix {
		return "", true
	}
	if rest, ok := strings.CutPrefix(s, prefix+" "); ok {
		return rest, true
	}
	return "", false
}
