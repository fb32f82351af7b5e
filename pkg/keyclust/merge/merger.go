package merge

import (
	"context"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/cognicore/keyclust/pkg/keyclust/ingest"
	"github.com/cognicore/keyclust/pkg/keyclust/internalerr"
)

// DefaultThreshold is the similarity ratio a pair must exceed to merge.
const DefaultThreshold = 0.85

// Options configures a Merger.
type Options struct {
	// Threshold is the exclusive lower bound on the similarity ratio.
	Threshold float64
	// Prefilter skips pairs whose cheap upper bounds already rule out a
	// merge. It never changes the outcome.
	Prefilter bool
	// MaxRows rejects larger inputs before any comparison; 0 disables it.
	MaxRows int
}

// Merger collapses near-duplicate phrases. The all-pairs scan is O(n²);
// callers bound it with MaxRows or a context deadline.
type Merger struct {
	threshold float64
	prefilter bool
	maxRows   int
}

// New creates a Merger. A zero threshold falls back to DefaultThreshold.
func New(opts Options) *Merger {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Merger{
		threshold: threshold,
		prefilter: opts.Prefilter,
		maxRows:   opts.MaxRows,
	}
}

// Merged is one equivalence class collapsed to its representative.
type Merged struct {
	Representative       string
	Normalized           string
	RepresentativeVolume float64
	TotalVolume          float64
	// Members are input indices, ascending.
	Members []int
}

// Size returns the number of input phrases in the class.
func (m Merged) Size() int {
	return len(m.Members)
}

// Stats describes the work done by a Merge call.
type Stats struct {
	Pairs     int // unordered pairs considered
	Compared  int // pairs whose full ratio was computed
	Prefilter int // pairs ruled out by an upper bound
	Linked    int // pairs skipped because they already shared a class
}

// Result is the outcome of a Merge call.
type Result struct {
	Records []Merged
	// MergedCount is the number of phrases folded into another one.
	MergedCount int
	Stats       Stats
}

// Merge compares every pair of records and unions those whose ratio is
// above the threshold, then collapses each class. Records are emitted in
// order of their first member.
func (m *Merger) Merge(ctx context.Context, records []ingest.Record) (Result, error) {
	n := len(records)
	if m.maxRows > 0 && n > m.maxRows {
		return Result{}, fmt.Errorf("%w: %d rows exceeds the limit of %d", internalerr.ErrTooManyRows, n, m.maxRows)
	}

	seqs := make([][]string, n)
	for i, r := range records {
		seqs[i] = splitRunes(r.Normalized)
	}

	ds := NewDisjointSet(n)
	var stats Stats
	matcher := difflib.NewMatcher(nil, nil)

	// b is fixed per outer step so its index is built once per row.
	for j := 1; j < n; j++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("merge interrupted at row %d: %w", j, err)
		}
		matcher.SetSeq2(seqs[j])
		for i := 0; i < j; i++ {
			stats.Pairs++
			if ds.Connected(i, j) {
				stats.Linked++
				continue
			}
			if m.prefilter && lengthBound(len(seqs[i]), len(seqs[j])) <= m.threshold {
				stats.Prefilter++
				continue
			}
			matcher.SetSeq1(seqs[i])
			if m.prefilter && matcher.QuickRatio() <= m.threshold {
				stats.Prefilter++
				continue
			}
			stats.Compared++
			if matcher.Ratio() > m.threshold {
				ds.Union(i, j)
			}
		}
	}

	classes := ds.Classes()
	out := make([]Merged, 0, len(classes))
	for _, members := range classes {
		out = append(out, collapse(records, members))
	}

	return Result{
		Records:     out,
		MergedCount: n - len(classes),
		Stats:       stats,
	}, nil
}

// collapse picks the highest-volume member (lowest index on ties) and sums
// the class volume.
func collapse(records []ingest.Record, members []int) Merged {
	best := members[0]
	var total float64
	for _, idx := range members {
		total += records[idx].Volume
		if records[idx].Volume > records[best].Volume {
			best = idx
		}
	}
	rep := records[best]
	return Merged{
		Representative:       rep.Raw,
		Normalized:           rep.Normalized,
		RepresentativeVolume: rep.Volume,
		TotalVolume:          total,
		Members:              append([]int(nil), members...),
	}
}

// Ratio returns the sequence-alignment similarity of two strings in [0, 1],
// computed over runes from their longest matching blocks.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(splitRunes(a), splitRunes(b)).Ratio()
}

// lengthBound is the ratio two sequences would have if the shorter one
// matched entirely.
func lengthBound(la, lb int) float64 {
	if la+lb == 0 {
		return 1
	}
	return 2 * float64(min(la, lb)) / float64(la+lb)
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
