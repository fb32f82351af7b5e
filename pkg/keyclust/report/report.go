package report

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/keyclust/pkg/keyclust/aggregate"
)

// Builder stamps run reports with monotonic ULIDs
type Builder struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New creates a new report builder
func New() *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Metrics are the counts surfaced to the user after a run
type Metrics struct {
	InputRows   int            `json:"input_rows"`
	DroppedRows int            `json:"dropped_rows"`
	Merged      int            `json:"merged"`
	Records     int            `json:"records"`
	Categories  int            `json:"categories"`
	Groups      int            `json:"groups"`
	Pillars     int            `json:"pillars"`
	Clusters    int            `json:"clusters"`
	SubClusters int            `json:"sub_clusters"`
	Languages   map[string]int `json:"languages,omitempty"`
	Duration    time.Duration  `json:"duration_ns"`
}

// Report is the output of one clustering run
type Report struct {
	ID        string            `json:"id"`
	Source    string            `json:"source,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Metrics   Metrics           `json:"metrics"`
	Groups    []aggregate.Group `json:"-"`
	Rows      []aggregate.Row   `json:"rows"`
}

// Build assembles a report from grouped output
func (b *Builder) Build(source string, groups []aggregate.Group, m Metrics) Report {
	b.mu.Lock()
	now := b.now()
	id := ulid.MustNew(ulid.Timestamp(now), b.entropy).String()
	b.mu.Unlock()

	s := aggregate.Summarize(groups)
	m.Categories = s.Categories
	m.Groups = s.Groups
	m.Pillars = s.Pillars
	m.Clusters = s.Clusters
	m.SubClusters = s.SubClusters

	return Report{
		ID:        id,
		Source:    source,
		CreatedAt: now.UTC(),
		Metrics:   m,
		Groups:    groups,
		Rows:      aggregate.Flatten(groups),
	}
}
