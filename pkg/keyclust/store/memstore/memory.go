package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/keyclust/pkg/keyclust/aggregate"
	"github.com/cognicore/keyclust/pkg/keyclust/report"
	"github.com/cognicore/keyclust/pkg/keyclust/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu   sync.RWMutex
	runs map[string]store.Run
	rows map[string][]aggregate.Row
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs: make(map[string]store.Run),
		rows: make(map[string][]aggregate.Row),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveRun stores a copy of the report, keyed by ID.
func (s *Store) SaveRun(ctx context.Context, rep report.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	run := store.RunOf(rep)
	run.Metrics.Languages = copyCounts(rep.Metrics.Languages)
	s.runs[rep.ID] = run
	s.rows[rep.ID] = append([]aggregate.Row(nil), rep.Rows...)
	return nil
}

// GetRun returns the run with the given ID.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok, nil
}

// ListRuns returns runs newest first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetRows returns a copy of the stored table.
func (s *Store) GetRows(ctx context.Context, runID string) ([]aggregate.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]aggregate.Row(nil), s.rows[runID]...), nil
}

func copyCounts(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ store.Store = (*Store)(nil)
