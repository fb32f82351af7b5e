package store

import (
	"context"
	"time"

	"github.com/cognicore/keyclust/pkg/keyclust/aggregate"
	"github.com/cognicore/keyclust/pkg/keyclust/report"
)

// Store persists clustering runs and their flattened tables.
type Store interface {
	Close() error

	// SaveRun writes a report, replacing any earlier run with the same ID.
	SaveRun(ctx context.Context, rep report.Report) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	// GetRows returns the table of a run in its original order.
	GetRows(ctx context.Context, runID string) ([]aggregate.Row, error)
}

// Run is the stored header of one clustering run
type Run struct {
	ID        string         `json:"id"`
	Source    string         `json:"source,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Metrics   report.Metrics `json:"metrics"`
}

// RunOf extracts the run header from a report.
func RunOf(rep report.Report) Run {
	return Run{
		ID:        rep.ID,
		Source:    rep.Source,
		CreatedAt: rep.CreatedAt,
		Metrics:   rep.Metrics,
	}
}
