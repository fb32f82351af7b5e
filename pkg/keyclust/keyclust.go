package keyclust

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cognicore/keyclust/pkg/keyclust/aggregate"
	"github.com/cognicore/keyclust/pkg/keyclust/category"
	"github.com/cognicore/keyclust/pkg/keyclust/config"
	"github.com/cognicore/keyclust/pkg/keyclust/ingest"
	"github.com/cognicore/keyclust/pkg/keyclust/internalerr"
	"github.com/cognicore/keyclust/pkg/keyclust/merge"
	"github.com/cognicore/keyclust/pkg/keyclust/report"
)

// Engine runs the deduplication and clustering pipeline
type Engine struct {
	comp     *config.Components
	logger   *slog.Logger
	profiler ingest.LanguageProfiler
	reports  *report.Builder
}

// Options configures an Engine
type Options struct {
	// Components defaults to config.Build(config.Default()).
	Components *config.Components
	Logger     *slog.Logger
	// Profiler, when set, adds a language breakdown to the report.
	Profiler ingest.LanguageProfiler
	Reports  *report.Builder
}

// New creates an Engine with the given dependencies
func New(opts Options) *Engine {
	e := &Engine{
		comp:     opts.Components,
		logger:   opts.Logger,
		profiler: opts.Profiler,
		reports:  opts.Reports,
	}
	if e.comp == nil {
		e.comp = config.Build(config.Default())
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.reports == nil {
		e.reports = report.New()
	}
	return e
}

// Rules returns the rules the engine was built with
func (e *Engine) Rules() *config.Rules {
	return e.comp.Rules
}

// Result carries the report plus the intermediate stages
type Result struct {
	Report      report.Report
	Merged      []merge.Merged
	Assignments []category.Assignment
	Items       []aggregate.Item
}

// RunRaw cleans sheet rows, dropping those without a usable volume, and
// runs the pipeline on the rest
func (e *Engine) RunRaw(ctx context.Context, source string, raw []ingest.RawRow) (*Result, error) {
	rows, dropped := ingest.CleanRows(raw)
	for _, d := range dropped {
		e.logger.Debug("dropped row", "source", source, "line", d.Line, "volume", d.Volume, "reason", d.Reason)
	}
	if len(dropped) > 0 {
		e.logger.Info("dropped rows without a usable volume", "source", source, "count", len(dropped))
	}
	return e.run(ctx, source, rows, report.Metrics{InputRows: len(raw), DroppedRows: len(dropped)})
}

// Run clusters already validated rows
func (e *Engine) Run(ctx context.Context, source string, rows []ingest.Row) (*Result, error) {
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return e.run(ctx, source, rows, report.Metrics{InputRows: len(rows)})
}

func (e *Engine) run(ctx context.Context, source string, rows []ingest.Row, m report.Metrics) (*Result, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", displaySource(source), internalerr.ErrEmptyInput)
	}
	start := time.Now()

	// 1. Normalize
	records := ingest.Prepare(rows)

	// 2. Merge near-duplicates
	merged, err := e.comp.Merger.Merge(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	e.logger.Debug("merged phrases",
		"records", len(merged.Records),
		"merged", merged.MergedCount,
		"pairs", merged.Stats.Pairs,
		"compared", merged.Stats.Compared,
		"prefiltered", merged.Stats.Prefilter,
		"elapsed", time.Since(start),
	)

	// 3. Categories are mined across the whole merged set
	normalized := make([]string, len(merged.Records))
	for i, rec := range merged.Records {
		normalized[i] = rec.Normalized
	}
	assignments := e.comp.Assigner.Assign(normalized)

	// 4. Intent and title per record
	items := make([]aggregate.Item, len(merged.Records))
	for i, rec := range merged.Records {
		items[i] = aggregate.Item{
			Phrase:     rec.Representative,
			Normalized: rec.Normalized,
			Volume:     rec.TotalVolume,
			Intent:     e.comp.Classifier.Classify(rec.Normalized),
			Title:      e.comp.Suggester.Suggest(rec.Normalized),
			Category:   assignments[i].Category,
			Sources:    rec.Size(),
		}
	}

	// 5. Group and label page types
	groups := e.comp.Aggregator.Group(items)

	if e.profiler != nil {
		m.Languages = e.profiler.Profile(normalized)
		if lang, _ := ingest.Dominant(m.Languages); lang != "" && lang != "persian" {
			e.logger.Warn("keyword rules target Persian but input is mostly another language",
				"source", source, "language", lang)
		}
	}

	m.Merged = merged.MergedCount
	m.Records = len(merged.Records)
	m.Duration = time.Since(start)
	rep := e.reports.Build(source, groups, m)

	e.logger.Info("clustering complete",
		"run", rep.ID,
		"source", source,
		"rows", m.InputRows,
		"merged", rep.Metrics.Merged,
		"categories", rep.Metrics.Categories,
		"groups", rep.Metrics.Groups,
		"duration", rep.Metrics.Duration,
	)

	return &Result{
		Report:      rep,
		Merged:      merged.Records,
		Assignments: assignments,
		Items:       items,
	}, nil
}

func displaySource(source string) string {
	if source == "" {
		return "input"
	}
	return source
}
