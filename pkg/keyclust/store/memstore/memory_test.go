package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/cognicore/keyclust/pkg/keyclust/aggregate"
	"github.com/cognicore/keyclust/pkg/keyclust/report"
)

func sampleReport(id string, at time.Time) report.Report {
	return report.Report{
		ID:        id,
		Source:    "kw.xlsx",
		CreatedAt: at,
		Metrics:   report.Metrics{InputRows: 2, Records: 2, Languages: map[string]int{"persian": 2}},
		Rows: []aggregate.Row{
			{Kind: aggregate.HeaderRow, Category: "گوشی", Label: "گوشی", Volume: 30},
			{Kind: aggregate.PhraseRow, Category: "گوشی", Label: "خرید گوشی", Volume: 30},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	s := New()
	rep := sampleReport("r1", time.Now())
	if err := s.SaveRun(ctx, rep); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	run, ok, err := s.GetRun(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("GetRun: ok=%v err=%v", ok, err)
	}
	if run.Source != "kw.xlsx" || run.Metrics.InputRows != 2 {
		t.Errorf("unexpected run: %+v", run)
	}

	rep.Metrics.Languages["persian"] = 99
	run, _, _ = s.GetRun(ctx, "r1")
	if run.Metrics.Languages["persian"] != 2 {
		t.Error("stored metrics should not alias the caller's map")
	}

	rows, err := s.GetRows(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 || rows[1].Label != "خرید گوشی" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestGetRunMissing(t *testing.T) {
	_, ok, err := New().GetRun(context.Background(), "nope")
	if err != nil || ok {
		t.Fatalf("expected not found, got ok=%v err=%v", ok, err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.SaveRun(ctx, sampleReport(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("unexpected order: %+v", runs)
	}
}

func TestSaveRunReplaces(t *testing.T) {
	ctx := context.Background()
	s := New()
	rep := sampleReport("r1", time.Now())
	_ = s.SaveRun(ctx, rep)
	rep.Rows = rep.Rows[:1]
	_ = s.SaveRun(ctx, rep)

	rows, _ := s.GetRows(ctx, "r1")
	if len(rows) != 1 {
		t.Errorf("expected replaced table of 1 row, got %d", len(rows))
	}
}
