package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/keyclust/pkg/keyclust/aggregate"
	"github.com/cognicore/keyclust/pkg/keyclust/intent"
	"github.com/cognicore/keyclust/pkg/keyclust/report"
	"github.com/cognicore/keyclust/pkg/keyclust/store"
)

func sampleReport(id string, at time.Time) report.Report {
	return report.Report{
		ID:        id,
		Source:    "keywords.xlsx",
		CreatedAt: at,
		Metrics: report.Metrics{
			InputRows: 3,
			Merged:    1,
			Records:   2,
			Groups:    1,
			Languages: map[string]int{"persian": 2},
		},
		Rows: []aggregate.Row{
			{Kind: aggregate.HeaderRow, Category: "گوشی", Label: "گوشی", Volume: 2450, Intent: intent.Commercial, PageType: aggregate.SubCluster},
			{Kind: aggregate.PhraseRow, Category: "گوشی", Label: "خرید گوشی سامسونگ", Volume: 1500.5, Intent: intent.Commercial, PageType: aggregate.SubCluster, Title: "خرید گوشی سامسونگ با گارانتی"},
		},
	}
}

func openTemp(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	at := time.Date(2025, 3, 1, 12, 0, 0, 500, time.UTC)
	if err := st.SaveRun(ctx, sampleReport("run-1", at)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	run, ok, err := st.GetRun(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("GetRun: ok=%v err=%v", ok, err)
	}
	if !run.CreatedAt.Equal(at) {
		t.Errorf("created_at = %v, want %v", run.CreatedAt, at)
	}
	if run.Metrics.Merged != 1 || run.Metrics.Languages["persian"] != 2 {
		t.Errorf("metrics not round-tripped: %+v", run.Metrics)
	}

	rows, err := st.GetRows(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Kind != aggregate.HeaderRow || rows[1].Volume != 1500.5 {
		t.Errorf("unexpected rows: %+v", rows)
	}
	if rows[1].Title != "خرید گوشی سامسونگ با گارانتی" {
		t.Errorf("title = %q", rows[1].Title)
	}
}

func TestSQLiteSaveReplacesRows(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	rep := sampleReport("run-1", time.Now())
	if err := st.SaveRun(ctx, rep); err != nil {
		t.Fatal(err)
	}
	rep.Rows = rep.Rows[:1]
	rep.Source = "again.csv"
	if err := st.SaveRun(ctx, rep); err != nil {
		t.Fatalf("second SaveRun: %v", err)
	}

	rows, _ := st.GetRows(ctx, "run-1")
	if len(rows) != 1 {
		t.Errorf("expected 1 row after replace, got %d", len(rows))
	}
	run, _, _ := st.GetRun(ctx, "run-1")
	if run.Source != "again.csv" {
		t.Errorf("source = %q", run.Source)
	}
}

func TestSQLiteListRuns(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := st.SaveRun(ctx, sampleReport(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := st.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("unexpected runs: %+v", runs)
	}

	all, _ := st.ListRuns(ctx, 0)
	if len(all) != 3 {
		t.Errorf("expected 3 runs, got %d", len(all))
	}
}

func TestSQLiteGetRunMissing(t *testing.T) {
	_, ok, err := openTemp(t).GetRun(context.Background(), "missing")
	if err != nil || ok {
		t.Fatalf("expected not found, got ok=%v err=%v", ok, err)
	}
}

func TestRebind(t *testing.T) {
	pg := &sqlStore{dialect: Postgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &sqlStore{dialect: SQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func TestPostgresSaveRun(t *testing.T) {
	dsn := os.Getenv("KEYCLUST_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("KEYCLUST_TEST_POSTGRES not set")
	}
	ctx := context.Background()
	st, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer st.Close()

	id := "pg-" + time.Now().Format("150405.000000")
	if err := st.SaveRun(ctx, sampleReport(id, time.Now())); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	rows, err := st.GetRows(ctx, id)
	if err != nil || len(rows) != 2 {
		t.Fatalf("GetRows: %d rows, err=%v", len(rows), err)
	}
}
