// Package sqlstore persists clustering runs in SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/cognicore/keyclust/pkg/keyclust/aggregate"
	"github.com/cognicore/keyclust/pkg/keyclust/intent"
	"github.com/cognicore/keyclust/pkg/keyclust/report"
	"github.com/cognicore/keyclust/pkg/keyclust/store"
)

// Dialect selects driver name and placeholder style.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// timeLayout has fixed-width fractions so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// sqlStore implements store.Store over database/sql
type sqlStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open(string(SQLite), path)
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, err
		}
	}
	return open(ctx, db, SQLite)
}

// OpenPostgres connects using a lib/pq DSN.
func OpenPostgres(ctx context.Context, dsn string) (store.Store, error) {
	db, err := sql.Open(string(Postgres), dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return open(ctx, db, Postgres)
}

func open(ctx context.Context, db *sql.DB, d Dialect) (store.Store, error) {
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqlStore{db: db, dialect: d}, nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist.
// The DDL sticks to types both dialects accept.
func initSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS cluster_runs (
	id TEXT PRIMARY KEY,
	source TEXT,
	created_at TEXT NOT NULL,
	metrics TEXT NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS cluster_rows (
	run_id TEXT NOT NULL REFERENCES cluster_runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	kind TEXT NOT NULL,
	category TEXT NOT NULL,
	label TEXT NOT NULL,
	volume DOUBLE PRECISION NOT NULL,
	intent TEXT,
	page_type TEXT,
	title TEXT,
	PRIMARY KEY(run_id, position)
)`,
		`CREATE INDEX IF NOT EXISTS idx_cluster_rows_category ON cluster_rows(run_id, category)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *sqlStore) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveRun writes the run header and its table in one transaction
func (s *sqlStore) SaveRun(ctx context.Context, rep report.Report) error {
	metrics, err := json.Marshal(rep.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
INSERT INTO cluster_runs(id, source, created_at, metrics) VALUES(?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET source = excluded.source, created_at = excluded.created_at, metrics = excluded.metrics`),
		rep.ID, rep.Source, rep.CreatedAt.UTC().Format(timeLayout), string(metrics))
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM cluster_rows WHERE run_id = ?`), rep.ID); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
INSERT INTO cluster_rows(run_id, position, kind, category, label, volume, intent, page_type, title)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rep.Rows {
		if _, err := stmt.ExecContext(ctx, rep.ID, i, string(r.Kind), r.Category, r.Label,
			r.Volume, string(r.Intent), string(r.PageType), r.Title); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run header by ID
func (s *sqlStore) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, source, created_at, metrics FROM cluster_runs WHERE id = ?`), id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}
	return run, true, nil
}

// ListRuns returns runs newest first; limit <= 0 means all.
func (s *sqlStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	q := `SELECT id, source, created_at, metrics FROM cluster_runs ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRows returns the stored table of a run
func (s *sqlStore) GetRows(ctx context.Context, runID string) ([]aggregate.Row, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT kind, category, label, volume, intent, page_type, title
FROM cluster_rows WHERE run_id = ? ORDER BY position`), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []aggregate.Row
	for rows.Next() {
		var (
			r                          aggregate.Row
			kind, label, pageType      string
			intentLabel, title, catStr sql.NullString
		)
		if err := rows.Scan(&kind, &catStr, &label, &r.Volume, &intentLabel, &pageType, &title); err != nil {
			return nil, err
		}
		r.Kind = aggregate.RowKind(kind)
		r.Category = catStr.String
		r.Label = label
		r.Intent = intent.Label(intentLabel.String)
		r.PageType = aggregate.PageType(pageType)
		r.Title = title.String
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (store.Run, error) {
	var (
		run       store.Run
		source    sql.NullString
		createdAt string
		metrics   string
	)
	if err := sc.Scan(&run.ID, &source, &createdAt, &metrics); err != nil {
		return store.Run{}, err
	}
	run.Source = source.String
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return store.Run{}, fmt.Errorf("run %s: parse created_at: %w", run.ID, err)
	}
	run.CreatedAt = t
	if err := json.Unmarshal([]byte(metrics), &run.Metrics); err != nil {
		return store.Run{}, fmt.Errorf("run %s: decode metrics: %w", run.ID, err)
	}
	return run, nil
}
