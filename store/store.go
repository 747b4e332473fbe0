// Package store persists scenario reports to SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/houndci/sitecheck/dbopen"
	"github.com/houndci/sitecheck/verdict"
)

// Schema for the runs and checks tables.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	scenario    TEXT NOT NULL,
	url         TEXT NOT NULL,
	device      TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failures    INTEGER NOT NULL DEFAULT 0,
	warnings    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario, started_at DESC);

CREATE TABLE IF NOT EXISTS checks (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	ord      INTEGER NOT NULL,
	name     TEXT NOT NULL,
	kind     TEXT NOT NULL,
	tier     TEXT NOT NULL,
	verdict  TEXT NOT NULL,
	evidence TEXT NOT NULL DEFAULT '',
	detail   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, ord)
);
`

// Store is the report database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the report database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// NewWithDB wraps an already-open database, applying the schema. Used by
// tests with an in-memory database.
func NewWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// SaveReport writes a finalized report and its checks in one transaction.
func (s *Store) SaveReport(ctx context.Context, r *verdict.Report) error {
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, scenario, url, device, started_at, finished_at, passed, failures, warnings)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, r.Scenario, r.URL, r.Device,
			r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(),
			boolInt(r.Passed), r.Failures, r.Warnings)
		if err != nil {
			return fmt.Errorf("store: insert run: %w", err)
		}
		for i, c := range r.Checks {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO checks (run_id, ord, name, kind, tier, verdict, evidence, detail)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				r.RunID, i, c.Name, c.Kind, c.Tier.String(), c.Verdict.String(),
				c.Evidence, c.Detail)
			if err != nil {
				return fmt.Errorf("store: insert check: %w", err)
			}
		}
		return nil
	})
}

// GetRun loads one run with its checks, ordered as recorded.
// Returns sql.ErrNoRows when the run does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*verdict.Report, error) {
	var r verdict.Report
	var started, finished int64
	var passed int
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, scenario, url, device, started_at, finished_at, passed, failures, warnings
		FROM runs WHERE id = ?`, id).Scan(
		&r.RunID, &r.Scenario, &r.URL, &r.Device,
		&started, &finished, &passed, &r.Failures, &r.Warnings)
	if err != nil {
		return nil, err
	}
	r.StartedAt = time.UnixMilli(started).UTC()
	r.FinishedAt = time.UnixMilli(finished).UTC()
	r.Passed = passed != 0

	rows, err := s.DB.QueryContext(ctx, `
		SELECT name, kind, tier, verdict, evidence, detail
		FROM checks WHERE run_id = ? ORDER BY ord`, id)
	if err != nil {
		return nil, fmt.Errorf("store: load checks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c verdict.Check
		var tier, verd string
		if err := rows.Scan(&c.Name, &c.Kind, &tier, &verd, &c.Evidence, &c.Detail); err != nil {
			return nil, fmt.Errorf("store: scan check: %w", err)
		}
		if c.Tier, err = verdict.ParseTier(tier); err != nil {
			return nil, err
		}
		if c.Verdict, err = verdict.ParseVerdict(verd); err != nil {
			return nil, err
		}
		r.Checks = append(r.Checks, c)
	}
	return &r, rows.Err()
}

// RunSummary is one row of a run listing, without checks.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Scenario   string    `json:"scenario"`
	URL        string    `json:"url"`
	Device     string    `json:"device,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Passed     bool      `json:"passed"`
	Failures   int       `json:"failures"`
	Warnings   int       `json:"warnings"`
}

// ListFilter narrows ListRuns.
type ListFilter struct {
	Scenario   string
	FailedOnly bool
	Limit      int // default 50
}

// ListRuns returns recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, f ListFilter) ([]RunSummary, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	q := `SELECT id, scenario, url, device, started_at, finished_at, passed, failures, warnings
		FROM runs WHERE 1=1`
	var args []any
	if f.Scenario != "" {
		q += " AND scenario = ?"
		args = append(args, f.Scenario)
	}
	if f.FailedOnly {
		q += " AND passed = 0"
	}
	q += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, f.Limit)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, finished int64
		var passed int
		if err := rows.Scan(&r.RunID, &r.Scenario, &r.URL, &r.Device,
			&started, &finished, &passed, &r.Failures, &r.Warnings); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		r.Passed = passed != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune deletes runs older than the cutoff. Checks cascade.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		"DELETE FROM runs WHERE started_at < ?", olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("store: prune: %w", err)
	}
	return res.RowsAffected()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
