// CLAUDE:SUMMARY SQLite job store: one row per processed URL or batch, holding state and the JSON report, keyed by UUIDv7.
// Package store persists webclip jobs so the HTTP API and MCP tools can
// list and inspect past runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/webclip/report"
)

// Schema is the jobs table.
const Schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL DEFAULT 'url',
	url         TEXT NOT NULL DEFAULT '',
	mode        TEXT NOT NULL DEFAULT 'auto',
	state       TEXT NOT NULL DEFAULT 'running',
	report      TEXT NOT NULL DEFAULT '{}',
	error       TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	finished_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at DESC);
`

// ErrNotFound is returned when a job ID is unknown.
var ErrNotFound = errors.New("store: job not found")

// Job kinds.
const (
	KindURL   = "url"
	KindBatch = "batch"
)

// Job is one row of the jobs table.
type Job struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	URL        string          `json:"url,omitempty"`
	Mode       string          `json:"mode"`
	State      report.State    `json:"state"`
	Report     json.RawMessage `json:"report,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  int64           `json:"created_at"`
	FinishedAt int64           `json:"finished_at,omitempty"`
}

// Store is an SQLite-backed job store. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the store at path. ":memory:" gives an
// ephemeral store.
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// DB exposes the underlying database for tables kept next to the jobs.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// NewID returns a time-sortable UUIDv7.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Create inserts a running job and returns its ID. An empty id gets a
// fresh UUIDv7.
func (s *Store) Create(ctx context.Context, id, kind, url, mode string) (string, error) {
	if id == "" {
		id = NewID()
	}
	_, err := execRetry(ctx, s.db,
		`INSERT INTO jobs (id, kind, url, mode, state, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, kind, url, mode, report.StateRunning, s.now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("store: create %s: %w", id, err)
	}
	return id, nil
}

// Finish records the final state and report of a job. v is marshalled to
// JSON; jobErr, when non-nil, marks the job failed.
func (s *Store) Finish(ctx context.Context, id string, v any, jobErr error) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal report: %w", err)
	}
	state, msg := report.StateDone, ""
	if jobErr != nil {
		state, msg = report.StateFailed, jobErr.Error()
	}
	res, err := execRetry(ctx, s.db,
		`UPDATE jobs SET state = ?, report = ?, error = ?, finished_at = ? WHERE id = ?`,
		state, string(data), msg, s.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("store: finish %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Get returns one job.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, url, mode, state, report, error, created_at, finished_at FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return j, nil
}

// List returns the most recent jobs first, without their reports.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, url, mode, state, '', error, created_at, finished_at
		 FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (*Job, error) {
	var (
		j        Job
		rep      string
		finished sql.NullInt64
	)
	if err := sc.Scan(&j.ID, &j.Kind, &j.URL, &j.Mode, &j.State, &rep, &j.Error, &j.CreatedAt, &finished); err != nil {
		return nil, err
	}
	if rep != "" {
		j.Report = json.RawMessage(rep)
	}
	j.FinishedAt = finished.Int64
	return &j, nil
}
