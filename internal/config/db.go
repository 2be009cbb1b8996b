// CLAUDE:SUMMARY Loads and stores capture targets in the capture_targets SQLite table.
package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Schema for the capture_targets table.
const Schema = `
CREATE TABLE IF NOT EXISTS capture_targets (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	mode       TEXT NOT NULL DEFAULT 'auto',
	status     TEXT NOT NULL DEFAULT 'active',
	updated_at INTEGER NOT NULL
);
`

// EnsureSchema creates the capture_targets table if needed.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("config: schema: %w", err)
	}
	return nil
}

// LoadTargets reads all active targets, oldest first.
func LoadTargets(ctx context.Context, db *sql.DB) ([]Target, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, url, mode
		FROM capture_targets
		WHERE status = 'active'
		ORDER BY updated_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []Target
	for rows.Next() {
		var t Target
		if err := rows.Scan(&t.ID, &t.URL, &t.Mode); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// SaveTarget inserts or replaces a target and marks it active.
func SaveTarget(ctx context.Context, db *sql.DB, t Target) error {
	if t.ID == "" || t.URL == "" {
		return fmt.Errorf("config: target needs an id and a url")
	}
	if t.Mode == "" {
		t.Mode = "auto"
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO capture_targets (id, url, mode, status, updated_at)
		VALUES (?, ?, ?, 'active', ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			mode = excluded.mode,
			status = 'active',
			updated_at = excluded.updated_at
	`, t.ID, t.URL, t.Mode, time.Now().UnixMilli())
	return err
}

// DisableTarget marks a target inactive without deleting it.
func DisableTarget(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE capture_targets SET status = 'disabled', updated_at = ? WHERE id = ?
	`, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("config: target %q not found", id)
	}
	return nil
}
