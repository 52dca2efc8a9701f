// Package history is the append-only audit log for purge decisions.
//
// Every node processed by a purge run gets one entry under that run's id.
// Entries are never updated or deleted; the log outlives the nodes it
// describes so reclamations stay explicable after the fact.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"fleetops/nodewarden/internal/database"
)

// Repository defines the persistence interface for purge audit entries.
type Repository interface {
	Append(entry *Entry) error
	History(limit int) ([]Entry, error)
	StatsSince(window time.Duration) (map[string]int64, error)
	ByRun(runID string) ([]Entry, error)
	Close() error
}

// SQLiteRepository implements Repository backed by a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the purge history at the default database path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS purge_history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT    NOT NULL,
			container_id  TEXT    NOT NULL,
			owner_id      TEXT    NOT NULL DEFAULT '',
			node_name     TEXT    NOT NULL DEFAULT '',
			action        TEXT    NOT NULL,
			reason        TEXT    NOT NULL DEFAULT '',
			age_days      INTEGER NOT NULL DEFAULT 0,
			inactive_days INTEGER NOT NULL DEFAULT -1,
			created_at    TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_purge_history_run ON purge_history(run_id);
		CREATE INDEX IF NOT EXISTS idx_purge_history_created ON purge_history(created_at);
	`
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("history: migration failed: %w", err)
	}
	return nil
}

// Append inserts a new audit entry.
func (r *SQLiteRepository) Append(entry *Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.Exec(`
		INSERT INTO purge_history (run_id, container_id, owner_id, node_name, action, reason, age_days, inactive_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.ContainerID, entry.OwnerID, entry.NodeName,
		entry.Action, entry.Reason, entry.AgeDays, entry.InactiveDays,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("history: insert failed: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("history: failed to get last insert ID: %w", err)
	}
	entry.ID = id
	return nil
}

// History returns the most recent entries, newest first.
func (r *SQLiteRepository) History(limit int) ([]Entry, error) {
	rows, err := r.db.Query(`
		SELECT id, run_id, container_id, owner_id, node_name, action, reason, age_days, inactive_days, created_at
		FROM purge_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query failed: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// StatsSince returns entry counts grouped by action for the given window.
func (r *SQLiteRepository) StatsSince(window time.Duration) (map[string]int64, error) {
	cutoff := time.Now().UTC().Add(-window).Format(time.RFC3339Nano)
	rows, err := r.db.Query(`
		SELECT action, COUNT(*) FROM purge_history
		WHERE created_at >= ? GROUP BY action`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("history: query failed: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int64)
	for rows.Next() {
		var action string
		var count int64
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("history: scan failed: %w", err)
		}
		stats[action] = count
	}
	return stats, rows.Err()
}

// ByRun returns every entry recorded under the given run id, in the order
// the run processed them.
func (r *SQLiteRepository) ByRun(runID string) ([]Entry, error) {
	rows, err := r.db.Query(`
		SELECT id, run_id, container_id, owner_id, node_name, action, reason, age_days, inactive_days, created_at
		FROM purge_history WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: query failed: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var createdStr string
		err := rows.Scan(
			&entry.ID, &entry.RunID, &entry.ContainerID, &entry.OwnerID,
			&entry.NodeName, &entry.Action, &entry.Reason,
			&entry.AgeDays, &entry.InactiveDays, &createdStr,
		)
		if err != nil {
			return nil, fmt.Errorf("history: scan failed: %w", err)
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
