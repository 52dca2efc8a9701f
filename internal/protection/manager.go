// Package protection grants and revokes purge-exemption overrides.
//
// The manager exclusively owns the protections table and is the only
// writer of the node's purge_protected flag, which is a materialized view
// of "at least one non-expired protection record exists". Grant and revoke
// update both in a single transaction so the flag and the records can
// never drift apart.
//
// Expiry is enforced lazily: expired records stop counting immediately and
// are reconciled away whenever the manager next writes, or when the purge
// orchestrator calls ReconcileExpired at the start of a run.
package protection

import (
	"database/sql"
	"fmt"
	"time"

	"fleetops/nodewarden/internal/database"
	"fleetops/nodewarden/internal/domain"
)

// Manager implements protection grants backed by the shared SQLite database.
type Manager struct {
	db *sql.DB
}

// Open creates or opens the protection manager at the default database path.
func Open() (*Manager, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("protection: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*Manager, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("protection: %w", err)
	}

	m := &Manager{db: db}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) migrate() error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS protections (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			container_id TEXT NOT NULL,
			granted_by   TEXT NOT NULL,
			reason       TEXT NOT NULL DEFAULT '',
			expires_at   TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_protections_container ON protections(container_id);
	`
	if _, err := m.db.Exec(ddl); err != nil {
		return fmt.Errorf("protection: migration failed: %w", err)
	}
	return nil
}

// Protect inserts a protection record for the node and sets its
// purge_protected flag. The actor must be the node's owner or an admin.
// Protecting an already protected node fails with domain.ErrConflict.
func (m *Manager) Protect(containerID string, actor domain.Actor, reason string, expiresAt time.Time) error {
	if !expiresAt.IsZero() && !expiresAt.After(time.Now().UTC()) {
		return fmt.Errorf("protection: expiry must be in the future: %w", domain.ErrValidation)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("protection: begin failed: %w", err)
	}
	defer tx.Rollback()

	node, err := lockNode(tx, containerID)
	if err != nil {
		return err
	}
	if !actor.CanManage(node) {
		return fmt.Errorf("protection: actor %q may not manage node %q: %w",
			actor.ID, containerID, domain.ErrPermissionDenied)
	}

	now := time.Now().UTC()
	active, err := countActive(tx, containerID, now)
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("protection: node %q is already protected: %w", containerID, domain.ErrConflict)
	}

	expiresStr := ""
	if !expiresAt.IsZero() {
		expiresStr = expiresAt.UTC().Format(time.RFC3339Nano)
	}
	_, err = tx.Exec(`
		INSERT INTO protections (container_id, granted_by, reason, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		containerID, actor.ID, reason, expiresStr, now.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("protection: insert failed: %w", err)
	}

	if err := setFlag(tx, containerID, true, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("protection: commit failed: %w", err)
	}
	return nil
}

// Unprotect removes the node's active protection records and clears its
// purge_protected flag. Unprotecting an unprotected node fails with
// domain.ErrConflict. Expired records are left in place as history.
func (m *Manager) Unprotect(containerID string, actor domain.Actor) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("protection: begin failed: %w", err)
	}
	defer tx.Rollback()

	node, err := lockNode(tx, containerID)
	if err != nil {
		return err
	}
	if !actor.CanManage(node) {
		return fmt.Errorf("protection: actor %q may not manage node %q: %w",
			actor.ID, containerID, domain.ErrPermissionDenied)
	}

	now := time.Now().UTC()
	active, err := countActive(tx, containerID, now)
	if err != nil {
		return err
	}
	if active == 0 {
		// The flag may still be set from a grant that has since expired;
		// clear it on the way out so the row heals.
		if err := setFlag(tx, containerID, false, now); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("protection: commit failed: %w", err)
		}
		return fmt.Errorf("protection: node %q is not protected: %w", containerID, domain.ErrConflict)
	}

	_, err = tx.Exec(`
		DELETE FROM protections
		WHERE container_id = ? AND (expires_at = '' OR expires_at > ?)`,
		containerID, now.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("protection: delete failed: %w", err)
	}

	if err := setFlag(tx, containerID, false, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("protection: commit failed: %w", err)
	}
	return nil
}

// ActiveFor returns the node's non-expired protection records.
func (m *Manager) ActiveFor(containerID string) ([]Protection, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	rows, err := m.db.Query(`
		SELECT id, container_id, granted_by, reason, expires_at, created_at
		FROM protections
		WHERE container_id = ? AND (expires_at = '' OR expires_at > ?)
		ORDER BY created_at DESC`,
		containerID, now)
	if err != nil {
		return nil, fmt.Errorf("protection: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// History returns every protection record ever granted for the node,
// newest first, including expired ones.
func (m *Manager) History(containerID string) ([]Protection, error) {
	rows, err := m.db.Query(`
		SELECT id, container_id, granted_by, reason, expires_at, created_at
		FROM protections WHERE container_id = ? ORDER BY created_at DESC`,
		containerID)
	if err != nil {
		return nil, fmt.Errorf("protection: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// ReconcileExpired clears the purge_protected flag on every node whose
// grants have all expired, and reports how many nodes were unflagged. The
// purge orchestrator calls this at the start of each run so expired grants
// stop shielding nodes without a background sweep.
func (m *Manager) ReconcileExpired() (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	result, err := m.db.Exec(`
		UPDATE nodes SET purge_protected = 0, last_updated = ?
		WHERE purge_protected = 1
		  AND NOT EXISTS (
			SELECT 1 FROM protections
			WHERE protections.container_id = nodes.container_id
			  AND (expires_at = '' OR expires_at > ?)
		)`, now, now)
	if err != nil {
		return 0, fmt.Errorf("protection: reconcile failed: %w", err)
	}
	return result.RowsAffected()
}

// Close releases database resources.
func (m *Manager) Close() error {
	return m.db.Close()
}

// lockNode reads the node row inside the transaction, returning
// domain.ErrNotFound for unknown ids. Only the fields needed for the
// permission check are loaded.
func lockNode(tx *sql.Tx, containerID string) (*domain.Node, error) {
	var node domain.Node
	err := tx.QueryRow(`SELECT container_id, owner_id FROM nodes WHERE container_id = ?`, containerID).
		Scan(&node.ContainerID, &node.OwnerID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("protection: node %q: %w", containerID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("protection: query failed: %w", err)
	}
	return &node, nil
}

func countActive(tx *sql.Tx, containerID string, now time.Time) (int, error) {
	var n int
	err := tx.QueryRow(`
		SELECT COUNT(*) FROM protections
		WHERE container_id = ? AND (expires_at = '' OR expires_at > ?)`,
		containerID, now.Format(time.RFC3339Nano)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("protection: query failed: %w", err)
	}
	return n, nil
}

func setFlag(tx *sql.Tx, containerID string, value bool, now time.Time) error {
	flag := 0
	if value {
		flag = 1
	}
	_, err := tx.Exec(`
		UPDATE nodes SET purge_protected = ?, last_updated = ?, last_accessed = ?
		WHERE container_id = ?`,
		flag, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano), containerID)
	if err != nil {
		return fmt.Errorf("protection: flag update failed: %w", err)
	}
	return nil
}

func scanRows(rows *sql.Rows) ([]Protection, error) {
	var records []Protection
	for rows.Next() {
		var p Protection
		var expiresStr, createdStr string
		if err := rows.Scan(&p.ID, &p.ContainerID, &p.GrantedBy, &p.Reason, &expiresStr, &createdStr); err != nil {
			return nil, fmt.Errorf("protection: scan failed: %w", err)
		}
		if expiresStr != "" {
			p.ExpiresAt, _ = time.Parse(time.RFC3339Nano, expiresStr)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, p)
	}
	return records, rows.Err()
}
