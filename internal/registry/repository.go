// Package registry is the authoritative store for node records.
//
// Rows are keyed by container_id, which is unique for the lifetime of the
// system and immutable once created. Every mutation bumps last_updated;
// status checks and management actions additionally bump last_accessed so
// the purge policy can measure inactivity.
//
// Storage is backed by the shared SQLite database at
// ~/.config/nodewarden/nodewarden.db (or the platform-equivalent path
// returned by os.UserConfigDir).
package registry

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fleetops/nodewarden/internal/database"
	"fleetops/nodewarden/internal/domain"
)

// Flag names accepted by UpdateFlag. FlagPurgeProtected is written only by
// the protection manager; other callers must go through it.
const (
	FlagSuspended      = "suspended"
	FlagWhitelisted    = "whitelisted"
	FlagPurgeProtected = "purge_protected"
)

// CreateSpec carries the caller-supplied fields for a new node record.
type CreateSpec struct {
	ContainerID string
	OwnerID     string
	Name        string
	RAM         string
	CPUCores    int
	Storage     string
	Location    string
	OSImage     string
	Tags        []string
}

// Repository defines the persistence interface for node records.
type Repository interface {
	// Create inserts a new node. It fails with domain.ErrDuplicateID if
	// the container id is already registered.
	Create(spec CreateSpec) (*domain.Node, error)

	// Get retrieves a node by container id.
	Get(containerID string) (*domain.Node, error)

	// ListAll returns every node, newest first.
	ListAll() ([]domain.Node, error)

	// ListByOwner returns the owner's nodes, newest first.
	ListByOwner(ownerID string) ([]domain.Node, error)

	// UpdateStatus caches a backend-observed status and bumps both
	// last_updated and last_accessed.
	UpdateStatus(containerID, status string) error

	// UpdateFlag sets one of the boolean lifecycle flags.
	UpdateFlag(containerID, flag string, value bool) error

	// UpdateField applies a validated edit to one of the editable fields.
	UpdateField(containerID, field, value string) error

	// Touch bumps last_updated and last_accessed without other changes.
	Touch(containerID string) error

	// Delete removes the node and cascades removal of its dependent
	// protection rows.
	Delete(containerID string) error

	// Close releases database resources.
	Close() error
}

// SQLiteRepository implements Repository backed by a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the registry at the default database path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
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
		CREATE TABLE IF NOT EXISTS nodes (
			container_id    TEXT PRIMARY KEY,
			owner_id        TEXT    NOT NULL,
			name            TEXT    NOT NULL DEFAULT '',
			ram             TEXT    NOT NULL DEFAULT '',
			cpu_cores       INTEGER NOT NULL DEFAULT 0,
			storage         TEXT    NOT NULL DEFAULT '',
			location        TEXT    NOT NULL DEFAULT '',
			os_image        TEXT    NOT NULL DEFAULT '',
			status          TEXT    NOT NULL DEFAULT 'stopped',
			suspended       INTEGER NOT NULL DEFAULT 0,
			whitelisted     INTEGER NOT NULL DEFAULT 0,
			purge_protected INTEGER NOT NULL DEFAULT 0,
			created_at      TEXT    NOT NULL,
			last_updated    TEXT    NOT NULL,
			last_accessed   TEXT    NOT NULL DEFAULT '',
			notes           TEXT    NOT NULL DEFAULT '',
			tags            TEXT    NOT NULL DEFAULT '',
			backup_path     TEXT    NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_nodes_owner ON nodes(owner_id);
		CREATE INDEX IF NOT EXISTS idx_nodes_created ON nodes(created_at);
	`
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("registry: migration failed: %w", err)
	}
	return nil
}

const nodeColumns = `container_id, owner_id, name, ram, cpu_cores, storage,
	location, os_image, status, suspended, whitelisted, purge_protected,
	created_at, last_updated, last_accessed, notes, tags, backup_path`

// Create inserts a new node record.
func (r *SQLiteRepository) Create(spec CreateSpec) (*domain.Node, error) {
	if strings.TrimSpace(spec.ContainerID) == "" {
		return nil, fmt.Errorf("registry: container id must not be empty: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(spec.OwnerID) == "" {
		return nil, fmt.Errorf("registry: owner id must not be empty: %w", domain.ErrValidation)
	}

	now := time.Now().UTC()
	node := &domain.Node{
		ContainerID: spec.ContainerID,
		OwnerID:     spec.OwnerID,
		Name:        spec.Name,
		RAM:         spec.RAM,
		CPUCores:    spec.CPUCores,
		Storage:     spec.Storage,
		Location:    spec.Location,
		OSImage:     spec.OSImage,
		Status:      domain.StatusStopped,
		CreatedAt:   now,
		LastUpdated: now,
		Tags:        spec.Tags,
	}

	tags, err := marshalTags(spec.Tags)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("registry: begin failed: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT COUNT(*) FROM nodes WHERE container_id = ?`, spec.ContainerID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("registry: query failed: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("registry: node %q: %w", spec.ContainerID, domain.ErrDuplicateID)
	}

	_, err = tx.Exec(`
		INSERT INTO nodes (container_id, owner_id, name, ram, cpu_cores, storage, location, os_image,
			status, created_at, last_updated, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		node.ContainerID, node.OwnerID, node.Name, node.RAM, node.CPUCores,
		node.Storage, node.Location, node.OSImage, node.Status,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano), tags,
	)
	if err != nil {
		return nil, fmt.Errorf("registry: insert failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("registry: commit failed: %w", err)
	}
	return node, nil
}

// Get retrieves a node by container id.
func (r *SQLiteRepository) Get(containerID string) (*domain.Node, error) {
	row := r.db.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE container_id = ?`, containerID)
	node, err := scanNode(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("registry: node %q: %w", containerID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: query failed: %w", err)
	}
	return node, nil
}

// ListAll returns every node ordered by created_at descending.
func (r *SQLiteRepository) ListAll() ([]domain.Node, error) {
	rows, err := r.db.Query(`SELECT ` + nodeColumns + ` FROM nodes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("registry: query failed: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// ListByOwner returns the owner's nodes ordered by created_at descending.
func (r *SQLiteRepository) ListByOwner(ownerID string) ([]domain.Node, error) {
	rows, err := r.db.Query(`SELECT `+nodeColumns+` FROM nodes WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("registry: query failed: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// UpdateStatus caches a backend-observed status.
func (r *SQLiteRepository) UpdateStatus(containerID, status string) error {
	switch status {
	case domain.StatusRunning, domain.StatusStopped, domain.StatusUnknown:
	default:
		return fmt.Errorf("registry: invalid status %q: %w", status, domain.ErrValidation)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	result, err := r.db.Exec(`
		UPDATE nodes SET status = ?, last_updated = ?, last_accessed = ?
		WHERE container_id = ?`,
		status, now, now, containerID)
	if err != nil {
		return fmt.Errorf("registry: update failed: %w", err)
	}
	return requireRow(result, containerID)
}

// UpdateFlag sets one of the boolean lifecycle flags.
func (r *SQLiteRepository) UpdateFlag(containerID, flag string, value bool) error {
	switch flag {
	case FlagSuspended, FlagWhitelisted, FlagPurgeProtected:
	default:
		return fmt.Errorf("registry: unknown flag %q: %w", flag, domain.ErrValidation)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	result, err := r.db.Exec(
		`UPDATE nodes SET `+flag+` = ?, last_updated = ?, last_accessed = ? WHERE container_id = ?`,
		boolInt(value), now, now, containerID)
	if err != nil {
		return fmt.Errorf("registry: update failed: %w", err)
	}
	return requireRow(result, containerID)
}

// UpdateField applies a validated edit to an editable field.
func (r *SQLiteRepository) UpdateField(containerID, field, value string) error {
	spec := LookupField(field)
	if spec == nil {
		return fmt.Errorf("registry: field %q is not editable: %w", field, domain.ErrValidation)
	}
	stored, err := spec.Normalize(value)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	result, err := r.db.Exec(
		`UPDATE nodes SET `+spec.Column+` = ?, last_updated = ?, last_accessed = ? WHERE container_id = ?`,
		stored, now, now, containerID)
	if err != nil {
		return fmt.Errorf("registry: update failed: %w", err)
	}
	return requireRow(result, containerID)
}

// Touch bumps last_updated and last_accessed.
func (r *SQLiteRepository) Touch(containerID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	result, err := r.db.Exec(
		`UPDATE nodes SET last_updated = ?, last_accessed = ? WHERE container_id = ?`,
		now, now, containerID)
	if err != nil {
		return fmt.Errorf("registry: update failed: %w", err)
	}
	return requireRow(result, containerID)
}

// Delete removes the node row and its dependent protection rows in one
// transaction.
func (r *SQLiteRepository) Delete(containerID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("registry: begin failed: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM nodes WHERE container_id = ?`, containerID)
	if err != nil {
		return fmt.Errorf("registry: delete failed: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("registry: node %q: %w", containerID, domain.ErrNotFound)
	}

	// The protections table may not exist yet if the protection manager
	// has never run against this database.
	if _, err := tx.Exec(`DELETE FROM protections WHERE container_id = ?`, containerID); err != nil &&
		!strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("registry: cascade delete failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("registry: commit failed: %w", err)
	}
	return nil
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func requireRow(result sql.Result, containerID string) error {
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("registry: node %q: %w", containerID, domain.ErrNotFound)
	}
	return nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func scanNode(scan func(...any) error) (*domain.Node, error) {
	var node domain.Node
	var suspended, whitelisted, protected int
	var createdStr, updatedStr, accessedStr, tagsStr string

	err := scan(
		&node.ContainerID, &node.OwnerID, &node.Name, &node.RAM, &node.CPUCores,
		&node.Storage, &node.Location, &node.OSImage, &node.Status,
		&suspended, &whitelisted, &protected,
		&createdStr, &updatedStr, &accessedStr, &node.Notes, &tagsStr, &node.BackupPath,
	)
	if err != nil {
		return nil, err
	}

	node.Suspended = suspended != 0
	node.Whitelisted = whitelisted != 0
	node.PurgeProtected = protected != 0
	node.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	node.LastUpdated, _ = time.Parse(time.RFC3339Nano, updatedStr)
	if accessedStr != "" {
		node.LastAccessed, _ = time.Parse(time.RFC3339Nano, accessedStr)
	}
	node.Tags = unmarshalTags(tagsStr)
	return &node, nil
}

func scanNodes(rows *sql.Rows) ([]domain.Node, error) {
	var nodes []domain.Node
	for rows.Next() {
		node, err := scanNode(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("registry: scan failed: %w", err)
		}
		nodes = append(nodes, *node)
	}
	return nodes, rows.Err()
}
