// Package settings is the typed, validated policy configuration store.
//
// Values live in the shared SQLite database so that writes are immediately
// visible to every reader: the orchestrator and scheduler re-read the store
// at the start of each operation instead of holding a cached copy.
package settings

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fleetops/nodewarden/internal/database"
	"fleetops/nodewarden/internal/domain"
	"fleetops/nodewarden/internal/policy"
)

// Store persists policy keys and run counters.
type Store struct {
	db *sql.DB
}

// Open creates or opens the settings store at the default database path.
func Open() (*Store, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*Store, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS settings (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("settings: migration failed: %w", err)
	}
	return nil
}

// Get returns the stored value for a policy key, or its default if the key
// has never been written. Unknown keys are a validation error.
func (s *Store) Get(key string) (string, error) {
	spec := Lookup(key)
	if spec == nil {
		return "", fmt.Errorf("settings: unknown key %q: %w", key, domain.ErrValidation)
	}

	value, err := s.raw(spec.Name)
	if err != nil {
		return "", err
	}
	if value == "" {
		return spec.Default, nil
	}
	return value, nil
}

// Set validates and stores a policy key. Internal bookkeeping keys are not
// settable through this path.
func (s *Store) Set(key, value string) error {
	spec := Lookup(key)
	if spec == nil {
		return fmt.Errorf("settings: unknown key %q: %w", key, domain.ErrValidation)
	}
	normalized := strings.ToLower(strings.TrimSpace(value))
	if err := spec.Validate(normalized); err != nil {
		return fmt.Errorf("settings: %s: %w", spec.Name, err)
	}
	return s.put(spec.Name, normalized)
}

// GetInt returns an integer-day policy key.
func (s *Store) GetInt(key string) (int, error) {
	value, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("settings: %s has non-integer value %q: %w", key, value, err)
	}
	return n, nil
}

// GetBool returns a boolean-flag policy key.
func (s *Store) GetBool(key string) (bool, error) {
	value, err := s.Get(key)
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

// Thresholds loads a fresh policy snapshot for the evaluator.
func (s *Store) Thresholds() (policy.Thresholds, error) {
	var t policy.Thresholds
	var err error

	if t.MinAgeDays, err = s.GetInt(KeyMinAgeDays); err != nil {
		return t, err
	}
	if t.MaxInactiveDays, err = s.GetInt(KeyMaxInactiveDays); err != nil {
		return t, err
	}
	if t.RecentDays, err = s.GetInt(KeyRecentDays); err != nil {
		return t, err
	}
	if t.ProtectRunning, err = s.GetBool(KeyProtectRunning); err != nil {
		return t, err
	}
	if t.ProtectWhitelisted, err = s.GetBool(KeyProtectWhitelist); err != nil {
		return t, err
	}
	if t.ProtectRecent, err = s.GetBool(KeyProtectRecent); err != nil {
		return t, err
	}
	return t, nil
}

// Counter returns the current value of a bookkeeping counter.
func (s *Store) Counter(key string) (int64, error) {
	value, err := s.raw(key)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("settings: counter %s has non-integer value %q: %w", key, value, err)
	}
	return n, nil
}

// AddCounter atomically increments a bookkeeping counter by delta and
// returns the new value.
func (s *Store) AddCounter(key string, delta int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = CAST(CAST(value AS INTEGER) + ? AS TEXT),
			updated_at = excluded.updated_at`,
		key, strconv.FormatInt(delta, 10), now, delta)
	if err != nil {
		return 0, fmt.Errorf("settings: counter update failed: %w", err)
	}
	return s.Counter(key)
}

// AcquireLease claims a named lease shared by every process using the same
// database. The returned token releases the claim. ok is false while another
// holder's lease is still live; a lease whose ttl has passed is treated as
// abandoned and can be re-claimed.
func (s *Store) AcquireLease(key string, ttl time.Duration) (token string, ok bool, err error) {
	now := time.Now()
	token = strconv.FormatInt(now.Add(ttl).UnixNano(), 10)
	res, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
		WHERE CAST(settings.value AS INTEGER) < ?`,
		key, token, now.UTC().Format(time.RFC3339Nano), now.UnixNano())
	if err != nil {
		return "", false, fmt.Errorf("settings: lease claim failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("settings: lease claim failed: %w", err)
	}
	return token, n == 1, nil
}

// ReleaseLease gives up a lease claimed with AcquireLease. Releasing with a
// token that no longer holds the lease is a no-op.
func (s *Store) ReleaseLease(key, token string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(`UPDATE settings SET value = '0', updated_at = ? WHERE key = ? AND value = ?`,
		now, key, token)
	if err != nil {
		return fmt.Errorf("settings: lease release failed: %w", err)
	}
	return nil
}

// PutInternal stores a bookkeeping value (e.g. last_auto_run) without the
// policy-key validation applied by Set.
func (s *Store) PutInternal(key, value string) error {
	return s.put(key, value)
}

// GetInternal returns a bookkeeping value, or "" if unset.
func (s *Store) GetInternal(key string) (string, error) {
	return s.raw(key)
}

// Close releases database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) raw(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("settings: query failed: %w", err)
	}
	return value, nil
}

func (s *Store) put(key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, now)
	if err != nil {
		return fmt.Errorf("settings: upsert failed: %w", err)
	}
	return nil
}
