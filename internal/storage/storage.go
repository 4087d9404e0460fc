package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store is the key-value persistence boundary for AirSafe Core.
//
// Every persisted entity (sensor snapshot, alert history, alert settings,
// event log, client-app state) is stored as a serialised string under a
// fixed key. Values are written with last-write-wins semantics; callers
// treat writes as best-effort and keep in-memory state authoritative.
//
// Thread Safety:
//   - All methods are safe for concurrent use; SQLite serialises writes.
type Store struct {
	db *sql.DB
}

// New creates a Store backed by the given database connection and ensures
// the key-value table exists.
//
// Parameters:
//   - ctx: Context for schema creation
//   - db: Open SQLite connection
//
// Returns:
//   - *Store: Store ready for use
//   - error: If the schema cannot be created
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureSchema creates the kv table if it does not exist.
func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating kv table: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - key: One of the Key* constants
//
// Returns:
//   - string: The stored value
//   - error: ErrNotFound if the key has never been written, otherwise the
//     underlying database error
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("reading key %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - key: One of the Key* constants
//   - value: Serialised value to store
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

// Remove deletes the value stored under key. Removing a missing key is not
// an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("removing key %s: %w", key, err)
	}
	return nil
}

// Clear deletes every stored value. Intended for a factory-reset flow.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv"); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}
	return nil
}
