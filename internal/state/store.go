// Package state persists schema snapshots so a new session can offer table
// names before the first live refresh finishes.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrSnapshotNotFound is returned when no snapshot exists for a connection.
var ErrSnapshotNotFound = errors.New("schema snapshot not found")

// Snapshot describes one persisted schema.
type Snapshot struct {
	ConnectionKey string `db:"connection_key" json:"connection_key"`
	ID            string `db:"id" json:"id"`
	Fingerprint   string `db:"fingerprint" json:"fingerprint"`
	TableCount    int    `db:"table_count" json:"table_count"`
	SavedAtMillis int64  `db:"saved_at" json:"-"`
}

// SavedAt returns when the snapshot was written.
func (s Snapshot) SavedAt() time.Time {
	return time.UnixMilli(s.SavedAtMillis).UTC()
}

// SnapshotStore keeps the latest schema snapshot per connection in SQLite.
type SnapshotStore struct {
	db     *sqlx.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if needed) the store at path and runs migrations.
// Use ":memory:" for an in-memory store.
func Open(ctx context.Context, path string, logger *slog.Logger) (*SnapshotStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping snapshot store: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SnapshotStore{db: db, path: path, logger: logger}
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the store.
func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *SnapshotStore) Path() string {
	return s.path
}
