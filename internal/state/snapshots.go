package state

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/zeebo/blake3"
)

// Save persists c as the latest snapshot for connKey. It reports false
// without writing when the stored snapshot already has the same content.
func (s *SnapshotStore) Save(ctx context.Context, connKey string, c *schema.Cache) (bool, error) {
	var buf bytes.Buffer
	if err := c.Fixture().Encode(&buf); err != nil {
		return false, err
	}
	payload := buf.Bytes()
	sum := blake3.Sum256(payload)
	fingerprint := hex.EncodeToString(sum[:])

	var existing string
	err := s.db.GetContext(ctx, &existing,
		`SELECT fingerprint FROM schema_snapshots WHERE connection_key = ?`, connKey)
	switch {
	case err == nil && existing == fingerprint:
		s.logger.Debug("schema snapshot unchanged", slog.String("connection", connKey))
		return false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("read snapshot fingerprint: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	names := c.TableNames()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO schema_snapshots (connection_key, id, fingerprint, payload, table_count, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (connection_key) DO UPDATE SET
			id = excluded.id,
			fingerprint = excluded.fingerprint,
			payload = excluded.payload,
			table_count = excluded.table_count,
			saved_at = excluded.saved_at
	`, connKey, uuid.NewString(), fingerprint, payload, len(names), time.Now().UnixMilli()); err != nil {
		return false, fmt.Errorf("upsert snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_tables WHERE connection_key = ?`, connKey); err != nil {
		return false, fmt.Errorf("clear snapshot tables: %w", err)
	}
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO snapshot_tables (connection_key, position, name) VALUES (?, ?, ?)`)
	if err != nil {
		return false, fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for i, name := range names {
		if _, err := stmt.ExecContext(ctx, connKey, i, name); err != nil {
			return false, fmt.Errorf("insert snapshot table %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	s.logger.Debug("schema snapshot saved",
		slog.String("connection", connKey),
		slog.Int("tables", len(names)))
	return true, nil
}

// Get returns the metadata of the snapshot for connKey.
func (s *SnapshotStore) Get(ctx context.Context, connKey string) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.GetContext(ctx, &snap, `
		SELECT connection_key, id, fingerprint, table_count, saved_at
		FROM schema_snapshots WHERE connection_key = ?
	`, connKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return &snap, nil
}

// List returns all snapshots, most recent first.
func (s *SnapshotStore) List(ctx context.Context) ([]Snapshot, error) {
	var snaps []Snapshot
	if err := s.db.SelectContext(ctx, &snaps, `
		SELECT connection_key, id, fingerprint, table_count, saved_at
		FROM schema_snapshots ORDER BY saved_at DESC, connection_key
	`); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

// TableNames returns the table names recorded for connKey, in name order.
func (s *SnapshotStore) TableNames(ctx context.Context, connKey string) ([]string, error) {
	if _, err := s.Get(ctx, connKey); err != nil {
		return nil, err
	}
	var names []string
	if err := s.db.SelectContext(ctx, &names, `
		SELECT name FROM snapshot_tables WHERE connection_key = ? ORDER BY position
	`, connKey); err != nil {
		return nil, fmt.Errorf("list snapshot tables: %w", err)
	}
	return names, nil
}

// LoadCache decodes the full snapshot for connKey.
func (s *SnapshotStore) LoadCache(ctx context.Context, connKey string) (*schema.Cache, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload,
		`SELECT payload FROM schema_snapshots WHERE connection_key = ?`, connKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	f, err := schema.ReadFixture(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return f.Cache(), nil
}

// Delete removes the snapshot for connKey.
func (s *SnapshotStore) Delete(ctx context.Context, connKey string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshot_tables WHERE connection_key = ?`, connKey); err != nil {
		return fmt.Errorf("delete snapshot tables: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM schema_snapshots WHERE connection_key = ?`, connKey)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}
