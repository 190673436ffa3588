// Package storage is the local fast path: a SQLite table holding the latest
// serialized ledger per key. It is read once at startup for instant display
// and written synchronously on every mutation, so the app works offline while
// the remote mirror catches up.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when no snapshot has been written for a key.
var ErrNoSnapshot = errors.New("no ledger snapshot")

// Snapshot is one stored ledger document with its sync bookkeeping.
type Snapshot struct {
	Key       string
	Version   int64
	Doc       []byte
	Synced    bool
	UpdatedAt time.Time
}

type SnapshotCache struct {
	db *sql.DB
}

func NewSnapshotCache(dbPath string) (*SnapshotCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SnapshotCache{db: db}, nil
}

func (c *SnapshotCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Save overwrites the snapshot for key and marks it unsynced.
func (c *SnapshotCache) Save(ctx context.Context, key string, version int64, doc []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO ledger_snapshots (key, version, doc, synced, updated_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(key) DO UPDATE SET
			version = excluded.version,
			doc = excluded.doc,
			synced = 0,
			updated_at = excluded.updated_at`,
		key, version, doc, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot for key.
func (c *SnapshotCache) Load(ctx context.Context, key string) (Snapshot, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT key, version, doc, synced, updated_at
		FROM ledger_snapshots WHERE key = ?`, key)

	var (
		s         Snapshot
		synced    int64
		updatedAt string
	)
	err := row.Scan(&s.Key, &s.Version, &s.Doc, &synced, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	s.Synced = synced != 0
	if t, perr := time.Parse(time.RFC3339Nano, updatedAt); perr == nil {
		s.UpdatedAt = t
	}
	return s, nil
}

// MarkSynced records that the given version reached the remote store. A
// newer local version keeps the row unsynced.
func (c *SnapshotCache) MarkSynced(ctx context.Context, key string, version int64) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE ledger_snapshots SET synced = 1
		WHERE key = ? AND version <= ?`, key, version)
	if err != nil {
		return fmt.Errorf("mark snapshot synced: %w", err)
	}
	return nil
}

// PendingSync lists snapshots that have not reached the remote store yet.
func (c *SnapshotCache) PendingSync(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT key, version, doc, synced, updated_at
		FROM ledger_snapshots WHERE synced = 0
		ORDER BY updated_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			s         Snapshot
			synced    int64
			updatedAt string
		)
		if err := rows.Scan(&s.Key, &s.Version, &s.Doc, &synced, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan pending snapshot: %w", err)
		}
		s.Synced = synced != 0
		if t, perr := time.Parse(time.RFC3339Nano, updatedAt); perr == nil {
			s.UpdatedAt = t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete drops the snapshot for key.
func (c *SnapshotCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM ledger_snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
