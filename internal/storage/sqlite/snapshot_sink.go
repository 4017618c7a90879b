// Package sqlite implements a snapshot sink on a local SQLite database using
// the cgo-free modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"vessel-track-lab/internal/domain"
	"vessel-track-lab/internal/storage"
)

const schema = `
	CREATE TABLE IF NOT EXISTS track_snapshots (
		name       TEXT PRIMARY KEY,
		document   TEXT NOT NULL,
		features   INTEGER NOT NULL,
		positions  INTEGER NOT NULL,
		taken_at   TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
`

// SnapshotSink implements storage.SnapshotSink with one row per name.
type SnapshotSink struct {
	db   *sql.DB
	name string
}

// Compile-time interface check.
var _ storage.SnapshotSink = (*SnapshotSink)(nil)

// Open opens (or creates) the database at path and ensures the schema.
func Open(ctx context.Context, path, name string) (*SnapshotSink, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty snapshot name", storage.ErrInvalidInput)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set synchronous mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create track_snapshots: %w", err)
	}

	return &SnapshotSink{db: db, name: name}, nil
}

// Close closes the database.
func (s *SnapshotSink) Close() error {
	return s.db.Close()
}

// Replace upserts the snapshot row.
func (s *SnapshotSink) Replace(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO track_snapshots (name, document, features, positions, taken_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			document = excluded.document,
			features = excluded.features,
			positions = excluded.positions,
			taken_at = excluded.taken_at,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		s.name,
		string(snap.Document),
		snap.Features,
		snap.Positions,
		snap.TakenAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert track snapshot: %w", err)
	}
	return nil
}

// Latest returns the stored snapshot. Returns ErrNotFound if nothing was
// written yet.
func (s *SnapshotSink) Latest(ctx context.Context) (*domain.Snapshot, error) {
	query := `
		SELECT document, features, positions, taken_at
		FROM track_snapshots
		WHERE name = ?
	`

	var (
		document string
		takenAt  string
		snap     domain.Snapshot
	)
	err := s.db.QueryRowContext(ctx, query, s.name).Scan(&document, &snap.Features, &snap.Positions, &takenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query track snapshot: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, takenAt)
	if err != nil {
		return nil, fmt.Errorf("parse taken_at: %w", err)
	}

	snap.Document = []byte(document)
	snap.TakenAt = ts
	return &snap, nil
}
