package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"vessel-track-lab/internal/domain"
	"vessel-track-lab/internal/storage"
)

// SnapshotSink implements storage.SnapshotSink on a ReplacingMergeTree.
// Every write inserts a row; merges keep the newest updated_at per name,
// so readers must use FINAL to see exactly one row.
type SnapshotSink struct {
	conn *Conn
	name string

	mu          sync.Mutex
	lastVersion time.Time
}

// NewSnapshotSink creates a sink writing rows for name.
func NewSnapshotSink(conn *Conn, name string) *SnapshotSink {
	return &SnapshotSink{conn: conn, name: name}
}

// Compile-time interface check.
var _ storage.SnapshotSink = (*SnapshotSink)(nil)

// Replace inserts a new version of the snapshot row.
func (s *SnapshotSink) Replace(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || s.name == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO track_snapshots (
			name, document, features, positions, taken_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		s.name, string(snap.Document), uint32(snap.Features), uint64(snap.Positions),
		snap.TakenAt.UTC(), s.nextVersion(),
	)
	if err != nil {
		return fmt.Errorf("insert track snapshot: %w", err)
	}
	return nil
}

// nextVersion returns a strictly increasing updated_at so two writes in the
// same clock tick still order correctly.
func (s *SnapshotSink) nextVersion() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := time.Now().UTC()
	if !v.After(s.lastVersion) {
		v = s.lastVersion.Add(time.Nanosecond)
	}
	s.lastVersion = v
	return v
}

// Latest returns the newest snapshot. Returns ErrNotFound if nothing was
// written yet.
func (s *SnapshotSink) Latest(ctx context.Context) (*domain.Snapshot, error) {
	query := `
		SELECT document, features, positions, taken_at
		FROM track_snapshots FINAL
		WHERE name = ?
		LIMIT 1
	`

	var (
		document  string
		features  uint32
		positions uint64
		takenAt   time.Time
	)
	err := s.conn.QueryRow(ctx, query, s.name).Scan(&document, &features, &positions, &takenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query track snapshot: %w", err)
	}

	return &domain.Snapshot{
		Document:  []byte(document),
		Features:  int(features),
		Positions: int(positions),
		TakenAt:   takenAt.UTC(),
	}, nil
}

// Versions returns how many unmerged rows exist for name.
func (s *SnapshotSink) Versions(ctx context.Context) (uint64, error) {
	var n uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM track_snapshots WHERE name = ?`, s.name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count track snapshot versions: %w", err)
	}
	return n, nil
}
