package postgres

import (
	"context"
	"fmt"
	"time"

	"vessel-track-lab/internal/domain"
	"vessel-track-lab/internal/storage"
)

// SnapshotSink implements storage.SnapshotSink on the track_snapshots table.
// Each name owns a single row that every write replaces.
type SnapshotSink struct {
	pool *Pool
	name string
}

// NewSnapshotSink creates a sink writing the row identified by name.
func NewSnapshotSink(pool *Pool, name string) *SnapshotSink {
	return &SnapshotSink{pool: pool, name: name}
}

// Compile-time interface check.
var _ storage.SnapshotSink = (*SnapshotSink)(nil)

// Replace upserts the snapshot row.
func (s *SnapshotSink) Replace(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || s.name == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO track_snapshots (name, document, features, positions, taken_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (name) DO UPDATE SET
			document = EXCLUDED.document,
			features = EXCLUDED.features,
			positions = EXCLUDED.positions,
			taken_at = EXCLUDED.taken_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		s.name, snap.Document, snap.Features, snap.Positions, snap.TakenAt,
	)
	if err != nil {
		return fmt.Errorf("upsert track snapshot: %w", err)
	}
	return nil
}

// Latest returns the stored snapshot. Returns ErrNotFound if nothing was
// written yet. The document comes back in jsonb normal form.
func (s *SnapshotSink) Latest(ctx context.Context) (*domain.Snapshot, error) {
	query := `
		SELECT document, features, positions, taken_at
		FROM track_snapshots
		WHERE name = $1
	`

	var snap domain.Snapshot
	var takenAt time.Time
	err := s.pool.QueryRow(ctx, query, s.name).Scan(
		&snap.Document, &snap.Features, &snap.Positions, &takenAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query track snapshot: %w", err)
	}

	snap.TakenAt = takenAt.UTC()
	return &snap, nil
}
