package storage

import (
	"context"

	"vessel-track-lab/internal/domain"
)

// TrackStore holds the per-vessel position history.
// A single producer mutates it; snapshot readers may run concurrently.
type TrackStore interface {
	// Upsert creates a track holding only p when id is unseen, otherwise
	// appends p to the existing track. Returns ErrInvalidInput for an empty id.
	Upsert(ctx context.Context, id domain.ShipID, p domain.Position) error

	// Snapshot returns every track in first-seen order as a point-in-time view.
	// Returned tracks are not affected by later upserts.
	Snapshot(ctx context.Context) ([]domain.Track, error)

	// Len returns the number of tracked vessels.
	Len() int
}

// SnapshotSink receives the full state document.
// Each call replaces the previous content; sinks never append.
type SnapshotSink interface {
	Replace(ctx context.Context, s *domain.Snapshot) error
}
