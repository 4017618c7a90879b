package memory

import (
	"context"
	"sync"

	"vessel-track-lab/internal/domain"
	"vessel-track-lab/internal/storage"
)

// TrackStoreOptions configures a TrackStore.
type TrackStoreOptions struct {
	// MaxPositions caps the history kept per vessel (oldest dropped first).
	// Zero keeps every position.
	MaxPositions int
}

// TrackStore is an in-memory implementation of storage.TrackStore.
// It grows without bound unless MaxPositions is set.
type TrackStore struct {
	mu           sync.RWMutex
	tracks       map[domain.ShipID][]domain.Position
	order        []domain.ShipID // first-seen order
	maxPositions int
}

// NewTrackStore creates a new in-memory track store.
func NewTrackStore(opts TrackStoreOptions) *TrackStore {
	maxPositions := opts.MaxPositions
	if maxPositions < 0 {
		maxPositions = 0
	}

	return &TrackStore{
		tracks:       make(map[domain.ShipID][]domain.Position),
		order:        make([]domain.ShipID, 0),
		maxPositions: maxPositions,
	}
}

// Compile-time interface check.
var _ storage.TrackStore = (*TrackStore)(nil)

// Upsert creates a track for an unseen id or appends to an existing one.
func (s *TrackStore) Upsert(_ context.Context, id domain.ShipID, p domain.Position) error {
	if id == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	positions, ok := s.tracks[id]
	if !ok {
		s.order = append(s.order, id)
	}

	positions = append(positions, p)
	if s.maxPositions > 0 && len(positions) > s.maxPositions {
		// Reslice only: elements visible through earlier snapshots stay untouched.
		positions = positions[len(positions)-s.maxPositions:]
	}
	s.tracks[id] = positions

	return nil
}

// Snapshot returns all tracks in first-seen order.
// Position slices are capped at their current length, so later appends
// reallocate or write past the end instead of touching the returned view.
func (s *TrackStore) Snapshot(_ context.Context) ([]domain.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Track, 0, len(s.order))
	for _, id := range s.order {
		positions := s.tracks[id]
		n := len(positions)
		result = append(result, domain.Track{
			ShipID:    id,
			Positions: positions[:n:n],
		})
	}

	return result, nil
}

// Len returns the number of tracked vessels.
func (s *TrackStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}

// PositionCount returns the total number of stored positions.
func (s *TrackStore) PositionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, positions := range s.tracks {
		total += len(positions)
	}
	return total
}
