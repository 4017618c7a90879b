package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vessel-track-lab/internal/domain"
	"vessel-track-lab/internal/storage/memory"
)

// recordingSink keeps every document it receives.
type recordingSink struct {
	mu   sync.Mutex
	docs [][]byte
	err  error
}

func (s *recordingSink) Replace(_ context.Context, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, append([]byte(nil), snap.Document...))
	return nil
}

func (s *recordingSink) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *recordingSink) last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.docs) == 0 {
		return nil
	}
	return s.docs[len(s.docs)-1]
}

func fixedClock() time.Time { return t0 }

func TestWriter_FlushWritesCurrentState(t *testing.T) {
	store := memory.NewTrackStore(memory.TrackStoreOptions{})
	sink := &recordingSink{}
	w := NewWriter(WriterOptions{Store: store, Sink: sink, Clock: fixedClock})
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "123", domain.NewPosition(45.0, 10.0, t0)))
	require.NoError(t, w.Flush(ctx))

	fc := decode(t, sink.last())
	require.Len(t, fc.Features, 1)
	assert.Equal(t, orb.Point{10.0, 45.0}, fc.Features[0].Geometry)
	assert.Equal(t, t0, w.LastSuccess())
	assert.NoError(t, w.LastError())
}

func TestWriter_FlushTwiceIsIdentical(t *testing.T) {
	store := memory.NewTrackStore(memory.TrackStoreOptions{})
	sink := &recordingSink{}
	w := NewWriter(WriterOptions{Store: store, Sink: sink, Clock: fixedClock})
	ctx := context.Background()

	_ = store.Upsert(ctx, "1", domain.NewPosition(1, 2, t0))
	_ = store.Upsert(ctx, "2", domain.NewPosition(3, 4, t0))
	_ = store.Upsert(ctx, "1", domain.NewPosition(1.1, 2.1, t0.Add(time.Second)))

	require.NoError(t, w.Flush(ctx))
	require.NoError(t, w.Flush(ctx))

	require.Equal(t, 2, sink.count())
	assert.Equal(t, sink.docs[0], sink.docs[1])
}

func TestWriter_SinkErrorIsRecoverable(t *testing.T) {
	store := memory.NewTrackStore(memory.TrackStoreOptions{})
	sink := &recordingSink{}
	w := NewWriter(WriterOptions{Store: store, Sink: sink, Clock: fixedClock})
	ctx := context.Background()

	_ = store.Upsert(ctx, "1", domain.NewPosition(1, 2, t0))

	sinkErr := errors.New("disk full")
	sink.setErr(sinkErr)

	err := w.Flush(ctx)
	require.ErrorIs(t, err, sinkErr)
	assert.NotErrorIs(t, err, ErrUnencodable)
	assert.ErrorIs(t, w.LastError(), sinkErr)
	assert.Equal(t, 1, store.Len(), "store must be untouched by sink failure")

	// Next message retries with the larger state.
	sink.setErr(nil)
	_ = store.Upsert(ctx, "2", domain.NewPosition(3, 4, t0))
	require.NoError(t, w.Flush(ctx))

	fc := decode(t, sink.last())
	assert.Len(t, fc.Features, 2)
	assert.NoError(t, w.LastError())
}

func TestWriter_RunFlushesOnNotify(t *testing.T) {
	store := memory.NewTrackStore(memory.TrackStoreOptions{})
	sink := &recordingSink{}
	w := NewWriter(WriterOptions{Store: store, Sink: sink, Clock: fixedClock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	_ = store.Upsert(ctx, "123", domain.NewPosition(45.0, 10.0, t0))
	w.Notify()

	require.Eventually(t, func() bool { return sink.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	_ = store.Upsert(ctx, "123", domain.NewPosition(45.1, 10.2, t0.Add(time.Second)))
	w.Notify()

	require.Eventually(t, func() bool {
		doc := sink.last()
		if doc == nil {
			return false
		}
		fc := decode(t, doc)
		_, ok := fc.Features[0].Geometry.(orb.LineString)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not stop")
	}
}

func TestWriter_FinalFlushOnShutdown(t *testing.T) {
	store := memory.NewTrackStore(memory.TrackStoreOptions{})
	sink := &recordingSink{}
	w := NewWriter(WriterOptions{Store: store, Sink: sink, Clock: fixedClock, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// First change is written immediately, the second waits for the interval.
	_ = store.Upsert(ctx, "1", domain.NewPosition(1, 2, t0))
	w.Notify()
	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	_ = store.Upsert(ctx, "2", domain.NewPosition(3, 4, t0))
	w.Notify()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, sink.count(), "debounced write must wait for the interval")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not stop")
	}

	require.Equal(t, 2, sink.count())
	fc := decode(t, sink.last())
	assert.Len(t, fc.Features, 2)
}

func TestWriter_NoFinalFlushWhenClean(t *testing.T) {
	store := memory.NewTrackStore(memory.TrackStoreOptions{})
	sink := &recordingSink{}
	w := NewWriter(WriterOptions{Store: store, Sink: sink})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, w.Run(ctx))
	assert.Equal(t, 0, sink.count())
}
