package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"vessel-track-lab/internal/observability"
	"vessel-track-lab/internal/storage"
)

const finalFlushTimeout = 10 * time.Second

// WriterOptions contains configuration for creating a Writer.
type WriterOptions struct {
	Store storage.TrackStore
	Sink  storage.SnapshotSink
	// Interval is the minimum time between two writes. Zero writes as soon
	// as a change is signalled; changes arriving during a write coalesce.
	Interval time.Duration
	// Clock stamps snapshots. Default: time.Now.
	Clock  func() time.Time
	Logger *zerolog.Logger
}

// Writer is the single consumer that serializes the track store to the sink.
// The ingestion loop calls Notify after every change; Run drains the signals.
type Writer struct {
	store    storage.TrackStore
	sink     storage.SnapshotSink
	interval time.Duration
	clock    func() time.Time
	logger   zerolog.Logger

	signal chan struct{}
	dirty  atomic.Bool

	flushMu     sync.Mutex
	lastSuccess atomic.Int64 // unix nanos
	lastErr     atomic.Value // errorBox
}

type errorBox struct{ err error }

// NewWriter creates a new snapshot writer.
func NewWriter(opts WriterOptions) *Writer {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "snapshot").Logger()
	}

	interval := opts.Interval
	if interval < 0 {
		interval = 0
	}

	return &Writer{
		store:    opts.Store,
		sink:     opts.Sink,
		interval: interval,
		clock:    clock,
		logger:   logger,
		signal:   make(chan struct{}, 1),
	}
}

// Notify signals that the store changed. It never blocks.
func (w *Writer) Notify() {
	w.dirty.Store(true)
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Run drains change signals until ctx is cancelled, then performs a final
// flush of any pending change. It returns a non-nil error only for
// ErrUnencodable; sink failures are logged and retried on the next signal.
func (w *Writer) Run(ctx context.Context) error {
	w.logger.Info().Dur("interval", w.interval).Msg("snapshot writer started")

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return w.finalFlush()
		case <-w.signal:
		}

		if w.interval > 0 && !last.IsZero() {
			if wait := w.interval - time.Since(last); wait > 0 {
				select {
				case <-ctx.Done():
					return w.finalFlush()
				case <-time.After(wait):
				}
			}
		}
		last = time.Now()

		if err := w.Flush(ctx); err != nil {
			if errors.Is(err, ErrUnencodable) {
				return err
			}
			w.logger.Warn().Err(err).Msg("snapshot write failed, will retry on next change")
		}
	}
}

func (w *Writer) finalFlush() error {
	if !w.dirty.Load() {
		w.logger.Info().Msg("snapshot writer stopped")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer cancel()

	err := w.Flush(ctx)
	if errors.Is(err, ErrUnencodable) {
		return err
	}
	if err != nil {
		w.logger.Warn().Err(err).Msg("final snapshot write failed")
	}
	w.logger.Info().Msg("snapshot writer stopped")
	return nil
}

// Flush snapshots the store and replaces the sink content.
// The written document reflects every upsert completed before Flush began.
func (w *Writer) Flush(ctx context.Context) error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	start := time.Now()
	w.dirty.Store(false)

	tracks, err := w.store.Snapshot(ctx)
	if err != nil {
		w.dirty.Store(true)
		return w.fail(start, 0, fmt.Errorf("snapshot store: %w", err))
	}

	snap, err := New(tracks, w.clock())
	if err != nil {
		return w.fail(start, 0, err)
	}

	if err := w.sink.Replace(ctx, snap); err != nil {
		w.dirty.Store(true)
		return w.fail(start, len(snap.Document), fmt.Errorf("replace sink content: %w", err))
	}

	observability.RecordSnapshot(time.Since(start), len(snap.Document), nil)
	w.lastSuccess.Store(snap.TakenAt.UnixNano())
	w.lastErr.Store(errorBox{})

	w.logger.Debug().
		Int("features", snap.Features).
		Int("positions", snap.Positions).
		Int("bytes", len(snap.Document)).
		Msg("snapshot written")

	return nil
}

func (w *Writer) fail(start time.Time, size int, err error) error {
	observability.RecordSnapshot(time.Since(start), size, err)
	w.lastErr.Store(errorBox{err: err})
	return err
}

// LastSuccess returns the time of the last successful write, zero if none.
func (w *Writer) LastSuccess() time.Time {
	n := w.lastSuccess.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// LastError returns the error of the most recent write, nil if it succeeded.
func (w *Writer) LastError() error {
	box, _ := w.lastErr.Load().(errorBox)
	return box.err
}
