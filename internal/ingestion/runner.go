package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"vessel-track-lab/internal/aisstream"
	"vessel-track-lab/internal/domain"
	"vessel-track-lab/internal/observability"
	"vessel-track-lab/internal/storage"
)

// State is the ingestion loop state.
type State string

const (
	StateConnecting State = "connecting"
	StateStreaming  State = "streaming"
	StateStopped    State = "stopped"
)

var knownStates = []string{string(StateConnecting), string(StateStreaming), string(StateStopped)}

// ErrStreamClosed is returned when a stream ends without an error.
var ErrStreamClosed = errors.New("stream closed")

// Runner consumes the feed and maintains the track store.
// It is the only writer to the store.
type Runner struct {
	source   Source
	store    storage.TrackStore
	notifier Notifier
	clock    func() time.Time
	logger   zerolog.Logger

	reconnect    bool
	initialDelay time.Duration
	maxDelay     time.Duration
	maxRetries   int

	state atomic.Value // State
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source   Source
	Store    storage.TrackStore
	Notifier Notifier // usually the snapshot writer; may be nil
	// Clock stamps positions at ingestion time. Default: time.Now.
	Clock func() time.Time

	// Reconnect re-dials and resubscribes after a stream failure.
	Reconnect bool
	// InitialDelay is the first backoff delay. Default: 1s.
	InitialDelay time.Duration
	// MaxDelay caps the backoff delay. Default: 30s.
	MaxDelay time.Duration
	// MaxRetries bounds consecutive connections that fail before delivering
	// a frame, whether the dial or the stream failed. Only used when
	// Reconnect is set. Zero means a single attempt.
	MaxRetries int

	Logger *zerolog.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	initialDelay := opts.InitialDelay
	if initialDelay == 0 {
		initialDelay = 1 * time.Second
	}

	maxDelay := opts.MaxDelay
	if maxDelay == 0 {
		maxDelay = 30 * time.Second
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "ingestion").Logger()
	}

	r := &Runner{
		source:       opts.Source,
		store:        opts.Store,
		notifier:     opts.Notifier,
		clock:        clock,
		logger:       logger,
		reconnect:    opts.Reconnect,
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		maxRetries:   opts.MaxRetries,
	}
	r.state.Store(StateStopped)
	return r
}

// State returns the current loop state.
func (r *Runner) State() State {
	return r.state.Load().(State)
}

func (r *Runner) setState(s State) {
	r.state.Store(s)
	observability.SetFeedState(string(s), knownStates)
}

// Run connects, streams and reconnects until ctx is cancelled or an
// unrecoverable error occurs. It blocks until then.
//
// Every reconnect waits for the next backoff delay. The delay and the retry
// budget reset only after a stream has delivered at least one frame.
func (r *Runner) Run(ctx context.Context) error {
	defer r.setState(StateStopped)

	policy := r.newBackOff()
	attempt := 0

	for {
		attempt++
		r.setState(StateConnecting)

		frames, err := r.session(ctx)
		if ctx.Err() != nil {
			r.logger.Info().Msg("runner stopping")
			return ctx.Err()
		}
		if errors.Is(err, aisstream.ErrFeedRejected) {
			return err
		}

		if frames > 0 {
			policy.Reset()
			attempt = 1
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			if !r.reconnect {
				return err
			}
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		r.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("feed interrupted, reconnecting")
		observability.RecordReconnect()

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// newBackOff returns the reconnect policy. Without Reconnect the budget is
// zero and the first failure is final.
func (r *Runner) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialDelay
	b.MaxInterval = r.maxDelay
	b.MaxElapsedTime = 0
	b.Reset()

	retries := uint64(0)
	if r.reconnect && r.maxRetries > 0 {
		retries = uint64(r.maxRetries)
	}
	return backoff.WithMaxRetries(b, retries)
}

// session dials once and streams until the connection fails. It returns the
// number of frames handled.
func (r *Runner) session(ctx context.Context) (int, error) {
	stream, err := r.source.Dial(ctx)
	observability.RecordConnectionAttempt(err)
	if err != nil {
		return 0, fmt.Errorf("connect feed: %w", err)
	}
	defer stream.Close()

	r.setState(StateStreaming)
	r.logger.Info().Msg("streaming position reports")

	frames, err := r.consume(ctx, stream)
	if err != nil {
		return frames, fmt.Errorf("stream failed: %w", err)
	}
	return frames, nil
}

// consume reads frames until the stream fails.
func (r *Runner) consume(ctx context.Context, stream Stream) (int, error) {
	frames := 0
	for {
		raw, err := stream.Next(ctx)
		if err != nil {
			return frames, err
		}
		if raw == nil {
			return frames, ErrStreamClosed
		}
		frames++

		if _, err := r.Handle(ctx, raw); err != nil {
			return frames, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Handle processes one raw frame. It returns true when the track store
// changed. Only feed rejections are returned as errors; other message types
// are discarded and malformed reports are logged and skipped.
func (r *Runner) Handle(ctx context.Context, raw []byte) (bool, error) {
	msg, err := aisstream.ParseMessage(raw)
	if err != nil {
		if errors.Is(err, aisstream.ErrFeedRejected) {
			return false, err
		}
		observability.RecordMalformed()
		r.logger.Warn().Err(err).Msg("skipping malformed message")
		return false, nil
	}

	observability.RecordMessage(msg.Type)
	if msg.Report == nil {
		observability.RecordDiscarded()
		return false, nil
	}

	report := msg.Report
	p := domain.NewPosition(report.Latitude, report.Longitude, r.clock())
	if err := r.store.Upsert(ctx, report.ShipID, p); err != nil {
		r.logger.Warn().Err(err).Str("ship_id", report.ShipID.String()).Msg("skipping position")
		return false, nil
	}

	observability.RecordPositionIngested(r.store.Len())
	r.logger.Trace().
		Str("ship_id", report.ShipID.String()).
		Str("ship_name", report.ShipName).
		Float64("lat", report.Latitude).
		Float64("lon", report.Longitude).
		Msg("position ingested")

	if r.notifier != nil {
		r.notifier.Notify()
	}
	return true, nil
}
