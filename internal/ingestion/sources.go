package ingestion

import "context"

// Stream is one subscribed feed connection delivering raw frames.
type Stream interface {
	// Next blocks until the next frame arrives or the stream fails.
	Next(ctx context.Context) ([]byte, error)

	// Close releases the connection.
	Close() error
}

// Source opens subscribed streams. Each Dial is one connection attempt.
type Source interface {
	Dial(ctx context.Context) (Stream, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Stream, error)

// Dial calls f(ctx).
func (f SourceFunc) Dial(ctx context.Context) (Stream, error) {
	return f(ctx)
}

// Notifier is told after every change to the track store.
type Notifier interface {
	Notify()
}
