package domain

import "time"

// Snapshot is one encoded state document together with the counters that
// database sinks store alongside it.
type Snapshot struct {
	Document  []byte    // encoded FeatureCollection
	Features  int       // number of tracks
	Positions int       // total number of positions across all tracks
	TakenAt   time.Time // UTC
}
