// Package snapshot turns the track store into a GeoJSON FeatureCollection
// and hands it to the output sink.
package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"vessel-track-lab/internal/domain"
	"vessel-track-lab/internal/geometry"
)

// TimestampFormat is the ISO-8601 layout used for observation timestamps.
const TimestampFormat = time.RFC3339Nano

// Feature property keys.
const (
	PropShipID     = "ship_id"
	PropTimestamps = "timestamps"
)

// ErrUnencodable means the document could not be encoded. Every value in the
// document is produced internally, so this is a contract violation and is
// treated as fatal.
var ErrUnencodable = errors.New("snapshot not encodable")

// Build converts tracks into one Feature per track, preserving track order.
// Tracks without positions are skipped.
func Build(tracks []domain.Track) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, t := range tracks {
		if t.Len() == 0 {
			continue
		}
		fc.Append(buildFeature(t))
	}
	return fc
}

func buildFeature(t domain.Track) *geojson.Feature {
	shape := geometry.Classify(t.Positions)

	timestamps := make([]string, len(t.Positions))
	for i, p := range t.Positions {
		timestamps[i] = p.ObservedAt.UTC().Format(TimestampFormat)
	}

	f := geojson.NewFeature(shape.Geometry)
	f.Properties[PropShipID] = t.ShipID.String()
	f.Properties[PropTimestamps] = timestamps
	return f
}

// Encode marshals the collection. Failures wrap ErrUnencodable.
func Encode(fc *geojson.FeatureCollection) ([]byte, error) {
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	return data, nil
}

// New builds and encodes a snapshot of tracks taken at the given time.
func New(tracks []domain.Track, takenAt time.Time) (*domain.Snapshot, error) {
	fc := Build(tracks)
	data, err := Encode(fc)
	if err != nil {
		return nil, err
	}

	positions := 0
	for _, t := range tracks {
		positions += t.Len()
	}

	return &domain.Snapshot{
		Document:  data,
		Features:  len(fc.Features),
		Positions: positions,
		TakenAt:   takenAt.UTC(),
	}, nil
}
