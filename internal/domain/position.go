package domain

import "time"

// ShipID is the feed-assigned vessel identifier (AIS MMSI), kept in its
// stringified form.
type ShipID string

// String returns the string representation of ShipID.
func (id ShipID) String() string {
	return string(id)
}

// Position is one observed fix. Positions are never mutated after creation.
type Position struct {
	Latitude   float64   // degrees, WGS 84
	Longitude  float64   // degrees, WGS 84
	ObservedAt time.Time // ingestion time, UTC
}

// NewPosition creates a Position stamped with the given time normalized to UTC.
func NewPosition(lat, lon float64, at time.Time) Position {
	return Position{
		Latitude:   lat,
		Longitude:  lon,
		ObservedAt: at.UTC(),
	}
}
