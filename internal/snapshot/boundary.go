package snapshot

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"vessel-track-lab/internal/domain"
	"vessel-track-lab/internal/geometry"
	"vessel-track-lab/internal/storage/file"
)

// BoundaryFeature returns the subscription area as a Polygon feature with
// empty properties.
func BoundaryFeature(b domain.BoundingBox) *geojson.Feature {
	return geojson.NewFeature(orb.Polygon{geometry.BoundaryRing(b)})
}

// WriteBoundary writes the boundary feature to path. It is called once at
// startup, before streaming begins.
func WriteBoundary(path string, b domain.BoundingBox) error {
	data, err := BoundaryFeature(b).MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: boundary: %v", ErrUnencodable, err)
	}
	if err := file.WriteAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write boundary: %w", err)
	}
	return nil
}
