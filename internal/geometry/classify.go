// Package geometry maps vessel tracks onto GeoJSON geometries.
//
// All coordinates produced here are in [longitude, latitude] order, the
// reverse of the [lat, lon] order used by the feed and by domain.Position.
package geometry

import (
	"github.com/paulmach/orb"

	"vessel-track-lab/internal/domain"
)

// Kind is the geometry type a track classifies as.
type Kind string

const (
	KindPoint      Kind = "Point"
	KindLineString Kind = "LineString"
)

// Shape is the classified geometry of one track.
type Shape struct {
	Kind     Kind
	Geometry orb.Geometry // orb.Point or orb.LineString
}

// CoordinateCount returns the number of [lon, lat] pairs in the shape.
func (s Shape) CoordinateCount() int {
	switch g := s.Geometry.(type) {
	case orb.Point:
		return 1
	case orb.LineString:
		return len(g)
	default:
		return 0
	}
}

// ToPoint converts a position to an orb.Point ([lon, lat]).
func ToPoint(p domain.Position) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// Classify returns a Point for a single position and a LineString for two
// or more, preserving input order. Callers never pass an empty slice.
func Classify(positions []domain.Position) Shape {
	if len(positions) == 1 {
		return Shape{Kind: KindPoint, Geometry: ToPoint(positions[0])}
	}

	line := make(orb.LineString, len(positions))
	for i, p := range positions {
		line[i] = ToPoint(p)
	}
	return Shape{Kind: KindLineString, Geometry: line}
}

// BoundaryRing returns the closed 5-point ring outlining the box:
// SW, NW, NE, SE, SW.
func BoundaryRing(b domain.BoundingBox) orb.Ring {
	bottomLeft := orb.Point{b.SouthWest.Lon, b.SouthWest.Lat}
	topRight := orb.Point{b.NorthEast.Lon, b.NorthEast.Lat}
	return orb.Ring{
		bottomLeft,
		{bottomLeft[0], topRight[1]},
		topRight,
		{topRight[0], bottomLeft[1]},
		bottomLeft,
	}
}
