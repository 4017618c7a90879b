package geometry

import (
	"math/rand"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vessel-track-lab/internal/domain"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestClassify_SinglePositionIsPoint(t *testing.T) {
	shape := Classify([]domain.Position{domain.NewPosition(45.0, 10.0, t0)})

	assert.Equal(t, KindPoint, shape.Kind)
	require.IsType(t, orb.Point{}, shape.Geometry)
	assert.Equal(t, orb.Point{10.0, 45.0}, shape.Geometry)
	assert.Equal(t, 1, shape.CoordinateCount())
}

func TestClassify_TwoPositionsIsLineString(t *testing.T) {
	shape := Classify([]domain.Position{
		domain.NewPosition(45.0, 10.0, t0),
		domain.NewPosition(45.1, 10.2, t0.Add(time.Second)),
	})

	assert.Equal(t, KindLineString, shape.Kind)
	assert.Equal(t, orb.LineString{{10.0, 45.0}, {10.2, 45.1}}, shape.Geometry)
	assert.Equal(t, 2, shape.CoordinateCount())
}

func TestClassify_LongitudeFirst(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for n := 1; n <= 20; n++ {
		positions := make([]domain.Position, n)
		for i := range positions {
			positions[i] = domain.NewPosition(rng.Float64()*180-90, rng.Float64()*360-180, t0)
		}

		shape := Classify(positions)
		require.Equal(t, n, shape.CoordinateCount())

		var points []orb.Point
		switch g := shape.Geometry.(type) {
		case orb.Point:
			require.Equal(t, 1, n)
			points = []orb.Point{g}
		case orb.LineString:
			require.GreaterOrEqual(t, n, 2)
			points = g
		default:
			t.Fatalf("unexpected geometry %T", g)
		}

		for i, p := range points {
			assert.Equal(t, positions[i].Longitude, p[0], "first element must be longitude")
			assert.Equal(t, positions[i].Latitude, p[1], "second element must be latitude")
		}
	}
}

func TestBoundaryRing(t *testing.T) {
	ring := BoundaryRing(domain.BoundingBox{
		SouthWest: domain.Corner{Lat: 11, Lon: 30},
		NorthEast: domain.Corner{Lat: 31, Lon: 44},
	})

	want := orb.Ring{{30, 11}, {30, 31}, {44, 31}, {44, 11}, {30, 11}}
	assert.Equal(t, want, ring)
	assert.True(t, ring.Closed())
}
