package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vessel-track-lab/internal/domain"
)

func TestWriteBoundary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.json_bbox.json")
	box := domain.BoundingBox{
		SouthWest: domain.Corner{Lat: 11.5, Lon: 30.25},
		NorthEast: domain.Corner{Lat: 31.75, Lon: 44.5},
	}

	require.NoError(t, WriteBoundary(path, box))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	f, err := geojson.UnmarshalFeature(data)
	require.NoError(t, err)

	poly, ok := f.Geometry.(orb.Polygon)
	require.True(t, ok, "expected polygon, got %T", f.Geometry)
	require.Len(t, poly, 1)

	want := orb.Ring{{30.25, 11.5}, {30.25, 31.75}, {44.5, 31.75}, {44.5, 11.5}, {30.25, 11.5}}
	assert.Equal(t, want, poly[0])
	assert.Empty(t, f.Properties)
}
