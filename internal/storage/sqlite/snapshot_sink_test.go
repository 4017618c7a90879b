package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vessel-track-lab/internal/domain"
	"vessel-track-lab/internal/storage"
)

func openTestSink(t *testing.T, name string) (*SnapshotSink, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tracks.db")
	sink, err := Open(context.Background(), path, name)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	return sink, path
}

func TestSnapshotSink_LatestBeforeWrite(t *testing.T) {
	sink, _ := openTestSink(t, "vessels")

	_, err := sink.Latest(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnapshotSink_ReplaceKeepsOneRow(t *testing.T) {
	sink, _ := openTestSink(t, "vessels")
	ctx := context.Background()

	takenAt := time.Date(2024, 3, 1, 8, 30, 0, 500, time.UTC)
	require.NoError(t, sink.Replace(ctx, &domain.Snapshot{
		Document: []byte(`{"type":"FeatureCollection","features":[]}`),
		TakenAt:  takenAt,
	}))

	doc := []byte(`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[10,45]},"properties":{"ship_id":"123","timestamps":["2024-03-01T08:30:00Z"]}}]}`)
	require.NoError(t, sink.Replace(ctx, &domain.Snapshot{
		Document:  doc,
		Features:  1,
		Positions: 1,
		TakenAt:   takenAt.Add(time.Second),
	}))

	var rows int
	require.NoError(t, sink.db.QueryRowContext(ctx, `SELECT count(*) FROM track_snapshots`).Scan(&rows))
	assert.Equal(t, 1, rows)

	got, err := sink.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, got.Document)
	assert.Equal(t, 1, got.Features)
	assert.Equal(t, 1, got.Positions)
	assert.Equal(t, takenAt.Add(time.Second), got.TakenAt)
}

func TestSnapshotSink_SurvivesReopen(t *testing.T) {
	sink, path := openTestSink(t, "vessels")
	ctx := context.Background()

	require.NoError(t, sink.Replace(ctx, &domain.Snapshot{
		Document: []byte(`{"type":"FeatureCollection","features":[]}`),
		TakenAt:  time.Now(),
	}))
	require.NoError(t, sink.Close())

	reopened, err := Open(ctx, path, "vessels")
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Latest(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(got.Document))
}

func TestOpen_RequiresName(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "x.db"), "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestSnapshotSink_RejectsNil(t *testing.T) {
	sink, _ := openTestSink(t, "vessels")
	assert.ErrorIs(t, sink.Replace(context.Background(), nil), storage.ErrInvalidInput)
}
