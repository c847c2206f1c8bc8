package pathstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/config"
	"github.com/banshee-data/noisemap/internal/noise/aggregate"
	"github.com/banshee-data/noisemap/internal/noise/attenuation"
	"github.com/banshee-data/noisemap/internal/noise/path"
	"github.com/banshee-data/noisemap/internal/noise/pathfinder"
	"github.com/banshee-data/noisemap/internal/noise/scene"
	"github.com/banshee-data/noisemap/internal/testutil"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "paths.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func screenData(t *testing.T) *pathfinder.Data {
	t.Helper()
	sc := testutil.Scene(t, func(b *scene.Builder) {
		_, err := b.AddWall(orb.LineString{{100, -100}, {100, 200}}, []float64{10}, nil)
		require.NoError(t, err)
	})
	d := pathfinder.NewData(sc, config.EmptyPropagationConfig())
	d.ReflexionOrder = 0
	d.ComputeVerticalDiffraction = true
	d.ComputeHorizontalDiffraction = false
	d.ThreadCount = 2
	require.NoError(t, d.AddPointSource(1, r3.Vec{X: 10, Y: 10, Z: 1}, nil))
	require.NoError(t, d.AddReceiver(1, r3.Vec{X: 200, Y: 50, Z: 4}))
	require.NoError(t, d.AddReceiver(2, r3.Vec{X: 200, Y: 50, Z: 40}))
	require.NoError(t, d.AddReceiver(3, r3.Vec{X: 200, Y: -20, Z: 4}))
	return d
}

func TestMigrations(t *testing.T) {
	s := openStore(t)
	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	require.NoError(t, s.MigrateUp(), "already at the latest version")

	require.NoError(t, s.MigrateDown())
	version, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	require.NoError(t, s.MigrateUp())
}

func TestRecordRun(t *testing.T) {
	s := openStore(t)
	d := screenData(t)
	data := attenuation.NewPathData(config.EmptyPropagationConfig())
	res := aggregate.New(data, aggregate.Options{KeepRays: true})

	runID, err := s.CreateRun("screen", map[string]int{"order": 0})
	require.NoError(t, err)
	rec := s.Recorder(runID, res)
	require.NoError(t, d.Run(context.Background(), rec))
	require.NoError(t, rec.Err())
	require.NoError(t, s.CompleteRun(runID))

	rays := res.Rays()
	require.Len(t, rays, 3)

	all, err := s.AllPaths(runID)
	require.NoError(t, err)
	require.Len(t, all, len(rays))
	for i, row := range all {
		assert.Equal(t, 1, row.SourceID)
		assert.Equal(t, rays[i].Path.Kind, row.Path.Kind)
		replayed := attenuation.Evaluate(row.Path, data)
		testutil.AssertSpectrum(t, replayed.AGlobalH, rays[i].Attenuation.AGlobalH, 1e-9)
		testutil.AssertSpectrum(t, replayed.AGlobalF, rays[i].Attenuation.AGlobalF, 1e-9)
	}

	one, err := s.Paths(runID, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, path.KindVerticalDiffraction, one[0].Path.Kind)
	above, err := s.Paths(runID, 2)
	require.NoError(t, err)
	require.Len(t, above, 1)
	assert.Equal(t, path.KindDirect, above[0].Path.Kind)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "screen", runs[0].Label)
	assert.JSONEq(t, `{"order": 0}`, runs[0].ConfigJSON)
	assert.Equal(t, 3, runs[0].ReceiverCount)
	assert.Equal(t, 3, runs[0].PathCount)
	require.NotNil(t, runs[0].CompletedAt)
	assert.False(t, runs[0].CreatedAt.IsZero())
}

func TestRecorderWithoutNext(t *testing.T) {
	s := openStore(t)
	d := screenData(t)
	runID, err := s.CreateRun("", nil)
	require.NoError(t, err)
	rec := s.Recorder(runID, nil)
	require.NoError(t, d.Run(context.Background(), rec))
	require.NoError(t, rec.Err())

	all, err := s.AllPaths(runID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].ReceiverID, all[i].ReceiverID)
	}
}

func TestDeleteRun(t *testing.T) {
	s := openStore(t)
	d := screenData(t)
	runID, err := s.CreateRun("tmp", nil)
	require.NoError(t, err)
	require.NoError(t, d.Run(context.Background(), s.Recorder(runID, nil)))

	require.NoError(t, s.DeleteRun(runID))
	all, err := s.AllPaths(runID)
	require.NoError(t, err)
	assert.Empty(t, all)
	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)

	assert.ErrorIs(t, s.DeleteRun(runID), ErrUnknownRun)
	assert.ErrorIs(t, s.CompleteRun("missing"), ErrUnknownRun)
}

func TestSavePathsEmpty(t *testing.T) {
	s := openStore(t)
	runID, err := s.CreateRun("empty", nil)
	require.NoError(t, err)
	require.NoError(t, s.SavePaths(runID, 1, nil))
	rows, err := s.Paths(runID, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
