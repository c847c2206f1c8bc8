package scene

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

func TestBuilderFrozen(t *testing.T) {
	b := NewBuilder()
	_, err := b.Finish()
	require.NoError(t, err)

	_, err = b.AddBuilding(square(0, 0, 10, 10), 5, nil)
	assert.ErrorIs(t, err, ErrSceneFrozen)
	_, err = b.AddWall(orb.LineString{{0, 0}, {10, 0}}, []float64{3}, nil)
	assert.ErrorIs(t, err, ErrSceneFrozen)
	assert.ErrorIs(t, b.AddGroundEffect(square(0, 0, 1, 1), 0.5), ErrSceneFrozen)
	assert.ErrorIs(t, b.AddTopographicPoint(r3.Vec{}), ErrSceneFrozen)
	assert.ErrorIs(t, b.AddTopographicLine([]r3.Vec{{}, {X: 1}}), ErrSceneFrozen)
	_, err = b.Finish()
	assert.ErrorIs(t, err, ErrSceneFrozen)
}

func TestBuilderValidation(t *testing.T) {
	tests := []struct {
		name string
		add  func(b *Builder) error
		want error
	}{
		{"ground above one", func(b *Builder) error { return b.AddGroundEffect(square(0, 0, 1, 1), 1.2) }, ErrInvalidGroundCoefficient},
		{"ground negative", func(b *Builder) error { return b.AddGroundEffectRect(0, 1, 0, 1, -0.1) }, ErrInvalidGroundCoefficient},
		{"ground NaN", func(b *Builder) error { return b.AddGroundEffect(square(0, 0, 1, 1), math.NaN()) }, ErrInvalidGroundCoefficient},
		{"building NaN height", func(b *Builder) error {
			_, err := b.AddBuilding(square(0, 0, 1, 1), math.NaN(), nil)
			return err
		}, ErrInvalidHeight},
		{"height count mismatch", func(b *Builder) error {
			_, err := b.AddBuildingWithHeights(square(0, 0, 1, 1), []float64{1, 2}, nil)
			return err
		}, ErrInvalidHeight},
		{"wall height count mismatch", func(b *Builder) error {
			_, err := b.AddWall(orb.LineString{{0, 0}, {1, 0}, {2, 0}}, []float64{1, 2}, nil)
			return err
		}, ErrInvalidHeight},
		{"topography NaN", func(b *Builder) error { return b.AddTopographicPoint(r3.Vec{Z: math.NaN()}) }, ErrInvalidHeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.add(NewBuilder())
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestDegenerateGeometryIsSkipped(t *testing.T) {
	b := NewBuilder()
	id, err := b.AddBuilding(orb.Polygon{orb.Ring{{0, 0}, {0, 0}, {1, 1}, {0, 0}}}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, -1, id)

	id, err = b.AddWall(orb.LineString{{5, 5}, {5, 5}}, []float64{2}, nil)
	require.NoError(t, err)
	assert.Equal(t, -1, id)

	bowtie := orb.Polygon{orb.Ring{{0, 0}, {10, 10}, {10, 0}, {0, 10}, {0, 0}}}
	id, err = b.AddBuilding(bowtie, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, -1, id, "crossing walls")

	id, err = b.AddBuilding(square(10, 10, 20, 20), 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	// A concave footprint is still a simple ring.
	id, err = b.AddBuilding(orb.Polygon{orb.Ring{{30, 0}, {40, 0}, {40, 10}, {35, 5}, {30, 10}, {30, 0}}}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	s, err := b.Finish()
	require.NoError(t, err)
	assert.Equal(t, 3, s.Stats().SkippedGeometries)
	assert.Equal(t, 2, s.Stats().Buildings)
	assert.Equal(t, 9, s.Stats().Walls)
}

func TestBuildingWalls(t *testing.T) {
	b := NewBuilder()
	_, err := b.AddBuildingWithHeights(square(0, 0, 10, 20), []float64{5, 6, 7, 8}, []float64{0.1})
	require.NoError(t, err)
	s, err := b.Finish()
	require.NoError(t, err)

	bd := s.Building(0)
	assert.Equal(t, []int{0, 1, 2, 3}, bd.WallIDs)
	assert.Equal(t, 8.0, bd.MaxRoof())
	w := s.Wall(1)
	assert.Equal(t, 0, w.ObstacleID)
	assert.Equal(t, WallBuilding, w.Type)
	assert.Equal(t, r3.Vec{X: 10, Y: 0, Z: 6}, w.P0)
	assert.Equal(t, r3.Vec{X: 10, Y: 20, Z: 7}, w.P1)
	assert.InDelta(t, 6.5, w.TopZ(r2.Vec{X: 10, Y: 10}), 1e-12)
	assert.Equal(t, 0.1, w.Alpha(3))
}

func TestWallAlpha(t *testing.T) {
	assert.Equal(t, 0.0, AlphaAt(nil, 2))
	assert.Equal(t, 0.0, AlphaAt([]float64{-1}, 0))
	assert.Equal(t, 0.3, AlphaAt([]float64{0.1, 0.2, 0.3}, 2))
	assert.Equal(t, 0.3, AlphaAt([]float64{0.1, 0.2, 0.3}, 7))
	assert.Equal(t, 0.99, AlphaAt([]float64{1}, 0))
}

func TestScreens(t *testing.T) {
	b := NewBuilder()
	_, err := b.AddWall(orb.LineString{{0, 0}, {10, 0}, {10, 10}}, []float64{2, 3, 4}, nil)
	require.NoError(t, err)
	s, err := b.Finish()
	require.NoError(t, err)
	require.Len(t, s.Walls(), 2)
	assert.Equal(t, -1, s.Wall(0).ObstacleID)
	assert.Equal(t, WallScreen, s.Wall(0).Type)
	assert.Equal(t, 3.0, s.Wall(1).P0.Z)
	assert.Equal(t, 4.0, s.Wall(1).P1.Z)
}

func TestGroundGLastAddedWins(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddGroundEffectRect(0, 100, 0, 100, 0.2))
	require.NoError(t, b.AddGroundEffectRect(40, 60, 40, 60, 0.9))
	s, err := b.Finish()
	require.NoError(t, err)

	assert.Equal(t, 0.9, s.GroundG(r2.Vec{X: 50, Y: 50}, 0))
	assert.Equal(t, 0.2, s.GroundG(r2.Vec{X: 10, Y: 10}, 0))
	assert.Equal(t, 0.7, s.GroundG(r2.Vec{X: 500, Y: 10}, 0.7))
}

func TestTerrainElevation(t *testing.T) {
	b := NewBuilder()
	for _, p := range []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 100, Y: 0, Z: 10}, {X: 0, Y: 100, Z: 0}, {X: 100, Y: 100, Z: 10}} {
		require.NoError(t, b.AddTopographicPoint(p))
	}
	s, err := b.Finish()
	require.NoError(t, err)
	assert.True(t, s.HasTerrain())
	assert.Equal(t, 2, s.Stats().TerrainTriangles)
	assert.InDelta(t, 5, s.GroundZ(r2.Vec{X: 50, Y: 50}), 1e-9)
	assert.InDelta(t, 2.5, s.GroundZ(r2.Vec{X: 25, Y: 80}), 1e-9)
	assert.Equal(t, 0.0, s.GroundZ(r2.Vec{X: 500, Y: 50}), "outside the hull")
}

func TestTriangulationErrors(t *testing.T) {
	tests := []struct {
		name string
		pts  []r3.Vec
	}{
		{"two points", []r3.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}}},
		{"duplicates", []r3.Vec{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: 1}}},
		{"collinear", []r3.Vec{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			for _, p := range tt.pts {
				require.NoError(t, b.AddTopographicPoint(p))
			}
			_, err := b.Finish()
			assert.ErrorIs(t, err, ErrTriangulation)
		})
	}
}

func TestBuildingOnSlopeUsesLowestGround(t *testing.T) {
	b := NewBuilder()
	for _, p := range []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 100, Y: 0, Z: 10}, {X: 0, Y: 100, Z: 0}, {X: 100, Y: 100, Z: 10}} {
		require.NoError(t, b.AddTopographicPoint(p))
	}
	_, err := b.AddBuilding(square(40, 40, 60, 60), 10, nil)
	require.NoError(t, err)
	s, err := b.Finish()
	require.NoError(t, err)
	assert.InDelta(t, 14, s.Building(0).MaxRoof(), 1e-9)
}

func TestTopographicLineIsDensified(t *testing.T) {
	line := densify([]r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 35, Y: 0, Z: 35}}, topoLineSpacing)
	require.Len(t, line, 5)
	assert.InDelta(t, 8.75, line[1].X, 1e-9)
	assert.InDelta(t, 8.75, line[1].Z, 1e-9)
}
