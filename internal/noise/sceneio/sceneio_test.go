package sceneio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/noise/aggregate"
	"github.com/banshee-data/noisemap/internal/noise/attenuation"
	"github.com/banshee-data/noisemap/internal/noise/path"
	"github.com/banshee-data/noisemap/internal/noise/pathfinder"
	"github.com/banshee-data/noisemap/internal/noise/scene"
)

const fixture = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"type": "building", "height": 10, "absorption": 0.1},
     "geometry": {"type": "Polygon", "coordinates": [[[90,-10],[110,-10],[110,70],[90,70],[90,-10]]]}},
    {"type": "Feature", "properties": {"type": "screen", "heights": [3, 4], "absorption": [0.2, 0.3]},
     "geometry": {"type": "LineString", "coordinates": [[0,100],[50,100]]}},
    {"type": "Feature", "properties": {"type": "ground", "g": 0.7},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[50,0],[50,50],[0,50],[0,0]]]}},
    {"type": "Feature", "properties": {"type": "source", "id": 10, "power": [93, 93, 93, 93, 93, 93, 93, 93]},
     "geometry": {"type": "Point", "coordinates": [10, 10]}},
    {"type": "Feature", "properties": {"type": "source", "z": 0.5},
     "geometry": {"type": "LineString", "coordinates": [[0, 20], [100, 20]]}},
    {"type": "Feature", "properties": {"type": "receiver", "z": 1.5},
     "geometry": {"type": "Point", "coordinates": [200, 50]}},
    {"type": "Feature", "properties": {"type": "receiver", "id": 5},
     "geometry": {"type": "MultiPoint", "coordinates": [[150, 0], [150, 10]]}}
  ]
}`

func TestLoad(t *testing.T) {
	d, err := Load([]byte(fixture), nil)
	require.NoError(t, err)

	stats := d.Scene.Stats()
	assert.Equal(t, 1, stats.Buildings)
	assert.Equal(t, 5, stats.Walls)
	assert.Equal(t, 1, stats.GroundRegions)
	assert.Equal(t, 0.7, d.Scene.GroundG(r2.Vec{X: 25, Y: 25}, 0))

	screen := d.Scene.Walls()[4]
	assert.Equal(t, scene.WallScreen, screen.Type)
	assert.Equal(t, 3.0, screen.P0.Z)
	assert.Equal(t, 4.0, screen.P1.Z)
	assert.Equal(t, []float64{0.2, 0.3}, screen.Absorption)

	require.Len(t, d.Sources, 2)
	assert.Equal(t, 10, d.Sources[0].ID)
	assert.Equal(t, r3.Vec{X: 10, Y: 10, Z: DefaultSourceHeight}, d.Sources[0].Geometry[0])
	require.Len(t, d.Sources[0].Power, 8)
	assert.InDelta(t, 1995262314.97, d.Sources[0].Power[0], 1)
	assert.Equal(t, 11, d.Sources[1].ID, "ids continue after the highest explicit id")
	assert.True(t, d.Sources[1].IsLine())
	assert.Nil(t, d.Sources[1].Power)

	require.Len(t, d.Receivers, 3)
	assert.Equal(t, pathfinder.Receiver{ID: 0, Pos: r3.Vec{X: 200, Y: 50, Z: 1.5}}, d.Receivers[0])
	assert.Equal(t, pathfinder.Receiver{ID: 5, Pos: r3.Vec{X: 150, Y: 0, Z: DefaultReceiverHeight}}, d.Receivers[1])
	assert.Equal(t, 6, d.Receivers[2].ID)
}

func TestLoadWithTerrain(t *testing.T) {
	doc := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {"type": "topography", "zs": [10, 10, 20, 20]},
	   "geometry": {"type": "MultiPoint", "coordinates": [[0,0],[100,0],[100,100],[0,100]]}},
	  {"type": "Feature", "properties": {"type": "receiver", "z": 2},
	   "geometry": {"type": "Point", "coordinates": [50, 30]}}
	]}`
	d, err := Load([]byte(doc), nil)
	require.NoError(t, err)
	assert.True(t, d.Scene.HasTerrain())
	require.Len(t, d.Receivers, 1)
	assert.InDelta(t, 15, d.Receivers[0].Pos.Z, 1e-9)
}

func TestLoadErrors(t *testing.T) {
	feature := func(props, geometry string) string {
		return `{"type": "FeatureCollection", "features": [{"type": "Feature", "properties": ` + props +
			`, "geometry": ` + geometry + `}]}`
	}
	point := `{"type": "Point", "coordinates": [0, 0]}`
	square := `{"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"missing type", feature(`{}`, point), ErrUnknownType},
		{"unknown type", feature(`{"type": "tree"}`, point), ErrUnknownType},
		{"building from a point", feature(`{"type": "building", "height": 3}`, point), ErrGeometry},
		{"height as text", feature(`{"type": "building", "height": "3"}`, square), ErrProperty},
		{"absorption list of text", feature(`{"type": "screen", "absorption": ["a"]}`,
			`{"type": "LineString", "coordinates": [[0,0],[1,0]]}`), ErrProperty},
		{"ground without g", feature(`{"type": "ground"}`, square), scene.ErrInvalidGroundCoefficient},
		{"fractional id", feature(`{"type": "receiver", "id": 1.5}`, point), ErrProperty},
		{"receiver from a polygon", feature(`{"type": "receiver"}`, square), ErrGeometry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc), nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Load([]byte(`not json`), nil)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "scene.geojson")
	require.NoError(t, os.WriteFile(good, []byte(fixture), 0o644))
	d, err := LoadFile(good, nil)
	require.NoError(t, err)
	assert.Len(t, d.Receivers, 3)

	bad := filepath.Join(dir, "scene.txt")
	require.NoError(t, os.WriteFile(bad, []byte(fixture), 0o644))
	_, err = LoadFile(bad, nil)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.geojson"), nil)
	assert.Error(t, err)
}

func TestWriteLevels(t *testing.T) {
	receivers := []pathfinder.Receiver{
		{ID: 1, Pos: r3.Vec{X: 10, Y: 20, Z: 4}},
		{ID: 2, Pos: r3.Vec{X: 30, Y: 40, Z: 4}},
	}
	levels := []aggregate.ReceiverLevel{{ID: 2, Levels: []float64{60, 60}}}
	var buf bytes.Buffer
	require.NoError(t, WriteLevels(&buf, receivers, levels, []int{63, 125}, "dba"))

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	props := fc.Features[0].Properties
	assert.Equal(t, 2.0, props["id"])
	assert.Equal(t, 60.0, props["L63"])
	assert.InDelta(t, 63.0103, props["L"], 1e-4)
	assert.Equal(t, "dba", props["unit"])

	err = WriteLevels(&buf, receivers, []aggregate.ReceiverLevel{{ID: 9}}, nil, "db")
	assert.Error(t, err)
}

func TestWriteRays(t *testing.T) {
	p := &path.PropagationPath{
		SourceID:   3,
		ReceiverID: 7,
		Kind:       path.KindReflection,
		Points: []path.PointPath{
			{Role: path.RoleSource, Pos: r3.Vec{X: 0, Y: 0, Z: 1}, WallID: -1},
			{Role: path.RoleReflection, Pos: r3.Vec{X: 10, Y: 5, Z: 2}, WallID: 4},
			{Role: path.RoleReceiver, Pos: r3.Vec{X: 20, Y: 0, Z: 4}, WallID: -1},
		},
	}
	att := &attenuation.Result{AGlobalH: []float64{50, 60}, AGlobalF: []float64{48, 58}}
	var buf bytes.Buffer
	require.NoError(t, WriteRays(&buf, []aggregate.Ray{{Path: p, Attenuation: att}}, []int{63, 125}))

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, orb.LineString{{0, 0}, {10, 5}, {20, 0}}, f.Geometry)
	assert.Equal(t, 7.0, f.Properties["receiver"])
	assert.Equal(t, 3.0, f.Properties["source"])
	assert.Equal(t, "reflection", f.Properties["kind"])
	assert.Equal(t, []interface{}{1.0, 2.0, 4.0}, f.Properties["z"])
	assert.Equal(t, 60.0, f.Properties["AH125"])
	assert.Equal(t, 48.0, f.Properties["AF63"])
}
