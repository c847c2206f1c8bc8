package report

import (
	"bytes"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/noise/aggregate"
	"github.com/banshee-data/noisemap/internal/noise/path"
	"github.com/banshee-data/noisemap/internal/noise/scene"
)

func TestPlotProfile(t *testing.T) {
	b := scene.NewBuilder()
	_, err := b.AddWall(orb.LineString{{100, -100}, {100, 200}}, []float64{10}, nil)
	require.NoError(t, err)
	sc, err := b.Finish()
	require.NoError(t, err)

	pr := sc.Profile(r3.Vec{X: 10, Y: 10, Z: 1}, r3.Vec{X: 200, Y: 50, Z: 4}, 0)
	paths := []*path.PropagationPath{{
		Kind: path.KindVerticalDiffraction,
		Points: []path.PointPath{
			{Role: path.RoleSource, Pos: r3.Vec{X: 10, Y: 10, Z: 1}},
			{Role: path.RoleDiffractionV, Pos: r3.Vec{X: 100, Y: 29, Z: 10}, Abscissa: 92},
			{Role: path.RoleReceiver, Pos: r3.Vec{X: 200, Y: 50, Z: 4}, Abscissa: pr.Length},
		},
	}}

	file := filepath.Join(t.TempDir(), "plots", "profile.png")
	require.NoError(t, PlotProfile(pr, paths, file))
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, PlotProfile(nil, nil, file))
}

func TestWriteSpectra(t *testing.T) {
	levels := []aggregate.ReceiverLevel{
		{ID: 1, Levels: []float64{40.123, 38, math.Inf(-1)}},
		{ID: 2, Levels: []float64{30}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSpectra(&buf, "Run", levels, []int{63, 125, 250}, "dba"))
	html := buf.String()
	assert.True(t, strings.Contains(html, "receiver 1"))
	assert.True(t, strings.Contains(html, "receiver 2"))
	assert.True(t, strings.Contains(html, "40.12"))
}

func TestBarData(t *testing.T) {
	got := barData([]float64{1.234, math.Inf(-1), math.NaN()}, 4)
	require.Len(t, got, 4)
	assert.Equal(t, 1.23, got[0].Value)
	assert.Equal(t, "-", got[1].Value)
	assert.Equal(t, "-", got[2].Value)
	assert.Equal(t, "-", got[3].Value)
}

func TestGenerateColors(t *testing.T) {
	assert.Nil(t, generateColors(0))
	colors := generateColors(3)
	require.Len(t, colors, 3)
	assert.NotEqual(t, colors[0], colors[1])
	assert.Equal(t, color.RGBA{R: 127, G: 127, B: 127, A: 255}, func() color.RGBA {
		r, g, b := hslToRGB(0, 0, 0.5)
		return color.RGBA{R: r, G: g, B: b, A: 255}
	}())
}
