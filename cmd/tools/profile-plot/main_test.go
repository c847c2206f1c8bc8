package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/testutil"
)

func TestParseVec(t *testing.T) {
	tests := []struct {
		in      string
		want    r3.Vec
		wantErr bool
	}{
		{"1,2,3", r3.Vec{X: 1, Y: 2, Z: 3}, false},
		{" 1.5, -2 ,0", r3.Vec{X: 1.5, Y: -2}, false},
		{"1,2", r3.Vec{}, true},
		{"1,b,3", r3.Vec{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseVec(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlotProfile(t *testing.T) {
	scene := testutil.WriteFile(t, "scene.geojson", `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {"type": "building", "height": 10},
	   "geometry": {"type": "Polygon", "coordinates": [[[90,-10],[110,-10],[110,70],[90,70],[90,-10]]]}}
	]}`)
	out := filepath.Join(t.TempDir(), "profile.png")
	require.NoError(t, plotProfile(scene, "", "10,10,1", "200,50,4", out))
	_, err := os.Stat(out)
	assert.NoError(t, err)

	assert.Error(t, plotProfile("", "", "10,10,1", "200,50,4", out))
	assert.Error(t, plotProfile(scene, "", "10,10", "200,50,4", out))
}
