package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestMirror(t *testing.T) {
	tests := []struct {
		name string
		p    r3.Vec
		a, b r2.Vec
		want r3.Vec
	}{
		{"vertical wall", r3.Vec{X: 1, Y: 2, Z: 4}, r2.Vec{X: 3, Y: 0}, r2.Vec{X: 3, Y: 10}, r3.Vec{X: 5, Y: 2, Z: 4}},
		{"horizontal wall", r3.Vec{X: 1, Y: -2, Z: 1}, r2.Vec{X: 0, Y: 0}, r2.Vec{X: 10, Y: 0}, r3.Vec{X: 1, Y: 2, Z: 1}},
		{"diagonal wall", r3.Vec{X: 1, Y: 0}, r2.Vec{X: 0, Y: 0}, r2.Vec{X: 1, Y: 1}, r3.Vec{X: 0, Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mirror(tt.p, tt.a, tt.b)
			assert.InDelta(t, tt.want.X, got.X, 1e-12)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-12)
			assert.Equal(t, tt.want.Z, got.Z)
		})
	}
}

func TestIntersect(t *testing.T) {
	p, tt, u, ok := Intersect(r2.Vec{X: 0, Y: 0}, r2.Vec{X: 10, Y: 0}, r2.Vec{X: 5, Y: -5}, r2.Vec{X: 5, Y: 5})
	assert.True(t, ok)
	assert.InDelta(t, 5, p.X, 1e-12)
	assert.InDelta(t, 0.5, tt, 1e-12)
	assert.InDelta(t, 0.5, u, 1e-12)

	_, _, _, ok = Intersect(r2.Vec{X: 0, Y: 0}, r2.Vec{X: 10, Y: 0}, r2.Vec{X: 0, Y: 1}, r2.Vec{X: 10, Y: 1})
	assert.False(t, ok, "parallel")

	_, _, _, ok = Intersect(r2.Vec{X: 0, Y: 0}, r2.Vec{X: 1, Y: 0}, r2.Vec{X: 5, Y: -5}, r2.Vec{X: 5, Y: 5})
	assert.False(t, ok, "disjoint")

	_, tt, _, ok = Intersect(r2.Vec{X: 0, Y: 0}, r2.Vec{X: 10, Y: 0}, r2.Vec{X: 10, Y: -1}, r2.Vec{X: 10, Y: 1})
	assert.True(t, ok, "touching at end")
	assert.Equal(t, 1.0, tt)
}

func TestSegmentDistance(t *testing.T) {
	a, b := r2.Vec{X: 0, Y: 0}, r2.Vec{X: 10, Y: 0}
	assert.InDelta(t, 3, SegmentDistance(a, b, r2.Vec{X: 2, Y: 3}, r2.Vec{X: 8, Y: 3}), 1e-12)
	assert.Equal(t, 0.0, SegmentDistance(a, b, r2.Vec{X: 5, Y: -1}, r2.Vec{X: 5, Y: 1}))
	assert.InDelta(t, 5, SegmentDistance(a, b, r2.Vec{X: 13, Y: 4}, r2.Vec{X: 20, Y: 4}), 1e-12)
}

func TestInterpolateZ(t *testing.T) {
	a := r3.Vec{X: 0, Y: 0, Z: 10}
	b := r3.Vec{X: 10, Y: 0, Z: 20}
	assert.InDelta(t, 15, InterpolateZ(r2.Vec{X: 5, Y: 3}, a, b), 1e-12)
	assert.InDelta(t, 10, InterpolateZ(r2.Vec{X: -5, Y: 0}, a, b), 1e-12)
	assert.InDelta(t, 20, InterpolateZ(r2.Vec{X: 50, Y: 0}, a, b), 1e-12)
}

func TestConvexHull(t *testing.T) {
	pts := []r2.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 0, Y: 2}, {X: 1, Y: 0}}
	hull := ConvexHull(pts)
	assert.Equal(t, []r2.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}, hull)
}

func TestUpperHull(t *testing.T) {
	// Ground with two screens; the lower one is shadowed.
	pts := []r2.Vec{{X: 0, Y: 1}, {X: 10, Y: 0}, {X: 20, Y: 6}, {X: 30, Y: 3}, {X: 40, Y: 5}, {X: 50, Y: 4}}
	assert.Equal(t, []int{0, 2, 4, 5}, UpperHull(pts))

	flat := []r2.Vec{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}}
	assert.Equal(t, []int{0, 2}, UpperHull(flat))
}

func TestFinite(t *testing.T) {
	assert.True(t, Finite(r3.Vec{X: 1, Y: 2, Z: 3}))
	assert.False(t, Finite(r3.Vec{X: 1, Y: math.NaN(), Z: 3}))
	assert.False(t, Finite(r3.Vec{Z: math.Inf(1)}))
}
