package scene

import (
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/noise/geom"
)

// WallType tags where a wall comes from.
type WallType int

const (
	WallBuilding WallType = iota
	WallScreen
)

func (t WallType) String() string {
	switch t {
	case WallBuilding:
		return "building"
	case WallScreen:
		return "screen"
	default:
		return "unknown"
	}
}

// Wall is a vertical planar obstacle. P0 and P1 carry the absolute altitude
// of the wall top at each end.
type Wall struct {
	ID         int
	ObstacleID int // building id, -1 for screens
	P0, P1     r3.Vec
	Absorption []float64
	Type       WallType
}

// A is the planar start of the wall.
func (w Wall) A() r2.Vec { return geom.XY(w.P0) }

// B is the planar end of the wall.
func (w Wall) B() r2.Vec { return geom.XY(w.P1) }

// Length is the planar length of the wall.
func (w Wall) Length() float64 { return geom.Dist2D(w.P0, w.P1) }

// Bound is the planar envelope of the wall.
func (w Wall) Bound() orb.Bound {
	return orb.MultiPoint{{w.P0.X, w.P0.Y}, {w.P1.X, w.P1.Y}}.Bound()
}

// TopZ is the altitude of the wall top above the projection of p.
func (w Wall) TopZ(p r2.Vec) float64 {
	return geom.InterpolateZ(p, w.P0, w.P1)
}

// Alpha returns the absorption coefficient of the wall for band. A nil list
// or a negative value means fully reflective; a single value applies to
// every band. The result is clamped to [0, 0.99].
func (w Wall) Alpha(band int) float64 {
	return AlphaAt(w.Absorption, band)
}

// AlphaAt applies the Wall.Alpha rules to an absorption list.
func AlphaAt(absorption []float64, band int) float64 {
	var a float64
	switch {
	case len(absorption) == 0:
		return 0
	case len(absorption) == 1:
		a = absorption[0]
	case band < len(absorption):
		a = absorption[band]
	default:
		a = absorption[len(absorption)-1]
	}
	if math.IsNaN(a) || a < 0 {
		return 0
	}
	return math.Min(a, 0.99)
}
