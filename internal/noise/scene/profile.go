package scene

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/noise/geom"
)

// CutKind classifies profile cut points.
type CutKind int

const (
	CutSource CutKind = iota
	CutWall
	CutGroundBoundary
	CutTerrain
	CutReceiver
)

// CutPoint is one event along a profile.
type CutPoint struct {
	Kind     CutKind
	Pos      r2.Vec
	Abscissa float64 // planar distance from the source
	GroundZ  float64
	// Top is the altitude of the highest surface at this point: wall top
	// for walls, ground otherwise, emitter altitude for source/receiver.
	Top        float64
	G          float64 // ground factor of the span starting here
	WallID     int
	BuildingID int
}

// Profile is the vertical cut of the scene between a source and a receiver.
type Profile struct {
	Source, Receiver r3.Vec
	Length           float64
	Points           []CutPoint
}

func (p *Profile) sortPoints() {
	rank := func(k CutKind) int {
		switch k {
		case CutSource:
			return 0
		case CutReceiver:
			return 2
		default:
			return 1
		}
	}
	sort.SliceStable(p.Points, func(i, j int) bool {
		a, b := p.Points[i], p.Points[j]
		if ra, rb := rank(a.Kind), rank(b.Kind); ra != rb {
			return ra < rb
		}
		return a.Abscissa < b.Abscissa
	})
}

// LineZ is the altitude of the straight source-receiver ray at abscissa x.
func (p *Profile) LineZ(x float64) float64 {
	if p.Length < geom.Epsilon {
		return p.Source.Z
	}
	return p.Source.Z + (p.Receiver.Z-p.Source.Z)*x/p.Length
}

// BuildingObstructed reports whether the direct ray passes below a wall top.
func (p *Profile) BuildingObstructed() bool {
	for _, cp := range p.Points {
		if cp.Kind == CutWall && p.LineZ(cp.Abscissa) < cp.Top-geom.Epsilon {
			return true
		}
	}
	return false
}

// TerrainObstructed reports whether the direct ray passes below the ground.
// The ground is linear between cut points so checking them is enough.
func (p *Profile) TerrainObstructed() bool {
	for _, cp := range p.Points {
		if cp.Kind == CutSource || cp.Kind == CutReceiver {
			continue
		}
		if p.LineZ(cp.Abscissa) < cp.GroundZ-geom.Epsilon {
			return true
		}
	}
	return false
}

// Obstructed reports whether the direct ray is blocked by anything.
func (p *Profile) Obstructed() bool {
	return p.BuildingObstructed() || p.TerrainObstructed()
}

// GPath is the length-weighted mean ground factor over [from, to]. A
// zero-length interval returns the factor at from.
func (p *Profile) GPath(from, to float64) float64 {
	if len(p.Points) == 0 {
		return 0
	}
	if to < from {
		from, to = to, from
	}
	var sum float64
	for i := 0; i+1 < len(p.Points); i++ {
		lo := math.Max(from, p.Points[i].Abscissa)
		hi := math.Min(to, p.Points[i+1].Abscissa)
		if hi > lo {
			sum += (hi - lo) * p.Points[i].G
		}
	}
	if to-from < geom.Epsilon {
		return p.gAt(from)
	}
	return sum / (to - from)
}

func (p *Profile) gAt(x float64) float64 {
	g := p.Points[0].G
	for _, cp := range p.Points {
		if cp.Abscissa > x {
			break
		}
		g = cp.G
	}
	return g
}

// GroundZAt interpolates the ground altitude at abscissa x.
func (p *Profile) GroundZAt(x float64) float64 {
	pts := p.Points
	if len(pts) == 0 {
		return 0
	}
	if x <= pts[0].Abscissa {
		return pts[0].GroundZ
	}
	for i := 1; i < len(pts); i++ {
		if x <= pts[i].Abscissa {
			span := pts[i].Abscissa - pts[i-1].Abscissa
			if span < geom.Epsilon {
				return pts[i].GroundZ
			}
			t := (x - pts[i-1].Abscissa) / span
			return pts[i-1].GroundZ + t*(pts[i].GroundZ-pts[i-1].GroundZ)
		}
	}
	return pts[len(pts)-1].GroundZ
}

// GroundProfile returns (abscissa, ground altitude) pairs covering
// [from, to], end points included.
func (p *Profile) GroundProfile(from, to float64) []r2.Vec {
	out := []r2.Vec{{X: from, Y: p.GroundZAt(from)}}
	for _, cp := range p.Points {
		if cp.Abscissa > from+geom.Epsilon && cp.Abscissa < to-geom.Epsilon {
			out = append(out, r2.Vec{X: cp.Abscissa, Y: cp.GroundZ})
		}
	}
	if to-from > geom.Epsilon {
		out = append(out, r2.Vec{X: to, Y: p.GroundZAt(to)})
	}
	return out
}

// TopProfile returns (abscissa, altitude) of the highest surface at every
// cut point; the first and last entries are the source and receiver.
func (p *Profile) TopProfile() []r2.Vec {
	out := make([]r2.Vec, len(p.Points))
	for i, cp := range p.Points {
		out[i] = r2.Vec{X: cp.Abscissa, Y: cp.Top}
	}
	return out
}

// WallCuts returns the wall crossings in abscissa order.
func (p *Profile) WallCuts() []CutPoint {
	var out []CutPoint
	for _, cp := range p.Points {
		if cp.Kind == CutWall {
			out = append(out, cp)
		}
	}
	return out
}

// BuildingIDs returns the distinct buildings crossed by the profile.
func (p *Profile) BuildingIDs() []int {
	var out []int
	seen := make(map[int]bool)
	for _, cp := range p.Points {
		if cp.Kind == CutWall && cp.BuildingID >= 0 && !seen[cp.BuildingID] {
			seen[cp.BuildingID] = true
			out = append(out, cp.BuildingID)
		}
	}
	return out
}
