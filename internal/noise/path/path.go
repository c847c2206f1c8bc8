// Package path holds the propagation path data model shared by the path
// finder and the attenuation evaluator, and its compact binary codec.
//
// A PropagationPath is an ordered list of points from the source to the
// receiver plus the segments over which ground effects are evaluated. The
// Ground profile uses the unfolded planar abscissa of the path, so a
// reflected or laterally diffracted path is laid out flat before its mean
// planes are computed.
package path

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Role tags the part a point plays in a path.
type Role int

const (
	RoleSource Role = iota
	RoleReceiver
	RoleReflection
	RoleDiffractionV // edge over the top of an obstacle or terrain
	RoleDiffractionH // vertical edge passed on the side
)

func (r Role) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleReceiver:
		return "receiver"
	case RoleReflection:
		return "reflection"
	case RoleDiffractionV:
		return "vertical diffraction"
	case RoleDiffractionH:
		return "horizontal diffraction"
	default:
		return "unknown"
	}
}

// Kind is the variant of a path between one source and one receiver.
type Kind int

const (
	KindDirect Kind = iota
	KindVerticalDiffraction
	KindHorizontalDiffraction
	KindReflection
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindVerticalDiffraction:
		return "vertical diffraction"
	case KindHorizontalDiffraction:
		return "horizontal diffraction"
	case KindReflection:
		return "reflection"
	default:
		return "unknown"
	}
}

// PointPath is one point of a path.
type PointPath struct {
	Role       Role
	Pos        r3.Vec  // absolute altitude
	Abscissa   float64 // unfolded planar distance from the source
	GroundZ    float64
	WallID     int       // -1 when not on a wall
	Absorption []float64 // per band, reflections only
}

// SegmentPath is a stretch of the path between two of its points over which
// a ground attenuation is evaluated.
type SegmentPath struct {
	First, Last int     // indices into PropagationPath.Points
	GPath       float64 // mean ground factor
	Length      float64 // unfolded planar length

	// Derived by PropagationPath.Init.
	Slope, Intercept float64 // mean plane z = Slope·x + Intercept
	Zs, Zr           float64 // heights above the mean plane
	Dp               float64 // distance between projections on the mean plane
	D                float64 // straight distance in the unfolded plane
	SPrime, RPrime   r2.Vec  // images through the mean plane
}

// PropagationPath is one propagation path from a source to a receiver.
type PropagationPath struct {
	SourceID, ReceiverID int
	Kind                 Kind
	Points               []PointPath
	Segments             []SegmentPath
	Ground               []r2.Vec // (unfolded abscissa, ground altitude)
}

// Source is the first point of the path.
func (p *PropagationPath) Source() PointPath { return p.Points[0] }

// Receiver is the last point of the path.
func (p *PropagationPath) Receiver() PointPath { return p.Points[len(p.Points)-1] }

// DirectDistance is the straight 3D distance from source to receiver.
func (p *PropagationPath) DirectDistance() float64 {
	return r3.Norm(r3.Sub(p.Receiver().Pos, p.Source().Pos))
}

// UnfoldedLength is the 3D length of the path through all its points.
func (p *PropagationPath) UnfoldedLength() float64 {
	var l float64
	for i := 1; i < len(p.Points); i++ {
		dx := p.Points[i].Abscissa - p.Points[i-1].Abscissa
		dz := p.Points[i].Pos.Z - p.Points[i-1].Pos.Z
		l += math.Hypot(dx, dz)
	}
	return l
}

// PointsWithRole returns the points of the path with role r.
func (p *PropagationPath) PointsWithRole(r Role) []PointPath {
	var out []PointPath
	for _, pt := range p.Points {
		if pt.Role == r {
			out = append(out, pt)
		}
	}
	return out
}

// Finite reports whether every coordinate and derived value of the path is
// a finite number.
func (p *PropagationPath) Finite() bool {
	ok := func(vs ...float64) bool {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
		return true
	}
	for _, pt := range p.Points {
		if !ok(pt.Pos.X, pt.Pos.Y, pt.Pos.Z, pt.Abscissa, pt.GroundZ) {
			return false
		}
	}
	for _, s := range p.Segments {
		if !ok(s.GPath, s.Length, s.Slope, s.Intercept, s.Zs, s.Zr, s.Dp, s.D, s.SPrime.X, s.SPrime.Y, s.RPrime.X, s.RPrime.Y) {
			return false
		}
	}
	for _, g := range p.Ground {
		if !ok(g.X, g.Y) {
			return false
		}
	}
	return true
}
