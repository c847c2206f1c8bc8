// Package geom provides the planar and 3D segment geometry used by the scene
// and path packages. Horizontal coordinates are r2.Vec, positions with an
// altitude are r3.Vec.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon is the tolerance in metres below which two abscissas or points
// are considered the same.
const Epsilon = 1e-7

// XY drops the altitude of p.
func XY(p r3.Vec) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// WithZ lifts a planar point to altitude z.
func WithZ(p r2.Vec, z float64) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: z}
}

// Dist2D is the horizontal distance between a and b.
func Dist2D(a, b r3.Vec) float64 {
	return r2.Norm(r2.Sub(XY(a), XY(b)))
}

// Dist3D is the euclidean distance between a and b.
func Dist3D(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Lerp returns a + t·(b-a).
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// ProjectionFactor returns the parameter t such that a + t·(b-a) is the
// orthogonal projection of p on the line ab. Degenerate segments give 0.
func ProjectionFactor(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l2 := r2.Norm2(ab)
	if l2 == 0 {
		return 0
	}
	return r2.Dot(r2.Sub(p, a), ab) / l2
}

// Project returns the orthogonal projection of p on the infinite line ab.
func Project(p, a, b r2.Vec) r2.Vec {
	return r2.Add(a, r2.Scale(ProjectionFactor(p, a, b), r2.Sub(b, a)))
}

// Mirror reflects p across the vertical plane containing the line ab,
// keeping its altitude.
func Mirror(p r3.Vec, a, b r2.Vec) r3.Vec {
	q := XY(p)
	proj := Project(q, a, b)
	m := r2.Sub(r2.Scale(2, proj), q)
	return WithZ(m, p.Z)
}

// PointSegmentDistance is the planar distance from p to segment ab.
func PointSegmentDistance(p, a, b r2.Vec) float64 {
	t := math.Max(0, math.Min(1, ProjectionFactor(p, a, b)))
	return r2.Norm(r2.Sub(p, r2.Add(a, r2.Scale(t, r2.Sub(b, a)))))
}

// SegmentDistance is the planar distance between segments ab and cd.
func SegmentDistance(a, b, c, d r2.Vec) float64 {
	if _, _, _, ok := Intersect(a, b, c, d); ok {
		return 0
	}
	return math.Min(
		math.Min(PointSegmentDistance(a, c, d), PointSegmentDistance(b, c, d)),
		math.Min(PointSegmentDistance(c, a, b), PointSegmentDistance(d, a, b)),
	)
}

// Intersect computes the proper or touching intersection of segments ab and
// cd. t and u are the parameters of the intersection along ab and cd.
// Parallel segments never intersect.
func Intersect(a, b, c, d r2.Vec) (p r2.Vec, t, u float64, ok bool) {
	r := r2.Sub(b, a)
	s := r2.Sub(d, c)
	den := r2.Cross(r, s)
	if math.Abs(den) < 1e-12 {
		return r2.Vec{}, 0, 0, false
	}
	ac := r2.Sub(c, a)
	t = r2.Cross(ac, s) / den
	u = r2.Cross(ac, r) / den
	const tol = 1e-9
	if t < -tol || t > 1+tol || u < -tol || u > 1+tol {
		return r2.Vec{}, 0, 0, false
	}
	t = math.Max(0, math.Min(1, t))
	u = math.Max(0, math.Min(1, u))
	return r2.Add(a, r2.Scale(t, r)), t, u, true
}

// InterpolateZ returns the altitude at the projection of p on the 3D segment
// ab, clamped to the segment.
func InterpolateZ(p r2.Vec, a, b r3.Vec) float64 {
	t := math.Max(0, math.Min(1, ProjectionFactor(p, XY(a), XY(b))))
	return a.Z + t*(b.Z-a.Z)
}

// Side returns >0 when p lies left of the directed line ab, <0 when right.
func Side(p, a, b r2.Vec) float64 {
	return r2.Cross(r2.Sub(b, a), r2.Sub(p, a))
}

// Finite reports whether every coordinate of p is a finite number.
func Finite(p r3.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsNaN(p.Z) &&
		!math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0) && !math.IsInf(p.Z, 0)
}
