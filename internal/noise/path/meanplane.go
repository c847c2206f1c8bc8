package path

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

// Init recomputes the derived fields of every segment from the points and
// the ground profile. Non-finite intermediate values are replaced so that
// an initialised path never carries NaN.
func (p *PropagationPath) Init() {
	for i := range p.Segments {
		p.initSegment(&p.Segments[i])
	}
}

func (p *PropagationPath) initSegment(s *SegmentPath) {
	if s.First < 0 || s.Last >= len(p.Points) || s.First > s.Last {
		*s = SegmentPath{First: s.First, Last: s.Last, GPath: finite(s.GPath, 0), Length: finite(s.Length, 0)}
		return
	}
	src, rcv := p.Points[s.First], p.Points[s.Last]
	xs, xr := src.Abscissa, rcv.Abscissa
	profile := p.groundBetween(xs, xr, src.GroundZ, rcv.GroundZ)
	s.Slope, s.Intercept = MeanPlane(profile)

	S := r2.Vec{X: xs, Y: src.Pos.Z}
	R := r2.Vec{X: xr, Y: rcv.Pos.Z}
	norm := math.Sqrt(1 + s.Slope*s.Slope)
	n := r2.Vec{X: -s.Slope / norm, Y: 1 / norm}
	hs := (S.Y - (s.Slope*S.X + s.Intercept)) / norm
	hr := (R.Y - (s.Slope*R.X + s.Intercept)) / norm

	s.Zs = finite(math.Max(0, hs), 0)
	s.Zr = finite(math.Max(0, hr), 0)
	ps := r2.Sub(S, r2.Scale(hs, n))
	pr := r2.Sub(R, r2.Scale(hr, n))
	s.Dp = finite(r2.Norm(r2.Sub(pr, ps)), 0)
	s.D = finite(r2.Norm(r2.Sub(R, S)), 0)
	s.SPrime = r2.Sub(S, r2.Scale(2*hs, n))
	s.RPrime = r2.Sub(R, r2.Scale(2*hr, n))
	s.GPath = finite(s.GPath, 0)
	s.Length = finite(s.Length, 0)
}

// groundBetween extracts the ground profile over [from, to]. Without any
// profile sample the ground is linear between the given end altitudes.
func (p *PropagationPath) groundBetween(from, to, zFrom, zTo float64) []r2.Vec {
	if len(p.Ground) == 0 {
		return []r2.Vec{{X: from, Y: zFrom}, {X: to, Y: zTo}}
	}
	out := []r2.Vec{{X: from, Y: interpolate(p.Ground, from)}}
	for _, g := range p.Ground {
		if g.X > from && g.X < to {
			out = append(out, g)
		}
	}
	return append(out, r2.Vec{X: to, Y: interpolate(p.Ground, to)})
}

func interpolate(pts []r2.Vec, x float64) float64 {
	if x <= pts[0].X {
		return pts[0].Y
	}
	for i := 1; i < len(pts); i++ {
		if x <= pts[i].X {
			span := pts[i].X - pts[i-1].X
			if span <= 0 {
				return pts[i].Y
			}
			return pts[i-1].Y + (x-pts[i-1].X)/span*(pts[i].Y-pts[i-1].Y)
		}
	}
	return pts[len(pts)-1].Y
}

// MeanPlane fits z = slope·x + intercept to a piecewise linear profile by
// least squares integrated over each linear piece. Degenerate profiles give
// a horizontal plane through the mean altitude.
func MeanPlane(profile []r2.Vec) (slope, intercept float64) {
	if len(profile) == 0 {
		return 0, 0
	}
	x0 := profile[0].X
	var s1, sx, sxx, sz, sxz float64
	for i := 1; i < len(profile); i++ {
		x1, z1 := profile[i-1].X-x0, profile[i-1].Y
		x2, z2 := profile[i].X-x0, profile[i].Y
		dx := x2 - x1
		if dx <= 0 {
			continue
		}
		m := (z2 - z1) / dx
		s1 += dx
		sx += (x2*x2 - x1*x1) / 2
		sxx += (x2*x2*x2 - x1*x1*x1) / 3
		sz += (z1 + z2) / 2 * dx
		sxz += z1*(x2*x2-x1*x1)/2 + m*((x2*x2*x2-x1*x1*x1)/3-x1*(x2*x2-x1*x1)/2)
	}
	if s1 <= 0 {
		var mean float64
		for _, pt := range profile {
			mean += pt.Y
		}
		return 0, finite(mean/float64(len(profile)), 0)
	}

	a := mat.NewDense(2, 2, []float64{sxx, sx, sx, s1})
	rhs := mat.NewVecDense(2, []float64{sxz, sz})
	var sol mat.VecDense
	if err := sol.SolveVec(a, rhs); err != nil {
		return 0, finite(sz/s1, 0)
	}
	slope = sol.AtVec(0)
	intercept = sol.AtVec(1) - slope*x0
	if math.IsNaN(slope) || math.IsInf(slope, 0) || math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return 0, finite(sz/s1, 0)
	}
	return slope, intercept
}

func finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
