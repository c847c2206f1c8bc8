package geom

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// ConvexHull returns the convex hull of pts in counter-clockwise order
// without repeating the first vertex. Collinear points are dropped.
func ConvexHull(pts []r2.Vec) []r2.Vec {
	p := append([]r2.Vec(nil), pts...)
	sort.Slice(p, func(i, j int) bool {
		if p[i].X != p[j].X {
			return p[i].X < p[j].X
		}
		return p[i].Y < p[j].Y
	})
	if len(p) < 3 {
		return p
	}
	hull := make([]r2.Vec, 0, 2*len(p))
	for _, q := range p {
		for len(hull) >= 2 && Side(q, hull[len(hull)-2], hull[len(hull)-1]) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, q)
	}
	lower := len(hull) + 1
	for i := len(p) - 2; i >= 0; i-- {
		q := p[i]
		for len(hull) >= lower && Side(q, hull[len(hull)-2], hull[len(hull)-1]) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, q)
	}
	return hull[:len(hull)-1]
}

// UpperHull returns the indices of the upper convex chain of pts, which must
// be sorted by increasing X. The first and last indices are always kept.
// Points lying on the chain are dropped.
func UpperHull(pts []r2.Vec) []int {
	idx := make([]int, 0, len(pts))
	for i, q := range pts {
		for len(idx) >= 2 && Side(q, pts[idx[len(idx)-2]], pts[idx[len(idx)-1]]) >= 0 {
			idx = idx[:len(idx)-1]
		}
		idx = append(idx, i)
	}
	return idx
}
