package scene

import (
	"fmt"
	"math"

	"github.com/fogleman/delaunay"
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/noise/geom"
	"github.com/banshee-data/noisemap/internal/noise/index"
)

// topoLineSpacing is the densification step applied to topographic lines.
const topoLineSpacing = 10.0

// terrain is a TIN of topographic points with barycentric interpolation.
type terrain struct {
	pts  []r3.Vec
	tris [][3]int
	tree *index.Tree[int]
}

func newTerrain(points []r3.Vec) (*terrain, error) {
	// Deduplicate on exact planar position; the last altitude wins.
	seen := make(map[r2.Vec]int, len(points))
	pts := make([]r3.Vec, 0, len(points))
	for _, p := range points {
		k := geom.XY(p)
		if i, ok := seen[k]; ok {
			pts[i] = p
			continue
		}
		seen[k] = len(pts)
		pts = append(pts, p)
	}
	if len(pts) < 3 {
		return nil, fmt.Errorf("%w: %d distinct points", ErrTriangulation, len(pts))
	}

	dpts := make([]delaunay.Point, len(pts))
	for i, p := range pts {
		dpts[i] = delaunay.Point{X: p.X, Y: p.Y}
	}
	tri, err := delaunay.Triangulate(dpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTriangulation, err)
	}
	if len(tri.Triangles) < 3 {
		return nil, fmt.Errorf("%w: no triangle produced", ErrTriangulation)
	}

	t := &terrain{pts: pts}
	entries := make([]index.Entry[int], 0, len(tri.Triangles)/3)
	for i := 0; i+2 < len(tri.Triangles); i += 3 {
		abc := [3]int{tri.Triangles[i], tri.Triangles[i+1], tri.Triangles[i+2]}
		entries = append(entries, index.Entry[int]{Bound: t.triangleBound(abc), Value: len(t.tris)})
		t.tris = append(t.tris, abc)
	}
	t.tree = index.New(entries)
	return t, nil
}

func (t *terrain) triangleBound(abc [3]int) orb.Bound {
	mp := orb.MultiPoint{}
	for _, i := range abc {
		mp = append(mp, orb.Point{t.pts[i].X, t.pts[i].Y})
	}
	return mp.Bound()
}

// barycentric returns the weights of p in triangle tri. ok is false for a
// degenerate triangle.
func (t *terrain) barycentric(tri int, p r2.Vec) (wa, wb, wc float64, ok bool) {
	abc := t.tris[tri]
	a, b, c := geom.XY(t.pts[abc[0]]), geom.XY(t.pts[abc[1]]), geom.XY(t.pts[abc[2]])
	v0, v1, v2 := r2.Sub(b, a), r2.Sub(c, a), r2.Sub(p, a)
	denom := r2.Cross(v0, v1)
	if math.Abs(denom) < 1e-12 {
		return 0, 0, 0, false
	}
	wb = r2.Cross(v2, v1) / denom
	wc = r2.Cross(v0, v2) / denom
	wa = 1 - wb - wc
	return wa, wb, wc, true
}

// elevation interpolates the TIN at p. ok is false outside the hull.
func (t *terrain) elevation(p r2.Vec) (float64, bool) {
	const eps = 1e-9
	for _, tri := range t.tree.QueryPoint(orb.Point{p.X, p.Y}) {
		wa, wb, wc, ok := t.barycentric(tri, p)
		if !ok || wa < -eps || wb < -eps || wc < -eps {
			continue
		}
		abc := t.tris[tri]
		return wa*t.pts[abc[0]].Z + wb*t.pts[abc[1]].Z + wc*t.pts[abc[2]].Z, true
	}
	return 0, false
}

// crossings returns the parameters along ab where it crosses a triangle edge.
func (t *terrain) crossings(a, b r2.Vec) []float64 {
	var out []float64
	seen := make(map[[2]int]bool)
	for _, tri := range t.tree.QuerySegment(orb.Point{a.X, a.Y}, orb.Point{b.X, b.Y}, 0) {
		abc := t.tris[tri]
		for k := 0; k < 3; k++ {
			i, j := abc[k], abc[(k+1)%3]
			if i > j {
				i, j = j, i
			}
			if seen[[2]int{i, j}] {
				continue
			}
			seen[[2]int{i, j}] = true
			if _, tt, _, ok := geom.Intersect(a, b, geom.XY(t.pts[i]), geom.XY(t.pts[j])); ok {
				out = append(out, tt)
			}
		}
	}
	return out
}

// densify returns line with extra vertices so that no span exceeds step.
func densify(line []r3.Vec, step float64) []r3.Vec {
	if len(line) < 2 {
		return line
	}
	out := []r3.Vec{line[0]}
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		n := int(math.Ceil(geom.Dist2D(a, b) / step))
		for k := 1; k < n; k++ {
			out = append(out, geom.Lerp(a, b, float64(k)/float64(n)))
		}
		out = append(out, b)
	}
	return out
}
