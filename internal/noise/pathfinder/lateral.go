package pathfinder

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/noise/geom"
	"github.com/banshee-data/noisemap/internal/noise/path"
	"github.com/banshee-data/noisemap/internal/noise/scene"
)

// maxHullIterations bounds the growth of a lateral detour.
const maxHullIterations = 10

// obstacleSet is the growing set of obstacles a lateral detour goes around.
type obstacleSet struct {
	pts       []r2.Vec
	buildings map[int]bool
	walls     map[int]bool
}

func newObstacleSet() *obstacleSet {
	return &obstacleSet{buildings: make(map[int]bool), walls: make(map[int]bool)}
}

func (o *obstacleSet) addBuilding(b scene.Building) bool {
	if o.buildings[b.ID] {
		return false
	}
	o.buildings[b.ID] = true
	for _, p := range b.Footprint {
		o.pts = append(o.pts, r2.Vec{X: p[0], Y: p[1]})
	}
	return true
}

func (o *obstacleSet) addWall(w scene.Wall) bool {
	if o.walls[w.ID] {
		return false
	}
	o.walls[w.ID] = true
	o.pts = append(o.pts, w.A(), w.B())
	return true
}

// lateralPaths returns the detours on both sides of the obstacles crossed
// by the profile.
func (d *Data) lateralPaths(src, rcv r3.Vec, pr *scene.Profile) []*path.PropagationPath {
	var out []*path.PropagationPath
	for _, ccw := range []bool{true, false} {
		set := newObstacleSet()
		for _, id := range pr.BuildingIDs() {
			set.addBuilding(d.Scene.Building(id))
		}
		for _, cp := range pr.WallCuts() {
			if cp.BuildingID < 0 {
				set.addWall(d.Scene.Wall(cp.WallID))
			}
		}
		chain := d.sideChain(geom.XY(src), geom.XY(rcv), set, ccw)
		if len(chain) < 3 {
			continue
		}
		if p := d.lateralPath(src, rcv, chain); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// sideChain walks the convex hull of the obstacles from s to r on one side,
// growing the obstacle set until no leg crosses an obstacle.
func (d *Data) sideChain(s, r r2.Vec, set *obstacleSet, ccw bool) []r2.Vec {
	for iter := 0; iter < maxHullIterations; iter++ {
		hull := geom.ConvexHull(append([]r2.Vec{s, r}, set.pts...))
		chain := walkHull(hull, s, r, ccw)
		if chain == nil {
			return nil
		}
		grown := false
		for i := 1; i < len(chain); i++ {
			if d.blockLeg(chain[i-1], chain[i], set) {
				grown = true
			}
		}
		if !grown {
			return chain
		}
	}
	noise.Diagf("lateral detour still blocked after %d iterations", maxHullIterations)
	return nil
}

// walkHull returns the hull vertices from s to r, stepping forward for ccw
// and backward otherwise. It is nil when s or r is not a hull vertex.
func walkHull(hull []r2.Vec, s, r r2.Vec, ccw bool) []r2.Vec {
	is, ir := -1, -1
	for i, p := range hull {
		if p == s {
			is = i
		}
		if p == r {
			ir = i
		}
	}
	if is < 0 || ir < 0 || is == ir {
		return nil
	}
	step := 1
	if !ccw {
		step = len(hull) - 1
	}
	out := []r2.Vec{s}
	for i := (is + step) % len(hull); ; i = (i + step) % len(hull) {
		out = append(out, hull[i])
		if i == ir {
			return out
		}
	}
}

// blockLeg adds to set every obstacle crossed by leg ab that it does not
// hold yet, reporting whether any was added.
func (d *Data) blockLeg(a, b r2.Vec, set *obstacleSet) bool {
	bound := orb.MultiPoint{{a.X, a.Y}, {b.X, b.Y}}.Bound()
	added := false
	for _, bd := range d.Scene.BuildingsInBound(bound) {
		if !set.buildings[bd.ID] && crossesRing(a, b, bd.Footprint) {
			added = set.addBuilding(bd) || added
		}
	}
	for _, w := range d.Scene.WallsInBound(bound) {
		if w.ObstacleID >= 0 || set.walls[w.ID] {
			continue
		}
		if crossesSegment(a, b, w.A(), w.B()) {
			added = set.addWall(w) || added
		}
	}
	return added
}

// crossesSegment reports a crossing of ab and cd away from their ends.
func crossesSegment(a, b, c, d r2.Vec) bool {
	const tol = 1e-9
	_, t, u, ok := geom.Intersect(a, b, c, d)
	return ok && t > tol && t < 1-tol && u > tol && u < 1-tol
}

// crossesRing reports whether ab enters the ring.
func crossesRing(a, b r2.Vec, ring orb.Ring) bool {
	mid := r2.Scale(0.5, r2.Add(a, b))
	if planar.RingContains(ring, orb.Point{mid.X, mid.Y}) {
		return true
	}
	for i := 1; i < len(ring); i++ {
		c := r2.Vec{X: ring[i-1][0], Y: ring[i-1][1]}
		e := r2.Vec{X: ring[i][0], Y: ring[i][1]}
		if crossesSegment(a, b, c, e) {
			return true
		}
	}
	return false
}

// lateralPath builds the path along chain, the altitude varying linearly
// with the unfolded distance.
func (d *Data) lateralPath(src, rcv r3.Vec, chain []r2.Vec) *path.PropagationPath {
	var total float64
	for i := 1; i < len(chain); i++ {
		total += r2.Norm(r2.Sub(chain[i], chain[i-1]))
	}
	pts := make([]path.PointPath, len(chain))
	var s float64
	for i, c := range chain {
		if i > 0 {
			s += r2.Norm(r2.Sub(c, chain[i-1]))
		}
		z := src.Z
		if total > geom.Epsilon {
			z += (rcv.Z - src.Z) * s / total
		}
		pts[i] = path.PointPath{Role: path.RoleDiffractionH, Pos: geom.WithZ(c, z), WallID: -1}
	}
	pts[0] = path.PointPath{Role: path.RoleSource, Pos: src, WallID: -1}
	pts[len(pts)-1] = path.PointPath{Role: path.RoleReceiver, Pos: rcv, WallID: -1}
	p, _ := d.unfoldedPath(path.KindHorizontalDiffraction, pts, false)
	return p
}
