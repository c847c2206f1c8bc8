// Package scene models the static propagation environment: buildings and
// their walls, free-standing screens, ground absorption regions and terrain.
// A Builder collects geometry; Finish freezes it into a Scene whose spatial
// indexes are read-only and safe for concurrent use.
package scene

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/noise/geom"
	"github.com/banshee-data/noisemap/internal/noise/index"
)

// Scene is the frozen propagation environment.
type Scene struct {
	walls     []Wall
	buildings []Building
	grounds   []GroundRegion
	terrain   *terrain

	wallTree     *index.Tree[int]
	buildingTree *index.Tree[int]
	groundTree   *index.Tree[int]

	stats    Stats
	envelope orb.Bound
}

func (s *Scene) addBuilding(in buildingInput, skipped *int) {
	base := math.Inf(1)
	for _, p := range in.ring {
		base = math.Min(base, s.groundZ(r2.Vec{X: p[0], Y: p[1]}))
	}
	bd := Building{
		ID:         len(s.buildings),
		Footprint:  append(append(orb.Ring(nil), in.ring...), in.ring[0]),
		Roof:       make([]float64, len(in.ring)),
		Absorption: in.absorption,
	}
	for i, h := range in.heights {
		bd.Roof[i] = base + h
	}
	for i := range in.ring {
		j := (i + 1) % len(in.ring)
		a, b := in.ring[i], in.ring[j]
		w := Wall{
			ID:         len(s.walls),
			ObstacleID: bd.ID,
			P0:         r3.Vec{X: a[0], Y: a[1], Z: bd.Roof[i]},
			P1:         r3.Vec{X: b[0], Y: b[1], Z: bd.Roof[j]},
			Absorption: in.absorption,
			Type:       WallBuilding,
		}
		if w.Length() < geom.Epsilon {
			*skipped++
			continue
		}
		bd.WallIDs = append(bd.WallIDs, w.ID)
		s.walls = append(s.walls, w)
	}
	s.buildings = append(s.buildings, bd)
}

func (s *Scene) addScreen(in screenInput, skipped *int) {
	for i := 1; i < len(in.line); i++ {
		a, b := in.line[i-1], in.line[i]
		w := Wall{
			ID:         len(s.walls),
			ObstacleID: -1,
			P0:         r3.Vec{X: a[0], Y: a[1], Z: s.groundZ(r2.Vec{X: a[0], Y: a[1]}) + in.heights[i-1]},
			P1:         r3.Vec{X: b[0], Y: b[1], Z: s.groundZ(r2.Vec{X: b[0], Y: b[1]}) + in.heights[i]},
			Absorption: in.absorption,
			Type:       WallScreen,
		}
		if w.Length() < geom.Epsilon {
			*skipped++
			continue
		}
		s.walls = append(s.walls, w)
	}
}

func (s *Scene) computeEnvelope() orb.Bound {
	b := orb.Bound{Min: orb.Point{math.Inf(1), math.Inf(1)}, Max: orb.Point{math.Inf(-1), math.Inf(-1)}}
	for _, w := range s.walls {
		b = b.Union(w.Bound())
	}
	for _, g := range s.grounds {
		b = b.Union(g.Polygon.Bound())
	}
	if s.terrain != nil {
		for _, p := range s.terrain.pts {
			b = b.Extend(orb.Point{p.X, p.Y})
		}
	}
	if b.Min[0] > b.Max[0] {
		return orb.Bound{}
	}
	return b
}

// Walls returns every wall indexed by Wall.ID. The slice must not be modified.
func (s *Scene) Walls() []Wall { return s.walls }

// Wall returns the wall with the given id.
func (s *Scene) Wall(id int) Wall { return s.walls[id] }

// Buildings returns every building indexed by Building.ID.
func (s *Scene) Buildings() []Building { return s.buildings }

// Building returns the building with the given id.
func (s *Scene) Building(id int) Building { return s.buildings[id] }

// Stats returns counts gathered when the scene was finished.
func (s *Scene) Stats() Stats { return s.stats }

// Envelope is the planar extent of all scene geometry.
func (s *Scene) Envelope() orb.Bound { return s.envelope }

// HasTerrain reports whether topography was supplied.
func (s *Scene) HasTerrain() bool { return s.terrain != nil }

// WallsInBound returns the walls whose envelope intersects b, ordered by id.
func (s *Scene) WallsInBound(b orb.Bound) []Wall {
	ids := s.wallTree.Query(b)
	out := make([]Wall, len(ids))
	for i, id := range ids {
		out[i] = s.walls[id]
	}
	return out
}

// BuildingsInBound returns the buildings whose footprint envelope intersects b.
func (s *Scene) BuildingsInBound(b orb.Bound) []Building {
	ids := s.buildingTree.Query(b)
	out := make([]Building, len(ids))
	for i, id := range ids {
		out[i] = s.buildings[id]
	}
	return out
}

// GroundZ returns the terrain altitude at p, 0 without topography or
// outside the triangulated area.
func (s *Scene) GroundZ(p r2.Vec) float64 {
	return s.groundZ(p)
}

func (s *Scene) groundZ(p r2.Vec) float64 {
	if s.terrain == nil {
		return 0
	}
	z, _ := s.terrain.elevation(p)
	return z
}

// GroundG returns the ground factor at p. The most recently added region
// containing p wins; defaultG applies outside every region.
func (s *Scene) GroundG(p r2.Vec, defaultG float64) float64 {
	ids := s.groundTree.QueryPoint(orb.Point{p.X, p.Y})
	for i := len(ids) - 1; i >= 0; i-- {
		g := s.grounds[ids[i]]
		if planar.PolygonContains(g.Polygon, orb.Point{p.X, p.Y}) {
			return g.G
		}
	}
	return defaultG
}

// IsInsideBuilding reports whether p lies within a building footprint and
// below its highest roof, returning the building id.
func (s *Scene) IsInsideBuilding(p r3.Vec) (int, bool) {
	pt := orb.Point{p.X, p.Y}
	for _, id := range s.buildingTree.QueryPoint(pt) {
		bd := s.buildings[id]
		if planar.RingContains(bd.Footprint, pt) && p.Z < bd.MaxRoof() {
			return id, true
		}
	}
	return -1, false
}

// Profile cuts the scene along the vertical plane through src and rcv.
// Altitudes of src and rcv are absolute. defaultG is the ground factor
// outside every ground region.
func (s *Scene) Profile(src, rcv r3.Vec, defaultG float64) *Profile {
	a, b := geom.XY(src), geom.XY(rcv)
	length := r2.Norm(r2.Sub(b, a))
	pr := &Profile{Source: src, Receiver: rcv, Length: length}

	add := func(kind CutKind, t, top float64, wallID, buildingID int) {
		pos := r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
		pr.Points = append(pr.Points, CutPoint{
			Kind:       kind,
			Pos:        pos,
			Abscissa:   t * length,
			Top:        top,
			WallID:     wallID,
			BuildingID: buildingID,
		})
	}

	add(CutSource, 0, src.Z, -1, -1)
	if length > geom.Epsilon {
		pa, pb := orb.Point{a.X, a.Y}, orb.Point{b.X, b.Y}
		for _, id := range s.wallTree.QuerySegment(pa, pb, 0) {
			w := s.walls[id]
			_, t, u, ok := geom.Intersect(a, b, w.A(), w.B())
			if !ok || t*length < geom.Epsilon || (1-t)*length < geom.Epsilon {
				continue
			}
			add(CutWall, t, w.P0.Z+u*(w.P1.Z-w.P0.Z), w.ID, w.ObstacleID)
		}
		for _, id := range s.groundTree.QuerySegment(pa, pb, 0) {
			for _, ring := range s.grounds[id].Polygon {
				for i := 1; i < len(ring); i++ {
					c := r2.Vec{X: ring[i-1][0], Y: ring[i-1][1]}
					d := r2.Vec{X: ring[i][0], Y: ring[i][1]}
					if _, t, _, ok := geom.Intersect(a, b, c, d); ok && t > 0 && t < 1 {
						add(CutGroundBoundary, t, math.NaN(), -1, -1)
					}
				}
			}
		}
		if s.terrain != nil {
			for _, t := range s.terrain.crossings(a, b) {
				if t > 0 && t < 1 {
					add(CutTerrain, t, math.NaN(), -1, -1)
				}
			}
		}
	}
	add(CutReceiver, 1, rcv.Z, -1, -1)
	pr.sortPoints()

	for i := range pr.Points {
		cp := &pr.Points[i]
		cp.GroundZ = s.groundZ(cp.Pos)
		if cp.Kind == CutGroundBoundary || cp.Kind == CutTerrain {
			cp.Top = cp.GroundZ
		}
		if cp.Kind == CutWall {
			cp.Top = math.Max(cp.Top, cp.GroundZ)
		}
	}
	for i := range pr.Points {
		var mid r2.Vec
		if i+1 < len(pr.Points) {
			mid = r2.Scale(0.5, r2.Add(pr.Points[i].Pos, pr.Points[i+1].Pos))
		} else {
			mid = pr.Points[i].Pos
		}
		pr.Points[i].G = s.GroundG(mid, defaultG)
	}
	noise.Tracef("profile %.1f m: %d cut points", length, len(pr.Points))
	return pr
}
