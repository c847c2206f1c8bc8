package pathfinder

import (
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/noise/geom"
	"github.com/banshee-data/noisemap/internal/noise/mirror"
	"github.com/banshee-data/noisemap/internal/noise/path"
	"github.com/banshee-data/noisemap/internal/noise/scene"
)

// ComputePaths returns every propagation path from src to rcv. When
// reflections are enabled a mirror index is built for this call only; Run
// builds one per receiver instead.
func (d *Data) ComputePaths(src SourcePoint, rcv Receiver) ([]*path.PropagationPath, error) {
	var mirrors *mirror.Index
	if d.ReflexionOrder > 0 {
		m, err := d.mirrorIndex(rcv)
		if err != nil {
			return nil, err
		}
		mirrors = m
	}
	return d.computePaths(src, rcv, mirrors), nil
}

func (d *Data) mirrorIndex(rcv Receiver) (*mirror.Index, error) {
	b := orb.Bound{Min: orb.Point{rcv.Pos.X, rcv.Pos.Y}, Max: orb.Point{rcv.Pos.X, rcv.Pos.Y}}.Pad(d.MaxSrcDist)
	walls := d.Scene.WallsInBound(b)
	idx, err := mirror.New(walls, rcv.Pos, d.ReflexionOrder, d.MirrorReceiverCapacity)
	if err != nil {
		return nil, err
	}
	if idx.Truncated() {
		noise.Diagf("receiver %d: mirror images truncated at %d", rcv.ID, idx.Len())
	}
	return idx, nil
}

func (d *Data) computePaths(src SourcePoint, rcv Receiver, mirrors *mirror.Index) []*path.PropagationPath {
	pr := d.Scene.Profile(src.Pos, rcv.Pos, d.Gs)

	var out []*path.PropagationPath
	switch {
	case !pr.Obstructed():
		out = append(out, d.directPath(pr))
	case pr.BuildingObstructed() && !d.ComputeVerticalDiffraction:
		// nothing passes through buildings
	default:
		out = append(out, d.verticalPath(pr))
	}
	if d.ComputeHorizontalDiffraction && pr.BuildingObstructed() {
		out = append(out, d.lateralPaths(src.Pos, rcv.Pos, pr)...)
	}
	if mirrors != nil {
		out = append(out, d.reflectionPaths(src.Pos, rcv.Pos, mirrors)...)
	}
	for _, p := range out {
		p.SourceID = src.SourceID
		p.ReceiverID = rcv.ID
	}
	noise.Tracef("source %d -> receiver %d: %d paths", src.SourceID, rcv.ID, len(out))
	return out
}

// directPath is the straight path of an unobstructed profile.
func (d *Data) directPath(pr *scene.Profile) *path.PropagationPath {
	first, last := pr.Points[0], pr.Points[len(pr.Points)-1]
	p := &path.PropagationPath{
		Kind: path.KindDirect,
		Points: []path.PointPath{
			{Role: path.RoleSource, Pos: pr.Source, GroundZ: first.GroundZ, WallID: -1},
			{Role: path.RoleReceiver, Pos: pr.Receiver, Abscissa: pr.Length, GroundZ: last.GroundZ, WallID: -1},
		},
		Segments: []path.SegmentPath{{First: 0, Last: 1, GPath: pr.GPath(0, pr.Length), Length: pr.Length}},
		Ground:   pr.GroundProfile(0, pr.Length),
	}
	p.Init()
	return p
}

// verticalPath runs over the upper convex hull of the obstacle tops, each
// hull vertex being a diffraction edge.
func (d *Data) verticalPath(pr *scene.Profile) *path.PropagationPath {
	hull := geom.UpperHull(pr.TopProfile())
	if len(hull) < 3 {
		return d.directPath(pr)
	}
	first, last := pr.Points[0], pr.Points[len(pr.Points)-1]
	p := &path.PropagationPath{
		Kind:   path.KindVerticalDiffraction,
		Points: []path.PointPath{{Role: path.RoleSource, Pos: pr.Source, GroundZ: first.GroundZ, WallID: -1}},
		Ground: pr.GroundProfile(0, pr.Length),
	}
	for _, i := range hull[1 : len(hull)-1] {
		cp := pr.Points[i]
		p.Points = append(p.Points, path.PointPath{
			Role:     path.RoleDiffractionV,
			Pos:      geom.WithZ(cp.Pos, cp.Top),
			Abscissa: cp.Abscissa,
			GroundZ:  cp.GroundZ,
			WallID:   cp.WallID,
		})
	}
	p.Points = append(p.Points, path.PointPath{
		Role: path.RoleReceiver, Pos: pr.Receiver, Abscissa: pr.Length, GroundZ: last.GroundZ, WallID: -1,
	})

	n := len(p.Points)
	x1, xn := p.Points[1].Abscissa, p.Points[n-2].Abscissa
	p.Segments = []path.SegmentPath{
		{First: 0, Last: 1, GPath: pr.GPath(0, x1), Length: x1},
		{First: n - 2, Last: n - 1, GPath: pr.GPath(xn, pr.Length), Length: pr.Length - xn},
	}
	p.Init()
	return p
}

// unfoldedPath lays pts out along their planar legs. The ground profile and
// mean ground factor come from a profile of every leg. With checkLegs, a leg
// obstructed by buildings or terrain rejects the path.
func (d *Data) unfoldedPath(kind path.Kind, pts []path.PointPath, checkLegs bool) (*path.PropagationPath, bool) {
	p := &path.PropagationPath{Kind: kind, Points: pts}
	var total, gSum float64
	for i := range pts {
		pts[i].GroundZ = d.Scene.GroundZ(geom.XY(pts[i].Pos))
		if i == 0 {
			continue
		}
		pr := d.Scene.Profile(pts[i-1].Pos, pts[i].Pos, d.Gs)
		if checkLegs && pr.Obstructed() {
			return nil, false
		}
		for _, g := range pr.GroundProfile(0, pr.Length) {
			p.Ground = append(p.Ground, r2.Vec{X: total + g.X, Y: g.Y})
		}
		gSum += pr.GPath(0, pr.Length) * pr.Length
		total += pr.Length
		pts[i].Abscissa = total
	}
	g := d.Gs
	if total > geom.Epsilon {
		g = gSum / total
	}
	p.Segments = []path.SegmentPath{{First: 0, Last: len(pts) - 1, GPath: g, Length: total}}
	p.Init()
	return p, true
}

// reflectionPaths turns the valid mirror chains into paths whose legs are
// all free of obstacles.
func (d *Data) reflectionPaths(src, rcv r3.Vec, mirrors *mirror.Index) []*path.PropagationPath {
	chains, err := mirrors.FindCloseMirrorReceivers(src, d.MaxRefDist, d.MaxSrcDist)
	if err != nil {
		noise.Diagf("reflections skipped: %v", err)
		return nil
	}
	var out []*path.PropagationPath
	for _, c := range chains {
		pts := []path.PointPath{{Role: path.RoleSource, Pos: src, WallID: -1}}
		for _, r := range c.Reflections {
			pts = append(pts, path.PointPath{
				Role:       path.RoleReflection,
				Pos:        r.Pos,
				WallID:     r.Wall.ID,
				Absorption: r.Wall.Absorption,
			})
		}
		pts = append(pts, path.PointPath{Role: path.RoleReceiver, Pos: rcv, WallID: -1})
		if p, ok := d.unfoldedPath(path.KindReflection, pts, true); ok {
			out = append(out, p)
		}
	}
	return out
}
