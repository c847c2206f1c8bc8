// Package mirror builds the images of a receiver through reflecting walls
// and finds the image chains that form valid specular reflection paths from
// a source.
//
// Images live in a flat arena and refer to their parent by index, which
// keeps an index with tens of thousands of images cheap to build and to
// drop once the receiver is done.
package mirror

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/noise/geom"
	"github.com/banshee-data/noisemap/internal/noise/scene"
)

// DefaultCapacity bounds the number of images of one receiver.
const DefaultCapacity = 50000

// ErrNaNCoordinate is returned for receivers or sources with a NaN altitude.
var ErrNaNCoordinate = errors.New("mirror: NaN coordinate")

// Image is the receiver mirrored through Wall, then through the walls of
// its ancestors.
type Image struct {
	Pos    r3.Vec
	Parent int32 // -1 at depth 1
	Wall   int32 // index into the index walls
}

// Reflection is one specular reflection point. Pos.Z is the altitude of the
// unfolded ray at that point.
type Reflection struct {
	Pos  r3.Vec
	Wall scene.Wall
}

// Chain is a validated reflection path, reflections in source to receiver
// order.
type Chain struct {
	Image       int
	Reflections []Reflection
}

// Index holds the images of one receiver.
type Index struct {
	walls     []scene.Wall
	obstacles map[int][]int
	receiver  r3.Vec
	images    []Image
	tree      *kdtree.Tree
	truncated bool
}

// New mirrors receiver through walls breadth first, up to order successive
// reflections and at most capacity images (DefaultCapacity when <= 0).
// Expansion past capacity is dropped and reported by Truncated.
func New(walls []scene.Wall, receiver r3.Vec, order, capacity int) (*Index, error) {
	if !geom.Finite(receiver) {
		return nil, ErrNaNCoordinate
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	idx := &Index{
		walls:     walls,
		obstacles: make(map[int][]int),
		receiver:  receiver,
	}
	for i, w := range walls {
		if w.ObstacleID >= 0 {
			idx.obstacles[w.ObstacleID] = append(idx.obstacles[w.ObstacleID], i)
		}
	}

	parents := []int32{-1}
expand:
	for depth := 0; depth < order; depth++ {
		var next []int32
		for _, parent := range parents {
			from := receiver
			if parent >= 0 {
				from = idx.images[parent].Pos
			}
			for wi, w := range walls {
				if parent >= 0 && idx.images[parent].Wall == int32(wi) {
					continue
				}
				if w.Length() <= geom.Epsilon {
					continue
				}
				if len(idx.images) >= capacity {
					idx.truncated = true
					noise.Diagf("mirror capacity %d reached at depth %d", capacity, depth+1)
					break expand
				}
				idx.images = append(idx.images, Image{
					Pos:    geom.Mirror(from, w.A(), w.B()),
					Parent: parent,
					Wall:   int32(wi),
				})
				next = append(next, int32(len(idx.images)-1))
			}
		}
		parents = next
	}

	if len(idx.images) > 0 {
		pts := make(points, len(idx.images))
		for i, im := range idx.images {
			pts[i] = point{x: im.Pos.X, y: im.Pos.Y, id: i}
		}
		idx.tree = kdtree.New(pts, false)
	}
	return idx, nil
}

// Len is the number of images.
func (idx *Index) Len() int { return len(idx.images) }

// Truncated reports whether expansion stopped at the capacity.
func (idx *Index) Truncated() bool { return idx.truncated }

// Images returns the image arena.
func (idx *Index) Images() []Image { return idx.images }

// Depth is the number of reflections of image i.
func (idx *Index) Depth(i int) int {
	d := 0
	for j := int32(i); j >= 0; j = idx.images[j].Parent {
		d++
	}
	return d
}

// FindCloseMirrorReceivers returns the chains from source to the receiver
// whose walls lie within maxWallDistance of the source-receiver segment and
// whose image is closer than maxPropagationDistance to the source. Chains
// are ordered by image index.
func (idx *Index) FindCloseMirrorReceivers(source r3.Vec, maxWallDistance, maxPropagationDistance float64) ([]Chain, error) {
	if !geom.Finite(source) {
		return nil, ErrNaNCoordinate
	}
	if idx.tree == nil {
		return nil, nil
	}

	keeper := kdtree.NewDistKeeper(maxPropagationDistance * maxPropagationDistance)
	idx.tree.NearestSet(keeper, point{x: source.X, y: source.Y, id: -1})
	var candidates []int
	for _, c := range keeper.Heap {
		if c.Comparable == nil {
			continue
		}
		candidates = append(candidates, c.Comparable.(point).id)
	}
	sort.Ints(candidates)

	var out []Chain
	for _, i := range candidates {
		if geom.Dist3D(idx.images[i].Pos, source) >= maxPropagationDistance {
			continue
		}
		if refl, ok := idx.validate(i, source, maxWallDistance); ok {
			out = append(out, Chain{Image: i, Reflections: refl})
		}
	}
	return out, nil
}

// validate walks the chain of image i from the source side. Each image is
// reflected on its own wall, on the line from the image to the previous
// reflection point.
func (idx *Index) validate(i int, source r3.Vec, maxWallDistance float64) ([]Reflection, bool) {
	src, rcv := geom.XY(source), geom.XY(idx.receiver)
	total := r2.Norm(r2.Sub(geom.XY(idx.images[i].Pos), src))
	if total <= geom.Epsilon {
		return nil, false
	}
	zAt := func(s float64) float64 {
		return source.Z + (idx.receiver.Z-source.Z)*s/total
	}

	var out []Reflection
	prev := src
	var travelled float64
	for j := int32(i); j >= 0; j = idx.images[j].Parent {
		im := idx.images[j]
		w := idx.walls[im.Wall]
		if geom.SegmentDistance(w.A(), w.B(), src, rcv) > maxWallDistance {
			return nil, false
		}
		p, _, _, ok := geom.Intersect(w.A(), w.B(), geom.XY(im.Pos), prev)
		if !ok {
			return nil, false
		}
		leg := r2.Norm(r2.Sub(p, prev))
		z := zAt(travelled + leg)
		if z > w.TopZ(p) {
			return nil, false
		}
		if idx.occluded(int(im.Wall), p, prev, func(q r2.Vec) float64 {
			return zAt(travelled + r2.Norm(r2.Sub(q, prev)))
		}) {
			return nil, false
		}
		out = append(out, Reflection{Pos: geom.WithZ(p, z), Wall: w})
		travelled += leg
		prev = p
	}
	return out, true
}

// occluded reports whether another wall of the obstacle of wall wi blocks
// the leg from p back to prev.
func (idx *Index) occluded(wi int, p, prev r2.Vec, rayZ func(r2.Vec) float64) bool {
	w := idx.walls[wi]
	if w.ObstacleID < 0 {
		return false
	}
	for _, oi := range idx.obstacles[w.ObstacleID] {
		if oi == wi {
			continue
		}
		other := idx.walls[oi]
		q, _, _, ok := geom.Intersect(other.A(), other.B(), p, prev)
		if !ok || r2.Norm(r2.Sub(q, p)) <= geom.Epsilon || r2.Norm(r2.Sub(q, prev)) <= geom.Epsilon {
			continue
		}
		if rayZ(q) <= other.TopZ(q) {
			return true
		}
	}
	return false
}

// point is an image position in the KD-tree.
type point struct {
	x, y float64
	id   int
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	if d == 0 {
		return p.x - q.x
	}
	return p.y - q.y
}

func (p point) Dims() int { return 2 }

// Distance is squared, as the KD-tree keepers expect.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dx, dy := p.x-q.x, p.y-q.y
	return dx*dx + dy*dy
}

type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Pivot(d kdtree.Dim) int                { return plane{points: p, Dim: d}.Pivot() }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

type plane struct {
	kdtree.Dim
	points
}

func (p plane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.points[i].x < p.points[j].x
	}
	return p.points[i].y < p.points[j].y
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{Dim: p.Dim, points: p.points[start:end]}
}

func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
