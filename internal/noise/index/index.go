// Package index wraps a bulk-loaded R-tree behind a small generic API. A
// Tree is read-only once built and safe for concurrent readers.
package index

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// minExtent pads degenerate envelopes; rtreego rejects zero-length sides.
const minExtent = 1e-9

// Entry is one value and its planar envelope.
type Entry[T any] struct {
	Bound orb.Bound
	Value T
}

type item[T any] struct {
	rect  rtreego.Rect
	seq   int
	value T
}

func (i *item[T]) Bounds() rtreego.Rect { return i.rect }

// Tree is a read-only spatial index over values of type T.
type Tree[T any] struct {
	rt *rtreego.Rtree
	n  int
}

// New bulk-loads entries into a tree. Entries with a non-finite envelope are
// dropped.
func New[T any](entries []Entry[T]) *Tree[T] {
	objs := make([]rtreego.Spatial, 0, len(entries))
	for seq, e := range entries {
		rect, ok := NewRect(e.Bound)
		if !ok {
			continue
		}
		objs = append(objs, &item[T]{rect: rect, seq: seq, value: e.Value})
	}
	return &Tree[T]{rt: rtreego.NewTree(2, 25, 50, objs...), n: len(objs)}
}

// Len is the number of indexed values.
func (t *Tree[T]) Len() int { return t.n }

// Query returns every value whose envelope intersects or touches b, in
// insertion order.
func (t *Tree[T]) Query(b orb.Bound) []T {
	rect, ok := NewRect(b.Pad(minExtent))
	if !ok || t.n == 0 {
		return nil
	}
	hits := t.rt.SearchIntersect(rect)
	found := make([]*item[T], 0, len(hits))
	for _, h := range hits {
		found = append(found, h.(*item[T]))
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })
	out := make([]T, len(found))
	for i, f := range found {
		out[i] = f.value
	}
	return out
}

// QuerySegment returns the values whose envelope intersects the envelope of
// segment ab grown by buffer on every side.
func (t *Tree[T]) QuerySegment(a, b orb.Point, buffer float64) []T {
	return t.Query(orb.MultiPoint{a, b}.Bound().Pad(buffer))
}

// QueryPoint returns the values whose envelope contains p.
func (t *Tree[T]) QueryPoint(p orb.Point) []T {
	return t.Query(p.Bound())
}

// NewRect converts an orb.Bound to an rtreego.Rect, padding sides thinner
// than minExtent. ok is false for empty or non-finite bounds.
func NewRect(b orb.Bound) (rtreego.Rect, bool) {
	for _, v := range []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return rtreego.Rect{}, false
		}
	}
	if b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] {
		return rtreego.Rect{}, false
	}
	w := math.Max(b.Max[0]-b.Min[0], minExtent)
	h := math.Max(b.Max[1]-b.Min[1], minExtent)
	rect, err := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{w, h})
	if err != nil {
		return rtreego.Rect{}, false
	}
	return rect, true
}
