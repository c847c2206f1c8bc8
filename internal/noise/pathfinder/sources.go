package pathfinder

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/noise/geom"
)

// minLineSpacing is the smallest distance between the points of a split
// line source.
const minLineSpacing = 1.0

// SplitPoint is one piece of a line source.
type SplitPoint struct {
	Pos r3.Vec
	Li  float64
}

// SplitLineString cuts every segment of line into ceil(length/spacing)
// equal pieces and returns the midpoint of each with the piece length.
// Zero-length segments contribute nothing.
func SplitLineString(line []r3.Vec, spacing float64) []SplitPoint {
	if spacing <= 0 || math.IsNaN(spacing) {
		spacing = minLineSpacing
	}
	var out []SplitPoint
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		l := geom.Dist3D(a, b)
		if l <= geom.Epsilon {
			continue
		}
		n := int(math.Ceil(l / spacing))
		li := l / float64(n)
		for k := 0; k < n; k++ {
			t := (float64(k) + 0.5) / float64(n)
			out = append(out, SplitPoint{Pos: geom.Lerp(a, b, t), Li: li})
		}
	}
	return out
}

// LineSpacing is the split spacing of a line source seen from a receiver
// at distance dist: a tenth of the distance, at least one metre.
func LineSpacing(dist float64) float64 {
	return math.Max(minLineSpacing, 0.1*dist)
}

// lineDistance is the planar distance from p to the polyline.
func lineDistance(p r3.Vec, line []r3.Vec) float64 {
	q := geom.XY(p)
	d := math.Inf(1)
	for i := 1; i < len(line); i++ {
		d = math.Min(d, geom.PointSegmentDistance(q, geom.XY(line[i-1]), geom.XY(line[i])))
	}
	return d
}

// sourcePoints returns the source points within MaxSrcDist of rcv sorted
// by distance. Line sources are split with a spacing that grows with their
// distance to the receiver.
func (d *Data) sourcePoints(rcv r3.Vec) []SourcePoint {
	b := orb.Bound{Min: orb.Point{rcv.X, rcv.Y}, Max: orb.Point{rcv.X, rcv.Y}}.Pad(d.MaxSrcDist)

	type candidate struct {
		SourcePoint
		dist float64
		seq  int
	}
	var cands []candidate
	add := func(s Source, pos r3.Vec, li float64) {
		dist := geom.Dist3D(pos, rcv)
		if dist > d.MaxSrcDist {
			return
		}
		cands = append(cands, candidate{
			SourcePoint: SourcePoint{SourceID: s.ID, Pos: pos, Li: li, Power: s.Power},
			dist:        dist,
			seq:         len(cands),
		})
	}
	for _, si := range d.sourceTree.Query(b) {
		s := d.Sources[si]
		if !s.IsLine() {
			add(s, s.Geometry[0], 1)
			continue
		}
		spacing := LineSpacing(lineDistance(rcv, s.Geometry))
		for _, sp := range SplitLineString(s.Geometry, spacing) {
			add(s, sp.Pos, sp.Li)
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].seq < cands[j].seq
	})
	out := make([]SourcePoint, len(cands))
	for i, c := range cands {
		out[i] = c.SourcePoint
	}
	return out
}

// freeFieldBound is the power received from sp with divergence as the only
// attenuation, summed over bands.
func freeFieldBound(sp SourcePoint, rcv r3.Vec, bands int) float64 {
	dist := math.Max(1, geom.Dist3D(sp.Pos, rcv))
	att := math.Pow(10, -(20*math.Log10(dist)+11)/10)
	var total float64
	if sp.Power == nil {
		total = float64(bands)
	}
	for _, w := range sp.Power {
		total += w
	}
	return total * sp.Li * att
}
