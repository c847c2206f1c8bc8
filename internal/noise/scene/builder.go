package scene

import (
	"fmt"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/noise/geom"
	"github.com/banshee-data/noisemap/internal/noise/index"
)

// Builder accumulates scene geometry. Heights given to AddBuilding and
// AddWall are relative to the ground; Finish converts them to absolute
// altitudes using the terrain. Once Finish has run every Add* call returns
// ErrSceneFrozen.
type Builder struct {
	mu        sync.Mutex
	frozen    bool
	buildings []buildingInput
	screens   []screenInput
	grounds   []GroundRegion
	topo      []r3.Vec
	skipped   int
}

type buildingInput struct {
	ring       orb.Ring // open ring
	heights    []float64
	absorption []float64
}

type screenInput struct {
	line       orb.LineString
	heights    []float64
	absorption []float64
}

// NewBuilder returns an empty scene builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddBuilding adds a building of uniform height. It returns the building id,
// or -1 when the footprint is degenerate and was skipped.
func (b *Builder) AddBuilding(poly orb.Polygon, height float64, absorption []float64) (int, error) {
	if math.IsNaN(height) {
		return -1, fmt.Errorf("%w: building height is NaN", ErrInvalidHeight)
	}
	ring := openRing(poly)
	heights := make([]float64, len(ring))
	for i := range heights {
		heights[i] = height
	}
	return b.addBuilding(ring, heights, absorption)
}

// AddBuildingWithHeights adds a building with one height per footprint
// vertex of the outer ring (closing vertex excluded).
func (b *Builder) AddBuildingWithHeights(poly orb.Polygon, heights []float64, absorption []float64) (int, error) {
	ring := openRing(poly)
	if len(heights) != len(ring) {
		return -1, fmt.Errorf("%w: %d heights for %d vertices", ErrInvalidHeight, len(heights), len(ring))
	}
	for _, h := range heights {
		if math.IsNaN(h) {
			return -1, fmt.Errorf("%w: building height is NaN", ErrInvalidHeight)
		}
	}
	return b.addBuilding(ring, append([]float64(nil), heights...), absorption)
}

func (b *Builder) addBuilding(ring orb.Ring, heights []float64, absorption []float64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return -1, ErrSceneFrozen
	}
	ring, heights = dedupe(ring, heights, true)
	if len(ring) < 3 {
		b.skipped++
		noise.Diagf("skipping building footprint with %d distinct vertices", len(ring))
		return -1, nil
	}
	if i, j, ok := selfIntersection(ring); ok {
		b.skipped++
		noise.Diagf("skipping self-intersecting building footprint: edges %d and %d cross", i, j)
		return -1, nil
	}
	b.buildings = append(b.buildings, buildingInput{
		ring:       ring,
		heights:    heights,
		absorption: append([]float64(nil), absorption...),
	})
	return len(b.buildings) - 1, nil
}

// AddWall adds a free-standing screen following line. heights holds either a
// single height for every vertex or one height per vertex. It returns the
// screen index, or -1 when the line is degenerate and was skipped.
func (b *Builder) AddWall(line orb.LineString, heights []float64, absorption []float64) (int, error) {
	hs := make([]float64, len(line))
	switch len(heights) {
	case 1:
		for i := range hs {
			hs[i] = heights[0]
		}
	case len(line):
		copy(hs, heights)
	default:
		return -1, fmt.Errorf("%w: %d heights for %d vertices", ErrInvalidHeight, len(heights), len(line))
	}
	for _, h := range hs {
		if math.IsNaN(h) {
			return -1, fmt.Errorf("%w: wall height is NaN", ErrInvalidHeight)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return -1, ErrSceneFrozen
	}
	pts, hs := dedupe(orb.Ring(line), hs, false)
	if len(pts) < 2 {
		b.skipped++
		noise.Diagf("skipping zero-length screen")
		return -1, nil
	}
	b.screens = append(b.screens, screenInput{
		line:       orb.LineString(pts),
		heights:    hs,
		absorption: append([]float64(nil), absorption...),
	})
	return len(b.screens) - 1, nil
}

// AddGroundEffect adds a ground region. Later regions take precedence where
// regions overlap.
func (b *Builder) AddGroundEffect(poly orb.Polygon, g float64) error {
	if math.IsNaN(g) || g < 0 || g > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidGroundCoefficient, g)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return ErrSceneFrozen
	}
	if len(poly) == 0 || len(openRing(poly)) < 3 {
		b.skipped++
		noise.Diagf("skipping degenerate ground region")
		return nil
	}
	b.grounds = append(b.grounds, GroundRegion{Polygon: poly.Clone(), G: g})
	return nil
}

// AddGroundEffectRect adds an axis-aligned rectangular ground region.
func (b *Builder) AddGroundEffectRect(minX, maxX, minY, maxY, g float64) error {
	bound := orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
	return b.AddGroundEffect(bound.ToPolygon(), g)
}

// AddTopographicPoint adds a terrain sample with an absolute altitude.
func (b *Builder) AddTopographicPoint(p r3.Vec) error {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
		return fmt.Errorf("%w: topographic point has NaN coordinate", ErrInvalidHeight)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return ErrSceneFrozen
	}
	b.topo = append(b.topo, p)
	return nil
}

// AddTopographicLine adds a terrain break line, densified so that the TIN
// follows it.
func (b *Builder) AddTopographicLine(line []r3.Vec) error {
	for _, p := range line {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
			return fmt.Errorf("%w: topographic line has NaN coordinate", ErrInvalidHeight)
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return ErrSceneFrozen
	}
	b.topo = append(b.topo, densify(line, topoLineSpacing)...)
	return nil
}

// Finish freezes the builder and returns the immutable scene. Topography
// that cannot be triangulated yields an error wrapping ErrTriangulation.
func (b *Builder) Finish() (*Scene, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return nil, ErrSceneFrozen
	}
	b.frozen = true

	s := &Scene{grounds: b.grounds}
	if len(b.topo) > 0 {
		t, err := newTerrain(b.topo)
		if err != nil {
			return nil, err
		}
		s.terrain = t
	}

	for _, in := range b.buildings {
		s.addBuilding(in, &b.skipped)
	}
	for _, in := range b.screens {
		s.addScreen(in, &b.skipped)
	}

	wallEntries := make([]index.Entry[int], len(s.walls))
	for i, w := range s.walls {
		wallEntries[i] = index.Entry[int]{Bound: w.Bound(), Value: i}
	}
	s.wallTree = index.New(wallEntries)

	buildingEntries := make([]index.Entry[int], len(s.buildings))
	for i, bd := range s.buildings {
		buildingEntries[i] = index.Entry[int]{Bound: bd.Footprint.Bound(), Value: i}
	}
	s.buildingTree = index.New(buildingEntries)

	groundEntries := make([]index.Entry[int], len(s.grounds))
	for i, g := range s.grounds {
		groundEntries[i] = index.Entry[int]{Bound: g.Polygon.Bound(), Value: i}
	}
	s.groundTree = index.New(groundEntries)

	s.stats = Stats{
		Buildings:         len(s.buildings),
		Walls:             len(s.walls),
		GroundRegions:     len(s.grounds),
		SkippedGeometries: b.skipped,
	}
	if s.terrain != nil {
		s.stats.TerrainTriangles = len(s.terrain.tris)
	}
	s.envelope = s.computeEnvelope()
	noise.Diagf("scene finished: %d buildings, %d walls, %d ground regions, %d terrain triangles, %d skipped",
		s.stats.Buildings, s.stats.Walls, s.stats.GroundRegions, s.stats.TerrainTriangles, s.stats.SkippedGeometries)
	return s, nil
}

// openRing returns the outer ring of poly without its closing vertex.
func openRing(poly orb.Polygon) orb.Ring {
	if len(poly) == 0 {
		return nil
	}
	ring := append(orb.Ring(nil), poly[0]...)
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	return ring
}

// selfIntersection returns the first pair of non-adjacent edges of the
// open ring that cross or touch.
func selfIntersection(ring orb.Ring) (int, int, bool) {
	n := len(ring)
	vec := func(i int) r2.Vec {
		p := ring[i%n]
		return r2.Vec{X: p[0], Y: p[1]}
	}
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if _, _, _, ok := geom.Intersect(vec(i), vec(i+1), vec(j), vec(j+1)); ok {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// dedupe drops consecutive duplicate vertices together with their heights.
// For closed rings a trailing vertex equal to the first one is dropped too.
func dedupe(pts orb.Ring, heights []float64, closed bool) (orb.Ring, []float64) {
	outP := make(orb.Ring, 0, len(pts))
	outH := make([]float64, 0, len(heights))
	for i, p := range pts {
		if len(outP) > 0 && outP[len(outP)-1] == p {
			continue
		}
		outP = append(outP, p)
		outH = append(outH, heights[i])
	}
	for closed && len(outP) > 1 && outP[0] == outP[len(outP)-1] {
		outP = outP[:len(outP)-1]
		outH = outH[:len(outH)-1]
	}
	return outP, outH
}
