package scene

import (
	"math"

	"github.com/paulmach/orb"
)

// Building is an extruded footprint. Roof holds the absolute roof altitude
// at each footprint vertex, in ring order without the closing vertex.
type Building struct {
	ID         int
	Footprint  orb.Ring
	Roof       []float64
	Absorption []float64
	WallIDs    []int
}

// MaxRoof is the highest roof altitude of the building.
func (b Building) MaxRoof() float64 {
	m := math.Inf(-1)
	for _, z := range b.Roof {
		m = math.Max(m, z)
	}
	return m
}

// GroundRegion is a polygon with a uniform ground factor G.
type GroundRegion struct {
	Polygon orb.Polygon
	G       float64
}

// Stats summarises a finished scene.
type Stats struct {
	Buildings         int
	Walls             int
	GroundRegions     int
	TerrainTriangles  int
	SkippedGeometries int
}
