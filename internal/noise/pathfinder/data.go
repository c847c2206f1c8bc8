// Package pathfinder enumerates the propagation paths between sources and
// receivers of a frozen scene: the direct or vertically diffracted path,
// lateral detours around obstacles and specular reflections. Run spreads the
// receivers over a fixed pool of workers and hands the paths to a Visitor.
package pathfinder

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/config"
	"github.com/banshee-data/noisemap/internal/noise/geom"
	"github.com/banshee-data/noisemap/internal/noise/index"
	"github.com/banshee-data/noisemap/internal/noise/scene"
)

var (
	// ErrInvalidGeometry is returned for empty or non-finite source and
	// receiver coordinates.
	ErrInvalidGeometry = errors.New("pathfinder: invalid geometry")
	// ErrNoScene is returned by Run when Data has no scene.
	ErrNoScene = errors.New("pathfinder: no scene")
)

// Source is a point source (one vertex) or a line source (two or more).
type Source struct {
	ID       int
	Geometry []r3.Vec
	// Power per band in W; nil is 1 W (0 dB) in every band.
	Power []float64
}

// IsLine reports whether s is a line source.
func (s Source) IsLine() bool { return len(s.Geometry) > 1 }

// Bound is the planar envelope of the source geometry.
func (s Source) Bound() orb.Bound {
	mp := make(orb.MultiPoint, len(s.Geometry))
	for i, p := range s.Geometry {
		mp[i] = orb.Point{p.X, p.Y}
	}
	return mp.Bound()
}

// Receiver is a listening point.
type Receiver struct {
	ID  int
	Pos r3.Vec
}

// SourcePoint is a point source or one piece of a split line source.
type SourcePoint struct {
	SourceID int
	Pos      r3.Vec
	Li       float64 // length represented by the point, 1 for point sources
	Power    []float64
}

// Data is the input of a path finding run. The scene and every source and
// receiver must be in place before Run.
type Data struct {
	Scene     *scene.Scene
	Sources   []Source
	Receivers []Receiver

	ComputeHorizontalDiffraction bool
	ComputeVerticalDiffraction   bool
	ReflexionOrder               int
	MaxSrcDist                   float64
	MaxRefDist                   float64
	MaximumError                 float64 // dB, 0 disables source pruning
	Gs                           float64
	MirrorReceiverCapacity       int
	ThreadCount                  int

	sourceTree *index.Tree[int]
	stopped    atomic.Bool
	absoluteZ  bool
}

// NewData returns run data over sc with flags taken from cfg.
func NewData(sc *scene.Scene, cfg *config.PropagationConfig) *Data {
	if cfg == nil {
		cfg = config.EmptyPropagationConfig()
	}
	return &Data{
		Scene:                        sc,
		ComputeHorizontalDiffraction: cfg.GetComputeHorizontalDiffraction(),
		ComputeVerticalDiffraction:   cfg.GetComputeVerticalDiffraction(),
		ReflexionOrder:               cfg.GetReflexionOrder(),
		MaxSrcDist:                   cfg.GetMaxSrcDist(),
		MaxRefDist:                   cfg.GetMaxRefDist(),
		MaximumError:                 cfg.GetMaximumError(),
		Gs:                           cfg.GetDefaultGroundG(),
		MirrorReceiverCapacity:       cfg.GetMirrorReceiverCapacity(),
		ThreadCount:                  cfg.GetThreadCount(),
	}
}

// AddSource adds a point or line source.
func (d *Data) AddSource(id int, geometry []r3.Vec, power []float64) error {
	if len(geometry) == 0 {
		return fmt.Errorf("%w: source %d has no vertex", ErrInvalidGeometry, id)
	}
	for _, p := range geometry {
		if !geom.Finite(p) {
			return fmt.Errorf("%w: source %d has a non-finite vertex", ErrInvalidGeometry, id)
		}
	}
	for _, w := range power {
		if math.IsNaN(w) || w < 0 {
			return fmt.Errorf("%w: source %d has an invalid power %v", ErrInvalidGeometry, id, w)
		}
	}
	d.Sources = append(d.Sources, Source{
		ID:       id,
		Geometry: append([]r3.Vec(nil), geometry...),
		Power:    append([]float64(nil), power...),
	})
	d.sourceTree = nil
	return nil
}

// AddPointSource adds a point source.
func (d *Data) AddPointSource(id int, pos r3.Vec, power []float64) error {
	return d.AddSource(id, []r3.Vec{pos}, power)
}

// AddReceiver adds a receiver.
func (d *Data) AddReceiver(id int, pos r3.Vec) error {
	if !geom.Finite(pos) {
		return fmt.Errorf("%w: receiver %d is not finite", ErrInvalidGeometry, id)
	}
	d.Receivers = append(d.Receivers, Receiver{ID: id, Pos: pos})
	return nil
}

// MakeRelativeZToAbsolute converts source and receiver altitudes given
// relative to the ground into absolute altitudes. Later calls do nothing.
func (d *Data) MakeRelativeZToAbsolute() {
	if d.absoluteZ {
		return
	}
	d.absoluteZ = true
	for i := range d.Sources {
		for j, p := range d.Sources[i].Geometry {
			d.Sources[i].Geometry[j].Z = p.Z + d.Scene.GroundZ(geom.XY(p))
		}
	}
	for i, r := range d.Receivers {
		d.Receivers[i].Pos.Z = r.Pos.Z + d.Scene.GroundZ(geom.XY(r.Pos))
	}
}

// Stop asks Run to return after the receivers in progress.
func (d *Data) Stop() { d.stopped.Store(true) }

// Stopped reports whether Stop was called.
func (d *Data) Stopped() bool { return d.stopped.Load() }

func (d *Data) prepare() {
	if d.sourceTree != nil {
		return
	}
	entries := make([]index.Entry[int], len(d.Sources))
	for i, s := range d.Sources {
		entries[i] = index.Entry[int]{Bound: s.Bound(), Value: i}
	}
	d.sourceTree = index.New(entries)
}
