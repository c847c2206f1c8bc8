// Package aggregate turns propagation paths into receiver levels. It is the
// Visitor handed to the path finder: each receiver accumulates its own
// energy without locking and is merged into the shared result once complete.
package aggregate

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/noise/attenuation"
	"github.com/banshee-data/noisemap/internal/noise/path"
	"github.com/banshee-data/noisemap/internal/noise/pathfinder"
	"github.com/banshee-data/noisemap/internal/units"
)

// RoseSectors is the number of wind rose sectors.
const RoseSectors = 16

// RoseIndex returns the wind rose sector of the direction from receiver to
// source. Sector 0 is centred half a sector clockwise from north and the
// sectors run clockwise.
func RoseIndex(receiver, source r3.Vec) int {
	angle := math.Atan2(source.Y-receiver.Y, source.X-receiver.X)
	s := 2 * math.Pi / RoseSectors
	i := int(math.Floor((math.Pi/2 - s/2 - angle) / s))
	return ((i % RoseSectors) + RoseSectors) % RoseSectors
}

// Options select what a Result keeps beyond receiver levels.
type Options struct {
	Units         string // units.DB or units.DBA, DBA when empty
	KeepRays      bool   // keep every path with its attenuation
	KeepBreakdown bool   // keep the level of every source at every receiver
}

// ReceiverLevel is the spectrum of one receiver.
type ReceiverLevel struct {
	ID     int
	Levels []float64
}

// SourceLevel is the contribution of one source to one receiver.
type SourceLevel struct {
	ReceiverID int
	SourceID   int
	Levels     []float64
}

// Ray is a kept path with its attenuation.
type Ray struct {
	Path        *path.PropagationPath
	Attenuation *attenuation.Result
}

// Result accumulates receiver levels. It implements pathfinder.Visitor.
type Result struct {
	data *attenuation.PathData
	opts Options

	mu        sync.Mutex
	receivers map[int][]float64    // power per band
	breakdown map[[2]int][]float64 // (receiver, source) power per band
	rays      map[int][]Ray        // by receiver
}

// New returns an empty result evaluating paths with data.
func New(data *attenuation.PathData, opts Options) *Result {
	if opts.Units == "" {
		opts.Units = units.DBA
	}
	return &Result{
		data:      data,
		opts:      opts,
		receivers: make(map[int][]float64),
		breakdown: make(map[[2]int][]float64),
		rays:      make(map[int][]Ray),
	}
}

// ForReceiver starts the accumulation of one receiver.
func (r *Result) ForReceiver(rcv pathfinder.Receiver) pathfinder.ReceiverVisitor {
	return &receiverAccumulator{
		parent:  r,
		rcv:     rcv,
		power:   make([]float64, r.data.Bands()),
		sources: make(map[int][]float64),
	}
}

// Level returns the spectrum of receiver id.
func (r *Result) Level(id int) ([]float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.receivers[id]
	if !ok {
		return nil, false
	}
	return r.toLevels(w), true
}

// ReceiverLevels returns every receiver that received energy, sorted by id.
func (r *Result) ReceiverLevels() []ReceiverLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ReceiverLevel, 0, len(r.receivers))
	for id, w := range r.receivers {
		out = append(out, ReceiverLevel{ID: id, Levels: r.toLevels(w)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SourceLevels returns the per-source contributions kept with
// KeepBreakdown, sorted by receiver then source.
func (r *Result) SourceLevels() []SourceLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SourceLevel, 0, len(r.breakdown))
	for k, w := range r.breakdown {
		out = append(out, SourceLevel{ReceiverID: k[0], SourceID: k[1], Levels: r.toLevels(w)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReceiverID != out[j].ReceiverID {
			return out[i].ReceiverID < out[j].ReceiverID
		}
		return out[i].SourceID < out[j].SourceID
	})
	return out
}

// Rays returns the paths kept with KeepRays, ordered by receiver.
func (r *Result) Rays() []Ray {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.rays))
	for id := range r.rays {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []Ray
	for _, id := range ids {
		out = append(out, r.rays[id]...)
	}
	return out
}

func (r *Result) toLevels(w []float64) []float64 {
	return units.ConvertSpectrum(units.WToDBSlice(w), r.data.Frequencies, r.opts.Units)
}

// Contribution returns the power per band received through att from a source
// of power w per band (nil is 1 W) representing length li, given the
// favourable probability of its direction.
func Contribution(att *attenuation.Result, w []float64, li, favourable float64) []float64 {
	out := make([]float64, len(att.AGlobalH))
	for i := range out {
		pw := 1.0
		if w != nil {
			pw = 0
			if i < len(w) {
				pw = w[i]
			}
		}
		h := math.Pow(10, -att.AGlobalH[i]/10)
		f := math.Pow(10, -att.AGlobalF[i]/10)
		out[i] = pw * li * (favourable*f + (1-favourable)*h)
	}
	return out
}

type receiverAccumulator struct {
	parent  *Result
	rcv     pathfinder.Receiver
	power   []float64
	sources map[int][]float64
	rays    []Ray
}

func (a *receiverAccumulator) AddPaths(src pathfinder.SourcePoint, paths []*path.PropagationPath) float64 {
	data := a.parent.data
	prob := data.FavourableProbability(RoseIndex(a.rcv.Pos, src.Pos))
	var added float64
	for _, p := range paths {
		att := attenuation.Evaluate(p, data)
		c := Contribution(att, src.Power, src.Li, prob)
		units.AddW(a.power, c)
		if a.parent.opts.KeepBreakdown {
			s, ok := a.sources[src.SourceID]
			if !ok {
				s = make([]float64, len(a.power))
				a.sources[src.SourceID] = s
			}
			units.AddW(s, c)
		}
		if a.parent.opts.KeepRays {
			a.rays = append(a.rays, Ray{Path: p, Attenuation: att})
		}
		for _, v := range c {
			added += v
		}
	}
	return added
}

func (a *receiverAccumulator) Finish() {
	var total float64
	for _, v := range a.power {
		total += v
	}
	if total <= 0 {
		return
	}
	r := a.parent
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.receivers[a.rcv.ID]; ok {
		units.AddW(prev, a.power)
	} else {
		r.receivers[a.rcv.ID] = a.power
	}
	for id, w := range a.sources {
		key := [2]int{a.rcv.ID, id}
		if prev, ok := r.breakdown[key]; ok {
			units.AddW(prev, w)
		} else {
			r.breakdown[key] = w
		}
	}
	if len(a.rays) > 0 {
		r.rays[a.rcv.ID] = append(r.rays[a.rcv.ID], a.rays...)
	}
}
