package attenuation

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/noise/path"
	"github.com/banshee-data/noisemap/internal/noise/scene"
)

// Result holds the per-band attenuation terms of one path in dB. For
// diffracted paths AGround, W and Cf describe the source-side segment.
type Result struct {
	Frequencies []int

	AGroundH, AGroundF []float64
	WH, WF             []float64
	CfH, CfF           []float64
	ADifH, ADifF       []float64
	AAtm               []float64
	ADiv               []float64
	ARef               []float64
	ABoundaryH         []float64
	ABoundaryF         []float64
	AGlobalH, AGlobalF []float64
}

func newResult(freqs []int) *Result {
	n := len(freqs)
	return &Result{
		Frequencies: append([]int(nil), freqs...),
		AGroundH:    make([]float64, n),
		AGroundF:    make([]float64, n),
		WH:          make([]float64, n),
		WF:          make([]float64, n),
		CfH:         make([]float64, n),
		CfF:         make([]float64, n),
		ADifH:       make([]float64, n),
		ADifF:       make([]float64, n),
		AAtm:        make([]float64, n),
		ADiv:        make([]float64, n),
		ARef:        make([]float64, n),
		ABoundaryH:  make([]float64, n),
		ABoundaryF:  make([]float64, n),
		AGlobalH:    make([]float64, n),
		AGlobalF:    make([]float64, n),
	}
}

func (r *Result) terms() [][]float64 {
	return [][]float64{
		r.AGroundH, r.AGroundF, r.WH, r.WF, r.CfH, r.CfF, r.ADifH, r.ADifF,
		r.AAtm, r.ADiv, r.ARef, r.ABoundaryH, r.ABoundaryF, r.AGlobalH, r.AGlobalF,
	}
}

// Finite reports whether every term is a finite number.
func (r *Result) Finite() bool {
	for _, t := range r.terms() {
		for _, v := range t {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// sanitize zeroes non-finite terms and returns how many it replaced.
func (r *Result) sanitize() int {
	n := 0
	for _, t := range r.terms() {
		for i, v := range t {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t[i] = 0
				n++
			}
		}
	}
	return n
}

var nonFiniteTerms atomic.Int64

// NonFiniteTerms returns the number of NaN or infinite terms Evaluate has
// zeroed since the process started. Any non-zero value is a bug in one of
// the attenuation formulas.
func NonFiniteTerms() int64 {
	return nonFiniteTerms.Load()
}

// Evaluate computes the attenuation of p, which must have been initialised
// with PropagationPath.Init. Neither argument is modified.
func Evaluate(p *path.PropagationPath, data *PathData) *Result {
	r := evaluate(p, data)
	if n := r.sanitize(); n > 0 {
		nonFiniteTerms.Add(int64(n))
		noise.Diagf("attenuation: zeroed %d non-finite terms of a %s path with %d points", n, p.Kind, len(p.Points))
	}
	return r
}

func evaluate(p *path.PropagationPath, data *PathData) *Result {
	r := newResult(data.Frequencies)
	if len(p.Points) < 2 {
		return r
	}

	var vEdges, hEdges []r2.Vec
	for _, pt := range p.Points {
		switch pt.Role {
		case path.RoleDiffractionV:
			vEdges = append(vEdges, unfold(pt))
		case path.RoleDiffractionH:
			hEdges = append(hEdges, unfold(pt))
		}
	}

	d := propagationDistance(p, len(hEdges) > 0)
	aDiv := 20*math.Log10(math.Max(d, 1)) + 11
	for i := range data.Frequencies {
		r.ADiv[i] = aDiv
		r.AAtm[i] = data.alphaAt(i) * d / 1000
	}
	reflectionLoss(p, r.ARef)

	switch {
	case len(vEdges) > 0 && len(p.Segments) > 0:
		evaluateVertical(p, vEdges, data, r)
	case len(hEdges) > 0:
		evaluateLateral(p, hEdges, data, r)
	default:
		evaluateGround(p, data, r)
	}

	for i := range data.Frequencies {
		r.AGlobalH[i] = r.ADiv[i] + r.AAtm[i] + r.ABoundaryH[i] + r.ARef[i]
		r.AGlobalF[i] = r.ADiv[i] + r.AAtm[i] + r.ABoundaryF[i] + r.ARef[i]
	}
	return r
}

// unfold maps a point to the vertical plane of the unfolded path.
func unfold(pt path.PointPath) r2.Vec {
	return r2.Vec{X: pt.Abscissa, Y: pt.Pos.Z}
}

// propagationDistance is the distance used by divergence and atmospheric
// absorption: the unfolded source-receiver distance, or the straight one for
// paths around vertical edges.
func propagationDistance(p *path.PropagationPath, lateral bool) float64 {
	if lateral {
		return p.DirectDistance()
	}
	src, rcv := p.Source(), p.Receiver()
	return math.Hypot(rcv.Abscissa-src.Abscissa, rcv.Pos.Z-src.Pos.Z)
}

// reflectionLoss accumulates the absorption of every reflecting wall.
func reflectionLoss(p *path.PropagationPath, out []float64) {
	for _, pt := range p.Points {
		if pt.Role != path.RoleReflection {
			continue
		}
		for i := range out {
			alpha := scene.AlphaAt(pt.Absorption, i)
			out[i] += -10 * math.Log10(1-alpha)
		}
	}
}

// directSegment returns the ground segment of an undiffracted path, deriving
// one from the end points when the path carries none.
func directSegment(p *path.PropagationPath, gs float64) path.SegmentPath {
	if len(p.Segments) > 0 {
		return p.Segments[0]
	}
	src, rcv := p.Source(), p.Receiver()
	return path.SegmentPath{
		First: 0,
		Last:  len(p.Points) - 1,
		GPath: gs,
		Zs:    math.Max(0, src.Pos.Z-src.GroundZ),
		Zr:    math.Max(0, rcv.Pos.Z-rcv.GroundZ),
		Dp:    rcv.Abscissa - src.Abscissa,
	}
}

func evaluateGround(p *path.PropagationPath, data *PathData, r *Result) {
	g := segmentGround(directSegment(p, data.Gs), data.Gs, true)
	for i, f := range data.Frequencies {
		h := groundHomogeneous(float64(f), g)
		fv := groundFavourable(float64(f), g)
		r.AGroundH[i], r.WH[i], r.CfH[i] = h.a, h.w, h.cf
		r.AGroundF[i], r.WF[i], r.CfF[i] = fv.a, fv.w, fv.cf
		r.ABoundaryH[i] = h.a
		r.ABoundaryF[i] = fv.a
	}
}

// evaluateLateral handles paths around vertical edges. The homogeneous
// values are used for both conditions.
func evaluateLateral(p *path.PropagationPath, edges []r2.Vec, data *PathData, r *Result) {
	g := segmentGround(directSegment(p, data.Gs), data.Gs, true)
	delta := p.UnfoldedLength() - p.DirectDistance()
	e := edgeSpan(edges)
	for i, f := range data.Frequencies {
		lambda := noise.Wavelength(float64(f))
		dif := DeltaDiffraction(delta, lambda, edgeFactor(lambda, e, len(edges)))
		h := groundHomogeneous(float64(f), g)
		r.AGroundH[i], r.WH[i], r.CfH[i] = h.a, h.w, h.cf
		r.AGroundF[i], r.WF[i], r.CfF[i] = h.a, h.w, h.cf
		r.ADifH[i], r.ADifF[i] = dif, dif
		r.ABoundaryH[i] = h.a + dif
		r.ABoundaryF[i] = h.a + dif
	}
}

// evaluateVertical handles paths over horizontal edges. The ground effect on
// each side of the obstacle is folded into the diffraction term through the
// image source and receiver.
func evaluateVertical(p *path.PropagationPath, edges []r2.Vec, data *PathData, r *Result) {
	segSO := p.Segments[0]
	segOR := p.Segments[len(p.Segments)-1]
	gso := segmentGround(segSO, data.Gs, true)
	gor := segmentGround(segOR, data.Gs, false)

	s := unfold(p.Source())
	rc := unfold(p.Receiver())
	e := edgeSpan(edges)
	bent := curved(math.Max(1000, 8*straight(s, rc)))

	type deltas struct{ sr, spr, srp float64 }
	diff := func(length lengthFunc) deltas {
		return deltas{
			sr:  pathDifference(s, edges, rc, length),
			spr: pathDifference(segSO.SPrime, edges, rc, length),
			srp: pathDifference(s, edges, segOR.RPrime, length),
		}
	}
	hom, fav := diff(straight), diff(bent)

	for i, f := range data.Frequencies {
		freq := float64(f)
		lambda := noise.Wavelength(freq)
		cpp := edgeFactor(lambda, e, len(edges))
		dif := func(delta float64) float64 { return DeltaDiffraction(delta, lambda, cpp) }

		hSO, hOR := groundHomogeneous(freq, gso), groundHomogeneous(freq, gor)
		base := dif(hom.sr)
		r.ADifH[i] = base +
			groundCorrection(hSO.a, dif(hom.spr)-base) +
			groundCorrection(hOR.a, dif(hom.srp)-base)

		fSO, fOR := groundFavourable(freq, gso), groundFavourable(freq, gor)
		base = dif(fav.sr)
		r.ADifF[i] = base +
			groundCorrection(fSO.a, dif(fav.spr)-base) +
			groundCorrection(fOR.a, dif(fav.srp)-base)

		r.AGroundH[i], r.WH[i], r.CfH[i] = hSO.a, hSO.w, hSO.cf
		r.AGroundF[i], r.WF[i], r.CfF[i] = fSO.a, fSO.w, fSO.cf
		r.ABoundaryH[i] = r.ADifH[i]
		r.ABoundaryF[i] = r.ADifF[i]
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
