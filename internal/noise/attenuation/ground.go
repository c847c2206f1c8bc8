package attenuation

import (
	"math"

	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/noise/path"
)

const (
	// a0 is the inverse of the radius of curvature of favourable rays (1/m).
	a0 = 2e-4
	// minHeight keeps the ground formulas away from zero source/receiver heights.
	minHeight = 1e-6
)

// groundParams are the mean-plane quantities of one segment.
type groundParams struct {
	zs, zr float64
	dp     float64
	gPath  float64
	gPrime float64 // G'path
}

// groundValue is the ground attenuation of one band with its turbulence and
// coherence factors.
type groundValue struct {
	a, w, cf float64
}

// segmentGround derives the ground parameters of s. The G'path correction
// only applies to the segment starting at the source.
func segmentGround(s path.SegmentPath, gs float64, sourceSide bool) groundParams {
	g := groundParams{zs: s.Zs, zr: s.Zr, dp: s.Dp, gPath: s.GPath, gPrime: s.GPath}
	h := 30 * (g.zs + g.zr)
	if sourceSide && h > 0 && g.dp <= h {
		ratio := g.dp / h
		g.gPrime = g.gPath*ratio + gs*(1-ratio)
	}
	return g
}

// turbulence is the factor w of the ground attenuation for ground factor g.
func turbulence(f, g float64) float64 {
	g26 := math.Pow(g, 2.6)
	return 0.0185 * math.Pow(f, 2.5) * g26 /
		(math.Pow(f, 1.5)*g26 + 1.3e3*math.Pow(f, 0.75)*math.Pow(g, 1.3) + 1.16e6)
}

// coherence is the factor Cf of the ground attenuation.
func coherence(dp, w float64) float64 {
	wdp := w * dp
	return dp * (1 + 3*wdp*math.Exp(-math.Sqrt(wdp))) / (1 + wdp)
}

// groundFormula evaluates the ground attenuation for heights zs and zr with
// ground factor gw in the turbulence term.
func groundFormula(f, zs, zr, dp, gw float64) groundValue {
	dp = math.Max(dp, minHeight)
	k := 2 * math.Pi * f / noise.SpeedOfSound
	w := turbulence(f, gw)
	cf := coherence(dp, w)
	root := math.Sqrt(2 * cf / k)
	arg := 4 * k * k / (dp * dp) * (zs*zs - root*zs + cf/k) * (zr*zr - root*zr + cf/k)
	if !(arg > 0) {
		arg = math.SmallestNonzeroFloat64
	}
	return groundValue{a: -10 * math.Log10(arg), w: w, cf: cf}
}

// groundHomogeneous is the ground attenuation in homogeneous conditions.
func groundHomogeneous(f float64, g groundParams) groundValue {
	if g.gPath == 0 {
		return groundValue{a: -3, w: 0, cf: g.dp}
	}
	v := groundFormula(f, g.zs, g.zr, g.dp, g.gPrime)
	v.a = math.Max(v.a, -3*(1-g.gPrime))
	return v
}

// groundFavourable is the ground attenuation in favourable conditions, with
// the source and receiver raised to follow the curved rays.
func groundFavourable(f float64, g groundParams) groundValue {
	sum := math.Max(g.zs+g.zr, minHeight)
	floor := -3 * (1 - g.gPrime)
	if g.dp > 30*sum {
		floor *= 1 + 2*(1-30*sum/g.dp)
	}
	if g.gPath == 0 {
		return groundValue{a: floor, w: 0, cf: g.dp}
	}
	dp2 := g.dp * g.dp
	dzT := 6e-3 * g.dp / sum
	zs := g.zs + a0*math.Pow(g.zs/sum, 2)*dp2/2 + dzT
	zr := g.zr + a0*math.Pow(g.zr/sum, 2)*dp2/2 + dzT
	v := groundFormula(f, zs, zr, g.dp, g.gPath)
	v.a = math.Max(v.a, floor)
	return v
}
