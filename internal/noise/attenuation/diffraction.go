package attenuation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// MaxDiffraction caps the diffraction attenuation of one band.
const MaxDiffraction = 25.0

// DeltaDiffraction returns the diffraction attenuation for path difference
// delta at wavelength lambda with multiple-edge factor cpp.
func DeltaDiffraction(delta, lambda, cpp float64) float64 {
	x := 40 / lambda * cpp * delta
	if !(x >= -2) {
		return 0
	}
	return math.Min(MaxDiffraction, 10*math.Log10(3+x))
}

// edgeFactor is C'', 1 for a single edge. e is the distance between the
// first and last diffraction edges.
func edgeFactor(lambda, e float64, edges int) float64 {
	if edges < 2 || e <= 0 {
		return 1
	}
	q := math.Pow(5*lambda/e, 2)
	return (1 + q) / (1.0/3 + q)
}

// groundCorrection folds the ground attenuation ag of one side of the
// obstacle into the diffraction, given the gain of the image path over the
// direct one.
func groundCorrection(ag, imageGain float64) float64 {
	arg := 1 + (math.Pow(10, -ag/20)-1)*math.Pow(10, -imageGain/20)
	if !(arg > 0) {
		arg = math.SmallestNonzeroFloat64
	}
	return -20 * math.Log10(arg)
}

// lengthFunc measures a leg of a diffracted path.
type lengthFunc func(a, b r2.Vec) float64

func straight(a, b r2.Vec) float64 { return r2.Norm(r2.Sub(b, a)) }

// curved measures legs along circular arcs of radius gamma.
func curved(gamma float64) lengthFunc {
	return func(a, b r2.Vec) float64 {
		c := r2.Norm(r2.Sub(b, a))
		return 2 * gamma * math.Asin(math.Min(1, c/(2*gamma)))
	}
}

// pathDifference is the length of the path from a over every edge to b,
// minus the length from a to b.
func pathDifference(a r2.Vec, edges []r2.Vec, b r2.Vec, length lengthFunc) float64 {
	if len(edges) == 0 {
		return 0
	}
	l := length(a, edges[0])
	for i := 1; i < len(edges); i++ {
		l += length(edges[i-1], edges[i])
	}
	l += length(edges[len(edges)-1], b)
	return l - length(a, b)
}

// edgeSpan is the distance along the edges from the first to the last.
func edgeSpan(edges []r2.Vec) float64 {
	var e float64
	for i := 1; i < len(edges); i++ {
		e += straight(edges[i-1], edges[i])
	}
	return e
}
