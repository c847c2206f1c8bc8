package noise

import "math"

// DefaultFrequencies are the nominal octave band centre frequencies in Hz.
var DefaultFrequencies = []int{63, 125, 250, 500, 1000, 2000, 4000, 8000}

// SpeedOfSound in m/s used for wavelengths and wave numbers.
const SpeedOfSound = 340.0

// ExactMidFrequency returns the base-10 exact mid-band frequency of the
// octave band whose nominal centre is nominal, i.e. 1000·10^(3k/10).
func ExactMidFrequency(nominal int) float64 {
	if nominal <= 0 {
		return 0
	}
	k := math.Round(10 * math.Log10(float64(nominal)/1000) / 3)
	return 1000 * math.Pow(10, 3*k/10)
}

// ExactMidFrequencies maps ExactMidFrequency over freqs.
func ExactMidFrequencies(freqs []int) []float64 {
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		out[i] = ExactMidFrequency(f)
	}
	return out
}

// Wavelength returns the wavelength in metres of frequency f.
func Wavelength(f float64) float64 {
	return SpeedOfSound / f
}

// NewSpectrum returns a slice of n bands all set to v.
func NewSpectrum(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}
