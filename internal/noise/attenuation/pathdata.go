// Package attenuation evaluates the per-band attenuation of a propagation
// path under homogeneous (H) and favourable (F) propagation conditions.
//
// Evaluate is a pure function of the path and the physical parameters, so it
// is safe to call from any number of goroutines sharing one PathData.
package attenuation

import (
	"math"

	"github.com/banshee-data/noisemap/internal/config"
	"github.com/banshee-data/noisemap/internal/noise"
)

// ISO 9613-1 reference conditions.
const (
	tripleWaterK = 273.16
	referenceK   = 293.15
	referencePa  = 101325.0
)

// PathData holds the physical parameters shared by every path of a run and
// the atmospheric absorption derived from them.
type PathData struct {
	Temperature float64 // °C
	Humidity    float64 // relative, %
	Pressure    float64 // Pa
	Prime2520   bool    // absorption at nominal instead of exact mid-band frequencies
	WindRose    []float64
	Frequencies []int
	Gs          float64 // ground factor of the source area

	alpha []float64 // dB/km per band
}

// NewPathData builds the parameters from a propagation configuration; unset
// values take their defaults.
func NewPathData(cfg *config.PropagationConfig) *PathData {
	if cfg == nil {
		cfg = config.EmptyPropagationConfig()
	}
	d := &PathData{
		Temperature: cfg.GetTemperatureC(),
		Humidity:    cfg.GetHumidityPct(),
		Pressure:    cfg.GetPressurePa(),
		Prime2520:   cfg.GetPrime2520(),
		WindRose:    append([]float64(nil), cfg.GetWindRose()...),
		Frequencies: append([]int(nil), cfg.GetFrequencies()...),
		Gs:          cfg.GetDefaultGroundG(),
	}
	d.alpha = make([]float64, len(d.Frequencies))
	for i, f := range d.Frequencies {
		freq := noise.ExactMidFrequency(f)
		if d.Prime2520 {
			freq = float64(f)
		}
		d.alpha[i] = AtmosphericAbsorption(freq, d.Temperature, d.Humidity, d.Pressure)
	}
	return d
}

// DefaultPathData returns the parameters of an empty configuration.
func DefaultPathData() *PathData {
	return NewPathData(nil)
}

// Bands is the number of frequency bands.
func (d *PathData) Bands() int { return len(d.Frequencies) }

// Alpha returns a copy of the atmospheric absorption coefficients in dB/km.
func (d *PathData) Alpha() []float64 {
	return append([]float64(nil), d.alpha...)
}

// FavourableProbability returns the probability of favourable conditions in
// rose sector i, or 0.5 when the rose does not cover it.
func (d *PathData) FavourableProbability(i int) float64 {
	if i < 0 || i >= len(d.WindRose) {
		return 0.5
	}
	return d.WindRose[i]
}

// AtmosphericAbsorption returns the ISO 9613-1 pure-tone absorption
// coefficient in dB/km at frequency f (Hz).
func AtmosphericAbsorption(f, temperatureC, humidityPct, pressurePa float64) float64 {
	t := temperatureC + 273.15
	prat := pressurePa / referencePa
	trat := t / referenceK
	psat := referencePa * math.Pow(10, -6.8346*math.Pow(tripleWaterK/t, 1.261)+4.6151)
	h := humidityPct * psat / pressurePa

	frO := prat * (24 + 4.04e4*h*(0.02+h)/(0.391+h))
	frN := prat / math.Sqrt(trat) * (9 + 280*h*math.Exp(-4.170*(math.Pow(trat, -1.0/3)-1)))

	f2 := f * f
	a := 8.686 * f2 * (1.84e-11/prat*math.Sqrt(trat) +
		math.Pow(trat, -2.5)*(0.01275*math.Exp(-2239.1/t)/(frO+f2/frO)+0.1068*math.Exp(-3352/t)/(frN+f2/frN)))
	return finite(a * 1000)
}

func (d *PathData) alphaAt(i int) float64 {
	if i < len(d.alpha) {
		return d.alpha[i]
	}
	return 0
}
