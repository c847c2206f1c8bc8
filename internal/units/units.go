// Package units provides level conversions and output unit validation for
// acoustic spectra.
package units

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Output unit constants
const (
	DB  = "db"
	DBA = "dba"
)

// ValidUnits contains all valid output unit values
var ValidUnits = []string{DB, DBA}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "db, dba"
}

// AWeighting holds the A-weighting correction in dB per nominal octave band.
var AWeighting = map[int]float64{
	63:   -26.2,
	125:  -16.1,
	250:  -8.6,
	500:  -3.2,
	1000: 0,
	2000: 1.2,
	4000: 1.0,
	8000: -1.1,
}

// DBToW converts a level in dB to an energetic quantity.
func DBToW(db float64) float64 {
	return math.Pow(10, db/10)
}

// WToDB converts an energetic quantity to dB. Zero maps to -Inf.
func WToDB(w float64) float64 {
	return 10 * math.Log10(w)
}

// DBToWSlice applies DBToW per band into a new slice.
func DBToWSlice(db []float64) []float64 {
	out := make([]float64, len(db))
	for i, v := range db {
		out[i] = DBToW(v)
	}
	return out
}

// WToDBSlice applies WToDB per band into a new slice.
func WToDBSlice(w []float64) []float64 {
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = WToDB(v)
	}
	return out
}

// SumDB returns the energetic sum of levels expressed in dB.
func SumDB(levels ...float64) float64 {
	if len(levels) == 0 {
		return math.Inf(-1)
	}
	return WToDB(floats.Sum(DBToWSlice(levels)))
}

// AddW accumulates src into dst band by band. dst must be at least as long
// as src.
func AddW(dst, src []float64) {
	floats.Add(dst[:len(src)], src)
}

// ConvertSpectrum converts a per-band dB spectrum to the target unit. For
// DBA the A-weighting of freqs is added per band; unknown frequencies keep
// their unweighted value.
func ConvertSpectrum(levels []float64, freqs []int, targetUnits string) []float64 {
	out := append([]float64(nil), levels...)
	if targetUnits != DBA {
		return out
	}
	for i := range out {
		if i < len(freqs) {
			out[i] += AWeighting[freqs[i]]
		}
	}
	return out
}

// Global returns the energetic sum of a spectrum in the target unit.
func Global(levels []float64, freqs []int, targetUnits string) float64 {
	return SumDB(ConvertSpectrum(levels, freqs, targetUnits)...)
}
