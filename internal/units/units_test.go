package units

import (
	"math"
	"testing"
)

func TestDBToWRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		db   float64
	}{
		{"zero", 0},
		{"typical road", 93},
		{"negative", -12.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WToDB(DBToW(tt.db))
			if math.Abs(result-tt.db) > 1e-9 {
				t.Errorf("WToDB(DBToW(%f)) = %f", tt.db, result)
			}
		})
	}
}

func TestSumDB(t *testing.T) {
	tests := []struct {
		name     string
		levels   []float64
		expected float64
	}{
		{"two equal sources add 3 dB", []float64{60, 60}, 63.0103},
		{"ten equal sources add 10 dB", []float64{50, 50, 50, 50, 50, 50, 50, 50, 50, 50}, 60},
		{"dominant source", []float64{80, 60}, 80.0432},
		{"single", []float64{42}, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SumDB(tt.levels...)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("SumDB(%v) = %f, want %f", tt.levels, result, tt.expected)
			}
		})
	}

	if !math.IsInf(SumDB(), -1) {
		t.Error("SumDB() of nothing should be -Inf")
	}
}

func TestAddW(t *testing.T) {
	dst := []float64{1, 2, 3}
	AddW(dst, []float64{1, 1, 1})
	want := []float64{2, 3, 4}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %f, want %f", i, dst[i], want[i])
		}
	}
}

func TestConvertSpectrum(t *testing.T) {
	freqs := []int{63, 1000, 2000}
	levels := []float64{80, 80, 80}

	dba := ConvertSpectrum(levels, freqs, DBA)
	want := []float64{53.8, 80, 81.2}
	for i := range want {
		if math.Abs(dba[i]-want[i]) > 1e-9 {
			t.Errorf("dba[%d] = %f, want %f", i, dba[i], want[i])
		}
	}

	db := ConvertSpectrum(levels, freqs, DB)
	for i := range db {
		if db[i] != levels[i] {
			t.Errorf("db[%d] = %f, want %f", i, db[i], levels[i])
		}
	}
	if &db[0] == &levels[0] {
		t.Error("ConvertSpectrum must not alias its input")
	}
}

func TestGlobal(t *testing.T) {
	got := Global([]float64{60, 60}, []int{1000, 1000}, DBA)
	if math.Abs(got-63.0103) > 0.001 {
		t.Errorf("Global = %f", got)
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid db", DB, true},
		{"valid dba", DBA, true},
		{"invalid unit", "invalid", false},
		{"empty string", "", false},
		{"case sensitive", "dBA", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}
