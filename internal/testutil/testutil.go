// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/banshee-data/noisemap/internal/noise/scene"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertSpectrum checks that got matches want band by band within
// tolerance. Two infinities of the same sign match.
func AssertSpectrum(t testing.TB, got, want []float64, tolerance float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("spectrum has %d bands, want %d", len(got), len(want))
	}
	for i := range want {
		if math.IsInf(want[i], 0) && got[i] == want[i] {
			continue
		}
		if math.IsNaN(got[i]) || math.Abs(got[i]-want[i]) > tolerance {
			t.Errorf("band %d = %.4f, want %.4f (±%g)", i, got[i], want[i], tolerance)
		}
	}
}

// Uniform returns a spectrum of n bands all equal to v.
func Uniform(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Square returns the axis-aligned polygon of the given corners.
func Square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

// Scene builds and freezes a scene, failing the test on error.
func Scene(t testing.TB, fill func(b *scene.Builder)) *scene.Scene {
	t.Helper()
	b := scene.NewBuilder()
	if fill != nil {
		fill(b)
	}
	sc, err := b.Finish()
	AssertNoError(t, err)
	return sc
}

// WriteFile writes content to name inside a per-test temporary directory
// and returns its path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	AssertNoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}
