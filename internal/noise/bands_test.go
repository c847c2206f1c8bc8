package noise

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestExactMidFrequency(t *testing.T) {
	tests := []struct {
		nominal int
		want    float64
	}{
		{63, 63.0957},
		{125, 125.8925},
		{250, 251.1886},
		{500, 501.1872},
		{1000, 1000},
		{2000, 1995.2623},
		{4000, 3981.0717},
		{8000, 7943.2823},
		{0, 0},
	}
	for _, tt := range tests {
		got := ExactMidFrequency(tt.nominal)
		if math.Abs(got-tt.want) > 1e-3 {
			t.Errorf("ExactMidFrequency(%d) = %f, want %f", tt.nominal, got, tt.want)
		}
	}
}

func TestExactMidFrequencies(t *testing.T) {
	got := ExactMidFrequencies(DefaultFrequencies)
	if len(got) != len(DefaultFrequencies) {
		t.Fatalf("len = %d, want %d", len(got), len(DefaultFrequencies))
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Errorf("frequencies not increasing at %d: %f <= %f", i, got[i], got[i-1])
		}
	}
}

func TestWavelength(t *testing.T) {
	if got := Wavelength(340); got != 1 {
		t.Errorf("Wavelength(340) = %f, want 1", got)
	}
}

func TestLogStreams(t *testing.T) {
	var ops, diag bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops, Diag: &diag})
	defer SetLogWriters(LogWriters{})

	Opsf("run %s", "started")
	Diagf("skipped %d", 3)
	Tracef("not written")

	// The timestamp comes first; Lmsgprefix keeps the tag next to the message.
	if !strings.Contains(ops.String(), "[noise] run started") {
		t.Errorf("ops stream = %q", ops.String())
	}
	if !strings.Contains(diag.String(), "[noise] skipped 3") {
		t.Errorf("diag stream = %q", diag.String())
	}
}

func TestRunTag(t *testing.T) {
	var ops bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops})
	defer SetLogWriters(LogWriters{})
	defer SetRunTag("")

	SetRunTag("3f2a9c1e")
	Opsf("run started")
	SetRunTag("")
	Opsf("run done")

	lines := strings.Split(strings.TrimSpace(ops.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("ops stream = %q", ops.String())
	}
	if !strings.Contains(lines[0], "[noise 3f2a9c1e] run started") {
		t.Errorf("tagged line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "[noise] run done") {
		t.Errorf("untagged line = %q", lines[1])
	}
}
