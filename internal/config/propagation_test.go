package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyPropagationConfigDefaults(t *testing.T) {
	cfg := EmptyPropagationConfig()

	assert.Equal(t, 15.0, cfg.GetTemperatureC())
	assert.Equal(t, 70.0, cfg.GetHumidityPct())
	assert.Equal(t, 101325.0, cfg.GetPressurePa())
	assert.False(t, cfg.GetPrime2520())
	assert.Len(t, cfg.GetWindRose(), WindRoseSectors)
	assert.Equal(t, []int{63, 125, 250, 500, 1000, 2000, 4000, 8000}, cfg.GetFrequencies())
	assert.Equal(t, 1, cfg.GetReflexionOrder())
	assert.False(t, cfg.GetComputeHorizontalDiffraction())
	assert.True(t, cfg.GetComputeVerticalDiffraction())
	assert.Equal(t, 750.0, cfg.GetMaxSrcDist())
	assert.Equal(t, 50.0, cfg.GetMaxRefDist())
	assert.Equal(t, 0.0, cfg.GetMaximumError())
	assert.Equal(t, 0.0, cfg.GetDefaultGroundG())
	assert.Equal(t, 50000, cfg.GetMirrorReceiverCapacity())
	assert.Equal(t, runtime.NumCPU(), cfg.GetThreadCount())
	assert.False(t, cfg.GetKeepRays())
	assert.Equal(t, "dba", cfg.GetOutputUnits())
	assert.NoError(t, cfg.Validate())
}

func TestGetWindRoseReturnsCopy(t *testing.T) {
	cfg := &PropagationConfig{WindRose: make([]float64, WindRoseSectors)}
	rose := cfg.GetWindRose()
	rose[0] = 1
	assert.Equal(t, 0.0, cfg.WindRose[0])
}

func TestLoadPropagationConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "run.json")

	testJSON := `{
  "temperature_c": 10,
  "humidity_pct": 70,
  "reflexion_order": 2,
  "compute_horizontal_diffraction": true,
  "default_ground_g": 0.5,
  "thread_count": 3,
  "output_units": "db"
}`
	require.NoError(t, os.WriteFile(configPath, []byte(testJSON), 0644))

	cfg, err := LoadPropagationConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.GetTemperatureC())
	assert.Equal(t, 2, cfg.GetReflexionOrder())
	assert.True(t, cfg.GetComputeHorizontalDiffraction())
	assert.Equal(t, 0.5, cfg.GetDefaultGroundG())
	assert.Equal(t, 3, cfg.GetThreadCount())
	assert.Equal(t, "db", cfg.GetOutputUnits())
	// Omitted fields keep defaults
	assert.Equal(t, 750.0, cfg.GetMaxSrcDist())
}

func TestLoadPropagationConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		contents string
	}{
		{"wrong extension", "run.yaml", `{}`},
		{"bad json", "bad.json", `{"temperature_c": `},
		{"invalid humidity", "hum.json", `{"humidity_pct": 120}`},
		{"short wind rose", "rose.json", `{"wind_rose": [0.5, 0.5]}`},
		{"decreasing frequencies", "freq.json", `{"frequencies": [125, 63]}`},
		{"bad units", "units.json", `{"output_units": "mph"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.contents), 0644))
			_, err := LoadPropagationConfig(path)
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPropagationConfig(filepath.Join(tmpDir, "absent.json"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PropagationConfig
		wantErr bool
	}{
		{"empty", PropagationConfig{}, false},
		{"ground g in range", PropagationConfig{DefaultGroundG: ptrFloat64(1)}, false},
		{"ground g too high", PropagationConfig{DefaultGroundG: ptrFloat64(1.5)}, true},
		{"negative reflexion order", PropagationConfig{ReflexionOrder: ptrInt(-1)}, true},
		{"zero max src dist", PropagationConfig{MaxSrcDist: ptrFloat64(0)}, true},
		{"negative pressure", PropagationConfig{PressurePa: ptrFloat64(-1)}, true},
		{"below absolute zero", PropagationConfig{TemperatureC: ptrFloat64(-300)}, true},
		{"negative maximum error", PropagationConfig{MaximumError: ptrFloat64(-0.1)}, true},
		{"negative threads", PropagationConfig{ThreadCount: ptrInt(-2)}, true},
		{"prime2520 set", PropagationConfig{Prime2520: ptrBool(true)}, false},
		{"dba units", PropagationConfig{OutputUnits: ptrString("dba")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, 15.0, cfg.GetTemperatureC())
	assert.Len(t, cfg.GetWindRose(), WindRoseSectors)
	assert.Equal(t, 1, cfg.GetReflexionOrder())
}
