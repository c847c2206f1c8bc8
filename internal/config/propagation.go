package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/units"
)

// DefaultConfigPath is the path to the canonical propagation defaults file.
const DefaultConfigPath = "config/propagation.defaults.json"

// WindRoseSectors is the number of angular sectors of a wind rose.
const WindRoseSectors = 16

// PropagationConfig is the root configuration of a propagation run. Every
// field is optional; the Get* methods supply defaults for omitted values so
// partial documents are safe.
type PropagationConfig struct {
	// Atmosphere
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	HumidityPct  *float64 `json:"humidity_pct,omitempty"`
	PressurePa   *float64 `json:"pressure_pa,omitempty"`
	Prime2520    *bool    `json:"prime2520,omitempty"`

	// Favourable condition probability per sector, 16 sectors clockwise from north
	WindRose    []float64 `json:"wind_rose,omitempty"`
	Frequencies []int     `json:"frequencies,omitempty"`

	// Path finder
	ReflexionOrder               *int     `json:"reflexion_order,omitempty"`
	ComputeHorizontalDiffraction *bool    `json:"compute_horizontal_diffraction,omitempty"`
	ComputeVerticalDiffraction   *bool    `json:"compute_vertical_diffraction,omitempty"`
	MaxSrcDist                   *float64 `json:"max_src_dist,omitempty"`
	MaxRefDist                   *float64 `json:"max_ref_dist,omitempty"`
	MaximumError                 *float64 `json:"maximum_error,omitempty"`
	DefaultGroundG               *float64 `json:"default_ground_g,omitempty"`
	MirrorReceiverCapacity       *int     `json:"mirror_receiver_capacity,omitempty"`
	ThreadCount                  *int     `json:"thread_count,omitempty"`
	KeepRays                     *bool    `json:"keep_rays,omitempty"`

	// Output
	OutputUnits *string `json:"output_units,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyPropagationConfig returns a PropagationConfig with all fields unset.
func EmptyPropagationConfig() *PropagationConfig {
	return &PropagationConfig{}
}

// LoadPropagationConfig loads a PropagationConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadPropagationConfig(path string) (*PropagationConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPropagationConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *PropagationConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/noise/<pkg>/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadPropagationConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *PropagationConfig) Validate() error {
	if c.HumidityPct != nil {
		if *c.HumidityPct < 0 || *c.HumidityPct > 100 {
			return fmt.Errorf("humidity_pct must be between 0 and 100, got %f", *c.HumidityPct)
		}
	}
	if c.PressurePa != nil && *c.PressurePa <= 0 {
		return fmt.Errorf("pressure_pa must be positive, got %f", *c.PressurePa)
	}
	if c.TemperatureC != nil && *c.TemperatureC <= -273.15 {
		return fmt.Errorf("temperature_c must be above absolute zero, got %f", *c.TemperatureC)
	}

	if c.WindRose != nil {
		if len(c.WindRose) != WindRoseSectors {
			return fmt.Errorf("wind_rose must have %d sectors, got %d", WindRoseSectors, len(c.WindRose))
		}
		for i, p := range c.WindRose {
			if math.IsNaN(p) || p < 0 || p > 1 {
				return fmt.Errorf("wind_rose[%d] must be between 0 and 1, got %f", i, p)
			}
		}
	}

	for i, f := range c.Frequencies {
		if f <= 0 {
			return fmt.Errorf("frequencies[%d] must be positive, got %d", i, f)
		}
		if i > 0 && f <= c.Frequencies[i-1] {
			return fmt.Errorf("frequencies must be strictly increasing at index %d", i)
		}
	}

	if c.ReflexionOrder != nil && *c.ReflexionOrder < 0 {
		return fmt.Errorf("reflexion_order must be non-negative, got %d", *c.ReflexionOrder)
	}
	if c.MaxSrcDist != nil && *c.MaxSrcDist <= 0 {
		return fmt.Errorf("max_src_dist must be positive, got %f", *c.MaxSrcDist)
	}
	if c.MaxRefDist != nil && *c.MaxRefDist < 0 {
		return fmt.Errorf("max_ref_dist must be non-negative, got %f", *c.MaxRefDist)
	}
	if c.MaximumError != nil && *c.MaximumError < 0 {
		return fmt.Errorf("maximum_error must be non-negative, got %f", *c.MaximumError)
	}
	if c.DefaultGroundG != nil {
		if *c.DefaultGroundG < 0 || *c.DefaultGroundG > 1 {
			return fmt.Errorf("default_ground_g must be between 0 and 1, got %f", *c.DefaultGroundG)
		}
	}
	if c.MirrorReceiverCapacity != nil && *c.MirrorReceiverCapacity < 0 {
		return fmt.Errorf("mirror_receiver_capacity must be non-negative, got %d", *c.MirrorReceiverCapacity)
	}
	if c.ThreadCount != nil && *c.ThreadCount < 0 {
		return fmt.Errorf("thread_count must be non-negative, got %d", *c.ThreadCount)
	}
	if c.OutputUnits != nil && !units.IsValid(*c.OutputUnits) {
		return fmt.Errorf("invalid output_units %q, must be one of: %s", *c.OutputUnits, units.GetValidUnitsString())
	}

	return nil
}

// GetTemperatureC returns the temperature_c value or the default.
func (c *PropagationConfig) GetTemperatureC() float64 {
	if c.TemperatureC == nil {
		return 15
	}
	return *c.TemperatureC
}

// GetHumidityPct returns the humidity_pct value or the default.
func (c *PropagationConfig) GetHumidityPct() float64 {
	if c.HumidityPct == nil {
		return 70
	}
	return *c.HumidityPct
}

// GetPressurePa returns the pressure_pa value or the default.
func (c *PropagationConfig) GetPressurePa() float64 {
	if c.PressurePa == nil {
		return 101325
	}
	return *c.PressurePa
}

// GetPrime2520 returns the prime2520 value or the default.
func (c *PropagationConfig) GetPrime2520() bool {
	if c.Prime2520 == nil {
		return false
	}
	return *c.Prime2520
}

// GetWindRose returns a copy of the wind rose or the default of 0.5 in every sector.
func (c *PropagationConfig) GetWindRose() []float64 {
	if c.WindRose == nil {
		return noise.NewSpectrum(WindRoseSectors, 0.5)
	}
	return append([]float64(nil), c.WindRose...)
}

// GetFrequencies returns a copy of the band list or the octave bands 63..8000 Hz.
func (c *PropagationConfig) GetFrequencies() []int {
	if len(c.Frequencies) == 0 {
		return append([]int(nil), noise.DefaultFrequencies...)
	}
	return append([]int(nil), c.Frequencies...)
}

// GetReflexionOrder returns the reflexion_order value or the default.
func (c *PropagationConfig) GetReflexionOrder() int {
	if c.ReflexionOrder == nil {
		return 1
	}
	return *c.ReflexionOrder
}

// GetComputeHorizontalDiffraction returns the compute_horizontal_diffraction value or the default.
func (c *PropagationConfig) GetComputeHorizontalDiffraction() bool {
	if c.ComputeHorizontalDiffraction == nil {
		return false
	}
	return *c.ComputeHorizontalDiffraction
}

// GetComputeVerticalDiffraction returns the compute_vertical_diffraction value or the default.
func (c *PropagationConfig) GetComputeVerticalDiffraction() bool {
	if c.ComputeVerticalDiffraction == nil {
		return true
	}
	return *c.ComputeVerticalDiffraction
}

// GetMaxSrcDist returns the max_src_dist value or the default.
func (c *PropagationConfig) GetMaxSrcDist() float64 {
	if c.MaxSrcDist == nil {
		return 750
	}
	return *c.MaxSrcDist
}

// GetMaxRefDist returns the max_ref_dist value or the default.
func (c *PropagationConfig) GetMaxRefDist() float64 {
	if c.MaxRefDist == nil {
		return 50
	}
	return *c.MaxRefDist
}

// GetMaximumError returns the maximum_error value or the default (0, disabled).
func (c *PropagationConfig) GetMaximumError() float64 {
	if c.MaximumError == nil {
		return 0
	}
	return *c.MaximumError
}

// GetDefaultGroundG returns the default_ground_g value or the default.
func (c *PropagationConfig) GetDefaultGroundG() float64 {
	if c.DefaultGroundG == nil {
		return 0
	}
	return *c.DefaultGroundG
}

// GetMirrorReceiverCapacity returns the mirror_receiver_capacity value or the default.
func (c *PropagationConfig) GetMirrorReceiverCapacity() int {
	if c.MirrorReceiverCapacity == nil {
		return 50000
	}
	return *c.MirrorReceiverCapacity
}

// GetThreadCount returns the thread_count value; 0 or unset means one
// worker per CPU.
func (c *PropagationConfig) GetThreadCount() int {
	if c.ThreadCount == nil || *c.ThreadCount == 0 {
		return runtime.NumCPU()
	}
	return *c.ThreadCount
}

// GetKeepRays returns the keep_rays value or the default.
func (c *PropagationConfig) GetKeepRays() bool {
	if c.KeepRays == nil {
		return false
	}
	return *c.KeepRays
}

// GetOutputUnits returns the output_units value or the default.
func (c *PropagationConfig) GetOutputUnits() string {
	if c.OutputUnits == nil {
		return units.DBA
	}
	return *c.OutputUnits
}
