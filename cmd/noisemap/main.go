// Command noisemap computes receiver noise levels for a GeoJSON scene and
// writes them back as GeoJSON points.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/banshee-data/noisemap/internal/config"
	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/noise/aggregate"
	"github.com/banshee-data/noisemap/internal/noise/attenuation"
	"github.com/banshee-data/noisemap/internal/noise/pathfinder"
	"github.com/banshee-data/noisemap/internal/noise/pathstore"
	"github.com/banshee-data/noisemap/internal/noise/report"
	"github.com/banshee-data/noisemap/internal/noise/sceneio"
	"github.com/banshee-data/noisemap/internal/units"
	"github.com/banshee-data/noisemap/internal/version"
)

var (
	configFile = flag.String("config", "", "Propagation config JSON (defaults apply when empty)")
	sceneFile  = flag.String("scene", "", "Input scene GeoJSON")
	outFile    = flag.String("out", "levels.geojson", "Output receiver levels GeoJSON, - for stdout")
	threads    = flag.Int("threads", -1, "Worker count, 0 for one per CPU (overrides config when >= 0)")
	outUnits   = flag.String("units", "", "Output units: "+units.GetValidUnitsString()+" (overrides config)")
	pathsDB    = flag.String("paths-db", "", "SQLite file to record every propagation path")
	htmlFile   = flag.String("html", "", "Optional HTML chart of receiver spectra")
	raysFile   = flag.String("rays", "", "Optional GeoJSON of every propagation path (default <out>.rays.geojson when keep_rays is set)")
	verbose    = flag.Bool("v", false, "Enable diagnostic logging")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

type options struct {
	ConfigFile string
	SceneFile  string
	OutFile    string
	Threads    int
	Units      string
	PathsDB    string
	HTMLFile   string
	RaysFile   string
}

func main() {
	flag.Parse()
	if *showVer {
		fmt.Println(version.String("noisemap"))
		return
	}
	if *sceneFile == "" {
		log.Fatal("-scene is required")
	}

	w := noise.LogWriters{Ops: os.Stderr}
	if *verbose {
		w.Diag = os.Stderr
	}
	noise.SetLogWriters(w)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, options{
		ConfigFile: *configFile,
		SceneFile:  *sceneFile,
		OutFile:    *outFile,
		Threads:    *threads,
		Units:      *outUnits,
		PathsDB:    *pathsDB,
		HTMLFile:   *htmlFile,
		RaysFile:   *raysFile,
	})
	if err != nil {
		log.Fatalf("noisemap: %v", err)
	}
}

func loadConfig(o options) (*config.PropagationConfig, error) {
	cfg := config.EmptyPropagationConfig()
	if o.ConfigFile != "" {
		var err error
		if cfg, err = config.LoadPropagationConfig(o.ConfigFile); err != nil {
			return nil, err
		}
	}
	if o.Threads >= 0 {
		cfg.ThreadCount = &o.Threads
	}
	if o.Units != "" {
		cfg.OutputUnits = &o.Units
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, o options) (err error) {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	data, err := sceneio.LoadFile(o.SceneFile, cfg)
	if err != nil {
		return err
	}

	raysFile := o.RaysFile
	if raysFile == "" && cfg.GetKeepRays() && o.OutFile != "-" {
		raysFile = strings.TrimSuffix(o.OutFile, filepath.Ext(o.OutFile)) + ".rays.geojson"
	}

	pd := attenuation.NewPathData(cfg)
	res := aggregate.New(pd, aggregate.Options{Units: cfg.GetOutputUnits(), KeepRays: raysFile != ""})

	var visitor pathfinder.Visitor = res
	var rec *pathstore.Recorder
	if o.PathsDB != "" {
		var store *pathstore.Store
		if store, err = pathstore.Open(o.PathsDB); err != nil {
			return fmt.Errorf("open paths db: %w", err)
		}
		defer store.Close()
		var runID string
		if runID, err = store.CreateRun(filepath.Base(o.SceneFile), cfg); err != nil {
			return err
		}
		noise.SetRunTag(runID[:8])
		defer noise.SetRunTag("")
		rec = store.Recorder(runID, res)
		visitor = rec
		// Interrupted or failed runs stay incomplete.
		defer func() {
			if err != nil {
				noise.Opsf("run %s left incomplete: %v", runID, err)
				return
			}
			if cerr := store.CompleteRun(runID); cerr != nil {
				log.Printf("failed to complete run %s: %v", runID, cerr)
			}
		}()
	}

	runErr := data.Run(ctx, visitor)
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	if rec != nil {
		if err := rec.Err(); err != nil {
			return fmt.Errorf("record paths: %w", err)
		}
	}

	levels := res.ReceiverLevels()
	if err := writeFile(o.OutFile, func(w io.Writer) error {
		return sceneio.WriteLevels(w, data.Receivers, levels, pd.Frequencies, cfg.GetOutputUnits())
	}); err != nil {
		return err
	}
	if runErr != nil {
		noise.Opsf("run interrupted: wrote %d of %d receiver levels to %s", len(levels), len(data.Receivers), o.OutFile)
		return runErr
	}
	noise.Opsf("run complete: %d receiver levels to %s", len(levels), o.OutFile)

	if raysFile != "" {
		if err := writeFile(raysFile, func(w io.Writer) error {
			return sceneio.WriteRays(w, res.Rays(), pd.Frequencies)
		}); err != nil {
			return err
		}
	}
	if o.HTMLFile != "" {
		title := "Receiver spectra " + filepath.Base(o.SceneFile)
		if err := writeFile(o.HTMLFile, func(w io.Writer) error {
			return report.WriteSpectra(w, title, levels, pd.Frequencies, cfg.GetOutputUnits())
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(name string, write func(w io.Writer) error) error {
	if name == "-" {
		return write(os.Stdout)
	}
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}
