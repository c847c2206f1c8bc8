// Command profile-plot draws the vertical profile between one source and
// one receiver of a scene together with the propagation paths found
// between them.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/config"
	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/noise/attenuation"
	"github.com/banshee-data/noisemap/internal/noise/geom"
	"github.com/banshee-data/noisemap/internal/noise/pathfinder"
	"github.com/banshee-data/noisemap/internal/noise/report"
	"github.com/banshee-data/noisemap/internal/noise/sceneio"
)

// parseVec parses "x,y,z" into a vector; z is relative to the ground.
func parseVec(s string) (r3.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vec{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		v[i] = f
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

func main() {
	sceneFile := flag.String("scene", "", "Input scene GeoJSON")
	configFile := flag.String("config", "", "Propagation config JSON")
	src := flag.String("src", "", "Source position x,y,z (z above ground)")
	rcv := flag.String("rcv", "", "Receiver position x,y,z (z above ground)")
	output := flag.String("output", "profile.png", "Output PNG file")
	flag.Parse()

	noise.SetLogWriters(noise.LogWriters{Ops: os.Stderr, Diag: os.Stderr})
	if err := plotProfile(*sceneFile, *configFile, *src, *rcv, *output); err != nil {
		log.Fatalf("profile-plot: %v", err)
	}
	log.Printf("wrote %s", *output)
}

func plotProfile(sceneFile, configFile, src, rcv, output string) error {
	if sceneFile == "" {
		return fmt.Errorf("-scene is required")
	}
	cfg := config.EmptyPropagationConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.LoadPropagationConfig(configFile); err != nil {
			return err
		}
	}
	s, err := parseVec(src)
	if err != nil {
		return fmt.Errorf("-src: %w", err)
	}
	r, err := parseVec(rcv)
	if err != nil {
		return fmt.Errorf("-rcv: %w", err)
	}

	data, err := sceneio.LoadFile(sceneFile, cfg)
	if err != nil {
		return err
	}
	s.Z += data.Scene.GroundZ(geom.XY(s))
	r.Z += data.Scene.GroundZ(geom.XY(r))

	paths, err := data.ComputePaths(pathfinder.SourcePoint{Pos: s, Li: 1}, pathfinder.Receiver{Pos: r})
	if err != nil {
		return err
	}
	pd := attenuation.NewPathData(cfg)
	for i, p := range paths {
		att := attenuation.Evaluate(p, pd)
		log.Printf("path %d %s: AGlobalH=%.2f AGlobalF=%.2f dB at %d Hz", i, p.Kind, att.AGlobalH[0], att.AGlobalF[0], pd.Frequencies[0])
	}
	return report.PlotProfile(data.Scene.Profile(s, r, cfg.GetDefaultGroundG()), paths, output)
}
