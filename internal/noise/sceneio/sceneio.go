// Package sceneio reads a propagation scene, its sources and its receivers
// from a GeoJSON FeatureCollection and writes receiver levels back as
// GeoJSON points.
//
// Every feature carries a "type" property:
//
//	building    Polygon or MultiPolygon; "height" or per-vertex "heights", "absorption"
//	screen      LineString or MultiLineString; "height" or "heights", "absorption"
//	ground      Polygon or MultiPolygon; "g"
//	topography  Point or LineString with absolute altitude "z" (or per-vertex "zs")
//	source      Point or LineString; "id", "z" above ground, "power" in dB per band
//	receiver    Point or MultiPoint; "id", "z" above ground
//
// Coordinates are projected metres. GeoJSON altitudes are ignored; heights
// always come from properties.
package sceneio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/noisemap/internal/config"
	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/noise/pathfinder"
	"github.com/banshee-data/noisemap/internal/noise/scene"
	"github.com/banshee-data/noisemap/internal/units"
)

// Feature types.
const (
	TypeBuilding   = "building"
	TypeScreen     = "screen"
	TypeGround     = "ground"
	TypeTopography = "topography"
	TypeSource     = "source"
	TypeReceiver   = "receiver"
)

// Default heights above ground.
const (
	DefaultSourceHeight   = 0.05
	DefaultReceiverHeight = 4.0
)

const maxFileSize = 256 * 1024 * 1024

var (
	// ErrUnknownType is returned for a feature whose type property is
	// missing or not one of the feature types.
	ErrUnknownType = errors.New("sceneio: unknown feature type")
	// ErrGeometry is returned for a geometry the feature type cannot use.
	ErrGeometry = errors.New("sceneio: unsupported geometry")
	// ErrProperty is returned for a property of the wrong kind.
	ErrProperty = errors.New("sceneio: invalid property")
)

// LoadFile reads a .geojson or .json file. See Load.
func LoadFile(path string, cfg *config.PropagationConfig) (*pathfinder.Data, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".geojson" && ext != ".json" {
		return nil, fmt.Errorf("scene file must have .geojson or .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scene file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("scene file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	return Load(data, cfg)
}

// Load builds the scene described by a FeatureCollection and returns run
// data holding its sources and receivers, with altitudes made absolute.
// Degenerate geometries are skipped by the scene builder.
func Load(data []byte, cfg *config.PropagationConfig) (*pathfinder.Data, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	b := scene.NewBuilder()
	var emitters []*geojson.Feature
	for i, f := range fc.Features {
		typ, _ := f.Properties["type"].(string)
		switch typ {
		case TypeBuilding:
			err = addBuilding(b, f)
		case TypeScreen:
			err = addScreen(b, f)
		case TypeGround:
			err = addGround(b, f)
		case TypeTopography:
			err = addTopography(b, f)
		case TypeSource, TypeReceiver:
			emitters = append(emitters, f)
			continue
		default:
			err = fmt.Errorf("%w %q", ErrUnknownType, typ)
		}
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
	}
	sc, err := b.Finish()
	if err != nil {
		return nil, fmt.Errorf("failed to build scene: %w", err)
	}

	d := pathfinder.NewData(sc, cfg)
	nextSource, nextReceiver := 0, 0
	for i, f := range emitters {
		if f.Properties["type"] == TypeSource {
			err = addSource(d, f, &nextSource)
		} else {
			err = addReceivers(d, f, &nextReceiver)
		}
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", f.Properties["type"], i, err)
		}
	}
	d.MakeRelativeZToAbsolute()
	noise.Opsf("loaded scene: %d buildings, %d walls, %d sources, %d receivers",
		sc.Stats().Buildings, sc.Stats().Walls, len(d.Sources), len(d.Receivers))
	return d, nil
}

func polygons(g orb.Geometry) ([]orb.Polygon, error) {
	switch g := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}, nil
	case orb.MultiPolygon:
		return g, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrGeometry, g)
	}
}

func lines(g orb.Geometry) ([]orb.LineString, error) {
	switch g := g.(type) {
	case orb.LineString:
		return []orb.LineString{g}, nil
	case orb.MultiLineString:
		return g, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrGeometry, g)
	}
}

func addBuilding(b *scene.Builder, f *geojson.Feature) error {
	polys, err := polygons(f.Geometry)
	if err != nil {
		return err
	}
	absorption, err := floatList(f.Properties, "absorption")
	if err != nil {
		return err
	}
	heights, err := floatList(f.Properties, "heights")
	if err != nil {
		return err
	}
	height, err := number(f.Properties, "height", 0)
	if err != nil {
		return err
	}
	for _, poly := range polys {
		if heights != nil {
			_, err = b.AddBuildingWithHeights(poly, heights, absorption)
		} else {
			_, err = b.AddBuilding(poly, height, absorption)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func addScreen(b *scene.Builder, f *geojson.Feature) error {
	ls, err := lines(f.Geometry)
	if err != nil {
		return err
	}
	absorption, err := floatList(f.Properties, "absorption")
	if err != nil {
		return err
	}
	heights, err := floatList(f.Properties, "heights")
	if err != nil {
		return err
	}
	if heights == nil {
		h, err := number(f.Properties, "height", 0)
		if err != nil {
			return err
		}
		heights = []float64{h}
	}
	for _, l := range ls {
		if _, err := b.AddWall(l, heights, absorption); err != nil {
			return err
		}
	}
	return nil
}

func addGround(b *scene.Builder, f *geojson.Feature) error {
	polys, err := polygons(f.Geometry)
	if err != nil {
		return err
	}
	g, err := number(f.Properties, "g", -1)
	if err != nil {
		return err
	}
	for _, poly := range polys {
		if err := b.AddGroundEffect(poly, g); err != nil {
			return err
		}
	}
	return nil
}

func addTopography(b *scene.Builder, f *geojson.Feature) error {
	z, err := number(f.Properties, "z", 0)
	if err != nil {
		return err
	}
	zs, err := floatList(f.Properties, "zs")
	if err != nil {
		return err
	}
	switch g := f.Geometry.(type) {
	case orb.Point:
		return b.AddTopographicPoint(r3.Vec{X: g[0], Y: g[1], Z: z})
	case orb.MultiPoint:
		for i, p := range g {
			if err := b.AddTopographicPoint(r3.Vec{X: p[0], Y: p[1], Z: at(zs, i, z)}); err != nil {
				return err
			}
		}
		return nil
	case orb.LineString:
		return b.AddTopographicLine(withZ(g, zs, z))
	default:
		return fmt.Errorf("%w: %T", ErrGeometry, g)
	}
}

func addSource(d *pathfinder.Data, f *geojson.Feature, next *int) error {
	id, err := featureID(f, next)
	if err != nil {
		return err
	}
	z, err := number(f.Properties, "z", DefaultSourceHeight)
	if err != nil {
		return err
	}
	levels, err := floatList(f.Properties, "power")
	if err != nil {
		return err
	}
	var power []float64
	if levels != nil {
		power = units.DBToWSlice(levels)
	}
	switch g := f.Geometry.(type) {
	case orb.Point:
		return d.AddPointSource(id, r3.Vec{X: g[0], Y: g[1], Z: z}, power)
	case orb.LineString:
		return d.AddSource(id, withZ(g, nil, z), power)
	default:
		return fmt.Errorf("%w: %T", ErrGeometry, g)
	}
}

func addReceivers(d *pathfinder.Data, f *geojson.Feature, next *int) error {
	z, err := number(f.Properties, "z", DefaultReceiverHeight)
	if err != nil {
		return err
	}
	var pts []orb.Point
	switch g := f.Geometry.(type) {
	case orb.Point:
		pts = []orb.Point{g}
	case orb.MultiPoint:
		pts = g
	default:
		return fmt.Errorf("%w: %T", ErrGeometry, g)
	}
	base, err := featureID(f, next)
	if err != nil {
		return err
	}
	for i, p := range pts {
		// MultiPoint members are numbered on from the feature id.
		id := base + i
		if id >= *next {
			*next = id + 1
		}
		if err := d.AddReceiver(id, r3.Vec{X: p[0], Y: p[1], Z: z}); err != nil {
			return err
		}
	}
	return nil
}

// featureID returns the "id" property, or the next free id when absent.
func featureID(f *geojson.Feature, next *int) (int, error) {
	v, ok := f.Properties["id"]
	if !ok {
		id := *next
		*next = id + 1
		return id, nil
	}
	n, ok := v.(float64)
	if !ok || n != float64(int(n)) {
		return 0, fmt.Errorf("%w: id %v", ErrProperty, v)
	}
	id := int(n)
	if id >= *next {
		*next = id + 1
	}
	return id, nil
}

func withZ(ls orb.LineString, zs []float64, z float64) []r3.Vec {
	out := make([]r3.Vec, len(ls))
	for i, p := range ls {
		out[i] = r3.Vec{X: p[0], Y: p[1], Z: at(zs, i, z)}
	}
	return out
}

func at(values []float64, i int, def float64) float64 {
	if i < len(values) {
		return values[i]
	}
	return def
}

// number reads a numeric property, def when absent.
func number(p geojson.Properties, key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T", ErrProperty, key, v)
	}
	return f, nil
}

// floatList reads a property holding a number or an array of numbers, nil
// when absent.
func floatList(p geojson.Properties, key string) ([]float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch v := v.(type) {
	case float64:
		return []float64{v}, nil
	case []interface{}:
		out := make([]float64, len(v))
		for i, e := range v {
			f, ok := e.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] is %T", ErrProperty, key, i, e)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T", ErrProperty, key, v)
	}
}
