package sceneio

import (
	"fmt"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/noisemap/internal/noise/aggregate"
	"github.com/banshee-data/noisemap/internal/noise/pathfinder"
	"github.com/banshee-data/noisemap/internal/units"
)

// WriteLevels writes one receiver point per level with its id, altitude,
// per-band levels ("L63", "L125", ...) and global level "L" in unit.
func WriteLevels(w io.Writer, receivers []pathfinder.Receiver, levels []aggregate.ReceiverLevel, freqs []int, unit string) error {
	byID := make(map[int]pathfinder.Receiver, len(receivers))
	for _, r := range receivers {
		byID[r.ID] = r
	}
	fc := geojson.NewFeatureCollection()
	for _, l := range levels {
		r, ok := byID[l.ID]
		if !ok {
			return fmt.Errorf("no receiver with id %d", l.ID)
		}
		f := geojson.NewFeature(orb.Point{r.Pos.X, r.Pos.Y})
		f.Properties["type"] = TypeReceiver
		f.Properties["id"] = r.ID
		f.Properties["z"] = r.Pos.Z
		f.Properties["unit"] = unit
		for i, v := range l.Levels {
			// JSON has no -Inf; silent bands are left out.
			if i < len(freqs) && !math.IsInf(v, 0) {
				f.Properties[fmt.Sprintf("L%d", freqs[i])] = v
			}
		}
		if global := units.SumDB(l.Levels...); !math.IsInf(global, 0) {
			f.Properties["L"] = global
		}
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode levels: %w", err)
	}
	_, err = w.Write(data)
	return err
}
