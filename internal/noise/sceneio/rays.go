package sceneio

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/noisemap/internal/noise/aggregate"
)

// WriteRays writes one LineString per kept path through its source,
// reflection, diffraction and receiver points. Properties carry the ids,
// the path kind, the point altitudes and the global attenuation per band
// under homogeneous ("AH63", ...) and favourable ("AF63", ...) conditions.
func WriteRays(w io.Writer, rays []aggregate.Ray, freqs []int) error {
	fc := geojson.NewFeatureCollection()
	for _, r := range rays {
		ls := make(orb.LineString, len(r.Path.Points))
		zs := make([]float64, len(r.Path.Points))
		for i, pt := range r.Path.Points {
			ls[i] = orb.Point{pt.Pos.X, pt.Pos.Y}
			zs[i] = pt.Pos.Z
		}
		f := geojson.NewFeature(ls)
		f.Properties["receiver"] = r.Path.ReceiverID
		f.Properties["source"] = r.Path.SourceID
		f.Properties["kind"] = r.Path.Kind.String()
		f.Properties["z"] = zs
		if r.Attenuation != nil {
			for i, f0 := range freqs {
				if i < len(r.Attenuation.AGlobalH) {
					f.Properties[fmt.Sprintf("AH%d", f0)] = r.Attenuation.AGlobalH[i]
					f.Properties[fmt.Sprintf("AF%d", f0)] = r.Attenuation.AGlobalF[i]
				}
			}
		}
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode rays: %w", err)
	}
	_, err = w.Write(data)
	return err
}
