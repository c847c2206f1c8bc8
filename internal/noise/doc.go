// Package noise holds what the propagation packages share: octave bands and
// their exact mid-band frequencies, and the three logging streams.
//
// Responsibilities:
//   - Nominal and exact octave band frequencies, wavelengths.
//   - Ops/Diag/Trace loggers (see SetLogWriters).
//
// Subpackages, in dependency order:
//   - geom: planar and 3D segment geometry.
//   - index: read-only R-tree used for every spatial query.
//   - scene: buildings, walls, ground regions, terrain and vertical profiles.
//   - path: propagation path data model and its binary codec.
//   - mirror: image receivers for specular reflections.
//   - attenuation: CNOSSOS-EU per-band attenuation of a single path.
//   - pathfinder: path enumeration and the parallel receiver loop.
//   - aggregate: wind-rose weighting and energetic summation per receiver.
//
// Dependency rule: subpackages may import noise and packages earlier in the
// list above; noise itself imports only the standard library.
package noise
