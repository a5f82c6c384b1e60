// Package domain holds the geospatial containment and climate classification
// engine of the atlas.
//
// # Regions
//
// Region boundaries are GeoJSON Polygon or MultiPolygon geometries decoded with
// go-geom. Only exterior rings are kept. A point is tested with an inclusive
// bounding-box prefilter followed by even-odd ray casting:
//
//	toggle when (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi) + xi
//
// where x is longitude and y is latitude. Points exactly on an edge may land
// on either side.
//
// # Color Scales
//
// Each metric category (temperature, dry spell, rainfall, days above 20 mm)
// owns two scales: an observed scale for the historical baseline and a
// projection scale for the 2050 and 2080 horizons. Projection values are a
// change against the baseline, not an absolute measurement, so their ranges
// differ and may start below zero.
//
// A value is clamped to [min, max], normalized, and mapped to palette index
// floor(normalized * (len(colors)-1)). Missing or non-numeric values map to
// index 0.
//
// Layer labels are matched to categories by case-insensitive substring. The
// projection keyword table accepts more phrasings than the observed table.
//
// # Degradation
//
// Nothing in this package panics or fails on bad input data. The diagnostic
// forms ([RegionIndex.Locate], [ColorClassifier.Classify]) return a usable
// sentinel result together with one of the sentinel errors in errors.go; the
// convenience forms return only the sentinel.
//
// # ID Generation
//
// Styled feature IDs are truncated SHA-256 hashes of layer|period|id|lat|lng,
// so replaying a dataset yields the same sink keys. See [featureID].
package domain
