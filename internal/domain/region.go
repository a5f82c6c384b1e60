package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/twpayne/go-geom"
)

// minRingVertices is the smallest vertex count that can enclose an area.
const minRingVertices = 3

// LatLng is a WGS-84 point. GeoJSON stores the same pair as [lng, lat].
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ring is a compiled exterior ring with its prefilter box.
type ring struct {
	flat   []float64
	stride int
	bounds *geom.Bounds
}

// Region is the compiled, read-only boundary of one region. Only exterior
// rings are kept; holes are not modeled.
type Region struct {
	key   string
	rings []ring
	err   error
}

// NewRegion compiles g (a *geom.Polygon or *geom.MultiPolygon) into a Region.
// bbox, when non-nil, replaces the derived box of a Polygon's exterior ring;
// it is ignored for MultiPolygons, whose sub-polygons each get their own box.
//
// Geometry problems are recorded on the region and reported by Locate, so a
// bad region never prevents the others from loading.
func NewRegion(key string, g geom.T, bbox *geom.Bounds) *Region {
	r := &Region{key: normalizeKey(key)}

	switch g := g.(type) {
	case *geom.Polygon:
		rg, ok := exteriorRing(g)
		if !ok {
			r.err = fmt.Errorf("%w: region %q: polygon has no usable exterior ring", ErrMalformedGeometry, r.key)
			return r
		}
		if bbox != nil {
			rg.bounds = bbox
		}
		r.rings = []ring{rg}
	case *geom.MultiPolygon:
		if g != nil {
			for i := 0; i < g.NumPolygons(); i++ {
				if rg, ok := exteriorRing(g.Polygon(i)); ok {
					r.rings = append(r.rings, rg)
				}
			}
		}
		if len(r.rings) == 0 {
			r.err = fmt.Errorf("%w: region %q: multipolygon has no usable sub-polygon", ErrMalformedGeometry, r.key)
		}
	case nil:
		r.err = fmt.Errorf("%w: region %q: missing geometry", ErrMalformedGeometry, r.key)
	default:
		r.err = fmt.Errorf("%w: region %q: unsupported geometry %T", ErrMalformedGeometry, r.key, g)
	}
	return r
}

func exteriorRing(p *geom.Polygon) (ring, bool) {
	if p == nil || p.NumLinearRings() == 0 {
		return ring{}, false
	}
	lr := p.LinearRing(0)
	if lr.NumCoords() < minRingVertices || lr.Stride() < 2 {
		return ring{}, false
	}
	return ring{flat: lr.FlatCoords(), stride: lr.Stride(), bounds: lr.Bounds()}, true
}

// Key returns the normalized region key.
func (r *Region) Key() string { return r.key }

// Err reports why the region cannot contain any point, or nil if it is usable.
func (r *Region) Err() error { return r.err }

// Locate reports whether p lies inside the region. Sub-polygons are tried in
// order and the first hit wins. A malformed region returns false together
// with an error wrapping ErrMalformedGeometry.
func (r *Region) Locate(p LatLng) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	for _, rg := range r.rings {
		if !rg.boxContains(p) {
			continue
		}
		if rg.rayCast(p) {
			return true, nil
		}
	}
	return false, nil
}

// boxContains is the inclusive bounding-box prefilter.
func (rg ring) boxContains(p LatLng) bool {
	b := rg.bounds
	return p.Lat >= b.Min(1) && p.Lat <= b.Max(1) &&
		p.Lng >= b.Min(0) && p.Lng <= b.Max(0)
}

// rayCast toggles on every edge crossed by the horizontal ray running east
// from p. Points exactly on an edge may land either way.
func (rg ring) rayCast(p LatLng) bool {
	x, y := p.Lng, p.Lat
	n := len(rg.flat) / rg.stride
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := rg.flat[i*rg.stride], rg.flat[i*rg.stride+1]
		xj, yj := rg.flat[j*rg.stride], rg.flat[j*rg.stride+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// RegionIndex resolves region keys to compiled boundaries. It is built once
// at startup and safe for concurrent use.
type RegionIndex struct {
	regions map[string]*Region
	logger  *slog.Logger
}

// NewRegionIndex indexes regions by key. A later region with the same key
// replaces an earlier one.
func NewRegionIndex(regions []*Region, logger *slog.Logger) *RegionIndex {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &RegionIndex{
		regions: make(map[string]*Region, len(regions)),
		logger:  logger,
	}
	for _, r := range regions {
		if r != nil {
			idx.regions[r.key] = r
		}
	}
	return idx
}

// Region returns the compiled region for key.
func (x *RegionIndex) Region(key string) (*Region, bool) {
	r, ok := x.regions[normalizeKey(key)]
	return r, ok
}

// Keys returns the indexed region keys in sorted order.
func (x *RegionIndex) Keys() []string {
	keys := make([]string, 0, len(x.regions))
	for k := range x.regions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Locate is the diagnostic form of Contains: the boolean is always safe to
// use, and the error explains a degraded answer.
func (x *RegionIndex) Locate(p LatLng, key string) (bool, error) {
	r, ok := x.Region(key)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownRegion, key)
	}
	return r.Locate(p)
}

// Contains reports whether p lies inside the region registered under key.
// Unknown keys and malformed geometry yield false and a warning log.
func (x *RegionIndex) Contains(p LatLng, key string) bool {
	inside, _ := x.locateLogged(p, key)
	return inside
}

// locateLogged is Locate with degraded lookups logged.
func (x *RegionIndex) locateLogged(p LatLng, key string) (bool, error) {
	inside, err := x.Locate(p, key)
	if err != nil {
		x.logger.Warn("containment check degraded",
			"region", key,
			"lat", p.Lat,
			"lng", p.Lng,
			"error", err,
		)
	}
	return inside, err
}

// CheckReadiness returns nil once at least one usable region is indexed.
func (x *RegionIndex) CheckReadiness(_ context.Context) error {
	for _, r := range x.regions {
		if r.err == nil {
			return nil
		}
	}
	return errors.New("no usable region geometry loaded")
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
