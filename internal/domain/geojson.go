package domain

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// valueProperties lists the feature properties searched, in order, for the
// value to color.
var valueProperties = []string{"value"}

// rawFeature mirrors a GeoJSON Feature. Geometry is decoded separately by
// go-geom so unsupported or broken geometry can degrade per feature.
type rawFeature struct {
	Type       string          `json:"type"`
	ID         any             `json:"id,omitempty"`
	BBox       []float64       `json:"bbox,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// rawDocument accepts either a single Feature or a FeatureCollection.
type rawDocument struct {
	rawFeature
	Features []rawFeature `json:"features"`
}

// DataFeature is one feature of a data layer: a geometry plus the properties
// that carry the value to color.
type DataFeature struct {
	ID         string
	Geometry   geom.T
	Properties map[string]any
}

// Value returns the first present value property, or nil.
func (f DataFeature) Value() any {
	for _, name := range valueProperties {
		if v, ok := f.Properties[name]; ok {
			return v
		}
	}
	return nil
}

// Anchor returns the center of the feature's bounding box, used as its
// representative point. It reports false when the feature has no geometry.
func (f DataFeature) Anchor() (LatLng, bool) {
	if f.Geometry == nil || len(f.Geometry.FlatCoords()) == 0 {
		return LatLng{}, false
	}
	b := f.Geometry.Bounds()
	return LatLng{
		Lat: (b.Min(1) + b.Max(1)) / 2,
		Lng: (b.Min(0) + b.Max(0)) / 2,
	}, true
}

// DecodeRegion builds a Region from a GeoJSON Feature or FeatureCollection.
// Only the first feature of a collection is used. An error is returned only
// when the document itself cannot be read; geometry problems are recorded
// on the returned region.
func DecodeRegion(key string, data []byte) (*Region, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decode region %q: %w", key, err)
	}

	var f rawFeature
	switch doc.Type {
	case "FeatureCollection":
		if len(doc.Features) == 0 {
			return NewRegion(key, nil, nil), nil
		}
		f = doc.Features[0]
	default:
		f = doc.rawFeature
	}

	g, err := decodeGeometry(f.Geometry)
	if err != nil {
		return &Region{
			key: normalizeKey(key),
			err: fmt.Errorf("%w: region %q: %v", ErrMalformedGeometry, normalizeKey(key), err),
		}, nil
	}
	return NewRegion(key, g, decodeBBox(f.BBox)), nil
}

// DecodeFeatures reads every feature of a data-layer document. A feature
// whose geometry cannot be decoded is kept with a nil geometry.
func DecodeFeatures(data []byte) ([]DataFeature, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}

	raws := doc.Features
	if doc.Type == "Feature" {
		raws = []rawFeature{doc.rawFeature}
	}

	features := make([]DataFeature, 0, len(raws))
	for _, rf := range raws {
		g, err := decodeGeometry(rf.Geometry)
		if err != nil {
			g = nil
		}
		f := DataFeature{Geometry: g, Properties: rf.Properties}
		if rf.ID != nil {
			f.ID = fmt.Sprint(rf.ID)
		}
		features = append(features, f)
	}
	return features, nil
}

func decodeDocument(data []byte) (rawDocument, error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return rawDocument{}, err
	}
	switch doc.Type {
	case "Feature", "FeatureCollection":
		return doc, nil
	default:
		return rawDocument{}, fmt.Errorf("unsupported GeoJSON type %q", doc.Type)
	}
}

func decodeGeometry(raw json.RawMessage) (geom.T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return g, nil
}

// decodeBBox converts a [west, south, east, north] array. Anything other
// than four numbers is ignored so the box is derived from the ring instead.
func decodeBBox(b []float64) *geom.Bounds {
	if len(b) != 4 {
		return nil
	}
	return geom.NewBounds(geom.XY).Set(b[0], b[1], b[2], b[3])
}
