package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// StyleOptions selects how a batch of data features is styled.
type StyleOptions struct {
	Layer   string
	Period  Period
	Opacity float64
	// Region, when set, is checked against each feature's anchor point.
	Region string
}

// StyledFeature is a data feature together with its resolved style, ready to
// be published to the sink topic.
type StyledFeature struct {
	ID               string         `json:"id"`
	Layer            string         `json:"layer"`
	Period           Period         `json:"period"`
	Value            any            `json:"value"`
	Style            FeatureStyle   `json:"style"`
	Diagnostic       string         `json:"diagnostic"`
	Anchor           LatLng         `json:"anchor"`
	Region           string         `json:"region,omitempty"`
	InRegion         bool           `json:"in_region"`
	// RegionDiagnostic is "ok" or why the containment check degraded.
	RegionDiagnostic string         `json:"region_diagnostic,omitempty"`
	Properties       map[string]any `json:"properties,omitempty"`
	ProcessedAt      time.Time      `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// StyleFeature styles f for opts. Classification problems never fail: they
// are recorded in Diagnostic. Only a feature without geometry is rejected,
// since it cannot be placed on the map.
func StyleFeature(f DataFeature, opts StyleOptions, classifier *ColorClassifier, regions *RegionIndex) (StyledFeature, error) {
	anchor, ok := f.Anchor()
	if !ok {
		return StyledFeature{}, fmt.Errorf("%w: feature %q has no geometry", ErrMalformedGeometry, f.ID)
	}

	period := ParsePeriod(string(opts.Period))
	value := f.Value()
	_, classifyErr := classifier.Classify(value, opts.Layer, period)

	sf := StyledFeature{
		ID:          featureID(opts.Layer, period, f.ID, anchor),
		Layer:       opts.Layer,
		Period:      period,
		Value:       value,
		Style:       classifier.Style(value, opts.Layer, period, opts.Opacity),
		Diagnostic:  DiagnosticKind(classifyErr),
		Anchor:      anchor,
		Properties:  f.Properties,
		ProcessedAt: clock.Now().UTC(),
	}
	if opts.Region != "" && regions != nil {
		sf.Region = normalizeKey(opts.Region)
		inside, err := regions.locateLogged(anchor, opts.Region)
		sf.InRegion = inside
		sf.RegionDiagnostic = DiagnosticKind(err)
	}
	return sf, nil
}

// SerializeStyledFeature encodes a styled feature as a sink message keyed by
// its ID.
func SerializeStyledFeature(sf StyledFeature) (OutputEvent, error) {
	value, err := json.Marshal(sf)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("marshal styled feature: %w", err)
	}
	return OutputEvent{
		Key:   []byte(sf.ID),
		Value: value,
		Headers: map[string]string{
			"layer":      sf.Layer,
			"period":     string(sf.Period),
			"diagnostic": sf.Diagnostic,
		},
	}, nil
}

// featureID derives a stable ID from the layer, period, and feature identity
// so replays of the same dataset produce the same keys.
func featureID(layer string, period Period, id string, anchor LatLng) string {
	input := fmt.Sprintf("%s|%s|%s|%.4f|%.4f", layer, period, id, anchor.Lat, anchor.Lng)
	hash := sha256.Sum256([]byte(input))
	return "feat-" + hex.EncodeToString(hash[:8])
}
