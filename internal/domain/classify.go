package domain

import (
	"fmt"
	"math"
)

// FallbackColor is the fill of features whose metric matches no category.
const FallbackColor = "#ffffff"

const (
	defaultStrokeColor  = "transparent"
	defaultStrokeWeight = 0.5
	defaultOpacity      = 1.0
)

// FeatureStyle is the per-feature style record handed to the map renderer.
type FeatureStyle struct {
	FillColor   string  `json:"fillColor"`
	StrokeColor string  `json:"strokeColor"`
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
}

// ColorClassifier turns (value, metric label, period) into a palette color
// and produces the matching legend. It holds only immutable tables and is
// safe for concurrent use.
type ColorClassifier struct {
	resolver CategoryResolver
	scales   ScaleProvider
}

// NewColorClassifier wires a category resolver to a scale provider.
func NewColorClassifier(resolver CategoryResolver, scales ScaleProvider) *ColorClassifier {
	return &ColorClassifier{resolver: resolver, scales: scales}
}

// DefaultColorClassifier uses the built-in keyword tables and palettes.
func DefaultColorClassifier() *ColorClassifier {
	return NewColorClassifier(DefaultKeywordResolver(), MustScaleSet(DefaultScales()))
}

// Scale resolves the scale used for label in period.
func (c *ColorClassifier) Scale(label string, period Period) (ColorScale, Category, error) {
	v := period.Variant()
	cat, ok := c.resolver.Resolve(label, v)
	if !ok {
		return ColorScale{}, "", fmt.Errorf("%w: %q", ErrUnclassifiedMetric, label)
	}
	scale, ok := c.scales.Scale(cat, v)
	if !ok || len(scale.Colors) == 0 {
		return ColorScale{}, cat, fmt.Errorf("%w: no %s scale for %s", ErrUnclassifiedMetric, v, cat)
	}
	return scale, cat, nil
}

// Classify returns the fill color for value. The color is always usable: an
// unclassified label yields FallbackColor with ErrUnclassifiedMetric and a
// missing or non-numeric value yields the palette's first color with
// ErrNonNumericValue.
func (c *ColorClassifier) Classify(value any, label string, period Period) (string, error) {
	scale, _, err := c.Scale(label, period)
	if err != nil {
		return FallbackColor, err
	}
	return scale.Color(value)
}

// Style builds the renderer style record. Opacity outside [0, 1] is
// replaced by full opacity.
func (c *ColorClassifier) Style(value any, label string, period Period, opacity float64) FeatureStyle {
	color, _ := c.Classify(value, label, period)
	if math.IsNaN(opacity) || opacity < 0 || opacity > 1 {
		opacity = defaultOpacity
	}
	return FeatureStyle{
		FillColor:   color,
		StrokeColor: defaultStrokeColor,
		Weight:      defaultStrokeWeight,
		Opacity:     defaultOpacity,
		FillOpacity: opacity,
	}
}

// Legend returns the scalebar legend for label in period, or false when the
// label is unclassified.
func (c *ColorClassifier) Legend(label string, period Period) (Legend, bool) {
	if label == "" {
		return Legend{}, false
	}
	scale, _, err := c.Scale(label, period)
	if err != nil {
		return Legend{}, false
	}
	return scale.Legend(), true
}
