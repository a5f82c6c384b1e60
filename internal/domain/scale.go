package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// LegendTypeScalebar is the only legend shape the map layer renders.
const LegendTypeScalebar = "scalebar"

// MaxLegendTicks bounds the number of stepped legend labels of a scale.
const MaxLegendTicks = 1000

// ColorScale maps a numeric domain onto an ordered palette of equal-width
// buckets. Step is the spacing of legend tick labels.
type ColorScale struct {
	Min    float64  `json:"min" validate:"ltfield=Max"`
	Max    float64  `json:"max"`
	Unit   string   `json:"unit" validate:"required"`
	Colors []string `json:"colors" validate:"required,min=1,dive,hexcolor"`
	Step   float64  `json:"step" validate:"gt=0"`
}

// ColorAt buckets v into the palette: clamp to [Min, Max], normalize, then
// floor(normalized * (len(Colors)-1)). NaN maps to the first color.
func (s ColorScale) ColorAt(v float64) string {
	if math.IsNaN(v) || s.Max <= s.Min {
		return s.Colors[0]
	}
	clamped := math.Max(s.Min, math.Min(v, s.Max))
	normalized := (clamped - s.Min) / (s.Max - s.Min)
	idx := int(math.Floor(normalized * float64(len(s.Colors)-1)))
	idx = max(0, min(idx, len(s.Colors)-1))
	return s.Colors[idx]
}

// Color coerces value to a number and buckets it. Missing or non-numeric
// values return the first color together with ErrNonNumericValue.
func (s ColorScale) Color(value any) (string, error) {
	v, ok := CoerceValue(value)
	if !ok {
		return s.Colors[0], fmt.Errorf("%w: %v", ErrNonNumericValue, value)
	}
	return s.ColorAt(v), nil
}

// LegendLabel is one tick on a scalebar legend.
type LegendLabel struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Legend describes how to draw a scale's swatch and ticks.
type Legend struct {
	Type   string        `json:"type"`
	Min    float64       `json:"min"`
	Max    float64       `json:"max"`
	Unit   string        `json:"unit"`
	Colors []string      `json:"colors"`
	Labels []LegendLabel `json:"labels"`
}

// Legend emits ticks from Min in Step increments while they stay within
// Max, then appends Max itself if the stepping did not land on it.
func (s ColorScale) Legend() Legend {
	labels := make([]LegendLabel, 0, 16)
	if s.Step > 0 && !math.IsNaN(s.Min) {
		for i := 0; i <= MaxLegendTicks; i++ {
			v := s.Min + float64(i)*s.Step
			if v > s.Max {
				break
			}
			labels = append(labels, LegendLabel{Value: v, Label: formatNumber(v)})
		}
	}
	if len(labels) == 0 || labels[len(labels)-1].Value != s.Max {
		labels = append(labels, LegendLabel{Value: s.Max, Label: formatNumber(s.Max)})
	}

	return Legend{
		Type:   LegendTypeScalebar,
		Min:    s.Min,
		Max:    s.Max,
		Unit:   s.Unit,
		Colors: slices.Clone(s.Colors),
		Labels: labels,
	}
}

// formatNumber renders the shortest decimal form, e.g. 10, 1.5, -2.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CoerceValue converts a loosely typed measurement to a float64. It reports
// false for nil, NaN, blank or unparsable strings, and unsupported types.
func CoerceValue(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case *float64:
		if v == nil {
			return 0, false
		}
		f = *v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ScaleKey addresses one scale variant of one category.
type ScaleKey struct {
	Category Category
	Variant  Variant
}

// ScaleSet is the validated, read-only table of color scales. It implements
// ScaleProvider.
type ScaleSet struct {
	scales map[ScaleKey]ColorScale
}

// NewScaleSet validates every definition and copies it into an immutable set.
func NewScaleSet(defs map[ScaleKey]ColorScale) (*ScaleSet, error) {
	validate := validator.New()
	set := &ScaleSet{scales: make(map[ScaleKey]ColorScale, len(defs))}
	for key, def := range defs {
		if err := validate.Struct(def); err != nil {
			return nil, fmt.Errorf("invalid %s %s scale: %w", key.Variant, key.Category, err)
		}
		if ticks := (def.Max - def.Min) / def.Step; math.IsNaN(ticks) || ticks > MaxLegendTicks {
			return nil, fmt.Errorf("invalid %s %s scale: step %v gives more than %d legend ticks",
				key.Variant, key.Category, def.Step, MaxLegendTicks)
		}
		def.Colors = slices.Clone(def.Colors)
		set.scales[key] = def
	}
	return set, nil
}

// MustScaleSet is NewScaleSet for static tables known to be valid.
func MustScaleSet(defs map[ScaleKey]ColorScale) *ScaleSet {
	set, err := NewScaleSet(defs)
	if err != nil {
		panic(err)
	}
	return set
}

// Scale returns the scale for a category and variant.
func (s *ScaleSet) Scale(c Category, v Variant) (ColorScale, bool) {
	scale, ok := s.scales[ScaleKey{Category: c, Variant: v}]
	return scale, ok
}

// Keys returns every defined scale key.
func (s *ScaleSet) Keys() []ScaleKey {
	keys := make([]ScaleKey, 0, len(s.scales))
	for k := range s.scales {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b ScaleKey) int {
		if c := strings.Compare(string(a.Category), string(b.Category)); c != 0 {
			return c
		}
		return strings.Compare(string(a.Variant), string(b.Variant))
	})
	return keys
}

var (
	yellowRed = []string{
		"#ffffe0", "#fffedb", "#fffdd6", "#fffcd1", "#fffbcc", "#fffac7", "#fff9c2", "#fff8bd",
		"#fff7b8", "#fff6b3", "#fef5ae", "#fef4a9", "#fef3a4", "#fef29f", "#fef19a", "#fdef95",
		"#fdec90", "#fde98b", "#fce686", "#fce281", "#fcde7c", "#fbda77", "#fbd572", "#fad06d",
		"#f9cb68", "#f9c563", "#f8bf5e", "#f7b859", "#f6b154", "#f5aa4f", "#f4a249", "#f39a44",
		"#f2923f", "#f1893a", "#f08035", "#ef7630", "#ee6b2c", "#ed6028", "#eb5524", "#ea4921",
		"#e93d1e", "#e8311c", "#e7261b", "#e61b1a", "#e51019", "#e40518", "#dc0419", "#d00319",
		"#c4021c",
	}
	yellowRedCoarse = []string{
		"#ffffe0", "#fff7b8", "#fef4a9", "#fef19a", "#fde98b", "#fcde7c", "#f9cb68", "#f7b859",
		"#f4a249", "#f1893a", "#ef7630", "#eb5524", "#e8311c", "#e61b1a", "#c4021c",
	}
	sandBrown = []string{
		"#fbf6f2", "#f0e1d0", "#e6cbae", "#deb98f", "#d6ab80", "#ce9e6e", "#c9925c",
		"#bf874e", "#b57d44", "#ab7239", "#a16930", "#96612b", "#8b5926", "#7e5221", "#784e1f",
	}
	tealBrown = []string{
		"#115338", "#14593c", "#19674e", "#1e735e", "#248071", "#308c7f", "#3a968b", "#46a198",
		"#57aaa4", "#6cb3ab", "#81bab2", "#99c2bd", "#b5d2cc", "#d2e5e0", "#f1f7f5", "#fbf6f2",
		"#f0e1d0", "#e6cbae", "#deb98f", "#d6ab80", "#ce9e6e", "#c9925c", "#bf874e", "#b57d44",
		"#ab7239", "#a16930", "#96612b", "#8b5926", "#7e5221", "#784e1f",
	}
	bluePurple = []string{
		"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6", "#4292c6",
		"#2171b5", "#08519c", "#08306b", "#4b0082", "#2e004f",
	}
	brownTeal = []string{
		"#deb98f", "#e6cbae", "#f0e1d0", "#fbf6f2", "#f1f7f5",
		"#d2e5e0", "#b5d2cc", "#99c2bd", "#81bab2", "#6cb3ab", "#57aaa4", "#46a198", "#3a968b",
		"#308c7f", "#248071", "#1e735e", "#19674e", "#14593c", "#115338",
	}
	brownTealShort = brownTeal[1:]
)

// DefaultScales returns the climate atlas palette table. Projection scales
// describe a change against the historical baseline, so several of them
// start below zero.
func DefaultScales() map[ScaleKey]ColorScale {
	return map[ScaleKey]ColorScale{
		{CategoryTemperature, VariantObserved}:     {Min: 10, Max: 36, Unit: "°C", Colors: yellowRed, Step: 3},
		{CategoryTemperature, VariantProjection}:   {Min: 1, Max: 5, Unit: "°C", Colors: yellowRedCoarse, Step: 0.5},
		{CategoryDrySpell, VariantObserved}:        {Min: 0, Max: 22, Unit: "days", Colors: sandBrown, Step: 5},
		{CategoryDrySpell, VariantProjection}:      {Min: -2, Max: 2, Unit: "days", Colors: tealBrown, Step: 0.5},
		{CategoryRainfall, VariantObserved}:        {Min: 0, Max: 2000, Unit: "mm", Colors: bluePurple, Step: 200},
		{CategoryRainfall, VariantProjection}:      {Min: -100, Max: 400, Unit: "mm", Colors: brownTeal, Step: 50},
		{CategoryDaysAbove20mm, VariantObserved}:   {Min: 0, Max: 40, Unit: "days", Colors: bluePurple, Step: 5},
		{CategoryDaysAbove20mm, VariantProjection}: {Min: -2, Max: 10, Unit: "days", Colors: brownTealShort, Step: 1},
	}
}
