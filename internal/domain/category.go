package domain

import "strings"

// Category is one of the fixed metric families that own a color scale.
type Category string

const (
	CategoryTemperature   Category = "temperature"
	CategoryDrySpell      Category = "drySpell"
	CategoryRainfall      Category = "rainfall"
	CategoryDaysAbove20mm Category = "daysAbove20mm"
)

// Variant selects between the absolute observed scale and the change-based
// projection scale of a category.
type Variant string

const (
	VariantObserved   Variant = "observed"
	VariantProjection Variant = "projection"
)

// Period is the temporal tag of a measurement: the historical baseline or a
// named projection horizon.
type Period string

const (
	PeriodHistorical Period = "hist"
	Period2050       Period = "2050"
	Period2080       Period = "2080"
)

// ParsePeriod normalizes a free-form period tag. Blank input is historical.
func ParsePeriod(s string) Period {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PeriodHistorical
	}
	return Period(s)
}

// Variant maps projection horizons to the projection scale and everything
// else to the observed scale.
func (p Period) Variant() Variant {
	switch ParsePeriod(string(p)) {
	case Period2050, Period2080:
		return VariantProjection
	default:
		return VariantObserved
	}
}

// KeywordRule assigns Category to any label containing one of Keywords.
type KeywordRule struct {
	Category Category
	Keywords []string
}

// CategoryResolver maps a free-text metric label to a category.
type CategoryResolver interface {
	Resolve(label string, v Variant) (Category, bool)
}

// ScaleProvider looks up the scale for a category variant.
type ScaleProvider interface {
	Scale(c Category, v Variant) (ColorScale, bool)
}

// KeywordResolver matches lower-cased labels against ordered keyword tables,
// one per variant. The first rule with a matching keyword wins.
type KeywordResolver struct {
	observed   []KeywordRule
	projection []KeywordRule
}

// NewKeywordResolver builds a resolver from ordered rule tables. Keywords are
// lower-cased on the way in.
func NewKeywordResolver(observed, projection []KeywordRule) *KeywordResolver {
	return &KeywordResolver{
		observed:   lowerRules(observed),
		projection: lowerRules(projection),
	}
}

// DefaultKeywordResolver returns the resolver for the climate atlas layers.
func DefaultKeywordResolver() *KeywordResolver {
	return NewKeywordResolver(DefaultObservedKeywords(), DefaultProjectionKeywords())
}

// DefaultObservedKeywords is the built-in rule table for observed layers.
func DefaultObservedKeywords() []KeywordRule {
	return []KeywordRule{
		{CategoryTemperature, []string{"temperature"}},
		{CategoryDrySpell, []string{"dry spell"}},
		{CategoryRainfall, []string{"rainfall"}},
		{CategoryDaysAbove20mm, []string{"days above 20"}},
	}
}

// DefaultProjectionKeywords is the built-in rule table for projection
// layers. It accepts more phrasings than the observed one; the upstream
// projection datasets name their layers less consistently.
func DefaultProjectionKeywords() []KeywordRule {
	return []KeywordRule{
		{CategoryTemperature, []string{"temperature"}},
		{CategoryDrySpell, []string{"dry spell", "dryspell"}},
		{CategoryRainfall, []string{"rainfall", "rain", "total_rain", "annual_rain"}},
		{CategoryDaysAbove20mm, []string{"days above 20mm", "days_above_20", "days above 20"}},
	}
}

// Resolve returns the category of label under the variant's keyword table.
func (r *KeywordResolver) Resolve(label string, v Variant) (Category, bool) {
	rules := r.observed
	if v == VariantProjection {
		rules = r.projection
	}
	label = strings.ToLower(label)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(label, kw) {
				return rule.Category, true
			}
		}
	}
	return "", false
}

func lowerRules(rules []KeywordRule) []KeywordRule {
	out := make([]KeywordRule, len(rules))
	for i, rule := range rules {
		kws := make([]string, len(rule.Keywords))
		for j, kw := range rule.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		out[i] = KeywordRule{Category: rule.Category, Keywords: kws}
	}
	return out
}
