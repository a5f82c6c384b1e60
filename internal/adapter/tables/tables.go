// Package tables loads classification tables from YAML so keyword rules and
// color scales can be tuned without a rebuild.
package tables

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/couchcryptid/climate-atlas/internal/domain"
	"gopkg.in/yaml.v3"
)

// Document is the YAML layout of a table file. Every section is optional:
// a keyword section replaces the built-in rules for its variant, and listed
// scales replace the built-in scale with the same category and variant.
//
//	keywords:
//	  observed:
//	    - category: rainfall
//	      keywords: [rainfall, precip]
//	scales:
//	  - category: rainfall
//	    variant: observed
//	    min: 0
//	    max: 3000
//	    step: 500
//	    unit: mm
//	    colors: ["#f5e6d3", "#8b5a2b"]
type Document struct {
	Keywords struct {
		Observed   []KeywordRule `yaml:"observed"`
		Projection []KeywordRule `yaml:"projection"`
	} `yaml:"keywords"`
	Scales []ScaleDef `yaml:"scales"`
}

// KeywordRule maps label keywords to a category.
type KeywordRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// ScaleDef is one color scale entry.
type ScaleDef struct {
	Category string   `yaml:"category"`
	Variant  string   `yaml:"variant"`
	Min      float64  `yaml:"min"`
	Max      float64  `yaml:"max"`
	Step     float64  `yaml:"step"`
	Unit     string   `yaml:"unit"`
	Colors   []string `yaml:"colors"`
}

var categories = map[string]domain.Category{
	string(domain.CategoryTemperature):   domain.CategoryTemperature,
	string(domain.CategoryDrySpell):      domain.CategoryDrySpell,
	string(domain.CategoryRainfall):      domain.CategoryRainfall,
	string(domain.CategoryDaysAbove20mm): domain.CategoryDaysAbove20mm,
}

// Decode reads a table document and builds a classifier from it on top of
// the built-in tables. Unknown fields, categories, and variants are errors.
func Decode(r io.Reader) (*domain.ColorClassifier, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode tables: %w", err)
	}
	return doc.Classifier()
}

// Load is Decode for a file path. An empty path returns the built-in
// classifier.
func Load(path string) (*domain.ColorClassifier, error) {
	if path == "" {
		return domain.DefaultColorClassifier(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tables: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Classifier validates the document and builds the classifier.
func (d Document) Classifier() (*domain.ColorClassifier, error) {
	observed, projection := domain.DefaultObservedKeywords(), domain.DefaultProjectionKeywords()
	if len(d.Keywords.Observed) > 0 {
		rules, err := keywordRules(d.Keywords.Observed)
		if err != nil {
			return nil, err
		}
		observed = rules
	}
	if len(d.Keywords.Projection) > 0 {
		rules, err := keywordRules(d.Keywords.Projection)
		if err != nil {
			return nil, err
		}
		projection = rules
	}

	defs := domain.DefaultScales()
	for i, s := range d.Scales {
		cat, ok := categories[s.Category]
		if !ok {
			return nil, fmt.Errorf("scale %d: unknown category %q", i, s.Category)
		}
		v := domain.Variant(s.Variant)
		if v != domain.VariantObserved && v != domain.VariantProjection {
			return nil, fmt.Errorf("scale %d: unknown variant %q", i, s.Variant)
		}
		defs[domain.ScaleKey{Category: cat, Variant: v}] = domain.ColorScale{
			Min:    s.Min,
			Max:    s.Max,
			Unit:   s.Unit,
			Colors: s.Colors,
			Step:   s.Step,
		}
	}

	scales, err := domain.NewScaleSet(defs)
	if err != nil {
		return nil, err
	}
	return domain.NewColorClassifier(domain.NewKeywordResolver(observed, projection), scales), nil
}

func keywordRules(rules []KeywordRule) ([]domain.KeywordRule, error) {
	out := make([]domain.KeywordRule, 0, len(rules))
	for i, r := range rules {
		cat, ok := categories[r.Category]
		if !ok {
			return nil, fmt.Errorf("keyword rule %d: unknown category %q", i, r.Category)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("keyword rule %d: no keywords for %s", i, r.Category)
		}
		// An empty keyword is a substring of every label.
		if slices.ContainsFunc(r.Keywords, func(kw string) bool { return strings.TrimSpace(kw) == "" }) {
			return nil, fmt.Errorf("keyword rule %d: blank keyword for %s", i, r.Category)
		}
		out = append(out, domain.KeywordRule{Category: cat, Keywords: r.Keywords})
	}
	return out, nil
}
