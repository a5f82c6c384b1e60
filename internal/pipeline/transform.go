package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/climate-atlas/internal/domain"
	"github.com/couchcryptid/climate-atlas/internal/observability"
)

// StyleTransformer implements Transformer by styling each data feature for a
// fixed layer, period, and opacity, and optionally flagging whether it falls
// inside a region.
type StyleTransformer struct {
	classifier *domain.ColorClassifier
	regions    *domain.RegionIndex
	opts       domain.StyleOptions
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewStyleTransformer creates a StyleTransformer. Pass a nil region index to
// skip the containment check.
func NewStyleTransformer(classifier *domain.ColorClassifier, regions *domain.RegionIndex, opts domain.StyleOptions, metrics *observability.Metrics, logger *slog.Logger) *StyleTransformer {
	return &StyleTransformer{
		classifier: classifier,
		regions:    regions,
		opts:       opts,
		metrics:    metrics,
		logger:     logger,
	}
}

func (t *StyleTransformer) Transform(_ context.Context, f domain.DataFeature) (domain.OutputEvent, error) {
	sf, err := domain.StyleFeature(f, t.opts, t.classifier, t.regions)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	t.metrics.Classifications.WithLabelValues(sf.Diagnostic).Inc()
	if sf.Diagnostic != "ok" {
		t.logger.Debug("feature styled with fallback",
			"feature", sf.ID,
			"layer", sf.Layer,
			"diagnostic", sf.Diagnostic,
		)
	}
	if sf.Region != "" {
		outcome := sf.RegionDiagnostic
		if outcome == "ok" {
			outcome = "outside"
			if sf.InRegion {
				outcome = "inside"
			}
		}
		t.metrics.ContainmentQueries.WithLabelValues(outcome).Inc()
	}

	return domain.SerializeStyledFeature(sf)
}
