package geojson

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/couchcryptid/climate-atlas/internal/domain"
)

// FeatureSource hands out the features of a data-layer document in batches.
// It implements pipeline.BatchExtractor and returns io.EOF once drained.
type FeatureSource struct {
	mu       sync.Mutex
	features []domain.DataFeature
	next     int
}

// NewFeatureSource serves an already decoded feature list.
func NewFeatureSource(features []domain.DataFeature) *FeatureSource {
	return &FeatureSource{features: features}
}

// OpenFeatureSource decodes the GeoJSON document at name in fsys.
func OpenFeatureSource(fsys fs.FS, name string) (*FeatureSource, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read data layer: %w", err)
	}
	features, err := domain.DecodeFeatures(data)
	if err != nil {
		return nil, fmt.Errorf("data layer %s: %w", name, err)
	}
	return NewFeatureSource(features), nil
}

// ExtractBatch returns up to batchSize features.
func (s *FeatureSource) ExtractBatch(ctx context.Context, batchSize int) ([]domain.DataFeature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.features) {
		return nil, io.EOF
	}
	end := min(s.next+max(batchSize, 1), len(s.features))
	batch := s.features[s.next:end]
	s.next = end
	return batch, nil
}

// Len returns the total number of features in the source.
func (s *FeatureSource) Len() int {
	return len(s.features)
}
