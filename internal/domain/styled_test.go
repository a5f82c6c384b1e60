package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func testFeature(value any) DataFeature {
	return DataFeature{
		ID:         "ward-12",
		Geometry:   geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{square(28, -20, 2)}),
		Properties: map[string]any{"value": value, "ward": "12"},
	}
}

func TestStyleFeature(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	classifier := DefaultColorClassifier()
	regions := NewRegionIndex([]*Region{
		NewRegion("zimbabwe", geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{square(25, -22, 8)}), nil),
	}, discardLogger())

	t.Run("styled and located", func(t *testing.T) {
		sf, err := StyleFeature(testFeature(2000), StyleOptions{
			Layer: "Total rainfall", Period: "hist", Opacity: 0.8, Region: "Zimbabwe",
		}, classifier, regions)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(sf.ID, "feat-"))
		assert.Equal(t, "#2e004f", sf.Style.FillColor)
		assert.Equal(t, 0.8, sf.Style.FillOpacity)
		assert.Equal(t, "ok", sf.Diagnostic)
		assert.Equal(t, LatLng{Lat: -19, Lng: 29}, sf.Anchor)
		assert.Equal(t, "zimbabwe", sf.Region)
		assert.True(t, sf.InRegion)
		assert.Equal(t, "ok", sf.RegionDiagnostic)
		assert.Equal(t, fixed, sf.ProcessedAt)
	})

	t.Run("degraded containment recorded", func(t *testing.T) {
		degraded := NewRegionIndex([]*Region{NewRegion("broken", nil, nil)}, discardLogger())
		tests := []struct {
			region string
			want   string
		}{
			{"atlantis", "unknown_region"},
			{"broken", "malformed_geometry"},
		}
		for _, tt := range tests {
			sf, err := StyleFeature(testFeature(1), StyleOptions{Layer: "Total rainfall", Region: tt.region}, classifier, degraded)
			require.NoError(t, err)
			assert.False(t, sf.InRegion)
			assert.Equal(t, tt.want, sf.RegionDiagnostic)
		}
	})

	t.Run("diagnostic recorded", func(t *testing.T) {
		sf, err := StyleFeature(testFeature(nil), StyleOptions{Layer: "Total rainfall"}, classifier, regions)
		require.NoError(t, err)
		assert.Equal(t, "non_numeric_value", sf.Diagnostic)
		assert.Equal(t, PeriodHistorical, sf.Period)
		assert.Empty(t, sf.Region)
		assert.False(t, sf.InRegion)
		assert.Empty(t, sf.RegionDiagnostic)
	})

	t.Run("no geometry rejected", func(t *testing.T) {
		_, err := StyleFeature(DataFeature{ID: "x"}, StyleOptions{Layer: "Total rainfall"}, classifier, regions)
		assert.ErrorIs(t, err, ErrMalformedGeometry)
	})

	t.Run("deterministic ID", func(t *testing.T) {
		opts := StyleOptions{Layer: "Total rainfall", Period: "2050"}
		a, err := StyleFeature(testFeature(1), opts, classifier, nil)
		require.NoError(t, err)
		b, err := StyleFeature(testFeature(2), opts, classifier, nil)
		require.NoError(t, err)
		assert.Equal(t, a.ID, b.ID)

		opts.Period = "2080"
		c, err := StyleFeature(testFeature(1), opts, classifier, nil)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, c.ID)
	})
}

func TestSerializeStyledFeature(t *testing.T) {
	sf := StyledFeature{
		ID:         "feat-abc",
		Layer:      "Total rainfall",
		Period:     Period2050,
		Value:      12.0,
		Diagnostic: "ok",
		Style:      FeatureStyle{FillColor: "#deb98f"},
	}

	out, err := SerializeStyledFeature(sf)
	require.NoError(t, err)
	assert.Equal(t, []byte("feat-abc"), out.Key)
	assert.Equal(t, map[string]string{"layer": "Total rainfall", "period": "2050", "diagnostic": "ok"}, out.Headers)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Value, &decoded))
	assert.Equal(t, "feat-abc", decoded["id"])
	assert.Equal(t, "#deb98f", decoded["style"].(map[string]any)["fillColor"])
}

func TestSetClock(t *testing.T) {
	t.Run("set custom clock", func(t *testing.T) {
		fixedTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(fixedTime))
		assert.Equal(t, fixedTime, clock.Now())
		SetClock(nil)
	})

	t.Run("reset to real clock", func(t *testing.T) {
		SetClock(clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		SetClock(nil)
		assert.True(t, time.Since(clock.Now()) < time.Second)
	})
}
