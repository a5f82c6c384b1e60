package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/climate-atlas/internal/adapter/http"
	"github.com/couchcryptid/climate-atlas/internal/adapter/objectstore"
	"github.com/couchcryptid/climate-atlas/internal/domain"
	"github.com/couchcryptid/climate-atlas/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockFetcher struct {
	objects map[string][]byte
	err     error
}

func (m *mockFetcher) Fetch(_ context.Context, name string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, ok := m.objects[name]
	if !ok {
		return nil, &objectstore.StatusError{Code: http.StatusNotFound, Status: "Not Found"}
	}
	return body, nil
}

const seriesCSV = "name,year,delta_value_mean,sceno,delta_value_p10,delta_value_p90\r\n" +
	"pr_sum,2080,40,ssp585,10,70\r\n" +
	"pr_sum,2050,20,ssp585,5,35\r\n" +
	"tas_mean,2050,1.5,ssp585,1,2\r\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegions() *domain.RegionIndex {
	square := geom.NewPolygonFlat(geom.XY, []float64{25, -22, 33, -22, 33, -16, 25, -16, 25, -22}, []int{10})
	return domain.NewRegionIndex([]*domain.Region{domain.NewRegion("zimbabwe", square, nil)}, discardLogger())
}

func newTestServer(readyErr error, fetcher objectstore.Fetcher, metrics *observability.Metrics) *httpadapter.Server {
	api := httpadapter.NewAPI(testRegions(), domain.DefaultColorClassifier(), fetcher, metrics, discardLogger())
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, api, discardLogger())
}

func get(t *testing.T, srv http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil, &mockFetcher{}, observability.NewMetricsForTesting())
	assert.Equal(t, http.StatusOK, get(t, srv, "/healthz").Code)
}

func TestReadyz(t *testing.T) {
	ready := newTestServer(nil, &mockFetcher{}, observability.NewMetricsForTesting())
	assert.Equal(t, http.StatusOK, get(t, ready, "/readyz").Code)

	notReady := newTestServer(fmt.Errorf("no regions"), &mockFetcher{}, observability.NewMetricsForTesting())
	assert.Equal(t, http.StatusServiceUnavailable, get(t, notReady, "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, &mockFetcher{}, observability.NewMetricsForTesting())
	rec := get(t, srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestResponsesAreGzipped(t *testing.T) {
	srv := newTestServer(nil, &mockFetcher{}, observability.NewMetricsForTesting())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestCountry(t *testing.T) {
	srv := newTestServer(nil, &mockFetcher{}, observability.NewMetricsForTesting())

	tests := []struct {
		path  string
		code  string
		known bool
	}{
		{"/api/countries/KENYA", "kenya", true},
		{"/api/countries/zimbabwe", "zimbabwe", true},
		{"/api/countries/atlantis", "zimbabwe", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, srv, tt.path)
			require.Equal(t, http.StatusOK, rec.Code)
			body := decode[map[string]any](t, rec)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.known, body["known"])
		})
	}
}

func TestContains(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	srv := newTestServer(nil, &mockFetcher{}, metrics)

	tests := []struct {
		name       string
		path       string
		status     int
		inside     bool
		diagnostic string
	}{
		{"inside", "/api/regions/zimbabwe/contains?lat=-19&lng=29", http.StatusOK, true, "ok"},
		{"outside", "/api/regions/Zimbabwe/contains?lat=0&lng=38", http.StatusOK, false, "ok"},
		{"unknown region", "/api/regions/atlantis/contains?lat=0&lng=0", http.StatusOK, false, "unknown_region"},
		{"bad latitude", "/api/regions/zimbabwe/contains?lat=north&lng=29", http.StatusBadRequest, false, ""},
		{"latitude out of range", "/api/regions/zimbabwe/contains?lat=91&lng=29", http.StatusBadRequest, false, ""},
		{"missing longitude", "/api/regions/zimbabwe/contains?lat=-19", http.StatusBadRequest, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, tt.path)
			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}
			body := decode[map[string]any](t, rec)
			assert.Equal(t, tt.inside, body["inside"])
			assert.Equal(t, tt.diagnostic, body["diagnostic"])
		})
	}

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ContainmentQueries.WithLabelValues("inside")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ContainmentQueries.WithLabelValues("outside")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ContainmentQueries.WithLabelValues("unknown_region")), 0)
}

func TestStyle(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	srv := newTestServer(nil, &mockFetcher{}, metrics)
	classifier := domain.DefaultColorClassifier()

	want, err := classifier.Classify(20.0, "Mean temperature", domain.PeriodHistorical)
	require.NoError(t, err)

	rec := get(t, srv, "/api/style?layer=Mean+temperature&value=20&opacity=0.4")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, want, body["color"])
	assert.Equal(t, "ok", body["diagnostic"])
	assert.Equal(t, "hist", body["period"])
	style := body["style"].(map[string]any)
	assert.Equal(t, want, style["fillColor"])
	assert.InDelta(t, 0.4, style["fillOpacity"], 1e-9)

	rec = get(t, srv, "/api/style?layer=Wind+speed&value=3")
	body = decode[map[string]any](t, rec)
	assert.Equal(t, domain.FallbackColor, body["color"])
	assert.Equal(t, "unclassified_metric", body["diagnostic"])

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Classifications.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Classifications.WithLabelValues("unclassified_metric")), 0)
}

func TestLegend(t *testing.T) {
	srv := newTestServer(nil, &mockFetcher{}, observability.NewMetricsForTesting())

	rec := get(t, srv, "/api/legend?layer=Mean+temperature&time=2050")
	require.Equal(t, http.StatusOK, rec.Code)
	legends := decode[[]domain.Legend](t, rec)
	require.Len(t, legends, 1)
	assert.Equal(t, domain.LegendTypeScalebar, legends[0].Type)
	assert.InDelta(t, 1, legends[0].Min, 0)
	assert.InDelta(t, 5, legends[0].Max, 0)

	rec = get(t, srv, "/api/legend?layer=Wind+speed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCSVProxy(t *testing.T) {
	fetcher := &mockFetcher{objects: map[string][]byte{"pr_sum_ssp585_90-10.csv": []byte(seriesCSV)}}
	srv := newTestServer(nil, fetcher, observability.NewMetricsForTesting())

	rec := get(t, srv, "/api/csv/pr_sum_ssp585_90-10.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Equal(t, seriesCSV, rec.Body.String())

	rec = get(t, srv, "/api/csv/secrets.json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid file type")

	rec = get(t, srv, "/api/csv/missing.csv")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to fetch data: Not Found")
}

func TestCSVProxy_UpstreamFailure(t *testing.T) {
	for _, upstreamErr := range []error{objectstore.ErrUnavailable, objectstore.ErrObjectTooLarge} {
		t.Run(upstreamErr.Error(), func(t *testing.T) {
			srv := newTestServer(nil, &mockFetcher{err: upstreamErr}, observability.NewMetricsForTesting())

			rec := get(t, srv, "/api/csv/pr_sum_ssp585_90-10.csv")
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Contains(t, rec.Body.String(), "Server error fetching CSV data")
		})
	}
}

func TestSeries(t *testing.T) {
	fetcher := &mockFetcher{objects: map[string][]byte{"pr_sum_ssp585_90-10.csv": []byte(seriesCSV)}}
	srv := newTestServer(nil, fetcher, observability.NewMetricsForTesting())

	rec := get(t, srv, "/api/series?layer=Total+rainfall&scenario=High&country=Kenya")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Country  string               `json:"country"`
		File     string               `json:"file"`
		Meta     domain.ChartMeta     `json:"meta"`
		Scenario string               `json:"scenario"`
		Points   []domain.SeriesPoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "kenya", body.Country)
	assert.Equal(t, "pr_sum_ssp585_90-10.csv", body.File)
	assert.Equal(t, "pr_sum", body.Meta.Code)
	assert.Equal(t, "ssp585", body.Scenario)
	require.Len(t, body.Points, 2)
	assert.Equal(t, "2050", body.Points[0].Year)
	assert.InDelta(t, 5, body.Points[0].Min, 0)
	assert.InDelta(t, 35, body.Points[0].Max, 0)
}

func TestSeries_DegradesToEmpty(t *testing.T) {
	srv := newTestServer(nil, &mockFetcher{err: errors.New("connection reset")}, observability.NewMetricsForTesting())

	rec := get(t, srv, "/api/series?layer=Dry+spells")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "zimbabwe", body["country"])
	assert.Equal(t, "ssp126", body["scenario"])
	assert.Equal(t, []any{}, body["points"])
	assert.Equal(t, "pr_cdd5", body["meta"].(map[string]any)["code"])
}

func TestCORS(t *testing.T) {
	api := httpadapter.NewAPI(testRegions(), domain.DefaultColorClassifier(), &mockFetcher{},
		observability.NewMetricsForTesting(), discardLogger()).WithCORS([]string{"https://atlas.example.org"})
	srv := httpadapter.NewServer(":0", &mockReadiness{}, api, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/countries/kenya", nil)
	req.Header.Set("Origin", "https://atlas.example.org")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "https://atlas.example.org", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/countries/kenya", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
