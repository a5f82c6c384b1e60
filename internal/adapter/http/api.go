package http

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/climate-atlas/internal/adapter/objectstore"
	"github.com/couchcryptid/climate-atlas/internal/domain"
	"github.com/couchcryptid/climate-atlas/internal/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// API serves the atlas endpoints: country views, region containment, feature
// styling, legends, and the CSV proxy with its chart series.
type API struct {
	regions    *domain.RegionIndex
	classifier *domain.ColorClassifier
	objects    objectstore.Fetcher
	metrics    *observability.Metrics
	logger     *slog.Logger

	corsOrigins []string
}

// NewAPI wires the API handlers to their dependencies.
func NewAPI(regions *domain.RegionIndex, classifier *domain.ColorClassifier, objects objectstore.Fetcher, metrics *observability.Metrics, logger *slog.Logger) *API {
	return &API{
		regions:    regions,
		classifier: classifier,
		objects:    objects,
		metrics:    metrics,
		logger:     logger,
	}
}

// WithCORS allows browser clients from origins to call the API. "*" allows
// any origin.
func (a *API) WithCORS(origins []string) *API {
	a.corsOrigins = origins
	return a
}

// RegisterRoutes mounts the API endpoints onto r.
func (a *API) RegisterRoutes(r chi.Router) {
	if len(a.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: a.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Get("/countries/{code}", a.handleCountry)
	r.Get("/regions/{region}/contains", a.handleContains)
	r.Get("/style", a.handleStyle)
	r.Get("/legend", a.handleLegend)
	r.Get("/csv/{file}", a.handleCSV)
	r.Get("/series", a.handleSeries)
}

type countryResponse struct {
	domain.Country
	Known bool `json:"known"`
}

func (a *API) handleCountry(w http.ResponseWriter, r *http.Request) {
	c, ok := domain.LookupCountry(chi.URLParam(r, "code"))
	writeJSON(w, http.StatusOK, countryResponse{Country: c, Known: ok})
}

type containsResponse struct {
	Region     string  `json:"region"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Inside     bool    `json:"inside"`
	Diagnostic string  `json:"diagnostic"`
}

func (a *API) handleContains(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := parseCoordinate(q.Get("lat"), 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat must be a number between -90 and 90")
		return
	}
	lng, err := parseCoordinate(q.Get("lng"), 180)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lng must be a number between -180 and 180")
		return
	}

	region := chi.URLParam(r, "region")
	p := domain.LatLng{Lat: lat, Lng: lng}
	inside, err := a.regions.Locate(p, region)
	if err != nil {
		a.logger.Warn("containment check degraded",
			"region", region,
			"lat", lat,
			"lng", lng,
			"error", err,
		)
	}

	outcome := domain.DiagnosticKind(err)
	if err == nil {
		outcome = "outside"
		if inside {
			outcome = "inside"
		}
	}
	a.metrics.ContainmentQueries.WithLabelValues(outcome).Inc()

	writeJSON(w, http.StatusOK, containsResponse{
		Region:     strings.ToLower(region),
		Lat:        lat,
		Lng:        lng,
		Inside:     inside,
		Diagnostic: domain.DiagnosticKind(err),
	})
}

// parseCoordinate parses a latitude or longitude and checks it against
// [-limit, limit].
func parseCoordinate(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || v < -limit || v > limit {
		return 0, errors.New("coordinate out of range")
	}
	return v, nil
}

type styleResponse struct {
	Layer      string              `json:"layer"`
	Period     domain.Period       `json:"period"`
	Color      string              `json:"color"`
	Style      domain.FeatureStyle `json:"style"`
	Diagnostic string              `json:"diagnostic"`
}

func (a *API) handleStyle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	layer := q.Get("layer")
	period := domain.ParsePeriod(q.Get("time"))

	var value any
	if q.Has("value") {
		value = q.Get("value")
	}
	opacity := 1.0
	if s := q.Get("opacity"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			opacity = v
		}
	}

	color, err := a.classifier.Classify(value, layer, period)
	diagnostic := domain.DiagnosticKind(err)
	a.metrics.Classifications.WithLabelValues(diagnostic).Inc()

	writeJSON(w, http.StatusOK, styleResponse{
		Layer:      layer,
		Period:     period,
		Color:      color,
		Style:      a.classifier.Style(value, layer, period, opacity),
		Diagnostic: diagnostic,
	})
}

func (a *API) handleLegend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	legend, ok := a.classifier.Legend(q.Get("layer"), domain.ParsePeriod(q.Get("time")))
	if !ok {
		writeJSON(w, http.StatusOK, []domain.Legend{})
		return
	}
	writeJSON(w, http.StatusOK, []domain.Legend{legend})
}

func (a *API) handleCSV(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	if !strings.HasSuffix(file, ".csv") {
		http.Error(w, "Invalid file type", http.StatusBadRequest)
		return
	}

	body, err := a.objects.Fetch(r.Context(), file)
	if err != nil {
		var statusErr *objectstore.StatusError
		if errors.As(err, &statusErr) {
			http.Error(w, "Failed to fetch data: "+statusErr.Status, statusErr.Code)
			return
		}
		a.logger.Error("proxying csv failed", "file", file, "error", err)
		http.Error(w, "Server error fetching CSV data", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Cache-Control", "max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck // client may have gone away
}

type seriesResponse struct {
	Country string `json:"country"`
	File    string `json:"file"`
	domain.Series
}

func (a *API) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	layer, scenario := q.Get("layer"), q.Get("scenario")
	country, _ := domain.LookupCountry(q.Get("country"))
	code := domain.LayerCode(layer)
	file := domain.CSVFileName(layer, scenario)

	var rows []domain.Measurement
	body, err := a.objects.Fetch(r.Context(), file)
	if err == nil {
		rows, err = domain.ParseMeasurements(bytes.NewReader(body), code)
	}
	if err != nil {
		a.logger.Warn("series unavailable, serving empty series",
			"file", file,
			"country", country.Code,
			"error", err,
		)
		rows = nil
	}

	series := domain.PrepareSeries(rows)
	if len(series.Points) == 0 {
		series.Meta = domain.ChartMetaFor(code)
		series.Scenario = domain.ScenarioCode(scenario)
	}
	writeJSON(w, http.StatusOK, seriesResponse{Country: country.Code, File: file, Series: series})
}
