package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate_atlas"

// Metrics holds the Prometheus counters, histograms, and gauges for the atlas
// service and its feature-styling pipeline.
type Metrics struct {
	// Pipeline metrics.
	FeaturesConsumed prometheus.Counter
	FeaturesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Classification metrics.
	ContainmentQueries *prometheus.CounterVec // labels: outcome={inside,outside,unknown_region,malformed_geometry}
	Classifications    *prometheus.CounterVec // labels: outcome={ok,unclassified_metric,non_numeric_value}
	RegionsLoaded      prometheus.Gauge

	// Object store metrics.
	ObjectStoreRequests *prometheus.CounterVec // labels: outcome={success,error,not_found,breaker_open}
	ObjectStoreCache    *prometheus.CounterVec // labels: result={hit,miss}
	ObjectStoreDuration prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		FeaturesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_consumed_total",
			Help:      "Total data-layer features read by the pipeline.",
		}),
		FeaturesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_produced_total",
			Help:      "Total styled features written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total features rejected during styling.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when stopped.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of features per extracted batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ContainmentQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "containment_queries_total",
			Help:      "Point-in-region queries by outcome.",
		}, []string{"outcome"}),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Value-to-color classifications by outcome.",
		}, []string{"outcome"}),
		RegionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "regions_loaded",
			Help:      "Number of region boundaries indexed at startup.",
		}),
		ObjectStoreRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_store_requests_total",
			Help:      "Object store fetches by outcome.",
		}, []string{"outcome"}),
		ObjectStoreCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_store_cache_total",
			Help:      "Object store cache lookups by result.",
		}, []string{"result"}),
		ObjectStoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "object_store_request_duration_seconds",
			Help:      "Object store request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FeaturesConsumed,
		m.FeaturesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.ContainmentQueries,
		m.Classifications,
		m.RegionsLoaded,
		m.ObjectStoreRequests,
		m.ObjectStoreCache,
		m.ObjectStoreDuration,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
