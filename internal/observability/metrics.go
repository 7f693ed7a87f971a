package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Dataset loading.
	DatasetLoads        *prometheus.CounterVec // labels: outcome={success,error}
	DatasetLoadDuration prometheus.Histogram
	DatasetRecords      prometheus.Gauge
	DatasetCache        *prometheus.CounterVec // labels: result={hit,miss}
	CacheInvalidations  prometheus.Counter

	// Render passes.
	Renders         *prometheus.CounterVec // labels: outcome={success,invalid,error}
	RenderDuration  prometheus.Histogram
	FilteredRecords prometheus.Histogram

	// View publishing.
	ViewsPublished   *prometheus.CounterVec // labels: outcome={success,error}
	PublishEnabled   prometheus.Gauge
	WebsocketClients prometheus.Gauge
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.DatasetLoads,
		m.DatasetLoadDuration,
		m.DatasetRecords,
		m.DatasetCache,
		m.CacheInvalidations,
		m.Renders,
		m.RenderDuration,
		m.FilteredRecords,
		m.ViewsPublished,
		m.PublishEnabled,
		m.WebsocketClients,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// NewUnregisteredMetrics creates Metrics that no registry exports, for
// one-shot command-line runs.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airquality",
			Name:      "dataset_loads_total",
			Help:      "Dataset acquisitions through the loader, cached or parsed, by outcome.",
		}, []string{"outcome"}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "airquality",
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of acquiring the enriched dataset, including cache hits.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		DatasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airquality",
			Name:      "dataset_records",
			Help:      "Number of records in the most recently loaded dataset.",
		}),
		DatasetCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airquality",
			Name:      "dataset_cache_total",
			Help:      "Dataset cache lookups by result.",
		}, []string{"result"}),
		CacheInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airquality",
			Name:      "cache_invalidations_total",
			Help:      "Times the dataset cache was dropped because inputs changed.",
		}),
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airquality",
			Name:      "renders_total",
			Help:      "Render passes by outcome.",
		}, []string{"outcome"}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "airquality",
			Name:      "render_duration_seconds",
			Help:      "Duration of a filter and aggregate pass.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		FilteredRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "airquality",
			Name:      "filtered_records",
			Help:      "Records matching the selection per render.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 9),
		}),
		ViewsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airquality",
			Name:      "views_published_total",
			Help:      "Rendered views published to Kafka by outcome.",
		}, []string{"outcome"}),
		PublishEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airquality",
			Name:      "publish_enabled",
			Help:      "1 when rendered views are published to Kafka, 0 otherwise.",
		}),
		WebsocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airquality",
			Name:      "websocket_clients",
			Help:      "Open websocket render sessions.",
		}),
	}
}
