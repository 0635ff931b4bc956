package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate_map"

// Metrics holds the Prometheus counters, histograms, and gauges for the map service.
type Metrics struct {
	// Climate API metrics.
	FetchRequests *prometheus.CounterVec   // labels: endpoint, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: endpoint

	// Country resolution metrics.
	UnresolvedFeatures prometheus.Gauge
	ResolverCache      *prometheus.CounterVec // labels: result={hit,miss}

	// Map state metrics.
	Redraws        *prometheus.CounterVec // labels: trigger={load,year,metric,zoom,hover,leave}
	StaleResponses *prometheus.CounterVec // labels: operation={load,year,metric}
	MapPhase       prometheus.Gauge

	// Output metrics.
	SnapshotsPublished prometheus.Counter
	SnapshotErrors     prometheus.Counter
	ChartRenders       *prometheus.CounterVec // labels: chart, outcome={success,error}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.UnresolvedFeatures,
		m.ResolverCache,
		m.Redraws,
		m.StaleResponses,
		m.MapPhase,
		m.SnapshotsPublished,
		m.SnapshotErrors,
		m.ChartRenders,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can build as many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      help("Climate API requests by endpoint and outcome."),
		}, []string{"endpoint", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      help("Climate API request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		UnresolvedFeatures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unresolved_features",
			Help:      help("Map features with no matching country in the current metadata."),
		}),
		ResolverCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_cache_total",
			Help:      help("Country resolver cache lookups by result."),
		}, []string{"result"}),
		Redraws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redraws_total",
			Help:      help("Map frames produced by trigger."),
		}, []string{"trigger"}),
		StaleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      help("Fetch results discarded because a newer request superseded them."),
		}, []string{"operation"}),
		MapPhase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "map_phase",
			Help:      help("Current map lifecycle phase: 0 uninitialized, 1 metadata loaded, 2 series loaded, 3 drawn."),
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      help("Map snapshots written to Kafka."),
		}),
		SnapshotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      help("Map snapshots that failed to publish."),
		}),
		ChartRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_renders_total",
			Help:      help("Chart renders by chart and outcome."),
		}, []string{"chart", "outcome"}),
	}
}
