package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dirty_nairobi"

// Metrics holds the Prometheus counters, histograms, and gauges for the map engine
// and the feeds around it.
type Metrics struct {
	// Marker reconciliation.
	Reconciliations   prometheus.Counter
	MarkersCreated    prometheus.Counter
	MarkersRemoved    prometheus.Counter
	MarkersMoved      prometheus.Counter
	ReportsSkipped    *prometheus.CounterVec // labels: reason={invalid_geometry,duplicate}
	LiveMarkers       prometheus.Gauge
	ReconcileDuration prometheus.Histogram

	// Surface and interaction.
	SurfaceMounted  prometheus.Gauge
	Clusters        prometheus.Gauge
	ViewportChanges *prometheus.CounterVec // labels: policy={recenter,fit,unchanged}
	Selections      *prometheus.CounterVec // labels: channel={marker,popup}
	TileLoads       *prometheus.CounterVec // labels: outcome={loaded,failed}

	// Report feed.
	PipelineRunning    prometheus.Gauge
	SnapshotsApplied   *prometheus.CounterVec // labels: source={api,kafka}
	SnapshotsUnchanged *prometheus.CounterVec // labels: source={api,kafka}
	SourceErrors       *prometheus.CounterVec // labels: source={api,kafka}

	// Thumbnail checks.
	ImageChecks        *prometheus.CounterVec // labels: outcome={ok,broken,error}
	ImageCache         *prometheus.CounterVec // labels: result={hit,miss}
	ImageCheckDuration prometheus.Histogram

	SelectionsPublished *prometheus.CounterVec // labels: outcome={success,error,dropped}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Reconciliations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Report lists reconciled into the marker set.",
		}),
		MarkersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_created_total",
			Help:      "Markers created for newly present reports.",
		}),
		MarkersRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_removed_total",
			Help:      "Markers destroyed because their report left the list.",
		}),
		MarkersMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_moved_total",
			Help:      "Persisting markers whose report coordinates changed.",
		}),
		ReportsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_skipped_total",
			Help:      "Reports left without a marker, by reason.",
		}, []string{"reason"}),
		LiveMarkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_markers",
			Help:      "Markers currently on the map surface.",
		}),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of one reconciliation including the viewport update.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		SurfaceMounted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "surface_mounted",
			Help:      "1 while a map surface is live, 0 otherwise.",
		}),
		Clusters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clusters",
			Help:      "Clusters at the current zoom as of the last computation.",
		}),
		ViewportChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "viewport_decisions_total",
			Help:      "Viewport controller decisions by policy.",
		}, []string{"policy"}),
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Reports dispatched to the selection callback, by channel.",
		}, []string{"channel"}),
		TileLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tile_loads_total",
			Help:      "Prefetched map tiles by outcome.",
		}, []string{"outcome"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the report feed is active, 0 when shut down.",
		}),
		SnapshotsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_applied_total",
			Help:      "Report list snapshots applied to the map, by source.",
		}, []string{"source"}),
		SnapshotsUnchanged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_unchanged_total",
			Help:      "Report list snapshots identical to the last applied one, by source.",
		}, []string{"source"}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Failed report list fetches, by source.",
		}, []string{"source"}),
		ImageChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_checks_total",
			Help:      "Thumbnail availability checks by outcome.",
		}, []string{"outcome"}),
		ImageCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_cache_total",
			Help:      "Thumbnail check cache lookups by result.",
		}, []string{"result"}),
		ImageCheckDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_check_duration_seconds",
			Help:      "Thumbnail HEAD request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SelectionsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_published_total",
			Help:      "Selections written to Kafka by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Reconciliations,
		m.MarkersCreated,
		m.MarkersRemoved,
		m.MarkersMoved,
		m.ReportsSkipped,
		m.LiveMarkers,
		m.ReconcileDuration,
		m.SurfaceMounted,
		m.Clusters,
		m.ViewportChanges,
		m.Selections,
		m.TileLoads,
		m.PipelineRunning,
		m.SnapshotsApplied,
		m.SnapshotsUnchanged,
		m.SourceErrors,
		m.ImageChecks,
		m.ImageCache,
		m.ImageCheckDuration,
		m.SelectionsPublished,
	}
}
