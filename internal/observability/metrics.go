package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for ingestion and views.
type Metrics struct {
	FilesIngested     prometheus.Counter
	FilesFailed       *prometheus.CounterVec // labels: reason={malformed,read,append,remove}
	RowsAppended      prometheus.Counter
	RowsDropped       *prometheus.CounterVec // labels: reason={date,radar,duplicate,window}
	IngestRunning     prometheus.Gauge
	IngestRunDuration prometheus.Histogram
	FileDuration      prometheus.Histogram

	// View metrics.
	ViewRequests    *prometheus.CounterVec // labels: group
	ViewCache       *prometheus.CounterVec // labels: result={hit,miss}
	OutliersFlagged prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.FilesIngested,
		m.FilesFailed,
		m.RowsAppended,
		m.RowsDropped,
		m.IngestRunning,
		m.IngestRunDuration,
		m.FileDuration,
		m.ViewRequests,
		m.ViewCache,
		m.OutliersFlagged,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "files_ingested_total",
			Help:      "Source files appended to the store and removed from intake.",
		}),
		FilesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "files_failed_total",
			Help:      "Source files whose ingestion was aborted, by reason.",
		}, []string{"reason"}),
		RowsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "rows_appended_total",
			Help:      "Normalized rows committed to the store.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "rows_dropped_total",
			Help:      "Raw rows discarded during normalization, by reason.",
		}, []string{"reason"}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "radar_etl",
			Name:      "ingest_running",
			Help:      "1 while an ingestion run is in progress.",
		}),
		IngestRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radar_etl",
			Name:      "ingest_run_duration_seconds",
			Help:      "Duration of a complete pass over the intake directory.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radar_etl",
			Name:      "file_ingest_duration_seconds",
			Help:      "Duration of read, normalize, append and remove for one file.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		ViewRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "view_requests_total",
			Help:      "Series views built, by metric group.",
		}, []string{"group"}),
		ViewCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "view_cache_total",
			Help:      "View cache lookups by result.",
		}, []string{"result"}),
		OutliersFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "outliers_flagged_total",
			Help:      "Values flagged by the IQR rule across built views.",
		}),
	}
}
