package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// batch ETL run. They are scraped through the monitor server when one is
// configured, and they give tests a single place to assert row accounting.
type Metrics struct {
	FilesProcessed    prometheus.Counter
	RowsRead          prometheus.Counter
	RowsDropped       prometheus.Counter // duration-outlier filter removals
	TimestampFailures prometheus.Counter

	BlocksProcessed         prometheus.Counter
	BlockProcessingDuration prometheus.Histogram

	PipelineRunning prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesProcessed,
		m.RowsRead,
		m.RowsDropped,
		m.TimestampFailures,
		m.BlocksProcessed,
		m.BlockProcessingDuration,
		m.PipelineRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trip_etl",
			Name:      "files_processed_total",
			Help:      "Source CSV files read and normalized.",
		}),
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trip_etl",
			Name:      "rows_read_total",
			Help:      "Data rows read across all source files.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trip_etl",
			Name:      "rows_dropped_total",
			Help:      "Rows removed by the duration-outlier filter.",
		}),
		TimestampFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trip_etl",
			Name:      "timestamp_parse_failures_total",
			Help:      "Rows whose start or end timestamp matched no layout.",
		}),
		BlocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trip_etl",
			Name:      "blocks_processed_total",
			Help:      "Row blocks transformed.",
		}),
		BlockProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trip_etl",
			Name:      "block_processing_duration_seconds",
			Help:      "Duration of a single block transformation.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trip_etl",
			Name:      "pipeline_running",
			Help:      "1 while the batch run is active, 0 when finished.",
		}),
	}
}
