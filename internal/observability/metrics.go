package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hotspot_etl"

// Drop reasons used as the "reason" label on RowsDropped.
const (
	DropInvalidDate  = "invalid_date"
	DropInvalidCoord = "invalid_coordinate"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a pipeline run.
// Batch runs never expose an endpoint; the registry is flushed to a
// node-exporter textfile at exit (see WriteTextfile).
type Metrics struct {
	FilesRead   *prometheus.CounterVec // labels: encoding={utf-8,iso-8859-1}
	RowsRead    *prometheus.CounterVec // labels: source
	RowsDropped *prometheus.CounterVec // labels: reason={invalid_date,invalid_coordinate}
	RowsWritten prometheus.Counter

	AnomaliesFlagged *prometheus.CounterVec // labels: group
	DegenerateGroups prometheus.Counter

	ArtifactsWritten *prometheus.CounterVec // labels: kind={table,chart,parquet,kafka,sql}
	StageDuration    *prometheus.HistogramVec

	LastSuccess prometheus.Gauge

	registry *prometheus.Registry
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_read_total",
			Help:      "Source CSV files read, by the encoding that decoded them.",
		}, []string{"encoding"}),
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Raw rows read per source file.",
		}, []string{"source"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows removed during cleaning, by reason.",
		}, []string{"reason"}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to the consolidated dataset.",
		}),
		AnomaliesFlagged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_flagged_total",
			Help:      "Days flagged as anomalous, by group.",
		}, []string{"group"}),
		DegenerateGroups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_groups_total",
			Help:      "Groups whose daily counts had a zero median absolute deviation.",
		}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "Report artifacts produced, by kind.",
		}, []string{"kind"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FilesRead,
		m.RowsRead,
		m.RowsDropped,
		m.RowsWritten,
		m.AnomaliesFlagged,
		m.DegenerateGroups,
		m.ArtifactsWritten,
		m.StageDuration,
		m.LastSuccess,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(m.collectors()...)
	return m
}

// WriteTextfile writes the current metric values to path in the Prometheus
// text exposition format. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	var g prometheus.Gatherer = prometheus.DefaultGatherer
	if m.registry != nil {
		g = m.registry
	}
	return prometheus.WriteToTextfile(path, g)
}
