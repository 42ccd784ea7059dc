package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// decode pipeline.
type Metrics struct {
	FilesProcessed  prometheus.Counter
	FilesSkipped    prometheus.Counter // duplicate checksum, already decoded
	FileErrors      prometheus.Counter
	PipelineRunning prometheus.Gauge

	RecordsDecoded  prometheus.Counter
	RecordsRejected prometheus.Counter
	FieldProblems   *prometheus.CounterVec // label: kind={decode_error,unknown_code,trailing_bytes,truncated_section}
	Attachments     *prometheus.CounterVec // label: attachment section id

	DecodeDuration prometheus.Histogram
	FileRecords    prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "imma_etl",
			Name:      "files_processed_total",
			Help:      "Total archive files fully decoded and sealed.",
		}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "imma_etl",
			Name:      "files_skipped_total",
			Help:      "Files skipped because their checksum was already recorded.",
		}),
		FileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "imma_etl",
			Name:      "file_errors_total",
			Help:      "Files that failed to decode or load.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "imma_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		RecordsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "imma_etl",
			Name:      "records_decoded_total",
			Help:      "Total accepted report records.",
		}),
		RecordsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "imma_etl",
			Name:      "records_rejected_total",
			Help:      "Total rejected report lines (truncated core).",
		}),
		FieldProblems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "imma_etl",
			Name:      "record_problems_total",
			Help:      "Non-fatal decode anomalies by kind.",
		}, []string{"kind"}),
		Attachments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "imma_etl",
			Name:      "attachments_detected_total",
			Help:      "Detected attachment sections by id.",
		}, []string{"attachment"}),
		DecodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "imma_etl",
			Name:      "file_decode_duration_seconds",
			Help:      "Duration of a complete file decode, seal, and load.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		FileRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "imma_etl",
			Name:      "file_records",
			Help:      "Accepted records per decoded file.",
			Buckets:   []float64{100, 1000, 10000, 50000, 100000, 500000, 1000000},
		}),
	}

	prometheus.MustRegister(
		m.FilesProcessed,
		m.FilesSkipped,
		m.FileErrors,
		m.PipelineRunning,
		m.RecordsDecoded,
		m.RecordsRejected,
		m.FieldProblems,
		m.Attachments,
		m.DecodeDuration,
		m.FileRecords,
	)

	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FilesProcessed:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "imma_etl", Name: "files_processed_total"}),
		FilesSkipped:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "imma_etl", Name: "files_skipped_total"}),
		FileErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "imma_etl", Name: "file_errors_total"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "imma_etl", Name: "pipeline_running"}),
		RecordsDecoded:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "imma_etl", Name: "records_decoded_total"}),
		RecordsRejected: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "imma_etl", Name: "records_rejected_total"}),
		FieldProblems:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "imma_etl", Name: "record_problems_total"}, []string{"kind"}),
		Attachments:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "imma_etl", Name: "attachments_detected_total"}, []string{"attachment"}),
		DecodeDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "imma_etl", Name: "file_decode_duration_seconds"}),
		FileRecords:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "imma_etl", Name: "file_records"}),
	}
}
