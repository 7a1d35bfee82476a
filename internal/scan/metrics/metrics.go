// Package metrics provides observability for the aggregation scheduler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the scheduler's Prometheus instruments.
type Metrics struct {
	// Adapter call latencies by detection source.
	AdapterLatency *prometheus.HistogramVec

	// Work item outcomes by source and result (match, clean, failure, cache_hit).
	ItemOutcome *prometheus.CounterVec

	// Full scan duration including merge and scoring.
	ScanDuration prometheus.Histogram

	// Completed scans.
	ScansTotal prometheus.Counter
}

// New creates and registers the scheduler metrics.
func New() *Metrics {
	return &Metrics{
		AdapterLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exposurescan_adapter_duration_seconds",
			Help:    "Duration of adapter queries by detection source",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),

		ItemOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "exposurescan_work_items_total",
			Help: "Work item outcomes by detection source and result",
		}, []string{"source", "result"}),

		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "exposurescan_scan_duration_seconds",
			Help:    "Duration of full scans including merge and scoring",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		ScansTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "exposurescan_scans_total",
			Help: "Total completed scans",
		}),
	}
}

// ObserveAdapterLatency records one adapter call duration.
func (m *Metrics) ObserveAdapterLatency(source string, d time.Duration) {
	if m != nil {
		m.AdapterLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// IncrementItem records one work item outcome.
func (m *Metrics) IncrementItem(source, result string) {
	if m != nil {
		m.ItemOutcome.WithLabelValues(source, result).Inc()
	}
}

// ObserveScan records one completed scan.
func (m *Metrics) ObserveScan(d time.Duration) {
	if m != nil {
		m.ScanDuration.Observe(d.Seconds())
		m.ScansTotal.Inc()
	}
}
