// Package metrics exposes Prometheus instrumentation for ingest runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every ingest metric.
const Namespace = "ingest"

// Metrics holds the run instrumentation. A nil *Metrics records nothing.
type Metrics struct {
	FetchFailures *prometheus.CounterVec
	Records       *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	LastRunTime   prometheus.Gauge
}

// New creates the ingest metrics and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FetchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "fetch_failures_total",
				Help:      "Sources skipped because their fetch returned no content",
			},
			[]string{"source_type"},
		),
		Records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "records_total",
				Help:      "Extracted records by reconciliation outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of one ingest run",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s to ~2min
			},
		),
		LastRunTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last ingest run finished",
			},
		),
	}
}

func (m *Metrics) FetchFailed(sourceType string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(sourceType).Inc()
}

func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RunFinished(started, finished time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(finished.Sub(started).Seconds())
	m.LastRunTime.Set(float64(finished.Unix()))
}
