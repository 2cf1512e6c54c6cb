// Package prometheus implements component metrics on client_golang.
// Importing it registers the constructors used by pkg/metrics.
package prometheus

import (
	"strconv"
	"time"

	"github.com/marmos91/screening-e2e/pkg/cleanup"
	"github.com/marmos91/screening-e2e/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterCleanupMetricsConstructor(func() cleanup.Metrics {
		m := NewCleanupMetrics()
		if m == nil {
			return nil
		}
		return m
	})
}

// cleanupMetrics is the Prometheus implementation of cleanup.Metrics.
type cleanupMetrics struct {
	deletesTotal   *prometheus.CounterVec
	deleteDuration *prometheus.HistogramVec
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	decisionsTotal *prometheus.CounterVec
	tracked        *prometheus.GaugeVec
}

// NewCleanupMetrics creates a new Prometheus-backed cleanup metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewCleanupMetrics() *cleanupMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &cleanupMetrics{
		deletesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "e2e_cleanup_deletes_total",
				Help: "Total number of entity delete attempts by kind and outcome",
			},
			[]string{"kind", "outcome"}, // outcome: deleted, not_found, error
		),
		deleteDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "e2e_cleanup_delete_duration_milliseconds",
				Help: "Duration of entity delete requests in milliseconds",
				Buckets: []float64{
					5,     // local fake API
					25,    // same-region API
					100,   // 100ms
					250,   // 250ms
					1000,  // 1s - slow cascade deletes
					5000,  // 5s
					30000, // 30s - request timeout territory
				},
			},
			[]string{"kind"},
		),
		runsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "e2e_cleanup_runs_total",
				Help: "Total number of cleanup runs by outcome",
			},
			[]string{"outcome"}, // completed, partial, skipped, auth_failed
		),
		runDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "e2e_cleanup_run_duration_milliseconds",
				Help:    "Duration of cleanup runs in milliseconds",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 60000},
			},
		),
		decisionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "e2e_cleanup_decisions_total",
				Help: "Total number of cleanup policy decisions by policy and decision",
			},
			[]string{"policy", "cleanup"},
		),
		tracked: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "e2e_cleanup_tracked_entities",
				Help: "Entities currently tracked and not yet cleaned up, by kind",
			},
			[]string{"kind"},
		),
	}
}

func (m *cleanupMetrics) ObserveDelete(kind cleanup.Kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.deletesTotal.WithLabelValues(string(kind), outcome).Inc()
	m.deleteDuration.WithLabelValues(string(kind)).Observe(d.Seconds() * 1000)
}

func (m *cleanupMetrics) ObserveRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
	// Skipped runs do no work; keep them out of the latency distribution.
	if outcome != cleanup.RunSkipped {
		m.runDuration.Observe(d.Seconds() * 1000)
	}
}

func (m *cleanupMetrics) ObserveDecision(policy cleanup.Policy, clean bool) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(policy.String(), strconv.FormatBool(clean)).Inc()
}

func (m *cleanupMetrics) SetTracked(kind cleanup.Kind, n int) {
	if m == nil {
		return
	}
	m.tracked.WithLabelValues(string(kind)).Set(float64(n))
}
