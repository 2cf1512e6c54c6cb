package prometheus

import (
	"time"

	"github.com/marmos91/screening-e2e/pkg/metrics"
	"github.com/marmos91/screening-e2e/pkg/snapshot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterSnapshotMetricsConstructor(func() snapshot.Metrics {
		m := NewSnapshotMetrics()
		if m == nil {
			return nil
		}
		return m
	})
}

// snapshotMetrics is the Prometheus implementation of snapshot.Metrics.
type snapshotMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	snapshotBytes     prometheus.Histogram
}

// NewSnapshotMetrics creates a new Prometheus-backed snapshot metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSnapshotMetrics() *snapshotMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &snapshotMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "e2e_snapshot_operations_total",
				Help: "Total number of snapshot operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "e2e_snapshot_operation_duration_seconds",
				Help: "Duration of snapshot operations in seconds",
				Buckets: []float64{
					0.1, // catalog lookups
					1,
					5,   // small dumps
					30,  // 30s
					120, // 2m - full restores
					600, // 10m
				},
			},
			[]string{"operation"},
		),
		snapshotBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "e2e_snapshot_size_bytes",
				Help: "Distribution of snapshot dump sizes",
				Buckets: []float64{
					1048576,    // 1MB
					10485760,   // 10MB
					104857600,  // 100MB
					1073741824, // 1GB
				},
			},
		),
	}
}

func (m *snapshotMetrics) ObserveOperation(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *snapshotMetrics) RecordSize(bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.snapshotBytes.Observe(float64(bytes))
}
