package metrics

import (
	"github.com/marmos91/screening-e2e/pkg/snapshot"
)

// NewSnapshotMetrics creates a Prometheus-backed snapshot.Metrics.
//
// Returns nil if metrics are not enabled. When nil is returned, callers
// should pass nil to snapshot.NewManager, which results in zero overhead.
func NewSnapshotMetrics() snapshot.Metrics {
	if !IsEnabled() || newPrometheusSnapshotMetrics == nil {
		return nil
	}
	return newPrometheusSnapshotMetrics()
}

var newPrometheusSnapshotMetrics func() snapshot.Metrics

// RegisterSnapshotMetricsConstructor registers the Prometheus snapshot
// metrics constructor.
func RegisterSnapshotMetricsConstructor(constructor func() snapshot.Metrics) {
	newPrometheusSnapshotMetrics = constructor
}
