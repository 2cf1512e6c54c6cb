package metrics

import (
	"github.com/marmos91/screening-e2e/pkg/cleanup"
)

// NewCleanupMetrics creates a Prometheus-backed cleanup.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or the
// prometheus package was not linked in. A nil value is accepted by
// cleanup.NewRegistry and cleanup.WithMetrics.
//
// Example usage:
//
//	metrics.InitRegistry()
//	reg := cleanup.NewRegistry(cleanup.Options{Metrics: metrics.NewCleanupMetrics()})
func NewCleanupMetrics() cleanup.Metrics {
	if !IsEnabled() || newPrometheusCleanupMetrics == nil {
		return nil
	}
	return newPrometheusCleanupMetrics()
}

// newPrometheusCleanupMetrics is implemented in pkg/metrics/prometheus.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusCleanupMetrics func() cleanup.Metrics

// RegisterCleanupMetricsConstructor registers the Prometheus cleanup metrics
// constructor. Called by pkg/metrics/prometheus during package initialization.
func RegisterCleanupMetricsConstructor(constructor func() cleanup.Metrics) {
	newPrometheusCleanupMetrics = constructor
}
