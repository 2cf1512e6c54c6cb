// Package metrics holds the process-wide Prometheus registry and the
// constructors for component metrics.
//
// Metrics are opt-in: until InitRegistry is called every constructor returns
// nil and components fall back to their no-op implementation.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registryMu sync.RWMutex
	registry   *prometheus.Registry
)

// InitRegistry creates the registry. Calling it again keeps the existing one.
func InitRegistry() *prometheus.Registry {
	registryMu.Lock()
	defer registryMu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry != nil
}

// GetRegistry returns the registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry
}

// ResetRegistry drops the registry. Used by tests.
func ResetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = nil
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for node_exporter's textfile collector. It is a no-op
// when metrics are disabled.
func WriteTextfile(path string) error {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
