// Package metrics exposes dittoauth's Prometheus instrumentation.
//
// dittoauth is a short-lived process, so nothing is scraped. Instead the
// registry is written to a node_exporter textfile collector file when the
// process exits (see WriteTextfile). Metrics are off until InitRegistry is
// called; every constructor returns nil while disabled and every helper
// accepts a nil implementation, so disabled metrics cost nothing.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process registry and enables metrics.
// Calling it again returns the existing registry.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return registry
}

// GetRegistry returns the process registry, or nil when disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// Reset disables metrics and drops the registry.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
}

// WriteTextfile atomically writes the registry in text exposition format
// to path, for the node_exporter textfile collector. It is a no-op while
// metrics are disabled.
func WriteTextfile(path string) error {
	reg := GetRegistry()
	if reg == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
