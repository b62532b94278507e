// Package metrics holds the process-wide Prometheus registry gate.
//
// Metrics are opt-in: nothing is registered and nothing is collected
// until InitRegistry is called. Constructors in this package return nil
// when metrics are disabled, and the filesystem layer treats a nil
// recorder as a no-op, so a disabled configuration carries zero overhead.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process-wide registry and registers the
// standard Go runtime and process collectors. Calling it twice is a
// no-op.
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()

	if registry != nil {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil when metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Handler returns the HTTP handler serving the /metrics endpoint.
// It panics if metrics are disabled; callers must check IsEnabled first.
func Handler() http.Handler {
	mu.RLock()
	defer mu.RUnlock()

	if registry == nil {
		panic("metrics: Handler called before InitRegistry")
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
