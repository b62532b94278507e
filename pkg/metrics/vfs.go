package metrics

import (
	"github.com/corevfs/corevfs/pkg/vfs"
)

// NewVFSMetrics creates a Prometheus-backed vfs.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// The filesystem layer treats a nil recorder as a no-op, so disabled
// metrics cost nothing.
//
// Example usage:
//
//	metrics.InitRegistry()
//	v := vfs.New(vfs.Options{Metrics: metrics.NewVFSMetrics()})
func NewVFSMetrics() vfs.Metrics {
	if !IsEnabled() || newPrometheusVFSMetrics == nil {
		return nil
	}
	return newPrometheusVFSMetrics()
}

// newPrometheusVFSMetrics is implemented in pkg/metrics/prometheus/vfs.go.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusVFSMetrics func() vfs.Metrics

// RegisterVFSMetricsConstructor registers the Prometheus vfs metrics
// constructor. Called by pkg/metrics/prometheus/vfs.go during package
// initialization.
func RegisterVFSMetricsConstructor(constructor func() vfs.Metrics) {
	newPrometheusVFSMetrics = constructor
}
