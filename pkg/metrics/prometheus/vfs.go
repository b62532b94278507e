// Package prometheus provides the Prometheus implementations of the
// metrics interfaces consumed by the filesystem layer.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/corevfs/corevfs/pkg/metrics"
	"github.com/corevfs/corevfs/pkg/vfs"
)

func init() {
	metrics.RegisterVFSMetricsConstructor(NewVFSMetrics)
}

// vfsMetrics is the Prometheus implementation of vfs.Metrics.
type vfsMetrics struct {
	dentryLookups     *prometheus.CounterVec
	dentryEvictions   prometheus.Counter
	vnodeLoads        *prometheus.CounterVec
	vnodeDestroys     *prometheus.CounterVec
	mountOperations   *prometheus.CounterVec
	resolveDuration   prometheus.Histogram
	resolveComponents prometheus.Histogram
}

// NewVFSMetrics creates a new Prometheus-backed vfs.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewVFSMetrics() vfs.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &vfsMetrics{
		dentryLookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "corevfs_dentry_lookups_total",
				Help: "Total number of dentry cache lookups by status",
			},
			[]string{"status"}, // "hit", "miss"
		),
		dentryEvictions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "corevfs_dentry_evictions_total",
				Help: "Total number of dentry cache evictions",
			},
		),
		vnodeLoads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "corevfs_vnode_loads_total",
				Help: "Total number of vnodes loaded from backends by filesystem type",
			},
			[]string{"fs_type"},
		),
		vnodeDestroys: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "corevfs_vnode_destroys_total",
				Help: "Total number of vnodes destroyed after their last release by filesystem type",
			},
			[]string{"fs_type"},
		),
		mountOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "corevfs_mount_operations_total",
				Help: "Total number of successful mount and unmount operations",
			},
			[]string{"operation", "fs_type"}, // operation: "mount", "unmount"
		),
		resolveDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "corevfs_resolve_duration_milliseconds",
				Help: "Duration of path resolutions in milliseconds",
				Buckets: []float64{
					0.001, // 1us - pure cache hits
					0.01,  // 10us
					0.1,   // 100us
					1,     // 1ms - backend lookups
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s
				},
			},
		),
		resolveComponents: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "corevfs_resolve_path_components",
				Help:    "Distribution of path component counts per resolution",
				Buckets: []float64{1, 2, 4, 8, 16, 32},
			},
		),
	}
}

func (m *vfsMetrics) RecordDentryHit() {
	m.dentryLookups.WithLabelValues("hit").Inc()
}

func (m *vfsMetrics) RecordDentryMiss() {
	m.dentryLookups.WithLabelValues("miss").Inc()
}

func (m *vfsMetrics) RecordDentryEviction() {
	m.dentryEvictions.Inc()
}

func (m *vfsMetrics) RecordVnodeLoad(fsType string) {
	m.vnodeLoads.WithLabelValues(fsType).Inc()
}

func (m *vfsMetrics) RecordVnodeDestroy(fsType string) {
	m.vnodeDestroys.WithLabelValues(fsType).Inc()
}

func (m *vfsMetrics) RecordMount(fsType string) {
	m.mountOperations.WithLabelValues("mount", fsType).Inc()
}

func (m *vfsMetrics) RecordUnmount(fsType string) {
	m.mountOperations.WithLabelValues("unmount", fsType).Inc()
}

func (m *vfsMetrics) ObserveResolve(duration time.Duration, components int) {
	m.resolveDuration.Observe(duration.Seconds() * 1000)
	m.resolveComponents.Observe(float64(components))
}
