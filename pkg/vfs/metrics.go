package vfs

import (
	"time"
)

// Metrics provides observability for the VFS core.
//
// Implementations can collect counters for dentry cache behavior, vnode
// lifecycle and mount activity. This is optional; when the VFS is created
// without a Metrics implementation, collection is skipped entirely.
//
// Example implementations:
//   - Prometheus metrics (pkg/metrics/prometheus)
//   - In-memory counters for testing
type Metrics interface {
	// RecordDentryHit records a dentry cache hit.
	RecordDentryHit()

	// RecordDentryMiss records a dentry cache miss (a new entry was
	// allocated).
	RecordDentryMiss()

	// RecordDentryEviction records the eviction of an occupied,
	// non-mount-point dentry slot.
	RecordDentryEviction()

	// RecordVnodeLoad records a vnode loaded from a backend.
	RecordVnodeLoad(fsType string)

	// RecordVnodeDestroy records a vnode destroyed after its reference
	// count decayed to zero.
	RecordVnodeDestroy(fsType string)

	// RecordMount records a successful mount.
	RecordMount(fsType string)

	// RecordUnmount records a successful unmount.
	RecordUnmount(fsType string)

	// ObserveResolve records a completed path resolution.
	ObserveResolve(duration time.Duration, components int)
}

func (v *VFS) recordDentryHit() {
	if v.metrics != nil {
		v.metrics.RecordDentryHit()
	}
}

func (v *VFS) recordDentryMiss() {
	if v.metrics != nil {
		v.metrics.RecordDentryMiss()
	}
}

func (v *VFS) recordDentryEviction() {
	if v.metrics != nil {
		v.metrics.RecordDentryEviction()
	}
}

func (v *VFS) recordVnodeLoad(sb *Superblock) {
	if v.metrics != nil {
		v.metrics.RecordVnodeLoad(fsTypeName(sb))
	}
}

func (v *VFS) recordVnodeDestroy(sb *Superblock) {
	if v.metrics != nil {
		v.metrics.RecordVnodeDestroy(fsTypeName(sb))
	}
}

func fsTypeName(sb *Superblock) string {
	if sb != nil && sb.fsType != nil {
		return sb.fsType.name
	}
	return "unknown"
}

func (v *VFS) observeResolve(start time.Time, components int) {
	if v.metrics != nil {
		v.metrics.ObserveResolve(time.Since(start), components)
	}
}
