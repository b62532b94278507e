package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for filesystem operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Filesystem attributes
	// ========================================================================
	AttrOperation = "fs.operation" // Generic operation name
	AttrPath      = "fs.path"      // File path
	AttrFilename  = "fs.filename"  // File name (basename)
	AttrSize      = "fs.size"      // File size
	AttrType      = "fs.type"      // File type
	AttrMode      = "fs.mode"      // File mode/permissions
	AttrVnodeNo   = "fs.vnode_no"  // Vnode number within a superblock
	AttrStatus    = "fs.status"    // Operation status code
	AttrStatusMsg = "fs.status_msg"

	// ========================================================================
	// Mount attributes
	// ========================================================================
	AttrFSType     = "mount.fs_type"     // Filesystem type name
	AttrDevice     = "mount.device"      // Backing device id
	AttrMountPoint = "mount.mount_point" // Mount point path

	// ========================================================================
	// Cache attributes
	// ========================================================================
	AttrCacheHit   = "cache.hit"
	AttrComponents = "cache.path_components"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	SpanResolve = "vfs.resolve"
	SpanAcquire = "vfs.acquire"
	SpanRelease = "vfs.release"
	SpanMount   = "vfs.mount"
	SpanUnmount = "vfs.unmount"
	SpanCreate  = "vfs.create"
	SpanMkdir   = "vfs.mkdir"
	SpanMknod   = "vfs.mknod"
)

// FSOperation returns an attribute for a generic operation name
func FSOperation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// FSPath returns an attribute for file path
func FSPath(path string) attribute.KeyValue {
	return attribute.String(AttrPath, path)
}

// FSFilename returns an attribute for filename
func FSFilename(name string) attribute.KeyValue {
	return attribute.String(AttrFilename, name)
}

// FSSize returns an attribute for file size
func FSSize(size uint64) attribute.KeyValue {
	return attribute.Int64(AttrSize, int64(size))
}

// FSType returns an attribute for file type
func FSType(t int) attribute.KeyValue {
	return attribute.Int(AttrType, t)
}

// FSMode returns an attribute for file mode
func FSMode(mode uint32) attribute.KeyValue {
	return attribute.Int64(AttrMode, int64(mode))
}

// FSVnodeNo returns an attribute for a vnode number
func FSVnodeNo(no uint64) attribute.KeyValue {
	return attribute.Int64(AttrVnodeNo, int64(no))
}

// FSStatus returns an attribute for an operation status code
func FSStatus(status int) attribute.KeyValue {
	return attribute.Int(AttrStatus, status)
}

// FSStatusMsg returns an attribute for a human-readable status
func FSStatusMsg(msg string) attribute.KeyValue {
	return attribute.String(AttrStatusMsg, msg)
}

// MountFSType returns an attribute for a filesystem type name
func MountFSType(name string) attribute.KeyValue {
	return attribute.String(AttrFSType, name)
}

// MountDevice returns an attribute for a backing device id
func MountDevice(dev uint64) attribute.KeyValue {
	return attribute.Int64(AttrDevice, int64(dev))
}

// MountPoint returns an attribute for a mount point path
func MountPoint(path string) attribute.KeyValue {
	return attribute.String(AttrMountPoint, path)
}

// CacheHit returns an attribute indicating a path cache hit
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// PathComponents returns an attribute for the component count of a path
func PathComponents(n int) attribute.KeyValue {
	return attribute.Int(AttrComponents, n)
}

// StartVFSSpan starts a span for a filesystem operation with path context.
func StartVFSSpan(ctx context.Context, name, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{FSPath(path)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}

// StartMountSpan starts a span for a mount or unmount operation.
func StartMountSpan(ctx context.Context, name, fsType string, device uint64, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{
		MountFSType(fsType),
		MountDevice(device),
	}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}
