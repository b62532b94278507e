// Package vfs implements the in-memory metadata layer of the virtual
// filesystem: the filesystem type registry, the superblock registry, the
// dentry (path component) cache, the reference-counted vnode cache, path
// resolution, and the mount/unmount protocol.
//
// The core never performs data I/O itself. It manages identity, naming and
// lifecycle of filesystem objects and delegates all content operations to
// pluggable backend drivers through the operation interfaces defined here.
//
// Two object graphs coexist. The entity graph links filesystem types to
// their superblocks and superblocks to the vnodes loaded from them. The
// naming graph is the dentry table: a fixed-capacity cache of path
// components that anchors mount points and holds non-owning references
// into the entity graph. Vnodes live only while at least one consumer
// holds a reference; dentries are pure cache except for mount points,
// which are pinned until their superblock is unmounted.
package vfs

import (
	"strings"
	"sync/atomic"
)

// DeviceID identifies the device holding a filesystem. One superblock may
// exist per device at any time.
type DeviceID uint64

// NoDevice marks a vnode with no associated device.
const NoDevice DeviceID = 0

// FileType classifies a vnode.
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeRegular
	FileTypeDirectory
	FileTypeCharDevice
	FileTypeBlockDevice
)

// String returns a human-readable name for the file type.
func (t FileType) String() string {
	switch t {
	case FileTypeRegular:
		return "regular"
	case FileTypeDirectory:
		return "directory"
	case FileTypeCharDevice:
		return "chardev"
	case FileTypeBlockDevice:
		return "blockdev"
	default:
		return "unknown"
	}
}

// ============================================================================
// Backend operation interfaces
// ============================================================================

// FilesystemTypeOps is the lifecycle contract a filesystem driver provides
// per registered type.
type FilesystemTypeOps interface {
	// ProbeSuperblock inspects the device behind sb and, if it holds a
	// valid filesystem of this type, populates sb (Ops, RootVnodeNo,
	// geometry, PrivateData).
	ProbeSuperblock(sb *Superblock) error

	// ReleaseSuperblock undoes ProbeSuperblock. It is invoked exactly
	// once before the superblock entry is deallocated.
	ReleaseSuperblock(sb *Superblock) error
}

// SuperblockOps is the per-mount contract installed by ProbeSuperblock.
type SuperblockOps interface {
	// Mount prepares the backend for use. Invoked once per mount, after
	// a successful probe.
	Mount(sb *Superblock) error

	// Unmount flushes and detaches the backend. A failure aborts the
	// unmount; the superblock stays mounted and the call may be retried.
	Unmount(sb *Superblock) error

	// ReadVnode populates v (type, mode, size, operations, private data)
	// from backing storage. v.No and v.Superblock() are set by the core
	// before the call.
	ReadVnode(sb *Superblock, v *Vnode) error

	// WriteVnode persists v's metadata. The core stores this callback
	// for the open-file layer; it does not invoke it itself.
	WriteVnode(sb *Superblock, v *Vnode) error

	// DestroyVnode releases backend state attached to v. Invoked when
	// the reference count decays to zero, and to undo a ReadVnode whose
	// cache insertion failed.
	DestroyVnode(sb *Superblock, v *Vnode) error
}

// InodeOps are the directory-level operations of a vnode.
type InodeOps interface {
	// Lookup searches dir for entry.Name() and, on success, records the
	// resulting vnode number on entry via SetVnodeNo.
	Lookup(dir *Vnode, entry *Dentry) error

	// Create makes a regular file named entry.Name() inside dir. v is a
	// preallocated, uncached vnode with No == 0; the backend assigns the
	// number and populates it.
	Create(dir *Vnode, entry *Dentry, v *Vnode, mode uint32) error

	// Mkdir makes a directory, with the same vnode contract as Create.
	Mkdir(dir *Vnode, entry *Dentry, v *Vnode, mode uint32) error

	// Mknod makes a device node, with the same vnode contract as Create.
	Mknod(dir *Vnode, entry *Dentry, v *Vnode, mode uint32, dev DeviceID) error
}

// FileOps are the per-open operations of a vnode. The core stores them for
// the open-file layer built on top of it; it never invokes them.
type FileOps interface {
	Open(v *Vnode) error
	Release(v *Vnode) error
	Read(v *Vnode, p []byte, off int64) (int, error)
	Write(v *Vnode, p []byte, off int64) (int, error)
	Seek(v *Vnode, offset int64, whence int) (int64, error)
	Ioctl(v *Vnode, cmd uint64, arg any) error
}

// ============================================================================
// Entities
// ============================================================================

// FilesystemType is a registered filesystem driver, identified by name.
// Types are never unregistered.
type FilesystemType struct {
	// Ops is installed by the registration-time configure callback.
	Ops FilesystemTypeOps

	name string
}

// Name returns the unique type name (e.g. "memfs", "badgerfs").
func (ft *FilesystemType) Name() string { return ft.name }

// ConfigureFunc is invoked during RegisterFilesystemType with the freshly
// allocated type entry. It installs Ops and may perform arbitrary driver
// setup; a failure rolls the registration back.
type ConfigureFunc func(ft *FilesystemType) error

type sbState int

const (
	sbUnused sbState = iota
	sbMounted
)

// Superblock is the per-device record of filesystem-wide configuration and
// backend callbacks. It exists from mount until a successful unmount
// deallocates it.
type Superblock struct {
	// Geometry, populated by the probe callback.
	BlockSize   uint32
	Blocks      uint64
	MaxFileSize uint64

	// Ops is installed by the probe callback.
	Ops SuperblockOps

	// RootVnodeNo is the vnode number of the filesystem root directory.
	RootVnodeNo uint64

	// PrivateData is opaque driver state.
	PrivateData any

	deviceID   DeviceID
	fsType     *FilesystemType
	state      sbState
	mountPoint *Dentry
}

// DeviceID returns the device this superblock was read from.
func (sb *Superblock) DeviceID() DeviceID { return sb.deviceID }

// FilesystemType returns the type that probed this superblock, nil until
// the mount protocol links them.
func (sb *Superblock) FilesystemType() *FilesystemType { return sb.fsType }

// Mounted reports whether the superblock is in the mounted state.
func (sb *Superblock) Mounted() bool { return sb.state == sbMounted }

// MountPoint returns the dentry this superblock is mounted on, nil when
// not mounted.
func (sb *Superblock) MountPoint() *Dentry { return sb.mountPoint }

// Dentry is a cached path component: a (parent, name) pair resolving to a
// vnode number. Dentries live in a fixed slot table and are evicted with a
// least-frequently-used policy, except mount points, which are pinned.
type Dentry struct {
	name    string
	vnodeNo uint64
	count   uint64

	parent  *Dentry
	sb      *Superblock // superblock this entry belongs to; nil for the root
	mountSB *Superblock // superblock mounted on this entry, if a mount point
}

// Name returns the path component this entry caches. Empty for free slots.
func (d *Dentry) Name() string { return d.name }

// VnodeNo returns the vnode number this entry resolves to; 0 means the
// entry has not been resolved by a backend lookup yet.
func (d *Dentry) VnodeNo() uint64 { return d.vnodeNo }

// SetVnodeNo records the resolved vnode number. Called by backend Lookup,
// Create, Mkdir and Mknod implementations.
func (d *Dentry) SetVnodeNo(no uint64) { d.vnodeNo = no }

// Parent returns the parent entry; nil only for the root dentry.
func (d *Dentry) Parent() *Dentry { return d.parent }

// Superblock returns the superblock this entry belongs to. The root dentry
// belongs to no superblock of its own.
func (d *Dentry) Superblock() *Superblock { return d.sb }

// MountedSuperblock returns the superblock mounted on this entry, or nil.
func (d *Dentry) MountedSuperblock() *Superblock { return d.mountSB }

// IsMountPoint reports whether a superblock is mounted on this entry.
func (d *Dentry) IsMountPoint() bool { return d.mountSB != nil }

// Frequency returns the LFU counter used by the eviction policy.
func (d *Dentry) Frequency() uint64 { return d.count }

func (d *Dentry) occupied() bool { return d.name != "" }

// Path reconstructs the absolute path of this entry by walking the parent
// chain. Intended for introspection and logging only.
func (d *Dentry) Path() string {
	if d.parent == nil {
		return "/"
	}
	var parts []string
	for e := d; e != nil && e.parent != nil; e = e.parent {
		parts = append(parts, e.name)
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String()
}

// Vnode is the in-memory identity of a file: its metadata and the backend
// operations that act on it, independent of any open-file state. A vnode
// exists in the cache only while its reference count is at least one.
type Vnode struct {
	// No is the vnode number, unique within a superblock. 0 denotes a
	// not-yet-persisted identity used transiently during creation.
	No uint64

	// Metadata populated by ReadVnode or a create operation.
	Type FileType
	Mode uint32
	Size uint64
	Dev  DeviceID

	// IOps and FOps are installed by the backend. FOps are stored for
	// the open-file layer and never invoked by the core.
	IOps InodeOps
	FOps FileOps

	// PrivateData is opaque driver state.
	PrivateData any

	sb   *Superblock
	refs atomic.Int64
}

// Superblock returns the superblock this vnode belongs to.
func (v *Vnode) Superblock() *Superblock { return v.sb }

// RefCount returns the current reference count.
func (v *Vnode) RefCount() int64 { return v.refs.Load() }

// IsDir reports whether the vnode is a directory.
func (v *Vnode) IsDir() bool { return v.Type == FileTypeDirectory }

// vnodeKey identifies a vnode in the cache.
type vnodeKey struct {
	sb *Superblock
	no uint64
}

// ============================================================================
// Introspection
// ============================================================================

// MountInfo describes one active mount.
type MountInfo struct {
	Device         DeviceID
	FilesystemType string
	Path           string
	RootVnodeNo    uint64
}

// Stats is a point-in-time snapshot of the core's tables.
type Stats struct {
	DentriesInUse   int
	DentryCapacity  int
	MountPoints     int
	Vnodes          int
	Superblocks     int
	FilesystemTypes int
}
