package vfs

import (
	"sync"
)

// Default table limits, matching the original system constants.
const (
	DefaultMaxDentries = 100
	DefaultMaxVnodes   = 1024
)

// Options configures a VFS instance.
type Options struct {
	// MaxDentries is the fixed capacity of the dentry slot table.
	// Defaults to DefaultMaxDentries.
	MaxDentries int

	// MaxVnodes bounds the vnode cache. Defaults to DefaultMaxVnodes.
	MaxVnodes int

	// Metrics receives cache and mount observations. Optional; nil
	// disables collection with zero overhead.
	Metrics Metrics
}

// VFS is the top-level context owning all mutable VFS state: the
// filesystem type registry, the superblock registry, the dentry slot table
// and the vnode cache. It is constructed once and lives for the lifetime
// of the system.
//
// A single mutex serializes every mutating operation. Backend callbacks
// run with the lock held and must not re-enter the VFS.
type VFS struct {
	mu sync.Mutex

	fsTypes     map[string]*FilesystemType
	superblocks map[DeviceID]*Superblock
	dentries    []Dentry
	vnodes      map[vnodeKey]*Vnode

	// root is the dentry everything hangs from; nil until the first
	// mount at "/" succeeds.
	root *Dentry

	maxVnodes int
	metrics   Metrics
}

// New creates an empty VFS with the given options.
func New(opts Options) *VFS {
	if opts.MaxDentries <= 0 {
		opts.MaxDentries = DefaultMaxDentries
	}
	if opts.MaxVnodes <= 0 {
		opts.MaxVnodes = DefaultMaxVnodes
	}
	return &VFS{
		fsTypes:     make(map[string]*FilesystemType),
		superblocks: make(map[DeviceID]*Superblock),
		dentries:    make([]Dentry, opts.MaxDentries),
		vnodes:      make(map[vnodeKey]*Vnode),
		maxVnodes:   opts.MaxVnodes,
		metrics:     opts.Metrics,
	}
}

// Root returns the root dentry, nil before the first mount at "/".
func (v *VFS) Root() *Dentry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.root
}

// Mounts returns a snapshot of all active mounts.
// The returned slice is a copy and safe to modify.
func (v *VFS) Mounts() []MountInfo {
	v.mu.Lock()
	defer v.mu.Unlock()

	mounts := make([]MountInfo, 0, len(v.superblocks))
	for _, sb := range v.superblocks {
		if !sb.Mounted() {
			continue
		}
		info := MountInfo{
			Device:      sb.deviceID,
			Path:        sb.mountPoint.Path(),
			RootVnodeNo: sb.RootVnodeNo,
		}
		if sb.fsType != nil {
			info.FilesystemType = sb.fsType.name
		}
		mounts = append(mounts, info)
	}
	return mounts
}

// Stats returns a point-in-time snapshot of the core's tables.
func (v *VFS) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Stats{
		DentryCapacity:  len(v.dentries),
		Vnodes:          len(v.vnodes),
		Superblocks:     len(v.superblocks),
		FilesystemTypes: len(v.fsTypes),
	}
	for i := range v.dentries {
		if v.dentries[i].occupied() {
			s.DentriesInUse++
		}
		if v.dentries[i].IsMountPoint() {
			s.MountPoints++
		}
	}
	return s
}
