package vfs

import (
	"strings"
	"time"

	"github.com/corevfs/corevfs/pkg/vfs/errors"
)

// ============================================================================
// Path resolution
// ============================================================================

// splitPath tokenizes an absolute path into its components. Empty
// components (leading, trailing or doubled separators) are dropped, so
// "/", "" and "//" all resolve to the root.
func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// lookupInDentry descends one path component from dir.
//
// The dentry cache answers first; an entry with a resolved vnode number is
// returned without touching the backend, whether it is a plain entry or a
// mount point (mount points always exist as directories in their own
// superblock). Otherwise the directory vnode is loaded - through the
// mounted superblock's root when dir is a mount point - and its Lookup
// operation populates the fresh entry. Any failure resets the fresh entry
// so a future retry does not see a half-built record.
// Caller must hold v.mu.
func (v *VFS) lookupInDentry(dir *Dentry, name string) (*Dentry, error) {
	obj, err := v.dentryGet(dir, name)
	if err != nil {
		return nil, err
	}

	if obj.vnodeNo != 0 {
		return obj, nil
	}

	// From here on obj is a fresh entry and must be reset on failure.

	var dirNode *Vnode
	if dir.IsMountPoint() {
		dirNode, err = v.vnodeGetOrRead(dir.mountSB, dir.mountSB.RootVnodeNo)
	} else {
		dirNode, err = v.vnodeGetOrRead(dir.sb, dir.vnodeNo)
	}
	if err != nil {
		dentryReset(obj)
		return nil, errors.NewCorruptError("directory vnode vanished: " + err.Error())
	}

	if !dirNode.IsDir() {
		dentryReset(obj)
		_ = v.vnodeRelease(dirNode)
		return nil, errors.NewNotDirectoryError(dir.Path())
	}

	if err := dirNode.IOps.Lookup(dirNode, obj); err != nil {
		// Propagate the backend error verbatim.
		dentryReset(obj)
		_ = v.vnodeRelease(dirNode)
		return nil, err
	}

	// The directory vnode was only needed for this one lookup.
	if err := v.vnodeRelease(dirNode); err != nil {
		return nil, err
	}
	return obj, nil
}

// resolve walks an absolute path through the dentry cache and returns the
// final dentry. The empty path and "/" resolve to the root directly.
// Caller must hold v.mu.
func (v *VFS) resolve(path string) (*Dentry, error) {
	if v.root == nil {
		return nil, errors.NewNoRootError(path)
	}

	start := time.Now()
	parts := splitPath(path)

	obj := v.root
	for _, name := range parts {
		next, err := v.lookupInDentry(obj, name)
		if err != nil {
			return nil, err
		}
		obj = next
	}

	v.observeResolve(start, len(parts))
	return obj, nil
}

// Resolve walks an absolute path and returns the dentry it names.
//
// Each traversed component increments that dentry's frequency counter, so
// repeated resolution of hot paths keeps them cached.
func (v *VFS) Resolve(path string) (*Dentry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resolve(path)
}

// dentryVnode loads the vnode a dentry stands for: the mounted
// superblock's root for a mount point, the entry's own vnode otherwise.
// Caller must hold v.mu.
func (v *VFS) dentryVnode(d *Dentry) (*Vnode, error) {
	if d.IsMountPoint() {
		return v.vnodeGetOrRead(d.mountSB, d.mountSB.RootVnodeNo)
	}
	return v.vnodeGetOrRead(d.sb, d.vnodeNo)
}

// Acquire resolves a path to its vnode and takes a reference on it.
// This is the primitive the open-file layer builds on: every Acquire must
// be paired with a Release.
func (v *VFS) Acquire(path string) (*Vnode, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	d, err := v.resolve(path)
	if err != nil {
		return nil, err
	}
	return v.dentryVnode(d)
}

// Release drops a reference obtained from Acquire, Create, Mkdir or
// Mknod. When the count reaches zero the vnode is destroyed through the
// backend and leaves the cache.
func (v *VFS) Release(n *Vnode) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.vnodeRelease(n)
}
