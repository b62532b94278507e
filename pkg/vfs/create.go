package vfs

import (
	"github.com/corevfs/corevfs/pkg/vfs/errors"
)

// ============================================================================
// Create-under-directory primitives
// ============================================================================
//
// These drive the backend inode operations on behalf of the open-file
// layer. The backend receives a preallocated, uncached vnode with number
// 0, assigns it a number and populates it; the core then records the
// number on the dentry and registers the vnode in the cache with one
// reference held by the caller.

// Create makes a regular file at path and returns its vnode with one
// reference. The caller must Release it.
func (v *VFS) Create(path string, mode uint32) (*Vnode, error) {
	return v.createEntry(path, func(dir *Vnode, entry *Dentry, n *Vnode) error {
		return dir.IOps.Create(dir, entry, n, mode)
	})
}

// Mkdir makes a directory at path and returns its vnode with one
// reference. The caller must Release it.
func (v *VFS) Mkdir(path string, mode uint32) (*Vnode, error) {
	return v.createEntry(path, func(dir *Vnode, entry *Dentry, n *Vnode) error {
		return dir.IOps.Mkdir(dir, entry, n, mode)
	})
}

// Mknod makes a device node at path and returns its vnode with one
// reference. The caller must Release it.
func (v *VFS) Mknod(path string, mode uint32, dev DeviceID) (*Vnode, error) {
	return v.createEntry(path, func(dir *Vnode, entry *Dentry, n *Vnode) error {
		return dir.IOps.Mknod(dir, entry, n, mode, dev)
	})
}

// createEntry resolves the parent directory of path, verifies the target
// does not exist, and runs op against the parent's vnode. Failures leave
// the dentry and vnode caches exactly as they were.
func (v *VFS) createEntry(path string, op func(dir *Vnode, entry *Dentry, n *Vnode) error) (*Vnode, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, errors.NewAlreadyExistsError("/")
	}
	name := parts[len(parts)-1]

	parent := v.root
	if parent == nil {
		return nil, errors.NewNoRootError(path)
	}
	for _, comp := range parts[:len(parts)-1] {
		next, err := v.lookupInDentry(parent, comp)
		if err != nil {
			return nil, err
		}
		parent = next
	}

	// An existing entry, cached or found by the backend, wins.
	if existing, err := v.lookupInDentry(parent, name); err == nil && existing.vnodeNo != 0 {
		return nil, errors.NewAlreadyExistsError(path)
	} else if err != nil && !errors.IsNotFoundError(err) {
		return nil, err
	}

	dirNode, err := v.dentryVnode(parent)
	if err != nil {
		return nil, errors.NewCorruptError("parent vnode vanished: " + err.Error())
	}
	if !dirNode.IsDir() {
		_ = v.vnodeRelease(dirNode)
		return nil, errors.NewNotDirectoryError(parent.Path())
	}

	entry, err := v.dentryGet(parent, name)
	if err != nil {
		_ = v.vnodeRelease(dirNode)
		return nil, err
	}

	n := v.vnodePrealloc(entry.sb)

	if err := op(dirNode, entry, n); err != nil {
		dentryReset(entry)
		_ = v.vnodeRelease(dirNode)
		return nil, err
	}

	entry.SetVnodeNo(n.No)

	if err := v.vnodeInsert(n); err != nil {
		_ = n.sb.Ops.DestroyVnode(n.sb, n)
		dentryReset(entry)
		_ = v.vnodeRelease(dirNode)
		return nil, err
	}
	n.refs.Add(1)

	if err := v.vnodeRelease(dirNode); err != nil {
		return nil, err
	}
	return n, nil
}
