package vfs

import (
	"fmt"

	"github.com/corevfs/corevfs/pkg/vfs/errors"
)

// ============================================================================
// Vnode cache (reference counted, keyed by superblock and vnode number)
// ============================================================================
//
// Unlike dentries, vnodes are not cached beyond use: an entry exists only
// while at least one consumer holds a reference, and the last release
// destroys it through the backend. The table is a map bounded by the
// configured MaxVnodes limit.

// vnodePrealloc creates a blank, uncached vnode for sb with vnode number 0.
// Backend create operations need a vnode object before a number has been
// assigned; the caller inserts it into the cache once numbered, or simply
// discards it.
func (v *VFS) vnodePrealloc(sb *Superblock) *Vnode {
	return &Vnode{
		Dev: NoDevice,
		sb:  sb,
	}
}

// vnodeInsert registers a vnode in the cache. Fails with TooManyVnodes at
// the configured limit and with Corrupt if the key is already present.
// Caller must hold v.mu.
func (v *VFS) vnodeInsert(n *Vnode) error {
	if len(v.vnodes) >= v.maxVnodes {
		return errors.NewTooManyVnodesError(v.maxVnodes)
	}
	key := vnodeKey{sb: n.sb, no: n.No}
	if _, exists := v.vnodes[key]; exists {
		return errors.NewCorruptError(fmt.Sprintf("vnode %d inserted twice", n.No))
	}
	v.vnodes[key] = n
	return nil
}

// vnodeRemove takes a vnode out of the cache. An entry that was only
// preallocated and never inserted is not an error; a key that maps to a
// different vnode object is a broken invariant.
// Caller must hold v.mu.
func (v *VFS) vnodeRemove(n *Vnode) error {
	key := vnodeKey{sb: n.sb, no: n.No}
	cached, exists := v.vnodes[key]
	if !exists {
		return nil
	}
	if cached != n {
		return errors.NewCorruptError(fmt.Sprintf("vnode %d cache entry mismatch", n.No))
	}
	delete(v.vnodes, key)
	return nil
}

// vnodeGetOrRead returns the cached vnode (sb, vno) with an extra
// reference, loading it from the backend on a miss.
//
// The miss path is transactional: the blank entry is discarded if
// ReadVnode fails, and a failed cache insertion undoes the backend load
// with DestroyVnode before discarding.
// Caller must hold v.mu.
func (v *VFS) vnodeGetOrRead(sb *Superblock, vno uint64) (*Vnode, error) {
	if n, ok := v.vnodes[vnodeKey{sb: sb, no: vno}]; ok {
		n.refs.Add(1)
		return n, nil
	}

	n := v.vnodePrealloc(sb)
	n.No = vno

	if err := sb.Ops.ReadVnode(sb, n); err != nil {
		return nil, err
	}

	if err := v.vnodeInsert(n); err != nil {
		// Undo the backend load; nothing references the entry yet,
		// so a destroy failure here is only reportable, not fatal.
		_ = sb.Ops.DestroyVnode(sb, n)
		return nil, err
	}

	v.recordVnodeLoad(sb)
	n.refs.Add(1)
	return n, nil
}

// vnodeRelease drops one reference. At zero the backend destroy runs and
// the entry leaves the cache; a destroy failure aborts the removal so the
// release can be retried.
// Caller must hold v.mu.
func (v *VFS) vnodeRelease(n *Vnode) error {
	if n.refs.Add(-1) > 0 {
		return nil
	}

	if err := n.sb.Ops.DestroyVnode(n.sb, n); err != nil {
		// Keep the entry; the caller retries the release later.
		n.refs.Add(1)
		return errors.NewIOError("vnode destroy failed: " + err.Error())
	}
	v.recordVnodeDestroy(n.sb)
	return v.vnodeRemove(n)
}

// superblockHasVnodes reports whether any cached vnode belongs to sb.
// Open files pin vnodes, so a true result blocks unmounting.
// Caller must hold v.mu.
func (v *VFS) superblockHasVnodes(sb *Superblock) bool {
	for key := range v.vnodes {
		if key.sb == sb {
			return true
		}
	}
	return false
}

// PreallocVnode produces a blank, uncached vnode for backend create
// operations that need a vnode object before a number is assigned. The
// caller is responsible for inserting it once numbered, or discarding it.
func (v *VFS) PreallocVnode(sb *Superblock) *Vnode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.vnodePrealloc(sb)
}
