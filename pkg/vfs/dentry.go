package vfs

import (
	"github.com/corevfs/corevfs/internal/logger"
	"github.com/corevfs/corevfs/pkg/vfs/errors"
)

// ============================================================================
// Dentry cache (fixed slot table, LFU eviction)
// ============================================================================
//
// Dentries exist for performance and to anchor mount points, so the table
// is a plain fixed-size array rather than a dynamic structure. A slot is
// free when its name is empty. Every slot carries a frequency counter and
// eviction picks the occupied non-mount-point slot with the lowest count:
// least-frequently-used approximates "don't evict hot paths" with no
// bookkeeping beyond one counter per slot. Correctness never depends on
// picking the optimal victim, only on never evicting a mount point.

// dentryReset returns a slot to its initial empty state.
func dentryReset(d *Dentry) {
	*d = Dentry{}
}

// dentryGet finds the entry (parent, name) in the cache, or allocates a
// slot for it, evicting the least frequently used non-mount-point entry
// when the table is full. A hit increments the frequency counter; a fresh
// entry starts at 1 and inherits its superblock from the parent: the
// parent's mounted superblock if the parent is a mount point, the parent's
// own superblock otherwise.
//
// Fails with TooManyDentries when every slot holds a mount point.
// Caller must hold v.mu.
func (v *VFS) dentryGet(parent *Dentry, name string) (*Dentry, error) {
	victim := -1
	victimCount := uint64(0)

	// Single scan: find the entry, tracking the best eviction candidate
	// in case it is absent.
	for i := range v.dentries {
		d := &v.dentries[i]

		if !d.occupied() {
			// A free slot beats any occupied candidate.
			victim = i
			victimCount = 0
			continue
		}
		if d.parent == parent && d.name == name {
			d.count++
			v.recordDentryHit()
			return d, nil
		}
		if d.IsMountPoint() {
			// Pinned until its superblock is unmounted.
			continue
		}
		if victim == -1 || d.count < victimCount {
			victim = i
			victimCount = d.count
		}
	}

	if victim == -1 {
		// Every slot is a mount point.
		return nil, errors.NewTooManyDentriesError()
	}

	d := &v.dentries[victim]
	if d.occupied() {
		v.recordDentryEviction()
		logger.Debug("evicted dentry", "name", d.name, "frequency", d.count)
	}
	dentryReset(d)

	d.name = name
	d.parent = parent

	// Derive the owning superblock. The root dentry has none of its own;
	// it adopts whatever is mounted on it.
	switch {
	case parent == nil:
		d.sb = nil
	case parent.IsMountPoint():
		d.sb = parent.mountSB
	default:
		d.sb = parent.sb
	}

	d.count = 1
	v.recordDentryMiss()
	return d, nil
}

// dentryHasNestedMounts reports whether any mount-point slot belongs to
// sb, i.e. another superblock is mounted somewhere inside sb's tree.
// Caller must hold v.mu.
func (v *VFS) dentryHasNestedMounts(sb *Superblock) bool {
	for i := range v.dentries {
		d := &v.dentries[i]
		if d.occupied() && d.IsMountPoint() && d.sb == sb {
			return true
		}
	}
	return false
}

// invalidateDentriesFor removes every dentry belonging to sb from the
// cache. Two passes: the first refuses with Busy if a mount point still
// belongs to sb (the nested mount must be unmounted first); only if that
// finds nothing does the second pass reset sb's slots.
//
// The mount-point dentry of sb itself belongs to the parent superblock,
// so it survives invalidation; the unmount protocol clears its mount
// reference separately.
// Caller must hold v.mu.
func (v *VFS) invalidateDentriesFor(sb *Superblock) error {
	if v.dentryHasNestedMounts(sb) {
		return errors.NewBusyError("superblock has nested mount points")
	}
	for i := range v.dentries {
		d := &v.dentries[i]
		if d.occupied() && d.sb == sb {
			dentryReset(d)
		}
	}
	return nil
}
