package vfs

import (
	"fmt"

	"github.com/corevfs/corevfs/pkg/vfs/errors"
)

// Default block size a superblock starts with before the probe callback
// overrides it.
const defaultBlockSize = 1024

// allocSuperblock creates a superblock with default values and inserts it
// into the registry keyed by device id. Caller must hold v.mu and must
// have verified the device has no live entry.
func (v *VFS) allocSuperblock(devID DeviceID) *Superblock {
	sb := &Superblock{
		BlockSize: defaultBlockSize,
		deviceID:  devID,
		state:     sbUnused,
	}
	v.superblocks[devID] = sb
	return sb
}

// lookupSuperblock returns the live superblock for a device, if any.
// Caller must hold v.mu.
func (v *VFS) lookupSuperblock(devID DeviceID) (*Superblock, error) {
	sb, exists := v.superblocks[devID]
	if !exists {
		return nil, errors.NewNotFoundError(fmt.Sprintf("device %d", devID), "superblock")
	}
	return sb, nil
}

// deallocSuperblock invokes the filesystem type's release callback and, if
// it succeeds, removes the entry from the registry. A release failure
// aborts the deallocation and leaves the entry intact for a future retry.
//
// The type back-reference is nil when the probe callback never ran (or
// failed); in that case there is nothing for the driver to release.
// Caller must hold v.mu.
func (v *VFS) deallocSuperblock(sb *Superblock) error {
	if sb.fsType != nil && sb.fsType.Ops != nil {
		if err := sb.fsType.Ops.ReleaseSuperblock(sb); err != nil {
			return errors.NewIOError("superblock release failed: " + err.Error())
		}
	}
	delete(v.superblocks, sb.deviceID)
	return nil
}

// SuperblockFor returns the live superblock for a device. Exposed for the
// open-file layer and for unmounting by device.
func (v *VFS) SuperblockFor(devID DeviceID) (*Superblock, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lookupSuperblock(devID)
}
