package vfs

import (
	"fmt"

	"github.com/corevfs/corevfs/internal/logger"
	"github.com/corevfs/corevfs/pkg/vfs/errors"
)

// ============================================================================
// Mount / unmount protocol
// ============================================================================
//
// A superblock moves Unused -> Mounted -> Unused. Mount is a multi-step
// sequence and every step that fails undoes everything already committed,
// in reverse order, so a partial mount is never observable from the
// caches or registries.

// Mount attaches the filesystem of type fsTypeName found on device devID
// at path.
//
// While nothing is mounted anywhere, only path == "/" is legal and the
// root dentry is created fresh. Afterwards path must resolve to an
// existing directory that is not already a mount point; remounting "/"
// itself is not implemented.
func (v *VFS) Mount(devID DeviceID, path string, fsTypeName string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	d, err := v.mountPointDentry(path)
	if err != nil {
		return err
	}

	ft, err := v.lookupFilesystemType(fsTypeName)
	if err != nil {
		dentryReset(d)
		return err
	}

	if _, exists := v.superblocks[devID]; exists {
		dentryReset(d)
		return errors.NewAlreadyMountedError(deviceName(devID))
	}

	sb := v.allocSuperblock(devID)

	// Probe: the driver decides whether the device holds one of its
	// filesystems and installs the superblock operations.
	if err := ft.Ops.ProbeSuperblock(sb); err != nil {
		// The type is not linked yet, so dealloc runs no release
		// callback and cannot fail.
		_ = v.deallocSuperblock(sb)
		dentryReset(d)
		return errors.NewInvalidFilesystemError(fsTypeName, deviceName(devID))
	}

	sb.fsType = ft

	if err := sb.Ops.Mount(sb); err != nil {
		// Dealloc invokes the type's release callback exactly once,
		// undoing the probe.
		if derr := v.deallocSuperblock(sb); derr != nil {
			logger.Error("superblock rollback failed", "device", devID, "error", derr)
		}
		dentryReset(d)
		return errors.NewIOError("backend mount failed: " + err.Error())
	}

	// Commit.
	d.mountSB = sb
	sb.mountPoint = d
	sb.state = sbMounted
	if d.parent == nil {
		v.root = d
	}

	if v.metrics != nil {
		v.metrics.RecordMount(fsTypeName)
	}
	logger.Info("mounted filesystem",
		"type", fsTypeName,
		"device", devID,
		"path", d.Path(),
		"root_vnode", sb.RootVnodeNo)
	return nil
}

// mountPointDentry validates path as a mount point and returns its
// dentry, creating the root dentry when this is the very first mount.
// Caller must hold v.mu.
func (v *VFS) mountPointDentry(path string) (*Dentry, error) {
	if v.root == nil {
		// Nothing is mounted at "/", therefore nothing is mounted.
		if path != "/" {
			return nil, errors.NewNoRootError(path)
		}
		return v.dentryGet(nil, "/")
	}

	if path == "/" {
		return nil, errors.NewNotImplementedError("remounting /")
	}

	d, err := v.resolve(path)
	if err != nil {
		return nil, errors.NewNotFoundError(path, "mount point")
	}
	if d.IsMountPoint() {
		return nil, errors.NewAccessDeniedError(path)
	}

	// Only directories can carry a mount.
	n, err := v.vnodeGetOrRead(d.sb, d.vnodeNo)
	if err != nil {
		return nil, errors.NewCorruptError("mount point vnode vanished: " + err.Error())
	}
	isDir := n.IsDir()
	if err := v.vnodeRelease(n); err != nil {
		return nil, err
	}
	if !isDir {
		return nil, errors.NewNotDirectoryError(path)
	}
	return d, nil
}

// Unmount detaches a mounted superblock.
//
// Preconditions: no live vnodes may belong to sb (open files pin vnodes
// and must be closed first) and no other superblock may be mounted inside
// sb's tree. The backend unmount callback and the type's release callback
// both run before any state is torn down, so an IOError from either
// leaves the superblock mounted and the call retryable. On success the
// superblock leaves the registry, all of sb's dentries are invalidated
// and the mount point is detached.
func (v *VFS) Unmount(sb *Superblock) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !sb.Mounted() {
		return errors.NewNotMountedError(deviceName(sb.deviceID))
	}

	if v.superblockHasVnodes(sb) {
		return errors.NewCorruptError("live vnodes still reference the superblock")
	}

	if v.dentryHasNestedMounts(sb) {
		return errors.NewBusyError("superblock has nested mount points")
	}

	if err := sb.Ops.Unmount(sb); err != nil {
		return errors.NewIOError("backend unmount failed: " + err.Error())
	}

	// Dealloc before any teardown. A release failure keeps the registry
	// entry and the mounted state intact, so the unmount can be retried.
	if err := v.deallocSuperblock(sb); err != nil {
		return err
	}

	// The preconditions above make a Busy here impossible short of a
	// backend re-entering the core.
	if err := v.invalidateDentriesFor(sb); err != nil {
		return err
	}

	mp := sb.mountPoint
	mp.mountSB = nil
	sb.state = sbUnused
	sb.mountPoint = nil

	fsName := fsTypeName(sb)

	// The root mount anchors the whole tree: dropping it frees the
	// root dentry so a fresh mount at "/" becomes legal again.
	if mp.parent == nil {
		dentryReset(mp)
		v.root = nil
	}

	if v.metrics != nil {
		v.metrics.RecordUnmount(fsName)
	}
	logger.Info("unmounted filesystem", "type", fsName, "device", sb.deviceID)
	return nil
}

func deviceName(devID DeviceID) string {
	return fmt.Sprintf("%d", devID)
}
