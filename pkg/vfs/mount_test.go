package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vfserrors "github.com/corevfs/corevfs/pkg/vfs/errors"
)

func TestMount_Root(t *testing.T) {
	v := New(Options{})
	b := newFakeBackend()
	require.NoError(t, v.RegisterFilesystemType("fakefs", b.Configure))

	require.NoError(t, v.Mount(1, "/", "fakefs"))

	root := v.Root()
	require.NotNil(t, root)
	assert.True(t, root.IsMountPoint())
	assert.Equal(t, 1, b.mountCalls)

	mounts := v.Mounts()
	require.Len(t, mounts, 1)
	assert.Equal(t, DeviceID(1), mounts[0].Device)
	assert.Equal(t, "fakefs", mounts[0].FilesystemType)
	assert.Equal(t, "/", mounts[0].Path)
	assert.Equal(t, uint64(1), mounts[0].RootVnodeNo)

	sb := root.MountedSuperblock()
	require.NotNil(t, sb)
	assert.True(t, sb.Mounted())
	assert.Equal(t, uint32(512), sb.BlockSize)
	assert.Same(t, root, sb.MountPoint())
}

func TestMount_RequiresRootFirst(t *testing.T) {
	v := New(Options{})
	b := newFakeBackend()
	require.NoError(t, v.RegisterFilesystemType("fakefs", b.Configure))

	err := v.Mount(1, "/mnt", "fakefs")
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrNoRoot, vfserrors.CodeOf(err))
}

func TestMount_UnknownType(t *testing.T) {
	v := New(Options{})

	err := v.Mount(1, "/", "nosuchfs")
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrNoSuchFilesystem, vfserrors.CodeOf(err))

	// The provisional root dentry was rolled back.
	assert.Nil(t, v.Root())
	assert.Equal(t, 0, v.Stats().DentriesInUse)
}

func TestMount_ProbeFailure(t *testing.T) {
	v := New(Options{})
	b := newFakeBackend()
	b.probeErr = vfserrors.NewIOError("bad magic")
	require.NoError(t, v.RegisterFilesystemType("fakefs", b.Configure))

	err := v.Mount(1, "/", "fakefs")
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrInvalidFilesystem, vfserrors.CodeOf(err))

	// A failed probe never triggers the release callback, and nothing
	// stays registered.
	assert.Equal(t, 0, b.releaseCalls)
	assert.Equal(t, 0, v.Stats().Superblocks)
	assert.Nil(t, v.Root())

	// The device is free for another attempt.
	b.probeErr = nil
	require.NoError(t, v.Mount(1, "/", "fakefs"))
}

func TestMount_BackendMountFailure(t *testing.T) {
	v := New(Options{})
	b := newFakeBackend()
	b.mountErr = vfserrors.NewIOError("journal replay failed")
	require.NoError(t, v.RegisterFilesystemType("fakefs", b.Configure))

	err := v.Mount(1, "/", "fakefs")
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrIOError, vfserrors.CodeOf(err))

	// The probe succeeded, so the rollback releases exactly once.
	assert.Equal(t, 1, b.releaseCalls)
	assert.Equal(t, 0, v.Stats().Superblocks)
	assert.Nil(t, v.Root())
}

func TestMount_DeviceAlreadyMounted(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	b.addDir(1, "mnt")

	err := v.Mount(1, "/mnt", "fakefs")
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrAlreadyMounted, vfserrors.CodeOf(err))
}

func TestMount_RemountRootNotImplemented(t *testing.T) {
	v, _ := newTestVFS(t, Options{})

	err := v.Mount(2, "/", "fakefs")
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrNotImplemented, vfserrors.CodeOf(err))
}

func TestMount_PointMustExist(t *testing.T) {
	v, _ := newTestVFS(t, Options{})

	err := v.Mount(2, "/missing", "fakefs")
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrNotFound, vfserrors.CodeOf(err))
}

func TestMount_PointMustBeDirectory(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	b.addFile(1, "file")

	err := v.Mount(2, "/file", "fakefs")
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrNotDirectory, vfserrors.CodeOf(err))
}

func TestMount_PointAlreadyTaken(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	b.addDir(1, "mnt")

	require.NoError(t, v.Mount(2, "/mnt", "fakefs"))

	err := v.Mount(3, "/mnt", "fakefs")
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrAccessDenied, vfserrors.CodeOf(err))
}

func TestUnmount(t *testing.T) {
	v, b := newTestVFS(t, Options{})

	sb, err := v.SuperblockFor(1)
	require.NoError(t, err)
	require.NoError(t, v.Unmount(sb))

	assert.Equal(t, 1, b.unmountCalls)
	assert.Equal(t, 1, b.releaseCalls)
	assert.False(t, sb.Mounted())
	assert.Nil(t, sb.MountPoint())
	assert.Empty(t, v.Mounts())
	assert.Equal(t, 0, v.Stats().Superblocks)

	// Dropping the root mount frees the root dentry, so a fresh root
	// mount is legal again.
	assert.Nil(t, v.Root())
	require.NoError(t, v.Mount(1, "/", "fakefs"))
}

func TestUnmount_NotMounted(t *testing.T) {
	v, _ := newTestVFS(t, Options{})

	sb, err := v.SuperblockFor(1)
	require.NoError(t, err)
	require.NoError(t, v.Unmount(sb))

	err = v.Unmount(sb)
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrNotMounted, vfserrors.CodeOf(err))
}

func TestUnmount_BlockedByLiveVnodes(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	b.addFile(1, "file")

	n, err := v.Acquire("/file")
	require.NoError(t, err)

	sb, err := v.SuperblockFor(1)
	require.NoError(t, err)

	err = v.Unmount(sb)
	require.Error(t, err)
	assert.True(t, vfserrors.IsCorruptError(err))
	assert.True(t, sb.Mounted())

	require.NoError(t, v.Release(n))
	require.NoError(t, v.Unmount(sb))
}

func TestUnmount_BlockedByNestedMount(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	b.addDir(1, "mnt")

	require.NoError(t, v.Mount(2, "/mnt", "fakefs"))

	rootSB, err := v.SuperblockFor(1)
	require.NoError(t, err)

	err = v.Unmount(rootSB)
	require.Error(t, err)
	assert.True(t, vfserrors.IsBusyError(err))
	assert.True(t, rootSB.Mounted())

	// Inner mount first, then the root unmounts cleanly.
	nestedSB, err := v.SuperblockFor(2)
	require.NoError(t, err)
	require.NoError(t, v.Unmount(nestedSB))
	require.NoError(t, v.Unmount(rootSB))
}

func TestUnmount_BackendFailureIsRetryable(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	b.unmountErr = vfserrors.NewIOError("flush failed")

	sb, err := v.SuperblockFor(1)
	require.NoError(t, err)

	err = v.Unmount(sb)
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrIOError, vfserrors.CodeOf(err))

	// Nothing was torn down; the superblock is still mounted and the
	// call can be retried.
	assert.True(t, sb.Mounted())
	assert.NotNil(t, v.Root())
	assert.Equal(t, 1, v.Stats().Superblocks)

	b.unmountErr = nil
	require.NoError(t, v.Unmount(sb))
}

func TestUnmount_ReleaseFailureIsRetryable(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	b.releaseErr = vfserrors.NewIOError("driver state pinned")

	sb, err := v.SuperblockFor(1)
	require.NoError(t, err)

	err = v.Unmount(sb)
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrIOError, vfserrors.CodeOf(err))

	// The release failure must not tear anything down: the superblock
	// stays mounted and registered, the root dentry survives.
	assert.True(t, sb.Mounted())
	assert.NotNil(t, sb.MountPoint())
	assert.NotNil(t, v.Root())
	assert.Equal(t, 1, v.Stats().Superblocks)

	// Retrying after the fault clears succeeds and frees the device.
	b.releaseErr = nil
	require.NoError(t, v.Unmount(sb))
	assert.Nil(t, v.Root())
	require.NoError(t, v.Mount(1, "/", "fakefs"))
}

func TestUnmount_InvalidatesDentries(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	b.addDir(1, "mnt")
	b.addDir(1, "data")

	require.NoError(t, v.Mount(2, "/mnt", "fakefs"))

	// Populate entries belonging to the nested superblock.
	_, err := v.Resolve("/mnt/data")
	require.NoError(t, err)

	nestedSB, err := v.SuperblockFor(2)
	require.NoError(t, err)
	require.NoError(t, v.Unmount(nestedSB))

	// The mount point dentry survives (it belongs to the parent), but
	// it is no longer a mount point.
	d, err := v.Resolve("/mnt")
	require.NoError(t, err)
	assert.False(t, d.IsMountPoint())
	assert.Equal(t, 1, v.Stats().MountPoints) // only the root remains
}
