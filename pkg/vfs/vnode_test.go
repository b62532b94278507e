package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vfserrors "github.com/corevfs/corevfs/pkg/vfs/errors"
)

func TestVnode_AcquireRelease(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	no := b.addFile(1, "file")

	n, err := v.Acquire("/file")
	require.NoError(t, err)
	assert.Equal(t, no, n.No)
	assert.Equal(t, FileTypeRegular, n.Type)
	assert.Equal(t, int64(1), n.RefCount())
	assert.Equal(t, 1, b.readCalls[no])

	// A second acquire hits the cache and takes another reference.
	n2, err := v.Acquire("/file")
	require.NoError(t, err)
	assert.Same(t, n, n2)
	assert.Equal(t, int64(2), n.RefCount())
	assert.Equal(t, 1, b.readCalls[no])

	// Only the last release destroys the entry.
	require.NoError(t, v.Release(n))
	assert.Equal(t, 0, b.destroyCalls[no])

	require.NoError(t, v.Release(n))
	assert.Equal(t, 1, b.destroyCalls[no])
	assert.Equal(t, 0, v.Stats().Vnodes)
}

func TestVnode_ReacquireAfterDestroyReloads(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	no := b.addFile(1, "file")

	n, err := v.Acquire("/file")
	require.NoError(t, err)
	require.NoError(t, v.Release(n))

	n2, err := v.Acquire("/file")
	require.NoError(t, err)
	assert.Equal(t, 2, b.readCalls[no])
	require.NoError(t, v.Release(n2))
}

func TestVnode_ReadFailureLeavesNoEntry(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	no := b.addFile(1, "file")
	b.readErrs[no] = vfserrors.NewIOError("device gone")

	_, err := v.Acquire("/file")
	require.Error(t, err)
	assert.Equal(t, 0, v.Stats().Vnodes)

	// Clearing the fault makes the load work again.
	delete(b.readErrs, no)
	n, err := v.Acquire("/file")
	require.NoError(t, err)
	require.NoError(t, v.Release(n))
}

func TestVnode_CacheLimit(t *testing.T) {
	v, b := newTestVFS(t, Options{MaxVnodes: 1})
	no := b.addFile(1, "file")

	// The root vnode occupies the single slot.
	root, err := v.Acquire("/")
	require.NoError(t, err)

	_, err = v.Acquire("/file")
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrTooManyVnodes, vfserrors.CodeOf(err))

	// The failed insertion undid the backend load.
	assert.Equal(t, 1, b.destroyCalls[no])

	require.NoError(t, v.Release(root))

	n, err := v.Acquire("/file")
	require.NoError(t, err)
	require.NoError(t, v.Release(n))
}

func TestVnode_DestroyFailureKeepsEntry(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	no := b.addFile(1, "file")
	b.destroyErrs[no] = vfserrors.NewIOError("flush failed")

	n, err := v.Acquire("/file")
	require.NoError(t, err)

	err = v.Release(n)
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrIOError, vfserrors.CodeOf(err))

	// The reference came back so the release can be retried.
	assert.Equal(t, int64(1), n.RefCount())
	assert.Equal(t, 1, v.Stats().Vnodes)

	delete(b.destroyErrs, no)
	require.NoError(t, v.Release(n))
	assert.Equal(t, 0, v.Stats().Vnodes)
}

func TestVnode_PreallocIsUncached(t *testing.T) {
	v, _ := newTestVFS(t, Options{})
	sb, err := v.SuperblockFor(1)
	require.NoError(t, err)

	n := v.PreallocVnode(sb)
	assert.Equal(t, uint64(0), n.No)
	assert.Equal(t, NoDevice, n.Dev)
	assert.Same(t, sb, n.Superblock())
	assert.Equal(t, 0, v.Stats().Vnodes)
}
