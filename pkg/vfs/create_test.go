package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vfserrors "github.com/corevfs/corevfs/pkg/vfs/errors"
)

func TestCreate(t *testing.T) {
	v, _ := newTestVFS(t, Options{})

	n, err := v.Create("/hello.txt", 0644)
	require.NoError(t, err)
	assert.Equal(t, FileTypeRegular, n.Type)
	assert.NotEqual(t, uint64(0), n.No)
	assert.Equal(t, int64(1), n.RefCount())

	// The new entry is resolvable while the vnode is still held.
	d, err := v.Resolve("/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, n.No, d.VnodeNo())

	require.NoError(t, v.Release(n))
}

func TestMkdir(t *testing.T) {
	v, _ := newTestVFS(t, Options{})

	dir, err := v.Mkdir("/srv", 0755)
	require.NoError(t, err)
	assert.True(t, dir.IsDir())
	require.NoError(t, v.Release(dir))

	// The directory can hold children right away.
	n, err := v.Create("/srv/app.log", 0644)
	require.NoError(t, err)
	require.NoError(t, v.Release(n))

	d, err := v.Resolve("/srv/app.log")
	require.NoError(t, err)
	assert.Equal(t, "app.log", d.Name())
}

func TestMknod(t *testing.T) {
	v, _ := newTestVFS(t, Options{})

	n, err := v.Mknod("/null", 0666, DeviceID(42))
	require.NoError(t, err)
	assert.Equal(t, FileTypeCharDevice, n.Type)
	assert.Equal(t, DeviceID(42), n.Dev)
	require.NoError(t, v.Release(n))
}

func TestCreate_AlreadyExists(t *testing.T) {
	v, b := newTestVFS(t, Options{})

	n, err := v.Create("/hello.txt", 0644)
	require.NoError(t, err)
	require.NoError(t, v.Release(n))

	_, err = v.Create("/hello.txt", 0644)
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrAlreadyExists, vfserrors.CodeOf(err))

	// An entry known only to the backend is found and refused too.
	b.addFile(1, "on-disk")
	_, err = v.Create("/on-disk", 0644)
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrAlreadyExists, vfserrors.CodeOf(err))
}

func TestCreate_RootExists(t *testing.T) {
	v, _ := newTestVFS(t, Options{})

	_, err := v.Create("/", 0644)
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrAlreadyExists, vfserrors.CodeOf(err))
}

func TestCreate_NoRoot(t *testing.T) {
	v := New(Options{})

	_, err := v.Create("/hello.txt", 0644)
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrNoRoot, vfserrors.CodeOf(err))
}

func TestCreate_ParentMustExist(t *testing.T) {
	v, _ := newTestVFS(t, Options{})

	_, err := v.Create("/missing/file", 0644)
	require.Error(t, err)
	assert.True(t, vfserrors.IsNotFoundError(err))
}

func TestCreate_ParentMustBeDirectory(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	b.addFile(1, "file")

	_, err := v.Create("/file/below", 0644)
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrNotDirectory, vfserrors.CodeOf(err))
}

func TestCreate_BackendFailureRollsBack(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	b.createErr = vfserrors.NewIOError("no space")

	before := v.Stats()

	_, err := v.Create("/hello.txt", 0644)
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrIOError, vfserrors.CodeOf(err))

	// Caches are exactly as they were before the attempt.
	after := v.Stats()
	assert.Equal(t, before.DentriesInUse, after.DentriesInUse)
	assert.Equal(t, before.Vnodes, after.Vnodes)

	b.createErr = nil
	n, err := v.Create("/hello.txt", 0644)
	require.NoError(t, err)
	require.NoError(t, v.Release(n))
}

func TestCreate_CacheLimitUndoesBackendCreate(t *testing.T) {
	// One vnode slot, held by the parent directory during the create.
	v, b := newTestVFS(t, Options{MaxVnodes: 1})

	_, err := v.Create("/hello.txt", 0644)
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrTooManyVnodes, vfserrors.CodeOf(err))

	// The freshly created vnode was destroyed again and nothing stayed
	// cached.
	assert.Equal(t, 1, b.destroyCalls[2])
	assert.Equal(t, 0, v.Stats().Vnodes)
}

func TestCreate_InsideNestedMount(t *testing.T) {
	v, b := newTestVFS(t, Options{})
	b.addDir(1, "mnt")

	require.NoError(t, v.Mount(2, "/mnt", "fakefs"))

	n, err := v.Create("/mnt/inner.txt", 0644)
	require.NoError(t, err)

	nestedSB, err := v.SuperblockFor(2)
	require.NoError(t, err)
	assert.Same(t, nestedSB, n.Superblock())

	require.NoError(t, v.Release(n))
}
