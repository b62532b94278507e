package badgerfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corevfs/corevfs/pkg/vfs"
	vfserrors "github.com/corevfs/corevfs/pkg/vfs/errors"
)

// newHarness opens a database in a temp directory and mounts a badgerfs
// volume at "/" on device 1.
func newHarness(t *testing.T) (*vfs.VFS, *Driver) {
	t.Helper()

	drv, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, drv.Close())
	})

	v := vfs.New(vfs.Options{})
	require.NoError(t, v.RegisterFilesystemType("badgerfs", drv.Configure))
	require.NoError(t, v.Mount(1, "/", "badgerfs"))
	return v, drv
}

func TestProbeCreatesVolume(t *testing.T) {
	v, _ := newHarness(t)

	sb, err := v.SuperblockFor(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(blockSize), sb.BlockSize)
	assert.Equal(t, uint64(1), sb.RootVnodeNo)

	root, err := v.Acquire("/")
	require.NoError(t, err)
	assert.True(t, root.IsDir())
	require.NoError(t, v.Release(root))
}

func TestCreateAndLookup(t *testing.T) {
	v, _ := newHarness(t)

	n, err := v.Create("/hello.txt", 0644)
	require.NoError(t, err)
	assert.Equal(t, vfs.FileTypeRegular, n.Type)
	assert.Equal(t, uint64(2), n.No)
	require.NoError(t, v.Release(n))

	d, err := v.Resolve("/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), d.VnodeNo())
}

func TestDuplicateCreateRefused(t *testing.T) {
	v, _ := newHarness(t)

	n, err := v.Create("/once.txt", 0644)
	require.NoError(t, err)
	require.NoError(t, v.Release(n))

	_, err = v.Create("/once.txt", 0644)
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrAlreadyExists, vfserrors.CodeOf(err))
}

func TestWriteReadRoundTrip(t *testing.T) {
	v, _ := newHarness(t)

	n, err := v.Create("/data.bin", 0644)
	require.NoError(t, err)
	defer func() { require.NoError(t, v.Release(n)) }()

	payload := []byte("persisted through badger")
	written, err := n.FOps.Write(n, payload, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), written)
	assert.Equal(t, uint64(len(payload)), n.Size)

	buf := make([]byte, len(payload))
	read, err := n.FOps.Read(n, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:read])
}

func TestWriteGrowsAndPersistsSize(t *testing.T) {
	v, _ := newHarness(t)

	n, err := v.Create("/data.bin", 0644)
	require.NoError(t, err)
	_, err = n.FOps.Write(n, []byte{0xFF}, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), n.Size)
	require.NoError(t, v.Release(n))

	// The size was written into the inode record, so a reload sees it.
	got, err := v.Acquire("/data.bin")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Size)
	require.NoError(t, v.Release(got))
}

func TestReadMissingContents(t *testing.T) {
	v, _ := newHarness(t)

	n, err := v.Create("/empty.txt", 0644)
	require.NoError(t, err)
	defer func() { require.NoError(t, v.Release(n)) }()

	// No data key exists until the first write.
	buf := make([]byte, 4)
	read, err := n.FOps.Read(n, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, read)
}

func TestMkdirNesting(t *testing.T) {
	v, _ := newHarness(t)

	dir, err := v.Mkdir("/etc", 0755)
	require.NoError(t, err)
	require.NoError(t, v.Release(dir))

	n, err := v.Create("/etc/hosts", 0644)
	require.NoError(t, err)
	require.NoError(t, v.Release(n))

	d, err := v.Resolve("/etc/hosts")
	require.NoError(t, err)
	assert.Equal(t, "hosts", d.Name())
}

func TestMknodPersistsDevice(t *testing.T) {
	v, _ := newHarness(t)

	n, err := v.Mknod("/tty0", 0620, vfs.DeviceID(4))
	require.NoError(t, err)
	require.NoError(t, v.Release(n))

	got, err := v.Acquire("/tty0")
	require.NoError(t, err)
	assert.Equal(t, vfs.FileTypeCharDevice, got.Type)
	assert.Equal(t, vfs.DeviceID(4), got.Dev)
	require.NoError(t, v.Release(got))
}

func TestVolumeSurvivesRemount(t *testing.T) {
	v, _ := newHarness(t)

	n, err := v.Create("/keep.txt", 0644)
	require.NoError(t, err)
	_, err = n.FOps.Write(n, []byte("kept"), 0)
	require.NoError(t, err)
	require.NoError(t, v.Release(n))

	sb, err := v.SuperblockFor(1)
	require.NoError(t, err)
	require.NoError(t, v.Unmount(sb))
	require.NoError(t, v.Mount(1, "/", "badgerfs"))

	got, err := v.Acquire("/keep.txt")
	require.NoError(t, err)
	buf := make([]byte, 8)
	read, err := got.FOps.Read(got, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(buf[:read]))
	require.NoError(t, v.Release(got))
}

func TestVolumeSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	drv, err := Open(dir)
	require.NoError(t, err)

	v := vfs.New(vfs.Options{})
	require.NoError(t, v.RegisterFilesystemType("badgerfs", drv.Configure))
	require.NoError(t, v.Mount(1, "/", "badgerfs"))

	n, err := v.Create("/durable.txt", 0644)
	require.NoError(t, err)
	_, err = n.FOps.Write(n, []byte("on disk"), 0)
	require.NoError(t, err)
	require.NoError(t, v.Release(n))

	sb, err := v.SuperblockFor(1)
	require.NoError(t, err)
	require.NoError(t, v.Unmount(sb))
	require.NoError(t, drv.Close())

	// A fresh process sees the same tree.
	drv2, err := Open(dir)
	require.NoError(t, err)
	defer func() { require.NoError(t, drv2.Close()) }()

	v2 := vfs.New(vfs.Options{})
	require.NoError(t, v2.RegisterFilesystemType("badgerfs", drv2.Configure))
	require.NoError(t, v2.Mount(1, "/", "badgerfs"))

	got, err := v2.Acquire("/durable.txt")
	require.NoError(t, err)
	buf := make([]byte, 16)
	read, err := got.FOps.Read(got, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "on disk", string(buf[:read]))
	require.NoError(t, v2.Release(got))
}

func TestSeek(t *testing.T) {
	v, _ := newHarness(t)

	n, err := v.Create("/data.bin", 0644)
	require.NoError(t, err)
	defer func() { require.NoError(t, v.Release(n)) }()

	_, err = n.FOps.Write(n, []byte("0123456789"), 0)
	require.NoError(t, err)

	off, err := n.FOps.Seek(n, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), off)

	off, err = n.FOps.Seek(n, -1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(9), off)

	_, err = n.FOps.Seek(n, 0, 1)
	require.Error(t, err)
	assert.Equal(t, vfserrors.ErrNotImplemented, vfserrors.CodeOf(err))
}
