package memfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corevfs/corevfs/pkg/vfs"
	"github.com/corevfs/corevfs/pkg/vfs/errors"
)

// newHarness mounts a fresh memfs at "/" on device 1.
func newHarness(t *testing.T) *vfs.VFS {
	t.Helper()

	v := vfs.New(vfs.Options{})
	require.NoError(t, v.RegisterFilesystemType("memfs", New().Configure))
	require.NoError(t, v.Mount(1, "/", "memfs"))
	return v
}

func TestProbeGeometry(t *testing.T) {
	v := newHarness(t)

	sb, err := v.SuperblockFor(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(blockSize), sb.BlockSize)
	assert.Equal(t, uint64(maxFileSize), sb.MaxFileSize)
	assert.Equal(t, uint64(rootVnodeNo), sb.RootVnodeNo)
}

func TestRootIsDirectory(t *testing.T) {
	v := newHarness(t)

	root, err := v.Acquire("/")
	require.NoError(t, err)
	assert.True(t, root.IsDir())
	assert.Equal(t, uint64(rootVnodeNo), root.No)
	require.NoError(t, v.Release(root))
}

func TestWriteGrowsFile(t *testing.T) {
	v := newHarness(t)

	n, err := v.Create("/data.bin", 0644)
	require.NoError(t, err)
	defer func() { require.NoError(t, v.Release(n)) }()

	// A write past the end zero-fills the gap.
	written, err := n.FOps.Write(n, []byte{0xAB}, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Equal(t, uint64(11), n.Size)

	buf := make([]byte, 11)
	read, err := n.FOps.Read(n, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 11, read)
	assert.Equal(t, byte(0), buf[0])
	assert.Equal(t, byte(0xAB), buf[10])
}

func TestWriteOverlap(t *testing.T) {
	v := newHarness(t)

	n, err := v.Create("/data.bin", 0644)
	require.NoError(t, err)
	defer func() { require.NoError(t, v.Release(n)) }()

	_, err = n.FOps.Write(n, []byte("aaaaaa"), 0)
	require.NoError(t, err)
	_, err = n.FOps.Write(n, []byte("bb"), 2)
	require.NoError(t, err)

	buf := make([]byte, 6)
	read, err := n.FOps.Read(n, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "aabbaa", string(buf[:read]))
}

func TestReadPastEnd(t *testing.T) {
	v := newHarness(t)

	n, err := v.Create("/data.bin", 0644)
	require.NoError(t, err)
	defer func() { require.NoError(t, v.Release(n)) }()

	buf := make([]byte, 8)
	read, err := n.FOps.Read(n, buf, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, read)
}

func TestWriteBeyondMaxSize(t *testing.T) {
	v := newHarness(t)

	n, err := v.Create("/data.bin", 0644)
	require.NoError(t, err)
	defer func() { require.NoError(t, v.Release(n)) }()

	_, err = n.FOps.Write(n, []byte{1}, maxFileSize)
	require.Error(t, err)
	assert.Equal(t, errors.ErrNoMemory, errors.CodeOf(err))
}

func TestSeek(t *testing.T) {
	v := newHarness(t)

	n, err := v.Create("/data.bin", 0644)
	require.NoError(t, err)
	defer func() { require.NoError(t, v.Release(n)) }()

	_, err = n.FOps.Write(n, []byte("0123456789"), 0)
	require.NoError(t, err)

	off, err := n.FOps.Seek(n, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), off)

	off, err = n.FOps.Seek(n, -3, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(7), off)

	_, err = n.FOps.Seek(n, 0, 1)
	require.Error(t, err)
	assert.Equal(t, errors.ErrNotImplemented, errors.CodeOf(err))
}

func TestIoctlNotImplemented(t *testing.T) {
	v := newHarness(t)

	n, err := v.Create("/dev.bin", 0644)
	require.NoError(t, err)
	defer func() { require.NoError(t, v.Release(n)) }()

	err = n.FOps.Ioctl(n, 1, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrNotImplemented, errors.CodeOf(err))
}

func TestMknodCarriesDevice(t *testing.T) {
	v := newHarness(t)

	n, err := v.Mknod("/null", 0666, vfs.DeviceID(7))
	require.NoError(t, err)
	assert.Equal(t, vfs.FileTypeCharDevice, n.Type)
	assert.Equal(t, vfs.DeviceID(7), n.Dev)
	require.NoError(t, v.Release(n))

	// The device id survives a cache round trip.
	got, err := v.Acquire("/null")
	require.NoError(t, err)
	assert.Equal(t, vfs.DeviceID(7), got.Dev)
	require.NoError(t, v.Release(got))
}

func TestDuplicateCreateRefused(t *testing.T) {
	v := newHarness(t)

	n, err := v.Create("/once.txt", 0644)
	require.NoError(t, err)
	require.NoError(t, v.Release(n))

	_, err = v.Create("/once.txt", 0644)
	require.Error(t, err)
	assert.Equal(t, errors.ErrAlreadyExists, errors.CodeOf(err))
}

func TestVolumesAreIndependent(t *testing.T) {
	v := vfs.New(vfs.Options{})
	require.NoError(t, v.RegisterFilesystemType("memfs", New().Configure))
	require.NoError(t, v.Mount(1, "/", "memfs"))

	dir, err := v.Mkdir("/mnt", 0755)
	require.NoError(t, err)
	require.NoError(t, v.Release(dir))
	require.NoError(t, v.Mount(2, "/mnt", "memfs"))

	n, err := v.Create("/only-on-root.txt", 0644)
	require.NoError(t, err)
	require.NoError(t, v.Release(n))

	// The nested volume has its own empty tree.
	_, err = v.Resolve("/mnt/only-on-root.txt")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}
