// Package memfs implements a RAM-backed filesystem driver for the VFS.
//
// One Driver serves one filesystem type registration; every probed device
// gets its own volume of inodes, so several memfs superblocks can coexist.
// Volumes survive unmount: remounting the same device id sees the same
// tree, which mirrors how a disk filesystem would behave.
package memfs

import (
	"sync"

	"github.com/corevfs/corevfs/pkg/vfs"
	"github.com/corevfs/corevfs/pkg/vfs/errors"
)

const (
	blockSize   = 4096
	maxFileSize = 1 << 30

	// rootVnodeNo is the fixed vnode number of every volume root.
	rootVnodeNo = 1
)

// Driver is a memfs filesystem type. Register it with
// vfs.RegisterFilesystemType(name, driver.Configure).
type Driver struct {
	mu      sync.Mutex
	volumes map[vfs.DeviceID]*volume
}

// New creates a Driver with no volumes.
func New() *Driver {
	return &Driver{volumes: make(map[vfs.DeviceID]*volume)}
}

// Configure installs the driver as the type's lifecycle operations.
func (d *Driver) Configure(ft *vfs.FilesystemType) error {
	ft.Ops = d
	return nil
}

// volume is the per-device inode table.
type volume struct {
	mu     sync.Mutex
	nextNo uint64
	inodes map[uint64]*inode
}

type inode struct {
	typ      vfs.FileType
	mode     uint32
	dev      vfs.DeviceID
	data     []byte
	children map[string]uint64 // directories only
}

func newVolume() *volume {
	v := &volume{
		nextNo: rootVnodeNo + 1,
		inodes: make(map[uint64]*inode),
	}
	v.inodes[rootVnodeNo] = &inode{
		typ:      vfs.FileTypeDirectory,
		mode:     0755,
		children: make(map[string]uint64),
	}
	return v
}

// ============================================================================
// FilesystemTypeOps
// ============================================================================

// ProbeSuperblock accepts any device, creating its volume on first sight,
// and installs the superblock operations.
func (d *Driver) ProbeSuperblock(sb *vfs.Superblock) error {
	d.mu.Lock()
	vol, ok := d.volumes[sb.DeviceID()]
	if !ok {
		vol = newVolume()
		d.volumes[sb.DeviceID()] = vol
	}
	d.mu.Unlock()

	sb.Ops = d
	sb.BlockSize = blockSize
	sb.MaxFileSize = maxFileSize
	sb.RootVnodeNo = rootVnodeNo
	sb.PrivateData = vol
	return nil
}

// ReleaseSuperblock detaches the volume from the superblock. The volume
// itself stays with the driver so a remount finds the same tree.
func (d *Driver) ReleaseSuperblock(sb *vfs.Superblock) error {
	sb.PrivateData = nil
	return nil
}

// ============================================================================
// SuperblockOps
// ============================================================================

func (d *Driver) Mount(sb *vfs.Superblock) error   { return nil }
func (d *Driver) Unmount(sb *vfs.Superblock) error { return nil }

// ReadVnode populates v from the volume's inode table.
func (d *Driver) ReadVnode(sb *vfs.Superblock, v *vfs.Vnode) error {
	vol := sb.PrivateData.(*volume)
	vol.mu.Lock()
	ino, ok := vol.inodes[v.No]
	vol.mu.Unlock()
	if !ok {
		return errors.NewNotFoundError("", "vnode")
	}
	vol.populate(v, ino)
	return nil
}

// WriteVnode persists metadata back into the inode.
func (d *Driver) WriteVnode(sb *vfs.Superblock, v *vfs.Vnode) error {
	ino, ok := v.PrivateData.(*inode)
	if !ok {
		return errors.NewCorruptError("vnode carries no memfs inode")
	}
	vol := sb.PrivateData.(*volume)
	vol.mu.Lock()
	ino.mode = v.Mode
	ino.dev = v.Dev
	vol.mu.Unlock()
	return nil
}

// DestroyVnode drops the in-memory identity. The inode itself stays in
// the volume; only the cached vnode object dies.
func (d *Driver) DestroyVnode(sb *vfs.Superblock, v *vfs.Vnode) error {
	v.PrivateData = nil
	return nil
}

// populate fills a vnode from an inode and wires the volume in as its
// operation set.
func (vol *volume) populate(v *vfs.Vnode, ino *inode) {
	vol.mu.Lock()
	v.Type = ino.typ
	v.Mode = ino.mode
	v.Size = uint64(len(ino.data))
	v.Dev = ino.dev
	vol.mu.Unlock()
	v.IOps = vol
	v.FOps = vol
	v.PrivateData = ino
}

// ============================================================================
// InodeOps
// ============================================================================

// Lookup searches the directory for entry.Name().
func (vol *volume) Lookup(dir *vfs.Vnode, entry *vfs.Dentry) error {
	ino := dir.PrivateData.(*inode)
	vol.mu.Lock()
	no, ok := ino.children[entry.Name()]
	vol.mu.Unlock()
	if !ok {
		return errors.NewNotFoundError(entry.Name(), "directory entry")
	}
	entry.SetVnodeNo(no)
	return nil
}

// Create makes a regular file.
func (vol *volume) Create(dir *vfs.Vnode, entry *vfs.Dentry, v *vfs.Vnode, mode uint32) error {
	return vol.newChild(dir, entry, v, &inode{typ: vfs.FileTypeRegular, mode: mode})
}

// Mkdir makes a directory.
func (vol *volume) Mkdir(dir *vfs.Vnode, entry *vfs.Dentry, v *vfs.Vnode, mode uint32) error {
	return vol.newChild(dir, entry, v, &inode{
		typ:      vfs.FileTypeDirectory,
		mode:     mode,
		children: make(map[string]uint64),
	})
}

// Mknod makes a device node.
func (vol *volume) Mknod(dir *vfs.Vnode, entry *vfs.Dentry, v *vfs.Vnode, mode uint32, dev vfs.DeviceID) error {
	return vol.newChild(dir, entry, v, &inode{typ: vfs.FileTypeCharDevice, mode: mode, dev: dev})
}

func (vol *volume) newChild(dir *vfs.Vnode, entry *vfs.Dentry, v *vfs.Vnode, ino *inode) error {
	dirIno := dir.PrivateData.(*inode)

	vol.mu.Lock()
	if dirIno.children == nil {
		vol.mu.Unlock()
		return errors.NewNotDirectoryError(entry.Name())
	}
	if _, exists := dirIno.children[entry.Name()]; exists {
		vol.mu.Unlock()
		return errors.NewAlreadyExistsError(entry.Name())
	}
	no := vol.nextNo
	vol.nextNo++
	vol.inodes[no] = ino
	dirIno.children[entry.Name()] = no
	vol.mu.Unlock()

	v.No = no
	entry.SetVnodeNo(no)
	vol.populate(v, ino)
	return nil
}

// ============================================================================
// FileOps (stored by the core, driven by the open-file layer)
// ============================================================================

func (vol *volume) Open(v *vfs.Vnode) error    { return nil }
func (vol *volume) Release(v *vfs.Vnode) error { return nil }

// Read copies from the file contents at off.
func (vol *volume) Read(v *vfs.Vnode, p []byte, off int64) (int, error) {
	ino := v.PrivateData.(*inode)
	vol.mu.Lock()
	defer vol.mu.Unlock()

	if off >= int64(len(ino.data)) {
		return 0, nil
	}
	return copy(p, ino.data[off:]), nil
}

// Write copies into the file contents at off, growing the file as needed.
func (vol *volume) Write(v *vfs.Vnode, p []byte, off int64) (int, error) {
	ino := v.PrivateData.(*inode)
	vol.mu.Lock()
	defer vol.mu.Unlock()

	if end := off + int64(len(p)); end > int64(len(ino.data)) {
		if end > maxFileSize {
			return 0, errors.NewNoMemoryError("file exceeds memfs maximum size")
		}
		grown := make([]byte, end)
		copy(grown, ino.data)
		ino.data = grown
	}
	n := copy(ino.data[off:], p)
	v.Size = uint64(len(ino.data))
	return n, nil
}

// Seek computes the new offset for the open-file layer.
func (vol *volume) Seek(v *vfs.Vnode, offset int64, whence int) (int64, error) {
	ino := v.PrivateData.(*inode)
	vol.mu.Lock()
	size := int64(len(ino.data))
	vol.mu.Unlock()

	switch whence {
	case 0: // io.SeekStart
		return offset, nil
	case 2: // io.SeekEnd
		return size + offset, nil
	default:
		return 0, errors.NewNotImplementedError("seek from current offset")
	}
}

func (vol *volume) Ioctl(v *vfs.Vnode, cmd uint64, arg any) error {
	return errors.NewNotImplementedError("memfs ioctl")
}
