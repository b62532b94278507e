// Package badgerfs implements a persistent filesystem driver backed by
// BadgerDB. Every probed device gets a volume record keyed by the device
// id; inodes, directory entries and file contents live under prefixed
// keys inside the shared database, so one Driver can serve many mounted
// superblocks at once.
package badgerfs

import (
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/corevfs/corevfs/internal/logger"
	"github.com/corevfs/corevfs/pkg/vfs"
	vfserrors "github.com/corevfs/corevfs/pkg/vfs/errors"
)

const (
	blockSize   = 4096
	maxFileSize = 1 << 32
)

// Driver is a badgerfs filesystem type backed by a single BadgerDB
// instance. Register it with vfs.RegisterFilesystemType(name,
// driver.Configure) and Close it after the last unmount.
type Driver struct {
	db *badgerdb.DB
}

// Open opens (or creates) the BadgerDB database at path.
func Open(path string) (*Driver, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Driver{db: db}, nil
}

// Close closes the underlying database. Callers must unmount every
// badgerfs superblock first.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Configure installs the driver as the type's lifecycle operations.
func (d *Driver) Configure(ft *vfs.FilesystemType) error {
	ft.Ops = d
	return nil
}

// volume binds a mounted superblock to its on-disk volume record.
type volume struct {
	drv *Driver
	id  uuid.UUID
	dev vfs.DeviceID
}

// ============================================================================
// FilesystemTypeOps
// ============================================================================

// ProbeSuperblock loads the device's volume record, initializing a fresh
// volume with an empty root directory on first sight.
func (d *Driver) ProbeSuperblock(sb *vfs.Superblock) error {
	var rec *volumeRecord

	err := d.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyVolume(sb.DeviceID()))
		if err == nil {
			return item.Value(func(val []byte) error {
				rec, err = decodeVolumeRecord(val)
				return err
			})
		}
		if err != badgerdb.ErrKeyNotFound {
			return err
		}

		rec = &volumeRecord{ID: uuid.New(), NextNo: 2, RootNo: 1}
		root := &inodeRecord{No: rec.RootNo, Type: vfs.FileTypeDirectory, Mode: 0755}

		rootBytes, err := encodeInodeRecord(root)
		if err != nil {
			return err
		}
		if err := txn.Set(keyInode(rec.ID, rec.RootNo), rootBytes); err != nil {
			return err
		}
		recBytes, err := encodeVolumeRecord(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(keyVolume(sb.DeviceID()), recBytes); err != nil {
			return err
		}

		logger.Debug("badgerfs volume created",
			"device", uint64(sb.DeviceID()),
			"volume_id", rec.ID.String())
		return nil
	})
	if err != nil {
		return vfserrors.NewIOError(fmt.Sprintf("failed to probe badgerfs volume: %v", err))
	}

	sb.Ops = d
	sb.BlockSize = blockSize
	sb.MaxFileSize = maxFileSize
	sb.RootVnodeNo = rec.RootNo
	sb.PrivateData = &volume{drv: d, id: rec.ID, dev: sb.DeviceID()}
	return nil
}

// ReleaseSuperblock drops the volume binding. The on-disk volume record
// stays, so remounting the device finds the same tree.
func (d *Driver) ReleaseSuperblock(sb *vfs.Superblock) error {
	sb.PrivateData = nil
	return nil
}

// ============================================================================
// SuperblockOps
// ============================================================================

// Mount verifies the volume's root directory is readable.
func (d *Driver) Mount(sb *vfs.Superblock) error {
	vol := sb.PrivateData.(*volume)
	err := d.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(keyInode(vol.id, sb.RootVnodeNo))
		return err
	})
	if err == badgerdb.ErrKeyNotFound {
		return vfserrors.NewCorruptError("badgerfs volume has no root inode")
	}
	if err != nil {
		return vfserrors.NewIOError(fmt.Sprintf("failed to read badgerfs root: %v", err))
	}
	return nil
}

// Unmount flushes pending writes to disk.
func (d *Driver) Unmount(sb *vfs.Superblock) error {
	if err := d.db.Sync(); err != nil {
		return vfserrors.NewIOError(fmt.Sprintf("failed to sync badgerfs volume: %v", err))
	}
	return nil
}

// ReadVnode loads the inode record for v.No.
func (d *Driver) ReadVnode(sb *vfs.Superblock, v *vfs.Vnode) error {
	vol := sb.PrivateData.(*volume)

	var rec *inodeRecord
	err := d.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyInode(vol.id, v.No))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = decodeInodeRecord(val)
			return err
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return vfserrors.NewNotFoundError("", "vnode")
	}
	if err != nil {
		return vfserrors.NewIOError(fmt.Sprintf("failed to read inode: %v", err))
	}

	vol.populate(v, rec)
	return nil
}

// WriteVnode persists the vnode's metadata back to its inode record.
func (d *Driver) WriteVnode(sb *vfs.Superblock, v *vfs.Vnode) error {
	vol := sb.PrivateData.(*volume)
	rec := &inodeRecord{No: v.No, Type: v.Type, Mode: v.Mode, Size: v.Size, Dev: v.Dev}

	err := d.db.Update(func(txn *badgerdb.Txn) error {
		data, err := encodeInodeRecord(rec)
		if err != nil {
			return err
		}
		return txn.Set(keyInode(vol.id, v.No), data)
	})
	if err != nil {
		return vfserrors.NewIOError(fmt.Sprintf("failed to write inode: %v", err))
	}
	return nil
}

// DestroyVnode drops the in-memory binding. Metadata was already
// persisted by the write paths, so there is nothing to flush here.
func (d *Driver) DestroyVnode(sb *vfs.Superblock, v *vfs.Vnode) error {
	v.PrivateData = nil
	return nil
}

func (vol *volume) populate(v *vfs.Vnode, rec *inodeRecord) {
	v.Type = rec.Type
	v.Mode = rec.Mode
	v.Size = rec.Size
	v.Dev = rec.Dev
	v.IOps = vol
	v.FOps = vol
}

// ============================================================================
// InodeOps
// ============================================================================

// Lookup resolves entry.Name() inside the directory dir.
func (vol *volume) Lookup(dir *vfs.Vnode, entry *vfs.Dentry) error {
	var no uint64
	err := vol.drv.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyChild(vol.id, dir.No, entry.Name()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			no, err = decodeChildNo(val)
			return err
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return vfserrors.NewNotFoundError(entry.Name(), "directory entry")
	}
	if err != nil {
		return vfserrors.NewIOError(fmt.Sprintf("failed to look up %q: %v", entry.Name(), err))
	}

	entry.SetVnodeNo(no)
	return nil
}

// Create makes a regular file.
func (vol *volume) Create(dir *vfs.Vnode, entry *vfs.Dentry, v *vfs.Vnode, mode uint32) error {
	return vol.newChild(dir, entry, v, &inodeRecord{Type: vfs.FileTypeRegular, Mode: mode})
}

// Mkdir makes a directory.
func (vol *volume) Mkdir(dir *vfs.Vnode, entry *vfs.Dentry, v *vfs.Vnode, mode uint32) error {
	return vol.newChild(dir, entry, v, &inodeRecord{Type: vfs.FileTypeDirectory, Mode: mode})
}

// Mknod makes a device node.
func (vol *volume) Mknod(dir *vfs.Vnode, entry *vfs.Dentry, v *vfs.Vnode, mode uint32, dev vfs.DeviceID) error {
	return vol.newChild(dir, entry, v, &inodeRecord{Type: vfs.FileTypeCharDevice, Mode: mode, Dev: dev})
}

// newChild allocates an inode number from the volume record and writes
// the inode and its directory entry in one transaction.
func (vol *volume) newChild(dir *vfs.Vnode, entry *vfs.Dentry, v *vfs.Vnode, rec *inodeRecord) error {
	err := vol.drv.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(keyChild(vol.id, dir.No, entry.Name())); err == nil {
			return vfserrors.NewAlreadyExistsError(entry.Name())
		} else if err != badgerdb.ErrKeyNotFound {
			return err
		}

		item, err := txn.Get(keyVolume(vol.dev))
		if err != nil {
			return err
		}
		var vrec *volumeRecord
		if err := item.Value(func(val []byte) error {
			vrec, err = decodeVolumeRecord(val)
			return err
		}); err != nil {
			return err
		}

		rec.No = vrec.NextNo
		vrec.NextNo++

		vrecBytes, err := encodeVolumeRecord(vrec)
		if err != nil {
			return err
		}
		if err := txn.Set(keyVolume(vol.dev), vrecBytes); err != nil {
			return err
		}
		recBytes, err := encodeInodeRecord(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(keyInode(vol.id, rec.No), recBytes); err != nil {
			return err
		}
		return txn.Set(keyChild(vol.id, dir.No, entry.Name()), encodeChildNo(rec.No))
	})
	if err != nil {
		if _, ok := err.(*vfserrors.VFSError); ok {
			return err
		}
		return vfserrors.NewIOError(fmt.Sprintf("failed to create %q: %v", entry.Name(), err))
	}

	v.No = rec.No
	entry.SetVnodeNo(rec.No)
	vol.populate(v, rec)
	return nil
}

// ============================================================================
// FileOps
// ============================================================================

func (vol *volume) Open(v *vfs.Vnode) error    { return nil }
func (vol *volume) Release(v *vfs.Vnode) error { return nil }

// Read copies from the stored file contents at off.
func (vol *volume) Read(v *vfs.Vnode, p []byte, off int64) (int, error) {
	var n int
	err := vol.drv.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyData(vol.id, v.No))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if off < int64(len(val)) {
				n = copy(p, val[off:])
			}
			return nil
		})
	})
	if err != nil {
		return 0, vfserrors.NewIOError(fmt.Sprintf("failed to read file contents: %v", err))
	}
	return n, nil
}

// Write copies into the stored file contents at off, growing the file
// as needed, and persists the new size.
func (vol *volume) Write(v *vfs.Vnode, p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > maxFileSize {
		return 0, vfserrors.NewNoMemoryError("file exceeds badgerfs maximum size")
	}

	var n int
	err := vol.drv.db.Update(func(txn *badgerdb.Txn) error {
		var data []byte
		item, err := txn.Get(keyData(vol.id, v.No))
		if err == nil {
			data, err = item.ValueCopy(nil)
			if err != nil {
				return err
			}
		} else if err != badgerdb.ErrKeyNotFound {
			return err
		}

		if end > int64(len(data)) {
			grown := make([]byte, end)
			copy(grown, data)
			data = grown
		}
		n = copy(data[off:], p)

		if err := txn.Set(keyData(vol.id, v.No), data); err != nil {
			return err
		}

		rec := &inodeRecord{No: v.No, Type: v.Type, Mode: v.Mode, Size: uint64(len(data)), Dev: v.Dev}
		recBytes, err := encodeInodeRecord(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(keyInode(vol.id, v.No), recBytes); err != nil {
			return err
		}

		v.Size = rec.Size
		return nil
	})
	if err != nil {
		return 0, vfserrors.NewIOError(fmt.Sprintf("failed to write file contents: %v", err))
	}
	return n, nil
}

// Seek computes the new offset for the open-file layer.
func (vol *volume) Seek(v *vfs.Vnode, offset int64, whence int) (int64, error) {
	switch whence {
	case 0: // io.SeekStart
		return offset, nil
	case 2: // io.SeekEnd
		return int64(v.Size) + offset, nil
	default:
		return 0, vfserrors.NewNotImplementedError("seek from current offset")
	}
}

func (vol *volume) Ioctl(v *vfs.Vnode, cmd uint64, arg any) error {
	return vfserrors.NewNotImplementedError("badgerfs ioctl")
}
