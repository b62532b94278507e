package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	vfserrors "github.com/corevfs/corevfs/pkg/vfs/errors"
)

// fakeBackend is a scriptable in-memory driver shared by the core tests.
// Error fields inject failures at specific callbacks; call counters let
// tests assert that rollback paths invoke each callback exactly once.
type fakeBackend struct {
	probeErr    error
	mountErr    error
	unmountErr  error
	releaseErr  error
	lookupErr   error
	createErr   error
	readErrs    map[uint64]error
	destroyErrs map[uint64]error

	releaseCalls int
	mountCalls   int
	unmountCalls int
	readCalls    map[uint64]int
	destroyCalls map[uint64]int

	nextNo uint64
	nodes  map[uint64]*fakeNode
}

type fakeNode struct {
	typ      FileType
	children map[string]uint64
}

// newFakeBackend builds a backend whose volume holds just a root
// directory with vnode number 1.
func newFakeBackend() *fakeBackend {
	b := &fakeBackend{
		readErrs:     make(map[uint64]error),
		destroyErrs:  make(map[uint64]error),
		readCalls:    make(map[uint64]int),
		destroyCalls: make(map[uint64]int),
		nodes:        make(map[uint64]*fakeNode),
		nextNo:       2,
	}
	b.nodes[1] = &fakeNode{typ: FileTypeDirectory, children: make(map[string]uint64)}
	return b
}

func (b *fakeBackend) add(parent uint64, name string, typ FileType) uint64 {
	no := b.nextNo
	b.nextNo++
	n := &fakeNode{typ: typ}
	if typ == FileTypeDirectory {
		n.children = make(map[string]uint64)
	}
	b.nodes[no] = n
	b.nodes[parent].children[name] = no
	return no
}

func (b *fakeBackend) addDir(parent uint64, name string) uint64 {
	return b.add(parent, name, FileTypeDirectory)
}

func (b *fakeBackend) addFile(parent uint64, name string) uint64 {
	return b.add(parent, name, FileTypeRegular)
}

func (b *fakeBackend) Configure(ft *FilesystemType) error {
	ft.Ops = b
	return nil
}

func (b *fakeBackend) ProbeSuperblock(sb *Superblock) error {
	if b.probeErr != nil {
		return b.probeErr
	}
	sb.Ops = b
	sb.BlockSize = 512
	sb.RootVnodeNo = 1
	return nil
}

func (b *fakeBackend) ReleaseSuperblock(sb *Superblock) error {
	b.releaseCalls++
	return b.releaseErr
}

func (b *fakeBackend) Mount(sb *Superblock) error {
	b.mountCalls++
	return b.mountErr
}

func (b *fakeBackend) Unmount(sb *Superblock) error {
	b.unmountCalls++
	return b.unmountErr
}

func (b *fakeBackend) ReadVnode(sb *Superblock, v *Vnode) error {
	b.readCalls[v.No]++
	if err := b.readErrs[v.No]; err != nil {
		return err
	}
	n, ok := b.nodes[v.No]
	if !ok {
		return vfserrors.NewNotFoundError("", "vnode")
	}
	v.Type = n.typ
	v.IOps = b
	return nil
}

func (b *fakeBackend) WriteVnode(sb *Superblock, v *Vnode) error { return nil }

func (b *fakeBackend) DestroyVnode(sb *Superblock, v *Vnode) error {
	if err := b.destroyErrs[v.No]; err != nil {
		return err
	}
	b.destroyCalls[v.No]++
	return nil
}

func (b *fakeBackend) Lookup(dir *Vnode, entry *Dentry) error {
	if b.lookupErr != nil {
		return b.lookupErr
	}
	n := b.nodes[dir.No]
	no, ok := n.children[entry.Name()]
	if !ok {
		return vfserrors.NewNotFoundError(entry.Name(), "directory entry")
	}
	entry.SetVnodeNo(no)
	return nil
}

func (b *fakeBackend) Create(dir *Vnode, entry *Dentry, v *Vnode, mode uint32) error {
	return b.newChild(dir, entry, v, FileTypeRegular)
}

func (b *fakeBackend) Mkdir(dir *Vnode, entry *Dentry, v *Vnode, mode uint32) error {
	return b.newChild(dir, entry, v, FileTypeDirectory)
}

func (b *fakeBackend) Mknod(dir *Vnode, entry *Dentry, v *Vnode, mode uint32, dev DeviceID) error {
	if err := b.newChild(dir, entry, v, FileTypeCharDevice); err != nil {
		return err
	}
	v.Dev = dev
	return nil
}

func (b *fakeBackend) newChild(dir *Vnode, entry *Dentry, v *Vnode, typ FileType) error {
	if b.createErr != nil {
		return b.createErr
	}
	no := b.add(dir.No, entry.Name(), typ)
	v.No = no
	v.Type = typ
	v.IOps = b
	return nil
}

// newTestVFS builds a VFS with a fake backend mounted at "/" on device 1.
func newTestVFS(t *testing.T, opts Options) (*VFS, *fakeBackend) {
	t.Helper()

	v := New(opts)
	b := newFakeBackend()
	require.NoError(t, v.RegisterFilesystemType("fakefs", b.Configure))
	require.NoError(t, v.Mount(1, "/", "fakefs"))
	return v, b
}
