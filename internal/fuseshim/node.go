// Package fuseshim adapts the a1fs core file system onto the go-fuse v2
// node API, so an a1fs image can be mounted read-write on the host.
// Every Node method is a thin translation: it maps a FUSE path operation
// onto the matching a1fs.FileSystem call and converts the returned error
// with a1fs.Errno. The mount binary is explicitly a host binding, not part
// of the on-disk format itself.
package fuseshim

import (
	"context"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/a1fs-go/a1fs/a1fs"
)

// Node is one path's worth of FUSE state: the shared file system handle
// and the absolute a1fs path this node addresses. a1fs has no notion of
// open file handles distinct from the path itself, so every FileHandle
// returned here is nil.
type Node struct {
	fs.Inode
	fsys *a1fs.FileSystem
	path string
}

var (
	_ fs.NodeGetattrer = (*Node)(nil)
	_ fs.NodeLookuper  = (*Node)(nil)
	_ fs.NodeReaddirer = (*Node)(nil)
	_ fs.NodeOpener    = (*Node)(nil)
	_ fs.NodeReader    = (*Node)(nil)
	_ fs.NodeWriter    = (*Node)(nil)
	_ fs.NodeCreater   = (*Node)(nil)
	_ fs.NodeMkdirer   = (*Node)(nil)
	_ fs.NodeUnlinker  = (*Node)(nil)
	_ fs.NodeRmdirer   = (*Node)(nil)
	_ fs.NodeRenamer   = (*Node)(nil)
	_ fs.NodeSetattrer = (*Node)(nil)
	_ fs.NodeStatfser  = (*Node)(nil)
)

// Root returns the root node of an a1fs-backed FUSE tree.
func Root(fsys *a1fs.FileSystem) *Node {
	return &Node{fsys: fsys, path: "/"}
}

func childPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func stMode(mode uint32) uint32 {
	if a1fs.IsDir(mode) {
		return syscall.S_IFDIR
	}
	return syscall.S_IFREG
}

func fillAttr(out *fuse.Attr, a a1fs.Attr) {
	out.Ino = uint64(a.Ino)
	// a1fs does not enforce permissions; everything is reported as 0777.
	out.Mode = a.Mode | 0777
	out.Nlink = a.Links
	out.Size = a.Size
	// stat(2) counts blocks in 512-byte sectors.
	out.Blocks = a.Blocks * (a1fs.BlockSize / 512)
	out.Mtime = uint64(a.Mtime.Unix())
	out.Mtimensec = uint32(a.Mtime.Nanosecond())
}

func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	a, err := n.fsys.GetAttr(n.path)
	if err != nil {
		return a1fs.Errno(err)
	}
	fillAttr(&out.Attr, a)
	return 0
}

func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p := childPath(n.path, name)
	a, err := n.fsys.GetAttr(p)
	if err != nil {
		return nil, a1fs.Errno(err)
	}
	fillAttr(&out.Attr, a)
	child := &Node{fsys: n.fsys, path: p}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: stMode(a.Mode), Ino: uint64(a.Ino)}), 0
}

func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := n.fsys.ReadDir(n.path)
	if err != nil {
		return nil, a1fs.Errno(err)
	}
	list := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, fuse.DirEntry{Ino: uint64(e.Ino), Name: e.Name, Mode: stMode(e.Mode)})
	}
	return fs.NewListDirStream(list), 0
}

func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, 0, 0
}

func (n *Node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	read, err := n.fsys.Read(n.path, uint64(off), dest)
	if err != nil {
		return nil, a1fs.Errno(err)
	}
	return fuse.ReadResultData(dest[:read]), 0
}

func (n *Node) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	written, err := n.fsys.Write(n.path, uint64(off), data)
	if err != nil {
		return 0, a1fs.Errno(err)
	}
	return uint32(written), 0
}

func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	p := childPath(n.path, name)
	if err := n.fsys.Create(p, mode); err != nil {
		return nil, nil, 0, a1fs.Errno(err)
	}
	a, err := n.fsys.GetAttr(p)
	if err != nil {
		return nil, nil, 0, a1fs.Errno(err)
	}
	fillAttr(&out.Attr, a)
	child := &Node{fsys: n.fsys, path: p}
	inode := n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG, Ino: uint64(a.Ino)})
	return inode, nil, 0, 0
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p := childPath(n.path, name)
	if err := n.fsys.Mkdir(p, mode); err != nil {
		return nil, a1fs.Errno(err)
	}
	a, err := n.fsys.GetAttr(p)
	if err != nil {
		return nil, a1fs.Errno(err)
	}
	fillAttr(&out.Attr, a)
	child := &Node{fsys: n.fsys, path: p}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR, Ino: uint64(a.Ino)}), 0
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	return a1fs.Errno(n.fsys.Unlink(childPath(n.path, name)))
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return a1fs.Errno(n.fsys.Rmdir(childPath(n.path, name)))
}

func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	np, ok := newParent.(*Node)
	if !ok {
		return syscall.EXDEV
	}
	return a1fs.Errno(n.fsys.Rename(childPath(n.path, name), childPath(np.path, newName)))
}

func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	info := n.fsys.Statfs()
	out.Bsize = info.BlockSize
	out.Frsize = info.BlockSize
	out.Blocks = uint64(info.Blocks)
	out.Bfree = uint64(info.FreeBlocks)
	out.Bavail = uint64(info.FreeBlocks)
	out.Files = uint64(info.Inodes - info.FreeInodes)
	out.Ffree = uint64(info.FreeInodes)
	out.NameLen = info.NameMax
	return 0
}

func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if err := n.fsys.Truncate(n.path, size); err != nil {
			return a1fs.Errno(err)
		}
	}
	if in.Valid&(fuse.FATTR_MTIME|fuse.FATTR_MTIME_NOW) != 0 {
		mtime := time.Unix(int64(in.Mtime), int64(in.Mtimensec))
		if in.Valid&fuse.FATTR_MTIME_NOW != 0 {
			mtime = time.Now()
		}
		if err := n.fsys.Utimens(n.path, mtime); err != nil {
			return a1fs.Errno(err)
		}
	}
	a, err := n.fsys.GetAttr(n.path)
	if err != nil {
		return a1fs.Errno(err)
	}
	fillAttr(&out.Attr, a)
	return 0
}
