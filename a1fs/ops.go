package a1fs

import (
	"fmt"
	"time"
)

// Attr is the subset of inode metadata the top-level operations expose to
// callers. a1fs tracks only mtime; atime and ctime are not maintained.
type Attr struct {
	Ino    uint32
	Mode   uint32
	Links  uint32
	Size   uint64
	Blocks uint64
	Mtime  time.Time
}

// DirEntry is one child named by ReadDir.
type DirEntry struct {
	Ino  uint32
	Name string
	Mode uint32
}

// StatfsInfo mirrors the statfs(2) fields a1fs can actually report.
type StatfsInfo struct {
	BlockSize  uint32
	Blocks     uint32
	FreeBlocks uint32
	Inodes     uint32
	FreeInodes uint32
	NameMax    uint32
}

func (fs *FileSystem) attrOf(ino uint32) Attr {
	i := fs.inode(ino)
	return Attr{
		Ino:    ino,
		Mode:   i.mode(),
		Links:  i.links(),
		Size:   i.size(),
		Blocks: i.blocks(),
		Mtime:  time.Unix(i.mtimeSec(), i.mtimeNsec()),
	}
}

// Statfs reports the image's capacity and occupancy.
func (fs *FileSystem) Statfs() StatfsInfo {
	sb := fs.sb()
	return StatfsInfo{
		BlockSize:  BlockSize,
		Blocks:     sb.maxBlockCount(),
		FreeBlocks: sb.freeBlocksCount(),
		Inodes:     sb.maxInodesCount(),
		FreeInodes: sb.freeInodesCount(),
		NameMax:    NameMax,
	}
}

// GetAttr resolves path and returns its metadata. The root directory's
// inode number is reported as RootIno even though it is never named by a
// directory entry of its own.
func (fs *FileSystem) GetAttr(path string) (Attr, error) {
	ino, err := fs.resolve(path)
	if err != nil {
		return Attr{}, err
	}
	return fs.attrOf(ino), nil
}

// ReadDir lists path's contents: ".", "..", then every stored child in
// entry order. The dot entries are synthesized — a1fs directories store
// only their named children.
func (fs *FileSystem) ReadDir(path string) ([]DirEntry, error) {
	ino, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	dir := fs.inode(ino)
	if !IsDir(dir.mode()) {
		return nil, fmt.Errorf("readdir %q: %w", path, ErrNotDir)
	}
	parentNo := RootIno
	if len(splitComponents(path)) > 0 {
		if p, _, _, err := fs.splitParent(path); err == nil {
			parentNo = p
		}
	}
	n := dirEntryCount(dir)
	out := make([]DirEntry, 0, n+2)
	out = append(out,
		DirEntry{Ino: ino, Name: ".", Mode: dir.mode()},
		DirEntry{Ino: parentNo, Name: "..", Mode: fs.inode(parentNo).mode()},
	)
	for i := 0; i < n; i++ {
		d := fs.dirEntryAt(dir, i)
		child := fs.inode(d.ino())
		out = append(out, DirEntry{Ino: d.ino(), Name: d.name(), Mode: child.mode()})
	}
	return out, nil
}

// Mkdir creates an empty directory at path with the given permission bits.
func (fs *FileSystem) Mkdir(path string, perm uint32) error {
	parentNo, parentPath, name, err := fs.splitParent(path)
	if err != nil {
		return err
	}
	parent := fs.inode(parentNo)
	if len(name) >= NameMax {
		return fmt.Errorf("mkdir %q: %w", path, ErrNameTooLong)
	}
	if _, exists := fs.dirLookup(parent, name); exists {
		return fmt.Errorf("mkdir %q: %w", path, ErrExist)
	}

	childNo, err := fs.allocInode()
	if err != nil {
		return fmt.Errorf("mkdir %q: %w", path, err)
	}
	child := fs.inode(childNo)
	child.setMode(modeDir | (perm &^ modeFmt))
	child.setLinks(2)
	fs.touch(child)

	if err := fs.dirInsert(parent, childNo, name); err != nil {
		fs.freeInode(childNo)
		return fmt.Errorf("mkdir %q: %w", path, err)
	}
	parent.setLinks(parent.links() + 1)
	fs.touchAncestors(parentPath)
	return nil
}

// Rmdir removes the empty directory at path.
func (fs *FileSystem) Rmdir(path string) error {
	parentNo, parentPath, name, err := fs.splitParent(path)
	if err != nil {
		return err
	}
	parent := fs.inode(parentNo)
	childNo, ok := fs.dirLookup(parent, name)
	if !ok {
		return fmt.Errorf("rmdir %q: %w", path, ErrNotFound)
	}
	child := fs.inode(childNo)
	if !IsDir(child.mode()) {
		return fmt.Errorf("rmdir %q: %w", path, ErrNotDir)
	}
	if !dirEmpty(child) {
		return fmt.Errorf("rmdir %q: %w", path, ErrNotEmpty)
	}

	fs.dirRemove(parent, name)
	parent.setLinks(parent.links() - 1)
	fs.freeChildData(child)
	fs.freeInode(childNo)
	fs.touchAncestors(parentPath)
	return nil
}

// Create creates an empty regular file at path.
func (fs *FileSystem) Create(path string, perm uint32) error {
	parentNo, parentPath, name, err := fs.splitParent(path)
	if err != nil {
		return err
	}
	parent := fs.inode(parentNo)
	if len(name) >= NameMax {
		return fmt.Errorf("create %q: %w", path, ErrNameTooLong)
	}
	if _, exists := fs.dirLookup(parent, name); exists {
		return fmt.Errorf("create %q: %w", path, ErrExist)
	}

	childNo, err := fs.allocInode()
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	child := fs.inode(childNo)
	child.setMode(modeReg | (perm &^ modeFmt))
	child.setLinks(1)
	fs.touch(child)

	if err := fs.dirInsert(parent, childNo, name); err != nil {
		fs.freeInode(childNo)
		return fmt.Errorf("create %q: %w", path, err)
	}
	fs.touchAncestors(parentPath)
	return nil
}

// Unlink removes the regular file at path.
func (fs *FileSystem) Unlink(path string) error {
	parentNo, parentPath, name, err := fs.splitParent(path)
	if err != nil {
		return err
	}
	parent := fs.inode(parentNo)
	childNo, ok := fs.dirLookup(parent, name)
	if !ok {
		return fmt.Errorf("unlink %q: %w", path, ErrNotFound)
	}
	child := fs.inode(childNo)
	if IsDir(child.mode()) {
		return fmt.Errorf("unlink %q: %w", path, ErrIsDir)
	}

	fs.dirRemove(parent, name)
	if child.links() > 0 {
		child.setLinks(child.links() - 1)
	}
	if child.links() == 0 {
		fs.freeChildData(child)
		fs.freeInode(childNo)
	}
	fs.touchAncestors(parentPath)
	return nil
}

// Truncate resizes the regular file at path to exactly size bytes.
func (fs *FileSystem) Truncate(path string, size uint64) error {
	parentNo, parentPath, name, err := fs.splitParent(path)
	if err != nil {
		return err
	}
	parent := fs.inode(parentNo)
	childNo, ok := fs.dirLookup(parent, name)
	if !ok {
		return fmt.Errorf("truncate %q: %w", path, ErrNotFound)
	}
	child := fs.inode(childNo)
	if IsDir(child.mode()) {
		return fmt.Errorf("truncate %q: %w", path, ErrIsDir)
	}
	if err := fs.resize(child, size); err != nil {
		return fmt.Errorf("truncate %q: %w", path, err)
	}
	fs.touchAncestors(parentPath)
	return nil
}

// Read copies up to len(p) bytes from path's data starting at off into p.
func (fs *FileSystem) Read(path string, off uint64, p []byte) (int, error) {
	ino, err := fs.resolve(path)
	if err != nil {
		return 0, err
	}
	child := fs.inode(ino)
	if IsDir(child.mode()) {
		return 0, fmt.Errorf("read %q: %w", path, ErrIsDir)
	}
	return fs.readAt(child, off, p), nil
}

// Write copies p into path's data starting at off, growing the file first
// if the write extends past its current size.
func (fs *FileSystem) Write(path string, off uint64, p []byte) (int, error) {
	parentNo, parentPath, name, err := fs.splitParent(path)
	if err != nil {
		return 0, err
	}
	parent := fs.inode(parentNo)
	childNo, ok := fs.dirLookup(parent, name)
	if !ok {
		return 0, fmt.Errorf("write %q: %w", path, ErrNotFound)
	}
	child := fs.inode(childNo)
	if IsDir(child.mode()) {
		return 0, fmt.Errorf("write %q: %w", path, ErrIsDir)
	}
	n, err := fs.writeAt(child, off, p)
	if err != nil {
		return n, fmt.Errorf("write %q: %w", path, err)
	}
	fs.touchAncestors(parentPath)
	return n, nil
}

// Utimens sets path's modification time.
func (fs *FileSystem) Utimens(path string, mtime time.Time) error {
	ino, err := fs.resolve(path)
	if err != nil {
		return err
	}
	child := fs.inode(ino)
	child.setMtimeSec(mtime.Unix())
	child.setMtimeNsec(int64(mtime.Nanosecond()))
	return nil
}

// Rename moves the entry at oldPath to newPath, replacing and fully
// tearing down any existing file or empty directory at newPath. A
// non-empty directory at newPath is rejected with ErrNotEmpty. When both
// paths share a parent the dentry's name is rewritten in place; otherwise
// the entry moves between the two directories, and moving a directory
// transfers the ".." link it implies: the old parent's link count drops by
// one and the new parent's rises by one. Renaming a regular file changes
// no parent's link count, except that replacing an empty directory at
// newPath drops the new parent's link count by one.
func (fs *FileSystem) Rename(oldPath, newPath string) error {
	oldParentNo, oldParentPath, oldName, err := fs.splitParent(oldPath)
	if err != nil {
		return err
	}
	newParentNo, newParentPath, newName, err := fs.splitParent(newPath)
	if err != nil {
		return err
	}
	oldParent := fs.inode(oldParentNo)
	movedNo, ok := fs.dirLookup(oldParent, oldName)
	if !ok {
		return fmt.Errorf("rename %q: %w", oldPath, ErrNotFound)
	}
	if oldParentNo == newParentNo && oldName == newName {
		return nil
	}
	newParent := fs.inode(newParentNo)
	moved := fs.inode(movedNo)

	if destNo, exists := fs.dirLookup(newParent, newName); exists {
		dest := fs.inode(destNo)
		if IsDir(dest.mode()) {
			if !dirEmpty(dest) {
				return fmt.Errorf("rename %q: %w", newPath, ErrNotEmpty)
			}
			fs.dirRemove(newParent, newName)
			newParent.setLinks(newParent.links() - 1)
			fs.freeChildData(dest)
			fs.freeInode(destNo)
		} else {
			fs.dirRemove(newParent, newName)
			fs.freeChildData(dest)
			fs.freeInode(destNo)
		}
	}

	if oldParentNo == newParentNo {
		fs.dirRenameEntry(oldParent, oldName, newName)
		fs.touchAncestors(oldParentPath)
		return nil
	}

	fs.dirRemove(oldParent, oldName)
	if err := fs.dirInsert(newParent, movedNo, newName); err != nil {
		// best effort: put the entry back where it came from
		fs.dirInsert(oldParent, movedNo, oldName)
		return fmt.Errorf("rename %q: %w", newPath, err)
	}

	if IsDir(moved.mode()) {
		oldParent.setLinks(oldParent.links() - 1)
		newParent.setLinks(newParent.links() + 1)
	}

	fs.touchAncestors(oldParentPath)
	fs.touchAncestors(newParentPath)
	return nil
}

// freeChildData releases every block a now-unreferenced inode's data
// occupies, via the same splice-out machinery a truncate-to-zero uses.
func (fs *FileSystem) freeChildData(ino inode) {
	if ino.size() > 0 {
		fs.spliceOut(ino, 0, ino.size())
	}
}
