package a1fs

import "bytes"

// dentry is a typed view over an entrySize-byte buffer holding one
// directory entry record: a 4-byte inode number followed by a NUL-terminated name of at
// most NameMax bytes. Directory data is just regular file data containing
// a dense array of these records — no free-list or tombstone bitmap; a
// removed entry is closed by splicing its record out and sliding every
// later record down by one slot.
type dentry struct {
	b []byte
}

func (d dentry) ino() uint32 {
	return uint32(d.b[0]) | uint32(d.b[1])<<8 | uint32(d.b[2])<<16 | uint32(d.b[3])<<24
}

func (d dentry) setIno(v uint32) {
	d.b[0] = byte(v)
	d.b[1] = byte(v >> 8)
	d.b[2] = byte(v >> 16)
	d.b[3] = byte(v >> 24)
}

func (d dentry) name() string {
	raw := d.b[4:entrySize]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		return string(raw[:i])
	}
	return string(raw)
}

func (d dentry) setName(name string) {
	raw := d.b[4:entrySize]
	for i := range raw {
		raw[i] = 0
	}
	copy(raw, name)
}

// dirEntryCount returns the number of directory entries ino's data holds.
// Directory data is always an exact multiple of entrySize.
func dirEntryCount(ino inode) int {
	return int(ino.size() / entrySize)
}

// dirEntryAt returns a view over the i-th entry of dir's data.
func (fs *FileSystem) dirEntryAt(dir inode, i int) dentry {
	off := uint64(i) * entrySize
	buf := make([]byte, entrySize)
	fs.readAt(dir, off, buf)
	return dentry{b: buf}
}

// dirLookup scans dir's entries for name, returning its inode number and
// true, or false if no entry matches.
func (fs *FileSystem) dirLookup(dir inode, name string) (uint32, bool) {
	n := dirEntryCount(dir)
	buf := make([]byte, entrySize)
	for i := 0; i < n; i++ {
		fs.readAt(dir, uint64(i)*entrySize, buf)
		d := dentry{b: buf}
		if d.name() == name {
			return d.ino(), true
		}
	}
	return 0, false
}

// dirInsert appends a (ino, name) record to dir's data. Callers must have
// already verified name is absent and within NameMax.
func (fs *FileSystem) dirInsert(dir inode, ino uint32, name string) error {
	buf := make([]byte, entrySize)
	d := dentry{b: buf}
	d.setIno(ino)
	d.setName(name)
	off := dir.size()
	if _, err := fs.appendData(dir, entrySize); err != nil {
		return err
	}
	if _, err := fs.writeAt(dir, off, buf); err != nil {
		return err
	}
	return nil
}

// dirRemove deletes the entry named name from dir's data, splicing its
// record out and sliding every later record down by one slot. Reports
// whether an entry was found.
func (fs *FileSystem) dirRemove(dir inode, name string) bool {
	n := dirEntryCount(dir)
	buf := make([]byte, entrySize)
	match := -1
	for i := 0; i < n; i++ {
		fs.readAt(dir, uint64(i)*entrySize, buf)
		if (dentry{b: buf}).name() == name {
			match = i
			break
		}
	}
	if match < 0 {
		return false
	}
	fs.spliceOut(dir, uint64(match)*entrySize, entrySize)
	return true
}

// dirRenameEntry rewrites the name of dir's entry for oldName to newName in
// place, leaving the record's position and inode number untouched. Reports
// whether an entry was found.
func (fs *FileSystem) dirRenameEntry(dir inode, oldName, newName string) bool {
	n := dirEntryCount(dir)
	buf := make([]byte, entrySize)
	for i := 0; i < n; i++ {
		fs.readAt(dir, uint64(i)*entrySize, buf)
		d := dentry{b: buf}
		if d.name() == oldName {
			d.setName(newName)
			fs.writeAt(dir, uint64(i)*entrySize, buf)
			return true
		}
	}
	return false
}

// dirEmpty reports whether dir's data holds no entries besides "." and
// "..", which the top-level operations never materialize as records —
// a1fs directories store only their children.
func dirEmpty(dir inode) bool {
	return dirEntryCount(dir) == 0
}
