package a1fs

// cursor addresses one byte position within a file's extent-mapped data:
// which array entry, the extent descriptor at that entry, and the
// block/byte offset within that extent's physical run. A cursor produced
// by walking to offset == inode.size() may have blockInExt == ext.count —
// one past the extent's physical end — and callers must check atEnd
// before dereferencing it.
type cursor struct {
	extentIndex int
	ext         extent
	blockInExt  uint32
	byteInBlock int
}

func (c cursor) atEnd() bool {
	return c.blockInExt == c.ext.count
}

func (c cursor) blockIndex() uint32 {
	return c.ext.start + c.blockInExt
}

// walk returns a cursor addressing offset bytes into ino's data, where
// 0 <= offset <= ino.size(). ino must not be empty. Extents are traversed
// in array order, accumulating byte lengths until the running total first
// exceeds offset; when offset lands exactly on an extent boundary short of
// EOF, the cursor addresses the start of the next extent, not the end of
// the previous one. An offset equal to the byte length of all in-use
// extents (ino.size() when the size is a whole number of blocks) addresses
// one byte past the final in-use extent's physical end.
func (fs *FileSystem) walk(ino inode, offset uint64) cursor {
	var accum uint64
	idx := 0
	e := fs.extentAt(ino, idx)
	for {
		extentBytes := uint64(e.count) * BlockSize
		next := accum + extentBytes
		last := idx == MaxExtentsPerFile-1 || fs.extentAt(ino, idx+1).count == 0
		if offset < next || (last && offset == next) {
			rel := offset - accum
			return cursor{
				extentIndex: idx,
				ext:         e,
				blockInExt:  uint32(rel / BlockSize),
				byteInBlock: int(rel % BlockSize),
			}
		}
		accum = next
		idx++
		e = fs.extentAt(ino, idx)
	}
}

// step advances a cursor by one byte, crossing into the next extent array
// entry when the current position has reached this extent's physical end.
// Stepping off the final in-use extent leaves the cursor atEnd rather than
// advancing; callers must check atEnd before dereferencing.
func (fs *FileSystem) step(ino inode, c *cursor) {
	c.byteInBlock++
	if c.byteInBlock == BlockSize {
		c.byteInBlock = 0
		c.blockInExt++
	}
	if c.blockInExt == c.ext.count && c.extentIndex+1 < MaxExtentsPerFile {
		if next := fs.extentAt(ino, c.extentIndex+1); next.count != 0 {
			c.extentIndex++
			c.ext = next
			c.blockInExt = 0
		}
	}
}
