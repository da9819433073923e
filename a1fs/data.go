package a1fs

import "fmt"

// appendData grows ino's data by n zero-filled bytes and returns the offset
// the new region starts at (the old size). The first byte ever appended to
// an empty inode allocates both the extent array block and the file's
// first data block; every later call either extends the tail extent's
// physical run in place, when the block immediately after it is free, or
// appends a new extent descriptor, failing with ErrNoSpace once the array's
// MaxExtentsPerFile entries are exhausted.
func (fs *FileSystem) appendData(ino inode, n uint64) (uint64, error) {
	startOffset := ino.size()
	if n == 0 {
		return startOffset, nil
	}

	// added counts the data blocks this call attaches, so a mid-append
	// allocation failure can put the extent map back exactly as it found it
	// before the error surfaces.
	var added uint64
	fail := func(err error) (uint64, error) {
		keep := blocksNeeded(startOffset, BlockSize)
		if added > 0 {
			fs.freeTrailingBlocks(ino, keep, keep+added)
		}
		if startOffset == 0 && ino.blocks() > 0 {
			fs.freeBlock(ino.extentStart())
			ino.setBlocks(0)
		}
		return 0, err
	}

	if ino.size() == 0 {
		if fs.sb().freeBlocksCount() < 2 {
			return 0, fmt.Errorf("append data: %w", ErrNoSpace)
		}
		arrBlock, err := fs.allocBlock()
		if err != nil {
			return 0, err
		}
		fs.zeroBlock(arrBlock)
		dataBlock, err := fs.allocBlock()
		if err != nil {
			fs.freeBlock(arrBlock)
			return 0, err
		}
		ino.setExtentStart(arrBlock)
		ino.setExtentCount(1)
		fs.setExtentAt(ino, 0, extent{start: dataBlock, count: 1})
		ino.setBlocks(ino.blocks() + 2)
		added++
	}

	c := fs.walk(ino, ino.size())
	remaining := n
	for remaining > 0 {
		if c.atEnd() {
			next := c.ext.start + c.ext.count
			if next < fs.sb().maxBlockCount() && fs.blockFree(next) {
				bitSet(fs.blockBitmap(), next)
				fs.sb().incBlocks(1)
				c.ext.count++
				fs.setExtentAt(ino, c.extentIndex, c.ext)
			} else {
				if c.extentIndex+1 >= MaxExtentsPerFile {
					return fail(fmt.Errorf("append data: extent array full: %w", ErrNoSpace))
				}
				nb, err := fs.allocBlock()
				if err != nil {
					return fail(err)
				}
				c.extentIndex++
				c.ext = extent{start: nb, count: 1}
				fs.setExtentAt(ino, c.extentIndex, c.ext)
				c.blockInExt = 0
			}
			ino.setBlocks(ino.blocks() + 1)
			added++
		}
		fs.block(c.blockIndex())[c.byteInBlock] = 0
		remaining--
		c.byteInBlock++
		if c.byteInBlock == BlockSize {
			c.byteInBlock = 0
			c.blockInExt++
		}
	}

	ino.setSize(ino.size() + n)
	fs.touch(ino)
	return startOffset, nil
}

// spliceOut removes the n bytes starting at offset from ino's data, sliding
// every byte past the removed range down to close the gap, then releases
// whatever trailing blocks the shrunk file no longer needs. offset+n must
// not exceed ino.size().
func (fs *FileSystem) spliceOut(ino inode, offset, n uint64) error {
	if n == 0 {
		fs.touch(ino)
		return nil
	}
	size := ino.size()

	to := fs.walk(ino, offset)
	from := fs.walk(ino, offset+n)
	tailBytes := size - offset - n
	for i := uint64(0); i < tailBytes; i++ {
		v := fs.block(from.blockIndex())[from.byteInBlock]
		fs.block(to.blockIndex())[to.byteInBlock] = v
		fs.step(ino, &from)
		fs.step(ino, &to)
	}

	newSize := size - n
	oldBlocks := blocksNeeded(size, BlockSize)
	var newBlocks uint64
	if newSize > 0 {
		newBlocks = blocksNeeded(newSize, BlockSize)
	}
	if newBlocks < oldBlocks {
		fs.freeTrailingBlocks(ino, newBlocks, oldBlocks)
	}

	ino.setSize(newSize)
	fs.touch(ino)

	if newSize == 0 {
		fs.freeBlock(ino.extentStart())
		ino.setBlocks(0)
	}
	return nil
}

// freeTrailingBlocks walks ino's extent array in order and releases every
// block at or beyond logical position keep, out of a file that currently
// spans total data blocks. An extent straddling the boundary is truncated
// in place; one lying entirely beyond it is zeroed out so later walks treat
// it as the unused tail of the array again.
func (fs *FileSystem) freeTrailingBlocks(ino inode, keep, total uint64) {
	var seen uint64
	for idx := 0; seen < total; idx++ {
		e := fs.extentAt(ino, idx)
		if e.count == 0 {
			break
		}
		extentBlocks := uint64(e.count)
		if seen+extentBlocks <= keep {
			seen += extentBlocks
			continue
		}
		var keepHere uint64
		if keep > seen {
			keepHere = keep - seen
		}
		for b := keepHere; b < extentBlocks; b++ {
			fs.freeBlock(e.start + uint32(b))
			ino.setBlocks(ino.blocks() - 1)
		}
		if keepHere == 0 {
			fs.setExtentAt(ino, idx, extent{})
		} else {
			fs.setExtentAt(ino, idx, extent{start: e.start, count: uint32(keepHere)})
		}
		seen += extentBlocks
	}
}

// resize grows or shrinks ino's data to exactly newSize bytes.
func (fs *FileSystem) resize(ino inode, newSize uint64) error {
	size := ino.size()
	switch {
	case newSize < size:
		return fs.spliceOut(ino, newSize, size-newSize)
	case newSize > size:
		_, err := fs.appendData(ino, newSize-size)
		return err
	default:
		fs.touch(ino)
		return nil
	}
}

// readAt copies min(len(p), size-off) bytes from ino's data starting at
// off into p, zeroes whatever tail of p the file could not fill, and
// returns the count read. When off is at or past the end of the file it
// returns 0 and leaves p unchanged.
func (fs *FileSystem) readAt(ino inode, off uint64, p []byte) int {
	size := ino.size()
	if off >= size {
		return 0
	}
	n := uint64(len(p))
	if off+n > size {
		n = size - off
	}
	if n == 0 {
		return 0
	}
	c := fs.walk(ino, off)
	for i := uint64(0); i < n; i++ {
		p[i] = fs.block(c.blockIndex())[c.byteInBlock]
		fs.step(ino, &c)
	}
	for i := n; i < uint64(len(p)); i++ {
		p[i] = 0
	}
	return int(n)
}

// writeAt copies p into ino's data starting at off, growing the file first
// if the write extends past the current size, and returns the count
// written.
func (fs *FileSystem) writeAt(ino inode, off uint64, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	end := off + uint64(len(p))
	if end > ino.size() {
		if _, err := fs.appendData(ino, end-ino.size()); err != nil {
			return 0, err
		}
	}
	c := fs.walk(ino, off)
	for i := range p {
		fs.block(c.blockIndex())[c.byteInBlock] = p[i]
		fs.step(ino, &c)
	}
	fs.touch(ino)
	return len(p), nil
}
