package a1fs

import (
	"fmt"
	"time"

	"github.com/a1fs-go/a1fs/image"
)

// FileSystem is a mounted a1fs image: the mapped byte region addressed
// through its superblock, plus the backing image handle for Close/Sync.
// All state is reachable from the superblock; FileSystem keeps no caches or
// indexes beyond the mapping itself. Operations run single-threaded and to
// completion; there is no intra-operation concurrency to guard against.
type FileSystem struct {
	img *image.Image
	b   []byte // img.Bytes(), cached for convenience
}

// Open maps path and validates it holds a valid a1fs image.
func Open(path string) (*FileSystem, error) {
	img, err := image.Map(path, BlockSize)
	if err != nil {
		return nil, err
	}
	fs := &FileSystem{img: img, b: img.Bytes()}
	sb := fs.sb()
	if sb.magic() != Magic || sb.state() != stateValid {
		img.Close()
		return nil, fmt.Errorf("a1fs: %s is not a valid a1fs image: %w", path, ErrInvalid)
	}
	return fs, nil
}

// Close unmaps the image.
func (fs *FileSystem) Close() error {
	return fs.img.Close()
}

// Sync flushes the mapping to the backing file.
func (fs *FileSystem) Sync() error {
	return fs.img.Sync()
}

func (fs *FileSystem) sb() *superblock {
	return superblockView(fs.b)
}

// block returns the BlockSize-byte window for block index n.
func (fs *FileSystem) block(n uint32) []byte {
	off := int(n) * BlockSize
	return fs.b[off : off+BlockSize]
}

func (fs *FileSystem) inodeBitmap() []byte {
	sb := fs.sb()
	blocks := blocksNeeded(uint64(sb.maxInodesCount()), BlockSize*8)
	off := int(sb.inodeBitmap()) * BlockSize
	return fs.b[off : off+int(blocks)*BlockSize]
}

func (fs *FileSystem) blockBitmap() []byte {
	sb := fs.sb()
	blocks := blocksNeeded(uint64(sb.maxBlockCount()), BlockSize*8)
	off := int(sb.blockBitmap()) * BlockSize
	return fs.b[off : off+int(blocks)*BlockSize]
}

// inode returns the typed view for inode number ino.
func (fs *FileSystem) inode(ino uint32) inode {
	sb := fs.sb()
	off := int(sb.inodeTable())*BlockSize + int(ino)*int(sb.inodeSize())
	return inode{b: fs.b[off : off+int(sb.inodeSize())]}
}

// extentArray returns the slice backing inode's extent descriptor array: a
// single block (allocated when the inode's first byte of data was appended)
// holding up to MaxExtentsPerFile descriptors.
func (fs *FileSystem) extentArray(ino inode) []byte {
	return fs.block(ino.extentStart())
}

func (fs *FileSystem) extentAt(ino inode, index int) extent {
	arr := fs.extentArray(ino)
	return readExtent(arr[index*extentSize : (index+1)*extentSize])
}

func (fs *FileSystem) setExtentAt(ino inode, index int, e extent) {
	arr := fs.extentArray(ino)
	writeExtent(arr[index*extentSize:(index+1)*extentSize], e)
}

// allocInode finds the first free inode, marks it allocated and zeroed, and
// returns its number.
func (fs *FileSystem) allocInode() (uint32, error) {
	sb := fs.sb()
	if sb.inodesCount() >= sb.maxInodesCount() {
		return 0, fmt.Errorf("alloc inode: %w", ErrNoSpace)
	}
	idx := firstZero(fs.inodeBitmap(), sb.maxInodesCount())
	if idx < 0 {
		return 0, fmt.Errorf("alloc inode: bitmap/counter mismatch: %w", ErrNoSpace)
	}
	bitSet(fs.inodeBitmap(), uint32(idx))
	sb.incInodes(1)
	ino := fs.inode(uint32(idx))
	ino.zero()
	return uint32(idx), nil
}

// freeInode clears the allocation bit and updates counters. No zeroing of
// the inode record is required.
func (fs *FileSystem) freeInode(ino uint32) {
	bitClear(fs.inodeBitmap(), ino)
	fs.sb().incInodes(-1)
}

// allocBlock finds the first free block, marks it allocated, and returns
// its index.
func (fs *FileSystem) allocBlock() (uint32, error) {
	sb := fs.sb()
	if sb.blocksCount() >= sb.maxBlockCount() {
		return 0, fmt.Errorf("alloc block: %w", ErrNoSpace)
	}
	idx := firstZero(fs.blockBitmap(), sb.maxBlockCount())
	if idx < 0 {
		return 0, fmt.Errorf("alloc block: bitmap/counter mismatch: %w", ErrNoSpace)
	}
	bitSet(fs.blockBitmap(), uint32(idx))
	sb.incBlocks(1)
	return uint32(idx), nil
}

// freeBlock clears the allocation bit and updates counters.
func (fs *FileSystem) freeBlock(b uint32) {
	bitClear(fs.blockBitmap(), b)
	fs.sb().incBlocks(-1)
}

// blockFree reports whether block b is currently unallocated.
func (fs *FileSystem) blockFree(b uint32) bool {
	return !bitTest(fs.blockBitmap(), b)
}

// zeroBlock clears every byte of block n, used when a block is pressed
// into service as a fresh extent array.
func (fs *FileSystem) zeroBlock(n uint32) {
	b := fs.block(n)
	for i := range b {
		b[i] = 0
	}
}

func (fs *FileSystem) touch(ino inode) {
	now := time.Now()
	ino.setMtimeSec(now.Unix())
	ino.setMtimeNsec(int64(now.Nanosecond()))
}

// blocksNeeded computes ceil(total/unit), the formatter's region-sizing
// helper, reused wherever a bitmap region's block span is recomputed from
// the superblock's counts.
func blocksNeeded(total uint64, unit uint64) uint64 {
	q := total / unit
	if total%unit != 0 {
		q++
	}
	return q
}
