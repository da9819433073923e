package a1fs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/a1fs-go/a1fs/image"
)

// FormatOptions controls the region layout and root directory a1fs.Format
// lays down.
type FormatOptions struct {
	// Inodes is the number of inodes the image is sized for. Required.
	Inodes uint32
	// Zero, if set, clears the whole image before writing the layout.
	Zero bool
}

// IsFormatted reports whether image already holds a valid a1fs layout, the
// check a formatter run without -f refuses to overwrite.
func IsFormatted(img *image.Image) bool {
	sb := superblockView(img.Bytes())
	return sb.magic() == Magic && sb.state() == stateValid
}

// Format lays out a fresh a1fs image over img: the inode bitmap, block
// bitmap and inode table regions sized from opts.Inodes and the image's
// size, followed by an empty root directory. Region placement mirrors the
// original layout exactly — inode bitmap first, then block bitmap, then
// inode table, all immediately after the superblock's own block.
func Format(img *image.Image, opts FormatOptions) error {
	if opts.Inodes == 0 {
		return fmt.Errorf("format: %w: zero inodes requested", ErrInvalid)
	}
	b := img.Bytes()
	if opts.Zero {
		for i := range b {
			b[i] = 0
		}
	}

	size := uint64(img.Len())
	maxBlocks := uint32(size / BlockSize)

	sb := superblockView(b)
	sb.setMagic(Magic)
	sb.setState(stateUninitialized)
	sb.setSize(size)
	sb.setMaxInodesCount(opts.Inodes)
	sb.setMaxBlockCount(maxBlocks)
	sb.setInodeSize(InodeSize)

	inodeBitmapAt := uint32(1)
	inodeBitmapBlocks := uint32(blocksNeeded(uint64(opts.Inodes), BlockSize*8))
	if inodeBitmapBlocks > maxBlocks-1 {
		sb.setState(stateError)
		return fmt.Errorf("format: %w: not enough blocks for the inode bitmap", ErrNoSpace)
	}
	zeroBlocks(b, inodeBitmapAt, inodeBitmapBlocks)

	inodeTableBytes := uint64(opts.Inodes) * InodeSize
	inodeTableBlocks := uint32(blocksNeeded(inodeTableBytes, BlockSize))
	if inodeTableBlocks > maxBlocks-1-inodeBitmapBlocks {
		sb.setState(stateError)
		return fmt.Errorf("format: %w: not enough blocks for the inode table", ErrNoSpace)
	}

	blockBitmapAt := inodeBitmapAt + inodeBitmapBlocks
	blockBitmapBlocks := uint32(blocksNeeded(uint64(maxBlocks), BlockSize*8))
	if blockBitmapBlocks > maxBlocks-1-inodeBitmapBlocks {
		sb.setState(stateError)
		return fmt.Errorf("format: %w: not enough blocks for the block bitmap", ErrNoSpace)
	}
	zeroBlocks(b, blockBitmapAt, blockBitmapBlocks)

	inodeTableAt := blockBitmapAt + blockBitmapBlocks

	sb.setInodeBitmap(inodeBitmapAt)
	sb.setBlockBitmap(blockBitmapAt)
	sb.setInodeTable(inodeTableAt)

	reservedBlocks := 1 + inodeBitmapBlocks + blockBitmapBlocks + inodeTableBlocks
	if reservedBlocks > maxBlocks {
		sb.setState(stateError)
		return fmt.Errorf("format: %w: image too small for the requested inode count", ErrNoSpace)
	}

	inodeBitmap := b[int(inodeBitmapAt)*BlockSize : int(inodeBitmapAt+inodeBitmapBlocks)*BlockSize]
	bitSet(inodeBitmap, reservedIno)
	bitSet(inodeBitmap, RootIno)

	blockBitmap := b[int(blockBitmapAt)*BlockSize : int(blockBitmapAt+blockBitmapBlocks)*BlockSize]
	for i := uint32(0); i < reservedBlocks; i++ {
		bitSet(blockBitmap, i)
	}

	rootOff := int(inodeTableAt)*BlockSize + int(RootIno)*InodeSize
	root := inode{b: b[rootOff : rootOff+InodeSize]}
	root.zero()
	root.setMode(modeDir)
	root.setLinks(2)
	// SOURCE_DATE_EPOCH pins the root mtime so repeated mkfs runs over the
	// same inputs produce byte-identical images. Live mutations after mount
	// always use the real clock.
	now := time.Now().UTC()
	if epoch, err := strconv.ParseInt(os.Getenv("SOURCE_DATE_EPOCH"), 10, 64); err == nil {
		now = time.Unix(epoch, 0).UTC()
	}
	root.setMtimeSec(now.Unix())
	root.setMtimeNsec(int64(now.Nanosecond()))

	sb.setInodesCount(2)
	sb.setFreeInodesCount(opts.Inodes - 2)
	sb.setBlocksCount(reservedBlocks)
	sb.setFreeBlocksCount(maxBlocks - reservedBlocks)
	sb.setState(stateValid)
	return nil
}

func zeroBlocks(b []byte, start, count uint32) {
	region := b[int(start)*BlockSize : int(start+count)*BlockSize]
	for i := range region {
		region[i] = 0
	}
}
