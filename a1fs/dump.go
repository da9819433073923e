package a1fs

import (
	"fmt"

	"github.com/a1fs-go/a1fs/image"
)

// Report summarizes an image's superblock fields for a1fs-dump, without
// requiring a full Open (which rejects an image whose magic or state is not
// valid, and a diagnostic tool wants to be able to inspect such an image).
type Report struct {
	Magic           uint64
	Valid           bool
	Size            uint64
	MaxInodesCount  uint32
	MaxBlockCount   uint32
	InodesCount     uint32
	BlocksCount     uint32
	FreeInodesCount uint32
	FreeBlocksCount uint32
	InodeBitmapAt   uint32
	BlockBitmapAt   uint32
	InodeTableAt    uint32
	InodeSize       uint32
}

// Inspect reads img's superblock into a Report. It performs no allocator or
// extent validation; it only reflects what the on-disk fields say.
func Inspect(img *image.Image) Report {
	sb := superblockView(img.Bytes())
	return Report{
		Magic:           sb.magic(),
		Valid:           sb.magic() == Magic && sb.state() == stateValid,
		Size:            sb.size(),
		MaxInodesCount:  sb.maxInodesCount(),
		MaxBlockCount:   sb.maxBlockCount(),
		InodesCount:     sb.inodesCount(),
		BlocksCount:     sb.blocksCount(),
		FreeInodesCount: sb.freeInodesCount(),
		FreeBlocksCount: sb.freeBlocksCount(),
		InodeBitmapAt:   sb.inodeBitmap(),
		BlockBitmapAt:   sb.blockBitmap(),
		InodeTableAt:    sb.inodeTable(),
		InodeSize:       sb.inodeSize(),
	}
}

// DumpBitmapBlock renders one block of a bitmap region as a hex/ASCII grid,
// one row per 16 bytes, position columns in both hex and decimal. Used by
// a1fs-dump to let an operator eyeball which inodes or blocks are marked
// allocated without decoding bits by hand.
func DumpBitmapBlock(img *image.Image, blockNo uint32) string {
	b := img.Bytes()
	block := b[int(blockNo)*BlockSize : int(blockNo+1)*BlockSize]
	return dumpByteSlice(block, 16, true, true, true, nil)
}

// dumpByteSlice renders b in hex and optionally ASCII, bytesPerRow bytes to
// a line, optionally prefixing each row with its offset in hex and/or
// decimal. When showOnlyBytes is non-nil, only rows containing one of those
// positions are emitted.
func dumpByteSlice(b []byte, bytesPerRow int, showASCII, showPosHex, showPosDec bool, showOnlyBytes []int) string {
	showOnly := make(map[int]bool, len(showOnlyBytes))
	for _, v := range showOnlyBytes {
		showOnly[v] = true
	}

	numRows := len(b) / bytesPerRow
	if len(b)%bytesPerRow != 0 {
		numRows++
	}

	var out string
	for i := 0; i < numRows; i++ {
		firstByte := i * bytesPerRow
		lastByte := firstByte + bytesPerRow

		var row string
		if showPosHex {
			row += fmt.Sprintf("%08x ", firstByte)
		}
		if showPosDec {
			row += fmt.Sprintf("%6d ", firstByte)
		}
		row += ": "

		var ascii []byte
		include := showOnlyBytes == nil
		for j := firstByte; j < lastByte; j++ {
			if j%8 == 0 {
				row += " "
			}
			switch {
			case j >= len(b):
				row += "   "
				ascii = append(ascii, ' ')
			default:
				row += fmt.Sprintf(" %02x", b[j])
				switch {
				case b[j] < 32 || b[j] > 126:
					ascii = append(ascii, '.')
				default:
					ascii = append(ascii, b[j])
				}
				if showOnly[j] {
					include = true
				}
			}
		}
		if showASCII {
			row += fmt.Sprintf("  %s", string(ascii))
		}
		row += "\n"
		if include {
			out += row
		}
	}
	return out
}
