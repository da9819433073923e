package a1fs

import "encoding/binary"

// superblock is a zero-copy typed view over block 0 of the mapped image.
// All counters and region offsets are read and written through it, never
// through raw byte arithmetic elsewhere in the package.
type superblock struct {
	b []byte // superblockSize-byte window at the start of block 0
}

func superblockView(image []byte) *superblock {
	return &superblock{b: image[:superblockSize]}
}

func (s *superblock) magic() uint64      { return binary.LittleEndian.Uint64(s.b[0:8]) }
func (s *superblock) setMagic(v uint64)  { binary.LittleEndian.PutUint64(s.b[0:8], v) }
func (s *superblock) state() uint32      { return binary.LittleEndian.Uint32(s.b[8:12]) }
func (s *superblock) setState(v uint32)  { binary.LittleEndian.PutUint32(s.b[8:12], v) }
func (s *superblock) size() uint64       { return binary.LittleEndian.Uint64(s.b[12:20]) }
func (s *superblock) setSize(v uint64)   { binary.LittleEndian.PutUint64(s.b[12:20], v) }

func (s *superblock) maxInodesCount() uint32     { return binary.LittleEndian.Uint32(s.b[20:24]) }
func (s *superblock) setMaxInodesCount(v uint32)  { binary.LittleEndian.PutUint32(s.b[20:24], v) }
func (s *superblock) maxBlockCount() uint32       { return binary.LittleEndian.Uint32(s.b[24:28]) }
func (s *superblock) setMaxBlockCount(v uint32)   { binary.LittleEndian.PutUint32(s.b[24:28], v) }

func (s *superblock) inodesCount() uint32    { return binary.LittleEndian.Uint32(s.b[28:32]) }
func (s *superblock) setInodesCount(v uint32) { binary.LittleEndian.PutUint32(s.b[28:32], v) }
func (s *superblock) blocksCount() uint32    { return binary.LittleEndian.Uint32(s.b[32:36]) }
func (s *superblock) setBlocksCount(v uint32) { binary.LittleEndian.PutUint32(s.b[32:36], v) }

func (s *superblock) freeInodesCount() uint32    { return binary.LittleEndian.Uint32(s.b[36:40]) }
func (s *superblock) setFreeInodesCount(v uint32) { binary.LittleEndian.PutUint32(s.b[36:40], v) }
func (s *superblock) freeBlocksCount() uint32    { return binary.LittleEndian.Uint32(s.b[40:44]) }
func (s *superblock) setFreeBlocksCount(v uint32) { binary.LittleEndian.PutUint32(s.b[40:44], v) }

func (s *superblock) inodeBitmap() uint32    { return binary.LittleEndian.Uint32(s.b[44:48]) }
func (s *superblock) setInodeBitmap(v uint32) { binary.LittleEndian.PutUint32(s.b[44:48], v) }
func (s *superblock) blockBitmap() uint32    { return binary.LittleEndian.Uint32(s.b[48:52]) }
func (s *superblock) setBlockBitmap(v uint32) { binary.LittleEndian.PutUint32(s.b[48:52], v) }

func (s *superblock) inodeTable() uint32    { return binary.LittleEndian.Uint32(s.b[52:56]) }
func (s *superblock) setInodeTable(v uint32) { binary.LittleEndian.PutUint32(s.b[52:56], v) }
func (s *superblock) inodeSize() uint32     { return binary.LittleEndian.Uint32(s.b[56:60]) }
func (s *superblock) setInodeSize(v uint32)  { binary.LittleEndian.PutUint32(s.b[56:60], v) }

// incInodes adjusts inodes_count/free_inodes_count together, preserving the
// invariant inodes_count + free_inodes_count == max_inodes_count.
func (s *superblock) incInodes(delta int32) {
	s.setInodesCount(uint32(int32(s.inodesCount()) + delta))
	s.setFreeInodesCount(uint32(int32(s.freeInodesCount()) - delta))
}

// incBlocks adjusts blocks_count/free_blocks_count together, preserving the
// invariant blocks_count + free_blocks_count == max_block_count.
func (s *superblock) incBlocks(delta int32) {
	s.setBlocksCount(uint32(int32(s.blocksCount()) + delta))
	s.setFreeBlocksCount(uint32(int32(s.freeBlocksCount()) - delta))
}
