package a1fs

import "encoding/binary"

// inode is a zero-copy typed view over one inodeSize-byte record in the
// inode table.
type inode struct {
	b []byte
}

func (i inode) mode() uint32     { return binary.LittleEndian.Uint32(i.b[0:4]) }
func (i inode) setMode(v uint32) { binary.LittleEndian.PutUint32(i.b[0:4], v) }

func (i inode) links() uint32     { return binary.LittleEndian.Uint32(i.b[4:8]) }
func (i inode) setLinks(v uint32) { binary.LittleEndian.PutUint32(i.b[4:8], v) }

func (i inode) size() uint64     { return binary.LittleEndian.Uint64(i.b[8:16]) }
func (i inode) setSize(v uint64) { binary.LittleEndian.PutUint64(i.b[8:16], v) }

func (i inode) mtimeSec() int64      { return int64(binary.LittleEndian.Uint64(i.b[16:24])) }
func (i inode) setMtimeSec(v int64)  { binary.LittleEndian.PutUint64(i.b[16:24], uint64(v)) }
func (i inode) mtimeNsec() int64     { return int64(binary.LittleEndian.Uint64(i.b[24:32])) }
func (i inode) setMtimeNsec(v int64) { binary.LittleEndian.PutUint64(i.b[24:32], uint64(v)) }

func (i inode) blocks() uint64     { return binary.LittleEndian.Uint64(i.b[32:40]) }
func (i inode) setBlocks(v uint64) { binary.LittleEndian.PutUint64(i.b[32:40], v) }

func (i inode) extentStart() uint32     { return binary.LittleEndian.Uint32(i.b[40:44]) }
func (i inode) setExtentStart(v uint32) { binary.LittleEndian.PutUint32(i.b[40:44], v) }
func (i inode) extentCount() uint32     { return binary.LittleEndian.Uint32(i.b[44:48]) }
func (i inode) setExtentCount(v uint32) { binary.LittleEndian.PutUint32(i.b[44:48], v) }

// zero clears the entire record, used when an inode is (re-)allocated.
func (i inode) zero() {
	for j := range i.b {
		i.b[j] = 0
	}
}

// extent is a single descriptor: a contiguous run of count blocks starting
// at block index start.
type extent struct {
	start uint32
	count uint32
}

func readExtent(b []byte) extent {
	return extent{
		start: binary.LittleEndian.Uint32(b[0:4]),
		count: binary.LittleEndian.Uint32(b[4:8]),
	}
}

func writeExtent(b []byte, e extent) {
	binary.LittleEndian.PutUint32(b[0:4], e.start)
	binary.LittleEndian.PutUint32(b[4:8], e.count)
}
