// Package a1fs implements the a1fs on-disk format: a bitmap-managed
// inode/block allocator and an extent-addressed data layer over a single
// fixed-size image mapped into memory.
package a1fs

import "syscall"

// BlockSize is the fixed unit of allocation.
const BlockSize = 4096

// NameMax is the maximum length of a path component, NUL included.
const NameMax = 252

// PathMax is the maximum length of a path, NUL included.
const PathMax = 4096

// MaxExtentsPerFile bounds the extent array to a single block of 8-byte
// descriptors (512 * 8 = BlockSize).
const MaxExtentsPerFile = BlockSize / extentSize

// Magic identifies an a1fs image in the superblock.
const Magic uint64 = 0xa1f50a1f50a1f5a1

const (
	stateUninitialized uint32 = 0
	stateValid         uint32 = 1
	stateError         uint32 = 2
)

// Inode numbers 0 and 1 are reserved by the format itself.
const (
	reservedIno uint32 = 0
	RootIno     uint32 = 1
)

const (
	modeDir uint32 = syscall.S_IFDIR
	modeReg uint32 = syscall.S_IFREG
	modeFmt uint32 = syscall.S_IFMT
)

// IsDir reports whether mode describes a directory.
func IsDir(mode uint32) bool { return mode&modeFmt == modeDir }

// IsRegular reports whether mode describes a regular file.
func IsRegular(mode uint32) bool { return mode&modeFmt == modeReg }

const (
	superblockSize = 60
	inodeSize      = 48
	extentSize     = 8
	entrySize      = 4 + NameMax // dentry: ino(4) + name[NameMax]
)

// InodeSize is the on-disk size of one inode record, written into the
// superblock's inode_size field by the formatter.
const InodeSize = inodeSize

// EntrySize is the on-disk size of one directory entry record.
const EntrySize = entrySize
