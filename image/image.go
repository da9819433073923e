// Package image maps a fixed-size file into memory, giving the a1fs core a
// single mutable byte region to address its on-disk layout through.
package image

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Image is a file backing a filesystem image, mapped into memory for direct
// byte-level access. The mapping is shared: writes through Bytes are visible
// to other mappings of the same file and are written back to the file by the
// OS at its discretion, or explicitly via Sync.
type Image struct {
	file *os.File
	data []byte
}

// Map opens path for read-write access and maps its entire contents into
// memory. path's size must be a positive multiple of blockSize; this is the
// only validation Map performs, mirroring how a1fs's original mmap-based
// loader treated image size as the sole precondition for mounting.
func Map(path string, blockSize int) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("image: open %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("image: stat %s: %w", path, err)
	}

	size := fi.Size()
	if size <= 0 || size%int64(blockSize) != 0 {
		f.Close()
		return nil, fmt.Errorf("image: size %d is not a positive multiple of block size %d", size, blockSize)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("image: mmap %s: %w", path, err)
	}

	return &Image{file: f, data: data}, nil
}

// Bytes returns the mapped region. The slice is valid until Close is called;
// callers must not retain it past that point.
func (img *Image) Bytes() []byte {
	return img.data
}

// Len returns the length in bytes of the mapped region.
func (img *Image) Len() int {
	return len(img.data)
}

// Sync flushes dirty pages of the mapping to the backing file.
func (img *Image) Sync() error {
	if img.data == nil {
		return nil
	}
	return unix.Msync(img.data, unix.MS_SYNC)
}

// Close unmaps the region and closes the backing file. A remap of an Image
// is never required: the image size is fixed for the lifetime of a mount.
func (img *Image) Close() error {
	var err error
	if img.data != nil {
		err = unix.Munmap(img.data)
		img.data = nil
	}
	if cerr := img.file.Close(); err == nil {
		err = cerr
	}
	return err
}
