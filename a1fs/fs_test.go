package a1fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/a1fs-go/a1fs/image"
)

// newTestFS formats a fresh, blockCount-block image backed by a temp file
// and opens it, registering cleanup with t.
func newTestFS(t *testing.T, blockCount uint32, inodes uint32) *FileSystem {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create image: %v", err)
	}
	if err := f.Truncate(int64(blockCount) * BlockSize); err != nil {
		t.Fatalf("truncate image: %v", err)
	}
	f.Close()

	img, err := image.Map(path, BlockSize)
	if err != nil {
		t.Fatalf("map image: %v", err)
	}
	if err := Format(img, FormatOptions{Inodes: inodes}); err != nil {
		img.Close()
		t.Fatalf("format image: %v", err)
	}
	img.Close()

	fs, err := Open(path)
	if err != nil {
		t.Fatalf("open image: %v", err)
	}
	t.Cleanup(func() { fs.Close() })
	return fs
}

func TestFormatThenOpen(t *testing.T) {
	fs := newTestFS(t, 64, 32)
	sb := fs.sb()
	if sb.magic() != Magic {
		t.Fatalf("magic = %#x; want %#x", sb.magic(), Magic)
	}
	if sb.state() != stateValid {
		t.Fatalf("state = %d; want valid", sb.state())
	}
	root := fs.inode(RootIno)
	if !IsDir(root.mode()) {
		t.Fatalf("root inode is not a directory")
	}
	if root.links() != 2 {
		t.Fatalf("root links = %d; want 2", root.links())
	}
	if root.size() != 0 {
		t.Fatalf("root size = %d; want 0", root.size())
	}
}

func TestMkdirCreateReadDir(t *testing.T) {
	fs := newTestFS(t, 128, 32)

	if err := fs.Mkdir("/dir", 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := fs.Create("/dir/file.txt", 0644); err != nil {
		t.Fatalf("create: %v", err)
	}

	entries, err := fs.ReadDir("/dir")
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	want := []string{".", "..", "file.txt"}
	if len(names) != len(want) {
		t.Fatalf("readdir names = %v; want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("readdir names = %v; want %v", names, want)
		}
	}

	if err := fs.Mkdir("/dir", 0755); err == nil {
		t.Fatalf("mkdir over existing entry should fail")
	}
}

func TestMkdirSiblingsListingAndLinks(t *testing.T) {
	fs := newTestFS(t, 128, 32)
	if err := fs.Mkdir("/a", 0755); err != nil {
		t.Fatalf("mkdir /a: %v", err)
	}
	if err := fs.Mkdir("/a/b", 0755); err != nil {
		t.Fatalf("mkdir /a/b: %v", err)
	}
	if err := fs.Mkdir("/a/c", 0755); err != nil {
		t.Fatalf("mkdir /a/c: %v", err)
	}
	entries, err := fs.ReadDir("/a")
	if err != nil {
		t.Fatalf("readdir /a: %v", err)
	}
	got := make(map[string]bool, len(entries))
	for _, e := range entries {
		got[e.Name] = true
	}
	for _, name := range []string{".", "..", "b", "c"} {
		if !got[name] {
			t.Fatalf("readdir /a missing %q: %v", name, entries)
		}
	}
	if len(got) != 4 {
		t.Fatalf("readdir /a = %v; want exactly {. .. b c}", entries)
	}
	// Two subdirectories plus "." and the parent's reference.
	attr, err := fs.GetAttr("/a")
	if err != nil {
		t.Fatalf("getattr /a: %v", err)
	}
	if attr.Links != 4 {
		t.Fatalf("/a links = %d; want 4", attr.Links)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	fs := newTestFS(t, 128, 32)
	if err := fs.Create("/f", 0644); err != nil {
		t.Fatalf("create: %v", err)
	}
	payload := []byte("hello a1fs, spanning more than one block would go here")
	if _, err := fs.Write("/f", 0, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, len(payload))
	n, err := fs.Read("/f", 0, buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != len(payload) || string(buf) != string(payload) {
		t.Fatalf("read back %q; want %q", buf[:n], payload)
	}

	attr, err := fs.GetAttr("/f")
	if err != nil {
		t.Fatalf("getattr: %v", err)
	}
	if attr.Size != uint64(len(payload)) {
		t.Fatalf("size = %d; want %d", attr.Size, len(payload))
	}
}

func TestWriteSpanningMultipleBlocks(t *testing.T) {
	fs := newTestFS(t, 512, 32)
	if err := fs.Create("/big", 0644); err != nil {
		t.Fatalf("create: %v", err)
	}
	payload := make([]byte, BlockSize*3+17)
	for i := range payload {
		payload[i] = byte(i)
	}
	if _, err := fs.Write("/big", 0, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, len(payload))
	if _, err := fs.Read("/big", 0, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	for i := range payload {
		if buf[i] != payload[i] {
			t.Fatalf("byte %d = %d; want %d", i, buf[i], payload[i])
		}
	}
}

func TestWritePastEOFZeroFillsHole(t *testing.T) {
	fs := newTestFS(t, 128, 32)
	if err := fs.Create("/f", 0644); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := fs.Write("/f", 0, []byte("hello")); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	if _, err := fs.Write("/f", 10, []byte("!")); err != nil {
		t.Fatalf("write !: %v", err)
	}
	buf := make([]byte, 11)
	n, err := fs.Read("/f", 0, buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "hello\x00\x00\x00\x00\x00!"
	if n != 11 || string(buf) != want {
		t.Fatalf("read %d bytes %q; want 11 bytes %q", n, buf, want)
	}
}

func TestReadPastEOF(t *testing.T) {
	fs := newTestFS(t, 128, 32)
	if err := fs.Create("/f", 0644); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := fs.Write("/f", 0, []byte("abc")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 8)
	if n, err := fs.Read("/f", 100, buf); err != nil || n != 0 {
		t.Fatalf("read past EOF: n=%d err=%v; want 0, nil", n, err)
	}
	if n, err := fs.Read("/f", 1, buf); err != nil || n != 2 {
		t.Fatalf("read crossing EOF: n=%d err=%v; want 2, nil", n, err)
	}
	if string(buf[:2]) != "bc" {
		t.Fatalf("read crossing EOF = %q; want bc", buf[:2])
	}
}

func TestTruncateShrinkAndGrow(t *testing.T) {
	fs := newTestFS(t, 128, 32)
	if err := fs.Create("/f", 0644); err != nil {
		t.Fatalf("create: %v", err)
	}
	payload := make([]byte, BlockSize+100)
	for i := range payload {
		payload[i] = 1
	}
	if _, err := fs.Write("/f", 0, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fs.Truncate("/f", 10); err != nil {
		t.Fatalf("truncate down: %v", err)
	}
	attr, err := fs.GetAttr("/f")
	if err != nil {
		t.Fatalf("getattr: %v", err)
	}
	if attr.Size != 10 {
		t.Fatalf("size = %d; want 10", attr.Size)
	}

	if err := fs.Truncate("/f", 4096+10); err != nil {
		t.Fatalf("truncate up: %v", err)
	}
	buf := make([]byte, 4096+10)
	n, err := fs.Read("/f", 0, buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for i := 10; i < n; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d = %d; want 0 (zero-filled hole)", i, buf[i])
		}
	}
}

func TestUnlinkRmdir(t *testing.T) {
	fs := newTestFS(t, 128, 32)
	if err := fs.Mkdir("/d", 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := fs.Create("/d/f", 0644); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := fs.Rmdir("/d"); err == nil {
		t.Fatalf("rmdir on non-empty directory should fail")
	}

	if err := fs.Unlink("/d/f"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if err := fs.Rmdir("/d"); err != nil {
		t.Fatalf("rmdir: %v", err)
	}
	if _, err := fs.GetAttr("/d"); err == nil {
		t.Fatalf("getattr on removed directory should fail")
	}
}

func TestRenameWithinDirectory(t *testing.T) {
	fs := newTestFS(t, 128, 32)
	if err := fs.Create("/a", 0644); err != nil {
		t.Fatalf("create: %v", err)
	}
	before, err := fs.GetAttr("/a")
	if err != nil {
		t.Fatalf("getattr /a: %v", err)
	}
	if err := fs.Rename("/a", "/b"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := fs.GetAttr("/a"); err == nil {
		t.Fatalf("old name should be gone")
	}
	after, err := fs.GetAttr("/b")
	if err != nil {
		t.Fatalf("new name should resolve: %v", err)
	}
	// A same-parent rename rewrites the dentry's name in place; the entry
	// keeps its inode.
	if after.Ino != before.Ino {
		t.Fatalf("ino changed across rename: %d -> %d", before.Ino, after.Ino)
	}
}

func TestRenameBackRestoresListing(t *testing.T) {
	fs := newTestFS(t, 128, 32)
	for _, p := range []string{"/x", "/y", "/z"} {
		if err := fs.Create(p, 0644); err != nil {
			t.Fatalf("create %s: %v", p, err)
		}
	}
	listing := func() map[string]bool {
		t.Helper()
		entries, err := fs.ReadDir("/")
		if err != nil {
			t.Fatalf("readdir: %v", err)
		}
		set := make(map[string]bool, len(entries))
		for _, e := range entries {
			set[e.Name] = true
		}
		return set
	}
	before := listing()
	if err := fs.Rename("/y", "/w"); err != nil {
		t.Fatalf("rename y->w: %v", err)
	}
	if err := fs.Rename("/w", "/y"); err != nil {
		t.Fatalf("rename w->y: %v", err)
	}
	after := listing()
	if len(after) != len(before) {
		t.Fatalf("entry count changed: %d -> %d", len(before), len(after))
	}
	for name := range before {
		if !after[name] {
			t.Fatalf("entry %q missing after rename round trip", name)
		}
	}
}

func TestRenameDirectoryAcrossParentsUpdatesLinks(t *testing.T) {
	fs := newTestFS(t, 128, 32)
	if err := fs.Mkdir("/src", 0755); err != nil {
		t.Fatalf("mkdir src: %v", err)
	}
	if err := fs.Mkdir("/dst", 0755); err != nil {
		t.Fatalf("mkdir dst: %v", err)
	}
	if err := fs.Mkdir("/src/moved", 0755); err != nil {
		t.Fatalf("mkdir moved: %v", err)
	}

	srcBefore, _ := fs.GetAttr("/src")
	dstBefore, _ := fs.GetAttr("/dst")

	if err := fs.Rename("/src/moved", "/dst/moved"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	srcAfter, _ := fs.GetAttr("/src")
	dstAfter, _ := fs.GetAttr("/dst")
	if srcAfter.Links != srcBefore.Links-1 {
		t.Fatalf("src links = %d; want %d", srcAfter.Links, srcBefore.Links-1)
	}
	if dstAfter.Links != dstBefore.Links+1 {
		t.Fatalf("dst links = %d; want %d", dstAfter.Links, dstBefore.Links+1)
	}
}

func TestRenameReplacesExistingFile(t *testing.T) {
	fs := newTestFS(t, 128, 32)
	if err := fs.Create("/a", 0644); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := fs.Create("/b", 0644); err != nil {
		t.Fatalf("create b: %v", err)
	}
	if _, err := fs.Write("/a", 0, []byte("aaa")); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := fs.Rename("/a", "/b"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	buf := make([]byte, 3)
	if _, err := fs.Read("/b", 0, buf); err != nil || string(buf) != "aaa" {
		t.Fatalf("read /b = %q, err=%v; want aaa", buf, err)
	}
}

func TestRenameOntoNonEmptyDirectoryFails(t *testing.T) {
	fs := newTestFS(t, 128, 32)
	if err := fs.Mkdir("/src", 0755); err != nil {
		t.Fatalf("mkdir src: %v", err)
	}
	if err := fs.Mkdir("/dst", 0755); err != nil {
		t.Fatalf("mkdir dst: %v", err)
	}
	if err := fs.Create("/dst/f", 0644); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := fs.Rename("/src", "/dst"); err == nil {
		t.Fatalf("rename onto a non-empty directory should fail")
	}
}

func TestPathErrors(t *testing.T) {
	fs := newTestFS(t, 64, 32)
	if _, err := fs.GetAttr("/nope"); err == nil {
		t.Fatalf("getattr on missing path should fail")
	}
	if err := fs.Create("/a/b", 0644); err == nil {
		t.Fatalf("create under a missing parent should fail")
	}
	if err := fs.Mkdir("/"+string(make([]byte, NameMax+1)), 0755); err == nil {
		t.Fatalf("mkdir with an overlong name should fail")
	}
}

func TestWriteTouchesEveryAncestor(t *testing.T) {
	fs := newTestFS(t, 128, 32)
	if err := fs.Mkdir("/a", 0755); err != nil {
		t.Fatalf("mkdir /a: %v", err)
	}
	if err := fs.Mkdir("/a/b", 0755); err != nil {
		t.Fatalf("mkdir /a/b: %v", err)
	}
	if err := fs.Create("/a/b/f", 0644); err != nil {
		t.Fatalf("create: %v", err)
	}

	rootBefore, _ := fs.GetAttr("/")
	aBefore, _ := fs.GetAttr("/a")
	bBefore, _ := fs.GetAttr("/a/b")

	time.Sleep(time.Millisecond)
	if _, err := fs.Write("/a/b/f", 0, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	rootAfter, _ := fs.GetAttr("/")
	aAfter, _ := fs.GetAttr("/a")
	bAfter, _ := fs.GetAttr("/a/b")

	if !rootAfter.Mtime.After(rootBefore.Mtime) {
		t.Fatalf("root mtime did not advance: before %v, after %v", rootBefore.Mtime, rootAfter.Mtime)
	}
	if !aAfter.Mtime.After(aBefore.Mtime) {
		t.Fatalf("/a mtime did not advance: before %v, after %v", aBefore.Mtime, aAfter.Mtime)
	}
	if !bAfter.Mtime.After(bBefore.Mtime) {
		t.Fatalf("/a/b mtime did not advance: before %v, after %v", bBefore.Mtime, bAfter.Mtime)
	}
}

func TestStatfsAfterFormat(t *testing.T) {
	fs := newTestFS(t, 256, 32)
	info := fs.Statfs()
	if info.Blocks != 256 {
		t.Fatalf("blocks = %d; want 256", info.Blocks)
	}
	if info.Inodes != 32 {
		t.Fatalf("inodes = %d; want 32", info.Inodes)
	}
	if info.NameMax != NameMax {
		t.Fatalf("namemax = %d; want %d", info.NameMax, NameMax)
	}
	// The formatter allocates the reserved inode 0 and the root directory
	// (inode 1), so two of the 32 inodes start out taken.
	wantFFree := uint32(32 - 2)
	if info.FreeInodes != wantFFree {
		t.Fatalf("ffree = %d; want %d", info.FreeInodes, wantFFree)
	}
	// One block for the superblock plus however many the inode bitmap,
	// block bitmap and inode table round up to at this size — one block
	// each here — are reserved before any data block is ever handed out.
	inodeBitmapBlocks := blocksNeeded(uint64(info.Inodes), BlockSize*8)
	blockBitmapBlocks := blocksNeeded(uint64(info.Blocks), BlockSize*8)
	inodeTableBlocks := blocksNeeded(uint64(info.Inodes)*uint64(inodeSize), BlockSize)
	reserved := 1 + inodeBitmapBlocks + blockBitmapBlocks + inodeTableBlocks
	wantBFree := uint32(uint64(info.Blocks) - reserved)
	if info.FreeBlocks != wantBFree {
		t.Fatalf("bfree = %d; want %d", info.FreeBlocks, wantBFree)
	}
}

func TestAllocInodeExhaustion(t *testing.T) {
	// 4 inodes total: 0 reserved, 1 is root, leaving exactly two for user
	// files before the bitmap/counter is exhausted.
	fs := newTestFS(t, 64, 4)
	if err := fs.Create("/a", 0644); err != nil {
		t.Fatalf("create /a: %v", err)
	}
	if err := fs.Create("/b", 0644); err != nil {
		t.Fatalf("create /b: %v", err)
	}
	if err := fs.Create("/c", 0644); !errors.Is(err, ErrNoSpace) {
		t.Fatalf("create /c: err = %v; want ErrNoSpace", err)
	}
}

// occupyNextBlock marks the block immediately following ino's tail extent
// as allocated, without attaching it to any inode, so the next appendData
// call can't extend that extent in place and is forced to open a new one.
func occupyNextBlock(fs *FileSystem, ino inode) {
	c := fs.walk(ino, ino.size())
	next := c.ext.start + c.ext.count
	bitSet(fs.blockBitmap(), next)
	fs.sb().incBlocks(1)
}

func TestAppendDataExtentCapExhaustion(t *testing.T) {
	// Enough blocks for MaxExtentsPerFile real extents plus as many dummy
	// blocks used to force fragmentation, with headroom for the formatter's
	// own reserved blocks.
	fs := newTestFS(t, MaxExtentsPerFile*3, 32)
	if err := fs.Create("/f", 0644); err != nil {
		t.Fatalf("create: %v", err)
	}
	parentNo, _, name, err := fs.splitParent("/f")
	if err != nil {
		t.Fatalf("splitParent: %v", err)
	}
	childNo, ok := fs.dirLookup(fs.inode(parentNo), name)
	if !ok {
		t.Fatalf("lookup /f: not found")
	}
	ino := fs.inode(childNo)

	// The first append materializes the extent array block and extent 0.
	if _, err := fs.appendData(ino, BlockSize); err != nil {
		t.Fatalf("initial append: %v", err)
	}
	// Each further forced append opens one more extent entry; after
	// MaxExtentsPerFile-1 of them the array holds all MaxExtentsPerFile
	// entries.
	for i := 0; i < MaxExtentsPerFile-1; i++ {
		occupyNextBlock(fs, ino)
		if _, err := fs.appendData(ino, BlockSize); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	occupyNextBlock(fs, ino)
	if _, err := fs.appendData(ino, BlockSize); !errors.Is(err, ErrNoSpace) {
		t.Fatalf("append past MaxExtentsPerFile: err = %v; want ErrNoSpace", err)
	}
}

func TestTruncateToZeroFreesAllBlocks(t *testing.T) {
	fs := newTestFS(t, 128, 32)

	if err := fs.Create("/f", 0644); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Create stores /f's entry in the root directory's data, which takes
	// blocks of its own; the baseline is taken after that, so only /f's data
	// blocks and its extent-array block are measured.
	baseline := fs.sb().freeBlocksCount()
	payload := make([]byte, BlockSize*2+50)
	if _, err := fs.Write("/f", 0, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fs.Truncate("/f", 0); err != nil {
		t.Fatalf("truncate to 0: %v", err)
	}
	attr, err := fs.GetAttr("/f")
	if err != nil {
		t.Fatalf("getattr: %v", err)
	}
	if attr.Size != 0 || attr.Blocks != 0 {
		t.Fatalf("size/blocks = %d/%d; want 0/0", attr.Size, attr.Blocks)
	}
	if got := fs.sb().freeBlocksCount(); got != baseline {
		t.Fatalf("free blocks after truncate to 0 = %d; want %d (baseline before the write)", got, baseline)
	}
}
