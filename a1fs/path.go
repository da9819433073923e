package a1fs

import (
	"fmt"
	"strings"
)

// resolve walks path from the root, component by component, returning the
// inode number it names. path must be absolute. Each component is checked
// against NameMax before lookup, each intermediate component must resolve
// to a directory, and every component, the last included, must exist.
func (fs *FileSystem) resolve(path string) (uint32, error) {
	if path == "" || path[0] != '/' {
		return 0, fmt.Errorf("resolve %q: %w", path, ErrInvalid)
	}
	if len(path) >= PathMax {
		return 0, fmt.Errorf("resolve %q: %w", path, ErrNameTooLong)
	}
	cur := RootIno
	for _, name := range splitComponents(path) {
		if len(name) >= NameMax {
			return 0, fmt.Errorf("resolve %q: %w", path, ErrNameTooLong)
		}
		curIno := fs.inode(cur)
		if !IsDir(curIno.mode()) {
			return 0, fmt.Errorf("resolve %q: %w", path, ErrNotDir)
		}
		next, ok := fs.dirLookup(curIno, name)
		if !ok {
			return 0, fmt.Errorf("resolve %q: %w", path, ErrNotFound)
		}
		cur = next
	}
	return cur, nil
}

// splitParent resolves the parent directory of path and returns its inode
// number, the parent's own path (for touchAncestors), and path's final
// component. The final component is returned unresolved: callers that need
// it to exist look it up themselves.
func (fs *FileSystem) splitParent(path string) (uint32, string, string, error) {
	if path == "" || path[0] != '/' {
		return 0, "", "", fmt.Errorf("split %q: %w", path, ErrInvalid)
	}
	if len(path) >= PathMax {
		return 0, "", "", fmt.Errorf("split %q: %w", path, ErrNameTooLong)
	}
	parts := splitComponents(path)
	if len(parts) == 0 {
		return 0, "", "", fmt.Errorf("split %q: %w", path, ErrInvalid)
	}
	last := parts[len(parts)-1]
	if len(last) >= NameMax {
		return 0, "", "", fmt.Errorf("split %q: %w", path, ErrNameTooLong)
	}
	parentPath := "/" + strings.Join(parts[:len(parts)-1], "/")
	parent, err := fs.resolve(parentPath)
	if err != nil {
		return 0, "", "", err
	}
	parentIno := fs.inode(parent)
	if !IsDir(parentIno.mode()) {
		return 0, "", "", fmt.Errorf("split %q: %w", path, ErrNotDir)
	}
	return parent, parentPath, last, nil
}

// touchAncestors walks dirPath from the root, updating mtime on every
// directory inode along the way — root itself, then each named component in
// turn, ending with the directory dirPath names. This models the base
// spec's "parent directory modification implies all ancestors observed the
// change", not just the immediate parent. dirPath must already have been
// resolved successfully by the caller (e.g. via splitParent), so lookups
// here are not expected to fail.
func (fs *FileSystem) touchAncestors(dirPath string) {
	cur := RootIno
	fs.touch(fs.inode(cur))
	for _, name := range splitComponents(dirPath) {
		next, ok := fs.dirLookup(fs.inode(cur), name)
		if !ok {
			return
		}
		cur = next
		fs.touch(fs.inode(cur))
	}
}

// splitComponents splits an absolute path into its non-empty components,
// so that "/", "", and trailing/duplicate slashes all yield no components
// (the root itself).
func splitComponents(path string) []string {
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
