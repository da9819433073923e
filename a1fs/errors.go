package a1fs

import (
	"errors"
	"syscall"
)

// Sentinel errors for the conditions a1fs operations can fail with.
// Operations wrap these with fmt.Errorf and %w for context; callers
// that need the kind use errors.Is against these values.
var (
	ErrNameTooLong = errors.New("a1fs: name too long")
	ErrNotFound    = errors.New("a1fs: no such file or directory")
	ErrNotDir      = errors.New("a1fs: not a directory")
	ErrIsDir       = errors.New("a1fs: is a directory")
	ErrNotEmpty    = errors.New("a1fs: directory not empty")
	ErrNoSpace     = errors.New("a1fs: no space left on device")
	ErrExist       = errors.New("a1fs: file already exists")
	ErrInvalid     = errors.New("a1fs: invalid argument")
)

// Errno maps an a1fs sentinel error to the errno a POSIX-facing binding
// would surface for it: 0 (or a byte count) on success, a negative errno on
// failure. Unrecognized errors map to EIO, since an invariant violation
// detected at runtime has no better-defined outcome than a best-effort
// error return.
func Errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNameTooLong):
		return syscall.ENAMETOOLONG
	case errors.Is(err, ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, ErrNotDir):
		return syscall.ENOTDIR
	case errors.Is(err, ErrIsDir):
		return syscall.EISDIR
	case errors.Is(err, ErrNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, ErrNoSpace):
		return syscall.ENOSPC
	case errors.Is(err, ErrExist):
		return syscall.EEXIST
	case errors.Is(err, ErrInvalid):
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}
