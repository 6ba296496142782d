package fs

import (
	"io"
	"os"
	"time"
)

// FS abstracts filesystem operations.
type FS interface {
	Open(path string) (io.ReadSeekCloser, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	Remove(path string) error
	Rename(oldPath, newPath string) error
	Stat(path string) (os.FileInfo, error)
	Lstat(path string) (os.FileInfo, error)
	ReadDir(path string) ([]os.DirEntry, error)
	CreateTempFile(dir, pattern string) (io.WriteCloser, string, error)
	Chmod(path string, mode os.FileMode) error
	Chtimes(path string, atime, mtime time.Time) error
	IsNotExist(err error) bool
	Exists(path string) bool
	IsDir(path string) bool
}

// Attrs are the ownership and change-time attributes not exposed by
// os.FileInfo directly.
type Attrs struct {
	UID   uint32
	GID   uint32
	CTime time.Time
}

// AttrsOf extracts Attrs from info. Values produced by MemoryFS carry an
// *Attrs in Sys(); real files are decoded per platform. When nothing is
// available CTime falls back to the modification time.
func AttrsOf(info os.FileInfo) Attrs {
	if a, ok := info.Sys().(*Attrs); ok && a != nil {
		return *a
	}
	if a, ok := sysAttrs(info); ok {
		return a
	}
	return Attrs{CTime: info.ModTime()}
}
