package fs

import (
	"errors"
	"io"
	"os"
	"time"

	"golang.org/x/exp/mmap"
)

// OSFS is a production implementation of FS backed by the local disk.
// Regular files are opened through a read-only memory map so block-sized
// reads do not go through a syscall each.
type OSFS struct {
	sys Syscalls
}

func NewOSFS() *OSFS {
	return &OSFS{sys: DefaultSyscalls()}
}

// NewOSFSWith returns an OSFS making the given calls.
func NewOSFSWith(sys Syscalls) *OSFS {
	return &OSFS{sys: sys}
}

func (r *OSFS) Open(path string) (io.ReadSeekCloser, error) {
	m, err := r.sys.MmapOpen(path)
	if err == nil {
		return &mappedFile{SectionReader: io.NewSectionReader(m, 0, int64(m.Len())), m: m}, nil
	}
	// mmap refuses special files; fall back to a plain descriptor
	f, ferr := r.sys.Open(path)
	if ferr != nil {
		return nil, ferr
	}
	return f, nil
}

type mappedFile struct {
	*io.SectionReader
	m *mmap.ReaderAt
}

func (f *mappedFile) Close() error { return f.m.Close() }

func (r *OSFS) Stat(path string) (os.FileInfo, error) {
	return r.sys.Stat(path)
}

func (r *OSFS) Lstat(path string) (os.FileInfo, error) {
	return r.sys.Lstat(path)
}

func (r *OSFS) ReadFile(path string) ([]byte, error) {
	return r.sys.ReadFile(path)
}

func (r *OSFS) ReadDir(path string) ([]os.DirEntry, error) {
	return r.sys.ReadDir(path)
}

func (r *OSFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	return r.sys.WriteFile(path, data, perm)
}

func (r *OSFS) MkdirAll(path string, perm os.FileMode) error {
	return r.sys.MkdirAll(path, perm)
}

func (r *OSFS) Remove(path string) error {
	return r.sys.Remove(path)
}

func (r *OSFS) Rename(oldPath, newPath string) error {
	return r.sys.Rename(oldPath, newPath)
}

// CreateTempFile returns an *os.File, so callers may assert a Sync method.
func (r *OSFS) CreateTempFile(dir, pattern string) (io.WriteCloser, string, error) {
	f, err := r.sys.CreateTemp(dir, pattern)
	if err != nil {
		return nil, "", err
	}
	return f, f.Name(), nil
}

func (r *OSFS) Chmod(path string, mode os.FileMode) error {
	return r.sys.Chmod(path, mode)
}

func (r *OSFS) Chtimes(path string, atime, mtime time.Time) error {
	return r.sys.Chtimes(path, atime, mtime)
}

func (r *OSFS) IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func (r *OSFS) IsDir(path string) bool {
	fi, err := r.sys.Stat(path)
	return err == nil && fi.IsDir()
}

func (r *OSFS) Exists(path string) bool {
	_, err := r.sys.Lstat(path)
	return err == nil
}
