package fs

import (
	"os"
	"time"

	"golang.org/x/exp/mmap"
)

// Syscalls is the set of operating system calls an OSFS makes. Tests swap
// entries to inject failures a real disk rarely produces.
type Syscalls struct {
	Open       func(string) (*os.File, error)
	MmapOpen   func(string) (*mmap.ReaderAt, error)
	ReadFile   func(string) ([]byte, error)
	WriteFile  func(string, []byte, os.FileMode) error
	Stat       func(string) (os.FileInfo, error)
	Lstat      func(string) (os.FileInfo, error)
	ReadDir    func(string) ([]os.DirEntry, error)
	Remove     func(string) error
	Rename     func(string, string) error
	CreateTemp func(string, string) (*os.File, error)
	MkdirAll   func(string, os.FileMode) error
	Chmod      func(string, os.FileMode) error
	Chtimes    func(string, time.Time, time.Time) error
}

// DefaultSyscalls returns the os package implementations.
func DefaultSyscalls() Syscalls {
	return Syscalls{
		Open:       os.Open,
		MmapOpen:   mmap.Open,
		ReadFile:   os.ReadFile,
		WriteFile:  os.WriteFile,
		Stat:       os.Stat,
		Lstat:      os.Lstat,
		ReadDir:    os.ReadDir,
		Remove:     os.Remove,
		Rename:     os.Rename,
		CreateTemp: os.CreateTemp,
		MkdirAll:   os.MkdirAll,
		Chmod:      os.Chmod,
		Chtimes:    os.Chtimes,
	}
}
