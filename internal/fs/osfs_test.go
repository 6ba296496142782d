package fs_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/keshon/bvault/internal/fs"
	"golang.org/x/exp/mmap"
)

func TestOSFS_OpenMapped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := fs.NewOSFS().Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.Seek(4, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 3)
	if _, err := io.ReadFull(f, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "456" {
		t.Fatalf("expected 456, got %q", buf)
	}
}

func TestOSFS_OpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := fs.NewOSFS().Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil || len(data) != 0 {
		t.Fatalf("expected empty read, got %q %v", data, err)
	}
}

func TestOSFS_OpenFallsBackWhenMmapFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(path, []byte("plain"), 0o644); err != nil {
		t.Fatal(err)
	}

	sys := fs.DefaultSyscalls()
	sys.MmapOpen = func(string) (*mmap.ReaderAt, error) {
		return nil, errors.New("mmap unsupported")
	}

	f, err := fs.NewOSFSWith(sys).Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "plain" {
		t.Fatalf("expected plain, got %q", data)
	}
}

func TestOSFS_OpenMissing(t *testing.T) {
	osfs := fs.NewOSFS()
	_, err := osfs.Open(filepath.Join(t.TempDir(), "nope"))
	if !osfs.IsNotExist(err) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

func TestOSFS_TempRenameChmodChtimes(t *testing.T) {
	dir := t.TempDir()
	osfs := fs.NewOSFS()

	w, tmp, err := osfs.CreateTempFile(dir, ".tmp-*")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "out")
	if err := osfs.Rename(tmp, dst); err != nil {
		t.Fatal(err)
	}
	if err := osfs.Chmod(dst, 0o640); err != nil {
		t.Fatal(err)
	}
	mtime := time.Unix(1600000000, 0)
	if err := osfs.Chtimes(dst, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	info, err := osfs.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("unexpected perm %v", info.Mode().Perm())
	}
	if !info.ModTime().Equal(mtime) {
		t.Fatalf("unexpected mtime %v", info.ModTime())
	}
	if a := fs.AttrsOf(info); a.CTime.IsZero() {
		t.Fatal("expected a change time")
	}
}

func TestOSFS_LstatSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Skip("symlinks unsupported:", err)
	}

	osfs := fs.NewOSFS()
	li, err := osfs.Lstat(link)
	if err != nil {
		t.Fatal(err)
	}
	if li.Mode()&os.ModeSymlink == 0 {
		t.Fatal("expected symlink mode")
	}
	if !osfs.Exists(link) || osfs.IsDir(link) {
		t.Fatal("unexpected Exists/IsDir result")
	}
}
