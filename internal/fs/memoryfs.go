package fs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryFS is a pure in-memory filesystem for tests or lightweight storage.
// It tracks modes, modification times, ownership and symlinks so scan and
// restore paths can be exercised without touching disk.
type MemoryFS struct {
	mu    sync.RWMutex
	files map[string]*memFile
	dirs  map[string]struct{}
	links map[string]string
	seq   int
}

type memFile struct {
	data  []byte
	mode  os.FileMode
	mtime time.Time
	attrs Attrs
}

func NewMemoryFS() *MemoryFS {
	f := &MemoryFS{
		files: make(map[string]*memFile),
		dirs:  make(map[string]struct{}),
		links: make(map[string]string),
	}
	f.dirs["/"] = struct{}{}
	f.dirs["."] = struct{}{}
	return f
}

// normalize paths
func clean(p string) string {
	if p == "" {
		return "."
	}
	return filepath.ToSlash(filepath.Clean(p))
}

func (f *MemoryFS) ensureDirExists(p string) error {
	if _, ok := f.dirs[clean(p)]; !ok {
		return fs.ErrNotExist
	}
	return nil
}

// resolve follows symlinks up to a fixed depth.
func (f *MemoryFS) resolve(p string) string {
	for i := 0; i < 16; i++ {
		target, ok := f.links[p]
		if !ok {
			return p
		}
		if !path.IsAbs(target) {
			target = path.Join(path.Dir(p), target)
		}
		p = clean(target)
	}
	return p
}

func (f *MemoryFS) Open(p string) (io.ReadSeekCloser, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	file, ok := f.files[f.resolve(clean(p))]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	return &memReadSeekCloser{Reader: bytes.NewReader(file.data)}, nil
}

type memReadSeekCloser struct {
	*bytes.Reader
}

func (m *memReadSeekCloser) Close() error { return nil }

func (f *MemoryFS) ReadFile(p string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	file, ok := f.files[f.resolve(clean(p))]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), file.data...), nil
}

func (f *MemoryFS) WriteFile(p string, data []byte, perm os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.put(clean(p), data, perm)
}

func (f *MemoryFS) put(p string, data []byte, perm os.FileMode) error {
	dir := path.Dir(p)
	if err := f.ensureDirExists(dir); err != nil {
		return fmt.Errorf("write: dir %q does not exist", dir)
	}
	if existing, ok := f.files[p]; ok {
		existing.data = append([]byte(nil), data...)
		existing.mtime = time.Now()
		return nil
	}
	now := time.Now()
	f.files[p] = &memFile{
		data:  append([]byte(nil), data...),
		mode:  perm.Perm(),
		mtime: now,
		attrs: Attrs{CTime: now},
	}
	return nil
}

func (f *MemoryFS) MkdirAll(p string, perm os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = clean(p)
	cur := ""
	if strings.HasPrefix(p, "/") {
		cur = "/"
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." {
			continue
		}
		cur = path.Join(cur, seg)
		f.dirs[cur] = struct{}{}
	}
	return nil
}

func (f *MemoryFS) Remove(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = clean(p)
	if _, ok := f.links[p]; ok {
		delete(f.links, p)
		return nil
	}
	if _, ok := f.files[p]; ok {
		delete(f.files, p)
		return nil
	}
	if _, ok := f.dirs[p]; ok {
		delete(f.dirs, p)
		return nil
	}
	return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrNotExist}
}

func (f *MemoryFS) Rename(oldp, newp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	oldp, newp = clean(oldp), clean(newp)

	if file, ok := f.files[oldp]; ok {
		if f.ensureDirExists(path.Dir(newp)) != nil {
			return &fs.PathError{Op: "rename", Path: newp, Err: fs.ErrNotExist}
		}
		delete(f.files, oldp)
		f.files[newp] = file
		return nil
	}

	if _, ok := f.dirs[oldp]; ok {
		delete(f.dirs, oldp)
		f.dirs[newp] = struct{}{}
		return nil
	}

	return &fs.PathError{Op: "rename", Path: oldp, Err: fs.ErrNotExist}
}

func (f *MemoryFS) Stat(p string) (os.FileInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.info(f.resolve(clean(p)), filepath.Base(p))
}

func (f *MemoryFS) Lstat(p string) (os.FileInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p = clean(p)
	if target, ok := f.links[p]; ok {
		return &fakeInfo{name: filepath.Base(p), size: int64(len(target)), mode: os.ModeSymlink | 0o777}, nil
	}
	return f.info(p, filepath.Base(p))
}

func (f *MemoryFS) info(p, name string) (os.FileInfo, error) {
	if file, ok := f.files[p]; ok {
		attrs := file.attrs
		return &fakeInfo{name: name, size: int64(len(file.data)), mode: file.mode, mtime: file.mtime, attrs: &attrs}, nil
	}
	if _, ok := f.dirs[p]; ok {
		return &fakeInfo{name: name, mode: os.ModeDir | 0o755}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
}

// ReadDir lists the immediate children of p sorted by name, like os.ReadDir.
func (f *MemoryFS) ReadDir(p string) ([]os.DirEntry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p = clean(p)
	if _, ok := f.dirs[p]; !ok {
		return nil, &fs.PathError{Op: "readdir", Path: p, Err: fs.ErrNotExist}
	}

	prefix := p
	if prefix == "." {
		prefix = ""
	} else if prefix != "/" {
		prefix += "/"
	}

	seen := map[string]os.FileMode{}
	add := func(full string, mode os.FileMode) {
		if !strings.HasPrefix(full, prefix) || full == p {
			return
		}
		rest := strings.TrimPrefix(full, prefix)
		if strings.HasPrefix(rest, "/") {
			return
		}
		name, _, nested := strings.Cut(rest, "/")
		if name == "" || name == "." {
			return
		}
		if nested {
			mode = os.ModeDir
		}
		if _, ok := seen[name]; !ok {
			seen[name] = mode
		}
	}
	for dp := range f.dirs {
		add(dp, os.ModeDir)
	}
	for fp := range f.files {
		add(fp, 0)
	}
	for lp := range f.links {
		add(lp, os.ModeSymlink)
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]os.DirEntry, 0, len(names))
	for _, n := range names {
		out = append(out, fakeDirEntry{fs: f, dir: p, name: n, typ: seen[n]})
	}
	return out, nil
}

func (f *MemoryFS) CreateTempFile(dir, pattern string) (io.WriteCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureDirExists(dir); err != nil {
		return nil, "", err
	}

	f.seq++
	name := pattern
	if strings.Contains(name, "*") {
		name = strings.Replace(name, "*", strconv.Itoa(f.seq), 1)
	} else {
		name += strconv.Itoa(f.seq)
	}
	tmpName := clean(path.Join(clean(dir), name))
	if err := f.put(tmpName, nil, 0o600); err != nil {
		return nil, "", err
	}

	buf := &bytes.Buffer{}
	wc := &memWriteCloser{
		buf: buf,
		onClose: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if file, ok := f.files[tmpName]; ok {
				file.data = buf.Bytes()
				file.mtime = time.Now()
			}
		},
	}
	return wc, tmpName, nil
}

type memWriteCloser struct {
	buf     *bytes.Buffer
	onClose func()
}

func (m *memWriteCloser) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *memWriteCloser) Close() error {
	if m.onClose != nil {
		m.onClose()
		m.onClose = nil
	}
	return nil
}

func (f *MemoryFS) Chmod(p string, mode os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[f.resolve(clean(p))]
	if !ok {
		return &fs.PathError{Op: "chmod", Path: p, Err: fs.ErrNotExist}
	}
	file.mode = mode & (os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky)
	return nil
}

func (f *MemoryFS) Chtimes(p string, _, mtime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[f.resolve(clean(p))]
	if !ok {
		return &fs.PathError{Op: "chtimes", Path: p, Err: fs.ErrNotExist}
	}
	file.mtime = mtime
	return nil
}

// Chown sets the ownership reported through AttrsOf.
func (f *MemoryFS) Chown(p string, uid, gid uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[f.resolve(clean(p))]
	if !ok {
		return &fs.PathError{Op: "chown", Path: p, Err: fs.ErrNotExist}
	}
	file.attrs.UID, file.attrs.GID = uid, gid
	return nil
}

// Symlink creates newname as a symbolic link to oldname.
func (f *MemoryFS) Symlink(oldname, newname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	newname = clean(newname)
	if err := f.ensureDirExists(path.Dir(newname)); err != nil {
		return err
	}
	f.links[newname] = oldname
	return nil
}

func (f *MemoryFS) IsNotExist(err error) bool { return errors.Is(err, fs.ErrNotExist) }

func (f *MemoryFS) IsDir(p string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.dirs[f.resolve(clean(p))]
	return ok
}

func (f *MemoryFS) Exists(p string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p = clean(p)
	_, f1 := f.files[p]
	_, d1 := f.dirs[p]
	_, l1 := f.links[p]
	return f1 || d1 || l1
}

// Helpers

type fakeInfo struct {
	name  string
	size  int64
	mode  os.FileMode
	mtime time.Time
	attrs *Attrs
}

func (i *fakeInfo) Name() string       { return i.name }
func (i *fakeInfo) Size() int64        { return i.size }
func (i *fakeInfo) Mode() fs.FileMode  { return i.mode }
func (i *fakeInfo) ModTime() time.Time { return i.mtime }
func (i *fakeInfo) IsDir() bool        { return i.mode.IsDir() }
func (i *fakeInfo) Sys() any           { return i.attrs }

type fakeDirEntry struct {
	fs   *MemoryFS
	dir  string
	name string
	typ  os.FileMode
}

func (d fakeDirEntry) Name() string      { return d.name }
func (d fakeDirEntry) IsDir() bool       { return d.typ.IsDir() }
func (d fakeDirEntry) Type() fs.FileMode { return d.typ.Type() }
func (d fakeDirEntry) Info() (os.FileInfo, error) {
	return d.fs.Lstat(path.Join(d.dir, d.name))
}
