package fs_test

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/bvault/internal/fs"
)

func TestSyscallOverrides(t *testing.T) {
	sys := fs.DefaultSyscalls()
	var calls []string
	sys.Stat = func(string) (os.FileInfo, error) {
		calls = append(calls, "stat")
		return nil, errors.New("stat-failed")
	}
	sys.WriteFile = func(path string, data []byte, perm os.FileMode) error {
		calls = append(calls, "write")
		assert.Equal(t, "a", path)
		assert.Equal(t, "b", string(data))
		assert.Equal(t, os.FileMode(0o644), perm)
		return nil
	}
	sys.Chmod = func(string, os.FileMode) error { return errors.New("chmod-failed") }
	sys.Rename = func(o, n string) error {
		calls = append(calls, "rename "+o+" "+n)
		return nil
	}
	osfs := fs.NewOSFSWith(sys)

	_, err := osfs.Stat("zzz")
	assert.EqualError(t, err, "stat-failed")
	assert.False(t, osfs.IsDir("zzz"))
	require.NoError(t, osfs.WriteFile("a", []byte("b"), 0o644))
	assert.EqualError(t, osfs.Chmod("x", 0o600), "chmod-failed")
	require.NoError(t, osfs.Rename("from", "to"))

	assert.Equal(t, []string{"stat", "stat", "write", "rename from to"}, calls)
}

func TestSyscallFailuresReachStorage(t *testing.T) {
	sys := fs.DefaultSyscalls()
	sys.ReadDir = func(string) ([]os.DirEntry, error) { return nil, os.ErrPermission }
	osfs := fs.NewOSFSWith(sys)

	_, err := osfs.ReadDir(t.TempDir())
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.False(t, osfs.IsNotExist(err))
}
