package dir

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/bvault/internal/fs"
	"github.com/keshon/bvault/internal/storage"
	"github.com/keshon/bvault/internal/storage/storagetest"
)

func TestContractOSFS(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		s, err := New(fs.NewOSFS(), filepath.Join(t.TempDir(), "repo"), true)
		require.NoError(t, err)
		return s
	})
}

func TestContractMemoryFS(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		s, err := New(fs.NewMemoryFS(), "/repo", true)
		require.NoError(t, err)
		return s
	})
}

func TestNewRequiresDirectory(t *testing.T) {
	_, err := New(fs.NewMemoryFS(), "/missing", false)
	assert.ErrorIs(t, err, storage.ErrInvalidRepository)

	_, err = New(fs.NewMemoryFS(), "", true)
	assert.Error(t, err)
}

func TestListIgnoresForeignFiles(t *testing.T) {
	ctx := context.Background()
	mfs := fs.NewMemoryFS()
	s, err := New(mfs, "/repo", true)
	require.NoError(t, err)

	require.NoError(t, s.Store(ctx, "bkey", []byte("v")))
	require.NoError(t, mfs.WriteFile("/repo/.tmp-99", []byte("partial"), 0o600))
	require.NoError(t, mfs.WriteFile("/repo/not base64!", []byte("x"), 0o600))

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bkey"}, keys)
}

func TestFileNamesAreEncoded(t *testing.T) {
	ctx := context.Background()
	mfs := fs.NewMemoryFS()
	s, err := New(mfs, "/repo", true)
	require.NoError(t, err)

	require.NoError(t, s.Store(ctx, "e1,/etc/passwd", []byte("v")))
	assert.True(t, mfs.Exists("/repo/"+storage.EncodeName("e1,/etc/passwd")))
	assert.False(t, mfs.Exists("/etc/passwd"))
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "repo")
	osfs := fs.NewOSFS()
	s, err := New(osfs, root, true)
	require.NoError(t, err)
	require.NoError(t, s.Store(ctx, "a", []byte("1")))
	require.NoError(t, s.Store(ctx, "b", []byte("2")))

	require.NoError(t, s.Destroy(ctx))
	assert.False(t, osfs.Exists(root))
}

func TestOpenRemovesOrphanedTemps(t *testing.T) {
	ctx := context.Background()
	fsys := fs.NewMemoryFS()
	s, err := New(fsys, "/repo", true)
	require.NoError(t, err)
	require.NoError(t, s.Store(ctx, "-rev", []byte("r1")))
	require.NoError(t, fsys.WriteFile("/repo/.tmp-17", []byte("half a blo"), 0o600))

	s, err = New(fsys, "/repo", false)
	require.NoError(t, err)
	assert.False(t, fsys.Exists("/repo/.tmp-17"))

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"-rev"}, keys)
}
