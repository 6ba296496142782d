package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/bvault/internal/storage"
	"github.com/keshon/bvault/internal/storage/memory"
)

func newRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, _, err := storage.Init(context.Background(), memory.New(), "sha256")
	require.NoError(t, err)
	return repo
}

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Rebuild(context.Background(), "", newRepo(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func entry(path string, version int, blocks ...string) *storage.Entry {
	return &storage.Entry{
		Path:     path,
		Version:  version,
		Metadata: storage.Metadata{Size: storage.Int64(int64(len(blocks)))},
		Blocks:   blocks,
	}
}

func TestBlocks(t *testing.T) {
	c := newCache(t)

	ok, err := c.HasBlock("h1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.AddBlock("h1"))
	ok, err = c.HasBlock("h1")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := c.RefCount("h1")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, c.IncBlockRef("h1"))
	require.NoError(t, c.IncBlockRef("h1"))
	require.NoError(t, c.AddBlock("h1"), "re-adding is idempotent")
	n, err = c.RefCount("h1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	require.NoError(t, c.DecBlockRef("h1"))
	require.NoError(t, c.DecBlockRef("h1"))
	assert.ErrorIs(t, c.DecBlockRef("h1"), ErrZeroRefCount)

	assert.ErrorIs(t, c.IncBlockRef("nope"), ErrUnknownBlock)
	_, err = c.RefCount("nope")
	assert.ErrorIs(t, err, ErrUnknownBlock)

	require.NoError(t, c.AddBlock("h0"))
	hashes, err := c.Blocks()
	require.NoError(t, err)
	assert.Equal(t, []string{"h0", "h1"}, hashes)
}

func TestEntries(t *testing.T) {
	c := newCache(t)

	_, err := c.GetEntry("/a", 0)
	assert.ErrorIs(t, err, ErrNoEntry)

	require.NoError(t, c.SetEntry(entry("/a", 2, "x")))
	require.NoError(t, c.SetEntry(entry("/a", 1, "y")))
	require.NoError(t, c.SetEntry(entry("/a", 2, "z")))
	require.NoError(t, c.SetEntry(entry("/b", 1)))

	versions, err := c.ListVersions("/a")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)

	latest, err := c.GetEntry("/a", 0)
	require.NoError(t, err)
	assert.Equal(t, entry("/a", 2, "z"), latest)

	first, err := c.GetEntry("/a", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, first.Blocks)

	_, err = c.GetEntry("/a", 3)
	assert.ErrorIs(t, err, ErrNoEntry)

	paths, err := c.ListEntries()
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, paths)

	empty, err := c.GetEntry("/b", 0)
	require.NoError(t, err)
	assert.Empty(t, empty.Blocks)

	assert.Error(t, c.SetEntry(entry("/c", 0)))
}

func TestRecordEntry(t *testing.T) {
	c := newCache(t)
	require.NoError(t, c.AddBlock("h1"))
	require.NoError(t, c.AddBlock("h2"))

	require.NoError(t, c.RecordEntry(entry("/f", 1, "h1", "h2", "h1")))
	n, err := c.RefCount("h1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n, "one reference per entry version")

	err = c.RecordEntry(entry("/g", 1, "h2", "missing"))
	assert.ErrorIs(t, err, ErrUnknownBlock)
	n, err = c.RefCount("h2")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n, "failed record leaves counts untouched")
	_, err = c.GetEntry("/g", 0)
	assert.ErrorIs(t, err, ErrNoEntry)
}

func TestUpdateRevisionRemoteFirst(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	c, err := Rebuild(ctx, "", repo)
	require.NoError(t, err)
	defer c.Close()

	rev, err := c.UpdateRevision(ctx, repo)
	require.NoError(t, err)
	remote, err := repo.GetRevision(ctx)
	require.NoError(t, err)
	local, err := c.GetRevision()
	require.NoError(t, err)
	assert.Equal(t, rev, remote)
	assert.Equal(t, rev, local)

	failing := &failingBackend{Backend: repo.Backend()}
	broken, err := storage.OpenRepository(ctx, failing)
	require.NoError(t, err)
	failing.failStore = true
	_, err = c.UpdateRevision(ctx, broken)
	assert.Error(t, err)
	local, err = c.GetRevision()
	require.NoError(t, err)
	assert.Equal(t, rev, local, "local token untouched when the remote write fails")

	offline, err := c.UpdateRevision(ctx, nil)
	require.NoError(t, err)
	assert.NotEqual(t, rev, offline)
}

func TestRehydration(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	require.NoError(t, repo.SetBlock(ctx, "h1", '-', []byte("a")))
	require.NoError(t, repo.SetBlock(ctx, "h2", '-', []byte("b")))
	require.NoError(t, repo.SetEntry(ctx, entry("/x", 1, "h1")))
	require.NoError(t, repo.SetEntry(ctx, entry("/x", 2, "h1", "h2")))
	require.NoError(t, repo.SetEntry(ctx, entry("/y", 1, "h2", "gone")))

	c, err := Rebuild(ctx, "", repo)
	require.NoError(t, err)
	defer c.Close()

	for h, want := range map[string]uint64{"h1": 2, "h2": 2} {
		n, err := c.RefCount(h)
		require.NoError(t, err)
		assert.Equal(t, want, n, h)
	}
	ok, err := c.HasBlock("gone")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, k := range []storage.EntryKey{{Path: "/x", Version: 1}, {Path: "/x", Version: 2}, {Path: "/y", Version: 1}} {
		want, err := repo.GetEntry(ctx, k.Path, k.Version)
		require.NoError(t, err)
		got, err := c.GetEntry(k.Path, k.Version)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	latest, err := c.GetEntry("/x", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)

	remote, err := repo.GetRevision(ctx)
	require.NoError(t, err)
	local, err := c.GetRevision()
	require.NoError(t, err)
	assert.Equal(t, remote, local)
}

func TestRebuildCreatesRevisionWhenMissing(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	require.NoError(t, b.Store(ctx, storage.ConfigKey, []byte("version\t1\n")))
	repo, err := storage.OpenRepository(ctx, b)
	require.NoError(t, err)

	c, err := Rebuild(ctx, "", repo)
	require.NoError(t, err)
	defer c.Close()

	remote, err := repo.GetRevision(ctx)
	require.NoError(t, err)
	local, err := c.GetRevision()
	require.NoError(t, err)
	assert.Equal(t, remote, local)
}

func TestRebuildFailureRemovesDirectory(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	require.NoError(t, repo.SetEntry(ctx, entry("/x", 1)))

	failing := &failingBackend{Backend: repo.Backend(), failRetrieve: "e1,/x"}
	broken, err := storage.OpenRepository(ctx, failing)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "cache")
	_, err = Rebuild(ctx, dir, broken)
	require.Error(t, err)
	assert.False(t, Exists(dir))
	assert.NoDirExists(t, dir)
}

func TestOpenOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache")

	_, err := Open(dir)
	assert.ErrorIs(t, err, ErrNoCache)

	repo := newRepo(t)
	c, err := Rebuild(ctx, dir, repo)
	require.NoError(t, err)
	require.NoError(t, c.AddBlock("h1"))
	rev, err := c.GetRevision()
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.True(t, Exists(dir))

	c, err = Open(dir)
	require.NoError(t, err)
	ok, err := c.HasBlock("h1")
	require.NoError(t, err)
	assert.True(t, ok)
	again, err := c.GetRevision()
	require.NoError(t, err)
	assert.Equal(t, rev, again)
	require.NoError(t, c.Close())

	require.NoError(t, Remove(dir))
	assert.False(t, Exists(dir))
}

func TestOpenWithoutRevision(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := openDB(dir)
	require.NoError(t, err)
	require.NoError(t, c.AddBlock("h1"))
	require.NoError(t, c.Close())

	_, err = Open(dir)
	assert.ErrorIs(t, err, ErrNoRevision)
}

type failingBackend struct {
	storage.Backend
	failStore    bool
	failRetrieve string
}

func (f *failingBackend) Store(ctx context.Context, key string, value []byte) error {
	if f.failStore {
		return errors.New("store refused")
	}
	return f.Backend.Store(ctx, key, value)
}

func (f *failingBackend) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if key == f.failRetrieve {
		return nil, errors.New("retrieve refused")
	}
	return f.Backend.Retrieve(ctx, key)
}

func TestCorruptEntryDetected(t *testing.T) {
	c := newCache(t)
	require.NoError(t, c.SetEntry(entry("/a", 1, "x")))

	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyVersion("/a", 1))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		val[len(val)-1] ^= 0xff
		return txn.Set(keyVersion("/a", 1), val)
	})
	require.NoError(t, err)

	_, err = c.GetEntry("/a", 1)
	assert.ErrorIs(t, err, ErrCorruptEntry)

	_, err = openEntry([]byte{1, 2})
	assert.ErrorIs(t, err, ErrCorruptEntry)
}
