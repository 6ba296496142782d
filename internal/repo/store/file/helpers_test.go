package file_test

import (
	"context"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keshon/bvault/internal/config"
	"github.com/keshon/bvault/internal/fs"
	"github.com/keshon/bvault/internal/repo/store/block"
	"github.com/keshon/bvault/internal/repo/store/cache"
	"github.com/keshon/bvault/internal/repo/store/file"
	"github.com/keshon/bvault/internal/storage"
	"github.com/keshon/bvault/internal/storage/memory"
	"github.com/keshon/bvault/internal/storage/storagetest"
)

var epoch = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

type env struct {
	fc      *file.FileContext
	fsys    *fs.MemoryFS
	store   *memory.Store
	backend *storagetest.Counting
	repo    *storage.Repository
	cache   *cache.Cache
	now     time.Time
}

func testPolicy() config.Policy {
	return config.Policy{
		Cooldown:  time.Minute,
		Period:    0,
		Compress:  "deflate",
		BlockSize: 4,
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	e := &env{fsys: fs.NewMemoryFS(), store: memory.New(), now: epoch}
	e.backend = storagetest.NewCounting(e.store)

	repo, _, err := storage.Init(ctx, e.backend, "sha256")
	require.NoError(t, err)
	e.repo = repo
	e.attach(t, &config.Rules{Defaults: testPolicy()})
	e.backend.Reset()
	return e
}

// attach rebuilds the cache from the repository and a fresh FileContext
// on top of it, as a restarted process would.
func (e *env) attach(t *testing.T, rules *config.Rules) {
	t.Helper()
	c, err := cache.Rebuild(context.Background(), "", e.repo)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	e.cache = c
	e.fc = file.NewFileContext(e.fsys, block.NewBlockContext(c, e.repo), rules)
	e.fc.Now = func() time.Time { return e.now }
}

// write creates p with content and a modification time age before now.
func (e *env) write(t *testing.T, p, content string, age time.Duration) {
	t.Helper()
	require.NoError(t, e.fsys.MkdirAll(path.Dir(p), 0o755))
	require.NoError(t, e.fsys.WriteFile(p, []byte(content), 0o640))
	mtime := e.now.Add(-age)
	require.NoError(t, e.fsys.Chtimes(p, mtime, mtime))
}

func (e *env) consider(t *testing.T, p string) file.Outcome {
	t.Helper()
	out, err := e.fc.ConsiderFile(context.Background(), p, testPolicy())
	require.NoError(t, err)
	return out
}

func (e *env) hash(s string) string {
	return e.fc.Blocks.Hash([]byte(s))
}
