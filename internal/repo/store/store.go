package store

import (
	"fmt"

	"github.com/keshon/bvault/internal/config"
	"github.com/keshon/bvault/internal/fs"
	"github.com/keshon/bvault/internal/repo/store/block"
	"github.com/keshon/bvault/internal/repo/store/cache"
	"github.com/keshon/bvault/internal/repo/store/file"
	"github.com/keshon/bvault/internal/storage"
)

// StoreContext bundles the cache, the repository and the block and file
// layers built on them. It is created once per process and passed down
// explicitly. Without a repository only the cache is usable.
type StoreContext struct {
	Cache    *cache.Cache
	Repo     *storage.Repository
	BlockCtx *block.BlockContext
	FileCtx  *file.FileContext
}

// NewStoreOptions allows optional dependency injection.
type NewStoreOptions struct {
	FS       fs.FS
	Rules    *config.Rules
	BlockCtx *block.BlockContext
	FileCtx  *file.FileContext
}

// NewStore creates a store over c and repo. repo may be nil in offline mode.
func NewStore(c *cache.Cache, repo *storage.Repository, opts *NewStoreOptions) (*StoreContext, error) {
	if c == nil {
		return nil, fmt.Errorf("nil cache provided")
	}
	sc := &StoreContext{Cache: c, Repo: repo}
	if repo == nil {
		return sc, nil
	}
	if opts == nil {
		opts = &NewStoreOptions{}
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = fs.NewOSFS()
	}

	sc.BlockCtx = opts.BlockCtx
	if sc.BlockCtx == nil {
		sc.BlockCtx = block.NewBlockContext(c, repo)
	}

	sc.FileCtx = opts.FileCtx
	if sc.FileCtx == nil {
		sc.FileCtx = file.NewFileContext(fsys, sc.BlockCtx, opts.Rules)
	}
	return sc, nil
}

// Online reports whether the repository is attached.
func (sc *StoreContext) Online() bool { return sc.Repo != nil }
