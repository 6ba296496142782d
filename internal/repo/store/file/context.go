package file

import (
	"time"

	"github.com/keshon/bvault/internal/config"
	"github.com/keshon/bvault/internal/fs"
	"github.com/keshon/bvault/internal/repo/store/block"
	"github.com/keshon/bvault/internal/repo/store/cache"
	"github.com/keshon/bvault/internal/storage"
)

// FileContext scans files into the repository and restores them from it.
type FileContext struct {
	FS     fs.FS
	Blocks *block.BlockContext
	Cache  *cache.Cache
	Repo   *storage.Repository
	Rules  *config.Rules
	// Now is the clock used for cooldown, period and backup stamps.
	Now func() time.Time
	// OnFile, when set, is called after each file the scan considered.
	OnFile func(path string, outcome Outcome, err error)
}

// NewFileContext creates a FileContext sharing the cache and repository of
// blocks. A nil rules value applies the default policy everywhere.
func NewFileContext(fsys fs.FS, blocks *block.BlockContext, rules *config.Rules) *FileContext {
	if rules == nil {
		rules = &config.Rules{Defaults: config.DefaultPolicy()}
	}
	return &FileContext{
		FS:     fsys,
		Blocks: blocks,
		Cache:  blocks.Cache,
		Repo:   blocks.Repo,
		Rules:  rules,
		Now:    time.Now,
	}
}

func (fc *FileContext) now() time.Time {
	if fc.Now == nil {
		return time.Now()
	}
	return fc.Now()
}
