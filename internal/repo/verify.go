package repo

import (
	"context"
	"fmt"

	"github.com/keshon/bvault/internal/repo/store/block"
	"github.com/keshon/bvault/internal/util"
)

// VerifyBlocks checks every block the cache knows and attaches the paths
// referencing each one. The returned error covers setup only; defects are
// reported through the checks.
func (r *Repository) VerifyBlocks(ctx context.Context, workers int) ([]block.BlockCheck, error) {
	if r.storage == nil {
		return nil, ErrOffline
	}
	hashes, err := r.cache.Blocks()
	if err != nil {
		return nil, err
	}
	refs, err := r.blockPaths()
	if err != nil {
		return nil, err
	}

	checks := r.Store.BlockCtx.Verify(ctx, hashes, workers)
	for i := range checks {
		checks[i].Paths = util.SortedKeys(refs[checks[i].Hash])
	}
	return checks, nil
}

// Damaged returns the checks whose status is not OK.
func Damaged(checks []block.BlockCheck) []block.BlockCheck {
	var out []block.BlockCheck
	for _, c := range checks {
		if c.Status != block.OK {
			out = append(out, c)
		}
	}
	return out
}

// blockPaths maps every block hash to the set of paths whose history
// references it.
func (r *Repository) blockPaths() (map[string]map[string]struct{}, error) {
	files, err := r.ListFiles()
	if err != nil {
		return nil, err
	}
	refs := make(map[string]map[string]struct{})
	for _, f := range files {
		for _, e := range f.Versions {
			for _, h := range e.Blocks {
				set, ok := refs[h]
				if !ok {
					set = make(map[string]struct{})
					refs[h] = set
				}
				set[f.Path] = struct{}{}
			}
		}
	}
	return refs, nil
}

// CountBlocks returns how many blocks the cache knows.
func (r *Repository) CountBlocks() (int, error) {
	hashes, err := r.cache.Blocks()
	if err != nil {
		return 0, fmt.Errorf("count blocks: %w", err)
	}
	return len(hashes), nil
}
