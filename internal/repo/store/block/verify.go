package block

import (
	"context"
	"sort"
	"sync"

	"github.com/keshon/bvault/internal/util"
)

// VerifyBlock checks a single block for integrity. Fetch errors other than
// absence are returned alongside a Missing status.
func (bc *BlockContext) VerifyBlock(ctx context.Context, hash string) (BlockStatus, error) {
	r := bc.ReadBlock(ctx, hash)
	if !r.Found && !r.IsNotFound() {
		return Missing, r.FetchErr
	}
	if r.DecodeErr != nil {
		return r.Status(), r.DecodeErr
	}
	return r.Status(), nil
}

// Verify checks hashes concurrently with at most workers readers and
// returns the checks sorted by hash.
func (bc *BlockContext) Verify(ctx context.Context, hashes []string, workers int) []BlockCheck {
	if workers <= 0 {
		workers = util.WorkerCount()
	}

	var (
		mu     sync.Mutex
		checks = make([]BlockCheck, 0, len(hashes))
	)
	// VerifyBlock maps failures into a status, so every hash is processed.
	_ = util.Parallel(hashes, workers, func(h string) error {
		status, err := bc.VerifyBlock(ctx, h)
		mu.Lock()
		checks = append(checks, BlockCheck{Hash: h, Status: status, Err: err})
		mu.Unlock()
		return nil
	})

	sort.Slice(checks, func(i, j int) bool { return checks[i].Hash < checks[j].Hash })
	return checks
}
