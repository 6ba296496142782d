// Package repo ties the local cache and the remote repository together. Open
// reconciles the two before anything else runs; the reconciler's outcome is
// kept in Repository.State.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/keshon/bvault/internal/config"
	"github.com/keshon/bvault/internal/fs"
	"github.com/keshon/bvault/internal/logger"
	"github.com/keshon/bvault/internal/repo/store"
	"github.com/keshon/bvault/internal/repo/store/cache"
	"github.com/keshon/bvault/internal/repo/store/file"
	"github.com/keshon/bvault/internal/storage"
)

var (
	// ErrOffline is returned when an operation needs the remote repository
	// but none is attached, or when offline mode finds no local index.
	ErrOffline = errors.New("repository offline")
	// ErrRevisionMismatch means the local index and the repository disagree.
	ErrRevisionMismatch = errors.New("revision mismatch")
)

// State is a stage of the revision reconciler.
type State int

const (
	NoLocalIndex State = iota
	// IndexPresent is a local index used without revision verification.
	IndexPresent
	// IndexTrusted is a local index whose revision matches the repository.
	IndexTrusted
	IndexRebuilding
)

func (s State) String() string {
	switch s {
	case NoLocalIndex:
		return "no local index"
	case IndexPresent:
		return "index present"
	case IndexTrusted:
		return "index trusted"
	case IndexRebuilding:
		return "index rebuilding"
	default:
		return "unknown"
	}
}

// Options configures Open. A nil Backend selects offline mode.
type Options struct {
	CachePath string
	Backend   storage.Backend
	FS        fs.FS
	Rules     *config.Rules
}

// Repository is an opened cache plus, when online, the remote repository.
type Repository struct {
	Store *store.StoreContext
	State State

	opts    Options
	storage *storage.Repository
	cache   *cache.Cache
}

// Open runs the reconciler. Without a local index, or when its revision
// differs from the repository's, the index is rebuilt from the repository.
// Offline, an existing index is used as-is. Open owns opts.Backend and
// closes it on failure.
func Open(ctx context.Context, opts Options) (*Repository, error) {
	r := &Repository{opts: opts, State: NoLocalIndex}
	if cache.Exists(opts.CachePath) {
		r.State = IndexPresent
	}
	logger.Debug("reconciling", logger.KeyState, r.State, logger.KeyPath, opts.CachePath)

	if opts.Backend == nil {
		if r.State != IndexPresent {
			return nil, fmt.Errorf("open %q: %w: no local index", opts.CachePath, ErrOffline)
		}
		c, err := cache.Open(opts.CachePath)
		if err != nil {
			return nil, err
		}
		logger.Warn("offline; using local index without revision check", logger.KeyPath, opts.CachePath)
		return r, r.attach(c)
	}

	st, err := storage.OpenRepository(ctx, opts.Backend)
	if err != nil {
		opts.Backend.Close()
		return nil, err
	}
	r.storage = st

	if r.State == IndexPresent {
		c, err := cache.Open(opts.CachePath)
		if err != nil {
			logger.Warn("local index unusable; rebuilding", logger.KeyPath, opts.CachePath, logger.KeyError, err)
		} else {
			r.cache = c
			err = r.CheckRevision(ctx)
			if err == nil {
				r.State = IndexTrusted
				return r, r.attach(c)
			}
			if !errors.Is(err, ErrRevisionMismatch) {
				r.Close()
				return nil, err
			}
			logger.Warn("discarding local index", logger.KeyError, err)
			c.Close()
			r.cache = nil
		}
	}

	if err := r.rebuild(ctx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// attach builds the store over c.
func (r *Repository) attach(c *cache.Cache) error {
	r.cache = c
	sc, err := store.NewStore(c, r.storage, &store.NewStoreOptions{FS: r.opts.FS, Rules: r.opts.Rules})
	if err != nil {
		return err
	}
	r.Store = sc
	return nil
}

func (r *Repository) rebuild(ctx context.Context) error {
	r.State = IndexRebuilding
	logger.Info("rebuilding local index from repository", logger.KeyPath, r.opts.CachePath)
	c, err := cache.Rebuild(ctx, r.opts.CachePath, r.storage)
	if err != nil {
		return err
	}
	r.State = IndexTrusted
	return r.attach(c)
}

// Online reports whether the remote repository is attached.
func (r *Repository) Online() bool { return r.storage != nil }

// Storage returns the remote repository, or nil when offline.
func (r *Repository) Storage() *storage.Repository { return r.storage }

// Cache returns the local index.
func (r *Repository) Cache() *cache.Cache { return r.cache }

// CheckRevision compares the local and remote revision tokens.
func (r *Repository) CheckRevision(ctx context.Context) error {
	if r.storage == nil {
		return ErrOffline
	}
	local, err := r.cache.GetRevision()
	if err != nil {
		return err
	}
	remote, err := r.storage.GetRevision(ctx)
	if errors.Is(err, storage.ErrNoRevision) {
		remote = ""
	} else if err != nil {
		return err
	}
	if local != remote {
		logger.Error("revision mismatch", logger.KeyExpected, remote, logger.KeyActual, local)
		return fmt.Errorf("%w: local %q, remote %q", ErrRevisionMismatch, local, remote)
	}
	return nil
}

// Commit publishes a fresh revision, remote first, after a successful scan.
func (r *Repository) Commit(ctx context.Context) (string, error) {
	if r.storage == nil {
		return "", ErrOffline
	}
	return r.cache.UpdateRevision(ctx, r.storage)
}

// Rebuild discards the local index and rehydrates it from the repository.
func (r *Repository) Rebuild(ctx context.Context) error {
	if r.storage == nil {
		return ErrOffline
	}
	if r.cache != nil {
		if err := r.cache.Close(); err != nil {
			return err
		}
		r.cache, r.Store = nil, nil
	}
	return r.rebuild(ctx)
}

// Scan backs up every root and commits a new revision when all of them
// were walked without a fatal error.
func (r *Repository) Scan(ctx context.Context, roots ...string) (file.ScanStats, error) {
	var total file.ScanStats
	if r.storage == nil {
		return total, ErrOffline
	}
	for _, root := range roots {
		stats, err := r.Store.FileCtx.Scan(ctx, root)
		total = addStats(total, stats)
		if err != nil {
			return total, err
		}
	}
	rev, err := r.Commit(ctx)
	if err != nil {
		return total, err
	}
	logger.Info("scan complete", "revision", rev, "stored", total.Stored, "errors", total.Errors)
	return total, nil
}

// Restore restores path at version into dest; see file.FileContext.Restore.
func (r *Repository) Restore(ctx context.Context, path, dest string, version int) (*file.RestoreResult, error) {
	if r.storage == nil {
		return nil, ErrOffline
	}
	return r.Store.FileCtx.Restore(ctx, path, dest, version)
}

// Close releases the local index and the backend.
func (r *Repository) Close() error {
	var errs []error
	if r.cache != nil {
		errs = append(errs, r.cache.Close())
		r.cache = nil
	}
	if r.storage != nil {
		errs = append(errs, r.storage.Close())
		r.storage = nil
	}
	return errors.Join(errs...)
}

func addStats(a, b file.ScanStats) file.ScanStats {
	a.Dirs += b.Dirs
	a.Files += b.Files
	a.Skipped += b.Skipped
	a.Unchanged += b.Unchanged
	a.Hot += b.Hot
	a.Recent += b.Recent
	a.Touched += b.Touched
	a.Stored += b.Stored
	a.Errors += b.Errors
	return a
}
