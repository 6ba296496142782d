package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/keshon/bvault/internal/config"
	"github.com/keshon/bvault/internal/logger"
	"github.com/keshon/bvault/internal/repo/store/cache"
	"github.com/keshon/bvault/internal/storage"
)

// Outcome is what ConsiderFile did with a file.
type Outcome int

const (
	// Skipped by policy.
	Skipped Outcome = iota
	// Unchanged modification time.
	Unchanged
	// Hot files were modified within the cooldown.
	Hot
	// Recent files were backed up within the period.
	Recent
	// Touched files had a new modification time but identical content.
	Touched
	// Stored a new version.
	Stored
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Unchanged:
		return "unchanged"
	case Hot:
		return "hot"
	case Recent:
		return "recent"
	case Touched:
		return "touched"
	case Stored:
		return "stored"
	default:
		return "unknown"
	}
}

// ReadError wraps a failure to read a file from the local filesystem. The
// scan reports it and moves on.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read %q: %v", e.Path, e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

// ConsiderFile backs up path if policy and the cached history call for it.
// The checks run in order and each one ends the call without side effects:
// skip, unchanged modification time, cooldown, then period. Only after that
// is the content read and deduplicated.
func (fc *FileContext) ConsiderFile(ctx context.Context, path string, policy config.Policy) (Outcome, error) {
	logger.Debug("considering file", logger.KeyPath, path)
	if policy.Skip {
		return Skipped, nil
	}

	now := fc.now()
	lst, err := fc.FS.Lstat(path)
	if err != nil {
		return Skipped, &ReadError{Path: path, Err: err}
	}
	info := lst
	isLink := lst.Mode()&os.ModeSymlink != 0
	if isLink {
		if info, err = fc.FS.Stat(path); err != nil {
			return Skipped, &ReadError{Path: path, Err: err}
		}
	}
	md := metadataOf(info, isLink, now)

	prev, err := fc.Cache.GetEntry(path, 0)
	if errors.Is(err, cache.ErrCorruptEntry) {
		logger.Warn("cached entry unreadable; treating file as new", logger.KeyPath, path, logger.KeyError, err)
		err = cache.ErrNoEntry
	}
	if errors.Is(err, cache.ErrNoEntry) {
		prev, err = nil, nil
	}
	if err != nil {
		return Skipped, err
	}

	if prev != nil && prev.Metadata.MTime != nil && *prev.Metadata.MTime == *md.MTime {
		logger.Debug("not modified; skipping", logger.KeyPath, path)
		return Unchanged, nil
	}
	if info.ModTime().Add(policy.Cooldown).After(now) {
		logger.Debug("still hot; skipping", logger.KeyPath, path)
		return Hot, nil
	}
	if prev != nil {
		if stamp, ok := prev.Metadata.StoredAt(); ok && stamp.Add(policy.Period).After(now) {
			logger.Debug("recently backed up; skipping", logger.KeyPath, path)
			return Recent, nil
		}
	}

	blocks, err := fc.storeContent(ctx, path, policy)
	if err != nil {
		return Skipped, err
	}

	if prev != nil && slices.Equal(prev.Blocks, blocks) {
		logger.Debug("modification time updated but content unchanged; touching", logger.KeyPath, path)
		if err := fc.Cache.SetEntry(&storage.Entry{Path: path, Version: prev.Version, Metadata: md, Blocks: blocks}); err != nil {
			return Skipped, err
		}
		return Touched, nil
	}

	version := 1
	if prev != nil {
		version = prev.Version + 1
	}
	entry := &storage.Entry{Path: path, Version: version, Metadata: md, Blocks: blocks}
	if err := fc.Repo.SetEntry(ctx, entry); err != nil {
		return Skipped, err
	}
	if err := fc.Cache.RecordEntry(entry); err != nil {
		return Skipped, err
	}
	logger.Info("stored file", logger.KeyPath, path, logger.KeyVersion, version, logger.KeyCount, len(blocks))
	return Stored, nil
}

// storeContent reads path in policy.BlockSize chunks, stores every chunk and
// returns the ordered hash list.
func (fc *FileContext) storeContent(ctx context.Context, path string, policy config.Policy) ([]string, error) {
	if policy.BlockSize == 0 {
		return nil, fmt.Errorf("store %q: block size must be positive", path)
	}
	f, err := fc.FS.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	blocks := []string{}
	buf := make([]byte, int(policy.BlockSize))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			data := buf[:n]
			hash := fc.Blocks.Hash(data)
			if serr := fc.Blocks.StoreBlock(ctx, hash, data, policy.Compress, policy.Level); serr != nil {
				return nil, serr
			}
			blocks = append(blocks, hash)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return blocks, nil
		}
		if err != nil {
			return nil, &ReadError{Path: path, Err: err}
		}
	}
}
