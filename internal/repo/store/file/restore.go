package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"time"

	"github.com/keshon/bvault/internal/fs"
	"github.com/keshon/bvault/internal/logger"
	"github.com/keshon/bvault/internal/repo/store/cache"
	"github.com/keshon/bvault/internal/storage"
)

// ErrNoVersion means restore could not settle on a version to read: the
// cache has no history for the path and no version was requested, or
// neither the cache nor the repository holds the requested one.
var ErrNoVersion = errors.New("no version to restore")

// IssueKind classifies a defect met while restoring.
type IssueKind int

const (
	EntryMissing IssueKind = iota
	EntryMismatch
	BlockNotFound
	UnknownCodec
	DecompressFailed
	HashMismatch
	SizeMismatch
	MetadataApply
)

func (k IssueKind) String() string {
	switch k {
	case EntryMissing:
		return "entry missing"
	case EntryMismatch:
		return "entry mismatch"
	case BlockNotFound:
		return "block not found"
	case UnknownCodec:
		return "unknown codec"
	case DecompressFailed:
		return "decompress failed"
	case HashMismatch:
		return "hash mismatch"
	case SizeMismatch:
		return "size mismatch"
	case MetadataApply:
		return "metadata apply"
	default:
		return "unknown"
	}
}

// Issue is one defect. Block is the block index, or -1 when the issue is
// not about a single block.
type Issue struct {
	Kind   IssueKind
	Block  int
	Hash   string
	Detail string
}

func (i Issue) String() string {
	if i.Block < 0 {
		return fmt.Sprintf("%s: %s", i.Kind, i.Detail)
	}
	return fmt.Sprintf("%s: block %d (%s): %s", i.Kind, i.Block, i.Hash, i.Detail)
}

// RestoreResult reports a restore. Written counts the bytes produced,
// whether or not they went to a destination.
type RestoreResult struct {
	Path    string
	Version int
	Written int64
	Issues  []Issue
}

// OK reports whether the restore met no defect at all.
func (r *RestoreResult) OK() bool { return len(r.Issues) == 0 }

func (r *RestoreResult) flag(kind IssueKind, block int, hash, format string, args ...any) {
	issue := Issue{Kind: kind, Block: block, Hash: hash, Detail: fmt.Sprintf(format, args...)}
	r.Issues = append(r.Issues, issue)
	logger.Error("restore: "+issue.String(), logger.KeyPath, r.Path, logger.KeyVersion, r.Version)
}

// Restore rebuilds path at version into dest. Version 0 selects the latest
// version the cache knows; an empty dest only verifies. Once a version is
// chosen every defect is recorded in the result and the restore goes on,
// writing as much data as can be recovered. The returned error is reserved
// for ErrNoVersion and for failures writing dest.
func (fc *FileContext) Restore(ctx context.Context, path, dest string, version int) (*RestoreResult, error) {
	res := &RestoreResult{Path: path, Version: version}

	cached, err := fc.Cache.GetEntry(path, version)
	switch {
	case errors.Is(err, cache.ErrCorruptEntry):
		res.flag(EntryMismatch, -1, "", "ignoring cached entry: %v", err)
	case err != nil && !errors.Is(err, cache.ErrNoEntry):
		return nil, err
	}
	switch {
	case cached != nil:
		res.Version = cached.Version
	case version == 0:
		logger.Error("cache has no file; try a specific version", logger.KeyPath, path)
		return nil, fmt.Errorf("restore %q: %w", path, ErrNoVersion)
	default:
		res.flag(EntryMissing, -1, "", "cache has no version %d", version)
	}

	stored, err := fc.Repo.GetEntry(ctx, path, res.Version)
	if err != nil {
		stored = nil
		if errors.Is(err, storage.ErrNotFound) {
			res.flag(EntryMissing, -1, "", "storage has no version %d", res.Version)
		} else {
			res.flag(EntryMissing, -1, "", "storage entry unavailable: %v", err)
		}
	}

	entry := reconcile(res, cached, stored)
	if entry == nil {
		return res, fmt.Errorf("restore %q v%d: %w", path, res.Version, ErrNoVersion)
	}

	stamp := "unknown"
	if t, ok := entry.Metadata.StoredAt(); ok {
		stamp = t.Format(time.RFC3339)
	}
	logger.Info("restoring file", logger.KeyPath, path, logger.KeyVersion, res.Version,
		"stored", stamp, logger.KeyCount, len(entry.Blocks))

	out := newOutput(fc, dest)
	if err := out.open(); err != nil {
		return res, err
	}
	defer out.abort()

	if err := fc.restoreBlocks(ctx, res, entry, out); err != nil {
		return res, err
	}

	if entry.Metadata.Size == nil {
		logger.Warn("no file size recorded", logger.KeyPath, path)
	} else if res.Written != *entry.Metadata.Size {
		res.flag(SizeMismatch, -1, "", "expected %d bytes, restored %d", *entry.Metadata.Size, res.Written)
	}

	if err := out.commit(); err != nil {
		return res, err
	}
	if dest != "" {
		fc.applyMetadata(res, dest, entry.Metadata)
	}
	return res, nil
}

// reconcile picks the entry to restore from the cached and stored copies.
// The cached copy wins when both exist and disagree.
func reconcile(res *RestoreResult, cached, stored *storage.Entry) *storage.Entry {
	switch {
	case cached != nil && stored != nil:
		if !slices.Equal(cached.Blocks, stored.Blocks) {
			res.flag(EntryMismatch, -1, "", "stored blocks differ from cached blocks; using cached blocks")
		}
		if keys := cached.Metadata.Diff(stored.Metadata); len(keys) > 0 {
			for _, k := range keys {
				logger.Debug("metadata mismatch", logger.KeyKey, k,
					"cached", cached.Metadata.Field(k), "stored", stored.Metadata.Field(k))
			}
			res.flag(EntryMismatch, -1, "", "stored metadata differs from cached metadata in %v; using cached metadata", keys)
		}
		return cached
	case cached != nil:
		logger.Warn("continuing with cached data only", logger.KeyPath, res.Path)
		return cached
	case stored != nil:
		logger.Warn("continuing with stored data only", logger.KeyPath, res.Path)
		return stored
	default:
		return nil
	}
}

// zeroFillLimit bounds the gap written for a missing final block when no
// other block of the entry decoded.
const zeroFillLimit = 64 << 20

// finalGap returns the number of zero bytes that stand in for a missing
// final block: whatever the recorded size still implies, capped at the
// largest block seen.
func finalGap(md storage.Metadata, written int64, largest int) int64 {
	if md.Size == nil {
		return int64(largest)
	}
	rest := *md.Size - written
	if rest < 0 {
		return int64(largest)
	}
	limit := int64(largest)
	if limit == 0 {
		limit = zeroFillLimit
	}
	if rest > limit {
		logger.Warn("recorded size exceeds what the missing block can hold",
			logger.KeyExpected, *md.Size, "gap", limit)
		return limit
	}
	return rest
}

func (fc *FileContext) restoreBlocks(ctx context.Context, res *RestoreResult, entry *storage.Entry, out *output) error {
	lastSize, largest := 0, 0
	for i, hash := range entry.Blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Debug("restoring block", logger.KeyHash, hash, "index", i)

		r := fc.Blocks.ReadBlock(ctx, hash)
		if !r.Found {
			size := int64(lastSize)
			if i == len(entry.Blocks)-1 {
				size = finalGap(entry.Metadata, res.Written, max(largest, lastSize))
			}
			res.flag(BlockNotFound, i, hash, "%v; writing %d zero bytes", r.FetchErr, size)
			if err := out.zeros(res, size); err != nil {
				return err
			}
			continue
		}

		if !r.KnownCodec {
			res.flag(UnknownCodec, i, hash, "codec id %q; assuming no compression", r.CodecID)
		}
		if r.DecodeErr != nil {
			res.flag(DecompressFailed, i, hash, "codec id %q: %v; using raw payload", r.CodecID, r.DecodeErr)
		} else {
			if !r.HashOK {
				logger.Error("block failed hash check", logger.KeyHash, hash,
					logger.KeyExpected, hash, logger.KeyActual, r.Actual)
				res.flag(HashMismatch, i, hash, "calculated %s", r.Actual)
			}
			lastSize = len(r.Data)
			largest = max(largest, lastSize)
		}
		if err := out.write(res, r.Data); err != nil {
			return err
		}
	}
	return nil
}

// applyMetadata restores permission bits and modification time.
func (fc *FileContext) applyMetadata(res *RestoreResult, dest string, md storage.Metadata) {
	if md.Perm != nil {
		mode, _ := DecodePerm(*md.Perm)
		if err := fc.FS.Chmod(dest, mode); err != nil {
			res.flag(MetadataApply, -1, "", "chmod: %v", err)
		}
	}
	if mtime, ok := md.ModTime(); ok {
		if err := fc.FS.Chtimes(dest, mtime, mtime); err != nil {
			res.flag(MetadataApply, -1, "", "chtimes: %v", err)
		}
	}
}

// output writes restored content to a temp file beside dest and renames it
// into place on commit. With no dest every call is a no-op.
type output struct {
	fsys fs.FS
	dest string
	tmp  string
	f    io.WriteCloser
	w    *bufio.Writer
}

func newOutput(fc *FileContext, dest string) *output {
	return &output{fsys: fc.FS, dest: dest}
}

func (o *output) open() error {
	if o.dest == "" {
		return nil
	}
	f, tmp, err := o.fsys.CreateTempFile(filepath.Dir(o.dest), ".bvault-restore-*")
	if err != nil {
		return fmt.Errorf("open destination %q: %w", o.dest, err)
	}
	o.f, o.tmp = f, tmp
	o.w = bufio.NewWriterSize(f, 4*1024*1024)
	return nil
}

func (o *output) write(res *RestoreResult, data []byte) error {
	res.Written += int64(len(data))
	if o.w == nil {
		return nil
	}
	if _, err := o.w.Write(data); err != nil {
		return fmt.Errorf("write destination %q: %w", o.dest, err)
	}
	return nil
}

var zeroChunk = make([]byte, 64*1024)

// zeros writes n zero bytes in fixed-size chunks.
func (o *output) zeros(res *RestoreResult, n int64) error {
	for n > 0 {
		chunk := zeroChunk
		if n < int64(len(chunk)) {
			chunk = chunk[:n]
		}
		if err := o.write(res, chunk); err != nil {
			return err
		}
		n -= int64(len(chunk))
	}
	return nil
}

func (o *output) commit() error {
	if o.f == nil {
		return nil
	}
	if err := o.w.Flush(); err != nil {
		return fmt.Errorf("write destination %q: %w", o.dest, err)
	}
	if s, ok := o.f.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return fmt.Errorf("sync destination %q: %w", o.dest, err)
		}
	}
	if err := o.f.Close(); err != nil {
		return fmt.Errorf("close destination %q: %w", o.dest, err)
	}
	o.f = nil
	if err := o.fsys.Rename(o.tmp, o.dest); err != nil {
		_ = o.fsys.Remove(o.tmp)
		return fmt.Errorf("rename into %q: %w", o.dest, err)
	}
	o.tmp = ""
	return nil
}

// abort discards an uncommitted temp file.
func (o *output) abort() {
	if o.f != nil {
		_ = o.f.Close()
		o.f = nil
	}
	if o.tmp != "" {
		_ = o.fsys.Remove(o.tmp)
		o.tmp = ""
	}
}
