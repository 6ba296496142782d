package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keshon/bvault/internal/hashing"
	"github.com/keshon/bvault/internal/logger"
)

// Repository layers the block, entry, config and revision conventions over
// a raw Backend.
type Repository struct {
	backend Backend
	config  map[string]string
	hasher  *hashing.Hasher
}

// DefaultConfig returns the configuration record of a fresh repository.
func DefaultConfig() map[string]string {
	return map[string]string{
		ConfigVersion: FormatVersion,
		ConfigHash:    hashing.Default,
	}
}

// Init writes a configuration record and an initial revision unless the
// backend already holds a repository. It reports whether one was created.
func Init(ctx context.Context, b Backend, hashName string) (*Repository, bool, error) {
	_, err := b.Retrieve(ctx, ConfigKey)
	switch {
	case err == nil:
		r, err := OpenRepository(ctx, b)
		return r, false, err
	case !errors.Is(err, ErrNotFound):
		return nil, false, fmt.Errorf("read %s: %w", ConfigKey, err)
	}

	if hashName == "" {
		hashName = hashing.Default
	}
	if _, err := hashing.New(hashName); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidRepository, err)
	}
	cfg := DefaultConfig()
	cfg[ConfigHash] = hashName
	cfg[ConfigCreated] = time.Now().UTC().Format(time.RFC3339)
	if err := b.Store(ctx, ConfigKey, EncodeConfig(cfg)); err != nil {
		return nil, false, fmt.Errorf("write %s: %w", ConfigKey, err)
	}
	if err := b.Store(ctx, RevisionKey, []byte(uuid.NewString())); err != nil {
		return nil, false, fmt.Errorf("write %s: %w", RevisionKey, err)
	}
	logger.Info("repository initialized", logger.KeyHash, hashName)

	r, err := OpenRepository(ctx, b)
	return r, true, err
}

// OpenRepository loads and validates the configuration record of an
// existing repository.
func OpenRepository(ctx context.Context, b Backend) (*Repository, error) {
	data, err := b.Retrieve(ctx, ConfigKey)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: no configuration record", ErrInvalidRepository)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ConfigKey, err)
	}

	cfg := DefaultConfig()
	for k, v := range DecodeConfig(data) {
		cfg[k] = v
	}
	if cfg[ConfigVersion] != FormatVersion {
		return nil, fmt.Errorf("%w: format version %q, want %q", ErrInvalidRepository, cfg[ConfigVersion], FormatVersion)
	}
	h, err := hashing.New(cfg[ConfigHash])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRepository, err)
	}
	return &Repository{backend: b, config: cfg, hasher: h}, nil
}

func (r *Repository) Backend() Backend        { return r.backend }
func (r *Repository) Hasher() *hashing.Hasher { return r.hasher }
func (r *Repository) Close() error            { return r.backend.Close() }

// Config returns a copy of the loaded configuration record.
func (r *Repository) Config() map[string]string {
	out := make(map[string]string, len(r.config))
	for k, v := range r.config {
		out[k] = v
	}
	return out
}

// SetConfig merges values into the configuration record and persists it.
func (r *Repository) SetConfig(ctx context.Context, values map[string]string) error {
	next := r.Config()
	for k, v := range values {
		next[k] = v
	}
	if err := r.backend.Store(ctx, ConfigKey, EncodeConfig(next)); err != nil {
		return fmt.Errorf("write %s: %w", ConfigKey, err)
	}
	r.config = next
	return nil
}

// ListBlocks returns the hash of every stored block.
func (r *Repository) ListBlocks(ctx context.Context) ([]string, error) {
	keys, err := r.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	var hashes []string
	for _, k := range keys {
		if h, ok := ParseBlockKey(k); ok {
			hashes = append(hashes, h)
		}
	}
	return hashes, nil
}

// GetBlock returns the codec id and payload of a stored block.
func (r *Repository) GetBlock(ctx context.Context, hash string) (byte, []byte, error) {
	data, err := r.backend.Retrieve(ctx, BlockKey(hash))
	if err != nil {
		return 0, nil, fmt.Errorf("get block %q: %w", hash, err)
	}
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("get block %q: empty value", hash)
	}
	return data[0], data[1:], nil
}

func (r *Repository) SetBlock(ctx context.Context, hash string, id byte, payload []byte) error {
	if hash == "" {
		return fmt.Errorf("set block: %w: empty hash", ErrInvalidKey)
	}
	value := make([]byte, 0, len(payload)+1)
	value = append(value, id)
	value = append(value, payload...)
	if err := r.backend.Store(ctx, BlockKey(hash), value); err != nil {
		return fmt.Errorf("set block %q: %w", hash, err)
	}
	return nil
}

func (r *Repository) DelBlock(ctx context.Context, hash string) error {
	if err := r.backend.Delete(ctx, BlockKey(hash)); err != nil {
		return fmt.Errorf("delete block %q: %w", hash, err)
	}
	return nil
}

// ListEntries returns every stored (path, version) pair. Keys in the entry
// namespace that do not parse are skipped.
func (r *Repository) ListEntries(ctx context.Context) ([]EntryKey, error) {
	keys, err := r.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	var out []EntryKey
	for _, k := range keys {
		if len(k) == 0 || k[:1] != entryPrefix {
			continue
		}
		ek, err := ParseEntryKey(k)
		if err != nil {
			logger.Debug("skipping malformed entry key", logger.KeyKey, k, logger.KeyError, err)
			continue
		}
		out = append(out, ek)
	}
	return out, nil
}

func (r *Repository) GetEntry(ctx context.Context, path string, version int) (*Entry, error) {
	data, err := r.backend.Retrieve(ctx, EntryStorageKey(path, version))
	if err != nil {
		return nil, fmt.Errorf("get entry %q v%d: %w", path, version, err)
	}
	md, blocks, err := DecodeEntry(data)
	if err != nil {
		return nil, fmt.Errorf("get entry %q v%d: %w", path, version, err)
	}
	return &Entry{Path: path, Version: version, Metadata: md, Blocks: blocks}, nil
}

func (r *Repository) SetEntry(ctx context.Context, e *Entry) error {
	data, err := EncodeEntry(e.Metadata, e.Blocks)
	if err != nil {
		return err
	}
	if err := r.backend.Store(ctx, EntryStorageKey(e.Path, e.Version), data); err != nil {
		return fmt.Errorf("set entry %q v%d: %w", e.Path, e.Version, err)
	}
	return nil
}

func (r *Repository) DelEntry(ctx context.Context, path string, version int) error {
	if err := r.backend.Delete(ctx, EntryStorageKey(path, version)); err != nil {
		return fmt.Errorf("delete entry %q v%d: %w", path, version, err)
	}
	return nil
}

// GetRevision returns the stored revision token, or ErrNoRevision.
func (r *Repository) GetRevision(ctx context.Context) (string, error) {
	data, err := r.backend.Retrieve(ctx, RevisionKey)
	if errors.Is(err, ErrNotFound) {
		return "", ErrNoRevision
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", RevisionKey, err)
	}
	return string(data), nil
}

func (r *Repository) SetRevision(ctx context.Context, token string) error {
	if err := r.backend.Store(ctx, RevisionKey, []byte(token)); err != nil {
		return fmt.Errorf("write %s: %w", RevisionKey, err)
	}
	return nil
}
