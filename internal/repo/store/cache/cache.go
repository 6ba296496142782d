// Package cache is the local, rebuildable index of repository state: which
// blocks exist and how often they are referenced, the version history of
// every path, and the revision token shared with the repository.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack"

	"github.com/keshon/bvault/internal/logger"
	"github.com/keshon/bvault/internal/storage"
)

var (
	ErrUnknownBlock = errors.New("unknown block")
	ErrZeroRefCount = errors.New("block reference count already zero")
	ErrNoRevision   = errors.New("cache has no revision")
	ErrNoEntry      = errors.New("no cached entry")
	ErrNoCache      = errors.New("no local cache")
	ErrCorruptEntry = errors.New("corrupt cached entry")
)

// Cache is a badger backed index. It assumes a single writer process.
type Cache struct {
	db  *badger.DB
	dir string
}

// Exists reports whether dir holds a cache database.
func Exists(dir string) bool {
	if dir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(dir, manifestMarker))
	return err == nil
}

// Open opens an existing cache as-is. A cache without a revision token was
// never completed and fails with ErrNoRevision.
func Open(dir string) (*Cache, error) {
	if !Exists(dir) {
		return nil, fmt.Errorf("open cache %q: %w", dir, ErrNoCache)
	}
	c, err := openDB(dir)
	if err != nil {
		return nil, err
	}
	if _, err := c.GetRevision(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Remove deletes the cache directory.
func Remove(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove cache %q: %w", dir, err)
	}
	return nil
}

// openDB opens or creates the database. An empty dir keeps it in memory.
func openDB(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache %q: %w", dir, err)
	}
	return &Cache{db: db, dir: dir}, nil
}

// Dir returns the cache location, empty for an in-memory cache.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// HasBlock reports whether hash is known to exist in the repository.
func (c *Cache) HasBlock(hash string) (bool, error) {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(keyBlock(hash))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup block %q: %w", hash, err)
	}
	return true, nil
}

// AddBlock records hash as present with a zero reference count. Adding a
// known block leaves its count untouched.
func (c *Cache) AddBlock(hash string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(keyBlock(hash))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(keyBlock(hash), encodeCount(0))
	})
	if err != nil {
		return fmt.Errorf("add block %q: %w", hash, err)
	}
	return nil
}

func (c *Cache) IncBlockRef(hash string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return addRef(txn, hash, 1)
	})
	if err != nil {
		return fmt.Errorf("increment ref %q: %w", hash, err)
	}
	return nil
}

// DecBlockRef lowers the count of hash. Nothing in the backup path calls it;
// it exists for a future reclamation pass.
func (c *Cache) DecBlockRef(hash string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return addRef(txn, hash, -1)
	})
	if err != nil {
		return fmt.Errorf("decrement ref %q: %w", hash, err)
	}
	return nil
}

func addRef(txn *badger.Txn, hash string, delta int) error {
	item, err := txn.Get(keyBlock(hash))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrUnknownBlock
	}
	if err != nil {
		return err
	}
	var n uint64
	if err := item.Value(func(val []byte) error {
		n = decodeCount(val)
		return nil
	}); err != nil {
		return err
	}
	if delta < 0 {
		if n == 0 {
			return ErrZeroRefCount
		}
		n--
	} else {
		n++
	}
	return txn.Set(keyBlock(hash), encodeCount(n))
}

// RefCount returns the number of entry versions referencing hash.
func (c *Cache) RefCount(hash string) (uint64, error) {
	var n uint64
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyBlock(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUnknownBlock
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			n = decodeCount(val)
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("ref count %q: %w", hash, err)
	}
	return n, nil
}

// Blocks returns every known block hash, sorted.
func (c *Cache) Blocks() ([]string, error) {
	var hashes []string
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixBlock)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			hashes = append(hashes, strings.TrimPrefix(string(it.Item().Key()), prefixBlock))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return hashes, nil
}

// GetEntry returns the cached entry of path at version, or the latest
// version when version is 0. It returns ErrNoEntry when nothing is cached.
func (c *Cache) GetEntry(path string, version int) (*storage.Entry, error) {
	var entry *storage.Entry
	err := c.db.View(func(txn *badger.Txn) error {
		if version == 0 {
			versions, err := readVersions(txn, path)
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				return ErrNoEntry
			}
			version = versions[len(versions)-1]
		}
		item, err := txn.Get(keyVersion(path, version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoEntry
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data, err := openEntry(val)
			if err != nil {
				return err
			}
			md, blocks, err := storage.DecodeEntry(data)
			if err != nil {
				return err
			}
			entry = &storage.Entry{Path: path, Version: version, Metadata: md, Blocks: blocks}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get entry %q v%d: %w", path, version, err)
	}
	return entry, nil
}

// SetEntry upserts e and registers its version for the path.
func (c *Cache) SetEntry(e *storage.Entry) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return setEntry(txn, e)
	})
	if err != nil {
		return fmt.Errorf("set entry %q v%d: %w", e.Path, e.Version, err)
	}
	return nil
}

// RecordEntry increments the reference count of each distinct block of e
// and stores e, in one transaction. Every block must already be known.
func (c *Cache) RecordEntry(e *storage.Entry) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		for _, h := range distinct(e.Blocks) {
			if err := addRef(txn, h, 1); err != nil {
				return fmt.Errorf("block %q: %w", h, err)
			}
		}
		return setEntry(txn, e)
	})
	if err != nil {
		return fmt.Errorf("record entry %q v%d: %w", e.Path, e.Version, err)
	}
	return nil
}

func setEntry(txn *badger.Txn, e *storage.Entry) error {
	if e.Version < 1 {
		return fmt.Errorf("invalid version %d", e.Version)
	}
	data, err := storage.EncodeEntry(e.Metadata, e.Blocks)
	if err != nil {
		return err
	}
	if err := txn.Set(keyVersion(e.Path, e.Version), sealEntry(data)); err != nil {
		return err
	}

	versions, err := readVersions(txn, e.Path)
	if err != nil {
		return err
	}
	i := sort.SearchInts(versions, e.Version)
	if i < len(versions) && versions[i] == e.Version {
		return nil
	}
	versions = append(versions, 0)
	copy(versions[i+1:], versions[i:])
	versions[i] = e.Version
	buf, err := msgpack.Marshal(versions)
	if err != nil {
		return err
	}
	return txn.Set(keyIndex(e.Path), buf)
}

func readVersions(txn *badger.Txn, path string) ([]int, error) {
	item, err := txn.Get(keyIndex(path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var versions []int
	err = item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &versions)
	})
	return versions, err
}

// ListEntries returns every path with at least one cached version, sorted.
func (c *Cache) ListEntries() ([]string, error) {
	var paths []string
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixIndex)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			paths = append(paths, strings.TrimPrefix(string(it.Item().Key()), prefixIndex))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return paths, nil
}

// ListVersions returns the cached versions of path in ascending order.
func (c *Cache) ListVersions(path string) ([]int, error) {
	var versions []int
	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		versions, err = readVersions(txn, path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list versions %q: %w", path, err)
	}
	return versions, nil
}

func distinct(hashes []string) []string {
	seen := make(map[string]struct{}, len(hashes))
	out := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

type badgerLogger struct{}

func (badgerLogger) Errorf(f string, args ...interface{}) {
	logger.Error(strings.TrimSpace(fmt.Sprintf(f, args...)), "component", "badger")
}

func (badgerLogger) Warningf(f string, args ...interface{}) {
	logger.Warn(strings.TrimSpace(fmt.Sprintf(f, args...)), "component", "badger")
}

func (badgerLogger) Infof(f string, args ...interface{}) {
	logger.Debug(strings.TrimSpace(fmt.Sprintf(f, args...)), "component", "badger")
}

func (badgerLogger) Debugf(f string, args ...interface{}) {
	logger.Debug(strings.TrimSpace(fmt.Sprintf(f, args...)), "component", "badger")
}
