package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/keshon/bvault/internal/logger"
	"github.com/keshon/bvault/internal/storage"
)

// GetRevision returns the local revision token.
func (c *Cache) GetRevision() (string, error) {
	var rev string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyRevision))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		rev = string(val)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNoRevision
	}
	if err != nil {
		return "", fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

func (c *Cache) setRevision(rev string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyRevision), []byte(rev))
	})
	if err != nil {
		return fmt.Errorf("write revision: %w", err)
	}
	return nil
}

// UpdateRevision generates a fresh token and stores it, remotely first when
// repo is given. A crash between the two writes leaves the caches out of
// step, which the next open detects as a mismatch.
func (c *Cache) UpdateRevision(ctx context.Context, repo *storage.Repository) (string, error) {
	rev := uuid.NewString()
	if repo != nil {
		if err := repo.SetRevision(ctx, rev); err != nil {
			return "", err
		}
	}
	if err := c.setRevision(rev); err != nil {
		return "", err
	}
	logger.Debug("revision updated", logger.KeyState, rev)
	return rev, nil
}

// Rebuild discards any cache in dir and rehydrates a new one from repo.
// On failure the partial cache is removed. An empty dir builds the cache
// in memory.
func Rebuild(ctx context.Context, dir string, repo *storage.Repository) (*Cache, error) {
	if err := Remove(dir); err != nil {
		return nil, err
	}
	c, err := openDB(dir)
	if err != nil {
		return nil, err
	}
	if err := c.rehydrate(ctx, repo); err != nil {
		c.Close()
		if rmErr := Remove(dir); rmErr != nil {
			logger.Error("discarding partial cache failed", logger.KeyPath, dir, logger.KeyError, rmErr)
		}
		return nil, fmt.Errorf("rebuild cache: %w", err)
	}
	return c, nil
}

func (c *Cache) rehydrate(ctx context.Context, repo *storage.Repository) error {
	hashes, err := repo.ListBlocks(ctx)
	if err != nil {
		return err
	}
	wb := c.db.NewWriteBatch()
	for _, h := range hashes {
		if err := wb.Set(keyBlock(h), encodeCount(0)); err != nil {
			wb.Cancel()
			return fmt.Errorf("add block %q: %w", h, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("add blocks: %w", err)
	}
	logger.Info("registered blocks", logger.KeyCount, len(hashes))

	keys, err := repo.ListEntries(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, err := repo.GetEntry(ctx, k.Path, k.Version)
		if err != nil {
			return err
		}
		if err := c.recordRehydrated(e); err != nil {
			return err
		}
	}
	logger.Info("registered entries", logger.KeyCount, len(keys))

	rev, err := repo.GetRevision(ctx)
	if errors.Is(err, storage.ErrNoRevision) {
		_, err = c.UpdateRevision(ctx, repo)
		return err
	}
	if err != nil {
		return err
	}
	return c.setRevision(rev)
}

// recordRehydrated stores e, counting references only for blocks the
// repository actually holds.
func (c *Cache) recordRehydrated(e *storage.Entry) error {
	return c.db.Update(func(txn *badger.Txn) error {
		for _, h := range distinct(e.Blocks) {
			err := addRef(txn, h, 1)
			if errors.Is(err, ErrUnknownBlock) {
				logger.Error("entry references missing block",
					logger.KeyPath, e.Path, logger.KeyVersion, e.Version, logger.KeyHash, h)
				continue
			}
			if err != nil {
				return fmt.Errorf("entry %q v%d block %q: %w", e.Path, e.Version, h, err)
			}
		}
		if err := setEntry(txn, e); err != nil {
			return fmt.Errorf("entry %q v%d: %w", e.Path, e.Version, err)
		}
		return nil
	})
}
