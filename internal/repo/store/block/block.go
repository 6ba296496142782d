package block

import (
	"context"
	"fmt"

	"github.com/keshon/bvault/internal/codec"
	"github.com/keshon/bvault/internal/logger"
)

// StoreBlock makes sure the repository holds the block hash. A block the
// cache already knows is a dedup hit and costs nothing. Otherwise data is
// compressed with codecName, or stored raw when compression does not make
// it smaller, and the cache learns about it only after the repository write
// succeeded. Reference counts are left to the caller.
func (bc *BlockContext) StoreBlock(ctx context.Context, hash string, data []byte, codecName string, level int) error {
	known, err := bc.Cache.HasBlock(hash)
	if err != nil {
		return err
	}
	if known {
		return nil
	}

	c, err := codec.ByName(codecName)
	if err != nil {
		return fmt.Errorf("store block %q: %w", hash, err)
	}
	payload, err := c.Compress(data, level)
	if err != nil {
		return fmt.Errorf("store block %q: compress with %s: %w", hash, c.Name(), err)
	}
	if len(payload) >= len(data) {
		logger.Debug("reverting to uncompressed data", logger.KeyHash, hash, logger.KeyCodec, c.Name())
		c, payload = codec.None, data
	}

	logger.Info("storing data block",
		logger.KeyHash, hash, logger.KeySize, len(data), "compressed", len(payload), logger.KeyCodec, c.Name())
	if err := bc.Repo.SetBlock(ctx, hash, c.ID(), payload); err != nil {
		return err
	}
	return bc.Cache.AddBlock(hash)
}
