// Package backend builds the storage.Backend selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/keshon/bvault/internal/config"
	"github.com/keshon/bvault/internal/fs"
	"github.com/keshon/bvault/internal/logger"
	"github.com/keshon/bvault/internal/storage"
	"github.com/keshon/bvault/internal/storage/dir"
	"github.com/keshon/bvault/internal/storage/ftp"
	"github.com/keshon/bvault/internal/storage/memory"
	"github.com/keshon/bvault/internal/storage/mongo"
	"github.com/keshon/bvault/internal/storage/postgres"
	"github.com/keshon/bvault/internal/storage/s3"
)

// Names lists the supported storage modules.
var Names = []string{"dir", "ftp", "s3", "postgres", "mongo", "memory"}

// New opens the backend named by cfg.Module. With create set, backends
// that need a container (directory, FTP folder) create it.
func New(ctx context.Context, cfg config.StorageConfig, create bool) (storage.Backend, error) {
	if cfg.Module == "" {
		return nil, fmt.Errorf("%w: no storage module specified", storage.ErrUnknownBackend)
	}
	logger.Debug("opening storage", logger.KeyBackend, cfg.Module)

	switch cfg.Module {
	case "dir":
		return open(dir.New(fs.NewOSFS(), cfg.Connection, create))
	case "ftp":
		return open(ftp.New(ctx, ftp.Config{
			URL:      cfg.Connection,
			Username: cfg.Username,
			Password: cfg.Password,
		}, create))
	case "s3":
		return open(s3.NewFromConfig(ctx, s3.Config{
			URL:            cfg.Connection,
			Username:       cfg.Username,
			Password:       cfg.Password,
			Region:         cfg.Region,
			Endpoint:       cfg.Endpoint,
			ForcePathStyle: cfg.ForcePathStyle,
		}))
	case "postgres":
		return open(postgres.New(ctx, postgres.Config{DSN: cfg.Connection, Table: cfg.Table}))
	case "mongo":
		return open(mongo.New(ctx, mongo.Config{
			URI:        cfg.Connection,
			Database:   cfg.Database,
			Collection: cfg.Collection,
		}))
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, cfg.Module)
	}
}

// open keeps a failed constructor's typed nil out of the interface.
func open[T storage.Backend](b T, err error) (storage.Backend, error) {
	if err != nil {
		return nil, err
	}
	return b, nil
}
