package middleware

import (
	"errors"
	"fmt"

	"github.com/keshon/bvault/internal/command"
	"github.com/keshon/bvault/internal/fs"
	"github.com/keshon/bvault/internal/logger"
	"github.com/keshon/bvault/internal/repo"
	"github.com/keshon/bvault/internal/repo/store/cache"
	"github.com/keshon/bvault/internal/storage"
	"github.com/keshon/bvault/internal/storage/backend"
)

// Mode selects how WithRepository connects.
type Mode int

const (
	// Online always connects to the repository and reconciles the index.
	Online Mode = iota
	// PreferOffline reads the local index as-is when one exists and only
	// connects to rebuild a missing one.
	PreferOffline
)

// WithRepository opens the repository described by the loaded configuration
// for the duration of the command and closes it afterwards. It must run
// after WithConfig.
func WithRepository(mode Mode) command.Middleware {
	return func(cmd command.Command) command.Command {
		return &command.WrappedCommand{
			Command: cmd,
			Wrap: func(ctx *command.Context) error {
				if ctx.Config == nil {
					return errors.New("repository middleware needs a loaded configuration")
				}
				cachePath := ctx.Config.Cache.Path
				offline := ctx.Global != nil && ctx.Global.Offline
				if mode == PreferOffline && cache.Exists(cachePath) {
					offline = true
				}

				var b storage.Backend
				if !offline {
					var err error
					b, err = backend.New(ctx, ctx.Config.Storage, false)
					if err != nil {
						return fmt.Errorf("connect to %s storage: %w", ctx.Config.Storage.Module, err)
					}
				}

				r, err := repo.Open(ctx, repo.Options{
					CachePath: cachePath,
					Backend:   b,
					FS:        fs.NewOSFS(),
					Rules:     ctx.Config.Resolver(),
				})
				if err != nil {
					return err
				}
				defer func() {
					if err := r.Close(); err != nil {
						logger.Warn("closing repository", logger.KeyError, err)
					}
				}()
				logger.Debug("repository open", logger.KeyState, r.State, logger.KeyBackend, ctx.Config.Storage.Module)

				ctx.Repo = r
				return cmd.Run(ctx)
			},
		}
	}
}
