package middleware

import (
	"github.com/keshon/bvault/internal/command"
	"github.com/keshon/bvault/internal/config"
	"github.com/keshon/bvault/internal/logger"
)

// WithConfig loads the configuration and sets up logging before the
// command runs. A --log-level flag overrides the configured level.
func WithConfig() command.Middleware {
	return func(cmd command.Command) command.Command {
		return &command.WrappedCommand{
			Command: cmd,
			Wrap: func(ctx *command.Context) error {
				var path string
				if ctx.Global != nil {
					path = ctx.Global.ConfigPath
				}
				cfg, err := config.Load(path)
				if err != nil {
					return err
				}
				if err := logger.Init(cfg.Logging); err != nil {
					return err
				}
				if ctx.Global != nil && ctx.Global.LogLevel != "" {
					logger.SetLevel(ctx.Global.LogLevel)
				}
				logger.Debug("configuration loaded", logger.KeyPath, cfg.File)
				ctx.Config = cfg
				return cmd.Run(ctx)
			},
		}
	}
}
