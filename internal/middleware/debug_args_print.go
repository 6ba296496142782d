package middleware

import (
	"github.com/keshon/bvault/internal/command"
	"github.com/keshon/bvault/internal/logger"
)

// WithDebugArgsPrint logs the command line of every run at debug level.
func WithDebugArgsPrint() command.Middleware {
	return func(cmd command.Command) command.Command {
		return &command.WrappedCommand{
			Command: cmd,
			Wrap: func(ctx *command.Context) error {
				logger.Debug("running command", "command", cmd.Name(), "args", ctx.Args)
				return cmd.Run(ctx)
			},
		}
	}
}
