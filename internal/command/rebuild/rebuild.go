package rebuild

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/keshon/bvault/internal/command"
	"github.com/keshon/bvault/internal/middleware"
)

type Command struct{}

func (c *Command) Name() string      { return "rebuild" }
func (c *Command) Short() string     { return "R" }
func (c *Command) Aliases() []string { return []string{"reindex"} }
func (c *Command) Usage() string     { return "rebuild" }
func (c *Command) Brief() string     { return "Rebuild the local index from the repository" }
func (c *Command) Help() string {
	return `Discard the local index and rebuild it from the repository contents.

The index is rebuilt automatically whenever the repository revision differs
from the local one; use this command when the index is suspected to be
damaged.

Usage:
  bvault rebuild`
}

func (c *Command) Subcommands() []command.Command { return nil }
func (c *Command) Flags(fs *pflag.FlagSet)        {}

func (c *Command) Run(ctx *command.Context) error {
	if err := ctx.Repo.Rebuild(ctx); err != nil {
		return err
	}
	files, err := ctx.Repo.Cache().ListEntries()
	if err != nil {
		return err
	}
	blocks, err := ctx.Repo.CountBlocks()
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Index rebuilt: %d files, %d blocks\n", len(files), blocks)
	return nil
}

func init() {
	command.RegisterCommand(
		command.ApplyMiddlewares(
			&Command{},
			middleware.WithConfig(),
			middleware.WithDebugArgsPrint(),
			middleware.WithRepository(middleware.Online),
		),
	)
}
