package init

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/keshon/bvault/internal/command"
	"github.com/keshon/bvault/internal/logger"
	"github.com/keshon/bvault/internal/middleware"
	"github.com/keshon/bvault/internal/storage"
	"github.com/keshon/bvault/internal/storage/backend"
)

type Command struct{}

func (c *Command) Name() string      { return "init" }
func (c *Command) Short() string     { return "i" }
func (c *Command) Aliases() []string { return []string{"initialize"} }
func (c *Command) Usage() string     { return "init [options]" }
func (c *Command) Brief() string     { return "Initialize a new repository" }
func (c *Command) Help() string {
	return `Initialize the repository configured under "storage".

Creates the storage container when the backend needs one, then writes the
repository configuration record and an initial revision. An existing
repository is left untouched.

Options:
      --hash=<name>   Hash function for block names: md5, sha1, sha256 or
                      blake3 (default: repository.hash from the configuration).

Usage:
  bvault init [options]

Examples:
  bvault init
  bvault init --hash sha256
  bvault --config ./bvault.yaml init`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.String("hash", "", "hash function for new repositories")
}

func (c *Command) Run(ctx *command.Context) error {
	hashName, _ := ctx.Flags.GetString("hash")
	if hashName == "" {
		hashName = ctx.Config.Repository.Hash
	}

	b, err := backend.New(ctx, ctx.Config.Storage, true)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", ctx.Config.Storage.Module, err)
	}
	r, created, err := storage.Init(ctx, b, hashName)
	if err != nil {
		_ = b.Close()
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger.Warn("closing storage", logger.KeyError, err)
		}
	}()

	cfg := r.Config()
	if created {
		fmt.Fprintf(ctx.Stdout, "Initialized empty repository in %s storage (hash %s)\n",
			ctx.Config.Storage.Module, cfg[storage.ConfigHash])
	} else {
		fmt.Fprintf(ctx.Stdout, "Repository already initialized in %s storage (hash %s, created %s)\n",
			ctx.Config.Storage.Module, cfg[storage.ConfigHash], cfg[storage.ConfigCreated])
	}
	return nil
}

func init() {
	command.RegisterCommand(
		command.ApplyMiddlewares(
			&Command{},
			middleware.WithConfig(),
			middleware.WithDebugArgsPrint(),
		),
	)
}
