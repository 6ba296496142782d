package command

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"github.com/keshon/bvault/internal/config"
	"github.com/keshon/bvault/internal/repo"
)

// Command represents a cli command
type Command interface {
	Name() string
	Short() string
	Aliases() []string
	Usage() string
	Brief() string
	Help() string
	Subcommands() []Command
	Flags(fs *pflag.FlagSet)
	Run(ctx *Context) error
}

// Globals are the flags accepted by every command.
type Globals struct {
	ConfigPath string
	LogLevel   string
	Offline    bool
}

// Context represents a cli context. Config and Repo are filled in by
// middlewares that need them.
type Context struct {
	context.Context
	Args   []string
	Flags  *pflag.FlagSet
	Global *Globals
	Stdout io.Writer
	Stderr io.Writer

	Config *config.Config
	Repo   *repo.Repository
}
