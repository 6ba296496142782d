package restore

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/keshon/bvault/internal/command"
	"github.com/keshon/bvault/internal/middleware"
	"github.com/keshon/bvault/internal/repo/store/file"
)

type Command struct{}

func (c *Command) Name() string      { return "restore" }
func (c *Command) Short() string     { return "r" }
func (c *Command) Aliases() []string { return []string{"get"} }
func (c *Command) Usage() string     { return "restore [options] <path> <destination> [<version>]" }
func (c *Command) Brief() string     { return "Restore a backed-up file" }
func (c *Command) Help() string {
	return `Rebuild a file from the repository.

<path> is the path as it was backed up; relative paths are made absolute.
Without <version> the latest version is restored. The restore writes as
much data as it can recover: missing blocks are replaced by zeros and
damaged blocks are written as read, and every defect is reported. The
command fails when any defect was found.

Options:
      --verify   Check the version without writing a destination. The
                 destination argument is omitted.

Usage:
  bvault restore [options] <path> <destination> [<version>]
  bvault restore --verify <path> [<version>]

Examples:
  bvault restore ~/notes.txt /tmp/notes.txt
  bvault restore ~/notes.txt /tmp/notes.v3.txt 3
  bvault restore --verify ~/notes.txt`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.Bool("verify", false, "verify only, write nothing")
}

func (c *Command) Run(ctx *command.Context) error {
	verifyOnly, _ := ctx.Flags.GetBool("verify")
	path, dest, version, err := parseArgs(ctx.Args, verifyOnly)
	if err != nil {
		return err
	}

	res, err := ctx.Repo.Restore(ctx, path, dest, version)
	if err != nil {
		return err
	}

	action := "Restored"
	if verifyOnly {
		action = "Verified"
	}
	fmt.Fprintf(ctx.Stdout, "%s %s version %d (%d bytes)\n", action, res.Path, res.Version, res.Written)
	if res.OK() {
		return nil
	}
	printIssues(ctx, res)
	return fmt.Errorf("%d problems found while restoring %s", len(res.Issues), res.Path)
}

func parseArgs(args []string, verifyOnly bool) (path, dest string, version int, err error) {
	want := 2
	if verifyOnly {
		want = 1
	}
	if len(args) < want || len(args) > want+1 {
		return "", "", 0, errors.New("usage: restore <path> <destination> [<version>]")
	}

	path, err = filepath.Abs(args[0])
	if err != nil {
		return "", "", 0, err
	}
	if !verifyOnly {
		if dest, err = filepath.Abs(args[1]); err != nil {
			return "", "", 0, err
		}
	}
	if len(args) > want {
		version, err = strconv.Atoi(args[want])
		if err != nil || version < 1 {
			return "", "", 0, fmt.Errorf("invalid version %q", args[want])
		}
	}
	return path, dest, version, nil
}

func printIssues(ctx *command.Context, res *file.RestoreResult) {
	fmt.Fprintln(ctx.Stdout, "\nProblems:")
	for _, is := range res.Issues {
		fmt.Fprintf(ctx.Stdout, "  \033[31m%s\033[0m\n", is)
	}
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
