package list

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/keshon/bvault/internal/command"
	"github.com/keshon/bvault/internal/middleware"
	"github.com/keshon/bvault/internal/repo"
)

type Command struct{}

func (c *Command) Name() string      { return "list" }
func (c *Command) Short() string     { return "l" }
func (c *Command) Aliases() []string { return []string{"ls"} }
func (c *Command) Usage() string     { return "list [options] [<path>...]" }
func (c *Command) Brief() string     { return "List backed-up files and their versions" }
func (c *Command) Help() string {
	return `List every backed-up path with its versions, or only the given paths.

The listing is read from the local index; the repository is contacted only
when no index exists yet.

Options:
      --blocks   List known blocks with their reference counts instead.

Usage:
  bvault list [options] [<path>...]

Examples:
  bvault list
  bvault list ~/notes.txt
  bvault list --blocks`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.Bool("blocks", false, "list blocks instead of files")
}

func (c *Command) Run(ctx *command.Context) error {
	if blocks, _ := ctx.Flags.GetBool("blocks"); blocks {
		infos, err := ctx.Repo.ListBlocks()
		if err != nil {
			return err
		}
		printBlocks(ctx.Stdout, infos)
		return nil
	}

	var files []repo.FileHistory
	if len(ctx.Args) == 0 {
		var err error
		if files, err = ctx.Repo.ListFiles(); err != nil {
			return err
		}
	} else {
		for _, a := range ctx.Args {
			p, err := filepath.Abs(a)
			if err != nil {
				return err
			}
			h, err := ctx.Repo.History(p)
			if err != nil {
				return err
			}
			files = append(files, h)
		}
	}
	printFiles(ctx.Stdout, files)
	return nil
}

func printFiles(w io.Writer, files []repo.FileHistory) {
	for _, f := range files {
		fmt.Fprintln(w, f.Path)
		if len(f.Versions) == 0 {
			fmt.Fprintln(w, "  (no versions)")
		}
		for _, e := range f.Versions {
			fmt.Fprintf(w, "  version %d:\n", e.Version)
			fmt.Fprintf(w, "    blocks:             %d\n", len(e.Blocks))
			if t, ok := e.Metadata.StoredAt(); ok {
				fmt.Fprintf(w, "    stored at:          %s\n", t.Local().Format(time.ANSIC))
			}
			if t, ok := e.Metadata.ModTime(); ok {
				fmt.Fprintf(w, "    modification time:  %s\n", t.Local().Format(time.ANSIC))
			}
		}
		fmt.Fprintln(w)
	}
}

func printBlocks(w io.Writer, infos []repo.BlockInfo) {
	for _, b := range infos {
		fmt.Fprintf(w, "%s  refs: %d  files: %v\n", b.Hash, b.Refs, b.Paths)
	}
	fmt.Fprintf(w, "\n%d blocks\n", len(infos))
}

func init() {
	command.RegisterCommand(
		command.ApplyMiddlewares(
			&Command{},
			middleware.WithConfig(),
			middleware.WithDebugArgsPrint(),
			middleware.WithRepository(middleware.PreferOffline),
		),
	)
}
