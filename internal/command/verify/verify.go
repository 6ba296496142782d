package verify

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/keshon/bvault/internal/command"
	"github.com/keshon/bvault/internal/middleware"
	"github.com/keshon/bvault/internal/repo"
	"github.com/keshon/bvault/internal/repo/store/block"
)

const lineWidth = 100

type Command struct{}

func (c *Command) Name() string      { return "verify" }
func (c *Command) Short() string     { return "V" }
func (c *Command) Aliases() []string { return []string{"check"} }
func (c *Command) Usage() string     { return "verify [options]" }
func (c *Command) Brief() string     { return "Verify every block in the repository" }
func (c *Command) Help() string {
	return `Read every block the index knows, decode it and compare its content
hash with its name. Defective blocks are listed with the files that
reference them. The command fails when any block is defective.

Options:
  -j, --workers=<n>   Number of blocks checked in parallel (default: CPU count).

Usage:
  bvault verify [options]`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.IntP("workers", "j", 0, "parallel block checks")
}

func (c *Command) Run(ctx *command.Context) error {
	workers, _ := ctx.Flags.GetInt("workers")

	start := time.Now()
	checks, err := ctx.Repo.VerifyBlocks(ctx, workers)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Fprint(ctx.Stdout, "\033[90mLegend:\033[0m \033[32m█\033[0m OK   \033[31m█\033[0m Missing   \033[33m█\033[0m Damaged   \033[35m█\033[0m Unreadable\n\n")
	counts := printGrid(ctx.Stdout, checks)

	fmt.Fprintf(ctx.Stdout, "\nScan complete in %s.\n", time.Since(start).Truncate(time.Millisecond))
	fmt.Fprintf(ctx.Stdout, "Blocks OK: \033[32m%d\033[0m   Missing: \033[31m%d\033[0m   Damaged: \033[33m%d\033[0m   Unreadable: \033[35m%d\033[0m\n",
		counts[block.OK], counts[block.Missing], counts[block.Damaged], counts[block.UnknownCodec]+counts[block.Undecodable])

	bad := repo.Damaged(checks)
	if len(bad) == 0 {
		return nil
	}
	fmt.Fprintln(ctx.Stdout, "\nDefective blocks:")
	for _, bc := range bad {
		fmt.Fprintf(ctx.Stdout, "%s%s\033[0m  %s  files: %v\n", color(bc.Status), bc.Hash, bc.Status, bc.Paths)
	}
	return fmt.Errorf("%d of %d blocks are defective", len(bad), len(checks))
}

func printGrid(w io.Writer, checks []block.BlockCheck) map[block.BlockStatus]int {
	counts := make(map[block.BlockStatus]int)
	for i, bc := range checks {
		counts[bc.Status]++
		fmt.Fprint(w, color(bc.Status)+"█\033[0m")
		if (i+1)%lineWidth == 0 {
			fmt.Fprintf(w, "  %d\n", i+1)
		}
	}
	if len(checks)%lineWidth != 0 {
		fmt.Fprintf(w, "  %d\n", len(checks))
	}
	return counts
}

func color(s block.BlockStatus) string {
	switch s {
	case block.OK:
		return "\033[32m"
	case block.Missing:
		return "\033[31m"
	case block.Damaged:
		return "\033[33m"
	default:
		return "\033[35m"
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
