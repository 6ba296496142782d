package scan

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/keshon/bvault/internal/command"
	"github.com/keshon/bvault/internal/middleware"
	"github.com/keshon/bvault/internal/progress"
	"github.com/keshon/bvault/internal/repo/store/file"
)

type Command struct{}

func (c *Command) Name() string      { return "scan" }
func (c *Command) Short() string     { return "s" }
func (c *Command) Aliases() []string { return []string{"backup"} }
func (c *Command) Usage() string     { return "scan [options] <dir>..." }
func (c *Command) Brief() string     { return "Back up changed files under the given directories" }
func (c *Command) Help() string {
	return `Walk each directory and store a new version of every file whose
content changed since its last backup.

Files are subject to the "defaults" and "rules" policies of the
configuration: skipped paths are pruned, files modified within their
cooldown are left for the next run, and files backed up within their
period are not re-read. The repository revision is advanced only when
every directory was scanned successfully.

Options:
  -q, --quiet   Do not show progress or the summary.

Usage:
  bvault scan [options] <dir>...

Examples:
  bvault scan ~/Documents
  bvault scan /etc /var/lib/app`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.BoolP("quiet", "q", false, "suppress progress and summary")
}

func (c *Command) Run(ctx *command.Context) error {
	if len(ctx.Args) == 0 {
		return errors.New("scan needs at least one directory")
	}
	quiet, _ := ctx.Flags.GetBool("quiet")

	roots := make([]string, 0, len(ctx.Args))
	for _, a := range ctx.Args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", a, err)
		}
		roots = append(roots, abs)
	}

	var p *progress.ProgressTracker
	if !quiet {
		p = progress.NewProgress(ctx.Stdout, 0, "Scanning", "files")
		ctx.Repo.Store.FileCtx.OnFile = func(string, file.Outcome, error) { p.Increment() }
	}

	stats, err := ctx.Repo.Scan(ctx, roots...)
	if p != nil {
		p.Finish()
	}
	if err != nil {
		return err
	}
	if !quiet {
		printStats(ctx, stats)
	}
	return nil
}

func printStats(ctx *command.Context, s file.ScanStats) {
	fmt.Fprintf(ctx.Stdout, "\n%d directories, %d files\n", s.Dirs, s.Files)
	fmt.Fprintf(ctx.Stdout, "  stored:    \033[32m%d\033[0m\n", s.Stored)
	fmt.Fprintf(ctx.Stdout, "  touched:   %d\n", s.Touched)
	fmt.Fprintf(ctx.Stdout, "  unchanged: %d\n", s.Unchanged)
	fmt.Fprintf(ctx.Stdout, "  hot:       %d\n", s.Hot)
	fmt.Fprintf(ctx.Stdout, "  recent:    %d\n", s.Recent)
	fmt.Fprintf(ctx.Stdout, "  skipped:   %d\n", s.Skipped)
	if s.Errors > 0 {
		fmt.Fprintf(ctx.Stdout, "  errors:    \033[31m%d\033[0m\n", s.Errors)
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
