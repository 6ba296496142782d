package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

// RunCLI is the main entrypoint for executing commands. It returns the
// process exit code.
func RunCLI(args []string) int {
	return Run(context.Background(), args, os.Stdout, os.Stderr)
}

// Run parses global flags, resolves the command, parses its flags and runs
// it. Global flags may appear before or after the command name.
func (t *CommandTree) Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	globals := &Globals{}
	gfs := pflag.NewFlagSet("bvault", pflag.ContinueOnError)
	gfs.SetOutput(stderr)
	gfs.SetInterspersed(false)
	bindGlobals(gfs, globals)
	if err := gfs.Parse(args); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	}

	rest := gfs.Args()
	if len(rest) == 0 {
		rest = []string{"help"}
	}
	node, remaining, err := t.Resolve(rest)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v: %s\n", err, rest[0])
		return 2
	}
	cmd := node.Cmd

	fs := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	fs.SetOutput(stderr)
	cmd.Flags(fs)
	fs.AddFlagSet(gfs)
	if err := fs.Parse(remaining); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(stdout, "Usage: %s\n\n%s\n", cmd.Usage(), cmd.Help())
			return 0
		}
		fmt.Fprintln(stderr, "Error parsing flags:", err)
		return 2
	}

	cctx := &Context{
		Context: ctx,
		Args:    fs.Args(),
		Flags:   fs,
		Global:  globals,
		Stdout:  stdout,
		Stderr:  stderr,
	}
	if err := cmd.Run(cctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func bindGlobals(fs *pflag.FlagSet, g *Globals) {
	fs.StringVarP(&g.ConfigPath, "config", "c", "", "configuration file")
	fs.StringVar(&g.LogLevel, "log-level", "", "override the configured log level")
	fs.BoolVar(&g.Offline, "offline", false, "use the local index without contacting the repository")
}
