package command

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommand struct {
	name string
	subs []Command
	err  error

	ran     bool
	args    []string
	count   int
	globals Globals
}

func (c *fakeCommand) Name() string           { return c.name }
func (c *fakeCommand) Short() string          { return "" }
func (c *fakeCommand) Aliases() []string      { return []string{c.name + "-alias"} }
func (c *fakeCommand) Usage() string          { return c.name + " [options]" }
func (c *fakeCommand) Brief() string          { return "fake" }
func (c *fakeCommand) Help() string           { return "fake help" }
func (c *fakeCommand) Subcommands() []Command { return c.subs }
func (c *fakeCommand) Flags(fs *pflag.FlagSet) {
	fs.IntVarP(&c.count, "count", "n", 0, "")
}

func (c *fakeCommand) Run(ctx *Context) error {
	c.ran = true
	c.args = ctx.Args
	c.globals = *ctx.Global
	return c.err
}

func run(t *testing.T, tree *CommandTree, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := tree.Run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunParsesFlags(t *testing.T) {
	tree := NewTree()
	cmd := &fakeCommand{name: "scan"}
	tree.Register(cmd)

	code, _, stderr := run(t, tree, "--config", "/etc/b.yaml", "scan", "-n", "3", "/data", "--offline", "/more")
	require.Equal(t, 0, code, stderr)
	assert.True(t, cmd.ran)
	assert.Equal(t, []string{"/data", "/more"}, cmd.args)
	assert.Equal(t, 3, cmd.count)
	assert.Equal(t, Globals{ConfigPath: "/etc/b.yaml", Offline: true}, cmd.globals)
}

func TestRunResolvesAliasesAndSubcommands(t *testing.T) {
	tree := NewTree()
	sub := &fakeCommand{name: "blocks"}
	parent := &fakeCommand{name: "list", subs: []Command{sub}}
	tree.Register(parent)

	code, _, _ := run(t, tree, "list-alias", "blocks", "x")
	require.Equal(t, 0, code)
	assert.False(t, parent.ran)
	assert.True(t, sub.ran)
	assert.Equal(t, []string{"x"}, sub.args)
	assert.Len(t, tree.All(), 2)
}

func TestRunExitCodes(t *testing.T) {
	tree := NewTree()
	tree.Register(&fakeCommand{name: "fail", err: errors.New("boom")})

	code, _, stderr := run(t, tree, "fail")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "boom")

	code, _, stderr = run(t, tree, "nope")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "unknown command: nope")

	code, _, _ = run(t, tree, "fail", "--bogus")
	assert.Equal(t, 2, code)

	code, _, _ = run(t, tree, "--bogus")
	assert.Equal(t, 2, code)
}

func TestRunHelpFlag(t *testing.T) {
	tree := NewTree()
	cmd := &fakeCommand{name: "scan"}
	tree.Register(cmd)

	code, stdout, _ := run(t, tree, "scan", "--help")
	assert.Equal(t, 0, code)
	assert.False(t, cmd.ran)
	assert.Contains(t, stdout, "Usage: scan [options]")
	assert.Contains(t, stdout, "fake help")
}

func TestRunDefaultsToHelp(t *testing.T) {
	tree := NewTree()
	help := &fakeCommand{name: "help"}
	tree.Register(help)

	code, _, _ := run(t, tree)
	assert.Equal(t, 0, code)
	assert.True(t, help.ran)
}

func TestApplyMiddlewaresOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(cmd Command) Command {
			return &WrappedCommand{Command: cmd, Wrap: func(ctx *Context) error {
				order = append(order, name)
				return cmd.Run(ctx)
			}}
		}
	}
	cmd := &fakeCommand{name: "x"}
	wrapped := ApplyMiddlewares(cmd, mw("first"), mw("second"))

	require.NoError(t, wrapped.Run(&Context{Context: context.Background(), Global: &Globals{}}))
	assert.Equal(t, []string{"first", "second"}, order)
	assert.True(t, cmd.ran)
	assert.Equal(t, "x", wrapped.Name())
}
