// Package command defines the contract external commands are resolved and
// invoked through (spec.md §6), plus a registry and a handful of pure
// reference commands used to exercise that contract end to end.
package command

import (
	"context"
	"io"

	"github.com/vshlang/vsh/vfs"
)

// Result is what every command handler returns: there is no side channel.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Env is the read/writable environment view a handler gets: reads see the
// calling shell's exported variables, writes (via Set) behave like `export`.
type Env interface {
	Get(name string) (string, bool)
	Set(name, value string)
	Keys() []string
}

// Context is passed to every Command invocation. It never exposes the
// interpreter's internal state directly -- only the filesystem, environment,
// stdin, a way to invoke other registered commands, and optionally a
// fetcher for the (normally disabled) network layer.
type Context struct {
	Fs            vfs.FS
	Cwd           string
	Env           Env
	Stdin         io.Reader
	InvokeCommand func(ctx context.Context, argv []string, stdin io.Reader) (Result, error)
	Fetch         func(ctx context.Context, url string) (io.ReadCloser, error)
}

// Command is a single external command handler: pure with respect to the
// interpreter's state, communicating only through its Result and through
// whatever it does to ctx.Fs.
type Command interface {
	Run(ctx context.Context, cctx Context, argv []string) (Result, error)
}

// CommandFunc adapts a plain function to the Command interface.
type CommandFunc func(ctx context.Context, cctx Context, argv []string) (Result, error)

func (f CommandFunc) Run(ctx context.Context, cctx Context, argv []string) (Result, error) {
	return f(ctx, cctx, argv)
}

// Registry resolves a command name (argv[0]) to a handler. Unlike shell
// builtins, everything here is "external" from the interpreter's point of
// view: none of it can change shell state, only stdout/stderr/exit code and
// the filesystem.
type Registry struct {
	cmds map[string]Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{cmds: map[string]Command{}}
}

// Register adds or replaces the handler for name.
func (r *Registry) Register(name string, cmd Command) {
	r.cmds[name] = cmd
}

// Lookup returns the handler for name, if registered.
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.cmds[name]
	return c, ok
}

// Names lists every registered command name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.cmds))
	for n := range r.cmds {
		names = append(names, n)
	}
	return names
}
