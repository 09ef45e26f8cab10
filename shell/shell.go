// Package shell is a small convenience façade over syntax+expand+interp for
// embedders that don't need the full State/Option surface: parse a string,
// expand it, or run it against a filesystem and command registry in one call.
package shell

import (
	"context"
	"fmt"
	"strings"

	"github.com/vshlang/vsh/command"
	"github.com/vshlang/vsh/expand"
	"github.com/vshlang/vsh/interp"
	"github.com/vshlang/vsh/syntax"
	"github.com/vshlang/vsh/vfs"
)

// readOnlyEnviron adapts a plain lookup function to expand.WriteEnviron:
// Expand and Fields only ever read variables, but expand.Config requires a
// WriteEnviron since arithmetic expansions like $((x=1)) can assign.
type readOnlyEnviron struct{ expand.Environ }

func (readOnlyEnviron) Set(name string, vr expand.Variable) error {
	return fmt.Errorf("%s: cannot assign in this expansion context", name)
}

// Expand performs word expansion on s (parameter, arithmetic, brace, tilde),
// joining the resulting fields back into a single string. No command or
// process substitution is attempted: the sandbox has nothing to run them
// against without a filesystem and a command registry. $(...) is reported
// as an expansion error; <(...) and >(...) expand to the empty string,
// since no process-substitution handler is configured.
//
// If env is nil, variables are treated as always unset.
func Expand(s string, env func(string) string) (string, error) {
	p := syntax.NewParser()
	word, err := p.Document(strings.NewReader(s))
	if err != nil {
		return "", err
	}
	if env == nil {
		env = func(string) string { return "" }
	}
	var ferr error
	cfg := &expand.Config{
		Env: readOnlyEnviron{expand.FuncEnviron(env)},
		FS:  vfs.NewMemFS(),
		CmdSubst: func(ctx context.Context, stmts []*syntax.Stmt) (string, int, error) {
			return "", 0, fmt.Errorf("shell.Expand: command substitution requires shell.Run")
		},
		OnError: func(e error) {
			if ferr == nil {
				ferr = e
			}
		},
	}
	fields := cfg.Fields(context.Background(), word)
	return strings.Join(fields, ""), ferr
}

// Fields is like Expand but returns the individual fields produced by word
// splitting, rather than joining them back into one string. s is parsed as a
// single simple command line; its words (not the command name's resolution)
// are what gets expanded.
func Fields(s string, env func(string) string) ([]string, error) {
	p := syntax.NewParser()
	file, err := p.ParseString(s, "shell.Fields")
	if err != nil {
		return nil, err
	}
	var words []*syntax.Word
	for _, stmt := range file.Stmts {
		call, ok := stmt.Cmd.(*syntax.CallExpr)
		if !ok {
			continue
		}
		words = append(words, call.Args...)
	}
	if env == nil {
		env = func(string) string { return "" }
	}
	var ferr error
	cfg := &expand.Config{
		Env: readOnlyEnviron{expand.FuncEnviron(env)},
		FS:  vfs.NewMemFS(),
		OnError: func(e error) {
			if ferr == nil {
				ferr = e
			}
		},
	}
	return cfg.Fields(context.Background(), words...), ferr
}

// Run parses and executes src against fs and reg, starting in cwd, returning
// the declared variables and the program's exit status. It is the one-call
// entry point for an embedder that just wants "run this script against my
// sandbox" without touching interp.State directly.
func Run(ctx context.Context, src, cwd string, fs vfs.FS, reg *command.Registry, opts ...interp.Option) (map[string]expand.Variable, interp.ExecResult, error) {
	p := syntax.NewParser()
	file, err := p.ParseString(src, "shell.Run")
	if err != nil {
		return nil, interp.ExecResult{}, fmt.Errorf("could not parse: %w", err)
	}
	return RunFile(ctx, file, cwd, fs, reg, opts...)
}

// RunFile is Run for an already-parsed program, the way RunScript accepts
// anything interp.State.Run does.
func RunFile(ctx context.Context, file *syntax.File, cwd string, fs vfs.FS, reg *command.Registry, opts ...interp.Option) (map[string]expand.Variable, interp.ExecResult, error) {
	if reg == nil {
		reg = command.NewRegistry()
	}
	s := interp.New(fs, reg, cwd, opts...)
	res, err := s.Run(ctx, file)
	return s.Vars(), res, err
}

// RunScript reads path from fs, then behaves like Run.
func RunScript(ctx context.Context, path, cwd string, fs vfs.FS, reg *command.Registry, opts ...interp.Option) (map[string]expand.Variable, interp.ExecResult, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, interp.ExecResult{}, fmt.Errorf("could not open: %w", err)
	}
	p := syntax.NewParser()
	file, err := p.ParseString(string(data), path)
	if err != nil {
		return nil, interp.ExecResult{}, fmt.Errorf("could not parse: %w", err)
	}
	return RunFile(ctx, file, cwd, fs, reg, opts...)
}
