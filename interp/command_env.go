package interp

import (
	"context"
	"io"
	"strings"

	"github.com/vshlang/vsh/command"
	"github.com/vshlang/vsh/expand"
)

// shellCommandEnv is the command.Env a registered external command sees:
// only exported variables, the way a real process only inherits its
// parent's environment rather than every shell variable.
type shellCommandEnv struct{ s *State }

func (e *shellCommandEnv) Get(name string) (string, bool) {
	vr := e.s.Environ().Get(name)
	if vr.Exported && vr.Set {
		return vr.String(), true
	}
	return "", false
}

func (e *shellCommandEnv) Set(name, value string) {
	e.s.Environ().Set(name, expand.Variable{Set: true, Exported: true, Kind: expand.String, Str: value})
}

func (e *shellCommandEnv) Keys() []string {
	var keys []string
	e.s.Environ().Each(func(name string, vr expand.Variable) bool {
		if vr.Exported && vr.Set {
			keys = append(keys, name)
		}
		return true
	})
	return keys
}

func (s *State) stdinOrEmpty() io.Reader {
	if s.Stdin != nil {
		return s.Stdin
	}
	return strings.NewReader("")
}

// invokeCommand lets one registered command call another through
// command.Context.InvokeCommand, without exposing interpreter state.
func (s *State) invokeCommand(ctx context.Context, argv []string, stdin io.Reader) (command.Result, error) {
	if len(argv) == 0 {
		return command.Result{ExitCode: 127, Stderr: "invokeCommand: empty argv\n"}, nil
	}
	cmd, ok := s.Commands.Lookup(argv[0])
	if !ok {
		return command.Result{ExitCode: 127, Stderr: argv[0] + ": command not found\n"}, nil
	}
	cctx := command.Context{
		Fs:            s.FS,
		Cwd:           s.CWD,
		Env:           &shellCommandEnv{s: s},
		Stdin:         stdin,
		InvokeCommand: s.invokeCommand,
		Fetch:         s.Fetch,
	}
	return cmd.Run(ctx, cctx, argv)
}
