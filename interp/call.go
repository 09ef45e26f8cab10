package interp

import (
	"context"
	"fmt"

	"github.com/vshlang/vsh/expand"
	"github.com/vshlang/vsh/syntax"
)

// runCallExprWithAssigns expands a simple command's words and, if it turns
// out to be a bare assignment (no words after expansion), applies the
// assignments persistently; otherwise they become a temporary environment
// for the duration of this one call (spec.md §4.4).
func (s *State) runCallExprWithAssigns(ctx context.Context, ce *syntax.CallExpr, assigns []*syntax.Assign) (*controlFlow, error) {
	fields, err := s.expandFields(ctx, ce.Args...)
	if err != nil {
		return s.handleExpandErr(err)
	}
	if len(fields) == 0 {
		for _, as := range assigns {
			if err := s.applyAssign(ctx, as); err != nil {
				return s.handleExpandErr(err)
			}
		}
		s.LastExit = 0
		return nil, nil
	}

	var saved map[string]expand.Variable
	if len(assigns) > 0 {
		saved = map[string]expand.Variable{}
		for _, as := range assigns {
			saved[as.Name] = s.Environ().Get(as.Name)
			if err := s.applyAssign(ctx, as); err != nil {
				return s.handleExpandErr(err)
			}
			s.Export(as.Name)
		}
	}
	cf, err := s.call(ctx, fields)
	if saved != nil {
		for name, old := range saved {
			s.Environ().Set(name, old)
		}
	}
	return cf, err
}

// call resolves argv[0] in the order spec.md §4.4 specifies: special
// builtins, then shell functions, then non-special builtins, then the
// command registry.
func (s *State) call(ctx context.Context, fields []string) (*controlFlow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := fields[0]
	if fn, ok := specialBuiltins[name]; ok {
		cf, code, err := fn(s, ctx, fields[1:])
		if err != nil {
			return nil, err
		}
		s.LastExit = code
		return cf, nil
	}
	if body, ok := s.Funcs[name]; ok {
		return s.callFunction(ctx, body, fields[1:])
	}
	if fn, ok := nonSpecialBuiltins[name]; ok {
		code, err := fn(s, ctx, fields[1:])
		if err != nil {
			return nil, err
		}
		s.LastExit = code
		return nil, nil
	}
	return s.callExternal(ctx, fields)
}

func (s *State) callFunction(ctx context.Context, body *syntax.Stmt, args []string) (*controlFlow, error) {
	if s.Limits.MaxCallDepth > 0 && s.callDepth >= s.Limits.MaxCallDepth {
		return nil, newLimitError("maximum call depth (%d) exceeded", s.Limits.MaxCallDepth)
	}
	s.callDepth++
	oldParams := s.Params
	s.Params = args
	s.pushScope()

	cf, err := s.runStmt(ctx, body)

	s.popScope()
	s.Params = oldParams
	s.callDepth--
	if err != nil {
		return nil, err
	}
	if cf != nil && cf.Kind == cfReturn {
		s.LastExit = cf.Code
		return nil, nil
	}
	return cf, nil
}

func (s *State) callExternal(ctx context.Context, fields []string) (*controlFlow, error) {
	if _, ok := s.Commands.Lookup(fields[0]); !ok {
		fmt.Fprintf(s.Stderr, "%s: command not found\n", fields[0])
		s.LastExit = 127
		return nil, nil
	}
	res, err := s.invokeCommand(ctx, fields, s.stdinOrEmpty())
	if err != nil {
		return nil, err
	}
	if res.Stdout != "" {
		fmt.Fprint(s.Stdout, res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprint(s.Stderr, res.Stderr)
	}
	s.LastExit = res.ExitCode
	return nil, nil
}
