package interp

import (
	"bytes"
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/vshlang/vsh/expand"
	"github.com/vshlang/vsh/syntax"
)

// expandConfig builds an *expand.Config bound to the current scope, so every
// word expansion sees this exact moment of shell state.
func (s *State) expandConfig(ctx context.Context) *expand.Config {
	cfg := &expand.Config{
		Env:        s.Environ(),
		FS:         s.FS,
		CWD:        s.CWD,
		NoGlob:     s.Opts.NoGlob,
		NullGlob:   s.Opts.NullGlob,
		FailGlob:   s.Opts.FailGlob,
		DotGlob:    s.Opts.DotGlob,
		GlobStar:   s.Opts.GlobStar,
		NoCase:     s.Opts.NoCaseMatch,
		NoUnset:    s.Opts.NoUnset,
		LookupUser: expand.DefaultLookupUser,
		CmdSubst: func(ctx context.Context, stmts []*syntax.Stmt) (string, int, error) {
			return s.runCmdSubst(ctx, stmts)
		},
		ProcSubst: func(ctx context.Context, ps *syntax.ProcSubst) (string, error) {
			return s.runProcSubst(ctx, ps)
		},
		GlobOp: s.checkGlobOp,
	}
	return cfg
}

// runCmdSubst evaluates $(...) / `...` in a forked, discarded copy of shell
// state, capturing stdout (spec.md §4.3 step 4).
func (s *State) runCmdSubst(ctx context.Context, stmts []*syntax.Stmt) (string, int, error) {
	if s.Limits.MaxSubstitutionDepth > 0 && s.substDepth >= s.Limits.MaxSubstitutionDepth {
		return "", 0, newLimitError("maximum substitution depth (%d) exceeded", s.Limits.MaxSubstitutionDepth)
	}
	sub := s.fork()
	sub.substDepth = s.substDepth + 1
	var buf bytes.Buffer
	sub.Stdout = &buf
	cf, err := sub.runStmts(ctx, stmts)
	if err != nil {
		return "", 0, err
	}
	exit := sub.LastExit
	if cf != nil && cf.Kind == cfExit {
		exit = cf.Code
	}
	return buf.String(), exit, nil
}

// runProcSubst evaluates <(...) / >(...) against a synthetic, read-once (or
// write-collected) virtual file and returns its path.
func (s *State) runProcSubst(ctx context.Context, ps *syntax.ProcSubst) (string, error) {
	path := procSubstPath(s)
	if ps.In {
		sub := s.fork()
		var buf bytes.Buffer
		sub.Stdout = &buf
		if _, err := sub.runStmts(ctx, ps.Stmts); err != nil {
			return "", err
		}
		if err := s.FS.WriteFile(path, buf.Bytes()); err != nil {
			return "", err
		}
		return path, nil
	}
	// >(...): the writer side is collected after the whole command line
	// finishes, since this sandbox has no live pipe; the consuming command
	// must read it as an ordinary (eagerly materialized) file.
	sub := s.fork()
	data, _ := s.FS.ReadFile(path)
	sub.Stdin = bytes.NewReader(data)
	if _, err := sub.runStmts(ctx, ps.Stmts); err != nil {
		return "", err
	}
	return path, nil
}

// procSubstPath synthesizes a unique virtual path for one <(...) / >(...)
// substitution. A ulid sorts lexically by creation time and never collides
// within a process, unlike a counter reset across forked states.
func procSubstPath(s *State) string {
	return fmt.Sprintf("/tmp/.vsh-procsubst-%s", ulid.Make().String())
}

// recoverExpandErr turns a panicking *expand.Error (unset variable with
// NoUnset, ${var:?msg}, a Config.fail call with no OnError set) into an
// ordinary Go error, the way a single word's expansion is meant to abort
// without unwinding the rest of the interpreter.
func recoverExpandErr(err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(*expand.Error); ok {
			if e.Limit {
				*err = newLimitError("%s", e.Message)
				return
			}
			*err = e
			return
		}
		panic(r)
	}
}

// expandFields runs the word-splitting+globbing pipeline (spec.md §4.3) over
// words, surfacing any abort-worthy expansion error (unset var, bad
// arithmetic, ${var:?}) as a plain Go error instead of a panic.
func (s *State) expandFields(ctx context.Context, words ...*syntax.Word) (fields []string, err error) {
	cfg := s.expandConfig(ctx)
	defer recoverExpandErr(&err)
	fields = cfg.Fields(ctx, words...)
	return fields, nil
}

// expandLiteral is the double-quote-equivalent expansion (no splitting, no
// globbing), used for assignment values, case words, and redirection
// targets.
func (s *State) expandLiteral(ctx context.Context, w *syntax.Word) (lit string, err error) {
	cfg := s.expandConfig(ctx)
	defer recoverExpandErr(&err)
	if w == nil {
		return "", nil
	}
	lit = cfg.Literal(ctx, w)
	return lit, nil
}

// expandArithm evaluates an arithmetic expression against the current scope.
func (s *State) expandArithm(ctx context.Context, x syntax.ArithmExpr) (int64, error) {
	cfg := s.expandConfig(ctx)
	var n int64
	var err error
	func() {
		defer recoverExpandErr(&err)
		n, err = cfg.Arithm(ctx, x)
	}()
	return n, err
}
