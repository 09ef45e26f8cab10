package interp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/vshlang/vsh/expand"
	"github.com/vshlang/vsh/syntax"
)

func boolToExit(b bool) int {
	if b {
		return 0
	}
	return 1
}

// reportExpandErr prints an aborted-expansion error the way a real shell
// reports a bad substitution, without unwinding the whole interpreter.
func (s *State) reportExpandErr(err error) {
	fmt.Fprintln(s.Stderr, err)
}

// handleExpandErr reports a recoverable expansion error and decides whether
// the script keeps going. Most expansion errors (bad subscript, bad
// arithmetic) just fail the current simple command with the given exit code.
// An unbound-variable reference under `set -u` is different: spec.md's
// Nounset property requires it to exit the current script outright,
// independent of errexit, so it always unwinds as a cfExit rather than
// falling through to the next statement. A limit violation relayed through
// an expansion callback is different again: it must propagate as a genuine
// error so Run can report exit 126, not be folded into LastExit here.
func (s *State) handleExpandErr(err error) (*controlFlow, error) {
	return s.handleExpandErrCode(err, 1)
}

func (s *State) handleExpandErrCode(err error, exitCode int) (*controlFlow, error) {
	var le *LimitError
	if errors.As(err, &le) {
		return nil, le
	}
	s.reportExpandErr(err)
	s.LastExit = exitCode
	if ee, ok := err.(*expand.Error); ok && ee.Unset {
		return &controlFlow{Kind: cfExit, Code: exitCode}, nil
	}
	return nil, nil
}

// runStmts executes a statement list in order, stopping early on any
// control-flow unwind or real error.
func (s *State) runStmts(ctx context.Context, stmts []*syntax.Stmt) (*controlFlow, error) {
	for _, st := range stmts {
		cf, err := s.runStmt(ctx, st)
		if err != nil || cf != nil {
			return cf, err
		}
	}
	return nil, nil
}

// runStmt executes one statement: its redirections, assignments, and
// command, honoring `!` negation, `&` backgrounding, and `errexit`.
func (s *State) runStmt(ctx context.Context, st *syntax.Stmt) (*controlFlow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.commandCount++
	if s.Limits.MaxCommands > 0 && s.commandCount > s.Limits.MaxCommands {
		return nil, newLimitError("maximum command count (%d) exceeded", s.Limits.MaxCommands)
	}
	if st.Coprocess {
		fmt.Fprintln(s.Stderr, "coproc: coprocesses need OS pipes, not supported in this sandbox")
		s.LastExit = 126
		return nil, nil
	}
	s.fireTrap(ctx, "DEBUG")
	if st.Background {
		return s.runBackground(ctx, st)
	}
	return s.runStmtSync(ctx, st)
}

func (s *State) runStmtSync(ctx context.Context, st *syntax.Stmt) (*controlFlow, error) {
	cleanup, err := s.applyRedirs(ctx, st.Redirs)
	if err != nil {
		return s.handleExpandErr(err)
	}
	defer cleanup()

	if ce, ok := st.Cmd.(*syntax.CallExpr); ok {
		cf, rerr := s.runCallExprWithAssigns(ctx, ce, st.Assigns)
		if rerr != nil {
			return cf, rerr
		}
		return s.finishSimpleCmd(ctx, st, cf), nil
	}
	if st.Cmd == nil {
		for _, as := range st.Assigns {
			if err := s.applyAssign(ctx, as); err != nil {
				cf, rerr := s.handleExpandErr(err)
				if rerr != nil {
					return nil, rerr
				}
				if cf != nil {
					return cf, nil
				}
				return nil, nil
			}
		}
		s.LastExit = 0
		return s.finishSimpleCmd(ctx, st, nil), nil
	}

	cf, err := s.runCommand(ctx, st.Cmd)
	if err != nil {
		return cf, err
	}
	if st.Negated {
		s.LastExit = boolToExit(s.LastExit == 0)
	}
	return cf, nil
}

// finishSimpleCmd applies `!` negation, the ERR trap, and `errexit` to a
// simple command's (CallExpr or bare assignment) result.
func (s *State) finishSimpleCmd(ctx context.Context, st *syntax.Stmt, cf *controlFlow) *controlFlow {
	if st.Negated {
		s.LastExit = boolToExit(s.LastExit == 0)
		return cf
	}
	if cf == nil && s.LastExit != 0 {
		if !s.noErrExit {
			s.fireTrap(ctx, "ERR")
		}
		if s.Opts.ErrExit && !s.noErrExit {
			return &controlFlow{Kind: cfExit, Code: s.LastExit}
		}
	}
	return cf
}

func (s *State) runBackground(ctx context.Context, st *syntax.Stmt) (*controlFlow, error) {
	sub := s.fork()
	st2 := *st
	st2.Background = false
	done := make(chan struct{})
	job := &Job{ID: s.NextJob + 1, Stmt: st}
	s.NextJob++
	s.Jobs = append(s.Jobs, job)
	job.Done = done
	s.LastBgPID = job.ID
	s.jobPool.Go(func() {
		defer close(done)
		cf, err := sub.runStmt(ctx, &st2)
		exit := sub.LastExit
		if cf != nil && cf.Kind == cfExit {
			exit = cf.Code
		}
		if err != nil {
			sub.reportExpandErr(err)
			exit = 1
		}
		job.Result = ExecResult{ExitCode: exit}
	})
	s.LastExit = 0
	return nil, nil
}

// runCommand dispatches every non-CallExpr syntax.Command variant.
func (s *State) runCommand(ctx context.Context, cmd syntax.Command) (*controlFlow, error) {
	switch x := cmd.(type) {
	case *syntax.Pipeline:
		return s.runPipeline(ctx, x)
	case *syntax.Block:
		return s.runStmts(ctx, x.Stmts)
	case *syntax.Subshell:
		return s.runSubshell(ctx, x)
	case *syntax.BinaryCmd:
		return s.runBinaryCmd(ctx, x)
	case *syntax.IfClause:
		return s.runIfClause(ctx, x)
	case *syntax.WhileClause:
		return s.runWhileClause(ctx, x)
	case *syntax.ForClause:
		return s.runForClause(ctx, x)
	case *syntax.CaseClause:
		return s.runCaseClause(ctx, x)
	case *syntax.FuncDecl:
		s.Funcs[x.Name] = x.Body
		s.LastExit = 0
		return nil, nil
	case *syntax.ArithmCmd:
		n, err := s.expandArithm(ctx, x.X)
		if err != nil {
			return s.handleExpandErrCode(err, 1)
		}
		s.LastExit = boolToExit(n == 0)
		return nil, nil
	case *syntax.TestClause:
		v, err := s.evalTest(ctx, x.X)
		if err != nil {
			return s.handleExpandErrCode(err, 2)
		}
		s.LastExit = boolToExit(!v)
		return nil, nil
	case *syntax.CallExpr:
		return s.runCallExprWithAssigns(ctx, x, nil)
	default:
		return nil, fmt.Errorf("unhandled command node %T", cmd)
	}
}

func (s *State) runSubshell(ctx context.Context, x *syntax.Subshell) (*controlFlow, error) {
	sub := s.fork()
	cf, err := sub.runStmts(ctx, x.Stmts)
	s.LastExit = sub.LastExit
	if err != nil {
		return nil, err
	}
	if cf != nil && cf.Kind == cfExit {
		// Subshells don't exit the parent shell, mirroring the teacher's
		// fork-based command substitution behavior.
		s.LastExit = cf.Code
		return nil, nil
	}
	return cf, nil
}

// runPipeline wires each stage's stdout to the next stage's stdin with an
// io.Pipe and runs every stage concurrently, per SPEC_FULL.md §5.
func (s *State) runPipeline(ctx context.Context, pl *syntax.Pipeline) (*controlFlow, error) {
	n := len(pl.Stmts)
	if n == 1 {
		return s.runStmt(ctx, pl.Stmts[0])
	}
	readers := make([]*io.PipeReader, n-1)
	writers := make([]*io.PipeWriter, n-1)
	for i := 0; i < n-1; i++ {
		readers[i], writers[i] = io.Pipe()
	}
	subs := make([]*State, n)
	for i := 0; i < n; i++ {
		subs[i] = s.fork()
		if i > 0 {
			subs[i].Stdin = readers[i-1]
		}
		if i < n-1 {
			subs[i].Stdout = writers[i]
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			_, err := subs[i].runStmt(gctx, pl.Stmts[i])
			if i < n-1 {
				writers[i].Close()
			}
			if i > 0 {
				readers[i-1].Close()
			}
			return err
		})
	}
	err := g.Wait()
	lastExit := subs[n-1].LastExit
	if s.Opts.PipeFail {
		for i := 0; i < n; i++ {
			if subs[i].LastExit != 0 {
				lastExit = subs[i].LastExit
			}
		}
	}
	s.LastExit = lastExit
	return nil, err
}

func (s *State) runBinaryCmd(ctx context.Context, x *syntax.BinaryCmd) (*controlFlow, error) {
	old := s.noErrExit
	s.noErrExit = true
	cf, err := s.runStmt(ctx, x.X)
	s.noErrExit = old
	if err != nil || cf != nil {
		return cf, err
	}
	isAnd := x.Op == syntax.AndAnd
	if (s.LastExit == 0) == isAnd {
		return s.runStmt(ctx, x.Y)
	}
	return nil, nil
}

func (s *State) runIfClause(ctx context.Context, x *syntax.IfClause) (*controlFlow, error) {
	ok, cf, err := s.runCond(ctx, x.CondStmts)
	if err != nil || cf != nil {
		return cf, err
	}
	if ok {
		return s.runStmts(ctx, x.ThenStmts)
	}
	for _, elif := range x.Elifs {
		ok, cf, err = s.runCond(ctx, elif.CondStmts)
		if err != nil || cf != nil {
			return cf, err
		}
		if ok {
			return s.runStmts(ctx, elif.ThenStmts)
		}
	}
	if x.ElseStmts != nil {
		return s.runStmts(ctx, x.ElseStmts)
	}
	s.LastExit = 0
	return nil, nil
}

// runCond runs a tested condition (if/elif/while/until), suppressing
// errexit for its duration, and reports whether it succeeded.
func (s *State) runCond(ctx context.Context, stmts []*syntax.Stmt) (bool, *controlFlow, error) {
	old := s.noErrExit
	s.noErrExit = true
	cf, err := s.runStmts(ctx, stmts)
	s.noErrExit = old
	return s.LastExit == 0, cf, err
}

func (s *State) runWhileClause(ctx context.Context, x *syntax.WhileClause) (*controlFlow, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, cf, err := s.runCond(ctx, x.CondStmts)
		if err != nil || cf != nil {
			return cf, err
		}
		if ok == x.Until {
			return nil, nil
		}
		cf, err = s.runStmts(ctx, x.DoStmts)
		if err != nil {
			return cf, err
		}
		if cf != nil {
			stop, propagate := cf.absorbLoop()
			if !stop {
				continue
			}
			return propagate, nil
		}
	}
}

func (s *State) runForClause(ctx context.Context, x *syntax.ForClause) (*controlFlow, error) {
	if x.CStyle {
		return s.runCStyleFor(ctx, x)
	}
	var words []string
	if len(x.Items) > 0 {
		var err error
		words, err = s.expandFields(ctx, x.Items...)
		if err != nil {
			return nil, err
		}
	} else {
		words = s.Params
	}
	for _, w := range words {
		if err := s.Environ().Set(x.Name, expand.Variable{Set: true, Kind: expand.String, Str: w}); err != nil {
			return nil, err
		}
		cf, err := s.runStmts(ctx, x.DoStmts)
		if err != nil {
			return cf, err
		}
		if cf != nil {
			stop, propagate := cf.absorbLoop()
			if !stop {
				continue
			}
			return propagate, nil
		}
	}
	s.LastExit = 0
	return nil, nil
}

func (s *State) runCStyleFor(ctx context.Context, x *syntax.ForClause) (*controlFlow, error) {
	if x.Init != nil {
		if _, err := s.expandArithm(ctx, x.Init); err != nil {
			return nil, err
		}
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if x.Cond != nil {
			n, err := s.expandArithm(ctx, x.Cond)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				break
			}
		}
		cf, err := s.runStmts(ctx, x.DoStmts)
		if err != nil {
			return cf, err
		}
		if cf != nil {
			stop, propagate := cf.absorbLoop()
			if stop {
				return propagate, nil
			}
		}
		if x.Post != nil {
			if _, err := s.expandArithm(ctx, x.Post); err != nil {
				return nil, err
			}
		}
	}
	s.LastExit = 0
	return nil, nil
}

func (s *State) runCaseClause(ctx context.Context, x *syntax.CaseClause) (*controlFlow, error) {
	word, err := s.expandLiteral(ctx, x.Word)
	if err != nil {
		return nil, err
	}
	s.LastExit = 0
	matched := false
	for _, item := range x.Items {
		if !matched {
			cfg := s.expandConfig(ctx)
			for _, pw := range item.Patterns {
				pat := cfg.Pattern(ctx, pw)
				if s.matchCasePattern(ctx, pat, word) {
					matched = true
					break
				}
			}
		}
		if !matched {
			continue
		}
		cf, err := s.runStmts(ctx, item.Stmts)
		if err != nil || cf != nil {
			return cf, err
		}
		switch item.Term {
		case syntax.CaseBreak:
			return nil, nil
		case syntax.CaseFallthrough:
			matched = true
		case syntax.CaseContinueMatch:
			matched = false
		}
	}
	return nil, nil
}
