package interp

import (
	"context"
	"errors"

	"github.com/vshlang/vsh/syntax"
)

// Run executes a parsed program to completion, firing the EXIT trap exactly
// once on the way out the way a real shell always runs it, whether exit was
// explicit, implicit (fell off the end of the script), or via a limit error.
// A Limits.Timeout wraps the whole run in a deadline, and any limit
// violation (including a timeout) forces exit 126 per spec.md §5/§7.
func (s *State) Run(ctx context.Context, file *syntax.File) (ExecResult, error) {
	if s.Limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Limits.Timeout)
		defer cancel()
	}

	cf, err := s.runStmts(ctx, file.Stmts)
	if errors.Is(err, context.DeadlineExceeded) {
		err = newLimitError("timeout (%s) exceeded", s.Limits.Timeout)
	}

	exit := s.LastExit
	if cf != nil && cf.Kind == cfExit {
		exit = cf.Code
	}
	var le *LimitError
	if errors.As(err, &le) {
		exit = 126
	}
	s.LastExit = exit
	s.inTrap = false
	s.fireTrap(ctx, "EXIT")
	if err != nil {
		return ExecResult{ExitCode: exit}, err
	}
	return ExecResult{ExitCode: exit}, nil
}
