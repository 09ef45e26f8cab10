package interp

import "fmt"

// LimitError reports that an execution limit from Limits was exceeded.
// spec.md §5 requires any such violation to abort the whole exec call with
// exit 126, never just the current simple command, so it is always
// propagated as a genuine Go error rather than folded into LastExit.
type LimitError struct {
	msg string
}

func newLimitError(format string, args ...any) *LimitError {
	return &LimitError{msg: fmt.Sprintf(format, args...)}
}

func (e *LimitError) Error() string { return e.msg }

// LimitExceeded implements the unexported limiter interface expand.Config
// uses to recognize a limit violation relayed through one of its callbacks
// (CmdSubst, ProcSubst, GlobOp) without importing this package.
func (e *LimitError) LimitExceeded() bool { return true }

// checkArrayLen enforces MaxArrayElements against a candidate array length.
func (s *State) checkArrayLen(n int) error {
	if s.Limits.MaxArrayElements > 0 && n > s.Limits.MaxArrayElements {
		return newLimitError("maximum array elements (%d) exceeded", s.Limits.MaxArrayElements)
	}
	return nil
}

// checkStringLen enforces MaxStringLength against a candidate string value.
func (s *State) checkStringLen(v string) error {
	if s.Limits.MaxStringLength > 0 && len(v) > s.Limits.MaxStringLength {
		return newLimitError("maximum string length (%d) exceeded", s.Limits.MaxStringLength)
	}
	return nil
}

// checkGlobOp enforces MaxGlobOperations at one filesystem probe made while
// expanding a glob pattern. It is wired as expand.Config.GlobOp.
func (s *State) checkGlobOp() error {
	s.globOps++
	if s.Limits.MaxGlobOperations > 0 && s.globOps > s.Limits.MaxGlobOperations {
		return newLimitError("maximum glob operations (%d) exceeded", s.Limits.MaxGlobOperations)
	}
	return nil
}
