package expand

import (
	"context"

	"github.com/vshlang/vsh/syntax"
	"github.com/vshlang/vsh/vfs"
)

// Config carries everything the expansion engine needs beyond the AST: the
// shell environment, the virtual filesystem glob expansion runs against,
// shell options, and the callbacks that hand command/process substitution
// back to the interpreter (expand never runs a command itself).
type Config struct {
	Env WriteEnviron
	FS  vfs.FS
	CWD string

	NoGlob   bool
	NullGlob bool
	FailGlob bool
	DotGlob  bool
	GlobStar bool
	NoCase   bool
	NoUnset  bool

	// LookupUser resolves `~user` to a home directory. The sandbox default
	// only ever recognizes "root" (spec.md §4.3.2); nil means no lookup at
	// all, leaving unknown `~user` forms literal.
	LookupUser func(name string) (home string, ok bool)

	// CmdSubst evaluates the statements of a $(...) / `...` substitution
	// against a forked copy of shell state and returns captured stdout.
	CmdSubst func(ctx context.Context, stmts []*syntax.Stmt) (stdout string, exit int, err error)

	// ProcSubst evaluates <(...) / >(...) and returns the synthetic path
	// that should replace it in the argument list.
	ProcSubst func(ctx context.Context, ps *syntax.ProcSubst) (path string, err error)

	// GlobOp is called once per filesystem probe a glob expansion makes
	// (a directory read, or a plain existence check for a meta-free
	// segment), so the interpreter can enforce MaxGlobOperations. Nil means
	// no limit is enforced here.
	GlobOp func() error

	// OnError receives recoverable expansion errors (unset-variable with
	// `:?`, bad arithmetic, etc). If nil, such errors panic with *Error.
	OnError func(error)

	lastExit int // $? as observed by the most recent command substitution
}

// Error is returned (or passed to Config.OnError) for any expansion failure
// that spec.md requires to abort the word being expanded.
type Error struct {
	Message string

	// Unset marks an unbound-variable reference under NoUnset. Unlike other
	// expansion errors, spec.md requires this one to exit the whole script
	// regardless of errexit, so callers need to tell it apart from the rest.
	Unset bool

	// Limit marks a budget violation (command/call/substitution/array/
	// string/glob limit) that reached this expansion through a callback.
	// Unlike Unset, it always aborts the whole exec call with exit 126.
	Limit bool
}

func (e *Error) Error() string { return e.Message }

func (c *Config) fail(msg string) {
	c.failErr(&Error{Message: msg})
}

// failUnset reports an unbound-variable reference (NoUnset), distinguished
// from Config.fail so the interpreter can always abort the script for it.
func (c *Config) failUnset(msg string) {
	c.failErr(&Error{Message: msg, Unset: true})
}

// failLimit reports a budget violation relayed through a callback (command
// substitution, process substitution, glob probe), tagged so the
// interpreter maps it to exit 126 instead of an ordinary expansion failure.
func (c *Config) failLimit(msg string) {
	c.failErr(&Error{Message: msg, Limit: true})
}

// limiter is implemented by an interpreter error representing a budget
// violation. Checking for it lets Config tell a limit error relayed through
// a callback apart from an ordinary failure, without importing the
// interpreter package that defines the concrete type.
type limiter interface {
	LimitExceeded() bool
}

// failCallback reports an error that came back through CmdSubst, ProcSubst,
// or GlobOp, preserving its limit-ness if it has any.
func (c *Config) failCallback(err error) {
	if le, ok := err.(limiter); ok && le.LimitExceeded() {
		c.failLimit(err.Error())
		return
	}
	c.fail(err.Error())
}

func (c *Config) failErr(err *Error) {
	if c.OnError != nil {
		c.OnError(err)
		return
	}
	panic(err)
}

// checkGlobOp enforces MaxGlobOperations at one filesystem probe, panicking
// (recovered the same way any other expansion error is) once exceeded.
func (c *Config) checkGlobOp() {
	if c.GlobOp == nil {
		return
	}
	if err := c.GlobOp(); err != nil {
		c.failCallback(err)
	}
}

func (c *Config) ifs() string {
	if vr := c.Env.Get("IFS"); vr.IsSet() {
		return vr.String()
	}
	return " \t\n"
}
