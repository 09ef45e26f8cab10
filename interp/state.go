// Package interp walks a parsed shell program against a sandboxed
// filesystem and command registry: the statement interpreter (spec.md §4.4)
// and its shell state (§4.5).
package interp

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/vshlang/vsh/command"
	"github.com/vshlang/vsh/expand"
	"github.com/vshlang/vsh/syntax"
	"github.com/vshlang/vsh/vfs"
)

// Options holds the `set -o`/`shopt` style toggles spec.md §4.4 and its
// expansion reference by name.
type Options struct {
	ErrExit        bool // set -e
	NoUnset        bool // set -u
	XTrace         bool // set -x
	PipeFail       bool // set -o pipefail
	NoGlob         bool // set -f
	Verbose        bool // set -v
	GlobStar       bool // shopt -s globstar
	NullGlob       bool // shopt -s nullglob
	FailGlob       bool // shopt -s failglob
	DotGlob        bool // shopt -s dotglob
	NoCaseMatch    bool // shopt -s nocasematch
	InheritErrExit bool // shopt -s inherit_errexit
	ExtGlob        bool // shopt -s extglob
}

// Limits are the execution-limit counters spec.md names, checked at the
// specific points the interpreter reaches them.
type Limits struct {
	MaxCommands           int
	MaxSubstitutionDepth  int
	MaxCallDepth          int
	MaxArrayElements      int
	MaxStringLength       int
	MaxGlobOperations     int
	Timeout               time.Duration
}

// DefaultLimits returns generous but finite bounds, so a runaway script
// fails closed instead of hanging the embedding process.
func DefaultLimits() Limits {
	return Limits{
		MaxCommands:          200000,
		MaxSubstitutionDepth: 64,
		MaxCallDepth:         1000,
		MaxArrayElements:     1 << 16,
		MaxStringLength:      1 << 24,
		MaxGlobOperations:    100000,
		Timeout:              0,
	}
}

// Logger is an optional sink that a State carries and fork copies. No
// interpreter code calls it: `set -x` sets Options.XTrace but writes no
// trace, and limit violations are reported as errors, not logged.
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Job is one entry of the background job table (spec.md §5's "background
// job list").
type Job struct {
	ID     int
	Stmt   *syntax.Stmt
	Done   <-chan struct{}
	Result ExecResult
}

// ExecResult is what one invocation returns: its exit code. Output is not
// collected here; it is written to the State's Stdout and Stderr as the
// program runs.
type ExecResult struct {
	ExitCode int
}

// ExitStatus wraps a nonzero exit code as an error, used to unwind `exec`
// calls whose caller wants a genuine Go error (the CLI entry point).
type ExitStatus int

func (e ExitStatus) Error() string { return "exit status " + strconv.Itoa(int(e)) }

// State is the C5 shell state: variables, functions, options, limits, traps,
// and the background job table. One State belongs to one logical shell; a
// subshell clones it, a function call pushes a var scope onto it.
type State struct {
	FS       vfs.FS
	Commands *command.Registry

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	CWD        string
	ScriptName string
	Underscore string
	Params     []string
	Funcs      map[string]*syntax.Stmt

	Opts   Options
	Limits Limits
	Logger Logger

	Jobs      []*Job
	NextJob   int
	LastBgPID int
	jobPool   *pool.Pool

	Traps    map[string]*syntax.Stmt
	TrapSrc  map[string]string

	LastExit int

	scopes []*scope

	callDepth    int
	substDepth   int
	commandCount int
	globOps      int

	OptInd int
	OptArg string

	// noErrExit suppresses `errexit` inside tested contexts (if/while/until
	// conditions, && / || operands) per spec.md §4.4.
	noErrExit bool

	// inTrap is set while running a trap handler body, so a failing command
	// inside an ERR trap can't refire the same trap.
	inTrap bool

	Fetch func(ctx context.Context, url string) (io.ReadCloser, error)
}

type scope struct {
	vars   map[string]expand.Variable
	locals map[string]bool
}

func newScope() *scope {
	return &scope{vars: map[string]expand.Variable{}, locals: map[string]bool{}}
}

// New builds a shell state ready to run programs against fs, rooted at cwd,
// resolving external commands through reg.
func New(fs vfs.FS, reg *command.Registry, cwd string, opts ...Option) *State {
	s := &State{
		FS:         fs,
		Commands:   reg,
		CWD:        cwd,
		ScriptName: "vsh",
		Funcs:      map[string]*syntax.Stmt{},
		Limits:     DefaultLimits(),
		Traps:      map[string]*syntax.Stmt{},
		TrapSrc:    map[string]string{},
		jobPool:    pool.New(),
		scopes:     []*scope{newScope()},
	}
	for _, o := range opts {
		o(s)
	}
	if s.Stdout == nil {
		s.Stdout = io.Discard
	}
	if s.Stderr == nil {
		s.Stderr = io.Discard
	}
	return s
}

// Option configures a State at construction time.
type Option func(*State)

func WithEnv(pairs ...string) Option {
	return func(s *State) {
		sc := s.scopes[0]
		for _, p := range pairs {
			name, val, ok := splitPair(p)
			if !ok {
				continue
			}
			sc.vars[name] = expand.Variable{Set: true, Exported: true, Kind: expand.String, Str: val}
		}
	}
}

func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(s *State) { s.Stdin, s.Stdout, s.Stderr = stdin, stdout, stderr }
}

func WithParams(params ...string) Option {
	return func(s *State) { s.Params = params }
}

func WithOptions(o Options) Option {
	return func(s *State) { s.Opts = o }
}

func WithLimits(l Limits) Option {
	return func(s *State) { s.Limits = l }
}

func WithLogger(l Logger) Option {
	return func(s *State) { s.Logger = l }
}

func WithScriptName(name string) Option {
	return func(s *State) { s.ScriptName = name }
}

func splitPair(p string) (string, string, bool) {
	for i := 0; i < len(p); i++ {
		if p[i] == '=' {
			return p[:i], p[i+1:], true
		}
	}
	return "", "", false
}
