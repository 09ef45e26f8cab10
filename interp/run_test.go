package interp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/vshlang/vsh/command"
	"github.com/vshlang/vsh/syntax"
	"github.com/vshlang/vsh/vfs"
)

type runTest struct {
	in, want string
}

var runTests = []runTest{
	// no-op programs
	{"", ""},
	{"true", ""},
	{":", ""},
	{"exit", ""},
	{"exit 0", ""},
	{"{ :; }", ""},
	{"(:)", ""},

	// exit status codes
	{"exit 1", "exit status 1"},
	{"false", "exit status 1"},
	{"false foo", "exit status 1"},
	{"! false", ""},
	{"true foo", ""},
	{"! true", "exit status 1"},
	{"false; true", ""},
	{"false; exit", "exit status 1"},
	{"exit; echo foo", ""},
	{"exit 0; echo foo", ""},

	// echo
	{"echo", "\n"},
	{"echo a b c", "a b c\n"},
	{"echo -n foo", "foo"},
	{`echo -e '\t'`, "\t\n"},
	{`echo -E '\t'`, "\\t\n"},

	// variables and expansion
	{"x=foo; echo $x", "foo\n"},
	{"x=foo; echo ${x}bar", "foobar\n"},
	{"x=foo; echo ${x:-bar}", "foo\n"},
	{"echo ${x:-bar}", "bar\n"},
	{"x=foo; echo ${#x}", "3\n"},
	{"x=foobar; echo ${x%bar}", "foo\n"},
	{"x=foobar; echo ${x#foo}", "bar\n"},

	// arrays
	{"a=(1 2 3); echo ${a[1]}", "2\n"},
	{"a=(1 2 3); echo ${#a[@]}", "3\n"},
	{"a=(1 2 3); echo ${a[@]}", "1 2 3\n"},

	// control flow
	{"if true; then echo yes; fi", "yes\n"},
	{"if false; then echo yes; else echo no; fi", "no\n"},
	{"for i in 1 2 3; do echo $i; done", "1\n2\n3\n"},
	{"i=0; while [ $i -lt 3 ]; do echo $i; i=$((i+1)); done", "0\n1\n2\n"},
	{"for i in 1 2 3; do if [ $i = 2 ]; then continue; fi; echo $i; done", "1\n3\n"},
	{"for i in 1 2 3; do if [ $i = 2 ]; then break; fi; echo $i; done", "1\n"},
	{"case foo in foo) echo yes;; *) echo no;; esac", "yes\n"},

	// functions
	{"f() { echo hi; }; f", "hi\n"},
	{"f() { echo $1; }; f foo", "foo\n"},
	{"f() { return 3; }; f; echo $?", "3\n"},

	// test / [
	{"[ -z '' ] && echo empty", "empty\n"},
	{"[ 1 -eq 1 ] && echo eq", "eq\n"},
	{"[ foo = foo ] && echo same", "same\n"},

	// pipelines and subshells
	{"echo hi | rev", "ih\n"},
	{"(echo sub)", "sub\n"},
	{"x=1; (x=2); echo $x", "1\n"},

	// builtins
	{"declare x=foo; echo $x", "foo\n"},
	{"f() { local x=foo; echo $x; }; f", "foo\n"},
	{"export FOO=bar; echo $FOO", "bar\n"},
	{"readonly R=1; echo $R", "1\n"},
	{"unset x; x=1; unset x; echo ${x:-unset}", "unset\n"},

	// trap
	{"trap 'echo bye' EXIT; echo hi", "hi\nbye\n"},

	// command registry
	{"seq 3", "1\n2\n3\n"},
	{"echo abc | rev", "cba\n"},
}

func parseFile(t *testing.T, p *syntax.Parser, src string) *syntax.File {
	t.Helper()
	file, err := p.ParseString(src, "")
	if err != nil {
		t.Fatalf("could not parse %q: %v", src, err)
	}
	return file
}

func TestRun(t *testing.T) {
	p := syntax.NewParser()
	for i := range runTests {
		t.Run(fmt.Sprintf("%03d", i), func(t *testing.T) {
			c := runTests[i]
			file := parseFile(t, p, c.in)
			t.Parallel()

			var buf bytes.Buffer
			fs := vfs.NewMemFS()
			s := New(fs, command.Builtins(), "/",
				WithStdio(strings.NewReader(""), &buf, &buf))
			ctx := context.Background()
			res, err := s.Run(ctx, file)
			if err != nil {
				buf.WriteString(err.Error())
			} else if res.ExitCode != 0 {
				buf.WriteString(fmt.Sprintf("exit status %d", res.ExitCode))
			}
			if got := buf.String(); got != c.want {
				t.Fatalf("wrong output in %q:\nwant: %q\ngot:  %q", c.in, c.want, got)
			}
		})
	}
}

func TestRunBackgroundAndWait(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	fs := vfs.NewMemFS()
	s := New(fs, command.Builtins(), "/", WithStdio(strings.NewReader(""), &buf, &buf))
	p := syntax.NewParser()
	file := parseFile(t, p, "{ echo bg; } & wait; echo done")
	if _, err := s.Run(context.Background(), file); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if got != "bg\ndone\n" {
		t.Fatalf("got %q", got)
	}
}

func TestRunErrExit(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	fs := vfs.NewMemFS()
	s := New(fs, command.Builtins(), "/",
		WithStdio(strings.NewReader(""), &buf, &buf),
		WithOptions(Options{ErrExit: true}))
	p := syntax.NewParser()
	file := parseFile(t, p, "false; echo unreachable")
	res, err := s.Run(context.Background(), file)
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 1 {
		t.Fatalf("exit code = %d, want 1", res.ExitCode)
	}
	if got := buf.String(); got != "" {
		t.Fatalf("got %q, want no output (errexit should have stopped before echo)", got)
	}
}

func TestRunNoUnset(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	fs := vfs.NewMemFS()
	s := New(fs, command.Builtins(), "/",
		WithStdio(strings.NewReader(""), &buf, &buf),
		WithOptions(Options{NoUnset: true}))
	p := syntax.NewParser()
	file := parseFile(t, p, "echo $undefined")
	res, err := s.Run(context.Background(), file)
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode == 0 {
		t.Fatalf("expected a nonzero exit for an unset variable under NoUnset")
	}
}

func TestRunNoUnsetAbortsScript(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	fs := vfs.NewMemFS()
	s := New(fs, command.Builtins(), "/",
		WithStdio(strings.NewReader(""), &buf, &buf),
		WithOptions(Options{NoUnset: true}))
	p := syntax.NewParser()
	file := parseFile(t, p, "set -u; echo $x; echo after")
	if _, err := s.Run(context.Background(), file); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); strings.Contains(got, "after") {
		t.Fatalf("nounset violation should have exited the script before reaching \"after\", got %q", got)
	}
}

func TestRunUnsetArrayElement(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	fs := vfs.NewMemFS()
	s := New(fs, command.Builtins(), "/", WithStdio(strings.NewReader(""), &buf, &buf))
	p := syntax.NewParser()
	file := parseFile(t, p, "a=(1 2 3); unset a[1]; echo ${a[0]}-${a[1]}-${a[2]}")
	if _, err := s.Run(context.Background(), file); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "1--3\n" {
		t.Fatalf("got %q, want %q", got, "1--3\n")
	}
}

func TestRunUnsetAssocElement(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	fs := vfs.NewMemFS()
	s := New(fs, command.Builtins(), "/", WithStdio(strings.NewReader(""), &buf, &buf))
	p := syntax.NewParser()
	file := parseFile(t, p, `declare -A a; a[k]=v; a[j]=w; unset 'a[k]'; echo ${a[k]:-gone}-${a[j]}`)
	if _, err := s.Run(context.Background(), file); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "gone-w\n" {
		t.Fatalf("got %q, want %q", got, "gone-w\n")
	}
}

func TestRunLimitExceededExitsWith126(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	fs := vfs.NewMemFS()
	s := New(fs, command.Builtins(), "/",
		WithStdio(strings.NewReader(""), &buf, &buf),
		WithLimits(Limits{MaxCommands: 2}))
	p := syntax.NewParser()
	file := parseFile(t, p, "true; true; true; true")
	res, err := s.Run(context.Background(), file)
	if err == nil {
		t.Fatalf("expected a limit error")
	}
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("expected a *LimitError, got %T: %v", err, err)
	}
	if res.ExitCode != 126 {
		t.Fatalf("exit code = %d, want 126", res.ExitCode)
	}
}

func TestRunMaxArrayElements(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	fs := vfs.NewMemFS()
	s := New(fs, command.Builtins(), "/",
		WithStdio(strings.NewReader(""), &buf, &buf),
		WithLimits(Limits{MaxCommands: 1000, MaxArrayElements: 2}))
	p := syntax.NewParser()
	file := parseFile(t, p, "a=(1 2 3)")
	res, err := s.Run(context.Background(), file)
	if err == nil {
		t.Fatalf("expected a limit error")
	}
	if res.ExitCode != 126 {
		t.Fatalf("exit code = %d, want 126", res.ExitCode)
	}
}

func TestRunMaxStringLength(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	fs := vfs.NewMemFS()
	s := New(fs, command.Builtins(), "/",
		WithStdio(strings.NewReader(""), &buf, &buf),
		WithLimits(Limits{MaxCommands: 1000, MaxStringLength: 3}))
	p := syntax.NewParser()
	file := parseFile(t, p, "x=abcdef")
	res, err := s.Run(context.Background(), file)
	if err == nil {
		t.Fatalf("expected a limit error")
	}
	if res.ExitCode != 126 {
		t.Fatalf("exit code = %d, want 126", res.ExitCode)
	}
}

func TestRunMaxGlobOperations(t *testing.T) {
	t.Parallel()
	fs := vfs.NewMemFS()
	for _, dir := range []string{"/d1", "/d2", "/d3"} {
		if err := fs.Mkdir(dir, vfs.MkdirOpts{}); err != nil {
			t.Fatal(err)
		}
		if err := fs.WriteFile(dir+"/x", nil); err != nil {
			t.Fatal(err)
		}
	}
	p := syntax.NewParser()
	file := parseFile(t, p, "echo */*")

	var okBuf bytes.Buffer
	sOK := New(fs, command.Builtins(), "/",
		WithStdio(strings.NewReader(""), &okBuf, &okBuf),
		WithLimits(Limits{MaxCommands: 1000}))
	if _, err := sOK.Run(context.Background(), file); err != nil {
		t.Fatal(err)
	}

	var limBuf bytes.Buffer
	sLimited := New(fs, command.Builtins(), "/",
		WithStdio(strings.NewReader(""), &limBuf, &limBuf),
		WithLimits(Limits{MaxCommands: 1000, MaxGlobOperations: 3}))
	res, err := sLimited.Run(context.Background(), file)
	if err == nil {
		t.Fatalf("expected a limit error")
	}
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("expected a *LimitError, got %T: %v", err, err)
	}
	if res.ExitCode != 126 {
		t.Fatalf("exit code = %d, want 126", res.ExitCode)
	}
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	fs := vfs.NewMemFS()
	s := New(fs, command.Builtins(), "/",
		WithStdio(strings.NewReader(""), &buf, &buf),
		WithLimits(Limits{MaxCommands: 1 << 30, Timeout: time.Millisecond}))
	p := syntax.NewParser()
	file := parseFile(t, p, "while true; do true; done")
	res, err := s.Run(context.Background(), file)
	if err == nil {
		t.Fatalf("expected a timeout error")
	}
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("expected a *LimitError, got %T: %v", err, err)
	}
	if res.ExitCode != 126 {
		t.Fatalf("exit code = %d, want 126", res.ExitCode)
	}
}
