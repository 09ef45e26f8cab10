package interp

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vshlang/vsh/command"
	"github.com/vshlang/vsh/expand"
	"github.com/vshlang/vsh/syntax"
	"github.com/vshlang/vsh/vfs"
)

// grepLineCmd is a minimal single-pattern-substring grep, registered only by
// these tests: the reference registry deliberately leaves grep out of scope,
// but the end-to-end scenario below exercises the same external-command
// contract a real grep would.
func grepLineCmd(_ context.Context, cctx command.Context, argv []string) (command.Result, error) {
	if len(argv) != 3 {
		return command.Result{Stderr: "grep: usage: grep PATTERN FILE\n", ExitCode: 2}, nil
	}
	pattern, path := argv[1], argv[2]
	data, err := cctx.Fs.ReadFile(path)
	if err != nil {
		return command.Result{Stderr: "grep: " + err.Error() + "\n", ExitCode: 2}, nil
	}
	var sb strings.Builder
	matched := false
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		if strings.Contains(line, pattern) {
			sb.WriteString(line)
			sb.WriteByte('\n')
			matched = true
		}
	}
	if !matched {
		return command.Result{ExitCode: 1}, nil
	}
	return command.Result{Stdout: sb.String()}, nil
}

// scenario is one of the concrete end-to-end walkthroughs: a script, an
// optional seeded file, and the combined stdout+stderr plus exit code it
// must produce.
type scenario struct {
	name       string
	seedPath   string
	seedData   string
	src        string
	wantOutput string
	wantExit   int
}

var scenarios = []scenario{
	{
		name:       "wc counts bytes including the trailing newline",
		src:        `echo hello | wc -c`,
		wantOutput: "      6\n",
	},
	{
		name:       "grep finds a matching line in a sourced file",
		seedPath:   "/data.txt",
		seedData:   "a\nb\nc\n",
		src:        `grep b /data.txt`,
		wantOutput: "b\n",
	},
	{
		name:     "pipefail surfaces the rightmost nonzero exit code",
		src:      `set -o pipefail; false | true`,
		wantExit: 1,
	},
	{
		name:       "compound arithmetic assignment mutates in place",
		src:        `x=1; (( x += 2 )); echo $x`,
		wantOutput: "3\n",
	},
	{
		name:       "for loop iterates a word list in order",
		src:        `for i in 1 2 3; do echo $i; done`,
		wantOutput: "1\n2\n3\n",
	},
	{
		name:       "local shadows an outer variable of the same name",
		src:        `f() { local x=inner; echo $x; }; x=outer; f; echo $x`,
		wantOutput: "inner\nouter\n",
	},
	{
		name:       "command substitution strips only trailing newlines",
		src:        `echo "$(printf '%s\n%s' a b)"`,
		wantOutput: "a\nb\n",
	},
	{
		name:       "array length and indexing",
		src:        `arr=(a b c); echo ${#arr[@]} ${arr[1]}`,
		wantOutput: "3 b\n",
	},
}

func TestScenarios(t *testing.T) {
	p := syntax.NewParser()
	for _, sc := range scenarios {
		sc := sc
		t.Run(sc.name, func(t *testing.T) {
			t.Parallel()
			file, err := p.ParseString(sc.src, sc.name)
			if err != nil {
				t.Fatalf("could not parse %q: %v", sc.src, err)
			}

			fs := vfs.NewMemFS()
			if sc.seedPath != "" {
				if err := fs.WriteFile(sc.seedPath, []byte(sc.seedData)); err != nil {
					t.Fatalf("seeding %s: %v", sc.seedPath, err)
				}
			}
			reg := command.Builtins()
			reg.Register("grep", command.CommandFunc(grepLineCmd))

			var buf bytes.Buffer
			s := New(fs, reg, "/", WithStdio(strings.NewReader(""), &buf, &buf))
			res, err := s.Run(context.Background(), file)
			if err != nil {
				t.Fatalf("run error: %v", err)
			}
			if buf.String() != sc.wantOutput {
				t.Fatalf("output mismatch (-want +got):\n%s", cmp.Diff(sc.wantOutput, buf.String()))
			}
			if res.ExitCode != sc.wantExit {
				t.Fatalf("exit code = %d, want %d", res.ExitCode, sc.wantExit)
			}
		})
	}
}

// TestVarsSnapshot exercises State.Vars alongside go-cmp, ignoring
// attributes a scenario doesn't set so the comparison stays readable.
func TestVarsSnapshot(t *testing.T) {
	t.Parallel()
	fs := vfs.NewMemFS()
	p := syntax.NewParser()
	file, err := p.ParseString(`a=(a b c); x=hi`, t.Name())
	if err != nil {
		t.Fatal(err)
	}
	s := New(fs, command.Builtins(), "/", WithStdio(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}))
	if _, err := s.Run(context.Background(), file); err != nil {
		t.Fatal(err)
	}

	got := s.Vars()
	want := map[string]expand.Variable{
		"x": {Set: true, Kind: expand.String, Str: "hi"},
		"a": {Set: true, Kind: expand.Indexed, List: []string{"a", "b", "c"}},
	}
	opts := cmpopts.IgnoreFields(expand.Variable{}, "Exported", "ReadOnly")
	for _, name := range []string{"x", "a"} {
		if diff := cmp.Diff(want[name], got[name], opts); diff != "" {
			t.Errorf("vars[%s] mismatch (-want +got):\n%s", name, diff)
		}
	}
}
