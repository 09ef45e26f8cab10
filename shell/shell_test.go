package shell

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/vshlang/vsh/vfs"
)

func strEnviron(pairs ...string) func(string) string {
	return func(name string) string {
		prefix := name + "="
		for _, pair := range pairs {
			if val := strings.TrimPrefix(pair, prefix); val != pair {
				return val
			}
		}
		return ""
	}
}

var expandTests = []struct {
	in   string
	env  func(name string) string
	want string
}{
	{"foo", nil, "foo"},
	{"\nfoo\n", nil, "\nfoo\n"},
	{"a-$b-c", nil, "a--c"},
	{"a-$b-c", strEnviron(), "a--c"},
	{"a-$b-c", strEnviron("b=b_val"), "a-b_val-c"},
	{"${x//o/a}", strEnviron("x=foo"), "faa"},
	{"*.go", nil, "*.go"},
	{"~", nil, ""},
	{"~", strEnviron("HOME=/my/home"), "/my/home"},
}

func TestExpand(t *testing.T) {
	for i := range expandTests {
		t.Run(fmt.Sprintf("%02d", i), func(t *testing.T) {
			tc := expandTests[i]
			t.Parallel()
			got, err := Expand(tc.in, tc.env)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("\nwant: %q\ngot:  %q", tc.want, got)
			}
		})
	}
}

func TestUnexpectedCmdSubst(t *testing.T) {
	t.Parallel()
	_, err := Expand("echo $(uname -a)", nil)
	if err == nil {
		t.Fatal("expected a command-substitution error, got none")
	}
}

var fieldsTests = []struct {
	in   string
	env  func(name string) string
	want []string
}{
	{"foo", nil, []string{"foo"}},
	{"foo bar", nil, []string{"foo", "bar"}},
	{"foo 'bar baz'", nil, []string{"foo", "bar baz"}},
	{"echo $x", strEnviron("x=foo bar"), []string{"echo", "foo", "bar"}},
	{`echo "$x"`, strEnviron("x=foo bar"), []string{"echo", "foo bar"}},
	{"echo $x", strEnviron("x=a::b", "IFS=:"), []string{"echo", "a", "", "b"}},
	{"echo $x", strEnviron("x=a:b:", "IFS=:"), []string{"echo", "a", "b", ""}},
	{"echo $x", strEnviron("x= a  b ", "IFS= "), []string{"echo", "a", "b"}},
}

func TestFields(t *testing.T) {
	for i := range fieldsTests {
		t.Run(fmt.Sprintf("%02d", i), func(t *testing.T) {
			tc := fieldsTests[i]
			t.Parallel()
			got, err := Fields(tc.in, tc.env)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("\nwant: %q\ngot:  %q", tc.want, got)
			}
		})
	}
}

func TestRun(t *testing.T) {
	t.Parallel()
	fs := vfs.NewMemFS()
	vars, res, err := Run(context.Background(), `x=hi; echo "$x" world`, "/", fs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", res.ExitCode)
	}
	vr, ok := vars["x"]
	if !ok || vr.String() != "hi" {
		t.Fatalf("vars[x] = %+v, want hi", vr)
	}
}

func TestRunScript(t *testing.T) {
	t.Parallel()
	fs := vfs.NewMemFS()
	if err := fs.WriteFile("/script.sh", []byte("echo hello")); err != nil {
		t.Fatal(err)
	}
	_, res, err := RunScript(context.Background(), "/script.sh", "/", fs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", res.ExitCode)
	}
}
