package command

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runBuiltin(t *testing.T, reg *Registry, stdin string, argv ...string) Result {
	t.Helper()
	cmd, ok := reg.Lookup(argv[0])
	require.True(t, ok, "command %q not registered", argv[0])
	cctx := Context{Stdin: strings.NewReader(stdin)}
	res, err := cmd.Run(context.Background(), cctx, argv)
	require.NoError(t, err)
	return res
}

func TestBuiltinsRegistered(t *testing.T) {
	reg := Builtins()
	for _, name := range []string{"yes", "seq", "tr", "wc", "rev"} {
		_, ok := reg.Lookup(name)
		assert.True(t, ok, "expected %q to be registered", name)
	}
	_, ok := reg.Lookup("grep")
	assert.False(t, ok, "grep is explicitly out of scope for the reference registry")
}

func TestSeq(t *testing.T) {
	reg := Builtins()
	res := runBuiltin(t, reg, "", "seq", "3")
	assert.Equal(t, "1\n2\n3\n", res.Stdout)
	assert.Zero(t, res.ExitCode)

	res = runBuiltin(t, reg, "", "seq", "2", "5")
	assert.Equal(t, "2\n3\n4\n5\n", res.Stdout)

	res = runBuiltin(t, reg, "", "seq", "1", "2", "6")
	assert.Equal(t, "1\n3\n5\n", res.Stdout)

	res = runBuiltin(t, reg, "", "seq", "1", "0", "5")
	assert.NotZero(t, res.ExitCode)
}

func TestTr(t *testing.T) {
	reg := Builtins()
	res := runBuiltin(t, reg, "abc", "tr", "a-c", "x-z")
	assert.Equal(t, "xyz", res.Stdout)

	res = runBuiltin(t, reg, "hello world", "tr", "-d", "lo")
	assert.Equal(t, "he wrd", res.Stdout)
}

func TestWc(t *testing.T) {
	reg := Builtins()
	res := runBuiltin(t, reg, "hello\n", "wc", "-c")
	assert.Equal(t, "      6\n", res.Stdout)

	res = runBuiltin(t, reg, "one two\nthree\n", "wc", "-l")
	assert.Equal(t, "      2\n", res.Stdout)

	res = runBuiltin(t, reg, "one two\nthree\n", "wc", "-w")
	assert.Equal(t, "      3\n", res.Stdout)
}

func TestRev(t *testing.T) {
	reg := Builtins()
	res := runBuiltin(t, reg, "abc\nxyz\n", "rev")
	assert.Equal(t, "cba\nzyx\n", res.Stdout)
}

func TestYesCapsOutput(t *testing.T) {
	reg := Builtins()
	res := runBuiltin(t, reg, "", "yes", "ok")
	lines := strings.Split(strings.TrimRight(res.Stdout, "\n"), "\n")
	assert.Len(t, lines, yesMaxLines)
	for _, l := range lines {
		assert.Equal(t, "ok", l)
	}
}
