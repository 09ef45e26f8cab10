package expand

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

var splitIFSTests = []struct {
	val  string
	ifs  string
	want []string
}{
	{"", " \t\n", nil},
	{"   ", " \t\n", nil},
	{"foo", " \t\n", []string{"foo"}},
	{"foo bar", " \t\n", []string{"foo", "bar"}},
	{"  foo   bar  ", " \t\n", []string{"foo", "bar"}},
	{"foo\tbar\nbaz", " \t\n", []string{"foo", "bar", "baz"}},
	{"a::b", ":", []string{"a", "", "b"}},
	{"a:b:", ":", []string{"a", "b", ""}},
	{":a", ":", []string{"", "a"}},
	{"::", ":", []string{"", "", ""}},
	{"a: b", ": ", []string{"a", "b"}},
	{"foo", "", []string{"foo"}},
	{"", "", nil},
}

func TestSplitIFS(t *testing.T) {
	c := qt.New(t)
	for _, tc := range splitIFSTests {
		tc := tc
		c.Run(tc.val+"/"+tc.ifs, func(c *qt.C) {
			got := splitIFS(tc.val, tc.ifs)
			c.Assert(got, qt.DeepEquals, tc.want)
		})
	}
}
