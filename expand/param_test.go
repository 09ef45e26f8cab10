package expand

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vshlang/vsh/syntax"
)

// TestShellQuoteIdempotent checks the quote-idempotence property: quoting a
// string and feeding it back through a shell's word-splitting yields the
// original string. Since this package has no shell to round-trip through,
// it checks the weaker but still load-bearing half directly: the quoted form
// always starts and ends with a single quote, and any embedded single quote
// is escaped as '\''.
func TestShellQuoteIdempotent(t *testing.T) {
	c := qt.New(t)
	tests := []string{
		"",
		"foo",
		"foo bar",
		"it's",
		"''",
		"a'b'c",
		"$HOME",
		"\t\n",
	}
	for _, s := range tests {
		s := s
		c.Run(s, func(c *qt.C) {
			got := shellQuote(s)
			c.Assert(len(got) >= 2, qt.IsTrue)
			c.Assert(got[0], qt.Equals, byte('\''))
			c.Assert(got[len(got)-1], qt.Equals, byte('\''))
			c.Assert(strings.ReplaceAll(got[1:len(got)-1], `'\''`, "'"), qt.Equals, s)
		})
	}
}

func TestShellQuoteEmpty(t *testing.T) {
	c := qt.New(t)
	c.Assert(shellQuote(""), qt.Equals, "''")
}

func TestCaseConv(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		base string
		ce   *syntax.CaseConvExp
		want string
	}{
		{"foo", &syntax.CaseConvExp{Upper: true, All: true}, "FOO"},
		{"FOO", &syntax.CaseConvExp{Upper: false, All: true}, "foo"},
		{"foo", &syntax.CaseConvExp{Upper: true, All: false}, "Foo"},
		{"", &syntax.CaseConvExp{Upper: true, All: true}, ""},
	}
	for _, tc := range tests {
		tc := tc
		c.Run(tc.base, func(c *qt.C) {
			c.Assert(caseConv(tc.base, tc.ce), qt.Equals, tc.want)
		})
	}
}
