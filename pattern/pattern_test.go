package pattern

import (
	"errors"
	"regexp"
	"testing"

	qt "github.com/frankban/quicktest"
)

var regexpTests = []struct {
	pat          string
	mode         Mode
	want         string
	mustMatch    []string
	mustNotMatch []string
}{
	{pat: ``, want: `(?s)`},
	{pat: `foo`, want: `(?s)foo`},
	{pat: `*`, want: `(?s).*`},
	{pat: `*`, mode: Filenames, want: `(?s)[^/]*`},
	{
		pat: `foo*`, mode: EntireString,
		mustMatch:    []string{"foo", "foobar"},
		mustNotMatch: []string{"barfoo"},
	},
	{
		pat: `*.go`, mode: Filenames | EntireString,
		mustMatch:    []string{"main.go"},
		mustNotMatch: []string{"main.go.bak", "a/b.go"},
	},
	{
		pat: `[abc]`, mode: EntireString,
		mustMatch:    []string{"a", "b", "c"},
		mustNotMatch: []string{"d", ""},
	},
	{
		pat: `[!abc]`, mode: EntireString,
		mustMatch:    []string{"d"},
		mustNotMatch: []string{"a"},
	},
	{
		pat: `FOO`, mode: NoCase | EntireString,
		mustMatch: []string{"foo", "FOO", "Foo"},
	},
}

func TestRegexp(t *testing.T) {
	c := qt.New(t)
	for _, tc := range regexpTests {
		tc := tc
		c.Run(tc.pat, func(c *qt.C) {
			got, err := Regexp(tc.pat, tc.mode)
			c.Assert(err, qt.IsNil)
			if tc.want != "" {
				c.Assert(got, qt.Equals, tc.want)
			}
			re, err := regexp.Compile(got)
			c.Assert(err, qt.IsNil)
			for _, s := range tc.mustMatch {
				c.Assert(re.MatchString(s), qt.Equals, true,
					qt.Commentf("%q should match %q", s, got))
			}
			for _, s := range tc.mustNotMatch {
				c.Assert(re.MatchString(s), qt.Equals, false,
					qt.Commentf("%q should not match %q", s, got))
			}
		})
	}
}

func TestHasMeta(t *testing.T) {
	c := qt.New(t)
	c.Assert(HasMeta("foo"), qt.Equals, false)
	c.Assert(HasMeta("foo*"), qt.Equals, true)
	c.Assert(HasMeta("foo?"), qt.Equals, true)
	c.Assert(HasMeta("[abc]"), qt.Equals, true)
	c.Assert(HasMeta(`foo\*`), qt.Equals, false)
	c.Assert(HasMeta("@(a|b)"), qt.Equals, true)
}

func TestQuoteMeta(t *testing.T) {
	c := qt.New(t)
	got := QuoteMeta("a*b?c")
	c.Assert(HasMeta(got), qt.Equals, false)
	re, err := Regexp(got, EntireString)
	c.Assert(err, qt.IsNil)
	matched, err := regexp.MatchString(re, "a*b?c")
	c.Assert(err, qt.IsNil)
	c.Assert(matched, qt.Equals, true)
}

func TestInvalidPattern(t *testing.T) {
	c := qt.New(t)
	_, err := Regexp("[abc", EntireString)
	c.Assert(err, qt.Not(qt.IsNil))
	var se *SyntaxError
	c.Assert(errors.As(err, &se), qt.Equals, true)
}
