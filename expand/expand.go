package expand

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/vshlang/vsh/pattern"
	"github.com/vshlang/vsh/syntax"
)

type fieldPart struct {
	val   string
	quote bool // originated inside double quotes (or single quotes / $'')
}

// Literal expands word to a single string, as if every part were inside
// double quotes: no word splitting, no globbing. Used for the right-hand
// side of assignments, case patterns' subject, etc.
func (c *Config) Literal(ctx context.Context, word *syntax.Word) string {
	if word == nil {
		return ""
	}
	parts := c.wordField(ctx, word.Parts, true)
	return joinParts(parts)
}

// Pattern expands word the way a glob/case pattern needs: quoted sections
// are escaped so their contents match literally once compiled.
func (c *Config) Pattern(ctx context.Context, word *syntax.Word) string {
	if word == nil {
		return ""
	}
	parts := c.wordField(ctx, word.Parts, true)
	var sb strings.Builder
	for _, p := range parts {
		if p.quote {
			sb.WriteString(pattern.QuoteMeta(p.val))
		} else {
			sb.WriteString(p.val)
		}
	}
	return sb.String()
}

func joinParts(parts []fieldPart) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.val)
	}
	return sb.String()
}

// Fields runs the full eight-step pipeline over one or more words, as it
// applies to a simple command's argv or similarly split context.
func (c *Config) Fields(ctx context.Context, words ...*syntax.Word) []string {
	var out []string
	for _, w := range words {
		for _, brWord := range Braces(w) {
			out = append(out, c.expandOneField(ctx, brWord)...)
		}
	}
	return out
}

func (c *Config) expandOneField(ctx context.Context, word *syntax.Word) []string {
	fields := c.wordFields(ctx, word.Parts)
	var out []string
	for _, field := range fields {
		pat, isGlob := c.globCandidate(field)
		if isGlob && !c.NoGlob {
			matches := c.globMatch(pat)
			if len(matches) > 0 {
				out = append(out, matches...)
				continue
			}
			if c.FailGlob {
				c.fail("no match: " + pat)
				continue
			}
			if c.NullGlob {
				continue
			}
		}
		out = append(out, joinParts(field))
	}
	return out
}

// globCandidate builds the pattern text for a field (quoted runs escaped so
// they can't act as glob metacharacters) and reports whether the result
// actually contains metacharacters worth matching.
func (c *Config) globCandidate(field []fieldPart) (string, bool) {
	var sb strings.Builder
	meta := false
	for _, p := range field {
		if p.quote {
			sb.WriteString(pattern.QuoteMeta(p.val))
			continue
		}
		sb.WriteString(p.val)
		if pattern.HasMeta(p.val) {
			meta = true
		}
	}
	return sb.String(), meta
}

func (c *Config) globMatch(pat string) []string {
	mode := pattern.Filenames
	if c.NoCase {
		mode |= pattern.NoCase
	}
	segs := strings.Split(strings.TrimPrefix(pat, "/"), "/")
	abs := strings.HasPrefix(pat, "/")
	dirs := []string{"/"}
	if !abs {
		dirs = []string{c.CWD}
	}
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		if seg == "**" && c.GlobStar {
			dirs = c.expandGlobStar(dirs)
			continue
		}
		var next []string
		dotAllowed := c.DotGlob || strings.HasPrefix(seg, ".")
		if !pattern.HasMeta(seg) {
			for _, d := range dirs {
				c.checkGlobOp()
				candidate := joinPath(d, seg)
				if c.FS.Exists(candidate) {
					next = append(next, candidate)
				}
			}
			dirs = next
			continue
		}
		re, err := pattern.Regexp(seg, mode|pattern.EntireString)
		if err != nil {
			return nil
		}
		rx := mustCompileCached(re)
		for _, d := range dirs {
			c.checkGlobOp()
			names, err := c.FS.Readdir(d)
			if err != nil {
				continue
			}
			sort.Strings(names)
			for _, name := range names {
				if !dotAllowed && strings.HasPrefix(name, ".") {
					continue
				}
				if rx.MatchString(name) {
					next = append(next, joinPath(d, name))
				}
			}
		}
		dirs = next
	}
	sort.Strings(dirs)
	return dirs
}

func (c *Config) expandGlobStar(dirs []string) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(string)
	walk = func(d string) {
		if seen[d] {
			return
		}
		seen[d] = true
		out = append(out, d)
		c.checkGlobOp()
		names, err := c.FS.Readdir(d)
		if err != nil {
			return
		}
		for _, name := range names {
			if !c.DotGlob && strings.HasPrefix(name, ".") {
				continue
			}
			child := joinPath(d, name)
			c.checkGlobOp()
			info, err := c.FS.Stat(child)
			if err == nil && info.IsDir {
				walk(child)
			}
		}
	}
	for _, d := range dirs {
		walk(d)
	}
	return out
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// wordField expands word parts without word splitting (quoted context).
func (c *Config) wordField(ctx context.Context, parts []syntax.WordPart, quoted bool) []fieldPart {
	var field []fieldPart
	for i, wp := range parts {
		switch x := wp.(type) {
		case *syntax.Lit:
			s := x.Value
			if i == 0 && !quoted {
				s = c.expandTilde(s)
			}
			s = unescapeLit(s, quoted)
			field = append(field, fieldPart{val: s, quote: quoted})
		case *syntax.SglQuoted:
			val := x.Value
			if x.Dollar {
				val = decodeAnsiCEscapes(val)
			}
			field = append(field, fieldPart{val: val, quote: true})
		case *syntax.DblQuoted:
			field = append(field, c.wordField(ctx, x.Parts, true)...)
		case *syntax.ParamExp:
			field = append(field, fieldPart{val: c.ParamExp(ctx, x), quote: quoted})
		case *syntax.CmdSubst:
			field = append(field, fieldPart{val: c.cmdSubst(ctx, x), quote: quoted})
		case *syntax.ArithmExp:
			n, err := c.Arithm(ctx, x.X)
			if err != nil {
				c.fail(err.Error())
			}
			field = append(field, fieldPart{val: strconv.FormatInt(n, 10), quote: quoted})
		case *syntax.ProcSubst:
			field = append(field, fieldPart{val: c.procSubst(ctx, x), quote: quoted})
		}
	}
	return field
}

// wordFields expands word parts with IFS-based splitting applied to the
// unquoted segments (spec.md §4.3 step 6), preserving "$@"/${arr[@]} as
// distinct fields.
func (c *Config) wordFields(ctx context.Context, parts []syntax.WordPart) [][]fieldPart {
	var fields [][]fieldPart
	var cur []fieldPart
	sawQuote := false
	flush := func() {
		if len(cur) > 0 {
			fields = append(fields, cur)
			cur = nil
		}
	}
	splitAdd := func(val string, quote bool) {
		if quote {
			cur = append(cur, fieldPart{val: val, quote: true})
			return
		}
		for i, f := range splitIFS(val, c.ifs()) {
			if i > 0 {
				flush()
			}
			cur = append(cur, fieldPart{val: f})
		}
	}
	for i, wp := range parts {
		switch x := wp.(type) {
		case *syntax.Lit:
			s := x.Value
			if i == 0 {
				s = c.expandTilde(s)
			}
			s = unescapeLit(s, false)
			splitAdd(s, false)
		case *syntax.SglQuoted:
			sawQuote = true
			val := x.Value
			if x.Dollar {
				val = decodeAnsiCEscapes(val)
			}
			cur = append(cur, fieldPart{val: val, quote: true})
		case *syntax.DblQuoted:
			sawQuote = true
			if len(x.Parts) == 1 {
				if pe, ok := x.Parts[0].(*syntax.ParamExp); ok {
					if elems, ok := c.arrayElems(ctx, pe); ok {
						for i, e := range elems {
							if i > 0 {
								flush()
							}
							cur = append(cur, fieldPart{val: e, quote: true})
						}
						continue
					}
				}
			}
			cur = append(cur, c.wordField(ctx, x.Parts, true)...)
		case *syntax.ParamExp:
			if elems, ok := c.arrayElems(ctx, x); ok {
				splitAdd(strings.Join(elems, c.ifsFirst()), false)
				continue
			}
			splitAdd(c.ParamExp(ctx, x), false)
		case *syntax.CmdSubst:
			splitAdd(c.cmdSubst(ctx, x), false)
		case *syntax.ArithmExp:
			n, err := c.Arithm(ctx, x.X)
			if err != nil {
				c.fail(err.Error())
			}
			cur = append(cur, fieldPart{val: strconv.FormatInt(n, 10)})
		case *syntax.ProcSubst:
			cur = append(cur, fieldPart{val: c.procSubst(ctx, x)})
		}
	}
	flush()
	if sawQuote && len(fields) == 0 {
		fields = append(fields, cur)
	}
	return fields
}

// splitIFS implements POSIX field splitting (spec.md §4.3 step 6): runs of
// IFS whitespace (space, tab, newline, whichever of those appear in ifs)
// collapse into one delimiter and are trimmed from both ends, but every
// occurrence of a non-whitespace IFS character delimits a field on its own,
// producing an empty field when two of them are adjacent (or one borders
// the start/end of val). A single strings.FieldsFunc can't express both
// rules at once, since it collapses and drops empty fields unconditionally.
func splitIFS(val, ifs string) []string {
	var wsChars, nonWsChars []rune
	for _, r := range ifs {
		switch r {
		case ' ', '\t', '\n':
			wsChars = append(wsChars, r)
		default:
			nonWsChars = append(nonWsChars, r)
		}
	}
	isWS := func(r rune) bool {
		for _, w := range wsChars {
			if r == w {
				return true
			}
		}
		return false
	}
	isNonWS := func(r rune) bool {
		for _, w := range nonWsChars {
			if r == w {
				return true
			}
		}
		return false
	}

	runes := []rune(val)
	n := len(runes)
	i := 0
	for i < n && isWS(runes[i]) {
		i++
	}
	if i >= n {
		return nil
	}

	var fields []string
	var cur []rune
	pending := true
	for i < n {
		r := runes[i]
		switch {
		case isNonWS(r):
			fields = append(fields, string(cur))
			cur = nil
			pending = true
			i++
			for i < n && isWS(runes[i]) {
				i++
			}
		case isWS(r):
			fields = append(fields, string(cur))
			cur = nil
			pending = false
			for i < n && isWS(runes[i]) {
				i++
			}
		default:
			cur = append(cur, r)
			pending = true
			i++
		}
	}
	if pending {
		fields = append(fields, string(cur))
	}
	return fields
}

func (c *Config) cmdSubst(ctx context.Context, cs *syntax.CmdSubst) string {
	if c.CmdSubst == nil {
		return ""
	}
	out, exit, err := c.CmdSubst(ctx, cs.Stmts)
	if err != nil {
		c.failCallback(err)
		return ""
	}
	c.lastExit = exit
	return strings.TrimRight(out, "\n")
}

func (c *Config) procSubst(ctx context.Context, ps *syntax.ProcSubst) string {
	if c.ProcSubst == nil {
		return ""
	}
	path, err := c.ProcSubst(ctx, ps)
	if err != nil {
		c.failCallback(err)
		return ""
	}
	return path
}

// unescapeLit resolves the backslash escapes left in a Lit's raw text by the
// lexer (quote removal, spec.md §4.3 step 8, deferred this far so earlier
// steps can still see the original characters).
func unescapeLit(s string, quoted bool) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '\\' && i+1 < len(s) {
			n := s[i+1]
			if quoted {
				switch n {
				case '"', '\\', '$', '`':
					i++
					b = n
				case '\n':
					i++
					continue
				}
			} else {
				i++
				b = n
			}
		}
		sb.WriteByte(b)
	}
	return sb.String()
}
