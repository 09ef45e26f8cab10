package expand

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/vshlang/vsh/pattern"
	"github.com/vshlang/vsh/syntax"
)

func mustCompileCached(re string) *regexp.Regexp {
	return regexp.MustCompile(re)
}

func stripFlagPrefix(s string) string {
	if i := strings.Index(s, ")"); i >= 0 && strings.HasPrefix(s, "(?") {
		return s[i+1:]
	}
	return s
}

// arrayElems reports whether pe is exactly `$@`/`${arr[@]}`/`${arr[*]}`, and
// if so returns every element. Quoted "$@" splicing (distinct fields, each
// preserved verbatim) is handled by the caller in expand.go; this just
// supplies the element list.
func (c *Config) arrayElems(ctx context.Context, pe *syntax.ParamExp) ([]string, bool) {
	if pe.Excl || pe.Length {
		return nil, false
	}
	idx := indexLit(pe.Index)
	if pe.Param == "@" || pe.Param == "*" {
		vr := c.Env.Get(pe.Param)
		if vr.Kind == Indexed {
			return []string(vr.List), true
		}
		return nil, false
	}
	if idx != "@" && idx != "*" {
		return nil, false
	}
	vr := c.Env.Get(pe.Param)
	switch vr.Kind {
	case Indexed:
		return []string(vr.List), true
	case Associative:
		keys := sortedKeys(vr.Map)
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = vr.Map[k]
		}
		return out, true
	}
	return nil, false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexLit(w *syntax.Word) string {
	if w == nil {
		return ""
	}
	lit, _ := w.Lit()
	return lit
}

// ParamExp evaluates any `$name`/`${...}` form to its scalar string value
// (spec.md §4.3 step 3). Array-splicing forms ($@, ${arr[@]}) collapse to
// their IFS-joined form here; callers that need the distinct-field behavior
// of quoted "$@" should check arrayElems first.
func (c *Config) ParamExp(ctx context.Context, pe *syntax.ParamExp) string {
	if pe.NamesExp != "" {
		return c.namesExp(pe)
	}
	if pe.Excl && pe.Index == nil && pe.Slice == nil && pe.Repl == nil &&
		pe.Exp == nil && pe.TrimExp == nil && pe.CaseExp == nil && pe.AtExp == "" {
		// ${!var}: indirection. Resolve the name stored in var, then look
		// that variable up.
		target := c.Env.Get(pe.Param).String()
		if target == "" {
			return ""
		}
		return c.paramValue(ctx, target, nil)
	}

	if c.NoUnset && pe.Exp == nil && !c.paramIsSet(pe) && !isSpecialParam(pe.Param) {
		c.failUnset(fmt.Sprintf("%s: unbound variable", pe.Param))
	}

	base := c.paramValue(ctx, pe.Param, pe.Index)

	if pe.Length {
		// arrayElems declines Length forms, so ask it about ${arr[@]} itself.
		whole := *pe
		whole.Length = false
		if elems, ok := c.arrayElems(ctx, &whole); ok {
			return strconv.Itoa(len(elems))
		}
		return strconv.Itoa(len([]rune(base)))
	}

	switch {
	case pe.Slice != nil:
		return c.sliceExp(ctx, base, pe.Slice)
	case pe.TrimExp != nil:
		return c.trimExp(ctx, base, pe.TrimExp)
	case pe.Repl != nil:
		return c.replExp(ctx, base, pe.Repl)
	case pe.Exp != nil:
		return c.expansionOp(ctx, pe, base)
	case pe.CaseExp != nil:
		return caseConv(base, pe.CaseExp)
	case pe.AtExp != "":
		return c.atExp(base, pe.AtExp)
	}
	return base
}

func (c *Config) paramValue(ctx context.Context, name string, index *syntax.Word) string {
	if isPositionalDigits(name) {
		return c.Env.Get(name).String()
	}
	vr := c.Env.Get(name)
	_, vr = vr.Resolve(c.Env)
	if index == nil {
		return vr.String()
	}
	idxLit := indexLit(index)
	switch vr.Kind {
	case Indexed:
		i, err := strconv.Atoi(strings.TrimSpace(idxLit))
		if err != nil {
			// allow arithmetic subscripts like arr[i+1]
			n, aerr := c.Arithm(ctx, parseIndexArith(index))
			if aerr != nil {
				return ""
			}
			i = int(n)
		}
		if i < 0 {
			i += len(vr.List)
		}
		if i < 0 || i >= len(vr.List) {
			return ""
		}
		return vr.List[i]
	case Associative:
		return vr.Map[idxLit]
	default:
		if idxLit == "0" {
			return vr.String()
		}
		return ""
	}
}

func parseIndexArith(w *syntax.Word) syntax.ArithmExpr {
	lit, _ := w.Lit()
	return &syntax.ArithmWord{W: &syntax.Word{Parts: []syntax.WordPart{&syntax.Lit{Value: lit}}}}
}

func isPositionalDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (c *Config) namesExp(pe *syntax.ParamExp) string {
	var names []string
	c.Env.Each(func(name string, vr Variable) bool {
		if strings.HasPrefix(name, pe.Param) && vr.Declared() {
			names = append(names, name)
		}
		return true
	})
	sort.Strings(names)
	if pe.NamesExp == "*" {
		return strings.Join(names, c.ifsFirst())
	}
	return strings.Join(names, " ")
}

func (c *Config) ifsFirst() string {
	ifs := c.ifs()
	if ifs == "" {
		return ""
	}
	return ifs[:1]
}

func (c *Config) sliceExp(ctx context.Context, base string, sl *syntax.SliceExp) string {
	runes := []rune(base)
	n := len(runes)
	off64, err := c.Arithm(ctx, sl.Offset)
	if err != nil {
		return ""
	}
	off := int(off64)
	if off < 0 {
		off += n
	}
	if off < 0 {
		off = 0
	}
	if off > n {
		return ""
	}
	end := n
	if sl.Length != nil {
		len64, err := c.Arithm(ctx, sl.Length)
		if err != nil {
			return ""
		}
		l := int(len64)
		if l < 0 {
			end = n + l
		} else {
			end = off + l
		}
	}
	if end > n {
		end = n
	}
	if end < off {
		return ""
	}
	return string(runes[off:end])
}

func (c *Config) trimExp(ctx context.Context, base string, te *syntax.TrimExp) string {
	pat := c.Pattern(ctx, te.Pattern)
	if pat == "" {
		return base
	}
	mode := pattern.Mode(0)
	if c.NoCase {
		mode |= pattern.NoCase
	}
	if te.Suffix {
		return trimSide(base, pat, mode, true, te.Long)
	}
	return trimSide(base, pat, mode, false, te.Long)
}

func trimSide(base, pat string, mode pattern.Mode, suffix, longest bool) string {
	// Try shrinking/growing candidate slices from the appropriate end,
	// anchoring the pattern against the whole candidate substring.
	n := len(base)
	re, err := pattern.Regexp(pat, mode|pattern.EntireString)
	if err != nil {
		return base
	}
	rx := mustCompileCached(re)
	try := func(cand string) bool {
		return rx.MatchString(cand)
	}
	if !suffix {
		bestEnd := -1
		if longest {
			for end := n; end >= 0; end-- {
				if try(base[:end]) {
					bestEnd = end
					break
				}
			}
		} else {
			for end := 0; end <= n; end++ {
				if try(base[:end]) {
					bestEnd = end
					break
				}
			}
		}
		if bestEnd < 0 {
			return base
		}
		return base[bestEnd:]
	}
	bestStart := -1
	if longest {
		for start := 0; start <= n; start++ {
			if try(base[start:]) {
				bestStart = start
				break
			}
		}
	} else {
		for start := n; start >= 0; start-- {
			if try(base[start:]) {
				bestStart = start
				break
			}
		}
	}
	if bestStart < 0 {
		return base
	}
	return base[:bestStart]
}

func (c *Config) replExp(ctx context.Context, base string, r *syntax.ReplaceExp) string {
	pat := c.Pattern(ctx, r.Pattern)
	with := ""
	if r.With != nil {
		with = c.Literal(ctx, r.With)
	}
	if pat == "" {
		return base
	}
	mode := pattern.Mode(0)
	if c.NoCase {
		mode |= pattern.NoCase
	}
	re, err := pattern.Regexp(pat, mode)
	if err != nil {
		return base
	}
	re = stripFlagPrefix(re)
	switch r.Anchor {
	case '#':
		re = "^(?:" + re + ")"
	case '%':
		re = "(?:" + re + ")$"
	}
	rx := mustCompileCached("(?s)" + re)
	if r.All {
		return rx.ReplaceAllString(base, escapeRepl(with))
	}
	loc := rx.FindStringIndex(base)
	if loc == nil {
		return base
	}
	return base[:loc[0]] + with + base[loc[1]:]
}

func escapeRepl(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

func (c *Config) expansionOp(ctx context.Context, pe *syntax.ParamExp, base string) string {
	e := pe.Exp
	isUnset := !c.paramIsSet(pe)
	useAlt := e.Colon && base == "" || isUnset
	switch e.Op {
	case "-":
		if useAlt {
			return c.Literal(ctx, e.Word)
		}
		return base
	case "=":
		if useAlt {
			v := c.Literal(ctx, e.Word)
			if err := c.Env.Set(pe.Param, Variable{Set: true, Kind: String, Str: v}); err != nil {
				c.fail(err.Error())
			}
			return v
		}
		return base
	case "?":
		if useAlt {
			msg := c.Literal(ctx, e.Word)
			if msg == "" {
				msg = "parameter null or not set"
			}
			c.fail(fmt.Sprintf("%s: %s", pe.Param, msg))
			return ""
		}
		return base
	case "+":
		if useAlt {
			return ""
		}
		return c.Literal(ctx, e.Word)
	default:
		return base
	}
}

func (c *Config) paramIsSet(pe *syntax.ParamExp) bool {
	return c.Env.Get(pe.Param).IsSet()
}

// isSpecialParam reports whether name is one of the always-set special
// parameters ($?, $@, positional digits, ...), which `set -u` never flags
// even when e.g. there are no positional parameters.
func isSpecialParam(name string) bool {
	switch name {
	case "?", "$", "!", "0", "_", "#", "@", "*":
		return true
	}
	return isPositionalDigits(name)
}

func caseConv(base string, ce *syntax.CaseConvExp) string {
	convert := strings.ToUpper
	if !ce.Upper {
		convert = strings.ToLower
	}
	if base == "" {
		return base
	}
	if !ce.All {
		r := []rune(base)
		return convert(string(r[0])) + string(r[1:])
	}
	return convert(base)
}

func (c *Config) atExp(base string, op string) string {
	switch op {
	case "Q":
		return shellQuote(base)
	case "E":
		return decodeAnsiCEscapes(base)
	case "P":
		return base // minimal: no prompt escape sequences recognized
	case "a":
		return "" // attribute flags: no declare-style attribute string tracked here
	case "U":
		return strings.ToUpper(base)
	case "L":
		return strings.ToLower(base)
	default:
		return base
	}
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			sb.WriteString(`'\''`)
		} else {
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

func decodeAnsiCEscapes(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				sb.WriteByte('\n')
				i++
				continue
			case 't':
				sb.WriteByte('\t')
				i++
				continue
			case 'r':
				sb.WriteByte('\r')
				i++
				continue
			case '\\':
				sb.WriteByte('\\')
				i++
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
