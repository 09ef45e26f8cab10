package expand

import (
	"strconv"
	"strings"

	"github.com/vshlang/vsh/syntax"
)

// Braces performs brace expansion (spec.md §4.3 step 1) on a word, returning
// one word per alternative. It is purely textual and only looks at words
// made up entirely of literal parts -- a word containing an expansion
// (`${x}{a,b}`) is returned unexpanded, since at that point in the pipeline
// its non-literal parts have no string value yet. Malformed or unmatched
// braces are left literal rather than rejected.
func Braces(word *syntax.Word) []*syntax.Word {
	lit, ok := word.Lit()
	if !ok {
		return []*syntax.Word{word}
	}
	alts := expandBraceText(lit)
	out := make([]*syntax.Word, len(alts))
	for i, s := range alts {
		out[i] = &syntax.Word{Parts: []syntax.WordPart{&syntax.Lit{Value: s}}}
	}
	return out
}

func expandBraceText(s string) []string {
	group, ok := findBraceGroup(s)
	if !ok {
		return []string{s}
	}
	prefix, body, suffix := s[:group.start], s[group.start+1:group.end], s[group.end+1:]
	if seq, ok := parseSequence(body); ok {
		return combineBraceAlts(prefix, seq, suffix)
	}
	if items, ok := splitTopComma(body); ok {
		return combineBraceAlts(prefix, items, suffix)
	}
	// Not a valid comma-list or sequence: the braces stay literal, but
	// whatever real groups sit inside body or after suffix still expand.
	var out []string
	for _, b := range expandBraceText(body) {
		for _, sf := range expandBraceText(suffix) {
			out = append(out, prefix+"{"+b+"}"+sf)
		}
	}
	return out
}

func combineBraceAlts(prefix string, mid []string, suffix string) []string {
	suffixAlts := expandBraceText(suffix)
	out := make([]string, 0, len(mid)*len(suffixAlts))
	for _, m := range mid {
		for _, sf := range suffixAlts {
			out = append(out, prefix+m+sf)
		}
	}
	return out
}

type braceSpan struct{ start, end int }

// findBraceGroup locates the first top-level {...} group (by depth, not by
// validity), skipping anything nested once a group is found so the caller
// recurses from the outside in.
func findBraceGroup(s string) (braceSpan, bool) {
	start := -1
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return braceSpan{start, i}, true
				}
			}
		}
	}
	return braceSpan{}, false
}

// splitTopComma splits body on ',' at brace depth 0. Returns ok=false (no
// expansion) if there is no top-level comma at all, matching bash's rule
// that `{foo}` with no comma or range is left literal.
func splitTopComma(body string) ([]string, bool) {
	depth := 0
	start := 0
	var parts []string
	found := false
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
				found = true
			}
		}
	}
	if !found {
		return nil, false
	}
	parts = append(parts, body[start:])
	return parts, true
}

// parseSequence recognizes `{1..5}`, `{a..e}`, `{01..03}` (zero-padded),
// and `{1..9..2}` (step).
func parseSequence(body string) ([]string, bool) {
	fields := strings.Split(body, "..")
	if len(fields) != 2 && len(fields) != 3 {
		return nil, false
	}
	step := 1
	if len(fields) == 3 {
		n, err := strconv.Atoi(fields[2])
		if err != nil || n == 0 {
			return nil, false
		}
		step = n
	}
	from, to := fields[0], fields[1]

	if isInt(from) && isInt(to) {
		return expandNumericSeq(from, to, step)
	}
	if len(from) == 1 && len(to) == 1 && isAlpha(from[0]) && isAlpha(to[0]) {
		return expandAlphaSeq(from[0], to[0], step), true
	}
	return nil, false
}

func isInt(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '-' || s[0] == '+' {
		i++
	}
	if i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func expandNumericSeq(fromS, toS string, step int) ([]string, bool) {
	from, err1 := strconv.Atoi(fromS)
	to, err2 := strconv.Atoi(toS)
	if err1 != nil || err2 != nil {
		return nil, false
	}
	width := 0
	if hasZeroPad(fromS) || hasZeroPad(toS) {
		width = len(strings.TrimPrefix(fromS, "-"))
		if w := len(strings.TrimPrefix(toS, "-")); w > width {
			width = w
		}
	}
	if from > to && step > 0 {
		step = -step
	} else if from < to && step < 0 {
		step = -step
	}
	var out []string
	if step > 0 {
		for v := from; v <= to; v += step {
			out = append(out, padInt(v, width))
		}
	} else {
		for v := from; v >= to; v += step {
			out = append(out, padInt(v, width))
		}
	}
	return out, true
}

func hasZeroPad(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0'
}

func padInt(v, width int) string {
	s := strconv.Itoa(v)
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimPrefix(s, "-")
	for len(digits) < width {
		digits = "0" + digits
	}
	if neg {
		return "-" + digits
	}
	return digits
}

func expandAlphaSeq(from, to byte, step int) []string {
	var out []string
	if step == 0 {
		step = 1
	}
	if from <= to {
		if step < 0 {
			step = -step
		}
		for c := int(from); c <= int(to); c += step {
			out = append(out, string(rune(c)))
		}
	} else {
		if step > 0 {
			step = -step
		}
		for c := int(from); c >= int(to); c += step {
			out = append(out, string(rune(c)))
		}
	}
	return out
}
