package syntax

import "strings"

// arithmParser is a small recursive-descent, precedence-climbing parser for
// the C-like arithmetic sub-language used by $(( )), (( )), array
// subscripts and C-style for loops. It works over a separate byte cursor
// rather than the shared lexer because its input has already been sliced
// out (and balance-checked for quotes/parens) by the caller.
type arithmParser struct {
	p   *Parser
	src string
	i   int
	pos Position
}

// parseArithmText parses a complete arithmetic expression out of text,
// which was already extracted verbatim by the caller (readBalanced et al).
// Nested `$(...)`/`` ` ` ``/`$var` forms inside text are re-entered through
// the owning Parser so command and parameter expansion still apply.
func (p *Parser) parseArithmText(text string, pos Position) ArithmExpr {
	ap := &arithmParser{p: p, src: text, pos: pos}
	ap.skipSpace()
	if ap.eof() {
		return &ArithmWord{W: &Word{}}
	}
	expr := ap.parseExpr()
	ap.skipSpace()
	if !ap.eof() {
		p.errorf(pos, "unexpected input in arithmetic expression: %q", ap.src[ap.i:])
	}
	return expr
}

func (a *arithmParser) eof() bool { return a.i >= len(a.src) }

func (a *arithmParser) peek() byte {
	if a.eof() {
		return 0
	}
	return a.src[a.i]
}

func (a *arithmParser) peekAt(off int) byte {
	if a.i+off >= len(a.src) {
		return 0
	}
	return a.src[a.i+off]
}

func (a *arithmParser) skipSpace() {
	for !a.eof() && (a.src[a.i] == ' ' || a.src[a.i] == '\t' || a.src[a.i] == '\n') {
		a.i++
	}
}

func (a *arithmParser) hasPrefix(s string) bool {
	return strings.HasPrefix(a.src[a.i:], s)
}

// parseExpr parses the full comma-separated, assignment-level expression.
func (a *arithmParser) parseExpr() ArithmExpr {
	x := a.parseAssign()
	a.skipSpace()
	for a.hasPrefix(",") {
		a.i++
		y := a.parseAssign()
		x = &ArithmBinary{Position: a.pos, Op: ",", X: x, Y: y}
		a.skipSpace()
	}
	return x
}

var assignOps = []string{"+=", "-=", "*=", "/=", "%=", "<<=", ">>=", "&=", "|=", "^=", "="}

func (a *arithmParser) parseAssign() ArithmExpr {
	x := a.parseTernary()
	a.skipSpace()
	for _, op := range assignOps {
		if op == "=" && a.hasPrefix("==") {
			continue
		}
		if a.hasPrefix(op) {
			a.i += len(op)
			y := a.parseAssign()
			return &ArithmAssign{Position: a.pos, Op: op, X: x, Y: y}
		}
	}
	return x
}

func (a *arithmParser) parseTernary() ArithmExpr {
	cond := a.parseLogOr()
	a.skipSpace()
	if a.peek() == '?' {
		a.i++
		then := a.parseAssign()
		a.skipSpace()
		if a.peek() != ':' {
			a.p.errorf(a.pos, "expected ':' in ternary arithmetic expression")
		}
		a.i++
		els := a.parseAssign()
		return &ArithmCond{Position: a.pos, Cond: cond, Then: then, Else: els}
	}
	return cond
}

// binLevel is one precedence level of left-associative binary operators.
type binLevel struct {
	ops []string
}

var binLevels = []binLevel{
	{[]string{"||"}},
	{[]string{"&&"}},
	{[]string{"|"}},
	{[]string{"^"}},
	{[]string{"&"}},
	{[]string{"==", "!="}},
	{[]string{"<=", ">=", "<", ">"}},
	{[]string{"<<", ">>"}},
	{[]string{"+", "-"}},
	{[]string{"*", "/", "%"}},
}

func (a *arithmParser) parseLogOr() ArithmExpr { return a.parseBinLevel(0) }

func (a *arithmParser) parseBinLevel(level int) ArithmExpr {
	if level == len(binLevels) {
		return a.parsePow()
	}
	x := a.parseBinLevel(level + 1)
	for {
		a.skipSpace()
		op, ok := a.matchAnyOp(binLevels[level].ops)
		if !ok {
			return x
		}
		y := a.parseBinLevel(level + 1)
		x = &ArithmBinary{Position: a.pos, Op: op, X: x, Y: y}
	}
}

// matchAnyOp tries each candidate (longest match wins within ties by list
// order, so callers list 2-byte variants before their 1-byte prefixes where
// relevant) and avoids misclassifying compound-assignment/`=='` lookalikes.
func (a *arithmParser) matchAnyOp(ops []string) (string, bool) {
	for _, op := range ops {
		if !a.hasPrefix(op) {
			continue
		}
		// Don't let '<' swallow the start of '<=' etc. handled by list
		// ordering; but guard against e.g. matching '=' style ops here,
		// since this helper is only used for comparison/bitwise/shift ops.
		if op == "&" && a.peekAt(1) == '&' {
			continue
		}
		if op == "|" && a.peekAt(1) == '|' {
			continue
		}
		if (op == "<" || op == ">") && a.peekAt(1) == op[0] {
			continue
		}
		if a.peekAt(len(op)) == '=' {
			compound := false
			for _, aop := range assignOps {
				compound = compound || aop == op+"="
			}
			if compound {
				continue
			}
		}
		a.i += len(op)
		return op, true
	}
	return "", false
}

func (a *arithmParser) parsePow() ArithmExpr {
	x := a.parseUnary()
	a.skipSpace()
	if a.hasPrefix("**") {
		a.i += 2
		y := a.parsePow()
		return &ArithmBinary{Position: a.pos, Op: "**", X: x, Y: y}
	}
	return x
}

func (a *arithmParser) parseUnary() ArithmExpr {
	a.skipSpace()
	switch {
	case a.hasPrefix("++"):
		a.i += 2
		x := a.parseUnary()
		return &ArithmUnary{Position: a.pos, Op: "++", X: x}
	case a.hasPrefix("--"):
		a.i += 2
		x := a.parseUnary()
		return &ArithmUnary{Position: a.pos, Op: "--", X: x}
	case a.peek() == '+', a.peek() == '-', a.peek() == '!', a.peek() == '~':
		op := string(a.peek())
		a.i++
		x := a.parseUnary()
		return &ArithmUnary{Position: a.pos, Op: op, X: x}
	}
	return a.parsePostfix()
}

func (a *arithmParser) parsePostfix() ArithmExpr {
	x := a.parsePrimary()
	a.skipSpace()
	switch {
	case a.hasPrefix("++"):
		a.i += 2
		return &ArithmUnary{Position: a.pos, Op: "++", Post: true, X: x}
	case a.hasPrefix("--"):
		a.i += 2
		return &ArithmUnary{Position: a.pos, Op: "--", Post: true, X: x}
	}
	return x
}

func (a *arithmParser) parsePrimary() ArithmExpr {
	a.skipSpace()
	if a.eof() {
		a.p.errorf(a.pos, "reached end of arithmetic expression, expected operand")
	}
	if a.peek() == '(' {
		a.i++
		x := a.parseExpr()
		a.skipSpace()
		if a.peek() != ')' {
			a.p.errorf(a.pos, "expected ')' in arithmetic expression")
		}
		a.i++
		return x
	}
	// A bare name, number, or anything expandable ($var, $(...), etc.) is
	// read the same way the word grammar reads a word, so arithmetic text
	// can freely embed expansions; parsing stops at an operator byte or a
	// closing paren/comma/question/colon.
	start := a.i
	depth := 0
	for !a.eof() {
		b := a.peek()
		if depth == 0 && (b == ')' || b == ',' || b == '?' || b == ':' || b == ' ' || b == '\t') {
			break
		}
		if depth == 0 && isArithmOpByte(b) && a.i > start {
			break
		}
		if b == '(' {
			depth++
		} else if b == ')' {
			depth--
		}
		a.i++
	}
	text := a.src[start:a.i]
	if text == "" {
		a.p.errorf(a.pos, "expected operand in arithmetic expression")
	}
	sub := NewParser()
	w, err := sub.Document(strings.NewReader(text))
	if err != nil || w == nil {
		w = &Word{Parts: []WordPart{&Lit{Value: text}}}
	}
	return &ArithmWord{W: w}
}

func isArithmOpByte(b byte) bool {
	switch b {
	case '+', '-', '*', '/', '%', '=', '<', '>', '!', '&', '|', '^', '~':
		return true
	}
	return false
}
