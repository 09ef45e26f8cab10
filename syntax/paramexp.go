package syntax

import "strings"

// readParamExpBraced reads the body of `${...}`, already past the `$`; the
// lexer sits on the opening '{'.
func (p *Parser) readParamExpBraced(pos Position) WordPart {
	p.lx.advance() // '{'
	pe := &ParamExp{Position: pos}

	if p.lx.peekByte() == '!' && isIndirectionStart(p.lx.peekByteAt(1)) {
		pe.Excl = true
		p.lx.advance()
	}
	if p.lx.peekByte() == '#' && p.lx.peekByteAt(1) != '}' {
		// ${#name} length, unless the whole body is just "${#}" (special
		// param '#', the arg count) which readName below handles too since
		// '#' is also a valid special-param name.
		save := p.lx.i
		p.lx.advance()
		if isNameStart(p.lx.peekByte()) || isSpecialParam(p.lx.peekByte()) || p.lx.peekByte() == '{' {
			pe.Length = true
		} else {
			p.lx.i = save
		}
	}

	pe.Param, pe.Index = p.readParamNameAndIndex()

	if p.lx.peekByte() == '}' {
		p.lx.advance()
		return pe
	}

	p.readParamExpOp(pe)

	if p.lx.eof() || p.lx.peekByte() != '}' {
		p.errorf(pos, "reached %s without closing brace", describeEOF(p.lx))
	}
	p.lx.advance() // '}'
	return pe
}

func describeEOF(l *lexer) string {
	if l.eof() {
		return "EOF"
	}
	return "unexpected byte"
}

func isIndirectionStart(b byte) bool {
	return isNameStart(b) || isSpecialParam(b) || b == '{'
}

// readParamNameAndIndex reads the parameter name (or a special param byte,
// or the `!name` half already consumed by the caller) and an optional
// `[index]` subscript.
func (p *Parser) readParamNameAndIndex() (string, *Word) {
	var name string
	switch {
	case isNameStart(p.lx.peekByte()):
		name = p.lx.readName()
	case isSpecialParam(p.lx.peekByte()):
		name = string(p.lx.advance())
	default:
		return "", nil
	}
	var idx *Word
	if p.lx.peekByte() == '[' {
		p.lx.advance()
		text := p.readBalanced('[', ']', 1)
		p.expectBytes("]")
		sub := NewParser()
		idx, _ = sub.Document(strings.NewReader(text))
	}
	return name, idx
}

// readParamExpOp reads whatever follows the name/index inside ${...}: a
// length was already handled by the caller, so here we handle the
// substring/trim/replace/case/transform/default-value operator families.
func (p *Parser) readParamExpOp(pe *ParamExp) {
	b := p.lx.peekByte()
	switch b {
	case ':':
		n := p.lx.peekByteAt(1)
		if n == '-' || n == '=' || n == '?' || n == '+' {
			p.lx.advance()
			op := string(p.lx.advance())
			pe.Exp = &Expansion{Op: op, Colon: true, Word: p.readParamExpWordUntilBrace()}
			return
		}
		// ${name:offset[:length]}
		p.lx.advance()
		pe.Slice = p.readSliceExp()
	case '-', '=', '?', '+':
		op := string(p.lx.advance())
		pe.Exp = &Expansion{Op: op, Word: p.readParamExpWordUntilBrace()}
	case '#', '%':
		long := false
		p.lx.advance()
		if p.lx.peekByte() == b {
			long = true
			p.lx.advance()
		}
		pe.TrimExp = &TrimExp{Long: long, Suffix: b == '%', Pattern: p.readParamExpWordUntilBrace()}
	case '/':
		p.lx.advance()
		re := &ReplaceExp{}
		switch p.lx.peekByte() {
		case '/':
			re.All = true
			p.lx.advance()
		case '#', '%':
			re.Anchor = p.lx.advance()
		}
		re.Pattern = p.readParamExpWordUntil('/', '}')
		if p.lx.peekByte() == '/' {
			p.lx.advance()
			re.With = p.readParamExpWordUntilBrace()
		} else {
			re.With = &Word{}
		}
		pe.Repl = re
	case '^', ',':
		upper := b == '^'
		all := false
		p.lx.advance()
		if p.lx.peekByte() == b {
			all = true
			p.lx.advance()
		}
		pe.CaseExp = &CaseConvExp{Upper: upper, All: all}
	case '@':
		p.lx.advance()
		if pe.Excl {
			pe.NamesExp = "@"
		} else {
			pe.AtExp = string(p.lx.advance())
		}
	case '*':
		if pe.Excl {
			p.lx.advance()
			pe.NamesExp = "*"
		}
	}
}

func (p *Parser) readSliceExp() *SliceExp {
	text := p.readBalancedStop('}', ':')
	off := p.parseArithmText(text, p.lx.pos())
	se := &SliceExp{Offset: off}
	if p.lx.peekByte() == ':' {
		p.lx.advance()
		lenText := p.readBalancedStop('}', 0)
		se.Length = p.parseArithmText(lenText, p.lx.pos())
	}
	return se
}

// readParamExpWordUntilBrace reads a nested Word whose termination is the
// unescaped, unquoted '}' that closes the enclosing ${...}.
func (p *Parser) readParamExpWordUntilBrace() *Word {
	return p.readNestedWord(func(b byte) bool { return b == '}' })
}

func (p *Parser) readParamExpWordUntil(stops ...byte) *Word {
	return p.readNestedWord(func(b byte) bool {
		for _, s := range stops {
			if b == s {
				return true
			}
		}
		return false
	})
}

// readNestedWord reads word parts (quotes, expansions, literals) until stop
// reports true for the next unquoted byte, without consuming that byte.
func (p *Parser) readNestedWord(stop func(byte) bool) *Word {
	w := &Word{}
	var lit []byte
	litPos := p.lx.pos()
	flush := func() {
		if len(lit) > 0 {
			w.Parts = append(w.Parts, &Lit{Position: litPos, Value: string(lit)})
			lit = nil
		}
	}
	for {
		if p.lx.eof() {
			break
		}
		b := p.lx.peekByte()
		if stop(b) {
			break
		}
		switch b {
		case '\\':
			lit = append(lit, p.lx.advance())
			if !p.lx.eof() {
				lit = append(lit, p.lx.advance())
			}
		case '\'':
			flush()
			w.Parts = append(w.Parts, p.readSingleQuoted())
			litPos = p.lx.pos()
		case '"':
			flush()
			w.Parts = append(w.Parts, p.readDoubleQuoted())
			litPos = p.lx.pos()
		case '`':
			flush()
			w.Parts = append(w.Parts, p.readBackquoted())
			litPos = p.lx.pos()
		case '$':
			flush()
			part := p.readDollar()
			if part != nil {
				w.Parts = append(w.Parts, part)
			}
			litPos = p.lx.pos()
		default:
			lit = append(lit, p.lx.advance())
		}
	}
	flush()
	return w
}

// readBalancedStop reads raw text up to (not including) the first unquoted
// occurrence of end or, if stopAlso is nonzero, stopAlso -- whichever comes
// first, honouring nested [...] subscripts and bracket/paren balance.
func (p *Parser) readBalancedStop(end byte, stopAlso byte) string {
	start := p.lx.i
	depth := 0
	for {
		if p.lx.eof() {
			p.errorf(p.lx.pos(), "reached EOF looking for %q", end)
		}
		b := p.lx.peekByte()
		if depth == 0 && (b == end || (stopAlso != 0 && b == stopAlso)) {
			return p.lx.src[start:p.lx.i]
		}
		switch b {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		}
		p.lx.advance()
	}
}
