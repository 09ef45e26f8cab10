package syntax

import "strings"

// extglobPrefixes are the operators that, immediately followed by '(',
// introduce an extended glob group (shopt -s extglob). The group's contents
// are kept as literal text: pattern matching against the final expanded
// string (expand step 7, or [[ ]]/case matching) interprets them, not the
// parser.
const extglobPrefixes = "?*+@!"

// readWord reads one word starting at the current lexer position. The
// caller must ensure the position isn't blank/EOF/an operator start.
func (p *Parser) readWord() *Word {
	w := &Word{}
	var buf strings.Builder
	litPos := p.lx.pos()
	flush := func() {
		if buf.Len() > 0 {
			w.Parts = append(w.Parts, &Lit{Position: litPos, Value: buf.String()})
			buf.Reset()
		}
	}
	first := true
	for {
		if p.lx.eof() {
			break
		}
		b := p.lx.peekByte()
		if wordStop(b) {
			// '<(' and '>(' are word parts, not stops; wordStop already
			// treats '<'/'>' as stops, so peel them back here.
			if (b == '<' || b == '>') && p.lx.peekByteAt(1) == '(' {
				// fall through to handling below
			} else {
				break
			}
		}
		switch {
		case b == '\\':
			if p.lx.peekByteAt(1) == '\n' {
				p.lx.advance()
				p.lx.advance()
				continue
			}
			buf.WriteByte(p.lx.advance())
			if !p.lx.eof() {
				buf.WriteByte(p.lx.advance())
			}
		case b == '\'':
			flush()
			w.Parts = append(w.Parts, p.readSingleQuoted())
			litPos = p.lx.pos()
		case b == '"':
			flush()
			w.Parts = append(w.Parts, p.readDoubleQuoted())
			litPos = p.lx.pos()
		case b == '`':
			flush()
			w.Parts = append(w.Parts, p.readBackquoted())
			litPos = p.lx.pos()
		case b == '$':
			flush()
			part := p.readDollar()
			if part != nil {
				w.Parts = append(w.Parts, part)
			}
			litPos = p.lx.pos()
		case (b == '<' || b == '>') && p.lx.peekByteAt(1) == '(':
			flush()
			w.Parts = append(w.Parts, p.readProcSubst(b == '<'))
			litPos = p.lx.pos()
		case strings.IndexByte(extglobPrefixes, b) >= 0 && p.lx.peekByteAt(1) == '(':
			buf.WriteByte(p.lx.advance())
			buf.WriteByte(p.lx.advance())
			depth := 1
			for !p.lx.eof() && depth > 0 {
				c := p.lx.peekByte()
				if c == '(' {
					depth++
				} else if c == ')' {
					depth--
				}
				buf.WriteByte(p.lx.advance())
			}
		default:
			buf.WriteByte(p.lx.advance())
		}
		first = false
		_ = first
	}
	flush()
	return w
}

func (p *Parser) readSingleQuoted() WordPart {
	pos := p.lx.pos()
	p.lx.advance() // '\''
	start := p.lx.i
	for {
		if p.lx.eof() {
			p.errorf(pos, "reached EOF without closing quote '")
		}
		if p.lx.peekByte() == '\'' {
			break
		}
		p.lx.advance()
	}
	val := p.lx.src[start:p.lx.i]
	p.lx.advance() // closing '\''
	return &SglQuoted{Position: pos, Value: val}
}

func (p *Parser) readDoubleQuoted() WordPart {
	pos := p.lx.pos()
	p.lx.advance() // '"'
	d := &DblQuoted{Position: pos}
	var buf strings.Builder
	litPos := p.lx.pos()
	flush := func() {
		if buf.Len() > 0 {
			d.Parts = append(d.Parts, &Lit{Position: litPos, Value: buf.String()})
			buf.Reset()
		}
	}
	for {
		if p.lx.eof() {
			p.errorf(pos, `reached EOF without closing quote "`)
		}
		b := p.lx.peekByte()
		switch b {
		case '"':
			p.lx.advance()
			flush()
			return d
		case '\\':
			n := p.lx.peekByteAt(1)
			if n == '\n' {
				p.lx.advance()
				p.lx.advance()
				continue
			}
			if strings.IndexByte(`$`+"`"+`"\`, n) >= 0 {
				p.lx.advance()
				buf.WriteByte(p.lx.advance())
			} else {
				buf.WriteByte(p.lx.advance())
			}
		case '$':
			flush()
			part := p.readDollar()
			if part != nil {
				d.Parts = append(d.Parts, part)
			}
			litPos = p.lx.pos()
		case '`':
			flush()
			d.Parts = append(d.Parts, p.readBackquoted())
			litPos = p.lx.pos()
		default:
			buf.WriteByte(p.lx.advance())
		}
	}
}

var ansiEscape = map[byte]byte{
	'n': '\n', 't': '\t', 'r': '\r', 'a': 7, 'b': 8, 'f': 12, 'v': 11,
	'e': 27, '\\': '\\', '\'': '\'', '"': '"',
}

func (p *Parser) readAnsiCQuoted() WordPart {
	pos := p.lx.pos()
	p.lx.advance() // '\''
	var buf strings.Builder
	for {
		if p.lx.eof() {
			p.errorf(pos, "reached EOF without closing quote '")
		}
		b := p.lx.peekByte()
		if b == '\'' {
			p.lx.advance()
			break
		}
		if b != '\\' {
			buf.WriteByte(p.lx.advance())
			continue
		}
		p.lx.advance()
		if p.lx.eof() {
			break
		}
		e := p.lx.peekByte()
		if repl, ok := ansiEscape[e]; ok {
			buf.WriteByte(repl)
			p.lx.advance()
			continue
		}
		switch e {
		case '0':
			p.lx.advance()
			n := 0
			for i := 0; i < 3 && p.lx.peekByte() >= '0' && p.lx.peekByte() <= '7'; i++ {
				n = n*8 + int(p.lx.advance()-'0')
			}
			buf.WriteByte(byte(n))
		case 'x':
			p.lx.advance()
			n := 0
			for i := 0; i < 2 && isHex(p.lx.peekByte()); i++ {
				n = n*16 + hexVal(p.lx.advance())
			}
			buf.WriteByte(byte(n))
		case 'u', 'U':
			p.lx.advance()
			max := 4
			if e == 'U' {
				max = 8
			}
			n := 0
			for i := 0; i < max && isHex(p.lx.peekByte()); i++ {
				n = n*16 + hexVal(p.lx.advance())
			}
			buf.WriteRune(rune(n))
		default:
			buf.WriteByte('\\')
			buf.WriteByte(p.lx.advance())
		}
	}
	return &SglQuoted{Position: pos, Dollar: true, Value: buf.String()}
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	default:
		return int(b-'A') + 10
	}
}

// readBackquoted reads `` `...` `` command substitution, honouring the
// POSIX rule that only \\ \` \$ are special inside it.
func (p *Parser) readBackquoted() WordPart {
	pos := p.lx.pos()
	p.lx.advance() // '`'
	var buf strings.Builder
	for {
		if p.lx.eof() {
			p.errorf(pos, "reached EOF without closing backquote")
		}
		b := p.lx.peekByte()
		if b == '`' {
			p.lx.advance()
			break
		}
		if b == '\\' {
			n := p.lx.peekByteAt(1)
			if n == '`' || n == '\\' || n == '$' {
				p.lx.advance()
				buf.WriteByte(p.lx.advance())
				continue
			}
		}
		buf.WriteByte(p.lx.advance())
	}
	sub := NewParser()
	f, err := sub.ParseString(buf.String(), p.name)
	stmts := []*Stmt{}
	if err == nil {
		stmts = f.Stmts
	}
	return &CmdSubst{Position: pos, Backtick: true, Stmts: stmts}
}

// readDollar dispatches on the construct following '$'.
func (p *Parser) readDollar() WordPart {
	pos := p.lx.pos()
	p.lx.advance() // '$'
	if p.lx.eof() {
		return &Lit{Position: pos, Value: "$"}
	}
	b := p.lx.peekByte()
	switch {
	case b == '\'':
		return p.readAnsiCQuoted()
	case b == '(' && p.lx.peekByteAt(1) == '(':
		return p.readArithmExpansion(pos)
	case b == '(':
		return p.readCmdSubstParen(pos)
	case b == '{':
		return p.readParamExpBraced(pos)
	case isNameStart(b):
		name := p.lx.readName()
		return &ParamExp{Position: pos, Short: true, Param: name}
	case isSpecialParam(b):
		p.lx.advance()
		return &ParamExp{Position: pos, Short: true, Param: string(b)}
	default:
		return &Lit{Position: pos, Value: "$"}
	}
}

func (p *Parser) readArithmExpansion(pos Position) WordPart {
	p.lx.advance()
	p.lx.advance() // "(("
	text := p.readBalanced('(', ')', 2)
	p.expectBytes("))")
	expr := p.parseArithmText(text, pos)
	return &ArithmExp{Position: pos, X: expr}
}

func (p *Parser) readCmdSubstParen(pos Position) WordPart {
	p.lx.advance() // '('
	text := p.readBalanced('(', ')', 1)
	p.expectBytes(")")
	sub := NewParser()
	f, err := sub.ParseString(text, p.name)
	stmts := []*Stmt{}
	if err == nil {
		stmts = f.Stmts
	}
	return &CmdSubst{Position: pos, Stmts: stmts}
}

func (p *Parser) readProcSubst(in bool) WordPart {
	pos := p.lx.pos()
	p.lx.advance() // '<' or '>'
	p.lx.advance() // '('
	text := p.readBalanced('(', ')', 1)
	p.expectBytes(")")
	sub := NewParser()
	f, err := sub.ParseString(text, p.name)
	stmts := []*Stmt{}
	if err == nil {
		stmts = f.Stmts
	}
	return &ProcSubst{Position: pos, In: in, Stmts: stmts}
}

// readBalanced consumes bytes up to (but not including) the point where
// depth (initially startDepth, counting '(' as +1 and ')' as -1) returns to
// zero, honouring quoting so that a ')' inside a string literal doesn't
// close the substitution early. It returns the consumed text, minus the
// trailing closers, which the caller consumes separately via expectBytes.
func (p *Parser) readBalanced(open, close byte, startDepth int) string {
	depth := startDepth
	start := p.lx.i
	for depth > 0 {
		if p.lx.eof() {
			p.errorf(p.lx.pos(), "reached EOF while looking for matching %q", close)
		}
		b := p.lx.peekByte()
		switch b {
		case '\'':
			p.lx.advance()
			for !p.lx.eof() && p.lx.peekByte() != '\'' {
				p.lx.advance()
			}
			if !p.lx.eof() {
				p.lx.advance()
			}
			continue
		case '"':
			p.lx.advance()
			for !p.lx.eof() && p.lx.peekByte() != '"' {
				if p.lx.peekByte() == '\\' {
					p.lx.advance()
					if p.lx.eof() {
						break
					}
				}
				p.lx.advance()
			}
			if !p.lx.eof() {
				p.lx.advance()
			}
			continue
		case '\\':
			p.lx.advance()
			if !p.lx.eof() {
				p.lx.advance()
			}
			continue
		case open:
			depth++
		case close:
			depth--
			if depth < startDepth {
				end := p.lx.i
				return p.lx.src[start:end]
			}
		}
		p.lx.advance()
	}
	return p.lx.src[start:p.lx.i]
}

func (p *Parser) expectBytes(s string) {
	for i := 0; i < len(s); i++ {
		if p.lx.eof() || p.lx.peekByte() != s[i] {
			p.errorf(p.lx.pos(), "expected %q", s)
		}
		p.lx.advance()
	}
}
