package syntax

import "strings"

// stmtList parses statements until EOF or stop reports true for the next
// lookahead token (without consuming it). Compound-command bodies pass a
// stop func that matches their closing keyword/operator; the top-level
// Parse call passes nil and relies on EOF alone.
func (p *Parser) stmtList(stop func(lookahead) bool) []*Stmt {
	var stmts []*Stmt
	for {
		p.skipSeparators()
		t := p.peek()
		if t.kind == tEOF {
			break
		}
		if stop != nil && stop(t) {
			break
		}
		s := p.andOrList()
		stmts = append(stmts, s)
		t = p.peek()
		switch {
		case t.kind == tOperator && t.op == Amp:
			p.advance()
			s.Background = true
		case t.kind == tOperator && t.op == Semi:
			p.advance()
		case t.kind == tNewline:
			// consumed by skipSeparators at the top of the next iteration
		default:
			if stop != nil && stop(t) {
				return stmts
			}
			if t.kind == tEOF {
				return stmts
			}
			p.errorf(t.pos, "unexpected token %s, expected end of statement", p.describe(t))
		}
	}
	return stmts
}

func (p *Parser) skipSeparators() {
	for {
		t := p.peek()
		if t.kind == tNewline || (t.kind == tOperator && t.op == Semi) {
			p.advance()
			continue
		}
		break
	}
}

// andOrList parses a chain of pipelines joined by && and ||, left to right.
func (p *Parser) andOrList() *Stmt {
	left := p.pipeline()
	for {
		t := p.peek()
		if t.kind != tOperator || (t.op != AndAnd && t.op != OrOr) {
			return left
		}
		p.advance()
		p.skipNewlines()
		right := p.pipeline()
		left = &Stmt{Position: left.Position, Cmd: &BinaryCmd{Position: t.pos, Op: t.op, X: left, Y: right}}
	}
}

// pipeline parses one or more commands joined by '|'/'|&', with an optional
// leading '!' negation.
func (p *Parser) pipeline() *Stmt {
	negated := false
	for p.peekIsWord("!") {
		p.advance()
		negated = !negated
	}
	pos := p.peek().pos
	first := p.commandStmt()
	var chain []*Stmt
	chain = append(chain, first)
	for {
		t := p.peek()
		if t.kind != tOperator || (t.op != Pipe && t.op != PipeAmp) {
			break
		}
		pipeAmp := t.op == PipeAmp
		p.advance()
		p.skipNewlines()
		if pipeAmp {
			last := chain[len(chain)-1]
			last.Redirs = append(last.Redirs, &Redirect{
				Position: t.pos, Op: RedirDupOut, N: "2",
				Word: &Word{Parts: []WordPart{&Lit{Value: "1"}}},
			})
		}
		chain = append(chain, p.commandStmt())
	}
	var result *Stmt
	if len(chain) == 1 {
		result = chain[0]
	} else {
		result = &Stmt{Position: pos, Cmd: &Pipeline{Position: pos, Stmts: chain}}
	}
	if negated {
		result.Negated = !result.Negated
	}
	return result
}

// commandStmt parses one command: leading assignment/redirection prefixes,
// the command body (simple or compound), and trailing redirections.
func (p *Parser) commandStmt() *Stmt {
	pos := p.peek().pos
	stmt := &Stmt{Position: pos}

	for {
		if r, ok := p.tryRedirect(); ok {
			stmt.Redirs = append(stmt.Redirs, r)
			continue
		}
		if a, ok := p.tryAssign(); ok {
			stmt.Assigns = append(stmt.Assigns, a)
			continue
		}
		break
	}

	if cmd := p.tryCompoundCommand(); cmd != nil {
		stmt.Cmd = cmd
		for {
			r, ok := p.tryRedirect()
			if !ok {
				break
			}
			stmt.Redirs = append(stmt.Redirs, r)
		}
		return stmt
	}

	t := p.peek()
	if t.kind != tWord {
		if len(stmt.Assigns) > 0 || len(stmt.Redirs) > 0 {
			return stmt
		}
		p.errorf(t.pos, "unexpected token %s, expected command", p.describe(t))
	}

	call := &CallExpr{}
	for {
		t := p.peek()
		if r, ok := p.tryRedirect(); ok {
			stmt.Redirs = append(stmt.Redirs, r)
			continue
		}
		if t.kind != tWord {
			break
		}
		p.advance()
		call.Args = append(call.Args, t.word)
	}
	stmt.Cmd = call
	return stmt
}

// redirOpFor maps an operator token to the RedirOperator it introduces, for
// the (small) set of operators that always mean a redirection.
func redirOpFor(k TokenKind) (RedirOperator, bool) {
	switch k {
	case Rdr:
		return RedirRdr, true
	case Wdr:
		return RedirWdr, true
	case Append:
		return RedirAppend, true
	case RdrAll:
		return RedirRdrAll, true
	case AppAll:
		return RedirAppAll, true
	case DupOut:
		return RedirDupOut, true
	case ClobOut:
		return RedirClobOut, true
	case DplIn:
		return RedirDplIn, true
	case RdrIn:
		return RedirRdrIn, true
	case Hdoc:
		return RedirHdoc, true
	case HdocDash:
		return RedirHdocDash, true
	case HdocStr:
		return RedirHdocStr, true
	}
	return 0, false
}

// tryRedirect consumes one redirection if the lookahead starts one: an
// optional adjacent fd-number word, then a redirection operator, then its
// target word.
func (p *Parser) tryRedirect() (*Redirect, bool) {
	t := p.peek()
	var n string
	opTok := t
	if t.kind == tWord && t.lit != "" && isFdNumber(t.lit) {
		next := p.peekN(1)
		if next.kind == tOperator && !next.blankBefore {
			if _, ok := redirOpFor(next.op); ok {
				n = t.lit
				p.advance()
				opTok = p.peek()
			}
		}
	}
	op, ok := redirOpFor(opTok.op)
	if opTok.kind != tOperator || !ok {
		return nil, false
	}
	p.advance()
	r := &Redirect{Position: opTok.pos, Op: op, N: n}
	wt := p.peek()
	if wt.kind != tWord {
		p.errorf(opTok.pos, "expected word after redirection operator %s", opTok.op)
	}
	p.advance()
	r.Word = wt.word
	if op == RedirHdoc || op == RedirHdocDash {
		p.lx.pendingHeredocs = append(p.lx.pendingHeredocs, r)
	}
	return r, true
}

func isFdNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// tryAssign consumes a leading `name=value`, `name+=value`, or
// `name=(elems...)` prefix, if the next word starts with a valid
// assignment target.
func (p *Parser) tryAssign() (*Assign, bool) {
	t := p.peek()
	if t.kind != tWord || len(t.word.Parts) == 0 {
		return nil, false
	}
	lit, ok := t.word.Parts[0].(*Lit)
	if !ok {
		return nil, false
	}
	name, isAppend, idx, rest, ok := splitAssignLit(lit.Value)
	if !ok {
		return nil, false
	}
	p.advance()
	a := &Assign{Position: t.pos, Name: name, Append: isAppend}
	if idx != "" {
		sub := NewParser()
		a.Index, _ = sub.Document(strings.NewReader(idx))
	}
	var parts []WordPart
	if rest != "" {
		parts = append(parts, &Lit{Value: rest})
	}
	parts = append(parts, t.word.Parts[1:]...)
	if len(parts) == 0 && p.peekIsOp(Lparen) {
		p.advance()
		a.Array = p.readArrayElems()
		return a, true
	}
	if len(parts) == 0 {
		a.Naked = true
	}
	a.Value = &Word{Parts: parts}
	return a, true
}

func splitAssignLit(s string) (name string, isAppend bool, idx string, rest string, ok bool) {
	if len(s) == 0 || !isNameStart(s[0]) {
		return
	}
	i := 1
	for i < len(s) && isNameByte(s[i]) {
		i++
	}
	name = s[:i]
	if i < len(s) && s[i] == '[' {
		j := strings.IndexByte(s[i:], ']')
		if j < 0 {
			return "", false, "", "", false
		}
		idx = s[i+1 : i+j]
		i = i + j + 1
	}
	switch {
	case i+1 < len(s) && s[i] == '+' && s[i+1] == '=':
		isAppend = true
		i += 2
	case i < len(s) && s[i] == '=':
		i++
	default:
		return "", false, "", "", false
	}
	rest = s[i:]
	ok = true
	return
}

func (p *Parser) readArrayElems() []*ArrayElem {
	var elems []*ArrayElem
	for {
		p.skipNewlines()
		t := p.peek()
		if t.kind == tOperator && t.op == Rparen {
			p.advance()
			break
		}
		if t.kind == tEOF {
			p.errorf(t.pos, "reached EOF looking for matching ')'")
			break
		}
		if t.kind != tWord {
			p.errorf(t.pos, "unexpected token in array literal")
		}
		p.advance()
		idxText, rest, isIdx := splitArrayElemIndex(t.word)
		el := &ArrayElem{}
		if isIdx {
			sub := NewParser()
			el.Index, _ = sub.Document(strings.NewReader(idxText))
			el.Value = &Word{Parts: rest}
		} else {
			el.Value = t.word
		}
		elems = append(elems, el)
	}
	return elems
}

func splitArrayElemIndex(w *Word) (string, []WordPart, bool) {
	if len(w.Parts) == 0 {
		return "", nil, false
	}
	lit, ok := w.Parts[0].(*Lit)
	if !ok || len(lit.Value) == 0 || lit.Value[0] != '[' {
		return "", nil, false
	}
	j := strings.IndexByte(lit.Value, ']')
	if j < 0 || j+1 >= len(lit.Value) || lit.Value[j+1] != '=' {
		return "", nil, false
	}
	idx := lit.Value[1:j]
	rest := lit.Value[j+2:]
	var parts []WordPart
	if rest != "" {
		parts = append(parts, &Lit{Value: rest})
	}
	parts = append(parts, w.Parts[1:]...)
	return idx, parts, true
}
