package syntax

// tryCompoundCommand recognizes and parses any compound command or function
// declaration starting at the current position, returning nil if none
// matches (the caller then falls back to simple-command parsing).
func (p *Parser) tryCompoundCommand() Command {
	switch {
	case p.peekIsOp(Lparen):
		if p.isArithCmdStart() {
			return p.parseArithmCmd()
		}
		return p.parseSubshell()
	case p.peekIsWord("{"):
		return p.parseBlock()
	case p.peekIsWord("if"):
		return p.parseIf()
	case p.peekIsWord("while"):
		return p.parseWhileUntil(false)
	case p.peekIsWord("until"):
		return p.parseWhileUntil(true)
	case p.peekIsWord("for"):
		return p.parseFor(false)
	case p.peekIsWord("select"):
		return p.parseFor(true)
	case p.peekIsWord("case"):
		return p.parseCase()
	case p.peekIsWord("[["):
		return p.parseTestClause()
	case p.peekIsWord("function"):
		return p.parseFuncDeclKeyword()
	}
	if fd := p.tryFuncDeclNoKeyword(); fd != nil {
		return fd
	}
	return nil
}

func stopAtWords(words ...string) func(lookahead) bool {
	return func(t lookahead) bool {
		if t.kind != tWord || t.lit == "" {
			return false
		}
		for _, w := range words {
			if t.lit == w {
				return true
			}
		}
		return false
	}
}

func (p *Parser) isArithCmdStart() bool {
	t0 := p.peek()
	if t0.kind != tOperator || t0.op != Lparen {
		return false
	}
	t1 := p.peekN(1)
	return t1.kind == tOperator && t1.op == Lparen && !t1.blankBefore
}

func (p *Parser) parseArithmCmd() Command {
	pos := p.peek().pos
	p.advance()
	p.advance()
	text := p.readBalanced('(', ')', 2)
	p.expectBytes("))")
	return &ArithmCmd{Position: pos, X: p.parseArithmText(text, pos)}
}

func (p *Parser) parseSubshell() Command {
	pos := p.peek().pos
	p.advance() // '('
	stmts := p.stmtList(func(t lookahead) bool { return t.kind == tOperator && t.op == Rparen })
	if !p.peekIsOp(Rparen) {
		p.errorf(pos, "reached %s without matching ')'", p.describe(p.peek()))
	}
	p.advance()
	return &Subshell{Position: pos, Stmts: stmts}
}

func (p *Parser) parseBlock() Command {
	pos := p.peek().pos
	p.advance() // '{'
	stmts := p.stmtList(stopAtWords("}"))
	if !p.peekIsWord("}") {
		p.errorf(pos, "reached %s without matching '}'", p.describe(p.peek()))
	}
	p.advance()
	return &Block{Position: pos, Stmts: stmts}
}

func (p *Parser) parseIf() Command {
	pos := p.peek().pos
	p.advance() // 'if'
	c := &IfClause{Position: pos}
	c.CondStmts = p.stmtList(stopAtWords("then"))
	p.expectWord("then")
	c.ThenStmts = p.stmtList(stopAtWords("elif", "else", "fi"))
	for p.peekIsWord("elif") {
		p.advance()
		e := &Elif{}
		e.CondStmts = p.stmtList(stopAtWords("then"))
		p.expectWord("then")
		e.ThenStmts = p.stmtList(stopAtWords("elif", "else", "fi"))
		c.Elifs = append(c.Elifs, e)
	}
	if p.peekIsWord("else") {
		p.advance()
		c.ElseStmts = p.stmtList(stopAtWords("fi"))
	}
	p.expectWord("fi")
	return c
}

func (p *Parser) parseWhileUntil(until bool) Command {
	pos := p.peek().pos
	p.advance() // 'while'/'until'
	w := &WhileClause{Position: pos, Until: until}
	w.CondStmts = p.stmtList(stopAtWords("do"))
	p.expectWord("do")
	w.DoStmts = p.stmtList(stopAtWords("done"))
	p.expectWord("done")
	return w
}

func (p *Parser) parseFor(sel bool) Command {
	pos := p.peek().pos
	p.advance() // 'for'/'select'
	f := &ForClause{Position: pos, Select: sel}

	if p.isArithCmdStart() {
		f.CStyle = true
		p.advance()
		p.advance()
		text := p.readBalanced('(', ')', 2)
		p.expectBytes("))")
		initS, condS, postS := splitForClauses(text)
		if initS != "" {
			f.Init = p.parseArithmText(initS, pos)
		}
		if condS != "" {
			f.Cond = p.parseArithmText(condS, pos)
		}
		if postS != "" {
			f.Post = p.parseArithmText(postS, pos)
		}
	} else {
		nt := p.peek()
		if nt.kind != tWord || nt.lit == "" {
			p.errorf(nt.pos, "expected name after 'for'")
		}
		p.advance()
		f.Name = nt.lit
		if p.peekIsWord("in") {
			p.advance()
			for {
				t := p.peek()
				if t.kind != tWord {
					break
				}
				p.advance()
				f.Items = append(f.Items, t.word)
			}
		}
	}
	p.skipSeparators()
	p.expectWord("do")
	f.DoStmts = p.stmtList(stopAtWords("done"))
	p.expectWord("done")
	return f
}

// splitForClauses splits the raw "init;cond;post" text of a C-style for
// header on its two top-level semicolons.
func splitForClauses(text string) (string, string, string) {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				parts = append(parts, trimSpace(text[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, trimSpace(text[start:]))
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}

func trimSpace(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t' || s[j-1] == '\n') {
		j--
	}
	return s[i:j]
}

func (p *Parser) parseCase() Command {
	pos := p.peek().pos
	p.advance() // 'case'
	wt := p.peek()
	if wt.kind != tWord {
		p.errorf(wt.pos, "expected word after 'case'")
	}
	p.advance()
	c := &CaseClause{Position: pos, Word: wt.word}
	p.skipNewlines()
	p.expectWord("in")
	p.skipSeparators()
	for !p.peekIsWord("esac") {
		if p.peek().kind == tEOF {
			p.errorf(pos, "reached EOF without matching 'esac'")
		}
		item := &CaseItem{}
		if p.peekIsOp(Lparen) {
			p.advance()
		}
		for {
			t := p.peek()
			if t.kind != tWord {
				p.errorf(t.pos, "expected case pattern")
			}
			p.advance()
			item.Patterns = append(item.Patterns, t.word)
			if p.peekIsOp(Pipe) {
				p.advance()
				continue
			}
			break
		}
		if !p.peekIsOp(Rparen) {
			p.errorf(p.peek().pos, "expected ')' after case pattern")
		}
		p.advance()
		item.Stmts = p.stmtList(func(t lookahead) bool {
			if t.kind == tOperator && (t.op == DblSemi || t.op == SemiAnd || t.op == DblSemiAnd) {
				return true
			}
			return t.kind == tWord && t.lit == "esac"
		})
		switch {
		case p.peekIsOp(DblSemi):
			item.Term = CaseBreak
			p.advance()
		case p.peekIsOp(SemiAnd):
			item.Term = CaseFallthrough
			p.advance()
		case p.peekIsOp(DblSemiAnd):
			item.Term = CaseContinueMatch
			p.advance()
		default:
			item.Term = CaseBreak
		}
		c.Items = append(c.Items, item)
		p.skipSeparators()
	}
	p.expectWord("esac")
	return c
}

func (p *Parser) expectWord(w string) {
	if !p.peekIsWord(w) {
		p.errorf(p.peek().pos, "expected %q, found %s", w, p.describe(p.peek()))
	}
	p.advance()
}

func (p *Parser) parseFuncDeclKeyword() Command {
	pos := p.peek().pos
	p.advance() // 'function'
	nt := p.peek()
	if nt.kind != tWord || nt.lit == "" {
		p.errorf(nt.pos, "expected function name")
	}
	p.advance()
	if p.peekIsOp(Lparen) {
		p.advance()
		if p.peekIsOp(Rparen) {
			p.advance()
		}
	}
	p.skipNewlines()
	body := p.commandStmt()
	return &FuncDecl{Position: pos, Name: nt.lit, Body: body}
}

// tryFuncDeclNoKeyword recognizes `name() body` with no leading 'function'.
func (p *Parser) tryFuncDeclNoKeyword() Command {
	t0 := p.peek()
	if t0.kind != tWord || t0.lit == "" || !isValidFuncName(t0.lit) {
		return nil
	}
	t1 := p.peekN(1)
	if t1.kind != tOperator || t1.op != Lparen {
		return nil
	}
	t2 := p.peekN(2)
	if t2.kind != tOperator || t2.op != Rparen {
		return nil
	}
	pos := t0.pos
	p.advance()
	p.advance()
	p.advance()
	p.skipNewlines()
	body := p.commandStmt()
	return &FuncDecl{Position: pos, Name: t0.lit, Body: body}
}

func isValidFuncName(s string) bool {
	if s == "" || !isNameStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameByte(s[i]) {
			return false
		}
	}
	if _, reserved := reservedWords[s]; reserved {
		return false
	}
	return true
}
