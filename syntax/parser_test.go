package syntax

import "testing"

func litArgs(t *testing.T, call *CallExpr) []string {
	t.Helper()
	out := make([]string, len(call.Args))
	for i, w := range call.Args {
		lit, ok := w.Lit()
		if !ok {
			t.Fatalf("arg %d is not a bare literal: %+v", i, w)
		}
		out[i] = lit
	}
	return out
}

func TestParseSimpleCommand(t *testing.T) {
	p := NewParser()
	file, err := p.ParseString("echo a b c", t.Name())
	if err != nil {
		t.Fatal(err)
	}
	if len(file.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(file.Stmts))
	}
	call, ok := file.Stmts[0].Cmd.(*CallExpr)
	if !ok {
		t.Fatalf("Cmd is %T, want *CallExpr", file.Stmts[0].Cmd)
	}
	got := litArgs(t, call)
	want := []string{"echo", "a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("args = %v, want %v", got, want)
		}
	}
}

func TestParseStmtDecorations(t *testing.T) {
	p := NewParser()
	file, err := p.ParseString("! true &", t.Name())
	if err != nil {
		t.Fatal(err)
	}
	stmt := file.Stmts[0]
	if !stmt.Negated {
		t.Fatal("expected Negated = true")
	}
	if !stmt.Background {
		t.Fatal("expected Background = true")
	}
}

func TestParsePipeline(t *testing.T) {
	p := NewParser()
	file, err := p.ParseString("echo hi | rev | wc -c", t.Name())
	if err != nil {
		t.Fatal(err)
	}
	pl, ok := file.Stmts[0].Cmd.(*Pipeline)
	if !ok {
		t.Fatalf("Cmd is %T, want *Pipeline", file.Stmts[0].Cmd)
	}
	if len(pl.Stmts) != 3 {
		t.Fatalf("got %d pipeline stages, want 3", len(pl.Stmts))
	}
}

func TestParseIfClause(t *testing.T) {
	p := NewParser()
	file, err := p.ParseString("if true; then echo yes; else echo no; fi", t.Name())
	if err != nil {
		t.Fatal(err)
	}
	ic, ok := file.Stmts[0].Cmd.(*IfClause)
	if !ok {
		t.Fatalf("Cmd is %T, want *IfClause", file.Stmts[0].Cmd)
	}
	if len(ic.CondStmts) == 0 || len(ic.ThenStmts) == 0 || len(ic.ElseStmts) == 0 {
		t.Fatalf("expected non-empty CondStmts/ThenStmts/ElseStmts, got %+v", ic)
	}
}

func TestParseForClause(t *testing.T) {
	p := NewParser()
	file, err := p.ParseString("for i in 1 2 3; do echo $i; done", t.Name())
	if err != nil {
		t.Fatal(err)
	}
	fc, ok := file.Stmts[0].Cmd.(*ForClause)
	if !ok {
		t.Fatalf("Cmd is %T, want *ForClause", file.Stmts[0].Cmd)
	}
	if len(fc.Items) != 3 {
		t.Fatalf("got %d for-items, want 3", len(fc.Items))
	}
}

func TestParseRedirect(t *testing.T) {
	p := NewParser()
	file, err := p.ParseString("echo hi > out.txt", t.Name())
	if err != nil {
		t.Fatal(err)
	}
	stmt := file.Stmts[0]
	if len(stmt.Redirs) != 1 {
		t.Fatalf("got %d redirects, want 1", len(stmt.Redirs))
	}
	lit, ok := stmt.Redirs[0].Word.Lit()
	if !ok || lit != "out.txt" {
		t.Fatalf("redirect target = %q, want out.txt", lit)
	}
}

func TestParseAssignment(t *testing.T) {
	p := NewParser()
	file, err := p.ParseString("x=foo echo hi", t.Name())
	if err != nil {
		t.Fatal(err)
	}
	stmt := file.Stmts[0]
	if len(stmt.Assigns) != 1 {
		t.Fatalf("got %d assignments, want 1", len(stmt.Assigns))
	}
	if stmt.Assigns[0].Name != "x" {
		t.Fatalf("assignment name = %q, want x", stmt.Assigns[0].Name)
	}
}

func TestParseInvalid(t *testing.T) {
	p := NewParser()
	_, err := p.ParseString("if true; then echo hi", t.Name())
	if err == nil {
		t.Fatal("expected a parse error for an unterminated if clause")
	}
}
