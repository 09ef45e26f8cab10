package expand

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vshlang/vsh/syntax"
)

// maxArithVarDepth bounds re-evaluating a variable whose value is itself an
// arithmetic expression (spec.md §4.3 step 5).
const maxArithVarDepth = 64

type arithState struct {
	cfg   *Config
	ctx   context.Context
	depth int
}

// Arithm evaluates a `$(( ... ))` / `(( ... ))` expression tree over 64-bit
// signed integers.
func (c *Config) Arithm(ctx context.Context, x syntax.ArithmExpr) (int64, error) {
	st := &arithState{cfg: c, ctx: ctx}
	return st.eval(x)
}

func (st *arithState) eval(n syntax.ArithmExpr) (int64, error) {
	switch x := n.(type) {
	case *syntax.ArithmWord:
		return st.evalWord(x.W)
	case *syntax.ArithmBinary:
		return st.evalBinary(x)
	case *syntax.ArithmUnary:
		return st.evalUnary(x)
	case *syntax.ArithmAssign:
		return st.evalAssign(x)
	case *syntax.ArithmCond:
		cond, err := st.eval(x.Cond)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return st.eval(x.Then)
		}
		return st.eval(x.Else)
	default:
		return 0, fmt.Errorf("arith: unhandled expression %T", n)
	}
}

func (st *arithState) evalWord(w *syntax.Word) (int64, error) {
	if lit, ok := w.Lit(); ok {
		return st.evalOperand(lit)
	}
	s := st.cfg.Literal(st.ctx, w)
	return st.evalOperand(s)
}

func (st *arithState) evalOperand(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, ok := parseArithNumber(s); ok {
		return n, nil
	}
	if isIdentifier(s) {
		if st.depth >= maxArithVarDepth {
			return 0, fmt.Errorf("arith: variable re-evaluation depth exceeded at %q", s)
		}
		val := st.cfg.Env.Get(s).String()
		st.depth++
		defer func() { st.depth-- }()
		return st.evalOperand(val)
	}
	return 0, fmt.Errorf("arith: invalid token %q", s)
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return len(s) > 0
}

func parseArithNumber(s string) (int64, bool) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg, s = true, s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	var n int64
	var err error
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		n, err = strconv.ParseInt(s[2:], 16, 64)
	case len(s) > 1 && s[0] == '0':
		n, err = strconv.ParseInt(s, 8, 64)
	default:
		n, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func (st *arithState) varName(x syntax.ArithmExpr) (string, error) {
	aw, ok := x.(*syntax.ArithmWord)
	if !ok {
		return "", fmt.Errorf("arith: not an lvalue")
	}
	name, ok := aw.W.Lit()
	if !ok || !isIdentifier(name) {
		return "", fmt.Errorf("arith: not an lvalue")
	}
	return name, nil
}

func (st *arithState) setVar(name string, v int64) error {
	return st.cfg.Env.Set(name, Variable{Set: true, Exported: false, Kind: String, Str: strconv.FormatInt(v, 10)})
}

func (st *arithState) evalUnary(x *syntax.ArithmUnary) (int64, error) {
	switch x.Op {
	case "++", "--":
		name, err := st.varName(x.X)
		if err != nil {
			return 0, err
		}
		cur, err := st.eval(x.X)
		if err != nil {
			return 0, err
		}
		delta := int64(1)
		if x.Op == "--" {
			delta = -1
		}
		next := cur + delta
		if err := st.setVar(name, next); err != nil {
			return 0, err
		}
		if x.Post {
			return cur, nil
		}
		return next, nil
	}
	v, err := st.eval(x.X)
	if err != nil {
		return 0, err
	}
	switch x.Op {
	case "-":
		return -v, nil
	case "+":
		return v, nil
	case "!":
		if v == 0 {
			return 1, nil
		}
		return 0, nil
	case "~":
		return ^v, nil
	default:
		return 0, fmt.Errorf("arith: unknown unary operator %q", x.Op)
	}
}

func (st *arithState) evalAssign(x *syntax.ArithmAssign) (int64, error) {
	name, err := st.varName(x.X)
	if err != nil {
		return 0, err
	}
	rhs, err := st.eval(x.Y)
	if err != nil {
		return 0, err
	}
	var result int64
	if x.Op == "=" {
		result = rhs
	} else {
		cur, err := st.eval(x.X)
		if err != nil {
			return 0, err
		}
		op := strings.TrimSuffix(x.Op, "=")
		result, err = applyBinOp(op, cur, rhs)
		if err != nil {
			return 0, err
		}
	}
	if err := st.setVar(name, result); err != nil {
		return 0, err
	}
	return result, nil
}

func (st *arithState) evalBinary(x *syntax.ArithmBinary) (int64, error) {
	switch x.Op {
	case ",":
		if _, err := st.eval(x.X); err != nil {
			return 0, err
		}
		return st.eval(x.Y)
	case "&&":
		l, err := st.eval(x.X)
		if err != nil {
			return 0, err
		}
		if l == 0 {
			return 0, nil
		}
		r, err := st.eval(x.Y)
		if err != nil {
			return 0, err
		}
		if r != 0 {
			return 1, nil
		}
		return 0, nil
	case "||":
		l, err := st.eval(x.X)
		if err != nil {
			return 0, err
		}
		if l != 0 {
			return 1, nil
		}
		r, err := st.eval(x.Y)
		if err != nil {
			return 0, err
		}
		if r != 0 {
			return 1, nil
		}
		return 0, nil
	}
	l, err := st.eval(x.X)
	if err != nil {
		return 0, err
	}
	r, err := st.eval(x.Y)
	if err != nil {
		return 0, err
	}
	return applyBinOp(x.Op, l, r)
}

func applyBinOp(op string, l, r int64) (int64, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, fmt.Errorf("arith: division by zero")
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, fmt.Errorf("arith: division by zero")
		}
		return l % r, nil
	case "**":
		return intPow(l, r), nil
	case "==":
		return boolInt(l == r), nil
	case "!=":
		return boolInt(l != r), nil
	case "<":
		return boolInt(l < r), nil
	case "<=":
		return boolInt(l <= r), nil
	case ">":
		return boolInt(l > r), nil
	case ">=":
		return boolInt(l >= r), nil
	case "&":
		return l & r, nil
	case "|":
		return l | r, nil
	case "^":
		return l ^ r, nil
	case "<<":
		return l << uint64(r), nil
	case ">>":
		return l >> uint64(r), nil
	default:
		return 0, fmt.Errorf("arith: unknown operator %q", op)
	}
}

func intPow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	var result int64 = 1
	for i := int64(0); i < exp; i++ {
		result *= base
	}
	return result
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
