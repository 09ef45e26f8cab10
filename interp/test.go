package interp

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vshlang/vsh/expand"
	"github.com/vshlang/vsh/pattern"
	"github.com/vshlang/vsh/syntax"
)

// evalTest evaluates the boolean-expression language inside `[[ ... ]]`
// (spec.md §4.4's TestClause), returning its truth value.
func (s *State) evalTest(ctx context.Context, x syntax.TestExpr) (bool, error) {
	switch t := x.(type) {
	case *syntax.TestParen:
		return s.evalTest(ctx, t.X)
	case *syntax.TestWord:
		lit, err := s.expandLiteral(ctx, t.W)
		if err != nil {
			return false, err
		}
		return lit != "", nil
	case *syntax.TestUnary:
		return s.evalTestUnary(ctx, t)
	case *syntax.TestBinary:
		return s.evalTestBinary(ctx, t)
	default:
		return false, fmt.Errorf("unsupported test expression %T", x)
	}
}

func (s *State) evalTestUnary(ctx context.Context, t *syntax.TestUnary) (bool, error) {
	if t.Op == "!" {
		v, err := s.evalTest(ctx, t.X)
		if err != nil {
			return false, err
		}
		return !v, nil
	}
	word, ok := t.X.(*syntax.TestWord)
	if !ok {
		return false, fmt.Errorf("unary test operator %s needs a plain operand", t.Op)
	}
	operand, err := s.expandLiteral(ctx, word.W)
	if err != nil {
		return false, err
	}
	switch t.Op {
	case "-z":
		return operand == "", nil
	case "-n":
		return operand != "", nil
	case "-v":
		return s.Environ().Get(operand).IsSet(), nil
	case "-o":
		return s.optionSet(operand), nil
	case "-R":
		vr := s.Environ().Get(operand)
		return vr.IsSet() && vr.Kind == expand.NameRef, nil
	}
	path := s.resolve(operand)
	switch t.Op {
	case "-e":
		return s.FS.Exists(path), nil
	case "-f":
		fi, err := s.FS.Stat(path)
		return err == nil && !fi.IsDir, nil
	case "-d":
		fi, err := s.FS.Stat(path)
		return err == nil && fi.IsDir, nil
	case "-s":
		fi, err := s.FS.Stat(path)
		return err == nil && fi.Size > 0, nil
	case "-L", "-h":
		fi, err := s.FS.Lstat(path)
		return err == nil && fi.IsSymlink, nil
	case "-r", "-w", "-x", "-O", "-G":
		return s.FS.Exists(path), nil // no permission model in a virtual filesystem
	case "-p", "-S", "-b", "-c", "-g", "-u", "-k", "-N", "-t":
		return false, nil // no fifo/socket/device/sticky-bit/tty concept
	default:
		return false, fmt.Errorf("unsupported unary test operator %s", t.Op)
	}
}

func (s *State) optionSet(name string) bool {
	switch name {
	case "errexit":
		return s.Opts.ErrExit
	case "nounset":
		return s.Opts.NoUnset
	case "xtrace":
		return s.Opts.XTrace
	case "pipefail":
		return s.Opts.PipeFail
	case "noglob":
		return s.Opts.NoGlob
	case "verbose":
		return s.Opts.Verbose
	case "globstar":
		return s.Opts.GlobStar
	case "nullglob":
		return s.Opts.NullGlob
	case "failglob":
		return s.Opts.FailGlob
	case "dotglob":
		return s.Opts.DotGlob
	case "nocasematch":
		return s.Opts.NoCaseMatch
	case "extglob":
		return s.Opts.ExtGlob
	}
	return false
}

func (s *State) evalTestBinary(ctx context.Context, t *syntax.TestBinary) (bool, error) {
	if t.Op == "&&" || t.Op == "||" {
		l, err := s.evalTest(ctx, t.X)
		if err != nil {
			return false, err
		}
		if t.Op == "&&" && !l {
			return false, nil
		}
		if t.Op == "||" && l {
			return true, nil
		}
		return s.evalTest(ctx, t.Y)
	}
	lw, ok := t.X.(*syntax.TestWord)
	if !ok {
		return false, fmt.Errorf("binary test operator %s needs plain operands", t.Op)
	}
	rw, ok := t.Y.(*syntax.TestWord)
	if !ok {
		return false, fmt.Errorf("binary test operator %s needs plain operands", t.Op)
	}
	left, err := s.expandLiteral(ctx, lw.W)
	if err != nil {
		return false, err
	}

	switch t.Op {
	case "==", "=", "!=":
		cfg := s.expandConfig(ctx)
		pat := cfg.Pattern(ctx, rw.W)
		mode := pattern.Mode(0)
		if s.Opts.NoCaseMatch {
			mode |= pattern.NoCase
		}
		matched := false
		if re, err := pattern.Regexp(pat, mode|pattern.EntireString); err == nil {
			matched = regexp.MustCompile(re).MatchString(left)
		}
		if t.Op == "!=" {
			return !matched, nil
		}
		return matched, nil
	case "=~":
		right, err := s.expandLiteral(ctx, rw.W)
		if err != nil {
			return false, err
		}
		re, err := regexp.Compile(right)
		if err != nil {
			return false, fmt.Errorf("invalid regular expression %q: %w", right, err)
		}
		return re.MatchString(left), nil
	case "<", ">":
		right, err := s.expandLiteral(ctx, rw.W)
		if err != nil {
			return false, err
		}
		cmp := strings.Compare(left, right)
		if t.Op == "<" {
			return cmp < 0, nil
		}
		return cmp > 0, nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		ln, err := s.expandArithm(ctx, &syntax.ArithmWord{W: lw.W})
		if err != nil {
			return false, err
		}
		rn, err := s.expandArithm(ctx, &syntax.ArithmWord{W: rw.W})
		if err != nil {
			return false, err
		}
		switch t.Op {
		case "-eq":
			return ln == rn, nil
		case "-ne":
			return ln != rn, nil
		case "-lt":
			return ln < rn, nil
		case "-le":
			return ln <= rn, nil
		case "-gt":
			return ln > rn, nil
		case "-ge":
			return ln >= rn, nil
		}
	case "-nt", "-ot", "-ef":
		right, err := s.expandLiteral(ctx, rw.W)
		if err != nil {
			return false, err
		}
		lp, rp := s.resolve(left), s.resolve(right)
		if t.Op == "-ef" {
			lr, lerr := s.FS.Realpath(lp)
			rr, rerr := s.FS.Realpath(rp)
			return lerr == nil && rerr == nil && lr == rr, nil
		}
		lfi, lerr := s.FS.Stat(lp)
		rfi, rerr := s.FS.Stat(rp)
		if lerr != nil || rerr != nil {
			return false, nil
		}
		if t.Op == "-nt" {
			return lfi.ModTime.After(rfi.ModTime), nil
		}
		return lfi.ModTime.Before(rfi.ModTime), nil
	}
	return false, fmt.Errorf("unsupported binary test operator %s", t.Op)
}

// matchCasePattern reports whether word matches pat, per `case`/`[[ == ]]`
// glob semantics (spec.md §4.3's pattern matching, shared via the pattern
// package).
func (s *State) matchCasePattern(ctx context.Context, pat, word string) bool {
	mode := pattern.Mode(0)
	if s.Opts.NoCaseMatch {
		mode |= pattern.NoCase
	}
	re, err := pattern.Regexp(pat, mode|pattern.EntireString)
	if err != nil {
		return false
	}
	return regexp.MustCompile(re).MatchString(word)
}

// evalTestArgv evaluates the `test`/`[` argv grammar directly on already
// word-split, already-expanded strings (POSIX's "how many arguments"
// dispatch), as distinct from evalTest's `[[ ]]` AST form.
func (s *State) evalTestArgv(ctx context.Context, args []string) (bool, error) {
	switch len(args) {
	case 0:
		return false, nil
	case 1:
		return args[0] != "", nil
	case 2:
		if args[0] == "!" {
			v, err := s.evalTestArgv(ctx, args[1:])
			return !v, err
		}
		return s.testUnaryStr(ctx, args[0], args[1])
	case 3:
		if args[0] == "!" {
			v, err := s.evalTestArgv(ctx, args[1:])
			return !v, err
		}
		if args[0] == "(" && args[2] == ")" {
			return s.evalTestArgv(ctx, args[1:2])
		}
		return s.testBinaryStr(ctx, args[1], args[0], args[2])
	case 4:
		if args[0] == "!" {
			v, err := s.evalTestArgv(ctx, args[1:])
			return !v, err
		}
		if args[0] == "(" && args[3] == ")" {
			return s.evalTestArgv(ctx, args[1:3])
		}
	}
	for i, a := range args {
		if a == "-a" || a == "-o" {
			left, err := s.evalTestArgv(ctx, args[:i])
			if err != nil {
				return false, err
			}
			if a == "-a" && !left {
				return false, nil
			}
			if a == "-o" && left {
				return true, nil
			}
			return s.evalTestArgv(ctx, args[i+1:])
		}
	}
	return false, fmt.Errorf("test: unsupported expression")
}

func (s *State) testUnaryStr(ctx context.Context, op, operand string) (bool, error) {
	switch op {
	case "-z":
		return operand == "", nil
	case "-n":
		return operand != "", nil
	case "-v":
		return s.Environ().Get(operand).IsSet(), nil
	case "-o":
		return s.optionSet(operand), nil
	case "-R":
		vr := s.Environ().Get(operand)
		return vr.IsSet() && vr.Kind == expand.NameRef, nil
	}
	path := s.resolve(operand)
	switch op {
	case "-e":
		return s.FS.Exists(path), nil
	case "-f":
		fi, err := s.FS.Stat(path)
		return err == nil && !fi.IsDir, nil
	case "-d":
		fi, err := s.FS.Stat(path)
		return err == nil && fi.IsDir, nil
	case "-s":
		fi, err := s.FS.Stat(path)
		return err == nil && fi.Size > 0, nil
	case "-L", "-h":
		fi, err := s.FS.Lstat(path)
		return err == nil && fi.IsSymlink, nil
	case "-r", "-w", "-x", "-O", "-G":
		return s.FS.Exists(path), nil
	case "-p", "-S", "-b", "-c", "-g", "-u", "-k", "-N", "-t":
		return false, nil
	}
	return false, fmt.Errorf("test: unknown unary operator %s", op)
}

func (s *State) testBinaryStr(ctx context.Context, op, left, right string) (bool, error) {
	switch op {
	case "=", "==":
		return s.matchCasePattern(ctx, right, left), nil
	case "!=":
		return !s.matchCasePattern(ctx, right, left), nil
	case "<":
		return left < right, nil
	case ">":
		return left > right, nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		ln, err := strconv.ParseInt(strings.TrimSpace(left), 0, 64)
		if err != nil {
			return false, fmt.Errorf("test: %s: integer expression expected", left)
		}
		rn, err := strconv.ParseInt(strings.TrimSpace(right), 0, 64)
		if err != nil {
			return false, fmt.Errorf("test: %s: integer expression expected", right)
		}
		switch op {
		case "-eq":
			return ln == rn, nil
		case "-ne":
			return ln != rn, nil
		case "-lt":
			return ln < rn, nil
		case "-le":
			return ln <= rn, nil
		case "-gt":
			return ln > rn, nil
		default:
			return ln >= rn, nil
		}
	case "-nt", "-ot", "-ef":
		lp, rp := s.resolve(left), s.resolve(right)
		if op == "-ef" {
			lr, lerr := s.FS.Realpath(lp)
			rr, rerr := s.FS.Realpath(rp)
			return lerr == nil && rerr == nil && lr == rr, nil
		}
		lfi, lerr := s.FS.Stat(lp)
		rfi, rerr := s.FS.Stat(rp)
		if lerr != nil || rerr != nil {
			return false, nil
		}
		if op == "-nt" {
			return lfi.ModTime.After(rfi.ModTime), nil
		}
		return lfi.ModTime.Before(rfi.ModTime), nil
	}
	return false, fmt.Errorf("test: unknown binary operator %s", op)
}
