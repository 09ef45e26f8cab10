package interp

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vshlang/vsh/expand"
	"github.com/vshlang/vsh/syntax"
)

// specialBuiltinFn is a builtin that can produce a control-flow unwind
// (exit/return/break/continue) in addition to an exit code.
type specialBuiltinFn func(s *State, ctx context.Context, args []string) (*controlFlow, int, error)

// builtinFn is an ordinary builtin: argv in, exit code out.
type builtinFn func(s *State, ctx context.Context, args []string) (int, error)

// specialBuiltins resolve before shell functions (spec.md §4.4): a function
// named `exit` or `set` can never shadow them.
var specialBuiltins = map[string]specialBuiltinFn{
	":":        biColon,
	".":        biSource,
	"source":   biSource,
	"eval":     biEval,
	"exec":     biExec,
	"exit":     biExit,
	"return":   biReturn,
	"break":    biBreak,
	"continue": biContinue,
	"set":      biSet,
	"shift":    biShift,
	"unset":    biUnset,
	"export":   biExport,
	"readonly": biReadonly,
	"declare":  biDeclareFamily(false),
	"typeset":  biDeclareFamily(false),
	"local":    biDeclareFamily(true),
	"trap":     biTrap,
}

// nonSpecialBuiltins resolve after shell functions, so a script can redefine
// e.g. `cd` as a function and have that win.
var nonSpecialBuiltins = map[string]builtinFn{
	"true":     func(s *State, ctx context.Context, a []string) (int, error) { return 0, nil },
	"false":    func(s *State, ctx context.Context, a []string) (int, error) { return 1, nil },
	"cd":       biCd,
	"pwd":      biPwd,
	"echo":     biEcho,
	"printf":   biPrintf,
	"test":     biTest(false),
	"[":        biTest(true),
	"read":     biRead,
	"type":     biType,
	"which":    biWhich,
	"getopts":  biGetopts,
	"mapfile":  biMapfile,
	"readarray": biMapfile,
	"wait":     biWait,
	"jobs":     biJobs,
	"shopt":    biShopt,
}

func biColon(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	return nil, 0, nil
}

// biSource implements `.`/`source`: parse a virtual file and run it in the
// current scope, the way the shell's own script was parsed and run.
func biSource(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	if len(args) == 0 {
		fmt.Fprintln(s.Stderr, "source: filename argument required")
		return nil, 2, nil
	}
	path := s.resolve(args[0])
	data, err := s.FS.ReadFile(path)
	if err != nil {
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
		return nil, 1, nil
	}
	f, perr := syntax.NewParser().ParseString(string(data), args[0])
	if perr != nil {
		fmt.Fprintln(s.Stderr, perr)
		return nil, 2, nil
	}
	oldParams := s.Params
	if len(args) > 1 {
		s.Params = args[1:]
	}
	cf, rerr := s.runStmts(ctx, f.Stmts)
	s.Params = oldParams
	if rerr != nil {
		return nil, 1, rerr
	}
	if cf != nil {
		if cf.Kind == cfExit {
			return cf, cf.Code, nil
		}
		if cf.Kind == cfReturn {
			return nil, cf.Code, nil
		}
	}
	return nil, s.LastExit, nil
}

func biEval(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	src := strings.Join(args, " ")
	if strings.TrimSpace(src) == "" {
		return nil, 0, nil
	}
	f, perr := syntax.NewParser().ParseString(src, "eval")
	if perr != nil {
		fmt.Fprintln(s.Stderr, perr)
		return nil, 2, nil
	}
	cf, err := s.runStmts(ctx, f.Stmts)
	if err != nil {
		return nil, 1, err
	}
	return cf, s.LastExit, nil
}

// biExec replaces the running shell with the named command, the closest a
// sandbox gets to a real exec(2): the invoked command's exit unwinds this
// shell entirely instead of returning to the next statement.
func biExec(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	if len(args) == 0 {
		return nil, s.LastExit, nil
	}
	cf, err := s.call(ctx, args)
	if err != nil {
		return nil, 1, err
	}
	if cf != nil {
		return cf, s.LastExit, nil
	}
	return &controlFlow{Kind: cfExit, Code: s.LastExit}, s.LastExit, nil
}

func biExit(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	code := s.LastExit
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			code = n
		}
	}
	return &controlFlow{Kind: cfExit, Code: code}, code, nil
}

func biReturn(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	code := s.LastExit
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			code = n
		}
	}
	return &controlFlow{Kind: cfReturn, Code: code}, code, nil
}

func biBreak(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	n := 1
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
			n = v
		}
	}
	return &controlFlow{Kind: cfBreak, N: n}, 0, nil
}

func biContinue(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	n := 1
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
			n = v
		}
	}
	return &controlFlow{Kind: cfContinue, N: n}, 0, nil
}

func biShift(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	n := 1
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			n = v
		}
	}
	if n > len(s.Params) {
		return nil, 1, nil
	}
	s.Params = s.Params[n:]
	return nil, 0, nil
}

func biUnset(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	funcs := false
	var names []string
	for _, a := range args {
		switch a {
		case "-f":
			funcs = true
		case "-v":
			funcs = false
		default:
			names = append(names, a)
		}
	}
	for _, name := range names {
		if funcs {
			delete(s.Funcs, name)
			continue
		}
		base, idx, subscripted := splitUnsetSubscript(name)
		if subscripted {
			s.unsetElement(base, idx)
			continue
		}
		for i := len(s.scopes) - 1; i >= 0; i-- {
			if _, ok := s.scopes[i].vars[name]; ok {
				delete(s.scopes[i].vars, name)
				break
			}
		}
	}
	return nil, 0, nil
}

// splitUnsetSubscript recognizes `name[idx]` as unset sees it on the command
// line: a literal trailing `[...]`, not parsed through the assignment
// grammar since unset's argument is a plain word, not an Assign node.
func splitUnsetSubscript(arg string) (name, idx string, ok bool) {
	if !strings.HasSuffix(arg, "]") {
		return arg, "", false
	}
	open := strings.IndexByte(arg, '[')
	if open <= 0 {
		return arg, "", false
	}
	return arg[:open], arg[open+1 : len(arg)-1], true
}

// unsetElement implements `unset name[i]`. For an associative array the key
// is deleted. For an indexed array the element is set to the empty string
// and keeps its slot, so later indices do not shift and ${#name[@]} still
// counts it; a non-numeric or out-of-range index is ignored.
func (s *State) unsetElement(name, idx string) {
	vr := s.Environ().Get(name)
	switch vr.Kind {
	case expand.Associative:
		m := cloneAssoc(vr.Map)
		delete(m, idx)
		s.Environ().Set(name, expand.Variable{Set: true, Kind: expand.Associative, Map: m})
	case expand.Indexed:
		n, err := strconv.Atoi(idx)
		if err != nil || n < 0 || n >= len(vr.List) {
			return
		}
		list := append([]string(nil), vr.List...)
		list[n] = ""
		s.Environ().Set(name, expand.Variable{Set: true, Kind: expand.Indexed, List: expand.IndexArray(list)})
	}
}

func optCharFor(o *Options, c byte) *bool {
	switch c {
	case 'e':
		return &o.ErrExit
	case 'u':
		return &o.NoUnset
	case 'x':
		return &o.XTrace
	case 'f':
		return &o.NoGlob
	case 'v':
		return &o.Verbose
	}
	return nil
}

func optNameFor(o *Options, name string) *bool {
	switch name {
	case "errexit":
		return &o.ErrExit
	case "nounset":
		return &o.NoUnset
	case "xtrace":
		return &o.XTrace
	case "pipefail":
		return &o.PipeFail
	case "noglob":
		return &o.NoGlob
	case "verbose":
		return &o.Verbose
	case "globstar":
		return &o.GlobStar
	case "nullglob":
		return &o.NullGlob
	case "failglob":
		return &o.FailGlob
	case "dotglob":
		return &o.DotGlob
	case "nocasematch":
		return &o.NoCaseMatch
	case "inherit_errexit":
		return &o.InheritErrExit
	case "extglob":
		return &o.ExtGlob
	}
	return nil
}

// biSet implements `set -eux`, `set -o pipefail`, and `set -- args...`.
func biSet(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	i := 0
	for i < len(args) {
		a := args[i]
		if a == "--" {
			i++
			break
		}
		if len(a) < 2 || (a[0] != '-' && a[0] != '+') {
			break
		}
		val := a[0] == '-'
		if a[1:] == "o" {
			i++
			if i < len(args) {
				if p := optNameFor(&s.Opts, args[i]); p != nil {
					*p = val
				}
			}
			i++
			continue
		}
		for _, c := range a[1:] {
			if p := optCharFor(&s.Opts, byte(c)); p != nil {
				*p = val
			}
		}
		i++
	}
	if i < len(args) {
		s.Params = args[i:]
	}
	return nil, 0, nil
}

func biShopt(s *State, ctx context.Context, args []string) (int, error) {
	val := true
	i := 0
	for i < len(args) {
		switch args[i] {
		case "-s":
			val = true
		case "-u":
			val = false
		default:
			if p := optNameFor(&s.Opts, args[i]); p != nil {
				*p = val
			}
		}
		i++
	}
	return 0, nil
}

// biTrap registers or clears a trap handler for EXIT/ERR/DEBUG/signal names.
func biTrap(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	if len(args) == 0 {
		for name, src := range s.TrapSrc {
			fmt.Fprintf(s.Stdout, "trap -- %q %s\n", src, name)
		}
		return nil, 0, nil
	}
	action := args[0]
	for _, sig := range args[1:] {
		name := strings.ToUpper(sig)
		if action == "-" {
			delete(s.Traps, name)
			delete(s.TrapSrc, name)
			continue
		}
		f, perr := syntax.NewParser().ParseString(action, "trap")
		if perr != nil {
			fmt.Fprintln(s.Stderr, perr)
			return nil, 1, nil
		}
		s.Traps[name] = &syntax.Stmt{Cmd: &syntax.Block{Stmts: f.Stmts}}
		s.TrapSrc[name] = action
	}
	return nil, 0, nil
}

// declOpts carries the flags common to declare/local/typeset/export/readonly.
type declOpts struct {
	export, readonly, local, global, print bool
	kind                                   expand.ValueKind
}

func isDeclFlag(a string) bool {
	if len(a) < 2 || a[0] != '-' {
		return false
	}
	for _, c := range a[1:] {
		if strings.IndexRune("xrAanpgi", c) < 0 {
			return false
		}
	}
	return true
}

func splitDeclArgs(args []string) (declOpts, []string) {
	var opts declOpts
	i := 0
	for i < len(args) {
		a := args[i]
		if a == "--" {
			i++
			break
		}
		if !isDeclFlag(a) {
			break
		}
		for _, c := range a[1:] {
			switch c {
			case 'x':
				opts.export = true
			case 'r':
				opts.readonly = true
			case 'a':
				opts.kind = expand.Indexed
			case 'A':
				opts.kind = expand.Associative
			case 'n':
				opts.kind = expand.NameRef
			case 'g':
				opts.global = true
			case 'p':
				opts.print = true
			}
		}
		i++
	}
	return opts, args[i:]
}

// parseDeclArg turns one `declare`/`local`/... argument into an Assign node,
// reusing the statement parser's own assignment grammar (spec.md §4.2) since
// builtin arguments aren't pre-parsed into Assign nodes the way a leading
// `FOO=bar cmd` prefix is.
func parseDeclArg(field string) *syntax.Assign {
	f, err := syntax.NewParser().ParseString(field, "decl-arg")
	if err == nil && len(f.Stmts) == 1 && f.Stmts[0].Cmd == nil && len(f.Stmts[0].Assigns) == 1 {
		return f.Stmts[0].Assigns[0]
	}
	return &syntax.Assign{Name: field, Naked: true}
}

func (s *State) applyDeclArg(ctx context.Context, as *syntax.Assign, opts declOpts) error {
	var vr expand.Variable
	switch {
	case as.Array != nil:
		built, err := s.buildArrayLiteral(ctx, as)
		if err != nil {
			return err
		}
		vr = built
	case as.Index != nil:
		lit, err := s.expandLiteral(ctx, as.Value)
		if err != nil {
			return err
		}
		return s.assignIndexed(ctx, as, lit)
	case as.Naked:
		cur := s.Environ().Get(as.Name)
		switch {
		case opts.kind == expand.Associative:
			vr = expand.Variable{Set: true, Kind: expand.Associative, Map: expand.AssocArray{}}
		case opts.kind == expand.Indexed:
			vr = expand.Variable{Set: true, Kind: expand.Indexed, List: expand.IndexArray{}}
		case cur.IsSet():
			vr = cur
		default:
			vr = expand.Variable{Set: true, Kind: expand.String}
		}
	default:
		lit, err := s.expandLiteral(ctx, as.Value)
		if err != nil {
			return err
		}
		kind := expand.String
		if opts.kind == expand.NameRef {
			kind = expand.NameRef
		}
		vr = expand.Variable{Set: true, Kind: kind, Str: lit}
	}
	if opts.export {
		vr.Exported = true
	}
	if opts.readonly {
		vr.ReadOnly = true
	}
	if opts.local {
		vr.Local = true
		s.SetLocal(as.Name, vr)
		return nil
	}
	return s.Environ().Set(as.Name, vr)
}

func biDeclareFamily(local bool) specialBuiltinFn {
	return func(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
		opts, names := splitDeclArgs(args)
		opts.local = local
		if opts.print || len(names) == 0 {
			s.Environ().Each(func(name string, vr expand.Variable) bool {
				fmt.Fprintf(s.Stdout, "%s=%s\n", name, vr.String())
				return true
			})
			return nil, 0, nil
		}
		for _, field := range names {
			as := parseDeclArg(field)
			if err := s.applyDeclArg(ctx, as, opts); err != nil {
				cf, rerr := s.handleExpandErr(err)
				return cf, 1, rerr
			}
		}
		return nil, 0, nil
	}
}

func biExport(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	opts, names := splitDeclArgs(args)
	opts.export = true
	if len(names) == 0 {
		s.Environ().Each(func(name string, vr expand.Variable) bool {
			if vr.Exported {
				fmt.Fprintf(s.Stdout, "declare -x %s=%s\n", name, vr.String())
			}
			return true
		})
		return nil, 0, nil
	}
	for _, field := range names {
		as := parseDeclArg(field)
		if err := s.applyDeclArg(ctx, as, opts); err != nil {
			cf, rerr := s.handleExpandErr(err)
			return cf, 1, rerr
		}
	}
	return nil, 0, nil
}

func biReadonly(s *State, ctx context.Context, args []string) (*controlFlow, int, error) {
	opts, names := splitDeclArgs(args)
	opts.readonly = true
	if len(names) == 0 {
		s.Environ().Each(func(name string, vr expand.Variable) bool {
			if vr.ReadOnly {
				fmt.Fprintf(s.Stdout, "declare -r %s=%s\n", name, vr.String())
			}
			return true
		})
		return nil, 0, nil
	}
	for _, field := range names {
		as := parseDeclArg(field)
		if err := s.applyDeclArg(ctx, as, opts); err != nil {
			cf, rerr := s.handleExpandErr(err)
			return cf, 1, rerr
		}
	}
	return nil, 0, nil
}

func biCd(s *State, ctx context.Context, args []string) (int, error) {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	if target == "-" {
		old := s.Environ().Get("OLDPWD")
		if !old.IsSet() {
			fmt.Fprintln(s.Stderr, "cd: OLDPWD not set")
			return 1, nil
		}
		target = old.String()
		fmt.Fprintln(s.Stdout, target)
	}
	if target == "" {
		h := s.Environ().Get("HOME")
		if h.IsSet() {
			target = h.String()
		} else {
			target = "/"
		}
	}
	path := s.resolve(target)
	fi, err := s.FS.Stat(path)
	if err != nil || !fi.IsDir {
		fmt.Fprintf(s.Stderr, "cd: %s: not a directory\n", target)
		return 1, nil
	}
	s.Environ().Set("OLDPWD", strVar(s.CWD))
	s.CWD = path
	s.Environ().Set("PWD", strVar(s.CWD))
	return 0, nil
}

func biPwd(s *State, ctx context.Context, args []string) (int, error) {
	fmt.Fprintln(s.Stdout, s.CWD)
	return 0, nil
}

func echoExpandEscapes(in string) string {
	var b strings.Builder
	for i := 0; i < len(in); i++ {
		if in[i] != '\\' || i == len(in)-1 {
			b.WriteByte(in[i])
			continue
		}
		i++
		switch in[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'e', 'E':
			b.WriteByte(0x1b)
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(in[i])
		}
	}
	return b.String()
}

func biEcho(s *State, ctx context.Context, args []string) (int, error) {
	nflag, eflag := false, false
	i := 0
	for i < len(args) {
		a := args[i]
		valid := len(a) >= 2 && a[0] == '-'
		if valid {
			for _, c := range a[1:] {
				if c != 'n' && c != 'e' && c != 'E' {
					valid = false
					break
				}
			}
		}
		if !valid {
			break
		}
		for _, c := range a[1:] {
			switch c {
			case 'n':
				nflag = true
			case 'e':
				eflag = true
			case 'E':
				eflag = false
			}
		}
		i++
	}
	out := strings.Join(args[i:], " ")
	if eflag {
		out = echoExpandEscapes(out)
	}
	fmt.Fprint(s.Stdout, out)
	if !nflag {
		fmt.Fprint(s.Stdout, "\n")
	}
	return 0, nil
}

func formatPrintf(format string, args []string) string {
	format = echoExpandEscapes(format)
	var buf strings.Builder
	argIdx := 0
	next := func() string {
		if argIdx < len(args) {
			v := args[argIdx]
			argIdx++
			return v
		}
		return ""
	}
	once := func() {
		for i := 0; i < len(format); i++ {
			c := format[i]
			if c != '%' {
				buf.WriteByte(c)
				continue
			}
			i++
			if i >= len(format) {
				buf.WriteByte('%')
				break
			}
			switch format[i] {
			case '%':
				buf.WriteByte('%')
			case 's':
				buf.WriteString(next())
			case 'b':
				buf.WriteString(echoExpandEscapes(next()))
			case 'c':
				v := next()
				if len(v) > 0 {
					buf.WriteByte(v[0])
				}
			case 'd', 'i':
				n, _ := strconv.ParseInt(strings.TrimSpace(next()), 0, 64)
				fmt.Fprintf(&buf, "%d", n)
			case 'x':
				n, _ := strconv.ParseInt(strings.TrimSpace(next()), 0, 64)
				fmt.Fprintf(&buf, "%x", n)
			case 'o':
				n, _ := strconv.ParseInt(strings.TrimSpace(next()), 0, 64)
				fmt.Fprintf(&buf, "%o", n)
			default:
				buf.WriteByte('%')
				buf.WriteByte(format[i])
			}
		}
	}
	if len(args) == 0 {
		once()
		return buf.String()
	}
	for argIdx < len(args) {
		start := argIdx
		once()
		if argIdx == start {
			break
		}
	}
	return buf.String()
}

func biPrintf(s *State, ctx context.Context, args []string) (int, error) {
	if len(args) == 0 {
		fmt.Fprintln(s.Stderr, "printf: usage: printf format [arguments]")
		return 1, nil
	}
	fmt.Fprint(s.Stdout, formatPrintf(args[0], args[1:]))
	return 0, nil
}

func biTest(bracket bool) builtinFn {
	return func(s *State, ctx context.Context, args []string) (int, error) {
		a := args
		if bracket {
			if len(a) == 0 || a[len(a)-1] != "]" {
				fmt.Fprintln(s.Stderr, "[: missing ']'")
				return 2, nil
			}
			a = a[:len(a)-1]
		}
		ok, err := s.evalTestArgv(ctx, a)
		if err != nil {
			fmt.Fprintln(s.Stderr, err)
			return 2, nil
		}
		return boolToExit(ok), nil
	}
}

// readLine reads up to and including a newline from r one byte at a time, so
// it never buffers past the bytes this call actually consumes (unlike
// bufio.Reader, which would swallow input a later `read` needs).
func readLine(r io.Reader) (string, error) {
	var buf []byte
	one := make([]byte, 1)
	for {
		n, err := r.Read(one)
		if n > 0 {
			if one[0] == '\n' {
				return string(buf), nil
			}
			buf = append(buf, one[0])
		}
		if err != nil {
			return string(buf), err
		}
	}
}

func biRead(s *State, ctx context.Context, args []string) (int, error) {
	raw := false
	prompt := ""
	arrayName := ""
	i := 0
loop:
	for i < len(args) {
		switch args[i] {
		case "-r":
			raw = true
			i++
		case "-p":
			i++
			if i < len(args) {
				prompt = args[i]
				i++
			}
		case "-a":
			i++
			if i < len(args) {
				arrayName = args[i]
				i++
			}
		case "-n", "-t", "-d":
			i += 2
		default:
			break loop
		}
	}
	if i > len(args) {
		i = len(args)
	}
	names := args[i:]
	if prompt != "" {
		fmt.Fprint(s.Stderr, prompt)
	}
	r := s.stdinOrEmpty()
	line, rerr := readLine(r)
	if !raw {
		for strings.HasSuffix(line, "\\") && rerr == nil {
			line = strings.TrimSuffix(line, "\\")
			var cont string
			cont, rerr = readLine(r)
			line += cont
		}
	}
	fields := strings.Fields(line)
	if arrayName != "" {
		s.Environ().Set(arrayName, expand.Variable{Set: true, Kind: expand.Indexed, List: expand.IndexArray(fields)})
		if rerr != nil {
			return 1, nil
		}
		return 0, nil
	}
	if len(names) == 0 {
		names = []string{"REPLY"}
	}
	for idx, name := range names {
		var val string
		switch {
		case idx == len(names)-1 && idx < len(fields):
			val = strings.Join(fields[idx:], " ")
		case idx < len(fields):
			val = fields[idx]
		}
		s.Environ().Set(name, strVar(val))
	}
	if rerr != nil {
		return 1, nil
	}
	return 0, nil
}

func biType(s *State, ctx context.Context, args []string) (int, error) {
	code := 0
	for _, name := range args {
		_, isFunc := s.Funcs[name]
		_, isSpecial := specialBuiltins[name]
		_, isBuiltin := nonSpecialBuiltins[name]
		_, isExternal := s.Commands.Lookup(name)
		switch {
		case isFunc:
			fmt.Fprintf(s.Stdout, "%s is a function\n", name)
		case isSpecial, isBuiltin:
			fmt.Fprintf(s.Stdout, "%s is a shell builtin\n", name)
		case isExternal:
			fmt.Fprintf(s.Stdout, "%s is %s\n", name, name)
		default:
			fmt.Fprintf(s.Stderr, "%s: not found\n", name)
			code = 1
		}
	}
	return code, nil
}

func biWhich(s *State, ctx context.Context, args []string) (int, error) {
	code := 0
	for _, name := range args {
		if _, ok := s.Commands.Lookup(name); ok {
			fmt.Fprintln(s.Stdout, name)
			continue
		}
		if _, ok := nonSpecialBuiltins[name]; ok {
			fmt.Fprintln(s.Stdout, name)
			continue
		}
		code = 1
	}
	return code, nil
}

func biGetopts(s *State, ctx context.Context, args []string) (int, error) {
	if len(args) < 2 {
		fmt.Fprintln(s.Stderr, "getopts: usage: getopts optstring name [arg ...]")
		return 2, nil
	}
	optstring, name := args[0], args[1]
	argv := s.Params
	if len(args) > 2 {
		argv = args[2:]
	}
	optind := 1
	if v := s.Environ().Get("OPTIND"); v.IsSet() {
		if n, err := strconv.Atoi(v.String()); err == nil && n >= 1 {
			optind = n
		}
	}
	if optind > len(argv) {
		s.Environ().Set(name, strVar("?"))
		return 1, nil
	}
	arg := argv[optind-1]
	if len(arg) < 2 || arg[0] != '-' || arg == "--" {
		s.Environ().Set(name, strVar("?"))
		return 1, nil
	}
	opt := arg[1]
	idx := strings.IndexByte(optstring, opt)
	if idx < 0 {
		s.Environ().Set(name, strVar("?"))
		s.Environ().Set("OPTARG", strVar(string(opt)))
		s.Environ().Set("OPTIND", strVar(strconv.Itoa(optind+1)))
		return 0, nil
	}
	needsArg := idx+1 < len(optstring) && optstring[idx+1] == ':'
	if needsArg {
		var optarg string
		if len(arg) > 2 {
			optarg = arg[2:]
			optind++
		} else if optind < len(argv) {
			optarg = argv[optind]
			optind += 2
		} else {
			optind++
		}
		s.Environ().Set("OPTARG", strVar(optarg))
	} else {
		optind++
	}
	s.Environ().Set(name, strVar(string(opt)))
	s.Environ().Set("OPTIND", strVar(strconv.Itoa(optind)))
	return 0, nil
}

func biMapfile(s *State, ctx context.Context, args []string) (int, error) {
	name := "MAPFILE"
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			name = a
		}
	}
	var lines []string
	r := s.stdinOrEmpty()
	for {
		line, err := readLine(r)
		if line != "" || err == nil {
			lines = append(lines, line+"\n")
		}
		if err != nil {
			break
		}
	}
	if err := s.Environ().Set(name, expand.Variable{Set: true, Kind: expand.Indexed, List: expand.IndexArray(lines)}); err != nil {
		fmt.Fprintln(s.Stderr, err)
		return 1, nil
	}
	return 0, nil
}

func biWait(s *State, ctx context.Context, args []string) (int, error) {
	if len(args) == 0 {
		code := 0
		for _, j := range s.Jobs {
			if j.Done != nil {
				<-j.Done
			}
			code = j.Result.ExitCode
		}
		return code, nil
	}
	code := 0
	for _, a := range args {
		id := strings.TrimPrefix(a, "%")
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		for _, j := range s.Jobs {
			if j.ID == n {
				if j.Done != nil {
					<-j.Done
				}
				code = j.Result.ExitCode
			}
		}
	}
	return code, nil
}

func biJobs(s *State, ctx context.Context, args []string) (int, error) {
	for _, j := range s.Jobs {
		status := "Running"
		select {
		case <-j.Done:
			status = "Done"
		default:
		}
		fmt.Fprintf(s.Stdout, "[%d]  %s\n", j.ID, status)
	}
	return 0, nil
}
