package interp

// fork returns a copy of s for a subshell, command substitution, or process
// substitution: a deep copy of the variable scope stack (so the child's
// assignments never leak back), copies of the options and limits, and the
// filesystem, command registry, functions and traps shared by reference, per spec.md §4.4's
// subshell semantics ("child's variable changes, cwd changes, etc. are
// invisible to the parent").
func (s *State) fork() *State {
	child := &State{
		FS:         s.FS,
		Commands:   s.Commands,
		Stdin:      s.Stdin,
		Stdout:     s.Stdout,
		Stderr:     s.Stderr,
		CWD:        s.CWD,
		ScriptName: s.ScriptName,
		Underscore: s.Underscore,
		Params:     append([]string(nil), s.Params...),
		Funcs:      s.Funcs,
		Opts:       s.Opts,
		Limits:     s.Limits,
		Logger:     s.Logger,
		Traps:      s.Traps,
		TrapSrc:    s.TrapSrc,
		jobPool:    s.jobPool,
		LastExit:   s.LastExit,
		scopes:     cloneScopes(s.scopes),
		callDepth:  s.callDepth,
		substDepth: s.substDepth,
		OptInd:     s.OptInd,
		OptArg:     s.OptArg,
		Fetch:      s.Fetch,
	}
	return child
}

func cloneScopes(scopes []*scope) []*scope {
	out := make([]*scope, len(scopes))
	for i, sc := range scopes {
		ns := newScope()
		for k, v := range sc.vars {
			ns.vars[k] = v
		}
		for k, v := range sc.locals {
			ns.locals[k] = v
		}
		out[i] = ns
	}
	return out
}
