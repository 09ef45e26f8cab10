package interp

import (
	"fmt"
	"strconv"

	"github.com/vshlang/vsh/expand"
)

// shellEnviron adapts State's scope stack and special parameters ($?, $@,
// positional params, ...) to expand.WriteEnviron.
type shellEnviron struct {
	s *State
}

func (s *State) Environ() expand.WriteEnviron { return &shellEnviron{s: s} }

func strVar(v string) expand.Variable {
	return expand.Variable{Set: true, Kind: expand.String, Str: v}
}

func (e *shellEnviron) Get(name string) expand.Variable {
	s := e.s
	switch name {
	case "?":
		return strVar(strconv.Itoa(s.LastExit))
	case "$":
		return strVar("1")
	case "!":
		return strVar(strconv.Itoa(s.LastBgPID))
	case "0":
		return strVar(s.ScriptName)
	case "_":
		return strVar(s.Underscore)
	case "#":
		return strVar(strconv.Itoa(len(s.Params)))
	case "@", "*":
		return expand.Variable{Set: true, Kind: expand.Indexed, List: expand.IndexArray(append([]string(nil), s.Params...))}
	}
	if idx, ok := positionalIndex(name); ok {
		if idx >= 1 && idx <= len(s.Params) {
			return strVar(s.Params[idx-1])
		}
		return expand.Variable{}
	}
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i].vars[name]; ok {
			return v
		}
	}
	return expand.Variable{}
}

func (e *shellEnviron) Set(name string, vr expand.Variable) error {
	s := e.s
	switch name {
	case "?", "$", "!", "0", "_", "#", "@", "*":
		return fmt.Errorf("%s: cannot assign to a special parameter", name)
	}
	if _, ok := positionalIndex(name); ok {
		return fmt.Errorf("%s: cannot assign to a positional parameter directly", name)
	}
	// Find the innermost scope that already declares this name (so `local`
	// followed by assignment, or a plain reassignment of an outer var from
	// inside a function without `local`, lands in the right place).
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if existing, ok := s.scopes[i].vars[name]; ok {
			if existing.ReadOnly {
				return fmt.Errorf("%s: readonly variable", name)
			}
			s.scopes[i].vars[name] = vr
			return nil
		}
	}
	cur := s.scopes[len(s.scopes)-1]
	cur.vars[name] = vr
	return nil
}

func (e *shellEnviron) Each(fn func(string, expand.Variable) bool) {
	seen := map[string]bool{}
	for i := len(e.s.scopes) - 1; i >= 0; i-- {
		for name, vr := range e.s.scopes[i].vars {
			if seen[name] {
				continue
			}
			seen[name] = true
			if !fn(name, vr) {
				return
			}
		}
	}
}

func positionalIndex(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return n, true
}

// pushScope enters a new variable scope, used for function calls.
func (s *State) pushScope() {
	s.scopes = append(s.scopes, newScope())
}

// popScope exits the innermost variable scope.
func (s *State) popScope() {
	if len(s.scopes) > 1 {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

// SetLocal declares name in the current (innermost) scope only, per `local`.
func (s *State) SetLocal(name string, vr expand.Variable) {
	cur := s.scopes[len(s.scopes)-1]
	cur.vars[name] = vr
	cur.locals[name] = true
}

// Export marks name exported without changing its value (teacher's
// KeepValue use case: `export foo` on an already-set variable).
func (s *State) Export(name string) {
	env := s.Environ()
	vr := env.Get(name)
	vr.Set = true
	vr.Exported = true
	if vr.Kind == expand.Unknown {
		vr.Kind = expand.String
	}
	env.Set(name, vr)
}

// Vars returns every declared variable in the current scope stack; shell.Run
// and its variants hand this map to their caller.
func (s *State) Vars() map[string]expand.Variable {
	out := map[string]expand.Variable{}
	s.Environ().Each(func(name string, vr expand.Variable) bool {
		out[name] = vr
		return true
	})
	return out
}

// ExportedPairs returns "name=value" for every exported scalar variable, in
// the shape a command registry handler's environment needs.
func (s *State) ExportedPairs() []string {
	var out []string
	s.Environ().Each(func(name string, vr expand.Variable) bool {
		if vr.Exported && vr.Set {
			out = append(out, name+"="+vr.String())
		}
		return true
	})
	return out
}
