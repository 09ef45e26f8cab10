package interp

import (
	"context"
	"strconv"

	"github.com/vshlang/vsh/expand"
	"github.com/vshlang/vsh/syntax"
)

// applyAssign evaluates and performs one `name=value` / `name+=value` /
// `name=(elems...)` / `name[i]=value` assignment against the current scope.
func (s *State) applyAssign(ctx context.Context, as *syntax.Assign) error {
	if as.Array != nil {
		return s.applyArrayAssign(ctx, as)
	}
	if as.Naked {
		return nil // `declare x` with no value: builtin.go handles declaration itself
	}
	lit, err := s.expandLiteral(ctx, as.Value)
	if err != nil {
		return err
	}
	if as.Index != nil {
		return s.assignIndexed(ctx, as, lit)
	}
	if as.Append {
		cur := s.Environ().Get(as.Name)
		switch cur.Kind {
		case expand.Indexed, expand.Associative:
			// `arr+=scalar` appends scalar as one more indexed element.
			if err := s.checkArrayLen(len(cur.List) + 1); err != nil {
				return err
			}
			list := append([]string(nil), cur.List...)
			list = append(list, lit)
			return s.Environ().Set(as.Name, expand.Variable{Set: true, Kind: expand.Indexed, List: expand.IndexArray(list)})
		default:
			lit = cur.String() + lit
		}
	}
	if err := s.checkStringLen(lit); err != nil {
		return err
	}
	return s.Environ().Set(as.Name, expand.Variable{Set: true, Kind: expand.String, Str: lit})
}

func (s *State) applyArrayAssign(ctx context.Context, as *syntax.Assign) error {
	vr, err := s.buildArrayLiteral(ctx, as)
	if err != nil {
		return err
	}
	return s.Environ().Set(as.Name, vr)
}

// buildArrayLiteral evaluates a `name=(elems...)` literal into an Indexed
// Variable, without touching any scope (declare/local apply it themselves).
func (s *State) buildArrayLiteral(ctx context.Context, as *syntax.Assign) (expand.Variable, error) {
	cur := s.Environ().Get(as.Name)
	indexed := map[int]string{}
	maxIdx := -1
	if as.Append && cur.Kind == expand.Indexed {
		for i, v := range cur.List {
			indexed[i] = v
			maxIdx = i
		}
	}
	for _, elem := range as.Array {
		vals, err := s.expandFields(ctx, elem.Value)
		if err != nil {
			return expand.Variable{}, err
		}
		for _, v := range vals {
			if err := s.checkStringLen(v); err != nil {
				return expand.Variable{}, err
			}
		}
		if elem.Index != nil {
			n, err := s.indexToInt(ctx, elem.Index)
			if err != nil {
				return expand.Variable{}, err
			}
			for _, v := range vals {
				indexed[n] = v
				if n > maxIdx {
					maxIdx = n
				}
				n++
			}
			continue
		}
		for _, v := range vals {
			maxIdx++
			indexed[maxIdx] = v
		}
	}
	if err := s.checkArrayLen(maxIdx + 1); err != nil {
		return expand.Variable{}, err
	}
	list := make([]string, maxIdx+1)
	for i, v := range indexed {
		list[i] = v
	}
	return expand.Variable{Set: true, Kind: expand.Indexed, List: expand.IndexArray(list)}, nil
}

func (s *State) assignIndexed(ctx context.Context, as *syntax.Assign, val string) error {
	cur := s.Environ().Get(as.Name)
	if cur.Kind == expand.Associative {
		key, err := s.expandLiteral(ctx, as.Index)
		if err != nil {
			return err
		}
		m := cloneAssoc(cur.Map)
		if as.Append {
			val = m[key] + val
		}
		if err := s.checkStringLen(val); err != nil {
			return err
		}
		m[key] = val
		return s.Environ().Set(as.Name, expand.Variable{Set: true, Kind: expand.Associative, Map: m})
	}
	n, err := s.indexToInt(ctx, as.Index)
	if err != nil {
		return err
	}
	if err := s.checkArrayLen(n + 1); err != nil {
		return err
	}
	list := append([]string(nil), cur.List...)
	for len(list) <= n {
		list = append(list, "")
	}
	if as.Append {
		val = list[n] + val
	}
	if err := s.checkStringLen(val); err != nil {
		return err
	}
	list[n] = val
	return s.Environ().Set(as.Name, expand.Variable{Set: true, Kind: expand.Indexed, List: expand.IndexArray(list)})
}

func cloneAssoc(m expand.AssocArray) expand.AssocArray {
	out := make(expand.AssocArray, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// indexToInt evaluates an array subscript word, either a bare integer
// literal or an arithmetic expression like `i+1`.
func (s *State) indexToInt(ctx context.Context, w *syntax.Word) (int, error) {
	if lit, ok := w.Lit(); ok {
		if n, err := strconv.Atoi(lit); err == nil {
			return n, nil
		}
	}
	n, err := s.expandArithm(ctx, &syntax.ArithmWord{W: w})
	return int(n), err
}
