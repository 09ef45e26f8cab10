package interp

import "context"

// fireTrap runs the handler registered for name (EXIT, ERR, DEBUG, or a
// signal name), if any, ignoring its own errexit/errtrap triggers so a
// misbehaving handler can't recurse into itself.
func (s *State) fireTrap(ctx context.Context, name string) {
	body, ok := s.Traps[name]
	if !ok || s.inTrap {
		return
	}
	s.inTrap = true
	s.runStmt(ctx, body)
	s.inTrap = false
}
