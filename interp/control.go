package interp

// cfKind identifies which kind of control-flow unwind is in progress.
// break/continue/return/exit all propagate as plain return values through
// the statement walker instead of panicking, so pipeline goroutines still
// finish deterministically and a genuine Go error is reserved for real
// failures (limit violations, context cancellation).
type cfKind uint8

const (
	cfNone cfKind = iota
	cfBreak
	cfContinue
	cfReturn
	cfExit
)

// controlFlow is the typed unwind value spec.md §7 calls for.
type controlFlow struct {
	Kind cfKind
	N    int // remaining enclosing loops to unwind, for break/continue
	Code int // exit code, for return/exit
}

// absorbLoop applies a break/continue unwind targeting the current loop,
// reporting whether this loop should stop (break, or N>0 left to unwind)
// and whether the unwind is fully consumed.
func (cf *controlFlow) absorbLoop() (stop bool, propagate *controlFlow) {
	switch cf.Kind {
	case cfBreak:
		if cf.N <= 1 {
			return true, nil
		}
		return true, &controlFlow{Kind: cfBreak, N: cf.N - 1}
	case cfContinue:
		if cf.N <= 1 {
			return false, nil
		}
		return true, &controlFlow{Kind: cfContinue, N: cf.N - 1}
	default:
		return true, cf
	}
}
