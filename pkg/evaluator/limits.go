package evaluator

const (
	// DefaultMaxCallDepth bounds recursion when no explicit limit is configured.
	DefaultMaxCallDepth = 1000
	// MaxCallDepthCeiling is the deepest recursion the evaluator allows. It
	// stays well inside the Go stack limit, so deep recursion ends in
	// E_BUDGET and never in a stack overflow.
	MaxCallDepthCeiling = 100000
)

// Limits holds the resource limits for a program execution.
// A zero field means unlimited, except MaxCallDepth which falls back to
// DefaultMaxCallDepth and is capped at MaxCallDepthCeiling.
type Limits struct {
	MaxCallDepth  int
	MaxIterations int64
}

// usage tracks resource consumption during execution.
type usage struct {
	depth      int
	iterations int64
}

func (l Limits) callDepth() int {
	if l.MaxCallDepth <= 0 {
		return DefaultMaxCallDepth
	}
	return min(l.MaxCallDepth, MaxCallDepthCeiling)
}
