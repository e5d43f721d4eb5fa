package batch

// Container lets user-defined composite types participate in traversal
// without reflection: Elements exposes the children view, FromElements
// builds a value of the same shape from rewritten children (in the same
// order Elements returned them).
type Container interface {
	Elements() []any
	FromElements(elems []any) any
}

// findPending walks the structure with an explicit stack and collects every
// deferred value that has no resolved result yet. It descends into ordered
// sequences, key-value mappings, Container implementations, and the
// resolved results of deferred values (which may embed fresh deferreds),
// but not into opaque leaf values. Each deferred value appears at most
// once.
func findPending(root any) []AnyDeferred {
	stack := pools.acquireStack()
	defer pools.releaseStack(stack)
	stack = append(stack, root)

	out := pools.acquirePending()
	visited := make(map[AnyDeferred]bool)

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch x := v.(type) {
		case AnyDeferred:
			if visited[x] {
				continue
			}
			visited[x] = true
			if res, ok := x.Resolved(); ok {
				stack = append(stack, res)
			} else {
				out = append(out, x)
			}
		case []any:
			stack = append(stack, x...)
		case map[string]any:
			for _, elem := range x {
				stack = append(stack, elem)
			}
		case map[any]any:
			for _, elem := range x {
				stack = append(stack, elem)
			}
		case Container:
			stack = append(stack, x.Elements()...)
		}
	}

	return out
}

// Rewrite replaces each resolved deferred value reachable from v with its
// result, producing a new structure with the same shape. Results are
// rewritten recursively, so deferreds nested inside them are replaced too.
// Unresolved leftovers (a terminated fixpoint, or a value with no spec) are
// left in place as the *Deferred itself.
func Rewrite(v any) any {
	switch x := v.(type) {
	case AnyDeferred:
		if res, ok := x.Resolved(); ok {
			return Rewrite(res)
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = Rewrite(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, elem := range x {
			out[k] = Rewrite(elem)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(x))
		for k, elem := range x {
			out[k] = Rewrite(elem)
		}
		return out
	case Container:
		elems := x.Elements()
		rewritten := make([]any, len(elems))
		for i, elem := range elems {
			rewritten[i] = Rewrite(elem)
		}
		return x.FromElements(rewritten)
	default:
		return v
	}
}
