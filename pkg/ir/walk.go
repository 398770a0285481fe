package ir

// Inspect traverses the tree rooted at n in depth-first order, calling f
// for each node. Children are skipped when f returns false. Jump targets
// are not children and are not followed.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for i := 0; i < n.NumChildren(); i++ {
		Inspect(n.Child(i), f)
	}
}

// IncomingJumps counts the explicit jump edges into each block reachable
// from root, including blocks of inlined bodies. Fall-through is not an
// edge.
func IncomingJumps(root Node) map[*Block]int {
	counts := make(map[*Block]int)
	Inspect(root, func(n Node) bool {
		for _, b := range JumpTargets(n) {
			counts[b]++
		}
		return true
	})
	return counts
}

// Blocks returns every block reachable from root in traversal order.
func Blocks(root Node) []*Block {
	var out []*Block
	Inspect(root, func(n Node) bool {
		if b, ok := n.(*Block); ok {
			out = append(out, b)
		}
		return true
	})
	return out
}

// Calls returns every call reachable from root, outer calls first.
func Calls(root Node) []*Call {
	var out []*Call
	Inspect(root, func(n Node) bool {
		if c, ok := n.(*Call); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

// ReplaceVar substitutes every reference to the identity id below root
// with a node produced by with. It reports how many references changed.
func ReplaceVar(root Node, id *Identity, with func() Node) int {
	id = id.root()
	count := 0
	var walk func(n Node)
	walk = func(n Node) {
		for i := 0; i < n.NumChildren(); i++ {
			c := n.Child(i)
			if v, ok := c.(*Var); ok && v.Identity() == id {
				n.SetChild(i, with())
				count++
				continue
			}
			if c != nil {
				walk(c)
			}
		}
	}
	if root != nil {
		walk(root)
	}
	return count
}

// HasSideEffects reports whether evaluating n may write state or call out.
func HasSideEffects(n Node) bool {
	found := false
	Inspect(n, func(n Node) bool {
		switch n.(type) {
		case *Assign, *Call, *New, *NewArray, *Monitor, *Throw:
			found = true
		}
		return !found
	})
	return found
}
