package ir

// Tunnel redirects jumps that land on a block holding nothing but a goto
// to that goto's final destination. Chains are followed with path
// compression; a cycle of empty gotos keeps its original target.
func Tunnel(root Node) int {
	forward := make(map[*Block]*Block)
	for _, b := range Blocks(root) {
		if len(b.Stmts) == 1 {
			if g, ok := b.Stmts[0].(*Goto); ok && g.Target != b {
				forward[b] = g.Target
			}
		}
	}
	if len(forward) == 0 {
		return 0
	}

	resolved := make(map[*Block]*Block)
	var resolve func(b *Block, visiting map[*Block]bool) *Block
	resolve = func(b *Block, visiting map[*Block]bool) *Block {
		if r, ok := resolved[b]; ok {
			return r
		}
		next, ok := forward[b]
		if !ok {
			return b
		}
		if visiting[b] {
			// cycle of empty blocks
			return b
		}
		visiting[b] = true
		r := resolve(next, visiting)
		resolved[b] = r
		return r
	}

	changed := 0
	retarget := func(b *Block) *Block {
		if b == nil {
			return nil
		}
		r := resolve(b, make(map[*Block]bool))
		if r != b {
			changed++
		}
		return r
	}
	Inspect(root, func(n Node) bool {
		switch j := n.(type) {
		case *Goto:
			j.Target = retarget(j.Target)
		case *Branch:
			j.Target = retarget(j.Target)
		case *Switch:
			for i, t := range j.Targets {
				j.Targets[i] = retarget(t)
			}
			j.Default = retarget(j.Default)
		}
		return true
	})
	return changed
}
