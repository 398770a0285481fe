package ir

import (
	"fmt"

	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

// Block is a single-entry statement sequence.
type Block struct {
	Index int
	Stmts []Node
}

// Body is the ordered block list of one procedure.
type Body struct {
	Blocks []*Block
}

// NewBody pre-allocates n blocks so jumps can reference any of them while
// the statements are being built.
func NewBody(n int) *Body {
	b := &Body{Blocks: make([]*Block, n)}
	for i := range b.Blocks {
		b.Blocks[i] = &Block{Index: i}
	}
	return b
}

// Block returns the block with program-order index i.
func (b *Body) Block(i int) *Block {
	if i < 0 || i >= len(b.Blocks) {
		panic(fmt.Sprintf("ir: no block %d in a body of %d", i, len(b.Blocks)))
	}
	return b.Blocks[i]
}

// AddBlock appends a fresh block.
func (b *Body) AddBlock() *Block {
	blk := &Block{Index: len(b.Blocks)}
	b.Blocks = append(b.Blocks, blk)
	return blk
}

// Add appends statements and returns the block.
func (b *Block) Add(stmts ...Node) *Block {
	b.Stmts = append(b.Stmts, stmts...)
	return b
}

// Label is the label a block carries when it is a jump target.
func (b *Block) Label() string { return fmt.Sprintf("L%d", b.Index) }

// Goto jumps unconditionally.
type Goto struct {
	leaf
	Target *Block
}

// Branch jumps to Target when Cond holds and falls through otherwise.
type Branch struct {
	Cond   Node
	Target *Block
}

// Switch is a multi-way jump on an int value.
type Switch struct {
	X       Node
	Keys    []int32
	Targets []*Block
	Default *Block
}

// Return leaves the procedure, with a value unless X is nil.
type Return struct {
	X Node
}

// Throw raises an exception. It has no lowering.
type Throw struct {
	X Node
}

// NewGoto returns a jump to target.
func NewGoto(target *Block) *Goto { return &Goto{Target: target} }

// NewBranch returns a conditional jump to target.
func NewBranch(cond Node, target *Block) *Branch {
	return &Branch{Cond: cond, Target: target}
}

// JumpTargets returns the blocks a jump node may transfer to.
func JumpTargets(n Node) []*Block {
	switch j := n.(type) {
	case *Goto:
		return []*Block{j.Target}
	case *Branch:
		return []*Block{j.Target}
	case *Switch:
		out := append([]*Block{}, j.Targets...)
		if j.Default != nil {
			out = append(out, j.Default)
		}
		return out
	}
	return nil
}

func (b *Block) NumChildren() int { return len(b.Stmts) }
func (b *Block) Child(i int) Node {
	if i < 0 || i >= len(b.Stmts) {
		badChild(b, i)
	}
	return b.Stmts[i]
}
func (b *Block) SetChild(i int, c Node) {
	if i < 0 || i >= len(b.Stmts) {
		badChild(b, i)
	}
	b.Stmts[i] = c
}

func (b *Body) NumChildren() int { return len(b.Blocks) }
func (b *Body) Child(i int) Node {
	if i < 0 || i >= len(b.Blocks) {
		badChild(b, i)
	}
	return b.Blocks[i]
}
func (b *Body) SetChild(i int, c Node) {
	blk, ok := c.(*Block)
	if i < 0 || i >= len(b.Blocks) || !ok {
		badChild(b, i)
	}
	b.Blocks[i] = blk
}

func (n *Branch) NumChildren() int { return 1 }
func (n *Branch) Child(i int) Node {
	if i != 0 {
		badChild(n, i)
	}
	return n.Cond
}
func (n *Branch) SetChild(i int, c Node) {
	if i != 0 {
		badChild(n, i)
	}
	n.Cond = c
}

func (n *Switch) NumChildren() int { return 1 }
func (n *Switch) Child(i int) Node {
	if i != 0 {
		badChild(n, i)
	}
	return n.X
}
func (n *Switch) SetChild(i int, c Node) {
	if i != 0 {
		badChild(n, i)
	}
	n.X = c
}

func (n *Return) NumChildren() int {
	if n.X == nil {
		return 0
	}
	return 1
}
func (n *Return) Child(i int) Node {
	if i != 0 || n.X == nil {
		badChild(n, i)
	}
	return n.X
}
func (n *Return) SetChild(i int, c Node) {
	if i != 0 || n.X == nil {
		badChild(n, i)
	}
	n.X = c
}

func (n *Throw) NumChildren() int { return 1 }
func (n *Throw) Child(i int) Node {
	if i != 0 {
		badChild(n, i)
	}
	return n.X
}
func (n *Throw) SetChild(i int, c Node) {
	if i != 0 {
		badChild(n, i)
	}
	n.X = c
}

func (*Block) Type() srctypes.Type  { return srctypes.Void }
func (*Body) Type() srctypes.Type   { return srctypes.Void }
func (*Goto) Type() srctypes.Type   { return srctypes.Void }
func (*Branch) Type() srctypes.Type { return srctypes.Void }
func (*Switch) Type() srctypes.Type { return srctypes.Void }
func (*Throw) Type() srctypes.Type  { return srctypes.Void }

func (n *Return) Type() srctypes.Type {
	if n.X == nil {
		return srctypes.Void
	}
	return n.X.Type()
}
