package ir

// Copier deep-copies IR. Every node is copied at most once per Copier, so
// nodes reachable from several roots stay shared in the copy and jump
// back-edges resolve to the copied blocks.
type Copier struct {
	memo   map[Node]Node
	idents map[*Identity]*Identity

	// Renumber, when set, gives every copied variable identity and
	// temporary a fresh id.
	Renumber func() int
}

// NewCopier returns a Copier that keeps variable ids.
func NewCopier() *Copier {
	return &Copier{memo: make(map[Node]Node), idents: make(map[*Identity]*Identity)}
}

// Copy returns a deep copy of n.
func Copy(n Node) Node {
	return NewCopier().Copy(n)
}

// CopyAll copies several roots with one identity map.
func CopyAll(roots ...Node) []Node {
	c := NewCopier()
	out := make([]Node, len(roots))
	for i, r := range roots {
		out[i] = c.Copy(r)
	}
	return out
}

// Copy returns the copy of n, creating it on first request.
func (c *Copier) Copy(n Node) Node {
	if n == nil {
		return nil
	}
	if m, ok := c.memo[n]; ok {
		return m
	}
	return n.clone(c)
}

// record must run before a node copies its children so cycles terminate.
func (c *Copier) record(old, copied Node) {
	c.memo[old] = copied
}

// Block returns the copy of b.
func (c *Copier) Block(b *Block) *Block {
	if b == nil {
		return nil
	}
	return c.Copy(b).(*Block)
}

// Var returns the copy of v.
func (c *Copier) Var(v *Var) *Var {
	if v == nil {
		return nil
	}
	return c.Copy(v).(*Var)
}

// Ident returns the copy of an identity.
func (c *Copier) Ident(id *Identity) *Identity {
	id = id.root()
	if m, ok := c.idents[id]; ok {
		return m
	}
	n := &Identity{ID: id.ID, T: id.T, Mutable: id.Mutable}
	if c.Renumber != nil {
		n.ID = c.Renumber()
	}
	c.idents[id] = n
	n.Value = c.Copy(id.Value)
	return n
}

func (c *Copier) list(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = c.Copy(n)
	}
	return out
}

func (n *IntConst) clone(c *Copier) Node {
	m := *n
	c.record(n, &m)
	return &m
}

func (n *LongConst) clone(c *Copier) Node {
	m := *n
	c.record(n, &m)
	return &m
}

func (n *FloatConst) clone(c *Copier) Node {
	m := *n
	c.record(n, &m)
	return &m
}

func (n *DoubleConst) clone(c *Copier) Node {
	m := *n
	c.record(n, &m)
	return &m
}

func (n *StringConst) clone(c *Copier) Node {
	m := *n
	c.record(n, &m)
	return &m
}

func (n *NullConst) clone(c *Copier) Node {
	m := *n
	c.record(n, &m)
	return &m
}

// Globals are program-wide and stay shared.
func (n *ObjectConst) clone(c *Copier) Node {
	m := *n
	c.record(n, &m)
	return &m
}

func (n *Var) clone(c *Copier) Node {
	m := &Var{Slot: n.Slot}
	c.record(n, m)
	m.ident = c.Ident(n.Identity())
	return m
}

func (n *Temp) clone(c *Copier) Node {
	m := &Temp{ID: n.ID, T: n.T}
	if c.Renumber != nil {
		m.ID = c.Renumber()
	}
	c.record(n, m)
	m.Value = c.Copy(n.Value)
	return m
}

func (n *Unary) clone(c *Copier) Node {
	m := &Unary{Op: n.Op, T: n.T}
	c.record(n, m)
	m.X = c.Copy(n.X)
	return m
}

func (n *Binary) clone(c *Copier) Node {
	m := &Binary{Op: n.Op, T: n.T}
	c.record(n, m)
	m.L = c.Copy(n.L)
	m.R = c.Copy(n.R)
	return m
}

func (n *Convert) clone(c *Copier) Node {
	m := &Convert{To: n.To}
	c.record(n, m)
	m.X = c.Copy(n.X)
	return m
}

func (n *Cast) clone(c *Copier) Node {
	m := &Cast{To: n.To}
	c.record(n, m)
	m.X = c.Copy(n.X)
	return m
}

func (n *Assign) clone(c *Copier) Node {
	m := &Assign{}
	c.record(n, m)
	m.Lhs = c.Copy(n.Lhs)
	m.Rhs = c.Copy(n.Rhs)
	return m
}

func (n *GetField) clone(c *Copier) Node {
	m := &GetField{Class: n.Class, Field: n.Field}
	c.record(n, m)
	m.Target = c.Copy(n.Target)
	return m
}

func (n *ArrayElem) clone(c *Copier) Node {
	m := &ArrayElem{T: n.T}
	c.record(n, m)
	m.Array = c.Copy(n.Array)
	m.Index = c.Copy(n.Index)
	return m
}

func (n *NewArray) clone(c *Copier) Node {
	m := &NewArray{Elem: n.Elem}
	c.record(n, m)
	m.Len = c.Copy(n.Len)
	return m
}

// Resolved callees are shared program-wide except inlined bodies, which
// belong to their call site.
func (n *Call) clone(c *Copier) Node {
	m := &Call{Kind: n.Kind, Method: n.Method, Callee: n.Callee}
	c.record(n, m)
	m.Target = c.Copy(n.Target)
	m.Args = c.list(n.Args)
	if n.Inlined() != nil {
		m.Callee = c.Copy(n.Callee).(*Callable)
	}
	return m
}

func (n *New) clone(c *Copier) Node {
	m := &New{Class: n.Class}
	c.record(n, m)
	if n.Tmp != nil {
		m.Tmp = c.Copy(n.Tmp).(*Temp)
	}
	if n.Ctor != nil {
		m.Ctor = c.Copy(n.Ctor).(*Call)
	}
	return m
}

func (n *Comma) clone(c *Copier) Node {
	m := &Comma{}
	c.record(n, m)
	m.L = c.Copy(n.L)
	m.R = c.Copy(n.R)
	return m
}

func (n *InstanceOf) clone(c *Copier) Node {
	m := &InstanceOf{Class: n.Class}
	c.record(n, m)
	m.X = c.Copy(n.X)
	return m
}

func (n *Monitor) clone(c *Copier) Node {
	m := &Monitor{Enter: n.Enter}
	c.record(n, m)
	m.X = c.Copy(n.X)
	return m
}

func (n *Block) clone(c *Copier) Node {
	m := &Block{Index: n.Index}
	c.record(n, m)
	m.Stmts = c.list(n.Stmts)
	return m
}

func (n *Body) clone(c *Copier) Node {
	m := &Body{Blocks: make([]*Block, len(n.Blocks))}
	c.record(n, m)
	for i, b := range n.Blocks {
		m.Blocks[i] = c.Block(b)
	}
	return m
}

func (n *Goto) clone(c *Copier) Node {
	m := &Goto{}
	c.record(n, m)
	m.Target = c.Block(n.Target)
	return m
}

func (n *Branch) clone(c *Copier) Node {
	m := &Branch{}
	c.record(n, m)
	m.Cond = c.Copy(n.Cond)
	m.Target = c.Block(n.Target)
	return m
}

func (n *Switch) clone(c *Copier) Node {
	m := &Switch{Keys: append([]int32(nil), n.Keys...)}
	c.record(n, m)
	m.X = c.Copy(n.X)
	m.Targets = make([]*Block, len(n.Targets))
	for i, t := range n.Targets {
		m.Targets[i] = c.Block(t)
	}
	m.Default = c.Block(n.Default)
	return m
}

func (n *Return) clone(c *Copier) Node {
	m := &Return{}
	c.record(n, m)
	m.X = c.Copy(n.X)
	return m
}

func (n *Throw) clone(c *Copier) Node {
	m := &Throw{}
	c.record(n, m)
	m.X = c.Copy(n.X)
	return m
}

func (n *Callable) clone(c *Copier) Node {
	m := *n
	c.record(n, &m)
	m.Params = make([]*Var, len(n.Params))
	for i, p := range n.Params {
		m.Params[i] = c.Var(p)
	}
	m.Self = c.Var(n.Self)
	m.Locals = make([]Variable, len(n.Locals))
	for i, v := range n.Locals {
		m.Locals[i] = c.Copy(v).(Variable)
	}
	if n.Body != nil {
		m.Body = c.Copy(n.Body).(*Body)
	}
	m.Init = c.Block(n.Init)
	m.Expr = c.Copy(n.Expr)
	m.Cases = append([]DispatchCase(nil), n.Cases...)
	if n.Result != nil {
		m.Result = c.Copy(n.Result).(Variable)
	}
	return &m
}
