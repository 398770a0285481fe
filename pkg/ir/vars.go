package ir

import (
	"fmt"

	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

// Variable is implemented by source-slot variables and temporaries.
type Variable interface {
	Node
	VarID() int
	Name() string
	IsMutable() bool
	StaticValueNode() Node
}

// Identity is the unit of variable equality. Several Var wrappers may share
// one identity, and identities may be unified after the fact; the forward
// link makes every wrapper of a unified identity follow.
type Identity struct {
	ID      int
	T       srctypes.Type
	Value   Node
	Mutable bool

	forward *Identity
}

func (id *Identity) root() *Identity {
	r := id
	for r.forward != nil {
		r = r.forward
	}
	// path compression
	for id.forward != nil && id.forward != r {
		next := id.forward
		id.forward = r
		id = next
	}
	return r
}

// Var is a source-slot variable.
type Var struct {
	leaf
	Slot  int
	ident *Identity
}

// NewVar creates a variable with a fresh identity.
func NewVar(slot, id int, t srctypes.Type) *Var {
	return &Var{Slot: slot, ident: &Identity{ID: id, T: t}}
}

// Ref returns another reference to the same identity.
func (v *Var) Ref() *Var {
	return &Var{Slot: v.Slot, ident: v.Identity()}
}

// Identity returns the current identity after unification.
func (v *Var) Identity() *Identity { return v.ident.root() }

func (v *Var) VarID() int              { return v.Identity().ID }
func (v *Var) Name() string            { return fmt.Sprintf("v%d", v.VarID()) }
func (v *Var) Type() srctypes.Type     { return v.Identity().T }
func (v *Var) IsMutable() bool         { return v.Identity().Mutable }
func (v *Var) StaticValueNode() Node   { return v.Identity().Value }
func (v *Var) SetID(id int)            { v.Identity().ID = id }
func (v *Var) SetType(t srctypes.Type) { v.Identity().T = t }

// SetValue records the statically known value of an immutable variable.
func (v *Var) SetValue(n Node) {
	id := v.Identity()
	if id.Mutable {
		panic(fmt.Sprintf("ir: SetValue on mutable %s", v.Name()))
	}
	id.Value = n
}

// BeMutable marks the variable as assigned on more than one path, which
// makes its static value unavailable.
func (v *Var) BeMutable() {
	id := v.Identity()
	id.Mutable = true
	id.Value = nil
}

// Identical reports whether v and o denote the same variable.
func (v *Var) Identical(o *Var) bool {
	return v.Identity() == o.Identity()
}

// Unify makes v an alias of o: every reference sharing v's identity now
// denotes o.
func (v *Var) Unify(o *Var) {
	a, b := v.Identity(), o.Identity()
	if a != b {
		a.forward = b
	}
}

// Temp is a temporary synthesized during lowering or inlining.
type Temp struct {
	leaf
	ID    int
	T     srctypes.Type
	Value Node
}

func (t *Temp) VarID() int            { return t.ID }
func (t *Temp) Name() string          { return fmt.Sprintf("tmp%d", t.ID) }
func (t *Temp) Type() srctypes.Type   { return t.T }
func (t *Temp) IsMutable() bool       { return t.Value == nil }
func (t *Temp) StaticValueNode() Node { return t.Value }

// maxValueDepth bounds the chase through variable values.
const maxValueDepth = 10

// StaticValue returns the node a variable is statically known to hold,
// chasing through variables; non-variable nodes are their own value. It
// returns nil when the value is unknown.
func StaticValue(n Node) Node {
	for depth := 0; depth < maxValueDepth; depth++ {
		v, ok := n.(Variable)
		if !ok {
			return n
		}
		if v.IsMutable() {
			return nil
		}
		n = v.StaticValueNode()
		if n == nil {
			return nil
		}
	}
	return nil
}
