// Package ir is the typed tree a managed method body is decompiled into.
// Nodes expose their children by index so passes can rewrite them in place;
// jump targets are direct block references that are not children, which is
// what makes bodies cyclic.
package ir

import (
	"fmt"

	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

// Node is the interface for all IR nodes
type Node interface {
	NumChildren() int
	Child(i int) Node
	SetChild(i int, n Node)
	Type() srctypes.Type
	Accept(v Visitor) error
	clone(c *Copier) Node
}

func badChild(n Node, i int) {
	panic(fmt.Sprintf("ir: child %d out of range for %T with %d children", i, n, n.NumChildren()))
}

// leaf is embedded by nodes without children.
type leaf struct{}

func (leaf) NumChildren() int { return 0 }

func (leaf) Child(i int) Node {
	panic(fmt.Sprintf("ir: leaf node has no child %d", i))
}

func (leaf) SetChild(i int, _ Node) {
	panic(fmt.Sprintf("ir: leaf node has no child %d", i))
}

// Constants

// IntConst is a 32-bit or narrower integer constant; T records the source
// type (int, boolean, char, ...).
type IntConst struct {
	leaf
	T     srctypes.Type
	Value int32
}

// LongConst is a 64-bit integer constant
type LongConst struct {
	leaf
	Value int64
}

// FloatConst is a 32-bit float constant
type FloatConst struct {
	leaf
	Value float32
}

// DoubleConst is a 64-bit float constant
type DoubleConst struct {
	leaf
	Value float64
}

// StringConst is a text literal of the built-in string type.
type StringConst struct {
	leaf
	T     srctypes.Type
	Value string
}

// NullConst is the null reference, typed by its use site.
type NullConst struct {
	leaf
	T srctypes.Type
}

// Global is a statically known managed object emitted as native static data.
type Global struct {
	Name   string
	Class  *srctypes.Class
	Fields map[string]Node
}

// ObjectConst refers to a Global.
type ObjectConst struct {
	leaf
	Global *Global
}

// Expressions

// Unary applies a unary operator
type Unary struct {
	Op UnaryOp
	X  Node
	T  srctypes.Type
}

// Binary applies a binary operator
type Binary struct {
	Op   BinaryOp
	L, R Node
	T    srctypes.Type
}

// Convert is a primitive conversion such as int to long.
type Convert struct {
	X  Node
	To srctypes.Type
}

// Cast is a reference cast to To.
type Cast struct {
	X  Node
	To srctypes.Type
}

// Assign stores Rhs into Lhs, which is a variable, field or array element.
type Assign struct {
	Lhs, Rhs Node
}

// GetField reads a field. Target is nil for a static field; Class is the
// static type the field was looked up on.
type GetField struct {
	Target Node
	Class  *srctypes.Class
	Field  *srctypes.Field
}

// ArrayElem indexes an array.
type ArrayElem struct {
	Array, Index Node
	T            srctypes.Type
}

// NewArray allocates a one-dimensional array.
type NewArray struct {
	Elem srctypes.Type
	Len  Node
}

// Call invokes Method. Callee is the resolved callable once known; when it
// is an inlined function the call's only child is that function.
type Call struct {
	Kind   CallKind
	Method *srctypes.Method
	Target Node
	Args   []Node
	Callee *Callable
}

// New instantiates Class and runs Ctor on Tmp, which holds the new object.
type New struct {
	Class *srctypes.Class
	Ctor  *Call
	Tmp   *Temp
}

// Comma evaluates L then R and yields R.
type Comma struct {
	L, R Node
}

// InstanceOf is a dynamic type test. It has no lowering.
type InstanceOf struct {
	X     Node
	Class *srctypes.Class
}

// Monitor is a monitor enter or exit. It has no lowering.
type Monitor struct {
	X     Node
	Enter bool
}

// Types

func (n *IntConst) Type() srctypes.Type {
	if n.T == nil {
		return srctypes.Int
	}
	return n.T
}
func (*LongConst) Type() srctypes.Type      { return srctypes.Long }
func (*FloatConst) Type() srctypes.Type     { return srctypes.Float }
func (*DoubleConst) Type() srctypes.Type    { return srctypes.Double }
func (n *StringConst) Type() srctypes.Type  { return n.T }
func (n *NullConst) Type() srctypes.Type    { return n.T }
func (n *ObjectConst) Type() srctypes.Type  { return n.Global.Class }
func (n *Unary) Type() srctypes.Type        { return n.T }
func (n *Binary) Type() srctypes.Type       { return n.T }
func (n *Convert) Type() srctypes.Type      { return n.To }
func (n *Cast) Type() srctypes.Type         { return n.To }
func (n *Assign) Type() srctypes.Type       { return n.Lhs.Type() }
func (n *GetField) Type() srctypes.Type     { return n.Field.Type }
func (n *ArrayElem) Type() srctypes.Type    { return n.T }
func (n *NewArray) Type() srctypes.Type     { return srctypes.ArrayOf(n.Elem) }
func (n *Call) Type() srctypes.Type         { return n.Method.ReturnType() }
func (n *New) Type() srctypes.Type          { return n.Class }
func (n *Comma) Type() srctypes.Type        { return n.R.Type() }
func (*InstanceOf) Type() srctypes.Type     { return srctypes.Boolean }
func (*Monitor) Type() srctypes.Type        { return srctypes.Void }

// Children

func (n *Unary) NumChildren() int { return 1 }
func (n *Unary) Child(i int) Node {
	if i != 0 {
		badChild(n, i)
	}
	return n.X
}
func (n *Unary) SetChild(i int, c Node) {
	if i != 0 {
		badChild(n, i)
	}
	n.X = c
}

func (n *Binary) NumChildren() int { return 2 }
func (n *Binary) Child(i int) Node {
	switch i {
	case 0:
		return n.L
	case 1:
		return n.R
	}
	badChild(n, i)
	return nil
}
func (n *Binary) SetChild(i int, c Node) {
	switch i {
	case 0:
		n.L = c
	case 1:
		n.R = c
	default:
		badChild(n, i)
	}
}

func (n *Convert) NumChildren() int { return 1 }
func (n *Convert) Child(i int) Node {
	if i != 0 {
		badChild(n, i)
	}
	return n.X
}
func (n *Convert) SetChild(i int, c Node) {
	if i != 0 {
		badChild(n, i)
	}
	n.X = c
}

func (n *Cast) NumChildren() int { return 1 }
func (n *Cast) Child(i int) Node {
	if i != 0 {
		badChild(n, i)
	}
	return n.X
}
func (n *Cast) SetChild(i int, c Node) {
	if i != 0 {
		badChild(n, i)
	}
	n.X = c
}

func (n *Assign) NumChildren() int { return 2 }
func (n *Assign) Child(i int) Node {
	switch i {
	case 0:
		return n.Lhs
	case 1:
		return n.Rhs
	}
	badChild(n, i)
	return nil
}
func (n *Assign) SetChild(i int, c Node) {
	switch i {
	case 0:
		n.Lhs = c
	case 1:
		n.Rhs = c
	default:
		badChild(n, i)
	}
}

// IsStatic reports whether the field read has no receiver.
func (n *GetField) IsStatic() bool { return n.Target == nil }

func (n *GetField) NumChildren() int {
	if n.Target == nil {
		return 0
	}
	return 1
}
func (n *GetField) Child(i int) Node {
	if i != 0 || n.Target == nil {
		badChild(n, i)
	}
	return n.Target
}
func (n *GetField) SetChild(i int, c Node) {
	if i != 0 || n.Target == nil {
		badChild(n, i)
	}
	n.Target = c
}

func (n *ArrayElem) NumChildren() int { return 2 }
func (n *ArrayElem) Child(i int) Node {
	switch i {
	case 0:
		return n.Array
	case 1:
		return n.Index
	}
	badChild(n, i)
	return nil
}
func (n *ArrayElem) SetChild(i int, c Node) {
	switch i {
	case 0:
		n.Array = c
	case 1:
		n.Index = c
	default:
		badChild(n, i)
	}
}

func (n *NewArray) NumChildren() int { return 1 }
func (n *NewArray) Child(i int) Node {
	if i != 0 {
		badChild(n, i)
	}
	return n.Len
}
func (n *NewArray) SetChild(i int, c Node) {
	if i != 0 {
		badChild(n, i)
	}
	n.Len = c
}

// Inlined returns the inlined function replacing this call, or nil.
func (n *Call) Inlined() *Callable {
	if n.Callee != nil && n.Callee.Kind == Inlined {
		return n.Callee
	}
	return nil
}

func (n *Call) NumChildren() int {
	if n.Inlined() != nil {
		return 1
	}
	if n.Target != nil {
		return len(n.Args) + 1
	}
	return len(n.Args)
}
func (n *Call) Child(i int) Node {
	if f := n.Inlined(); f != nil {
		if i != 0 {
			badChild(n, i)
		}
		return f
	}
	if n.Target != nil {
		if i == 0 {
			return n.Target
		}
		i--
	}
	if i < 0 || i >= len(n.Args) {
		badChild(n, i)
	}
	return n.Args[i]
}
func (n *Call) SetChild(i int, c Node) {
	if n.Inlined() != nil {
		f, ok := c.(*Callable)
		if i != 0 || !ok {
			badChild(n, i)
		}
		n.Callee = f
		return
	}
	if n.Target != nil {
		if i == 0 {
			n.Target = c
			return
		}
		i--
	}
	if i < 0 || i >= len(n.Args) {
		badChild(n, i)
	}
	n.Args[i] = c
}

// ActualTargetType narrows the receiver class when it is statically
// determinable: a static or special call, a receiver whose value is a known
// allocation or given object, or a final method or class. It returns nil
// when the call must be dispatched dynamically. The result is derived from
// the current Target on every call.
func (n *Call) ActualTargetType() *srctypes.Class {
	m := n.Method
	if n.Kind == CallStatic || n.Kind == CallSpecial {
		return m.Declaring
	}
	if n.Target != nil {
		switch v := StaticValue(n.Target).(type) {
		case *New:
			return v.Class
		case *ObjectConst:
			return v.Global.Class
		}
	}
	if m.Final || (m.Declaring != nil && m.Declaring.Final) {
		return m.Declaring
	}
	return nil
}

func (n *New) NumChildren() int {
	if n.Ctor == nil {
		return 0
	}
	return 1
}
func (n *New) Child(i int) Node {
	if i != 0 || n.Ctor == nil {
		badChild(n, i)
	}
	return n.Ctor
}
func (n *New) SetChild(i int, c Node) {
	call, ok := c.(*Call)
	if i != 0 || n.Ctor == nil || !ok {
		badChild(n, i)
	}
	n.Ctor = call
}

func (n *Comma) NumChildren() int { return 2 }
func (n *Comma) Child(i int) Node {
	switch i {
	case 0:
		return n.L
	case 1:
		return n.R
	}
	badChild(n, i)
	return nil
}
func (n *Comma) SetChild(i int, c Node) {
	switch i {
	case 0:
		n.L = c
	case 1:
		n.R = c
	default:
		badChild(n, i)
	}
}

func (n *InstanceOf) NumChildren() int { return 1 }
func (n *InstanceOf) Child(i int) Node {
	if i != 0 {
		badChild(n, i)
	}
	return n.X
}
func (n *InstanceOf) SetChild(i int, c Node) {
	if i != 0 {
		badChild(n, i)
	}
	n.X = c
}

func (n *Monitor) NumChildren() int { return 1 }
func (n *Monitor) Child(i int) Node {
	if i != 0 {
		badChild(n, i)
	}
	return n.X
}
func (n *Monitor) SetChild(i int, c Node) {
	if i != 0 {
		badChild(n, i)
	}
	n.X = c
}

// IsConstant reports whether n is a literal whose text can replace a
// variable read.
func IsConstant(n Node) bool {
	switch n.(type) {
	case *IntConst, *LongConst, *FloatConst, *DoubleConst, *StringConst, *NullConst, *ObjectConst:
		return true
	}
	return false
}

// Int returns an int constant
func Int(v int32) *IntConst { return &IntConst{T: srctypes.Int, Value: v} }
