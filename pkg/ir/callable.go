package ir

import (
	"fmt"

	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

// CallableKind tags the variants of Callable.
type CallableKind int

const (
	Ordinary CallableKind = iota
	Dispatcher
	NativeBody
	ForeignSymbol
	Remote
	Inlined
)

func (k CallableKind) String() string {
	names := []string{"function", "dispatcher", "native", "foreign", "remote", "inlined"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// TargetIndex is the argument index a receiver parameter maps to.
const TargetIndex = -1

// DispatchCase pairs a receiver class with the callable that implements the
// dispatched method for it.
type DispatchCase struct {
	Receiver *srctypes.Class
	Impl     *Callable
}

// Callable is a procedure of any kind. Name, Return, Params and the
// parameter mapping are shared; the remaining fields belong to one kind each.
type Callable struct {
	Kind   CallableKind
	Name   string
	Method *srctypes.Method
	Return srctypes.Type
	Params []*Var

	// Ordinary
	Locals []Variable
	// ValueCtor marks a constructor of a value class, which builds and
	// returns its receiver by value. Self is that receiver; it is a local,
	// not a parameter.
	ValueCtor bool
	Self      *Var

	// Ordinary and Inlined (statement form)
	Body *Body

	// Inlined
	Expr        Node
	Init        *Block
	Origin      *Callable
	SimpleBlock bool
	// Result holds the value of a statement-form inlined function once
	// its body has run.
	Result Variable

	// Dispatcher
	Cases []DispatchCase

	// NativeBody
	Native string

	// ForeignSymbol
	Symbol string

	// Remote
	Selector int

	nextID int
}

// NewFunction creates an ordinary function for m with one parameter per
// entry of m.ParamTypes(), numbered from zero.
func NewFunction(name string, m *srctypes.Method) *Callable {
	f := &Callable{Kind: Ordinary, Name: name, Method: m, Return: m.ReturnType()}
	for i, t := range m.ParamTypes() {
		f.Params = append(f.Params, NewVar(i, f.NewID(), t))
	}
	return f
}

// MakeValueCtor turns a constructor built by NewFunction into a value
// constructor: the receiver parameter becomes Self.
func (f *Callable) MakeValueCtor() {
	if f.ValueCtor {
		return
	}
	if len(f.Params) == 0 || f.Method == nil || !f.Method.Constructor {
		panic(fmt.Sprintf("ir: %s is not a constructor", f.Name))
	}
	f.ValueCtor = true
	f.Self = f.Params[0]
	f.Params = f.Params[1:]
}

// Specializable reports whether call-site optimizations may replace the
// callee. Only ordinary functions qualify.
func (f *Callable) Specializable() bool { return f.Kind == Ordinary }

// IsExpression reports whether an inlined function reduced to one expression.
func (f *Callable) IsExpression() bool { return f.Kind == Inlined && f.Expr != nil }

// ParamIndex maps parameter i to the call-site argument it binds, or to
// TargetIndex for the receiver. Value constructors build their receiver
// and take no receiver parameter.
func (f *Callable) ParamIndex(i int) int {
	if !f.ValueCtor && f.Method != nil && f.Method.HasReceiver() {
		if i == 0 {
			return TargetIndex
		}
		return i - 1
	}
	return i
}

// NewID allocates a variable id unique within the function.
func (f *Callable) NewID() int {
	id := f.nextID
	f.nextID++
	return id
}

// ReserveIDs makes sure ids below n are never handed out again.
func (f *Callable) ReserveIDs(n int) {
	if n > f.nextID {
		f.nextID = n
	}
}

// NewTemp declares a fresh temporary local.
func (f *Callable) NewTemp(t srctypes.Type) *Temp {
	tmp := &Temp{ID: f.NewID(), T: t}
	f.Locals = append(f.Locals, tmp)
	return tmp
}

// AddLocal declares a local variable.
func (f *Callable) AddLocal(v Variable) {
	f.Locals = append(f.Locals, v)
}

// AddCase records the implementation for one receiver class. The
// implementation must implement the dispatched method.
func (f *Callable) AddCase(recv *srctypes.Class, impl *Callable) {
	if f.Kind != Dispatcher {
		panic(fmt.Sprintf("ir: AddCase on %s %s", f.Kind, f.Name))
	}
	if impl.Method == nil || impl.Method.Signature() != f.Method.Signature() {
		panic(fmt.Sprintf("ir: %s cannot dispatch %s to %v", f.Name, f.Method, impl.Method))
	}
	if f.Supports(recv) {
		return
	}
	f.Cases = append(f.Cases, DispatchCase{Receiver: recv, Impl: impl})
}

// Supports reports whether a case for recv is recorded.
func (f *Callable) Supports(recv *srctypes.Class) bool {
	for _, c := range f.Cases {
		if c.Receiver == recv {
			return true
		}
	}
	return false
}

// Single returns the only implementation when every case binds the same
// callable, which lets call sites skip the dispatcher.
func (f *Callable) Single() *Callable {
	if len(f.Cases) == 0 {
		return nil
	}
	impl := f.Cases[0].Impl
	for _, c := range f.Cases[1:] {
		if c.Impl != impl {
			return nil
		}
	}
	return impl
}

func (f *Callable) parts() []Node {
	var out []Node
	switch f.Kind {
	case Ordinary:
		if f.Body != nil {
			out = append(out, f.Body)
		}
	case Inlined:
		if f.Init != nil {
			out = append(out, f.Init)
		}
		if f.Expr != nil {
			out = append(out, f.Expr)
		} else if f.Body != nil {
			out = append(out, f.Body)
		}
	}
	return out
}

func (f *Callable) NumChildren() int { return len(f.parts()) }

func (f *Callable) Child(i int) Node {
	parts := f.parts()
	if i < 0 || i >= len(parts) {
		badChild(f, i)
	}
	return parts[i]
}

func (f *Callable) SetChild(i int, c Node) {
	parts := f.parts()
	if i < 0 || i >= len(parts) {
		badChild(f, i)
	}
	switch old := parts[i].(type) {
	case *Body:
		f.Body = c.(*Body)
	case *Block:
		if old == f.Init {
			f.Init = c.(*Block)
			return
		}
		badChild(f, i)
	default:
		f.Expr = c
	}
}

func (f *Callable) Type() srctypes.Type { return f.Return }
