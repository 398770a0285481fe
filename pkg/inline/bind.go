package inline

import (
	"github.com/raymyers/ralph-offload/pkg/ir"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

// argument returns the call-site expression bound to parameter i of f.
func argument(call *ir.Call, f *ir.Callable, i int) ir.Node {
	idx := f.ParamIndex(i)
	if idx == ir.TargetIndex {
		return call.Target
	}
	if idx < len(call.Args) {
		return call.Args[idx]
	}
	return nil
}

// bindArgs binds the parameters of the copied function f to the call's
// arguments, in evaluation order, and returns the block of bindings that
// must run first. A parameter the callee never assigns is
//   - unified with a variable argument of the same type, when no later
//     argument has side effects;
//   - given the argument's value when that value is a constant;
//   - replaced by copies of a final field read on an immutable variable.
//
// Any other parameter becomes a local of the caller assigned from its
// argument.
func (in *Inliner) bindArgs(caller *ir.Callable, call *ir.Call, f *ir.Callable) *ir.Block {
	init := &ir.Block{Index: -1}
	n := len(f.Params)
	args := make([]ir.Node, n)
	for i := range f.Params {
		args[i] = argument(call, f, i)
	}
	laterEffects := make([]bool, n+1)
	for i := n - 1; i >= 0; i-- {
		laterEffects[i] = laterEffects[i+1] || (args[i] != nil && ir.HasSideEffects(args[i]))
	}

	for i, p := range f.Params {
		a := args[i]
		if a == nil {
			continue
		}
		if !p.IsMutable() {
			if v, ok := a.(*ir.Var); ok && !laterEffects[i+1] && srctypes.Equal(v.Type(), p.Type()) {
				p.Unify(v)
				continue
			}
			if val := ir.StaticValue(a); val != nil && ir.IsConstant(val) && !ir.HasSideEffects(a) {
				p.SetValue(val)
				continue
			}
			if g, ok := finalFieldRead(a); ok && srctypes.Equal(g.Type(), p.Type()) {
				ir.ReplaceVar(f, p.Identity(), func() ir.Node { return ir.Copy(g) })
				continue
			}
		}
		caller.AddLocal(p)
		init.Add(&ir.Assign{Lhs: p.Ref(), Rhs: a})
	}
	return init
}

// finalFieldRead reports whether n reads a final field through an
// immutable variable, which makes repeated reads equal to one.
func finalFieldRead(n ir.Node) (*ir.GetField, bool) {
	g, ok := n.(*ir.GetField)
	if !ok || !g.Field.Final {
		return nil, false
	}
	if g.Target == nil {
		return g, true
	}
	v, ok := g.Target.(ir.Variable)
	return g, ok && !v.IsMutable()
}

// cacheFields implements object inlining. For each parameter whose
// argument is a statically known object, field reads through the
// parameter are computed once into temporaries in init, provided the
// body never writes the field and the parameter does not escape.
//
// The rewrite is only correct if, while the inlined body runs, no alias
// of the argument is used to modify it. Methods opt in through their
// inline_objects metadata; the engine does not verify the condition.
func (in *Inliner) cacheFields(caller *ir.Callable, call *ir.Call, f *ir.Callable, init *ir.Block) {
	written := writtenFields(f)
	for i, p := range f.Params {
		a := argument(call, f, i)
		if a == nil {
			continue
		}
		switch ir.StaticValue(a).(type) {
		case *ir.New, *ir.ObjectConst:
		default:
			continue
		}
		if escapes(f, p) {
			continue
		}
		cache := make(map[*srctypes.Field]*ir.Temp)
		rewrite(f, func(n ir.Node) ir.Node {
			g, ok := n.(*ir.GetField)
			if !ok || g.Target == nil || written[g.Field] {
				return n
			}
			v, ok := g.Target.(*ir.Var)
			if !ok || !v.Identical(p) {
				return n
			}
			tmp, ok := cache[g.Field]
			if !ok {
				tmp = caller.NewTemp(g.Field.Type)
				cache[g.Field] = tmp
				init.Add(&ir.Assign{Lhs: tmp, Rhs: g})
			}
			return tmp
		})
	}
}

// writtenFields returns the fields assigned anywhere in f.
func writtenFields(f *ir.Callable) map[*srctypes.Field]bool {
	out := make(map[*srctypes.Field]bool)
	ir.Inspect(f, func(n ir.Node) bool {
		if a, ok := n.(*ir.Assign); ok {
			if g, ok := a.Lhs.(*ir.GetField); ok {
				out[g.Field] = true
			}
		}
		return true
	})
	return out
}

// escapes reports whether p leaves f: passed to a call, stored by an
// assignment or returned.
func escapes(f *ir.Callable, p *ir.Var) bool {
	found := false
	is := func(n ir.Node) bool {
		v, ok := n.(*ir.Var)
		return ok && v.Identical(p)
	}
	ir.Inspect(f, func(n ir.Node) bool {
		switch n := n.(type) {
		case *ir.Call:
			for _, a := range append([]ir.Node{n.Target}, n.Args...) {
				found = found || is(a)
			}
		case *ir.Assign:
			found = found || is(n.Rhs)
		case *ir.Return:
			found = found || is(n.X)
		}
		return !found
	})
	return found
}

// rewrite replaces nodes below root bottom-up with the result of f.
func rewrite(root ir.Node, f func(ir.Node) ir.Node) {
	for i := 0; i < root.NumChildren(); i++ {
		c := root.Child(i)
		if c == nil {
			continue
		}
		rewrite(c, f)
		if r := f(c); r != c {
			root.SetChild(i, r)
		}
	}
}
