// Package inline replaces call sites with copies of their callees.
//
// A callee whose body is a single return becomes an expression-form
// inlined function: parameter bindings followed by the returned value,
// joined with the comma operator. Any other callee can only be inlined
// where its call is a statement, the right side of an assignment
// statement, or the value of a return statement; it then becomes a
// statement-form inlined function whose returns store into a result
// variable and jump to a trailing end block.
//
// Inlining is idempotent: a call already replaced by an inlined function
// is left as it is.
package inline

import (
	"github.com/raymyers/ralph-offload/pkg/ir"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

// Options controls which sites are inlined.
type Options struct {
	Enabled bool
	// ObjectInlining caches field reads of statically known arguments in
	// methods that allow it.
	ObjectInlining bool
}

// Context is the position of a call inside its statement.
type Context int

const (
	InExpr   Context = iota // nested in a larger expression
	InStmt                  // the whole statement
	InAssign                // right side of an assignment statement
	InReturn                // value of a return statement
)

// Inliner rewrites call sites.
type Inliner struct {
	opts   Options
	active map[*ir.Callable]bool

	// Sites counts the call sites inlined so far.
	Sites int
}

// New returns an inliner.
func New(opts Options) *Inliner {
	return &Inliner{opts: opts, active: make(map[*ir.Callable]bool)}
}

// Function inlines every eligible call site in f, including sites that
// appear inside bodies inlined along the way, and returns the number of
// sites inlined.
func (in *Inliner) Function(f *ir.Callable) int {
	if f.Kind != ir.Ordinary || f.Body == nil {
		return 0
	}
	before := in.Sites
	in.active[f] = true
	in.body(f, f.Body)
	delete(in.active, f)
	return in.Sites - before
}

func (in *Inliner) body(caller *ir.Callable, b *ir.Body) {
	for _, blk := range b.Blocks {
		in.block(caller, blk)
	}
}

func (in *Inliner) block(caller *ir.Callable, blk *ir.Block) {
	for _, s := range blk.Stmts {
		switch s := s.(type) {
		case *ir.Call:
			in.visit(caller, s, InStmt, nil)
		case *ir.Assign:
			in.visitChildren(caller, s.Lhs)
			in.visit(caller, s.Rhs, InAssign, s.Lhs)
		case *ir.Return:
			if s.X != nil {
				in.visit(caller, s.X, InReturn, nil)
			}
		default:
			in.visit(caller, s, InExpr, nil)
		}
	}
}

// visit processes n after its children, so that arguments are inlined
// before the call that consumes them.
func (in *Inliner) visit(caller *ir.Callable, n ir.Node, ctx Context, lhs ir.Node) {
	if n == nil {
		return
	}
	call, ok := n.(*ir.Call)
	if !ok {
		in.visitChildren(caller, n)
		return
	}
	if f := call.Inlined(); f != nil {
		in.inlined(caller, f)
		return
	}
	in.visitChildren(caller, call)
	in.Site(caller, call, ctx, lhs)
}

func (in *Inliner) visitChildren(caller *ir.Callable, n ir.Node) {
	if n == nil {
		return
	}
	for i := 0; i < n.NumChildren(); i++ {
		in.visit(caller, n.Child(i), InExpr, nil)
	}
}

// inlined descends into an inlined function so that calls its body makes
// are inlined too.
func (in *Inliner) inlined(caller *ir.Callable, f *ir.Callable) {
	if f.Origin != nil {
		if in.active[f.Origin] {
			return
		}
		in.active[f.Origin] = true
		defer delete(in.active, f.Origin)
	}
	if f.Init != nil {
		in.block(caller, f.Init)
	}
	if f.Expr != nil {
		in.visit(caller, f.Expr, InExpr, nil)
	} else if f.Body != nil {
		in.body(caller, f.Body)
	}
}

// Site inlines one call appearing in caller at position ctx; lhs is the
// assigned location for InAssign. It reports whether the call now refers
// to an inlined function.
func (in *Inliner) Site(caller *ir.Callable, call *ir.Call, ctx Context, lhs ir.Node) bool {
	if call.Inlined() != nil {
		return true
	}
	callee := call.Callee
	if !in.eligible(caller, callee) {
		return false
	}
	expr := returnOnly(callee.Body)
	if expr == nil {
		if callee.Method.Meta.Inline != srctypes.InlineAlways || ctx == InExpr {
			return false
		}
	}

	f := in.instantiate(caller, callee)
	init := in.bindArgs(caller, call, f)
	if in.opts.ObjectInlining && callee.Method.Meta.InlineObjects {
		in.cacheFields(caller, call, f, init)
	}

	if expr != nil {
		in.toExpression(f, init)
	} else {
		in.toStatements(caller, f, init, ctx, lhs)
	}
	call.Callee = f
	in.Sites++
	in.inlined(caller, f)
	return true
}

func (in *Inliner) eligible(caller, callee *ir.Callable) bool {
	if !in.opts.Enabled || callee == nil || !callee.Specializable() || callee.Body == nil {
		return false
	}
	if callee.ValueCtor || callee.Method == nil || callee.Method.Meta.Inline == srctypes.InlineNever {
		return false
	}
	return callee != caller && !in.active[callee]
}

// returnOnly returns the value returned by a body made of one return
// statement, or nil.
func returnOnly(b *ir.Body) ir.Node {
	if b == nil || len(b.Blocks) != 1 || len(b.Blocks[0].Stmts) != 1 {
		return nil
	}
	if r, ok := b.Blocks[0].Stmts[0].(*ir.Return); ok {
		return r.X
	}
	return nil
}

// instantiate copies callee with variable ids drawn from caller.
func (in *Inliner) instantiate(caller, callee *ir.Callable) *ir.Callable {
	c := ir.NewCopier()
	c.Renumber = caller.NewID
	f := c.Copy(callee).(*ir.Callable)
	f.Kind = ir.Inlined
	f.Origin = callee
	for _, v := range f.Locals {
		caller.AddLocal(v)
	}
	f.Locals = nil
	return f
}

func (in *Inliner) toExpression(f *ir.Callable, init *ir.Block) {
	e := returnOnly(f.Body)
	for i := len(init.Stmts) - 1; i >= 0; i-- {
		e = &ir.Comma{L: init.Stmts[i], R: e}
	}
	f.Expr = e
	f.Body = nil
	f.Init = nil
}

// toStatements rewrites the returns of the copied body: every return
// stores its value into the result variable and jumps to a new end block;
// a return that ends the last block falls through instead.
func (in *Inliner) toStatements(caller, f *ir.Callable, init *ir.Block, ctx Context, lhs ir.Node) {
	if len(init.Stmts) > 0 {
		f.Init = init
	}
	body := f.Body
	f.SimpleBlock = len(body.Blocks) == 1
	ret := f.Return
	if ret != nil && ret.Kind() != srctypes.KVoid {
		if v, ok := lhs.(ir.Variable); ok && ctx == InAssign && v.IsMutable() && srctypes.Equal(v.Type(), ret) {
			f.Result = v
		} else {
			f.Result = caller.NewTemp(ret)
		}
	}

	last := body.Blocks[len(body.Blocks)-1]
	end := body.AddBlock()
	for _, blk := range body.Blocks {
		var out []ir.Node
		for i, s := range blk.Stmts {
			r, ok := s.(*ir.Return)
			if !ok {
				out = append(out, s)
				continue
			}
			if r.X != nil && f.Result != nil {
				out = append(out, &ir.Assign{Lhs: ref(f.Result), Rhs: r.X})
			}
			if blk != last || i != len(blk.Stmts)-1 {
				out = append(out, ir.NewGoto(end))
			}
		}
		blk.Stmts = out
	}
}

// ref returns a new reference to v.
func ref(v ir.Variable) ir.Node {
	if x, ok := v.(*ir.Var); ok {
		return x.Ref()
	}
	return v
}
