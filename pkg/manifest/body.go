package manifest

// Method bodies are given either as
//
//	expr: <expression>
//
// for a body that returns one value, or as
//
//	body:
//	  - [<stmt>, <stmt>, ...]   # block 0
//	  - [<stmt>, ...]           # block 1
//
// A body holding a flat list of statements is one block. Blocks fall
// through to the next block; jumps name a block by its index.
//
// Statements:
//
//	{set: [lhs, rhs]}            assignment to a variable, field or element
//	{if: [cond, N]}              branch to block N
//	{goto: N}
//	{switch: [x, {k: N, ...}, D]}
//	{return: x}  or  return
//	{throw: x}, {monitor: x}, {monitorexit: x}
//	any expression
//
// Expressions:
//
//	v3, this                     variable slot 3, the receiver
//	1, 2L, 1.5, 1.5f, true, null literals; "text" is a string
//	$name                        a compile-time object
//	{add: [a, b]} ...            binary operators by name or C spelling
//	{neg: x}, {not: x}, {bitnot: x}, {length: x}
//	{convert: [x, long]}, {cast: [x, pkg.Class]}
//	{get: [target, field]}, {static: [pkg.Class, field]}
//	{elem: [array, index]}, {newarray: [type, length]}
//	{new: [pkg.Class, args...]}
//	{call: [pkg.Class.method, args...]}
//	{invoke: [target, method, args...]}
//	{special: [target, pkg.Class.method, args...]}
//	{instanceof: [x, pkg.Class]}, {comma: [a, b]}
//
// Variables given in locals: are assigned types by slot, as in
// locals: {v2: int}. A local assigned exactly once with a constant is
// known to hold that constant; a variable assigned more than once, or a
// parameter assigned at all, is mutable.

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-offload/pkg/ir"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

var binaryNames = map[string]ir.BinaryOp{
	"add": ir.Add, "sub": ir.Sub, "mul": ir.Mul, "div": ir.Div, "rem": ir.Rem,
	"and": ir.And, "or": ir.Or, "xor": ir.Xor,
	"shl": ir.Shl, "shr": ir.Shr, "ushr": ir.Ushr,
	"eq": ir.Eq, "ne": ir.Ne, "lt": ir.Lt, "ge": ir.Ge, "gt": ir.Gt, "le": ir.Le,
	"cmp": ir.Cmp,
}

var unaryNames = map[string]ir.UnaryOp{
	"neg": ir.Neg, "not": ir.Not, "bitnot": ir.BitNot, "length": ir.Length,
}

type builder struct {
	m      *Manifest
	f      *ir.Callable
	vars   map[int]*ir.Var
	locals []*ir.Var
	params []*ir.Var
	blocks []*ir.Block
}

// Body builds the body of f from the manifest. f must have been created
// with ir.NewFunction for a method that has a body.
func (m *Manifest) Body(f *ir.Callable) error {
	src, ok := m.bodies[f.Method]
	if !ok {
		return fmt.Errorf("%s: %w", f.Method, ErrNoBody)
	}
	b := &builder{m: m, f: f, vars: make(map[int]*ir.Var)}
	if f.ValueCtor {
		b.params = append(b.params, f.Self)
	}
	b.params = append(b.params, f.Params...)
	for i, p := range b.params {
		b.vars[i] = p
	}
	if err := b.declare(src.locals); err != nil {
		return fmt.Errorf("%s: %w", f.Method, err)
	}
	if err := b.build(src); err != nil {
		return fmt.Errorf("%s: %w", f.Method, err)
	}
	b.mutability()
	return nil
}

func (b *builder) declare(locals map[string]string) error {
	slots := make([]int, 0, len(locals))
	types := make(map[int]srctypes.Type)
	for name, spelling := range locals {
		slot, ok := slotOf(name)
		if !ok {
			return fmt.Errorf("local %q is not a slot name", name)
		}
		if _, taken := b.vars[slot]; taken {
			return fmt.Errorf("local %s shadows a parameter", name)
		}
		t, err := b.m.Program.Type(spelling)
		if err != nil {
			return fmt.Errorf("local %s: %w", name, err)
		}
		slots = append(slots, slot)
		types[slot] = t
	}
	sort.Ints(slots)
	for _, slot := range slots {
		v := ir.NewVar(slot, b.f.NewID(), types[slot])
		b.vars[slot] = v
		b.locals = append(b.locals, v)
		b.f.AddLocal(v)
	}
	return nil
}

func slotOf(name string) (int, bool) {
	if !strings.HasPrefix(name, "v") {
		return 0, false
	}
	n, err := strconv.Atoi(name[1:])
	return n, err == nil && n >= 0
}

func (b *builder) build(src source) error {
	if src.expr != nil {
		b.f.Body = ir.NewBody(1)
		x, err := b.expr(src.expr)
		if err != nil {
			return err
		}
		blk := b.f.Body.Block(0)
		if isVoid(b.f.Method.ReturnType()) {
			blk.Add(x, &ir.Return{})
		} else {
			blk.Add(&ir.Return{X: x})
		}
		return nil
	}
	n := src.body
	if n.Kind != yaml.SequenceNode {
		return errAt(n, "body must be a list")
	}
	blocks := [][]*yaml.Node{n.Content}
	if len(n.Content) > 0 && n.Content[0].Kind == yaml.SequenceNode {
		blocks = blocks[:0]
		for _, blk := range n.Content {
			if blk.Kind != yaml.SequenceNode {
				return errAt(blk, "block must be a list of statements")
			}
			blocks = append(blocks, blk.Content)
		}
	}
	// every block exists before any jump refers to one
	b.f.Body = ir.NewBody(len(blocks))
	b.blocks = b.f.Body.Blocks
	for i, stmts := range blocks {
		for _, s := range stmts {
			st, err := b.stmt(s)
			if err != nil {
				return err
			}
			b.blocks[i].Add(st)
		}
	}
	return nil
}

// mutability marks assigned parameters and multiply assigned locals as
// mutable, and records the value of a local assigned once with a constant.
func (b *builder) mutability() {
	count := make(map[*ir.Identity]int)
	value := make(map[*ir.Identity]ir.Node)
	ir.Inspect(b.f.Body, func(n ir.Node) bool {
		if a, ok := n.(*ir.Assign); ok {
			if v, ok := a.Lhs.(*ir.Var); ok {
				id := v.Identity()
				count[id]++
				value[id] = a.Rhs
			}
		}
		return true
	})
	for _, p := range b.params {
		if count[p.Identity()] > 0 {
			p.BeMutable()
		}
	}
	for _, v := range b.locals {
		id := v.Identity()
		switch {
		case count[id] > 1:
			v.BeMutable()
		case count[id] == 1 && ir.IsConstant(value[id]):
			v.SetValue(value[id])
		}
	}
}

func isVoid(t srctypes.Type) bool {
	return t == nil || t.Kind() == srctypes.KVoid
}

// op splits a one-key mapping into its key and argument list.
func op(n *yaml.Node) (string, []*yaml.Node, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, errAt(n, "expected a one-key mapping")
	}
	args := n.Content[1]
	if args.Kind == yaml.SequenceNode {
		return n.Content[0].Value, args.Content, nil
	}
	return n.Content[0].Value, []*yaml.Node{args}, nil
}

func arity(n *yaml.Node, name string, args []*yaml.Node, want int) error {
	if len(args) != want {
		return errAt(n, "%s takes %d operands, got %d", name, want, len(args))
	}
	return nil
}

func (b *builder) block(n *yaml.Node) (*ir.Block, error) {
	var i int
	if err := n.Decode(&i); err != nil {
		return nil, errAt(n, "block index: %v", err)
	}
	if i < 0 || i >= len(b.blocks) {
		return nil, errAt(n, "no block %d", i)
	}
	return b.blocks[i], nil
}

func (b *builder) stmt(n *yaml.Node) (ir.Node, error) {
	if n.Kind == yaml.ScalarNode && n.Value == "return" {
		return &ir.Return{}, nil
	}
	name, args, err := op(n)
	if err != nil {
		return nil, err
	}
	switch name {
	case "set":
		if err := arity(n, name, args, 2); err != nil {
			return nil, err
		}
		lhs, err := b.expr(args[0])
		if err != nil {
			return nil, err
		}
		switch lhs.(type) {
		case *ir.Var, *ir.GetField, *ir.ArrayElem:
		default:
			return nil, errAt(args[0], "cannot assign to %s", ir.ExprString(lhs))
		}
		rhs, err := b.expr(args[1])
		if err != nil {
			return nil, err
		}
		return &ir.Assign{Lhs: lhs, Rhs: rhs}, nil
	case "if":
		if err := arity(n, name, args, 2); err != nil {
			return nil, err
		}
		cond, err := b.expr(args[0])
		if err != nil {
			return nil, err
		}
		target, err := b.block(args[1])
		if err != nil {
			return nil, err
		}
		return ir.NewBranch(cond, target), nil
	case "goto":
		target, err := b.block(args[0])
		if err != nil {
			return nil, err
		}
		return ir.NewGoto(target), nil
	case "switch":
		return b.switchStmt(n, args)
	case "return":
		if len(args) == 1 && args[0].Tag == "!!null" {
			return &ir.Return{}, nil
		}
		x, err := b.expr(args[0])
		if err != nil {
			return nil, err
		}
		return &ir.Return{X: x}, nil
	case "throw":
		x, err := b.expr(args[0])
		if err != nil {
			return nil, err
		}
		return &ir.Throw{X: x}, nil
	case "monitor", "monitorexit":
		x, err := b.expr(args[0])
		if err != nil {
			return nil, err
		}
		return &ir.Monitor{X: x, Enter: name == "monitor"}, nil
	}
	return b.expr(n)
}

func (b *builder) switchStmt(n *yaml.Node, args []*yaml.Node) (ir.Node, error) {
	if len(args) < 2 || len(args) > 3 || args[1].Kind != yaml.MappingNode {
		return nil, errAt(n, "switch takes [value, {key: block}, default]")
	}
	x, err := b.expr(args[0])
	if err != nil {
		return nil, err
	}
	sw := &ir.Switch{X: x}
	cases := args[1].Content
	for i := 0; i+1 < len(cases); i += 2 {
		var k int32
		if err := cases[i].Decode(&k); err != nil {
			return nil, errAt(cases[i], "case key: %v", err)
		}
		target, err := b.block(cases[i+1])
		if err != nil {
			return nil, err
		}
		sw.Keys = append(sw.Keys, k)
		sw.Targets = append(sw.Targets, target)
	}
	if len(args) == 3 {
		if sw.Default, err = b.block(args[2]); err != nil {
			return nil, err
		}
	}
	return sw, nil
}

func (b *builder) exprs(ns []*yaml.Node) ([]ir.Node, error) {
	out := make([]ir.Node, len(ns))
	for i, n := range ns {
		x, err := b.expr(n)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (b *builder) class(n *yaml.Node) (*srctypes.Class, error) {
	c, err := b.m.Program.Class(n.Value)
	if err != nil {
		return nil, errAt(n, "%v", err)
	}
	return c, nil
}

func (b *builder) typ(n *yaml.Node) (srctypes.Type, error) {
	t, err := b.m.Program.Type(n.Value)
	if err != nil {
		return nil, errAt(n, "%v", err)
	}
	return t, nil
}

func (b *builder) expr(n *yaml.Node) (ir.Node, error) {
	if n.Kind == yaml.ScalarNode {
		return b.scalar(n)
	}
	name, args, err := op(n)
	if err != nil {
		return nil, err
	}
	if bop, ok := binaryNames[name]; ok {
		return b.binary(n, bop, args)
	}
	if bop, err := ir.ParseBinaryOp(name); err == nil {
		return b.binary(n, bop, args)
	}
	if uop, ok := unaryNames[name]; ok {
		if err := arity(n, name, args, 1); err != nil {
			return nil, err
		}
		x, err := b.expr(args[0])
		if err != nil {
			return nil, err
		}
		t := x.Type()
		if uop == ir.Length {
			t = srctypes.Int
		}
		return &ir.Unary{Op: uop, X: x, T: t}, nil
	}

	switch name {
	case "convert", "cast":
		if err := arity(n, name, args, 2); err != nil {
			return nil, err
		}
		x, err := b.expr(args[0])
		if err != nil {
			return nil, err
		}
		t, err := b.typ(args[1])
		if err != nil {
			return nil, err
		}
		if name == "convert" {
			return &ir.Convert{X: x, To: t}, nil
		}
		return &ir.Cast{X: x, To: t}, nil
	case "get":
		if err := arity(n, name, args, 2); err != nil {
			return nil, err
		}
		target, err := b.expr(args[0])
		if err != nil {
			return nil, err
		}
		c, ok := target.Type().(*srctypes.Class)
		if !ok {
			return nil, errAt(args[0], "field read on %s", target.Type())
		}
		f, err := c.LookupField(args[1].Value)
		if err != nil {
			return nil, errAt(args[1], "%v", err)
		}
		return &ir.GetField{Target: target, Class: c, Field: f}, nil
	case "static":
		if err := arity(n, name, args, 2); err != nil {
			return nil, err
		}
		c, err := b.class(args[0])
		if err != nil {
			return nil, err
		}
		f, err := c.LookupField(args[1].Value)
		if err != nil {
			return nil, errAt(args[1], "%v", err)
		}
		if !f.Static {
			return nil, errAt(args[1], "field %s.%s is not static", c.Name, f.Name)
		}
		return &ir.GetField{Class: c, Field: f}, nil
	case "elem":
		if err := arity(n, name, args, 2); err != nil {
			return nil, err
		}
		xs, err := b.exprs(args)
		if err != nil {
			return nil, err
		}
		at, ok := xs[0].Type().(srctypes.ArrayType)
		if !ok {
			return nil, errAt(args[0], "indexing %s", xs[0].Type())
		}
		return &ir.ArrayElem{Array: xs[0], Index: xs[1], T: at.Elem}, nil
	case "newarray":
		if err := arity(n, name, args, 2); err != nil {
			return nil, err
		}
		t, err := b.typ(args[0])
		if err != nil {
			return nil, err
		}
		l, err := b.expr(args[1])
		if err != nil {
			return nil, err
		}
		return &ir.NewArray{Elem: t, Len: l}, nil
	case "new":
		return b.newObject(n, args)
	case "call", "invoke", "special":
		return b.call(n, name, args)
	case "instanceof":
		if err := arity(n, name, args, 2); err != nil {
			return nil, err
		}
		x, err := b.expr(args[0])
		if err != nil {
			return nil, err
		}
		c, err := b.class(args[1])
		if err != nil {
			return nil, err
		}
		return &ir.InstanceOf{X: x, Class: c}, nil
	case "comma":
		if err := arity(n, name, args, 2); err != nil {
			return nil, err
		}
		xs, err := b.exprs(args)
		if err != nil {
			return nil, err
		}
		return &ir.Comma{L: xs[0], R: xs[1]}, nil
	}
	return nil, errAt(n, "unknown operation %q", name)
}

func (b *builder) binary(n *yaml.Node, bop ir.BinaryOp, args []*yaml.Node) (ir.Node, error) {
	if len(args) != 2 {
		return nil, errAt(n, "operator %s takes 2 operands", bop)
	}
	xs, err := b.exprs(args)
	if err != nil {
		return nil, err
	}
	l, r := xs[0], xs[1]
	var t srctypes.Type
	switch {
	case bop.IsComparison():
		t = srctypes.Boolean
	case bop == ir.Cmp:
		t = srctypes.Int
	case bop == ir.Shl || bop == ir.Shr || bop == ir.Ushr:
		t = promote(l.Type(), l.Type())
	default:
		t = promote(l.Type(), r.Type())
	}
	return &ir.Binary{Op: bop, L: l, R: r, T: t}, nil
}

// promote is the arithmetic result type of two operands.
func promote(a, b srctypes.Type) srctypes.Type {
	if a.Kind() == srctypes.KBoolean && b.Kind() == srctypes.KBoolean {
		return srctypes.Boolean
	}
	rank := func(t srctypes.Type) int {
		switch t.Kind() {
		case srctypes.KDouble:
			return 3
		case srctypes.KFloat:
			return 2
		case srctypes.KLong:
			return 1
		}
		return 0
	}
	wide := []srctypes.Type{srctypes.Int, srctypes.Long, srctypes.Float, srctypes.Double}
	return wide[max(rank(a), rank(b))]
}

// newObject allocates an instance and runs the constructor whose arity
// matches. A reference object is built in a fresh temporary, which is
// also the constructor's receiver.
func (b *builder) newObject(n *yaml.Node, args []*yaml.Node) (ir.Node, error) {
	if len(args) == 0 {
		return nil, errAt(n, "new needs a class")
	}
	c, err := b.class(args[0])
	if err != nil {
		return nil, err
	}
	xs, err := b.exprs(args[1:])
	if err != nil {
		return nil, err
	}
	nw := &ir.New{Class: c}
	if c.Layout != srctypes.LayoutValue {
		nw.Tmp = b.f.NewTemp(c)
	}
	var ctor *srctypes.Method
	for _, m := range c.Methods {
		if m.Constructor && len(m.Params) == len(xs) {
			ctor = m
			break
		}
	}
	if ctor == nil {
		if len(xs) > 0 {
			return nil, errAt(n, "%s has no constructor taking %d arguments", c.Name, len(xs))
		}
		return nw, nil
	}
	nw.Ctor = &ir.Call{Kind: ir.CallSpecial, Method: ctor, Args: xs}
	if nw.Tmp != nil {
		nw.Ctor.Target = nw.Tmp
	}
	return nw, nil
}

func (b *builder) call(n *yaml.Node, kind string, args []*yaml.Node) (ir.Node, error) {
	var (
		target ir.Node
		cls    *srctypes.Class
		name   string
		err    error
	)
	switch kind {
	case "call":
		if len(args) < 1 {
			return nil, errAt(n, "call needs a method")
		}
		cn, mn, ok := splitMethod(args[0].Value)
		if !ok {
			return nil, errAt(args[0], "expected Class.method, got %q", args[0].Value)
		}
		if cls, err = b.m.Program.Class(cn); err != nil {
			return nil, errAt(args[0], "%v", err)
		}
		name, args = mn, args[1:]
	default:
		if len(args) < 2 {
			return nil, errAt(n, "%s needs a target and a method", kind)
		}
		if target, err = b.expr(args[0]); err != nil {
			return nil, err
		}
		if kind == "special" {
			cn, mn, ok := splitMethod(args[1].Value)
			if !ok {
				return nil, errAt(args[1], "expected Class.method, got %q", args[1].Value)
			}
			if cls, err = b.m.Program.Class(cn); err != nil {
				return nil, errAt(args[1], "%v", err)
			}
			name = mn
		} else {
			c, ok := target.Type().(*srctypes.Class)
			if !ok {
				return nil, errAt(args[0], "method call on %s", target.Type())
			}
			cls, name = c, args[1].Value
		}
		args = args[2:]
	}
	xs, err := b.exprs(args)
	if err != nil {
		return nil, err
	}
	m, err := findMethod(cls, name, len(xs))
	if err != nil {
		return nil, errAt(n, "%v", err)
	}
	c := &ir.Call{Method: m, Target: target, Args: xs}
	switch {
	case kind == "call":
		if !m.Static {
			return nil, errAt(n, "%s is not static", m)
		}
		c.Kind = ir.CallStatic
	case kind == "special":
		c.Kind = ir.CallSpecial
	case cls.Interface:
		c.Kind = ir.CallInterface
	default:
		c.Kind = ir.CallVirtual
	}
	return c, nil
}

// findMethod finds a method by name and arity on c, its superclasses or
// its interfaces.
func findMethod(c *srctypes.Class, name string, nargs int) (*srctypes.Method, error) {
	seen := make(map[*srctypes.Class]bool)
	var walk func(k *srctypes.Class) *srctypes.Method
	walk = func(k *srctypes.Class) *srctypes.Method {
		if k == nil || seen[k] {
			return nil
		}
		seen[k] = true
		for _, m := range k.Methods {
			if m.Name == name && len(m.Params) == nargs {
				return m
			}
		}
		if m := walk(k.Super); m != nil {
			return m
		}
		for _, i := range k.Interfaces {
			if m := walk(i); m != nil {
				return m
			}
		}
		return nil
	}
	if m := walk(c); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("method %s.%s with %d arguments: %w", c.Name, name, nargs, srctypes.ErrNotFound)
}

func (b *builder) scalar(n *yaml.Node) (ir.Node, error) {
	switch n.Tag {
	case "!!null":
		return &ir.NullConst{T: srctypes.Null}, nil
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			return nil, errAt(n, "%v", err)
		}
		return boolConst(v), nil
	case "!!int":
		var v int64
		if err := n.Decode(&v); err != nil {
			return nil, errAt(n, "%v", err)
		}
		if v < -1<<31 || v > 1<<31-1 {
			return nil, errAt(n, "int literal %d out of range; use the L suffix", v)
		}
		return ir.Int(int32(v)), nil
	case "!!float":
		var v float64
		if err := n.Decode(&v); err != nil {
			return nil, errAt(n, "%v", err)
		}
		return &ir.DoubleConst{Value: v}, nil
	}
	s := n.Value
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		return &ir.StringConst{T: b.m.Program.String, Value: s}, nil
	}
	if lit, ok := suffixed(s); ok {
		return lit, nil
	}
	if s == "this" {
		s = "v0"
	}
	if slot, ok := slotOf(s); ok {
		v, ok := b.vars[slot]
		if !ok {
			return nil, errAt(n, "undeclared variable %s", s)
		}
		return v.Ref(), nil
	}
	if name, ok := strings.CutPrefix(s, "$"); ok {
		g, err := b.m.Global(name)
		if err != nil {
			return nil, errAt(n, "%v", err)
		}
		return &ir.ObjectConst{Global: g}, nil
	}
	return nil, errAt(n, "unknown operand %q", s)
}

// suffixed parses long literals such as 5L and float literals such as 1.5f.
func suffixed(s string) (ir.Node, bool) {
	if body, ok := strings.CutSuffix(s, "L"); ok {
		if v, err := strconv.ParseInt(body, 0, 64); err == nil {
			return &ir.LongConst{Value: v}, true
		}
	}
	if body, ok := strings.CutSuffix(s, "f"); ok {
		if v, err := strconv.ParseFloat(body, 32); err == nil {
			return &ir.FloatConst{Value: float32(v)}, true
		}
	}
	return nil, false
}

func boolConst(v bool) *ir.IntConst {
	c := &ir.IntConst{T: srctypes.Boolean}
	if v {
		c.Value = 1
	}
	return c
}

// constant decodes the value of a compile-time object's field of type t.
func (m *Manifest) constant(n *yaml.Node, t srctypes.Type) (ir.Node, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, errAt(n, "field values must be scalars")
	}
	if n.Tag == "!!null" {
		return &ir.NullConst{T: t}, nil
	}
	if name, ok := strings.CutPrefix(n.Value, "$"); ok {
		g, err := m.Global(name)
		if err != nil {
			return nil, err
		}
		return &ir.ObjectConst{Global: g}, nil
	}
	switch t.Kind() {
	case srctypes.KBoolean:
		var v bool
		if err := n.Decode(&v); err != nil {
			return nil, errAt(n, "%v", err)
		}
		return boolConst(v), nil
	case srctypes.KByte, srctypes.KChar, srctypes.KShort, srctypes.KInt:
		var v int32
		if err := n.Decode(&v); err != nil {
			return nil, errAt(n, "%v", err)
		}
		return &ir.IntConst{T: t, Value: v}, nil
	case srctypes.KLong:
		var v int64
		if err := n.Decode(&v); err != nil {
			return nil, errAt(n, "%v", err)
		}
		return &ir.LongConst{Value: v}, nil
	case srctypes.KFloat:
		var v float32
		if err := n.Decode(&v); err != nil {
			return nil, errAt(n, "%v", err)
		}
		return &ir.FloatConst{Value: v}, nil
	case srctypes.KDouble:
		var v float64
		if err := n.Decode(&v); err != nil {
			return nil, errAt(n, "%v", err)
		}
		return &ir.DoubleConst{Value: v}, nil
	case srctypes.KClass:
		if t.(*srctypes.Class) == m.Program.String {
			return &ir.StringConst{T: t, Value: n.Value}, nil
		}
	}
	return nil, errAt(n, "no constant of type %s", t)
}
