// Package cgen lowers IR to C text.
//
// A Generator walks one function at a time with a double-dispatch visitor.
// Expression nodes render into a text buffer that the enclosing node
// consumes; statement nodes write lines to the function's output. Casts
// follow the descriptor table's policy, three-way comparisons call the
// runtime's cmp helpers, string literals become static string objects,
// and a variable whose value is a known constant is replaced by the
// constant. Block labels are printed only for blocks that are the target
// of an explicit jump.
//
// Throw, monitor and instanceof nodes have no lowering. Every error is
// returned as an *Error naming the function being lowered.
package cgen

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-offload/pkg/ctypes"
	"github.com/raymyers/ralph-offload/pkg/ir"
	"github.com/raymyers/ralph-offload/pkg/objmodel"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

// ErrUnsupported is wrapped by errors for constructs with no lowering.
var ErrUnsupported = errors.New("construct has no lowering")

// Error is a code generation failure inside one function.
type Error struct {
	Func string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Func, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Generator emits C for the functions of one program.
type Generator struct {
	table *objmodel.Table
	order binary.ByteOrder
}

// New returns a generator over a sealed descriptor table. String literals
// are laid out in the given byte order.
func New(t *objmodel.Table, order binary.ByteOrder) *Generator {
	if !t.Sealed() {
		panic("cgen: descriptor table is not sealed")
	}
	return &Generator{table: t, order: order}
}

// GlobalName is the C variable holding a given object.
func GlobalName(g *ir.Global) string {
	return "g_" + srctypes.Sanitize(g.Name)
}

func globalDataName(g *ir.Global) string {
	return GlobalName(g) + "_data"
}

// Function writes the definition of an ordinary or native-body function.
func (g *Generator) Function(w io.Writer, f *ir.Callable) error {
	fg := g.newFuncGen(f)
	if err := fg.function(); err != nil {
		return &Error{Func: f.Name, Err: err}
	}
	_, err := io.WriteString(w, fg.out.String())
	return err
}

// signature renders the C declarator of f without a terminator.
func (g *Generator) signature(f *ir.Callable) (string, error) {
	ret := f.Return
	if f.ValueCtor {
		ret = f.Self.Type()
	}
	if ret == nil {
		ret = srctypes.Void
	}
	rt, err := g.table.TypeName(ret)
	if err != nil {
		return "", err
	}
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		ct, err := g.table.CType(p.Type())
		if err != nil {
			return "", err
		}
		params[i] = ctypes.Decl(ct, p.Name())
	}
	if len(params) == 0 {
		params = []string{"void"}
	}
	return fmt.Sprintf("%s %s(%s)", rt, f.Name, strings.Join(params, ", ")), nil
}

// funcGen lowers one function.
type funcGen struct {
	g      *Generator
	f      *ir.Callable
	out    strings.Builder
	expr   *strings.Builder
	indent int
	jumps  map[*ir.Block]int
	labels map[*ir.Block]string
	next   int
}

func (g *Generator) newFuncGen(f *ir.Callable) *funcGen {
	fg := &funcGen{g: g, f: f, expr: &strings.Builder{}, labels: make(map[*ir.Block]string)}
	if f == nil {
		return fg
	}
	fg.jumps = ir.IncomingJumps(f)
	if f.Body != nil {
		for _, b := range f.Body.Blocks {
			fg.labels[b] = b.Label()
			if b.Index >= fg.next {
				fg.next = b.Index + 1
			}
		}
	}
	return fg
}

// labelOf names a block. Blocks of inlined bodies are numbered after the
// function's own blocks.
func (fg *funcGen) labelOf(b *ir.Block) string {
	if l, ok := fg.labels[b]; ok {
		return l
	}
	l := fmt.Sprintf("L%d", fg.next)
	fg.next++
	fg.labels[b] = l
	return l
}

func (fg *funcGen) writeIndent() {
	fg.out.WriteString(strings.Repeat("  ", fg.indent))
}

func (fg *funcGen) line(format string, args ...any) {
	fg.writeIndent()
	fmt.Fprintf(&fg.out, format, args...)
	fg.out.WriteByte('\n')
}

func (fg *funcGen) emit(format string, args ...any) {
	fmt.Fprintf(fg.expr, format, args...)
}

func (fg *funcGen) function() error {
	f := fg.f
	sig, err := fg.g.signature(f)
	if err != nil {
		return err
	}
	fg.line("%s {", sig)
	fg.indent++
	switch f.Kind {
	case ir.NativeBody:
		for _, l := range strings.Split(strings.TrimSpace(f.Native), "\n") {
			fg.line("%s", strings.TrimSpace(l))
		}
	case ir.Ordinary:
		fg.prepare()
		if err := fg.locals(); err != nil {
			return err
		}
		if f.ValueCtor {
			alloc, err := fg.g.table.Instantiate(f.Self.Type().(*srctypes.Class))
			if err != nil {
				return err
			}
			fg.line("%s;", alloc.HeaderInit(f.Self.Name()))
		}
		if f.Body != nil {
			if err := f.Body.Accept(fg); err != nil {
				return err
			}
		}
		if f.ValueCtor && !endsInReturn(f.Body) {
			fg.line("return %s;", f.Self.Name())
		}
	default:
		panic(fmt.Sprintf("cgen: %s %s has no function body", f.Kind, f.Name))
	}
	fg.indent--
	fg.line("}")
	return nil
}

func endsInReturn(b *ir.Body) bool {
	if b == nil || len(b.Blocks) == 0 {
		return false
	}
	stmts := b.Blocks[len(b.Blocks)-1].Stmts
	if len(stmts) == 0 {
		return false
	}
	_, ok := stmts[len(stmts)-1].(*ir.Return)
	return ok
}

// prepare gives every reference allocation a temporary to build the
// object in, and makes that temporary the constructor's receiver.
func (fg *funcGen) prepare() {
	ir.Inspect(fg.f, func(n ir.Node) bool {
		nw, ok := n.(*ir.New)
		if !ok {
			return true
		}
		if nw.Tmp == nil {
			nw.Tmp = fg.f.NewTemp(nw.Class)
		}
		if nw.Ctor != nil && nw.Ctor.Target == nil && nw.Ctor.Inlined() == nil {
			nw.Ctor.Target = nw.Tmp
		}
		return true
	})
}

// locals declares every variable the body mentions that is not a
// parameter: declared locals, temporaries and the variables of inlined
// bodies. A variable that is never assigned and always replaced by its
// constant value is not declared.
func (fg *funcGen) locals() error {
	seen := make(map[string]bool)
	for _, p := range fg.f.Params {
		seen[p.Name()] = true
	}
	assigned := make(map[string]bool)
	ir.Inspect(fg.f, func(n ir.Node) bool {
		if a, ok := n.(*ir.Assign); ok {
			if v, ok := a.Lhs.(ir.Variable); ok {
				assigned[v.Name()] = true
			}
		}
		return true
	})
	var decls []ir.Variable
	declare := func(v ir.Variable) {
		seen[v.Name()] = true
		decls = append(decls, v)
	}
	add := func(v ir.Variable) {
		if v == nil || seen[v.Name()] {
			return
		}
		if !assigned[v.Name()] && !v.IsMutable() {
			if val := ir.StaticValue(v); val != nil && ir.IsConstant(val) {
				return
			}
		}
		declare(v)
	}
	if fg.f.ValueCtor {
		declare(fg.f.Self)
	}
	for _, v := range fg.f.Locals {
		add(v)
	}
	ir.Inspect(fg.f, func(n ir.Node) bool {
		switch v := n.(type) {
		case *ir.Var:
			add(v)
		case *ir.Temp:
			add(v)
		case *ir.New:
			if v.Tmp != nil {
				add(v.Tmp)
			}
		case *ir.Callable:
			if v.Result != nil {
				add(v.Result)
			}
		}
		return true
	})
	for _, v := range decls {
		ct, err := fg.g.table.CType(v.Type())
		if err != nil {
			return fmt.Errorf("variable %s: %w", v.Name(), err)
		}
		fg.line("%s;", ctypes.Decl(ct, v.Name()))
	}
	return nil
}

// exprText renders an expression node.
func (fg *funcGen) exprText(n ir.Node) (string, error) {
	saved := fg.expr
	fg.expr = &strings.Builder{}
	err := n.Accept(fg)
	text := fg.expr.String()
	fg.expr = saved
	return text, err
}

// castTo renders n converted to type to. A variable replaced by a given
// object converts from the object's own class.
func (fg *funcGen) castTo(n ir.Node, to srctypes.Type) (string, error) {
	if oc := knownObject(n); oc != nil {
		text, err := fg.exprText(oc)
		if err != nil {
			return "", err
		}
		return fg.castText(text, oc.Type(), to)
	}
	text, err := fg.exprText(n)
	if err != nil {
		return "", err
	}
	return fg.castText(text, n.Type(), to)
}

// knownObject returns the given object an immutable variable stands for.
func knownObject(n ir.Node) *ir.ObjectConst {
	v, ok := n.(ir.Variable)
	if !ok || v.IsMutable() {
		return nil
	}
	oc, _ := ir.StaticValue(v).(*ir.ObjectConst)
	return oc
}

func (fg *funcGen) castText(text string, from, to srctypes.Type) (string, error) {
	if from == nil || to == nil || to.Kind() == srctypes.KVoid {
		return text, nil
	}
	t := fg.g.table
	if srctypes.IsPrimitive(from) || srctypes.IsPrimitive(to) {
		if srctypes.Equal(from, to) {
			return text, nil
		}
		ct, err := t.CType(to)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("((%s)%s)", ct, operand(text)), nil
	}
	if from.Kind() != srctypes.KNull {
		need, err := t.NeedsCast(from, to)
		if err != nil || !need {
			return text, err
		}
	}
	plan, err := t.Cast(from, to)
	if err != nil {
		return "", err
	}
	switch plan.Kind {
	case objmodel.Convert:
		return fmt.Sprintf("((%s)%s)", plan.To, operand(text)), nil
	case objmodel.UnionMember:
		return fmt.Sprintf("%s.%s", operand(text), plan.Member), nil
	case objmodel.UnionWrap:
		return fmt.Sprintf("((%s){ .%s = %s })", plan.To, plan.Member, text), nil
	}
	return text, nil
}

// operand parenthesizes text unless it is a plain name, an unsigned
// number or already enclosed in one pair of parentheses.
func operand(text string) string {
	if enclosed(text) {
		return text
	}
	if text == "" || text[0] == '-' {
		return "(" + text + ")"
	}
	for _, c := range text {
		if !(c == '_' || c == '.' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return "(" + text + ")"
		}
	}
	return text
}

// enclosed reports whether the parenthesis opening text closes at its end.
func enclosed(text string) bool {
	if len(text) < 2 || text[0] != '(' {
		return false
	}
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i == len(text)-1
			}
		case '"', '\'':
			// literals may hold unbalanced parentheses
			return false
		}
	}
	return false
}

// Literals

func intLiteral(v int32) string {
	if v == math.MinInt32 {
		return "(-2147483647-1)"
	}
	return strconv.Itoa(int(v))
}

func longLiteral(v int64) string {
	if v == math.MinInt64 {
		return "(-9223372036854775807L-1)"
	}
	return strconv.FormatInt(v, 10) + "L"
}

func floatLiteral(v float64, bits int) string {
	suffix := ""
	if bits == 32 {
		suffix = "f"
	}
	switch {
	case math.IsNaN(v):
		return "(0.0" + suffix + "/0.0" + suffix + ")"
	case math.IsInf(v, 1):
		return "(1.0" + suffix + "/0.0" + suffix + ")"
	case math.IsInf(v, -1):
		return "(-1.0" + suffix + "/0.0" + suffix + ")"
	}
	s := strconv.FormatFloat(v, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s + suffix
}

func (fg *funcGen) VisitIntConst(n *ir.IntConst) error {
	fg.emit("%s", intLiteral(n.Value))
	return nil
}

func (fg *funcGen) VisitLongConst(n *ir.LongConst) error {
	fg.emit("%s", longLiteral(n.Value))
	return nil
}

func (fg *funcGen) VisitFloatConst(n *ir.FloatConst) error {
	fg.emit("%s", floatLiteral(float64(n.Value), 32))
	return nil
}

func (fg *funcGen) VisitDoubleConst(n *ir.DoubleConst) error {
	fg.emit("%s", floatLiteral(n.Value, 64))
	return nil
}

func (fg *funcGen) VisitStringConst(n *ir.StringConst) error {
	fg.emit("%s", objmodel.StringLiteral(n.Value, fg.g.order))
	return nil
}

func (fg *funcGen) VisitNullConst(*ir.NullConst) error {
	fg.emit("0")
	return nil
}

func (fg *funcGen) VisitObjectConst(n *ir.ObjectConst) error {
	d, err := fg.g.table.Add(n.Global.Class)
	if err != nil {
		return err
	}
	if d.Value {
		fg.emit("%s", GlobalName(n.Global))
	} else {
		fg.emit("(&%s)", GlobalName(n.Global))
	}
	return nil
}

// Variables

func (fg *funcGen) VisitVar(v *ir.Var) error   { return fg.variable(v) }
func (fg *funcGen) VisitTemp(v *ir.Temp) error { return fg.variable(v) }

func (fg *funcGen) variable(v ir.Variable) error {
	if oc := knownObject(v); oc != nil {
		text, err := fg.castTo(oc, v.Type())
		if err != nil {
			return err
		}
		fg.emit("%s", text)
		return nil
	}
	if !v.IsMutable() {
		if val := ir.StaticValue(v); val != nil && ir.IsConstant(val) {
			text, err := fg.exprText(val)
			if err != nil {
				return err
			}
			fg.emit("%s", text)
			return nil
		}
	}
	fg.emit("%s", v.Name())
	return nil
}

func (fg *funcGen) isSelf(n ir.Node) bool {
	v, ok := n.(*ir.Var)
	return ok && fg.f != nil && fg.f.ValueCtor && v.Identical(fg.f.Self)
}

// Expressions

func (fg *funcGen) VisitUnary(n *ir.Unary) error {
	x, err := fg.exprText(n.X)
	if err != nil {
		return err
	}
	switch n.Op {
	case ir.Neg:
		fg.emit("-%s", operand(x))
	case ir.BitNot:
		fg.emit("~%s", operand(x))
	case ir.Not:
		fg.emit("!%s", operand(x))
	case ir.Length:
		fg.emit("((struct %s*)%s)->size_", objmodel.ArrayStruct, operand(x))
	default:
		panic(fmt.Sprintf("cgen: unknown unary operator %d", int(n.Op)))
	}
	return nil
}

func (fg *funcGen) VisitBinary(n *ir.Binary) error {
	l, err := fg.exprText(n.L)
	if err != nil {
		return err
	}
	r, err := fg.exprText(n.R)
	if err != nil {
		return err
	}
	lt := n.L.Type()
	wide := lt.Kind() == srctypes.KLong
	switch n.Op {
	case ir.Cmp:
		helper := "jvm_lcmp"
		switch lt.Kind() {
		case srctypes.KFloat:
			helper = "jvm_fcmp"
		case srctypes.KDouble:
			helper = "jvm_dcmp"
		}
		fg.emit("%s(%s, %s)", helper, l, r)
	case ir.Shl, ir.Shr:
		fg.emit("(%s %s (%s & %d))", l, n.Op, operand(r), shiftMask(wide))
	case ir.Ushr:
		if wide {
			fg.emit("((long)((unsigned long)%s >> (%s & 63)))", operand(l), operand(r))
		} else {
			fg.emit("((int)((unsigned int)%s >> (%s & 31)))", operand(l), operand(r))
		}
	case ir.Rem:
		switch lt.Kind() {
		case srctypes.KFloat:
			fg.emit("((float)fmod(%s, %s))", l, r)
		case srctypes.KDouble:
			fg.emit("fmod(%s, %s)", l, r)
		default:
			fg.emit("(%s %% %s)", l, r)
		}
	case ir.Eq, ir.Ne:
		if srctypes.IsReference(lt) && !srctypes.Equal(lt, n.R.Type()) {
			l, r = "(void*)"+operand(l), "(void*)"+operand(r)
		}
		fg.emit("(%s %s %s)", l, n.Op, r)
	default:
		fg.emit("(%s %s %s)", l, n.Op, r)
	}
	return nil
}

func shiftMask(wide bool) int {
	if wide {
		return 63
	}
	return 31
}

func (fg *funcGen) VisitConvert(n *ir.Convert) error {
	text, err := fg.castTo(n.X, n.To)
	if err != nil {
		return err
	}
	fg.emit("%s", text)
	return nil
}

func (fg *funcGen) VisitCast(n *ir.Cast) error {
	text, err := fg.castTo(n.X, n.To)
	if err != nil {
		return err
	}
	fg.emit("%s", text)
	return nil
}

func (fg *funcGen) VisitAssign(n *ir.Assign) error {
	var lhs string
	if v, ok := n.Lhs.(ir.Variable); ok {
		lhs = v.Name()
	} else {
		if g, ok := n.Lhs.(*ir.GetField); ok && !g.IsStatic() && !fg.isSelf(g.Target) {
			ref, err := fg.g.table.Field(fieldClass(g), g.Field.Name)
			if err != nil {
				return err
			}
			if err := ref.CheckStore(); err != nil {
				return err
			}
		}
		text, err := fg.exprText(n.Lhs)
		if err != nil {
			return err
		}
		lhs = text
	}
	rhs, err := fg.castTo(n.Rhs, n.Lhs.Type())
	if err != nil {
		return err
	}
	fg.emit("%s = %s", lhs, rhs)
	return nil
}

func fieldClass(g *ir.GetField) *srctypes.Class {
	if g.Class != nil {
		return g.Class
	}
	return g.Field.Declaring
}

func (fg *funcGen) VisitGetField(n *ir.GetField) error {
	t := fg.g.table
	if n.IsStatic() {
		name, err := t.StaticName(n.Field)
		if err != nil {
			return err
		}
		fg.emit("%s", name)
		return nil
	}
	class := fieldClass(n)
	ref, err := t.Field(class, n.Field.Name)
	if err != nil {
		return err
	}
	if ref.Static {
		fg.emit("%s", ref.Name)
		return nil
	}
	target, err := fg.castTo(n.Target, class)
	if err != nil {
		return err
	}
	fg.emit("%s%s%s", operand(target), ref.Op, ref.Name)
	return nil
}

func (fg *funcGen) VisitArrayElem(n *ir.ArrayElem) error {
	arr, err := fg.castTo(n.Array, srctypes.ArrayOf(n.T))
	if err != nil {
		return err
	}
	idx, err := fg.exprText(n.Index)
	if err != nil {
		return err
	}
	fg.emit("%s[%s + %d]", operand(arr), idx, objmodel.ElemOffset(n.T))
	return nil
}

func (fg *funcGen) VisitNewArray(n *ir.NewArray) error {
	plan, err := fg.g.table.NewArray(n.Elem)
	if err != nil {
		return err
	}
	length, err := fg.castTo(n.Len, srctypes.Int)
	if err != nil {
		return err
	}
	fg.emit("((%s)new_array(%s, 0x%02x, %s))", plan.Type, length, byte(plan.Code), plan.Size)
	return nil
}

func (fg *funcGen) VisitComma(n *ir.Comma) error {
	l, err := fg.exprText(n.L)
	if err != nil {
		return err
	}
	r, err := fg.exprText(n.R)
	if err != nil {
		return err
	}
	fg.emit("(%s, %s)", l, r)
	return nil
}

func (fg *funcGen) VisitNew(n *ir.New) error {
	alloc, err := fg.g.table.Instantiate(n.Class)
	if err != nil {
		return err
	}
	if alloc.Value {
		if n.Ctor == nil || n.Ctor.Callee == nil {
			fg.emit("((struct %s){ .%s = %d })", alloc.Class.Name, objmodel.HeaderField, alloc.Header)
			return nil
		}
		text, err := fg.invoke(n.Ctor.Callee, nil, n.Ctor.Args)
		if err != nil {
			return err
		}
		fg.emit("%s", text)
		return nil
	}
	if n.Tmp == nil {
		panic(fmt.Sprintf("cgen: allocation of %s has no temporary", n.Class.Name))
	}
	ctor := ""
	if n.Ctor != nil {
		if ctor, err = fg.call(n.Ctor); err != nil {
			return err
		}
	}
	fg.emit("%s", alloc.Text(n.Tmp.Name(), ctor))
	return nil
}

func (fg *funcGen) VisitInstanceOf(n *ir.InstanceOf) error {
	return fmt.Errorf("instanceof %s: %w", n.Class.Name, ErrUnsupported)
}

func (fg *funcGen) VisitCall(n *ir.Call) error {
	text, err := fg.call(n)
	if err != nil {
		return err
	}
	fg.emit("%s", text)
	return nil
}

// VisitCallable renders the value of an expression-form inlined function.
func (fg *funcGen) VisitCallable(f *ir.Callable) error {
	if !f.IsExpression() {
		panic(fmt.Sprintf("cgen: %s %s used as an expression", f.Kind, f.Name))
	}
	text, err := fg.exprText(f.Expr)
	if err != nil {
		return err
	}
	fg.emit("(%s)", text)
	return nil
}

// Calls

func (fg *funcGen) call(c *ir.Call) (string, error) {
	if f := c.Inlined(); f != nil {
		return fg.exprText(f)
	}
	if text, ok, err := fg.intrinsic(c); ok || err != nil {
		return text, err
	}
	if c.Callee == nil {
		panic(fmt.Sprintf("cgen: call to %s is not bound", c.Method))
	}
	return fg.invoke(c.Callee, c.Target, c.Args)
}

// invoke renders a call of callee, converting the receiver and arguments
// to the parameter types. A value constructor takes no receiver.
func (fg *funcGen) invoke(callee *ir.Callable, target ir.Node, args []ir.Node) (string, error) {
	name := callee.Name
	if callee.Kind == ir.ForeignSymbol && callee.Symbol != "" {
		name = callee.Symbol
	}
	var texts []string
	i := 0
	pass := func(a ir.Node) error {
		to := a.Type()
		if i < len(callee.Params) {
			to = callee.Params[i].Type()
		}
		i++
		text, err := fg.castTo(a, to)
		texts = append(texts, text)
		return err
	}
	if target != nil && !callee.ValueCtor && callee.Method != nil && callee.Method.HasReceiver() {
		if err := pass(target); err != nil {
			return "", err
		}
	}
	for _, a := range args {
		if err := pass(a); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(texts, ", ")), nil
}

// intrinsic lowers calls that expand to inline code: the body pointer of
// a blob and the element accessors of a multi-dimensional array class.
func (fg *funcGen) intrinsic(c *ir.Call) (string, bool, error) {
	m := c.Method
	if m.Meta.Intrinsic == "body" && c.Target != nil {
		recv, err := fg.exprText(c.Target)
		return objmodel.BlobBody(recv), true, err
	}
	if c.Target == nil || m.Declaring == nil || m.Declaring.Layout != srctypes.LayoutMultiArray {
		return "", false, nil
	}
	t := fg.g.table
	info, err := t.MultiArray(m.Declaring)
	if err != nil {
		return "", false, err
	}
	dims := len(info.Sizes)
	switch {
	case m.Name == "get" && len(c.Args) == dims:
	case m.Name == "set" && len(c.Args) == dims+1:
	case m.Name == "initData" && len(c.Args) == 0:
	default:
		return "", false, nil
	}
	var idx []string
	for _, a := range c.Args[:min(dims, len(c.Args))] {
		text, err := fg.castTo(a, srctypes.Int)
		if err != nil {
			return "", true, err
		}
		idx = append(idx, text)
	}
	value := func() (string, error) { return fg.exprText(c.Args[dims]) }

	var elem string
	switch recv := ir.StaticValue(c.Target).(type) {
	case *ir.ObjectConst:
		if m.Name == "initData" {
			// the data of a given object is static
			return "((void)0)", true, nil
		}
		elem = globalDataName(recv.Global)
		for _, i := range idx {
			elem += "[" + i + "]"
		}
	default:
		switch c.Target.(type) {
		case ir.Variable, *ir.GetField:
		default:
			return "", false, nil
		}
		r, err := fg.castTo(c.Target, m.Declaring)
		if err != nil {
			return "", true, err
		}
		r = operand(r)
		if m.Name == "initData" {
			return "(" + info.Alloc(t.Malloc, r, "->") + ")", true, nil
		}
		elem = info.Index(r, "->", idx)
	}
	if m.Name == "get" {
		return elem, true, nil
	}
	v, err := value()
	return fmt.Sprintf("(%s = %s)", elem, v), true, err
}

// Statements

// stmt lowers one statement. An inlined call in statement position, on the
// right of an assignment or as a returned value is spliced in as
// statements.
func (fg *funcGen) stmt(s ir.Node) error {
	switch s := s.(type) {
	case *ir.Goto, *ir.Branch, *ir.Switch, *ir.Return, *ir.Throw, *ir.Monitor, *ir.Block, *ir.Body:
		return s.Accept(fg)
	case *ir.Call:
		if f := s.Inlined(); f != nil && !f.IsExpression() {
			return fg.splice(f)
		}
	case *ir.Assign:
		if f := statementForm(s.Rhs); f != nil {
			if err := fg.splice(f); err != nil {
				return err
			}
			if f.Result == nil || sameVar(f.Result, s.Lhs) {
				return nil
			}
			return fg.stmt(&ir.Assign{Lhs: s.Lhs, Rhs: f.Result})
		}
	}
	text, err := fg.exprText(s)
	if err != nil {
		return err
	}
	fg.line("%s;", text)
	return nil
}

func statementForm(n ir.Node) *ir.Callable {
	if c, ok := n.(*ir.Call); ok {
		if f := c.Inlined(); f != nil && !f.IsExpression() {
			return f
		}
	}
	return nil
}

func sameVar(v ir.Variable, n ir.Node) bool {
	if a, ok := v.(*ir.Var); ok {
		b, ok := n.(*ir.Var)
		return ok && a.Identical(b)
	}
	return ir.Node(v) == n
}

func (fg *funcGen) splice(f *ir.Callable) error {
	if f.Init != nil {
		for _, s := range f.Init.Stmts {
			if err := fg.stmt(s); err != nil {
				return err
			}
		}
	}
	if f.Body != nil {
		return f.Body.Accept(fg)
	}
	return nil
}

func (fg *funcGen) VisitBody(b *ir.Body) error {
	for _, blk := range b.Blocks {
		if err := blk.Accept(fg); err != nil {
			return err
		}
	}
	return nil
}

func (fg *funcGen) VisitBlock(b *ir.Block) error {
	if fg.jumps[b] > 0 {
		fmt.Fprintf(&fg.out, "%s%s: ;\n", strings.Repeat("  ", max(fg.indent-1, 0)), fg.labelOf(b))
	}
	for _, s := range b.Stmts {
		if err := fg.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (fg *funcGen) VisitGoto(n *ir.Goto) error {
	fg.line("goto %s;", fg.labelOf(n.Target))
	return nil
}

func (fg *funcGen) VisitBranch(n *ir.Branch) error {
	cond, err := fg.exprText(n.Cond)
	if err != nil {
		return err
	}
	fg.line("if (%s) goto %s;", cond, fg.labelOf(n.Target))
	return nil
}

func (fg *funcGen) VisitSwitch(n *ir.Switch) error {
	x, err := fg.exprText(n.X)
	if err != nil {
		return err
	}
	fg.line("switch (%s) {", x)
	fg.indent++
	for i, k := range n.Keys {
		fg.line("case %s: goto %s;", intLiteral(k), fg.labelOf(n.Targets[i]))
	}
	if n.Default != nil {
		fg.line("default: goto %s;", fg.labelOf(n.Default))
	}
	fg.indent--
	fg.line("}")
	return nil
}

func (fg *funcGen) VisitReturn(n *ir.Return) error {
	if fg.f.ValueCtor {
		fg.line("return %s;", fg.f.Self.Name())
		return nil
	}
	if n.X == nil {
		fg.line("return;")
		return nil
	}
	x := n.X
	if f := statementForm(x); f != nil {
		if err := fg.splice(f); err != nil {
			return err
		}
		if f.Result == nil {
			fg.line("return;")
			return nil
		}
		x = f.Result
	}
	text, err := fg.castTo(x, fg.f.Return)
	if err != nil {
		return err
	}
	fg.line("return %s;", text)
	return nil
}

func (fg *funcGen) VisitThrow(*ir.Throw) error {
	return fmt.Errorf("throw: %w", ErrUnsupported)
}

func (fg *funcGen) VisitMonitor(n *ir.Monitor) error {
	if n.Enter {
		return fmt.Errorf("monitorenter: %w", ErrUnsupported)
	}
	return fmt.Errorf("monitorexit: %w", ErrUnsupported)
}
