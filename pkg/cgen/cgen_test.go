package cgen

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/raymyers/ralph-offload/pkg/dispatch"
	"github.com/raymyers/ralph-offload/pkg/inline"
	"github.com/raymyers/ralph-offload/pkg/ir"
	"github.com/raymyers/ralph-offload/pkg/objmodel"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

type fixture struct {
	prog  *srctypes.Program
	table *objmodel.Table
	lib   *srctypes.Class
	gen   *Generator
}

// newFixture defines classes in order, marks the named ones instantiated
// and seals the table.
func newFixture(t *testing.T, classes []*srctypes.Class, instances ...*srctypes.Class) *fixture {
	t.Helper()
	fx := &fixture{prog: srctypes.NewProgram(), lib: &srctypes.Class{Name: "Lib", Final: true}}
	for _, c := range classes {
		if err := fx.prog.Define(c); err != nil {
			t.Fatal(err)
		}
	}
	fx.table = objmodel.NewTable(fx.prog)
	for _, c := range classes {
		if _, err := fx.table.Add(c); err != nil {
			t.Fatal(err)
		}
	}
	for _, c := range instances {
		if err := fx.table.MarkInstance(c); err != nil {
			t.Fatal(err)
		}
	}
	fx.table.Seal()
	fx.gen = New(fx.table, binary.LittleEndian)
	return fx
}

func (fx *fixture) static(name string, params []srctypes.Type, ret srctypes.Type) *ir.Callable {
	m := fx.lib.AddMethod(&srctypes.Method{Name: name, Static: true, Params: params, Return: ret})
	return ir.NewFunction("Lib_"+name, m)
}

func (fx *fixture) lower(t *testing.T, f *ir.Callable) string {
	t.Helper()
	var sb strings.Builder
	if err := fx.gen.Function(&sb, f); err != nil {
		t.Fatalf("Function(%s) error = %v", f.Name, err)
	}
	return sb.String()
}

func ints(n int) []srctypes.Type {
	out := make([]srctypes.Type, n)
	for i := range out {
		out[i] = srctypes.Int
	}
	return out
}

func binop(op ir.BinaryOp, l, r ir.Node) *ir.Binary {
	return &ir.Binary{Op: op, L: l, R: r, T: srctypes.Int}
}

// containsInOrder reports the first want not found after its predecessor.
func containsInOrder(text string, wants ...string) string {
	pos := 0
	for _, w := range wants {
		i := strings.Index(text[pos:], w)
		if i < 0 {
			return w
		}
		pos += i + len(w)
	}
	return ""
}

func TestLabelsOnlyForJumpTargets(t *testing.T) {
	tests := []struct {
		name   string
		branch bool
		want   string
	}{
		{"fallthrough only", false, `int Lib_f(int v0) {
  int v1;
  v1 = (v0 + 1);
  v1 = (v1 * 2);
  return v1;
}
`},
		{"branch target", true, `int Lib_f(int v0) {
  int v1;
  if ((v0 < 0)) goto L2;
  v1 = (v0 + 1);
  v1 = (v1 * 2);
L2: ;
  return v1;
}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, nil)
			f := fx.static("f", ints(1), srctypes.Int)
			x := f.Params[0]
			acc := ir.NewVar(1, f.NewID(), srctypes.Int)
			acc.BeMutable()
			f.AddLocal(acc)
			f.Body = ir.NewBody(3)
			b0, b1, b2 := f.Body.Block(0), f.Body.Block(1), f.Body.Block(2)
			if tt.branch {
				b0.Add(ir.NewBranch(&ir.Binary{Op: ir.Lt, L: x.Ref(), R: ir.Int(0), T: srctypes.Boolean}, b2))
			}
			b0.Add(&ir.Assign{Lhs: acc.Ref(), Rhs: binop(ir.Add, x.Ref(), ir.Int(1))})
			b1.Add(&ir.Assign{Lhs: acc.Ref(), Rhs: binop(ir.Mul, acc.Ref(), ir.Int(2))})
			b2.Add(&ir.Return{X: acc.Ref()})
			if got := fx.lower(t, f); got != tt.want {
				t.Errorf("Function() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestComparisonHelpers(t *testing.T) {
	tests := []struct {
		name string
		typ  srctypes.Type
		rhs  ir.Node
		want string
	}{
		{"long", srctypes.Long, &ir.LongConst{Value: 2}, "return jvm_lcmp(v0, 2L);"},
		{"float", srctypes.Float, &ir.FloatConst{Value: 1.5}, "return jvm_fcmp(v0, 1.5f);"},
		{"double", srctypes.Double, &ir.DoubleConst{Value: 2.5}, "return jvm_dcmp(v0, 2.5);"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, nil)
			f := fx.static("cmp", []srctypes.Type{tt.typ}, srctypes.Int)
			f.Body = ir.NewBody(1)
			f.Body.Block(0).Add(&ir.Return{X: binop(ir.Cmp, f.Params[0].Ref(), tt.rhs)})
			if got := fx.lower(t, f); !strings.Contains(got, tt.want) {
				t.Errorf("Function() =\n%s\nwant a line %q", got, tt.want)
			}
		})
	}
}

func TestOperators(t *testing.T) {
	fx := newFixture(t, nil)
	fg := fx.gen.newFuncGen(nil)
	i := ir.NewVar(0, 0, srctypes.Int)
	l := ir.NewVar(1, 1, srctypes.Long)
	d := ir.NewVar(2, 2, srctypes.Double)
	tests := []struct {
		name string
		n    ir.Node
		want string
	}{
		{"shift left", binop(ir.Shl, i, ir.Int(3)), "(v0 << (3 & 31))"},
		{"wide shift", &ir.Binary{Op: ir.Shr, L: l, R: i, T: srctypes.Long}, "(v1 >> (v0 & 63))"},
		{"unsigned shift", binop(ir.Ushr, i, ir.Int(1)), "((int)((unsigned int)v0 >> (1 & 31)))"},
		{"double remainder", &ir.Binary{Op: ir.Rem, L: d, R: &ir.DoubleConst{Value: 2}, T: srctypes.Double}, "fmod(v2, 2.0)"},
		{"int remainder", binop(ir.Rem, i, ir.Int(7)), "(v0 % 7)"},
		{"negate", &ir.Unary{Op: ir.Neg, X: i, T: srctypes.Int}, "-v0"},
		{"widen", &ir.Convert{X: i, To: srctypes.Long}, "((long)v0)"},
		{"narrow expression", &ir.Convert{X: binop(ir.Add, i, ir.Int(1)), To: srctypes.Byte}, "((signed char)(v0 + 1))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fg.exprText(tt.n)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("exprText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLiterals(t *testing.T) {
	fx := newFixture(t, nil)
	fg := fx.gen.newFuncGen(nil)
	tests := []struct {
		name string
		n    ir.Node
		want string
	}{
		{"int", ir.Int(42), "42"},
		{"int min", ir.Int(math.MinInt32), "(-2147483647-1)"},
		{"long", &ir.LongConst{Value: -5}, "-5L"},
		{"long min", &ir.LongConst{Value: math.MinInt64}, "(-9223372036854775807L-1)"},
		{"float", &ir.FloatConst{Value: 0.25}, "0.25f"},
		{"whole float", &ir.FloatConst{Value: 2}, "2.0f"},
		{"double", &ir.DoubleConst{Value: 0.1}, "0.1"},
		{"exponent", &ir.DoubleConst{Value: 1e300}, "1e+300"},
		{"nan", &ir.DoubleConst{Value: math.NaN()}, "(0.0/0.0)"},
		{"float infinity", &ir.FloatConst{Value: float32(math.Inf(-1))}, "(-1.0f/0.0f)"},
		{"null", &ir.NullConst{T: srctypes.Null}, "0"},
		{"string", &ir.StringConst{T: fx.prog.String, Value: "hi"}, objmodel.StringLiteral("hi", binary.LittleEndian)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fg.exprText(tt.n)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("exprText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConstantVariablesAreSubstituted(t *testing.T) {
	fx := newFixture(t, nil)
	f := fx.static("k", ints(1), srctypes.Int)
	k := ir.NewVar(1, f.NewID(), srctypes.Int)
	k.SetValue(ir.Int(7))
	f.Body = ir.NewBody(1)
	f.Body.Block(0).Add(&ir.Return{X: binop(ir.Add, k.Ref(), f.Params[0].Ref())})
	if got := fx.lower(t, f); !strings.Contains(got, "return (7 + v0);") {
		t.Errorf("Function() =\n%s\nwant the constant in place of v1", got)
	}
}

func TestGivenObjectVariableIsCast(t *testing.T) {
	shape := &srctypes.Class{Name: "geo.Shape", Interface: true}
	sq := &srctypes.Class{Name: "geo.Sq", Interfaces: []*srctypes.Class{shape}}
	fx := newFixture(t, []*srctypes.Class{shape, sq}, sq)
	g := &ir.Global{Name: "sq", Class: sq}

	measure := fx.static("measure", []srctypes.Type{shape}, srctypes.Int)
	f := fx.static("run", nil, shape)
	s := ir.NewVar(0, f.NewID(), shape)
	s.SetValue(&ir.ObjectConst{Global: g})
	f.AddLocal(s)
	call := &ir.Call{Kind: ir.CallStatic, Method: measure.Method, Callee: measure, Args: []ir.Node{s.Ref()}}
	f.Body = ir.NewBody(1)
	f.Body.Block(0).Add(call)
	f.Body.Block(0).Add(&ir.Return{X: s.Ref()})

	got := fx.lower(t, f)
	for _, want := range []string{
		"Lib_measure(((struct Shape_4*)(&g_sq)));",
		"return ((struct Shape_4*)(&g_sq));",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Function() =\n%s\nwant a line %q", got, want)
		}
	}
	if strings.Contains(got, "struct Shape_4* v0;") {
		t.Errorf("Function() =\n%s\ndeclares v0, which is always replaced by g_sq", got)
	}
}

func TestAssignedConstantIsDeclared(t *testing.T) {
	fx := newFixture(t, nil)
	f := fx.static("k", nil, srctypes.Int)
	k := ir.NewVar(0, f.NewID(), srctypes.Int)
	k.SetValue(ir.Int(7))
	f.AddLocal(k)
	f.Body = ir.NewBody(1)
	f.Body.Block(0).Add(&ir.Assign{Lhs: k.Ref(), Rhs: ir.Int(7)})
	f.Body.Block(0).Add(&ir.Return{X: k.Ref()})
	got := fx.lower(t, f)
	for _, want := range []string{"int v0;", "v0 = 7;", "return 7;"} {
		if !strings.Contains(got, want) {
			t.Errorf("Function() =\n%s\nwant a line %q", got, want)
		}
	}
}

func TestUnsupportedConstructs(t *testing.T) {
	tests := []struct {
		name string
		stmt func(x *ir.Var) ir.Node
	}{
		{"throw", func(x *ir.Var) ir.Node { return &ir.Throw{X: x} }},
		{"monitor", func(x *ir.Var) ir.Node { return &ir.Monitor{X: x, Enter: true} }},
		{"instanceof", func(x *ir.Var) ir.Node {
			return &ir.Return{X: &ir.InstanceOf{X: x, Class: x.Type().(*srctypes.Class)}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := &srctypes.Class{Name: "Thing"}
			fx := newFixture(t, []*srctypes.Class{obj}, obj)
			f := fx.static("bad", []srctypes.Type{obj}, srctypes.Boolean)
			f.Body = ir.NewBody(1)
			f.Body.Block(0).Add(tt.stmt(f.Params[0]))
			err := fx.gen.Function(&strings.Builder{}, f)
			if !errors.Is(err, ErrUnsupported) {
				t.Fatalf("Function() error = %v, want ErrUnsupported", err)
			}
			var ce *Error
			if !errors.As(err, &ce) || ce.Func != "Lib_bad" {
				t.Errorf("error %v does not name the function", err)
			}
		})
	}
}

func TestDispatcherText(t *testing.T) {
	shape := &srctypes.Class{Name: "geo.Shape", Interface: true}
	area := shape.AddMethod(&srctypes.Method{Name: "area", Return: srctypes.Double, Abstract: true})
	impl := func(name string) *srctypes.Class {
		c := &srctypes.Class{Name: name, Interfaces: []*srctypes.Class{shape}}
		c.AddMethod(&srctypes.Method{Name: "area", Return: srctypes.Double})
		return c
	}
	circle, square := impl("geo.Circle"), impl("geo.Square")
	fx := newFixture(t, []*srctypes.Class{shape, circle, square}, circle, square)

	funcs := make(map[*srctypes.Method]*ir.Callable)
	s := dispatch.New(fx.table, func(m *srctypes.Method) (*ir.Callable, error) {
		if f, ok := funcs[m]; ok {
			return f, nil
		}
		f := ir.NewFunction(m.Declaring.SimpleName()+"_"+m.Name, m)
		funcs[m] = f
		return f, nil
	})
	d, err := fx.table.Lookup(shape)
	if err != nil {
		t.Fatal(err)
	}
	disp, err := s.Dispatcher(d, area)
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err := fx.gen.Dispatcher(&sb, disp); err != nil {
		t.Fatal(err)
	}
	want := `double Shape_4_area_dispatch0(struct Shape_4* v0) {
  int tid = (v0->header_ >> 8);
  if (tid == 5) return Circle_area(((struct Circle_5*)v0));
  else if (tid == 6) return Square_area(((struct Square_6*)v0));
  else { jvst_dispatch_error(tid, __LINE__); }
}
`
	if got := sb.String(); got != want {
		t.Errorf("Dispatcher() =\n%s\nwant\n%s", got, want)
	}
}

type forms struct {
	form, dot, ring *srctypes.Class
}

// newForms builds a value interface with two members. Defining a class
// links it to its program, so every fixture needs fresh classes.
func newForms() forms {
	form := &srctypes.Class{Name: "geo.Form", Interface: true, Layout: srctypes.LayoutValue}
	return forms{
		form: form,
		dot:  &srctypes.Class{Name: "geo.Dot", Layout: srctypes.LayoutValue, Interfaces: []*srctypes.Class{form}},
		ring: &srctypes.Class{Name: "geo.Ring", Layout: srctypes.LayoutValue, Interfaces: []*srctypes.Class{form}},
	}
}

func TestUnionCasts(t *testing.T) {
	tests := []struct {
		name  string
		param func(k forms) srctypes.Type
		ret   func(k forms) srctypes.Type
		value func(k forms, x *ir.Var) ir.Node
		want  string
		err   error
	}{
		{
			"select member",
			func(k forms) srctypes.Type { return k.form },
			func(k forms) srctypes.Type { return k.dot },
			func(k forms, x *ir.Var) ir.Node { return &ir.Cast{X: x, To: k.dot} },
			"return v0.t5;", nil,
		},
		{
			"wrap member",
			func(k forms) srctypes.Type { return k.dot },
			func(k forms) srctypes.Type { return k.form },
			func(k forms, x *ir.Var) ir.Node { return &ir.Cast{X: x, To: k.form} },
			"return ((union Form_4){ .t5 = v0 });", nil,
		},
		{
			"same union",
			func(k forms) srctypes.Type { return k.form },
			func(k forms) srctypes.Type { return k.form },
			func(k forms, x *ir.Var) ir.Node { return x },
			"return v0;", nil,
		},
		{
			"null",
			func(k forms) srctypes.Type { return k.form },
			func(k forms) srctypes.Type { return k.form },
			func(forms, *ir.Var) ir.Node { return &ir.NullConst{T: srctypes.Null} },
			"", objmodel.ErrBadCast,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := newForms()
			fx := newFixture(t, []*srctypes.Class{k.form, k.dot, k.ring}, k.dot, k.ring)
			f := fx.static("cast", []srctypes.Type{tt.param(k)}, tt.ret(k))
			f.Body = ir.NewBody(1)
			f.Body.Block(0).Add(&ir.Return{X: tt.value(k, f.Params[0])})
			var sb strings.Builder
			err := fx.gen.Function(&sb, f)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("Function() error = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(sb.String(), tt.want) {
				t.Errorf("Function() =\n%s\nwant a line %q", sb.String(), tt.want)
			}
		})
	}
}

func TestValueConstructor(t *testing.T) {
	vec := &srctypes.Class{Name: "Vec", Layout: srctypes.LayoutValue, Final: true}
	x := vec.AddField(&srctypes.Field{Name: "x", Type: srctypes.Int, Final: true})
	y := vec.AddField(&srctypes.Field{Name: "y", Type: srctypes.Int, Final: true})
	ctor := vec.AddMethod(&srctypes.Method{Name: "<init>", Constructor: true, Params: ints(2)})
	fx := newFixture(t, []*srctypes.Class{vec}, vec)

	f := ir.NewFunction("Vec_init", ctor)
	f.MakeValueCtor()
	self := f.Self
	f.Body = ir.NewBody(1)
	f.Body.Block(0).Add(
		&ir.Assign{Lhs: &ir.GetField{Target: self.Ref(), Class: vec, Field: x}, Rhs: f.Params[0].Ref()},
		&ir.Assign{Lhs: &ir.GetField{Target: self.Ref(), Class: vec, Field: y}, Rhs: f.Params[1].Ref()},
		&ir.Return{},
	)
	want := `struct Vec_4 Vec_init(int v1, int v2) {
  struct Vec_4 v0;
  v0.header_ = 1024;
  v0.x_1 = v1;
  v0.y_1 = v2;
  return v0;
}
`
	if got := fx.lower(t, f); got != want {
		t.Errorf("Function() =\n%s\nwant\n%s", got, want)
	}

	bad := fx.static("bad", []srctypes.Type{vec}, srctypes.Void)
	bad.Body = ir.NewBody(1)
	bad.Body.Block(0).Add(&ir.Assign{Lhs: &ir.GetField{Target: bad.Params[0].Ref(), Class: vec, Field: x}, Rhs: ir.Int(1)})
	if err := fx.gen.Function(&strings.Builder{}, bad); !errors.Is(err, objmodel.ErrFinalField) {
		t.Errorf("store into a final field outside the constructor: error = %v, want ErrFinalField", err)
	}
}

func TestReferenceAllocation(t *testing.T) {
	pt := &srctypes.Class{Name: "Point"}
	pt.AddField(&srctypes.Field{Name: "x", Type: srctypes.Int})
	fx := newFixture(t, []*srctypes.Class{pt}, pt)
	f := fx.static("make", nil, pt)
	f.Body = ir.NewBody(1)
	f.Body.Block(0).Add(&ir.Return{X: &ir.New{Class: pt}})
	got := fx.lower(t, f)
	want := "return (tmp0=(struct Point_4*)calloc(1, sizeof(struct Point_4)), tmp0->header_=1024, tmp0);"
	if !strings.Contains(got, "struct Point_4* tmp0;") || !strings.Contains(got, want) {
		t.Errorf("Function() =\n%s\nwant a declared temporary and %q", got, want)
	}
}

func TestInlinedStatementsAreSpliced(t *testing.T) {
	fx := newFixture(t, nil)
	abs := fx.static("abs", ints(1), srctypes.Int)
	abs.Method.Meta.Inline = srctypes.InlineAlways
	a := abs.Params[0]
	abs.Body = ir.NewBody(2)
	abs.Body.Block(0).Add(
		ir.NewBranch(&ir.Binary{Op: ir.Ge, L: a.Ref(), R: ir.Int(0), T: srctypes.Boolean}, abs.Body.Block(1)),
		&ir.Return{X: &ir.Unary{Op: ir.Neg, X: a.Ref(), T: srctypes.Int}},
	)
	abs.Body.Block(1).Add(&ir.Return{X: a.Ref()})

	run := fx.static("run", ints(1), srctypes.Int)
	res := ir.NewVar(1, run.NewID(), srctypes.Int)
	res.BeMutable()
	run.AddLocal(res)
	run.Body = ir.NewBody(2)
	call := &ir.Call{Kind: ir.CallStatic, Method: abs.Method, Args: []ir.Node{run.Params[0].Ref()}, Callee: abs}
	run.Body.Block(0).Add(&ir.Assign{Lhs: res.Ref(), Rhs: call})
	run.Body.Block(1).Add(&ir.Return{X: res.Ref()})

	if n := inline.New(inline.Options{Enabled: true}).Function(run); n != 1 {
		t.Fatalf("inlined %d sites, want 1", n)
	}
	got := fx.lower(t, run)
	if strings.Contains(got, "Lib_abs(") {
		t.Errorf("inlined callee is still called:\n%s", got)
	}
	if miss := containsInOrder(got,
		"if ((v0 >= 0)) goto L2;",
		"v1 = -v0;",
		"goto L3;",
		"L2: ;",
		"v1 = v0;",
		"L3: ;",
		"return v1;",
	); miss != "" {
		t.Errorf("Function() =\n%s\nmissing %q", got, miss)
	}
}

func TestMultiArrayAccess(t *testing.T) {
	grid := &srctypes.Class{Name: "Grid", Layout: srctypes.LayoutMultiArray, ArrayElem: "double", ArraySizes: []string{"rows", "cols"}}
	grid.AddField(&srctypes.Field{Name: "rows", Type: srctypes.Int})
	grid.AddField(&srctypes.Field{Name: "cols", Type: srctypes.Int})
	get := grid.AddMethod(&srctypes.Method{Name: "get", Params: ints(2), Return: srctypes.Double})
	set := grid.AddMethod(&srctypes.Method{Name: "set", Params: []srctypes.Type{srctypes.Int, srctypes.Int, srctypes.Double}})
	fx := newFixture(t, []*srctypes.Class{grid}, grid)
	given := &ir.Global{Name: "grid", Class: grid, Fields: map[string]ir.Node{"rows": ir.Int(2), "cols": ir.Int(3)}}

	tests := []struct {
		name string
		call func(f *ir.Callable) ir.Node
		want string
	}{
		{"get through a variable", func(f *ir.Callable) ir.Node {
			return &ir.Call{Kind: ir.CallVirtual, Method: get, Target: f.Params[0].Ref(), Args: []ir.Node{f.Params[1].Ref(), f.Params[2].Ref()}}
		}, "((double*)v0->data_1)[(v1) * v0->cols_1 + (v2)];"},
		{"set through a variable", func(f *ir.Callable) ir.Node {
			return &ir.Call{Kind: ir.CallVirtual, Method: set, Target: f.Params[0].Ref(),
				Args: []ir.Node{f.Params[1].Ref(), f.Params[2].Ref(), &ir.DoubleConst{Value: 1}}}
		}, "(((double*)v0->data_1)[(v1) * v0->cols_1 + (v2)] = 1.0);"},
		{"get on a given object", func(f *ir.Callable) ir.Node {
			return &ir.Call{Kind: ir.CallVirtual, Method: get, Target: &ir.ObjectConst{Global: given}, Args: []ir.Node{f.Params[1].Ref(), f.Params[2].Ref()}}
		}, "g_grid_data[v1][v2];"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fx.static("at", []srctypes.Type{grid, srctypes.Int, srctypes.Int}, srctypes.Void)
			f.Body = ir.NewBody(1)
			f.Body.Block(0).Add(tt.call(f))
			if got := fx.lower(t, f); !strings.Contains(got, tt.want) {
				t.Errorf("Function() =\n%s\nwant %q", got, tt.want)
			}
		})
	}

	var sb strings.Builder
	if err := fx.gen.Global(&sb, given); err != nil {
		t.Fatal(err)
	}
	want := "static double g_grid_data[2][3];\n" +
		"static struct Grid_4 g_grid = { .header_ = 1024, .data_1 = (void*)g_grid_data, .rows_1 = 2, .cols_1 = 3 };\n"
	if sb.String() != want {
		t.Errorf("Global() =\n%s\nwant\n%s", sb.String(), want)
	}
}

func TestRuntimeByteOrder(t *testing.T) {
	tests := []struct {
		name   string
		order  binary.ByteOrder
		malloc string
		want   []string
	}{
		{"little", binary.LittleEndian, "calloc", []string{"v |= (unsigned long long)b[i] << (8 * i);", "calloc(1, sizeof(struct array_object_)"}},
		{"big", binary.BigEndian, "GC_calloc", []string{"v = (v << 8) | b[i];", "GC_calloc(1, sizeof(struct array_object_)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := Runtime(tt.order, tt.malloc, 5)
			for _, w := range append(tt.want, "#define ERR_DISPATCH 128", "#define ERR_DESERIALIZE 120", "#define ERR_CALLBACK 119",
				"if (tid < 3 || tid > 5) exit(ERR_DESERIALIZE);") {
				if !strings.Contains(rt, w) {
					t.Errorf("Runtime() lacks %q", w)
				}
			}
			if strings.Contains(rt, "$") {
				t.Errorf("Runtime() has an unexpanded placeholder")
			}
		})
	}
}

func TestProgramLayout(t *testing.T) {
	pt := &srctypes.Class{Name: "Point"}
	pt.AddField(&srctypes.Field{Name: "x", Type: srctypes.Int})
	fx := newFixture(t, []*srctypes.Class{pt}, pt)

	twice := fx.static("twice", ints(1), srctypes.Int)
	twice.Body = ir.NewBody(1)
	twice.Body.Block(0).Add(&ir.Return{X: binop(ir.Mul, twice.Params[0].Ref(), ir.Int(2))})

	log := fx.static("log", ints(1), srctypes.Void)
	log.Kind = ir.Remote
	log.Selector = 3

	sqrt := fx.static("sqrt", []srctypes.Type{srctypes.Double}, srctypes.Double)
	sqrt.Kind = ir.ForeignSymbol
	sqrt.Symbol = "sqrt"

	p := &Program{
		Functions: []*ir.Callable{twice, log, sqrt},
		Globals:   []*ir.Global{{Name: "origin", Class: pt, Fields: map[string]ir.Node{"x": ir.Int(3)}}},
		Callbacks: []*ir.Callable{twice},
		Entry:     twice,
	}
	var sb strings.Builder
	if err := fx.gen.Program(&sb, p); err != nil {
		t.Fatal(err)
	}
	got := sb.String()
	if miss := containsInOrder(got,
		"#include <stdio.h>",
		"#define ERR_CALLBACK 119",
		"struct Point_4;",
		"struct Point_4 {\n  int header_;\n  int x_1;\n};",
		"static struct Point_4 g_origin;",
		"static struct Point_4 g_origin = { .header_ = 1024, .x_1 = 3 };",
		"int Lib_twice(int v0);",
		"void Lib_log(int v0);",
		"int Lib_twice(int v0) {\n  return (v0 * 2);\n}",
		"void Lib_log(int v0) {\n  jvst_write_bool(0);\n  jvst_write_int(3);\n  jvst_write_int(v0);\n  fflush(stdout);\n  while (jvst_read_bool() == 0) jvst_callbacks();\n}",
		"static void jvst_callbacks(void) {\n  int sel = jvst_read_int();\n  if (sel == 0) {\n    int a0 = jvst_read_int();\n    int r = Lib_twice(a0);\n    jvst_write_bool(1);\n    jvst_write_int(r);\n  } else {\n    exit(ERR_CALLBACK);\n  }\n  fflush(stdout);\n}",
		"int main(void) {\n  int a0 = jvst_read_int();",
	); miss != "" {
		t.Errorf("Program() missing %q in order:\n%s", miss, got)
	}
	if strings.Contains(got, "double Lib_sqrt(") {
		t.Errorf("foreign symbols must not be declared")
	}
}

func TestRemoteRejectsObjectParameters(t *testing.T) {
	pt := &srctypes.Class{Name: "Point"}
	fx := newFixture(t, []*srctypes.Class{pt}, pt)
	f := fx.static("send", []srctypes.Type{pt}, srctypes.Void)
	f.Kind = ir.Remote
	if err := fx.gen.Remote(&strings.Builder{}, f); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Remote() error = %v, want ErrUnsupported", err)
	}
}
