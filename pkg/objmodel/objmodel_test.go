package objmodel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/raymyers/ralph-offload/pkg/ctypes"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
	"github.com/raymyers/ralph-offload/pkg/tag"
)

type fixture struct {
	prog                       *srctypes.Program
	shape, circle, square, tri *srctypes.Class
	node, sub                  *srctypes.Class
	table                      *Table
}

func define(t *testing.T, p *srctypes.Program, c *srctypes.Class) *srctypes.Class {
	t.Helper()
	if err := p.Define(c); err != nil {
		t.Fatalf("Define(%s) = %v", c.Name, err)
	}
	return c
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p := srctypes.NewProgram()
	f := &fixture{prog: p}
	f.shape = define(t, p, &srctypes.Class{Name: "geo.Shape", Interface: true, Layout: srctypes.LayoutValue})
	f.circle = define(t, p, &srctypes.Class{Name: "geo.Circle", Interfaces: []*srctypes.Class{f.shape}, Layout: srctypes.LayoutValue})
	f.circle.AddField(&srctypes.Field{Name: "r", Type: srctypes.Double, Final: true})
	f.square = define(t, p, &srctypes.Class{Name: "geo.Square", Interfaces: []*srctypes.Class{f.shape}, Layout: srctypes.LayoutValue})
	f.square.AddField(&srctypes.Field{Name: "side", Type: srctypes.Double})
	f.tri = define(t, p, &srctypes.Class{Name: "geo.Triangle", Interfaces: []*srctypes.Class{f.shape}, Layout: srctypes.LayoutValue})

	f.node = define(t, p, &srctypes.Class{Name: "list.Node"})
	f.node.AddField(&srctypes.Field{Name: "x", Type: srctypes.Int})
	f.node.AddField(&srctypes.Field{Name: "count", Type: srctypes.Int, Static: true})
	f.sub = define(t, p, &srctypes.Class{Name: "list.Node$Sub", Super: f.node})
	f.sub.AddField(&srctypes.Field{Name: "x", Type: srctypes.Long})
	f.sub.AddField(&srctypes.Field{Name: "next", Type: f.node})

	f.table = NewTable(p)
	for _, c := range []*srctypes.Class{f.shape, f.circle, f.square, f.tri, f.node, f.sub} {
		if _, err := f.table.Add(c); err != nil {
			t.Fatalf("Add(%s) = %v", c.Name, err)
		}
	}
	return f
}

func (f *fixture) seal(t *testing.T, instances ...*srctypes.Class) {
	t.Helper()
	for _, c := range instances {
		if err := f.table.MarkInstance(c); err != nil {
			t.Fatalf("MarkInstance(%s) = %v", c.Name, err)
		}
	}
	f.table.Seal()
}

func (f *fixture) desc(t *testing.T, c *srctypes.Class) *Descriptor {
	t.Helper()
	d, err := f.table.Lookup(c)
	if err != nil {
		t.Fatalf("Lookup(%s) = %v", c.Name, err)
	}
	return d
}

func TestTagAssignment(t *testing.T) {
	f := newFixture(t)
	str := f.desc(t, f.prog.String)
	if str.Tag != tag.String || str.Name != StringStruct {
		t.Errorf("string descriptor = %d %s, want %d %s", str.Tag, str.Name, tag.String, StringStruct)
	}
	obj := f.desc(t, f.prog.Object)
	if obj.Tag != tag.FirstClass || obj.Name != ObjectStruct {
		t.Errorf("root descriptor = %d %s", obj.Tag, obj.Name)
	}

	seen := make(map[uint32]string)
	for _, d := range f.table.All() {
		if prev, dup := seen[d.Tag]; dup {
			t.Errorf("tag %d shared by %s and %s", d.Tag, prev, d.Name)
		}
		seen[d.Tag] = d.Name
	}

	sub := f.desc(t, f.sub)
	if want := fmt.Sprintf("Node_Sub_%d", sub.Tag); sub.Name != want {
		t.Errorf("struct name = %s, want %s", sub.Name, want)
	}
	if sub.Header() != sub.Tag<<8 {
		t.Errorf("Header() = %#x, want %#x", sub.Header(), sub.Tag<<8)
	}
	if f.table.LastTag() != sub.Tag {
		t.Errorf("LastTag() = %d, want %d", f.table.LastTag(), sub.Tag)
	}
}

func TestSubtypeRecords(t *testing.T) {
	f := newFixture(t)
	f.seal(t, f.circle)
	shape := f.desc(t, f.shape)
	if len(shape.Subtypes) != 3 {
		t.Errorf("Shape has %d subtypes, want 3", len(shape.Subtypes))
	}
	got := f.table.Instantiated(shape)
	if len(got) != 1 || got[0].Class != f.circle {
		t.Errorf("Instantiated(Shape) = %v, want [Circle]", got)
	}
	if !shape.Instances || !f.desc(t, f.prog.Object).Instances {
		t.Errorf("instances must propagate to every supertype")
	}
}

func TestArrayTags(t *testing.T) {
	p := srctypes.NewProgram()
	table := NewTable(p)
	d, err := table.AddArray(srctypes.Int)
	if err != nil {
		t.Fatal(err)
	}
	if d.Tag != 0xf40000 {
		t.Errorf("int[] tag = %#x, want 0xf40000", d.Tag)
	}
	if h := tag.Header(d.Tag); h != 0xf4000000 {
		t.Errorf("int[] header = %#x, want 0xf4000000", h)
	}

	var last error
	for i := 0; i <= int(tag.LastObjectArray); i++ {
		c := &srctypes.Class{Name: fmt.Sprintf("C%d", i)}
		if err := p.Define(c); err != nil {
			t.Fatal(err)
		}
		if _, last = table.AddArray(c); last != nil {
			break
		}
	}
	if !errors.Is(last, ErrTooManyTypes) {
		t.Errorf("exhausting object-array codes gave %v, want ErrTooManyTypes", last)
	}
}

func TestUnionCastLaw(t *testing.T) {
	f := newFixture(t)
	f.seal(t, f.circle, f.square)
	circle := f.desc(t, f.circle)
	square := f.desc(t, f.square)

	tests := []struct {
		name     string
		from, to srctypes.Type
		kind     CastKind
		member   string
	}{
		{"union to member", f.shape, f.circle, UnionMember, MemberName(circle)},
		{"union to other member", f.shape, f.square, UnionMember, MemberName(square)},
		{"member to union", f.square, f.shape, UnionWrap, MemberName(square)},
		{"union to itself", f.shape, f.shape, NoCast, ""},
		{"member to itself", f.circle, f.circle, NoCast, ""},
		{"reference downcast", f.node, f.sub, Convert, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := f.table.Cast(tt.from, tt.to)
			if err != nil {
				t.Fatalf("Cast() error = %v", err)
			}
			if plan.Kind != tt.kind || plan.Member != tt.member {
				t.Errorf("Cast() = %v %q, want %v %q", plan.Kind, plan.Member, tt.kind, tt.member)
			}
		})
	}

	need, err := f.table.NeedsCast(f.shape, f.shape)
	if err != nil || !need {
		t.Errorf("NeedsCast(union, union) = %v, %v; want true", need, err)
	}
	need, _ = f.table.NeedsCast(f.node, f.node)
	if need {
		t.Errorf("NeedsCast(Node, Node) = true, want false")
	}
}

func TestBadCasts(t *testing.T) {
	f := newFixture(t)
	f.seal(t, f.circle, f.square)
	tests := []struct {
		name     string
		from, to srctypes.Type
	}{
		{"null to union", srctypes.Null, f.shape},
		{"union to non-member", f.shape, f.tri},
		{"non-member to union", f.tri, f.shape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.table.Cast(tt.from, tt.to); !errors.Is(err, ErrBadCast) {
				t.Errorf("Cast() error = %v, want ErrBadCast", err)
			}
		})
	}
	if plan, err := f.table.Cast(srctypes.Null, f.node); err != nil || plan.Kind != Convert {
		t.Errorf("null to reference = %v, %v; want a convert", plan, err)
	}
}

func TestSingleMemberUnionAliases(t *testing.T) {
	f := newFixture(t)
	f.seal(t, f.circle)
	shape := f.desc(t, f.shape)
	if shape.IsUnion() {
		t.Fatalf("one instantiated member must not build a union")
	}
	got, err := f.table.TypeName(f.shape)
	if err != nil {
		t.Fatal(err)
	}
	want := "struct " + f.desc(t, f.circle).Name
	if got != want {
		t.Errorf("TypeName(Shape) = %s, want %s", got, want)
	}
	plan, err := f.table.Cast(f.circle, f.shape)
	if err != nil || plan.Kind != NoCast {
		t.Errorf("Cast(Circle, Shape) = %v, %v; want no cast", plan.Kind, err)
	}
}

func TestSealProtocol(t *testing.T) {
	f := newFixture(t)
	shape := f.desc(t, f.shape)
	func() {
		defer func() {
			if recover() == nil {
				t.Errorf("union layout before Seal must panic")
			}
		}()
		f.table.Layout(shape)
	}()

	f.seal(t, f.circle, f.square)
	if err := f.table.MarkInstance(f.tri); !errors.Is(err, ErrSealed) {
		t.Errorf("late member error = %v, want ErrSealed", err)
	}
	late := &srctypes.Class{Name: "geo.Hexagon", Interfaces: []*srctypes.Class{f.shape}, Layout: srctypes.LayoutValue}
	if err := f.prog.Define(late); err != nil {
		t.Fatal(err)
	}
	if _, err := f.table.Add(late); !errors.Is(err, ErrSealed) {
		t.Errorf("late subtype error = %v, want ErrSealed", err)
	}

	lay, err := f.table.Layout(shape)
	if err != nil {
		t.Fatal(err)
	}
	def := ctypes.Definition(lay)
	circle := f.desc(t, f.circle)
	for _, want := range []string{
		"union " + shape.Name + " {",
		"int header_;",
		fmt.Sprintf("struct %s t%d;", circle.Name, circle.Tag),
	} {
		if !strings.Contains(def, want) {
			t.Errorf("union definition missing %q:\n%s", want, def)
		}
	}
}

func TestFieldNaming(t *testing.T) {
	f := newFixture(t)
	f.seal(t, f.sub)
	tests := []struct {
		class  *srctypes.Class
		field  string
		name   string
		op     string
		static bool
	}{
		{f.node, "x", "x_1", "->", false},
		{f.sub, "x", "x_2", "->", false},
		{f.sub, "next", "next_2", "->", false},
		{f.sub, "count", fmt.Sprintf("%s_count_1", f.desc(t, f.node).Name), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.class.Name+"."+tt.field, func(t *testing.T) {
			ref, err := f.table.Field(tt.class, tt.field)
			if err != nil {
				t.Fatalf("Field() error = %v", err)
			}
			if ref.Name != tt.name || ref.Op != tt.op || ref.Static != tt.static {
				t.Errorf("Field() = %+v, want %s %q static=%v", ref, tt.name, tt.op, tt.static)
			}
		})
	}

	lay, err := f.table.Layout(f.desc(t, f.sub))
	if err != nil {
		t.Fatal(err)
	}
	def := ctypes.Definition(lay)
	for _, want := range []string{"int x_1;", "long x_2;", "struct Node_4* next_2;"} {
		if !strings.Contains(def, strings.Replace(want, "Node_4", f.desc(t, f.node).Name, 1)) {
			t.Errorf("struct definition missing %q:\n%s", want, def)
		}
	}
	if strings.Contains(def, "count") {
		t.Errorf("static field must not be a member:\n%s", def)
	}
}

func TestValueFields(t *testing.T) {
	f := newFixture(t)
	f.seal(t, f.circle, f.square)
	ref, err := f.table.Field(f.circle, "r")
	if err != nil {
		t.Fatal(err)
	}
	if ref.Op != "." {
		t.Errorf("value field op = %q, want \".\"", ref.Op)
	}
	if err := ref.CheckStore(); !errors.Is(err, ErrFinalField) {
		t.Errorf("CheckStore() = %v, want ErrFinalField", err)
	}
	side, _ := f.table.Field(f.square, "side")
	if err := side.CheckStore(); err != nil {
		t.Errorf("CheckStore() on non-final = %v", err)
	}
	if _, err := f.table.Field(f.shape, "r"); !errors.Is(err, ErrBadCast) {
		t.Errorf("field through union error = %v, want ErrBadCast", err)
	}
}

func TestBlob(t *testing.T) {
	p := srctypes.NewProgram()
	blob := &srctypes.Class{Name: "io.Handle", Layout: srctypes.LayoutBlob, BlobSize: "sizeof(FILE)"}
	blob.AddField(&srctypes.Field{Name: "ignored", Type: srctypes.Int})
	if err := p.Define(blob); err != nil {
		t.Fatal(err)
	}
	table := NewTable(p)
	d, err := table.Add(blob)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := table.Field(blob, "ignored"); !errors.Is(err, srctypes.ErrNotFound) {
		t.Errorf("blob field error = %v, want ErrNotFound", err)
	}
	lay, _ := table.Layout(d)
	def := ctypes.Definition(lay)
	want := "double body[((sizeof(FILE))+sizeof(double)-1)/sizeof(double)];"
	if !strings.Contains(def, want) || !strings.Contains(def, "int flag;") {
		t.Errorf("blob definition:\n%s\nwant %q", def, want)
	}
	if got := BlobBody("h"); got != "((void*)(h)->body)" {
		t.Errorf("BlobBody() = %s", got)
	}
}

func TestInstantiate(t *testing.T) {
	f := newFixture(t)
	f.seal(t, f.node, f.circle)
	a, err := f.table.Instantiate(f.node)
	if err != nil {
		t.Fatal(err)
	}
	n := f.desc(t, f.node)
	want := fmt.Sprintf("(tmp3=(struct %s*)calloc(1, sizeof(struct %s)), tmp3->header_=%d, Node_init_1(tmp3), tmp3)",
		n.Name, n.Name, n.Tag<<8)
	if got := a.Text("tmp3", "Node_init_1(tmp3)"); got != want {
		t.Errorf("Text() =\n%s\nwant\n%s", got, want)
	}

	v, err := f.table.Instantiate(f.circle)
	if err != nil || !v.Value {
		t.Fatalf("value instantiate = %v, %v", v, err)
	}
	if got := v.HeaderInit("self"); got != fmt.Sprintf("self.header_ = %d", f.desc(t, f.circle).Tag<<8) {
		t.Errorf("HeaderInit() = %s", got)
	}
	if _, err := f.table.Instantiate(f.shape); !errors.Is(err, ErrNoInstance) {
		t.Errorf("interface instantiate error = %v", err)
	}
}

func TestNewArray(t *testing.T) {
	f := newFixture(t)
	f.seal(t, f.node, f.circle)
	tests := []struct {
		elem srctypes.Type
		typ  string
		code tag.Kind
		size string
		off  int
	}{
		{srctypes.Int, "int*", tag.IntArray, "4", 2},
		{srctypes.Double, "double*", tag.DoubleArray, "8", 1},
		{srctypes.Byte, "signed char*", tag.ByteArray, "1", 8},
		{srctypes.Char, "unsigned short*", tag.CharArray, "2", 4},
		{f.node, fmt.Sprintf("struct %s**", f.desc(t, f.node).Name), tag.FirstObjectArray,
			fmt.Sprintf("sizeof(struct %s*)", f.desc(t, f.node).Name), 1},
	}
	for _, tt := range tests {
		t.Run(tt.elem.String(), func(t *testing.T) {
			plan, err := f.table.NewArray(tt.elem)
			if err != nil {
				t.Fatal(err)
			}
			if plan.Type.String() != tt.typ || plan.Code != tt.code || plan.Size != tt.size {
				t.Errorf("NewArray() = %s %v %s, want %s %v %s", plan.Type, plan.Code, plan.Size, tt.typ, tt.code, tt.size)
			}
			if off := ElemOffset(tt.elem); off != tt.off {
				t.Errorf("ElemOffset() = %d, want %d", off, tt.off)
			}
		})
	}
	if _, err := f.table.NewArray(f.circle); !errors.Is(err, ErrNoInstance) {
		t.Errorf("value array error = %v", err)
	}
}

func TestStringLiteral(t *testing.T) {
	tests := []struct {
		s     string
		order binary.ByteOrder
		want  string
	}{
		{"hi", binary.LittleEndian, `((struct java_string*)"\000\002\000\000\002\000\000\000" "hi")`},
		{"hi", binary.BigEndian, `((struct java_string*)"\000\000\002\000\000\000\000\002" "hi")`},
		{"a\"b\n", binary.LittleEndian, `((struct java_string*)"\000\002\000\000\004\000\000\000" "a\"b\n")`},
	}
	for _, tt := range tests {
		if got := StringLiteral(tt.s, tt.order); got != tt.want {
			t.Errorf("StringLiteral(%q) = %s, want %s", tt.s, got, tt.want)
		}
	}
}

func TestMultiArray(t *testing.T) {
	p := srctypes.NewProgram()
	m := &srctypes.Class{Name: "lib.DoubleArray2D", Layout: srctypes.LayoutMultiArray,
		ArrayElem: "double", ArraySizes: []string{"rows", "cols"}}
	m.AddField(&srctypes.Field{Name: "rows", Type: srctypes.Int, Final: true})
	m.AddField(&srctypes.Field{Name: "cols", Type: srctypes.Int, Final: true})
	if err := p.Define(m); err != nil {
		t.Fatal(err)
	}
	table := NewTable(p)
	info, err := table.MultiArray(m)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := info.Index("a", "->", []string{"i", "j"}), "((double*)a->data_1)[(i) * a->cols_1 + (j)]"; got != want {
		t.Errorf("Index() = %s, want %s", got, want)
	}
	if got, want := info.Alloc("calloc", "a", "->"), "a->data_1 = calloc(a->rows_1 * a->cols_1, sizeof(double))"; got != want {
		t.Errorf("Alloc() = %s, want %s", got, want)
	}
}

func TestSortedValueDependencies(t *testing.T) {
	f := newFixture(t)
	holder := define(t, f.prog, &srctypes.Class{Name: "geo.Holder", Layout: srctypes.LayoutValue})
	holder.AddField(&srctypes.Field{Name: "c", Type: f.circle})
	if _, err := f.table.Add(holder); err != nil {
		t.Fatal(err)
	}
	f.seal(t, holder, f.circle)
	order, err := f.table.Sorted()
	if err != nil {
		t.Fatal(err)
	}
	pos := make(map[*srctypes.Class]int)
	for i, d := range order {
		pos[d.Class] = i
	}
	if pos[f.circle] > pos[holder] {
		t.Errorf("Circle must be defined before Holder: %v", order)
	}
	for _, d := range order {
		if d.Kind == String || d.Class == f.tri {
			t.Errorf("Sorted() includes %s", d.Name)
		}
	}
}
