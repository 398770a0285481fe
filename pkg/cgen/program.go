package cgen

import (
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/ralph-offload/pkg/ctypes"
	"github.com/raymyers/ralph-offload/pkg/ir"
	"github.com/raymyers/ralph-offload/pkg/objmodel"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
	"github.com/raymyers/ralph-offload/pkg/tag"
)

// Program is everything emitted for one compilation.
type Program struct {
	// Functions holds the ordinary, native, foreign and remote callables.
	Functions   []*ir.Callable
	Dispatchers []*ir.Callable
	Globals     []*ir.Global
	// Callbacks are the functions the managed side may call while a
	// remote call is in progress; a callback's selector is its index.
	Callbacks []*ir.Callable
	Entry     *ir.Callable
}

// Program writes a complete C translation unit: the runtime, type
// definitions, static fields, given objects, prototypes, functions,
// dispatchers, remote proxies, the callback dispatcher and main.
func (g *Generator) Program(w io.Writer, p *Program) error {
	var sb strings.Builder
	sb.WriteString(includes)
	sb.WriteString("\n")
	sb.WriteString(Runtime(g.order, g.table.Malloc, g.table.LastTag()))
	sb.WriteString("\n")

	if err := g.types(&sb); err != nil {
		return err
	}
	if err := g.statics(&sb); err != nil {
		return err
	}
	for _, gl := range p.Globals {
		d, err := g.table.Add(gl.Class)
		if err != nil {
			return err
		}
		fmt.Fprintf(&sb, "static struct %s %s;\n", d.Name, GlobalName(gl))
	}
	for _, gl := range p.Globals {
		if err := g.Global(&sb, gl); err != nil {
			return &Error{Func: GlobalName(gl), Err: err}
		}
	}
	sb.WriteString("\n")

	var protos []*ir.Callable
	for _, f := range p.Functions {
		if f.Kind != ir.ForeignSymbol {
			protos = append(protos, f)
		}
	}
	protos = append(protos, p.Dispatchers...)
	for _, f := range protos {
		sig, err := g.signature(f)
		if err != nil {
			return &Error{Func: f.Name, Err: err}
		}
		sb.WriteString(sig + ";\n")
	}
	sb.WriteString("\n")

	for _, f := range p.Functions {
		switch f.Kind {
		case ir.Ordinary, ir.NativeBody:
			if err := g.Function(&sb, f); err != nil {
				return err
			}
			sb.WriteString("\n")
		}
	}
	for _, f := range p.Dispatchers {
		if err := g.Dispatcher(&sb, f); err != nil {
			return err
		}
		sb.WriteString("\n")
	}
	for _, f := range p.Functions {
		if f.Kind == ir.Remote {
			if err := g.Remote(&sb, f); err != nil {
				return err
			}
			sb.WriteString("\n")
		}
	}
	if err := g.Callbacks(&sb, p.Callbacks); err != nil {
		return err
	}
	if p.Entry != nil {
		sb.WriteString("\n")
		if err := g.Main(&sb, p.Entry); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// types writes forward declarations of every struct and union followed
// by the definitions of the types with instances.
func (g *Generator) types(sb *strings.Builder) error {
	for _, d := range g.table.All() {
		switch d.Kind {
		case objmodel.Struct, objmodel.Blob, objmodel.MultiArray:
			fmt.Fprintf(sb, "struct %s;\n", d.Name)
		case objmodel.Union:
			if d.Alias() == nil {
				fmt.Fprintf(sb, "union %s;\n", d.Name)
			}
		}
	}
	sb.WriteString("\n")
	sorted, err := g.table.Sorted()
	if err != nil {
		return err
	}
	for _, d := range sorted {
		layout, err := g.table.Layout(d)
		if err != nil {
			return err
		}
		if layout != nil {
			sb.WriteString(ctypes.Definition(layout))
			sb.WriteString("\n")
		}
	}
	return nil
}

func (g *Generator) statics(sb *strings.Builder) error {
	seen := make(map[string]bool)
	for _, d := range g.table.All() {
		if d.Class == nil {
			continue
		}
		for _, f := range d.Class.StaticFields() {
			name, err := g.table.StaticName(f)
			if err != nil {
				return err
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			ct, err := g.table.CType(f.Type)
			if err != nil {
				return fmt.Errorf("static %s.%s: %w", f.Declaring.Name, f.Name, err)
			}
			fmt.Fprintf(sb, "static %s;\n", ctypes.Decl(ct, name))
		}
	}
	return nil
}

// Global writes the definition of a given object. The object of a
// multi-dimensional array class gets a static element array whose
// dimensions are its constant size fields.
func (g *Generator) Global(w io.Writer, gl *ir.Global) error {
	t := g.table
	d, err := t.Add(gl.Class)
	if err != nil {
		return err
	}
	switch d.Kind {
	case objmodel.Struct, objmodel.Blob, objmodel.MultiArray:
	default:
		return fmt.Errorf("given object of %s %s: %w", d.Kind, gl.Class.Name, objmodel.ErrNoInstance)
	}
	fg := g.newFuncGen(nil)
	inits := []string{fmt.Sprintf(".%s = %d", objmodel.HeaderField, d.Header())}
	if d.Kind == objmodel.MultiArray {
		info, err := t.MultiArray(gl.Class)
		if err != nil {
			return err
		}
		dims := ""
		for _, s := range gl.Class.ArraySizes {
			c, ok := gl.Fields[s].(*ir.IntConst)
			if !ok {
				return fmt.Errorf("given object %s: size %s is not an int constant", gl.Name, s)
			}
			dims += fmt.Sprintf("[%d]", c.Value)
		}
		fmt.Fprintf(w, "static %s %s%s;\n", info.Elem, globalDataName(gl), dims)
		inits = append(inits, fmt.Sprintf(".%s = (void*)%s", info.Data, globalDataName(gl)))
	}
	members, err := t.Members(d)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.Field == nil {
			continue
		}
		v, ok := gl.Fields[m.Field.Name]
		if !ok {
			continue
		}
		text, err := fg.castTo(v, m.Field.Type)
		if err != nil {
			return fmt.Errorf("field %s: %w", m.Field.Name, err)
		}
		inits = append(inits, fmt.Sprintf(".%s = %s", m.Name, text))
	}
	_, err = fmt.Fprintf(w, "static struct %s %s = { %s };\n", d.Name, GlobalName(gl), strings.Join(inits, ", "))
	return err
}

// Dispatcher writes a function that selects the implementation of a
// virtual call from the receiver's type tag and raises a dispatch error
// for any other tag.
func (g *Generator) Dispatcher(w io.Writer, f *ir.Callable) error {
	fg := g.newFuncGen(f)
	if err := fg.dispatcher(); err != nil {
		return &Error{Func: f.Name, Err: err}
	}
	_, err := io.WriteString(w, fg.out.String())
	return err
}

func (fg *funcGen) dispatcher() error {
	f := fg.f
	t := fg.g.table
	sig, err := fg.g.signature(f)
	if err != nil {
		return err
	}
	fg.line("%s {", sig)
	fg.indent++
	recv := f.Params[0]
	rct, err := t.CType(recv.Type())
	if err != nil {
		return err
	}
	op := "."
	if _, ok := rct.(ctypes.Tpointer); ok {
		op = "->"
	}
	fg.line("int tid = (%s%s%s >> %d);", recv.Name(), op, objmodel.HeaderField, tag.FlagBits)
	args := make([]ir.Node, len(f.Params)-1)
	for i, p := range f.Params[1:] {
		args[i] = p
	}
	for i, c := range f.Cases {
		d, err := t.Lookup(c.Receiver)
		if err != nil {
			return err
		}
		call, err := fg.invoke(c.Impl, recv, args)
		if err != nil {
			return err
		}
		prefix := ""
		if i > 0 {
			prefix = "else "
		}
		if f.Return == nil || f.Return.Kind() == srctypes.KVoid {
			fg.line("%sif (tid == %d) %s;", prefix, d.Tag, call)
			continue
		}
		call, err = fg.castText(call, c.Impl.Return, f.Return)
		if err != nil {
			return err
		}
		fg.line("%sif (tid == %d) return %s;", prefix, d.Tag, call)
	}
	if len(f.Cases) > 0 {
		fg.line("else { jvst_dispatch_error(tid, __LINE__); }")
	} else {
		fg.line("jvst_dispatch_error(tid, __LINE__);")
	}
	fg.indent--
	fg.line("}")
	return nil
}

// channelName is the suffix of the runtime stream helpers for values of t.
func channelName(t srctypes.Type) (string, error) {
	switch t.Kind() {
	case srctypes.KBoolean:
		return "bool", nil
	case srctypes.KByte:
		return "byte", nil
	case srctypes.KChar:
		return "char", nil
	case srctypes.KShort:
		return "short", nil
	case srctypes.KInt:
		return "int", nil
	case srctypes.KLong:
		return "long", nil
	case srctypes.KFloat:
		return "float", nil
	case srctypes.KDouble:
		return "double", nil
	case srctypes.KArray:
		elem := t.(srctypes.ArrayType).Elem
		if srctypes.IsPrimitive(elem) {
			name, _ := channelName(elem)
			return name + "_array", nil
		}
	case srctypes.KClass:
		if t.(*srctypes.Class).Name == srctypes.StringName {
			return "string", nil
		}
	}
	return "", fmt.Errorf("%s on the callback channel: %w", t, ErrUnsupported)
}

// readValue renders reading a value of type t from the input stream. A
// reference class is read as an object graph.
func (g *Generator) readValue(t srctypes.Type) (string, error) {
	if name, err := channelName(t); err == nil {
		return "jvst_read_" + name + "()", nil
	}
	if c, ok := t.(*srctypes.Class); ok {
		d, err := g.table.Add(c)
		if err != nil {
			return "", err
		}
		if !d.Value && d.Kind != objmodel.Pointer {
			return fmt.Sprintf("((%s)jvst_read_graph())", d.CType()), nil
		}
	}
	return "", fmt.Errorf("reading %s: %w", t, ErrUnsupported)
}

func isVoid(t srctypes.Type) bool {
	return t == nil || t.Kind() == srctypes.KVoid
}

// Remote writes the proxy of a method that runs on the managed side: it
// sends the selector and arguments, serves callbacks until the managed
// side reports completion, then reads the result.
func (g *Generator) Remote(w io.Writer, f *ir.Callable) error {
	fg := g.newFuncGen(f)
	sig, err := g.signature(f)
	if err != nil {
		return &Error{Func: f.Name, Err: err}
	}
	fg.line("%s {", sig)
	fg.indent++
	fg.line("jvst_write_bool(0);")
	fg.line("jvst_write_int(%d);", f.Selector)
	for _, p := range f.Params {
		name, err := channelName(p.Type())
		if err != nil {
			return &Error{Func: f.Name, Err: err}
		}
		fg.line("jvst_write_%s(%s);", name, p.Name())
	}
	fg.line("fflush(stdout);")
	fg.line("while (jvst_read_bool() == 0) jvst_callbacks();")
	if !isVoid(f.Return) {
		r, err := g.readValue(f.Return)
		if err != nil {
			return &Error{Func: f.Name, Err: err}
		}
		fg.line("return %s;", r)
	}
	fg.indent--
	fg.line("}")
	_, err = io.WriteString(w, fg.out.String())
	return err
}

// serve reads the parameters of f into fresh locals, calls f and writes
// back the completion flag and the result.
func (fg *funcGen) serve(f *ir.Callable) error {
	args := make([]string, len(f.Params))
	for i, p := range f.Params {
		ct, err := fg.g.table.CType(p.Type())
		if err != nil {
			return err
		}
		r, err := fg.g.readValue(p.Type())
		if err != nil {
			return err
		}
		args[i] = fmt.Sprintf("a%d", i)
		fg.line("%s = %s;", ctypes.Decl(ct, args[i]), r)
	}
	call := fmt.Sprintf("%s(%s)", f.Name, strings.Join(args, ", "))
	if isVoid(f.Return) {
		fg.line("%s;", call)
		fg.line("jvst_write_bool(1);")
		return nil
	}
	name, err := channelName(f.Return)
	if err != nil {
		return err
	}
	ct, err := fg.g.table.CType(f.Return)
	if err != nil {
		return err
	}
	fg.line("%s = %s;", ctypes.Decl(ct, "r"), call)
	fg.line("jvst_write_bool(1);")
	fg.line("jvst_write_%s(r);", name)
	return nil
}

// Callbacks writes jvst_callbacks, which reads a selector and runs the
// callback it names. An unknown selector exits with the callback status.
func (g *Generator) Callbacks(w io.Writer, callbacks []*ir.Callable) error {
	fg := g.newFuncGen(nil)
	fg.line("static void jvst_callbacks(void) {")
	fg.indent++
	fg.line("int sel = jvst_read_int();")
	for i, f := range callbacks {
		if i == 0 {
			fg.line("if (sel == %d) {", i)
		} else {
			fg.line("} else if (sel == %d) {", i)
		}
		fg.indent++
		if err := fg.serve(f); err != nil {
			return &Error{Func: f.Name, Err: err}
		}
		fg.indent--
	}
	if len(callbacks) > 0 {
		fg.line("} else {")
		fg.line("  exit(ERR_CALLBACK);")
		fg.line("}")
	} else {
		fg.line("exit(ERR_CALLBACK);")
	}
	fg.line("fflush(stdout);")
	fg.indent--
	fg.line("}")
	_, err := io.WriteString(w, fg.out.String())
	return err
}

// Main writes main, which reads the entry arguments, runs the entry
// function and reports completion with its result.
func (g *Generator) Main(w io.Writer, entry *ir.Callable) error {
	fg := g.newFuncGen(nil)
	fg.line("int main(void) {")
	fg.indent++
	if err := fg.serve(entry); err != nil {
		return &Error{Func: entry.Name, Err: err}
	}
	fg.line("fflush(stdout);")
	fg.line("return 0;")
	fg.indent--
	fg.line("}")
	_, err := io.WriteString(w, fg.out.String())
	return err
}
