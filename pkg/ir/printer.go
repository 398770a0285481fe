package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Printer outputs IR in a readable pseudo-source form for debugging.
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new IR printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

// PrintCallable prints a function header followed by its body.
func (p *Printer) PrintCallable(f *Callable) {
	params := make([]string, len(f.Params))
	for i, v := range f.Params {
		params[i] = fmt.Sprintf("%s: %s", v.Name(), v.Type())
	}
	p.writeIndent()
	fmt.Fprintf(p.w, "%s %s(%s): %s", f.Kind, f.Name, strings.Join(params, ", "), f.Return)
	switch f.Kind {
	case Dispatcher:
		fmt.Fprintln(p.w, " {")
		p.indent++
		for _, c := range f.Cases {
			p.writeIndent()
			fmt.Fprintf(p.w, "case %s: %s\n", c.Receiver, c.Impl.Name)
		}
		p.indent--
		p.writeIndent()
		fmt.Fprintln(p.w, "}")
	case NativeBody:
		fmt.Fprintf(p.w, " native %q\n", f.Native)
	case ForeignSymbol:
		fmt.Fprintf(p.w, " = %s\n", f.Symbol)
	case Remote:
		fmt.Fprintf(p.w, " remote #%d\n", f.Selector)
	default:
		fmt.Fprintln(p.w, " {")
		p.indent++
		for _, v := range f.Locals {
			p.writeIndent()
			fmt.Fprintf(p.w, "var %s: %s\n", v.Name(), v.Type())
		}
		if f.Body != nil {
			p.PrintBody(f.Body)
		}
		p.indent--
		p.writeIndent()
		fmt.Fprintln(p.w, "}")
	}
}

// PrintBody prints every block with its label.
func (p *Printer) PrintBody(b *Body) {
	for _, blk := range b.Blocks {
		p.printBlock(blk)
	}
}

func (p *Printer) printBlock(b *Block) {
	p.writeIndent()
	fmt.Fprintf(p.w, "%s:\n", b.Label())
	p.indent++
	for _, s := range b.Stmts {
		p.printStmt(s)
	}
	p.indent--
}

func (p *Printer) printStmt(s Node) {
	if call, ok := s.(*Call); ok {
		if f := call.Inlined(); f != nil && !f.IsExpression() {
			p.printInlined(f, "")
			return
		}
	}
	if a, ok := s.(*Assign); ok {
		if call, ok := a.Rhs.(*Call); ok {
			if f := call.Inlined(); f != nil && !f.IsExpression() {
				p.printInlined(f, ExprString(a.Lhs)+" = ")
				return
			}
		}
	}
	p.writeIndent()
	switch s := s.(type) {
	case *Goto:
		fmt.Fprintf(p.w, "goto %s\n", s.Target.Label())
	case *Branch:
		fmt.Fprintf(p.w, "if %s goto %s\n", ExprString(s.Cond), s.Target.Label())
	case *Switch:
		fmt.Fprintf(p.w, "switch %s {", ExprString(s.X))
		for i, k := range s.Keys {
			fmt.Fprintf(p.w, " %d: %s;", k, s.Targets[i].Label())
		}
		if s.Default != nil {
			fmt.Fprintf(p.w, " default: %s;", s.Default.Label())
		}
		fmt.Fprintln(p.w, " }")
	case *Return:
		if s.X == nil {
			fmt.Fprintln(p.w, "return")
		} else {
			fmt.Fprintf(p.w, "return %s\n", ExprString(s.X))
		}
	case *Throw:
		fmt.Fprintf(p.w, "throw %s\n", ExprString(s.X))
	case *Monitor:
		if s.Enter {
			fmt.Fprintf(p.w, "monitorenter %s\n", ExprString(s.X))
		} else {
			fmt.Fprintf(p.w, "monitorexit %s\n", ExprString(s.X))
		}
	default:
		fmt.Fprintln(p.w, ExprString(s))
	}
}

func (p *Printer) printInlined(f *Callable, lhs string) {
	p.writeIndent()
	fmt.Fprintf(p.w, "%sinline %s {\n", lhs, f.Name)
	p.indent++
	if f.Init != nil {
		for _, s := range f.Init.Stmts {
			p.printStmt(s)
		}
	}
	if f.Body != nil {
		p.PrintBody(f.Body)
	}
	p.indent--
	p.writeIndent()
	fmt.Fprintln(p.w, "}")
}

// ExprString renders an expression on one line.
func ExprString(n Node) string {
	switch e := n.(type) {
	case nil:
		return "<nil>"
	case *IntConst:
		return strconv.FormatInt(int64(e.Value), 10)
	case *LongConst:
		return strconv.FormatInt(e.Value, 10) + "L"
	case *FloatConst:
		return strconv.FormatFloat(float64(e.Value), 'g', -1, 32) + "f"
	case *DoubleConst:
		return strconv.FormatFloat(e.Value, 'g', -1, 64)
	case *StringConst:
		return strconv.Quote(e.Value)
	case *NullConst:
		return "null"
	case *ObjectConst:
		return "@" + e.Global.Name
	case Variable:
		return e.Name()
	case *Unary:
		if e.Op == Length {
			return ExprString(e.X) + ".length"
		}
		return e.Op.String() + ExprString(e.X)
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", ExprString(e.L), e.Op, ExprString(e.R))
	case *Convert:
		return fmt.Sprintf("(%s)%s", e.To, ExprString(e.X))
	case *Cast:
		return fmt.Sprintf("(%s)%s", e.To, ExprString(e.X))
	case *Assign:
		return fmt.Sprintf("%s = %s", ExprString(e.Lhs), ExprString(e.Rhs))
	case *GetField:
		if e.Target == nil {
			return e.Class.Name + "." + e.Field.Name
		}
		return ExprString(e.Target) + "." + e.Field.Name
	case *ArrayElem:
		return fmt.Sprintf("%s[%s]", ExprString(e.Array), ExprString(e.Index))
	case *NewArray:
		return fmt.Sprintf("new %s[%s]", e.Elem, ExprString(e.Len))
	case *Call:
		if f := e.Inlined(); f != nil {
			if f.IsExpression() {
				return "inline " + f.Name + "{" + ExprString(f.Expr) + "}"
			}
			return "inline " + f.Name + "{...}"
		}
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = ExprString(a)
		}
		name := e.Method.Name
		if e.Callee != nil {
			name = e.Callee.Name
		}
		if e.Target != nil {
			return fmt.Sprintf("%s.%s(%s)", ExprString(e.Target), name, strings.Join(args, ", "))
		}
		return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
	case *New:
		if e.Ctor == nil {
			return "new " + e.Class.Name + "()"
		}
		args := make([]string, len(e.Ctor.Args))
		for i, a := range e.Ctor.Args {
			args[i] = ExprString(a)
		}
		return fmt.Sprintf("new %s(%s)", e.Class.Name, strings.Join(args, ", "))
	case *Comma:
		return fmt.Sprintf("(%s, %s)", ExprString(e.L), ExprString(e.R))
	case *InstanceOf:
		return fmt.Sprintf("(%s instanceof %s)", ExprString(e.X), e.Class.Name)
	default:
		return fmt.Sprintf("<%T>", n)
	}
}
