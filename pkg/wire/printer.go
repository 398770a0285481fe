package wire

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs a decoded graph for debugging. Each record is numbered
// by arrival; a repeated reference prints as @index.
type Printer struct {
	w      io.Writer
	indent int
	seen   map[Value]int
}

// NewPrinter creates a new graph printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, seen: make(map[Value]int)}
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

// Print prints the graph rooted at v.
func (p *Printer) Print(v Value) {
	p.writeIndent()
	p.value(v)
}

func (p *Printer) value(v Value) {
	if isNull(v) {
		fmt.Fprintln(p.w, "null")
		return
	}
	if i, ok := p.seen[v]; ok && isRef(v) {
		fmt.Fprintf(p.w, "@%d\n", i)
		return
	}
	switch x := v.(type) {
	case int32:
		fmt.Fprintf(p.w, "int %d\n", x)
	case int64:
		fmt.Fprintf(p.w, "long %d\n", x)
	case float32:
		fmt.Fprintf(p.w, "float %g\n", x)
	case float64:
		fmt.Fprintf(p.w, "double %g\n", x)
	case *Array:
		k, _ := x.Kind()
		fmt.Fprintf(p.w, "#%d %s %v\n", p.mark(v), k, x.Data)
	case *Raw:
		fmt.Fprintf(p.w, "#%d custom tag=%d % x\n", p.mark(v), x.Tag, x.Data)
	case *Object:
		fmt.Fprintf(p.w, "#%d object tag=%d {\n", p.mark(v), x.Tag)
		p.indent++
		for _, f := range x.Fields {
			p.writeIndent()
			p.value(f)
		}
		p.indent--
		p.writeIndent()
		fmt.Fprintln(p.w, "}")
	default:
		fmt.Fprintf(p.w, "?%T\n", v)
	}
}

func (p *Printer) mark(v Value) int {
	i := len(p.seen)
	p.seen[v] = i
	return i
}
