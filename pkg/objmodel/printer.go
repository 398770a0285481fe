package objmodel

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs the descriptor table for debugging
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new descriptor printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintTable prints one line per descriptor followed by its members.
func (p *Printer) PrintTable(t *Table) {
	for _, d := range t.All() {
		p.printDescriptor(t, d)
	}
}

func (p *Printer) printDescriptor(t *Table, d *Descriptor) {
	inst := ""
	if d.Instances {
		inst = " instances"
	}
	fmt.Fprintf(p.w, "0x%06x %s %s %s%s\n", d.Tag, d.Source, d.Kind, d.Name, inst)
	if d.Kind == Union && t.Sealed() {
		if a := d.Alias(); a != nil {
			fmt.Fprintf(p.w, "  = %s\n", a.Name)
			return
		}
		names := make([]string, len(d.Members()))
		for i, m := range d.Members() {
			names[i] = MemberName(m) + ":" + m.Name
		}
		fmt.Fprintf(p.w, "  members %s\n", strings.Join(names, " "))
		return
	}
	members, err := t.Members(d)
	if err != nil {
		fmt.Fprintf(p.w, "  error: %v\n", err)
		return
	}
	for _, m := range members {
		fmt.Fprintf(p.w, "  %s %s\n", m.Type, m.Name)
	}
}
