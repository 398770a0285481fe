// Package compiler runs the pass pipeline over a program manifest: it
// traces the functions reachable from the entry point and the callbacks,
// seals the object model, binds call sites, inlines, tunnels jumps and
// hands the result to the C generator.
package compiler

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/ralph-offload/pkg/cgen"
	"github.com/raymyers/ralph-offload/pkg/config"
	"github.com/raymyers/ralph-offload/pkg/dispatch"
	"github.com/raymyers/ralph-offload/pkg/inline"
	"github.com/raymyers/ralph-offload/pkg/ir"
	"github.com/raymyers/ralph-offload/pkg/logger"
	"github.com/raymyers/ralph-offload/pkg/manifest"
	"github.com/raymyers/ralph-offload/pkg/objmodel"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

var (
	// ErrNoEntry is returned when there is neither an entry point nor a
	// callback to compile.
	ErrNoEntry = errors.New("no entry point")
	// ErrNotTraced is returned when a call site binds a method that
	// tracing never reached.
	ErrNotTraced = errors.New("method not traced")
)

// Dumps are the writers that receive intermediate results. A nil writer
// disables its dump.
type Dumps struct {
	// IR receives every function after tracing.
	IR io.Writer
	// Inline receives every function after inlining and binding.
	Inline io.Writer
	// Layout receives the sealed descriptor table.
	Layout io.Writer
}

// Compiler holds the state of one compilation.
type Compiler struct {
	m     *manifest.Manifest
	cfg   config.Config
	table *objmodel.Table
	entry *srctypes.Method
	dumps Dumps

	funcs    map[*srctypes.Method]*ir.Callable
	order    []*ir.Callable
	queue    []*ir.Callable
	virtuals []virtualSite
	used     map[*srctypes.Class]struct{}
	remotes  map[*srctypes.Method]int
	errs     []error
}

// New prepares a compilation of m. A non-empty entry overrides the
// manifest's entry point.
func New(m *manifest.Manifest, cfg config.Config, entry string, dumps Dumps) (*Compiler, error) {
	c := &Compiler{
		m:       m,
		cfg:     cfg,
		table:   objmodel.NewTable(m.Program),
		entry:   m.Entry,
		dumps:   dumps,
		funcs:   make(map[*srctypes.Method]*ir.Callable),
		used:    make(map[*srctypes.Class]struct{}),
		remotes: make(map[*srctypes.Method]int),
	}
	c.table.Malloc = cfg.Malloc
	if entry != "" {
		e, err := m.Program.Method(entry)
		if err != nil {
			return nil, fmt.Errorf("entry: %w", err)
		}
		c.entry = e
	}
	if c.entry == nil && len(m.Callbacks) == 0 {
		return nil, ErrNoEntry
	}
	// selectors follow declaration order across the whole program
	for _, k := range m.Program.Classes() {
		for _, meth := range k.Methods {
			if meth.Meta.Remote {
				c.remotes[meth] = len(c.remotes)
			}
		}
	}
	return c, nil
}

// Table returns the descriptor table of the compilation.
func (c *Compiler) Table() *objmodel.Table { return c.table }

// Build runs every pass up to code generation and returns the program to
// emit.
func (c *Compiler) Build() (*cgen.Program, error) {
	var roots []*srctypes.Method
	if c.entry != nil {
		roots = append(roots, c.entry)
	}
	roots = append(roots, c.m.Callbacks...)
	if err := c.trace(roots); err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	if err := errors.Join(c.errs...); err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	logger.Pass("trace", "functions", len(c.order), "types", len(c.table.All()))
	if c.dumps.IR != nil {
		c.print(c.dumps.IR)
	}

	c.table.Seal()
	logger.Pass("seal", "types", len(c.table.All()))
	if c.dumps.Layout != nil {
		objmodel.NewPrinter(c.dumps.Layout).PrintTable(c.table)
	}

	synth := dispatch.New(c.table, c.resolve)
	if err := c.bind(synth); err != nil {
		return nil, err
	}

	in := inline.New(inline.Options{Enabled: c.cfg.Inline, ObjectInlining: c.cfg.ObjectInlining})
	for _, f := range c.order {
		in.Function(f)
	}
	logger.Pass("inline", "sites", in.Sites)

	// inlined bodies may expose calls whose receiver is now known
	if err := c.bind(synth); err != nil {
		return nil, err
	}
	logger.Pass("dispatch", "dispatchers", len(synth.Dispatchers), "direct", synth.Direct)
	if c.dumps.Inline != nil {
		c.print(c.dumps.Inline)
	}

	if c.cfg.TunnelJumps {
		n := 0
		for _, f := range c.order {
			if f.Kind == ir.Ordinary {
				n += ir.Tunnel(f)
			}
		}
		logger.Pass("tunnel", "jumps", n)
	}

	p := &cgen.Program{
		Functions:   c.order,
		Dispatchers: synth.Dispatchers,
		Globals:     c.m.Globals,
	}
	for _, cb := range c.m.Callbacks {
		p.Callbacks = append(p.Callbacks, c.funcs[cb])
	}
	if c.entry != nil {
		p.Entry = c.funcs[c.entry]
	}
	return p, nil
}

func (c *Compiler) bind(synth *dispatch.Synthesizer) error {
	for _, f := range c.order {
		if f.Kind != ir.Ordinary {
			continue
		}
		if err := synth.Function(f); err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
	}
	return nil
}

// resolve returns the function traced for m.
func (c *Compiler) resolve(m *srctypes.Method) (*ir.Callable, error) {
	if f, ok := c.funcs[m]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%s: %w", m, ErrNotTraced)
}

// Emit writes the C translation unit for p.
func (c *Compiler) Emit(w io.Writer, p *cgen.Program) error {
	order, err := c.cfg.Order()
	if err != nil {
		return err
	}
	var sb strings.Builder
	if err := cgen.New(c.table, order).Program(&sb, p); err != nil {
		return err
	}
	logger.Pass("codegen", "bytes", sb.Len())
	_, err = io.WriteString(w, sb.String())
	return err
}

// Compile runs the whole pipeline and writes C text to w.
func Compile(w io.Writer, m *manifest.Manifest, cfg config.Config, entry string, dumps Dumps) error {
	c, err := New(m, cfg, entry, dumps)
	if err != nil {
		return err
	}
	p, err := c.Build()
	if err != nil {
		return err
	}
	return c.Emit(w, p)
}

func (c *Compiler) print(w io.Writer) {
	pr := ir.NewPrinter(w)
	for _, f := range c.order {
		pr.PrintCallable(f)
	}
}
