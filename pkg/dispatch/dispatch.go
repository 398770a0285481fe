// Package dispatch binds call sites to callables. Calls whose receiver type
// is statically known go straight to the implementation; the others go
// through a synthesized dispatcher that selects the implementation from the
// receiver's type tag. A dispatcher whose cases all bind one implementation
// is never emitted: its call sites call that implementation directly.
package dispatch

import (
	"fmt"

	"github.com/raymyers/ralph-offload/pkg/ir"
	"github.com/raymyers/ralph-offload/pkg/objmodel"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

// Resolver returns the callable compiled for a method.
type Resolver func(m *srctypes.Method) (*ir.Callable, error)

type key struct {
	recv *objmodel.Descriptor
	sig  string
}

// Synthesizer creates at most one dispatcher per receiver type and
// signature.
type Synthesizer struct {
	table   *objmodel.Table
	resolve Resolver
	cache   map[key]*ir.Callable

	// Dispatchers lists the emitted dispatchers in creation order.
	Dispatchers []*ir.Callable
	// Direct counts call sites bound without a dispatcher.
	Direct int
}

// New returns a synthesizer over a sealed table.
func New(t *objmodel.Table, resolve Resolver) *Synthesizer {
	if !t.Sealed() {
		panic("dispatch: descriptor table is not sealed")
	}
	return &Synthesizer{table: t, resolve: resolve, cache: make(map[key]*ir.Callable)}
}

// Function binds every unbound call reachable from f, including calls in
// inlined bodies, and rebinds dispatched calls whose receiver type has
// since become known.
func (s *Synthesizer) Function(f *ir.Callable) error {
	for _, c := range ir.Calls(f) {
		if err := s.Call(c); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

// Call binds one call site. A call already bound to a dispatcher is bound
// again when its receiver now has a known type, as happens to the calls of
// an inlined body once its parameters carry the caller's arguments.
func (s *Synthesizer) Call(c *ir.Call) error {
	if c.Callee != nil && !narrowed(c) {
		return nil
	}
	if t := c.ActualTargetType(); t != nil {
		impl, err := s.direct(c, t)
		if err != nil {
			return err
		}
		c.Callee = impl
		s.Direct++
		return nil
	}
	d, err := s.table.Lookup(receiverClass(c))
	if err != nil {
		return err
	}
	f, err := s.Dispatcher(d, c.Method)
	if err != nil {
		return err
	}
	if impl := f.Single(); impl != nil {
		c.Callee = impl
		s.Direct++
		return nil
	}
	c.Callee = f
	return nil
}

func narrowed(c *ir.Call) bool {
	return c.Callee.Kind == ir.Dispatcher && c.ActualTargetType() != nil
}

func (s *Synthesizer) direct(c *ir.Call, t *srctypes.Class) (*ir.Callable, error) {
	m := c.Method
	if c.Kind != ir.CallStatic && c.Kind != ir.CallSpecial {
		impl, err := t.Implementation(m.Signature())
		if err != nil {
			return nil, err
		}
		m = impl
	}
	return s.resolve(m)
}

// receiverClass is the static type of the call's receiver.
func receiverClass(c *ir.Call) *srctypes.Class {
	if c.Target != nil {
		if k, ok := c.Target.Type().(*srctypes.Class); ok {
			return k
		}
	}
	return c.Method.Declaring
}

// Dispatcher returns the dispatcher for m on receivers of static type d,
// with one case per instantiated subtype in tag order. Dispatchers with
// more than one distinct implementation are recorded on d.
func (s *Synthesizer) Dispatcher(d *objmodel.Descriptor, m *srctypes.Method) (*ir.Callable, error) {
	k := key{d, m.Signature()}
	if f, ok := s.cache[k]; ok {
		return f, nil
	}
	f := &ir.Callable{
		Kind:   ir.Dispatcher,
		Name:   fmt.Sprintf("%s_%s_dispatch%d", d.Name, srctypes.Sanitize(m.Name), len(d.Dispatchers)),
		Method: m,
		Return: m.ReturnType(),
	}
	f.Params = append(f.Params, ir.NewVar(0, f.NewID(), d.Class))
	for i, p := range m.Params {
		f.Params = append(f.Params, ir.NewVar(i+1, f.NewID(), p))
	}
	for _, sub := range s.table.Instantiated(d) {
		im, err := sub.Class.Implementation(m.Signature())
		if err != nil {
			return nil, fmt.Errorf("dispatch %s on %s: %w", m, sub.Class.Name, err)
		}
		impl, err := s.resolve(im)
		if err != nil {
			return nil, err
		}
		f.AddCase(sub.Class, impl)
	}
	s.cache[k] = f
	if f.Single() == nil {
		d.Dispatchers = append(d.Dispatchers, f)
		s.Dispatchers = append(s.Dispatchers, f)
	}
	return f, nil
}
