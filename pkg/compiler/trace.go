package compiler

import (
	"fmt"

	"github.com/raymyers/ralph-offload/pkg/ir"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

// virtualSite is a dispatched call whose implementations depend on which
// classes end up instantiated.
type virtualSite struct {
	recv   *srctypes.Class
	method *srctypes.Method
}

// trace discovers every function reachable from the roots: the methods
// called directly, the constructors of instantiated classes, and every
// implementation a virtual call may reach given the classes instantiated so
// far. It runs to a fixed point, since compiling an implementation may
// instantiate further classes.
func (c *Compiler) trace(roots []*srctypes.Method) error {
	for _, g := range c.m.Globals {
		if err := c.instance(g.Class); err != nil {
			return err
		}
		for _, v := range g.Fields {
			c.use(v.Type())
		}
	}
	for _, m := range roots {
		if _, err := c.function(m); err != nil {
			return err
		}
	}
	for {
		for len(c.queue) > 0 {
			f := c.queue[0]
			c.queue = c.queue[1:]
			if err := c.scan(f); err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
		}
		if err := c.implementations(); err != nil {
			return err
		}
		if len(c.queue) == 0 {
			return nil
		}
	}
}

// implementations compiles the implementation of every virtual site for
// every instantiated receiver class.
func (c *Compiler) implementations() error {
	for _, site := range c.virtuals {
		d, err := c.table.Add(site.recv)
		if err != nil {
			return err
		}
		for _, sub := range c.table.Instantiated(d) {
			impl, err := sub.Class.Implementation(site.method.Signature())
			if err != nil {
				return fmt.Errorf("%s on %s: %w", site.method, sub.Class.Name, err)
			}
			if _, err := c.function(impl); err != nil {
				return err
			}
		}
	}
	return nil
}

// scan records what f's body instantiates, calls and refers to.
func (c *Compiler) scan(f *ir.Callable) error {
	for _, p := range f.Params {
		c.use(p.Type())
	}
	for _, v := range f.Locals {
		c.use(v.Type())
	}
	if f.Self != nil {
		c.use(f.Self.Type())
	}
	c.use(f.Return)
	if f.Body == nil {
		return nil
	}
	var err error
	ir.Inspect(f.Body, func(n ir.Node) bool {
		if err != nil {
			return false
		}
		c.use(n.Type())
		switch n := n.(type) {
		case *ir.New:
			err = c.instance(n.Class)
		case *ir.ObjectConst:
			err = c.instance(n.Global.Class)
		case *ir.NewArray:
			_, err = c.table.AddArray(n.Elem)
		case *ir.GetField:
			c.use(n.Class)
		case *ir.Cast:
			c.use(n.X.Type())
		case *ir.Call:
			err = c.call(n)
		}
		return err == nil
	})
	return err
}

func (c *Compiler) call(n *ir.Call) error {
	for _, t := range n.Method.ParamTypes() {
		c.use(t)
	}
	switch n.Kind {
	case ir.CallStatic, ir.CallSpecial:
		_, err := c.function(n.Method)
		return err
	}
	if t := n.ActualTargetType(); t != nil {
		impl, err := t.Implementation(n.Method.Signature())
		if err != nil {
			return err
		}
		_, err = c.function(impl)
		return err
	}
	recv := n.Method.Declaring
	if n.Target != nil {
		if k, ok := n.Target.Type().(*srctypes.Class); ok {
			recv = k
		}
	}
	c.virtuals = append(c.virtuals, virtualSite{recv: recv, method: n.Method})
	return nil
}

// instance marks c as instantiated, along with the classes of its fields so
// that their layouts exist.
func (c *Compiler) instance(k *srctypes.Class) error {
	if err := c.table.MarkInstance(k); err != nil {
		return err
	}
	for _, f := range k.InstanceFields() {
		c.use(f.Type)
	}
	return nil
}

// use gives every class and array type a descriptor before the table is
// sealed.
func (c *Compiler) use(t srctypes.Type) {
	switch t := t.(type) {
	case *srctypes.Class:
		if _, seen := c.used[t]; seen {
			return
		}
		c.used[t] = struct{}{}
		if _, err := c.table.Add(t); err != nil {
			c.errs = append(c.errs, err)
		}
	case srctypes.ArrayType:
		c.use(t.Elem)
		if _, err := c.table.AddArray(t.Elem); err != nil {
			c.errs = append(c.errs, err)
		}
	}
}
