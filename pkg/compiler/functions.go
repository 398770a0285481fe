package compiler

import (
	"errors"
	"fmt"

	"github.com/raymyers/ralph-offload/pkg/ir"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

var (
	// ErrAbstract is returned when an abstract method is called directly.
	ErrAbstract = errors.New("abstract method has no body")
	// ErrRemoteInstance is returned for a remote method that takes a
	// receiver.
	ErrRemoteInstance = errors.New("remote methods must be static")
)

// function returns the callable compiled for m, creating it on first use.
// The metadata of m selects the kind: native text, a foreign symbol, a
// remote proxy, an intrinsic, or an ordinary function built from the
// manifest body.
func (c *Compiler) function(m *srctypes.Method) (*ir.Callable, error) {
	if f, ok := c.funcs[m]; ok {
		return f, nil
	}
	f := ir.NewFunction(c.name(m), m)
	switch {
	case m.Meta.Native != "":
		f.Kind = ir.NativeBody
		f.Native = m.Meta.Native
	case m.Meta.Foreign != "":
		f.Kind = ir.ForeignSymbol
		f.Symbol = m.Meta.Foreign
	case m.Meta.Remote:
		if m.HasReceiver() {
			return nil, fmt.Errorf("%s: %w", m, ErrRemoteInstance)
		}
		f.Kind = ir.Remote
		f.Selector = c.remotes[m]
	case intrinsic(m) && !c.m.HasBody(m):
		// expanded in place; a call that cannot be expanded links against
		// an external function of this name
		f.Kind = ir.ForeignSymbol
		f.Symbol = f.Name
		c.funcs[m] = f
		return f, nil
	case m.Abstract:
		return nil, fmt.Errorf("%s: %w", m, ErrAbstract)
	default:
		if m.Constructor && m.Declaring.Layout == srctypes.LayoutValue {
			f.MakeValueCtor()
		}
		if err := c.m.Body(f); err != nil {
			return nil, err
		}
		c.queue = append(c.queue, f)
	}
	c.funcs[m] = f
	c.order = append(c.order, f)
	return f, nil
}

// name is Class_method_N, unique by the creation counter.
func (c *Compiler) name(m *srctypes.Method) string {
	method := m.Name
	if m.Constructor {
		method = "init"
	}
	simple := "static"
	if m.Declaring != nil {
		simple = m.Declaring.SimpleName()
	}
	return fmt.Sprintf("%s_%s_%d", srctypes.Sanitize(simple), srctypes.Sanitize(method), len(c.funcs))
}

func intrinsic(m *srctypes.Method) bool {
	if m.Meta.Intrinsic != "" {
		return true
	}
	return m.Declaring != nil && m.Declaring.Layout == srctypes.LayoutMultiArray
}
