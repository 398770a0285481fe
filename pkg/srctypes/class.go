package srctypes

import (
	"fmt"
	"strings"
)

// Layout is the lowering hint attached to a class.
type Layout int

const (
	LayoutDefault    Layout = iota // pointer to struct
	LayoutValue                    // passed by value; interfaces become tagged unions
	LayoutBlob                     // opaque native handle with a sized body
	LayoutMultiArray               // bulk numeric storage behind a raw pointer
	LayoutForeign                  // erased to void*
)

var layoutNames = []string{"default", "value", "blob", "multiarray", "foreign"}

func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return "?"
}

// ParseLayout maps a manifest spelling to a Layout.
func ParseLayout(s string) (Layout, error) {
	if s == "" {
		return LayoutDefault, nil
	}
	for i, n := range layoutNames {
		if n == s {
			return Layout(i), nil
		}
	}
	return 0, fmt.Errorf("unknown layout %q", s)
}

// Class is a class or interface of the source program.
type Class struct {
	Name       string
	Super      *Class
	Interfaces []*Class
	Fields     []*Field
	Methods    []*Method
	Interface  bool
	Abstract   bool
	Final      bool
	Layout     Layout

	// BlobSize is the native expression giving the body size of a blob.
	BlobSize string
	// ArrayElem and ArraySizes describe a multi-dimensional array class:
	// the native element type and the int fields holding each dimension.
	ArrayElem  string
	ArraySizes []string
}

// Field is a field declared by a class.
type Field struct {
	Name      string
	Type      Type
	Static    bool
	Final     bool
	Declaring *Class
}

func (*Class) Kind() Kind { return KClass }

func (c *Class) String() string { return c.Name }

// SimpleName drops the package qualifier.
func (c *Class) SimpleName() string {
	if i := strings.LastIndex(c.Name, "."); i >= 0 {
		return c.Name[i+1:]
	}
	return c.Name
}

// Depth is the number of superclass links between c and the root class.
func (c *Class) Depth() int {
	d := 0
	for s := c.Super; s != nil; s = s.Super {
		d++
	}
	return d
}

// IsConcrete reports whether the class can be instantiated.
func (c *Class) IsConcrete() bool {
	return !c.Interface && !c.Abstract
}

// IsSubtypeOf reports whether c is d or inherits from it through a
// superclass or interface chain.
func (c *Class) IsSubtypeOf(d *Class) bool {
	if c == nil || d == nil {
		return false
	}
	if c == d {
		return true
	}
	if c.Super != nil && c.Super.IsSubtypeOf(d) {
		return true
	}
	for _, i := range c.Interfaces {
		if i.IsSubtypeOf(d) {
			return true
		}
	}
	return false
}

// AddField declares a field on c.
func (c *Class) AddField(f *Field) *Field {
	f.Declaring = c
	c.Fields = append(c.Fields, f)
	return f
}

// AddMethod declares a method on c.
func (c *Class) AddMethod(m *Method) *Method {
	m.Declaring = c
	c.Methods = append(c.Methods, m)
	return m
}

// LookupField finds a field by name, walking up the superclass chain.
func (c *Class) LookupField(name string) (*Field, error) {
	for k := c; k != nil; k = k.Super {
		for _, f := range k.Fields {
			if f.Name == name {
				return f, nil
			}
		}
	}
	return nil, fmt.Errorf("field %s.%s: %w", c.Name, name, ErrNotFound)
}

// InstanceFields returns the non-static fields of c and its superclasses,
// supertypes first, each in declaration order.
func (c *Class) InstanceFields() []*Field {
	var chain []*Class
	for k := c; k != nil; k = k.Super {
		chain = append(chain, k)
	}
	var out []*Field
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].Fields {
			if !f.Static {
				out = append(out, f)
			}
		}
	}
	return out
}

// StaticFields returns the static fields declared directly by c.
func (c *Class) StaticFields() []*Field {
	var out []*Field
	for _, f := range c.Fields {
		if f.Static {
			out = append(out, f)
		}
	}
	return out
}

// DeclaredMethod finds a method declared directly by c with the given
// signature, or nil.
func (c *Class) DeclaredMethod(sig string) *Method {
	for _, m := range c.Methods {
		if m.Signature() == sig {
			return m
		}
	}
	return nil
}

// Implementation returns the method that runs when sig is invoked on an
// instance of c: the nearest declaration up the superclass chain, then any
// declaration on an interface.
func (c *Class) Implementation(sig string) (*Method, error) {
	for k := c; k != nil; k = k.Super {
		if m := k.DeclaredMethod(sig); m != nil && !m.Abstract {
			return m, nil
		}
	}
	if m := c.interfaceMethod(sig); m != nil && !m.Abstract {
		return m, nil
	}
	return nil, fmt.Errorf("body of %s.%s: %w", c.Name, sig, ErrNotFound)
}

func (c *Class) interfaceMethod(sig string) *Method {
	for k := c; k != nil; k = k.Super {
		for _, i := range k.Interfaces {
			if m := i.DeclaredMethod(sig); m != nil {
				return m
			}
			if m := i.interfaceMethod(sig); m != nil {
				return m
			}
		}
	}
	return nil
}

// LookupMethod finds a declaration of name with the given parameter types
// visible from c, abstract or not.
func (c *Class) LookupMethod(name string, params []Type) (*Method, error) {
	sig := signature(name, params)
	for k := c; k != nil; k = k.Super {
		if m := k.DeclaredMethod(sig); m != nil {
			return m, nil
		}
	}
	if m := c.interfaceMethod(sig); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("method %s.%s: %w", c.Name, sig, ErrNotFound)
}
