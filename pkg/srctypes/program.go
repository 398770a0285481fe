package srctypes

import (
	"fmt"
	"strings"
)

// Names of the two classes every program starts with.
const (
	ObjectName = "Object"
	StringName = "String"
)

// Program is the registry of all classes known to one compilation.
type Program struct {
	Object *Class
	String *Class

	classes map[string]*Class
	order   []*Class
}

// NewProgram returns a program holding the root class and the built-in
// string class.
func NewProgram() *Program {
	p := &Program{classes: make(map[string]*Class)}
	p.Object = &Class{Name: ObjectName}
	p.String = &Class{Name: StringName, Super: p.Object, Final: true}
	p.register(p.Object)
	p.register(p.String)
	return p
}

func (p *Program) register(c *Class) {
	p.classes[c.Name] = c
	p.order = append(p.order, c)
}

// Define adds a class. A class without a superclass inherits from the root.
func (p *Program) Define(c *Class) error {
	if _, dup := p.classes[c.Name]; dup {
		return fmt.Errorf("class %s defined twice", c.Name)
	}
	if c.Super == nil && c != p.Object {
		c.Super = p.Object
	}
	p.register(c)
	return nil
}

// Class returns the class with the given name.
func (p *Program) Class(name string) (*Class, error) {
	if c, ok := p.classes[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("class %s: %w", name, ErrNotFound)
}

// Classes returns all classes in definition order.
func (p *Program) Classes() []*Class {
	return p.order
}

// Type parses a type spelling: a primitive name, a class name, or either
// followed by one or more "[]".
func (p *Program) Type(spelling string) (Type, error) {
	s := strings.TrimSpace(spelling)
	dims := 0
	for strings.HasSuffix(s, "[]") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "[]"))
		dims++
	}
	var t Type
	if prim, ok := ParsePrimitive(s); ok {
		t = prim
	} else {
		c, err := p.Class(s)
		if err != nil {
			return nil, err
		}
		t = c
	}
	for ; dims > 0; dims-- {
		t = ArrayOf(t)
	}
	return t, nil
}

// Method resolves "pkg.Class.name" to the first method of that name declared
// by the class.
func (p *Program) Method(qualified string) (*Method, error) {
	i := strings.LastIndex(qualified, ".")
	if i < 0 {
		return nil, fmt.Errorf("method %s: expected Class.method", qualified)
	}
	c, err := p.Class(qualified[:i])
	if err != nil {
		return nil, err
	}
	name := qualified[i+1:]
	for _, m := range c.Methods {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("method %s: %w", qualified, ErrNotFound)
}
