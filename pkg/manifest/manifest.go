// Package manifest reads a program description from YAML: its classes with
// their fields and method metadata, the objects known at compile time, the
// entry point and callbacks, and the decompiled body of every method in a
// compact tree form.
//
// A manifest looks like
//
//	entry: demo.Main.run
//	callbacks: [demo.Main.tick]
//	classes:
//	  - name: demo.Main
//	    methods:
//	      - name: run
//	        static: true
//	        params: [int]
//	        returns: int
//	        expr: {add: [v0, 1]}
//	objects:
//	  - name: origin
//	    class: demo.Point
//	    fields: {x: 0, y: 0}
//
// See body.go for the statement and expression forms.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-offload/pkg/ir"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

// ErrNoBody is returned for a method whose body the manifest does not give.
var ErrNoBody = errors.New("no body")

type fileSpec struct {
	Entry     string       `yaml:"entry"`
	Callbacks []string     `yaml:"callbacks"`
	Classes   []classSpec  `yaml:"classes"`
	Objects   []objectSpec `yaml:"objects"`
}

type classSpec struct {
	Name       string       `yaml:"name"`
	Extends    string       `yaml:"extends"`
	Implements []string     `yaml:"implements"`
	Interface  bool         `yaml:"interface"`
	Abstract   bool         `yaml:"abstract"`
	Final      bool         `yaml:"final"`
	Layout     string       `yaml:"layout"`
	BlobSize   string       `yaml:"blob_size"`
	Elem       string       `yaml:"elem"`
	Sizes      []string     `yaml:"sizes"`
	Fields     []fieldSpec  `yaml:"fields"`
	Methods    []methodSpec `yaml:"methods"`
}

type fieldSpec struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Static bool   `yaml:"static"`
	Final  bool   `yaml:"final"`
}

type methodSpec struct {
	Name          string            `yaml:"name"`
	Params        []string          `yaml:"params"`
	Returns       string            `yaml:"returns"`
	Static        bool              `yaml:"static"`
	Final         bool              `yaml:"final"`
	Abstract      bool              `yaml:"abstract"`
	Constructor   bool              `yaml:"constructor"`
	Inline        string            `yaml:"inline"`
	Native        string            `yaml:"native"`
	Foreign       string            `yaml:"foreign"`
	Remote        bool              `yaml:"remote"`
	Intrinsic     string            `yaml:"intrinsic"`
	InlineObjects bool              `yaml:"inline_objects"`
	Locals        map[string]string `yaml:"locals"`
	Body          yaml.Node         `yaml:"body"`
	Expr          yaml.Node         `yaml:"expr"`
}

type objectSpec struct {
	Name   string    `yaml:"name"`
	Class  string    `yaml:"class"`
	Fields yaml.Node `yaml:"fields"`
}

// source is the undecoded body of one method.
type source struct {
	locals map[string]string
	body   *yaml.Node
	expr   *yaml.Node
}

// Manifest is a loaded program description.
type Manifest struct {
	Program *srctypes.Program
	// Globals are the objects known at compile time, in manifest order.
	Globals   []*ir.Global
	Entry     *srctypes.Method
	Callbacks []*srctypes.Method

	bodies  map[*srctypes.Method]source
	objects map[string]*ir.Global
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a manifest.
func Parse(data []byte) (*Manifest, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	m := &Manifest{
		Program: srctypes.NewProgram(),
		bodies:  make(map[*srctypes.Method]source),
		objects: make(map[string]*ir.Global),
	}
	if err := m.classes(spec.Classes); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if err := m.globals(spec.Objects); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if spec.Entry != "" {
		e, err := m.Program.Method(spec.Entry)
		if err != nil {
			return nil, fmt.Errorf("manifest: entry: %w", err)
		}
		m.Entry = e
	}
	for _, name := range spec.Callbacks {
		cb, err := m.Program.Method(name)
		if err != nil {
			return nil, fmt.Errorf("manifest: callback: %w", err)
		}
		m.Callbacks = append(m.Callbacks, cb)
	}
	return m, nil
}

// classes defines every class first so that types may refer to classes
// declared later in the file.
func (m *Manifest) classes(specs []classSpec) error {
	p := m.Program
	defined := make([]*srctypes.Class, len(specs))
	for i, cs := range specs {
		if cs.Name == "" {
			return fmt.Errorf("class %d has no name", i)
		}
		layout, err := srctypes.ParseLayout(cs.Layout)
		if err != nil {
			return fmt.Errorf("class %s: %w", cs.Name, err)
		}
		c := &srctypes.Class{
			Name:       cs.Name,
			Interface:  cs.Interface,
			Abstract:   cs.Abstract,
			Final:      cs.Final,
			Layout:     layout,
			BlobSize:   cs.BlobSize,
			ArrayElem:  cs.Elem,
			ArraySizes: cs.Sizes,
		}
		if err := p.Define(c); err != nil {
			return err
		}
		defined[i] = c
	}
	for i, cs := range specs {
		c := defined[i]
		if cs.Extends != "" {
			sup, err := p.Class(cs.Extends)
			if err != nil {
				return fmt.Errorf("class %s: %w", c.Name, err)
			}
			c.Super = sup
		}
		for _, name := range cs.Implements {
			iface, err := p.Class(name)
			if err != nil {
				return fmt.Errorf("class %s: %w", c.Name, err)
			}
			c.Interfaces = append(c.Interfaces, iface)
		}
		for _, fs := range cs.Fields {
			t, err := p.Type(fs.Type)
			if err != nil {
				return fmt.Errorf("field %s.%s: %w", c.Name, fs.Name, err)
			}
			c.AddField(&srctypes.Field{Name: fs.Name, Type: t, Static: fs.Static, Final: fs.Final})
		}
		for _, ms := range cs.Methods {
			if err := m.method(c, ms); err != nil {
				return fmt.Errorf("method %s.%s: %w", c.Name, ms.Name, err)
			}
		}
	}
	return nil
}

func (m *Manifest) method(c *srctypes.Class, ms methodSpec) error {
	pref, err := srctypes.ParseInlinePref(ms.Inline)
	if err != nil {
		return err
	}
	meth := &srctypes.Method{
		Name:        ms.Name,
		Static:      ms.Static,
		Final:       ms.Final,
		Abstract:    ms.Abstract || c.Interface,
		Constructor: ms.Constructor,
		Meta: srctypes.Metadata{
			Inline:        pref,
			Native:        ms.Native,
			Foreign:       ms.Foreign,
			Remote:        ms.Remote,
			Intrinsic:     ms.Intrinsic,
			InlineObjects: ms.InlineObjects,
		},
	}
	if meth.Constructor && meth.Name == "" {
		meth.Name = "<init>"
	}
	for _, s := range ms.Params {
		t, err := m.Program.Type(s)
		if err != nil {
			return err
		}
		meth.Params = append(meth.Params, t)
	}
	if ms.Returns != "" {
		t, err := m.Program.Type(ms.Returns)
		if err != nil {
			return err
		}
		meth.Return = t
	}
	hasBody := ms.Body.Kind != 0 || ms.Expr.Kind != 0
	if hasBody {
		meth.Abstract = false
		src := source{locals: ms.Locals}
		if ms.Body.Kind != 0 {
			src.body = &ms.Body
		}
		if ms.Expr.Kind != 0 {
			src.expr = &ms.Expr
		}
		m.bodies[meth] = src
	}
	c.AddMethod(meth)
	return nil
}

func (m *Manifest) globals(specs []objectSpec) error {
	// names first, so that field values may refer to any object
	for _, spec := range specs {
		c, err := m.Program.Class(spec.Class)
		if err != nil {
			return fmt.Errorf("object %s: %w", spec.Name, err)
		}
		if _, dup := m.objects[spec.Name]; dup {
			return fmt.Errorf("object %s defined twice", spec.Name)
		}
		g := &ir.Global{Name: spec.Name, Class: c, Fields: make(map[string]ir.Node)}
		m.objects[spec.Name] = g
		m.Globals = append(m.Globals, g)
	}
	for i := range specs {
		g := m.Globals[i]
		fields := &specs[i].Fields
		if fields.Kind == 0 {
			continue
		}
		if fields.Kind != yaml.MappingNode {
			return errAt(fields, "fields of object %s must be a mapping", g.Name)
		}
		for k := 0; k+1 < len(fields.Content); k += 2 {
			name := fields.Content[k].Value
			f, err := g.Class.LookupField(name)
			if err != nil {
				return fmt.Errorf("object %s: %w", g.Name, err)
			}
			v, err := m.constant(fields.Content[k+1], f.Type)
			if err != nil {
				return fmt.Errorf("object %s field %s: %w", g.Name, name, err)
			}
			g.Fields[name] = v
		}
	}
	return nil
}

// Global returns the compile-time object with the given name.
func (m *Manifest) Global(name string) (*ir.Global, error) {
	if g, ok := m.objects[name]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("object %s: %w", name, srctypes.ErrNotFound)
}

// HasBody reports whether the manifest gives a body for meth.
func (m *Manifest) HasBody(meth *srctypes.Method) bool {
	_, ok := m.bodies[meth]
	return ok
}

func errAt(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

// splitMethod splits "pkg.Class.name" into the class and method names.
func splitMethod(qualified string) (string, string, bool) {
	i := strings.LastIndex(qualified, ".")
	if i <= 0 || i == len(qualified)-1 {
		return "", "", false
	}
	return qualified[:i], qualified[i+1:], true
}
