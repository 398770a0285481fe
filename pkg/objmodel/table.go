// Package objmodel lowers source types to native layouts. A Table owns the
// tag space of one compilation: it assigns every reachable class and array
// type a tag, records subtypes and instances, seals value interfaces into
// tagged unions, and answers the cast, field and allocation questions the
// code generator asks.
package objmodel

import (
	"errors"
	"fmt"
	"sort"

	"github.com/raymyers/ralph-offload/pkg/ctypes"
	"github.com/raymyers/ralph-offload/pkg/ir"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
	"github.com/raymyers/ralph-offload/pkg/tag"
)

var (
	// ErrBadCast is wrapped by casts that have no correct lowering.
	ErrBadCast = errors.New("invalid cast")
	// ErrTooManyTypes is returned when a tag range is exhausted.
	ErrTooManyTypes = errors.New("too many types")
	// ErrSealed is returned when a sealed union would gain a member.
	ErrSealed = errors.New("union already sealed")
)

// LayoutKind is the native shape of a descriptor.
type LayoutKind int

const (
	Struct     LayoutKind = iota // header + flattened instance fields
	Union                        // header + one inline member per instantiated subtype
	Blob                         // header + flag + sized opaque body
	MultiArray                   // header + raw data pointer + dimension fields
	Pointer                      // foreign type erased to void*
	String                       // built-in length-prefixed string
	Array                        // array header followed by elements
)

var layoutKindNames = []string{"struct", "union", "blob", "multiarray", "pointer", "string", "array"}

func (k LayoutKind) String() string {
	if int(k) < len(layoutKindNames) {
		return layoutKindNames[k]
	}
	return "?"
}

// Native names of the built-in layouts.
const (
	HeaderField  = "header_"
	ObjectStruct = "java_object"
	StringStruct = "java_string"
	ArrayStruct  = "array_object_"
)

// Member is one lowered instance field.
type Member struct {
	Field *srctypes.Field
	Name  string
	Type  ctypes.Type
}

// Descriptor is the lowering of one source type.
type Descriptor struct {
	Source srctypes.Type
	Class  *srctypes.Class // nil for arrays
	Tag    uint32
	Kind   LayoutKind
	Name   string // struct or union tag
	Value  bool   // passed by value

	// Subtypes lists every registered proper subtype, in tag order.
	Subtypes []*Descriptor
	// Instances is set once an instance of this type or a subtype exists.
	Instances bool
	// Dispatchers synthesized for virtual calls on this type.
	Dispatchers []*ir.Callable

	members []*Descriptor // union members, valid once sealed
	sealed  bool
}

// Header returns the header word of an instance.
func (d *Descriptor) Header() uint32 {
	return tag.Header(d.Tag)
}

// Members returns the union members computed by Seal. It panics on an
// unsealed union.
func (d *Descriptor) Members() []*Descriptor {
	if d.Kind != Union {
		return nil
	}
	if !d.sealed {
		panic(fmt.Sprintf("objmodel: layout of union %s requested before Seal", d.Name))
	}
	return d.members
}

// Alias returns the single member a one-member union stands for, or nil.
func (d *Descriptor) Alias() *Descriptor {
	if d.Kind == Union && len(d.Members()) == 1 {
		return d.members[0]
	}
	return nil
}

// IsUnion reports whether d lowers to a real tagged union.
func (d *Descriptor) IsUnion() bool {
	return d.Kind == Union && len(d.Members()) >= 2
}

// MemberName is the union member holding an instance of sub.
func MemberName(sub *Descriptor) string {
	return fmt.Sprintf("t%d", sub.Tag)
}

// Table holds the descriptors of one compilation.
type Table struct {
	prog    *srctypes.Program
	byClass map[*srctypes.Class]*Descriptor
	arrays  map[string]*Descriptor
	all     []*Descriptor

	nextTag   uint32
	nextArray tag.Kind
	sealed    bool

	// Malloc is the zeroing allocator used by instantiation, called as
	// Malloc(count, size).
	Malloc string
}

// NewTable returns a table holding the built-in string and root classes.
func NewTable(prog *srctypes.Program) *Table {
	t := &Table{
		prog:      prog,
		byClass:   make(map[*srctypes.Class]*Descriptor),
		arrays:    make(map[string]*Descriptor),
		nextTag:   tag.FirstClass,
		nextArray: tag.FirstObjectArray,
		Malloc:    "calloc",
	}
	str := &Descriptor{Source: prog.String, Class: prog.String, Tag: tag.String, Kind: String, Name: StringStruct}
	t.register(prog.String, str)
	obj := &Descriptor{Source: prog.Object, Class: prog.Object, Tag: t.nextTag, Kind: Struct, Name: ObjectStruct}
	t.nextTag++
	t.register(prog.Object, obj)
	return t
}

func (t *Table) register(c *srctypes.Class, d *Descriptor) {
	t.byClass[c] = d
	t.all = append(t.all, d)
}

// Program returns the source program the table lowers.
func (t *Table) Program() *srctypes.Program { return t.prog }

// Add returns the descriptor of c, creating it and its supertypes' on
// first use. A new class registers itself as a subtype of every supertype.
func (t *Table) Add(c *srctypes.Class) (*Descriptor, error) {
	if d, ok := t.byClass[c]; ok {
		return d, nil
	}
	if c.Super != nil {
		if _, err := t.Add(c.Super); err != nil {
			return nil, err
		}
	}
	for _, i := range c.Interfaces {
		if _, err := t.Add(i); err != nil {
			return nil, err
		}
	}
	if t.nextTag > tag.LastClass {
		return nil, fmt.Errorf("class %s: %w", c.Name, ErrTooManyTypes)
	}
	d := &Descriptor{Source: c, Class: c, Tag: t.nextTag}
	t.nextTag++
	d.Name = fmt.Sprintf("%s_%d", srctypes.Sanitize(c.SimpleName()), d.Tag)
	switch c.Layout {
	case srctypes.LayoutForeign:
		d.Kind = Pointer
	case srctypes.LayoutBlob:
		d.Kind = Blob
	case srctypes.LayoutMultiArray:
		d.Kind = MultiArray
	case srctypes.LayoutValue:
		d.Value = true
		if c.IsConcrete() {
			d.Kind = Struct
		} else {
			d.Kind = Union
		}
	default:
		d.Kind = Struct
	}
	for _, sup := range t.supertypes(c) {
		if sup.Kind == Union && sup.sealed {
			return nil, fmt.Errorf("class %s implements %s: %w", c.Name, sup.Class.Name, ErrSealed)
		}
		sup.Subtypes = append(sup.Subtypes, d)
	}
	t.register(c, d)
	return d, nil
}

// supertypes returns the descriptors of every proper supertype of c.
func (t *Table) supertypes(c *srctypes.Class) []*Descriptor {
	seen := make(map[*srctypes.Class]bool)
	var out []*Descriptor
	var walk func(k *srctypes.Class)
	walk = func(k *srctypes.Class) {
		if k == nil || seen[k] {
			return
		}
		seen[k] = true
		if k != c {
			if d, ok := t.byClass[k]; ok {
				out = append(out, d)
			}
		}
		walk(k.Super)
		for _, i := range k.Interfaces {
			walk(i)
		}
	}
	walk(c)
	return out
}

// AddArray returns the descriptor of the array type with element elem.
// Primitive arrays use their fixed kind code; object arrays draw codes from
// 0x01 upward.
func (t *Table) AddArray(elem srctypes.Type) (*Descriptor, error) {
	key := elem.String()
	if d, ok := t.arrays[key]; ok {
		return d, nil
	}
	var code tag.Kind
	if srctypes.IsPrimitive(elem) {
		code = ScalarKind(elem).ArrayOf()
	} else {
		if t.nextArray > tag.LastObjectArray {
			return nil, fmt.Errorf("array of %s: %w", elem, ErrTooManyTypes)
		}
		code = t.nextArray
		t.nextArray++
	}
	if c, ok := elem.(*srctypes.Class); ok {
		if _, err := t.Add(c); err != nil {
			return nil, err
		}
	}
	d := &Descriptor{Source: srctypes.ArrayOf(elem), Tag: code.Tag(), Kind: Array, Name: ArrayStruct}
	t.arrays[key] = d
	t.all = append(t.all, d)
	return d, nil
}

// Lookup returns the descriptor of a class or array type.
func (t *Table) Lookup(typ srctypes.Type) (*Descriptor, error) {
	switch typ := typ.(type) {
	case *srctypes.Class:
		if d, ok := t.byClass[typ]; ok {
			return d, nil
		}
		return nil, fmt.Errorf("type %s: %w", typ.Name, srctypes.ErrNotFound)
	case srctypes.ArrayType:
		if d, ok := t.arrays[typ.Elem.String()]; ok {
			return d, nil
		}
	}
	return nil, fmt.Errorf("type %s: %w", typ, srctypes.ErrNotFound)
}

// MarkInstance records that instances of c exist, which makes c and all of
// its supertypes emit layout code. A sealed union cannot gain a member.
func (t *Table) MarkInstance(c *srctypes.Class) error {
	d, err := t.Add(c)
	if err != nil {
		return err
	}
	if d.Instances {
		return nil
	}
	sups := t.supertypes(c)
	if t.sealed && c.IsConcrete() {
		for _, s := range sups {
			if s.Kind == Union && !s.hasMember(d) {
				return fmt.Errorf("instance of %s for %s: %w", c.Name, s.Class.Name, ErrSealed)
			}
		}
	}
	d.Instances = true
	for _, s := range sups {
		s.Instances = true
	}
	return nil
}

func (d *Descriptor) hasMember(m *Descriptor) bool {
	for _, x := range d.members {
		if x == m {
			return true
		}
	}
	return false
}

// Seal fixes the members of every union: the concrete subtypes with
// instances, in tag order. No class may join a union afterwards.
func (t *Table) Seal() {
	for _, d := range t.all {
		sort.Slice(d.Subtypes, func(i, j int) bool { return d.Subtypes[i].Tag < d.Subtypes[j].Tag })
		if d.Kind != Union {
			continue
		}
		d.members = d.members[:0]
		for _, s := range d.Subtypes {
			if s.Instances && s.Class.IsConcrete() {
				d.members = append(d.members, s)
			}
		}
		d.sealed = true
	}
	t.sealed = true
}

// Sealed reports whether Seal has run.
func (t *Table) Sealed() bool { return t.sealed }

// Instantiated returns the concrete descriptors with instances that are d
// itself or its subtypes, in tag order.
func (t *Table) Instantiated(d *Descriptor) []*Descriptor {
	var out []*Descriptor
	if d.Class != nil && d.Class.IsConcrete() && d.Instances {
		out = append(out, d)
	}
	for _, s := range d.Subtypes {
		if s.Class.IsConcrete() && s.Instances {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// LastTag returns the highest class tag assigned so far.
func (t *Table) LastTag() uint32 { return t.nextTag - 1 }

// All returns every descriptor in creation order.
func (t *Table) All() []*Descriptor { return t.all }
