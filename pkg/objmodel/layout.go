package objmodel

import (
	"fmt"

	"github.com/raymyers/ralph-offload/pkg/ctypes"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
	"github.com/raymyers/ralph-offload/pkg/tag"
)

// ScalarKind returns the wire kind of a primitive source type.
func ScalarKind(t srctypes.Type) tag.Kind {
	switch t.Kind() {
	case srctypes.KBoolean:
		return tag.Bool
	case srctypes.KByte:
		return tag.Byte
	case srctypes.KChar:
		return tag.Char
	case srctypes.KShort:
		return tag.Short
	case srctypes.KInt:
		return tag.Int
	case srctypes.KLong:
		return tag.Long
	case srctypes.KFloat:
		return tag.Float
	case srctypes.KDouble:
		return tag.Double
	}
	panic(fmt.Sprintf("objmodel: %s has no scalar kind", t))
}

// Primitive returns the native spelling of a primitive source type.
func Primitive(t srctypes.Type) ctypes.Type {
	switch t.Kind() {
	case srctypes.KVoid:
		return ctypes.Void()
	case srctypes.KBoolean:
		return ctypes.Bool()
	case srctypes.KByte:
		return ctypes.Byte()
	case srctypes.KChar:
		return ctypes.Char()
	case srctypes.KShort:
		return ctypes.Short()
	case srctypes.KInt:
		return ctypes.Int()
	case srctypes.KLong:
		return ctypes.Long()
	case srctypes.KFloat:
		return ctypes.Float()
	case srctypes.KDouble:
		return ctypes.Double()
	}
	panic(fmt.Sprintf("objmodel: %s is not primitive", t))
}

// CType returns the native type a value of typ is held in: the primitive
// spelling, a pointer to the lowered struct for reference types, the struct
// or union itself for value types, a pointer to the element type for
// arrays, and void* for foreign and null types.
func (t *Table) CType(typ srctypes.Type) (ctypes.Type, error) {
	switch typ.Kind() {
	case srctypes.KNull:
		return ctypes.Pointer(nil), nil
	case srctypes.KArray:
		elem, err := t.CType(typ.(srctypes.ArrayType).Elem)
		if err != nil {
			return nil, err
		}
		return ctypes.Pointer(elem), nil
	case srctypes.KClass:
	default:
		return Primitive(typ), nil
	}
	d, err := t.Lookup(typ)
	if err != nil {
		return nil, err
	}
	return d.CType(), nil
}

// CType is the native type of a class value described by d.
func (d *Descriptor) CType() ctypes.Type {
	switch d.Kind {
	case Pointer, Array:
		return ctypes.Pointer(nil)
	case Union:
		if a := d.Alias(); a != nil {
			return a.CType()
		}
		return ctypes.Tunion{Name: d.Name}
	}
	s := ctypes.Tstruct{Name: d.Name}
	if d.Value {
		return s
	}
	return ctypes.Pointer(s)
}

// TypeName is the native spelling of typ.
func (t *Table) TypeName(typ srctypes.Type) (string, error) {
	ct, err := t.CType(typ)
	if err != nil {
		return "", err
	}
	return ct.String(), nil
}

// FieldName is the struct member holding field f. The declaring class's
// depth keeps shadowed fields distinct.
func FieldName(f *srctypes.Field) string {
	return fmt.Sprintf("%s_%d", f.Name, f.Declaring.Depth())
}

// StaticName is the global holding static field f.
func (t *Table) StaticName(f *srctypes.Field) (string, error) {
	d, err := t.Add(f.Declaring)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s", d.Name, FieldName(f)), nil
}

// Members returns the lowered instance fields of a struct-like layout.
func (t *Table) Members(d *Descriptor) ([]Member, error) {
	if d.Class == nil {
		return nil, nil
	}
	var out []Member
	switch d.Kind {
	case Struct, MultiArray:
	default:
		return nil, nil
	}
	if d.Kind == MultiArray {
		out = append(out, Member{Name: dataField(d), Type: ctypes.Pointer(nil)})
	}
	for _, f := range d.Class.InstanceFields() {
		if d.Kind == MultiArray && f.Name == "data" {
			continue
		}
		ct, err := t.CType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s of %s: %w", f.Name, d.Class.Name, err)
		}
		out = append(out, Member{Field: f, Name: FieldName(f), Type: ct})
	}
	return out, nil
}

func dataField(d *Descriptor) string {
	return fmt.Sprintf("data_%d", d.Class.Depth())
}

func headerField() ctypes.Field {
	return ctypes.Field{Name: HeaderField, Type: ctypes.Int()}
}

// Layout returns the struct or union definition of d, or nil when d has no
// layout code of its own.
func (t *Table) Layout(d *Descriptor) (ctypes.Type, error) {
	switch d.Kind {
	case Pointer, Array:
		return nil, nil
	case String:
		return ctypes.Tstruct{Name: StringStruct, Fields: []ctypes.Field{
			headerField(),
			{Name: "length", Type: ctypes.Int()},
			{Name: "body", Type: ctypes.Array(ctypes.Tint{Size: ctypes.I8}, 1)},
		}}, nil
	case Blob:
		size := d.Class.BlobSize
		if size == "" {
			size = "0"
		}
		return ctypes.Tstruct{Name: d.Name, Fields: []ctypes.Field{
			headerField(),
			{Name: "flag", Type: ctypes.Int()},
			{Name: "body", Type: ctypes.ArrayExpr(ctypes.Double(),
				fmt.Sprintf("((%s)+sizeof(double)-1)/sizeof(double)", size))},
		}}, nil
	case Union:
		if d.Alias() != nil {
			return nil, nil
		}
		fields := []ctypes.Field{headerField()}
		for _, m := range d.Members() {
			fields = append(fields, ctypes.Field{Name: MemberName(m), Type: ctypes.Tstruct{Name: m.Name}})
		}
		return ctypes.Tunion{Name: d.Name, Fields: fields}, nil
	}
	members, err := t.Members(d)
	if err != nil {
		return nil, err
	}
	fields := []ctypes.Field{headerField()}
	for _, m := range members {
		fields = append(fields, ctypes.Field{Name: m.Name, Type: m.Type})
	}
	return ctypes.Tstruct{Name: d.Name, Fields: fields}, nil
}

// ArrayLayout is the header shared by every array.
func ArrayLayout() ctypes.Type {
	return ctypes.Tstruct{Name: ArrayStruct, Fields: []ctypes.Field{
		headerField(),
		{Name: "size_", Type: ctypes.Int()},
	}}
}

// Sorted returns the descriptors that emit layout code, ordered so that a
// type embedded by value is defined before the types embedding it. The
// string and array headers belong to the runtime preamble and are not
// included.
func (t *Table) Sorted() ([]*Descriptor, error) {
	var out []*Descriptor
	state := make(map[*Descriptor]int) // 1 visiting, 2 done
	var visit func(d *Descriptor) error
	visit = func(d *Descriptor) error {
		switch state[d] {
		case 1:
			return fmt.Errorf("type %s contains itself by value", d.Name)
		case 2:
			return nil
		}
		state[d] = 1
		deps, err := t.valueDeps(d)
		if err != nil {
			return err
		}
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[d] = 2
		out = append(out, d)
		return nil
	}
	for _, d := range t.all {
		if !d.Instances || d.Kind == Pointer || d.Kind == Array || d.Kind == String {
			continue
		}
		if d.Kind == Union && d.Alias() != nil {
			continue
		}
		if err := visit(d); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *Table) valueDeps(d *Descriptor) ([]*Descriptor, error) {
	if d.Kind == Union {
		return d.Members(), nil
	}
	if d.Kind != Struct || d.Class == nil {
		return nil, nil
	}
	var deps []*Descriptor
	for _, f := range d.Class.InstanceFields() {
		c, ok := f.Type.(*srctypes.Class)
		if !ok {
			continue
		}
		fd, err := t.Add(c)
		if err != nil {
			return nil, err
		}
		if a := fd.Alias(); a != nil {
			fd = a
		}
		if fd.Value {
			deps = append(deps, fd)
		}
	}
	return deps, nil
}
