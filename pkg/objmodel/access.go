package objmodel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/raymyers/ralph-offload/pkg/ctypes"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
	"github.com/raymyers/ralph-offload/pkg/tag"
)

var (
	// ErrFinalField is returned for a store into a final field of a value
	// class outside its constructor.
	ErrFinalField = errors.New("assignment to final field of value class")
	// ErrNoInstance is returned for allocation of a type that has no
	// instances of its own.
	ErrNoInstance = errors.New("type cannot be instantiated")
)

// FieldRef is a lowered field access. A static field is a global named
// Name; an instance field is reached from its object with Op then Name.
type FieldRef struct {
	Field  *srctypes.Field
	Static bool
	Name   string
	Op     string
	Type   ctypes.Type
	Value  bool
}

// Field resolves a field read or written through a value of static type c.
// Blobs, strings and foreign types expose no fields.
func (t *Table) Field(c *srctypes.Class, name string) (FieldRef, error) {
	d, err := t.Add(c)
	if err != nil {
		return FieldRef{}, err
	}
	switch d.Kind {
	case Blob, String, Pointer:
		return FieldRef{}, fmt.Errorf("field %s of %s %s: %w", name, d.Kind, c.Name, srctypes.ErrNotFound)
	case Union:
		if a := d.Alias(); a != nil {
			d = a
		} else {
			return FieldRef{}, fmt.Errorf("field %s read through union %s: %w", name, c.Name, ErrBadCast)
		}
	}
	op := "->"
	if d.Value {
		op = "."
	}
	if d.Kind == MultiArray && name == "data" {
		return FieldRef{Name: dataField(d), Op: op, Type: ctypes.Pointer(nil)}, nil
	}
	f, err := d.Class.LookupField(name)
	if err != nil {
		return FieldRef{}, err
	}
	ct, err := t.CType(f.Type)
	if err != nil {
		return FieldRef{}, err
	}
	if f.Static {
		g, err := t.StaticName(f)
		if err != nil {
			return FieldRef{}, err
		}
		return FieldRef{Field: f, Static: true, Name: g, Type: ct}, nil
	}
	return FieldRef{Field: f, Name: FieldName(f), Op: op, Type: ct, Value: d.Value}, nil
}

// CheckStore rejects stores into final fields of value classes.
func (r FieldRef) CheckStore() error {
	if r.Value && r.Field != nil && r.Field.Final {
		return fmt.Errorf("%s.%s: %w", r.Field.Declaring.Name, r.Field.Name, ErrFinalField)
	}
	return nil
}

// Alloc is the plan for instantiating a class.
type Alloc struct {
	Class  *Descriptor
	Value  bool
	Header uint32
	Malloc string
}

// Instantiate plans the allocation of a new c.
func (t *Table) Instantiate(c *srctypes.Class) (Alloc, error) {
	d, err := t.Add(c)
	if err != nil {
		return Alloc{}, err
	}
	if !c.IsConcrete() || d.Kind == Pointer || d.Kind == String || d.Kind == Union {
		return Alloc{}, fmt.Errorf("new %s: %w", c.Name, ErrNoInstance)
	}
	return Alloc{Class: d, Value: d.Value, Header: d.Header(), Malloc: t.Malloc}, nil
}

// Text renders a reference allocation through temporary tmp. ctor, when
// not empty, is the constructor call run on the new object before it is
// yielded.
func (a Alloc) Text(tmp, ctor string) string {
	st := "struct " + a.Class.Name
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%s=(%s*)%s(1, sizeof(%s)), %s->%s=%d", tmp, st, a.Malloc, st, tmp, HeaderField, a.Header)
	if ctor != "" {
		sb.WriteString(", ")
		sb.WriteString(ctor)
	}
	fmt.Fprintf(&sb, ", %s)", tmp)
	return sb.String()
}

// HeaderInit is the statement that stamps the header of a value-class
// instance held in self.
func (a Alloc) HeaderInit(self string) string {
	return fmt.Sprintf("%s.%s = %d", self, HeaderField, a.Header)
}

// ElemOffset is the number of elements the array header occupies in an
// array whose elements have type elem.
func ElemOffset(elem srctypes.Type) int {
	switch elem.Kind() {
	case srctypes.KBoolean, srctypes.KByte:
		return 8
	case srctypes.KChar, srctypes.KShort:
		return 4
	case srctypes.KInt, srctypes.KFloat:
		return 2
	}
	return 1
}

// NewArrayPlan is the plan for allocating an array with new_array.
type NewArrayPlan struct {
	Type ctypes.Type // the array's native type
	Code tag.Kind
	Size string // element size expression
}

// NewArray plans the allocation of an array of elem. Arrays of value
// classes have no layout.
func (t *Table) NewArray(elem srctypes.Type) (NewArrayPlan, error) {
	if c, ok := elem.(*srctypes.Class); ok {
		if _, err := t.Add(c); err != nil {
			return NewArrayPlan{}, err
		}
		d, err := t.resolve(c)
		if err != nil {
			return NewArrayPlan{}, err
		}
		if d.Value {
			return NewArrayPlan{}, fmt.Errorf("array of value class %s: %w", c.Name, ErrNoInstance)
		}
	}
	d, err := t.AddArray(elem)
	if err != nil {
		return NewArrayPlan{}, err
	}
	at, err := t.CType(srctypes.ArrayOf(elem))
	if err != nil {
		return NewArrayPlan{}, err
	}
	ec := at.(ctypes.Tpointer).Elem
	size := fmt.Sprintf("sizeof(%s)", ec)
	if n := ctypes.Sizeof(ec); n > 0 && srctypes.IsPrimitive(elem) {
		size = fmt.Sprintf("%d", n)
	}
	return NewArrayPlan{Type: at, Code: tag.Kind(d.Tag >> 16), Size: size}, nil
}

// StringLiteral renders a string constant as a static string object: the
// header word and length as octal escapes in the given byte order, then
// the UTF-8 bytes.
func StringLiteral(s string, order binary.ByteOrder) string {
	var sb strings.Builder
	sb.WriteString("((struct " + StringStruct + "*)\"")
	var word [4]byte
	order.PutUint32(word[:], tag.Header(tag.String))
	escapeBytes(&sb, word[:])
	order.PutUint32(word[:], uint32(len(s)))
	escapeBytes(&sb, word[:])
	sb.WriteString("\" \"")
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '"' || c == '\'' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&sb, "\\%03o", c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteString("\")")
	return sb.String()
}

func escapeBytes(sb *strings.Builder, b []byte) {
	for _, c := range b {
		fmt.Fprintf(sb, "\\%03o", c)
	}
}

// MultiArrayInfo names the parts of a multi-dimensional array class.
type MultiArrayInfo struct {
	Elem  string   // native element type
	Data  string   // member holding the element pointer
	Sizes []string // members holding each dimension, outermost first
}

// MultiArray describes the storage of a multi-dimensional array class.
func (t *Table) MultiArray(c *srctypes.Class) (*MultiArrayInfo, error) {
	d, err := t.Add(c)
	if err != nil {
		return nil, err
	}
	if d.Kind != MultiArray {
		return nil, fmt.Errorf("%s is not a multi-dimensional array class", c.Name)
	}
	info := &MultiArrayInfo{Elem: c.ArrayElem, Data: dataField(d)}
	if info.Elem == "" {
		info.Elem = "double"
	}
	for _, s := range c.ArraySizes {
		f, err := c.LookupField(s)
		if err != nil {
			return nil, err
		}
		info.Sizes = append(info.Sizes, FieldName(f))
	}
	if len(info.Sizes) == 0 {
		return nil, fmt.Errorf("multi-dimensional array class %s declares no sizes", c.Name)
	}
	return info, nil
}

// Index renders the element address expression for receiver recv, using op
// to reach its members, and one index expression per dimension.
func (m *MultiArrayInfo) Index(recv, op string, idx []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "((%s*)%s%s%s)[", m.Elem, recv, op, m.Data)
	// row-major: ((i0) * s1 + (i1)) * s2 + (i2) ...
	expr := "(" + idx[0] + ")"
	for k := 1; k < len(idx); k++ {
		if k > 1 {
			expr = "(" + expr + ")"
		}
		expr = fmt.Sprintf("%s * %s%s%s + (%s)", expr, recv, op, m.Sizes[k], idx[k])
	}
	sb.WriteString(expr)
	sb.WriteString("]")
	return sb.String()
}

// Alloc renders the data allocation for receiver recv.
func (m *MultiArrayInfo) Alloc(malloc, recv, op string) string {
	dims := make([]string, len(m.Sizes))
	for i, s := range m.Sizes {
		dims[i] = recv + op + s
	}
	return fmt.Sprintf("%s%s%s = %s(%s, sizeof(%s))", recv, op, m.Data, malloc, strings.Join(dims, " * "), m.Elem)
}

// BlobBody renders the pointer to the body of the blob held in recv.
func BlobBody(recv string) string {
	return fmt.Sprintf("((void*)(%s)->body)", recv)
}
