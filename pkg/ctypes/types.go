// Package ctypes describes the native C types the back end emits: the
// primitive spellings of source scalars, pointers, arrays sized by
// expressions, and the struct and union layouts of lowered classes.
package ctypes

import (
	"fmt"
	"strings"
)

// Type is the interface for all native types
type Type interface {
	implType()
	String() string
}

// Signedness selects how an integer type is spelled. Plain integers carry no
// qualifier so that "char" and "signed char" stay distinct types.
type Signedness int

const (
	Plain Signedness = iota
	Signed
	Unsigned
)

func (s Signedness) String() string {
	switch s {
	case Signed:
		return "signed"
	case Unsigned:
		return "unsigned"
	}
	return ""
}

// IntSize represents the size of integer types
type IntSize int

const (
	I8 IntSize = iota
	I16
	I32
)

func (s IntSize) String() string {
	names := []string{"i8", "i16", "i32"}
	if int(s) < len(names) {
		return names[s]
	}
	return "?"
}

// FloatSize represents the size of floating-point types
type FloatSize int

const (
	F32 FloatSize = iota
	F64
)

// Tvoid represents the void type
type Tvoid struct{}

// Tint represents char, short and int
type Tint struct {
	Size IntSize
	Sign Signedness
}

// Tlong represents the 64-bit integer type
type Tlong struct{}

// Tfloat represents float and double
type Tfloat struct {
	Size FloatSize
}

// Tpointer represents pointer types
type Tpointer struct {
	Elem Type
}

// Tarray is an array member. SizeExpr, when set, is emitted verbatim in
// place of Size.
type Tarray struct {
	Elem     Type
	Size     int64
	SizeExpr string
}

// Tstruct is a struct layout; Fields may be empty for a forward reference.
type Tstruct struct {
	Name   string
	Fields []Field
}

// Tunion is a union layout.
type Tunion struct {
	Name   string
	Fields []Field
}

// Tnamed is a type spelled by name only, such as a typedef from the
// runtime preamble.
type Tnamed struct {
	Name string
}

// Field is a struct or union member
type Field struct {
	Name string
	Type Type
}

func (Tvoid) implType()    {}
func (Tint) implType()     {}
func (Tlong) implType()    {}
func (Tfloat) implType()   {}
func (Tpointer) implType() {}
func (Tarray) implType()   {}
func (Tstruct) implType()  {}
func (Tunion) implType()   {}
func (Tnamed) implType()   {}

func (Tvoid) String() string { return "void" }

func (t Tint) String() string {
	var base string
	switch t.Size {
	case I8:
		base = "char"
	case I16:
		base = "short"
	default:
		base = "int"
	}
	if t.Sign == Plain {
		return base
	}
	return t.Sign.String() + " " + base
}

func (Tlong) String() string { return "long" }

func (t Tfloat) String() string {
	if t.Size == F32 {
		return "float"
	}
	return "double"
}

func (t Tpointer) String() string {
	if t.Elem == nil {
		return "void*"
	}
	return t.Elem.String() + "*"
}

func (t Tarray) String() string {
	return t.Elem.String() + "[" + t.sizeText() + "]"
}

func (t Tarray) sizeText() string {
	if t.SizeExpr != "" {
		return t.SizeExpr
	}
	if t.Size < 0 {
		return ""
	}
	return fmt.Sprintf("%d", t.Size)
}

func (t Tstruct) String() string { return "struct " + t.Name }

func (t Tunion) String() string { return "union " + t.Name }

func (t Tnamed) String() string { return t.Name }

// Constructors for the spellings of source scalars.

// Void returns the void type
func Void() Type { return Tvoid{} }

// Bool is the native type of a source boolean.
func Bool() Type { return Tint{Size: I8, Sign: Plain} }

// Byte is the native type of a source byte.
func Byte() Type { return Tint{Size: I8, Sign: Signed} }

// Char is the native type of a source 16-bit character.
func Char() Type { return Tint{Size: I16, Sign: Unsigned} }

// Short is the native type of a source short.
func Short() Type { return Tint{Size: I16, Sign: Signed} }

// Int returns the 32-bit int type
func Int() Type { return Tint{Size: I32, Sign: Plain} }

// Long returns the 64-bit integer type
func Long() Type { return Tlong{} }

// Float returns float
func Float() Type { return Tfloat{Size: F32} }

// Double returns double
func Double() Type { return Tfloat{Size: F64} }

// Pointer returns a pointer to elem; a nil elem means void*.
func Pointer(elem Type) Type { return Tpointer{Elem: elem} }

// Array returns a fixed-size array type
func Array(elem Type, size int64) Type { return Tarray{Elem: elem, Size: size} }

// ArrayExpr returns an array whose length is a C expression.
func ArrayExpr(elem Type, expr string) Type { return Tarray{Elem: elem, SizeExpr: expr} }

// Sizeof returns the byte size of a scalar or pointer type, or -1 when the
// size depends on the target layout of an aggregate.
func Sizeof(t Type) int64 {
	switch t := t.(type) {
	case Tint:
		switch t.Size {
		case I8:
			return 1
		case I16:
			return 2
		}
		return 4
	case Tlong:
		return 8
	case Tfloat:
		if t.Size == F32 {
			return 4
		}
		return 8
	case Tpointer:
		return 8
	}
	return -1
}

// Decl renders a declaration of name with type t.
func Decl(t Type, name string) string {
	if arr, ok := t.(Tarray); ok {
		return Decl(arr.Elem, name) + "[" + arr.sizeText() + "]"
	}
	return t.String() + " " + name
}

// Definition renders the full definition of a struct or union, terminated
// by ";\n". Other types have no definition.
func Definition(t Type) string {
	var (
		kind   string
		name   string
		fields []Field
	)
	switch t := t.(type) {
	case Tstruct:
		kind, name, fields = "struct", t.Name, t.Fields
	case Tunion:
		kind, name, fields = "union", t.Name, t.Fields
	default:
		panic(fmt.Sprintf("ctypes: no definition for %T", t))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s {\n", kind, name)
	for _, f := range fields {
		fmt.Fprintf(&sb, "  %s;\n", Decl(f.Type, f.Name))
	}
	sb.WriteString("};\n")
	return sb.String()
}

// Equal reports whether two types are structurally equal. Structs and
// unions compare by name.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch ta := a.(type) {
	case Tvoid:
		_, ok := b.(Tvoid)
		return ok
	case Tint:
		tb, ok := b.(Tint)
		return ok && ta == tb
	case Tlong:
		_, ok := b.(Tlong)
		return ok
	case Tfloat:
		tb, ok := b.(Tfloat)
		return ok && ta.Size == tb.Size
	case Tpointer:
		tb, ok := b.(Tpointer)
		return ok && Equal(ta.Elem, tb.Elem)
	case Tarray:
		tb, ok := b.(Tarray)
		return ok && ta.Size == tb.Size && ta.SizeExpr == tb.SizeExpr && Equal(ta.Elem, tb.Elem)
	case Tstruct:
		tb, ok := b.(Tstruct)
		return ok && ta.Name == tb.Name
	case Tunion:
		tb, ok := b.(Tunion)
		return ok && ta.Name == tb.Name
	case Tnamed:
		tb, ok := b.(Tnamed)
		return ok && ta.Name == tb.Name
	}
	return false
}
