// Package srctypes is the type system of the managed source program: scalar
// kinds, classes and interfaces with their fields and methods, arrays, and
// the per-class and per-method metadata that steers lowering.
package srctypes

import (
	"errors"
	"strings"
)

// ErrNotFound is wrapped by every failed type, field or method lookup.
var ErrNotFound = errors.New("not found")

// Kind classifies a source type
type Kind int

const (
	KVoid Kind = iota
	KBoolean
	KByte
	KChar
	KShort
	KInt
	KLong
	KFloat
	KDouble
	KNull
	KClass
	KArray
)

var kindNames = []string{"void", "boolean", "byte", "char", "short", "int", "long", "float", "double", "null", "class", "array"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "?"
}

// Type is the interface for all source types
type Type interface {
	implType()
	Kind() Kind
	String() string
}

// Primitive is a scalar type or void.
type Primitive struct {
	K Kind
}

// NullType is the type of the null literal.
type NullType struct{}

// ArrayType is a one-dimensional array; nested arrays have array elements.
type ArrayType struct {
	Elem Type
}

func (Primitive) implType() {}
func (NullType) implType()  {}
func (ArrayType) implType() {}
func (*Class) implType()    {}

func (p Primitive) Kind() Kind { return p.K }
func (NullType) Kind() Kind    { return KNull }
func (ArrayType) Kind() Kind   { return KArray }

func (p Primitive) String() string { return p.K.String() }
func (NullType) String() string    { return "null" }
func (a ArrayType) String() string { return a.Elem.String() + "[]" }

var (
	Void    Type = Primitive{KVoid}
	Boolean Type = Primitive{KBoolean}
	Byte    Type = Primitive{KByte}
	Char    Type = Primitive{KChar}
	Short   Type = Primitive{KShort}
	Int     Type = Primitive{KInt}
	Long    Type = Primitive{KLong}
	Float   Type = Primitive{KFloat}
	Double  Type = Primitive{KDouble}
	Null    Type = NullType{}
)

// ArrayOf returns the array type with the given element type.
func ArrayOf(elem Type) Type { return ArrayType{Elem: elem} }

var primitivesByName = map[string]Type{
	"void": Void, "boolean": Boolean, "bool": Boolean, "byte": Byte, "char": Char,
	"short": Short, "int": Int, "long": Long, "float": Float, "double": Double,
}

// ParsePrimitive returns the primitive type spelled by name.
func ParsePrimitive(name string) (Type, bool) {
	t, ok := primitivesByName[name]
	return t, ok
}

// IsPrimitive reports whether t is a scalar (void excluded).
func IsPrimitive(t Type) bool {
	k := t.Kind()
	return k >= KBoolean && k <= KDouble
}

// IsReference reports whether t is a class, array or null type.
func IsReference(t Type) bool {
	k := t.Kind()
	return k == KClass || k == KArray || k == KNull
}

// IsWide reports whether t occupies two 32-bit words.
func IsWide(t Type) bool {
	k := t.Kind()
	return k == KLong || k == KDouble
}

// IsIntegral reports whether values of t are stored as a 32-bit int.
func IsIntegral(t Type) bool {
	switch t.Kind() {
	case KBoolean, KByte, KChar, KShort, KInt:
		return true
	}
	return false
}

// Equal reports type identity. Classes compare by pointer.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch ta := a.(type) {
	case Primitive:
		tb, ok := b.(Primitive)
		return ok && ta.K == tb.K
	case NullType:
		_, ok := b.(NullType)
		return ok
	case ArrayType:
		tb, ok := b.(ArrayType)
		return ok && Equal(ta.Elem, tb.Elem)
	case *Class:
		tb, ok := b.(*Class)
		return ok && ta == tb
	}
	return false
}

// AssignableTo reports whether a value of type from may be stored where to
// is expected without a reference cast.
func AssignableTo(from, to Type) bool {
	if Equal(from, to) {
		return true
	}
	if from.Kind() == KNull {
		return IsReference(to)
	}
	fc, ok1 := from.(*Class)
	tc, ok2 := to.(*Class)
	if ok1 && ok2 {
		return fc.IsSubtypeOf(tc)
	}
	return false
}

// Sanitize turns a source name into a native identifier fragment.
func Sanitize(name string) string {
	r := strings.NewReplacer(".", "_", "$", "_", "<", "_", ">", "_", "-", "_")
	return r.Replace(name)
}
