// Package tag defines the 24-bit type-tag space shared by the object model,
// the generated native runtime and the wire protocol.
package tag

import "fmt"

// Reserved object tags.
const (
	Null       uint32 = 0
	Custom     uint32 = 1
	String     uint32 = 2
	FirstClass uint32 = 3
	LastClass  uint32 = 0x7fff
)

// ObjectIDBit marks a back-reference on the wire; the low 15 bits carry the
// arrival index.
const ObjectIDBit = 0x8000

// FlagBits is the width of the flag field at the bottom of a header word.
const FlagBits = 8

// MaxObjects is the number of distinct objects one graph may carry.
const MaxObjects = ObjectIDBit - 1

// Kind is a one-byte code for primitive arrays, scalar field kinds and
// object-array types. It occupies the high byte of a 24-bit tag.
type Kind byte

const (
	FirstObjectArray Kind = 0x01
	LastObjectArray  Kind = 0xef

	BoolArray   Kind = 0xf0
	ByteArray   Kind = 0xf1
	CharArray   Kind = 0xf2
	ShortArray  Kind = 0xf3
	IntArray    Kind = 0xf4
	LongArray   Kind = 0xf5
	FloatArray  Kind = 0xf6
	DoubleArray Kind = 0xf7

	Bool   Kind = 0xf8
	Byte   Kind = 0xf9
	Char   Kind = 0xfa
	Short  Kind = 0xfb
	Int    Kind = 0xfc
	Long   Kind = 0xfd
	Float  Kind = 0xfe
	Double Kind = 0xff
)

var kindNames = map[Kind]string{
	BoolArray: "bool[]", ByteArray: "byte[]", CharArray: "char[]", ShortArray: "short[]",
	IntArray: "int[]", LongArray: "long[]", FloatArray: "float[]", DoubleArray: "double[]",
	Bool: "bool", Byte: "byte", Char: "char", Short: "short",
	Int: "int", Long: "long", Float: "float", Double: "double",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	if k.IsObjectArray() {
		return fmt.Sprintf("object-array#%d", byte(k))
	}
	return fmt.Sprintf("kind(0x%02x)", byte(k))
}

// IsObjectArray reports whether k lies in the object-array range.
func (k Kind) IsObjectArray() bool {
	return k >= FirstObjectArray && k <= LastObjectArray
}

// IsPrimitiveArray reports whether k is one of the eight primitive array codes.
func (k Kind) IsPrimitiveArray() bool {
	return k >= BoolArray && k <= DoubleArray
}

// IsScalar reports whether k is a boxed scalar kind.
func (k Kind) IsScalar() bool {
	return k >= Bool
}

// ArrayOf returns the array code whose elements have scalar kind k.
func (k Kind) ArrayOf() Kind {
	if !k.IsScalar() {
		panic(fmt.Sprintf("tag: no array kind for %v", k))
	}
	return k - (Bool - BoolArray)
}

// ElemKind returns the scalar kind stored in a primitive array of kind k.
func (k Kind) ElemKind() Kind {
	if !k.IsPrimitiveArray() {
		panic(fmt.Sprintf("tag: %v is not a primitive array", k))
	}
	return k + (Bool - BoolArray)
}

// Tag returns the 24-bit type tag of an array kind.
func (k Kind) Tag() uint32 {
	return uint32(k) << 16
}

// Header packs a type tag into a header word with all flags clear.
func Header(t uint32) uint32 {
	return t << FlagBits
}

// FromHeader extracts the type tag from a header word.
func FromHeader(h uint32) uint32 {
	return h >> FlagBits
}

// IsClass reports whether t is an assignable object tag.
func IsClass(t uint32) bool {
	return t >= FirstClass && t <= LastClass
}

// BackRef encodes an arrival index as a back-reference tag.
func BackRef(index int) uint16 {
	if index < 0 || index > MaxObjects {
		panic(fmt.Sprintf("tag: arrival index %d out of range", index))
	}
	return uint16(index) | ObjectIDBit
}

// IsBackRef reports whether a wire tag is a back-reference.
func IsBackRef(v uint16) bool {
	return v&ObjectIDBit != 0
}

// BackRefIndex returns the arrival index carried by a back-reference.
func BackRefIndex(v uint16) int {
	return int(v &^ ObjectIDBit)
}
