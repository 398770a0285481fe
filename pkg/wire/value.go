// Package wire implements the object-graph protocol spoken between the
// managed runtime and a compiled native task, and the callback channel
// layered on the same stream.
//
// A graph is a uint16 record count followed by the root record. Records
// are written depth first; every object, array and raw record takes the
// next arrival index, and a later reference to it is a back-reference
// carrying that index. A count of zero stands for a null root.
package wire

import (
	"errors"
	"fmt"

	"github.com/raymyers/ralph-offload/pkg/tag"
)

var (
	// ErrMalformed is wrapped by decode failures on inconsistent input.
	ErrMalformed = errors.New("malformed stream")
	// ErrUnknownTag is wrapped when a record starts with an unassigned tag.
	ErrUnknownTag = errors.New("unknown tag")
	// ErrUnknownSelector is wrapped when a callback selector has no handler.
	ErrUnknownSelector = errors.New("unknown callback selector")
	// ErrUnsupported is wrapped when a value has no wire form.
	ErrUnsupported = errors.New("unsupported value")
	// ErrTooManyObjects is returned for graphs over tag.MaxObjects records.
	ErrTooManyObjects = errors.New("too many objects")
)

// Value is one graph value: nil, int32, int64, float32, float64, *Object,
// *Array or *Raw. Pointer identity is sharing: the same *Object reached
// twice is sent once.
type Value any

// Object is an instance of a class: its tag and its instance fields in
// layout order. Fields hold int32, int64, float32, float64 or references.
type Object struct {
	Tag    uint16
	Fields []Value
}

// Array is a primitive array. Data is one of []int32, []int64, []float32
// or []float64.
type Array struct {
	Data any
}

// Raw is a custom record: a caller-defined tag and an opaque payload.
type Raw struct {
	Tag  uint32
	Data []byte
}

// Kind returns the array kind code of a.
func (a *Array) Kind() (tag.Kind, error) {
	switch a.Data.(type) {
	case []int32:
		return tag.IntArray, nil
	case []int64:
		return tag.LongArray, nil
	case []float32:
		return tag.FloatArray, nil
	case []float64:
		return tag.DoubleArray, nil
	}
	return 0, fmt.Errorf("array of %T: %w", a.Data, ErrUnsupported)
}

// Len is the element count of a.
func (a *Array) Len() int {
	switch d := a.Data.(type) {
	case []int32:
		return len(d)
	case []int64:
		return len(d)
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	}
	return 0
}

// wide reports whether a field value occupies an 8-byte slot.
func wide(v Value) bool {
	switch v.(type) {
	case int32, float32:
		return false
	}
	return true
}

// objectSize is the native size of an object in 32-bit words: the header,
// one word per int or float, two per long, double or reference, each
// 8-byte slot aligned to an even word.
func objectSize(fields []Value) (uint16, error) {
	words := 1
	for _, f := range fields {
		if wide(f) {
			words += words & 1
			words += 2
		} else {
			words++
		}
	}
	if words > 0xffff {
		return 0, fmt.Errorf("object of %d words: %w", words, ErrUnsupported)
	}
	return uint16(words), nil
}
