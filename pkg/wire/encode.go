package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/raymyers/ralph-offload/pkg/tag"
)

type encoder struct {
	buf   bytes.Buffer
	out   writer
	index map[Value]int
}

// Encode writes the graph reachable from root to w. Root must be nil or a
// reference: *Object, *Array or *Raw.
func Encode(w io.Writer, root Value, order binary.ByteOrder) error {
	e := &encoder{index: make(map[Value]int)}
	e.out = writer{w: &e.buf, order: order}
	if !isNull(root) {
		if !isRef(root) {
			return fmt.Errorf("root %T: %w", root, ErrUnsupported)
		}
		if err := e.record(root); err != nil {
			return err
		}
	}
	var hdr [2]byte
	order.PutUint16(hdr[:], uint16(len(e.index)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(e.buf.Bytes())
	return err
}

func isRef(v Value) bool {
	switch v.(type) {
	case *Object, *Array, *Raw:
		return true
	}
	return false
}

func isNull(v Value) bool {
	switch v := v.(type) {
	case nil:
		return true
	case *Object:
		return v == nil
	case *Array:
		return v == nil
	case *Raw:
		return v == nil
	}
	return false
}

// ref writes a null or back-reference record.
func (e *encoder) ref(t uint16) {
	e.out.u8(0)
	e.out.u16(t)
}

func (e *encoder) record(v Value) error {
	if isNull(v) {
		e.ref(uint16(tag.Null))
		return nil
	}
	if !isRef(v) {
		return fmt.Errorf("reference field holding %T: %w", v, ErrUnsupported)
	}
	if i, ok := e.index[v]; ok {
		e.ref(tag.BackRef(i))
		return nil
	}
	if len(e.index) >= tag.MaxObjects {
		return ErrTooManyObjects
	}
	e.index[v] = len(e.index)

	switch v := v.(type) {
	case *Object:
		return e.object(v)
	case *Array:
		k, err := v.Kind()
		if err != nil {
			return err
		}
		e.out.u8(byte(k))
		return e.out.elems(v.Data)
	case *Raw:
		e.ref(uint16(tag.Custom))
		e.out.u32(tag.Header(v.Tag))
		e.out.bytes(v.Data)
	}
	return nil
}

func (e *encoder) object(o *Object) error {
	if !tag.IsClass(uint32(o.Tag)) {
		return fmt.Errorf("object tag %d: %w", o.Tag, ErrUnknownTag)
	}
	size, err := objectSize(o.Fields)
	if err != nil {
		return err
	}
	e.ref(o.Tag)
	e.out.u16(size)
	for i, f := range o.Fields {
		switch f := f.(type) {
		case int32:
			e.out.u8(byte(tag.Int))
			e.out.u32(uint32(f))
		case int64:
			e.out.u8(byte(tag.Long))
			e.out.u64(uint64(f))
		case float32:
			e.out.u8(byte(tag.Float))
			e.out.u32(math.Float32bits(f))
		case float64:
			e.out.u8(byte(tag.Double))
			e.out.u64(math.Float64bits(f))
		default:
			if err := e.record(f); err != nil {
				return fmt.Errorf("field %d of tag %d: %w", i, o.Tag, err)
			}
		}
	}
	return nil
}
