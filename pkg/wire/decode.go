package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/raymyers/ralph-offload/pkg/tag"
)

type decoder struct {
	in    reader
	count int
	objs  []Value
}

// Decode reads one graph from r in a single forward pass.
func Decode(r io.Reader, order binary.ByteOrder) (Value, error) {
	d := &decoder{in: reader{r: r, order: order}}
	n, err := d.in.u16()
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	if int(n) > tag.MaxObjects {
		return nil, fmt.Errorf("count %d: %w", n, ErrMalformed)
	}
	d.count = int(n)
	root, err := d.record()
	if err != nil {
		return nil, err
	}
	if len(d.objs) != d.count {
		return nil, fmt.Errorf("count %d, decoded %d records: %w", d.count, len(d.objs), ErrMalformed)
	}
	return root, nil
}

func (d *decoder) add(v Value) error {
	if len(d.objs) >= d.count {
		return fmt.Errorf("more than %d records: %w", d.count, ErrMalformed)
	}
	d.objs = append(d.objs, v)
	return nil
}

func (d *decoder) record() (Value, error) {
	b, err := d.in.u8()
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	return d.recordFrom(b)
}

// recordFrom decodes a record whose first byte b has been consumed.
func (d *decoder) recordFrom(b byte) (Value, error) {
	if k := tag.Kind(b); k >= tag.IntArray && k <= tag.DoubleArray {
		return d.array(k)
	}
	if b != 0 {
		return nil, fmt.Errorf("record byte 0x%02x: %w", b, ErrUnknownTag)
	}
	t, err := d.in.u16()
	if err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}
	switch {
	case uint32(t) == tag.Null:
		return nil, nil
	case tag.IsBackRef(t):
		i := tag.BackRefIndex(t)
		if i >= len(d.objs) {
			return nil, fmt.Errorf("back-reference to %d of %d: %w", i, len(d.objs), ErrMalformed)
		}
		return d.objs[i], nil
	case uint32(t) == tag.Custom:
		return d.raw()
	case tag.IsClass(uint32(t)):
		return d.object(t)
	}
	return nil, fmt.Errorf("tag %d: %w", t, ErrUnknownTag)
}

func (d *decoder) array(k tag.Kind) (Value, error) {
	a := &Array{}
	if err := d.add(a); err != nil {
		return nil, err
	}
	var proto any
	switch k {
	case tag.IntArray:
		proto = []int32(nil)
	case tag.LongArray:
		proto = []int64(nil)
	case tag.FloatArray:
		proto = []float32(nil)
	default:
		proto = []float64(nil)
	}
	data, err := d.in.elems(proto)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k, err)
	}
	a.Data = data
	return a, nil
}

func (d *decoder) raw() (Value, error) {
	r := &Raw{}
	if err := d.add(r); err != nil {
		return nil, err
	}
	h, err := d.in.u32()
	if err != nil {
		return nil, fmt.Errorf("custom header: %w", err)
	}
	r.Tag = tag.FromHeader(h)
	if r.Data, err = d.in.bytes(); err != nil {
		return nil, fmt.Errorf("custom record: %w", err)
	}
	return r, nil
}

func (d *decoder) object(t uint16) (Value, error) {
	size, err := d.in.u16()
	if err != nil {
		return nil, fmt.Errorf("size of tag %d: %w", t, err)
	}
	o := &Object{Tag: t}
	if err := d.add(o); err != nil {
		return nil, err
	}
	words := 1
	for words < int(size) {
		b, err := d.in.u8()
		if err != nil {
			return nil, fmt.Errorf("field of tag %d: %w", t, err)
		}
		var f Value
		switch tag.Kind(b) {
		case tag.Int:
			v, err := d.in.u32()
			if err != nil {
				return nil, err
			}
			f = int32(v)
		case tag.Float:
			v, err := d.in.u32()
			if err != nil {
				return nil, err
			}
			f = math.Float32frombits(v)
		case tag.Long:
			v, err := d.in.u64()
			if err != nil {
				return nil, err
			}
			f = int64(v)
		case tag.Double:
			v, err := d.in.u64()
			if err != nil {
				return nil, err
			}
			f = math.Float64frombits(v)
		default:
			if f, err = d.recordFrom(b); err != nil {
				return nil, err
			}
		}
		if wide(f) {
			words += words & 1
			words += 2
		} else {
			words++
		}
		o.Fields = append(o.Fields, f)
	}
	if words != int(size) {
		return nil, fmt.Errorf("object of tag %d: fields span %d words, header says %d: %w", t, words, size, ErrMalformed)
	}
	return o, nil
}
