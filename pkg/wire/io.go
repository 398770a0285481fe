package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

type sink interface {
	io.Writer
	io.ByteWriter
}

// writer puts fixed-width values in the stream's byte order. Write errors
// of the buffered sinks it is used with are sticky and surface when the
// sink is flushed.
type writer struct {
	w     sink
	order binary.ByteOrder
	b     [8]byte
}

func (w *writer) u8(v byte) { w.w.WriteByte(v) }

func (w *writer) u16(v uint16) {
	w.order.PutUint16(w.b[:2], v)
	w.w.Write(w.b[:2])
}

func (w *writer) u32(v uint32) {
	w.order.PutUint32(w.b[:4], v)
	w.w.Write(w.b[:4])
}

func (w *writer) u64(v uint64) {
	w.order.PutUint64(w.b[:8], v)
	w.w.Write(w.b[:8])
}

func (w *writer) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.w.Write(b)
}

// elems writes a length-prefixed primitive slice.
func (w *writer) elems(data any) error {
	switch d := data.(type) {
	case []bool:
		w.u32(uint32(len(d)))
		for _, v := range d {
			if v {
				w.u8(1)
			} else {
				w.u8(0)
			}
		}
	case []int8:
		w.u32(uint32(len(d)))
		for _, v := range d {
			w.u8(byte(v))
		}
	case []uint16:
		w.u32(uint32(len(d)))
		for _, v := range d {
			w.u16(v)
		}
	case []int16:
		w.u32(uint32(len(d)))
		for _, v := range d {
			w.u16(uint16(v))
		}
	case []int32:
		w.u32(uint32(len(d)))
		for _, v := range d {
			w.u32(uint32(v))
		}
	case []int64:
		w.u32(uint32(len(d)))
		for _, v := range d {
			w.u64(uint64(v))
		}
	case []float32:
		w.u32(uint32(len(d)))
		for _, v := range d {
			w.u32(math.Float32bits(v))
		}
	case []float64:
		w.u32(uint32(len(d)))
		for _, v := range d {
			w.u64(math.Float64bits(v))
		}
	default:
		return fmt.Errorf("slice %T: %w", data, ErrUnsupported)
	}
	return nil
}

// maxLen bounds decoded lengths so that corrupt input cannot force huge
// allocations.
const maxLen = 1 << 26

type reader struct {
	r     io.Reader
	order binary.ByteOrder
	b     [8]byte
}

func (r *reader) fill(n int) ([]byte, error) {
	if _, err := io.ReadFull(r.r, r.b[:n]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return r.b[:n], nil
}

func (r *reader) u8() (byte, error) {
	b, err := r.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.fill(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

func (r *reader) length() (int, error) {
	n, err := r.u32()
	if err != nil {
		return 0, fmt.Errorf("length: %w", err)
	}
	if int32(n) < 0 || n > maxLen {
		return 0, fmt.Errorf("length %d: %w", int32(n), ErrMalformed)
	}
	return int(n), nil
}

func (r *reader) bytes() ([]byte, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return b, nil
}

// elems reads a length-prefixed slice shaped like proto.
func (r *reader) elems(proto any) (any, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	switch proto.(type) {
	case []bool:
		out := make([]bool, n)
		for i := range out {
			v, err := r.u8()
			if err != nil {
				return nil, err
			}
			out[i] = v != 0
		}
		return out, nil
	case []int8:
		out := make([]int8, n)
		for i := range out {
			v, err := r.u8()
			if err != nil {
				return nil, err
			}
			out[i] = int8(v)
		}
		return out, nil
	case []uint16:
		out := make([]uint16, n)
		for i := range out {
			v, err := r.u16()
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case []int16:
		out := make([]int16, n)
		for i := range out {
			v, err := r.u16()
			if err != nil {
				return nil, err
			}
			out[i] = int16(v)
		}
		return out, nil
	case []int32:
		out := make([]int32, n)
		for i := range out {
			v, err := r.u32()
			if err != nil {
				return nil, err
			}
			out[i] = int32(v)
		}
		return out, nil
	case []int64:
		out := make([]int64, n)
		for i := range out {
			v, err := r.u64()
			if err != nil {
				return nil, err
			}
			out[i] = int64(v)
		}
		return out, nil
	case []float32:
		out := make([]float32, n)
		for i := range out {
			v, err := r.u32()
			if err != nil {
				return nil, err
			}
			out[i] = math.Float32frombits(v)
		}
		return out, nil
	case []float64:
		out := make([]float64, n)
		for i := range out {
			v, err := r.u64()
			if err != nil {
				return nil, err
			}
			out[i] = math.Float64frombits(v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("slice %T: %w", proto, ErrUnsupported)
}
