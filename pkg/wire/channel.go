package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Kind is the type of a value passed on the callback channel.
type Kind int

const (
	Void Kind = iota
	Bool
	Byte
	Char
	Short
	Int
	Long
	Float
	Double
	BoolArray
	ByteArray
	CharArray
	ShortArray
	IntArray
	LongArray
	FloatArray
	DoubleArray
	String
	Graph // an object graph as written by Encode
)

var kindNames = []string{
	"void", "bool", "byte", "char", "short", "int", "long", "float", "double",
	"bool[]", "byte[]", "char[]", "short[]", "int[]", "long[]", "float[]", "double[]",
	"string", "graph",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "?"
}

// ParseKind maps a type spelling to a channel kind.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown channel kind %q", s)
}

// arrayProto is the Go slice type carrying each array kind.
var arrayProto = map[Kind]any{
	BoolArray:   []bool(nil),
	ByteArray:   []int8(nil),
	CharArray:   []uint16(nil),
	ShortArray:  []int16(nil),
	IntArray:    []int32(nil),
	LongArray:   []int64(nil),
	FloatArray:  []float32(nil),
	DoubleArray: []float64(nil),
}

// Handler runs one callback: it receives arguments decoded per Params and
// returns a result encoded per Result.
type Handler struct {
	Params []Kind
	Result Kind
	Func   func(args []any) (any, error)
}

// Conn is one end of the stream between the managed runtime and a native
// task. Either end may call into the other: a call writes a false flag,
// the selector and the arguments, then serves the peer's nested calls
// until a true flag announces the result.
type Conn struct {
	in       reader
	out      writer
	bw       *bufio.Writer
	handlers map[int32]Handler
}

// NewConn returns a connection reading r and writing w.
func NewConn(r io.Reader, w io.Writer, order binary.ByteOrder) *Conn {
	bw := bufio.NewWriter(w)
	return &Conn{
		in:       reader{r: bufio.NewReader(r), order: order},
		out:      writer{w: bw, order: order},
		bw:       bw,
		handlers: make(map[int32]Handler),
	}
}

// Handle registers the callback for a selector.
func (c *Conn) Handle(sel int32, h Handler) {
	c.handlers[sel] = h
}

// Flush sends buffered output.
func (c *Conn) Flush() error {
	return c.bw.Flush()
}

// Write buffers one value of kind k.
func (c *Conn) Write(k Kind, v any) error {
	switch k {
	case Void:
		return nil
	case Graph:
		return Encode(c.bw, v, c.out.order)
	case String:
		s, ok := v.(string)
		if !ok {
			return c.mismatch(k, v)
		}
		c.out.bytes([]byte(s))
		return nil
	}
	if p, ok := arrayProto[k]; ok {
		if fmt.Sprintf("%T", p) != fmt.Sprintf("%T", v) {
			return c.mismatch(k, v)
		}
		return c.out.elems(v)
	}
	switch x := v.(type) {
	case bool:
		if k != Bool {
			return c.mismatch(k, v)
		}
		if x {
			c.out.u8(1)
		} else {
			c.out.u8(0)
		}
	case int8:
		if k != Byte {
			return c.mismatch(k, v)
		}
		c.out.u8(byte(x))
	case uint16:
		if k != Char {
			return c.mismatch(k, v)
		}
		c.out.u16(x)
	case int16:
		if k != Short {
			return c.mismatch(k, v)
		}
		c.out.u16(uint16(x))
	case int32:
		if k != Int {
			return c.mismatch(k, v)
		}
		c.out.u32(uint32(x))
	case int64:
		if k != Long {
			return c.mismatch(k, v)
		}
		c.out.u64(uint64(x))
	case float32:
		if k != Float {
			return c.mismatch(k, v)
		}
		c.out.u32(math.Float32bits(x))
	case float64:
		if k != Double {
			return c.mismatch(k, v)
		}
		c.out.u64(math.Float64bits(x))
	default:
		return c.mismatch(k, v)
	}
	return nil
}

func (c *Conn) mismatch(k Kind, v any) error {
	return fmt.Errorf("%T as %s: %w", v, k, ErrUnsupported)
}

// Read reads one value of kind k.
func (c *Conn) Read(k Kind) (any, error) {
	if p, ok := arrayProto[k]; ok {
		return c.in.elems(p)
	}
	switch k {
	case Void:
		return nil, nil
	case Bool:
		b, err := c.in.u8()
		return b != 0, err
	case Byte:
		b, err := c.in.u8()
		return int8(b), err
	case Char:
		return c.in.u16()
	case Short:
		v, err := c.in.u16()
		return int16(v), err
	case Int:
		v, err := c.in.u32()
		return int32(v), err
	case Long:
		v, err := c.in.u64()
		return int64(v), err
	case Float:
		v, err := c.in.u32()
		return math.Float32frombits(v), err
	case Double:
		v, err := c.in.u64()
		return math.Float64frombits(v), err
	case String:
		b, err := c.in.bytes()
		return string(b), err
	case Graph:
		return Decode(c.in.r, c.in.order)
	}
	return nil, fmt.Errorf("read %s: %w", k, ErrUnsupported)
}

// Serve answers the peer's calls until it reports a final value of kind
// result, which it returns.
func (c *Conn) Serve(result Kind) (any, error) {
	for {
		v, err := c.Read(Bool)
		if err != nil {
			return nil, fmt.Errorf("status flag: %w", err)
		}
		if v.(bool) {
			r, err := c.Read(result)
			if err != nil {
				return nil, fmt.Errorf("result: %w", err)
			}
			return r, nil
		}
		if err := c.serveOne(); err != nil {
			return nil, err
		}
	}
}

func (c *Conn) serveOne() error {
	v, err := c.Read(Int)
	if err != nil {
		return fmt.Errorf("selector: %w", err)
	}
	sel := v.(int32)
	h, ok := c.handlers[sel]
	if !ok {
		return fmt.Errorf("selector %d: %w", sel, ErrUnknownSelector)
	}
	args := make([]any, len(h.Params))
	for i, k := range h.Params {
		if args[i], err = c.Read(k); err != nil {
			return fmt.Errorf("callback %d argument %d: %w", sel, i, err)
		}
	}
	res, err := h.Func(args)
	if err != nil {
		return fmt.Errorf("callback %d: %w", sel, err)
	}
	if err := c.Write(Bool, true); err != nil {
		return err
	}
	if err := c.Write(h.Result, res); err != nil {
		return fmt.Errorf("callback %d result: %w", sel, err)
	}
	return c.Flush()
}

// Invoke calls selector sel on the peer with args of the given kinds and
// waits for its result, serving nested calls meanwhile.
func (c *Conn) Invoke(sel int32, params []Kind, args []any, result Kind) (any, error) {
	if len(params) != len(args) {
		return nil, fmt.Errorf("invoke %d: %d kinds for %d arguments", sel, len(params), len(args))
	}
	if err := c.Write(Bool, false); err != nil {
		return nil, err
	}
	if err := c.Write(Int, sel); err != nil {
		return nil, err
	}
	for i, k := range params {
		if err := c.Write(k, args[i]); err != nil {
			return nil, fmt.Errorf("invoke %d argument %d: %w", sel, i, err)
		}
	}
	if err := c.Flush(); err != nil {
		return nil, err
	}
	return c.Serve(result)
}

// Finish sends the final result of a task.
func (c *Conn) Finish(k Kind, v any) error {
	if err := c.Write(Bool, true); err != nil {
		return err
	}
	if err := c.Write(k, v); err != nil {
		return err
	}
	return c.Flush()
}
