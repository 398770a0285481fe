package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

var le = binary.LittleEndian

func encode(t *testing.T, v Value, order binary.ByteOrder) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, v, order); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestIntArrayBytes(t *testing.T) {
	got := encode(t, &Array{Data: []int32{1, 2, 3}}, le)
	want := []byte{
		0x01, 0x00, // one record
		0xf4,                   // int[]
		0x03, 0x00, 0x00, 0x00, // length
		0x01, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode([1,2,3]) = % x, want % x", got, want)
	}
	v, err := Decode(bytes.NewReader(want), le)
	if err != nil {
		t.Fatal(err)
	}
	if a, ok := v.(*Array); !ok || !reflect.DeepEqual(a.Data, []int32{1, 2, 3}) {
		t.Errorf("Decode() = %#v, want [1 2 3]", v)
	}
}

func TestBigEndian(t *testing.T) {
	got := encode(t, &Array{Data: []int32{1}}, binary.BigEndian)
	want := []byte{0x00, 0x01, 0xf4, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = % x, want % x", got, want)
	}
}

func TestNullRoot(t *testing.T) {
	got := encode(t, nil, le)
	if !bytes.Equal(got, []byte{0, 0}) {
		t.Fatalf("Encode(nil) = % x", got)
	}
	v, err := Decode(bytes.NewReader(got), le)
	if err != nil || v != nil {
		t.Errorf("Decode() = %v, %v; want nil root", v, err)
	}
}

func TestObjectRecord(t *testing.T) {
	o := &Object{Tag: 5, Fields: []Value{int32(7), int64(9), nil}}
	got := encode(t, o, le)
	want := []byte{
		0x01, 0x00,
		0x00, 0x05, 0x00, // tag 5
		0x06, 0x00, // header + int + pad + long + ref
		0xfc, 0x07, 0x00, 0x00, 0x00,
		0xfd, 0x09, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, // null
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = % x, want % x", got, want)
	}
}

func TestObjectSize(t *testing.T) {
	tests := []struct {
		fields []Value
		want   uint16
	}{
		{nil, 1},
		{[]Value{int32(1)}, 2},
		{[]Value{int64(1)}, 4},
		{[]Value{int32(1), int64(1)}, 4},
		{[]Value{float32(1), float32(2), float64(1)}, 6},
		{[]Value{nil, int32(1)}, 5},
	}
	for _, tt := range tests {
		if got, _ := objectSize(tt.fields); got != tt.want {
			t.Errorf("objectSize(%v) = %d, want %d", tt.fields, got, tt.want)
		}
	}
}

func TestRoundTripSharing(t *testing.T) {
	shared := &Object{Tag: 4, Fields: []Value{float64(2.5)}}
	arr := &Array{Data: []float64{1, 2}}
	raw := &Raw{Tag: 9, Data: []byte("blob")}
	root := &Object{Tag: 3, Fields: []Value{shared, shared, nil, arr, int32(-1), arr, raw, float32(0.5)}}
	// a cycle through a back-reference
	cyc := &Object{Tag: 6, Fields: []Value{nil}}
	cyc.Fields[0] = cyc
	root.Fields = append(root.Fields, cyc)

	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		data := encode(t, root, order)
		if n := order.Uint16(data); n != 5 {
			t.Errorf("count = %d, want 5 distinct records", n)
		}
		v, err := Decode(bytes.NewReader(data), order)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		got := v.(*Object)
		if got.Tag != 3 || len(got.Fields) != len(root.Fields) {
			t.Fatalf("root = %+v", got)
		}
		if got.Fields[0] != got.Fields[1] {
			t.Errorf("shared object decoded twice")
		}
		if got.Fields[2] != nil {
			t.Errorf("null field = %v", got.Fields[2])
		}
		if got.Fields[3] != got.Fields[5] {
			t.Errorf("shared array decoded twice")
		}
		if got.Fields[4] != int32(-1) || got.Fields[7] != float32(0.5) {
			t.Errorf("scalars = %v, %v", got.Fields[4], got.Fields[7])
		}
		if r := got.Fields[6].(*Raw); r.Tag != 9 || string(r.Data) != "blob" {
			t.Errorf("raw = %+v", r)
		}
		c := got.Fields[8].(*Object)
		if c.Fields[0] != Value(c) {
			t.Errorf("cycle not preserved")
		}
		if s := got.Fields[0].(*Object); s.Fields[0] != float64(2.5) {
			t.Errorf("shared field = %v", s.Fields[0])
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"unknown tag byte", []byte{1, 0, 0x42}, ErrUnknownTag},
		{"reserved tag", []byte{1, 0, 0, 2, 0}, ErrUnknownTag},
		{"dangling back-reference", []byte{1, 0, 0, 0x05, 0x80}, ErrMalformed},
		{"count too small", []byte{1, 0, 0, 3, 0, 2, 0, 0xf4, 0, 0, 0, 0}, ErrMalformed},
		{"size mismatch", []byte{1, 0, 0, 3, 0, 2, 0, 0xfd, 0, 0, 0, 0, 0, 0, 0, 0}, ErrMalformed},
		{"negative length", []byte{1, 0, 0xf4, 0xff, 0xff, 0xff, 0xff}, ErrMalformed},
		{"truncated", []byte{1, 0, 0xf4, 2, 0, 0, 0, 1}, io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data), le)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want error
	}{
		{"scalar root", int32(1), ErrUnsupported},
		{"bad field", &Object{Tag: 3, Fields: []Value{"text"}}, ErrUnsupported},
		{"reserved tag", &Object{Tag: 1}, ErrUnknownTag},
		{"bad array", &Array{Data: []string{"x"}}, ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Encode(io.Discard, tt.v, le); !errors.Is(err, tt.want) {
				t.Errorf("Encode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTooManyObjects(t *testing.T) {
	root := &Object{Tag: 3}
	for i := 0; i < 0x4000; i++ {
		root.Fields = append(root.Fields, &Object{Tag: 4, Fields: []Value{&Array{Data: []int32{}}}})
	}
	if err := Encode(io.Discard, root, le); !errors.Is(err, ErrTooManyObjects) {
		t.Errorf("Encode() error = %v, want ErrTooManyObjects", err)
	}
}

// pipe connects a managed end and a native end.
func pipe() (managed, native *Conn, closeAll func()) {
	toNative, fromManaged := io.Pipe()
	toManaged, fromNative := io.Pipe()
	managed = NewConn(toManaged, fromManaged, le)
	native = NewConn(toNative, fromNative, le)
	return managed, native, func() {
		fromManaged.Close()
		fromNative.Close()
	}
}

func TestCallbacks(t *testing.T) {
	managed, native, closeAll := pipe()
	defer closeAll()

	// the native task adds 100 for the managed side
	native.Handle(3, Handler{Params: []Kind{Int}, Result: Int, Func: func(args []any) (any, error) {
		return args[0].(int32) + 100, nil
	}})
	// the managed side doubles, asking the native side for help first
	managed.Handle(7, Handler{Params: []Kind{Int, String}, Result: Long, Func: func(args []any) (any, error) {
		if args[1].(string) != "tag" {
			t.Errorf("string argument = %q", args[1])
		}
		r, err := managed.Invoke(3, []Kind{Int}, []any{args[0]}, Int)
		if err != nil {
			return nil, err
		}
		return int64(r.(int32)) * 2, nil
	}})

	errc := make(chan error, 1)
	go func() {
		errc <- func() error {
			x, err := native.Read(Int)
			if err != nil {
				return err
			}
			r, err := native.Invoke(7, []Kind{Int, String}, []any{x, "tag"}, Long)
			if err != nil {
				return err
			}
			return native.Finish(Long, r.(int64)+1)
		}()
	}()

	if err := managed.Write(Int, int32(20)); err != nil {
		t.Fatal(err)
	}
	if err := managed.Flush(); err != nil {
		t.Fatal(err)
	}
	got, err := managed.Serve(Long)
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if got != int64(241) {
		t.Errorf("Serve() = %v, want 241", got)
	}
	if err := <-errc; err != nil {
		t.Errorf("native side: %v", err)
	}
}

func TestUnknownSelector(t *testing.T) {
	managed, native, closeAll := pipe()
	go func() {
		native.Invoke(99, nil, nil, Int)
	}()
	_, err := managed.Serve(Int)
	closeAll()
	if !errors.Is(err, ErrUnknownSelector) {
		t.Errorf("Serve() error = %v, want ErrUnknownSelector", err)
	}
}

func TestChannelValues(t *testing.T) {
	values := []struct {
		k Kind
		v any
	}{
		{Bool, true},
		{Byte, int8(-3)},
		{Char, uint16('x')},
		{Short, int16(-300)},
		{Int, int32(1 << 20)},
		{Long, int64(-1) << 40},
		{Float, float32(1.5)},
		{Double, 2.25},
		{IntArray, []int32{4, 5}},
		{BoolArray, []bool{true, false}},
		{DoubleArray, []float64{0.5}},
		{String, "héllo"},
	}
	var buf bytes.Buffer
	c := NewConn(&buf, &buf, binary.BigEndian)
	for _, tt := range values {
		if err := c.Write(tt.k, tt.v); err != nil {
			t.Fatalf("Write(%s) error = %v", tt.k, err)
		}
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	for _, tt := range values {
		got, err := c.Read(tt.k)
		if err != nil {
			t.Fatalf("Read(%s) error = %v", tt.k, err)
		}
		if !reflect.DeepEqual(got, tt.v) {
			t.Errorf("Read(%s) = %#v, want %#v", tt.k, got, tt.v)
		}
	}
	if err := c.Write(Int, int64(1)); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Write(int, int64) error = %v, want ErrUnsupported", err)
	}
}

func TestDiagnose(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{120, "the task exited with 120 (deserialization failure)"},
		{128, "the task exited with 128 (dispatch on an unrecognized type tag)"},
		{133, "the task exited with 133 (SIGTRAP - divide by zero?)"},
		{3, "the task exited with 3"},
	}
	for _, tt := range tests {
		if got := Diagnose(tt.code); got != tt.want {
			t.Errorf("Diagnose(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestPrinter(t *testing.T) {
	shared := &Array{Data: []int32{1}}
	root := &Object{Tag: 3, Fields: []Value{int32(2), shared, shared, nil}}
	var sb strings.Builder
	NewPrinter(&sb).Print(root)
	want := "#0 object tag=3 {\n  int 2\n  #1 int[] [1]\n  @1\n  null\n}\n"
	if sb.String() != want {
		t.Errorf("Print() =\n%s\nwant\n%s", sb.String(), want)
	}
}
