package ir

import "fmt"

// UnaryOp is a unary operator
type UnaryOp int

const (
	Neg UnaryOp = iota
	BitNot
	Not
	Length // array length
)

func (op UnaryOp) String() string {
	names := []string{"-", "~", "!", "length"}
	if int(op) < len(names) {
		return names[op]
	}
	panic(fmt.Sprintf("ir: unknown unary operator %d", int(op)))
}

// BinaryOp is a binary operator
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Rem
	And
	Or
	Xor
	Shl
	Shr
	Ushr
	Eq
	Ne
	Lt
	Ge
	Gt
	Le
	// Cmp is the three-way comparison producing -1, 0 or 1.
	Cmp
)

var binaryNames = []string{"+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>", ">>>", "==", "!=", "<", ">=", ">", "<=", "cmp"}

func (op BinaryOp) String() string {
	if int(op) < len(binaryNames) {
		return binaryNames[op]
	}
	panic(fmt.Sprintf("ir: unknown binary operator %d", int(op)))
}

// IsComparison reports whether op yields a boolean.
func (op BinaryOp) IsComparison() bool {
	return op >= Eq && op <= Le
}

// ParseBinaryOp maps an operator spelling to a BinaryOp.
func ParseBinaryOp(s string) (BinaryOp, error) {
	for i, n := range binaryNames {
		if n == s {
			return BinaryOp(i), nil
		}
	}
	return 0, fmt.Errorf("unknown binary operator %q", s)
}

// ParseUnaryOp maps an operator spelling to a UnaryOp.
func ParseUnaryOp(s string) (UnaryOp, error) {
	switch s {
	case "-", "neg":
		return Neg, nil
	case "~":
		return BitNot, nil
	case "!", "not":
		return Not, nil
	case "length", "len":
		return Length, nil
	}
	return 0, fmt.Errorf("unknown unary operator %q", s)
}

// CallKind is the invocation form of a call site.
type CallKind int

const (
	CallStatic CallKind = iota
	CallSpecial
	CallVirtual
	CallInterface
)

func (k CallKind) String() string {
	names := []string{"static", "special", "virtual", "interface"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}
