package objmodel

import (
	"fmt"

	"github.com/raymyers/ralph-offload/pkg/ctypes"
	"github.com/raymyers/ralph-offload/pkg/srctypes"
)

// CastKind is the shape of a lowered reference cast.
type CastKind int

const (
	NoCast      CastKind = iota // emit the operand unchanged
	Convert                     // (T)(v)
	UnionMember                 // (v).tN
	UnionWrap                   // (union U){.tN=(v)}
)

var castKindNames = []string{"none", "convert", "member", "wrap"}

func (k CastKind) String() string {
	if int(k) < len(castKindNames) {
		return castKindNames[k]
	}
	return "?"
}

// CastPlan describes how to turn a value of one type into another.
type CastPlan struct {
	Kind   CastKind
	To     ctypes.Type
	Member string // union member for UnionMember and UnionWrap
}

// resolve maps a class to the descriptor that decides its representation,
// following one-member union aliases.
func (t *Table) resolve(typ srctypes.Type) (*Descriptor, error) {
	c, ok := typ.(*srctypes.Class)
	if !ok {
		return nil, nil
	}
	d, err := t.Lookup(c)
	if err != nil {
		return nil, err
	}
	if a := d.Alias(); a != nil {
		return a, nil
	}
	return d, nil
}

// NeedsCast reports whether converting from one type to another may need
// code. A union on either side always does, since crossing it may select a
// member.
func (t *Table) NeedsCast(from, to srctypes.Type) (bool, error) {
	fd, err := t.resolve(from)
	if err != nil {
		return false, err
	}
	td, err := t.resolve(to)
	if err != nil {
		return false, err
	}
	if (fd != nil && fd.IsUnion()) || (td != nil && td.IsUnion()) {
		return true, nil
	}
	return !srctypes.Equal(from, to), nil
}

// Cast plans the conversion of a value of type from to type to. Casting
// null to a union, or between a union and a class that is not one of its
// members, fails with ErrBadCast.
func (t *Table) Cast(from, to srctypes.Type) (CastPlan, error) {
	toC, err := t.CType(to)
	if err != nil {
		return CastPlan{}, err
	}
	if from.Kind() == srctypes.KNull {
		td, err := t.resolve(to)
		if err != nil {
			return CastPlan{}, err
		}
		if td != nil && (td.IsUnion() || td.Value) {
			return CastPlan{}, fmt.Errorf("null to %s: %w", to, ErrBadCast)
		}
		return CastPlan{Kind: Convert, To: toC}, nil
	}
	fromC, err := t.CType(from)
	if err != nil {
		return CastPlan{}, err
	}
	fd, err := t.resolve(from)
	if err != nil {
		return CastPlan{}, err
	}
	td, err := t.resolve(to)
	if err != nil {
		return CastPlan{}, err
	}

	switch {
	case fd != nil && td != nil && fd == td:
		return CastPlan{Kind: NoCast, To: toC}, nil
	case td != nil && td.IsUnion():
		if fd == nil || !td.hasMember(fd) {
			return CastPlan{}, fmt.Errorf("%s to %s: %w", from, to, ErrBadCast)
		}
		return CastPlan{Kind: UnionWrap, To: toC, Member: MemberName(fd)}, nil
	case fd != nil && fd.IsUnion():
		if td == nil || !fd.hasMember(td) {
			return CastPlan{}, fmt.Errorf("%s to %s: %w", from, to, ErrBadCast)
		}
		return CastPlan{Kind: UnionMember, To: toC, Member: MemberName(td)}, nil
	}
	if ctypes.Equal(fromC, toC) {
		return CastPlan{Kind: NoCast, To: toC}, nil
	}
	if (fd != nil && fd.Value) || (td != nil && td.Value) {
		return CastPlan{}, fmt.Errorf("%s to %s: %w", from, to, ErrBadCast)
	}
	return CastPlan{Kind: Convert, To: toC}, nil
}
