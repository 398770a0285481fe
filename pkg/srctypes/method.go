package srctypes

import (
	"fmt"
	"strings"
)

// InlinePref is a method's declared inlining preference.
type InlinePref int

const (
	InlineDefault InlinePref = iota
	InlineAlways
	InlineNever
)

// ParseInlinePref maps a manifest spelling to an InlinePref.
func ParseInlinePref(s string) (InlinePref, error) {
	switch s {
	case "", "default":
		return InlineDefault, nil
	case "always":
		return InlineAlways, nil
	case "never":
		return InlineNever, nil
	}
	return 0, fmt.Errorf("unknown inline preference %q", s)
}

// Metadata is the classification attached to a method by its declaration.
type Metadata struct {
	Inline InlinePref
	// Native is literal native text used as the method body.
	Native string
	// Foreign binds the method to an externally defined native symbol.
	Foreign string
	// Remote methods execute on the managed side through the callback channel.
	Remote bool
	// Intrinsic names a built-in lowering, such as "body" for blob classes.
	Intrinsic string
	// InlineObjects allows field reads of statically known arguments to be
	// cached when the method is inlined. Callers guarantee that no alias of
	// such an argument is used by anything but the inlined method while it runs.
	InlineObjects bool
}

// Method is a method or constructor of a class.
type Method struct {
	Name        string
	Declaring   *Class
	Params      []Type
	Return      Type
	Static      bool
	Final       bool
	Abstract    bool
	Constructor bool
	Meta        Metadata
}

func signature(name string, params []Type) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// Signature identifies a method for override matching: name and parameter
// types, receiver excluded.
func (m *Method) Signature() string {
	return signature(m.Name, m.Params)
}

func (m *Method) String() string {
	if m.Declaring == nil {
		return m.Signature()
	}
	return m.Declaring.Name + "." + m.Signature()
}

// HasReceiver reports whether the method takes an implicit receiver.
func (m *Method) HasReceiver() bool {
	return !m.Static
}

// ParamTypes returns the full parameter list, receiver first.
func (m *Method) ParamTypes() []Type {
	if m.Static {
		return m.Params
	}
	out := make([]Type, 0, len(m.Params)+1)
	out = append(out, m.Declaring)
	return append(out, m.Params...)
}

// ReturnType is Return, or void when unset.
func (m *Method) ReturnType() Type {
	if m.Return == nil {
		return Void
	}
	return m.Return
}

// IsVirtual reports whether a call to m may bind to an override.
func (m *Method) IsVirtual() bool {
	if m.Static || m.Constructor || m.Final {
		return false
	}
	return m.Declaring == nil || !m.Declaring.Final
}
