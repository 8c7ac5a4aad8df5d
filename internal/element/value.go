package element

import (
	"sort"

	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/zclconf/go-cty/cty"
)

// ValueKind discriminates the members of the Value union.
type ValueKind int

const (
	KindPrim ValueKind = iota
	KindList
	KindRecord
	KindRef
	KindTypeRef
)

// String returns a short human-readable name for the kind.
func (k ValueKind) String() string {
	switch k {
	case KindPrim:
		return "primitive"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	case KindRef:
		return "reference"
	case KindTypeRef:
		return "type reference"
	}
	return "unknown"
}

// Value is one node of an element's value tree. The union is closed: every
// implementation lives in this package and consumers switch on Kind.
type Value interface {
	Kind() ValueKind
}

// Prim wraps a scalar (string, number, bool) as a cty value.
type Prim struct {
	V cty.Value
}

// List is an ordered sequence of values.
type List struct {
	Items []Value
}

// Record is a string-keyed collection of values.
type Record struct {
	Fields map[string]Value
}

// Ref is a reference expression pointing at another element or one of its
// nested values.
type Ref struct {
	Target elemid.ID
}

// TypeRef marks a use of a declared type, e.g. a field's declared type or an
// instance's type.
type TypeRef struct {
	Target elemid.ID
}

func (*Prim) Kind() ValueKind    { return KindPrim }
func (*List) Kind() ValueKind    { return KindList }
func (*Record) Kind() ValueKind  { return KindRecord }
func (*Ref) Kind() ValueKind     { return KindRef }
func (*TypeRef) Kind() ValueKind { return KindTypeRef }

// NewPrim wraps a cty scalar.
func NewPrim(v cty.Value) *Prim { return &Prim{V: v} }

// StringVal is a convenience constructor for string primitives.
func StringVal(s string) *Prim { return &Prim{V: cty.StringVal(s)} }

// ValuesEqual reports deep structural equality of two value trees.
func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case *Prim:
		return av.V.RawEquals(b.(*Prim).V)
	case *List:
		bv := b.(*List)
		if len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !ValuesEqual(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *Record:
		bv := b.(*Record)
		if len(av.Fields) != len(bv.Fields) {
			return false
		}
		for k, v := range av.Fields {
			other, ok := bv.Fields[k]
			if !ok || !ValuesEqual(v, other) {
				return false
			}
		}
		return true
	case *Ref:
		return av.Target.Equal(b.(*Ref).Target)
	case *TypeRef:
		return av.Target.Equal(b.(*TypeRef).Target)
	}
	return false
}

// sortedKeys returns the keys of a record-ish map in stable order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
