package element

import (
	"github.com/nacl-lang/workspace/internal/elemid"
)

// Kind classifies a declared element.
type Kind int

const (
	// TypeDecl is an object type declaration with fields.
	TypeDecl Kind = iota
	// Instance is a concrete instance of a declared type.
	Instance
	// Settings is a label-only type declaration carrying annotations but no
	// fields, used for workspace-level configuration values.
	Settings
)

// String returns a short human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case TypeDecl:
		return "type"
	case Instance:
		return "instance"
	case Settings:
		return "settings"
	}
	return "unknown"
}

// Field is a single declared field of a type.
type Field struct {
	Name string
	// Type is the innermost declared type identity; wrapper containers
	// (list<...>) are collapsed at parse time and recorded in Container.
	Type elemid.ID
	// Container names the wrapper kind ("list") or is empty for plain fields.
	Container   string
	Annotations map[string]Value
}

// Element is one declaration fragment as it appears in a single file.
// Fragments from different files may share the same ID; they stay unmerged
// until the merge engine combines them.
type Element struct {
	ID   elemid.ID
	Kind Kind

	// TypeID is the declared type of an instance; empty for type
	// declarations.
	TypeID elemid.ID

	// Fields and FieldOrder describe a type declaration's fields.
	// FieldOrder preserves source order so that regenerated text is stable.
	Fields     map[string]*Field
	FieldOrder []string

	// Annotations are attribute values declared directly on the element body.
	Annotations map[string]Value

	// Value is an instance's field values as a record; nil for type
	// declarations.
	Value Value
}

// Merged is the combined view of every fragment sharing one identity.
type Merged struct {
	Element

	// Fragments lists the contributing filenames in merge order.
	Fragments []string
}

// Equal reports deep structural equality between two elements.
func Equal(a, b *Element) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !a.ID.Equal(b.ID) || a.Kind != b.Kind || !a.TypeID.Equal(b.TypeID) {
		return false
	}
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for name, f := range a.Fields {
		other, ok := b.Fields[name]
		if !ok || !fieldsEqual(f, other) {
			return false
		}
	}
	if !annotationsEqual(a.Annotations, b.Annotations) {
		return false
	}
	return ValuesEqual(a.Value, b.Value)
}

func fieldsEqual(a, b *Field) bool {
	if a.Name != b.Name || !a.Type.Equal(b.Type) || a.Container != b.Container {
		return false
	}
	return annotationsEqual(a.Annotations, b.Annotations)
}

func annotationsEqual(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		other, ok := b[k]
		if !ok || !ValuesEqual(v, other) {
			return false
		}
	}
	return true
}

// FieldID returns the identity addressing a field of a type declaration or a
// field value of an instance.
func (e *Element) FieldID(name string) elemid.ID {
	return e.ID.Nested(name)
}

// OrderedFields returns the element's fields in declaration order, falling
// back to name order for fields missing from FieldOrder.
func (e *Element) OrderedFields() []*Field {
	seen := make(map[string]struct{}, len(e.FieldOrder))
	out := make([]*Field, 0, len(e.Fields))
	for _, name := range e.FieldOrder {
		if f, ok := e.Fields[name]; ok {
			out = append(out, f)
			seen[name] = struct{}{}
		}
	}
	for _, name := range sortedKeys(e.Fields) {
		if _, ok := seen[name]; !ok {
			out = append(out, e.Fields[name])
		}
	}
	return out
}
