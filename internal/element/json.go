package element

import (
	"encoding/json"
	"fmt"

	"github.com/nacl-lang/workspace/internal/elemid"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// The value union serializes with an explicit kind discriminator so cached
// parse results survive a round trip through persistent storage. Primitives
// carry their cty type alongside the value.

type valueEnvelope struct {
	Kind   string                     `json:"kind"`
	Type   json.RawMessage            `json:"type,omitempty"`
	Value  json.RawMessage            `json:"value,omitempty"`
	Items  []json.RawMessage          `json:"items,omitempty"`
	Fields map[string]json.RawMessage `json:"fields,omitempty"`
	Target string                     `json:"target,omitempty"`
}

// MarshalValue encodes a value tree as JSON.
func MarshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	switch tv := v.(type) {
	case *Prim:
		rawType, err := ctyjson.MarshalType(tv.V.Type())
		if err != nil {
			return nil, fmt.Errorf("marshalling primitive type: %w", err)
		}
		rawVal, err := ctyjson.Marshal(tv.V, tv.V.Type())
		if err != nil {
			return nil, fmt.Errorf("marshalling primitive value: %w", err)
		}
		return json.Marshal(valueEnvelope{Kind: "prim", Type: rawType, Value: rawVal})
	case *List:
		items := make([]json.RawMessage, len(tv.Items))
		for i, item := range tv.Items {
			raw, err := MarshalValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = raw
		}
		if items == nil {
			items = []json.RawMessage{}
		}
		return json.Marshal(valueEnvelope{Kind: "list", Items: items})
	case *Record:
		fields := make(map[string]json.RawMessage, len(tv.Fields))
		for k, fv := range tv.Fields {
			raw, err := MarshalValue(fv)
			if err != nil {
				return nil, err
			}
			fields[k] = raw
		}
		return json.Marshal(valueEnvelope{Kind: "record", Fields: fields})
	case *Ref:
		return json.Marshal(valueEnvelope{Kind: "ref", Target: tv.Target.String()})
	case *TypeRef:
		return json.Marshal(valueEnvelope{Kind: "typeref", Target: tv.Target.String()})
	}
	return nil, fmt.Errorf("cannot marshal value of kind %s", v.Kind())
}

// UnmarshalValue decodes a value tree produced by MarshalValue.
func UnmarshalValue(data []byte) (Value, error) {
	if string(data) == "null" {
		return nil, nil
	}
	var env valueEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshalling value envelope: %w", err)
	}
	switch env.Kind {
	case "prim":
		ty, err := ctyjson.UnmarshalType(env.Type)
		if err != nil {
			return nil, fmt.Errorf("unmarshalling primitive type: %w", err)
		}
		val, err := ctyjson.Unmarshal(env.Value, ty)
		if err != nil {
			return nil, fmt.Errorf("unmarshalling primitive value: %w", err)
		}
		return NewPrim(val), nil
	case "list":
		items := make([]Value, len(env.Items))
		for i, raw := range env.Items {
			item, err := UnmarshalValue(raw)
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return &List{Items: items}, nil
	case "record":
		fields := make(map[string]Value, len(env.Fields))
		for k, raw := range env.Fields {
			fv, err := UnmarshalValue(raw)
			if err != nil {
				return nil, err
			}
			fields[k] = fv
		}
		return &Record{Fields: fields}, nil
	case "ref", "typeref":
		target, err := elemid.Parse(env.Target)
		if err != nil {
			return nil, fmt.Errorf("unmarshalling %s target: %w", env.Kind, err)
		}
		if env.Kind == "ref" {
			return &Ref{Target: target}, nil
		}
		return &TypeRef{Target: target}, nil
	}
	return nil, fmt.Errorf("unknown value kind %q", env.Kind)
}

type fieldJSON struct {
	Name        string                     `json:"name"`
	Type        elemid.ID                  `json:"type"`
	Container   string                     `json:"container,omitempty"`
	Annotations map[string]json.RawMessage `json:"annotations,omitempty"`
}

type elementJSON struct {
	ID          elemid.ID                  `json:"id"`
	Kind        Kind                       `json:"kind"`
	TypeID      elemid.ID                  `json:"typeId,omitempty"`
	Fields      map[string]fieldJSON       `json:"fields,omitempty"`
	FieldOrder  []string                   `json:"fieldOrder,omitempty"`
	Annotations map[string]json.RawMessage `json:"annotations,omitempty"`
	Value       json.RawMessage            `json:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler for Element.
func (e *Element) MarshalJSON() ([]byte, error) {
	out := elementJSON{
		ID:         e.ID,
		Kind:       e.Kind,
		TypeID:     e.TypeID,
		FieldOrder: e.FieldOrder,
	}
	if len(e.Fields) > 0 {
		out.Fields = make(map[string]fieldJSON, len(e.Fields))
		for name, f := range e.Fields {
			annos, err := marshalAnnotations(f.Annotations)
			if err != nil {
				return nil, err
			}
			out.Fields[name] = fieldJSON{Name: f.Name, Type: f.Type, Container: f.Container, Annotations: annos}
		}
	}
	annos, err := marshalAnnotations(e.Annotations)
	if err != nil {
		return nil, err
	}
	out.Annotations = annos
	if e.Value != nil {
		raw, err := MarshalValue(e.Value)
		if err != nil {
			return nil, err
		}
		out.Value = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler for Element.
func (e *Element) UnmarshalJSON(data []byte) error {
	var in elementJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.ID = in.ID
	e.Kind = in.Kind
	e.TypeID = in.TypeID
	e.FieldOrder = in.FieldOrder
	if len(in.Fields) > 0 {
		e.Fields = make(map[string]*Field, len(in.Fields))
		for name, f := range in.Fields {
			annos, err := unmarshalAnnotations(f.Annotations)
			if err != nil {
				return err
			}
			e.Fields[name] = &Field{Name: f.Name, Type: f.Type, Container: f.Container, Annotations: annos}
		}
	}
	annos, err := unmarshalAnnotations(in.Annotations)
	if err != nil {
		return err
	}
	e.Annotations = annos
	if len(in.Value) > 0 {
		val, err := UnmarshalValue(in.Value)
		if err != nil {
			return err
		}
		e.Value = val
	}
	return nil
}

func marshalAnnotations(annos map[string]Value) (map[string]json.RawMessage, error) {
	if len(annos) == 0 {
		return nil, nil
	}
	out := make(map[string]json.RawMessage, len(annos))
	for k, v := range annos {
		raw, err := MarshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("marshalling annotation %q: %w", k, err)
		}
		out[k] = raw
	}
	return out, nil
}

func unmarshalAnnotations(raw map[string]json.RawMessage) (map[string]Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]Value, len(raw))
	for k, r := range raw {
		v, err := UnmarshalValue(r)
		if err != nil {
			return nil, fmt.Errorf("unmarshalling annotation %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
