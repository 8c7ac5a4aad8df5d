package refs

import (
	"testing"

	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/stretchr/testify/assert"
	"github.com/zclconf/go-cty/cty"
)

func idStrings(ids []elemid.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func TestExtract_TypeDeclFieldTypes(t *testing.T) {
	e := &element.Element{
		ID:   elemid.New("lead"),
		Kind: element.TypeDecl,
		Fields: map[string]*element.Field{
			"email": {Name: "email", Type: elemid.New("string")},
			"owner": {Name: "owner", Type: elemid.New("user"), Container: "list"},
		},
	}

	got := idStrings(Extract(e))
	assert.Equal(t, []string{"string", "user"}, got)
}

func TestExtract_InstanceType(t *testing.T) {
	e := &element.Element{
		ID:     elemid.New("lead", "primary"),
		Kind:   element.Instance,
		TypeID: elemid.New("lead"),
		Value:  &element.Record{Fields: map[string]element.Value{"email": element.StringVal("x")}},
	}

	got := idStrings(Extract(e))
	assert.Equal(t, []string{"lead"}, got)
}

func TestExtract_ReferencePrefixes(t *testing.T) {
	e := &element.Element{
		ID:     elemid.New("lead", "primary"),
		Kind:   element.Instance,
		TypeID: elemid.New("lead"),
		Value: &element.Record{Fields: map[string]element.Value{
			"owner": &element.Ref{Target: elemid.New("user", "admin", "email")},
		}},
	}

	got := idStrings(Extract(e))
	assert.Equal(t, []string{"lead", "user", "user.admin", "user.admin.email"}, got)
}

func TestExtract_DeeplyNestedValues(t *testing.T) {
	deep := &element.Record{Fields: map[string]element.Value{
		"outer": &element.List{Items: []element.Value{
			&element.Record{Fields: map[string]element.Value{
				"inner": &element.Ref{Target: elemid.New("a", "b")},
				"ty":    &element.TypeRef{Target: elemid.New("widget")},
				"num":   element.NewPrim(cty.NumberIntVal(9)),
			}},
		}},
	}}
	e := &element.Element{
		ID:     elemid.New("thing", "one"),
		Kind:   element.Instance,
		TypeID: elemid.New("thing"),
		Value:  deep,
	}

	got := idStrings(Extract(e))
	assert.Equal(t, []string{"a", "a.b", "thing", "widget"}, got)
}

func TestExtract_AnnotationValues(t *testing.T) {
	e := &element.Element{
		ID:   elemid.New("lead"),
		Kind: element.TypeDecl,
		Annotations: map[string]element.Value{
			"default_owner": &element.Ref{Target: elemid.New("user", "admin")},
		},
	}

	got := idStrings(Extract(e))
	assert.Equal(t, []string{"user", "user.admin"}, got)
}

func TestExtract_SharedSubstructureVisitedOnce(t *testing.T) {
	shared := &element.Record{Fields: map[string]element.Value{
		"r": &element.Ref{Target: elemid.New("t")},
	}}
	e := &element.Element{
		ID:     elemid.New("x", "i"),
		Kind:   element.Instance,
		TypeID: elemid.New("x"),
		Value: &element.Record{Fields: map[string]element.Value{
			"a": shared,
			"b": shared,
		}},
	}

	// Termination and correctness despite the shared node.
	got := idStrings(Extract(e))
	assert.Equal(t, []string{"t", "x"}, got)
}

func TestExtractAll_Union(t *testing.T) {
	a := &element.Element{ID: elemid.New("i", "a"), Kind: element.Instance, TypeID: elemid.New("t1")}
	b := &element.Element{ID: elemid.New("i", "b"), Kind: element.Instance, TypeID: elemid.New("t2")}

	got := idStrings(ExtractAll([]*element.Element{a, b}))
	assert.Equal(t, []string{"t1", "t2"}, got)
}
