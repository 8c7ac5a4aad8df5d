package element

import (
	"testing"

	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func sampleType() *Element {
	return &Element{
		ID:   elemid.New("lead"),
		Kind: TypeDecl,
		Fields: map[string]*Field{
			"email": {Name: "email", Type: elemid.New("string")},
			"score": {
				Name:        "score",
				Type:        elemid.New("number"),
				Annotations: map[string]Value{"required": NewPrim(cty.True)},
			},
		},
		FieldOrder:  []string{"email", "score"},
		Annotations: map[string]Value{"label": StringVal("Lead")},
	}
}

func sampleInstance() *Element {
	return &Element{
		ID:     elemid.New("lead", "primary"),
		Kind:   Instance,
		TypeID: elemid.New("lead"),
		Value: &Record{Fields: map[string]Value{
			"email": StringVal("a@b.example"),
			"tags":  &List{Items: []Value{StringVal("vip"), StringVal("eu")}},
			"owner": &Ref{Target: elemid.New("user", "admin")},
		}},
	}
}

func TestValuesEqual(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     Value
		expected bool
	}{
		{
			name:     "equal primitives",
			a:        NewPrim(cty.NumberIntVal(4)),
			b:        NewPrim(cty.NumberIntVal(4)),
			expected: true,
		},
		{
			name:     "different primitive types",
			a:        NewPrim(cty.NumberIntVal(4)),
			b:        StringVal("4"),
			expected: false,
		},
		{
			name:     "equal nested records",
			a:        &Record{Fields: map[string]Value{"x": &List{Items: []Value{StringVal("a")}}}},
			b:        &Record{Fields: map[string]Value{"x": &List{Items: []Value{StringVal("a")}}}},
			expected: true,
		},
		{
			name:     "list order matters",
			a:        &List{Items: []Value{StringVal("a"), StringVal("b")}},
			b:        &List{Items: []Value{StringVal("b"), StringVal("a")}},
			expected: false,
		},
		{
			name:     "reference vs type reference",
			a:        &Ref{Target: elemid.New("t")},
			b:        &TypeRef{Target: elemid.New("t")},
			expected: false,
		},
		{
			name:     "nil values",
			a:        nil,
			b:        nil,
			expected: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ValuesEqual(tc.a, tc.b))
		})
	}
}

func TestEqual_Elements(t *testing.T) {
	assert.True(t, Equal(sampleType(), sampleType()))
	assert.True(t, Equal(sampleInstance(), sampleInstance()))

	changed := sampleInstance()
	changed.Value.(*Record).Fields["email"] = StringVal("c@d.example")
	assert.False(t, Equal(sampleInstance(), changed))

	missingField := sampleType()
	delete(missingField.Fields, "score")
	assert.False(t, Equal(sampleType(), missingField))
}

func TestJSONRoundTrip_TypeDecl(t *testing.T) {
	orig := sampleType()
	data, err := orig.MarshalJSON()
	require.NoError(t, err)

	var decoded Element
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.True(t, Equal(orig, &decoded), "decoded element differs from original")
	assert.Equal(t, orig.FieldOrder, decoded.FieldOrder)
}

func TestJSONRoundTrip_InstanceWithRefs(t *testing.T) {
	orig := sampleInstance()
	data, err := orig.MarshalJSON()
	require.NoError(t, err)

	var decoded Element
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.True(t, Equal(orig, &decoded), "decoded element differs from original")

	owner := decoded.Value.(*Record).Fields["owner"]
	require.Equal(t, KindRef, owner.Kind())
	assert.Equal(t, "user.admin", owner.(*Ref).Target.String())
}

func TestOrderedFields(t *testing.T) {
	e := sampleType()
	fields := e.OrderedFields()
	require.Len(t, fields, 2)
	assert.Equal(t, "email", fields[0].Name)
	assert.Equal(t, "score", fields[1].Name)

	// A field missing from FieldOrder still comes out, after the ordered ones.
	e.Fields["zeta"] = &Field{Name: "zeta", Type: elemid.New("string")}
	fields = e.OrderedFields()
	require.Len(t, fields, 3)
	assert.Equal(t, "zeta", fields[2].Name)
}
