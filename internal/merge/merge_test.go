package merge

import (
	"testing"

	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func typeFragment(filename, name string, fields ...*element.Field) Fragment {
	e := &element.Element{ID: elemid.New(name), Kind: element.TypeDecl, Fields: map[string]*element.Field{}}
	for _, f := range fields {
		e.Fields[f.Name] = f
		e.FieldOrder = append(e.FieldOrder, f.Name)
	}
	return Fragment{Filename: filename, Element: e}
}

func instFragment(filename, typeName, instName string, fields map[string]element.Value) Fragment {
	return Fragment{Filename: filename, Element: &element.Element{
		ID:     elemid.New(typeName, instName),
		Kind:   element.Instance,
		TypeID: elemid.New(typeName),
		Value:  &element.Record{Fields: fields},
	}}
}

func TestFull_SingleFragmentPerIdentity(t *testing.T) {
	result := Full([]Fragment{
		typeFragment("a.nacl", "lead", &element.Field{Name: "email", Type: elemid.New("string")}),
		instFragment("b.nacl", "lead", "primary", map[string]element.Value{"email": element.StringVal("x")}),
	})

	require.Len(t, result.Merged, 2)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{"a.nacl"}, result.Merged["lead"].Fragments)
	assert.Equal(t, []string{"b.nacl"}, result.Merged["lead.primary"].Fragments)
}

func TestFull_FieldsUnionAcrossFiles(t *testing.T) {
	result := Full([]Fragment{
		typeFragment("b.nacl", "lead", &element.Field{Name: "score", Type: elemid.New("number")}),
		typeFragment("a.nacl", "lead", &element.Field{Name: "email", Type: elemid.New("string")}),
	})

	merged := result.Merged["lead"]
	require.NotNil(t, merged)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{"a.nacl", "b.nacl"}, merged.Fragments, "fold order is filename order")
	assert.Equal(t, []string{"email", "score"}, merged.FieldOrder)
}

func TestFull_ConflictingInstanceField(t *testing.T) {
	result := Full([]Fragment{
		instFragment("a.nacl", "lead", "primary", map[string]element.Value{"email": element.StringVal("x")}),
		instFragment("b.nacl", "lead", "primary", map[string]element.Value{"email": element.NewPrim(cty.NumberIntVal(7))}),
	})

	errs := result.Errors["lead.primary"]
	require.Len(t, errs, 1, "exactly one merge error for the conflicting field")
	assert.Equal(t, "lead.primary.email", errs[0].ID.String())
	assert.Contains(t, errs[0].Summary, "string")
	assert.Contains(t, errs[0].Summary, "number")

	// First file wins the merged value.
	merged := result.Merged["lead.primary"]
	got := merged.Value.(*element.Record).Fields["email"]
	assert.True(t, element.ValuesEqual(element.StringVal("x"), got))
}

func TestFull_EqualDuplicateValuesAreNotConflicts(t *testing.T) {
	result := Full([]Fragment{
		instFragment("a.nacl", "lead", "primary", map[string]element.Value{"email": element.StringVal("x")}),
		instFragment("b.nacl", "lead", "primary", map[string]element.Value{"email": element.StringVal("x")}),
	})
	assert.Empty(t, result.Errors)
}

func TestFull_NestedRecordsMergeRecursively(t *testing.T) {
	result := Full([]Fragment{
		instFragment("a.nacl", "lead", "primary", map[string]element.Value{
			"contact": &element.Record{Fields: map[string]element.Value{"phone": element.StringVal("555")}},
		}),
		instFragment("b.nacl", "lead", "primary", map[string]element.Value{
			"contact": &element.Record{Fields: map[string]element.Value{"mail": element.StringVal("a@b")}},
		}),
	})

	require.Empty(t, result.Errors)
	contact := result.Merged["lead.primary"].Value.(*element.Record).Fields["contact"].(*element.Record)
	assert.Len(t, contact.Fields, 2)
}

func TestFull_KindMismatch(t *testing.T) {
	result := Full([]Fragment{
		{Filename: "a.nacl", Element: &element.Element{ID: elemid.New("x"), Kind: element.TypeDecl}},
		{Filename: "b.nacl", Element: &element.Element{ID: elemid.New("x"), Kind: element.Settings}},
	})
	require.Len(t, result.Errors["x"], 1)
}

func TestFull_DoesNotMutateFragments(t *testing.T) {
	a := typeFragment("a.nacl", "lead", &element.Field{Name: "email", Type: elemid.New("string")})
	b := typeFragment("b.nacl", "lead", &element.Field{Name: "score", Type: elemid.New("number")})

	Full([]Fragment{a, b})

	assert.Len(t, a.Element.Fields, 1, "fragment must stay untouched by merging")
	assert.Len(t, b.Element.Fields, 1)
}

func TestIncremental_RemoveWhenNoFragmentsRemain(t *testing.T) {
	prev := Full([]Fragment{
		typeFragment("a.nacl", "lead"),
		typeFragment("a.nacl", "user"),
	})

	next, changes := Incremental(prev, nil, []elemid.ID{elemid.New("lead")})

	require.Len(t, changes, 1)
	assert.Equal(t, ActionRemove, changes[0].Action)
	assert.Equal(t, "lead", changes[0].ID.String())
	assert.NotContains(t, next.Merged, "lead")
	assert.Contains(t, next.Merged, "user", "unaffected entries carry over")
}

func TestIncremental_AddAndModify(t *testing.T) {
	prev := Full([]Fragment{
		instFragment("a.nacl", "lead", "primary", map[string]element.Value{"email": element.StringVal("x")}),
	})

	fragments := []Fragment{
		instFragment("a.nacl", "lead", "primary", map[string]element.Value{"email": element.StringVal("y")}),
		typeFragment("b.nacl", "user"),
	}
	affected := []elemid.ID{elemid.New("lead", "primary"), elemid.New("user")}

	next, changes := Incremental(prev, fragments, affected)

	require.Len(t, changes, 2)
	assert.Equal(t, "lead.primary", changes[0].ID.String())
	assert.Equal(t, ActionModify, changes[0].Action)
	assert.Equal(t, "user", changes[1].ID.String())
	assert.Equal(t, ActionAdd, changes[1].Action)
	assert.Len(t, next.Merged, 2)
}

func TestIncremental_IdenticalContentYieldsNoChanges(t *testing.T) {
	frag := instFragment("a.nacl", "lead", "primary", map[string]element.Value{"email": element.StringVal("x")})
	prev := Full([]Fragment{frag})

	again := instFragment("a.nacl", "lead", "primary", map[string]element.Value{"email": element.StringVal("x")})
	_, changes := Incremental(prev, []Fragment{again}, []elemid.ID{elemid.New("lead", "primary")})

	assert.Empty(t, changes)
}

func TestIncremental_ConflictFixedByRemovingFragment(t *testing.T) {
	prev := Full([]Fragment{
		instFragment("a.nacl", "lead", "primary", map[string]element.Value{"email": element.StringVal("x")}),
		instFragment("b.nacl", "lead", "primary", map[string]element.Value{"email": element.NewPrim(cty.True)}),
	})
	require.NotEmpty(t, prev.Errors["lead.primary"])

	// b.nacl's fragment is gone; only a.nacl still contributes.
	fixed := []Fragment{
		instFragment("a.nacl", "lead", "primary", map[string]element.Value{"email": element.StringVal("x")}),
	}
	next, _ := Incremental(prev, fixed, []elemid.ID{elemid.New("lead", "primary")})

	assert.Empty(t, next.Errors, "removing the conflicting fragment clears the merge error")
}

func TestIncremental_EquivalentToFull(t *testing.T) {
	base := []Fragment{
		typeFragment("a.nacl", "lead", &element.Field{Name: "email", Type: elemid.New("string")}),
		instFragment("b.nacl", "lead", "primary", map[string]element.Value{"email": element.StringVal("x")}),
	}
	prev := Full(base)

	// Warm update: modify the instance, add a type.
	updatedInst := instFragment("b.nacl", "lead", "primary", map[string]element.Value{"email": element.StringVal("z")})
	newType := typeFragment("c.nacl", "user")
	warm, _ := Incremental(prev, []Fragment{updatedInst, newType},
		[]elemid.ID{elemid.New("lead", "primary"), elemid.New("user")})

	cold := Full([]Fragment{base[0], updatedInst, newType})

	require.Len(t, warm.Merged, len(cold.Merged))
	for id, want := range cold.Merged {
		got, ok := warm.Merged[id]
		require.True(t, ok, "missing %s in warm result", id)
		assert.True(t, element.Equal(&want.Element, &got.Element), "warm and cold disagree on %s", id)
	}
}

func TestAllErrors_Deterministic(t *testing.T) {
	result := Full([]Fragment{
		instFragment("a.nacl", "b", "i", map[string]element.Value{"v": element.StringVal("1")}),
		instFragment("b.nacl", "b", "i", map[string]element.Value{"v": element.StringVal("2")}),
		instFragment("a.nacl", "a", "i", map[string]element.Value{"v": element.StringVal("1")}),
		instFragment("b.nacl", "a", "i", map[string]element.Value{"v": element.StringVal("2")}),
	})

	errs := result.AllErrors()
	require.Len(t, errs, 2)
	assert.Equal(t, "a.i.v", errs[0].ID.String())
	assert.Equal(t, "b.i.v", errs[1].ID.String())
}
