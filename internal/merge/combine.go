package merge

import (
	"fmt"
	"sort"

	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// mergeOne folds one identity's fragments, pre-sorted by filename, into a
// single merged element.
func mergeOne(group []Fragment) (*element.Merged, []Error) {
	first := group[0]
	acc := &accumulator{
		merged: &element.Merged{
			Element:   *cloneElement(first.Element),
			Fragments: []string{first.Filename},
		},
	}
	for _, frag := range group[1:] {
		acc.combine(frag)
	}
	return acc.merged, acc.errs
}

type accumulator struct {
	merged *element.Merged
	errs   []Error
}

func (a *accumulator) conflict(id elemid.ID, summary string, files ...string) {
	a.errs = append(a.errs, Error{ID: id, Summary: summary, Files: files})
}

func (a *accumulator) combine(frag Fragment) {
	base := &a.merged.Element
	next := frag.Element

	if base.Kind != next.Kind {
		a.conflict(base.ID, fmt.Sprintf("declared as %s in %s but as %s in %s",
			base.Kind, a.merged.Fragments[0], next.Kind, frag.Filename),
			a.merged.Fragments[0], frag.Filename)
		return
	}
	if base.Kind == element.Instance && !base.TypeID.Equal(next.TypeID) {
		a.conflict(base.ID, fmt.Sprintf("instance declared with type %s in %s but %s in %s",
			base.TypeID, a.merged.Fragments[0], next.TypeID, frag.Filename),
			a.merged.Fragments[0], frag.Filename)
		return
	}

	a.merged.Fragments = append(a.merged.Fragments, frag.Filename)

	a.combineFields(next, frag.Filename)
	base.Annotations = a.combineValueMap(base.ID, base.Annotations, next.Annotations, frag.Filename)

	if next.Value != nil {
		if base.Value == nil {
			base.Value = cloneValue(next.Value)
		} else {
			base.Value = a.combineValues(base.ID, base.Value, next.Value, frag.Filename)
		}
	}
}

func (a *accumulator) combineFields(next *element.Element, filename string) {
	base := &a.merged.Element
	for _, f := range next.OrderedFields() {
		existing, ok := base.Fields[f.Name]
		if !ok {
			if base.Fields == nil {
				base.Fields = map[string]*element.Field{}
			}
			// Clone so later merging never writes into the fragment.
			fc := *f
			fc.Annotations = cloneValueMap(f.Annotations)
			base.Fields[f.Name] = &fc
			base.FieldOrder = append(base.FieldOrder, f.Name)
			continue
		}
		if !existing.Type.Equal(f.Type) || existing.Container != f.Container {
			a.conflict(base.FieldID(f.Name), fmt.Sprintf(
				"field declared with type %s but redeclared with type %s in %s",
				fieldTypeName(existing), fieldTypeName(f), filename), filename)
			continue
		}
		existing.Annotations = a.combineValueMap(base.FieldID(f.Name), existing.Annotations, f.Annotations, filename)
	}
}

// combineValueMap unions two value maps. Duplicate keys with equal values
// collapse silently; unequal values keep the base (first file wins) and
// record a conflict, unless both sides are records, which merge recursively.
func (a *accumulator) combineValueMap(owner elemid.ID, base, next map[string]element.Value, filename string) map[string]element.Value {
	if len(next) == 0 {
		return base
	}
	if base == nil {
		base = map[string]element.Value{}
	}
	for _, key := range sortedNames(next) {
		nv := next[key]
		bv, ok := base[key]
		if !ok {
			base[key] = cloneValue(nv)
			continue
		}
		base[key] = a.combineValues(owner.Nested(key), bv, nv, filename)
	}
	return base
}

// combineValues resolves two values declared for the same identity.
func (a *accumulator) combineValues(id elemid.ID, base, next element.Value, filename string) element.Value {
	if element.ValuesEqual(base, next) {
		return base
	}

	baseRec, baseIsRec := base.(*element.Record)
	nextRec, nextIsRec := next.(*element.Record)
	if baseIsRec && nextIsRec {
		baseRec.Fields = a.combineValueMap(id, baseRec.Fields, nextRec.Fields, filename)
		return baseRec
	}

	a.conflict(id, conflictSummary(base, next, filename), filename)
	return base
}

// conflictSummary distinguishes incompatible-type conflicts from plain value
// disagreements, which matters for how users fix them.
func conflictSummary(base, next element.Value, filename string) string {
	bp, bok := base.(*element.Prim)
	np, nok := next.(*element.Prim)
	switch {
	case bok && nok && bp.V.Type().Equals(np.V.Type()):
		return fmt.Sprintf("conflicting values (in %s)", filename)
	case bok && nok:
		if unified, _ := convert.Unify([]cty.Type{bp.V.Type(), np.V.Type()}); unified == cty.NilType {
			return fmt.Sprintf("incompatible value types %s and %s (in %s)",
				bp.V.Type().FriendlyName(), np.V.Type().FriendlyName(), filename)
		}
		return fmt.Sprintf("conflicting values of types %s and %s (in %s)",
			bp.V.Type().FriendlyName(), np.V.Type().FriendlyName(), filename)
	default:
		return fmt.Sprintf("conflicting %s and %s values (in %s)", base.Kind(), next.Kind(), filename)
	}
}

func fieldTypeName(f *element.Field) string {
	if f.Container != "" {
		return f.Container + " of " + f.Type.String()
	}
	return f.Type.String()
}

// cloneElement copies an element deeply enough that merging never mutates
// the fragment owned by a parsed file. Values are immutable and shared;
// maps, slices and field structs are copied.
func cloneElement(e *element.Element) *element.Element {
	cp := &element.Element{
		ID:     e.ID,
		Kind:   e.Kind,
		TypeID: e.TypeID,
	}
	if e.Fields != nil {
		cp.Fields = make(map[string]*element.Field, len(e.Fields))
		for name, f := range e.Fields {
			fc := *f
			fc.Annotations = cloneValueMap(f.Annotations)
			cp.Fields[name] = &fc
		}
	}
	cp.FieldOrder = append([]string(nil), e.FieldOrder...)
	cp.Annotations = cloneValueMap(e.Annotations)
	cp.Value = cloneValue(e.Value)
	return cp
}

func cloneValueMap(m map[string]element.Value) map[string]element.Value {
	if m == nil {
		return nil
	}
	cp := make(map[string]element.Value, len(m))
	for k, v := range m {
		cp[k] = cloneValue(v)
	}
	return cp
}

// cloneValue copies container nodes; leaves are immutable and shared.
func cloneValue(v element.Value) element.Value {
	switch tv := v.(type) {
	case *element.List:
		items := make([]element.Value, len(tv.Items))
		for i, item := range tv.Items {
			items[i] = cloneValue(item)
		}
		return &element.List{Items: items}
	case *element.Record:
		return &element.Record{Fields: cloneValueMap(tv.Fields)}
	default:
		return v
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
