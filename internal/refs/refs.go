package refs

import (
	"sort"

	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/elemid"
)

// Extract returns the identities the given element depends on, sorted by
// canonical name and de-duplicated:
//
//   - every declared field type of a type declaration,
//   - the type of an instance,
//   - every reference found in the value tree, contributing the referenced
//     identity and all of its path prefixes (a reference to a.b.c also marks
//     a and a.b as referenced),
//   - every type reference in the value tree, contributing just its identity.
//
// The walk is total over the closed value union and never revisits the same
// substructure twice.
func Extract(e *element.Element) []elemid.ID {
	w := &walker{found: map[string]elemid.ID{}, seen: map[element.Value]struct{}{}}

	for _, f := range e.Fields {
		w.addType(f.Type)
		for _, v := range f.Annotations {
			w.walk(v)
		}
	}
	if !e.TypeID.IsEmpty() {
		w.addType(e.TypeID)
	}
	for _, v := range e.Annotations {
		w.walk(v)
	}
	w.walk(e.Value)

	out := make([]elemid.ID, 0, len(w.found))
	for _, id := range w.found {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// ExtractAll unions Extract over several elements.
func ExtractAll(elements []*element.Element) []elemid.ID {
	merged := map[string]elemid.ID{}
	for _, e := range elements {
		for _, id := range Extract(e) {
			merged[id.String()] = id
		}
	}
	out := make([]elemid.ID, 0, len(merged))
	for _, id := range merged {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

type walker struct {
	found map[string]elemid.ID
	seen  map[element.Value]struct{}
}

// addType records a type use. Field types arrive already collapsed to their
// innermost element type, so only the identity itself is marked.
func (w *walker) addType(id elemid.ID) {
	if id.IsEmpty() {
		return
	}
	w.found[id.String()] = id
}

// addRef records a reference along with every prefix on its path.
func (w *walker) addRef(id elemid.ID) {
	for _, prefix := range id.Prefixes() {
		w.found[prefix.String()] = prefix
	}
}

func (w *walker) walk(v element.Value) {
	if v == nil {
		return
	}
	if _, ok := w.seen[v]; ok {
		return
	}
	w.seen[v] = struct{}{}

	switch tv := v.(type) {
	case *element.Prim:
		// Scalars carry no identities.
	case *element.List:
		for _, item := range tv.Items {
			w.walk(item)
		}
	case *element.Record:
		for _, fv := range tv.Fields {
			w.walk(fv)
		}
	case *element.Ref:
		w.addRef(tv.Target)
	case *element.TypeRef:
		w.addType(tv.Target)
	}
}
