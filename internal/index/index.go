package index

import (
	"sort"

	"github.com/nacl-lang/workspace/internal/parser"
)

// Indices are the derived cross-file lookup tables, keyed by canonical
// identity string. Filename lists are sorted and duplicate-free.
type Indices struct {
	// Elements maps an element identity to the files contributing fragments
	// to it.
	Elements map[string][]string
	// Referenced maps an identity to the files whose elements reference it.
	Referenced map[string][]string
}

// Build computes both indices from the full parsed-file map. The result is
// identical regardless of map iteration order: accumulation is set-based and
// the sets convert to sorted slices at the end.
func Build(files map[string]*parser.ParsedFile) *Indices {
	elements := map[string]map[string]struct{}{}
	referenced := map[string]map[string]struct{}{}

	for filename, file := range files {
		for _, e := range file.Elements {
			addTo(elements, e.ID.String(), filename)
		}
		for _, id := range file.Referenced {
			addTo(referenced, id.String(), filename)
		}
	}

	return &Indices{
		Elements:   collapse(elements),
		Referenced: collapse(referenced),
	}
}

// ElementFiles returns the files contributing to an identity, or nil.
func (ix *Indices) ElementFiles(id string) []string {
	return ix.Elements[id]
}

// ReferencingFiles returns the files whose elements reference an identity,
// or nil.
func (ix *Indices) ReferencingFiles(id string) []string {
	return ix.Referenced[id]
}

func addTo(m map[string]map[string]struct{}, key, filename string) {
	set, ok := m[key]
	if !ok {
		set = map[string]struct{}{}
		m[key] = set
	}
	set[filename] = struct{}{}
}

func collapse(m map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(m))
	for key, set := range m {
		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)
		out[key] = names
	}
	return out
}
