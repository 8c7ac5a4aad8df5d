package state

import (
	"sort"

	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/index"
	"github.com/nacl-lang/workspace/internal/merge"
	"github.com/nacl-lang/workspace/internal/parser"
)

// Snapshot is one immutable, fully consistent view of the workspace. None of
// its maps may be mutated after publication; transitions build fresh ones.
type Snapshot struct {
	// Files is the authoritative parsed-file map. Everything else is derived
	// from it.
	Files map[string]*parser.ParsedFile

	// Merge holds the merged elements and per-identity merge errors.
	Merge *merge.Result

	// Indices are the derived cross-file lookup tables.
	Indices *index.Indices
}

// Merged returns the merged element for an identity, or nil.
func (s *Snapshot) Merged(id string) *element.Merged {
	return s.Merge.Merged[id]
}

// ListIDs returns every merged element identity in sorted order.
func (s *Snapshot) ListIDs() []string {
	ids := make([]string, 0, len(s.Merge.Merged))
	for id := range s.Merge.Merged {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ParseErrors collects the per-file parse errors, ordered by filename.
func (s *Snapshot) ParseErrors() []parser.ParseError {
	filenames := make([]string, 0, len(s.Files))
	for fn := range s.Files {
		filenames = append(filenames, fn)
	}
	sort.Strings(filenames)

	var out []parser.ParseError
	for _, fn := range filenames {
		out = append(out, s.Files[fn].Errors...)
	}
	return out
}

// MergeErrors returns the merge errors in deterministic order.
func (s *Snapshot) MergeErrors() []merge.Error {
	return s.Merge.AllErrors()
}

// SourceMap returns the source map of one file, or nil if the file is not
// part of the snapshot.
func (s *Snapshot) SourceMap(filename string) parser.SourceMap {
	f, ok := s.Files[filename]
	if !ok {
		return nil
	}
	return f.SourceMap
}
