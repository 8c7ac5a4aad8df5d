package state

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/nacl-lang/workspace/internal/ctxlog"
	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/nacl-lang/workspace/internal/index"
	"github.com/nacl-lang/workspace/internal/merge"
	"github.com/nacl-lang/workspace/internal/parser"
)

// Manager owns the current snapshot. Reads are lock-free loads of the last
// published snapshot; Ingest computes and publishes the next one.
type Manager struct {
	current atomic.Pointer[Snapshot]
}

// NewManager creates an uninitialized manager: Current returns nil until the
// first ingest.
func NewManager() *Manager {
	return &Manager{}
}

// Current returns the latest published snapshot, or nil when uninitialized.
func (m *Manager) Current() *Snapshot {
	return m.current.Load()
}

// Clear discards the snapshot, returning the manager to uninitialized.
func (m *Manager) Clear() {
	m.current.Store(nil)
}

// Ingest overlays a batch of freshly parsed files onto the current state and
// publishes the next snapshot, returning the semantic changes to the merged
// elements. Files that parse to nothing at all (no elements, no errors) are
// tombstones: they are dropped from the file map entirely.
//
// The first ingest is the cold-start path and must carry every file; later
// ingests re-merge only the transitively affected identities. Callers must
// serialize Ingest invocations.
func (m *Manager) Ingest(ctx context.Context, changed []*parser.ParsedFile) ([]merge.Change, error) {
	logger := ctxlog.FromContext(ctx)

	prev := m.current.Load()
	if prev == nil {
		snap, changes := coldStart(changed)
		m.current.Store(snap)
		logger.Debug("cold-start ingest complete", "files", len(snap.Files), "elements", len(snap.Merge.Merged))
		return changes, nil
	}

	snap, changes := nextSnapshot(prev, changed)
	m.current.Store(snap)
	logger.Debug("warm ingest complete",
		"changed_files", len(changed), "files", len(snap.Files), "changes", len(changes))
	return changes, nil
}

// coldStart merges everything globally; there is no previous state to diff
// against.
func coldStart(files []*parser.ParsedFile) (*Snapshot, []merge.Change) {
	fileMap := make(map[string]*parser.ParsedFile, len(files))
	for _, f := range files {
		if f.IsTombstone() {
			continue
		}
		fileMap[f.Filename] = f
	}

	result := merge.Full(allFragments(fileMap))
	snap := &Snapshot{
		Files:   fileMap,
		Merge:   result,
		Indices: index.Build(fileMap),
	}

	changes := make([]merge.Change, 0, len(result.Merged))
	for _, m := range result.Merged {
		changes = append(changes, merge.Change{ID: m.ID, Action: merge.ActionAdd})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].ID.String() < changes[j].ID.String() })
	return snap, changes
}

// nextSnapshot is the warm path.
func nextSnapshot(prev *Snapshot, changed []*parser.ParsedFile) (*Snapshot, []merge.Change) {
	// Overlay the changed files onto a fresh file map, tombstoning files
	// that became empty.
	files := make(map[string]*parser.ParsedFile, len(prev.Files)+len(changed))
	for fn, f := range prev.Files {
		files[fn] = f
	}
	for _, f := range changed {
		if f.IsTombstone() {
			delete(files, f.Filename)
		} else {
			files[f.Filename] = f
		}
	}

	// The indices are a pure function of the whole file map. The rebuild is
	// necessarily global: removing one file can change which files now
	// solely own a previously shared identity.
	indices := index.Build(files)

	// Affected identities: everything the changed files now declare, plus
	// everything they declared before. The union captures identities that
	// vanished from a file as well as newly appearing ones.
	affectedSet := map[string]elemid.ID{}
	for _, f := range changed {
		for _, e := range f.Elements {
			affectedSet[e.ID.String()] = e.ID
		}
		if old, ok := prev.Files[f.Filename]; ok {
			for _, e := range old.Elements {
				affectedSet[e.ID.String()] = e.ID
			}
		}
	}
	affected := make([]elemid.ID, 0, len(affectedSet))
	for _, id := range affectedSet {
		affected = append(affected, id)
	}
	sort.Slice(affected, func(i, j int) bool { return affected[i].String() < affected[j].String() })

	// Relevant files: every file contributing a fragment to any affected
	// identity. This can reach outside the change set, because a removed
	// fragment forces a re-merge of the remaining sibling fragments.
	relevant := map[string]struct{}{}
	for id := range affectedSet {
		for _, fn := range indices.ElementFiles(id) {
			relevant[fn] = struct{}{}
		}
	}

	fragments := affectedFragments(files, relevant, affectedSet)
	result, changes := merge.Incremental(prev.Merge, fragments, affected)

	return &Snapshot{Files: files, Merge: result, Indices: indices}, changes
}

// allFragments flattens a file map into merge fragments.
func allFragments(files map[string]*parser.ParsedFile) []merge.Fragment {
	var out []merge.Fragment
	for fn, f := range files {
		for _, e := range f.Elements {
			out = append(out, merge.Fragment{Filename: fn, Element: e})
		}
	}
	return out
}

func affectedFragments(files map[string]*parser.ParsedFile, relevant map[string]struct{}, affected map[string]elemid.ID) []merge.Fragment {
	var out []merge.Fragment
	for fn := range relevant {
		f, ok := files[fn]
		if !ok {
			continue
		}
		for _, e := range f.Elements {
			if _, ok := affected[e.ID.String()]; ok {
				out = append(out, merge.Fragment{Filename: fn, Element: e})
			}
		}
	}
	return out
}
