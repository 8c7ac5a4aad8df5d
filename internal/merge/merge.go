package merge

import (
	"fmt"
	"sort"

	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/elemid"
)

// Fragment is one file's contribution to a logical element.
type Fragment struct {
	Filename string
	Element  *element.Element
}

// Error is a semantic conflict between fragments of one identity. ID
// addresses the conflicting value (possibly nested); Files lists the
// fragments involved.
type Error struct {
	ID      elemid.ID
	Summary string
	Files   []string
}

// Error implements the error interface.
func (e Error) Error() string {
	return fmt.Sprintf("merge conflict on %s: %s", e.ID, e.Summary)
}

// Result is the merged view of a set of fragments. Errors are keyed by the
// owning element's identity so incremental updates can drop and replace them
// per element.
type Result struct {
	Merged map[string]*element.Merged
	Errors map[string][]Error
}

// Action describes how a merged element changed across an update.
type Action string

const (
	ActionAdd    Action = "add"
	ActionModify Action = "modify"
	ActionRemove Action = "remove"
)

// Change is one semantic change to the merged-element map.
type Change struct {
	ID     elemid.ID
	Action Action
}

// AllErrors flattens the per-element errors into one deterministic list.
func (r *Result) AllErrors() []Error {
	keys := make([]string, 0, len(r.Errors))
	for k := range r.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Error
	for _, k := range keys {
		out = append(out, r.Errors[k]...)
	}
	return out
}

// Full merges every fragment globally. This is the cold-start path.
func Full(fragments []Fragment) *Result {
	result := &Result{Merged: map[string]*element.Merged{}, Errors: map[string][]Error{}}
	for id, group := range groupByID(fragments) {
		merged, errs := mergeOne(group)
		result.Merged[id] = merged
		if len(errs) > 0 {
			result.Errors[id] = errs
		}
	}
	return result
}

// Incremental recomputes only the affected identities on top of a previous
// result. fragments must hold every fragment of every affected identity
// (drawn from all files still contributing to them); identities with no
// remaining fragments are removed. Unaffected entries carry over untouched.
// The returned change list covers adds, removes, and content modifications.
func Incremental(prev *Result, fragments []Fragment, affected []elemid.ID) (*Result, []Change) {
	next := &Result{
		Merged: make(map[string]*element.Merged, len(prev.Merged)),
		Errors: make(map[string][]Error, len(prev.Errors)),
	}
	for id, m := range prev.Merged {
		next.Merged[id] = m
	}
	for id, errs := range prev.Errors {
		next.Errors[id] = errs
	}

	groups := groupByID(onlyAffected(fragments, affected))

	var changes []Change
	for _, id := range affected {
		key := id.String()
		old, existed := next.Merged[key]
		delete(next.Errors, key)

		group, hasFragments := groups[key]
		if !hasFragments {
			if existed {
				delete(next.Merged, key)
				changes = append(changes, Change{ID: id, Action: ActionRemove})
			}
			continue
		}

		merged, errs := mergeOne(group)
		next.Merged[key] = merged
		if len(errs) > 0 {
			next.Errors[key] = errs
		}

		switch {
		case !existed:
			changes = append(changes, Change{ID: id, Action: ActionAdd})
		case !element.Equal(&old.Element, &merged.Element):
			changes = append(changes, Change{ID: id, Action: ActionModify})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].ID.String() < changes[j].ID.String() })
	return next, changes
}

// groupByID buckets fragments per element identity, each bucket sorted by
// filename so folding order is stable.
func groupByID(fragments []Fragment) map[string][]Fragment {
	groups := map[string][]Fragment{}
	for _, f := range fragments {
		key := f.Element.ID.String()
		groups[key] = append(groups[key], f)
	}
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool { return group[i].Filename < group[j].Filename })
	}
	return groups
}

func onlyAffected(fragments []Fragment, affected []elemid.ID) []Fragment {
	keep := make(map[string]struct{}, len(affected))
	for _, id := range affected {
		keep[id.String()] = struct{}{}
	}
	out := make([]Fragment, 0, len(fragments))
	for _, f := range fragments {
		if _, ok := keep[f.Element.ID.String()]; ok {
			out = append(out, f)
		}
	}
	return out
}
