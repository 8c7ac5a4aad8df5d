package staticfiles

import (
	"context"
	"sort"
	"strings"

	"github.com/nacl-lang/workspace/internal/dirstore"
	"github.com/nacl-lang/workspace/internal/element"
	"github.com/zclconf/go-cty/cty"
)

// Prefix marks a string value as a static file reference.
const Prefix = "file://"

// IsRef reports whether a string value points at a static file.
func IsRef(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

// RefTo builds the reference string for a blob path.
func RefTo(path string) string {
	return Prefix + path
}

// PathOf extracts the blob path from a reference string.
func PathOf(ref string) (string, bool) {
	if !IsRef(ref) {
		return "", false
	}
	return strings.TrimPrefix(ref, Prefix), true
}

// Source stores static file content addressed by reference.
type Source struct {
	store dirstore.Store
}

// NewSource wraps a store as a static file source.
func NewSource(store dirstore.Store) *Source {
	return &Source{store: store}
}

// Get returns a blob's content, or (nil, nil) when the reference does not
// resolve.
func (s *Source) Get(ctx context.Context, ref string) ([]byte, error) {
	path, ok := PathOf(ref)
	if !ok {
		return nil, nil
	}
	entry, err := s.store.Get(ctx, path)
	if err != nil || entry == nil {
		return nil, err
	}
	return entry.Buffer, nil
}

// Set stores a blob under the given reference.
func (s *Source) Set(ctx context.Context, ref string, content []byte) error {
	path, ok := PathOf(ref)
	if !ok {
		return nil
	}
	return s.store.Set(ctx, dirstore.Entry{Filename: path, Buffer: content})
}

// Delete removes the blob a reference points at. Unknown references are
// ignored.
func (s *Source) Delete(ctx context.Context, ref string) error {
	path, ok := PathOf(ref)
	if !ok {
		return nil
	}
	return s.store.Delete(ctx, path)
}

// Clear removes every blob.
func (s *Source) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// Flush persists buffered mutations.
func (s *Source) Flush(ctx context.Context) error {
	return s.store.Flush(ctx)
}

// Rename moves the static directory along with a workspace rename.
func (s *Source) Rename(ctx context.Context, newName string) error {
	return s.store.Rename(ctx, newName)
}

// TotalSize is the combined size of all blobs.
func (s *Source) TotalSize(ctx context.Context) (int64, error) {
	return s.store.TotalSize(ctx)
}

// IsEmpty reports whether any blobs exist.
func (s *Source) IsEmpty(ctx context.Context) (bool, error) {
	return s.store.IsEmpty(ctx)
}

// Clone returns an independent source over a clone of the backing store.
func (s *Source) Clone() *Source {
	return &Source{store: s.store.Clone()}
}

// CollectRefs walks a value tree and returns every static file reference in
// it, sorted and deduplicated.
func CollectRefs(v element.Value) []string {
	set := map[string]struct{}{}
	collectRefs(v, set)
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for ref := range set {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

func collectRefs(v element.Value, set map[string]struct{}) {
	switch tv := v.(type) {
	case *element.Prim:
		if tv.V.Type() == cty.String && !tv.V.IsNull() && IsRef(tv.V.AsString()) {
			set[tv.V.AsString()] = struct{}{}
		}
	case *element.List:
		for _, item := range tv.Items {
			collectRefs(item, set)
		}
	case *element.Record:
		for _, fv := range tv.Fields {
			collectRefs(fv, set)
		}
	}
}
