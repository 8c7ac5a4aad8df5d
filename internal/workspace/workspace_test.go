package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nacl-lang/workspace/internal/apply"
	"github.com/nacl-lang/workspace/internal/config"
	"github.com/nacl-lang/workspace/internal/dirstore"
	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/nacl-lang/workspace/internal/merge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(t *testing.T, files map[string]string) *Workspace {
	t.Helper()
	w := New(Options{})
	entries := make([]dirstore.Entry, 0, len(files))
	for fn, src := range files {
		entries = append(entries, dirstore.Entry{Filename: fn, Buffer: []byte(src)})
	}
	if len(entries) > 0 {
		_, err := w.SetNaclFiles(context.Background(), entries...)
		require.NoError(t, err)
	}
	return w
}

func idStrings(ids []elemid.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func TestWorkspace_EndToEnd(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, map[string]string{
		"a.nacl": "type t {}\n",
		"b.nacl": "t instance {\n  field = \"x\"\n}\n",
	})

	ids, err := w.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "t.instance"}, idStrings(ids))

	// Rewriting b.nacl without the instance drops it everywhere.
	changes, err := w.SetNaclFiles(ctx, dirstore.Entry{Filename: "b.nacl", Buffer: []byte("")})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, merge.ActionRemove, changes[0].Action)

	got, err := w.Get(ctx, elemid.New("t", "instance"))
	require.NoError(t, err)
	assert.Nil(t, got)

	files, err := w.GetElementNaclFiles(ctx, elemid.New("t", "instance"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestWorkspace_ReferenceCompleteness(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, map[string]string{
		"types.nacl": "type T {\n  number f {}\n}\n",
		"inst.nacl":  "T instance {\n  f = 4\n}\n",
	})

	files, err := w.GetElementReferencedFiles(ctx, elemid.New("T"))
	require.NoError(t, err)
	assert.Contains(t, files, "inst.nacl")

	// The type's own file references its field types, not itself.
	numberRefs, err := w.GetElementReferencedFiles(ctx, elemid.New("number"))
	require.NoError(t, err)
	assert.Contains(t, numberRefs, "types.nacl")
}

func TestWorkspace_MergeConflictAndFix(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, map[string]string{
		"a.nacl": "t inst {\n  f = \"text\"\n}\n",
		"b.nacl": "t inst {\n  f = 4\n}\n",
	})

	errs, err := w.Errors(ctx)
	require.NoError(t, err)
	require.Len(t, errs.Merge, 1)
	assert.Equal(t, "t.inst.f", errs.Merge[0].ID.String())

	_, err = w.RemoveNaclFiles(ctx, "b.nacl")
	require.NoError(t, err)

	errs, err = w.Errors(ctx)
	require.NoError(t, err)
	assert.False(t, errs.HasErrors(), "removing the conflicting fragment must clear the error")
}

func TestWorkspace_UpdateNaclFiles(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, map[string]string{
		"inst.nacl": "t one {\n  f = \"old\"\n}\n",
	})

	changes, failed, err := w.UpdateNaclFiles(ctx, []apply.DetailedChange{{
		ID:     elemid.New("t", "one", "f"),
		Action: merge.ActionModify,
		After:  element.StringVal("new"),
	}})
	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, changes, 1)
	assert.Equal(t, merge.ActionModify, changes[0].Action)

	merged, err := w.Get(ctx, elemid.New("t", "one"))
	require.NoError(t, err)
	require.NotNil(t, merged)
	record := merged.Value.(*element.Record)
	assert.True(t, element.ValuesEqual(element.StringVal("new"), record.Fields["f"]))

	// The stored buffer was rewritten too, not just the snapshot.
	entry, err := w.GetNaclFile(ctx, "inst.nacl")
	require.NoError(t, err)
	assert.Contains(t, string(entry.Buffer), `f = "new"`)
}

func TestWorkspace_SourceQueries(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, map[string]string{
		"a.nacl": "type t {\n  string f {}\n}\n",
	})

	sm, err := w.GetSourceMap(ctx, "a.nacl")
	require.NoError(t, err)
	require.NotNil(t, sm)
	assert.NotEmpty(t, sm.Ranges(elemid.New("t", "f")))

	ranges, err := w.GetSourceRanges(ctx, elemid.New("t"))
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, "a.nacl", ranges[0].Filename)
	assert.Equal(t, 1, ranges[0].Start.Line)

	missing, err := w.GetSourceMap(ctx, "ghost.nacl")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWorkspace_ClearInvariant(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, map[string]string{"a.nacl": "type t {}\n"})

	err := w.Clear(ctx, ClearOptions{StaticResources: true})
	assert.ErrorIs(t, err, ErrClearPartial)
	err = w.Clear(ctx, ClearOptions{StaticResources: true, Nacl: true})
	assert.ErrorIs(t, err, ErrClearPartial)

	// The rejected calls must not have touched anything.
	ids, err := w.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	require.NoError(t, w.Clear(ctx, ClearOptions{Nacl: true, Cache: true, StaticResources: true}))
	empty, err := w.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	ids, err = w.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestWorkspace_CloneIsIndependent(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, map[string]string{"a.nacl": "type t {}\n"})

	clone := w.Clone()
	_, err := clone.SetNaclFiles(ctx, dirstore.Entry{Filename: "b.nacl", Buffer: []byte("type u {}\n")})
	require.NoError(t, err)

	ids, err := w.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, idStrings(ids))

	cloneIDs, err := clone.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "u"}, idStrings(cloneIDs))
}

func TestWorkspace_ConcurrentMutationsAllLand(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil)

	files := []string{"a.nacl", "b.nacl", "c.nacl", "d.nacl"}
	decls := []string{"type ta {}\n", "type tb {}\n", "type tc {}\n", "type td {}\n"}

	var wg sync.WaitGroup
	for i := range files {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.SetNaclFiles(ctx, dirstore.Entry{Filename: files[i], Buffer: []byte(decls[i])})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ids, err := w.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ta", "tb", "tc", "td"}, idStrings(ids))
}

func TestWorkspace_GetAll(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, map[string]string{
		"a.nacl": "type t {}\nt one {}\n",
	})

	all, err := w.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "t", all[0].ID.String())
	assert.Equal(t, "t.one", all[1].ID.String())
}

func TestOpen_DiskWorkspaceRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.nacl"), []byte("type t {}\n"), 0o644))

	settings := config.Default()
	settings.CachePath = "" // in-memory cache keeps the test hermetic
	w, err := Open(root, settings)
	require.NoError(t, err)

	ids, err := w.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, idStrings(ids))

	_, err = w.SetNaclFiles(ctx, dirstore.Entry{Filename: "b.nacl", Buffer: []byte("type u {}\n")})
	require.NoError(t, err)
	require.NoError(t, w.Flush(ctx))

	onDisk, err := os.ReadFile(filepath.Join(root, "b.nacl"))
	require.NoError(t, err)
	assert.Equal(t, "type u {}\n", string(onDisk))
}
