package apply

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nacl-lang/workspace/internal/ctxlog"
	"github.com/nacl-lang/workspace/internal/dirstore"
	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/nacl-lang/workspace/internal/hclparser"
	"github.com/nacl-lang/workspace/internal/merge"
	"github.com/nacl-lang/workspace/internal/parser"
	"github.com/nacl-lang/workspace/internal/refs"
	"github.com/nacl-lang/workspace/internal/staticfiles"
	"github.com/nacl-lang/workspace/internal/state"
)

// Applicator computes and applies text edits for detailed changes.
type Applicator struct {
	invoker *parser.Invoker
	static  *staticfiles.Source
}

// New creates an applicator. static may be nil when the workspace has no
// static file source.
func New(invoker *parser.Invoker, static *staticfiles.Source) *Applicator {
	return &Applicator{invoker: invoker, static: static}
}

// Result is the outcome of applying one change batch.
type Result struct {
	// Files are the re-parsed updated files, ready for ingestion.
	Files []*parser.ParsedFile

	// Failed lists files excluded from the batch because their edits could
	// not be applied. Details are in the log.
	Failed []string
}

// fileGroup is the set of changes targeting one file.
type fileGroup struct {
	filename string
	changes  []DetailedChange
}

// Apply resolves each change to its target files, rewrites the buffers,
// writes them back to the store and re-parses them. A file whose edits fail
// is logged with full context and excluded; the rest of the batch proceeds.
func (a *Applicator) Apply(ctx context.Context, snap *state.Snapshot, store dirstore.Store, changes []DetailedChange) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	result := &Result{}

	groups, err := a.groupByFile(ctx, snap, changes)
	if err != nil {
		return nil, err
	}

	var inputs []parser.Input
	for _, group := range groups {
		before, err := a.loadBuffer(ctx, store, group.filename)
		if err != nil {
			return nil, err
		}

		// Fast path: a brand-new file receiving exactly one whole element
		// needs no parser round trip.
		if before == nil && len(group.changes) == 1 && isWholeElementAdd(group.changes[0]) {
			c := group.changes[0]
			buffer, err := hclparser.DumpElement(c.Element)
			if err != nil {
				a.fail(ctx, result, group, nil, nil, err)
				continue
			}
			if err := store.Set(ctx, dirstore.Entry{Filename: group.filename, Buffer: buffer}); err != nil {
				return nil, err
			}
			synth := hclparser.SyntheticResult(c.Element, group.filename, buffer)
			result.Files = append(result.Files, &parser.ParsedFile{
				Filename:   group.filename,
				Timestamp:  time.Now(),
				Elements:   synth.Elements,
				Referenced: refs.ExtractAll(synth.Elements),
				SourceMap:  synth.SourceMap,
			})
			logger.Debug("created file from whole-element addition", "filename", group.filename, "id", c.ID)
			continue
		}

		var sm parser.SourceMap
		if snap != nil {
			sm = snap.SourceMap(group.filename)
		}
		after, err := a.rewrite(sm, group, before)
		if err != nil {
			a.fail(ctx, result, group, before, after, err)
			continue
		}

		if err := store.Set(ctx, dirstore.Entry{Filename: group.filename, Buffer: after}); err != nil {
			return nil, err
		}
		inputs = append(inputs, parser.Input{Filename: group.filename, Buffer: after, Modified: time.Now()})
		a.cleanupStaticFiles(ctx, group.changes)
	}

	if len(inputs) > 0 {
		parsed, err := a.invoker.ParseAll(ctx, inputs)
		if err != nil {
			return nil, err
		}
		result.Files = append(result.Files, parsed...)
	}
	return result, nil
}

// groupByFile resolves every change to its target files and buckets changes
// per file. Grouping is case-insensitive; among filename variants that only
// differ by case, the lexicographically first one wins.
func (a *Applicator) groupByFile(ctx context.Context, snap *state.Snapshot, changes []DetailedChange) ([]fileGroup, error) {
	logger := ctxlog.FromContext(ctx)
	byKey := map[string]*fileGroup{}

	addTo := func(filename string, c DetailedChange) {
		key := strings.ToLower(filename)
		group, ok := byKey[key]
		if !ok {
			group = &fileGroup{filename: filename}
			byKey[key] = group
		} else if filename < group.filename {
			group.filename = filename
		}
		group.changes = append(group.changes, c)
	}

	for _, c := range changes {
		if err := c.validate(); err != nil {
			logger.Error("skipping invalid change", "change", c.String(), "error", err)
			continue
		}
		if c.Filename != "" {
			addTo(c.Filename, c)
			continue
		}
		targets := a.resolveFiles(snap, c)
		if len(targets) == 0 {
			logger.Error("skipping change with no resolvable target file", "change", c.String())
			continue
		}
		for _, fn := range targets {
			addTo(fn, c)
		}
	}

	groups := make([]fileGroup, 0, len(byKey))
	for _, g := range byKey {
		// A file already known to the snapshot keeps its exact name, so
		// source map and store lookups hit; the lexicographically-first
		// variant only names brand-new files.
		if snap != nil {
			for fn := range snap.Files {
				if strings.EqualFold(fn, g.filename) {
					g.filename = fn
					break
				}
			}
		}
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].filename < groups[j].filename })
	return groups, nil
}

// resolveFiles finds the files a change applies to: the files contributing
// to the target's owning element whose source map covers the change's path
// (for additions, the deepest existing ancestor path).
func (a *Applicator) resolveFiles(snap *state.Snapshot, c DetailedChange) []string {
	if snap == nil {
		return nil
	}
	// The owning element can sit at any prefix depth: "t.inst.f" belongs to
	// the element "t.inst", not to "t".
	candidates := map[string]struct{}{}
	for _, prefix := range c.ID.Prefixes() {
		for _, fn := range snap.Indices.ElementFiles(prefix.String()) {
			candidates[fn] = struct{}{}
		}
	}
	names := make([]string, 0, len(candidates))
	for fn := range candidates {
		names = append(names, fn)
	}
	sort.Strings(names)

	var out []string
	for _, fn := range names {
		sm := snap.SourceMap(fn)
		if sm == nil {
			continue
		}
		if c.Action == merge.ActionAdd {
			// Additions land where the direct parent is declared; matching
			// any ancestor would also hit the file declaring the type.
			if len(sm.Ranges(c.ID.Parent())) > 0 {
				out = append(out, fn)
			}
			continue
		}
		if len(sm.Ranges(c.ID)) > 0 {
			out = append(out, fn)
		}
	}
	return out
}

func (a *Applicator) loadBuffer(ctx context.Context, store dirstore.Store, filename string) ([]byte, error) {
	entry, err := store.Get(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filename, err)
	}
	if entry == nil {
		return nil, nil
	}
	return entry.Buffer, nil
}

// fail records a per-file apply failure with enough context to reconstruct
// what was attempted.
func (a *Applicator) fail(ctx context.Context, result *Result, group fileGroup, before, after []byte, err error) {
	attrs := []any{
		"filename", group.filename,
		"error", err,
		"before", string(before),
		"after", string(after),
	}
	for _, c := range group.changes {
		attrs = append(attrs, "change", c.String())
	}
	ctxlog.FromContext(ctx).Error("excluding file from update batch", attrs...)
	result.Failed = append(result.Failed, group.filename)
}

// cleanupStaticFiles deletes the blobs referenced by removed values.
func (a *Applicator) cleanupStaticFiles(ctx context.Context, changes []DetailedChange) {
	if a.static == nil {
		return
	}
	logger := ctxlog.FromContext(ctx)
	for _, c := range changes {
		if c.Action != merge.ActionRemove || c.Before == nil {
			continue
		}
		for _, ref := range staticfiles.CollectRefs(c.Before) {
			if err := a.static.Delete(ctx, ref); err != nil {
				logger.Warn("failed to delete static file", "ref", ref, "error", err)
			}
		}
	}
}

// deepestAncestor finds the longest strict prefix of id that has a recorded
// range in the source map.
func deepestAncestor(sm parser.SourceMap, id elemid.ID) (parser.SourceRange, bool) {
	prefixes := id.Prefixes()
	// Longest first, skipping id itself.
	for i := len(prefixes) - 2; i >= 0; i-- {
		if ranges := sm.Ranges(prefixes[i]); len(ranges) > 0 {
			return ranges[0], true
		}
	}
	return parser.SourceRange{}, false
}
