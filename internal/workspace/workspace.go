package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/nacl-lang/workspace/internal/apply"
	"github.com/nacl-lang/workspace/internal/config"
	"github.com/nacl-lang/workspace/internal/ctxlog"
	"github.com/nacl-lang/workspace/internal/dirstore"
	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/nacl-lang/workspace/internal/hclparser"
	"github.com/nacl-lang/workspace/internal/merge"
	"github.com/nacl-lang/workspace/internal/parsecache"
	"github.com/nacl-lang/workspace/internal/parser"
	"github.com/nacl-lang/workspace/internal/staticfiles"
	"github.com/nacl-lang/workspace/internal/state"
	"github.com/nacl-lang/workspace/internal/taskq"
)

// ErrClearPartial is returned when Clear would remove static resources while
// keeping source files or cache, which would leave dangling references. The
// check runs before any store is touched.
var ErrClearPartial = errors.New("clearing static resources requires clearing source files and cache as well")

// Options configures a workspace. Zero fields get in-memory defaults.
type Options struct {
	Store            dirstore.Store
	Cache            parser.Cache
	Static           *staticfiles.Source
	Parser           parser.Parser
	ParseConcurrency int
}

// Workspace owns the stores and the snapshot state machine.
type Workspace struct {
	store   dirstore.Store
	cache   parser.Cache
	static  *staticfiles.Source
	parser  parser.Parser
	limit   int
	invoker *parser.Invoker
	applier *apply.Applicator
	manager *state.Manager
	queue   *taskq.Queue
}

// New creates a workspace over the given collaborators.
func New(opts Options) *Workspace {
	if opts.Store == nil {
		opts.Store = dirstore.NewMemory()
	}
	if opts.Cache == nil {
		opts.Cache = parsecache.NewMemory()
	}
	if opts.Static == nil {
		opts.Static = staticfiles.NewSource(dirstore.NewMemory())
	}
	if opts.Parser == nil {
		opts.Parser = hclparser.New()
	}

	w := &Workspace{
		store:   opts.Store,
		cache:   opts.Cache,
		static:  opts.Static,
		parser:  opts.Parser,
		limit:   opts.ParseConcurrency,
		manager: state.NewManager(),
		queue:   &taskq.Queue{},
	}
	w.invoker = parser.NewInvoker(opts.Parser, opts.Cache, opts.ParseConcurrency)
	w.applier = apply.New(w.invoker, opts.Static)
	return w
}

// Open wires a workspace from its on-disk layout per the settings.
func Open(root string, settings config.Settings) (*Workspace, error) {
	store := dirstore.NewDisk(filepath.Join(root, settings.SourceDir), settings.Extension, settings.Includes)

	var cache parser.Cache
	if settings.CachePath != "" {
		sqlite, err := parsecache.OpenSQLite(filepath.Join(root, settings.CachePath))
		if err != nil {
			return nil, fmt.Errorf("opening parse cache: %w", err)
		}
		cache = sqlite
	} else {
		cache = parsecache.NewMemory()
	}

	static := staticfiles.NewSource(dirstore.NewDisk(filepath.Join(root, settings.StaticDir), "", nil))

	return New(Options{
		Store:            store,
		Cache:            cache,
		Static:           static,
		ParseConcurrency: settings.ParseConcurrency,
	}), nil
}

// Store exposes the backing source file store, e.g. for a watcher.
func (w *Workspace) Store() dirstore.Store {
	return w.store
}

// snapshot waits for queued mutations, lazily cold-starting on first use.
func (w *Workspace) snapshot(ctx context.Context) (*state.Snapshot, error) {
	if w.manager.Current() == nil {
		if err := w.queue.Do(ctx, w.coldStart); err != nil {
			return nil, err
		}
	} else if err := w.queue.Wait(ctx); err != nil {
		return nil, err
	}
	snap := w.manager.Current()
	if snap == nil {
		return nil, fmt.Errorf("workspace state unavailable")
	}
	return snap, nil
}

// coldStart parses everything in the store and publishes the first snapshot.
// Runs inside the queue; a concurrent cold start degrades to a no-op.
func (w *Workspace) coldStart(ctx context.Context) error {
	if w.manager.Current() != nil {
		return nil
	}
	parsed, err := w.parseStore(ctx)
	if err != nil {
		return err
	}
	_, err = w.manager.Ingest(ctx, parsed)
	return err
}

func (w *Workspace) parseStore(ctx context.Context) ([]*parser.ParsedFile, error) {
	names, err := w.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing source files: %w", err)
	}
	entries, err := w.store.GetFiles(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("reading source files: %w", err)
	}
	inputs := make([]parser.Input, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		inputs = append(inputs, parser.Input{Filename: e.Filename, Buffer: e.Buffer, Modified: e.Modified})
	}
	return w.invoker.ParseAll(ctx, inputs)
}

// GetNaclFile returns one source file's content, or nil when absent.
func (w *Workspace) GetNaclFile(ctx context.Context, filename string) (*dirstore.Entry, error) {
	if err := w.queue.Wait(ctx); err != nil {
		return nil, err
	}
	return w.store.Get(ctx, filename)
}

// SetNaclFiles stores the given file buffers and ingests them, returning the
// semantic changes to the merged elements. An empty buffer removes the
// file's elements (the file itself stays in the store until deleted).
func (w *Workspace) SetNaclFiles(ctx context.Context, entries ...dirstore.Entry) ([]merge.Change, error) {
	var changes []merge.Change
	err := w.queue.Do(ctx, func(ctx context.Context) error {
		if err := w.store.Set(ctx, entries...); err != nil {
			return err
		}
		if w.manager.Current() == nil {
			return w.coldStartReporting(ctx, &changes)
		}
		inputs := make([]parser.Input, 0, len(entries))
		for _, e := range entries {
			inputs = append(inputs, parser.Input{Filename: e.Filename, Buffer: e.Buffer, Modified: e.Modified})
		}
		parsed, err := w.invoker.ParseAll(ctx, inputs)
		if err != nil {
			return err
		}
		changes, err = w.manager.Ingest(ctx, parsed)
		return err
	})
	return changes, err
}

// RemoveNaclFiles deletes source files and ingests their tombstones.
func (w *Workspace) RemoveNaclFiles(ctx context.Context, filenames ...string) ([]merge.Change, error) {
	var changes []merge.Change
	err := w.queue.Do(ctx, func(ctx context.Context) error {
		entries, err := w.store.GetFiles(ctx, filenames)
		if err != nil {
			return err
		}
		if err := w.store.Delete(ctx, filenames...); err != nil {
			return err
		}
		if w.manager.Current() == nil {
			return w.coldStartReporting(ctx, &changes)
		}
		tombstones := make([]*parser.ParsedFile, 0, len(filenames))
		for i, fn := range filenames {
			ts := timeOrNow(entries[i])
			tombstones = append(tombstones, parser.Tombstone(fn, ts))
		}
		changes, err = w.manager.Ingest(ctx, tombstones)
		return err
	})
	return changes, err
}

// UpdateNaclFiles applies path-scoped detailed changes: text edits are
// computed per file, written back, re-parsed, and ingested in one batch.
// Files whose edits fail are logged and skipped; their names come back in
// the second return.
func (w *Workspace) UpdateNaclFiles(ctx context.Context, detailed []apply.DetailedChange) ([]merge.Change, []string, error) {
	var changes []merge.Change
	var failed []string
	err := w.queue.Do(ctx, func(ctx context.Context) error {
		if err := w.coldStart(ctx); err != nil {
			return err
		}
		result, err := w.applier.Apply(ctx, w.manager.Current(), w.store, detailed)
		if err != nil {
			return err
		}
		failed = result.Failed
		if len(result.Files) == 0 {
			return nil
		}
		changes, err = w.manager.Ingest(ctx, result.Files)
		return err
	})
	return changes, failed, err
}

// GetElementNaclFiles lists the files contributing fragments to an element.
func (w *Workspace) GetElementNaclFiles(ctx context.Context, id elemid.ID) ([]string, error) {
	snap, err := w.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Indices.ElementFiles(id.String()), nil
}

// GetElementReferencedFiles lists the files whose elements reference an
// identity.
func (w *Workspace) GetElementReferencedFiles(ctx context.Context, id elemid.ID) ([]string, error) {
	snap, err := w.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Indices.ReferencingFiles(id.String()), nil
}

// GetSourceMap returns one file's source map, or nil when the file is not
// part of the workspace.
func (w *Workspace) GetSourceMap(ctx context.Context, filename string) (parser.SourceMap, error) {
	snap, err := w.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.SourceMap(filename), nil
}

// GetSourceRanges returns every recorded span of an identity across all
// files, ordered by filename.
func (w *Workspace) GetSourceRanges(ctx context.Context, id elemid.ID) ([]parser.SourceRange, error) {
	snap, err := w.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	filenames := make([]string, 0, len(snap.Files))
	for fn := range snap.Files {
		filenames = append(filenames, fn)
	}
	sort.Strings(filenames)

	var out []parser.SourceRange
	for _, fn := range filenames {
		out = append(out, snap.Files[fn].SourceMap.Ranges(id)...)
	}
	return out, nil
}

// Errors is the workspace's accumulated error view.
type Errors struct {
	Parse []parser.ParseError
	Merge []merge.Error
}

// HasErrors reports whether anything is wrong.
func (e *Errors) HasErrors() bool {
	return len(e.Parse) > 0 || len(e.Merge) > 0
}

// Errors returns the current parse and merge errors.
func (w *Workspace) Errors(ctx context.Context) (*Errors, error) {
	snap, err := w.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &Errors{Parse: snap.ParseErrors(), Merge: snap.MergeErrors()}, nil
}

// List returns every merged element identity, sorted.
func (w *Workspace) List(ctx context.Context) ([]elemid.ID, error) {
	snap, err := w.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]elemid.ID, 0, len(snap.Merge.Merged))
	for _, key := range snap.ListIDs() {
		id, err := elemid.Parse(key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Get returns one merged element, or nil when unknown.
func (w *Workspace) Get(ctx context.Context, id elemid.ID) (*element.Merged, error) {
	snap, err := w.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Merged(id.String()), nil
}

// GetAll returns every merged element, sorted by identity.
func (w *Workspace) GetAll(ctx context.Context) ([]*element.Merged, error) {
	snap, err := w.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*element.Merged, 0, len(snap.Merge.Merged))
	for _, key := range snap.ListIDs() {
		out = append(out, snap.Merged(key))
	}
	return out, nil
}

// Flush persists all buffered store state.
func (w *Workspace) Flush(ctx context.Context) error {
	return w.queue.Do(ctx, func(ctx context.Context) error {
		if err := w.store.Flush(ctx); err != nil {
			return err
		}
		if err := w.cache.Flush(ctx); err != nil {
			return err
		}
		return w.static.Flush(ctx)
	})
}

// ClearOptions selects what Clear removes.
type ClearOptions struct {
	Nacl            bool
	Cache           bool
	StaticResources bool
}

// Clear removes the selected parts of the workspace. Clearing static
// resources without also clearing source files and cache is rejected with
// ErrClearPartial before anything is mutated.
func (w *Workspace) Clear(ctx context.Context, opts ClearOptions) error {
	if opts.StaticResources && !(opts.Nacl && opts.Cache) {
		return ErrClearPartial
	}
	return w.queue.Do(ctx, func(ctx context.Context) error {
		logger := ctxlog.FromContext(ctx)
		if opts.Nacl {
			if err := w.store.Clear(ctx); err != nil {
				return err
			}
			w.manager.Clear()
		}
		if opts.Cache {
			if err := w.cache.Clear(ctx); err != nil {
				return err
			}
		}
		if opts.StaticResources {
			if err := w.static.Clear(ctx); err != nil {
				return err
			}
		}
		logger.Debug("cleared workspace",
			"nacl", opts.Nacl, "cache", opts.Cache, "static", opts.StaticResources)
		return nil
	})
}

// Rename moves the workspace's stores to a new name.
func (w *Workspace) Rename(ctx context.Context, newName string) error {
	return w.queue.Do(ctx, func(ctx context.Context) error {
		if err := w.store.Rename(ctx, newName); err != nil {
			return err
		}
		if err := w.cache.Rename(ctx, newName); err != nil {
			return err
		}
		return w.static.Rename(ctx, newName)
	})
}

// Clone returns an independent workspace over cloned stores. The clone
// rebuilds its snapshot lazily from the cloned content.
func (w *Workspace) Clone() *Workspace {
	return New(Options{
		Store:            w.store.Clone(),
		Cache:            w.cache.Clone(),
		Static:           w.static.Clone(),
		Parser:           w.parser,
		ParseConcurrency: w.limit,
	})
}

// IsEmpty reports whether the workspace holds no source files.
func (w *Workspace) IsEmpty(ctx context.Context) (bool, error) {
	if err := w.queue.Wait(ctx); err != nil {
		return false, err
	}
	return w.store.IsEmpty(ctx)
}

// coldStartReporting is coldStart plus the resulting change list, for
// mutations that arrive before the first snapshot exists.
func (w *Workspace) coldStartReporting(ctx context.Context, changes *[]merge.Change) error {
	parsed, err := w.parseStore(ctx)
	if err != nil {
		return err
	}
	cs, err := w.manager.Ingest(ctx, parsed)
	if err != nil {
		return err
	}
	*changes = cs
	return nil
}

func timeOrNow(e *dirstore.Entry) time.Time {
	if e != nil {
		return e.Modified
	}
	return time.Now()
}
