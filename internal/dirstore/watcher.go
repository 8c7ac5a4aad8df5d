package dirstore

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nacl-lang/workspace/internal/ctxlog"
)

// Batch is one debounced group of file events, expressed as store-relative
// filenames.
type Batch struct {
	Changed []string
	Removed []string
}

// Watcher watches a Disk store's directory tree and emits debounced event
// batches. One batch per quiet period, with repeated events on the same file
// collapsed to the latest.
type Watcher struct {
	store    *Disk
	fw       *fsnotify.Watcher
	debounce time.Duration
	batches  chan Batch
}

// NewWatcher creates a watcher for the store's directory. Call Start to
// begin delivery and Close to stop it.
func NewWatcher(store *Disk, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		store:    store,
		fw:       fw,
		debounce: debounce,
		batches:  make(chan Batch, 1),
	}, nil
}

// Batches delivers the debounced event batches. The channel closes when the
// watcher stops.
func (w *Watcher) Batches() <-chan Batch {
	return w.batches
}

// Start adds watches for the whole directory tree and begins processing
// events until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	root := w.store.Root()
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		return w.fw.Add(path)
	})
	if err != nil {
		return err
	}
	go w.run(ctx)
	return nil
}

// Close stops event delivery.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.batches)
	logger := ctxlog.FromContext(ctx)

	changed := map[string]struct{}{}
	removed := map[string]struct{}{}
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.handle(ev, changed, removed) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Stop()
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher error", "error", err)

		case <-fire:
			fire = nil
			if len(changed) == 0 && len(removed) == 0 {
				continue
			}
			batch := Batch{Changed: sortedSet(changed), Removed: sortedSet(removed)}
			changed = map[string]struct{}{}
			removed = map[string]struct{}{}
			select {
			case w.batches <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handle folds one raw event into the pending batch, reporting whether it
// recorded anything.
func (w *Watcher) handle(ev fsnotify.Event, changed, removed map[string]struct{}) bool {
	rel, err := filepath.Rel(w.store.Root(), ev.Name)
	if err != nil {
		return false
	}
	name := filepath.ToSlash(rel)

	info, statErr := os.Stat(ev.Name)
	if statErr != nil {
		// Gone from disk: a removal if we would have tracked it.
		if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && w.store.Matches(name) {
			delete(changed, name)
			removed[name] = struct{}{}
			return true
		}
		return false
	}

	if info.IsDir() {
		if ev.Op&fsnotify.Create != 0 {
			_ = w.fw.Add(ev.Name)
		}
		return false
	}

	if !w.store.Matches(name) {
		return false
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		delete(removed, name)
		changed[name] = struct{}{}
		return true
	}
	return false
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
