package dirstore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Disk is a Store over a directory tree. Mutations are buffered in memory
// and written out on Flush, so reads see buffered state layered over the
// files currently on disk.
type Disk struct {
	mu        sync.Mutex
	root      string
	extension string
	includes  []string

	// pending maps filename to a buffered write, or nil for a buffered
	// deletion.
	pending map[string]*Entry
}

// NewDisk creates a store rooted at root. Only files with the given
// extension are visible; when includes patterns are given, a file must also
// match at least one of them (doublestar syntax, relative to root).
func NewDisk(root, extension string, includes []string) *Disk {
	return &Disk{
		root:      root,
		extension: extension,
		includes:  includes,
		pending:   map[string]*Entry{},
	}
}

// Root returns the directory the store reads from.
func (d *Disk) Root() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root
}

// Matches reports whether a filename belongs to this store.
func (d *Disk) Matches(filename string) bool {
	if d.extension != "" && !strings.HasSuffix(filename, d.extension) {
		return false
	}
	if len(d.includes) == 0 {
		return true
	}
	for _, pattern := range d.includes {
		if ok, err := doublestar.Match(pattern, filename); err == nil && ok {
			return true
		}
	}
	return false
}

func (d *Disk) List(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listLocked()
}

func (d *Disk) listLocked() ([]string, error) {
	onDisk, err := d.walkFiles()
	if err != nil {
		return nil, err
	}
	for fn, e := range d.pending {
		if e == nil {
			delete(onDisk, fn)
		} else {
			onDisk[fn] = struct{}{}
		}
	}
	names := make([]string, 0, len(onDisk))
	for fn := range onDisk {
		names = append(names, fn)
	}
	sort.Strings(names)
	return names, nil
}

func (d *Disk) Get(ctx context.Context, filename string) (*Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getLocked(filename)
}

func (d *Disk) getLocked(filename string) (*Entry, error) {
	if e, ok := d.pending[filename]; ok {
		if e == nil {
			return nil, nil
		}
		cp := copyEntry(*e)
		return &cp, nil
	}
	if !d.Matches(filename) {
		return nil, nil
	}

	path := filepath.Join(d.root, filepath.FromSlash(filename))
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	modified := time.Now()
	if info, err := os.Stat(path); err == nil {
		modified = info.ModTime()
	}
	return &Entry{Filename: filename, Buffer: buf, Modified: modified}, nil
}

func (d *Disk) GetFiles(ctx context.Context, filenames []string) ([]*Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Entry, len(filenames))
	for i, fn := range filenames {
		e, err := d.getLocked(fn)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (d *Disk) Set(ctx context.Context, entries ...Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range entries {
		cp := copyEntry(e)
		if cp.Modified.IsZero() {
			cp.Modified = time.Now()
		}
		d.pending[e.Filename] = &cp
	}
	return nil
}

func (d *Disk) Delete(ctx context.Context, filenames ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, fn := range filenames {
		d.pending[fn] = nil
	}
	return nil
}

// Clear buffers a deletion for every file currently visible; nothing touches
// disk until Flush.
func (d *Disk) Clear(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	names, err := d.listLocked()
	if err != nil {
		return err
	}
	for _, fn := range names {
		d.pending[fn] = nil
	}
	return nil
}

// Rename flushes buffered mutations and moves the whole directory to a
// sibling directory named newName.
func (d *Disk) Rename(ctx context.Context, newName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.flushLocked(); err != nil {
		return err
	}
	newRoot := filepath.Join(filepath.Dir(d.root), newName)
	if _, err := os.Stat(d.root); os.IsNotExist(err) {
		// Nothing on disk yet; just adopt the new root.
		d.root = newRoot
		return nil
	}
	if err := os.Rename(d.root, newRoot); err != nil {
		return fmt.Errorf("renaming store directory: %w", err)
	}
	d.root = newRoot
	return nil
}

func (d *Disk) Flush(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushLocked()
}

func (d *Disk) flushLocked() error {
	for fn, e := range d.pending {
		path := filepath.Join(d.root, filepath.FromSlash(fn))
		if e == nil {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("deleting %s: %w", fn, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", fn, err)
		}
		if err := os.WriteFile(path, e.Buffer, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", fn, err)
		}
	}
	d.pending = map[string]*Entry{}
	return nil
}

func (d *Disk) TotalSize(ctx context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	names, err := d.listLocked()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, fn := range names {
		e, err := d.getLocked(fn)
		if err != nil {
			return 0, err
		}
		if e != nil {
			total += int64(len(e.Buffer))
		}
	}
	return total, nil
}

func (d *Disk) IsEmpty(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	names, err := d.listLocked()
	if err != nil {
		return false, err
	}
	return len(names) == 0, nil
}

// Clone copies the buffered mutations into a new store over the same
// directory. The clone and the original see each other's flushed files but
// not each other's pending ones.
func (d *Disk) Clone() Store {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := NewDisk(d.root, d.extension, append([]string(nil), d.includes...))
	for fn, e := range d.pending {
		if e == nil {
			cp.pending[fn] = nil
			continue
		}
		ec := copyEntry(*e)
		cp.pending[fn] = &ec
	}
	return cp
}

// walkFiles collects the relative slash paths of every matching file under
// root. A missing root is an empty store, not an error.
func (d *Disk) walkFiles() (map[string]struct{}, error) {
	out := map[string]struct{}{}
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if d.Matches(name) {
			out[name] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", d.root, err)
	}
	return out, nil
}
