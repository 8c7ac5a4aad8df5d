package dirstore

import (
	"context"
	"time"
)

// Entry is one stored file.
type Entry struct {
	Filename string
	Buffer   []byte
	Modified time.Time
}

// Store is a flat, name-addressed file space.
type Store interface {
	// List returns every filename in the store, sorted.
	List(ctx context.Context) ([]string, error)

	// Get returns the named entry, or (nil, nil) when it does not exist.
	Get(ctx context.Context, filename string) (*Entry, error)

	// GetFiles resolves many names at once; missing names yield nil slots.
	GetFiles(ctx context.Context, filenames []string) ([]*Entry, error)

	// Set stores the given entries, replacing existing ones.
	Set(ctx context.Context, entries ...Entry) error

	// Delete removes the named entries. Unknown names are ignored.
	Delete(ctx context.Context, filenames ...string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Rename moves the store to a new name, carrying all content along.
	Rename(ctx context.Context, newName string) error

	// Flush persists buffered mutations. A no-op for stores that do not
	// buffer.
	Flush(ctx context.Context) error

	// TotalSize is the combined byte size of all entries.
	TotalSize(ctx context.Context) (int64, error)

	// IsEmpty reports whether the store holds no entries.
	IsEmpty(ctx context.Context) (bool, error)

	// Clone returns an independent store with a copy of the current
	// content, including unflushed mutations.
	Clone() Store
}
