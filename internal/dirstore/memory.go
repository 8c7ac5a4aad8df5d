package dirstore

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-memory Store. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	name    string
	entries map[string]Entry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: map[string]Entry{}}
}

func (m *Memory) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) Get(ctx context.Context, filename string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[filename]
	if !ok {
		return nil, nil
	}
	cp := copyEntry(e)
	return &cp, nil
}

func (m *Memory) GetFiles(ctx context.Context, filenames []string) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Entry, len(filenames))
	for i, fn := range filenames {
		if e, ok := m.entries[fn]; ok {
			cp := copyEntry(e)
			out[i] = &cp
		}
	}
	return out, nil
}

func (m *Memory) Set(ctx context.Context, entries ...Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.Filename] = copyEntry(e)
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, filenames ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fn := range filenames {
		delete(m.entries, fn)
	}
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string]Entry{}
	return nil
}

func (m *Memory) Rename(ctx context.Context, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = newName
	return nil
}

func (m *Memory) Flush(ctx context.Context) error { return nil }

func (m *Memory) TotalSize(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, e := range m.entries {
		total += int64(len(e.Buffer))
	}
	return total, nil
}

func (m *Memory) IsEmpty(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries) == 0, nil
}

func (m *Memory) Clone() Store {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := &Memory{name: m.name, entries: make(map[string]Entry, len(m.entries))}
	for name, e := range m.entries {
		cp.entries[name] = copyEntry(e)
	}
	return cp
}

func copyEntry(e Entry) Entry {
	return Entry{
		Filename: e.Filename,
		Buffer:   append([]byte(nil), e.Buffer...),
		Modified: e.Modified,
	}
}
