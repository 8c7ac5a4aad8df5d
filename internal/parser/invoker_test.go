package parser

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingParser yields one type declaration named after the file and counts
// invocations.
type countingParser struct {
	calls atomic.Int64
}

func (p *countingParser) Parse(ctx context.Context, buffer []byte, filename string) (*Result, error) {
	p.calls.Add(1)
	name := filename[:len(filename)-len(".nacl")]
	return &Result{
		Elements:  []*element.Element{{ID: elemid.New(name), Kind: element.TypeDecl}},
		SourceMap: SourceMap{},
	}, nil
}

// mapCache is a minimal Cache backed by a locked map.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]*Result
}

func newMapCache() *mapCache { return &mapCache{entries: map[string]*Result{}} }

func (c *mapCache) Get(ctx context.Context, key Key) (*Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key.String()]
	return r, ok, nil
}

func (c *mapCache) Put(ctx context.Context, key Key, result *Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = result
	return nil
}

func (c *mapCache) Clear(ctx context.Context) error                  { return nil }
func (c *mapCache) Rename(ctx context.Context, newName string) error { return nil }
func (c *mapCache) Flush(ctx context.Context) error                  { return nil }
func (c *mapCache) Clone() Cache                                     { return c }

func input(name, content string) Input {
	return Input{Filename: name, Buffer: []byte(content), Modified: time.UnixMilli(1000)}
}

func TestParseFile_CacheHitSkipsParser(t *testing.T) {
	p := &countingParser{}
	inv := NewInvoker(p, newMapCache(), 0)
	ctx := context.Background()

	first, err := inv.ParseFile(ctx, input("a.nacl", "type a {}"))
	require.NoError(t, err)
	second, err := inv.ParseFile(ctx, input("a.nacl", "type a {}"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.calls.Load(), "identical content must parse once")
	assert.Equal(t, first.Elements, second.Elements)
}

func TestParseFile_ContentChangeMissesCache(t *testing.T) {
	p := &countingParser{}
	inv := NewInvoker(p, newMapCache(), 0)
	ctx := context.Background()

	_, err := inv.ParseFile(ctx, input("a.nacl", "type a {}"))
	require.NoError(t, err)
	_, err = inv.ParseFile(ctx, input("a.nacl", "type a { string f {} }"))
	require.NoError(t, err)

	assert.Equal(t, int64(2), p.calls.Load())
}

func TestParseFile_PopulatesReferenced(t *testing.T) {
	inv := NewInvoker(parserFunc(func(ctx context.Context, buffer []byte, filename string) (*Result, error) {
		return &Result{Elements: []*element.Element{{
			ID:     elemid.New("t", "inst"),
			Kind:   element.Instance,
			TypeID: elemid.New("t"),
		}}}, nil
	}), nil, 0)

	parsed, err := inv.ParseFile(context.Background(), input("b.nacl", "t inst {}"))
	require.NoError(t, err)
	require.Len(t, parsed.Referenced, 1)
	assert.Equal(t, "t", parsed.Referenced[0].String())
}

func TestParseAll_OrderAndCompleteness(t *testing.T) {
	p := &countingParser{}
	inv := NewInvoker(p, newMapCache(), 4)

	ins := []Input{input("a.nacl", "x"), input("b.nacl", "y"), input("c.nacl", "z")}
	parsed, err := inv.ParseAll(context.Background(), ins)
	require.NoError(t, err)
	require.Len(t, parsed, 3)
	assert.Equal(t, "a.nacl", parsed[0].Filename)
	assert.Equal(t, "b.nacl", parsed[1].Filename)
	assert.Equal(t, "c.nacl", parsed[2].Filename)
}

// parserFunc adapts a function to the Parser interface.
type parserFunc func(ctx context.Context, buffer []byte, filename string) (*Result, error)

func (f parserFunc) Parse(ctx context.Context, buffer []byte, filename string) (*Result, error) {
	return f(ctx, buffer, filename)
}

func TestTombstone(t *testing.T) {
	ts := Tombstone("gone.nacl", time.Now())
	assert.True(t, ts.IsTombstone())

	withErr := &ParsedFile{Filename: "bad.nacl", Errors: []ParseError{{Summary: "boom"}}}
	assert.False(t, withErr.IsTombstone())
}
