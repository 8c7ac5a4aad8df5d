package parser

import (
	"context"
	"fmt"
	"time"

	"github.com/nacl-lang/workspace/internal/ctxlog"
	"github.com/nacl-lang/workspace/internal/refs"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many files are parsed (and how many cache
// reads are issued) at once during a batch. Fan-out is worker-pool style,
// never unbounded.
const DefaultConcurrency = 20

// Invoker wraps a Parser with fingerprint-keyed caching and bounded-parallel
// batch parsing.
type Invoker struct {
	parser Parser
	cache  Cache
	limit  int
}

// NewInvoker builds an invoker. cache may be nil to disable caching; a
// non-positive limit falls back to DefaultConcurrency.
func NewInvoker(p Parser, cache Cache, limit int) *Invoker {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Invoker{parser: p, cache: cache, limit: limit}
}

// ParseFile parses one input, serving repeat parses of unchanged content
// from the cache. A syntactically broken buffer still yields a ParsedFile
// with populated Errors; the error return is environmental only.
func (inv *Invoker) ParseFile(ctx context.Context, in Input) (*ParsedFile, error) {
	logger := ctxlog.FromContext(ctx)
	key := NewKey(in)

	result, hit := inv.cachedResult(ctx, key)
	if !hit {
		var err error
		result, err = inv.parser.Parse(ctx, in.Buffer, in.Filename)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", in.Filename, err)
		}
		if inv.cache != nil {
			if err := inv.cache.Put(ctx, key, result); err != nil {
				// A broken cache must not break parsing.
				logger.Warn("failed to store parse result in cache", "filename", in.Filename, "error", err)
			}
		}
	}

	ts := in.Modified
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ParsedFile{
		Filename:   in.Filename,
		Timestamp:  ts,
		Elements:   result.Elements,
		Errors:     result.Errors,
		Referenced: refs.ExtractAll(result.Elements),
		SourceMap:  result.SourceMap,
	}, nil
}

// ParseAll parses a batch of inputs with at most the configured number in
// flight. Output order matches input order.
func (inv *Invoker) ParseAll(ctx context.Context, ins []Input) ([]*ParsedFile, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("batch parse started", "files", len(ins), "concurrency", inv.limit)

	out := make([]*ParsedFile, len(ins))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(inv.limit)

	for i, in := range ins {
		i, in := i, in
		group.Go(func() error {
			parsed, err := inv.ParseFile(gctx, in)
			if err != nil {
				return err
			}
			out[i] = parsed
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (inv *Invoker) cachedResult(ctx context.Context, key Key) (*Result, bool) {
	if inv.cache == nil {
		return nil, false
	}
	result, ok, err := inv.cache.Get(ctx, key)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("parse cache read failed, re-parsing", "filename", key.Filename, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return result, true
}
