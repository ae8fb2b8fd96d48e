package parser

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"agcodex/internal/logging"
)

// CacheKey identifies a parse by language and 64-bit content hash.
type CacheKey struct {
	Language Language
	Hash     uint64
}

// HashSource returns the FNV-1a hash of a source buffer. Equal sources
// always hash equal.
func HashSource(src []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(src)
	return h.Sum64()
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Len    int
}

// Engine couples the parser pool with a strict-LRU parse cache. Cache hits
// never enter the grammar.
type Engine struct {
	pool  *Pool
	cache *lru.Cache[CacheKey, *Tree]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewEngine creates an engine with the given pool cap and cache capacity.
// Capacity below 1 is an error.
func NewEngine(poolCap, cacheSize int) (*Engine, error) {
	if cacheSize < 1 {
		return nil, fmt.Errorf("parse cache capacity must be >= 1, got %d", cacheSize)
	}
	cache, err := lru.NewWithEvict[CacheKey, *Tree](cacheSize, func(_ CacheKey, t *Tree) {
		t.Release()
	})
	if err != nil {
		return nil, err
	}
	return &Engine{pool: NewPool(poolCap), cache: cache}, nil
}

// Pool exposes the underlying parser pool.
func (e *Engine) Pool() *Pool {
	return e.pool
}

// ParseWithCache hashes the source, probes the cache, and parses on miss.
// The returned tree carries a reference for the caller; Release it when
// done. An entry that was evicted between lookup and retain counts as a
// miss.
func (e *Engine) ParseWithCache(ctx context.Context, lang Language, source []byte) (*Tree, error) {
	key := CacheKey{Language: lang, Hash: HashSource(source)}
	if tree, ok := e.cache.Get(key); ok && tree.retain() {
		e.hits.Add(1)
		return tree, nil
	}

	tree, err := e.parse(ctx, lang, source)
	if err != nil {
		return nil, err
	}
	e.misses.Add(1)
	tree.retain() // cache's reference
	if existed, _ := e.cache.ContainsOrAdd(key, tree); existed {
		// A concurrent miss for the same source won the insert.
		tree.Release()
	}
	logging.ParserDebug("cached %s parse (%d bytes, %d nodes)", lang, len(source), tree.Root.NodeCount)
	return tree, nil
}

// Parse parses without touching the cache. Release the returned tree when
// done.
func (e *Engine) Parse(ctx context.Context, lang Language, source []byte) (*Tree, error) {
	return e.parse(ctx, lang, source)
}

func (e *Engine) parse(ctx context.Context, lang Language, source []byte) (*Tree, error) {
	borrowed, err := e.pool.Get(lang)
	if err != nil {
		return nil, err
	}
	defer borrowed.Release()

	start := time.Now()
	st, err := borrowed.Parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParseFailed, lang, err)
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s grammar returned no tree", ErrParseFailed, lang)
	}
	return newTree(lang, source, st, time.Since(start)), nil
}

// BatchInput is one (language, source) pair for ParseBatch.
type BatchInput struct {
	Language Language
	Source   []byte
}

// BatchResult pairs a tree with the error that prevented it.
type BatchResult struct {
	Tree *Tree
	Err  error
}

// ParseBatch parses inputs in parallel across cores. Individual failures
// are isolated to their slot. Each successful slot carries a reference the
// caller must Release.
func (e *Engine) ParseBatch(ctx context.Context, inputs []BatchInput) []BatchResult {
	results := make([]BatchResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			tree, err := e.ParseWithCache(gctx, in.Language, in.Source)
			results[i] = BatchResult{Tree: tree, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Stats returns hit/miss counters and the current cache length.
func (e *Engine) Stats() CacheStats {
	return CacheStats{
		Hits:   e.hits.Load(),
		Misses: e.misses.Load(),
		Len:    e.cache.Len(),
	}
}

// Clear drops every cached tree.
func (e *Engine) Clear() {
	e.cache.Purge()
}

// Close clears the cache and drops pooled parsers.
func (e *Engine) Close() {
	e.Clear()
	e.pool.Close()
}
