package index

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"agcodex/internal/logging"
	"agcodex/internal/parser"
	"agcodex/internal/query"
)

// Layer names a cascade layer.
type Layer string

const (
	LayerSymbol   Layer = "symbol"
	LayerFullText Layer = "fulltext"
	LayerAST      Layer = "ast"
	LayerGrep     Layer = "grep"
)

// Layers toggles individual cascade layers. The zero value disables
// everything; use AllLayers for the default cascade.
type Layers struct {
	Symbol   bool
	FullText bool
	AST      bool
	Grep     bool
}

// AllLayers enables the full cascade.
func AllLayers() Layers {
	return Layers{Symbol: true, FullText: true, AST: true, Grep: true}
}

// SearchQuery is a cascading code-search request.
type SearchQuery struct {
	Term       string
	Filter     TextFilter
	Layers     Layers
	MaxResults int
}

// Hit is one search result, whichever layer produced it.
type Hit struct {
	Name   string  `json:"name"`
	File   string  `json:"file"`
	Line   int     `json:"line"`
	Column int     `json:"column"`
	Byte   int     `json:"byte"`
	Score  float64 `json:"score"`
	Layer  Layer   `json:"layer"`
}

// LayerTiming reports what one layer did and how long it took. Budgets
// are advisory; the actual elapsed time is always reported.
type LayerTiming struct {
	Layer   Layer         `json:"layer"`
	Elapsed time.Duration `json:"elapsed"`
	Hits    int           `json:"hits"`
}

// Result is the outcome of a cascading search.
type Result struct {
	Hits    []Hit         `json:"hits"`
	Layer   Layer         `json:"layer"` // the layer that produced Hits
	Timings []LayerTiming `json:"timings"`
}

// Document is one file registered with the engine.
type Document struct {
	Path     string
	Language parser.Language
	Content  []byte
}

// Engine is the multi-layer index.
type Engine struct {
	symbols *SymbolLayer
	text    *FullTextLayer
	ast     *ASTLayer

	mu   sync.RWMutex
	docs map[string]*Document

	scoreThreshold float64
}

// NewEngine builds an index engine over the given parse engine and query
// library.
func NewEngine(pe *parser.Engine, lib *query.Library) *Engine {
	return &Engine{
		symbols:        NewSymbolLayer(),
		text:           NewFullTextLayer(),
		ast:            NewASTLayer(pe, lib),
		docs:           make(map[string]*Document),
		scoreThreshold: 0.5,
	}
}

// Symbols exposes the symbol layer for warm-up and snapshotting.
func (e *Engine) Symbols() *SymbolLayer {
	return e.symbols
}

// AddSymbol registers a single symbol occurrence.
func (e *Engine) AddSymbol(name string, loc SymbolLocation) {
	e.symbols.Add(name, loc)
}

// AddFile registers a file with every layer. Files in unsupported
// languages still join the full-text and grep layers; there is no
// fallback grammar.
func (e *Engine) AddFile(ctx context.Context, path string, content []byte) error {
	lang, supported := parser.LanguageForFile(path)

	e.mu.Lock()
	e.docs[path] = &Document{Path: path, Language: lang, Content: content}
	e.mu.Unlock()

	e.text.Index(path, lang, content)
	if !supported {
		logging.IndexDebug("indexed %s text-only (no grammar)", path)
		return nil
	}

	for _, kind := range []query.Kind{query.KindFunctions, query.KindClasses, query.KindMethods} {
		matches, err := e.ast.QueryKind(ctx, path, lang, content, kind)
		if err != nil {
			return fmt.Errorf("extract %s from %s: %w", kind, path, err)
		}
		for _, m := range matches {
			if m.Capture != "name" {
				continue
			}
			e.symbols.Add(m.Text, SymbolLocation{
				File:   path,
				Line:   m.Line,
				Column: m.Column,
				Byte:   m.Byte,
				Scope:  string(kind),
			})
		}
	}
	logging.IndexDebug("indexed %s (%d symbols total)", path, e.symbols.Count())
	return nil
}

// RemoveFile unregisters a file from the text and grep layers. Symbol
// entries pointing at the file are kept until the next full rebuild.
func (e *Engine) RemoveFile(path string) {
	e.mu.Lock()
	delete(e.docs, path)
	e.mu.Unlock()
	e.text.Remove(path)
}

// Search runs the cascade: symbol, full-text, AST, then grep. A layer's
// result is accepted when it has hits at or above the score threshold;
// otherwise the next layer runs. Layers disabled in the query are skipped.
func (e *Engine) Search(ctx context.Context, q SearchQuery) (*Result, error) {
	if q.Term == "" {
		return nil, fmt.Errorf("search term required")
	}
	if q.MaxResults <= 0 {
		q.MaxResults = 100
	}

	result := &Result{}

	if q.Layers.Symbol {
		hits, elapsed := e.searchSymbols(q)
		result.Timings = append(result.Timings, LayerTiming{Layer: LayerSymbol, Elapsed: elapsed, Hits: len(hits)})
		if accepted := e.accept(hits); len(accepted) > 0 {
			result.Hits, result.Layer = capHits(accepted, q.MaxResults), LayerSymbol
			return result, nil
		}
	}

	if q.Layers.FullText {
		hits, elapsed := e.searchFullText(q)
		result.Timings = append(result.Timings, LayerTiming{Layer: LayerFullText, Elapsed: elapsed, Hits: len(hits)})
		if accepted := e.accept(hits); len(accepted) > 0 {
			result.Hits, result.Layer = capHits(accepted, q.MaxResults), LayerFullText
			return result, nil
		}
	}

	if q.Layers.AST {
		hits, elapsed, err := e.searchAST(ctx, q)
		if err != nil {
			return nil, err
		}
		result.Timings = append(result.Timings, LayerTiming{Layer: LayerAST, Elapsed: elapsed, Hits: len(hits)})
		if accepted := e.accept(hits); len(accepted) > 0 {
			result.Hits, result.Layer = capHits(accepted, q.MaxResults), LayerAST
			return result, nil
		}
	}

	if q.Layers.Grep {
		hits, elapsed, err := e.searchGrep(q)
		if err != nil {
			return nil, err
		}
		result.Timings = append(result.Timings, LayerTiming{Layer: LayerGrep, Elapsed: elapsed, Hits: len(hits)})
		result.Hits, result.Layer = capHits(hits, q.MaxResults), LayerGrep
	}
	return result, nil
}

func (e *Engine) searchSymbols(q SearchQuery) ([]Hit, time.Duration) {
	start := time.Now()
	var hits []Hit

	for _, loc := range e.symbols.Lookup(q.Term) {
		if !q.Filter.matchLoc(loc.File, e.docLanguage(loc.File)) {
			continue
		}
		hits = append(hits, symbolHit(q.Term, loc, 1.0))
	}
	if len(hits) == 0 {
		for _, nl := range e.symbols.Prefix(q.Term) {
			if !q.Filter.matchLoc(nl.Location.File, e.docLanguage(nl.Location.File)) {
				continue
			}
			hits = append(hits, symbolHit(nl.Name, nl.Location, 0.8))
		}
	}
	if len(hits) == 0 {
		for _, nl := range e.symbols.Fuzzy(q.Term, 2) {
			if !q.Filter.matchLoc(nl.Location.File, e.docLanguage(nl.Location.File)) {
				continue
			}
			hits = append(hits, symbolHit(nl.Name, nl.Location, 0.6))
		}
	}
	return hits, time.Since(start)
}

func (e *Engine) searchFullText(q SearchQuery) ([]Hit, time.Duration) {
	start := time.Now()
	var hits []Hit
	for _, th := range e.text.Term(q.Term, q.Filter) {
		hits = append(hits, Hit{
			Name: q.Term, File: th.Path, Line: th.Line, Column: th.Col, Byte: th.Byte,
			Score: th.Score, Layer: LayerFullText,
		})
	}
	return hits, time.Since(start)
}

func (e *Engine) searchAST(ctx context.Context, q SearchQuery) ([]Hit, time.Duration, error) {
	start := time.Now()
	var hits []Hit

	for _, doc := range e.snapshotDocs() {
		if !doc.Language.Supported() || !q.Filter.matchLoc(doc.Path, doc.Language) {
			continue
		}
		for _, kind := range []query.Kind{query.KindFunctions, query.KindClasses, query.KindMethods} {
			matches, err := e.ast.QueryKind(ctx, doc.Path, doc.Language, doc.Content, kind)
			if err != nil {
				return nil, time.Since(start), err
			}
			for _, m := range matches {
				if m.Capture == "name" && m.Text == q.Term {
					hits = append(hits, Hit{
						Name: m.Text, File: m.Path, Line: m.Line, Column: m.Column, Byte: m.Byte,
						Score: 1.0, Layer: LayerAST,
					})
				}
			}
		}
	}
	return hits, time.Since(start), nil
}

func (e *Engine) searchGrep(q SearchQuery) ([]Hit, time.Duration, error) {
	start := time.Now()

	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(q.Term) + `\b`)
	if err != nil {
		return nil, time.Since(start), err
	}

	var hits []Hit
	for _, doc := range e.snapshotDocs() {
		if !q.Filter.matchLoc(doc.Path, doc.Language) {
			continue
		}
		offset := 0
		for lineNo, line := range strings.Split(string(doc.Content), "\n") {
			if loc := re.FindStringIndex(line); loc != nil {
				hits = append(hits, Hit{
					Name: q.Term, File: doc.Path, Line: lineNo + 1, Column: loc[0] + 1,
					Byte: offset + loc[0], Score: 0.3, Layer: LayerGrep,
				})
			}
			offset += len(line) + 1
		}
	}
	return hits, time.Since(start), nil
}

func (e *Engine) accept(hits []Hit) []Hit {
	var out []Hit
	for _, h := range hits {
		if h.Score >= e.scoreThreshold {
			out = append(out, h)
		}
	}
	return out
}

func (e *Engine) snapshotDocs() []*Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Document, 0, len(e.docs))
	for _, d := range e.docs {
		out = append(out, d)
	}
	return out
}

func (e *Engine) docLanguage(path string) parser.Language {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if d, ok := e.docs[path]; ok {
		return d.Language
	}
	return ""
}

func (tf TextFilter) matchLoc(path string, lang parser.Language) bool {
	if tf.PathPrefix != "" && !strings.HasPrefix(path, tf.PathPrefix) {
		return false
	}
	if tf.Language != "" && lang != "" && lang != tf.Language {
		return false
	}
	return true
}

func symbolHit(name string, loc SymbolLocation, score float64) Hit {
	return Hit{
		Name: name, File: loc.File, Line: loc.Line, Column: loc.Column, Byte: loc.Byte,
		Score: score, Layer: LayerSymbol,
	}
}

func capHits(hits []Hit, max int) []Hit {
	if len(hits) > max {
		return hits[:max]
	}
	return hits
}
