package index

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"agcodex/internal/parser"
)

// token is one indexed term occurrence within a document.
type token struct {
	Text string
	Pos  int // token index within the document
	Line int // 1-based
	Col  int // 1-based, rune column of token start
	Byte int
}

type textDoc struct {
	Path     string
	Language parser.Language
	Tokens   []token
	ByTerm   map[string][]int // term -> token indices
}

// TextHit is a full-text match.
type TextHit struct {
	Path  string
	Line  int
	Col   int
	Byte  int
	Term  string
	Score float64
}

// TextFilter restricts full-text queries.
type TextFilter struct {
	PathPrefix string
	Language   parser.Language
}

// BoolQuery is a boolean full-text query over terms.
type BoolQuery struct {
	Must    []string
	Should  []string
	MustNot []string
}

// FullTextLayer is the second cascade layer: a token inverted index with
// term, phrase, and boolean queries.
type FullTextLayer struct {
	mu   sync.RWMutex
	docs map[string]*textDoc
}

// NewFullTextLayer creates an empty full-text layer.
func NewFullTextLayer() *FullTextLayer {
	return &FullTextLayer{docs: make(map[string]*textDoc)}
}

// Index tokenizes content and (re)indexes it under path. Re-indexing a
// path replaces its previous postings.
func (f *FullTextLayer) Index(path string, lang parser.Language, content []byte) {
	doc := &textDoc{
		Path:     path,
		Language: lang,
		ByTerm:   make(map[string][]int),
	}

	line, col := 1, 1
	start, startCol := -1, 0
	var buf strings.Builder
	flush := func(endByte int) {
		if start < 0 {
			return
		}
		term := strings.ToLower(buf.String())
		idx := len(doc.Tokens)
		doc.Tokens = append(doc.Tokens, token{
			Text: term,
			Pos:  idx,
			Line: line,
			Col:  startCol,
			Byte: start,
		})
		doc.ByTerm[term] = append(doc.ByTerm[term], idx)
		buf.Reset()
		start = -1
	}

	for i, r := range string(content) {
		if isWordRune(r) {
			if start < 0 {
				start = i
				startCol = col
			}
			buf.WriteRune(r)
			col++
			continue
		}
		flush(i)
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	flush(len(content))

	f.mu.Lock()
	f.docs[path] = doc
	f.mu.Unlock()
}

// Remove drops a document from the index.
func (f *FullTextLayer) Remove(path string) {
	f.mu.Lock()
	delete(f.docs, path)
	f.mu.Unlock()
}

// Term returns every occurrence of a single term.
func (f *FullTextLayer) Term(term string, filter TextFilter) []TextHit {
	term = strings.ToLower(term)

	f.mu.RLock()
	defer f.mu.RUnlock()

	var hits []TextHit
	for _, doc := range f.docs {
		if !filter.match(doc) {
			continue
		}
		for _, idx := range doc.ByTerm[term] {
			tok := doc.Tokens[idx]
			hits = append(hits, TextHit{
				Path: doc.Path, Line: tok.Line, Col: tok.Col, Byte: tok.Byte,
				Term: term, Score: 1,
			})
		}
	}
	sortHits(hits)
	return hits
}

// Phrase returns positions where the terms occur consecutively.
func (f *FullTextLayer) Phrase(terms []string, filter TextFilter) []TextHit {
	if len(terms) == 0 {
		return nil
	}
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var hits []TextHit
	for _, doc := range f.docs {
		if !filter.match(doc) {
			continue
		}
		for _, startIdx := range doc.ByTerm[lowered[0]] {
			ok := true
			for offset := 1; offset < len(lowered); offset++ {
				next := startIdx + offset
				if next >= len(doc.Tokens) || doc.Tokens[next].Text != lowered[offset] {
					ok = false
					break
				}
			}
			if ok {
				tok := doc.Tokens[startIdx]
				hits = append(hits, TextHit{
					Path: doc.Path, Line: tok.Line, Col: tok.Col, Byte: tok.Byte,
					Term: strings.Join(lowered, " "), Score: float64(len(lowered)),
				})
			}
		}
	}
	sortHits(hits)
	return hits
}

// Boolean evaluates a must/should/must_not query at document granularity.
// The score is the fraction of should-terms present (1 when none given).
func (f *FullTextLayer) Boolean(q BoolQuery, filter TextFilter) []TextHit {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var hits []TextHit
	for _, doc := range f.docs {
		if !filter.match(doc) {
			continue
		}
		if !containsAll(doc, q.Must) || containsAny(doc, q.MustNot) {
			continue
		}
		score := 1.0
		if len(q.Should) > 0 {
			matched := 0
			for _, term := range q.Should {
				if len(doc.ByTerm[strings.ToLower(term)]) > 0 {
					matched++
				}
			}
			if matched == 0 && len(q.Must) == 0 {
				continue
			}
			score = float64(matched) / float64(len(q.Should))
		}
		anchor := token{Line: 1, Col: 1}
		if len(q.Must) > 0 {
			if idxs := doc.ByTerm[strings.ToLower(q.Must[0])]; len(idxs) > 0 {
				anchor = doc.Tokens[idxs[0]]
			}
		}
		hits = append(hits, TextHit{
			Path: doc.Path, Line: anchor.Line, Col: anchor.Col, Byte: anchor.Byte,
			Term: strings.Join(append(append([]string{}, q.Must...), q.Should...), " "),
			Score: score,
		})
	}
	sortHits(hits)
	return hits
}

// DocCount returns the number of indexed documents.
func (f *FullTextLayer) DocCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.docs)
}

func (tf TextFilter) match(doc *textDoc) bool {
	if tf.PathPrefix != "" && !strings.HasPrefix(doc.Path, tf.PathPrefix) {
		return false
	}
	if tf.Language != "" && doc.Language != tf.Language {
		return false
	}
	return true
}

func containsAll(doc *textDoc, terms []string) bool {
	for _, term := range terms {
		if len(doc.ByTerm[strings.ToLower(term)]) == 0 {
			return false
		}
	}
	return true
}

func containsAny(doc *textDoc, terms []string) bool {
	for _, term := range terms {
		if len(doc.ByTerm[strings.ToLower(term)]) > 0 {
			return true
		}
	}
	return false
}

func sortHits(hits []TextHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Path != hits[j].Path {
			return hits[i].Path < hits[j].Path
		}
		return hits[i].Line < hits[j].Line
	})
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
