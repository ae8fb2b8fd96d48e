// Package query precompiles a fixed catalogue of tree-sitter queries
// (functions, classes, imports, methods) per supported language and caches
// the compiled handles for sharing.
package query

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"agcodex/internal/parser"
)

// ErrQueryUnsupported is returned for a (language, kind) pair with no
// catalogue entry, and for free-form patterns that fail to compile.
var ErrQueryUnsupported = errors.New("query unsupported")

// Kind names a structured query in the catalogue.
type Kind string

const (
	KindFunctions Kind = "functions"
	KindClasses   Kind = "classes"
	KindImports   Kind = "imports"
	KindMethods   Kind = "methods"
)

// catalogue holds the S-expression pattern for each (language, kind).
var catalogue = map[parser.Language]map[Kind]string{
	parser.LangGo: {
		KindFunctions: `(function_declaration name: (identifier) @name) @definition`,
		KindMethods:   `(method_declaration name: (field_identifier) @name) @definition`,
		KindClasses:   `(type_spec name: (type_identifier) @name type: [(struct_type) (interface_type)]) @definition`,
		KindImports:   `(import_spec path: (interpreted_string_literal) @path) @import`,
	},
	parser.LangPython: {
		KindFunctions: `(function_definition name: (identifier) @name) @definition`,
		KindMethods:   `(class_definition body: (block (function_definition name: (identifier) @name) @definition))`,
		KindClasses:   `(class_definition name: (identifier) @name) @definition`,
		KindImports:   `[(import_statement) (import_from_statement)] @import`,
	},
	parser.LangRust: {
		KindFunctions: `(function_item name: (identifier) @name) @definition`,
		KindMethods:   `(impl_item body: (declaration_list (function_item name: (identifier) @name) @definition))`,
		KindClasses:   `[(struct_item name: (type_identifier) @name) (enum_item name: (type_identifier) @name)] @definition`,
		KindImports:   `(use_declaration) @import`,
	},
	parser.LangJavaScript: {
		KindFunctions: `(function_declaration name: (identifier) @name) @definition`,
		KindMethods:   `(method_definition name: (property_identifier) @name) @definition`,
		KindClasses:   `(class_declaration name: (identifier) @name) @definition`,
		KindImports:   `(import_statement source: (string) @path) @import`,
	},
	parser.LangTypeScript: {
		KindFunctions: `(function_declaration name: (identifier) @name) @definition`,
		KindMethods:   `(method_definition name: (property_identifier) @name) @definition`,
		KindClasses:   `(class_declaration name: (identifier) @name) @definition`,
		KindImports:   `(import_statement source: (string) @path) @import`,
	},
}

type cacheKey struct {
	lang    parser.Language
	pattern string
}

// Library compiles and caches queries. Handles are shared; tree-sitter
// queries are safe for concurrent cursor execution.
type Library struct {
	mu    sync.RWMutex
	cache map[cacheKey]*sitter.Query
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{cache: make(map[cacheKey]*sitter.Query)}
}

// Supports reports whether (language, kind) has a catalogue entry. It is
// side-effect free.
func (l *Library) Supports(lang parser.Language, kind Kind) bool {
	kinds, ok := catalogue[lang]
	if !ok {
		return false
	}
	_, ok = kinds[kind]
	return ok
}

// Get returns the compiled query for (language, kind), compiling on first
// use and caching afterwards.
func (l *Library) Get(lang parser.Language, kind Kind) (*sitter.Query, error) {
	kinds, ok := catalogue[lang]
	if !ok {
		return nil, fmt.Errorf("%w: language %q has no catalogue", ErrQueryUnsupported, lang)
	}
	pattern, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no %q query for %q", ErrQueryUnsupported, kind, lang)
	}
	return l.compile(lang, pattern)
}

// FromPattern serves legacy callers with a free-form pattern string.
// Simple prefixes map to the nearest structured query; anything else is
// compiled verbatim.
func (l *Library) FromPattern(lang parser.Language, pattern string) (*sitter.Query, error) {
	trimmed := strings.TrimSpace(pattern)
	for prefix, kind := range map[string]Kind{
		"function": KindFunctions,
		"class":    KindClasses,
		"import":   KindImports,
		"method":   KindMethods,
	} {
		if strings.HasPrefix(trimmed, prefix+" ") || trimmed == prefix {
			if l.Supports(lang, kind) {
				return l.Get(lang, kind)
			}
		}
	}
	return l.compile(lang, trimmed)
}

func (l *Library) compile(lang parser.Language, pattern string) (*sitter.Query, error) {
	key := cacheKey{lang: lang, pattern: pattern}

	l.mu.RLock()
	if q, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return q, nil
	}
	l.mu.RUnlock()

	grammar, err := lang.Grammar()
	if err != nil {
		return nil, err
	}
	q, err := sitter.NewQuery([]byte(pattern), grammar)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryUnsupported, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.cache[key]; ok {
		q.Close()
		return cached, nil
	}
	l.cache[key] = q
	return q, nil
}

// Close releases every compiled query.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, q := range l.cache {
		q.Close()
	}
	l.cache = make(map[cacheKey]*sitter.Query)
}
