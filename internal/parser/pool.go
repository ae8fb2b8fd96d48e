package parser

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"agcodex/internal/logging"
)

// Pool is a lazy, thread-safe pool of grammar-bound parsers. Each language
// keeps a bounded free stack; releasing a parser beyond the cap closes it,
// which frees the native memory the binding holds.
type Pool struct {
	cap     int
	entries sync.Map // Language -> *langStack
}

type langStack struct {
	mu   sync.Mutex
	free []*sitter.Parser
}

// NewPool creates a pool with the given per-language cap (minimum 1).
func NewPool(capPerLanguage int) *Pool {
	if capPerLanguage < 1 {
		capPerLanguage = 1
	}
	return &Pool{cap: capPerLanguage}
}

// Borrowed is a parser checked out of the pool. Callers must Release it.
type Borrowed struct {
	Parser *sitter.Parser

	lang     Language
	pool     *Pool
	released bool
}

// Get returns a parser configured for the language, creating one when the
// free stack is empty.
func (p *Pool) Get(lang Language) (*Borrowed, error) {
	grammar, err := lang.Grammar()
	if err != nil {
		return nil, err
	}

	stack := p.stack(lang)
	stack.mu.Lock()
	var parser *sitter.Parser
	if n := len(stack.free); n > 0 {
		parser = stack.free[n-1]
		stack.free = stack.free[:n-1]
	}
	stack.mu.Unlock()

	if parser == nil {
		parser = sitter.NewParser()
		logging.ParserDebug("created parser for %s", lang)
	}
	parser.SetLanguage(grammar)
	return &Borrowed{Parser: parser, lang: lang, pool: p}, nil
}

// Release returns the parser to its language stack. Past the cap the
// parser is closed instead.
func (b *Borrowed) Release() {
	if b.released {
		return
	}
	b.released = true

	stack := b.pool.stack(b.lang)
	stack.mu.Lock()
	if len(stack.free) < b.pool.cap {
		stack.free = append(stack.free, b.Parser)
		stack.mu.Unlock()
		return
	}
	stack.mu.Unlock()
	b.Parser.Close()
	logging.ParserDebug("dropped parser for %s (pool full)", b.lang)
}

// Idle returns how many parsers are pooled for the language.
func (p *Pool) Idle(lang Language) int {
	stack := p.stack(lang)
	stack.mu.Lock()
	defer stack.mu.Unlock()
	return len(stack.free)
}

// Close drops every pooled parser.
func (p *Pool) Close() {
	p.entries.Range(func(_, v any) bool {
		stack := v.(*langStack)
		stack.mu.Lock()
		for _, parser := range stack.free {
			parser.Close()
		}
		stack.free = nil
		stack.mu.Unlock()
		return true
	})
}

func (p *Pool) stack(lang Language) *langStack {
	if v, ok := p.entries.Load(lang); ok {
		return v.(*langStack)
	}
	v, _ := p.entries.LoadOrStore(lang, &langStack{})
	return v.(*langStack)
}
