// Package index answers code-search queries by cascading through layers:
// an in-memory symbol map, a token inverted index, an AST query layer, and
// finally a content grep over candidate files. Layers get tighter latency
// budgets in that order, but correctness is never traded for the budget;
// overruns are reported in the result timings.
package index

import (
	"sort"
	"strings"
	"sync"
)

// SymbolLocation is one occurrence of a symbol.
type SymbolLocation struct {
	File       string `json:"file"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Byte       int    `json:"byte"`
	Scope      string `json:"scope,omitempty"`
	Visibility string `json:"visibility,omitempty"`
}

// NamedLocation pairs a symbol name with one of its locations. Used by the
// snapshot store.
type NamedLocation struct {
	Name     string
	Location SymbolLocation
}

// SymbolLayer is the first cascade layer: an in-memory map of symbol name
// to locations with exact, prefix, and fuzzy lookup.
type SymbolLayer struct {
	mu      sync.RWMutex
	symbols map[string][]SymbolLocation
	names   []string // sorted, maintained on insert
}

// NewSymbolLayer creates an empty symbol layer.
func NewSymbolLayer() *SymbolLayer {
	return &SymbolLayer{symbols: make(map[string][]SymbolLocation)}
}

// Add inserts a symbol occurrence. Inserting a duplicate (same name, same
// location) is a no-op, so bulk warm-up is idempotent.
func (s *SymbolLayer) Add(name string, loc SymbolLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, known := s.symbols[name]
	for _, have := range existing {
		if have == loc {
			return
		}
	}
	s.symbols[name] = append(existing, loc)
	if !known {
		i := sort.SearchStrings(s.names, name)
		s.names = append(s.names, "")
		copy(s.names[i+1:], s.names[i:])
		s.names[i] = name
	}
}

// Lookup returns the locations for an exact symbol name.
func (s *SymbolLayer) Lookup(name string) []SymbolLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SymbolLocation(nil), s.symbols[name]...)
}

// Prefix returns every symbol whose name starts with prefix, in name order.
func (s *SymbolLayer) Prefix(prefix string) []NamedLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []NamedLocation
	start := sort.SearchStrings(s.names, prefix)
	for i := start; i < len(s.names); i++ {
		name := s.names[i]
		if !strings.HasPrefix(name, prefix) {
			break
		}
		for _, loc := range s.symbols[name] {
			out = append(out, NamedLocation{Name: name, Location: loc})
		}
	}
	return out
}

// Fuzzy returns symbols within the given Damerau-Levenshtein distance of
// name, nearest first.
func (s *SymbolLayer) Fuzzy(name string, maxDistance int) []NamedLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		name string
		dist int
	}
	var candidates []scored
	for _, candidate := range s.names {
		if d := editDistance(name, candidate); d <= maxDistance {
			candidates = append(candidates, scored{name: candidate, dist: d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})

	var out []NamedLocation
	for _, c := range candidates {
		for _, loc := range s.symbols[c.name] {
			out = append(out, NamedLocation{Name: c.name, Location: loc})
		}
	}
	return out
}

// Count returns the number of distinct symbol names.
func (s *SymbolLayer) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Export returns every (name, location) pair for snapshotting.
func (s *SymbolLayer) Export() []NamedLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]NamedLocation, 0, len(s.names))
	for _, name := range s.names {
		for _, loc := range s.symbols[name] {
			out = append(out, NamedLocation{Name: name, Location: loc})
		}
	}
	return out
}

// Clear drops every symbol.
func (s *SymbolLayer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols = make(map[string][]SymbolLocation)
	s.names = nil
}
