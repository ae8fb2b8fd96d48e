package index

import (
	"context"
	"testing"

	"agcodex/internal/parser"
	"agcodex/internal/query"
)

const goSample = `package mathutil

func CalcSum(a, b int) int {
	return a + b
}

func CalcProduct(a, b int) int {
	return a * b
}

type Accumulator struct {
	total int
}

func (a *Accumulator) Add(n int) {
	a.total += n
}
`

const pySample = `def calc_sum(a, b):
    return a + b

class Accumulator:
    def add(self, n):
        self.total += n
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	pe, err := parser.NewEngine(2, 16)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { pe.Close() })
	lib := query.NewLibrary()
	t.Cleanup(lib.Close)
	return NewEngine(pe, lib)
}

func TestSymbolLayer(t *testing.T) {
	s := NewSymbolLayer()
	s.Add("CalcSum", SymbolLocation{File: "a.go", Line: 3})
	s.Add("CalcSum", SymbolLocation{File: "a.go", Line: 3}) // duplicate
	s.Add("CalcProduct", SymbolLocation{File: "a.go", Line: 7})
	s.Add("Accumulator", SymbolLocation{File: "a.go", Line: 11})

	if got := s.Count(); got != 3 {
		t.Fatalf("Count = %d, want 3", got)
	}
	if locs := s.Lookup("CalcSum"); len(locs) != 1 || locs[0].Line != 3 {
		t.Fatalf("Lookup(CalcSum) = %+v", locs)
	}
	if hits := s.Prefix("Calc"); len(hits) != 2 {
		t.Fatalf("Prefix(Calc) = %d hits, want 2", len(hits))
	}
	// One transposition away.
	if hits := s.Fuzzy("CaclSum", 2); len(hits) == 0 || hits[0].Name != "CalcSum" {
		t.Fatalf("Fuzzy(CaclSum) = %+v", hits)
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "acb", 1}, // transposition
		{"sum", "calc", 4},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		if got := editDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFullTextLayer(t *testing.T) {
	ft := NewFullTextLayer()
	ft.Index("a.py", parser.LangPython, []byte(pySample))
	ft.Index("b.go", parser.LangGo, []byte(goSample))

	hits := ft.Term("calc_sum", TextFilter{})
	if len(hits) != 1 || hits[0].Path != "a.py" {
		t.Fatalf("Term(calc_sum) = %+v", hits)
	}

	hits = ft.Term("accumulator", TextFilter{Language: parser.LangGo})
	for _, h := range hits {
		if h.Path != "b.go" {
			t.Errorf("language filter leaked: %+v", h)
		}
	}

	phrase := ft.Phrase([]string{"calc", "sum"}, TextFilter{})
	if len(phrase) == 0 {
		t.Fatal("Phrase(calc sum) found nothing")
	}

	boolHits := ft.Boolean(BoolQuery{Must: []string{"accumulator"}, MustNot: []string{"def"}}, TextFilter{})
	for _, h := range boolHits {
		if h.Path == "a.py" {
			t.Errorf("MustNot failed to exclude a.py: %+v", h)
		}
	}
}

func TestFullTextColumnsCountRunes(t *testing.T) {
	ft := NewFullTextLayer()
	// "héllo" is 5 runes but 6 bytes; "wörld" starts at rune column 7.
	ft.Index("u.txt", "", []byte("héllo wörld\n"))

	hits := ft.Term("wörld", TextFilter{})
	if len(hits) != 1 {
		t.Fatalf("Term(wörld) = %+v", hits)
	}
	if hits[0].Col != 7 {
		t.Errorf("col = %d, want rune column 7", hits[0].Col)
	}
	if hits[0].Byte != 7 {
		t.Errorf("byte = %d, want byte offset 7", hits[0].Byte)
	}

	hits = ft.Term("héllo", TextFilter{})
	if len(hits) != 1 || hits[0].Col != 1 {
		t.Errorf("Term(héllo) = %+v, want col 1", hits)
	}
}

func TestEngineAddFileExtractsSymbols(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.AddFile(ctx, "mathutil.go", []byte(goSample)); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	for _, name := range []string{"CalcSum", "CalcProduct", "Accumulator", "Add"} {
		if locs := e.Symbols().Lookup(name); len(locs) == 0 {
			t.Errorf("symbol %q not extracted", name)
		}
	}
}

func TestCascadeOrder(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.AddFile(ctx, "calc.py", []byte(pySample)); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	// All layers on: the symbol layer answers first.
	res, err := e.Search(ctx, SearchQuery{Term: "calc_sum", Layers: AllLayers()})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Layer != LayerSymbol || len(res.Hits) == 0 {
		t.Fatalf("expected symbol-layer answer, got %s with %d hits", res.Layer, len(res.Hits))
	}

	// Without the symbol layer the full-text layer answers.
	layers := AllLayers()
	layers.Symbol = false
	res, err = e.Search(ctx, SearchQuery{Term: "calc_sum", Layers: layers})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Layer != LayerFullText || len(res.Hits) == 0 {
		t.Fatalf("expected fulltext-layer answer, got %s with %d hits", res.Layer, len(res.Hits))
	}

	// Without symbol and full-text the AST layer answers.
	layers.FullText = false
	res, err = e.Search(ctx, SearchQuery{Term: "calc_sum", Layers: layers})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Layer != LayerAST || len(res.Hits) == 0 {
		t.Fatalf("expected ast-layer answer, got %s with %d hits", res.Layer, len(res.Hits))
	}

	// With only grep enabled the fallback answers.
	layers.AST = false
	res, err = e.Search(ctx, SearchQuery{Term: "calc_sum", Layers: layers})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Layer != LayerGrep || len(res.Hits) == 0 {
		t.Fatalf("expected grep fallback, got %s with %d hits", res.Layer, len(res.Hits))
	}
}

func TestCascadeTimingsRecorded(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.AddFile(ctx, "calc.py", []byte(pySample)); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	layers := AllLayers()
	layers.Symbol = false
	res, err := e.Search(ctx, SearchQuery{Term: "calc_sum", Layers: layers})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Timings) == 0 || res.Timings[0].Layer != LayerFullText {
		t.Fatalf("timings = %+v", res.Timings)
	}
}

func TestGrepFallbackUnsupportedLanguage(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.AddFile(ctx, "notes.txt", []byte("remember the calc_total routine\n")); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	res, err := e.Search(ctx, SearchQuery{Term: "calc_total", Layers: Layers{Grep: true}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Layer != LayerGrep || len(res.Hits) != 1 || res.Hits[0].Line != 1 {
		t.Fatalf("grep over unsupported file = %+v", res)
	}
}

func TestSearchEmptyTerm(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Search(context.Background(), SearchQuery{Layers: AllLayers()}); err == nil {
		t.Fatal("expected error for empty term")
	}
}

func TestRemoveFile(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.AddFile(ctx, "calc.py", []byte(pySample)); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	e.RemoveFile("calc.py")

	res, err := e.Search(ctx, SearchQuery{Term: "calc_sum", Layers: Layers{FullText: true, Grep: true}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 0 {
		t.Fatalf("hits after removal: %+v", res.Hits)
	}
}
