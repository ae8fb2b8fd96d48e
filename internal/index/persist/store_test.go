package persist

import (
	"context"
	"path/filepath"
	"testing"

	"agcodex/internal/index"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "symbols.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	symbols := []index.NamedLocation{
		{Name: "CalcSum", Location: index.SymbolLocation{File: "a.go", Line: 3, Column: 6, Byte: 20, Scope: "functions"}},
		{Name: "Accumulator", Location: index.SymbolLocation{File: "a.go", Line: 11, Column: 6, Byte: 90, Scope: "classes"}},
	}
	if err := s.Save(ctx, symbols); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d symbols, want 2", len(got))
	}
	// Ordered by name.
	if got[0].Name != "Accumulator" || got[1].Name != "CalcSum" {
		t.Fatalf("order = %s, %s", got[0].Name, got[1].Name)
	}
	if got[1].Location.Scope != "functions" {
		t.Errorf("scope = %q, want functions", got[1].Location.Scope)
	}
}

func TestSaveReplacesPrevious(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []index.NamedLocation{{Name: "Old", Location: index.SymbolLocation{File: "a.go", Line: 1}}}
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := []index.NamedLocation{{Name: "New", Location: index.SymbolLocation{File: "b.go", Line: 2}}}
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("Count = %d, want 1", n)
	}
	got, _ := s.Load(ctx)
	if got[0].Name != "New" {
		t.Fatalf("snapshot not replaced, got %q", got[0].Name)
	}
}

func TestRestore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	symbols := []index.NamedLocation{
		{Name: "CalcSum", Location: index.SymbolLocation{File: "a.go", Line: 3}},
		{Name: "CalcProduct", Location: index.SymbolLocation{File: "a.go", Line: 7}},
	}
	if err := s.Save(ctx, symbols); err != nil {
		t.Fatalf("Save: %v", err)
	}

	layer := index.NewSymbolLayer()
	n, err := s.Restore(ctx, layer)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if n != 2 || layer.Count() != 2 {
		t.Fatalf("restored %d, layer has %d", n, layer.Count())
	}
	if locs := layer.Lookup("CalcSum"); len(locs) != 1 || locs[0].Line != 3 {
		t.Fatalf("Lookup after restore = %+v", locs)
	}
}

func TestMeta(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if v, err := s.Meta(ctx, "commit"); err != nil || v != "" {
		t.Fatalf("Meta(missing) = %q, %v", v, err)
	}
	if err := s.SetMeta(ctx, "commit", "abc123"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	if err := s.SetMeta(ctx, "commit", "def456"); err != nil {
		t.Fatalf("SetMeta upsert: %v", err)
	}
	v, err := s.Meta(ctx, "commit")
	if err != nil || v != "def456" {
		t.Fatalf("Meta = %q, %v", v, err)
	}
}
