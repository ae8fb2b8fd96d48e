package types

import (
	"testing"
)

func TestSeverityRankOrdering(t *testing.T) {
	order := []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("%s should rank before %s", order[i-1], order[i])
		}
	}
	if Severity("bogus").Valid() {
		t.Error("unknown severity should not be valid")
	}
}

func TestSortFindings(t *testing.T) {
	findings := []Finding{
		{Title: "c", Severity: SeverityLow, Location: &Location{File: "a.go", Line: 3}},
		{Title: "a", Severity: SeverityCritical, Location: &Location{File: "b.go", Line: 10}},
		{Title: "b", Severity: SeverityCritical, Location: &Location{File: "a.go", Line: 7}},
		{Title: "d", Severity: SeverityCritical, Location: &Location{File: "a.go", Line: 2}},
		{Title: "e", Severity: SeverityInfo},
	}

	SortFindings(findings)

	want := []string{"d", "b", "a", "c", "e"}
	for i, title := range want {
		if findings[i].Title != title {
			t.Errorf("position %d: got %q, want %q", i, findings[i].Title, title)
		}
	}
}

func TestIntelligenceBudgets(t *testing.T) {
	tests := []struct {
		level     Intelligence
		chunkSize int
		maxChunks int
	}{
		{IntelligenceLight, 256, 1_000},
		{IntelligenceMedium, 512, 10_000},
		{IntelligenceHard, 1024, 100_000},
		{Intelligence(""), 512, 10_000}, // unset defaults to medium
	}
	for _, tt := range tests {
		if got := tt.level.ChunkSize(); got != tt.chunkSize {
			t.Errorf("%q chunk size = %d, want %d", tt.level, got, tt.chunkSize)
		}
		if got := tt.level.MaxChunks(); got != tt.maxChunks {
			t.Errorf("%q max chunks = %d, want %d", tt.level, got, tt.maxChunks)
		}
	}
}

func TestNewFindingHasID(t *testing.T) {
	f := NewFinding("style", SeverityInfo, "naming")
	if f.ID == "" {
		t.Fatal("finding should be assigned an ID")
	}
	g := NewFinding("style", SeverityInfo, "naming")
	if f.ID == g.ID {
		t.Error("finding IDs should be unique")
	}
}
