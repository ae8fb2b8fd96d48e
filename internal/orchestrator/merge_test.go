package orchestrator

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"agcodex/internal/invoke"
	"agcodex/internal/types"
)

func mergeRequest() *invoke.Request {
	return &invoke.Request{ID: uuid.New(), Plan: invoke.Single{}}
}

func TestMergeSortsByPlanPosition(t *testing.T) {
	results := []*types.AgentResult{
		{AgentName: "c", Status: types.StatusCompleted, PlanPosition: 2},
		{AgentName: "a", Status: types.StatusCompleted, PlanPosition: 0},
		{AgentName: "b", Status: types.StatusCompleted, PlanPosition: 1},
	}

	report := Merge(mergeRequest(), results, time.Second)
	for i, want := range []string{"a", "b", "c"} {
		if report.Results[i].AgentName != want {
			t.Errorf("result %d = %q, want %q", i, report.Results[i].AgentName, want)
		}
	}
	if !report.Success || report.PartialSuccess {
		t.Errorf("flags: success=%v partial=%v", report.Success, report.PartialSuccess)
	}
}

func TestMergeSortsFindings(t *testing.T) {
	res := &types.AgentResult{
		AgentName: "a",
		Status:    types.StatusCompleted,
		Findings: []types.Finding{
			{Severity: types.SeverityLow, Title: "low", Location: &types.Location{File: "z.go", Line: 1}},
			{Severity: types.SeverityCritical, Title: "crit", Location: &types.Location{File: "b.go", Line: 9}},
			{Severity: types.SeverityCritical, Title: "crit2", Location: &types.Location{File: "a.go", Line: 3}},
		},
	}

	report := Merge(mergeRequest(), []*types.AgentResult{res}, 0)
	f := report.Results[0].Findings
	if f[0].Title != "crit2" || f[1].Title != "crit" || f[2].Title != "low" {
		t.Errorf("findings not sorted by severity then file: %q %q %q", f[0].Title, f[1].Title, f[2].Title)
	}
}

func TestMergeFlags(t *testing.T) {
	tests := []struct {
		name     string
		statuses []types.AgentStatus
		success  bool
		partial  bool
	}{
		{"all completed", []types.AgentStatus{types.StatusCompleted, types.StatusCompleted}, true, false},
		{"mixed", []types.AgentStatus{types.StatusCompleted, types.StatusFailed}, false, true},
		{"all failed", []types.AgentStatus{types.StatusFailed, types.StatusFailed}, false, false},
		{"cancelled counts as not completed", []types.AgentStatus{types.StatusCompleted, types.StatusCancelled}, false, true},
		{"empty", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]*types.AgentResult, len(tt.statuses))
			for i, st := range tt.statuses {
				results[i] = &types.AgentResult{AgentName: "x", Status: st, PlanPosition: i}
			}
			report := Merge(mergeRequest(), results, 0)
			if report.Success != tt.success || report.PartialSuccess != tt.partial {
				t.Errorf("success=%v partial=%v, want %v/%v",
					report.Success, report.PartialSuccess, tt.success, tt.partial)
			}
		})
	}
}

func TestMergeSummaryAnchoredHeadings(t *testing.T) {
	res := &types.AgentResult{
		AgentName:     "code-reviewer",
		Status:        types.StatusCompleted,
		Summary:       "looked at 3 files",
		ExecutionTime: 1200 * time.Millisecond,
		ModifiedFiles: []string{"a.go"},
		Metrics:       map[string]any{"files": 3},
		Findings: []types.Finding{
			{Severity: types.SeverityHigh, Title: "unchecked error", Location: &types.Location{File: "a.go", Line: 12}},
		},
	}

	report := Merge(mergeRequest(), []*types.AgentResult{res}, 2*time.Second)
	sum := report.Summary

	for _, anchor := range []string{
		"## Agent Analysis Results",
		"### code-reviewer Agent",
		"**Status:** completed",
		"[high] unchecked error (a.go:12)",
		"**Modified files:**",
		"- a.go",
		"- files: 3",
	} {
		if !strings.Contains(sum, anchor) {
			t.Errorf("summary missing %q:\n%s", anchor, sum)
		}
	}
}

func TestMergeSummaryCapsFindings(t *testing.T) {
	res := &types.AgentResult{AgentName: "a", Status: types.StatusCompleted}
	for i := 0; i < 8; i++ {
		res.Findings = append(res.Findings, types.Finding{
			Severity: types.SeverityMedium,
			Title:    "finding",
		})
	}

	report := Merge(mergeRequest(), []*types.AgentResult{res}, 0)
	if !strings.Contains(report.Summary, "**Findings (5 of 8):**") {
		t.Errorf("summary should cap at 5 findings:\n%s", report.Summary)
	}
	if got := strings.Count(report.Summary, "- [medium] finding"); got != 5 {
		t.Errorf("summary lists %d findings, want 5", got)
	}
}

func TestMergeIncludesFailedSteps(t *testing.T) {
	results := []*types.AgentResult{
		{AgentName: "a", Status: types.StatusCompleted, PlanPosition: 0},
		{AgentName: "b", Status: types.StatusFailed, Error: "timeout", PlanPosition: 1},
	}

	report := Merge(mergeRequest(), results, 0)
	if len(report.Results) != 2 {
		t.Fatal("every attempted step must appear in the report")
	}
	if !strings.Contains(report.Summary, "**Error:** timeout") {
		t.Errorf("failed step's error missing from summary:\n%s", report.Summary)
	}
}
