// Package types holds the domain types shared across the AGCodex core:
// findings, agent results, severity and intelligence enums. Nothing in
// here has behavior beyond validation and sorting; the packages that
// produce and consume these values live under internal/.
package types

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rank returns the sort rank of a severity. Lower ranks sort first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	case SeverityInfo:
		return 4
	default:
		return 5
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s.Rank() < 5
}

// =============================================================================
// FINDINGS
// =============================================================================

// Location pinpoints a finding inside a source file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Byte   int    `json:"byte"`
}

// Finding is a structured observation produced by an agent.
type Finding struct {
	ID          string         `json:"id"`
	Category    string         `json:"category"`
	Severity    Severity       `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Location    *Location      `json:"location,omitempty"`
	Suggestion  string         `json:"suggestion,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewFinding creates a finding with a fresh ID.
func NewFinding(category string, severity Severity, title string) Finding {
	return Finding{
		ID:       uuid.NewString(),
		Category: category,
		Severity: severity,
		Title:    title,
	}
}

// SortFindings orders findings by severity, then file, then line.
// The sort is stable so same-position findings keep insertion order.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		af, bf := "", ""
		al, bl := 0, 0
		if a.Location != nil {
			af, al = a.Location.File, a.Location.Line
		}
		if b.Location != nil {
			bf, bl = b.Location.File, b.Location.Line
		}
		if af != bf {
			return af < bf
		}
		return al < bl
	})
}

// =============================================================================
// AGENT RESULTS
// =============================================================================

// AgentStatus is the terminal (or in-flight) state of one invocation.
type AgentStatus string

const (
	StatusPending   AgentStatus = "pending"
	StatusRunning   AgentStatus = "running"
	StatusCompleted AgentStatus = "completed"
	StatusFailed    AgentStatus = "failed"
	StatusCancelled AgentStatus = "cancelled"
)

// AgentResult is what a single agent invocation produces.
type AgentResult struct {
	AgentName     string         `json:"agent_name"`
	Status        AgentStatus    `json:"status"`
	Error         string         `json:"error,omitempty"`
	Findings      []Finding      `json:"findings"`
	AnalyzedFiles []string       `json:"analyzed_files,omitempty"`
	ModifiedFiles []string       `json:"modified_files,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time"`
	Summary       string         `json:"summary"`
	Metrics       map[string]any `json:"metrics,omitempty"`

	// PlanPosition is the invocation's position in the original plan.
	// The merger re-sorts parallel results by it.
	PlanPosition int `json:"plan_position"`
}

// Failed builds a failed result for an agent.
func Failed(agentName, msg string) *AgentResult {
	return &AgentResult{
		AgentName: agentName,
		Status:    StatusFailed,
		Error:     msg,
		Summary:   fmt.Sprintf("%s failed: %s", agentName, msg),
	}
}

// =============================================================================
// INTELLIGENCE AND COMPLEXITY
// =============================================================================

// Intelligence governs how much material an agent chews per pass.
type Intelligence string

const (
	IntelligenceLight  Intelligence = "light"
	IntelligenceMedium Intelligence = "medium"
	IntelligenceHard   Intelligence = "hard"
)

// ChunkSize returns the per-chunk unit budget for the level.
func (i Intelligence) ChunkSize() int {
	switch i {
	case IntelligenceLight:
		return 256
	case IntelligenceHard:
		return 1024
	default:
		return 512
	}
}

// MaxChunks returns the chunk cap for the level.
func (i Intelligence) MaxChunks() int {
	switch i {
	case IntelligenceLight:
		return 1_000
	case IntelligenceHard:
		return 100_000
	default:
		return 10_000
	}
}

// Complexity estimates the size of a planned goal.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)
