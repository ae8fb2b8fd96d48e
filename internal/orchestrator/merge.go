package orchestrator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"agcodex/internal/invoke"
	"agcodex/internal/types"
)

// Report is the canonical merged response for one request. The Summary
// section is a stable contract: collaborators parse it with anchored
// headings ("## Agent Analysis Results", "### <name> Agent").
type Report struct {
	RequestID      uuid.UUID
	Success        bool
	PartialSuccess bool
	Results        []*types.AgentResult
	Summary        string
	Duration       time.Duration
}

// topFindings caps how many findings each agent section shows.
const topFindings = 5

// Merge canonicalizes the results of a request: plan-position order,
// severity-sorted findings, success flags, and the summary section.
func Merge(req *invoke.Request, results []*types.AgentResult, elapsed time.Duration) *Report {
	merged := make([]*types.AgentResult, len(results))
	copy(merged, results)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PlanPosition < merged[j].PlanPosition
	})

	completed := 0
	for _, res := range merged {
		types.SortFindings(res.Findings)
		if res.Status == types.StatusCompleted {
			completed++
		}
	}

	report := &Report{
		RequestID:      req.ID,
		Success:        len(merged) > 0 && completed == len(merged),
		PartialSuccess: completed > 0 && completed < len(merged),
		Results:        merged,
		Duration:       elapsed,
	}
	report.Summary = renderSummary(report, completed)
	return report
}

func renderSummary(r *Report, completed int) string {
	var b strings.Builder
	b.WriteString("## Agent Analysis Results\n\n")

	status := "failed"
	switch {
	case r.Success:
		status = "success"
	case r.PartialSuccess:
		status = "partial success"
	}
	fmt.Fprintf(&b, "**Status:** %s — %d/%d steps completed in %v\n",
		status, completed, len(r.Results), r.Duration.Round(time.Millisecond))

	for _, res := range r.Results {
		fmt.Fprintf(&b, "\n### %s Agent\n\n", res.AgentName)
		fmt.Fprintf(&b, "- **Status:** %s\n", res.Status)
		fmt.Fprintf(&b, "- **Execution time:** %v\n", res.ExecutionTime.Round(time.Millisecond))
		if res.Error != "" {
			fmt.Fprintf(&b, "- **Error:** %s\n", res.Error)
		}
		if res.Summary != "" {
			fmt.Fprintf(&b, "- **Summary:** %s\n", res.Summary)
		}

		if n := len(res.Findings); n > 0 {
			shown := n
			if shown > topFindings {
				shown = topFindings
			}
			fmt.Fprintf(&b, "\n**Findings (%d of %d):**\n", shown, n)
			for _, f := range res.Findings[:shown] {
				loc := ""
				if f.Location != nil {
					loc = fmt.Sprintf(" (%s:%d)", f.Location.File, f.Location.Line)
				}
				fmt.Fprintf(&b, "- [%s] %s%s\n", f.Severity, f.Title, loc)
			}
		}

		if len(res.Metrics) > 0 {
			keys := make([]string, 0, len(res.Metrics))
			for k := range res.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteString("\n**Metrics:**\n")
			for _, k := range keys {
				fmt.Fprintf(&b, "- %s: %v\n", k, res.Metrics[k])
			}
		}

		if len(res.ModifiedFiles) > 0 {
			b.WriteString("\n**Modified files:**\n")
			for _, f := range res.ModifiedFiles {
				fmt.Fprintf(&b, "- %s\n", f)
			}
		}
	}

	return b.String()
}
