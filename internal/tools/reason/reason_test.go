package reason

import (
	"context"
	"strings"
	"testing"

	"agcodex/internal/tools"
	"agcodex/internal/types"
)

func TestPlanRejectsEmptyGoal(t *testing.T) {
	out, err := PlanTool().Execute(context.Background(), map[string]any{"goal": "  "})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if out.Success || out.Diagnostics[0].Kind != tools.DiagInvalidGoal {
		t.Fatalf("expected invalid_goal, got %+v", out)
	}
}

func TestPlanDecomposition(t *testing.T) {
	out, err := PlanTool().Execute(context.Background(), map[string]any{
		"goal": "audit the parser and audit the index then fix the findings then verify",
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !out.Success {
		t.Fatalf("plan failed: %+v", out.Diagnostics)
	}

	result := out.Result.(PlanResult)
	if len(result.Tasks) != 4 {
		t.Fatalf("tasks = %+v", result.Tasks)
	}
	// First wave holds the two parallel audits.
	if len(result.ParallelGroups) != 3 || len(result.ParallelGroups[0]) != 2 {
		t.Fatalf("groups = %+v", result.ParallelGroups)
	}
	if !result.Tasks[0].CanParallelize || result.Tasks[2].CanParallelize {
		t.Fatalf("parallelize flags wrong: %+v", result.Tasks)
	}
	// The fix stage depends on both audits.
	if len(result.Tasks[2].DependsOn) != 2 {
		t.Fatalf("fix deps = %+v", result.Tasks[2].DependsOn)
	}
	if result.Complexity != types.ComplexityMedium {
		t.Fatalf("complexity = %s", result.Complexity)
	}
}

func TestPlanExplicitTasksAndCycle(t *testing.T) {
	out, err := PlanTool().Execute(context.Background(), map[string]any{
		"goal": "refactor",
		"tasks": []any{
			map[string]any{"id": "a", "description": "step a", "depends_on": []any{"b"}},
			map[string]any{"id": "b", "description": "step b", "depends_on": []any{"a"}},
		},
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if out.Success {
		t.Fatal("cycle not detected")
	}
	d := out.Diagnostics[0]
	if d.Kind != tools.DiagCircularDependency {
		t.Fatalf("kind = %s", d.Kind)
	}
	if !strings.Contains(d.Message, "CircularDependency(") || !strings.Contains(d.Message, "->") {
		t.Fatalf("message = %q", d.Message)
	}
}

func TestPlanUnknownDependency(t *testing.T) {
	out, err := PlanTool().Execute(context.Background(), map[string]any{
		"goal": "refactor",
		"tasks": []any{
			map[string]any{"id": "a", "description": "step a", "depends_on": []any{"ghost"}},
		},
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if out.Success || out.Diagnostics[0].Kind != tools.DiagValidation {
		t.Fatalf("expected validation failure, got %+v", out)
	}
}

func TestPlanSimpleGoal(t *testing.T) {
	out, err := PlanTool().Execute(context.Background(), map[string]any{
		"goal": "rename the config loader",
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	result := out.Result.(PlanResult)
	if len(result.Tasks) != 1 || result.Complexity != types.ComplexitySimple {
		t.Fatalf("result = %+v", result)
	}
}

func TestThinkStrategyHeuristic(t *testing.T) {
	tests := []struct {
		problem      string
		wantType     string
		wantStrategy string
	}{
		{"the server crashes under load", "debugging", StrategySequential},
		{"design a plugin interface", "design", StrategyShannon},
		{"compare sqlite versus bolt for snapshots", "review", StrategyActorCritic},
	}
	for _, tt := range tests {
		out, err := ThinkTool().Execute(context.Background(), map[string]any{"problem": tt.problem})
		if err != nil {
			t.Fatalf("think: %v", err)
		}
		result := out.Result.(ThinkResult)
		if result.ProblemType != tt.wantType || result.Strategy != tt.wantStrategy {
			t.Errorf("%q: got (%s, %s), want (%s, %s)",
				tt.problem, result.ProblemType, result.Strategy, tt.wantType, tt.wantStrategy)
		}
		if len(result.ReasoningTrace) == 0 || result.Confidence == 0 {
			t.Errorf("%q: empty trace or zero confidence", tt.problem)
		}
	}
}

func TestThinkForcedStrategyAndThreshold(t *testing.T) {
	out, err := ThinkTool().Execute(context.Background(), map[string]any{
		"problem":              "anything",
		"strategy":             StrategyShannon,
		"confidence_threshold": 0.95,
	})
	if err != nil {
		t.Fatalf("think: %v", err)
	}
	result := out.Result.(ThinkResult)
	if result.Strategy != StrategyShannon {
		t.Fatalf("strategy = %s", result.Strategy)
	}
	if result.ReasoningState != "needs_input" || result.NextAction == "" {
		t.Fatalf("threshold not applied: %+v", result)
	}
}

func TestThinkRejectsEmptyProblem(t *testing.T) {
	out, err := ThinkTool().Execute(context.Background(), map[string]any{"problem": ""})
	if err != nil {
		t.Fatalf("think: %v", err)
	}
	if out.Success {
		t.Fatal("empty problem accepted")
	}
}
