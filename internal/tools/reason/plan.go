// Package reason provides the planning and structured-thinking tools.
//
// Tools:
//   - plan: Decompose a goal into a dependency-ordered task graph
//   - think: Run a reasoning strategy over a problem statement
package reason

import (
	"context"
	"fmt"
	"strings"

	"agcodex/internal/logging"
	"agcodex/internal/tools"
	"agcodex/internal/types"
)

// Task is one unit of a decomposed goal.
type Task struct {
	ID             string   `json:"id"`
	Description    string   `json:"description"`
	DependsOn      []string `json:"depends_on,omitempty"`
	CanParallelize bool     `json:"can_parallelize"`
}

// PlanResult is the task graph the plan tool produces.
type PlanResult struct {
	Goal           string           `json:"goal"`
	Tasks          []Task           `json:"tasks"`
	ParallelGroups [][]string       `json:"parallel_groups"`
	Complexity     types.Complexity `json:"complexity"`
}

// PlanTool returns the goal-decomposition tool.
func PlanTool() *tools.Tool {
	return &tools.Tool{
		Name:        "plan",
		Description: "Decompose a goal into tasks with a dependency graph and parallel groups",
		Category:    tools.CategoryReason,
		Priority:    60,
		Execute:     executePlan,
		Schema: tools.Schema{
			Required: []string{"goal"},
			Properties: map[string]tools.Property{
				"goal": {
					Type:        "string",
					Description: "The goal to decompose",
				},
				"constraints": {
					Type:        "array",
					Description: "Constraints each task must respect",
					Items:       &tools.PropertyItems{Type: "string"},
				},
				"tasks": {
					Type:        "array",
					Description: "Pre-decomposed tasks; skips heuristic decomposition",
					Items:       &tools.PropertyItems{Type: "object"},
				},
			},
		},
	}
}

func executePlan(ctx context.Context, args map[string]any) (*tools.Output, error) {
	goal := strings.TrimSpace(tools.StringArg(args, "goal", ""))
	if goal == "" {
		return tools.Fail(tools.DiagInvalidGoal, "goal must not be empty"), nil
	}
	constraints := tools.StringsArg(args, "constraints")

	tasks, out := providedTasks(args)
	if out != nil {
		return out, nil
	}
	if tasks == nil {
		tasks = decompose(goal, constraints)
	}

	if chain := findCycle(tasks); chain != nil {
		return tools.Fail(tools.DiagCircularDependency, "CircularDependency(%s)", strings.Join(chain, " -> ")), nil
	}

	groups, out := parallelGroups(tasks)
	if out != nil {
		return out, nil
	}

	result := PlanResult{
		Goal:           goal,
		Tasks:          tasks,
		ParallelGroups: groups,
		Complexity:     estimateComplexity(tasks, groups),
	}
	logging.Tools("plan: %d tasks in %d groups (%s)", len(tasks), len(groups), result.Complexity)
	summary := fmt.Sprintf("%d tasks, %d execution waves, %s", len(tasks), len(groups), result.Complexity)
	return tools.Ok(result, summary), nil
}

// providedTasks decodes an explicit tasks argument, if present.
func providedTasks(args map[string]any) ([]Task, *tools.Output) {
	raw, ok := args["tasks"].([]any)
	if !ok {
		return nil, nil
	}
	var tasks []Task
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, tools.Fail(tools.DiagValidation, "tasks[%d] is not an object", i)
		}
		task := Task{
			ID:             tools.StringArg(m, "id", fmt.Sprintf("t%d", i+1)),
			Description:    tools.StringArg(m, "description", ""),
			DependsOn:      tools.StringsArg(m, "depends_on"),
			CanParallelize: tools.BoolArg(m, "can_parallelize", true),
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// decompose splits a goal into staged tasks. "then" separates sequential
// stages; "and" splits a stage into parallel siblings.
func decompose(goal string, constraints []string) []Task {
	var tasks []Task
	var prevStage []string

	suffix := ""
	if len(constraints) > 0 {
		suffix = " (respecting: " + strings.Join(constraints, "; ") + ")"
	}

	next := 1
	for _, stage := range strings.Split(goal, " then ") {
		siblings := strings.Split(stage, " and ")
		var stageIDs []string
		for _, part := range siblings {
			part = strings.TrimSpace(strings.Trim(part, ".,;"))
			if part == "" {
				continue
			}
			task := Task{
				ID:             fmt.Sprintf("t%d", next),
				Description:    part + suffix,
				DependsOn:      prevStage,
				CanParallelize: len(siblings) > 1,
			}
			next++
			tasks = append(tasks, task)
			stageIDs = append(stageIDs, task.ID)
		}
		if len(stageIDs) > 0 {
			prevStage = stageIDs
		}
	}

	if len(tasks) == 0 {
		tasks = []Task{{ID: "t1", Description: goal + suffix}}
	}
	return tasks
}

// findCycle returns a dependency chain ending where it started, or nil.
func findCycle(tasks []Task) []string {
	deps := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		deps[t.ID] = t.DependsOn
	}

	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int, len(tasks))

	var chain []string
	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = grey
		chain = append(chain, id)
		for _, dep := range deps[id] {
			switch color[dep] {
			case grey:
				chain = append(chain, dep)
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		color[id] = black
		chain = chain[:len(chain)-1]
		return false
	}

	for _, t := range tasks {
		if color[t.ID] == white {
			chain = chain[:0]
			if visit(t.ID) {
				// Trim to the cycle itself.
				start := chain[len(chain)-1]
				for i, id := range chain {
					if id == start {
						return chain[i:]
					}
				}
				return chain
			}
		}
	}
	return nil
}

// parallelGroups schedules tasks breadth-first: each wave holds every task
// whose dependencies are already scheduled.
func parallelGroups(tasks []Task) ([][]string, *tools.Output) {
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if !known[dep] {
				return nil, tools.Fail(tools.DiagValidation, "task %s depends on unknown task %s", t.ID, dep)
			}
		}
	}

	scheduled := make(map[string]bool, len(tasks))
	var groups [][]string
	for len(scheduled) < len(tasks) {
		var wave []string
		for _, t := range tasks {
			if scheduled[t.ID] {
				continue
			}
			ready := true
			for _, dep := range t.DependsOn {
				if !scheduled[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, t.ID)
			}
		}
		if len(wave) == 0 {
			// Unschedulable remainder; cycles are caught earlier.
			return nil, tools.Fail(tools.DiagValidation, "unschedulable tasks remain")
		}
		for _, id := range wave {
			scheduled[id] = true
		}
		groups = append(groups, wave)
	}
	return groups, nil
}

func estimateComplexity(tasks []Task, groups [][]string) types.Complexity {
	switch {
	case len(tasks) <= 2 && len(groups) <= 2:
		return types.ComplexitySimple
	case len(tasks) <= 5:
		return types.ComplexityMedium
	default:
		return types.ComplexityComplex
	}
}
