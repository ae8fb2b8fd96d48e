package reason

import (
	"context"
	"fmt"
	"strings"

	"agcodex/internal/logging"
	"agcodex/internal/tools"
)

// Reasoning strategies.
const (
	StrategySequential  = "sequential"
	StrategyShannon     = "shannon"
	StrategyActorCritic = "actor_critic"
)

// ThinkStep is one entry in a reasoning trace.
type ThinkStep struct {
	Phase   string  `json:"phase"`
	Thought string  `json:"thought"`
	Score   float64 `json:"score,omitempty"`
}

// ThinkResult is the structured outcome of the think tool.
type ThinkResult struct {
	ProblemType    string      `json:"problem_type"`
	Strategy       string      `json:"strategy"`
	Confidence     float64     `json:"confidence"`
	ReasoningTrace []ThinkStep `json:"reasoning_trace"`
	NextAction     string      `json:"next_action,omitempty"`
	ReasoningState string      `json:"reasoning_state"`
}

// ThinkTool returns the structured-reasoning tool.
func ThinkTool() *tools.Tool {
	return &tools.Tool{
		Name:        "think",
		Description: "Work a problem with a chosen reasoning strategy",
		Category:    tools.CategoryReason,
		Priority:    55,
		Execute:     executeThink,
		Schema: tools.Schema{
			Required: []string{"problem"},
			Properties: map[string]tools.Property{
				"problem": {
					Type:        "string",
					Description: "The problem statement",
				},
				"problem_type": {
					Type:        "string",
					Description: "Problem classification (debugging, design, review, ...)",
				},
				"strategy": {
					Type:        "string",
					Description: "Force a strategy instead of the heuristic",
					Enum:        []any{StrategySequential, StrategyShannon, StrategyActorCritic},
				},
				"context": {
					Type:        "string",
					Description: "Extra context for the trace",
				},
				"confidence_threshold": {
					Type:        "number",
					Description: "Confidence below which next_action asks for more input",
					Default:     0.6,
				},
			},
		},
	}
}

func executeThink(ctx context.Context, args map[string]any) (*tools.Output, error) {
	problem := strings.TrimSpace(tools.StringArg(args, "problem", ""))
	if problem == "" {
		return tools.Fail(tools.DiagValidation, "problem must not be empty"), nil
	}

	problemType := tools.StringArg(args, "problem_type", "")
	if problemType == "" {
		problemType = classifyProblem(problem)
	}
	strategy := tools.StringArg(args, "strategy", "")
	if strategy == "" {
		strategy = strategyFor(problemType)
	}
	extra := tools.StringArg(args, "context", "")

	threshold := 0.6
	if v, ok := args["confidence_threshold"].(float64); ok {
		threshold = v
	}

	var trace []ThinkStep
	var confidence float64
	switch strategy {
	case StrategySequential:
		trace, confidence = sequentialTrace(problem, extra)
	case StrategyShannon:
		trace, confidence = shannonTrace(problem, extra)
	case StrategyActorCritic:
		trace, confidence = actorCriticTrace(problem, extra)
	default:
		return tools.Fail(tools.DiagValidation, "unknown strategy %q", strategy), nil
	}

	result := ThinkResult{
		ProblemType:    problemType,
		Strategy:       strategy,
		Confidence:     confidence,
		ReasoningTrace: trace,
		ReasoningState: "concluded",
	}
	if confidence < threshold {
		result.ReasoningState = "needs_input"
		result.NextAction = "gather more context before acting"
	}

	logging.Tools("think: type=%s strategy=%s confidence=%.2f", problemType, strategy, confidence)
	summary := fmt.Sprintf("%s via %s, confidence %.2f", problemType, strategy, confidence)
	return tools.Ok(result, summary), nil
}

// classifyProblem buckets a problem statement by its keywords.
func classifyProblem(problem string) string {
	p := strings.ToLower(problem)
	switch {
	case containsAny(p, "bug", "crash", "panic", "fail", "error", "broken"):
		return "debugging"
	case containsAny(p, "design", "architect", "structure", "api", "interface"):
		return "design"
	case containsAny(p, "review", "trade-off", "tradeoff", "compare", "versus", "choose"):
		return "review"
	case containsAny(p, "slow", "performance", "latency", "memory"):
		return "performance"
	default:
		return "general"
	}
}

func strategyFor(problemType string) string {
	switch problemType {
	case "design":
		return StrategyShannon
	case "review":
		return StrategyActorCritic
	default:
		return StrategySequential
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// sequentialTrace is a straight chain: observe, hypothesize, check, conclude.
func sequentialTrace(problem, extra string) ([]ThinkStep, float64) {
	steps := []ThinkStep{
		{Phase: "observe", Thought: "restate the problem: " + problem},
		{Phase: "hypothesize", Thought: "list plausible causes ordered by likelihood"},
		{Phase: "check", Thought: "identify the cheapest probe that splits the hypothesis space"},
		{Phase: "conclude", Thought: "commit to the surviving hypothesis"},
	}
	confidence := 0.75
	if extra != "" {
		steps = append([]ThinkStep{{Phase: "context", Thought: extra}}, steps...)
		confidence = 0.85
	}
	return steps, confidence
}

// shannonTrace is the phase machine for design problems: simplify the
// problem, solve the simplified form, then restore the removed constraints.
func shannonTrace(problem, extra string) ([]ThinkStep, float64) {
	steps := []ThinkStep{
		{Phase: "strip", Thought: "remove every constraint that is not essential to: " + problem},
		{Phase: "solve", Thought: "solve the stripped problem in its simplest form"},
		{Phase: "restore", Thought: "reintroduce constraints one at a time, adapting the solution"},
		{Phase: "verify", Thought: "confirm the restored solution still satisfies the original statement"},
	}
	confidence := 0.7
	if extra != "" {
		steps = append([]ThinkStep{{Phase: "context", Thought: extra}}, steps...)
		confidence = 0.8
	}
	return steps, confidence
}

// actorCriticTrace alternates proposal and critique rounds, scoring each.
func actorCriticTrace(problem, extra string) ([]ThinkStep, float64) {
	steps := []ThinkStep{
		{Phase: "actor", Thought: "propose a first answer to: " + problem, Score: 0.5},
		{Phase: "critic", Thought: "attack the proposal: missing cases, hidden costs", Score: 0.6},
		{Phase: "actor", Thought: "revise the proposal to survive the critique", Score: 0.7},
		{Phase: "critic", Thought: "final pass: remaining weaknesses are acceptable or not", Score: 0.8},
	}
	confidence := 0.8
	if extra != "" {
		steps = append([]ThinkStep{{Phase: "context", Thought: extra}}, steps...)
	}
	return steps, confidence
}
