package orchestrator

import (
	"context"

	"agcodex/internal/agent"
	"agcodex/internal/tools"
	"agcodex/internal/types"
)

// Runner is the agent capability: it consumes an isolated context and a
// toolbox and produces a result. Built-in and user-declared agents
// implement the same interface; descriptors differ only in how the
// runner is constructed.
type Runner interface {
	Execute(ctx context.Context, desc *agent.Descriptor, ac *AgentContext, tb *tools.Toolbox) (*types.AgentResult, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, desc *agent.Descriptor, ac *AgentContext, tb *tools.Toolbox) (*types.AgentResult, error)

func (f RunnerFunc) Execute(ctx context.Context, desc *agent.Descriptor, ac *AgentContext, tb *tools.Toolbox) (*types.AgentResult, error) {
	return f(ctx, desc, ac, tb)
}

// ProgressUpdate is one orchestrator progress event. Consumers that
// fall behind lose events rather than blocking execution.
type ProgressUpdate struct {
	AgentName string
	Progress  float64
	Message   string
	Status    types.AgentStatus
}
