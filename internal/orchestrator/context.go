// Package orchestrator executes invocation plans: it resolves agents,
// enforces the concurrency cap, timeouts, retries and the circuit
// breaker, passes isolated contexts, and merges per-agent results into
// one report.
package orchestrator

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"agcodex/internal/mode"
	"agcodex/internal/types"
)

// AgentOutput is one accumulated per-agent summary.
type AgentOutput struct {
	AgentName string
	Summary   string
}

// SharedContext is the per-request key/value store chained agents
// communicate through. Readers never block each other; writers take a
// short critical section. Lifetime is one invocation request.
type SharedContext struct {
	mu      sync.RWMutex
	values  map[string]any
	outputs []AgentOutput
}

// NewSharedContext returns an empty shared context.
func NewSharedContext() *SharedContext {
	return &SharedContext{values: make(map[string]any)}
}

// Get returns the value for key.
func (s *SharedContext) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (s *SharedContext) Set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// Keys returns all keys, sorted for determinism.
func (s *SharedContext) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RecordOutput appends one agent's summary to the output log.
func (s *SharedContext) RecordOutput(agentName, summary string) {
	s.mu.Lock()
	s.outputs = append(s.outputs, AgentOutput{AgentName: agentName, Summary: summary})
	s.mu.Unlock()
}

// AllOutputs returns the accumulated summaries in insertion order.
func (s *SharedContext) AllOutputs() []AgentOutput {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AgentOutput, len(s.outputs))
	copy(out, s.outputs)
	return out
}

// Snapshot returns a shallow copy of the value map so agents can read a
// consistent view without holding the lock.
func (s *SharedContext) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]any, len(s.values))
	for k, v := range s.values {
		snap[k] = v
	}
	return snap
}

// AgentContext is the isolated per-invocation state. Each invocation
// gets its own; mutating one never affects another. It is dropped when
// the invocation ends.
type AgentContext struct {
	ExecutionID  uuid.UUID
	AgentName    string
	Mode         mode.Mode
	Intelligence types.Intelligence
	Parameters   map[string]string
	// Context is the request prose, plus chained summaries when the
	// plan passes output.
	Context string

	shared *SharedContext

	mu       sync.Mutex
	findings []types.Finding
}

// NewAgentContext builds an isolated context bound to shared.
func NewAgentContext(agentName string, m mode.Mode, params map[string]string, shared *SharedContext) *AgentContext {
	p := make(map[string]string, len(params))
	for k, v := range params {
		p[k] = v
	}
	return &AgentContext{
		ExecutionID: uuid.New(),
		AgentName:   agentName,
		Mode:        m,
		Parameters:  p,
		shared:      shared,
	}
}

// Shared returns the request-wide shared context handle.
func (a *AgentContext) Shared() *SharedContext {
	return a.shared
}

// AddFinding records a finding. Safe for concurrent use from an agent's
// own worker goroutines.
func (a *AgentContext) AddFinding(f types.Finding) {
	a.mu.Lock()
	a.findings = append(a.findings, f)
	a.mu.Unlock()
}

// Findings returns a copy of the recorded findings.
func (a *AgentContext) Findings() []types.Finding {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.Finding, len(a.findings))
	copy(out, a.findings)
	return out
}
