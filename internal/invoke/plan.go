// Package invoke recognizes @agent-name invocation plans inside free-form
// user messages and compiles them into execution plans.
//
// Operators between consecutive agent tokens decide the shape:
//
//	@a → @b      sequential, each step's summary passed to the next
//	@a -> @b     same, ASCII digraph
//	@a + @b      parallel fan-out
//	@a @b        sequential, no output passing
//	@a ?{expr}   conditional on a shared-context predicate
//	---          barrier between steps in a mixed plan
//
// Text before the first @ becomes the request context.
package invoke

import (
	"github.com/google/uuid"

	"agcodex/internal/types"
)

// Invocation is one parsed @agent-name reference.
type Invocation struct {
	AgentName            string
	Parameters           map[string]string
	RawParameters        string
	Position             int
	ModeOverride         string
	IntelligenceOverride types.Intelligence
}

// ExecutionPlan is the shape of a parsed request. The concrete types are
// Single, Sequential, Parallel, Conditional, and Mixed.
type ExecutionPlan interface {
	isPlan()
	// Invocations returns every invocation in the plan, in position order.
	Invocations() []Invocation
}

// Single runs one agent.
type Single struct {
	Invocation Invocation
}

// Sequential runs a chain in order. When PassOutput is set, the summary
// of step i is appended to step i+1's context before execution.
type Sequential struct {
	Chain      []Invocation
	PassOutput bool
}

// Parallel fans out all invocations at once, subject to the pool cap.
type Parallel struct {
	Agents []Invocation
}

// Conditional runs its agents only when the predicate holds against the
// shared context. Source is the original ?{...} expression text.
type Conditional struct {
	Agents    []Invocation
	Predicate Predicate
	Source    string
}

// Mixed is an ordered sequence of steps with optional barriers.
type Mixed struct {
	Steps []Step
}

// Step is one element of a Mixed plan: Single, Parallel, Conditional,
// or Barrier.
type Step interface {
	isStep()
}

// Barrier delays later steps until every earlier in-flight task is done.
type Barrier struct{}

func (Single) isPlan()      {}
func (Sequential) isPlan()  {}
func (Parallel) isPlan()    {}
func (Conditional) isPlan() {}
func (Mixed) isPlan()       {}

func (Single) isStep()      {}
func (Parallel) isStep()    {}
func (Conditional) isStep() {}
func (Barrier) isStep()     {}

func (p Single) Invocations() []Invocation { return []Invocation{p.Invocation} }

func (p Sequential) Invocations() []Invocation { return append([]Invocation(nil), p.Chain...) }

func (p Parallel) Invocations() []Invocation { return append([]Invocation(nil), p.Agents...) }

func (p Conditional) Invocations() []Invocation { return append([]Invocation(nil), p.Agents...) }

func (p Mixed) Invocations() []Invocation {
	var out []Invocation
	for _, s := range p.Steps {
		switch step := s.(type) {
		case Single:
			out = append(out, step.Invocation)
		case Parallel:
			out = append(out, step.Agents...)
		case Conditional:
			out = append(out, step.Agents...)
		}
	}
	return out
}

// Request is a fully parsed invocation request.
type Request struct {
	ID            uuid.UUID
	OriginalInput string
	Plan          ExecutionPlan
	Context       string
}
