package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"agcodex/internal/agent"
	"agcodex/internal/config"
	"agcodex/internal/invoke"
	"agcodex/internal/logging"
	"agcodex/internal/mode"
	"agcodex/internal/tools"
	"agcodex/internal/types"
)

// Orchestrator drives execution plans. One instance serves the whole
// process; per-request state lives in SharedContext and AgentContext.
type Orchestrator struct {
	registry *agent.Registry
	runner   Runner
	toolbox  *tools.Toolbox

	sem          *semaphore.Weighted
	agentTimeout time.Duration
	maxRetries   int
	retryBackoff time.Duration
	breaker      *breaker
	progress     chan ProgressUpdate

	cancelMu sync.Mutex
	cancelCh chan struct{}
}

// New builds an orchestrator from the configuration. runner executes
// resolved agents; toolbox is the shared tool plumbing.
func New(cfg *config.Config, registry *agent.Registry, runner Runner, toolbox *tools.Toolbox) (*Orchestrator, error) {
	agentTimeout, err := cfg.AgentTimeout()
	if err != nil {
		return nil, err
	}
	retryBackoff, err := cfg.RetryBackoff()
	if err != nil {
		return nil, err
	}
	breakerReset, err := cfg.CircuitBreakerReset()
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		registry:     registry,
		runner:       runner,
		toolbox:      toolbox,
		sem:          semaphore.NewWeighted(cfg.Orchestrator.MaxConcurrency),
		agentTimeout: agentTimeout,
		maxRetries:   cfg.Orchestrator.MaxRetries,
		retryBackoff: retryBackoff,
		breaker:      newBreaker(cfg.Orchestrator.CircuitBreakerThreshold, breakerReset),
		progress:     make(chan ProgressUpdate, 64),
		cancelCh:     make(chan struct{}),
	}, nil
}

// ProgressReceiver returns the progress event channel. Events are
// dropped, never blocked on, when the receiver falls behind.
func (o *Orchestrator) ProgressReceiver() <-chan ProgressUpdate {
	return o.progress
}

// Cancel signals every active invocation to stop. In-flight tasks
// observe it at suspension points; ExecutePlan still awaits them.
func (o *Orchestrator) Cancel() {
	o.cancelMu.Lock()
	defer o.cancelMu.Unlock()
	select {
	case <-o.cancelCh:
	default:
		close(o.cancelCh)
	}
}

// ResetCancellation re-arms the orchestrator after a Cancel.
func (o *Orchestrator) ResetCancellation() {
	o.cancelMu.Lock()
	defer o.cancelMu.Unlock()
	select {
	case <-o.cancelCh:
		o.cancelCh = make(chan struct{})
	default:
	}
}

// ExecutePlan runs a parsed request end to end and merges the results.
func (o *Orchestrator) ExecutePlan(ctx context.Context, req *invoke.Request) (*Report, error) {
	start := time.Now()
	ctx, cancel := o.cancellable(ctx)
	defer cancel()

	shared := NewSharedContext()
	results, err := o.runPlan(ctx, req.Plan, shared, req.Context)
	if err != nil {
		return nil, err
	}

	report := Merge(req, results, time.Since(start))
	logging.Orchestrator("request %s: %d steps, success=%v partial=%v in %v",
		req.ID, len(results), report.Success, report.PartialSuccess, report.Duration)
	return report, nil
}

// ExecuteSingle runs one invocation against an existing shared context.
func (o *Orchestrator) ExecuteSingle(ctx context.Context, inv invoke.Invocation, shared *SharedContext, baseContext string) *types.AgentResult {
	ctx, cancel := o.cancellable(ctx)
	defer cancel()
	return o.runOne(ctx, inv, shared, baseContext)
}

// ExecuteConditional evaluates the predicate against shared and runs the
// step's agents only when it holds. A nil predicate is an error.
func (o *Orchestrator) ExecuteConditional(ctx context.Context, step invoke.Conditional, shared *SharedContext, baseContext string) ([]*types.AgentResult, error) {
	ctx, cancel := o.cancellable(ctx)
	defer cancel()
	return o.runConditional(ctx, step, shared, baseContext)
}

// cancellable derives a context that also observes the orchestrator's
// Cancel signal. The watcher goroutine exits with the returned cancel.
func (o *Orchestrator) cancellable(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	o.cancelMu.Lock()
	ch := o.cancelCh
	o.cancelMu.Unlock()
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (o *Orchestrator) runPlan(ctx context.Context, plan invoke.ExecutionPlan, shared *SharedContext, baseContext string) ([]*types.AgentResult, error) {
	switch p := plan.(type) {
	case invoke.Single:
		return []*types.AgentResult{o.runOne(ctx, p.Invocation, shared, baseContext)}, nil

	case invoke.Sequential:
		return o.runSequential(ctx, p, shared, baseContext), nil

	case invoke.Parallel:
		return o.runParallel(ctx, p.Agents, shared, baseContext), nil

	case invoke.Conditional:
		return o.runConditional(ctx, p, shared, baseContext)

	case invoke.Mixed:
		var results []*types.AgentResult
		for _, step := range p.Steps {
			switch s := step.(type) {
			case invoke.Single:
				results = append(results, o.runOne(ctx, s.Invocation, shared, baseContext))
			case invoke.Parallel:
				results = append(results, o.runParallel(ctx, s.Agents, shared, baseContext)...)
			case invoke.Conditional:
				stepResults, err := o.runConditional(ctx, s, shared, baseContext)
				if err != nil {
					return nil, err
				}
				results = append(results, stepResults...)
			case invoke.Barrier:
				// Steps are strictly ordered, so every task started
				// before the barrier has already completed here.
			}
		}
		return results, nil

	default:
		return nil, fmt.Errorf("unsupported plan type %T", plan)
	}
}

// runSequential executes a chain in order. With PassOutput set, each
// completed step's summary is appended to the next step's context, and
// a terminal failure aborts the rest of the chain.
func (o *Orchestrator) runSequential(ctx context.Context, p invoke.Sequential, shared *SharedContext, baseContext string) []*types.AgentResult {
	results := make([]*types.AgentResult, 0, len(p.Chain))
	chained := baseContext
	for _, inv := range p.Chain {
		res := o.runOne(ctx, inv, shared, chained)
		results = append(results, res)
		if !p.PassOutput {
			continue
		}
		if res.Status != types.StatusCompleted {
			break
		}
		if res.Summary != "" {
			chained = chained + "\n" + res.Summary
		}
	}
	return results
}

// runParallel fans out the invocations. The pool semaphore inside
// runOne keeps the active count at or below max_concurrency no matter
// how wide the step is.
func (o *Orchestrator) runParallel(ctx context.Context, agents []invoke.Invocation, shared *SharedContext, baseContext string) []*types.AgentResult {
	results := make([]*types.AgentResult, len(agents))
	var wg sync.WaitGroup
	for i, inv := range agents {
		wg.Add(1)
		go func(i int, inv invoke.Invocation) {
			defer wg.Done()
			results[i] = o.runOne(ctx, inv, shared, baseContext)
		}(i, inv)
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) runConditional(ctx context.Context, p invoke.Conditional, shared *SharedContext, baseContext string) ([]*types.AgentResult, error) {
	if p.Predicate == nil {
		return nil, ErrNilPredicate
	}
	if !p.Predicate(shared.Get) {
		logging.OrchestratorDebug("conditional %q not satisfied, skipping %d agents", p.Source, len(p.Agents))
		results := make([]*types.AgentResult, 0, len(p.Agents))
		for _, inv := range p.Agents {
			results = append(results, &types.AgentResult{
				AgentName:    inv.AgentName,
				Status:       types.StatusCompleted,
				Findings:     []types.Finding{},
				Summary:      fmt.Sprintf("skipped: condition %q not satisfied", p.Source),
				PlanPosition: inv.Position,
			})
		}
		return results, nil
	}
	return o.runParallel(ctx, p.Agents, shared, baseContext), nil
}

// runOne executes a single invocation: breaker check, resolution,
// parameter validation, mode binding, deadline, retries.
func (o *Orchestrator) runOne(ctx context.Context, inv invoke.Invocation, shared *SharedContext, baseContext string) *types.AgentResult {
	name := inv.AgentName
	o.publish(ProgressUpdate{AgentName: name, Message: "queued", Status: types.StatusPending})

	if !o.breaker.allow(name) {
		logging.OrchestratorDebug("agent %s: circuit open, short-circuiting", name)
		return o.finish(inv, types.Failed(name, "circuit_open"), 0)
	}

	desc, ok := o.registry.Get(name)
	if !ok {
		return o.finish(inv, types.Failed(name, fmt.Sprintf("%v: %s", ErrAgentNotFound, name)), 0)
	}

	params, err := desc.ValidateParameters(inv.Parameters)
	if err != nil {
		return o.finish(inv, types.Failed(name, err.Error()), 0)
	}

	// Mode resolution: invocation override wins, then the descriptor's
	// declared mode, then the ambient process mode.
	effMode := o.toolbox.Modes.Current()
	tb := o.toolbox
	modeOverride := desc.ModeOverride
	if inv.ModeOverride != "" {
		modeOverride = inv.ModeOverride
	}
	if modeOverride != "" {
		parsed, err := mode.Parse(modeOverride)
		if err != nil {
			return o.finish(inv, types.Failed(name, err.Error()), 0)
		}
		effMode = parsed
		// Bind the override to this invocation only: a copied toolbox
		// with its own gate manager, leaving the process mode alone.
		override := *o.toolbox
		override.Modes = mode.NewManager(parsed,
			mode.WithCycleKey(o.toolbox.Modes.CycleKey()),
			mode.WithReviewWriteLimit(o.toolbox.Modes.ReviewWriteLimit()))
		tb = &override
	}

	ac := NewAgentContext(name, effMode, params, shared)
	ac.Context = baseContext
	ac.Intelligence = desc.Intelligence
	if inv.IntelligenceOverride != "" {
		ac.Intelligence = inv.IntelligenceOverride
	}
	if ac.Intelligence == "" {
		ac.Intelligence = types.IntelligenceMedium
	}

	// FIFO pool gate: oversubscribed parallel steps queue here.
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return o.finish(inv, cancelledResult(name), 0)
	}
	defer o.sem.Release(1)

	deadline := desc.Timeout.Std()
	if o.agentTimeout < deadline {
		deadline = o.agentTimeout
	}

	start := time.Now()
	o.publish(ProgressUpdate{AgentName: name, Message: "running", Status: types.StatusRunning})
	res := o.attempt(ctx, desc, ac, tb, deadline)
	res.Findings = append(res.Findings, ac.Findings()...)

	if res.Status == types.StatusCompleted {
		o.breaker.recordSuccess(name)
		shared.RecordOutput(name, res.Summary)
	} else if res.Status == types.StatusFailed {
		o.breaker.recordFailure(name)
	}
	return o.finish(inv, res, time.Since(start))
}

// attempt runs the agent under its deadline, retrying transient
// failures with doubling backoff.
func (o *Orchestrator) attempt(ctx context.Context, desc *agent.Descriptor, ac *AgentContext, tb *tools.Toolbox, deadline time.Duration) *types.AgentResult {
	name := desc.Name
	backoff := o.retryBackoff

	for tryNum := 0; ; tryNum++ {
		runCtx, cancel := context.WithTimeout(ctx, deadline)
		res, err := o.runner.Execute(runCtx, desc, ac, tb)
		timedOut := runCtx.Err() == context.DeadlineExceeded
		cancel()

		if err == nil && res != nil {
			if res.AgentName == "" {
				res.AgentName = name
			}
			return res
		}
		if err == nil {
			err = errors.New("runner returned no result")
		}

		if ctx.Err() != nil {
			// External cancel or the request-wide deadline.
			return cancelledResult(name)
		}
		if timedOut || errors.Is(err, context.DeadlineExceeded) {
			if tryNum < o.maxRetries {
				logging.OrchestratorDebug("agent %s: attempt %d timed out, retrying", name, tryNum+1)
				if !sleep(ctx, backoff) {
					return cancelledResult(name)
				}
				backoff *= 2
				continue
			}
			return types.Failed(name, "timeout")
		}

		recovery, fallback := classify(err)
		switch recovery {
		case RecoverRetry:
			if tryNum < o.maxRetries {
				logging.OrchestratorDebug("agent %s: attempt %d failed (%v), backing off %v", name, tryNum+1, err, backoff)
				if !sleep(ctx, backoff) {
					return cancelledResult(name)
				}
				backoff *= 2
				continue
			}
			return types.Failed(name, err.Error())
		case RecoverDegrade:
			res := types.Failed(name, err.Error())
			res.Summary = fmt.Sprintf("%s failed; suggested fallback: @%s", name, fallback)
			if res.Metrics == nil {
				res.Metrics = map[string]any{}
			}
			res.Metrics["fallback"] = fallback
			return res
		default:
			return types.Failed(name, err.Error())
		}
	}
}

// finish stamps position and timing on a result and publishes the
// terminal progress event.
func (o *Orchestrator) finish(inv invoke.Invocation, res *types.AgentResult, elapsed time.Duration) *types.AgentResult {
	res.PlanPosition = inv.Position
	if res.ExecutionTime == 0 {
		res.ExecutionTime = elapsed
	}
	progress := 1.0
	if res.Status != types.StatusCompleted {
		progress = 0
	}
	o.publish(ProgressUpdate{
		AgentName: res.AgentName,
		Progress:  progress,
		Message:   res.Summary,
		Status:    res.Status,
	})
	return res
}

func (o *Orchestrator) publish(u ProgressUpdate) {
	select {
	case o.progress <- u:
	default:
	}
}

func cancelledResult(name string) *types.AgentResult {
	return &types.AgentResult{
		AgentName: name,
		Status:    types.StatusCancelled,
		Error:     "cancelled",
		Summary:   name + " cancelled",
	}
}

// sleep waits for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
