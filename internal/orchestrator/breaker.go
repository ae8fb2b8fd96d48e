package orchestrator

import (
	"sync"
	"time"
)

// breaker is a per-agent-name circuit breaker. Once an agent fails
// threshold times in a row, new invocations short-circuit until the
// reset window elapses; the next attempt after the window is real.
type breaker struct {
	threshold int
	reset     time.Duration

	mu     sync.Mutex
	states map[string]*breakerState
}

type breakerState struct {
	consecutive int
	openedAt    time.Time
}

func newBreaker(threshold int, reset time.Duration) *breaker {
	return &breaker{
		threshold: threshold,
		reset:     reset,
		states:    make(map[string]*breakerState),
	}
}

// allow reports whether an invocation of agentName may proceed.
func (b *breaker) allow(agentName string) bool {
	if b.threshold <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.states[agentName]
	if !ok || st.consecutive < b.threshold {
		return true
	}
	if time.Since(st.openedAt) >= b.reset {
		// Half-open: let one attempt through. Its outcome either
		// closes the circuit or re-opens the window.
		st.openedAt = time.Now()
		return true
	}
	return false
}

func (b *breaker) recordSuccess(agentName string) {
	b.mu.Lock()
	delete(b.states, agentName)
	b.mu.Unlock()
}

func (b *breaker) recordFailure(agentName string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.states[agentName]
	if !ok {
		st = &breakerState{}
		b.states[agentName] = st
	}
	st.consecutive++
	if st.consecutive == b.threshold {
		st.openedAt = time.Now()
	}
}
