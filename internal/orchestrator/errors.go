package orchestrator

import "errors"

var (
	// ErrNilPredicate rejects conditional steps with no predicate rather
	// than silently running them.
	ErrNilPredicate = errors.New("conditional step has no predicate")
	// ErrAgentNotFound aborts a step whose name the registry rejects.
	ErrAgentNotFound = errors.New("agent not found")
)

// Recovery classifies how a failed invocation should be handled.
type Recovery int

const (
	// RecoverFailFast stops the invocation immediately. The default.
	RecoverFailFast Recovery = iota
	// RecoverRetry re-attempts with exponential backoff.
	RecoverRetry
	// RecoverDegrade reports a suggested fallback without executing it.
	RecoverDegrade
)

type classifiedError struct {
	err      error
	recovery Recovery
	fallback string
}

func (c *classifiedError) Error() string { return c.err.Error() }
func (c *classifiedError) Unwrap() error { return c.err }

// Retryable marks err as transient; the orchestrator retries it with
// backoff up to max_retries.
func Retryable(err error) error {
	return &classifiedError{err: err, recovery: RecoverRetry}
}

// Degrade marks err as recoverable by the named fallback agent. The
// fallback is reported, not executed.
func Degrade(err error, fallback string) error {
	return &classifiedError{err: err, recovery: RecoverDegrade, fallback: fallback}
}

// classify extracts the recovery strategy from an error chain.
// Unmarked errors fail fast.
func classify(err error) (Recovery, string) {
	var c *classifiedError
	if errors.As(err, &c) {
		return c.recovery, c.fallback
	}
	return RecoverFailFast, ""
}
