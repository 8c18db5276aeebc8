package workflow

import "errors"

// Typed outcomes for the workflow error taxonomy. Every operation boundary
// catches and converts; nothing propagates raw into rendering code.
var (
	// ErrCaseNotFound is terminal for the view; there is nothing to operate on.
	ErrCaseNotFound = errors.New("workflow: case not found")

	// ErrOperationPending rejects a second run while one is in flight for the
	// same case.
	ErrOperationPending = errors.New("workflow: an operation is already pending")

	// ErrReadOnly rejects mutation attempts while the viewed step is read-only.
	ErrReadOnly = errors.New("workflow: viewed step is read-only")

	// ErrTimedOut marks an operation past its ceiling. The underlying call may
	// still be in flight server-side; only an explicit retry re-arms it.
	ErrTimedOut = errors.New("workflow: operation timed out")

	// ErrStreamUnavailable signals that the streaming connection was rejected
	// before any byte arrived. Callers fall back to the request runner.
	ErrStreamUnavailable = errors.New("workflow: stage stream unavailable")

	// ErrStaleAttempt discards a late completion from a superseded attempt.
	ErrStaleAttempt = errors.New("workflow: stale attempt discarded")

	// ErrTerminalStage rejects forward advancement on a completed or failed case.
	ErrTerminalStage = errors.New("workflow: case is in a terminal stage")

	// ErrInvalidStep rejects navigation to a step outside the visible list.
	ErrInvalidStep = errors.New("workflow: invalid step index")
)

// StageRunError wraps a server-reported analytical failure for one stage.
// It bypasses any minimum-duration floor and carries enough to retry.
type StageRunError struct {
	Stage Stage
	Err   error
}

func (e *StageRunError) Error() string {
	return "workflow: stage " + string(e.Stage) + " failed: " + e.Err.Error()
}

func (e *StageRunError) Unwrap() error { return e.Err }

// DecisionError wraps a decision-confirmation failure. Dismissible; does not
// block further interaction and rolls nothing back.
type DecisionError struct {
	Err error
}

func (e *DecisionError) Error() string {
	return "workflow: decision confirmation failed: " + e.Err.Error()
}

func (e *DecisionError) Unwrap() error { return e.Err }

// AutomationError names the follow-through stage that failed after a
// recorded decision. The decision itself stands.
type AutomationError struct {
	FailedStage Stage
	Err         error
}

func (e *AutomationError) Error() string {
	return "workflow: post-decision automation failed at " + string(e.FailedStage) + ": " + e.Err.Error()
}

func (e *AutomationError) Unwrap() error { return e.Err }
