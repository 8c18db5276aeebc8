package workflow

import (
	"context"
	"sync"
)

// AutomationPhase is the explicit state of the post-decision follow-through,
// so a partial failure is an inspectable state rather than an exception
// unwound through an async body.
type AutomationPhase string

const (
	AutomationIdle                 AutomationPhase = "idle"
	AutomationAwaitingStrategy     AutomationPhase = "await_strategy"
	AutomationAwaitingCoordination AutomationPhase = "await_coordination"
	AutomationDone                 AutomationPhase = "done"
	AutomationFailed               AutomationPhase = "failed"
)

// AutomationStatus is the inspectable snapshot of the runner.
type AutomationStatus struct {
	Phase       AutomationPhase `json:"phase"`
	FailedStage Stage           `json:"failed_stage,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// automationSequence is the fixed follow-through: strategy generation, then
// action coordination.
var automationSequence = []Stage{StageStrategyGeneration, StageActionCoordination}

// PostDecisionAutomationRunner chains the two follow-through stages after a
// forward-implying human decision. Strictly sequential: the second stage is
// never started before the first stage's persisted-state refetch resolves.
// A failure surfaces as a recoverable error and never reverts the recorded
// decision; decision recording and execution are different trust boundaries.
type PostDecisionAutomationRunner struct {
	runStage func(ctx context.Context, stage Stage) error
	refetch  func(ctx context.Context) error
	logger   Logger

	mu     sync.Mutex
	status AutomationStatus
}

func NewPostDecisionAutomationRunner(
	runStage func(ctx context.Context, stage Stage) error,
	refetch func(ctx context.Context) error,
	logger Logger,
) *PostDecisionAutomationRunner {
	return &PostDecisionAutomationRunner{
		runStage: runStage,
		refetch:  refetch,
		logger:   logger,
		status:   AutomationStatus{Phase: AutomationIdle},
	}
}

// Status returns the current snapshot.
func (r *PostDecisionAutomationRunner) Status() AutomationStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Run executes the full follow-through sequence.
func (r *PostDecisionAutomationRunner) Run(ctx context.Context) error {
	return r.runFrom(ctx, 0)
}

// Retry re-invokes only the failed follow-through stage, then continues the
// remaining sequence. The already-recorded decision is untouched.
func (r *PostDecisionAutomationRunner) Retry(ctx context.Context) error {
	r.mu.Lock()
	failed := r.status.FailedStage
	r.mu.Unlock()

	from := 0
	for i, stage := range automationSequence {
		if stage == failed {
			from = i
			break
		}
	}
	return r.runFrom(ctx, from)
}

func (r *PostDecisionAutomationRunner) runFrom(ctx context.Context, from int) error {
	phases := []AutomationPhase{AutomationAwaitingStrategy, AutomationAwaitingCoordination}

	for i := from; i < len(automationSequence); i++ {
		stage := automationSequence[i]

		r.mu.Lock()
		r.status = AutomationStatus{Phase: phases[i]}
		r.mu.Unlock()

		if err := r.runStage(ctx, stage); err != nil {
			r.mu.Lock()
			r.status = AutomationStatus{Phase: AutomationFailed, FailedStage: stage, Message: err.Error()}
			r.mu.Unlock()
			r.logger.Error("PostDecisionAutomation", "Follow-through stage failed", map[string]interface{}{
				"stage": stage, "error": err.Error(),
			})
			return &AutomationError{FailedStage: stage, Err: err}
		}

		// The next stage only starts once this stage's persisted state has
		// been re-read.
		if err := r.refetch(ctx); err != nil {
			r.mu.Lock()
			r.status = AutomationStatus{Phase: AutomationFailed, FailedStage: stage, Message: err.Error()}
			r.mu.Unlock()
			return &AutomationError{FailedStage: stage, Err: err}
		}
	}

	r.mu.Lock()
	r.status = AutomationStatus{Phase: AutomationDone}
	r.mu.Unlock()
	return nil
}
