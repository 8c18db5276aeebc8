package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// OperationState is the lifecycle of one in-flight action, owned by the
// runner that issued it and aggregated into a single processing flag.
type OperationState string

const (
	OpIdle     OperationState = "idle"
	OpPending  OperationState = "pending"
	OpTimedOut OperationState = "timed_out"
	OpErrored  OperationState = "errored"
	OpDone     OperationState = "done"
)

type operation struct {
	state   OperationState
	attempt int64
	guard   *GuardHandle
}

// Deps are the injected collaborators of the orchestrator. Clock and Logger
// default to real implementations when nil.
type Deps struct {
	Repo     CaseRepository
	Executor StageExecutor
	Audit    AuditReader
	Clock    Clock
	Logger   Logger
}

// Orchestrator is the composition root of the case workflow. It owns the
// stage runners, the result cache, the timeout guards and the navigation
// state for exactly one case, and is the sole writer of case-stage
// transitions as observed by callers.
type Orchestrator struct {
	caseID uuid.UUID
	repo   CaseRepository
	exec   StageExecutor
	audit  AuditReader
	clock  Clock
	logger Logger

	store      *CaseStore
	cache      *StageResultCache
	guards     *TimeoutGuard
	streaming  *StreamingStageRunner
	request    *RequestStageRunner
	automation *PostDecisionAutomationRunner

	mu              sync.Mutex
	ops             map[Stage]*operation
	attemptSeq      int64
	viewingOverride *int
	autoTriggered   map[int]bool
	onProgress      ProgressFunc
}

// NewOrchestrator fetches the authoritative case and builds a session-scoped
// orchestrator for it.
func NewOrchestrator(ctx context.Context, caseID uuid.UUID, deps Deps) (*Orchestrator, error) {
	if deps.Clock == nil {
		deps.Clock = NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = NopLogger{}
	}

	c, err := deps.Repo.GetCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaseNotFound, err)
	}

	o := &Orchestrator{
		caseID:        caseID,
		repo:          deps.Repo,
		exec:          deps.Executor,
		audit:         deps.Audit,
		clock:         deps.Clock,
		logger:        deps.Logger,
		store:         NewCaseStore(c),
		cache:         NewStageResultCache(),
		guards:        NewTimeoutGuard(deps.Clock),
		ops:           make(map[Stage]*operation),
		autoTriggered: make(map[int]bool),
	}
	o.streaming = NewStreamingStageRunner(deps.Executor, deps.Clock, deps.Logger)
	o.request = NewRequestStageRunner(deps.Executor, deps.Clock, deps.Logger)
	o.automation = NewPostDecisionAutomationRunner(o.runForAutomation, o.refetch, deps.Logger)
	return o, nil
}

// Case returns the current authoritative snapshot.
func (o *Orchestrator) Case() *Case { return o.store.Get() }

// Store exposes the case store for subscribers (e.g. push delivery).
func (o *Orchestrator) Store() *CaseStore { return o.store }

// Cache exposes the per-step result cache.
func (o *Orchestrator) Cache() *StageResultCache { return o.cache }

// SetProgressHandler installs a live-fragment listener for streaming runs.
func (o *Orchestrator) SetProgressHandler(fn ProgressFunc) {
	o.mu.Lock()
	o.onProgress = fn
	o.mu.Unlock()
}

// Position computes the current wizard position.
func (o *Orchestrator) Position() WizardPosition {
	o.mu.Lock()
	override := o.viewingOverride
	o.mu.Unlock()
	return Position(o.store.Get(), override)
}

// SetViewingStep records a pure client-side navigation choice. Passing nil
// is the explicit back-to-current action. Case stage is never mutated.
func (o *Orchestrator) SetViewingStep(index *int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if index == nil {
		o.viewingOverride = nil
		return nil
	}
	if !ValidViewingStep(o.store.Get(), *index) {
		return ErrInvalidStep
	}
	idx := *index
	o.viewingOverride = &idx

	// Navigating off the active step tears down any live stream; plain
	// request mutations already sent are left to finish in the background.
	c := o.store.Get()
	if idx != StageToStepIndex(c.Stage, c.HasDenialHistory()) {
		o.streaming.Cancel()
	}
	return nil
}

// EnterStep is invoked when the UI arrives at a step. A cache hit is
// returned immediately with no loading state. For the active frontier step
// with no server-side payload yet, exactly one automatic run is triggered,
// guarded idempotently per (case, step) so remounts and re-renders never
// duplicate it.
func (o *Orchestrator) EnterStep(ctx context.Context, index int) (*StageAnalysisResult, bool, error) {
	if cached, ok := o.cache.Get(index); ok {
		return cached, false, nil
	}

	c := o.store.Get()
	frontier := StageToStepIndex(c.Stage, c.HasDenialHistory())
	if c.Stage.IsTerminal() || index != frontier {
		// Read-only view of a past (or terminal-case) step: no network work.
		return nil, false, nil
	}

	stage, err := StageAtStep(index, c.HasDenialHistory())
	if err != nil {
		return nil, false, ErrInvalidStep
	}
	if !stage.AutoTriggers() || c.HasPayloadFor(stage) {
		return nil, false, nil
	}

	o.mu.Lock()
	if o.autoTriggered[index] || o.anyPendingLocked() {
		o.mu.Unlock()
		return nil, false, nil
	}
	o.autoTriggered[index] = true
	o.mu.Unlock()

	go func() {
		// Detached from the caller's request lifetime; the run's result
		// lands in the cache for the next arrival at this step.
		if _, err := o.run(context.Background(), stage, false); err != nil {
			o.logger.Warn("WorkflowOrchestrator", "Auto-triggered run failed", map[string]interface{}{
				"case_id": o.caseID, "stage": stage, "error": err.Error(),
			})
		}
	}()
	return nil, true, nil
}

// RunStage dispatches the stage to the streaming or request runner. It is
// rejected while another operation is pending for the case and while the
// viewed step is read-only.
func (o *Orchestrator) RunStage(ctx context.Context, stage Stage, refresh bool) (*StageAnalysisResult, error) {
	if o.Position().IsReadOnly {
		return nil, ErrReadOnly
	}
	return o.run(ctx, stage, refresh)
}

// RetryStage re-arms a timed-out or errored operation and re-issues the
// underlying call with a fresh attempt token. Safe against the original
// call still being outstanding server-side.
func (o *Orchestrator) RetryStage(ctx context.Context, stage Stage, refresh bool) (*StageAnalysisResult, error) {
	o.mu.Lock()
	op := o.ops[stage]
	if op != nil && (op.state == OpTimedOut || op.state == OpErrored) {
		op.state = OpIdle
	}
	o.mu.Unlock()
	return o.run(ctx, stage, refresh)
}

func (o *Orchestrator) run(ctx context.Context, stage Stage, refresh bool) (*StageAnalysisResult, error) {
	if _, err := ParseStage(string(stage)); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.anyPendingLocked() {
		o.mu.Unlock()
		return nil, ErrOperationPending
	}
	op := o.opFor(stage)
	o.attemptSeq++
	attempt := o.attemptSeq
	op.state = OpPending
	op.attempt = attempt
	op.guard = o.guards.Start(TimeoutCeilingFor(stage), func() {
		o.onTimeout(stage, attempt)
	})
	progress := o.onProgress
	o.mu.Unlock()

	var res *StageAnalysisResult
	var err error
	if stage.IsStreaming() {
		res, err = o.streaming.Run(ctx, o.caseID, stage, refresh, progress)
		if errors.Is(err, ErrStreamUnavailable) {
			o.logger.Warn("WorkflowOrchestrator", "Stream rejected, falling back to request runner", map[string]interface{}{
				"case_id": o.caseID, "stage": stage,
			})
			res, err = o.request.Run(ctx, o.caseID, stage, refresh)
		}
	} else {
		res, err = o.request.Run(ctx, o.caseID, stage, refresh)
	}

	return o.settle(stage, attempt, res, err)
}

// settle resolves the bookkeeping for one attempt. A guard that fired first
// keeps the timed_out state even when the call later resolves; the late
// result is never silently promoted to done.
func (o *Orchestrator) settle(stage Stage, attempt int64, res *StageAnalysisResult, err error) (*StageAnalysisResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	op := o.ops[stage]
	if op == nil || op.attempt != attempt {
		return nil, ErrStaleAttempt
	}

	if !op.guard.Cancel() {
		o.logger.Warn("WorkflowOrchestrator", "Late settlement after timeout discarded", map[string]interface{}{
			"case_id": o.caseID, "stage": stage, "attempt": attempt,
		})
		return nil, ErrTimedOut
	}

	if err != nil {
		if errors.Is(err, ErrStaleAttempt) {
			op.state = OpIdle
			return nil, err
		}
		op.state = OpErrored
		return nil, err
	}

	op.state = OpDone
	res.AttemptKey = fmt.Sprintf("%s-%d", stage, attempt)
	c := o.store.Get()
	o.cache.Put(StageToStepIndex(stage, c.HasDenialHistory()), res)
	return res, nil
}

func (o *Orchestrator) onTimeout(stage Stage, attempt int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	op := o.ops[stage]
	if op == nil || op.attempt != attempt || op.state != OpPending {
		return
	}
	op.state = OpTimedOut
	o.logger.Warn("WorkflowOrchestrator", "Operation exceeded its ceiling, may still be processing", map[string]interface{}{
		"case_id": o.caseID, "stage": stage, "attempt": attempt,
	})
}

// ApproveStage asks the case service to persist advancement past the stage.
// On success the cached analysis tied to the approved step is dropped and
// the case re-read; on failure the stage is left unchanged.
func (o *Orchestrator) ApproveStage(ctx context.Context, stage Stage) error {
	pos := o.Position()
	if pos.IsReadOnly {
		return ErrReadOnly
	}
	c := o.store.Get()
	if c.Stage.IsTerminal() {
		return ErrTerminalStage
	}

	updated, err := o.repo.ApproveStage(ctx, o.caseID, stage)
	if err != nil {
		return fmt.Errorf("approve stage %s: %w", stage, err)
	}

	o.cache.Delete(StageToStepIndex(stage, c.HasDenialHistory()))
	o.store.Set(updated)
	return nil
}

// ConfirmDecision records a terminal human decision and, for decisions that
// imply forward progress, runs the two-stage follow-through. The recorded
// decision is final regardless of the automation outcome.
func (o *Orchestrator) ConfirmDecision(ctx context.Context, input DecisionInput) error {
	pos := o.Position()
	if pos.IsReadOnly {
		return ErrReadOnly
	}
	if c := o.store.Get(); c.Stage != StageAwaitingHumanDecision {
		return fmt.Errorf("decision not permitted at stage %s", c.Stage)
	}

	if err := o.repo.ConfirmDecision(ctx, o.caseID, input); err != nil {
		return &DecisionError{Err: err}
	}
	if err := o.refetch(ctx); err != nil {
		o.logger.Warn("WorkflowOrchestrator", "Refetch after decision failed", map[string]interface{}{
			"case_id": o.caseID, "error": err.Error(),
		})
	}

	if !input.Action.ImpliesForwardProgress() {
		return nil
	}
	return o.automation.Run(ctx)
}

// RetryAutomation re-invokes only the failed follow-through stage.
func (o *Orchestrator) RetryAutomation(ctx context.Context) error {
	return o.automation.Retry(ctx)
}

// AutomationStatus exposes the follow-through state machine.
func (o *Orchestrator) AutomationStatus() AutomationStatus {
	return o.automation.Status()
}

// ResetCase rolls the case back to intake, preserving patient and
// medication identity. All caches are cleared, in-flight work cancelled and
// any viewing override dropped, so a fresh auto-trigger may fire once the
// user re-enters the first analytic step.
func (o *Orchestrator) ResetCase(ctx context.Context) error {
	if c := o.store.Get(); c.Stage == StageFailed {
		return ErrTerminalStage
	}

	o.mu.Lock()
	o.streaming.Cancel()
	for _, op := range o.ops {
		if op.guard != nil {
			op.guard.Cancel()
		}
		op.state = OpIdle
		op.attempt = 0
	}
	o.autoTriggered = make(map[int]bool)
	o.viewingOverride = nil
	o.mu.Unlock()

	o.cache.Clear()

	updated, err := o.repo.ResetCase(ctx, o.caseID)
	if err != nil {
		return fmt.Errorf("reset case: %w", err)
	}
	o.store.Set(updated)
	return nil
}

// HandleStageChanged is the push-notification cue: re-read the case, drop
// the possibly stale cache entry for the new current step, and leave any
// viewing override untouched so the user is never yanked off a past step.
func (o *Orchestrator) HandleStageChanged(ctx context.Context) error {
	c, err := o.repo.GetCase(ctx, o.caseID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaseNotFound, err)
	}
	o.cache.Delete(StageToStepIndex(c.Stage, c.HasDenialHistory()))
	o.store.Set(c)
	return nil
}

// Trace reads the audit trail. Lazy by contract; only called when the audit
// panel is opened.
func (o *Orchestrator) Trace(ctx context.Context) ([]TraceEvent, error) {
	return o.audit.GetTrace(ctx, o.caseID)
}

// IsProcessing aggregates every in-flight operation into the single flag
// used to disable controls.
func (o *Orchestrator) IsProcessing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.anyPendingLocked() {
		return true
	}
	switch o.automation.Status().Phase {
	case AutomationAwaitingStrategy, AutomationAwaitingCoordination:
		return true
	}
	return false
}

// OperationStateFor reports the state of the last issued operation for the
// stage.
func (o *Orchestrator) OperationStateFor(stage Stage) OperationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if op, ok := o.ops[stage]; ok {
		return op.state
	}
	return OpIdle
}

// StreamState exposes the streaming runner's machine state.
func (o *Orchestrator) StreamState() StreamState {
	return o.streaming.State()
}

// StreamPartial exposes the accumulated streaming fragments.
func (o *Orchestrator) StreamPartial() map[string]Assessment {
	return o.streaming.Partial()
}

func (o *Orchestrator) refetch(ctx context.Context) error {
	c, err := o.repo.GetCase(ctx, o.caseID)
	if err != nil {
		return err
	}
	o.store.Set(c)
	return nil
}

// runForAutomation skips the read-only gate; the follow-through is
// system-initiated and must proceed even if the user navigated to a past
// step meanwhile.
func (o *Orchestrator) runForAutomation(ctx context.Context, stage Stage) error {
	_, err := o.run(ctx, stage, false)
	return err
}

func (o *Orchestrator) opFor(stage Stage) *operation {
	if op, ok := o.ops[stage]; ok {
		return op
	}
	op := &operation{state: OpIdle}
	o.ops[stage] = op
	return op
}

func (o *Orchestrator) anyPendingLocked() bool {
	for _, op := range o.ops {
		if op.state == OpPending {
			return true
		}
	}
	return false
}
