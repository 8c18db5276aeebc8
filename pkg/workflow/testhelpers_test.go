package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeClock is a manually advanced clock so floor and watchdog behavior is
// tested without real waiting.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clk      *fakeClock
	deadline time.Time
	f        func()
	fired    bool
	stopped  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clk: c, deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward, firing due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.deadline.After(c.now) {
				continue
			}
			if due == nil || t.deadline.Before(due.deadline) {
				due = t
			}
		}
		if due != nil {
			due.fired = true
		}
		c.mu.Unlock()

		if due == nil {
			return
		}
		due.f()
	}
}

func (c *fakeClock) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// waitPending polls until at least n timers are armed; synchronizes the test
// with goroutines that register floors/guards.
func (c *fakeClock) waitPending(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.pendingCount() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d pending timers (have %d)", n, c.pendingCount())
}

// fakeCaseRepo is an in-memory case service.
type fakeCaseRepo struct {
	mu        sync.Mutex
	cases     map[uuid.UUID]*Case
	getCalls  int
	decisions []DecisionInput

	approveErr  error
	decisionErr error
}

func newFakeCaseRepo(c *Case) *fakeCaseRepo {
	return &fakeCaseRepo{cases: map[uuid.UUID]*Case{c.CaseID: c}}
}

func (r *fakeCaseRepo) GetCase(_ context.Context, caseID uuid.UUID) (*Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	c, ok := r.cases[caseID]
	if !ok {
		return nil, errors.New("no such case")
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCaseRepo) ApproveStage(ctx context.Context, caseID uuid.UUID, stage Stage) (*Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.approveErr != nil {
		return nil, r.approveErr
	}
	c := r.cases[caseID]
	next, err := NextStage(stage)
	if err != nil {
		return nil, err
	}
	c.Stage = next
	cp := *c
	return &cp, nil
}

func (r *fakeCaseRepo) ConfirmDecision(_ context.Context, caseID uuid.UUID, input DecisionInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decisionErr != nil {
		return r.decisionErr
	}
	r.decisions = append(r.decisions, input)
	c := r.cases[caseID]
	c.HumanDecisions = append(c.HumanDecisions, HumanDecision{
		ID:         uuid.New(),
		Action:     input.Action,
		ReviewerID: input.ReviewerID,
		Reason:     input.Reason,
	})
	if input.Action.ImpliesForwardProgress() {
		c.Stage = StageStrategyGeneration
	}
	return nil
}

func (r *fakeCaseRepo) ResetCase(_ context.Context, caseID uuid.UUID) (*Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.cases[caseID]
	reset := &Case{
		CaseID:     c.CaseID,
		Stage:      StageIntake,
		Patient:    c.Patient,
		Medication: c.Medication,
	}
	r.cases[caseID] = reset
	cp := *reset
	return &cp, nil
}

func (r *fakeCaseRepo) setStage(caseID uuid.UUID, stage Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cases[caseID].Stage = stage
}

// scripted executor behavior per stage.
type execBehavior struct {
	result  *StageAnalysisResult
	err     error
	started chan struct{} // closed when the call begins, if set
	release chan struct{} // call blocks until closed, if set
}

type fakeExecutor struct {
	mu        sync.Mutex
	behaviors map[Stage]*execBehavior
	runCalls  map[Stage]int

	streamOpenErr error
	streamFrags   []*StreamFragment
	streamOpens   int32
	streamBlock   chan struct{} // Recv blocks on this before the final frame, if set
	streamClosed  int32
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		behaviors: make(map[Stage]*execBehavior),
		runCalls:  make(map[Stage]int),
	}
}

func (e *fakeExecutor) behave(stage Stage, b *execBehavior) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b.result == nil && b.err == nil {
		b.result = resultFor(stage)
	}
	e.behaviors[stage] = b
}

func (e *fakeExecutor) calls(stage Stage) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runCalls[stage]
}

func (e *fakeExecutor) RunStage(_ context.Context, _ uuid.UUID, stage Stage, _ bool) (*StageAnalysisResult, error) {
	e.mu.Lock()
	e.runCalls[stage]++
	b := e.behaviors[stage]
	var started chan struct{}
	if b != nil && b.started != nil {
		started = b.started
		b.started = nil
	}
	e.mu.Unlock()

	if b == nil {
		return resultFor(stage), nil
	}
	if started != nil {
		close(started)
	}
	if b.release != nil {
		<-b.release
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.result, nil
}

type fakeStream struct {
	exec  *fakeExecutor
	frags chan *StreamFragment
	done  chan struct{}
	once  sync.Once
}

func (s *fakeStream) Recv() (*StreamFragment, error) {
	select {
	case f, ok := <-s.frags:
		if !ok {
			return nil, errors.New("stream closed")
		}
		return f, nil
	case <-s.done:
		return nil, errors.New("stream torn down")
	}
}

func (s *fakeStream) Close() error {
	s.once.Do(func() {
		atomic.AddInt32(&s.exec.streamClosed, 1)
		close(s.done)
	})
	return nil
}

func (e *fakeExecutor) OpenStageStream(_ context.Context, _ uuid.UUID, _ Stage, _ bool) (StageStream, error) {
	atomic.AddInt32(&e.streamOpens, 1)
	if e.streamOpenErr != nil {
		return nil, e.streamOpenErr
	}

	s := &fakeStream{exec: e, frags: make(chan *StreamFragment, 16), done: make(chan struct{})}
	frags := e.streamFrags
	block := e.streamBlock
	go func() {
		for i, f := range frags {
			if block != nil && i == len(frags)-1 {
				select {
				case <-block:
				case <-s.done:
					return
				}
			}
			select {
			case s.frags <- f:
			case <-s.done:
				return
			}
		}
	}()
	return s, nil
}

type fakeAudit struct {
	events []TraceEvent
	calls  int32
}

func (a *fakeAudit) GetTrace(_ context.Context, caseID uuid.UUID) ([]TraceEvent, error) {
	atomic.AddInt32(&a.calls, 1)
	out := append([]TraceEvent(nil), a.events...)
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func resultFor(stage Stage) *StageAnalysisResult {
	return &StageAnalysisResult{
		Stage:      stage,
		Reasoning:  fmt.Sprintf("analysis for %s", stage),
		Confidence: 0.9,
		Findings:   []string{"finding"},
	}
}

func caseAt(stage Stage) *Case {
	return &Case{
		CaseID:     uuid.New(),
		Stage:      stage,
		Patient:    json.RawMessage(`{"name":"Jan Kowalski"}`),
		Medication: json.RawMessage(`{"ndc":"0001-0001"}`),
	}
}

func newTestOrchestrator(t *testing.T, repo *fakeCaseRepo, exec *fakeExecutor, clk *fakeClock, caseID uuid.UUID) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(context.Background(), caseID, Deps{
		Repo:     repo,
		Executor: exec,
		Audit:    &fakeAudit{},
		Clock:    clk,
		Logger:   NopLogger{},
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}
