package workflow

import (
	"sync"
	"time"
)

// Default watchdog ceilings per stage. Strategy confirmation and submission
// tolerate slow external analytical calls before being declared likely
// failed.
const (
	DefaultTimeoutCeiling   = 15 * time.Second
	LongTimeoutCeiling      = 30 * time.Second
	StreamingAnimationFloor = 4400 * time.Millisecond
	DefaultRequestFloor     = 2 * time.Second
)

// TimeoutCeilingFor returns the watchdog ceiling for a stage run.
func TimeoutCeilingFor(stage Stage) time.Duration {
	switch stage {
	case StageAwaitingHumanDecision, StageActionCoordination:
		return LongTimeoutCeiling
	default:
		return DefaultTimeoutCeiling
	}
}

// RequestFloorFor returns the minimum perceived duration for a non-streaming
// stage run, keeping the processing state from flickering on fast responses.
func RequestFloorFor(stage Stage) time.Duration {
	switch stage {
	case StageCohortAnalysis:
		return 3 * time.Second
	case StageAIRecommendation:
		return 4500 * time.Millisecond
	case StageStrategyGeneration, StageActionCoordination:
		return 2500 * time.Millisecond
	default:
		return DefaultRequestFloor
	}
}

// GuardHandle is one armed watchdog. Settlement before the ceiling cancels
// it; a cancelled guard is a no-op even if its timer already queued the
// callback. A timeout that fires first and is never followed by a cancel
// stays in effect.
type GuardHandle struct {
	mu        sync.Mutex
	fired     bool
	cancelled bool
	timer     Timer
}

// Fired reports whether the ceiling was exceeded before cancellation.
func (h *GuardHandle) Fired() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fired
}

// Cancel disarms the guard. It reports false when the guard already fired,
// in which case the timed_out state stands and the caller must not apply a
// late settlement as done.
func (h *GuardHandle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fired {
		return false
	}
	h.cancelled = true
	if h.timer != nil {
		h.timer.Stop()
	}
	return true
}

// TimeoutGuard schedules per-operation watchdogs on an injectable clock.
type TimeoutGuard struct {
	clock Clock
}

func NewTimeoutGuard(clock Clock) *TimeoutGuard {
	return &TimeoutGuard{clock: clock}
}

// Start arms a watchdog. onTimeout runs at most once, and never after a
// successful Cancel.
func (g *TimeoutGuard) Start(ceiling time.Duration, onTimeout func()) *GuardHandle {
	h := &GuardHandle{}
	h.timer = g.clock.AfterFunc(ceiling, func() {
		h.mu.Lock()
		if h.cancelled {
			h.mu.Unlock()
			return
		}
		h.fired = true
		h.mu.Unlock()
		onTimeout()
	})
	return h
}
