package workflow

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGuardCancelBeforeCeiling(t *testing.T) {
	clk := newFakeClock()
	g := NewTimeoutGuard(clk)

	var fired int32
	h := g.Start(10*time.Second, func() { atomic.AddInt32(&fired, 1) })

	// Settlement strictly before the ceiling: the guard never reports
	// timed_out.
	clk.Advance(9 * time.Second)
	assert.True(t, h.Cancel())
	clk.Advance(5 * time.Second)

	assert.False(t, h.Fired())
	assert.Zero(t, atomic.LoadInt32(&fired))
}

func TestGuardFiresAtCeiling(t *testing.T) {
	clk := newFakeClock()
	g := NewTimeoutGuard(clk)

	var fired int32
	h := g.Start(10*time.Second, func() { atomic.AddInt32(&fired, 1) })

	clk.Advance(10 * time.Second)

	assert.True(t, h.Fired())
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))

	// A late settlement must observe the fired guard.
	assert.False(t, h.Cancel())
}

func TestGuardCancelledCallbackIsNoOp(t *testing.T) {
	clk := newFakeClock()
	g := NewTimeoutGuard(clk)

	var fired int32
	h := g.Start(time.Second, func() { atomic.AddInt32(&fired, 1) })
	assert.True(t, h.Cancel())

	// Even if the timer were to fire after cancellation, the callback is
	// suppressed.
	clk.Advance(2 * time.Second)
	assert.Zero(t, atomic.LoadInt32(&fired))
	assert.False(t, h.Fired())
}

func TestTimeoutCeilings(t *testing.T) {
	assert.Equal(t, LongTimeoutCeiling, TimeoutCeilingFor(StageAwaitingHumanDecision))
	assert.Equal(t, LongTimeoutCeiling, TimeoutCeilingFor(StageActionCoordination))
	assert.Equal(t, DefaultTimeoutCeiling, TimeoutCeilingFor(StagePolicyAnalysis))
}

func TestRequestFloorsWithinBand(t *testing.T) {
	for _, stage := range forwardPath {
		f := RequestFloorFor(stage)
		assert.GreaterOrEqual(t, f, 2*time.Second, "floor for %s", stage)
		assert.LessOrEqual(t, f, 4500*time.Millisecond, "floor for %s", stage)
	}
}
