package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StreamState is the streaming runner's internal machine:
// idle -> connecting -> streaming -> done | errored.
type StreamState string

const (
	StreamIdle       StreamState = "idle"
	StreamConnecting StreamState = "connecting"
	StreamStreaming  StreamState = "streaming"
	StreamDone       StreamState = "done"
	StreamErrored    StreamState = "errored"
)

// ProgressFunc receives partial assessments keyed by sub-entity while the
// stream is live. Intermediate progress never requires all fragments.
type ProgressFunc func(entityKey string, assessment Assessment)

// StreamingStageRunner runs the one stage whose output arrives incrementally
// over a persistent connection. A monotonically increasing attempt token
// guards against a stale connection's late completion; a new Run or a Cancel
// tears down any existing connection first.
type StreamingStageRunner struct {
	exec   StageExecutor
	clock  Clock
	logger Logger
	floor  time.Duration

	mu      sync.Mutex
	attempt int64
	stream  StageStream
	state   StreamState
	partial map[string]Assessment
}

func NewStreamingStageRunner(exec StageExecutor, clock Clock, logger Logger) *StreamingStageRunner {
	return &StreamingStageRunner{
		exec:   exec,
		clock:  clock,
		logger: logger,
		floor:  StreamingAnimationFloor,
		state:  StreamIdle,
	}
}

// State returns the current machine state.
func (r *StreamingStageRunner) State() StreamState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Partial returns a copy of the accumulated fragments for live display.
func (r *StreamingStageRunner) Partial() map[string]Assessment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Assessment, len(r.partial))
	for k, v := range r.partial {
		out[k] = v
	}
	return out
}

// Cancel tears down any active connection. The bumped attempt token makes
// the superseded attempt's late frames no-ops.
func (r *StreamingStageRunner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempt++
	if r.stream != nil {
		r.stream.Close()
		r.stream = nil
	}
	r.state = StreamIdle
	r.partial = nil
}

// Run opens a streaming connection for the stage and assembles the final
// result. A connection rejected before any byte arrives returns
// ErrStreamUnavailable so the caller can fall back to the request runner;
// streaming is an optimization, not a required transport. Completion is
// deferred until the animation floor elapses; errors bypass the floor.
func (r *StreamingStageRunner) Run(ctx context.Context, caseID uuid.UUID, stage Stage, refresh bool, onProgress ProgressFunc) (*StageAnalysisResult, error) {
	r.mu.Lock()
	r.attempt++
	attempt := r.attempt
	if r.stream != nil {
		r.stream.Close()
		r.stream = nil
	}
	r.state = StreamConnecting
	r.partial = make(map[string]Assessment)
	r.mu.Unlock()

	floorCh := make(chan struct{})
	t := r.clock.AfterFunc(r.floor, func() { close(floorCh) })
	defer t.Stop()

	stream, err := r.exec.OpenStageStream(ctx, caseID, stage, refresh)
	if err != nil {
		r.settle(attempt, StreamIdle)
		return nil, fmt.Errorf("%w: %v", ErrStreamUnavailable, err)
	}

	r.mu.Lock()
	if attempt != r.attempt {
		r.mu.Unlock()
		stream.Close()
		return nil, ErrStaleAttempt
	}
	r.stream = stream
	r.state = StreamStreaming
	r.mu.Unlock()

	r.logger.Info("StreamingStageRunner", "Stream opened", map[string]interface{}{
		"case_id": caseID, "stage": stage, "attempt": attempt,
	})

	for {
		frag, err := stream.Recv()
		if err != nil {
			if !r.settle(attempt, StreamErrored) {
				return nil, ErrStaleAttempt
			}
			return nil, &StageRunError{Stage: stage, Err: err}
		}

		switch frag.Kind {
		case FragmentPartial:
			r.mu.Lock()
			if attempt != r.attempt {
				r.mu.Unlock()
				return nil, ErrStaleAttempt
			}
			if frag.Assessment != nil {
				r.partial[frag.EntityKey] = *frag.Assessment
			}
			r.mu.Unlock()
			if onProgress != nil && frag.Assessment != nil {
				onProgress(frag.EntityKey, *frag.Assessment)
			}

		case FragmentError:
			if !r.settle(attempt, StreamErrored) {
				return nil, ErrStaleAttempt
			}
			return nil, &StageRunError{Stage: stage, Err: errors.New(frag.Error)}

		case FragmentFinal:
			// Hold the finished result until the animation floor elapses.
			select {
			case <-floorCh:
			case <-ctx.Done():
				r.settle(attempt, StreamIdle)
				return nil, ctx.Err()
			}
			if !r.settle(attempt, StreamDone) {
				return nil, ErrStaleAttempt
			}
			return frag.Result, nil

		default:
			r.logger.Warn("StreamingStageRunner", "Skipping unknown fragment kind", map[string]interface{}{
				"kind": frag.Kind,
			})
		}
	}
}

// settle closes out the attempt if it is still current, reporting whether it
// was.
func (r *StreamingStageRunner) settle(attempt int64, state StreamState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if attempt != r.attempt {
		return false
	}
	r.state = state
	if r.stream != nil {
		r.stream.Close()
		r.stream = nil
	}
	return true
}
