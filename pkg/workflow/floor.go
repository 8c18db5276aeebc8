package workflow

import (
	"context"
	"time"
)

// RaceWithFloor runs op and withholds a successful result until at least
// floor has elapsed, so fast completions never truncate the perceived
// progress animation. Errors bypass the floor and surface immediately; this
// is a presentation floor, never an error-masking delay.
func RaceWithFloor(ctx context.Context, clock Clock, floor time.Duration, op func() (*StageAnalysisResult, error)) (*StageAnalysisResult, error) {
	type outcome struct {
		res *StageAnalysisResult
		err error
	}

	done := make(chan outcome, 1)
	go func() {
		res, err := op()
		done <- outcome{res: res, err: err}
	}()

	floorCh := make(chan struct{})
	t := clock.AfterFunc(floor, func() { close(floorCh) })
	defer t.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		select {
		case <-floorCh:
			return out.res, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	case <-floorCh:
		select {
		case out := <-done:
			return out.res, out.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
