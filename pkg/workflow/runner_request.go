package workflow

import (
	"context"

	"github.com/google/uuid"
)

// RequestStageRunner executes a non-streaming stage via one asynchronous
// call, holding a per-stage minimum-duration floor so the processing state
// never flickers on a fast response.
type RequestStageRunner struct {
	exec   StageExecutor
	clock  Clock
	logger Logger
}

func NewRequestStageRunner(exec StageExecutor, clock Clock, logger Logger) *RequestStageRunner {
	return &RequestStageRunner{exec: exec, clock: clock, logger: logger}
}

func (r *RequestStageRunner) Run(ctx context.Context, caseID uuid.UUID, stage Stage, refresh bool) (*StageAnalysisResult, error) {
	r.logger.Info("RequestStageRunner", "Running stage", map[string]interface{}{
		"case_id": caseID, "stage": stage, "refresh": refresh,
	})

	return RaceWithFloor(ctx, r.clock, RequestFloorFor(stage), func() (*StageAnalysisResult, error) {
		res, err := r.exec.RunStage(ctx, caseID, stage, refresh)
		if err != nil {
			return nil, &StageRunError{Stage: stage, Err: err}
		}
		return res, nil
	})
}
