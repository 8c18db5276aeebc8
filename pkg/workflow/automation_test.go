package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutomationRunsSequentially(t *testing.T) {
	var order []string
	r := NewPostDecisionAutomationRunner(
		func(_ context.Context, stage Stage) error {
			order = append(order, "run:"+string(stage))
			return nil
		},
		func(context.Context) error {
			order = append(order, "refetch")
			return nil
		},
		NopLogger{},
	)

	require.NoError(t, r.Run(context.Background()))

	// The second stage is never started before the first stage's refetch
	// resolves.
	assert.Equal(t, []string{
		"run:" + string(StageStrategyGeneration),
		"refetch",
		"run:" + string(StageActionCoordination),
		"refetch",
	}, order)
	assert.Equal(t, AutomationDone, r.Status().Phase)
}

func TestAutomationFailureIsInspectable(t *testing.T) {
	boom := errors.New("network error")
	r := NewPostDecisionAutomationRunner(
		func(_ context.Context, stage Stage) error {
			if stage == StageActionCoordination {
				return boom
			}
			return nil
		},
		func(context.Context) error { return nil },
		NopLogger{},
	)

	err := r.Run(context.Background())

	var autoErr *AutomationError
	require.ErrorAs(t, err, &autoErr)
	assert.Equal(t, StageActionCoordination, autoErr.FailedStage)

	st := r.Status()
	assert.Equal(t, AutomationFailed, st.Phase)
	assert.Equal(t, StageActionCoordination, st.FailedStage)
}

func TestAutomationRetryOnlyFailedStep(t *testing.T) {
	calls := map[Stage]int{}
	fail := true
	r := NewPostDecisionAutomationRunner(
		func(_ context.Context, stage Stage) error {
			calls[stage]++
			if stage == StageActionCoordination && fail {
				return errors.New("flaky")
			}
			return nil
		},
		func(context.Context) error { return nil },
		NopLogger{},
	)

	require.Error(t, r.Run(context.Background()))
	assert.Equal(t, 1, calls[StageStrategyGeneration])
	assert.Equal(t, 1, calls[StageActionCoordination])

	fail = false
	require.NoError(t, r.Retry(context.Background()))

	// Retry re-invokes only the failed follow-through stage.
	assert.Equal(t, 1, calls[StageStrategyGeneration])
	assert.Equal(t, 2, calls[StageActionCoordination])
	assert.Equal(t, AutomationDone, r.Status().Phase)
}

func TestAutomationRefetchFailureSurfaces(t *testing.T) {
	r := NewPostDecisionAutomationRunner(
		func(context.Context, Stage) error { return nil },
		func(context.Context) error { return errors.New("case service down") },
		NopLogger{},
	)

	err := r.Run(context.Background())
	var autoErr *AutomationError
	require.ErrorAs(t, err, &autoErr)
	assert.Equal(t, StageStrategyGeneration, autoErr.FailedStage)
}
