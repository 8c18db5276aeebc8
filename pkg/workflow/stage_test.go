package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepIndexBoundsTrackForwardPath(t *testing.T) {
	// The last main-line index must always point at the final forward
	// stage, with recovery appended directly after it.
	assert.Equal(t, len(forwardPath)-1, FinalStepIndex)
	assert.Equal(t, FinalStepIndex+1, RecoveryStepIndex)
	assert.Equal(t, 7, FinalStepIndex)
	assert.Equal(t, 8, RecoveryStepIndex)
}

func TestStageToStepIndexMonotonic(t *testing.T) {
	// Excluding failed/recovery, indexes strictly increase along the
	// canonical forward path.
	prev := -1
	for _, stage := range forwardPath {
		idx := StageToStepIndex(stage, false)
		if idx <= prev {
			t.Fatalf("stage %s index %d not strictly after %d", stage, idx, prev)
		}
		prev = idx
	}
}

func TestStageToStepIndexDeterministic(t *testing.T) {
	all := append(append([]Stage{}, forwardPath...), StageCompleted, StageFailed, StageRecovery)
	for _, stage := range all {
		for _, denial := range []bool{false, true} {
			a := StageToStepIndex(stage, denial)
			b := StageToStepIndex(stage, denial)
			assert.Equal(t, a, b, "stage %s denial=%v", stage, denial)
		}
	}
}

func TestStageToStepIndexSpecials(t *testing.T) {
	tests := []struct {
		name   string
		stage  Stage
		denial bool
		want   int
	}{
		{"completed maps to final step", StageCompleted, false, FinalStepIndex},
		{"failed maps to final step", StageFailed, false, FinalStepIndex},
		{"recovery with denial history gets extra step", StageRecovery, true, RecoveryStepIndex},
		{"recovery without denial history collapses to final", StageRecovery, false, FinalStepIndex},
		{"intake is first", StageIntake, false, 0},
		{"monitoring is last main-line step", StageMonitoring, false, FinalStepIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StageToStepIndex(tt.stage, tt.denial))
		})
	}
}

func TestStageAtStepRoundTrip(t *testing.T) {
	for i, stage := range forwardPath {
		got, err := StageAtStep(i, false)
		require.NoError(t, err)
		assert.Equal(t, stage, got)
	}

	_, err := StageAtStep(RecoveryStepIndex, false)
	assert.Error(t, err, "recovery step must be excluded without denial history")

	got, err := StageAtStep(RecoveryStepIndex, true)
	require.NoError(t, err)
	assert.Equal(t, StageRecovery, got)
}

func TestParseStage(t *testing.T) {
	for _, raw := range []string{"intake", "policy_analysis", "monitoring", "completed", "failed", "recovery"} {
		_, err := ParseStage(raw)
		assert.NoError(t, err, raw)
	}
	_, err := ParseStage("shipping")
	assert.Error(t, err)
}

func TestNextStage(t *testing.T) {
	next, err := NextStage(StageIntake)
	require.NoError(t, err)
	assert.Equal(t, StagePolicyAnalysis, next)

	next, err = NextStage(StageMonitoring)
	require.NoError(t, err)
	assert.Equal(t, StageCompleted, next)

	_, err = NextStage(StageCompleted)
	assert.Error(t, err)
}

func TestStageKinds(t *testing.T) {
	assert.True(t, StagePolicyAnalysis.IsStreaming())
	assert.False(t, StageCohortAnalysis.IsStreaming())

	assert.True(t, StageCompleted.IsTerminal())
	assert.True(t, StageFailed.IsTerminal())
	assert.False(t, StageMonitoring.IsTerminal())

	assert.True(t, StagePolicyAnalysis.AutoTriggers())
	assert.False(t, StageAwaitingHumanDecision.AutoTriggers())

	assert.True(t, StageAwaitingHumanDecision.CanRecover())
	assert.False(t, StageIntake.CanRecover())
}
