package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionFrontier(t *testing.T) {
	c := caseAt(StageCohortAnalysis)

	pos := Position(c, nil)
	assert.Equal(t, 2, pos.StepIndex)
	assert.Equal(t, 2, pos.ViewingIndex)
	assert.False(t, pos.IsReadOnly)
}

func TestPositionViewingPastStepIsReadOnly(t *testing.T) {
	c := caseAt(StageAIRecommendation)
	idx := 1

	pos := Position(c, &idx)
	assert.Equal(t, 3, pos.StepIndex)
	assert.Equal(t, 1, pos.ViewingIndex)
	assert.True(t, pos.IsReadOnly)
}

func TestPositionTerminalCaseAlwaysReadOnly(t *testing.T) {
	c := caseAt(StageCompleted)

	pos := Position(c, nil)
	assert.True(t, pos.IsReadOnly)

	idx := 2
	pos = Position(c, &idx)
	assert.True(t, pos.IsReadOnly)
	assert.Equal(t, FinalStepIndex, pos.StepIndex)
}

func TestValidViewingStep(t *testing.T) {
	tests := []struct {
		name   string
		stage  Stage
		denial int
		index  int
		want   bool
	}{
		{"behind frontier", StageAIRecommendation, 0, 1, true},
		{"at frontier", StageAIRecommendation, 0, 3, true},
		{"ahead of frontier", StageAIRecommendation, 0, 5, false},
		{"negative", StageIntake, 0, -1, false},
		{"completed case any step", StageCompleted, 0, 0, true},
		{"completed case last step", StageCompleted, 0, FinalStepIndex, true},
		{"recovery step without denial history", StageCompleted, 0, RecoveryStepIndex, false},
		{"recovery step with denial history", StageRecovery, 2, RecoveryStepIndex, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := caseAt(tt.stage)
			c.DenialCount = tt.denial
			assert.Equal(t, tt.want, ValidViewingStep(c, tt.index))
		})
	}
}
