package workflow

import "fmt"

// Stage is the authoritative, server-held position of a case in the
// approval workflow. The server is the single source of truth; the client
// side of the orchestrator only ever re-reads it after a persisted write.
type Stage string

const (
	StageIntake                Stage = "intake"
	StagePolicyAnalysis        Stage = "policy_analysis"
	StageCohortAnalysis        Stage = "cohort_analysis"
	StageAIRecommendation      Stage = "ai_recommendation"
	StageAwaitingHumanDecision Stage = "awaiting_human_decision"
	StageStrategyGeneration    Stage = "strategy_generation"
	StageActionCoordination    Stage = "action_coordination"
	StageMonitoring            Stage = "monitoring"
	StageCompleted             Stage = "completed"

	// Out-of-band stages. Failed is reachable from any non-terminal stage,
	// Recovery only from denial-bearing stages.
	StageFailed   Stage = "failed"
	StageRecovery Stage = "recovery"
)

// forwardPath is the canonical forward ordering. Completed shares the final
// step with monitoring for display purposes.
var forwardPath = []Stage{
	StageIntake,
	StagePolicyAnalysis,
	StageCohortAnalysis,
	StageAIRecommendation,
	StageAwaitingHumanDecision,
	StageStrategyGeneration,
	StageActionCoordination,
	StageMonitoring,
}

// FinalStepIndex is the wizard index of the last main-line step.
var FinalStepIndex = len(forwardPath) - 1

// RecoveryStepIndex is the optional extra step appended after the main line.
// It is only part of the visible step list when the case has denial history.
var RecoveryStepIndex = FinalStepIndex + 1

// denialBearing lists the stages from which a case may branch to recovery.
var denialBearing = map[Stage]bool{
	StageAwaitingHumanDecision: true,
	StageActionCoordination:    true,
	StageMonitoring:            true,
}

// ParseStage validates a raw stage string.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	switch s {
	case StageFailed, StageRecovery, StageCompleted:
		return s, nil
	}
	for _, fs := range forwardPath {
		if s == fs {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown workflow stage: %q", raw)
}

// StageToStepIndex maps a stage onto a wizard step index. It is pure and
// total over the taxonomy: completed and failed map to the final step, and
// recovery maps to the optional extra step when the case has denial history.
// Callers are expected to check for failed explicitly before mapping, and to
// have excluded recovery from the visible step list when hasDenialHistory is
// false.
func StageToStepIndex(stage Stage, hasDenialHistory bool) int {
	switch stage {
	case StageCompleted, StageFailed:
		return FinalStepIndex
	case StageRecovery:
		if hasDenialHistory {
			return RecoveryStepIndex
		}
		return FinalStepIndex
	}
	for i, fs := range forwardPath {
		if stage == fs {
			return i
		}
	}
	return FinalStepIndex
}

// StageAtStep is the inverse mapping for main-line steps.
func StageAtStep(index int, hasDenialHistory bool) (Stage, error) {
	if index >= 0 && index < len(forwardPath) {
		return forwardPath[index], nil
	}
	if index == RecoveryStepIndex && hasDenialHistory {
		return StageRecovery, nil
	}
	return "", fmt.Errorf("no stage at step index %d", index)
}

// IsTerminal reports whether the stage blocks any further forward advance.
// A failed case may still be retried in place, a completed case only viewed
// or reset.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

// IsStreaming reports whether this stage's analysis arrives incrementally
// over a persistent connection. Policy analysis is the expensive criteria
// walk and is the only streaming stage.
func (s Stage) IsStreaming() bool {
	return s == StagePolicyAnalysis
}

// CanRecover reports whether a recovery branch is reachable from this stage.
func (s Stage) CanRecover() bool {
	return denialBearing[s]
}

// NextStage returns the stage after s on the canonical forward path.
// Monitoring advances to completed.
func NextStage(s Stage) (Stage, error) {
	for i, fs := range forwardPath {
		if s != fs {
			continue
		}
		if i == len(forwardPath)-1 {
			return StageCompleted, nil
		}
		return forwardPath[i+1], nil
	}
	return "", fmt.Errorf("stage %q has no forward successor", s)
}

// autoTriggerStages run automatically the first time their step becomes the
// active frontier and the case holds no analytical payload for them yet.
var autoTriggerStages = map[Stage]bool{
	StagePolicyAnalysis:   true,
	StageCohortAnalysis:   true,
	StageAIRecommendation: true,
}

// AutoTriggers reports whether the stage is run automatically on first entry.
func (s Stage) AutoTriggers() bool {
	return autoTriggerStages[s]
}
