package workflow

// WizardPosition is the derived, never-persisted client position.
type WizardPosition struct {
	StepIndex       int  `json:"step_index"`
	ViewingIndex    int  `json:"viewing_index"`
	ViewingOverride *int `json:"viewing_override,omitempty"`
	IsReadOnly      bool `json:"is_read_only"`
}

// Position computes the wizard position for a case and an optional viewing
// override. The override survives stage advances; only an explicit
// back-to-current action, a stage-change push, or a case reset clears it,
// and those are the orchestrator's responsibility, not this mapping's.
func Position(c *Case, viewingOverride *int) WizardPosition {
	frontier := StageToStepIndex(c.Stage, c.HasDenialHistory())

	pos := WizardPosition{
		StepIndex:       frontier,
		ViewingIndex:    frontier,
		ViewingOverride: viewingOverride,
	}

	if viewingOverride != nil {
		pos.ViewingIndex = *viewingOverride
	}

	pos.IsReadOnly = c.Stage.IsTerminal() || pos.ViewingIndex < frontier
	return pos
}

// ValidViewingStep reports whether index is navigable for the case: any
// step of a completed case, otherwise any step at or behind the frontier
// (plus the recovery step when the case has denial history).
func ValidViewingStep(c *Case, index int) bool {
	if index < 0 {
		return false
	}
	limit := FinalStepIndex
	if c.HasDenialHistory() {
		limit = RecoveryStepIndex
	}
	if index > limit {
		return false
	}
	if c.Stage == StageCompleted {
		return true
	}
	frontier := StageToStepIndex(c.Stage, c.HasDenialHistory())
	return index <= frontier
}
