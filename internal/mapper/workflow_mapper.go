package mapper

import (
	"prior-auth-be/internal/entity"
	"prior-auth-be/pkg/workflow"
)

// WorkflowCaseMapper converts the persisted case entity into the snapshot the
// workflow orchestrator operates on, and back for decision rows.
type WorkflowCaseMapper struct{}

func NewWorkflowCaseMapper() *WorkflowCaseMapper {
	return &WorkflowCaseMapper{}
}

func (m *WorkflowCaseMapper) ToWorkflow(c *entity.Case) *workflow.Case {
	if c == nil {
		return nil
	}

	updatedAt := c.CreatedAt
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	decisions := make([]workflow.HumanDecision, len(c.Decisions))
	for i, d := range c.Decisions {
		decisions[i] = workflow.HumanDecision{
			ID:         d.Id,
			Action:     workflow.DecisionAction(d.Action),
			ReviewerID: d.ReviewerId,
			Reason:     d.Reason,
			Notes:      d.Note,
			DecidedAt:  d.CreatedAt,
		}
	}

	return &workflow.Case{
		CaseID:              c.Id,
		Stage:               workflow.Stage(c.Stage),
		Patient:             c.Patient,
		Medication:          c.Medication,
		PayerStates:         c.PayerStates,
		CoverageAssessments: c.CoverageAssessments,
		DocumentationGaps:   c.DocumentationGaps,
		AvailableStrategies: c.AvailableStrategies,
		SelectedStrategyID:  c.SelectedStrategyId,
		HumanDecisions:      decisions,
		DenialCount:         c.DenialCount,
		UpdatedAt:           updatedAt,
	}
}
