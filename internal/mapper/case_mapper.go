package mapper

import (
	"encoding/json"
	"time"

	"prior-auth-be/internal/entity"
	"prior-auth-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CaseMapper struct {
	decision *DecisionMapper
}

func NewCaseMapper() *CaseMapper {
	return &CaseMapper{decision: NewDecisionMapper()}
}

func (m *CaseMapper) ToEntity(c *model.Case) *entity.Case {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.Case{
		Id:                  c.Id,
		Stage:               c.Stage,
		PayerId:             c.PayerId,
		ProviderEmail:       c.ProviderEmail,
		AssignedReviewerId:  c.AssignedReviewerId,
		Patient:             json.RawMessage(c.Patient),
		Medication:          json.RawMessage(c.Medication),
		PayerStates:         json.RawMessage(c.PayerStates),
		CoverageAssessments: json.RawMessage(c.CoverageAssessments),
		DocumentationGaps:   json.RawMessage(c.DocumentationGaps),
		AvailableStrategies: json.RawMessage(c.AvailableStrategies),
		SelectedStrategyId:  c.SelectedStrategyId,
		DenialCount:         c.DenialCount,
		Decisions:           m.decision.ToEntities(c.Decisions),
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           updatedAt,
		DeletedAt:           deletedAt,
		IsDeleted:           c.DeletedAt.Valid,
	}
}

func (m *CaseMapper) ToModel(c *entity.Case) *model.Case {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.Case{
		Id:                  c.Id,
		Stage:               c.Stage,
		PayerId:             c.PayerId,
		ProviderEmail:       c.ProviderEmail,
		AssignedReviewerId:  c.AssignedReviewerId,
		Patient:             datatypes.JSON(c.Patient),
		Medication:          datatypes.JSON(c.Medication),
		PayerStates:         datatypes.JSON(c.PayerStates),
		CoverageAssessments: datatypes.JSON(c.CoverageAssessments),
		DocumentationGaps:   datatypes.JSON(c.DocumentationGaps),
		AvailableStrategies: datatypes.JSON(c.AvailableStrategies),
		SelectedStrategyId:  c.SelectedStrategyId,
		DenialCount:         c.DenialCount,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           updatedAt,
		DeletedAt:           deletedAt,
	}
}

func (m *CaseMapper) ToEntities(cases []*model.Case) []*entity.Case {
	entities := make([]*entity.Case, len(cases))
	for i, c := range cases {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

type DecisionMapper struct{}

func NewDecisionMapper() *DecisionMapper {
	return &DecisionMapper{}
}

func (m *DecisionMapper) ToEntity(d *model.HumanDecision) *entity.HumanDecision {
	if d == nil {
		return nil
	}
	return &entity.HumanDecision{
		Id:         d.Id,
		CaseId:     d.CaseId,
		ReviewerId: d.ReviewerId,
		Action:     d.Action,
		Reason:     d.Reason,
		Note:       d.Note,
		CreatedAt:  d.CreatedAt,
	}
}

func (m *DecisionMapper) ToModel(d *entity.HumanDecision) *model.HumanDecision {
	if d == nil {
		return nil
	}
	return &model.HumanDecision{
		Id:         d.Id,
		CaseId:     d.CaseId,
		ReviewerId: d.ReviewerId,
		Action:     d.Action,
		Reason:     d.Reason,
		Note:       d.Note,
		CreatedAt:  d.CreatedAt,
	}
}

func (m *DecisionMapper) ToEntities(decisions []model.HumanDecision) []*entity.HumanDecision {
	entities := make([]*entity.HumanDecision, len(decisions))
	for i := range decisions {
		entities[i] = m.ToEntity(&decisions[i])
	}
	return entities
}
