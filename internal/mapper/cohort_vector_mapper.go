package mapper

import (
	"prior-auth-be/internal/entity"
	"prior-auth-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type CohortVectorMapper struct{}

func NewCohortVectorMapper() *CohortVectorMapper {
	return &CohortVectorMapper{}
}

func (m *CohortVectorMapper) ToEntity(v *model.CohortVector) *entity.CohortVector {
	if v == nil {
		return nil
	}
	return &entity.CohortVector{
		Id:           v.Id,
		CaseId:       v.CaseId,
		PayerId:      v.PayerId,
		Outcome:      v.Outcome,
		DecisionDays: v.DecisionDays,
		Embedding:    v.Embedding.Slice(),
		CreatedAt:    v.CreatedAt,
	}
}

func (m *CohortVectorMapper) ToModel(v *entity.CohortVector) *model.CohortVector {
	if v == nil {
		return nil
	}
	return &model.CohortVector{
		Id:           v.Id,
		CaseId:       v.CaseId,
		PayerId:      v.PayerId,
		Outcome:      v.Outcome,
		DecisionDays: v.DecisionDays,
		Embedding:    pgvector.NewVector(v.Embedding),
		CreatedAt:    v.CreatedAt,
	}
}

func (m *CohortVectorMapper) ToEntities(vectors []*model.CohortVector) []*entity.CohortVector {
	entities := make([]*entity.CohortVector, len(vectors))
	for i, v := range vectors {
		entities[i] = m.ToEntity(v)
	}
	return entities
}
