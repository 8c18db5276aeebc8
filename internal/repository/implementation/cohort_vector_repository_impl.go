package implementation

import (
	"context"

	"prior-auth-be/internal/entity"
	"prior-auth-be/internal/mapper"
	"prior-auth-be/internal/model"
	"prior-auth-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type CohortVectorRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CohortVectorMapper
}

func NewCohortVectorRepository(db *gorm.DB) contract.CohortVectorRepository {
	return &CohortVectorRepositoryImpl{
		db:     db,
		mapper: mapper.NewCohortVectorMapper(),
	}
}

func (r *CohortVectorRepositoryImpl) Create(ctx context.Context, vector *entity.CohortVector) error {
	m := r.mapper.ToModel(vector)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*vector = *r.mapper.ToEntity(m)
	return nil
}

func (r *CohortVectorRepositoryImpl) DeleteByCaseId(ctx context.Context, caseId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("case_id = ?", caseId).Delete(&model.CohortVector{}).Error
}

func (r *CohortVectorRepositoryImpl) FindNearest(ctx context.Context, payerId string, probe []float32, k int) ([]*entity.CohortNeighbour, error) {
	type result struct {
		model.CohortVector
		Distance float64
	}
	var results []result

	queryVector := pgvector.NewVector(probe)

	err := r.db.WithContext(ctx).
		Table("cohort_vectors").
		Select("cohort_vectors.*, embedding <=> ? as distance", queryVector).
		Where("payer_id = ?", payerId).
		Order(gorm.Expr("embedding <=> ?", queryVector)).
		Limit(k).
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	neighbours := make([]*entity.CohortNeighbour, len(results))
	for i := range results {
		neighbours[i] = &entity.CohortNeighbour{
			Vector:   r.mapper.ToEntity(&results[i].CohortVector),
			Distance: results[i].Distance,
		}
	}
	return neighbours, nil
}
