package implementation

import (
	"context"
	"errors"

	"prior-auth-be/internal/entity"
	"prior-auth-be/internal/mapper"
	"prior-auth-be/internal/model"
	"prior-auth-be/internal/repository/contract"
	"prior-auth-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CaseRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CaseMapper
}

func NewCaseRepository(db *gorm.DB) contract.CaseRepository {
	return &CaseRepositoryImpl{
		db:     db,
		mapper: mapper.NewCaseMapper(),
	}
}

func (r *CaseRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CaseRepositoryImpl) Create(ctx context.Context, c *entity.Case) error {
	m := r.mapper.ToModel(c)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*c = *r.mapper.ToEntity(m)
	return nil
}

func (r *CaseRepositoryImpl) Update(ctx context.Context, c *entity.Case) error {
	m := r.mapper.ToModel(c)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*c = *r.mapper.ToEntity(m)
	return nil
}

func (r *CaseRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Case{}, id).Error
}

func (r *CaseRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Case, error) {
	var m model.Case
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CaseRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Case, error) {
	var models []*model.Case
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CaseRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Case{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CaseRepositoryImpl) UpdateStage(ctx context.Context, id uuid.UUID, stage string) error {
	return r.db.WithContext(ctx).Model(&model.Case{}).
		Where("id = ?", id).
		Update("stage", stage).Error
}

func (r *CaseRepositoryImpl) IncrementDenialCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Case{}).
		Where("id = ?", id).
		Update("denial_count", gorm.Expr("denial_count + 1")).Error
}

func (r *CaseRepositoryImpl) ClearAnalysisPayloads(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Case{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payer_states":         nil,
			"coverage_assessments": nil,
			"documentation_gaps":   nil,
			"available_strategies": nil,
			"selected_strategy_id": nil,
		}).Error
}

type DecisionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DecisionMapper
}

func NewDecisionRepository(db *gorm.DB) contract.DecisionRepository {
	return &DecisionRepositoryImpl{
		db:     db,
		mapper: mapper.NewDecisionMapper(),
	}
}

func (r *DecisionRepositoryImpl) Create(ctx context.Context, decision *entity.HumanDecision) error {
	m := r.mapper.ToModel(decision)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*decision = *r.mapper.ToEntity(m)
	return nil
}

func (r *DecisionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HumanDecision, error) {
	var models []model.HumanDecision
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
