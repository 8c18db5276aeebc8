package contract

import (
	"context"

	"prior-auth-be/internal/entity"
	"prior-auth-be/internal/repository/specification"

	"github.com/google/uuid"
)

type CaseRepository interface {
	Create(ctx context.Context, c *entity.Case) error
	Update(ctx context.Context, c *entity.Case) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Case, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Case, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// Stage transitions are column-level writes so concurrent payload updates
	// from the analysis engine are never clobbered.
	UpdateStage(ctx context.Context, id uuid.UUID, stage string) error
	IncrementDenialCount(ctx context.Context, id uuid.UUID) error
	ClearAnalysisPayloads(ctx context.Context, id uuid.UUID) error
}

type DecisionRepository interface {
	Create(ctx context.Context, decision *entity.HumanDecision) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HumanDecision, error)
}
