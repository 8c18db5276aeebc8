package contract

import (
	"context"

	"prior-auth-be/internal/entity"

	"github.com/google/uuid"
)

type CohortVectorRepository interface {
	Create(ctx context.Context, vector *entity.CohortVector) error
	DeleteByCaseId(ctx context.Context, caseId uuid.UUID) error

	// FindNearest returns the k closest historical outcomes for a payer by
	// cosine distance.
	FindNearest(ctx context.Context, payerId string, probe []float32, k int) ([]*entity.CohortNeighbour, error)
}
