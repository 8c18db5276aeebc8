package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"prior-auth-be/internal/dto"
	"prior-auth-be/internal/entity"
	"prior-auth-be/internal/repository/specification"
	"prior-auth-be/internal/repository/unitofwork"
	"prior-auth-be/pkg/embedding"
	"prior-auth-be/pkg/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ICohortService answers "how did similar requests fare with this payer" by
// nearest-neighbour lookup over embedded historical outcomes.
type ICohortService interface {
	SimilarOutcomes(ctx context.Context, caseID uuid.UUID, k int) ([]dto.CohortNeighbourResponse, error)

	// IndexCase embeds a finished case so future requests can find it.
	IndexCase(ctx context.Context, caseID uuid.UUID, outcome string, decisionDays int) error
}

type cohortService struct {
	uowFactory unitofwork.RepositoryFactory
	embedder   embedding.Provider
}

func NewCohortService(uowFactory unitofwork.RepositoryFactory, embedder embedding.Provider) ICohortService {
	return &cohortService{
		uowFactory: uowFactory,
		embedder:   embedder,
	}
}

func (s *cohortService) SimilarOutcomes(ctx context.Context, caseID uuid.UUID, k int) ([]dto.CohortNeighbourResponse, error) {
	if k <= 0 || k > 50 {
		k = 5
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	c, err := s.loadCase(ctx, uow, caseID)
	if err != nil {
		return nil, err
	}

	probe, err := s.embedder.Generate(s.caseText(c))
	if err != nil {
		return nil, fmt.Errorf("failed to embed case: %w", err)
	}

	// Ask for one extra so the case's own vector can be dropped from the
	// answer without shorting the caller.
	neighbours, err := uow.CohortVectorRepository().FindNearest(ctx, c.PayerId, probe, k+1)
	if err != nil {
		return nil, fmt.Errorf("cohort lookup failed: %w", err)
	}

	out := make([]dto.CohortNeighbourResponse, 0, k)
	for _, n := range neighbours {
		if n.Vector.CaseId != nil && *n.Vector.CaseId == caseID {
			continue
		}
		out = append(out, dto.CohortNeighbourResponse{
			PayerId:      n.Vector.PayerId,
			Outcome:      n.Vector.Outcome,
			DecisionDays: n.Vector.DecisionDays,
			Distance:     n.Distance,
		})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (s *cohortService) IndexCase(ctx context.Context, caseID uuid.UUID, outcome string, decisionDays int) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	c, err := s.loadCase(ctx, uow, caseID)
	if err != nil {
		return err
	}

	vec, err := s.embedder.Generate(s.caseText(c))
	if err != nil {
		return fmt.Errorf("failed to embed case: %w", err)
	}

	// Re-indexing replaces the previous vector for the case.
	if err := uow.CohortVectorRepository().DeleteByCaseId(ctx, caseID); err != nil {
		return err
	}
	if err := uow.CohortVectorRepository().Create(ctx, &entity.CohortVector{
		Id:           uuid.New(),
		CaseId:       &caseID,
		PayerId:      c.PayerId,
		Outcome:      outcome,
		DecisionDays: decisionDays,
		Embedding:    vec,
	}); err != nil {
		return err
	}

	return uow.Commit()
}

func (s *cohortService) loadCase(ctx context.Context, uow unitofwork.UnitOfWork, caseID uuid.UUID) (*entity.Case, error) {
	c, err := uow.CaseRepository().FindOne(ctx, specification.ByID{ID: caseID})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrCaseNotFound
		}
		return nil, err
	}
	// FindOne reports a missing row as (nil, nil)
	if c == nil {
		return nil, workflow.ErrCaseNotFound
	}
	return c, nil
}

// caseText flattens the clinical identity of the case into the text the
// embedder hashes. Payloads written later by analysis stages are deliberately
// excluded so the probe is stable across the case's lifetime.
func (s *cohortService) caseText(c *entity.Case) string {
	var b strings.Builder
	b.WriteString(c.PayerId)
	b.WriteString(" ")
	b.Write(c.Patient)
	b.WriteString(" ")
	b.Write(c.Medication)
	return b.String()
}
