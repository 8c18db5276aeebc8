package unitofwork

import (
	"context"

	"prior-auth-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	CaseRepository() contract.CaseRepository
	DecisionRepository() contract.DecisionRepository
	AuditEventRepository() contract.AuditEventRepository
	CohortVectorRepository() contract.CohortVectorRepository
}
